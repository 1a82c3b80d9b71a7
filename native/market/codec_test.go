package market_test

import (
	"math/big"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"loanledger/core/txerr"
	"loanledger/native/market"
)

func payload(t *testing.T, args ...interface{}) []byte {
	t.Helper()
	data, err := cbor.Marshal(args)
	require.NoError(t, err)
	return data
}

func TestDecodeSendFunds(t *testing.T) {
	cmd, err := market.DecodeCommand(payload(t, "SendFunds", "1000", "ABCDEF"))
	require.NoError(t, err)
	sf, ok := cmd.(*market.SendFunds)
	require.True(t, ok)
	require.Equal(t, big.NewInt(1000), sf.Amount)
	// Identifiers fold to lowercase; the verb is case-insensitive too.
	require.Equal(t, "abcdef", sf.Sighash)
	require.Equal(t, "sendfunds", sf.Verb())
}

func TestDecodeMissingArgument(t *testing.T) {
	_, err := market.DecodeCommand(payload(t, "SendFunds", "1000"))
	require.True(t, txerr.IsInvalid(err))
	require.EqualError(t, err, "Expecting sighash")

	_, err = market.DecodeCommand(payload(t, "SendFunds"))
	require.EqualError(t, err, "Expecting amount")

	_, err = market.DecodeCommand(payload(t, "AddAskOrder", "someaddress", "1000", "100"))
	require.EqualError(t, err, "Expecting maturity")
}

func TestDecodeNumericForms(t *testing.T) {
	// Positive integers may arrive as CBOR integers instead of strings.
	cmd, err := market.DecodeCommand(payload(t, "SendFunds", uint64(42), "aa"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(42), cmd.(*market.SendFunds).Amount)

	_, err = market.DecodeCommand(payload(t, "SendFunds", "-5", "aa"))
	require.EqualError(t, err, "Negative numbers are not allowed")

	_, err = market.DecodeCommand(payload(t, "SendFunds", "12x", "aa"))
	require.EqualError(t, err, "Invalid number format")
}

func TestDecodeSignedGain(t *testing.T) {
	cmd, err := market.DecodeCommand(payload(t, "RegisterTransfer", "-250", "ORDER", "0xTX"))
	require.NoError(t, err)
	rt := cmd.(*market.RegisterTransfer)
	require.Equal(t, big.NewInt(-250), rt.Gain)
	require.Equal(t, "order", rt.OrderID)
	require.Equal(t, "0xtx", rt.BlockchainTxID)
}

func TestDecodeUnknownCommand(t *testing.T) {
	_, err := market.DecodeCommand(payload(t, "Teleport"))
	require.True(t, txerr.IsInvalid(err))
	require.EqualError(t, err, "Invalid command Teleport")
}

func TestDecodeMalformedPayload(t *testing.T) {
	_, err := market.DecodeCommand([]byte{0xff, 0x00})
	require.EqualError(t, err, "Invalid payload")

	_, err = market.DecodeCommand(payload(t))
	require.EqualError(t, err, "Expecting command name")

	_, err = market.DecodeCommand(payload(t, uint64(7)))
	require.EqualError(t, err, "Expecting command name")
}

func TestDecodeHousekeeping(t *testing.T) {
	cmd, err := market.DecodeCommand(payload(t, "Housekeeping", "120"))
	require.NoError(t, err)
	require.Equal(t, uint64(120), cmd.(*market.Housekeeping).BlockIdx)
}

func TestDecodeRegisterDealOrderKeepsSignatureCase(t *testing.T) {
	cmd, err := market.DecodeCommand(payload(t,
		"RegisterDealOrder", "ASK", "BID", "1000", "100000", "10", "1", "500",
		"DEADbeef", "03AbCd", "DEAL", "0xTX"))
	require.NoError(t, err)
	rd := cmd.(*market.RegisterDealOrder)
	// Signature and key are passed through verbatim; ids are folded.
	require.Equal(t, "DEADbeef", rd.FundraiserSignature)
	require.Equal(t, "03AbCd", rd.FundraiserPublicKey)
	require.Equal(t, "ask", rd.AskAddressID)
	require.Equal(t, "deal", rd.DealOrderID)
}
