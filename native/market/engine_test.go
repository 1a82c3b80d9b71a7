package market_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"loanledger/core/address"
	"loanledger/core/state"
	"loanledger/core/txerr"
	"loanledger/core/types"
	"loanledger/native/market"
	"loanledger/settings"
	"loanledger/storage"
)

const (
	investor   = "aaaa11112222333344445555666677778888999900001111222233334444"
	fundraiser = "bbbb11112222333344445555666677778888999900001111222233334444"
	collector  = "cccc11112222333344445555666677778888999900001111222233334444"
)

// fakeGateway scripts the settlement gateway and records every command sent
// to it.
type fakeGateway struct {
	err      error
	commands []string
}

func (g *fakeGateway) Verify(command string) error {
	g.commands = append(g.commands, command)
	return g.err
}

func newEngine(gw market.Verifier, cfg settings.Static) *market.Engine {
	if gw == nil {
		gw = &fakeGateway{}
	}
	if cfg == nil {
		cfg = settings.Static{}
	}
	return market.NewEngine(gw, cfg, nil)
}

func newCtx(kv *storage.MemKV, tip uint64, sighash, guid string) *market.Context {
	return &market.Context{
		Store:   state.New(kv),
		Tip:     tip,
		Sighash: sighash,
		Guid:    guid,
	}
}

func put(t *testing.T, kv *storage.MemKV, addr string, rec interface{}) {
	t.Helper()
	data, err := rlp.EncodeToBytes(rec)
	require.NoError(t, err)
	require.NoError(t, kv.Set(addr, data))
}

// fund seeds a wallet with amount on top of n transaction fees so tests can
// reason about the post-fee balance directly.
func fund(t *testing.T, kv *storage.MemKV, sighash string, amount *big.Int, fees int64) {
	t.Helper()
	total := new(big.Int).Mul(market.TxFee, big.NewInt(fees))
	total.Add(total, amount)
	put(t, kv, address.ForKind(address.KindWallet, sighash), &types.Wallet{Amount: total})
}

func balance(t *testing.T, kv *storage.MemKV, sighash string) *big.Int {
	t.Helper()
	wallet, err := state.New(kv).GetWallet(sighash)
	require.NoError(t, err)
	return wallet.Balance()
}

func hasFee(t *testing.T, kv *storage.MemKV, guid string) bool {
	t.Helper()
	ok, err := state.New(kv).Has(address.ForKind(address.KindFee, guid))
	require.NoError(t, err)
	return ok
}

func TestSendFunds(t *testing.T) {
	kv := storage.NewMemKV()
	fund(t, kv, investor, big.NewInt(1000), 1)
	e := newEngine(nil, nil)

	ctx := newCtx(kv, 5, investor, "guid-1")
	err := e.Execute(ctx, &market.SendFunds{Amount: big.NewInt(700), Sighash: fundraiser})
	require.NoError(t, err)

	require.Equal(t, big.NewInt(300), balance(t, kv, investor))
	require.Equal(t, big.NewInt(700), balance(t, kv, fundraiser))
	require.True(t, hasFee(t, kv, "guid-1"))
}

func TestSendFundsInsufficient(t *testing.T) {
	kv := storage.NewMemKV()
	fund(t, kv, investor, big.NewInt(100), 1)
	e := newEngine(nil, nil)

	err := e.Execute(newCtx(kv, 5, investor, "guid-1"), &market.SendFunds{
		Amount: big.NewInt(700), Sighash: fundraiser,
	})
	require.True(t, txerr.IsInvalid(err))
	require.EqualError(t, err, "Insufficient funds")
	// Nothing committed on failure.
	require.Equal(t, new(big.Int).Add(market.TxFee, big.NewInt(100)), balance(t, kv, investor))
	require.Zero(t, balance(t, kv, fundraiser).Sign())
	require.False(t, hasFee(t, kv, "guid-1"))
}

func TestSendFundsCannotCoverFee(t *testing.T) {
	kv := storage.NewMemKV()
	e := newEngine(nil, nil)

	err := e.Execute(newCtx(kv, 5, investor, "guid-1"), &market.SendFunds{
		Amount: big.NewInt(1), Sighash: fundraiser,
	})
	require.EqualError(t, err, "Insufficient funds")
}

func TestSendFundsToSelf(t *testing.T) {
	kv := storage.NewMemKV()
	fund(t, kv, investor, big.NewInt(1000), 1)
	e := newEngine(nil, nil)

	err := e.Execute(newCtx(kv, 5, investor, "guid-1"), &market.SendFunds{
		Amount: big.NewInt(1), Sighash: investor,
	})
	require.EqualError(t, err, "Invalid destination")
}

func TestRegisterAddress(t *testing.T) {
	kv := storage.NewMemKV()
	fund(t, kv, investor, big.NewInt(0), 2)
	fund(t, kv, fundraiser, big.NewInt(0), 1)
	e := newEngine(nil, nil)

	cmd := &market.RegisterAddress{Blockchain: "ethereum", Address: "0xdeadbeef", Network: "mainnet"}
	require.NoError(t, e.Execute(newCtx(kv, 5, investor, "guid-1"), cmd))

	id := address.ForKind(address.KindAddress, "ethereum0xdeadbeefmainnet")
	rec, ok, err := state.New(kv).GetAddress(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ethereum", rec.Blockchain)
	require.Equal(t, "0xdeadbeef", rec.Value)
	require.Equal(t, investor, rec.Sighash)

	// Registration is globally unique, even across parties.
	err = e.Execute(newCtx(kv, 6, investor, "guid-2"), cmd)
	require.EqualError(t, err, "The address has been already registered")
	err = e.Execute(newCtx(kv, 6, fundraiser, "guid-3"), cmd)
	require.EqualError(t, err, "The address has been already registered")

	// A different network is a different address.
	require.NoError(t, e.Execute(newCtx(kv, 6, investor, "guid-4"), &market.RegisterAddress{
		Blockchain: "ethereum", Address: "0xdeadbeef", Network: "rinkeby",
	}))
}

func TestCollectCoins(t *testing.T) {
	kv := storage.NewMemKV()
	gw := &fakeGateway{}
	e := newEngine(gw, nil)

	// No fee is charged: the caller holds no balance yet.
	cmd := &market.CollectCoins{
		EthAddress:     "0xdeadbeef",
		Amount:         big.NewInt(5000),
		BlockchainTxID: "0xtx1",
	}
	require.NoError(t, e.Execute(newCtx(kv, 9, investor, "guid-1"), cmd))
	require.Equal(t, []string{"CollectCoins 0xdeadbeef 5000 0xtx1"}, gw.commands)
	require.Equal(t, big.NewInt(5000), balance(t, kv, investor))
	require.False(t, hasFee(t, kv, "guid-1"))

	marker, ok, err := state.New(kv).GetTransfer(address.ForKind(address.KindTransfer, "0xdeadbeef0xtx1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, marker.Processed)
	require.Equal(t, uint64(8), marker.Block)

	// The same deposit cannot be collected twice, by anyone.
	err = e.Execute(newCtx(kv, 10, fundraiser, "guid-2"), cmd)
	require.EqualError(t, err, "Already collected")
}

func TestCollectCoinsGatewayRejects(t *testing.T) {
	kv := storage.NewMemKV()
	gw := &fakeGateway{err: txerr.Invalid("Couldn't validate the transaction")}
	e := newEngine(gw, nil)

	err := e.Execute(newCtx(kv, 9, investor, "guid-1"), &market.CollectCoins{
		EthAddress: "0xdeadbeef", Amount: big.NewInt(5000), BlockchainTxID: "0xtx1",
	})
	require.EqualError(t, err, "Couldn't validate the transaction")
	require.Zero(t, balance(t, kv, investor).Sign())
	require.Zero(t, kv.Len())
}
