package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestSighashStableAcrossEncodings(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	uncompressed := hex.EncodeToString(ethcrypto.FromECDSAPub(&key.PublicKey))
	compressed := hex.EncodeToString(ethcrypto.CompressPubkey(&key.PublicKey))

	a, err := Sighash(uncompressed)
	require.NoError(t, err)
	b, err := Sighash(compressed)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, SighashLength)
}

func TestSighashRejectsGarbage(t *testing.T) {
	_, err := Sighash("not-hex")
	require.Error(t, err)
	_, err = Sighash("deadbeef")
	require.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	pubHex := hex.EncodeToString(ethcrypto.CompressPubkey(&key.PublicKey))

	message := "hello marketplace"
	digest := sha256.Sum256([]byte(message))
	sig, err := ethcrypto.Sign(digest[:], key)
	require.NoError(t, err)

	require.NoError(t, VerifySignature(pubHex, message, hex.EncodeToString(sig)))
	require.Error(t, VerifySignature(pubHex, "tampered", hex.EncodeToString(sig)))
	require.Error(t, VerifySignature(pubHex, message, "zz"))
}
