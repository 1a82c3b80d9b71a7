// Package crypto derives participant identities from secp256k1 signer keys
// and verifies fundraiser signatures on pre-agreed deals.
package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"loanledger/core/txerr"
)

// SighashLength is the length of a participant identity in hex characters.
const SighashLength = 60

// Sighash derives the stable identity of a signer: the first 60 hex
// characters of the SHA-512 digest of the lowercase hex encoding of the
// compressed public key.
func Sighash(signerPublicKeyHex string) (string, error) {
	compressed, err := CompressPublicKey(signerPublicKeyHex)
	if err != nil {
		return "", err
	}
	sum := sha512.Sum512([]byte(hex.EncodeToString(compressed)))
	return hex.EncodeToString(sum[:])[:SighashLength], nil
}

// CompressPublicKey converts a hex-encoded secp256k1 public key, compressed
// or uncompressed, into its 33-byte compressed form.
func CompressPublicKey(hexKey string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(hexKey)))
	if err != nil {
		return nil, txerr.Invalid("Invalid public key")
	}
	switch len(raw) {
	case 33:
		// Round-trip through the curve to reject garbage points.
		pub, err := ethcrypto.DecompressPubkey(raw)
		if err != nil {
			return nil, txerr.Invalid("Invalid public key")
		}
		return ethcrypto.CompressPubkey(pub), nil
	case 65:
		pub, err := ethcrypto.UnmarshalPubkey(raw)
		if err != nil {
			return nil, txerr.Invalid("Invalid public key")
		}
		return ethcrypto.CompressPubkey(pub), nil
	case 64:
		pub, err := ethcrypto.UnmarshalPubkey(append([]byte{0x04}, raw...))
		if err != nil {
			return nil, txerr.Invalid("Invalid public key")
		}
		return ethcrypto.CompressPubkey(pub), nil
	default:
		return nil, txerr.Invalid("Invalid public key")
	}
}

// VerifySignature checks a secp256k1 signature over the SHA-256 digest of
// message. The signature is hex-encoded r||s; a trailing recovery byte is
// tolerated and ignored.
func VerifySignature(pubKeyHex, message, signatureHex string) error {
	compressed, err := CompressPublicKey(pubKeyHex)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signatureHex)))
	if err != nil {
		return txerr.Invalid("Invalid signature")
	}
	if len(sig) == 65 {
		sig = sig[:64]
	}
	if len(sig) != 64 {
		return txerr.Invalid("Invalid signature")
	}
	digest := sha256.Sum256([]byte(message))
	if !ethcrypto.VerifySignature(compressed, digest[:], sig) {
		return txerr.Invalid("Invalid signature")
	}
	return nil
}
