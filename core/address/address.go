// Package address implements the deterministic key scheme for every record
// the processor persists. An address is exactly 70 lowercase hex characters:
// a 6-character namespace, a 4-character kind tag and a 60-character SHA-512
// digest of the record's natural key.
package address

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"loanledger/core/txerr"
)

// Namespace is the 6-hex-character prefix under which all marketplace records
// live. Changing it is a wire-incompatible change.
const Namespace = "65af50"

// SettingsNamespace is the prefix of the on-chain settings records consumed by
// the settings cache.
const SettingsNamespace = "000000"

// Length is the total length of a record address in hex characters.
const Length = 70

// Kind is the 4-hex-character tag identifying the record type within the
// namespace.
type Kind string

const (
	KindWallet         Kind = "0000"
	KindAddress        Kind = "1000"
	KindTransfer       Kind = "2000"
	KindAskOrder       Kind = "3000"
	KindBidOrder       Kind = "4000"
	KindDealOrder      Kind = "5000"
	KindRepaymentOrder Kind = "6000"
	KindOffer          Kind = "7000"
	KindFee            Kind = "8000"
	KindProcessedBlock Kind = "9000"
)

// ProcessedBlock is the singleton address holding the last block height for
// which rewards have been minted.
var ProcessedBlock = Namespace + string(KindProcessedBlock) + strings.Repeat("0", 60)

// ForKind derives the address of a record from its kind tag and natural key.
// Identical keys always derive identical addresses.
func ForKind(kind Kind, naturalKey string) string {
	sum := sha512.Sum512([]byte(naturalKey))
	return Namespace + string(kind) + hex.EncodeToString(sum[:])[:60]
}

// Validate checks that id is a well-formed address of the expected kind.
func Validate(id string, kind Kind) error {
	if len(id) != Length || !isHex(id) {
		return txerr.Invalidf("Invalid id %v", id)
	}
	if !strings.HasPrefix(id, Namespace+string(kind)) {
		return txerr.Invalidf("Invalid id %v", id)
	}
	return nil
}

// KindOf extracts the kind tag of a well-formed address. It returns false when
// the address does not belong to the marketplace namespace.
func KindOf(id string) (Kind, bool) {
	if len(id) != Length || !strings.HasPrefix(id, Namespace) {
		return "", false
	}
	return Kind(id[len(Namespace) : len(Namespace)+4]), true
}

// Prefix returns the enumeration prefix of a kind, used for bulk scans.
func Prefix(kind Kind) string {
	return Namespace + string(kind)
}

// ForSetting derives the address of an on-chain setting from its dotted key.
// The key is split into at most four parts, padded with empty strings, and
// each part contributes the first 16 hex characters of its SHA-256 digest.
func ForSetting(key string) string {
	parts := strings.SplitN(key, ".", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	var b strings.Builder
	b.WriteString(SettingsNamespace)
	for _, part := range parts {
		sum := sha256.Sum256([]byte(part))
		b.WriteString(hex.EncodeToString(sum[:])[:16])
	}
	return b.String()
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
