package types

import (
	"math/big"

	"loanledger/core/txerr"
)

// Error messages for numeric argument parsing. The strings are part of the
// public contract and asserted byte-exactly by clients.
const (
	NegativeNumberErr      = "Negative numbers are not allowed"
	InvalidNumberFormatErr = "Invalid number format"
)

// InterestScale is the implicit denominator of interest rates: a stored rate
// r corresponds to the fraction r/InterestScale per maturity period.
var InterestScale = big.NewInt(1_000_000)

// Credo is a non-negative arbitrary-precision amount of internal ledger
// balance.
type Credo struct {
	v *big.Int
}

// CurrencyAmount is a non-negative arbitrary-precision amount of external
// settlement currency. It is kept distinct from Credo so wallet math and
// settlement math cannot be mixed up.
type CurrencyAmount struct {
	v *big.Int
}

// NewCredo wraps an existing big integer as a Credo amount. Negative inputs
// are clamped to zero.
func NewCredo(v *big.Int) Credo {
	if v == nil || v.Sign() < 0 {
		return Credo{v: new(big.Int)}
	}
	return Credo{v: new(big.Int).Set(v)}
}

// ParseCredo parses a decimal string into a Credo amount.
func ParseCredo(s string) (Credo, error) {
	v, err := parseUnsigned(s)
	if err != nil {
		return Credo{}, err
	}
	return Credo{v: v}, nil
}

// ParseCurrency parses a decimal string into a CurrencyAmount.
func ParseCurrency(s string) (CurrencyAmount, error) {
	v, err := parseUnsigned(s)
	if err != nil {
		return CurrencyAmount{}, err
	}
	return CurrencyAmount{v: v}, nil
}

// ParseSigned parses a decimal string that may be negative. Only the gain
// argument of RegisterTransfer is permitted to carry a sign.
func ParseSigned(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, txerr.Invalid(InvalidNumberFormatErr)
	}
	return v, nil
}

func parseUnsigned(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, txerr.Invalid(InvalidNumberFormatErr)
	}
	if v.Sign() < 0 {
		return nil, txerr.Invalid(NegativeNumberErr)
	}
	return v, nil
}

// Int returns the underlying integer value. The caller must not mutate it.
func (c Credo) Int() *big.Int {
	if c.v == nil {
		return new(big.Int)
	}
	return c.v
}

func (c Credo) String() string { return c.Int().String() }

// Int returns the underlying integer value. The caller must not mutate it.
func (a CurrencyAmount) Int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

func (a CurrencyAmount) String() string { return a.Int().String() }

// CalcInterest computes the compounded interest accrued on principal over the
// given number of maturity ticks:
//
//	principal * (1 + rate/InterestScale)^ticks - principal
//
// Zero ticks accrue nothing. All arithmetic is exact integer arithmetic; the
// division by the scale is floored once per tick to stay deterministic across
// nodes.
func CalcInterest(principal, rate *big.Int, ticks uint64) *big.Int {
	if principal == nil || rate == nil || ticks == 0 {
		return new(big.Int)
	}
	amount := new(big.Int).Set(principal)
	factor := new(big.Int).Add(InterestScale, rate)
	for i := uint64(0); i < ticks; i++ {
		amount.Mul(amount, factor)
		amount.Quo(amount, InterestScale)
	}
	return amount.Sub(amount, principal)
}
