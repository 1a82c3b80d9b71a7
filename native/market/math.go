package market

import "math/big"

func mul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(a, b)
}

func add(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return new(big.Int)
	}
	return new(big.Int).Add(a, b)
}

// repaymentTicks computes the number of elapsed maturity periods for a deal:
// floor(((tip-1) - block + maturity) / maturity). A deal closed within its
// first period accrues exactly one tick.
func repaymentTicks(tip, block uint64, maturity *big.Int) uint64 {
	if maturity == nil || maturity.Sign() == 0 {
		return 0
	}
	elapsed := new(big.Int).SetUint64(tip - 1)
	elapsed.Sub(elapsed, new(big.Int).SetUint64(block))
	elapsed.Add(elapsed, maturity)
	elapsed.Quo(elapsed, maturity)
	if elapsed.Sign() < 0 || !elapsed.IsUint64() {
		return 0
	}
	return elapsed.Uint64()
}
