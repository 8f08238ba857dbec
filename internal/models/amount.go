package models

import (
	"fmt"
	"math/big"
)

// Token amounts travel as decimal strings with 18 fractional decimals,
// exactly as the ledger reports them. They are never parsed into floats
// for arithmetic, only for the bounded rating weight.

var tokenUnit = new(big.Float).SetFloat64(1e18)

// ParseAmount parses a non-negative decimal-string amount.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid token amount %q", s)
	}
	return n, nil
}

// AddAmounts returns a+b as a decimal string. Malformed inputs are treated
// as zero so that one corrupt ledger value cannot wedge accumulation.
func AddAmounts(a, b string) string {
	x, err := ParseAmount(a)
	if err != nil {
		x = big.NewInt(0)
	}
	y, err := ParseAmount(b)
	if err != nil {
		y = big.NewInt(0)
	}
	return new(big.Int).Add(x, y).String()
}

// AmountToFloat converts an amount to whole tokens for weighting only.
func AmountToFloat(s string) float64 {
	n, err := ParseAmount(s)
	if err != nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(n), tokenUnit).Float64()
	return f
}

// AmountAtLeastTokens reports whether an amount covers n whole tokens,
// compared exactly in integer space.
func AmountAtLeastTokens(s string, tokens int64) bool {
	n, err := ParseAmount(s)
	if err != nil {
		return false
	}
	threshold := new(big.Int).Mul(big.NewInt(tokens), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	return n.Cmp(threshold) >= 0
}
