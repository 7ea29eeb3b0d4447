package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the number of decimals of the chain's native coin
// (1 S = 10^18 wei).
const NativeDecimals = 18

// ToWei converts a user-facing decimal amount to wei. Digits beyond 18
// decimals are truncated.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(NativeDecimals).Truncate(0).BigInt()
}

// FromWei converts wei to the user-facing decimal amount.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -NativeDecimals)
}

// ParseAmount parses a decimal string such as "0.45" into wei.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return ToWei(d), nil
}

// FormatAmount renders wei as a trimmed decimal string.
func FormatAmount(wei *big.Int) string {
	return FromWei(wei).String()
}

// FloatToWei is used for heuristic prices that are already rounded to cents.
func FloatToWei(amount float64) *big.Int {
	return ToWei(decimal.NewFromFloat(amount))
}
