package solana

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// lamportsExp is the number of decimal places between SOL and lamports.
const lamportsExp = 9

// ErrInvalidAmount is returned for negative, malformed or unrepresentable amounts, and for zero
// where a positive amount is required.
var ErrInvalidAmount = errors.New("invalid amount")

var maxLamports = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ParseSOL converts a decimal SOL amount such as "0.1" into lamports without floating point
// rounding. Zero is accepted; negative values, more than 9 decimal places and values above
// math.MaxUint64 lamports are rejected with ErrInvalidAmount.
func ParseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, s)
	}

	lamports := d.Shift(lamportsExp)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, s, lamportsExp)
	}
	if lamports.GreaterThan(maxLamports) {
		return 0, fmt.Errorf("%w: %s overflows lamports", ErrInvalidAmount, s)
	}

	return lamports.BigInt().Uint64(), nil
}

// FormatSOL renders lamports as a decimal SOL string, e.g. 100000000 -> "0.1".
func FormatSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -lamportsExp).String()
}
