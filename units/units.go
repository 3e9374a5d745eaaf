// Package units converts between human decimal amount strings and
// exact integer base units. Every numeric conversion in the checkout
// goes through this package; nothing else parses amounts.
package units

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paylazor/paylazor-go/types"
)

var amountPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseFixedDecimal converts a user-entered decimal string into base
// units scaled by 10^decimals. Excess fractional precision is a hard
// error; no rounding ever occurs. A non-nil error always carries code
// AMOUNT_INVALID.
func ParseFixedDecimal(input string, decimals int) (*big.Int, *types.CheckoutError) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, types.NewError(types.ErrAmountInvalid, "Amount is required", nil)
	}
	if !amountPattern.MatchString(trimmed) {
		return nil, types.NewError(types.ErrAmountInvalid, "Amount must be a positive decimal string", nil)
	}

	_, frac, _ := strings.Cut(trimmed, ".")
	if len(frac) > decimals {
		return nil, types.NewError(types.ErrAmountInvalid,
			fmt.Sprintf("Amount has too many decimal places (max %d)", decimals), nil)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, types.NewError(types.ErrAmountInvalid, "Amount is invalid", err)
	}
	// frac length <= decimals, so the shift is exact.
	return d.Shift(int32(decimals)).BigInt(), nil
}

// FormatFixedDecimal is the inverse of ParseFixedDecimal: it renders
// base units as a decimal string with trailing fractional zeros
// stripped and no decimal point when the fraction is empty. For all
// non-negative x, ParseFixedDecimal(FormatFixedDecimal(x, d), d) == x.
func FormatFixedDecimal(baseUnits *big.Int, decimals int) string {
	return decimal.NewFromBigInt(baseUnits, -int32(decimals)).String()
}
