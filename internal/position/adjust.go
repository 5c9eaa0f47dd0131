// Package position sizes orders under exchange lot rules and tracks the
// single flat/long position of a trading session.
package position

import (
	"github.com/shopspring/decimal"
)

// Adjust maps a raw desired quantity onto an exchange-compliant one: the
// quantity is floored to the nearest multiple of stepSize and truncated to
// stepSize's own decimal precision (step 0.001 keeps 3 places). It never
// rounds up; an order rounded up could exceed the account balance or the
// exchange ceiling.
//
// A quantity smaller than stepSize adjusts to zero; callers must treat zero
// as "no valid position size", not as an order quantity. The result is
// always a non-negative multiple of stepSize not exceeding quantity, and
// Adjust is idempotent.
func Adjust(quantity, stepSize decimal.Decimal) decimal.Decimal {
	if !stepSize.IsPositive() || !quantity.IsPositive() {
		return decimal.Zero
	}

	floored := quantity.Sub(quantity.Mod(stepSize))

	places := -stepSize.Exponent()
	if places < 0 {
		places = 0
	}
	return floored.Truncate(places)
}
