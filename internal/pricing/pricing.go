// Package pricing derives money amounts from cart state. Everything here is
// a pure function over decimals so repeated calls with the same cart always
// agree, no matter how many lines accumulate.
package pricing

import (
	"github.com/priyanshu-sharma/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// LineSubtotal is unit price times quantity for a single line.
func LineSubtotal(line models.CartLine) decimal.Decimal {
	return line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// Total sums the line subtotals of the whole cart.
func Total(cart *models.Cart) decimal.Decimal {
	total := decimal.Zero

	for _, line := range cart.Lines {
		total = total.Add(LineSubtotal(line))
	}

	return total
}

// Count is the number of units in the cart, not the number of lines.
func Count(cart *models.Cart) int {
	count := 0

	for _, line := range cart.Lines {
		count += line.Quantity
	}

	return count
}
