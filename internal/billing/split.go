package billing

import "github.com/shopspring/decimal"

// Split clamps the requested down payment to [0, total] and derives the
// outstanding remainder. Used on sale creation and whenever a caller
// restates a line's payment.
func Split(total, requestedPaid decimal.Decimal) (paid, owing decimal.Decimal) {
	if total.IsNegative() {
		total = decimal.Zero
	}
	paid = requestedPaid
	if paid.IsNegative() {
		paid = decimal.Zero
	}
	if paid.GreaterThan(total) {
		paid = total
	}
	return paid, total.Sub(paid)
}

// Resplit re-clamps an existing paid amount against a new line total, so a
// quantity or price change can never leave paid > total. The paid amount is
// re-derived, never incremented.
func Resplit(oldPaid, newTotal decimal.Decimal) (paid, owing decimal.Decimal) {
	return Split(newTotal, oldPaid)
}
