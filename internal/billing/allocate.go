package billing

import "github.com/shopspring/decimal"

// Allocate spreads a payment across dues oldest-first: each due is filled
// completely before any money reaches the next one. The returned slice is
// positionally aligned with dues; entries the money never reached are zero.
func Allocate(dues []decimal.Decimal, amount decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(dues))
	remaining := amount
	for i, due := range dues {
		if remaining.Sign() <= 0 || due.Sign() <= 0 {
			out[i] = decimal.Zero
			continue
		}
		if remaining.GreaterThanOrEqual(due) {
			out[i] = due
			remaining = remaining.Sub(due)
		} else {
			out[i] = remaining
			remaining = decimal.Zero
		}
	}
	return out
}
