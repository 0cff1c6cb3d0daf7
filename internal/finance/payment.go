// Package finance holds the loan and ratio arithmetic used by property
// analysis.
package finance

import "math"

// MonthlyPayment returns the level monthly payment for a fixed-rate loan.
// It returns 0 for a non-positive principal or term and pays the principal
// off in a straight line when the rate is 0. It never divides by zero.
func MonthlyPayment(principal, annualRatePercent float64, termYears int) float64 {
	if principal <= 0 || termYears <= 0 || !finite(principal) || !finite(annualRatePercent) {
		return 0
	}
	n := float64(termYears) * 12
	if n == 0 {
		return 0
	}
	if annualRatePercent == 0 {
		return principal / n
	}

	r := annualRatePercent / 100 / 12
	growth := math.Pow(1+r, n)
	den := growth - 1
	if den == 0 || !finite(den) || !finite(growth) {
		return 0
	}
	return principal * r * growth / den
}

// Loan splits a purchase price into down payment and financed principal.
func Loan(price, downPaymentPercent float64) (downPayment, principal float64) {
	downPayment = price * (downPaymentPercent / 100)
	return downPayment, price - downPayment
}

// Percent returns amount × pct/100.
func Percent(amount, pct float64) float64 {
	return amount * pct / 100
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
