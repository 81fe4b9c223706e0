package utils

// SubscriptionPrice is the monthly fee the refund percent applies to.
const SubscriptionPrice = 9900

// CalculateRefundPercent computes the monthly refund from recorded days and
// average score. Runs server-side only so clients cannot influence it.
// Tiers: 15 days → 10%, 20 → 30%, 25 → 50%; +10 bonus when the average
// score is 70 or above and a tier was reached at all. Capped at 60.
func CalculateRefundPercent(recordedDays, avgScore int) int {
	percent := 0
	switch {
	case recordedDays >= 25:
		percent = 50
	case recordedDays >= 20:
		percent = 30
	case recordedDays >= 15:
		percent = 10
	}

	if percent > 0 && avgScore >= 70 {
		percent += 10
	}
	if percent > 60 {
		percent = 60
	}
	return percent
}

// RefundAmount converts a percent into currency units, rounded down to the
// nearest whole unit the way billing expects.
func RefundAmount(percent int) int {
	return SubscriptionPrice * percent / 100
}
