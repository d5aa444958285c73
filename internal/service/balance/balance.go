// Package balance computes the displayed account balance from ledger aggregates.
package balance

const (
	PolicyStandard       = "standard"
	PolicyLegacyInvestor = "legacy-investor"
)

// LegacyInvestorUID is the one historical account whose balance excludes
// invested principal and adds back investment returns. Accounts written before
// the balancePolicy field existed are resolved against it; new accounts carry
// an explicit policy.
const LegacyInvestorUID = "qZxT3eP9hVWuYcN8kD4mRsAl1J72"

// Aggregates holds the per-user ledger sums the formula operates on.
type Aggregates struct {
	TotalDeposits          float64
	TotalWithdrawals       float64
	TotalInvested          float64
	TotalProfits           float64
	Adjustment             float64
	TotalInvestmentReturns float64
}

// PolicyFor resolves the effective balance policy for an account. The stored
// policy wins; absent one, the legacy uid maps to the legacy policy.
func PolicyFor(uid, stored string) string {
	if stored != "" {
		return stored
	}
	if uid == LegacyInvestorUID {
		return PolicyLegacyInvestor
	}
	return PolicyStandard
}

// Compute returns the displayed balance for the given policy.
//
// Standard: deposits - withdrawals - invested + profits + adjustment.
// Legacy investor: deposits - withdrawals + profits + adjustment, with
// investment returns added only when positive and invested principal excluded.
func Compute(policy string, a Aggregates) float64 {
	switch policy {
	case PolicyLegacyInvestor:
		b := a.TotalDeposits - a.TotalWithdrawals + a.TotalProfits + a.Adjustment
		if a.TotalInvestmentReturns > 0 {
			b += a.TotalInvestmentReturns
		}
		return b
	default:
		return a.TotalDeposits - a.TotalWithdrawals - a.TotalInvested + a.TotalProfits + a.Adjustment
	}
}
