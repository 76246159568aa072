package types

type Verdict string

const (
	VerdictApprove Verdict = "APPROVE"
	VerdictReject  Verdict = "REJECT"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevelFromScore buckets a 0-100 risk score.
// 0-25 LOW, 26-50 MEDIUM, 51-75 HIGH, 76-100 CRITICAL.
func RiskLevelFromScore(score int) RiskLevel {
	switch {
	case score <= 25:
		return RiskLow
	case score <= 50:
		return RiskMedium
	case score <= 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// SafetyReport is produced exactly once per candidate and is immutable.
// Verdict gates whether the sniper may act on the pool.
type SafetyReport struct {
	PoolAddress              string
	HoneypotSuspected        bool
	EstimatedBuyTaxBps       uint64
	EstimatedSellTaxBps      uint64
	OwnershipRenounced       bool
	BlacklistFunctionPresent bool
	LiquidityUsd             float64
	RiskScore                int
	RiskLevel                RiskLevel
	Verdict                  Verdict
	Reasons                  []string
}
