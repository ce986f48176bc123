package prediction

import "cardiopredict/internal/models"

var (
	highRisk = []string{
		"Schedule immediate consultation with cardiologist",
		"Consider medication adjustment",
		"Implement strict dietary restrictions",
	}
	moderateRisk = []string{
		"Regular monitoring recommended",
		"Lifestyle modifications suggested",
		"Follow-up in 3-6 months",
	}
	lowRisk = []string{
		"Continue current health routine",
		"Annual check-ups recommended",
		"Maintain healthy lifestyle",
	}
)

const highRiskAlert = "High risk detected - seek immediate medical attention"

// Recommend returns the follow-up advice and alerts attached to a record of the
// given risk level. The returned slices are fresh copies.
func Recommend(level string) (recommendations, alerts []string) {
	alerts = []string{}
	switch level {
	case models.RiskHigh:
		return append([]string{}, highRisk...), append(alerts, highRiskAlert)
	case models.RiskModerate:
		return append([]string{}, moderateRisk...), alerts
	default:
		return append([]string{}, lowRisk...), alerts
	}
}
