package domain

// QAQuestionSpec is one entry of the fixed question battery.
type QAQuestionSpec struct {
	Question   string   `json:"question"`
	Category   Category `json:"category"`
	RiskWeight float64  `json:"riskWeight"`
}

// QAFinding is the outcome of asking one question against a document.
type QAFinding struct {
	Question   string   `json:"question"`
	Category   Category `json:"category"`
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Indicators []string `json:"indicators"`

	// LocalRiskScore is the clamped indicator sum for this answer;
	// RiskScore is LocalRiskScore scaled by the question's risk weight.
	LocalRiskScore float64 `json:"localRiskScore"`
	RiskScore      float64 `json:"riskScore"`

	Error string `json:"error,omitempty"`
}

// QAAnalysis is the result of running the full question battery.
type QAAnalysis struct {
	Findings           []QAFinding `json:"findings"`
	OverallRisk        RiskLevel   `json:"overallRisk"`
	TotalRiskScore     float64     `json:"totalRiskScore"`
	ProcessedQuestions int         `json:"processedQuestions"`
	Degraded           bool        `json:"degraded,omitempty"`
	ProcessingTimeMs   float64     `json:"processingTimeMs"`
}

// QA battery tiers. The battery reports on its own scale, separate
// from the aggregated fraud score tiers.
const (
	QAHighThreshold   = 0.7
	QAMediumThreshold = 0.4
)

// QARiskLevelFor maps a QA total risk score to LOW, MEDIUM or HIGH.
func QARiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= QAHighThreshold:
		return RiskHigh
	case score >= QAMediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
