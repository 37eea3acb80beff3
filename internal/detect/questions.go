package detect

import "github.com/opensource-finance/harrier/internal/domain"

// DefaultQuestions returns the fraud question battery.
func DefaultQuestions() []domain.QAQuestionSpec {
	return []domain.QAQuestionSpec{
		{
			Question:   "What is the total amount mentioned in this document?",
			Category:   domain.CategoryAmountVerification,
			RiskWeight: 0.3,
		},
		{
			Question:   "Are there any urgent or immediate payment requests?",
			Category:   domain.CategoryUrgencyIndicators,
			RiskWeight: 0.4,
		},
		{
			Question:   "What contact information is provided in this document?",
			Category:   domain.CategoryContactVerification,
			RiskWeight: 0.2,
		},
		{
			Question:   "Are there any mentions of wire transfers or cryptocurrency?",
			Category:   domain.CategoryPaymentMethods,
			RiskWeight: 0.5,
		},
		{
			Question:   "What is the purpose or reason for this transaction?",
			Category:   domain.CategoryTransactionPurpose,
			RiskWeight: 0.3,
		},
		{
			Question:   "Are there any confidentiality or secrecy requirements mentioned?",
			Category:   domain.CategorySecrecyIndicators,
			RiskWeight: 0.6,
		},
	}
}

// Per-category answer scans. Each matched word adds its contribution
// to the question's local risk score.
type answerScan struct {
	label  string
	words  []string
	weight float64
}

var categoryScans = map[domain.Category]answerScan{
	domain.CategoryUrgencyIndicators: {
		label:  "Urgency indicator",
		words:  []string{"urgent", "immediate", "asap", "rush", "emergency", "critical", "now"},
		weight: 0.2,
	},
	domain.CategoryPaymentMethods: {
		label:  "Suspicious payment method",
		words:  []string{"wire transfer", "bitcoin", "cryptocurrency", "cash", "untraceable"},
		weight: 0.3,
	},
	domain.CategorySecrecyIndicators: {
		label:  "Secrecy indicator",
		words:  []string{"confidential", "secret", "private", "don't tell", "keep quiet", "discrete"},
		weight: 0.4,
	},
}

var generalFraudScan = answerScan{
	label:  "General fraud indicator",
	words:  []string{"fake", "forged", "duplicate", "altered", "tampered", "offshore", "shell company"},
	weight: 0.3,
}

var webmailDomains = []string{"gmail", "yahoo", "hotmail", "outlook", "protonmail", "aol"}

const (
	largeAmountThreshold = 10000.0
	largeAmountWeight    = 0.2
	webmailWeight        = 0.2
)
