package domain

// RiskLevel is the discrete risk tier derived from a fraud score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Risk tier thresholds, evaluated high to low.
const (
	CriticalThreshold = 0.8
	HighThreshold     = 0.6
	MediumThreshold   = 0.3
)

// RiskLevelFor maps a normalized fraud score to its risk tier.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return RiskCritical
	case score >= HighThreshold:
		return RiskHigh
	case score >= MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// IsAlert reports whether the tier warrants an alert.
func (l RiskLevel) IsAlert() bool {
	return l == RiskHigh || l == RiskCritical
}

// ClampScore bounds a score to [0, 1]. NaN collapses to 0.
func ClampScore(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Category classifies a fraud signal or a QA question.
type Category string

// Keyword lexicon categories.
const (
	CategoryUrgency         Category = "urgency"
	CategoryConfidentiality Category = "confidentiality"
	CategoryPaymentMethod   Category = "payment_method"
	CategoryAmount          Category = "amount"
	CategoryGeneralFraud    Category = "general_fraud"
)

// Density and emotion signals.
const (
	CategoryDensity Category = "density"
	CategoryEmotion Category = "emotion"
)

// QA battery categories.
const (
	CategoryAmountVerification  Category = "amount_verification"
	CategoryUrgencyIndicators   Category = "urgency_indicators"
	CategoryContactVerification Category = "contact_verification"
	CategoryPaymentMethods      Category = "payment_methods"
	CategoryTransactionPurpose  Category = "transaction_purpose"
	CategorySecrecyIndicators   Category = "secrecy_indicators"
)

// FraudSignal is one discrete, explainable piece of evidence.
// Signals are created by detectors and never mutated afterwards.
type FraudSignal struct {
	PatternID   string   `json:"patternId"`
	Confidence  float64  `json:"confidence"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

// DetectorResult is the output of a single detector invocation.
type DetectorResult struct {
	DetectorName string        `json:"detectorName"`
	SubScore     float64       `json:"subScore"`
	Signals      []FraudSignal `json:"signals"`

	// Degraded marks a detector whose capability was unavailable or
	// timed out. A degraded result carries no weight in aggregation.
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`

	// ProcessedQuestions is the number of QA questions attempted.
	ProcessedQuestions int `json:"processedQuestions,omitempty"`
}

// FraudAnalysisResult is the combined verdict for one document.
type FraudAnalysisResult struct {
	FraudScore        float64                   `json:"fraudScore"`
	RiskLevel         RiskLevel                 `json:"riskLevel"`
	Signals           []FraudSignal             `json:"signals"`
	PerDetector       map[string]DetectorResult `json:"perDetector"`
	DegradedDetectors []string                  `json:"degradedDetectors,omitempty"`
	ProcessingTimeMs  float64                   `json:"processingTimeMs"`

	// Extraction is descriptive metadata only; it never feeds the score.
	Extraction *ExtractionQuality `json:"extraction,omitempty"`
}

// ExtractionQualityLevel grades how reliable extracted text is.
type ExtractionQualityLevel string

const (
	QualityExcellent ExtractionQualityLevel = "excellent"
	QualityGood      ExtractionQualityLevel = "good"
	QualityFair      ExtractionQualityLevel = "fair"
	QualityPoor      ExtractionQualityLevel = "poor"
	QualityFailed    ExtractionQualityLevel = "failed"
)

// ExtractionQuality describes the outcome of text extraction.
type ExtractionQuality struct {
	ConfidenceScore float64                `json:"confidenceScore"`
	QualityLevel    ExtractionQualityLevel `json:"qualityLevel"`
	Notes           string                 `json:"notes"`
	TextBlocks      int                    `json:"textBlocks,omitempty"`
	MediaType       string                 `json:"mediaType,omitempty"`
}
