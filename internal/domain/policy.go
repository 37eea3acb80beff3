package domain

// KeywordCategory is one lexicon entry of the keyword pattern detector.
type KeywordCategory struct {
	Name     Category `json:"name"`
	Keywords []string `json:"keywords"`

	// Position orders categories; signals are emitted in this order.
	Position int  `json:"position"`
	Enabled  bool `json:"enabled"`
}

// DensityRule is a numeric text check expressed in CEL.
//
// The expression sees amount_count, email_count, text_length and
// max_amount. A rule fires when it evaluates to true or a positive
// number. Description may reference {amount_count}, {email_count},
// {text_length} and {max_amount}.
type DensityRule struct {
	ID          string  `json:"id"`
	Expression  string  `json:"expression"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`

	// Weight is added to the keyword detector's sub-score when the rule fires.
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`
}

// Density rule pattern ids for the built-in checks.
const (
	PatternExcessiveAmounts = "excessive_amounts"
	PatternMultipleEmails   = "multiple_emails"
)
