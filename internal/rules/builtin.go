package rules

import "github.com/opensource-finance/harrier/internal/domain"

// DefaultDensityRules returns the two reference density checks. They apply
// whenever the policy store holds no density rules.
func DefaultDensityRules() []*domain.DensityRule {
	return []*domain.DensityRule{
		{
			ID:          domain.PatternExcessiveAmounts,
			Expression:  "amount_count > 5",
			Description: "Unusually many currency amounts ({amount_count})",
			Confidence:  0.6,
			Weight:      0.2,
			Enabled:     true,
		},
		{
			ID:          domain.PatternMultipleEmails,
			Expression:  "email_count > 3",
			Description: "Multiple email addresses ({email_count})",
			Confidence:  0.5,
			Weight:      0.1,
			Enabled:     true,
		},
	}
}
