package detect

import "github.com/opensource-finance/harrier/internal/domain"

// CategoryWeight is the sub-score contribution of a fully matched category.
const CategoryWeight = 0.3

// DefaultKeywordCategories returns the reference lexicon, in evaluation order.
func DefaultKeywordCategories() []*domain.KeywordCategory {
	return []*domain.KeywordCategory{
		{
			Name:     domain.CategoryUrgency,
			Keywords: []string{"urgent", "immediate", "asap", "emergency"},
			Position: 0,
			Enabled:  true,
		},
		{
			Name:     domain.CategoryConfidentiality,
			Keywords: []string{"confidential", "secret", "do not share", "private"},
			Position: 1,
			Enabled:  true,
		},
		{
			Name:     domain.CategoryPaymentMethod,
			Keywords: []string{"wire transfer", "bitcoin", "gift card", "western union"},
			Position: 2,
			Enabled:  true,
		},
		{
			Name:     domain.CategoryAmount,
			Keywords: []string{"$", "amount due", "total"},
			Position: 3,
			Enabled:  true,
		},
		{
			Name: domain.CategoryGeneralFraud,
			Keywords: []string{
				"forged", "fake", "duplicate", "altered",
				"tampered", "shell company", "tax haven", "offshore",
			},
			Position: 4,
			Enabled:  true,
		},
	}
}
