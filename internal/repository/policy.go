package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/harrier/internal/detect"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/rules"
)

// Policy is the scoring policy loaded at startup.
type Policy struct {
	Categories   []*domain.KeywordCategory
	DensityRules []*domain.DensityRule

	// Source is "store" when loaded from the repository, else "builtin".
	Source string
}

// LoadPolicy reads the lexicon and density rules from repo. A nil repo
// or an empty table falls back to the built-in defaults, per table.
func LoadPolicy(ctx context.Context, repo domain.PolicyRepository) (*Policy, error) {
	policy := &Policy{
		Categories:   detect.DefaultKeywordCategories(),
		DensityRules: rules.DefaultDensityRules(),
		Source:       "builtin",
	}
	if repo == nil {
		return policy, nil
	}

	categories, err := repo.ListKeywordCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword categories: %w", err)
	}
	if len(categories) > 0 {
		policy.Categories = categories
		policy.Source = "store"
	}

	densityRules, err := repo.ListDensityRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load density rules: %w", err)
	}
	if len(densityRules) > 0 {
		policy.DensityRules = densityRules
		policy.Source = "store"
	}

	slog.Info("scoring policy loaded",
		"source", policy.Source,
		"keyword_categories", len(policy.Categories),
		"density_rules", len(policy.DensityRules),
	)

	return policy, nil
}

// Seed writes the built-in lexicon and density rules to repo,
// overwriting entries with the same name or id.
func Seed(ctx context.Context, repo domain.PolicyRepository) error {
	for _, c := range detect.DefaultKeywordCategories() {
		if err := repo.SaveKeywordCategory(ctx, c); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}
	for _, r := range rules.DefaultDensityRules() {
		if err := rules.ValidateRule(r); err != nil {
			return err
		}
		if err := repo.SaveDensityRule(ctx, r); err != nil {
			return fmt.Errorf("failed to seed rule %s: %w", r.ID, err)
		}
	}
	return nil
}
