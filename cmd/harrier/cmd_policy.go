package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/harrier/internal/repository"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage the keyword lexicon and density rules store",
}

var policySeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the built-in lexicon and density rules to the store",
	Args:  cobra.NoArgs,
	RunE:  runPolicySeed,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the policy the engine would load",
	Args:  cobra.NoArgs,
	RunE:  runPolicyList,
}

func init() {
	policyCmd.AddCommand(policySeedCmd)
	policyCmd.AddCommand(policyListCmd)
}

// openPolicyStore opens the configured store, falling back to SQLite when
// no driver is set.
func openPolicyStore() (*repository.SQLRepository, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	if cfg.Repository.Driver == "" {
		cfg.Repository.Driver = "sqlite"
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy store: %w", err)
	}
	slog.Debug("policy store opened", "driver", cfg.Repository.Driver)
	return repo, nil
}

func runPolicySeed(cmd *cobra.Command, _ []string) error {
	repo, err := openPolicyStore()
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repository.Seed(cmd.Context(), repo); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "policy store seeded with built-in lexicon and density rules")
	return nil
}

func runPolicyList(cmd *cobra.Command, _ []string) error {
	repo, err := openPolicyStore()
	if err != nil {
		return err
	}
	defer repo.Close()

	policy, err := repository.LoadPolicy(cmd.Context(), repo)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "source: %s\n\n", policy.Source)
	fmt.Fprintln(w, "CATEGORY\tPOSITION\tENABLED\tKEYWORDS")
	for _, c := range policy.Categories {
		fmt.Fprintf(w, "%s\t%d\t%t\t%d\n", c.Name, c.Position, c.Enabled, len(c.Keywords))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "RULE\tWEIGHT\tCONFIDENCE\tENABLED\tEXPRESSION")
	for _, r := range policy.DensityRules {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%t\t%s\n", r.ID, r.Weight, r.Confidence, r.Enabled, r.Expression)
	}
	return w.Flush()
}
