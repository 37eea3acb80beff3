package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/extraction"
	"github.com/opensource-finance/harrier/internal/risk"
)

type analyzeFlags struct {
	withQA    bool
	mediaType string
}

var analyzeF analyzeFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Score a document and print the analysis as JSON",
	Long: `Score a document read from a file or stdin. Files that are not plain
text are run through the extractor registry first and carry an
extraction quality grade.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var qaCmd = &cobra.Command{
	Use:   "qa [file|-]",
	Short: "Run the QA battery over a document",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runQA,
}

type gradeFlags struct {
	failed bool
}

var gradeF gradeFlags

var gradeCmd = &cobra.Command{
	Use:   "grade <confidence>",
	Short: "Grade an extraction confidence (0-100)",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrade,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeF.withQA, "qa", false, "Also run the QA battery")
	analyzeCmd.Flags().StringVar(&analyzeF.mediaType, "type", "", "Media type of the input (detected when empty)")
	gradeCmd.Flags().BoolVar(&gradeF.failed, "failed", false, "Mark the extraction as failed")
}

type analyzeOutput struct {
	*domain.FraudAnalysisResult
	Reasons []string           `json:"reasons"`
	QA      *domain.QAAnalysis `json:"qa,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	name, data, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	mediaType := extraction.DetectMediaType(analyzeF.mediaType, name, data)

	var text string
	var result *domain.FraudAnalysisResult
	if mediaType == extraction.MediaTypeText {
		text = string(data)
		result, err = a.engine.AnalyzeDocument(ctx, text)
	} else {
		var ext domain.Extraction
		var quality domain.ExtractionQuality
		ext, quality, err = a.engine.Extract(ctx, data, mediaType)
		if err != nil {
			return err
		}
		text = ext.Text
		result, err = a.engine.AnalyzeDocument(ctx, text)
		if result != nil {
			result.Extraction = &quality
		}
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out := analyzeOutput{FraudAnalysisResult: result, Reasons: risk.Reasons(result)}
	if analyzeF.withQA {
		qa, err := a.engine.AnalyzeWithQA(ctx, text)
		if err != nil {
			return fmt.Errorf("qa analysis failed: %w", err)
		}
		out.QA = &qa
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runQA(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	_, data, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	qa, err := a.engine.AnalyzeWithQA(ctx, string(data))
	if err != nil {
		return fmt.Errorf("qa analysis failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), qa)
}

func runGrade(cmd *cobra.Command, args []string) error {
	confidence, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid confidence %q: %w", args[0], err)
	}
	if confidence < 0 || confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100, got %v", confidence)
	}
	return printJSON(cmd.OutOrStdout(), extraction.Grade(confidence, gradeF.failed))
}

// readInput reads the named file, or stdin when the argument is absent
// or "-".
func readInput(cmd *cobra.Command, args []string) (string, []byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return "", data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", nil, fmt.Errorf("failed to read document: %w", err)
	}
	return args[0], data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
