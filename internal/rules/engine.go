// Package rules provides the CEL-Go based density rule engine.
package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/harrier/internal/domain"
)

// Engine evaluates density rules over text features.
// Rules are compiled once at construction and never reloaded.
type Engine struct {
	env   *cel.Env
	rules []*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.DensityRule
	Program cel.Program
}

// Hit is a density rule that fired. Score is the rule's output clamped to
// (0, 1]; a bool rule that fires scores 1.
type Hit struct {
	RuleID      string
	Score       float64
	Weight      float64
	Confidence  float64
	Description string
}

// NewEngine compiles the enabled rules, in order. Any rule that fails to
// compile fails construction.
func NewEngine(configs []*domain.DensityRule) (*Engine, error) {
	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	e := &Engine{env: env}
	for _, cfg := range configs {
		if cfg == nil || !cfg.Enabled {
			continue
		}
		compiled, err := e.compileRule(cfg)
		if err != nil {
			return nil, err
		}
		e.rules = append(e.rules, compiled)
	}

	return e, nil
}

func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount_count", cel.IntType),
		cel.Variable("email_count", cel.IntType),
		cel.Variable("text_length", cel.IntType),
		cel.Variable("max_amount", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// ValidateRule compiles a rule without constructing an engine.
func ValidateRule(cfg *domain.DensityRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}
	if cfg.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if cfg.Weight < 0 || cfg.Weight > 1 {
		return fmt.Errorf("rule %s: weight must be within [0,1], got %v", cfg.ID, cfg.Weight)
	}
	if cfg.Confidence < 0 || cfg.Confidence > 1 {
		return fmt.Errorf("rule %s: confidence must be within [0,1], got %v", cfg.ID, cfg.Confidence)
	}

	env, err := newEnv()
	if err != nil {
		return err
	}
	_, err = (&Engine{env: env}).compileRule(cfg)
	return err
}

// Evaluate runs every rule against the features and returns the ones
// that fired, in rule order. A rule that errors at runtime is skipped.
func (e *Engine) Evaluate(ctx context.Context, f Features) []Hit {
	if len(e.rules) == 0 {
		return nil
	}

	activation := f.activation()
	replacer := f.replacer()

	var hits []Hit
	for _, rule := range e.rules {
		if ctx.Err() != nil {
			return hits
		}

		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			slog.Warn("density rule evaluation failed",
				"rule_id", rule.Config.ID,
				"error", err,
			)
			continue
		}

		score := toScore(out)
		if score <= 0 {
			continue
		}

		hits = append(hits, Hit{
			RuleID:      rule.Config.ID,
			Score:       domain.ClampScore(score),
			Weight:      rule.Config.Weight,
			Confidence:  rule.Config.Confidence,
			Description: replacer.Replace(rule.Config.Description),
		})
	}

	return hits
}

// Contribution is the rule weight scaled by the hit's score.
func (h Hit) Contribution() float64 {
	return h.Weight * h.Score
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	return len(e.rules)
}

// Rules returns the loaded rule configurations in evaluation order.
func (e *Engine) Rules() []*domain.DensityRule {
	rules := make([]*domain.DensityRule, 0, len(e.rules))
	for _, compiled := range e.rules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

func (e *Engine) compileRule(cfg *domain.DensityRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
