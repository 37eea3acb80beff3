package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/detect"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/extraction"
	"github.com/opensource-finance/harrier/internal/inference"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/rules"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *domain.Config
	repo     *repository.SQLRepository
	cache    domain.Cache
	bus      domain.EventBus
	policy   *repository.Policy
	keyword  *detect.KeywordPatternDetector
	qa       *detect.DocumentQADetector
	registry *extraction.Registry
	engine   *engine.Engine
	caps     api.Capabilities
}

// newApp wires the engine and its collaborators. The event bus is only
// connected when withBus is set.
func newApp(ctx context.Context, cfg *domain.Config, withBus bool) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	var policyRepo domain.PolicyRepository
	if cfg.Repository.Driver != "" {
		repo, err := repository.New(cfg.Repository)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize repository: %w", err)
		}
		a.repo = repo
		policyRepo = repo
		slog.Info("repository initialized", "driver", cfg.Repository.Driver)
	}

	policy, err := repository.LoadPolicy(ctx, policyRepo)
	if err != nil {
		return nil, err
	}
	a.policy = policy

	density, err := rules.NewEngine(policy.DensityRules)
	if err != nil {
		return nil, fmt.Errorf("failed to compile density rules: %w", err)
	}
	a.keyword, err = detect.NewKeywordPatternDetector(policy.Categories, density)
	if err != nil {
		return nil, err
	}

	a.cache, err = cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	classifier := inference.NewEmotionClassifier(cfg.Inference)
	answerer := inference.NewQuestionAnswerer(cfg.Inference)
	a.caps = api.Capabilities{
		EmotionClassifier: inference.IsAvailable(classifier),
		QuestionAnswerer:  inference.IsAvailable(answerer),
	}
	if a.cache != nil {
		if a.caps.EmotionClassifier {
			classifier = inference.NewCachedClassifier(classifier, a.cache, cfg.Inference.EmotionModel, cfg.Cache.EntryTTL)
		}
		if a.caps.QuestionAnswerer {
			answerer = inference.NewCachedAnswerer(answerer, a.cache, cfg.Inference.QAModel, cfg.Cache.EntryTTL)
		}
	}

	emotion, err := detect.NewEmotionSignalDetector(classifier, cfg.Engine.EmotionMaxChars)
	if err != nil {
		return nil, err
	}
	a.qa, err = detect.NewDocumentQADetector(answerer, cfg.Engine.QAContextLimit)
	if err != nil {
		return nil, err
	}

	// No OCR capability is bundled; image types stay unsupported.
	a.registry = extraction.NewRegistry(nil)
	a.caps.MediaTypes = a.registry.MediaTypes()

	a.engine, err = engine.New(cfg.Engine, []detect.SignalDetector{a.keyword, emotion}, a.qa, a.registry)
	if err != nil {
		return nil, err
	}

	if withBus {
		a.bus, err = bus.New(cfg.EventBus)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event bus: %w", err)
		}
		slog.Info("event bus initialized", "type", cfg.EventBus.Type)
	}

	slog.Info("engine initialized",
		"detectors", a.engine.Detectors(),
		"policy_source", policy.Source,
		"emotion_available", a.caps.EmotionClassifier,
		"qa_available", a.caps.QuestionAnswerer,
		"cache", cfg.Cache.Type,
	)

	ok = true
	return a, nil
}

func (a *app) deps(version string) api.Deps {
	deps := api.Deps{
		Engine:       a.engine,
		Keyword:      a.keyword,
		Questions:    a.qa.Questions(),
		Capabilities: a.caps,
		PolicySource: a.policy.Source,
		Cache:        a.cache,
		Bus:          a.bus,
		Version:      version,
	}
	if a.repo != nil {
		deps.Repo = a.repo
	}
	return deps
}

func (a *app) close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.repo != nil {
		a.repo.Close()
	}
}
