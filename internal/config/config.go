// Package config loads Harrier configuration from defaults, an optional
// YAML file, a .env file and HARRIER_* environment variables, in that
// order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/harrier/internal/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HARRIER_"

// Load builds the configuration. An empty path skips the YAML file; a
// missing .env file is not an error.
func Load(path string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at startup.
func Validate(cfg *domain.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	switch cfg.Repository.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported repository driver %q", cfg.Repository.Driver)
	}
	switch cfg.Cache.Type {
	case "", "none", "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache type %q", cfg.Cache.Type)
	}
	switch cfg.EventBus.Type {
	case "channel", "nats":
	default:
		return fmt.Errorf("unsupported event bus type %q", cfg.EventBus.Type)
	}
	for name, w := range cfg.Engine.Weights {
		if w < 0 {
			return fmt.Errorf("negative weight for detector %s", name)
		}
	}
	if cfg.Engine.IncludeQA && cfg.Engine.Weights[domain.DetectorDocumentQA] <= 0 {
		return fmt.Errorf("includeQa requires a positive %s weight", domain.DetectorDocumentQA)
	}
	return nil
}

func applyEnv(cfg *domain.Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("HOST", &cfg.Server.Host)
	num("PORT", &cfg.Server.Port)
	dur("ANALYSIS_TIMEOUT", &cfg.Server.AnalysisTimeout)

	dur("DETECTOR_TIMEOUT", &cfg.Engine.DetectorTimeout)
	flag("INCLUDE_QA", &cfg.Engine.IncludeQA)
	if v, ok := lookup("WEIGHTS"); ok {
		if cfg.Engine.Weights == nil {
			cfg.Engine.Weights = make(map[string]float64)
		}
		if err := parseWeights(v, cfg.Engine.Weights); err != nil {
			errs = append(errs, fmt.Errorf("%sWEIGHTS: %w", EnvPrefix, err))
		}
	}

	str("EMOTION_ENDPOINT", &cfg.Inference.EmotionEndpoint)
	str("QA_ENDPOINT", &cfg.Inference.QAEndpoint)
	str("EMOTION_MODEL", &cfg.Inference.EmotionModel)
	str("QA_MODEL", &cfg.Inference.QAModel)
	str("INFERENCE_TOKEN", &cfg.Inference.APIToken)
	dur("INFERENCE_TIMEOUT", &cfg.Inference.Timeout)

	str("DB_DRIVER", &cfg.Repository.Driver)
	str("SQLITE_PATH", &cfg.Repository.SQLitePath)
	str("POSTGRES_HOST", &cfg.Repository.PostgresHost)
	num("POSTGRES_PORT", &cfg.Repository.PostgresPort)
	str("POSTGRES_USER", &cfg.Repository.PostgresUser)
	str("POSTGRES_PASSWORD", &cfg.Repository.PostgresPassword)
	str("POSTGRES_DB", &cfg.Repository.PostgresDB)

	str("CACHE_TYPE", &cfg.Cache.Type)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	flag("CACHE_TWO_PHASE", &cfg.Cache.EnableTwoPhase)

	str("BUS_TYPE", &cfg.EventBus.Type)
	str("NATS_URL", &cfg.EventBus.NATSUrl)
	str("NATS_TOKEN", &cfg.EventBus.NATSToken)

	flag("WORKER_ENABLED", &cfg.Worker.Enabled)
	flag("TRACING_ENABLED", &cfg.Tracing.Enabled)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	if v, ok := lookup("DEBUG"); ok && v == "true" {
		cfg.Logging.Level = "debug"
	}

	return errors.Join(errs...)
}

// parseWeights merges "name=weight,name=weight" pairs into dst.
func parseWeights(v string, dst map[string]float64) error {
	for _, pair := range strings.Split(v, ",") {
		name, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("malformed pair %q", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("weight for %s: %w", name, err)
		}
		dst[strings.TrimSpace(name)] = w
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// NewLogger builds the process logger from the logging settings.
func NewLogger(cfg domain.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
