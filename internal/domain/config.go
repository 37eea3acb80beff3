package domain

import "time"

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `yaml:"server"`

	// Scoring engine and its model capabilities
	Engine    EngineConfig    `yaml:"engine"`
	Inference InferenceConfig `yaml:"inference"`

	// Component configurations
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	EventBus   EventBusConfig   `yaml:"eventBus"`
	Worker     WorkerConfig     `yaml:"worker"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds

	// MaxUploadBytes bounds multipart document uploads.
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`

	// AnalysisTimeout bounds a single scoring request end to end.
	AnalysisTimeout time.Duration `yaml:"analysisTimeout"`
}

// EngineConfig holds scoring engine settings.
type EngineConfig struct {
	// DetectorTimeout bounds each detector call; an expired detector is
	// reported as degraded.
	DetectorTimeout time.Duration `yaml:"detectorTimeout"`

	// Weights is the aggregation weight per detector name.
	Weights map[string]float64 `yaml:"weights"`

	// QAContextLimit is the QA model's context limit in characters.
	QAContextLimit int `yaml:"qaContextLimit"`

	// EmotionMaxChars truncates text before emotion classification.
	EmotionMaxChars int `yaml:"emotionMaxChars"`

	// IncludeQA adds the QA detector to AnalyzeDocument's detector set.
	IncludeQA bool `yaml:"includeQa"`
}

// InferenceConfig holds settings for the remote model capabilities.
type InferenceConfig struct {
	// Endpoints speaking the Hugging Face inference JSON protocol.
	// An empty endpoint leaves the capability unavailable.
	EmotionEndpoint string `yaml:"emotionEndpoint"`
	QAEndpoint      string `yaml:"qaEndpoint"`

	EmotionModel string `yaml:"emotionModel"`
	QAModel      string `yaml:"qaModel"`
	APIToken     string `yaml:"apiToken"`

	Timeout time.Duration `yaml:"timeout"`

	// Circuit breaker
	BreakerMaxFailures uint32        `yaml:"breakerMaxFailures"`
	BreakerOpenTimeout time.Duration `yaml:"breakerOpenTimeout"`
}

// WorkerConfig holds async pipeline settings.
type WorkerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// Detector names. The aggregation weight vector is keyed by these.
const (
	DetectorKeywordPattern = "keyword_pattern"
	DetectorEmotion        = "emotion"
	DetectorDocumentQA     = "document_qa"
)

// DefaultWeights returns the reference weight vector: emotion 0.4,
// keyword pattern 0.6. The QA detector is weighted only when configured.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		DetectorKeywordPattern: 0.6,
		DetectorEmotion:        0.4,
	}
}

// DefaultConfig returns a single-process configuration: channel bus,
// in-memory cache and no policy store.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30,
			WriteTimeout:    60,
			MaxUploadBytes:  10 << 20,
			AnalysisTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			DetectorTimeout: 10 * time.Second,
			Weights:         DefaultWeights(),
			QAContextLimit:  512,
			EmotionMaxChars: 512,
		},
		Inference: InferenceConfig{
			EmotionModel:       "j-hartmann/emotion-english-distilroberta-base",
			QAModel:            "deepset/roberta-base-squad2",
			Timeout:            5 * time.Second,
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: 30 * time.Second,
		},
		Repository: RepositoryConfig{
			Driver:     "",
			SQLitePath: "./harrier.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			EntryTTL:     time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Worker: WorkerConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}
