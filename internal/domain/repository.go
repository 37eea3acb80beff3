// Package domain defines the core interfaces and types for Harrier.
package domain

import (
	"context"
	"time"
)

// PolicyRepository persists the scoring policy: keyword lexicon and
// density rules. Policy is read once at startup, never mid-request.
type PolicyRepository interface {
	SaveKeywordCategory(ctx context.Context, category *KeywordCategory) error
	ListKeywordCategories(ctx context.Context) ([]*KeywordCategory, error)
	DeleteKeywordCategory(ctx context.Context, name Category) error

	SaveDensityRule(ctx context.Context, rule *DensityRule) error
	GetDensityRule(ctx context.Context, id string) (*DensityRule, error)
	ListDensityRules(ctx context.Context) ([]*DensityRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite", "postgres" or "" (no store)
	Driver string `yaml:"driver"`

	// SQLite specific
	SQLitePath string `yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     int    `yaml:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresDB       string `yaml:"postgresDb"`
	PostgresSSLMode  string `yaml:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}
