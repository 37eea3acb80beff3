// Package repository provides persistence for the scoring policy.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.PolicyRepository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveKeywordCategory inserts or replaces a lexicon category.
func (r *SQLRepository) SaveKeywordCategory(ctx context.Context, category *domain.KeywordCategory) error {
	if category == nil || category.Name == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if len(category.Keywords) == 0 {
		return fmt.Errorf("%w: category %s has no keywords", ErrInvalidInput, category.Name)
	}

	keywords, err := json.Marshal(category.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO keyword_categories (name, keywords, position, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			keywords = excluded.keywords,
			position = excluded.position,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		string(category.Name), string(keywords), category.Position, boolToInt(category.Enabled), now, now,
	)
	return err
}

// ListKeywordCategories returns every category ordered by position.
func (r *SQLRepository) ListKeywordCategories(ctx context.Context) ([]*domain.KeywordCategory, error) {
	query := `
		SELECT name, keywords, position, enabled
		FROM keyword_categories
		ORDER BY position, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.KeywordCategory
	for rows.Next() {
		var c domain.KeywordCategory
		var name, keywords string
		var enabled int

		if err := rows.Scan(&name, &keywords, &c.Position, &enabled); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
			return nil, fmt.Errorf("category %s: invalid keywords: %w", name, err)
		}
		c.Name = domain.Category(name)
		c.Enabled = enabled == 1
		categories = append(categories, &c)
	}

	return categories, rows.Err()
}

// DeleteKeywordCategory removes a category.
func (r *SQLRepository) DeleteKeywordCategory(ctx context.Context, name domain.Category) error {
	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM keyword_categories WHERE name = ?`), string(name))
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveDensityRule inserts or replaces a density rule.
func (r *SQLRepository) SaveDensityRule(ctx context.Context, rule *domain.DensityRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if rule.Expression == "" {
		return fmt.Errorf("%w: rule %s has no expression", ErrInvalidInput, rule.ID)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO density_rules (id, expression, description, confidence, weight, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			expression = excluded.expression,
			description = excluded.description,
			confidence = excluded.confidence,
			weight = excluded.weight,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Expression, rule.Description,
		rule.Confidence, rule.Weight, boolToInt(rule.Enabled),
		now, now,
	)
	return err
}

// GetDensityRule retrieves a density rule by id.
func (r *SQLRepository) GetDensityRule(ctx context.Context, id string) (*domain.DensityRule, error) {
	query := `
		SELECT id, expression, description, confidence, weight, enabled
		FROM density_rules
		WHERE id = ?
	`

	rule, err := scanDensityRule(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

// ListDensityRules returns every density rule ordered by id.
func (r *SQLRepository) ListDensityRules(ctx context.Context) ([]*domain.DensityRule, error) {
	query := `
		SELECT id, expression, description, confidence, weight, enabled
		FROM density_rules
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.DensityRule
	for rows.Next() {
		rule, err := scanDensityRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDensityRule(s scanner) (*domain.DensityRule, error) {
	var rule domain.DensityRule
	var description sql.NullString
	var enabled int

	if err := s.Scan(&rule.ID, &rule.Expression, &description, &rule.Confidence, &rule.Weight, &enabled); err != nil {
		return nil, err
	}
	rule.Description = description.String
	rule.Enabled = enabled == 1
	return &rule, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
