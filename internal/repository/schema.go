package repository

// Schema definitions for the Harrier policy store.
// Compatible with both SQLite and PostgreSQL.

const schemaKeywordCategories = `
CREATE TABLE IF NOT EXISTS keyword_categories (
    name TEXT PRIMARY KEY,
    keywords TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_keyword_categories_position ON keyword_categories(position);
`

// schemaDensityRules holds CEL density checks over text features.
const schemaDensityRules = `
CREATE TABLE IF NOT EXISTS density_rules (
    id TEXT PRIMARY KEY,
    expression TEXT NOT NULL,
    description TEXT,
    confidence REAL NOT NULL,
    weight REAL NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaKeywordCategories,
		schemaDensityRules,
	}
}
