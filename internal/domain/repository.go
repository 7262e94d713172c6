package domain

import (
	"context"
	"time"
)

// ResultFilter selects and orders stored analyses for the results viewer.
// Zero values mean "no constraint". Order is one of "new", "old", "hi", "lo"
// (newest first, oldest first, highest score first, lowest score first).
type ResultFilter struct {
	Feature string
	From    time.Time
	To      time.Time
	Order   string
	Page    int
	Limit   int
}

// Repository defines the interface for data persistence.
type Repository interface {
	// Bank transaction rows
	SaveTransaction(ctx context.Context, tx *Transaction) error
	ListTransactions(ctx context.Context, limit int) ([]*Transaction, error)

	// Non-bank analyzer results
	SaveAnalysis(ctx context.Context, a *Analysis) error
	ListAnalyses(ctx context.Context, filter ResultFilter) ([]*Analysis, error)

	// Custom risk rules
	SaveRiskRule(ctx context.Context, rule *RiskRule) error
	ListRiskRules(ctx context.Context) ([]*RiskRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
