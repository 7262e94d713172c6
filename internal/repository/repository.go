// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// defaultListLimit bounds unpaginated listing queries.
const defaultListLimit = 50

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
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

	// Run migrations
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

// SaveTransaction stores an analyzed bank transaction row.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.ID == "" {
		return fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	reasons, _ := json.Marshal(tx.Reasons)

	query := `
		INSERT INTO transactions (
			id, account, payee, amount, ts, score, verdict, reasons, action, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tx.Account, tx.Payee, tx.Amount, tx.TS,
		tx.Score, string(tx.Verdict), string(reasons), tx.Action, tx.CreatedAt,
	)
	return err
}

// ListTransactions retrieves the most recent transactions, newest first.
func (r *SQLRepository) ListTransactions(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, account, payee, amount, ts, score, verdict, reasons, action, created_at
		FROM transactions
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var verdict, reasons string
		var action sql.NullString

		if err := rows.Scan(
			&tx.ID, &tx.Account, &tx.Payee, &tx.Amount, &tx.TS,
			&tx.Score, &verdict, &reasons, &action, &tx.CreatedAt,
		); err != nil {
			return nil, err
		}

		tx.Verdict = domain.Verdict(verdict)
		tx.Action = action.String
		tx.Reasons = []string{}
		json.Unmarshal([]byte(reasons), &tx.Reasons)
		out = append(out, &tx)
	}

	return out, rows.Err()
}

// SaveAnalysis stores a non-bank analyzer result.
func (r *SQLRepository) SaveAnalysis(ctx context.Context, a *domain.Analysis) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("%w: analysis id is required", ErrInvalidInput)
	}

	reasons, _ := json.Marshal(a.Reasons)

	query := `
		INSERT INTO analyses (
			id, feature, input_value, score, verdict, reasons, action, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, a.Feature, a.InputValue, a.Score,
		string(a.Verdict), string(reasons), a.Action, a.CreatedAt,
	)
	return err
}

// ListAnalyses retrieves stored analyses matching the filter, implementing
// the results viewer contract: feature and date-range filtering, one of
// four sort orders, and page/limit pagination.
func (r *SQLRepository) ListAnalyses(ctx context.Context, f domain.ResultFilter) ([]*domain.Analysis, error) {
	query := `
		SELECT id, feature, input_value, score, verdict, reasons, action, created_at
		FROM analyses
	`

	var conds []string
	var args []any

	if f.Feature != "" && f.Feature != "all" {
		conds = append(conds, "feature = ?")
		args = append(args, f.Feature)
	}
	if !f.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.To)
	}

	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	switch f.Order {
	case "old":
		query += " ORDER BY created_at ASC"
	case "hi":
		query += " ORDER BY score DESC, created_at DESC"
	case "lo":
		query += " ORDER BY score ASC, created_at DESC"
	default:
		query += " ORDER BY created_at DESC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		var a domain.Analysis
		var verdict, reasons string
		var inputValue, action sql.NullString

		if err := rows.Scan(
			&a.ID, &a.Feature, &inputValue, &a.Score,
			&verdict, &reasons, &action, &a.CreatedAt,
		); err != nil {
			return nil, err
		}

		a.Verdict = domain.Verdict(verdict)
		a.InputValue = inputValue.String
		a.Action = action.String
		a.Reasons = []string{}
		json.Unmarshal([]byte(reasons), &a.Reasons)
		out = append(out, &a)
	}

	return out, rows.Err()
}

// SaveRiskRule stores or updates a custom risk rule.
func (r *SQLRepository) SaveRiskRule(ctx context.Context, rule *domain.RiskRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO risk_rules (
			id, name, description, expression, points, reason, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			points = excluded.points,
			reason = excluded.reason,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression,
		rule.Points, rule.Reason, enabled, now, now,
	)
	return err
}

// ListRiskRules retrieves all enabled custom risk rules.
func (r *SQLRepository) ListRiskRules(ctx context.Context) ([]*domain.RiskRule, error) {
	query := `
		SELECT id, name, description, expression, points, reason, enabled, created_at, updated_at
		FROM risk_rules
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RiskRule
	for rows.Next() {
		var rule domain.RiskRule
		var description sql.NullString
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &description, &rule.Expression,
			&rule.Points, &rule.Reason, &enabled, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rule.Description = description.String
		rule.Enabled = enabled == 1
		out = append(out, &rule)
	}

	return out, rows.Err()
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

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
