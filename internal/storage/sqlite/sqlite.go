// Package sqlite implements the storage gateway on a per-record SQLite
// database, for deployments that outgrow the single JSON document.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"dues/internal/core"
	"dues/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open creates the parent directory, opens the database and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Settings(ctx context.Context) (core.Settings, error) {
	var out core.Settings
	row := s.db.QueryRowContext(ctx,
		`SELECT monthly_fee_cents, previous_carry_over_cents, year FROM settings WHERE id = 1`)
	err := row.Scan(&out.MonthlyFee.Cents, &out.PreviousCarryOver.Cents, &out.Year)
	if errors.Is(err, sql.ErrNoRows) {
		return s.seedDefaultSettings(ctx)
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("query settings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT amount_cents, start_date, description FROM fee_history ORDER BY start_date, id`)
	if err != nil {
		return core.Settings{}, fmt.Errorf("query fee history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fc core.FeeChange
		if err := rows.Scan(&fc.Amount.Cents, &fc.EffectiveFrom, &fc.Description); err != nil {
			return core.Settings{}, fmt.Errorf("scan fee history: %w", err)
		}
		out.FeeHistory = append(out.FeeHistory, fc)
	}
	if err := rows.Err(); err != nil {
		return core.Settings{}, fmt.Errorf("iterate fee history: %w", err)
	}
	return out, nil
}

func (s *Store) seedDefaultSettings(ctx context.Context) (core.Settings, error) {
	defaults := core.DefaultSettings(time.Now().Year())
	if _, err := s.writeSettings(ctx, defaults); err != nil {
		return core.Settings{}, fmt.Errorf("seed default settings: %w", err)
	}
	return defaults, nil
}

func (s *Store) UpdateSettings(ctx context.Context, settings core.Settings) (core.Settings, error) {
	return s.writeSettings(ctx, settings)
}

// writeSettings replaces the singleton row and the full fee history in one
// transaction. The history is small and append-only, so rewriting it keeps
// ordering concerns out of SQL.
func (s *Store) writeSettings(ctx context.Context, settings core.Settings) (core.Settings, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Settings{}, fmt.Errorf("begin settings update: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO settings (id, monthly_fee_cents, previous_carry_over_cents, year)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			monthly_fee_cents = excluded.monthly_fee_cents,
			previous_carry_over_cents = excluded.previous_carry_over_cents,
			year = excluded.year`,
		settings.MonthlyFee.Cents, settings.PreviousCarryOver.Cents, settings.Year)
	if err != nil {
		return core.Settings{}, fmt.Errorf("upsert settings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM fee_history`); err != nil {
		return core.Settings{}, fmt.Errorf("clear fee history: %w", err)
	}
	for _, fc := range settings.FeeHistory {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO fee_history (amount_cents, start_date, description) VALUES (?, ?, ?)`,
			fc.Amount.Cents, fc.EffectiveFrom, fc.Description)
		if err != nil {
			return core.Settings{}, fmt.Errorf("insert fee history entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Settings{}, fmt.Errorf("commit settings update: %w", err)
	}
	return settings, nil
}

func (s *Store) Members(ctx context.Context) ([]core.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM members ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	for i := range members {
		payments, err := s.memberPayments(ctx, members[i].ID)
		if err != nil {
			return nil, err
		}
		members[i].Payments = payments
	}
	return members, nil
}

func (s *Store) Member(ctx context.Context, id string) (core.Member, error) {
	var m core.Member
	var createdAt string
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM members WHERE id = ?`, id)
	if err := row.Scan(&m.ID, &m.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Member{}, storage.ErrNotFound
		}
		return core.Member{}, fmt.Errorf("query member: %w", err)
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	payments, err := s.memberPayments(ctx, id)
	if err != nil {
		return core.Member{}, err
	}
	m.Payments = payments
	return m, nil
}

func (s *Store) memberPayments(ctx context.Context, memberID string) (map[core.YearMonth]core.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT month, amount_cents, paid_at, legacy FROM payments WHERE member_id = ?`, memberID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := make(map[core.YearMonth]core.Payment)
	for rows.Next() {
		var (
			month  core.YearMonth
			p      core.Payment
			paidAt string
			legacy int
		)
		if err := rows.Scan(&month, &p.Amount.Cents, &paidAt, &legacy); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.PaidAt, _ = time.Parse(time.RFC3339, paidAt)
		p.Legacy = legacy != 0
		payments[month] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

func (s *Store) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Payments == nil {
		m.Payments = map[core.YearMonth]core.Payment{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, name, created_at) VALUES (?, ?, ?)`,
		m.ID, m.Name, m.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.Member{}, fmt.Errorf("insert member: %w", err)
	}
	return m, nil
}

// UpdateMember replaces the member row and rewrites its payments. A member
// has at most a handful of payment rows per year, so delete-and-reinsert
// inside a transaction is simpler than diffing the sparse map.
func (s *Store) UpdateMember(ctx context.Context, m core.Member) (core.Member, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Member{}, fmt.Errorf("begin member update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE members SET name = ? WHERE id = ?`, m.Name, m.ID)
	if err != nil {
		return core.Member{}, fmt.Errorf("update member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Member{}, fmt.Errorf("update member: %w", err)
	}
	if affected == 0 {
		return core.Member{}, storage.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE member_id = ?`, m.ID); err != nil {
		return core.Member{}, fmt.Errorf("clear payments: %w", err)
	}
	for month, p := range m.Payments {
		legacy := 0
		if p.Legacy {
			legacy = 1
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO payments (member_id, month, amount_cents, paid_at, legacy) VALUES (?, ?, ?, ?, ?)`,
			m.ID, month, p.Amount.Cents, p.PaidAt.UTC().Format(time.RFC3339), legacy)
		if err != nil {
			return core.Member{}, fmt.Errorf("insert payment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Member{}, fmt.Errorf("commit member update: %w", err)
	}
	return m, nil
}

func (s *Store) DeleteMember(ctx context.Context, id string) (core.Member, error) {
	m, err := s.Member(ctx, id)
	if err != nil {
		return core.Member{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id); err != nil {
		return core.Member{}, fmt.Errorf("delete member: %w", err)
	}
	return m, nil
}

func (s *Store) Expenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, type, description, amount_cents FROM expenses ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.Date, &e.Type, &e.Description, &e.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, date, type, description, amount_cents) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Date, e.Type, e.Description, e.Amount.Cents)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) (core.Expense, error) {
	var e core.Expense
	row := s.db.QueryRowContext(ctx,
		`SELECT id, date, type, description, amount_cents FROM expenses WHERE id = ?`, id)
	if err := row.Scan(&e.ID, &e.Date, &e.Type, &e.Description, &e.Amount.Cents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, storage.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("query expense: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}
	return e, nil
}
