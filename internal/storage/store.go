// Package storage defines the persistence gateway of the ledger.
package storage

import (
	"context"
	"errors"

	"dues/internal/core"
)

// ErrNotFound reports an unknown member or expense id.
var ErrNotFound = errors.New("not found")

// Store is the durable storage contract the core is served through. Two
// implementations exist: a whole-document JSON file store and a per-record
// SQLite store. The core must not assume which one it is talking to.
type Store interface {
	// Settings returns the singleton settings, seeding defaults on first run.
	Settings(ctx context.Context) (core.Settings, error)
	UpdateSettings(ctx context.Context, s core.Settings) (core.Settings, error)

	Members(ctx context.Context) ([]core.Member, error)
	Member(ctx context.Context, id string) (core.Member, error)
	// CreateMember persists a new member, generating ID and CreatedAt when unset.
	CreateMember(ctx context.Context, m core.Member) (core.Member, error)
	// UpdateMember replaces the stored member, payments included.
	UpdateMember(ctx context.Context, m core.Member) (core.Member, error)
	// DeleteMember removes the member and returns it; payments live only
	// inside the member, so nothing else cascades.
	DeleteMember(ctx context.Context, id string) (core.Member, error)

	Expenses(ctx context.Context) ([]core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) (core.Expense, error)

	Close() error
}
