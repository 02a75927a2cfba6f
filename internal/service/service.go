// Package service orchestrates core operations against the storage gateway
// and publishes change events for external integrations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dues/internal/core"
	"dues/internal/events"
	"dues/internal/storage"
)

// Service wires the persistence gateway to the core ledger operations.
// It holds no ledger state of its own.
type Service struct {
	store  storage.Store
	events *events.Publisher
	now    func() time.Time
}

// New creates a service. The publisher may be nil, in which case change
// events are skipped.
func New(store storage.Store, publisher *events.Publisher) *Service {
	return &Service{store: store, events: publisher, now: time.Now}
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	MonthlyFee        *core.Money
	PreviousCarryOver *core.Money
	Year              *int
}

// ToggleReceipt reports the outcome of a payment toggle.
type ToggleReceipt struct {
	ID        string         `json:"id"`
	YearMonth core.YearMonth `json:"yearMonth"`
	Paid      bool           `json:"paid"`
	Amount    core.Money     `json:"amount"`
}

func (s *Service) Settings(ctx context.Context) (core.Settings, error) {
	return s.store.Settings(ctx)
}

// UpdateSettings applies a partial update. A changed monthly fee goes through
// the fee schedule so months before today keep their old rate.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (core.Settings, error) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	if patch.MonthlyFee != nil {
		settings.RecordFeeChange(*patch.MonthlyFee, core.NewDate(s.now()))
	}
	if patch.PreviousCarryOver != nil {
		settings.PreviousCarryOver = *patch.PreviousCarryOver
	}
	if patch.Year != nil {
		settings.Year = *patch.Year
	}

	updated, err := s.store.UpdateSettings(ctx, settings)
	if err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.publish(ctx, events.NewEvent(events.KindSettingsUpdated, "", ""))
	return updated, nil
}

func (s *Service) Members(ctx context.Context) ([]core.Member, error) {
	return s.store.Members(ctx)
}

func (s *Service) CreateMember(ctx context.Context, name string) (core.Member, error) {
	m := core.Member{Name: name}
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}
	created, err := s.store.CreateMember(ctx, m)
	if err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}
	s.publish(ctx, events.NewEvent(events.KindMemberCreated, created.ID, ""))
	return created, nil
}

func (s *Service) DeleteMember(ctx context.Context, id string) (core.Member, error) {
	deleted, err := s.store.DeleteMember(ctx, id)
	if err != nil {
		return core.Member{}, err
	}
	s.publish(ctx, events.NewEvent(events.KindMemberDeleted, id, ""))
	return deleted, nil
}

// TogglePayment flips one member-month between paid and unpaid, stamping the
// fee the schedule prescribed for that month, and persists the member.
func (s *Service) TogglePayment(ctx context.Context, id string, ym core.YearMonth) (ToggleReceipt, error) {
	if err := ym.Validate(); err != nil {
		return ToggleReceipt{}, err
	}

	settings, err := s.store.Settings(ctx)
	if err != nil {
		return ToggleReceipt{}, fmt.Errorf("load settings: %w", err)
	}
	member, err := s.store.Member(ctx, id)
	if err != nil {
		return ToggleReceipt{}, err
	}

	result := member.TogglePayment(ym, settings, s.now())
	if _, err := s.store.UpdateMember(ctx, member); err != nil {
		return ToggleReceipt{}, fmt.Errorf("save member: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.KindPaymentToggled, id, ym))
	return ToggleReceipt{ID: id, YearMonth: ym, Paid: result.Paid, Amount: result.Amount}, nil
}

func (s *Service) Expenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.Expenses(ctx)
}

func (s *Service) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.publish(ctx, events.NewEvent(events.KindExpenseCreated, created.ID, ""))
	return created, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) (core.Expense, error) {
	deleted, err := s.store.DeleteExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	s.publish(ctx, events.NewEvent(events.KindExpenseDeleted, id, ""))
	return deleted, nil
}

// Summary derives the current balance from a fresh snapshot of the ledger.
func (s *Service) Summary(ctx context.Context) (core.Summary, error) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load settings: %w", err)
	}
	members, err := s.store.Members(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load members: %w", err)
	}
	expenses, err := s.store.Expenses(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load expenses: %w", err)
	}
	return core.Summarize(settings, members, expenses), nil
}

// publish sends a change event without failing the request: the mutation is
// already durable, a lost notification is only an inconvenience.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind, "entity_id", event.EntityID, "error", err)
	}
}
