package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dues/internal/core"
	"dues/internal/storage"
	filestore "dues/internal/storage/file"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := filestore.Open(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return New(store, nil)
}

func TestTogglePaymentThroughService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.CreateMember(ctx, "Ali")
	if err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}

	receipt, err := svc.TogglePayment(ctx, m.ID, "2025-08")
	if err != nil {
		t.Fatalf("TogglePayment failed: %v", err)
	}
	if !receipt.Paid || receipt.Amount.Cents != 10000 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	// Second toggle cancels, and the change is persisted.
	receipt, err = svc.TogglePayment(ctx, m.ID, "2025-08")
	if err != nil {
		t.Fatal(err)
	}
	if receipt.Paid || receipt.Amount.Cents != 0 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	members, _ := svc.Members(ctx)
	if len(members[0].Payments) != 0 {
		t.Fatalf("payment not removed from store: %+v", members[0].Payments)
	}
}

func TestTogglePaymentValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.TogglePayment(ctx, "nope", "2025-08"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	m, _ := svc.CreateMember(ctx, "Ali")
	if _, err := svc.TogglePayment(ctx, m.ID, "2025-8"); !errors.Is(err, core.ErrInvalidYearMonth) {
		t.Fatalf("expected ErrInvalidYearMonth, got %v", err)
	}
}

func TestUpdateSettingsRecordsFeeChange(t *testing.T) {
	svc := newTestService(t)
	svc.now = func() time.Time { return time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	fee := core.Money{Cents: 15000}
	year := 2026
	updated, err := svc.UpdateSettings(ctx, SettingsPatch{MonthlyFee: &fee, Year: &year})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if updated.MonthlyFee.Cents != 15000 || updated.Year != 2026 {
		t.Fatalf("unexpected settings %+v", updated)
	}
	if len(updated.FeeHistory) != 2 {
		t.Fatalf("fee change not recorded: %+v", updated.FeeHistory)
	}
	if updated.FeeHistory[1].EffectiveFrom != "2025-09-01" {
		t.Fatalf("change must be dated today, got %s", updated.FeeHistory[1].EffectiveFrom)
	}

	// August keeps the old rate, September gets the new one.
	if got := updated.FeeHistory.FeeFor("2025-08", updated.MonthlyFee); got.Cents != 10000 {
		t.Fatalf("expected 10000 for 2025-08, got %d", got.Cents)
	}
	if got := updated.FeeHistory.FeeFor("2025-09", updated.MonthlyFee); got.Cents != 15000 {
		t.Fatalf("expected 15000 for 2025-09, got %d", got.Cents)
	}
}

func TestUpdateSettingsSameFeeIsNoOp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	fee := core.Money{Cents: 10000}
	updated, err := svc.UpdateSettings(ctx, SettingsPatch{MonthlyFee: &fee})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.FeeHistory) != 1 {
		t.Fatalf("unchanged fee must not grow the history: %+v", updated.FeeHistory)
	}
}

func TestCreateMemberValidation(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateMember(context.Background(), "  "); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []core.Expense{
		{Date: "bad", Type: "Cleaning", Amount: core.Money{Cents: 100}},
		{Date: "2025-08-11", Type: "", Amount: core.Money{Cents: 100}},
		{Date: "2025-08-11", Type: "Cleaning", Amount: core.Money{Cents: -100}},
	}
	for i, e := range cases {
		if _, err := svc.CreateExpense(ctx, e); err == nil {
			t.Fatalf("case %d expected validation error", i)
		}
	}
	expenses, _ := svc.Expenses(ctx)
	if len(expenses) != 0 {
		t.Fatalf("rejected expenses must not be stored: %+v", expenses)
	}
}

func TestSummaryScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	carry := core.Money{Cents: 18850}
	if _, err := svc.UpdateSettings(ctx, SettingsPatch{PreviousCarryOver: &carry}); err != nil {
		t.Fatal(err)
	}
	m, _ := svc.CreateMember(ctx, "Ali")
	if _, err := svc.TogglePayment(ctx, m.ID, core.YearMonth(time.Now().Format("2006")+"-08")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateExpense(ctx, core.Expense{
		Date: "2025-08-11", Type: "Cleaning", Description: "supplies", Amount: core.Money{Cents: 81150},
	}); err != nil {
		t.Fatal(err)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.TotalCollected.Cents != 10000 {
		t.Fatalf("expected collected 10000, got %d", summary.TotalCollected.Cents)
	}
	if summary.TotalExpenses.Cents != 81150 {
		t.Fatalf("expected expenses 81150, got %d", summary.TotalExpenses.Cents)
	}
	if summary.Balance.Cents != -52300 {
		t.Fatalf("expected balance -52300, got %d", summary.Balance.Cents)
	}
}
