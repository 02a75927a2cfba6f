package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dues/internal/core"
	"dues/internal/storage"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s, path
}

func TestOpenSeedsDefaults(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	settings, err := s.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if settings.MonthlyFee.Cents != 10000 {
		t.Fatalf("expected default fee 10000, got %d", settings.MonthlyFee.Cents)
	}
	if len(settings.FeeHistory) != 1 {
		t.Fatalf("expected opening fee history entry, got %d", len(settings.FeeHistory))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("document not written: %v", err)
	}
}

func TestMemberLifecycle(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	m, err := s.CreateMember(ctx, core.Member{Name: "Ali"})
	if err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", m)
	}

	m.Payments["2025-08"] = core.Payment{Amount: core.Money{Cents: 10000}, PaidAt: time.Now()}
	if _, err := s.UpdateMember(ctx, m); err != nil {
		t.Fatalf("UpdateMember failed: %v", err)
	}

	// Reopen to prove the payment survived the round trip to disk.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := reopened.Member(ctx, m.ID)
	if err != nil {
		t.Fatalf("Member failed: %v", err)
	}
	if got.Payments["2025-08"].Amount.Cents != 10000 {
		t.Fatalf("payment lost in round trip: %+v", got.Payments)
	}

	deleted, err := s.DeleteMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("DeleteMember failed: %v", err)
	}
	if deleted.ID != m.ID {
		t.Fatalf("expected deleted member %s, got %s", m.ID, deleted.ID)
	}
	if _, err := s.Member(ctx, m.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUnknownMemberLeavesCollectionUnchanged(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateMember(ctx, core.Member{Name: "Ali"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeleteMember(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	members, err := s.Members(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Fatalf("collection must be unchanged, got %d members", len(members))
	}
}

func TestExpenseLifecycle(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	e, err := s.CreateExpense(ctx, core.Expense{Date: "2025-08-11", Type: "Cleaning", Description: "supplies", Amount: core.Money{Cents: 81150}})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated expense id")
	}

	expenses, err := s.Expenses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(expenses) != 1 || expenses[0].Amount.Cents != 81150 {
		t.Fatalf("unexpected expenses %+v", expenses)
	}

	if _, err := s.DeleteExpense(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
}

func TestOpenToleratesLegacyDocument(t *testing.T) {
	// Documents written by earlier versions store payments as bare booleans
	// and date-only createdAt values.
	path := filepath.Join(t.TempDir(), "db.json")
	legacy := `{
	  "settings": {"monthlyFee": 100, "previousCarryOver": 188.50, "year": 2025,
	    "feeHistory": [{"amount": 100, "startDate": "2025-01-01", "description": "Initial monthly fee"}]},
	  "members": [
	    {"id": "1", "name": "Ali", "payments": {"2025-08": true, "2025-09": {"paid": true, "amount": 100}}, "createdAt": "2025-08-13"}
	  ],
	  "expenses": [{"id": "1", "date": "2025-08-11", "type": "Cleaning", "description": "", "amount": 811.50}]
	}`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()

	m, err := s.Member(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Payments["2025-08"].Legacy {
		t.Fatal("boolean payment must decode as legacy")
	}
	if m.Payments["2025-09"].Amount.Cents != 10000 {
		t.Fatalf("structured payment lost: %+v", m.Payments["2025-09"])
	}

	settings, _ := s.Settings(ctx)
	if settings.PreviousCarryOver.Cents != 18850 {
		t.Fatalf("expected carry-over 18850, got %d", settings.PreviousCarryOver.Cents)
	}
}

func TestOpenToleratesNonObjectMember(t *testing.T) {
	// A damaged members array must not take the whole store down: the bad
	// element decodes as a zero member and the valid one stays reachable.
	path := filepath.Join(t.TempDir(), "db.json")
	doc := `{
	  "settings": {"monthlyFee": 100, "previousCarryOver": 0, "year": 2025,
	    "feeHistory": [{"amount": 100, "startDate": "2025-01-01"}]},
	  "members": [
	    "garbage",
	    {"id": "1", "name": "Ali", "payments": {"2025-08": {"paid": true, "amount": 100}}, "createdAt": "2025-08-13"}
	  ],
	  "expenses": []
	}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()

	m, err := s.Member(ctx, "1")
	if err != nil {
		t.Fatalf("valid member unreachable: %v", err)
	}
	if m.Payments["2025-08"].Amount.Cents != 10000 {
		t.Fatalf("payment lost: %+v", m.Payments)
	}
}

func TestUpdateSettingsPersists(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	settings, _ := s.Settings(ctx)
	settings.RecordFeeChange(core.Money{Cents: 15000}, "2025-09-01")
	if _, err := s.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := reopened.Settings(ctx)
	if got.MonthlyFee.Cents != 15000 || len(got.FeeHistory) != 2 {
		t.Fatalf("settings lost in round trip: %+v", got)
	}
}
