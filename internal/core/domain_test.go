package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{"2025-01-01", true},
		{"2025-12-31", true},
		{"2025-13-01", false},
		{"2025-1-1", false},
		{"not a date", false},
		{"", false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestYearMonth(t *testing.T) {
	if err := YearMonth("2025-08").Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := YearMonth("2025-8").Validate(); err == nil {
		t.Fatal("expected error")
	}
	if got := YearMonth("2025-08").Start(); got != "2025-08-01" {
		t.Fatalf("expected 2025-08-01, got %s", got)
	}
}

func TestMonthsOfYear(t *testing.T) {
	months := MonthsOfYear(2025)
	if len(months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(months))
	}
	if months[0] != "2025-01" || months[11] != "2025-12" {
		t.Fatalf("unexpected bounds %s..%s", months[0], months[11])
	}
}

func TestMemberValidate(t *testing.T) {
	if err := (Member{Name: "Ali"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Member{Name: "  "}).Validate(); err == nil {
		t.Fatal("expected error for blank name")
	}
	if err := (Member{Name: strings.Repeat("x", 201)}).Validate(); err == nil {
		t.Fatal("expected error for overlong name")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Date: "2025-08-11", Type: "Cleaning", Description: "supplies", Amount: Money{Cents: 81150}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Expense{
		{Date: "bad", Type: "Cleaning", Amount: Money{Cents: 1}},
		{Date: "2025-08-11", Type: "", Amount: Money{Cents: 1}},
		{Date: "2025-08-11", Type: "Cleaning", Amount: Money{Cents: 0}},
		{Date: "2025-08-11", Type: "Cleaning", Amount: Money{Cents: -5}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMemberJSONEmitsPaymentsObject(t *testing.T) {
	b, err := json.Marshal(Member{ID: "1", Name: "Ali"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"payments":{}`) {
		t.Fatalf("payments must default to an object, got %s", b)
	}
}

func TestPaymentJSONRoundTrip(t *testing.T) {
	paidAt := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	m := Member{
		ID:   "1",
		Name: "Ali",
		Payments: map[YearMonth]Payment{
			"2025-08": {Amount: Money{Cents: 10000}, PaidAt: paidAt},
			"2025-07": {Legacy: true},
		},
		CreatedAt: paidAt,
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	// Legacy payments re-encode as the bare boolean they were stored as.
	if !strings.Contains(string(b), `"2025-07":true`) {
		t.Fatalf("legacy payment must encode as true, got %s", b)
	}

	var back Member
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	p := back.Payments["2025-08"]
	if p.Amount.Cents != 10000 || !p.PaidAt.Equal(paidAt) || p.Legacy {
		t.Fatalf("unexpected structured payment %+v", p)
	}
	if !back.Payments["2025-07"].Legacy {
		t.Fatal("legacy flag lost in round trip")
	}
}

func TestMemberUnmarshalNonObject(t *testing.T) {
	cases := []string{`"garbage"`, `42`, `true`, `[1,2]`}
	for _, raw := range cases {
		var m Member
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatalf("%s: non-object member must decode as zero member, got %v", raw, err)
		}
		if m.ID != "" || m.Name != "" || len(m.Payments) != 0 {
			t.Fatalf("%s: expected zero member, got %+v", raw, m)
		}
		if m.Payments == nil {
			t.Fatalf("%s: payments must be an empty map", raw)
		}
	}
}

func TestMemberUnmarshalDateOnlyCreatedAt(t *testing.T) {
	var m Member
	if err := json.Unmarshal([]byte(`{"id":"1","name":"Ali","payments":{},"createdAt":"2025-08-13"}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.CreatedAt.IsZero() {
		t.Fatal("date-only createdAt must parse")
	}
}

func TestExpenseUnmarshalCoercesBadAmount(t *testing.T) {
	var e Expense
	if err := json.Unmarshal([]byte(`{"id":"1","date":"2025-08-11","type":"Cleaning","amount":"oops"}`), &e); err != nil {
		t.Fatalf("lenient decode failed: %v", err)
	}
	if e.Amount.Cents != 0 {
		t.Fatalf("bad amount must coerce to zero, got %d", e.Amount.Cents)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings(2025)
	if s.MonthlyFee.Cents != 10000 || s.Year != 2025 {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if len(s.FeeHistory) != 1 || s.FeeHistory[0].EffectiveFrom != "2025-01-01" {
		t.Fatalf("expected opening schedule entry, got %+v", s.FeeHistory)
	}
}
