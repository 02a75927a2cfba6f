package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidYearMonth = errors.New("invalid year-month")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyType        = errors.New("empty expense type")
	ErrTooLong          = errors.New("value too long")
)

// IsValidation reports whether err is a domain validation error, as opposed
// to a storage or infrastructure failure.
func IsValidation(err error) bool {
	for _, sentinel := range []error{ErrInvalidAmount, ErrInvalidDate, ErrInvalidYearMonth, ErrEmptyName, ErrEmptyType, ErrTooLong} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

type (
	// Date is a calendar day in ISO YYYY-MM-DD form. ISO dates compare
	// lexically in chronological order, which the fee schedule relies on.
	Date string

	// YearMonth identifies a calendar month as "YYYY-MM". It keys the
	// sparse payments map of a member.
	YearMonth string

	// FeeChange is one entry of the fee schedule: the monthly fee that
	// applies from EffectiveFrom onward. Entries are append-only; past
	// changes are never edited.
	FeeChange struct {
		Amount        Money  `json:"amount"`
		EffectiveFrom Date   `json:"startDate"`
		Description   string `json:"description,omitempty"`
	}

	// FeeHistory is the fee schedule, kept sorted ascending by effective
	// date. RecordFeeChange is the only mutator.
	FeeHistory []FeeChange

	// Settings is the singleton configuration of the ledger. MonthlyFee is
	// a cached copy of the most recent fee history amount and is kept in
	// sync by RecordFeeChange.
	Settings struct {
		MonthlyFee        Money      `json:"monthlyFee"`
		PreviousCarryOver Money      `json:"previousCarryOver"`
		Year              int        `json:"year"`
		FeeHistory        FeeHistory `json:"feeHistory"`
	}

	// Payment records a paid month. Legacy marks payments that predate the
	// fee schedule and were stored as a bare boolean; they carry no amount
	// of their own and aggregate at the flat current monthly fee.
	Payment struct {
		Amount Money
		PaidAt time.Time
		Legacy bool
	}

	// Member is an association member. Payments is sparse: an absent month
	// means unpaid.
	Member struct {
		ID        string
		Name      string
		Payments  map[YearMonth]Payment
		CreatedAt time.Time
	}

	// Expense is a shared cost. Its date does not participate in the year
	// filter used for collected dues.
	Expense struct {
		ID          string `json:"id"`
		Date        Date   `json:"date"`
		Type        string `json:"type"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
	}
)

const (
	dateLayout      = "2006-01-02"
	yearMonthLayout = "2006-01"
)

// NewDate converts a time to its calendar day.
func NewDate(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

func (d Date) Validate() error {
	if _, err := time.Parse(dateLayout, string(d)); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (ym YearMonth) Validate() error {
	if _, err := time.Parse(yearMonthLayout, string(ym)); err != nil {
		return ErrInvalidYearMonth
	}
	return nil
}

// Start returns the first day of the month, the reference point for fee
// schedule lookups.
func (ym YearMonth) Start() Date {
	return Date(string(ym) + "-01")
}

// MonthsOfYear enumerates the 12 month keys "YYYY-01" .. "YYYY-12".
func MonthsOfYear(year int) []YearMonth {
	months := make([]YearMonth, 12)
	for i := range months {
		months[i] = YearMonth(time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC).Format(yearMonthLayout))
	}
	return months
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > 200 {
		return fmt.Errorf("%w: name exceeds 200 characters", ErrTooLong)
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Type) == "" {
		return ErrEmptyType
	}
	if len(e.Description) > 200 {
		return fmt.Errorf("%w: description exceeds 200 characters", ErrTooLong)
	}
	return e.Amount.Validate()
}

// DefaultSettings is the configuration seeded on first run: a flat fee of
// 100.00 with its opening schedule entry dated January 1st of the given year.
func DefaultSettings(year int) Settings {
	fee := Money{Cents: 10000}
	return Settings{
		MonthlyFee:        fee,
		PreviousCarryOver: Money{},
		Year:              year,
		FeeHistory: FeeHistory{
			{Amount: fee, EffectiveFrom: Date(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)), Description: "Initial monthly fee"},
		},
	}
}

// Clone returns a deep copy so callers can mutate payments without aliasing
// the stored member.
func (m Member) Clone() Member {
	out := m
	out.Payments = make(map[YearMonth]Payment, len(m.Payments))
	for ym, p := range m.Payments {
		out.Payments[ym] = p
	}
	return out
}

// Clone returns a deep copy of the settings including the fee history.
func (s Settings) Clone() Settings {
	out := s
	out.FeeHistory = append(FeeHistory(nil), s.FeeHistory...)
	return out
}

// sortAscending orders the schedule by effective date. The sort is stable so
// same-day entries keep their insertion order.
func (h FeeHistory) sortAscending() {
	sort.SliceStable(h, func(i, j int) bool {
		return h[i].EffectiveFrom < h[j].EffectiveFrom
	})
}

// MarshalJSON emits the wire shape of a payment: structured records as an
// object, legacy payments as the bare boolean they were stored as.
func (p Payment) MarshalJSON() ([]byte, error) {
	if p.Legacy {
		return []byte("true"), nil
	}
	return json.Marshal(struct {
		Paid   bool      `json:"paid"`
		Amount Money     `json:"amount"`
		PaidAt time.Time `json:"paidAt"`
	}{true, p.Amount, p.PaidAt})
}

// MarshalJSON always emits a payments object, never null.
func (m Member) MarshalJSON() ([]byte, error) {
	payments := m.Payments
	if payments == nil {
		payments = map[YearMonth]Payment{}
	}
	return json.Marshal(struct {
		ID        string                `json:"id"`
		Name      string                `json:"name"`
		Payments  map[YearMonth]Payment `json:"payments"`
		CreatedAt time.Time             `json:"createdAt"`
	}{m.ID, m.Name, payments, m.CreatedAt})
}

// UnmarshalJSON decodes a member leniently: malformed payment entries are
// dropped and a non-object member decodes as a zero member with no payments,
// so one bad record cannot block reporting on the rest of the document.
func (m *Member) UnmarshalJSON(data []byte) error {
	*m = Member{Payments: map[YearMonth]Payment{}}
	var raw struct {
		ID        string                        `json:"id"`
		Name      string                        `json:"name"`
		Payments  map[YearMonth]json.RawMessage `json:"payments"`
		CreatedAt string                        `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	m.ID = raw.ID
	m.Name = raw.Name
	m.CreatedAt = parseTimestamp(raw.CreatedAt)
	m.Payments = make(map[YearMonth]Payment, len(raw.Payments))
	for ym, entry := range raw.Payments {
		if ym.Validate() != nil {
			continue
		}
		if p, ok := decodePayment(entry); ok {
			m.Payments[ym] = p
		}
	}
	return nil
}

// decodePayment interprets one payments-map value. A bare true is a legacy
// payment; an object is a structured record with the amount coerced to zero
// when non-numeric. Anything else counts as unpaid.
func decodePayment(data []byte) (Payment, bool) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "true" {
		return Payment{Legacy: true}, true
	}
	var raw struct {
		Paid   bool            `json:"paid"`
		Amount json.RawMessage `json:"amount"`
		PaidAt string          `json:"paidAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil || !raw.Paid {
		return Payment{}, false
	}
	p := Payment{PaidAt: parseTimestamp(raw.PaidAt)}
	if len(raw.Amount) > 0 {
		_ = p.Amount.UnmarshalJSON(raw.Amount)
	}
	return p, true
}

// UnmarshalJSON coerces a malformed expense amount to zero instead of
// failing the document it arrived in.
func (e *Expense) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Type        string          `json:"type"`
		Description string          `json:"description"`
		Amount      json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.ID = raw.ID
	e.Date = raw.Date
	e.Type = raw.Type
	e.Description = raw.Description
	e.Amount = Money{}
	if len(raw.Amount) > 0 {
		_ = e.Amount.UnmarshalJSON(raw.Amount)
	}
	return nil
}

// parseTimestamp accepts RFC 3339 timestamps and bare ISO dates, both of
// which appear in existing documents. Unparseable input yields a zero time.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t
	}
	return time.Time{}
}
