package core

import "time"

// ToggleResult reports the payment state of a month after a toggle.
type ToggleResult struct {
	Paid   bool
	Amount Money
}

// TogglePayment flips the payment state of a month.
//
// A recorded month is deleted; an unrecorded one gets a payment stamped with
// the fee the schedule prescribes for that month at toggle time. Amounts
// already stored are never recomputed: a later fee change only affects fresh
// toggles. The caller is responsible for persisting the member afterwards.
func (m *Member) TogglePayment(ym YearMonth, settings Settings, now time.Time) ToggleResult {
	if m.Payments == nil {
		m.Payments = make(map[YearMonth]Payment)
	}
	if _, ok := m.Payments[ym]; ok {
		delete(m.Payments, ym)
		return ToggleResult{Paid: false}
	}
	amount := settings.FeeHistory.FeeFor(ym, settings.MonthlyFee)
	m.Payments[ym] = Payment{Amount: amount, PaidAt: now}
	return ToggleResult{Paid: true, Amount: amount}
}
