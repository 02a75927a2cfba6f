package core

import (
	"fmt"
)

// FeeFor resolves the monthly fee in effect for the given month.
//
// The schedule is scanned in ascending effective-date order, keeping the last
// entry dated on or before the first day of the month. Months before the
// earliest entry get that entry's amount: the first fee applies retroactively.
// An empty schedule falls back to the flat fee. Pure; assumes the schedule is
// already sorted, which RecordFeeChange maintains.
func (h FeeHistory) FeeFor(ym YearMonth, fallback Money) Money {
	if len(h) == 0 {
		return fallback
	}
	target := ym.Start()
	fee := h[0].Amount
	for _, change := range h {
		if change.EffectiveFrom > target {
			break
		}
		fee = change.Amount
	}
	return fee
}

// RecordFeeChange updates the monthly fee, recording the change in the fee
// history so months before the effective date keep their old rate.
//
// Equal fees (exact cent equality) are a no-op. An empty history first gets
// an opening entry dated January 1st of the configured year, preserving the
// original rate. The schedule is re-sorted because the wall-clock effective
// date is not guaranteed to be later than manually seeded entries.
func (s *Settings) RecordFeeChange(newFee Money, effectiveFrom Date) {
	if newFee.Cents == s.MonthlyFee.Cents {
		return
	}
	if len(s.FeeHistory) == 0 {
		s.FeeHistory = FeeHistory{{
			Amount:        s.MonthlyFee,
			EffectiveFrom: Date(fmt.Sprintf("%04d-01-01", s.Year)),
			Description:   "Initial monthly fee",
		}}
	}
	s.FeeHistory = append(s.FeeHistory, FeeChange{
		Amount:        newFee,
		EffectiveFrom: effectiveFrom,
		Description:   fmt.Sprintf("Monthly fee updated from %s to %s", s.MonthlyFee, newFee),
	})
	s.FeeHistory.sortAscending()
	s.MonthlyFee = newFee
}
