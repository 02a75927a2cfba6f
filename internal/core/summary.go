package core

// Summary is the derived balance of the ledger.
type Summary struct {
	TotalCollected Money `json:"totalCollected"`
	TotalExpenses  Money `json:"totalExpenses"`
	Balance        Money `json:"balance"`
}

// Summarize aggregates collected dues and expenses into a balance.
//
// Collected dues cover only the 12 months of the configured year; payments
// recorded for other months are ignored. Legacy payments count at the flat
// current monthly fee, never re-derived from the schedule. Expenses are
// summed in full regardless of date. Aggregation is lenient: it never fails,
// and malformed records contribute zero.
func Summarize(settings Settings, members []Member, expenses []Expense) Summary {
	var collected int64
	months := MonthsOfYear(settings.Year)
	for _, member := range members {
		for _, ym := range months {
			payment, ok := member.Payments[ym]
			if !ok {
				continue
			}
			if payment.Legacy {
				collected += settings.MonthlyFee.Cents
			} else {
				collected += payment.Amount.Cents
			}
		}
	}

	var spent int64
	for _, e := range expenses {
		spent += e.Amount.Cents
	}

	return Summary{
		TotalCollected: Money{Cents: collected},
		TotalExpenses:  Money{Cents: spent},
		Balance:        Money{Cents: settings.PreviousCarryOver.Cents + collected - spent},
	}
}
