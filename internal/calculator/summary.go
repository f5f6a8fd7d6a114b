package calculator

import "sort"

// DonationForSummary is the minimal donation information needed to build an
// organization summary.
type DonationForSummary struct {
	Amount    int64
	Currency  string
	Completed bool
	Recurring bool
}

// CurrencyTotal aggregates donation amounts in one currency, in minor units.
type CurrencyTotal struct {
	Currency  string
	Completed int64
	Pending   int64
}

// Summary is the aggregate view of an organization's donations.
type Summary struct {
	Count          int
	CompletedCount int
	RecurringCount int
	Totals         []CurrencyTotal // sorted by currency code
}

// SummarizeDonations aggregates donations per currency. Amounts in different
// currencies are never added together.
func SummarizeDonations(donations []DonationForSummary) Summary {
	var summary Summary
	totals := make(map[string]*CurrencyTotal)

	for _, d := range donations {
		summary.Count++
		if d.Recurring {
			summary.RecurringCount++
		}

		total, exists := totals[d.Currency]
		if !exists {
			total = &CurrencyTotal{Currency: d.Currency}
			totals[d.Currency] = total
		}

		if d.Completed {
			summary.CompletedCount++
			total.Completed += d.Amount
		} else {
			total.Pending += d.Amount
		}
	}

	for _, total := range totals {
		summary.Totals = append(summary.Totals, *total)
	}
	sort.Slice(summary.Totals, func(i, j int) bool {
		return summary.Totals[i].Currency < summary.Totals[j].Currency
	})

	return summary
}
