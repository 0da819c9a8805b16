// Package rates derives the dashboard KPI percentages from merged daily
// totals. All the divide-by-zero policy lives here so the merge and source
// layers never have to think about it.
package rates

import "github.com/mcamposv/metrica/internal/models"

// Rate returns num/den as a percentage rounded to two decimals.
// A zero denominator reads as 0 — never NaN, never Inf.
func Rate(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Round2(num / den * 100)
}

// Round2 redondea half-up a dos decimales.
func Round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }

// Delivered is the fallback when a source does not report delivered counts
// directly: max(0, sent-bounced), never negative.
func Delivered(sent, bounced int) int {
	if d := sent - bounced; d > 0 {
		return d
	}
	return 0
}

// ConversionRate is purchases over started checkouts. With zero purchases and
// zero abandoned carts it reads 100: "no data" counts as a perfect day. That
// quirk comes from the upstream dashboard and is kept on purpose; revisit here
// if downstream ever needs "no data" to read as 0.
func ConversionRate(purchases, abandoned int) float64 {
	if purchases == 0 && abandoned == 0 {
		return 100
	}
	return Rate(float64(purchases), float64(purchases+abandoned))
}

// ROAS is revenue over ad spend, 0 when nothing was spent.
func ROAS(revenue, spend float64) float64 {
	if spend <= 0 {
		return 0
	}
	return Round2(revenue / spend)
}

// Summarize folds every merged row into range-wide totals and derives the
// rates from those totals (not from averaging per-day rates).
func Summarize(daily []models.MergedDailyRow) models.SummaryTotals {
	var c models.Counters
	for _, row := range daily {
		c.Add(row.Counters)
	}
	return models.SummaryTotals{
		Counters:             c,
		OpenRate:             Rate(float64(c.Opened), float64(c.Delivered)),
		ClickRate:            Rate(float64(c.Clicked), float64(c.Delivered)),
		BounceRate:           Rate(float64(c.Bounced), float64(c.Sent)),
		ConversionRate:       ConversionRate(c.Purchases, c.Abandoned),
		UpsellConversionRate: Rate(float64(c.Upsells), float64(c.Purchases)),
		ROAS:                 ROAS(c.Revenue, c.Spend),
	}
}
