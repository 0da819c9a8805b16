package models

import "time"

// Counters agrupa los contadores canónicos de las tres fuentes.
// Counters are never negative; adapters coerce bad upstream values to zero.
type Counters struct {
	// email delivery
	Sent         int `json:"sent"`
	Delivered    int `json:"delivered"`
	Opened       int `json:"opened"`
	Clicked      int `json:"clicked"`
	Bounced      int `json:"bounced"`
	Spam         int `json:"spam"`
	Unsubscribed int `json:"unsubscribed"`

	// sales ledger
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
	Purchases    int     `json:"purchases"`
	Upsells      int     `json:"upsells"`
	Abandoned    int     `json:"abandoned"`

	// ads platform
	Spend       float64 `json:"spend"`
	Impressions int     `json:"impressions"`
	AdClicks    int     `json:"ad_clicks"`
	Reach       int     `json:"reach"`
	Leads       int     `json:"leads"`
}

// Add suma los contadores de o sobre c.
func (c *Counters) Add(o Counters) {
	c.Sent += o.Sent
	c.Delivered += o.Delivered
	c.Opened += o.Opened
	c.Clicked += o.Clicked
	c.Bounced += o.Bounced
	c.Spam += o.Spam
	c.Unsubscribed += o.Unsubscribed
	c.Revenue += o.Revenue
	c.Transactions += o.Transactions
	c.Purchases += o.Purchases
	c.Upsells += o.Upsells
	c.Abandoned += o.Abandoned
	c.Spend += o.Spend
	c.Impressions += o.Impressions
	c.AdClicks += o.AdClicks
	c.Reach += o.Reach
	c.Leads += o.Leads
}

// DailyMetric is one calendar day's counters from a single source.
// Date is always UTC midnight; unique per (source, date).
type DailyMetric struct {
	Date time.Time `json:"date"`
	Counters
}

// MergedDailyRow is the union of every source's counters for one calendar
// date. Sources lists which sources actually reported that day; counters of
// absent sources are zero, not "unknown".
type MergedDailyRow struct {
	Date string `json:"date"` // YYYY-MM-DD
	Counters
	Sources []string `json:"sources"`
}

// SummaryTotals holds range-wide sums plus the derived rates. Recomputed on
// every request, never persisted.
type SummaryTotals struct {
	Counters
	OpenRate             float64 `json:"open_rate"`
	ClickRate            float64 `json:"click_rate"`
	BounceRate           float64 `json:"bounce_rate"`
	ConversionRate       float64 `json:"conversion_rate"`
	UpsellConversionRate float64 `json:"upsell_conversion_rate"`
	ROAS                 float64 `json:"roas"`
}

// CacheEntry is one cached (source, day) snapshot. Last writer wins: values
// are idempotent re-fetches of the same historical day.
type CacheEntry struct {
	SourceTag string      `json:"source_tag"`
	Metric    DailyMetric `json:"metric"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SourceStatus reports how each source contributed to a Report.
type SourceStatus struct {
	Source string `json:"source"`
	State  string `json:"state"`
	Error  string `json:"error,omitempty"`
}

// Source contribution states.
const (
	StateFresh   = "fresh"   // served from cache within TTL
	StateFetched = "fetched" // live fetch succeeded
	StateStale   = "stale"   // fetch failed, cached data served
	StateFailed  = "failed"  // fetch failed and nothing cached
)

// Report is the query result handed to the presentation layer.
type Report struct {
	Summary SummaryTotals    `json:"summary"`
	Daily   []MergedDailyRow `json:"daily"`
	Sources []SourceStatus   `json:"sources"`
}

// Canonical source tags.
const (
	SourceEmail = "email"
	SourceSales = "sales"
	SourceAds   = "ads"
)

// DateFormat is the wire format for calendar dates everywhere in the API.
const DateFormat = "2006-01-02"

// Day trunca t a medianoche UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
