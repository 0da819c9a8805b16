package source

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mcamposv/metrica/internal/models"
)

// SalesConfig configures the sales-ledger CSV export client.
type SalesConfig struct {
	URL string
}

// SalesClient pulls the sales-tracking CSV export. The export has no
// date-range query — it is always the full ledger — so the adapter buckets
// transactions into daily rows and filters to the requested range locally.
type SalesClient struct {
	c     HTTPClient
	cfg   SalesConfig
	retry Retryer
	log   *slog.Logger
}

func NewSalesClient(c HTTPClient, cfg SalesConfig, retry Retryer, log *slog.Logger) *SalesClient {
	return &SalesClient{c: c, cfg: cfg, retry: retry, log: log}
}

func (c *SalesClient) Tag() string { return models.SourceSales }

func (c *SalesClient) Fetch(ctx context.Context, from, to time.Time) ([]models.DailyMetric, error) {
	var recs [][]string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var ferr error
		recs, ferr = c.fetchCSV(ctx)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return normalizeSales(recs, from, to), nil
}

func (c *SalesClient) fetchCSV(ctx context.Context) ([][]string, error) {
	if c.cfg.URL == "" {
		return nil, &Error{Kind: KindFormat, Source: models.SourceSales, Msg: "empty url"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, &Error{Kind: KindFormat, Source: models.SourceSales, Err: err}
	}
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Source: models.SourceSales, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(models.SourceSales, resp)
	}
	rd := csv.NewReader(resp.Body)
	rd.FieldsPerRecord = -1 // el export a veces trae columnas extra
	recs, err := rd.ReadAll()
	if err != nil {
		return nil, &Error{Kind: KindFormat, Source: models.SourceSales, Msg: "parse csv", Err: err}
	}
	return recs, nil
}

// Ledger event types. Anything else in the export (refund batches, test
// events) is ignored for the dashboard.
const (
	eventPurchase  = "purchase"
	eventSale      = "sale" // legacy name for purchase
	eventUpsell    = "upsell"
	eventAbandoned = "abandoned"
)

// normalizeSales buckets ledger rows (event, item, date, price) into daily
// metrics and keeps only [from, to]. Pure. A header row or a row with an
// unusable date is skipped; prices coerce leniently.
func normalizeSales(recs [][]string, from, to time.Time) []models.DailyMetric {
	from, to = models.Day(from), models.Day(to)
	days := make(map[time.Time]*models.Counters)
	for _, rec := range recs {
		if len(rec) < 4 {
			continue
		}
		event := strings.ToLower(strings.TrimSpace(rec[0]))
		day, ok := parseDay(rec[2])
		if !ok {
			continue // covers the header row too
		}
		if day.Before(from) || day.After(to) {
			continue
		}
		c, ok := days[day]
		if !ok {
			c = &models.Counters{}
			days[day] = c
		}
		price := lenientFloat(rec[3])
		switch event {
		case eventPurchase, eventSale:
			c.Transactions++
			c.Purchases++
			c.Revenue += price
		case eventUpsell:
			c.Transactions++
			c.Upsells++
			c.Revenue += price
		case eventAbandoned:
			c.Abandoned++
		}
	}

	out := make([]models.DailyMetric, 0, len(days))
	for day, c := range days {
		out = append(out, models.DailyMetric{Date: day, Counters: *c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
