// Package source holds one client+adapter per external system. Clients do
// the HTTP plumbing (retry, throttling, credentials); adapters are pure
// transforms from raw payloads to canonical DailyMetric records.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcamposv/metrica/internal/models"
	"github.com/mcamposv/metrica/internal/rates"
)

// EmailConfig configures the email-delivery stats client.
type EmailConfig struct {
	URL    string
	APIKey string
	Tag    string // optional per-campaign filter label
	// RequestsPerSecond caps our own call rate below the upstream ceiling;
	// 0 disables the local limiter.
	RequestsPerSecond float64
}

// EmailClient fetches per-day delivery stats. The upstream enforces its own
// request-rate ceiling (429s), so the client carries both a local limiter and
// the shared 429 throttle inside its Retryer.
type EmailClient struct {
	c       HTTPClient
	cfg     EmailConfig
	retry   Retryer
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewEmailClient(c HTTPClient, cfg EmailConfig, retry Retryer, log *slog.Logger) *EmailClient {
	var lim *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &EmailClient{c: c, cfg: cfg, retry: retry, limiter: lim, log: log}
}

func (c *EmailClient) Tag() string { return models.SourceEmail }

// Fetch returns one DailyMetric per day in [from, to].
func (c *EmailClient) Fetch(ctx context.Context, from, to time.Time) ([]models.DailyMetric, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	q := url.Values{}
	q.Set("from", from.Format(models.DateFormat))
	q.Set("to", to.Format(models.DateFormat))
	if c.cfg.Tag != "" {
		q.Set("tag", c.cfg.Tag)
	}
	u := fmt.Sprintf("%s/stats/day?%s", c.cfg.URL, q.Encode())
	h := http.Header{}
	h.Set("X-Api-Key", c.cfg.APIKey)

	var raw []map[string]any
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return getJSON(ctx, c.c, models.SourceEmail, u, h, &raw)
	})
	if err != nil {
		return nil, err
	}
	return normalizeEmail(raw)
}

// normalizeEmail maps raw per-day stats into canonical records. Pure; safe to
// re-run on the same payload. The three bounce classes fold into one bounced
// counter, and delivered falls back to sent-bounced when the upstream omits
// it (older exports did).
func normalizeEmail(raw []map[string]any) ([]models.DailyMetric, error) {
	out := make([]models.DailyMetric, 0, len(raw))
	for _, r := range raw {
		d, ok := parseDay(r["date"])
		if !ok {
			continue // sin fecha no hay bucket
		}
		m := models.DailyMetric{Date: d}
		m.Sent = lenientInt(r["sent"])
		m.Opened = lenientInt(r["unique_opens"])
		m.Clicked = lenientInt(r["clicks"])
		m.Bounced = lenientInt(r["hard_bounce"]) + lenientInt(r["soft_bounce"]) + lenientInt(r["transient"])
		m.Spam = lenientInt(r["spam_reports"])
		m.Unsubscribed = lenientInt(r["unsubscribes"])
		if v, reported := r["delivered"]; reported {
			m.Delivered = lenientInt(v)
		} else {
			m.Delivered = rates.Delivered(m.Sent, m.Bounced)
		}
		out = append(out, m)
	}
	if len(raw) > 0 && len(out) == 0 {
		return nil, &Error{Kind: KindFormat, Source: models.SourceEmail, Msg: "no row carries a usable date"}
	}
	return out, nil
}
