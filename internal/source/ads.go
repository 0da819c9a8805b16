package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mcamposv/metrica/internal/models"
)

// AdsConfig configures the ads-platform insights client. AccessToken is
// issued externally; the pipeline cannot renew it, so an expired token is
// terminal for this source until an operator supplies a new one.
type AdsConfig struct {
	URL         string
	AccountID   string
	AccessToken string
}

// AdsClient fetches per-day ad insights for one account.
type AdsClient struct {
	c     HTTPClient
	cfg   AdsConfig
	retry Retryer
	log   *slog.Logger
}

func NewAdsClient(c HTTPClient, cfg AdsConfig, retry Retryer, log *slog.Logger) *AdsClient {
	return &AdsClient{c: c, cfg: cfg, retry: retry, log: log}
}

func (c *AdsClient) Tag() string { return models.SourceAds }

type adsEnvelope struct {
	Data []map[string]any `json:"data"`
}

func (c *AdsClient) Fetch(ctx context.Context, from, to time.Time) ([]models.DailyMetric, error) {
	q := url.Values{}
	q.Set("account_id", c.cfg.AccountID)
	q.Set("since", from.Format(models.DateFormat))
	q.Set("until", to.Format(models.DateFormat))
	q.Set("access_token", c.cfg.AccessToken)
	u := fmt.Sprintf("%s/insights?%s", c.cfg.URL, q.Encode())

	var raw adsEnvelope
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return reclassifyOAuth(getJSON(ctx, c.c, models.SourceAds, u, nil, &raw))
	})
	if err != nil {
		return nil, err
	}
	return normalizeAds(raw.Data)
}

// reclassifyOAuth upgrades OAuth error bodies to invalid-credential. The
// platform answers expired tokens with a 400 plus `"code":190` instead of a
// 401, and retrying those is pointless.
func reclassifyOAuth(err error) error {
	var se *Error
	if errors.As(err, &se) && se.Status == 400 &&
		(strings.Contains(se.Msg, `"code":190`) || strings.Contains(se.Msg, "OAuthException")) {
		se.Kind = KindInvalidCredential
	}
	return err
}

// normalizeAds maps raw insight rows to canonical records. Pure. Ad "clicks"
// stay a separate counter from email clicks; only lead actions feed the Leads
// counter (purchase attribution belongs to the sales ledger).
func normalizeAds(raw []map[string]any) ([]models.DailyMetric, error) {
	out := make([]models.DailyMetric, 0, len(raw))
	for _, r := range raw {
		d, ok := parseDay(r["date_start"])
		if !ok {
			d, ok = parseDay(r["date"])
		}
		if !ok {
			continue
		}
		m := models.DailyMetric{Date: d}
		m.Spend = lenientFloat(r["spend"])
		m.Impressions = lenientInt(r["impressions"])
		m.AdClicks = lenientInt(r["clicks"])
		m.Reach = lenientInt(r["reach"])
		m.Leads = leadActions(r["actions"])
		out = append(out, m)
	}
	if len(raw) > 0 && len(out) == 0 {
		return nil, &Error{Kind: KindFormat, Source: models.SourceAds, Msg: "no row carries a usable date"}
	}
	return out, nil
}

func leadActions(v any) int {
	actions, ok := v.([]any)
	if !ok {
		return 0
	}
	total := 0
	for _, a := range actions {
		act, ok := a.(map[string]any)
		if !ok {
			continue
		}
		t, _ := act["action_type"].(string)
		if t == "lead" || t == "leads" || strings.HasSuffix(t, ".lead") {
			total += lenientInt(act["value"])
		}
	}
	return total
}
