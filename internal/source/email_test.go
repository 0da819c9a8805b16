package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcamposv/metrica/internal/models"
)

func testRetryer() Retryer {
	return Retryer{MaxRetries: 3, Base: time.Millisecond, Sleep: func(time.Duration) {}}
}

func TestEmailClientFetch(t *testing.T) {
	// servidor fake con dos días de stats
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-01-02", r.URL.Query().Get("to"))
		assert.Equal(t, "newsletter", r.URL.Query().Get("tag"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2024-01-01","sent":1000,"unique_opens":300,"clicks":100,
			 "hard_bounce":20,"soft_bounce":25,"transient":5,
			 "spam_reports":2,"unsubscribes":3},
			{"date":"2024-01-02","sent":500,"delivered":480,"unique_opens":150,"clicks":40,
			 "hard_bounce":10,"soft_bounce":5,"transient":5}
		]`))
	}))
	defer srv.Close()

	c := NewEmailClient(NewHTTPClient(2*time.Second), EmailConfig{
		URL: srv.URL, APIKey: "secret", Tag: "newsletter",
	}, testRetryer(), discardLogger())

	got, err := c.Fetch(context.Background(), day("2024-01-01"), day("2024-01-02"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// las tres clases de rebote se funden en bounced
	assert.Equal(t, 50, got[0].Bounced)
	// delivered ausente: fallback sent-bounced
	assert.Equal(t, 950, got[0].Delivered)
	assert.Equal(t, 300, got[0].Opened)
	assert.Equal(t, 100, got[0].Clicked)
	assert.Equal(t, 2, got[0].Spam)
	assert.Equal(t, 3, got[0].Unsubscribed)

	// delivered reportado: se respeta tal cual
	assert.Equal(t, 480, got[1].Delivered)
	assert.Equal(t, 20, got[1].Bounced)
}

func TestEmailClient429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewEmailClient(NewHTTPClient(2*time.Second), EmailConfig{URL: srv.URL}, testRetryer(), discardLogger())
	_, err := c.Fetch(context.Background(), day("2024-01-01"), day("2024-01-01"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindRateLimited))
}

func TestEmailClient500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewEmailClient(NewHTTPClient(2*time.Second), EmailConfig{URL: srv.URL}, testRetryer(), discardLogger())
	_, err := c.Fetch(context.Background(), day("2024-01-01"), day("2024-01-01"))
	assert.True(t, IsKind(err, KindUnavailable))
}

func TestNormalizeEmailLenientCoercion(t *testing.T) {
	raw := []map[string]any{
		{"date": "2024-01-01", "sent": "oops", "unique_opens": "12", "clicks": -5, "hard_bounce": nil},
	}
	got, err := normalizeEmail(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	// malformado, string numérico y negativo: 0, 12, 0
	assert.Equal(t, 0, got[0].Sent)
	assert.Equal(t, 12, got[0].Opened)
	assert.Equal(t, 0, got[0].Clicked)
	assert.Equal(t, 0, got[0].Bounced)
}

func TestNormalizeEmailSkipsRowsWithoutDate(t *testing.T) {
	raw := []map[string]any{
		{"sent": 10.0},
		{"date": "not-a-date", "sent": 20.0},
		{"date": "2024-01-02", "sent": 30.0},
	}
	got, err := normalizeEmail(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 30, got[0].Sent)
}

func TestNormalizeEmailAllRowsBadIsFormatError(t *testing.T) {
	_, err := normalizeEmail([]map[string]any{{"sent": 10.0}})
	assert.True(t, IsKind(err, KindFormat))
}

func TestNormalizeEmailIdempotent(t *testing.T) {
	raw := []map[string]any{
		{"date": "2024-01-01", "sent": 100.0, "unique_opens": 40.0, "hard_bounce": 3.0},
	}
	first, err := normalizeEmail(raw)
	require.NoError(t, err)
	second, err := normalizeEmail(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func day(s string) time.Time {
	t, err := time.Parse(models.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
