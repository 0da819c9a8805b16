package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdsClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "act_123", r.URL.Query().Get("account_id"))
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"date_start":"2024-01-01","spend":"120.50","impressions":10000,"clicks":350,"reach":8000,
			 "actions":[{"action_type":"lead","value":12},{"action_type":"purchase","value":3}]},
			{"date_start":"2024-01-02","spend":80,"impressions":6000,"clicks":200,"reach":5000}
		]}`))
	}))
	defer srv.Close()

	c := NewAdsClient(NewHTTPClient(2*time.Second), AdsConfig{
		URL: srv.URL, AccountID: "act_123", AccessToken: "tok",
	}, testRetryer(), discardLogger())

	got, err := c.Fetch(context.Background(), day("2024-01-01"), day("2024-01-02"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 120.50, got[0].Spend)
	assert.Equal(t, 10000, got[0].Impressions)
	assert.Equal(t, 350, got[0].AdClicks)
	assert.Equal(t, 8000, got[0].Reach)
	// solo las acciones lead alimentan Leads
	assert.Equal(t, 12, got[0].Leads)
	assert.Equal(t, 0, got[1].Leads)
}

func TestAdsClientExpiredToken(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	c := NewAdsClient(NewHTTPClient(2*time.Second), AdsConfig{URL: srv.URL}, testRetryer(), discardLogger())
	_, err := c.Fetch(context.Background(), day("2024-01-01"), day("2024-01-02"))
	require.Error(t, err)
	// terminal: sin reintentos hasta que un operador cargue un token nuevo
	assert.True(t, IsKind(err, KindInvalidCredential))
	assert.Equal(t, 1, attempts)
}

func TestAdsClient401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewAdsClient(NewHTTPClient(2*time.Second), AdsConfig{URL: srv.URL}, testRetryer(), discardLogger())
	_, err := c.Fetch(context.Background(), day("2024-01-01"), day("2024-01-02"))
	assert.True(t, IsKind(err, KindInvalidCredential))
}

func TestNormalizeAdsLenient(t *testing.T) {
	raw := []map[string]any{
		{"date_start": "2024-01-01", "spend": "bad", "impressions": -10.0, "actions": "nope"},
	}
	got, err := normalizeAds(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].Spend)
	assert.Equal(t, 0, got[0].Impressions)
	assert.Equal(t, 0, got[0].Leads)
}
