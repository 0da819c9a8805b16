package source

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// HTTPClient is the slice of *http.Client the source clients need; tests
// swap in fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns the production client with a hard timeout.
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// getJSON issues a GET and decodes the body, classifying every failure into a
// *Error so the retry wrapper can decide what is worth retrying.
func getJSON(ctx context.Context, c HTTPClient, src, url string, header http.Header, v any) error {
	if url == "" {
		return &Error{Kind: KindFormat, Source: src, Msg: "empty url"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Kind: KindFormat, Source: src, Err: err}
	}
	for k, vals := range header {
		for _, hv := range vals {
			req.Header.Add(k, hv)
		}
	}
	resp, err := c.Do(req)
	if err != nil {
		return &Error{Kind: KindUnavailable, Source: src, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(src, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &Error{Kind: KindFormat, Source: src, Msg: "decode body", Err: err}
	}
	return nil
}

// classifyStatus maps a non-2xx response to an error kind. The body snippet
// rides along for logs and for callers that need to sniff OAuth error codes.
func classifyStatus(src string, resp *http.Response) *Error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	e := &Error{Source: src, Status: resp.StatusCode, Msg: string(b)}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = retryAfter(resp)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e.Kind = KindInvalidCredential
	case resp.StatusCode >= 500:
		e.Kind = KindUnavailable
	default:
		// otros 4xx: nuestra petición está mal, reintentar no ayuda
		e.Kind = KindFormat
	}
	return e
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
