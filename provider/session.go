package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// defaultHTTPTimeout bounds a single listing request.
const defaultHTTPTimeout = 30 * time.Second

// Session is one backend API session. Every List call acquires its own
// Session so that concurrent queries never share connection state; the
// rate limiter is the only thing derived from the descriptor, snapshotted
// at construction.
type Session struct {
	client  *http.Client
	limiter *rate.Limiter
	auth    func(*http.Request)
}

// NewSession creates an isolated HTTP session honoring the descriptor's
// rate ceiling. The auth function, when non-nil, decorates every outbound
// request with the backend's credential scheme.
func NewSession(desc Descriptor, auth func(*http.Request)) *Session {
	var limiter *rate.Limiter
	if desc.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(desc.RatePerSecond), 1)
	}

	return &Session{
		client: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		limiter: limiter,
		auth:    auth,
	}
}

// GetJSON performs a rate-limited GET and decodes the JSON response body
// into out. HTTP status codes are mapped onto the package's error taxonomy.
func (s *Session) GetJSON(ctx context.Context, url string, out interface{}) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return WrapError(ErrNetwork, err.Error())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return WrapErrorf(ErrNetwork, "building request for %s", url)
	}
	req.Header.Set("Accept", "application/json")
	if s.auth != nil {
		s.auth(req)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return WrapErrorf(ErrNetwork, "GET %s", url)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return WrapErrorf(ErrNetwork, "decoding response from %s", url)
	}
	return nil
}

// classifyStatus maps an HTTP response onto the backend failure taxonomy.
// 403 with an exhausted rate-limit header is treated as throttling rather
// than an authorization failure (GitHub reports it that way).
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return WrapError(ErrAuth, resp.Status)
	case resp.StatusCode == http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return WrapError(ErrRateLimited, resp.Status)
		}
		return WrapError(ErrAuth, resp.Status)
	case resp.StatusCode == http.StatusNotFound:
		return WrapError(ErrNotFound, resp.Status)
	case resp.StatusCode == http.StatusTooManyRequests:
		return WrapError(ErrRateLimited, resp.Status)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return WrapError(ErrNetwork, fmt.Sprintf("%s: %s", resp.Status, body))
	}
}
