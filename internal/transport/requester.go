// Package transport wraps outbound HTTP with bearer attachment and the
// retry-once-after-refresh policy for 401 responses.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"lyricgate/internal/domain"
	"lyricgate/internal/telemetry"
)

// TokenSource exposes the current access credential. Satisfied by *auth.Session.
type TokenSource interface {
	AccessToken() string
}

// Refresher runs the deduplicated credential refresh. Satisfied by
// *auth.RefreshCoordinator.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Requester sends authenticated requests. A 401 triggers one refresh and one
// retry; a second 401 fails as AuthenticationError. For streaming requests
// the policy applies at connect time only — once the body is streaming, a
// failure is never reinterpreted as an auth failure.
type Requester struct {
	httpClient   *http.Client
	streamClient *http.Client
	tokens       TokenSource
	refresher    Refresher
	metrics      *telemetry.Metrics
}

// NewRequester creates a requester with connection pools tuned from settings.
// refresher and metrics may be nil.
func NewRequester(settings domain.ConnectionSettings, tokens TokenSource, refresher Refresher, metrics *telemetry.Metrics) *Requester {
	return &Requester{
		httpClient:   BuildHTTPClient(settings, false),
		streamClient: BuildHTTPClient(settings, true),
		tokens:       tokens,
		refresher:    refresher,
		metrics:      metrics,
	}
}

// BuildHTTPClient creates an HTTP client with the specified connection
// settings. Streaming clients get no total timeout: a stream lives as long
// as its context.
func BuildHTTPClient(settings domain.ConnectionSettings, streaming bool) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        settings.MaxIdleConnections,
		MaxIdleConnsPerHost: settings.MaxIdleConnections,
		MaxConnsPerHost:     settings.MaxConnections,
		IdleConnTimeout:     time.Duration(settings.IdleTimeoutSec) * time.Second,
		DisableKeepAlives:   !settings.EnableKeepAlive,
		ForceAttemptHTTP2:   settings.EnableHTTP2,
	}

	client := &http.Client{Transport: transport}
	if !streaming {
		client.Timeout = time.Duration(settings.RequestTimeoutSec) * time.Second
	}
	return client
}

// DoJSON sends a plain JSON request. The caller owns the response body.
func (r *Requester) DoJSON(ctx context.Context, method, url string, payload any) (*http.Response, error) {
	body, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	return r.send(ctx, r.httpClient, method, url, body, false)
}

// Stream opens a streaming POST. The caller owns the response body; it stays
// open until the stream ends or ctx is cancelled.
func (r *Requester) Stream(ctx context.Context, url string, payload any) (*http.Response, error) {
	body, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	return r.send(ctx, r.streamClient, http.MethodPost, url, body, true)
}

func marshalPayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return body, nil
}

func (r *Requester) send(ctx context.Context, client *http.Client, method, url string, body []byte, streaming bool) (*http.Response, error) {
	kind := "plain"
	if streaming {
		kind = "stream"
	}

	retried := false
	for {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if streaming {
			req.Header.Set("Accept", "text/event-stream")
			req.Header.Set("Cache-Control", "no-cache")
		}
		if tok := r.tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &domain.CancellationError{Err: ctx.Err()}
			}
			return nil, fmt.Errorf("request failed: %w", err)
		}
		r.metrics.RecordRequest(kind, strconv.Itoa(resp.StatusCode/100*100))

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			if retried || r.refresher == nil {
				return nil, &domain.AuthenticationError{Reason: "unauthorized after credential refresh"}
			}
			if err := r.refresher.Refresh(ctx); err != nil {
				return nil, err
			}
			retried = true
			r.metrics.RecordRetry()
			slog.Debug("retrying request after credential refresh", "url", url, "kind", kind)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err := ErrorFromResponse(resp)
			resp.Body.Close()
			return nil, err
		}

		return resp, nil
	}
}

// ErrorFromResponse turns a non-2xx response into a ServerError carrying the
// body's message field. It does not close the body.
func ErrorFromResponse(resp *http.Response) error {
	return &domain.ServerError{
		StatusCode: resp.StatusCode,
		Message:    readErrorDetail(resp.Body),
	}
}

// readErrorDetail extracts the backend's message field from an error body,
// falling back to the raw body.
func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return string(raw)
}
