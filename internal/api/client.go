// Package api is the typed client the surrounding application uses: the
// credential endpoints and the lyric rewrite stream. It wires the session,
// refresh coordinator, requester, and orchestrator together.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"lyricgate/internal/auth"
	"lyricgate/internal/domain"
	"lyricgate/internal/responses"
	"lyricgate/internal/stream"
	"lyricgate/internal/telemetry"
	"lyricgate/internal/transport"
)

// Options configures optional pieces of the client. Zero value works.
type Options struct {
	Connection       domain.ConnectionSettings
	OpenTag          string
	CloseTag         string
	Validator        *responses.Validator
	Metrics          *telemetry.Metrics
	Store            auth.CredentialStore // persistence for the refresh credential
	OnSessionExpired func()               // fired when a refresh fails; hook for app-level logout
}

// Client talks to the lyricgate backend.
type Client struct {
	baseURL    string
	session    *auth.Session
	requester  *transport.Requester
	orch       *stream.Orchestrator
	httpClient *http.Client // for unauthenticated credential calls
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	settings := opts.Connection
	if settings == (domain.ConnectionSettings{}) {
		settings = domain.DefaultConnectionSettings()
	}

	session, err := auth.NewSession(opts.Store)
	if err != nil {
		return nil, err
	}

	plainClient := transport.BuildHTTPClient(settings, false)
	exchanger := auth.NewTokenClient(baseURL, plainClient)
	coordinator := auth.NewRefreshCoordinator(session, exchanger, opts.OnSessionExpired, opts.Metrics)
	requester := transport.NewRequester(settings, session, coordinator, opts.Metrics)

	return &Client{
		baseURL:    baseURL,
		session:    session,
		requester:  requester,
		orch:       stream.New(requester, opts.OpenTag, opts.CloseTag, opts.Validator, opts.Metrics),
		httpClient: plainClient,
	}, nil
}

// Session exposes the credential state, mainly for tests and the CLI.
func (c *Client) Session() *auth.Session { return c.session }

// Login exchanges email/password for a credential pair. It deliberately
// bypasses the authenticated requester: a 401 here means wrong password,
// not a stale access token, and must not trigger a refresh.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return transport.ErrorFromResponse(resp)
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	return c.session.SetTokens(result.AccessToken, result.RefreshToken)
}

// Logout revokes the session server-side on a best-effort basis, then clears
// local credentials unconditionally.
func (c *Client) Logout(ctx context.Context) error {
	if resp, err := c.requester.DoJSON(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", nil); err == nil {
		resp.Body.Close()
	}
	return c.session.Clear()
}

// RewriteRequest asks the backend to rewrite lyrics under a profile's voice.
// The backend owns prompt construction; this client only carries the fields.
type RewriteRequest struct {
	SongID    string `json:"song_id,omitempty"`
	ProfileID string `json:"profile_id,omitempty"`
	Lyrics    string `json:"lyrics"`
	Prompt    string `json:"prompt"`
}

// Rewrite runs one streaming rewrite call. Progress arrives through cb; the
// returned result is the done payload.
func (c *Client) Rewrite(ctx context.Context, req RewriteRequest, cb stream.Callbacks) (*domain.StreamResult, error) {
	return c.orch.Run(ctx, c.baseURL+"/api/rewrite/stream", req, cb)
}
