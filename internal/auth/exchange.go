package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TokenClient performs the refresh exchange against the backend. The call is
// deliberately unauthenticated: it proves possession of the refresh
// credential, not of an access token.
type TokenClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewTokenClient creates a token client for the given backend base URL.
func NewTokenClient(baseURL string, httpClient *http.Client) *TokenClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenClient{baseURL: baseURL, httpClient: httpClient}
}

// Exchange implements Exchanger against POST {base}/api/auth/refresh.
func (c *TokenClient) Exchange(ctx context.Context, refreshToken string) (string, string, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("refresh rejected: %s - %s", resp.Status, string(bodyBytes))
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if result.AccessToken == "" {
		return "", "", fmt.Errorf("refresh response missing access token")
	}

	return result.AccessToken, result.RefreshToken, nil
}
