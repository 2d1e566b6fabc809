// Package verify validates browser challenge tokens before a chat request is
// allowed to reach the model.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Verifier checks a client-supplied challenge token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Noop accepts every request; used when no verification secret is configured.
type Noop struct{}

func (Noop) Verify(ctx context.Context, token, remoteIP string) error { return nil }

// Turnstile verifies tokens against the Cloudflare Turnstile siteverify API.
type Turnstile struct {
	secret   string
	endpoint string
	client   *http.Client
}

func NewTurnstile(secret, endpoint string) *Turnstile {
	return &Turnstile{
		secret:   secret,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return fmt.Errorf("missing verification token")
	}

	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode siteverify response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("verification failed: %s", strings.Join(result.ErrorCodes, ", "))
	}
	return nil
}
