// Package harvester implements the CAPTCHA relay: a client that submits
// challenges and polls for tokens, and the service the human-in-the-loop UI
// talks to. When the scraper hits a challenge it cannot solve in-page, the
// challenge descriptor is queued here and a person (or the relay's own
// automation) produces the response token.
package harvester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maksud51/linkharvest/metrics"
)

// Challenge types understood by the relay.
const (
	TypeRecaptchaV2       = "recaptcha_v2"
	TypeHCaptcha          = "hcaptcha"
	TypeInternalChallenge = "internal_challenge"
)

// Client talks to a relay service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithMetrics wires relay poll counters.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a relay client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Healthy reports whether the relay service answers its stats endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stats", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type createRequest struct {
	SiteKey     string `json:"sitekey"`
	PageURL     string `json:"page_url"`
	CaptchaType string `json:"captcha_type"`
	AutoSolve   bool   `json:"auto_solve,omitempty"`
}

type createResponse struct {
	ChallengeID string `json:"challenge_id"`
	Status      string `json:"status"`
}

// CreateChallenge registers a challenge and returns its ID.
func (c *Client) CreateChallenge(ctx context.Context, siteKey, pageURL, captchaType string, autoSolve bool) (string, error) {
	body, err := json.Marshal(createRequest{
		SiteKey:     siteKey,
		PageURL:     pageURL,
		CaptchaType: captchaType,
		AutoSolve:   autoSolve,
	})
	if err != nil {
		return "", fmt.Errorf("harvester: marshal create: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/challenge/create", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("harvester: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("harvester: create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("harvester: create: status %d", resp.StatusCode)
	}

	var out createResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("harvester: decode create: %w", err)
	}
	if out.ChallengeID == "" {
		return "", fmt.Errorf("harvester: create: empty challenge id")
	}

	c.logger.Info("harvester: challenge created",
		"id", out.ChallengeID, "type", captchaType)
	return out.ChallengeID, nil
}

type solutionResponse struct {
	Token  string `json:"token"`
	Status string `json:"status"`
}

// GetSolution polls the relay until a token arrives or timeout elapses.
// Returns "" (no error) when the relay never produced a token in time.
func (c *Client) GetSolution(ctx context.Context, challengeID string, timeout, pollInterval time.Duration) (string, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	deadline := time.Now().Add(timeout)

	c.logger.Info("harvester: polling for solution",
		"id", challengeID, "timeout", timeout)

	for {
		token, err := c.pollOnce(ctx, challengeID)
		if err != nil {
			c.logger.Debug("harvester: poll error", "id", challengeID, "error", err)
		} else if token != "" {
			c.logger.Info("harvester: solution received", "id", challengeID)
			return token, nil
		}

		if time.Now().After(deadline) {
			c.logger.Warn("harvester: solution timeout", "id", challengeID)
			return "", nil
		}

		t := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, challengeID string) (string, error) {
	c.metrics.IncRelayPoll()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/challenge/"+challengeID+"/solution", nil)
	if err != nil {
		return "", fmt.Errorf("harvester: poll request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("harvester: poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("harvester: poll: status %d", resp.StatusCode)
	}

	var out solutionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("harvester: decode poll: %w", err)
	}
	return out.Token, nil
}
