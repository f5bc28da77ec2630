package voice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

// Negotiator exchanges a local SDP offer for the remote answer with a single
// POST to the realtime endpoint.
type Negotiator struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	logger  *logging.Logger
}

// NewNegotiator creates a Negotiator. A nil client gets a 30s-timeout default.
func NewNegotiator(baseURL, model, apiKey string, client *http.Client, logger *logging.Logger) *Negotiator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/realtime"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Negotiator{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
	}
}

// Negotiate posts the offer SDP and returns the answer SDP. HTTP failures are
// classified so the caller can show a precise message.
func (n *Negotiator) Negotiate(ctx context.Context, offerSDP string) (string, error) {
	endpoint := fmt.Sprintf("%s?model=%s", n.baseURL, url.QueryEscape(n.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(offerSDP))
	if err != nil {
		return "", fmt.Errorf("voice: build negotiation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", newSessionError(FailureNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("voice: read negotiation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Error("negotiation rejected",
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(body)),
		)
		return "", classifyNegotiationStatus(resp.StatusCode)
	}

	return string(body), nil
}

func classifyNegotiationStatus(status int) *SessionError {
	err := fmt.Errorf("voice: negotiation failed with status %d", status)
	switch {
	case status == http.StatusUnauthorized:
		return newSessionError(FailureAuth, err)
	case status == http.StatusTooManyRequests:
		return newSessionError(FailureRateLimited, err)
	case status >= 500:
		return newSessionError(FailureServiceUnavailable, err)
	default:
		return newSessionError(FailureUnknown, err)
	}
}
