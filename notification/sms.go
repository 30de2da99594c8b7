package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// SMSSender delivers confirmation codes through an HTTP SMS gateway.
type SMSSender struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
}

var _ Sender = (*SMSSender)(nil)

type SMSSenderOption func(*SMSSender)

// WithHTTPClient overrides the HTTP client (primarily for testing)
func WithHTTPClient(client *http.Client) SMSSenderOption {
	return func(s *SMSSender) {
		s.client = client
	}
}

func NewSMSSender(gatewayURL, apiKey string, options ...SMSSenderOption) *SMSSender {
	s := &SMSSender{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *SMSSender) SendConfirmationCode(ctx context.Context, destination, code string) error {
	body, err := json.Marshal(map[string]string{
		"to":      destination,
		"message": fmt.Sprintf("%s is your confirmation code.", code),
	})
	if err != nil {
		return errors.Wrap(err, "[SMSSender.SendConfirmationCode] marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "[SMSSender.SendConfirmationCode] build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "[SMSSender.SendConfirmationCode] gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Errorf("[SMSSender.SendConfirmationCode] gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
