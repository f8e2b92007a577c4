package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultBrevoURL     = "https://api.brevo.com/v3/smtp/email"
	defaultBrevoTimeout = 15 * time.Second
	defaultMaxTries     = 3
)

// BrevoError is a non-2xx answer from the Brevo API.
type BrevoError struct {
	StatusCode int
	Body       string
}

func (e *BrevoError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "brevo: authentication failed, check the API key"
	case http.StatusTooManyRequests:
		return "brevo: rate limit exceeded"
	case http.StatusBadRequest:
		return fmt.Sprintf("brevo: invalid email parameters: %s", e.Body)
	}
	return fmt.Sprintf("brevo: request failed status=%d body=%s", e.StatusCode, e.Body)
}

// Retryable reports whether a later attempt may succeed.
func (e *BrevoError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// BrevoClient sends transactional email via the Brevo SMTP API.
// See https://developers.brevo.com/reference/sendtransacemail.
type BrevoClient struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
	HTTPClient  *http.Client
	// MaxTries bounds attempts for 429 and 5xx answers.
	MaxTries uint

	backoff func() backoff.BackOff
	now     func() time.Time
}

// NewBrevoClient returns a client that uses the given API key, optional base URL and sender.
func NewBrevoClient(apiKey, baseURL, senderEmail, senderName string) *BrevoClient {
	if baseURL == "" {
		baseURL = defaultBrevoURL
	}
	return &BrevoClient{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		HTTPClient:  &http.Client{Timeout: defaultBrevoTimeout},
		MaxTries:    defaultMaxTries,
		backoff:     func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		now:         time.Now,
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	TextContent string         `json:"textContent"`
}

// SendPasswordReset renders the reset email and sends it. Does not log the code.
func (c *BrevoClient) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	if c.APIKey == "" || c.SenderEmail == "" || c.SenderName == "" {
		return ErrNotConfigured
	}
	email, err := RenderPasswordReset(msg, c.now())
	if err != nil {
		return err
	}
	name := msg.DisplayName
	if name == "" {
		name = "there"
	}
	raw, err := json.Marshal(brevoRequest{
		Sender:      brevoContact{Email: c.SenderEmail, Name: c.SenderName},
		To:          []brevoContact{{Email: msg.Email, Name: name}},
		Subject:     email.Subject,
		HTMLContent: email.HTML,
		TextContent: email.Text,
	})
	if err != nil {
		return err
	}

	tries := c.MaxTries
	if tries == 0 {
		tries = 1
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		err := c.post(ctx, raw)
		var be *BrevoError
		if errors.As(err, &be) && !be.Retryable() {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(c.backoff()), backoff.WithMaxTries(tries))
	return err
}

func (c *BrevoClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &BrevoError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return nil
}
