// Package email implements report delivery through the Mailjet send API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Aputze/deep-research/pkg/domain"
	"github.com/Aputze/deep-research/pkg/observability"
)

// MailjetClient sends email through the Mailjet v3.1 send API
type MailjetClient struct {
	baseURL     string
	apiKey      string
	apiSecret   string
	fromAddress string
	fromName    string
	toAddress   string
	httpClient  *http.Client
	logger      *observability.StructuredLogger
}

// MailjetOptions configures the Mailjet client
type MailjetOptions struct {
	BaseURL     string
	APIKey      string
	APISecret   string
	FromAddress string
	FromName    string
	ToAddress   string
	Timeout     time.Duration
}

// NewMailjetClient creates a new Mailjet client
func NewMailjetClient(opts MailjetOptions) *MailjetClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.mailjet.com"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	return &MailjetClient{
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		apiSecret:   opts.APISecret,
		fromAddress: opts.FromAddress,
		fromName:    opts.FromName,
		toAddress:   opts.ToAddress,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: observability.NewStructuredLogger("email.mailjet"),
	}
}

type mailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetMessage struct {
	From     mailjetAddress   `json:"From"`
	To       []mailjetAddress `json:"To"`
	Subject  string           `json:"Subject"`
	HTMLPart string           `json:"HTMLPart"`
}

type mailjetRequest struct {
	Messages []mailjetMessage `json:"Messages"`
}

// Send sends one email. Missing credentials are a configuration condition,
// reported as an error-status result with a nil error.
func (c *MailjetClient) Send(ctx context.Context, subject, htmlBody string) (*domain.DeliveryResult, error) {
	c.logger.Info(ctx, "attempting to send email", map[string]interface{}{
		"subject": subject,
	})

	if c.apiKey == "" || c.apiSecret == "" {
		msg := "MAILJET_API_KEY or MAILJET_API_SECRET not configured. Email not sent."
		c.logger.Warn(ctx, msg)
		return &domain.DeliveryResult{
			Status:  domain.DeliveryError,
			Message: msg,
		}, nil
	}

	reqBody := mailjetRequest{
		Messages: []mailjetMessage{
			{
				From: mailjetAddress{
					Email: c.fromAddress,
					Name:  c.fromName,
				},
				To: []mailjetAddress{
					{Email: c.toAddress},
				},
				Subject:  subject,
				HTMLPart: htmlBody,
			},
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v3.1/send", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ServiceError{Service: "email", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	c.logger.Info(ctx, "email response received", map[string]interface{}{
		"status_code": resp.StatusCode,
	})

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("Mailjet API returned status %d", resp.StatusCode)
		c.logger.Error(ctx, msg, nil, map[string]interface{}{
			"response_body": string(body),
		})
		return &domain.DeliveryResult{
			Status:  domain.DeliveryError,
			Message: msg,
		}, nil
	}

	c.logger.Info(ctx, "email sent successfully")
	return &domain.DeliveryResult{Status: domain.DeliverySuccess}, nil
}
