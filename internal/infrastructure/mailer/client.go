// Package mailer sends transactional mail through the plant's HTTP
// mail relay. Delivery scheduling and retries across process restarts
// live in the outbox worker; this client only performs one send.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
)

// Config holds the mail relay settings
type Config struct {
	BaseURL     string
	APIKey      string
	FromAddress string
	FromName    string
	Timeout     time.Duration
	MaxRetries  int
}

// Client is an HTTP client for the mail relay's send endpoint
type Client struct {
	http   *retryablehttp.Client
	config Config
	logger *zap.Logger
}

// NewClient creates a new mail client
func NewClient(config Config, logger *zap.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = config.MaxRetries
	rc.HTTPClient.Timeout = config.Timeout
	rc.Logger = nil

	return &Client{
		http:   rc,
		config: config,
		logger: logger,
	}
}

type sendRequest struct {
	FromAddress string `json:"from_address"`
	FromName    string `json:"from_name,omitempty"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	HTML        string `json:"html"`
}

// Send posts one message to the relay. Implements port.Mailer.
func (c *Client) Send(ctx context.Context, mail port.Mail) error {
	if mail.To == "" {
		return fmt.Errorf("mail has no recipient")
	}

	body, err := json.Marshal(sendRequest{
		FromAddress: c.config.FromAddress,
		FromName:    c.config.FromName,
		To:          mail.To,
		Subject:     mail.Subject,
		HTML:        mail.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Mail relay rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("to", mail.To))
		return fmt.Errorf("mail relay returned %d: %s", resp.StatusCode, detail)
	}

	c.logger.Debug("Mail accepted by relay",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject))
	return nil
}

var _ port.Mailer = (*Client)(nil)
