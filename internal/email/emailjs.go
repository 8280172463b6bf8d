package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"example.com/fittrack/internal/domain"
)

// DefaultEmailJSEndpoint is the hosted EmailJS send API.
const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSConfig identifies the EmailJS account and templates.
type EmailJSConfig struct {
	Endpoint       string
	ServiceID      string
	PublicKey      string
	WeeklyTemplate string
	AITemplate     string
	Timeout        time.Duration
}

// EmailJSClient posts reports to EmailJS, which renders them with hosted templates.
type EmailJSClient struct {
	client *http.Client
	cfg    EmailJSConfig
}

// NewEmailJSClient constructs an EmailJSClient.
func NewEmailJSClient(cfg EmailJSConfig) *EmailJSClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEmailJSEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &EmailJSClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

type emailJSRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams map[string]any `json:"template_params"`
}

func (c *EmailJSClient) templateFor(variant domain.ReportVariant) string {
	if variant == domain.ReportVariantAI {
		return c.cfg.AITemplate
	}
	return c.cfg.WeeklyTemplate
}

// Send implements Sender.
func (c *EmailJSClient) Send(ctx context.Context, report domain.WeeklyReport) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:      c.cfg.ServiceID,
		TemplateID:     c.templateFor(report.Variant),
		UserID:         c.cfg.PublicKey,
		TemplateParams: TemplateParams(report),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		deliveries.WithLabelValues(transportEmailJS, resultError).Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		deliveries.WithLabelValues(transportEmailJS, resultRejected).Inc()
		return &DeliveryError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}
	deliveries.WithLabelValues(transportEmailJS, resultOK).Inc()
	return nil
}

// DeliveryError represents a send rejected by the email provider.
type DeliveryError struct {
	Status int
	Detail string
}

func (e *DeliveryError) Error() string {
	msg := "email delivery failed with status " + http.StatusText(e.Status)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
