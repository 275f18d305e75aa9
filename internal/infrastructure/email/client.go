// Package email provides the email client for sending alert escalations.
package email

import (
	"fmt"

	"github.com/resendlabs/resend-go"

	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/email/templates"
	"github.com/gingerol/examguard/pkg/config"
)

// Service defines the interface for sending escalation emails, allowing for
// mock implementations in tests.
type Service interface {
	SendAlertEscalation(alert *proctoring.Alert) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	toEmail   string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required for alert escalation")
	}
	if config.EscalationTo == "" {
		return nil, fmt.Errorf("ESCALATION_EMAIL_TO is required for alert escalation")
	}

	return &ResendClient{
		client:    resend.NewClient(config.ResendAPIKey),
		fromEmail: config.EscalationFrom,
		toEmail:   config.EscalationTo,
	}, nil
}

// SendAlertEscalation composes and sends the escalation notification for one alert.
func (c *ResendClient) SendAlertEscalation(alert *proctoring.Alert) error {
	subject := fmt.Sprintf("ExamGuard alert: %s (%s)", alert.AlertType, alert.ParticipantID)

	htmlContent := templates.GetEscalationEmailHTML(templates.EscalationEmailProps{
		ParticipantID: alert.ParticipantID,
		SessionID:     alert.SessionID,
		AlertType:     string(alert.AlertType),
		Severity:      string(alert.Severity),
		Message:       alert.Message,
		TriggeredAt:   alert.TriggeredAt,
		DashboardURL:  config.FrontendURL,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("ExamGuard <%s>", c.fromEmail),
		To:      []string{c.toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send escalation email via Resend: %w", err)
	}

	return nil
}
