// Package templates provides email template rendering
package templates

import (
	"bytes"
	"html/template"
	"log"
	"time"
)

// EscalationEmailProps carries the alert details into the template.
type EscalationEmailProps struct {
	ParticipantID string
	SessionID     string
	AlertType     string
	Severity      string
	Message       string
	TriggeredAt   time.Time
	DashboardURL  string
}

var escalationTemplate = template.Must(template.New("escalationEmail").Parse(`
<!doctype html>
<html lang="en">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>ExamGuard Alert</title>
  </head>
  <body style="font-family: Helvetica, sans-serif; font-size: 16px; line-height: 1.3; background-color: #f4f5f6; margin: 0; padding: 0;">
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" width="100%" bgcolor="#f4f5f6">
      <tr>
        <td>&nbsp;</td>
        <td style="max-width: 600px; padding-top: 24px; width: 600px; margin: 0 auto;" width="600" valign="top">
          <table role="presentation" border="0" cellpadding="0" cellspacing="0" width="100%" style="background: #ffffff; border: 1px solid #eaebed; border-radius: 16px;">
            <tr>
              <td style="padding: 24px;" valign="top">
                <h2 style="margin-top: 0;">Proctoring alert: {{.AlertType}}</h2>
                <p>A {{.Severity}}-severity alert was raised during a monitored exam session.</p>
                <table role="presentation" border="0" cellpadding="4" cellspacing="0">
                  <tr><td><strong>Participant</strong></td><td>{{.ParticipantID}}</td></tr>
                  <tr><td><strong>Session</strong></td><td>{{.SessionID}}</td></tr>
                  <tr><td><strong>Detail</strong></td><td>{{.Message}}</td></tr>
                  <tr><td><strong>Time</strong></td><td>{{.TriggeredAt}}</td></tr>
                </table>
                {{if .DashboardURL}}<p><a href="{{.DashboardURL}}" style="color: #0867ec;">Open the monitoring dashboard</a></p>{{end}}
              </td>
            </tr>
          </table>
          <div style="padding-top: 24px; text-align: center; color: #9a9ea6;">
            Sent by ExamGuard exam monitoring
          </div>
        </td>
        <td>&nbsp;</td>
      </tr>
    </table>
  </body>
</html>`))

type escalationTemplateData struct {
	ParticipantID string
	SessionID     string
	AlertType     string
	Severity      string
	Message       string
	TriggeredAt   string
	DashboardURL  string
}

// GetEscalationEmailHTML renders the escalation notification body.
func GetEscalationEmailHTML(props EscalationEmailProps) string {
	data := escalationTemplateData{
		ParticipantID: props.ParticipantID,
		SessionID:     props.SessionID,
		AlertType:     props.AlertType,
		Severity:      props.Severity,
		Message:       props.Message,
		TriggeredAt:   props.TriggeredAt.UTC().Format(time.RFC1123),
		DashboardURL:  props.DashboardURL,
	}

	var buf bytes.Buffer
	if err := escalationTemplate.Execute(&buf, data); err != nil {
		log.Printf("Error executing escalation email template: %v", err)
		return "<html><body>Template execution error</body></html>"
	}
	return buf.String()
}
