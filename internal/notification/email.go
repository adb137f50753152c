package notification

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/irad15/wildfire-detection/internal/protocol"
	"github.com/irad15/wildfire-detection/pkg/config"
)

// EmailNotifier sends email notifications
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

// SendAlertNotification sends an email for an incident notification
func (e *EmailNotifier) SendAlertNotification(alert *protocol.AlertNotification) error {
	var subject string
	var body string
	var err error

	switch alert.Type {
	case protocol.AlertTypeOpened:
		subject = fmt.Sprintf("🔥 Wildfire Incident OPENED - site %s", alert.SiteID)
		body, err = e.renderOpenedTemplate(alert)
	case protocol.AlertTypeCleared:
		subject = fmt.Sprintf("✅ Wildfire Incident CLEARED - site %s", alert.SiteID)
		body, err = e.renderClearedTemplate(alert)
	default:
		return fmt.Errorf("unknown notification type: %s", alert.Type)
	}

	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return e.sendEmail(subject, body)
}

func (e *EmailNotifier) renderOpenedTemplate(alert *protocol.AlertNotification) (string, error) {
	tmpl := `
Wildfire Incident Opened
========================

Site: {{.SiteID}}{{if .Region}} ({{.Region}}){{end}}
Batch: {{.BatchID}}
Incident ID: {{.IncidentID}}
Flagged points: {{.EventCount}}
Max risk score: {{printf "%.1f" .MaxScore}}
First event: {{.FirstEvent}}
Opened at: {{.OpenedAt}}

Description:
The latest sensor batch from site {{.SiteID}} scored {{.EventCount}}
point(s) above the alert threshold. Please verify the site.

---
Wildfire Detection Notification System
`

	t, err := template.New("opened").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, alert); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) renderClearedTemplate(alert *protocol.AlertNotification) (string, error) {
	tmpl := `
Wildfire Incident Cleared
=========================

Site: {{.SiteID}}{{if .Region}} ({{.Region}}){{end}}
Incident ID: {{.IncidentID}}
Peak risk score: {{printf "%.1f" .MaxScore}}
Opened at: {{.OpenedAt}}
Cleared at: {{.ClearedAt}}

Description:
Sensor batches from site {{.SiteID}} no longer score above the alert
threshold. The incident has been closed.

---
Wildfire Detection Notification System
`

	t, err := template.New("cleared").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, alert); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, body)
		return nil
	}

	// Construct message
	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	// Setup authentication
	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	// Send email
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	// Try to connect
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	fmt.Println("SMTP connection test successful")
	return nil
}
