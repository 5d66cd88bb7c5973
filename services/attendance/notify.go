package attendance

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

// Notifier is told about every capture whose content differs from the last
// published one.
type Notifier interface {
	Notify(ctx context.Context, capture Capture) error
}

type EmailConfig struct {
	Server       string   `json:"server" yaml:"server"`
	Port         int      `json:"port" yaml:"port"`
	EmailAddress string   `json:"email_address" yaml:"email_address"`
	Password     string   `json:"password" yaml:"password"`
	To           []string `json:"to" yaml:"to"`
}

func (c EmailConfig) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

type EmailNotifier struct {
	config EmailConfig
}

func NewEmailNotifier(config EmailConfig) EmailNotifier {
	return EmailNotifier{config: config}
}

func (n EmailNotifier) compose(capture Capture) (*email.Email, error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Attendance QR <%s>", n.config.EmailAddress)
	mail.To = n.config.To
	mail.Subject = fmt.Sprintf("New attendance QR code (%s)", capture.CapturedAt.Format(TimestampFormat))

	content := "(could not be decoded)"
	if capture.Content != nil {
		content = *capture.Content
	}
	mail.Text = []byte(fmt.Sprintf(`A new attendance QR code was captured.

Content: %s
Captured at: %s

The image is attached.`, content, capture.CapturedAt.Format(TimestampFormat)))

	_, err := mail.AttachFile(capture.Path)
	if err != nil {
		return nil, err
	}
	return mail, nil
}

func (n EmailNotifier) Notify(ctx context.Context, capture Capture) error {
	ctx, span := tracer.Start(ctx, "EmailNotifier:Notify")
	defer span.End()

	mail, err := n.compose(capture)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compose email")
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err = mail.Send(addr, smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
