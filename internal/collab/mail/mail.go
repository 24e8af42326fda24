// Package mail delivers finished artifacts over SMTP. Delivery is best
// effort: failures are reported but never retried here, and the caller
// decides what a failed send means.
package mail

import (
	"context"
	"fmt"
	"os"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"slidesmith/internal/pipeline"
)

// Config holds the SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends artifact emails. It implements pipeline.Deliverer.
type Mailer struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Mailer. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Configured reports whether enough settings exist to attempt a send.
func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.From != ""
}

// Send emails the artifact as an attachment with an HTML body.
func (m *Mailer) Send(ctx context.Context, recipient, subject, body, attachmentPath string) pipeline.DeliveryResult {
	if !m.Configured() {
		return pipeline.DeliveryResult{Sent: false, Detail: "smtp host or sender address not configured"}
	}
	if _, err := os.Stat(attachmentPath); err != nil {
		return pipeline.DeliveryResult{Sent: false, Detail: fmt.Sprintf("attachment unavailable: %v", err)}
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return pipeline.DeliveryResult{Sent: false, Detail: fmt.Sprintf("invalid sender address: %v", err)}
	}
	if err := msg.To(recipient); err != nil {
		return pipeline.DeliveryResult{Sent: false, Detail: fmt.Sprintf("invalid recipient address: %v", err)}
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)
	msg.AttachFile(attachmentPath)

	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.Username),
		gomail.WithPassword(m.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return pipeline.DeliveryResult{Sent: false, Detail: fmt.Sprintf("smtp client setup failed: %v", err)}
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Warn("artifact email failed",
			zap.String("recipient", recipient),
			zap.Error(err))
		return pipeline.DeliveryResult{Sent: false, Detail: fmt.Sprintf("send failed: %v", err)}
	}

	m.logger.Info("artifact email sent",
		zap.String("recipient", recipient),
		zap.String("attachment", attachmentPath))
	return pipeline.DeliveryResult{Sent: true, Detail: "sent to " + recipient}
}
