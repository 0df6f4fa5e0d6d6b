package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/infra/config"
	"github.com/SwagatoSarowar/Natours/internal/infra/logger"
)

const defaultSendTimeout = 10 * time.Second

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers mail through a single SMTP relay.
type SMTPMailer struct {
	addr    string
	auth    smtp.Auth
	from    string
	timeout time.Duration
	send    sendFunc
	logger  *zap.Logger
}

// NewSMTPMailer builds a mailer from mail settings. Auth is only used when a
// username is configured.
func NewSMTPMailer(cfg config.MailSettings, log *zap.Logger) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("mail: smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("mail: from address is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}

	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	return &SMTPMailer{
		addr:    net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth:    auth,
		from:    cfg.From,
		timeout: timeout,
		send:    smtp.SendMail,
		logger:  log,
	}, nil
}

// Send writes msg to the relay. It gives up when ctx is done or the send
// timeout elapses; the SMTP exchange itself cannot be interrupted.
func (m *SMTPMailer) Send(ctx context.Context, msg domain.MailMessage) error {
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("mail: header values must not contain line breaks")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	raw := m.compose(msg)
	done := make(chan error, 1)
	go func() {
		done <- m.send(m.addr, m.auth, envelopeAddress(m.from), []string{msg.To}, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: smtp send: %w", err)
		}
		logger.WithContext(ctx, m.logger).Info("mail sent", zap.String("to", logger.MaskEmail(msg.To)))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail: smtp send: %w", ctx.Err())
	}
}

func (m *SMTPMailer) compose(msg domain.MailMessage) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// envelopeAddress strips a display name: "Natours <a@b>" becomes "a@b".
func envelopeAddress(from string) string {
	if start := strings.LastIndex(from, "<"); start >= 0 {
		if end := strings.LastIndex(from, ">"); end > start {
			return from[start+1 : end]
		}
	}
	return strings.TrimSpace(from)
}

var _ port.Mailer = (*SMTPMailer)(nil)
