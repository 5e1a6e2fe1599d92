// Package notify delivers device-registration confirmation codes out of band:
// by e-mail when mail is configured, otherwise on the server console.
package notify

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophbank/internal/logging"
)

const (
	Subject = "Confirmation code"
	Mailer  = "ITS-BankServer"
)

// Notifier sends a confirmation code to an account's e-mail address.
type Notifier interface {
	DeliverConfirmationCode(ctx context.Context, email, code string) error
}

// Console prints codes for the operator instead of mailing them.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	logger logging.Logger
}

func NewConsole(w io.Writer, logger logging.Logger) *Console {
	return &Console{w: w, logger: logger.With("module", "notify")}
}

func (c *Console) DeliverConfirmationCode(ctx context.Context, email, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info(ctx, "confirmation code generated", "email", email)
	_, err := fmt.Fprintf(c.w, "Generated confirmation code: %s\n", code)
	return err
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Addr     string
	User     string
	Password string
	From     string
}

// SMTP mails codes through a relay.
type SMTP struct {
	cfg    SMTPConfig
	auth   smtp.Auth
	send   SendFunc
	now    func() time.Time
	logger logging.Logger
}

func NewSMTP(cfg SMTPConfig, logger logging.Logger) *SMTP {
	var auth smtp.Auth
	if cfg.User != "" {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, host)
	}
	return &SMTP{
		cfg:    cfg,
		auth:   auth,
		send:   smtp.SendMail,
		now:    time.Now,
		logger: logger.With("module", "notify"),
	}
}

func (s *SMTP) DeliverConfirmationCode(ctx context.Context, email, code string) error {
	msg := ComposeMessage(s.cfg.From, email, code, s.now())
	if err := s.send(s.cfg.Addr, s.auth, s.cfg.From, []string{email}, msg); err != nil {
		return fmt.Errorf("send confirmation mail to %s: %w", email, err)
	}
	s.logger.Info(ctx, "confirmation code sent", "email", email)
	return nil
}

// ComposeMessage renders the RFC 5322 mail carrying code.
func ComposeMessage(from, to, code string, date time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", Subject)
	fmt.Fprintf(&b, "X-Mailer: %s\r\n", Mailer)
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Your confirmation code: %s\r\n", code)
	return []byte(b.String())
}

var (
	_ Notifier = (*Console)(nil)
	_ Notifier = (*SMTP)(nil)
)
