package data

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
)

// SMTPConfig contains the SMTP server settings
type SMTPConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// smtpSink delivers reports by email over SMTP with STARTTLS
type smtpSink struct {
	server SMTPConfig
	email  EmailConfig
	test   bool
	now    func() time.Time
}

// NewSMTPSink creates an SMTP delivery sink. With test set, mail goes to the test recipient.
func NewSMTPSink(server SMTPConfig, email EmailConfig, test bool) repo.DeliverySink {
	if server.Timeout <= 0 {
		server.Timeout = 30 * time.Second
	}
	return &smtpSink{server: server, email: email, test: test, now: time.Now}
}

func (s *smtpSink) Name() string {
	return "smtp"
}

func (s *smtpSink) recipientField() string {
	if s.test {
		return "TEST_RECIPIENT_EMAIL"
	}
	return "RECIPIENT_EMAIL"
}

// Validate checks addresses and credentials before connecting
func (s *smtpSink) Validate() error {
	missing := missingFields(map[string]string{
		"EMAIL_ADDRESS":    s.email.From,
		"EMAIL_PASSWORD":   s.email.Password,
		s.recipientField(): s.email.Recipient(s.test),
		"EMAIL_SMTP_HOST":  s.server.Host,
	})
	if s.server.Port <= 0 {
		missing = append(missing, "EMAIL_SMTP_PORT")
	}
	if len(missing) > 0 {
		return &domain.IncompleteConfigError{Sink: s.Name(), Missing: missing}
	}
	return nil
}

// Deliver sends the report. Every network step is bounded by the configured timeout and ctx.
func (s *smtpSink) Deliver(ctx context.Context, subject, body string) error {
	addr := net.JoinHostPort(s.server.Host, strconv.Itoa(s.server.Port))
	to := s.email.Recipient(s.test)

	dialer := &net.Dialer{Timeout: s.server.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(s.server.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	// Unblock the protocol exchange when ctx is cancelled early
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	client, err := smtp.NewClient(conn, s.server.Host)
	if err != nil {
		conn.Close()
		return domain.NewTransportError("smtp greeting", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.server.Host}); err != nil {
			return domain.NewTransportError("smtp starttls", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", s.email.From, s.email.Password, s.server.Host)
		if err := client.Auth(auth); err != nil {
			return domain.NewTransportError("smtp auth", err)
		}
	}

	if err := client.Mail(s.email.From); err != nil {
		return domain.NewTransportError("smtp mail from", err)
	}
	if err := client.Rcpt(to); err != nil {
		return domain.NewTransportError("smtp rcpt to", err)
	}

	w, err := client.Data()
	if err != nil {
		return domain.NewTransportError("smtp data", err)
	}
	if _, err := w.Write(buildMessage(s.email.From, to, subject, body, s.now())); err != nil {
		return domain.NewTransportError("smtp write", err)
	}
	if err := w.Close(); err != nil {
		return domain.NewTransportError("smtp data end", err)
	}

	if err := client.Quit(); err != nil {
		fmt.Printf("[SMTP] Quit failed after delivery: %v\n", err)
	}
	fmt.Printf("[SMTP] Report sent to %s\n", to)
	return nil
}
