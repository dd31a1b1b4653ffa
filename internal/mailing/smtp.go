package mailing

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SMTPConfig configures SMTPTransport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// RequireTLS fails delivery when the server does not offer STARTTLS.
	RequireTLS bool

	// InsecureSkipVerify disables certificate checks. Lab relays only.
	InsecureSkipVerify bool
}

// SMTPTransport submits mail over SMTP with opportunistic STARTTLS and
// optional PLAIN auth. Each Deliver opens its own connection, so the
// transport is safe for concurrent use.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport creates an SMTP transport.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPTransport{cfg: cfg}
}

// Name identifies the transport in logs.
func (t *SMTPTransport) Name() string { return "smtp" }

// Deliver sends env in one attempt. The whole exchange is bounded by ctx.
func (t *SMTPTransport) Deliver(ctx context.Context, env Envelope) error {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	dialer := &net.Dialer{Timeout: 30 * time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("SMTP connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	// Unblock any in-flight read or write if ctx is cancelled early.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	c, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP client: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{ServerName: t.cfg.Host, InsecureSkipVerify: t.cfg.InsecureSkipVerify}
		if err := c.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	} else if t.cfg.RequireTLS {
		return fmt.Errorf("SMTP server %s does not offer STARTTLS", addr)
	}

	if t.cfg.Password != "" {
		user := t.cfg.Username
		if user == "" {
			user = env.FromEmail
		}
		if err := c.Auth(smtp.PlainAuth("", user, t.cfg.Password, t.cfg.Host)); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := c.Mail(env.FromEmail); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := c.Rcpt(env.To); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(buildMIME(env)); err != nil {
		w.Close()
		return fmt.Errorf("SMTP write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("SMTP end of data: %w", err)
	}
	return c.Quit()
}

// buildMIME assembles a single-part HTML message.
func buildMIME(env Envelope) []byte {
	var b bytes.Buffer
	from := env.FromEmail
	if env.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", env.FromName), env.FromEmail)
	}
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", env.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", env.Subject))
	fmt.Fprintf(&b, "Message-ID: <%s@phishing-simulator>\r\n", uuid.New().String())
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(env.HTML)
	b.WriteString("\r\n")
	return b.Bytes()
}
