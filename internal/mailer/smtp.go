package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// SMTPMailer delivers mail over plain SMTP with AUTH PLAIN.
type SMTPMailer struct {
	host       string
	port       int
	username   string
	password   string
	from       string
	senderName string
	log        *slog.Logger
}

func NewSMTPMailer(host string, port int, username, password, from, senderName string, log *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		from:       from,
		senderName: senderName,
		log:        log,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	headers := make(map[string]string)

	if m.senderName != "" {
		headers["From"] = fmt.Sprintf("%s <%s>", m.senderName, m.from)
	} else {
		headers["From"] = m.from
	}
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = `text/html; charset="utf-8"`

	var msg strings.Builder

	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	// smtp.SendMail has no context hook; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}

	err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String()))

	if err != nil {
		m.log.Error("smtp send failed", "to", to, "host", m.host, "err", err)
		return fmt.Errorf("smtp send: %w", err)
	}

	m.log.Info("email sent", "to", to, "subject", subject)

	return nil
}
