// Package notify delivers audit notifications by mail. Account and security
// events are forwarded to the configured admin recipients; everything else is
// ignored, the log sink already records it.
package notify

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/indigo-iam/iam-service/internal/observability/logger"
)

// SMTPSender sends multipart mail over SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
	}
}

// Send delivers a message with plain-text and optional HTML bodies.
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	log := logger.L().With(
		logger.Component("notify.smtp"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
		logger.String("to", to),
	)

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify,
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": STARTTLS is negotiated when the server offers it
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Debug("mail sent")
	return nil
}
