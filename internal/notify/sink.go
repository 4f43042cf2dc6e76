package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/observability/logger"
)

// Sender is the mail transport the sink writes to.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// MailSink is an audit.Sink that mails account and security events to the
// admin recipients. Delivery happens on a separate goroutine per event;
// failures are logged and dropped, audit delivery is fire and forget.
type MailSink struct {
	sender     Sender
	recipients []string
}

func NewMailSink(sender Sender, recipients []string) *MailSink {
	return &MailSink{sender: sender, recipients: recipients}
}

func (s *MailSink) Publish(ctx context.Context, e audit.Event) {
	if len(s.recipients) == 0 {
		return
	}
	switch e.Category {
	case audit.CategoryAccount, audit.CategorySecurity:
	default:
		return
	}

	subject := fmt.Sprintf("[iam] %s: %s", strings.ToLower(string(e.Category)), e.Message)
	body := renderText(e)

	go func() {
		for _, to := range s.recipients {
			if err := s.sender.Send(to, subject, "", body); err != nil {
				logger.L().Warn("audit mail delivery failed",
					logger.Component("notify.sink"),
					logger.String("to", to),
					logger.Err(err),
				)
			}
		}
	}()
}

func renderText(e audit.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "category: %s\n", e.Category)
	fmt.Fprintf(&b, "event:    %s\n", e.Kind())
	if e.AccountRef != "" {
		fmt.Fprintf(&b, "account:  %s\n", e.AccountRef)
	}
	fmt.Fprintf(&b, "time:     %s\n", e.Time.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "\n%s\n", e.Message)
	return b.String()
}
