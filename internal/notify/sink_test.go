package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/indigo-iam/iam-service/internal/audit"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string // "to|subject"
	done chan struct{}
}

func (r *recordingSender) Send(to, subject, _, textBody string) error {
	r.mu.Lock()
	r.sent = append(r.sent, to+"|"+subject+"|"+textBody)
	r.mu.Unlock()
	select {
	case r.done <- struct{}{}:
	default:
	}
	return nil
}

func TestMailSink_ForwardsSecurityEvents(t *testing.T) {
	rec := &recordingSender{done: make(chan struct{}, 1)}
	sink := NewMailSink(rec, []string{"admin@iam.test"})

	sink.Publish(context.Background(), audit.Event{
		Category:   audit.CategorySecurity,
		AccountRef: "alice",
		Message:    "ssh key added",
		Payload:    audit.SSHKeyChange{Fingerprint: "SHA256:abc", Action: "added"},
		Time:       time.Now(),
	})

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("no mail delivered")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.sent) != 1 {
		t.Fatalf("sent = %d", len(rec.sent))
	}
	if !strings.Contains(rec.sent[0], "admin@iam.test") || !strings.Contains(rec.sent[0], "ssh key added") {
		t.Errorf("unexpected mail: %s", rec.sent[0])
	}
}

func TestMailSink_IgnoresTokenEvents(t *testing.T) {
	rec := &recordingSender{done: make(chan struct{}, 1)}
	sink := NewMailSink(rec, []string{"admin@iam.test"})

	sink.Publish(context.Background(), audit.Event{
		Category: audit.CategoryToken,
		Message:  "token revoked",
		Time:     time.Now(),
	})

	select {
	case <-rec.done:
		t.Fatal("token event should not be mailed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMailSink_NoRecipients(t *testing.T) {
	sink := NewMailSink(nil, nil)
	// must not panic with a nil sender
	sink.Publish(context.Background(), audit.Event{Category: audit.CategorySecurity})
}
