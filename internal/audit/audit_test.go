package audit

import (
	"context"
	"testing"
)

type panicSink struct{}

func (panicSink) Publish(context.Context, Event) { panic("broken sink") }

func TestFanout_SurvivesPanickingSink(t *testing.T) {
	good := NewChanSink(1)
	f := Fanout{panicSink{}, good}

	Publish(context.Background(), f, Event{Category: CategoryPolicy, Message: "m"})

	select {
	case e := <-good.C:
		if e.Category != CategoryPolicy {
			t.Fatalf("unexpected category %q", e.Category)
		}
		if e.Time.IsZero() {
			t.Fatalf("Publish must stamp the event time")
		}
	default:
		t.Fatalf("event never reached the healthy sink")
	}
}

func TestPublish_NilSink(t *testing.T) {
	// Must not panic.
	Publish(context.Background(), nil, Event{Category: CategoryToken})
}

func TestEventKind(t *testing.T) {
	e := Event{Payload: SSHKeyChange{Fingerprint: "SHA256:x", Action: "added"}}
	if e.Kind() != "ssh-key" {
		t.Fatalf("unexpected kind %q", e.Kind())
	}
	if (Event{}).Kind() != "" {
		t.Fatalf("payload-less event must have empty kind")
	}
}

func TestChanSink_DropsWhenFull(t *testing.T) {
	s := NewChanSink(1)
	s.Publish(context.Background(), Event{Message: "first"})
	s.Publish(context.Background(), Event{Message: "second"}) // dropped

	if e := <-s.C; e.Message != "first" {
		t.Fatalf("unexpected event %q", e.Message)
	}
	select {
	case e := <-s.C:
		t.Fatalf("expected drop, got %q", e.Message)
	default:
	}
}
