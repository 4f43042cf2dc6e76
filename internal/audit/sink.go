package audit

import (
	"context"
	"time"

	"github.com/indigo-iam/iam-service/internal/observability/logger"
)

// Sink receives audit events. Publish is fire-and-forget: implementations
// must never panic and never surface failures to the caller, so a failed
// publish can never roll back the transaction that produced the event.
type Sink interface {
	Publish(ctx context.Context, e Event)
}

// Publish stamps the event time if unset and hands it to the sink. Nil sinks
// are tolerated so services can run without auditing wired.
func Publish(ctx context.Context, sink Sink, e Event) {
	if sink == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	sink.Publish(ctx, e)
}

// LoggerSink writes events through the zap singleton.
type LoggerSink struct{}

func (LoggerSink) Publish(ctx context.Context, e Event) {
	logger.From(ctx).Info("audit",
		logger.String("category", string(e.Category)),
		logger.String("kind", e.Kind()),
		logger.String("account_ref", e.AccountRef),
		logger.String("message", e.Message),
		logger.Any("payload", e.Payload),
	)
}

// Fanout delivers each event to every wrapped sink, recovering from panics
// so one broken sink cannot take the others down.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, e Event) {
	for _, s := range f {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(ctx).Warn("audit sink panicked",
						logger.String("category", string(e.Category)),
						logger.Any("panic", rec),
					)
				}
			}()
			s.Publish(ctx, e)
		}()
	}
}

// ChanSink buffers events on a channel; events are dropped when the buffer is
// full. Intended for tests and for polling consumers.
type ChanSink struct {
	C chan Event
}

func NewChanSink(size int) *ChanSink {
	return &ChanSink{C: make(chan Event, size)}
}

func (s *ChanSink) Publish(_ context.Context, e Event) {
	select {
	case s.C <- e:
	default:
	}
}
