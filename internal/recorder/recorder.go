// Package recorder is the persistence writer for completed turns. Writes are
// fire-and-forget relative to the user-facing response: a broken analytics
// pipe must never break chat, so every failure here is logged and swallowed
// and nothing is ever rolled back.
package recorder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vireoai/convo-gateway/internal/history"
	"github.com/vireoai/convo-gateway/internal/usage"
)

const (
	defaultBuffer = 256
	writeTimeout  = 10 * time.Second
)

// Record is one turn's worth of persistence: the usage-log entry, both
// messages, and the session to timestamp. Messages and session are optional
// (workshop turns carry neither).
type Record struct {
	Usage            *usage.Entry
	UserMessage      *history.Message
	AssistantMessage *history.Message
	SessionID        string
}

type Recorder struct {
	usageStore   usage.Store
	historyStore history.Store
	log          *zap.Logger

	ch   chan Record
	wg   sync.WaitGroup
	once sync.Once
}

func New(usageStore usage.Store, historyStore history.Store, log *zap.Logger) *Recorder {
	r := &Recorder{
		usageStore:   usageStore,
		historyStore: historyStore,
		log:          log,
		ch:           make(chan Record, defaultBuffer),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Enqueue hands a record to the background writer without blocking. If the
// buffer is full the record is dropped with a log line; response latency is
// never allowed to depend on persistence.
func (r *Recorder) Enqueue(rec Record) {
	select {
	case r.ch <- rec:
	default:
		r.log.Warn("recorder buffer full, dropping record",
			zap.String("tenant_id", tenantOf(rec)),
			zap.String("session_id", rec.SessionID),
		)
	}
}

// Close stops accepting records and drains what is already buffered, within
// the context deadline.
func (r *Recorder) Close(ctx context.Context) error {
	r.once.Do(func() { close(r.ch) })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for rec := range r.ch {
		r.write(rec)
	}
}

func (r *Recorder) write(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if rec.Usage != nil {
		if err := r.usageStore.LogUsage(ctx, rec.Usage); err != nil {
			r.log.Error("failed to write usage log",
				zap.String("tenant_id", rec.Usage.TenantID),
				zap.Error(err),
			)
		}
	}

	if rec.UserMessage != nil {
		if err := r.historyStore.AppendMessage(ctx, rec.UserMessage); err != nil {
			r.log.Error("failed to append user message",
				zap.String("session_id", rec.UserMessage.SessionID),
				zap.Error(err),
			)
		}
	}

	if rec.AssistantMessage != nil {
		if err := r.historyStore.AppendMessage(ctx, rec.AssistantMessage); err != nil {
			r.log.Error("failed to append assistant message",
				zap.String("session_id", rec.AssistantMessage.SessionID),
				zap.Error(err),
			)
		}
	}

	if rec.SessionID != "" {
		if err := r.historyStore.TouchSession(ctx, rec.SessionID); err != nil {
			r.log.Error("failed to touch session",
				zap.String("session_id", rec.SessionID),
				zap.Error(err),
			)
		}
	}
}

func tenantOf(rec Record) string {
	if rec.Usage != nil {
		return rec.Usage.TenantID
	}
	return ""
}
