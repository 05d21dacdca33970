// Package audit emits a structured, append-only record for every
// pipeline lifecycle event through a worker goroutine reading off a
// buffered channel. Emit blocks on a full buffer instead of dropping
// the record, honoring the caller's context, so audit loss is
// impossible rather than merely unlikely.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the audit event kinds named in the data model.
type Kind string

const (
	Attempt         Kind = "ATTEMPT"
	Block           Kind = "BLOCK"
	Success         Kind = "SUCCESS"
	Failure         Kind = "FAILURE"
	ApprovalIssue   Kind = "APPROVAL_ISSUE"
	ApprovalConsume Kind = "APPROVAL_CONSUME"
	ApprovalReject  Kind = "APPROVAL_REJECT"
	RateLimit       Kind = "RATE_LIMIT"
	CircuitOpen     Kind = "CIRCUIT_OPEN"
	CircuitClose    Kind = "CIRCUIT_CLOSE"
	CircuitHalfOpen Kind = "CIRCUIT_HALF_OPEN"
)

// Event is one append-only audit record. EventID is a UUID used only
// as a storage/query key; it plays no part in event ordering.
type Event struct {
	EventID    string
	TS         time.Time
	Kind       Kind
	Op         string
	Reason     string
	Complexity int
	Rows       int
	TokenID    string
	Slot       int
	Phase      string
}

// Storage is a durable audit sink. Implementations must not reorder or
// drop records handed to Write.
type Storage interface {
	Write(Event) error
	Query(since time.Time, limit int) ([]Event, error)
	Prune(olderThan time.Time) (int, error)
	Close() error
}

// Config carries the emitter's tunables.
type Config struct {
	BufferSize int
}

// DefaultConfig uses a generous buffer. A full buffer never discards
// an event — it only ever makes Emit wait longer.
func DefaultConfig() Config {
	return Config{BufferSize: 1000}
}

// Emitter buffers events and writes them to Storage from a single
// background worker, preserving submission order into the durable
// sink. Non-blocking with respect to database calls in the common
// case; back-pressures the caller only when the buffer is saturated.
type Emitter struct {
	storage Storage
	logger  *slog.Logger
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
}

// New constructs an Emitter and starts its background worker.
func New(cfg Config, storage Storage, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Emitter{
		storage: storage,
		logger:  logger,
		queue:   make(chan Event, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	e.wg.Add(1)
	go e.worker()
	return e
}

// Emit enqueues an event, assigning it an EventID if it has none. It
// blocks until the event is enqueued or ctx is done — it never drops
// the event to avoid blocking, because audit loss is impossible by
// contract. Once Close has been called, Emit returns nil without
// waiting, and the event is not guaranteed to reach Storage.
func (e *Emitter) Emit(ctx context.Context, ev Event) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}

	select {
	case e.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return nil
	}
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for {
		select {
		case ev := <-e.queue:
			e.write(ev)
		case <-e.done:
			e.drain()
			return
		}
	}
}

// drain flushes any events still queued at shutdown so a Close never
// silently discards what was already accepted by Emit.
func (e *Emitter) drain() {
	for {
		select {
		case ev := <-e.queue:
			e.write(ev)
		default:
			return
		}
	}
}

func (e *Emitter) write(ev Event) {
	if err := e.storage.Write(ev); err != nil {
		e.logger.Error("audit record write failed", "error", err, "kind", ev.Kind, "op", ev.Op)
	}
}

// Close stops the worker after draining any events already enqueued.
func (e *Emitter) Close() error {
	close(e.done)
	e.wg.Wait()
	return e.storage.Close()
}

// Depth reports the current queue depth, for metrics.
func (e *Emitter) Depth() int {
	return len(e.queue)
}
