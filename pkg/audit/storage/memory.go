// Package storage provides durable backends for the audit emitter:
// SQLite for durability, an in-memory option for tests and local
// development.
package storage

import (
	"sort"
	"sync"
	"time"

	"oracleguard/gateway/pkg/audit"
)

// Memory is an in-process, non-durable audit.Storage backed by a slice
// guarded by a mutex. Intended for tests and local `lint`-style runs
// that never start a real pool.
type Memory struct {
	mu     sync.Mutex
	events []audit.Event
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Write(ev audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) Query(since time.Time, limit int) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []audit.Event
	for _, ev := range m.events {
		if ev.TS.After(since) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Prune(olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	pruned := 0
	for _, ev := range m.events {
		if ev.TS.Before(olderThan) {
			pruned++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return pruned, nil
}

func (m *Memory) Close() error { return nil }
