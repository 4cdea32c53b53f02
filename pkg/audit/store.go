// Package audit records every question asked through adminqa.
package audit

import (
	"context"
	"sync"
	"time"
)

// Status is the outcome of a question.
type Status string

const (
	StatusAnswered Status = "answered"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Event is one question attempt. Credentials are never part of an event.
type Event struct {
	ID         string
	RunID      string
	Role       string
	Question   string
	Rows       int
	Status     Status
	Answer     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store persists audit events.
type Store interface {
	Record(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Filter limits audit event queries. Limit keeps the most recent events.
type Filter struct {
	Role   string
	Status Status
	Limit  int
}

func (f Filter) match(ev Event) bool {
	if f.Role != "" && ev.Role != f.Role {
		return false
	}
	if f.Status != "" && ev.Status != f.Status {
		return false
	}
	return true
}

// MemoryStore keeps audit events in memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryStore returns an in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends an audit event.
func (s *MemoryStore) Record(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns filtered audit events, newest first.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if !filter.match(ev) {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// normalizeTime ensures timestamps are in UTC.
func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
