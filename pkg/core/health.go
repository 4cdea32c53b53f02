// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	// HealthHealthy indicates the component is fully operational.
	HealthHealthy HealthStatus = "HEALTHY"

	// HealthDegraded indicates the component works with reduced capability,
	// for example an empty dataset.
	HealthDegraded HealthStatus = "DEGRADED"

	// HealthUnhealthy indicates the component is not operational.
	HealthUnhealthy HealthStatus = "UNHEALTHY"
)

// HealthResult represents the result of a health check.
type HealthResult struct {
	Status    HealthStatus `json:"status"`
	Component string       `json:"component"`
	Message   string       `json:"message,omitempty"`
	LastCheck time.Time    `json:"last_check"`
}

// HealthChecker checks the health of a component.
type HealthChecker interface {
	Check(ctx context.Context) HealthResult
}

// HealthCheckerFunc adapts a function to HealthChecker.
type HealthCheckerFunc func(ctx context.Context) HealthResult

func (f HealthCheckerFunc) Check(ctx context.Context) HealthResult { return f(ctx) }

// Health keeps the registered checkers.
type Health struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	now      func() time.Time
}

// NewHealth creates an empty registry.
func NewHealth() *Health {
	return &Health{checkers: make(map[string]HealthChecker), now: time.Now}
}

// Register adds or replaces the checker for name.
func (h *Health) Register(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// CheckAll runs every checker in name order. The overall status is the worst
// individual status; no checkers means healthy.
func (h *Health) CheckAll(ctx context.Context) ([]HealthResult, HealthStatus) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	overall := HealthHealthy
	results := make([]HealthResult, 0, len(names))
	for _, name := range names {
		res := checkers[name].Check(ctx)
		if res.Component == "" {
			res.Component = name
		}
		if res.LastCheck.IsZero() {
			res.LastCheck = h.now()
		}
		results = append(results, res)
		overall = worse(overall, res.Status)
	}
	return results, overall
}

func worse(a, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{HealthHealthy: 0, HealthDegraded: 1, HealthUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
