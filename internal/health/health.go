// Package health runs named readiness checks for platform subsystems.
package health

import (
	"context"
	"sync"
	"time"
)

// checkTimeout bounds a single subsystem check so one stuck dependency
// cannot hold the readiness endpoint open.
const checkTimeout = 3 * time.Second

// Status is the outcome of one subsystem check.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker probes one subsystem. It must respect ctx cancellation.
type Checker func(ctx context.Context) Status

// Registry holds the registered checkers.
type Registry struct {
	mu       sync.RWMutex
	checkers []namedChecker
}

type namedChecker struct {
	name  string
	check Checker
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named checker. Registration order is preserved in
// CheckAll's output.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll probes every subsystem concurrently and reports the aggregate
// plus the individual results. A check that overruns its timeout or
// panics is reported unhealthy rather than taking the endpoint down.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	statuses = make([]Status, len(checkers))
	var wg sync.WaitGroup
	for i, nc := range checkers {
		wg.Add(1)
		go func(i int, nc namedChecker) {
			defer wg.Done()
			statuses[i] = runCheck(ctx, nc)
		}(i, nc)
	}
	wg.Wait()

	healthy = true
	for _, st := range statuses {
		if !st.Healthy {
			healthy = false
		}
	}
	return healthy, statuses
}

func runCheck(ctx context.Context, nc namedChecker) Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	done := make(chan Status, 1)
	go func() {
		defer func() {
			if recover() != nil {
				done <- Status{Name: nc.name, Healthy: false, Detail: "check panicked"}
			}
		}()
		done <- nc.check(ctx)
	}()

	select {
	case st := <-done:
		return st
	case <-ctx.Done():
		return Status{Name: nc.name, Healthy: false, Detail: "check timed out"}
	}
}
