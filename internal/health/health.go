// Package health checks the components a running ecolab depends on.
package health

import (
	"context"
	"sync"
	"time"
)

// Status is the outcome of one check or of a whole report.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// DefaultTimeout bounds each check when the checker has none set.
const DefaultTimeout = 2 * time.Second

// CheckFunc checks one component. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Check is the result of one component check.
type Check struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
	Latency  int64  `json:"latencyMs"`
}

// Report aggregates every check. A failing critical component takes the
// report down; a failing optional one only degrades it.
type Report struct {
	Status    Status    `json:"status"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checkedAt"`
}

type component struct {
	name     string
	critical bool
	fn       CheckFunc
}

// Checker runs registered component checks concurrently.
type Checker struct {
	timeout    time.Duration
	components []component
}

// NewChecker returns a Checker that bounds each check by timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{timeout: timeout}
}

// Add registers a component. Checks are reported in registration order.
func (c *Checker) Add(name string, critical bool, fn CheckFunc) *Checker {
	c.components = append(c.components, component{name: name, critical: critical, fn: fn})
	return c
}

// Run checks every component and aggregates the results.
func (c *Checker) Run(ctx context.Context) *Report {
	checks := make([]Check, len(c.components))

	var wg sync.WaitGroup
	for i, p := range c.components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = c.run(ctx, p)
		}()
	}
	wg.Wait()

	return &Report{
		Status:    aggregate(checks),
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

func (c *Checker) run(ctx context.Context, p component) Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	// Buffered so a check that ignores ctx can finish later without blocking.
	done := make(chan error, 1)
	go func() { done <- p.fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	check := Check{
		Name:     p.name,
		Status:   StatusOK,
		Critical: p.critical,
		Latency:  time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusDown
		check.Error = err.Error()
	}
	return check
}

// aggregate derives the report status from individual checks.
func aggregate(checks []Check) Status {
	status := StatusOK
	for _, c := range checks {
		if c.Status == StatusOK {
			continue
		}
		if c.Critical {
			return StatusDown
		}
		status = StatusDegraded
	}
	return status
}
