package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func TestRun_AllHealthy(t *testing.T) {
	r := NewChecker(time.Second).
		Add("database", true, ok).
		Add("archive", false, ok).
		Run(context.Background())

	assert.Equal(t, StatusOK, r.Status)
	require.Len(t, r.Checks, 2)
	assert.Equal(t, "database", r.Checks[0].Name)
	assert.Equal(t, "archive", r.Checks[1].Name)
	assert.False(t, r.CheckedAt.IsZero())
}

func TestRun_OptionalFailureDegrades(t *testing.T) {
	r := NewChecker(time.Second).
		Add("database", true, ok).
		Add("archive", false, failing("bucket unreachable")).
		Run(context.Background())

	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, StatusDown, r.Checks[1].Status)
	assert.Equal(t, "bucket unreachable", r.Checks[1].Error)
}

func TestRun_CriticalFailureTakesDown(t *testing.T) {
	r := NewChecker(time.Second).
		Add("database", true, failing("closed")).
		Add("archive", false, failing("nope")).
		Run(context.Background())

	assert.Equal(t, StatusDown, r.Status)
}

func TestRun_CheckTimeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	r := NewChecker(20*time.Millisecond).Add("slow", true, slow).Run(context.Background())

	assert.Equal(t, StatusDown, r.Status)
	assert.Contains(t, r.Checks[0].Error, "deadline exceeded")
}

func TestRun_NoComponents(t *testing.T) {
	r := NewChecker(0).Run(context.Background())
	assert.Equal(t, StatusOK, r.Status)
	assert.Empty(t, r.Checks)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		want   Status
	}{
		{"empty", nil, StatusOK},
		{"all ok", []Check{{Status: StatusOK, Critical: true}}, StatusOK},
		{"optional down", []Check{{Status: StatusOK, Critical: true}, {Status: StatusDown}}, StatusDegraded},
		{"critical down", []Check{{Status: StatusDown}, {Status: StatusDown, Critical: true}}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aggregate(tt.checks))
		})
	}
}

func TestRun_CheckIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stuck := func(context.Context) error {
		<-release
		return nil
	}

	start := time.Now()
	r := NewChecker(20*time.Millisecond).
		Add("stuck", false, stuck).
		Add("database", true, ok).
		Run(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, StatusDown, r.Checks[0].Status)
	assert.Contains(t, r.Checks[0].Error, "deadline exceeded")
	assert.Equal(t, StatusOK, r.Checks[1].Status)
}
