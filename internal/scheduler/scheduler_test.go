package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidCron(t *testing.T) {
	_, err := New("not a cron")
	assert.Error(t, err)
}

func TestRunOnceRunsAllJobs(t *testing.T) {
	var order []string
	s, err := New("*/5 * * * *",
		Job{Name: "first", Run: func(ctx context.Context) error {
			order = append(order, "first")
			return errors.New("boom")
		}},
		Job{Name: "second", Run: func(ctx context.Context) error {
			order = append(order, "second")
			return nil
		}},
	)
	require.NoError(t, err)

	assert.True(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRunOnceSkipsOverlappingRuns(t *testing.T) {
	var nested bool
	var s *Scheduler
	s, err := New("* * * * *", Job{Name: "reentrant", Run: func(ctx context.Context) error {
		nested = s.RunOnce(ctx)
		return nil
	}})
	require.NoError(t, err)

	assert.True(t, s.RunOnce(context.Background()))
	assert.False(t, nested)
}
