package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znwiqn/anidao/internal/apperr"
)

func TestRunOnceRecordsStatus(t *testing.T) {
	s := NewServiceScheduler()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	fail := true
	s.Register(ServiceSessionSweep, "Drops idle bot dialogues", 15*time.Minute, func(context.Context) (int, error) {
		if fail {
			return 0, errors.New("boom")
		}
		return 3, nil
	})

	err := s.RunOnce(context.Background(), ServiceSessionSweep)
	require.Error(t, err)
	st, ok := s.GetStatus(ServiceSessionSweep)
	require.True(t, ok)
	assert.Equal(t, "boom", st.LastError)
	assert.Equal(t, int64(1), st.RunCount)
	assert.False(t, st.Running)

	fail = false
	require.NoError(t, s.RunOnce(context.Background(), ServiceSessionSweep))
	st, _ = s.GetStatus(ServiceSessionSweep)
	assert.Empty(t, st.LastError)
	assert.Equal(t, 3, st.ItemsProcessed)
	assert.Equal(t, int64(2), st.RunCount)
	assert.Equal(t, now, st.LastRun)
	assert.Equal(t, now.Add(15*time.Minute), st.NextRun)
	assert.Equal(t, "15 minutes", st.Interval)
}

func TestUnknownService(t *testing.T) {
	s := NewServiceScheduler()

	err := s.RunOnce(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.True(t, errors.Is(s.SetEnabled("nope", false), apperr.ErrNotFound))
}

func TestStartRunsEnabledServices(t *testing.T) {
	s := NewServiceScheduler()
	ran := make(chan struct{}, 10)
	s.Register(ServiceFilterCache, "", time.Millisecond, func(context.Context) (int, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return 0, nil
	})
	s.Register(ServiceDatabaseProbe, "", time.Millisecond, func(context.Context) (int, error) {
		t.Error("disabled service must not run")
		return 0, nil
	})
	require.NoError(t, s.SetEnabled(ServiceDatabaseProbe, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("service never ran")
	}
}

func TestGetAllStatusIsSorted(t *testing.T) {
	s := NewServiceScheduler()
	noop := func(context.Context) (int, error) { return 0, nil }
	s.Register("b", "", time.Hour, noop)
	s.Register("a", "", time.Hour, noop)

	all := s.GetAllStatus()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1 day", formatDuration(24*time.Hour))
	assert.Equal(t, "6 hours", formatDuration(6*time.Hour))
	assert.Equal(t, "1 minute", formatDuration(time.Minute))
	assert.Equal(t, "1m30s", formatDuration(90*time.Second))
	assert.Equal(t, "500ms", formatDuration(500*time.Millisecond))
}
