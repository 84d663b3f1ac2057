package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiryAndTouch(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager[int64, string]("test", time.Minute)
	m.SetClock(func() time.Time { return now })

	m.Set(1, "a")
	now = now.Add(50 * time.Second)
	m.Touch(1)

	now = now.Add(50 * time.Second)
	v, ok := m.Get(1)
	assert.True(t, ok, "touch extends the deadline")
	assert.Equal(t, "a", v)

	now = now.Add(2 * time.Minute)
	_, ok = m.Get(1)
	assert.False(t, ok)
	assert.Zero(t, m.Len(), "expired entry dropped on access")
}

func TestCleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager[string, int]("test", time.Minute)
	m.SetClock(func() time.Time { return now })

	m.Set("old", 1)
	now = now.Add(45 * time.Second)
	m.Set("new", 2)
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, m.Cleanup())
	assert.Equal(t, 1, m.Len())

	m.Delete("new")
	assert.Zero(t, m.Len())
}
