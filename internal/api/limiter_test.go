package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActorLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newActorLimiter(1, 2)
	l.nowFunc = func() time.Time { return now }

	assert.True(t, l.Allow("alice"))
	assert.True(t, l.Allow("alice"))
	assert.False(t, l.Allow("alice"), "burst exhausted")
	assert.True(t, l.Allow("bob"), "actors have separate budgets")
	assert.Equal(t, time.Second, l.RetryAfter("alice"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("alice"), "one token refilled")
	assert.False(t, l.Allow("alice"))
}

func TestActorLimiterEvictsIdleActors(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newActorLimiter(1, 1)
	l.nowFunc = func() time.Time { return now }

	l.Allow("alice")
	now = now.Add(l.idleTTL + time.Second)
	l.Allow("bob")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.actors, "alice")
	assert.Contains(t, l.actors, "bob")
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	l := newActorLimiter(0, 0)
	assert.Nil(t, l)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("alice"))
	}
	assert.Zero(t, l.RetryAfter("alice"))
}
