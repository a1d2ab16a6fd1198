package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// The expirable LRU runs a cleanup goroutine for its whole lifetime.
		goleak.IgnoreAnyFunction("github.com/hashicorp/golang-lru/v2/expirable.NewLRU[...].func1"),
	)
}

func TestAttemptTracker_SlidingWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewAttemptTracker(3, 5*time.Minute, 10)
	tr.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		assert.False(t, tr.Blocked("1.2.3.4"))
		tr.Fail("1.2.3.4")
	}
	assert.True(t, tr.Blocked("1.2.3.4"))
	assert.False(t, tr.Blocked("5.6.7.8"))

	now = now.Add(5*time.Minute + time.Second)
	assert.False(t, tr.Blocked("1.2.3.4"), "old attempts fall out of the window")
}

func TestAttemptTracker_Bounded(t *testing.T) {
	tr := NewAttemptTracker(1, time.Hour, 3)
	for i := 0; i < 10; i++ {
		tr.Fail(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, 3, tr.Len())
	assert.False(t, tr.Blocked("10.0.0.0"), "oldest IP was evicted")
	assert.True(t, tr.Blocked("10.0.0.9"))

	tr.Reset("10.0.0.9")
	assert.False(t, tr.Blocked("10.0.0.9"))
}

func TestAuthenticator(t *testing.T) {
	a := NewAuthenticator("s3cret", NewAttemptTracker(2, time.Minute, 10))

	assert.NoError(t, a.Authorize("1.1.1.1", "s3cret"))
	assert.ErrorIs(t, a.Authorize("1.1.1.1", ""), ErrUnauthorized)
	assert.ErrorIs(t, a.Authorize("1.1.1.1", "guess"), ErrUnauthorized)
	assert.ErrorIs(t, a.Authorize("1.1.1.1", "s3cret"), ErrTooManyAttempts, "locked out even with the right key")
	assert.NoError(t, a.Authorize("2.2.2.2", "s3cret"))
}

func TestAuthenticator_EmptySecretDisablesAdmin(t *testing.T) {
	a := NewAuthenticator("", nil)
	assert.ErrorIs(t, a.Authorize("1.1.1.1", ""), ErrUnauthorized)
	assert.ErrorIs(t, a.Authorize("1.1.1.1", "anything"), ErrUnauthorized)
}
