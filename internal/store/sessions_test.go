package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	closed atomic.Int32
}

func (f *fakeSession) Close() { f.closed.Add(1) }

func TestSessionsGetTouches(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessions[*fakeSession](time.Minute)
	s.now = func() time.Time { return now }

	a := &fakeSession{}
	s.Put("a", "10.0.0.1", a)
	now = now.Add(50 * time.Second)
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, "10.0.0.1", s.ClientIP("a"))

	now = now.Add(50 * time.Second)
	assert.Equal(t, 0, s.Sweep(), "touched 50s ago")
	now = now.Add(11 * time.Second)
	assert.Equal(t, 1, s.Sweep())
	assert.EqualValues(t, 1, a.closed.Load())
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestSessionsDeleteClosesOnce(t *testing.T) {
	s := NewSessions[*fakeSession](time.Minute)
	a := &fakeSession{}
	s.Put("a", "", a)

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.EqualValues(t, 1, a.closed.Load())
	assert.Equal(t, 0, s.Len())
}

func TestSessionsPutReplaces(t *testing.T) {
	s := NewSessions[*fakeSession](time.Minute)
	a, b := &fakeSession{}, &fakeSession{}
	s.Put("x", "", a)
	s.Put("x", "", b)
	assert.EqualValues(t, 1, a.closed.Load())
	assert.EqualValues(t, 0, b.closed.Load())
	assert.Equal(t, 1, s.Len())
}

func TestSessionsRunClosesAllOnCancel(t *testing.T) {
	s := NewSessions[*fakeSession](time.Hour)
	a, b := &fakeSession{}, &fakeSession{}
	s.Put("a", "", a)
	s.Put("b", "", b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.EqualValues(t, 1, a.closed.Load())
	assert.EqualValues(t, 1, b.closed.Load())
	assert.Equal(t, 0, s.Len())
}
