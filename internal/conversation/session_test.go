package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(time.Hour, time.Hour)
	t.Cleanup(m.Close)
	return m
}

func TestAcquireCreatesSessionOnFirstUse(t *testing.T) {
	m := newTestManager(t)

	lease, err := m.Acquire("tok-1")
	require.NoError(t, err)
	assert.Equal(t, 0, lease.Window().Len())
	assert.Equal(t, 1, m.Len())
	lease.Release()
}

func TestAcquireSecondLeaseRejected(t *testing.T) {
	m := newTestManager(t)

	lease, err := m.Acquire("tok-1")
	require.NoError(t, err)

	_, err = m.Acquire("tok-1")
	assert.ErrorIs(t, err, ErrSessionBusy)

	// A different session is unaffected.
	other, err := m.Acquire("tok-2")
	require.NoError(t, err)
	other.Release()

	lease.Release()

	reacquired, err := m.Acquire("tok-1")
	require.NoError(t, err)
	reacquired.Release()
}

func TestWindowSurvivesAcrossLeases(t *testing.T) {
	m := newTestManager(t)

	lease, err := m.Acquire("tok-1")
	require.NoError(t, err)
	w := lease.Window().Append(Message{Role: RoleUser, Content: "hello"})
	w = w.Append(Message{Role: RoleAssistant, Content: "hi"})
	lease.SetWindow(w)
	lease.Release()

	lease, err = m.Acquire("tok-1")
	require.NoError(t, err)
	defer lease.Release()
	msgs := lease.Window().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi", msgs[1].Content)
}

func TestReleaseIdempotent(t *testing.T) {
	m := newTestManager(t)

	lease, err := m.Acquire("tok-1")
	require.NoError(t, err)
	lease.Release()
	lease.Release()

	again, err := m.Acquire("tok-1")
	require.NoError(t, err)
	again.Release()
}

func TestSweepDropsIdleSessions(t *testing.T) {
	m := NewManager(10*time.Millisecond, time.Hour)
	defer m.Close()

	lease, err := m.Acquire("stale")
	require.NoError(t, err)
	lease.Release()
	require.Equal(t, 1, m.Len())

	m.sweep(time.Now().Add(time.Minute))
	assert.Equal(t, 0, m.Len())
}

func TestSweepSkipsHeldSessions(t *testing.T) {
	m := NewManager(10*time.Millisecond, time.Hour)
	defer m.Close()

	lease, err := m.Acquire("active")
	require.NoError(t, err)

	m.sweep(time.Now().Add(time.Minute))
	assert.Equal(t, 1, m.Len(), "a held lease keeps the session alive")
	lease.Release()
}

func TestSweepKeepsFreshSessions(t *testing.T) {
	m := newTestManager(t)

	lease, err := m.Acquire("fresh")
	require.NoError(t, err)
	lease.Release()

	m.sweep(time.Now())
	assert.Equal(t, 1, m.Len())
}
