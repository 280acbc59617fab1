package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradz/mastermind-server/internal/game"
	"github.com/aradz/mastermind-server/internal/session"
)

func waitingSession(id, owner string) *session.Session {
	return &session.Session{
		ID:   id,
		Mode: session.ModePvP,
		Slots: []session.PlayerSlot{
			{Identity: owner, Name: owner, Secret: "1234", Guesses: []game.GuessRecord{}},
			{Guesses: []game.GuessRecord{}},
		},
		Status:    session.StatusWaiting,
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemoryCreateGetDetached(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := waitingSession("s1", "alice")
	require.NoError(t, st.Create(ctx, s))

	got, err := st.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Slots[0].Identity)

	// Mutating the returned copy must not leak into the store.
	got.Slots[0].Identity = "mallory"
	again, err := st.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Slots[0].Identity)
}

func TestMemoryGetMissing(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryAtomicUpdate(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Create(ctx, waitingSession("s1", "alice")))

	updated, err := st.AtomicUpdate(ctx, "s1", func(s *session.Session) error {
		s.Status = session.StatusJoining
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, session.StatusJoining, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	// A mutate error leaves the stored record untouched.
	boom := errors.New("boom")
	_, err = st.AtomicUpdate(ctx, "s1", func(s *session.Session) error {
		s.Status = session.StatusAbandoned
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, err := st.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusJoining, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestMemoryClaimOneWaiting(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Create(ctx, waitingSession("s1", "alice")))

	claimed, err := st.ClaimOneWaiting(ctx, session.ModePvP)
	require.NoError(t, err)
	assert.Equal(t, "s1", claimed.ID)
	assert.Equal(t, session.StatusJoining, claimed.Status)

	// The same session cannot be claimed twice.
	_, err = st.ClaimOneWaiting(ctx, session.ModePvP)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryClaimExclusiveUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Create(ctx, waitingSession("s1", "alice")))

	var wg sync.WaitGroup
	var mu sync.Mutex
	claims := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.ClaimOneWaiting(ctx, session.ModePvP); err == nil {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claims, "exactly one concurrent caller may claim a waiting session")
}

func TestMemoryUpdateDoesNotBlockOtherSessions(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Create(ctx, waitingSession("slow", "alice")))
	require.NoError(t, st.Create(ctx, waitingSession("fast", "bob")))

	// Park an update on one session mid-mutate. Work on the other session
	// must proceed while it is held.
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := st.AtomicUpdate(ctx, "slow", func(s *session.Session) error {
			close(entered)
			<-release
			s.Status = session.StatusJoining
			return nil
		})
		assert.NoError(t, err)
	}()
	<-entered

	other := make(chan error, 1)
	go func() {
		_, err := st.AtomicUpdate(ctx, "fast", func(s *session.Session) error {
			s.Status = session.StatusJoining
			return nil
		})
		other <- err
	}()
	select {
	case err := <-other:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("update on an unrelated session blocked behind a held one")
	}

	close(release)
	<-done
	got, err := st.Get(ctx, "slow")
	require.NoError(t, err)
	assert.Equal(t, session.StatusJoining, got.Status)
}

func TestMemoryListInProgressFor(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	active := waitingSession("s1", "alice")
	active.Status = session.StatusInProgress
	active.Slots[1] = session.PlayerSlot{Identity: "bob", Guesses: []game.GuessRecord{}}
	require.NoError(t, st.Create(ctx, active))
	require.NoError(t, st.Create(ctx, waitingSession("s2", "alice")))

	got, err := st.ListInProgressFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	got, err = st.ListInProgressFor(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = st.ListInProgressFor(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, got)
}
