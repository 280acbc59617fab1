package session_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradz/mastermind-server/internal/session"
	"github.com/aradz/mastermind-server/internal/store"
)

var (
	carol = session.Player{ID: "u-carol", Name: "Carol", Rating: 1300}
	dave  = session.Player{ID: "u-dave", Name: "Dave", Rating: 1100}
)

func TestFindOrCreatePairsTwoPlayers(t *testing.T) {
	ctx := context.Background()
	mgr, st, _ := newTestManager(21, session.Config{JoinLease: time.Second})

	first, err := mgr.CreateSession(ctx, carol, session.ModePvP, "1234", "")
	require.NoError(t, err)
	assert.Equal(t, session.StatusWaiting, first.Status)
	assert.Equal(t, carol.ID, first.Slots[0].Identity)
	assert.Empty(t, first.Slots[1].Identity)

	second, err := mgr.CreateSession(ctx, dave, session.ModePvP, "5678", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second player joins the waiting session")
	if second.Status == session.StatusInProgress {
		assert.Contains(t, []string{carol.ID, dave.ID}, second.Turn)
	} else {
		// The opening guess can end the game outright.
		assert.Equal(t, session.StatusCompleted, second.Status)
	}
	assert.Equal(t, dave.ID, second.Slots[1].Identity)
	assert.Equal(t, "5678", second.Slots[1].Secret)

	// Exactly one slot starts with the auto-played opening guess.
	opened := len(second.Slots[0].Guesses) + len(second.Slots[1].Guesses)
	assert.Equal(t, 1, opened)

	// A third player finds no waiting session and queues a new one.
	third, err := mgr.CreateSession(ctx, bob, session.ModePvP, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, session.StatusWaiting, third.Status)

	// The matched session is durably past waiting.
	persisted, err := st.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.NotEqual(t, session.StatusWaiting, persisted.Status)
	assert.NotEqual(t, session.StatusJoining, persisted.Status)
}

func TestFindOrCreateNeverMatchesSelf(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(22, session.Config{JoinLease: time.Second})

	first, err := mgr.CreateSession(ctx, carol, session.ModePvP, "", "")
	require.NoError(t, err)
	second, err := mgr.CreateSession(ctx, carol, session.ModePvP, "", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, session.StatusWaiting, second.Status)
	assert.Empty(t, second.Slots[1].Identity)
}

func TestFindOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(23, session.Config{JoinLease: time.Second})

	_, err := mgr.CreateSession(ctx, carol, session.ModePvP, "", "")
	require.NoError(t, err)

	// Two racing joiners: exactly one lands in Carol's session, the other
	// either queues a new waiting session or joins the loser's fresh one.
	players := []session.Player{dave, bob}
	results := make([]*session.Session, len(players))
	errs := make([]error, len(players))
	var wg sync.WaitGroup
	for i, p := range players {
		wg.Add(1)
		go func(i int, p session.Player) {
			defer wg.Done()
			results[i], errs[i] = mgr.CreateSession(ctx, p, session.ModePvP, "", "")
		}(i, p)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "player %d", i)
	}

	matched := 0
	for _, s := range results {
		if s.Slots[0].Identity == carol.ID {
			matched++
		}
	}
	assert.Equal(t, 1, matched, "exactly one joiner wins the waiting session")
}

// flakyStore wraps a Store and fails the first AtomicUpdate after arming,
// simulating a joiner that claims a session and then dies mid-join.
type flakyStore struct {
	session.Store
	mu    sync.Mutex
	armed bool
}

var errStoreDown = errors.New("store unavailable")

func (f *flakyStore) arm() {
	f.mu.Lock()
	f.armed = true
	f.mu.Unlock()
}

func (f *flakyStore) AtomicUpdate(ctx context.Context, id string, mutate func(*session.Session) error) (*session.Session, error) {
	f.mu.Lock()
	fail := f.armed
	f.armed = false
	f.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	return f.Store.AtomicUpdate(ctx, id, mutate)
}

func TestJoinLeaseRevertsStuckClaim(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{Store: store.NewMemoryStore()}
	mgr := session.NewManager(fs, nil, session.Config{JoinLease: 20 * time.Millisecond}, rand.New(rand.NewSource(24)))

	waiting, err := mgr.CreateSession(ctx, carol, session.ModePvP, "", "")
	require.NoError(t, err)

	// Dave claims the session but his join write fails; the record is left
	// in joining until the lease fires.
	fs.arm()
	_, err = mgr.CreateSession(ctx, dave, session.ModePvP, "", "")
	require.ErrorIs(t, err, errStoreDown)

	stuck, err := fs.Get(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusJoining, stuck.Status)

	require.Eventually(t, func() bool {
		s, err := fs.Get(ctx, waiting.ID)
		return err == nil && s.Status == session.StatusWaiting
	}, time.Second, 5*time.Millisecond, "lease must put the session back to waiting")

	// Once reverted the session is claimable again and the join completes.
	joined, err := mgr.CreateSession(ctx, dave, session.ModePvP, "", "")
	require.NoError(t, err)
	assert.Equal(t, waiting.ID, joined.ID)
	assert.NotEqual(t, session.StatusWaiting, joined.Status)
}

func TestSuccessfulJoinCancelsLease(t *testing.T) {
	ctx := context.Background()
	mgr, st, _ := newTestManager(25, session.Config{JoinLease: 20 * time.Millisecond})

	waiting, err := mgr.CreateSession(ctx, carol, session.ModePvP, "", "")
	require.NoError(t, err)
	joined, err := mgr.CreateSession(ctx, dave, session.ModePvP, "", "")
	require.NoError(t, err)
	require.Equal(t, waiting.ID, joined.ID)

	// Sleep well past the lease: a stray revert would knock the session
	// back to waiting.
	time.Sleep(60 * time.Millisecond)
	s, err := st.Get(ctx, waiting.ID)
	require.NoError(t, err)
	assert.NotEqual(t, session.StatusWaiting, s.Status)
	assert.Equal(t, dave.ID, s.Slots[1].Identity)
}
