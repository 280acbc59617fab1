// internal/session/matchmaker.go
//
// PvP matchmaking: find-or-create over waiting sessions.
//
// A claim and the completed join are two separate store operations, so a
// crash between them would strand the session in joining forever. Each claim
// therefore schedules a lease-expiry action holding a cancel handle: if the
// join finishes first the timer is stopped; if the timer fires first and the
// record still says joining, it reverts to waiting and becomes claimable
// again. The revert is fire-and-forget — its failure is logged and dropped,
// never surfaced to the original caller.

package session

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/aradz/mastermind-server/internal/game"
)

var metricLeaseReverts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "mastermind_lease_reverts_total",
	Help: "Claimed pvp sessions reverted to waiting after the join lease expired.",
})

// errLeaseSettled marks a revert arriving after the join already advanced;
// the scheduled action is then a no-op.
var errLeaseSettled = errors.New("join already settled")

// errSelfJoin marks a claim landing on the caller's own waiting session.
var errSelfJoin = errors.New("claimed own waiting session")

// revertTimeout bounds the background revert's store access.
const revertTimeout = 5 * time.Second

// Matchmaker pairs pvp players into shared sessions.
type Matchmaker struct {
	store   Store
	lease   time.Duration
	newRand func() *rand.Rand
}

func newMatchmaker(st Store, lease time.Duration, newRand func() *rand.Rand) *Matchmaker {
	return &Matchmaker{store: st, lease: lease, newRand: newRand}
}

// FindOrCreate claims any waiting pvp session and completes the join, or
// creates a fresh waiting session when none can be claimed. Under concurrent
// calls at most one caller wins a given waiting session; the others fall
// through to creating their own. secret is the caller's chosen code, or
// empty for a random one.
func (mm *Matchmaker) FindOrCreate(ctx context.Context, p Player, secret string) (*Session, error) {
	rng := mm.newRand()
	if secret == "" {
		secret = game.NewSecret(rng)
	}

	claimed, err := mm.store.ClaimOneWaiting(ctx, ModePvP)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return mm.createWaiting(ctx, p, secret)
	}
	if err != nil {
		return nil, err
	}

	cancel := time.AfterFunc(mm.lease, func() { mm.revertStuckJoin(claimed.ID) })

	joined, err := mm.store.AtomicUpdate(ctx, claimed.ID, func(s *Session) error {
		if s.Status != StatusJoining {
			return ErrConflict
		}
		if s.Slots[0].Identity == p.ID {
			return errSelfJoin
		}
		s.Slots[1] = PlayerSlot{
			Identity: p.ID,
			Name:     p.Name,
			Secret:   secret,
			Guesses:  []game.GuessRecord{},
			Rating:   p.Rating,
		}
		beginTwoPlayer(s, rng)
		return nil
	})
	if err != nil {
		if errors.Is(err, errSelfJoin) {
			// Release the claim right away instead of waiting out the
			// lease, then queue a fresh session for this caller.
			cancel.Stop()
			mm.revertStuckJoin(claimed.ID)
			return mm.createWaiting(ctx, p, secret)
		}
		// The join failed; let the lease timer release the claim.
		return nil, err
	}

	cancel.Stop()
	return joined, nil
}

// createWaiting persists a new pvp session with the caller in the first
// slot and the second slot unfilled.
func (mm *Matchmaker) createWaiting(ctx context.Context, p Player, secret string) (*Session, error) {
	s := &Session{
		ID:   uuid.NewString(),
		Mode: ModePvP,
		Slots: []PlayerSlot{
			{Identity: p.ID, Name: p.Name, Secret: secret, Guesses: []game.GuessRecord{}, Rating: p.Rating},
			{Guesses: []game.GuessRecord{}},
		},
		Status:    StatusWaiting,
		CreatedAt: time.Now().UTC(),
	}
	if err := mm.store.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// revertStuckJoin puts a still-joining session back to waiting. Runs off
// the request path; all errors are swallowed after logging.
func (mm *Matchmaker) revertStuckJoin(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()

	_, err := mm.store.AtomicUpdate(ctx, id, func(s *Session) error {
		if s.Status != StatusJoining {
			return errLeaseSettled
		}
		s.Status = StatusWaiting
		return nil
	})
	switch {
	case err == nil:
		metricLeaseReverts.Inc()
		log.Info().Str("sessionId", id).Msg("join lease expired, session back to waiting")
	case errors.Is(err, errLeaseSettled):
		// Join completed before the lease fired.
	default:
		log.Warn().Err(err).Str("sessionId", id).Msg("revert stuck join")
	}
}
