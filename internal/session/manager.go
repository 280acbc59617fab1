// internal/session/manager.go
//
// Turn-based lifecycle manager for game sessions.
// Responsibilities:
//   - Create sessions for all three modes (pvp creation delegates to the
//     matchmaker).
//   - Apply guesses: validation, turn enforcement, evaluation, win detection.
//   - Drive AI turns through the solver pool.
//   - Abandonment, including the best-effort bulk sweep on disconnect.
//   - Trigger rating updates on decisive two-player outcomes.
//
// The manager holds no lock across requests: every operation reloads state
// through the store and writes back under the store's atomic update, so a
// session is changed by exactly one in-flight operation at a time.

package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aradz/mastermind-server/internal/ai"
	"github.com/aradz/mastermind-server/internal/game"
	"github.com/aradz/mastermind-server/internal/rating"
)

// Config carries the manager's behavior switches.
type Config struct {
	// RateAIGames controls whether ai-mode results move the human's
	// rating (against the bot's fixed rating). On by default upstream.
	RateAIGames bool

	// JoinLease bounds how long a claimed pvp session may sit in joining
	// before it reverts to waiting. Defaults to one second.
	JoinLease time.Duration
}

// Manager coordinates session state transitions. Safe for concurrent use.
type Manager struct {
	store   Store
	ratings RatingStore
	cfg     Config
	match   *Matchmaker

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewManager wires a manager over the given store. ratings may be nil when
// no rating persistence is available (ratings are then skipped entirely).
func NewManager(st Store, ratings RatingStore, cfg Config, rng *rand.Rand) *Manager {
	if cfg.JoinLease <= 0 {
		cfg.JoinLease = time.Second
	}
	m := &Manager{store: st, ratings: ratings, cfg: cfg, rng: rng}
	m.match = newMatchmaker(st, cfg.JoinLease, m.newRand)
	return m
}

// newRand derives an independent rand source for a single operation.
// The shared seed source is guarded; the derived source is not shared.
func (m *Manager) newRand() *rand.Rand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return rand.New(rand.NewSource(m.rng.Int63()))
}

// CreateSession starts a new session for p. playerSecret is optional; when
// empty a random secret is generated. difficulty applies to ai mode only.
func (m *Manager) CreateSession(ctx context.Context, p Player, mode Mode, playerSecret string, difficulty ai.Difficulty) (*Session, error) {
	if playerSecret != "" && !game.Validate(playerSecret) {
		return nil, ErrBadSecret
	}
	switch mode {
	case ModeSolo:
		return m.createSolo(ctx, p)
	case ModeAI:
		return m.createAI(ctx, p, playerSecret, difficulty)
	case ModePvP:
		return m.match.FindOrCreate(ctx, p, playerSecret)
	default:
		return nil, ErrUnknownMode
	}
}

// createSolo starts a single-slot session against a system-chosen secret.
func (m *Manager) createSolo(ctx context.Context, p Player) (*Session, error) {
	rng := m.newRand()
	now := time.Now().UTC()
	s := &Session{
		ID:   uuid.NewString(),
		Mode: ModeSolo,
		Slots: []PlayerSlot{{
			Identity: p.ID,
			Name:     p.Name,
			Secret:   game.NewSecret(rng),
			Guesses:  []game.GuessRecord{},
			Rating:   p.Rating,
		}},
		Status:    StatusInProgress,
		CreatedAt: now,
		StartedAt: &now,
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// createAI starts a two-slot session against an AI opponent. The human's
// secret (guessed by the AI) may be player-chosen; the AI's is random.
func (m *Manager) createAI(ctx context.Context, p Player, playerSecret string, difficulty ai.Difficulty) (*Session, error) {
	profile, err := ai.ProfileFor(difficulty)
	if err != nil {
		return nil, err
	}
	rng := m.newRand()
	if playerSecret == "" {
		playerSecret = game.NewSecret(rng)
	}
	s := &Session{
		ID:   uuid.NewString(),
		Mode: ModeAI,
		Slots: []PlayerSlot{
			{Identity: p.ID, Name: p.Name, Secret: playerSecret, Guesses: []game.GuessRecord{}, Rating: p.Rating},
			{Identity: profile.Identity, Name: profile.Name, Secret: game.NewSecret(rng), Guesses: []game.GuessRecord{}, Rating: profile.Rating},
		},
		AIDifficulty: difficulty,
		CreatedAt:    time.Now().UTC(),
	}
	beginTwoPlayer(s, rng)
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}
	m.settleRatings(ctx, s)
	return s, nil
}

// GetSession loads a session for a participant. Unknown IDs and known
// sessions the identity is not part of report the same ErrNotFound.
func (m *Manager) GetSession(ctx context.Context, id, identity string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.HasParticipant(identity) {
		return nil, ErrNotFound
	}
	return s, nil
}

// SubmitGuess applies one guess by identity. Wrong turn, bad format, and
// terminal sessions are rejected with distinct errors; nothing is applied
// on rejection.
func (m *Manager) SubmitGuess(ctx context.Context, id, identity, guess string) (*Session, error) {
	updated, err := m.store.AtomicUpdate(ctx, id, func(s *Session) error {
		idx := s.SlotIndex(identity)
		if idx < 0 {
			return ErrNotFound
		}
		if s.Terminal() {
			return ErrTerminal
		}
		if s.Status != StatusInProgress {
			return ErrNotStarted
		}
		if s.Mode != ModeSolo && s.Turn != identity {
			return ErrWrongTurn
		}
		if !game.Validate(guess) {
			return ErrBadGuess
		}
		applyGuess(s, idx, guess, time.Now().UTC())
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.settleRatings(ctx, updated)
	return updated, nil
}

// TriggerOpponentTurn computes and applies the AI's guess in ai mode. For
// pvp it returns the current state without computing anything (the opponent
// is a human whose moves arrive as their own requests). Solo sessions have
// no opponent.
func (m *Manager) TriggerOpponentTurn(ctx context.Context, id, identity string) (*Session, error) {
	s, err := m.GetSession(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	switch s.Mode {
	case ModeSolo:
		return nil, ErrNoOpponent
	case ModePvP:
		return s, nil
	}

	rng := m.newRand()
	updated, err := m.store.AtomicUpdate(ctx, id, func(s *Session) error {
		if !s.HasParticipant(identity) {
			return ErrNotFound
		}
		if s.Terminal() {
			return ErrTerminal
		}
		if s.Status != StatusInProgress {
			return ErrNotStarted
		}
		// The AI always occupies the second slot of an ai session.
		aiIdx := 1
		if s.Turn != s.Slots[aiIdx].Identity {
			return ErrWrongTurn
		}
		solver, err := ai.New(s.AIDifficulty, rng)
		if err != nil {
			// Stored difficulty should always resolve; fall back to the
			// random solver so the turn machine never stalls.
			log.Warn().Str("sessionId", s.ID).Str("difficulty", string(s.AIDifficulty)).Msg("unknown stored difficulty, using random solver")
			solver, _ = ai.New(ai.DifficultyRandom, rng)
		}
		guess := solver.NextGuess(s.Slots[aiIdx].Guesses)
		applyGuess(s, aiIdx, guess, time.Now().UTC())
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.settleRatings(ctx, updated)
	return updated, nil
}

// AbandonSession forfeits an in-progress two-player session: the other slot
// is declared winner and ratings settle as for a decisive completion.
// Abandoning a solo session is an error.
func (m *Manager) AbandonSession(ctx context.Context, id, identity string) (*Session, error) {
	updated, err := m.store.AtomicUpdate(ctx, id, func(s *Session) error {
		idx := s.SlotIndex(identity)
		if idx < 0 {
			return ErrNotFound
		}
		if s.Mode == ModeSolo {
			return ErrNoOpponent
		}
		if s.Terminal() {
			return ErrTerminal
		}
		if s.Status != StatusInProgress {
			return ErrNotStarted
		}
		now := time.Now().UTC()
		s.Status = StatusAbandoned
		s.WinnerIdentity = s.Slots[1-idx].Identity
		s.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.settleRatings(ctx, updated)
	return updated, nil
}

// AbandonAllFor sweeps every in-progress session the identity participates
// in, abandoning each independently. Unlike AbandonSession it also closes
// solo sessions (with no winner declared). Failures are logged and skipped
// so one bad record cannot block the rest.
func (m *Manager) AbandonAllFor(ctx context.Context, identity string) {
	sessions, err := m.store.ListInProgressFor(ctx, identity)
	if err != nil {
		log.Warn().Err(err).Str("identity", identity).Msg("list in-progress sessions")
		return
	}
	for _, s := range sessions {
		updated, err := m.store.AtomicUpdate(ctx, s.ID, func(cur *Session) error {
			idx := cur.SlotIndex(identity)
			if idx < 0 {
				return ErrNotFound
			}
			if cur.Terminal() {
				return ErrTerminal
			}
			if cur.Status != StatusInProgress {
				return ErrNotStarted
			}
			now := time.Now().UTC()
			cur.Status = StatusAbandoned
			cur.CompletedAt = &now
			if cur.Mode != ModeSolo {
				cur.WinnerIdentity = cur.Slots[1-idx].Identity
			}
			return nil
		})
		if err != nil {
			log.Warn().Err(err).Str("sessionId", s.ID).Str("identity", identity).Msg("bulk abandon")
			continue
		}
		m.settleRatings(ctx, updated)
	}
}

// beginTwoPlayer starts play on a fully-populated two-slot session: a fair
// coin flip picks which slot opens, that slot's opening guess is played
// automatically by the random non-repeating mechanism, and the turn then
// belongs to the other slot. The auto-played guess compensates the opener
// for not making a live first move; exactly one slot ever receives it.
func beginTwoPlayer(s *Session, rng *rand.Rand) {
	now := time.Now().UTC()
	s.Status = StatusInProgress
	s.StartedAt = &now

	first := rng.Intn(2)
	s.Turn = s.Slots[first].Identity

	opener, _ := ai.New(ai.DifficultyRandom, rng)
	applyGuess(s, first, opener.NextGuess(s.Slots[first].Guesses), now)
}

// applyGuess evaluates an already-validated guess for the slot at idx and
// advances the state machine: a full exact match completes the session with
// the acting identity as winner, otherwise the turn flips to the other slot.
func applyGuess(s *Session, idx int, guess string, now time.Time) {
	target := s.Slots[idx].Secret
	if s.Mode != ModeSolo {
		target = s.Slots[1-idx].Secret
	}
	exact, partial := game.Evaluate(target, guess)
	s.Slots[idx] = s.Slots[idx].withGuess(game.GuessRecord{Guess: guess, Exact: exact, Partial: partial})

	if exact == game.CodeLength {
		s.Status = StatusCompleted
		s.WinnerIdentity = s.Slots[idx].Identity
		s.CompletedAt = &now
		return
	}
	if s.Mode != ModeSolo {
		s.Turn = s.Slots[1-idx].Identity
	}
}

// settleRatings applies the Elo transfer after a decisive two-player
// outcome. Solo sessions and non-terminal states are no-ops; ai-mode games
// respect the RateAIGames switch. Failures are logged, never surfaced —
// rating persistence must not block session completion.
func (m *Manager) settleRatings(ctx context.Context, s *Session) {
	if m.ratings == nil || s == nil || !s.Terminal() || s.Mode == ModeSolo || s.WinnerIdentity == "" {
		return
	}
	if s.Mode == ModeAI && !m.cfg.RateAIGames {
		return
	}
	var winner, loser *PlayerSlot
	for i := range s.Slots {
		if s.Slots[i].Identity == s.WinnerIdentity {
			winner = &s.Slots[i]
		} else {
			loser = &s.Slots[i]
		}
	}
	if winner == nil || loser == nil || loser.Identity == "" {
		return
	}
	newWinner, newLoser := rating.Update(winner.Rating, loser.Rating)
	if err := m.ratings.ApplyResult(ctx, winner.Identity, newWinner, loser.Identity, newLoser); err != nil {
		log.Warn().Err(err).Str("sessionId", s.ID).Msg("apply rating result")
	}
}
