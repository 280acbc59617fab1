// internal/httpserver/routes_games.go
//
// Game session endpoints (all require auth):
//   POST /api/games/new                  — create solo/ai session or pvp find-or-create
//   GET  /api/games/{gameID}             — fetch a session the caller is part of
//   POST /api/games/{gameID}/guess       — submit a guess
//   POST /api/games/{gameID}/opponent_guess — trigger the AI's turn (ai mode)
//   POST /api/games/{gameID}/abandon     — forfeit an in-progress game
//   POST /api/games/abandon_all          — best-effort sweep of the caller's games
//
// Responses are shaped from the caller's side: the caller's own guesses and
// secret, the opponent's name and guesses, and the opponent's secret only
// once the session is terminal (that is the code the caller was cracking).
// Concurrency conflicts are retried once — the operation re-derives from
// fresh store state, so a single retry is safe.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aradz/mastermind-server/internal/ai"
	"github.com/aradz/mastermind-server/internal/game"
	"github.com/aradz/mastermind-server/internal/session"
)

// newGameReq is the payload for POST /api/games/new.
type newGameReq struct {
	GameMode     string `json:"gameMode" validate:"required,oneof=solo ai pvp"`
	PlayerSecret string `json:"playerSecret" validate:"omitempty,numeric"`
	AIDifficulty string `json:"aiDifficulty" validate:"omitempty,oneof=random solver"`
}

// guessBody is the payload for POST /api/games/{gameID}/guess.
type guessBody struct {
	Guess string `json:"guess" validate:"required,numeric"`
}

// gameRes is the session as seen by one participant.
type gameRes struct {
	ID              string             `json:"id"`
	GameMode        string             `json:"gameMode"`
	Status          string             `json:"status"`
	SelfID          string             `json:"selfId"`
	SelfName        string             `json:"selfName,omitempty"`
	SelfSecret      string             `json:"selfSecret,omitempty"`
	SelfGuesses     []game.GuessRecord `json:"selfGuesses"`
	OpponentID      string             `json:"opponentId,omitempty"`
	OpponentName    string             `json:"opponentName,omitempty"`
	OpponentSecret  string             `json:"opponentSecret,omitempty"`
	OpponentGuesses []game.GuessRecord `json:"opponentGuesses,omitempty"`
	CurrentTurn     string             `json:"currentTurn,omitempty"`
	WinnerID        string             `json:"winnerId,omitempty"`
	AIDifficulty    string             `json:"aiDifficulty,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	StartedAt       *time.Time         `json:"startedAt,omitempty"`
	CompletedAt     *time.Time         `json:"completedAt,omitempty"`
}

// mountGameRoutes registers the /api/games tree.
func (s *Server) mountGameRoutes() {
	s.r.Route("/api/games", func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Post("/new", s.handleNewGame)
		r.Post("/abandon_all", s.handleAbandonAll)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", s.handleGetGame)
			r.Post("/guess", s.handleGuess)
			r.Post("/opponent_guess", s.handleOpponentGuess)
			r.Post("/abandon", s.handleAbandon)
		})
	})
}

// handleNewGame creates a session. For pvp this is find-or-create: the
// caller either joins a waiting session or opens a new one.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPlayer(r)
	if !ok {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, `{"error":"invalid game request"}`, http.StatusBadRequest)
		return
	}
	mode := session.Mode(req.GameMode)
	difficulty := ai.Difficulty(req.AIDifficulty)
	if mode == session.ModeAI && difficulty == "" {
		difficulty = ai.DifficultyRandom
	}

	sess, err := s.withConflictRetry(func() (*session.Session, error) {
		return s.mgr.CreateSession(r.Context(), p, mode, req.PlayerSecret, difficulty)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metricSessionsCreated.WithLabelValues(string(sess.Mode)).Inc()
	if sess.Mode == session.ModePvP {
		outcome := "created"
		if sess.Status == session.StatusInProgress {
			outcome = "matched"
		}
		metricMatchmaking.WithLabelValues(outcome).Inc()
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(buildGameRes(sess, p.ID))
}

// handleGetGame returns the caller's view of a session.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPlayer(r)
	if !ok {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	sess, err := s.mgr.GetSession(r.Context(), chi.URLParam(r, "gameID"), p.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(buildGameRes(sess, p.ID))
}

// handleGuess applies one guess for the caller.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPlayer(r)
	if !ok {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var body guessBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.withConflictRetry(func() (*session.Session, error) {
		return s.mgr.SubmitGuess(r.Context(), chi.URLParam(r, "gameID"), p.ID, body.Guess)
	})
	if err != nil {
		metricGuesses.WithLabelValues("rejected").Inc()
		writeDomainError(w, err)
		return
	}
	metricGuesses.WithLabelValues("applied").Inc()
	_ = json.NewEncoder(w).Encode(buildGameRes(sess, p.ID))
}

// handleOpponentGuess advances the AI's turn. For pvp sessions it simply
// reports current state so clients can poll with the same call.
func (s *Server) handleOpponentGuess(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPlayer(r)
	if !ok {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	sess, err := s.withConflictRetry(func() (*session.Session, error) {
		return s.mgr.TriggerOpponentTurn(r.Context(), chi.URLParam(r, "gameID"), p.ID)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(buildGameRes(sess, p.ID))
}

// handleAbandon forfeits an in-progress two-player session.
func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPlayer(r)
	if !ok {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	sess, err := s.withConflictRetry(func() (*session.Session, error) {
		return s.mgr.AbandonSession(r.Context(), chi.URLParam(r, "gameID"), p.ID)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(buildGameRes(sess, p.ID))
}

// handleAbandonAll sweeps all of the caller's in-progress sessions.
func (s *Server) handleAbandonAll(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPlayer(r)
	if !ok {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	s.mgr.AbandonAllFor(r.Context(), p.ID)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// withConflictRetry retries an operation exactly once after a lost atomic
// update race; everything the operation needs is re-read from the store.
func (s *Server) withConflictRetry(op func() (*session.Session, error)) (*session.Session, error) {
	sess, err := op()
	if errors.Is(err, session.ErrConflict) {
		logWarn(err, "retrying after session conflict")
		return op()
	}
	return sess, err
}

// writeDomainError maps the session error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	case session.IsValidation(err):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
	case session.IsIllegalState(err):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
	case errors.Is(err, session.ErrConflict):
		http.Error(w, `{"error":"conflict"}`, http.StatusConflict)
	default:
		logWarn(err, "session operation failed")
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}
}

// buildGameRes shapes a session for the given participant. Secrets the
// caller is still guessing stay hidden until the session is terminal.
func buildGameRes(s *session.Session, identity string) gameRes {
	res := gameRes{
		ID:           s.ID,
		GameMode:     string(s.Mode),
		Status:       string(s.Status),
		CurrentTurn:  s.Turn,
		WinnerID:     s.WinnerIdentity,
		AIDifficulty: string(s.AIDifficulty),
		CreatedAt:    s.CreatedAt,
		StartedAt:    s.StartedAt,
		CompletedAt:  s.CompletedAt,
	}

	if s.Mode == session.ModeSolo {
		slot := s.Slots[0]
		res.SelfID = slot.Identity
		res.SelfName = slot.Name
		res.SelfGuesses = slot.Guesses
		if s.Terminal() {
			// The system-chosen code, revealed once play is over.
			res.SelfSecret = slot.Secret
		}
		return res
	}

	selfIdx := s.SlotIndex(identity)
	if selfIdx < 0 {
		selfIdx = 0
	}
	self, opp := s.Slots[selfIdx], s.Slots[1-selfIdx]

	res.SelfID = self.Identity
	res.SelfName = self.Name
	res.SelfSecret = self.Secret // the caller's own code
	res.SelfGuesses = self.Guesses
	res.OpponentID = opp.Identity
	res.OpponentName = opp.Name
	res.OpponentGuesses = opp.Guesses
	if s.Terminal() {
		// The code the caller was cracking.
		res.OpponentSecret = opp.Secret
	}
	return res
}
