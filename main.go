package main

import (
	"context"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aradz/mastermind-server/internal/httpserver"
	"github.com/aradz/mastermind-server/internal/session"
	"github.com/aradz/mastermind-server/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(getEnv("SQLITE_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	// Sessions live in Postgres when DATABASE_URL is set, SQLite otherwise.
	var st session.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		st, err = store.NewPostgresStore(context.Background(), dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("connect session store")
		}
		log.Info().Msg("session store: postgres")
	} else {
		st = store.NewSQLiteStore(db)
		log.Info().Msg("session store: sqlite")
	}

	cfg := session.Config{
		RateAIGames: getEnv("RATE_AI_GAMES", "true") == "true",
		JoinLease:   time.Duration(envInt("JOIN_LEASE_MS", 1000)) * time.Millisecond,
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	mgr := session.NewManager(st, store.NewEloStore(db), cfg, rng)

	srv := httpserver.New(mgr, db)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting mastermind server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
