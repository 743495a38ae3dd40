package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cbodonnell/drag/pkg/game/constants"
	"github.com/cbodonnell/drag/pkg/words"
	"github.com/cbodonnell/drag/pkg/workers"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

const (
	StoreMemory    = "memory"
	StoreRedis     = "redis"
	StoreFirestore = "firestore"
)

type Config struct {
	// Store selects the shared record store: memory, redis or firestore.
	Store string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FirebaseProjectID   string
	FirebaseCredentials string
	FirestoreCollection string
	// HistoryAllowAnonymous lets guest Firebase accounts read the history.
	HistoryAllowAnonymous bool

	// HistoryURL locates the local game history, e.g. sqlite://drag.db.
	HistoryURL string

	WordsURL string
	WordsRPS float64

	StepTimeout        time.Duration
	LobbyTimeout       time.Duration
	CleanupMaxAttempts int
}

func Default() Config {
	return Config{
		Store:               StoreMemory,
		RedisAddr:           "localhost:6379",
		FirestoreCollection: "games",
		HistoryURL:          "sqlite://drag.db",
		WordsURL:            words.DefaultBaseURL,
		WordsRPS:            words.DefaultRequestsPerSecond,
		StepTimeout:         constants.StepTimeout,
		LobbyTimeout:        constants.LobbyTimeout,
		CleanupMaxAttempts:  workers.DefaultCleanupMaxAttempts,
	}
}

// Load returns the default configuration overridden by DRAG_* environment
// variables. Malformed numbers are ignored.
func Load() Config {
	cfg := Default()
	if raw := os.Getenv("DRAG_STORE"); raw != "" {
		switch raw {
		case StoreMemory, StoreRedis, StoreFirestore:
			cfg.Store = raw
		}
	}
	if raw := os.Getenv("DRAG_REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := os.Getenv("DRAG_REDIS_PASSWORD"); raw != "" {
		cfg.RedisPassword = raw
	}
	if raw := os.Getenv("DRAG_REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RedisDB = value
		}
	}
	if raw := os.Getenv("DRAG_FIREBASE_PROJECT_ID"); raw != "" {
		cfg.FirebaseProjectID = raw
	}
	if raw := os.Getenv("DRAG_FIREBASE_CREDENTIALS"); raw != "" {
		cfg.FirebaseCredentials = raw
	}
	if raw := os.Getenv("DRAG_FIRESTORE_COLLECTION"); raw != "" {
		cfg.FirestoreCollection = raw
	}
	if raw := os.Getenv("DRAG_HISTORY_ALLOW_ANONYMOUS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.HistoryAllowAnonymous = value
		}
	}
	if raw := os.Getenv("DRAG_HISTORY_URL"); raw != "" {
		cfg.HistoryURL = raw
	}
	if raw := os.Getenv("DRAG_WORDS_URL"); raw != "" {
		cfg.WordsURL = raw
	}
	if raw := os.Getenv("DRAG_WORDS_RPS"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.WordsRPS = value
		}
	}
	if raw := os.Getenv("DRAG_STEP_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.StepTimeout = time.Duration(value) * time.Second
		}
	}
	if raw := os.Getenv("DRAG_LOBBY_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.LobbyTimeout = time.Duration(value) * time.Second
		}
	}
	if raw := os.Getenv("DRAG_CLEANUP_MAX_ATTEMPTS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.CleanupMaxAttempts = value
		}
	}
	return cfg
}
