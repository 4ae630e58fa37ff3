package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`

	DictionaryPath   string `env:"DICTIONARY_PATH" envDefault:"data/words_ru.txt"`
	RemovedWordsPath string `env:"REMOVED_WORDS_PATH"`
	CommonLimit      int    `env:"COMMON_LIMIT" envDefault:"20000"`

	GameHours    int `env:"GAME_HOURS" envDefault:"24"`
	MinGuessLen  int `env:"MIN_GUESS_LEN" envDefault:"2"`
	RootMinLen   int `env:"ROOT_MIN_LEN" envDefault:"6"`
	RootMaxLen   int `env:"ROOT_MAX_LEN" envDefault:"10"`
	MinSolutions int `env:"MIN_SOLUTIONS" envDefault:"15"`
	WordMinLen   int `env:"WORD_MIN_LEN" envDefault:"3"`
	WordMaxLen   int `env:"WORD_MAX_LEN" envDefault:"7"`
	RecentRoots  int `env:"RECENT_ROOTS" envDefault:"30"`

	// RarityScoring switches from flat one-point-per-word to the
	// rarity-weighted policy.
	RarityScoring bool `env:"RARITY_SCORING" envDefault:"false"`

	// Static team rosters, used when no live role lookup is wired in.
	NativePlayers  []string `env:"NATIVE_PLAYERS" envSeparator:","`
	LearnerPlayers []string `env:"LEARNER_PLAYERS" envSeparator:","`

	// DatabaseURL enables the crash-recovery snapshot store. RecoveryMode
	// decides what happens to persisted unfinished games at boot:
	// "off" ignores them, "resume" re-arms them from the stored deadline,
	// "expire" finalizes them immediately.
	DatabaseURL  string `env:"DATABASE_URL"`
	RecoveryMode string `env:"RECOVERY_MODE" envDefault:"off"`
}

func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set by the supervisor.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.RecoveryMode != "off" && cfg.RecoveryMode != "resume" && cfg.RecoveryMode != "expire" {
		return nil, fmt.Errorf("invalid RECOVERY_MODE %q", cfg.RecoveryMode)
	}
	if cfg.RecoveryMode != "off" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("RECOVERY_MODE %q requires DATABASE_URL", cfg.RecoveryMode)
	}
	return &cfg, nil
}
