package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "data/words_ru.txt", cfg.DictionaryPath)
	assert.Equal(t, 20000, cfg.CommonLimit)
	assert.Equal(t, 24, cfg.GameHours)
	assert.Equal(t, 2, cfg.MinGuessLen)
	assert.Equal(t, "off", cfg.RecoveryMode)
	assert.False(t, cfg.RarityScoring)
	assert.Empty(t, cfg.NativePlayers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("GAME_HOURS", "12")
	t.Setenv("NATIVE_PLAYERS", "masha,olga")
	t.Setenv("LEARNER_PLAYERS", "kwinten")
	t.Setenv("RARITY_SCORING", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 12, cfg.GameHours)
	assert.Equal(t, []string{"masha", "olga"}, cfg.NativePlayers)
	assert.Equal(t, []string{"kwinten"}, cfg.LearnerPlayers)
	assert.True(t, cfg.RarityScoring)
}

func TestLoadRejectsBadRecoveryMode(t *testing.T) {
	t.Setenv("RECOVERY_MODE", "maybe")
	_, err := Load()
	require.Error(t, err)
}

func TestRecoveryModeRequiresDatabase(t *testing.T) {
	t.Setenv("RECOVERY_MODE", "resume")
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/spelling")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "resume", cfg.RecoveryMode)
}
