package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, "nova-2", cfg.DeepgramModel)
	assert.Equal(t, "deepgram", cfg.DefaultSTTProvider)
	assert.Equal(t, 120.0, cfg.MonthlyMinutesLimit)
	assert.Equal(t, 7, cfg.TrialDays)
	assert.Equal(t, 5, cfg.BaseXPDailyQuest)
	assert.Equal(t, 50, cfg.BaseXPBossQuest)
	assert.True(t, cfg.EnableLLMFeatures)
	assert.True(t, cfg.EnableVoice)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("MONTHLY_MINUTES_LIMIT", "240")
	t.Setenv("ENABLE_VOICE_FEATURES", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9001", cfg.Port)
	assert.Equal(t, 240.0, cfg.MonthlyMinutesLimit)
	assert.False(t, cfg.EnableVoice)
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBUser:     "app",
		DBPassword: "secret",
		DBHost:     "db:3306",
		DBName:     "questlogger",
	}
	assert.Equal(t, "app:secret@tcp(db:3306)/questlogger?parseTime=true", cfg.DSN())
}

func TestValidate(t *testing.T) {
	cfg := &Config{JWTSecret: "s", DBUser: "app", DBName: "questlogger"}
	assert.NoError(t, cfg.Validate())

	assert.Error(t, (&Config{DBUser: "app", DBName: "questlogger"}).Validate())
	assert.Error(t, (&Config{JWTSecret: "s"}).Validate())
}
