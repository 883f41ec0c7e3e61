package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "127.0.0.1:8090", cfg.HTTPAddr)
	assert.Equal(t, "/tmp/aurond.sock", cfg.SocketPath)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Model)
	assert.Equal(t, "auto", cfg.STT.Language)
	assert.True(t, cfg.TTS.Enabled)
	assert.Equal(t, 500, cfg.History.MaxChat)
	assert.Equal(t, float32(0.6), cfg.Wake.Sensitivity)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", "0.0.0.0:1234")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("TTS_ENABLED", "false")
	t.Setenv("MAX_LOGS", "17")
	t.Setenv("PORC_SENSITIVITY", "0.9")

	cfg := Load()

	assert.Equal(t, "0.0.0.0:1234", cfg.HTTPAddr)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.TTS.Enabled)
	assert.Equal(t, 17, cfg.History.MaxLogs)
	assert.Equal(t, float32(0.9), cfg.Wake.Sensitivity)
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_CHAT", "not-a-number")
	t.Setenv("LLM_TIMEOUT", "eventually")

	cfg := Load()

	assert.Equal(t, 500, cfg.History.MaxChat)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
}
