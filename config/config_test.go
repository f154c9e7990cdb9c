package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TTS_POLL_INTERVAL", "")
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "en-US-CoraMultilingualNeural", cfg.SpeechVoice)
	// 非法值回退到默认
	assert.Equal(t, 5*time.Second, cfg.SpeechPollInterval)
	assert.Equal(t, 72*time.Hour, cfg.SpeechURLTTL)
	assert.Equal(t, "switch.ac", cfg.HassACEntity)
	assert.Len(t, cfg.HassLightScenes, 4)
	assert.Equal(t, "@default", cfg.TasksList)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("TTS_POLL_INTERVAL", "2s")
	t.Setenv("TTS_POLL_TIMEOUT", "10m")
	t.Setenv("STORAGE_USE_SSL", "false")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("HASS_LIGHT_SCENES", "scene.a, scene.b,,")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Second, cfg.SpeechPollInterval)
	assert.Equal(t, 10*time.Minute, cfg.SpeechPollTimeout)
	assert.False(t, cfg.StorageUseSSL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, []string{"scene.a", "scene.b"}, cfg.HassLightScenes)
}

func TestSpeechBaseURL(t *testing.T) {
	cfg := &Config{SpeechRegion: "westeurope"}
	assert.Equal(t, "https://westeurope.api.cognitive.microsoft.com", cfg.SpeechBaseURL())

	cfg.SpeechEndpoint = "http://localhost:1234/"
	assert.Equal(t, "http://localhost:1234", cfg.SpeechBaseURL())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			WebPassword:        "secret",
			StorageEndpoint:    "s3.local",
			StorageBucket:      "reader",
			SpeechPollInterval: time.Second,
			TextCache:          "memory",
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.WebPassword = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.WebPassword = ""
	cfg.WebPasswordHash = "$2a$10$abc"
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.StorageEndpoint = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.TextCache = "disk"
	assert.Error(t, cfg.Validate())
}

func TestTasksEnabled(t *testing.T) {
	cfg := &Config{TasksClientID: "id", TasksClientSecret: "secret"}
	assert.False(t, cfg.TasksEnabled())
	cfg.TasksRefreshToken = "refresh"
	assert.True(t, cfg.TasksEnabled())
}
