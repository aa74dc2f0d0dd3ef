package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_REPLY_FORMAT", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.APIBase)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.ChatModel)
	assert.Equal(t, ReplyFormatBrackets, cfg.OpenAI.ReplyFormat)
	assert.False(t, cfg.OpenAI.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Session.DispatchTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_BASE", "http://localhost:9999/v1/")
	t.Setenv("OPENAI_REPLY_FORMAT", "JSON")
	t.Setenv("OPENAI_CHAT_TEMPERATURE", "0.4")
	t.Setenv("SESSION_DISPATCH_TIMEOUT", "5s")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.OpenAI.Enabled)
	assert.Equal(t, "http://localhost:9999/v1", cfg.OpenAI.APIBase)
	assert.Equal(t, ReplyFormatJSON, cfg.OpenAI.ReplyFormat)
	assert.InDelta(t, 0.4, cfg.OpenAI.ChatTemperature, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Session.DispatchTimeout)
	// invalid integers fall back to the default
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			OpenAI:  OpenAIConfig{ReplyFormat: ReplyFormatBrackets, Timeout: 30},
			Logging: LoggingConfig{Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "bad reply format", mutate: func(c *Config) { c.OpenAI.ReplyFormat = "xml" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "logfmt" }, wantErr: true},
		{name: "driver without dsn", mutate: func(c *Config) { c.Dataset.Driver = "postgres" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.OpenAI.Timeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
