package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/claims.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 30*time.Second, cfg.Engine.AdvisorTimeout)
	assert.Equal(t, 4, cfg.Engine.AdvisorWorkers)
	assert.Equal(t, "0.9", cfg.Advisor.Factor)
	assert.Equal(t, "local", cfg.Documents.Backend)
	assert.Equal(t, "claim-events", cfg.Kafka.Topic)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
engine:
  require_allocation: true
  advisor_timeout: 5s
lark:
  enabled: true
  app_id: cli_x
  recipients:
    v-1: ou_abc
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`)
	t.Setenv("LARK_APP_SECRET", "secret")
	t.Setenv("CLAIMS_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Engine.RequireAllocation)
	assert.Equal(t, 5*time.Second, cfg.Engine.AdvisorTimeout)
	assert.Equal(t, "secret", cfg.Lark.AppSecret)
	assert.Equal(t, map[string]string{"v-1": "ou_abc"}, cfg.Lark.Recipients)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Driver: "sqlite", Path: "claims.db"},
			Documents: DocumentsConfig{Backend: "local", BaseDir: "docs"},
			Engine:    EngineConfig{AdvisorTimeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"memory store needs no path", func(c *Config) { c.Database = DatabaseConfig{Driver: "memory"} }, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"s3 without bucket", func(c *Config) { c.Documents = DocumentsConfig{Backend: "s3", Region: "eu-west-1"} }, "documents.bucket"},
		{"s3 without region", func(c *Config) { c.Documents = DocumentsConfig{Backend: "s3", Bucket: "b"} }, "documents.region"},
		{"openai without key", func(c *Config) { c.OpenAI.Enabled = true }, "openai.api_key"},
		{"lark without secret", func(c *Config) { c.Lark = LarkConfig{Enabled: true, AppID: "a"} }, "lark.app_secret"},
		{"kafka without brokers", func(c *Config) { c.Kafka = KafkaConfig{Enabled: true, Topic: "t"} }, "kafka.brokers"},
		{"no advisor timeout", func(c *Config) { c.Engine.AdvisorTimeout = 0 }, "engine.advisor_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
