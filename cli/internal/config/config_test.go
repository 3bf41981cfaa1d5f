package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.CurrentProfile)
	p := cfg.GetProfile("")
	assert.Equal(t, DefaultNexHealthAPIURL, p.NexHealthAPIURL)
	assert.Equal(t, DefaultWebhookURL, p.WebhookURL)
	assert.Equal(t, DefaultMigrationsPath, p.MigrationsPath)
}

func TestLoad_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `current_profile: staging
profiles:
  staging:
    nexhealth_api_key: key-123
    webhook_url: https://reviews.staging.example.com/api/nexhealth/webhook
    webhook_secret: whsec_abc
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.CurrentProfile)
	p := cfg.GetProfile("")
	assert.Equal(t, "key-123", p.NexHealthAPIKey)
	assert.Equal(t, "https://reviews.staging.example.com/api/nexhealth/webhook", p.WebhookURL)
	assert.Equal(t, "whsec_abc", p.WebhookSecret)
	assert.Equal(t, DefaultNexHealthAPIURL, p.NexHealthAPIURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [oops"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSetAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, cfg.Set("", "webhook_secret", "whsec_new"))
	require.NoError(t, cfg.Set("prod", "nexhealth_api_key", "prod-key"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "whsec_new", reloaded.GetProfile("default").WebhookSecret)
	assert.Equal(t, "prod-key", reloaded.GetProfile("prod").NexHealthAPIKey)

	require.NoError(t, reloaded.UseProfile("prod"))
	assert.Equal(t, "prod-key", reloaded.GetProfile("").NexHealthAPIKey)
	assert.Error(t, reloaded.UseProfile("missing"))
}

func TestSet_UnknownKey(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	err = cfg.Set("", "colour", "blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook_secret")
}

func TestRedacted(t *testing.T) {
	p := &Profile{
		NexHealthAPIKey: "abcdefghijkl",
		WebhookSecret:   "xy",
		DatabaseURL:     "postgres://reviews:hunter2@db:5432/reviews?sslmode=require",
	}
	r := p.Redacted()

	assert.Equal(t, "abcd********", r.NexHealthAPIKey)
	assert.Equal(t, "****", r.WebhookSecret)
	assert.Equal(t, "postgres://reviews:****@db:5432/reviews?sslmode=require", r.DatabaseURL)
	assert.Equal(t, "abcdefghijkl", p.NexHealthAPIKey, "original untouched")
	assert.Equal(t, "", (&Profile{}).Redacted().WebhookSecret)
}
