package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	CurrentProfile string              `yaml:"current_profile"`
	Profiles       map[string]*Profile `yaml:"profiles"`
	path           string
}

// Profile holds the settings for one environment (staging, production, ...).
type Profile struct {
	NexHealthAPIURL string `yaml:"nexhealth_api_url,omitempty" json:"nexhealth_api_url,omitempty"`
	NexHealthAPIKey string `yaml:"nexhealth_api_key,omitempty" json:"nexhealth_api_key,omitempty"`
	WebhookURL      string `yaml:"webhook_url,omitempty" json:"webhook_url,omitempty"`
	WebhookSecret   string `yaml:"webhook_secret,omitempty" json:"webhook_secret,omitempty"`
	DatabaseURL     string `yaml:"database_url,omitempty" json:"database_url,omitempty"`
	MigrationsPath  string `yaml:"migrations_path,omitempty" json:"migrations_path,omitempty"`
}

const (
	DefaultNexHealthAPIURL = "https://api.nexhealth.com/api/v1"
	DefaultWebhookURL      = "http://localhost:8080/api/nexhealth/webhook"
	DefaultMigrationsPath  = "ingest/migrations"
)

// profileKeys maps `config set` keys to profile fields.
var profileKeys = map[string]func(p *Profile) *string{
	"nexhealth_api_url": func(p *Profile) *string { return &p.NexHealthAPIURL },
	"nexhealth_api_key": func(p *Profile) *string { return &p.NexHealthAPIKey },
	"webhook_url":       func(p *Profile) *string { return &p.WebhookURL },
	"webhook_secret":    func(p *Profile) *string { return &p.WebhookSecret },
	"database_url":      func(p *Profile) *string { return &p.DatabaseURL },
	"migrations_path":   func(p *Profile) *string { return &p.MigrationsPath },
}

func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Profiles:       make(map[string]*Profile),
	}
}

// DefaultPath is ~/.reviewctl/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".reviewctl", "config.yaml"), nil
}

func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cfgFile, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}
	if cfg.CurrentProfile == "" {
		cfg.CurrentProfile = "default"
	}

	return cfg, nil
}

// Path returns the file the config is saved to.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) Save() error {
	if c.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// The file holds API keys and webhook secrets.
	return os.WriteFile(c.path, data, 0600)
}

// GetProfile returns the named profile, or the current one when name is
// empty. A missing profile resolves to an empty one with defaults.
func (c *Config) GetProfile(name string) *Profile {
	if name == "" {
		name = c.CurrentProfile
	}
	p, ok := c.Profiles[name]
	if !ok || p == nil {
		p = &Profile{}
	}
	return p.withDefaults()
}

// Set stores value under key in the named profile and saves the file.
func (c *Config) Set(profile, key, value string) error {
	field, ok := profileKeys[key]
	if !ok {
		return fmt.Errorf("unknown key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	if profile == "" {
		profile = c.CurrentProfile
	}
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	p, ok := c.Profiles[profile]
	if !ok || p == nil {
		p = &Profile{}
		c.Profiles[profile] = p
	}
	*field(p) = value
	return c.Save()
}

// UseProfile makes name the current profile and saves the file.
func (c *Config) UseProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}
	c.CurrentProfile = name
	return c.Save()
}

// Keys lists the keys accepted by Set.
func Keys() []string {
	keys := make([]string, 0, len(profileKeys))
	for k := range profileKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *Profile) withDefaults() *Profile {
	out := *p
	if out.NexHealthAPIURL == "" {
		out.NexHealthAPIURL = DefaultNexHealthAPIURL
	}
	if out.WebhookURL == "" {
		out.WebhookURL = DefaultWebhookURL
	}
	if out.MigrationsPath == "" {
		out.MigrationsPath = DefaultMigrationsPath
	}
	return &out
}

// Redacted returns a copy safe to print.
func (p *Profile) Redacted() *Profile {
	out := *p
	out.NexHealthAPIKey = redact(out.NexHealthAPIKey)
	out.WebhookSecret = redact(out.WebhookSecret)
	out.DatabaseURL = redactURLPassword(out.DatabaseURL)
	return &out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", 8)
}

func redactURLPassword(s string) string {
	at := strings.LastIndex(s, "@")
	scheme := strings.Index(s, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return s
	}
	userinfo := s[scheme+3 : at]
	if i := strings.Index(userinfo, ":"); i >= 0 {
		return s[:scheme+3] + userinfo[:i] + ":****" + s[at:]
	}
	return s
}
