package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	// TrustProxyHeaders takes the client address from X-Forwarded-For.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

type DatabaseConfig struct {
	Type           string         `mapstructure:"type"`
	URL            string         `mapstructure:"url"`
	Postgres       PostgresConfig `mapstructure:"postgres"`
	MigrationsPath string         `mapstructure:"migrations_path"`
	WriteTimeout   time.Duration  `mapstructure:"write_timeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

type WebhookConfig struct {
	Secret          string        `mapstructure:"secret"`
	SignatureHeader string        `mapstructure:"signature_header"`
	EventType       string        `mapstructure:"event_type"`
	MaxSkew         time.Duration `mapstructure:"max_skew"`
	FollowUpDelay   time.Duration `mapstructure:"follow_up_delay"`
	Path            string        `mapstructure:"path"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	// DeadLetter publishes deliveries that failed to store on reviews.dlq.<reason>.
	DeadLetter bool `mapstructure:"dead_letter"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	DatabasePostgres = "postgres"
	DatabaseMemory   = "memory"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_body_bytes", 1048576)
	v.SetDefault("server.trust_proxy_headers", false)
	v.SetDefault("database.type", DatabasePostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "reviews")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "require")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.write_timeout", "10s")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.signature_header", "X-Nexhealth-Signature")
	v.SetDefault("webhook.event_type", "appointment.completed")
	v.SetDefault("webhook.max_skew", "5m")
	v.SetDefault("webhook.follow_up_delay", "24h")
	v.SetDefault("webhook.path", "/api/nexhealth/webhook")
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.redis_url", "redis://localhost:6379/0")
	v.SetDefault("ratelimit.requests", 600)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "reviews.requests.scheduled")
	v.SetDefault("nats.dead_letter", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/telhawk/reviews")
	}

	// Environment variables override (REVIEWS_WEBHOOK_SECRET, etc.)
	v.SetEnvPrefix("REVIEWS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports every setting the service cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Webhook.Secret) == "" {
		errs = append(errs, errors.New("webhook.secret is required"))
	}
	if c.Webhook.MaxSkew <= 0 {
		errs = append(errs, errors.New("webhook.max_skew must be positive"))
	}
	if c.Webhook.FollowUpDelay <= 0 {
		errs = append(errs, errors.New("webhook.follow_up_delay must be positive"))
	}
	if strings.TrimSpace(c.Webhook.EventType) == "" {
		errs = append(errs, errors.New("webhook.event_type is required"))
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		errs = append(errs, errors.New("webhook.path must start with /"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Database.Type {
	case DatabasePostgres:
		if c.Database.URL == "" {
			p := c.Database.Postgres
			if p.Host == "" || p.Database == "" || p.User == "" {
				errs = append(errs, errors.New("database.url or database.postgres.{host,database,user} is required"))
			}
			if p.Password == "" {
				errs = append(errs, errors.New("database.postgres.password is required when database.url is not set"))
			}
		}
	case DatabaseMemory:
	default:
		errs = append(errs, fmt.Errorf("database.type %q must be %q or %q", c.Database.Type, DatabasePostgres, DatabaseMemory))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RedisURL == "" {
			errs = append(errs, errors.New("ratelimit.redis_url is required when rate limiting is enabled"))
		}
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("ratelimit.requests and ratelimit.window must be positive"))
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, errors.New("nats.url is required when nats is enabled"))
	}

	return errors.Join(errs...)
}

// PostgresURL returns database.url, or a URL built from database.postgres.
func (c *Config) PostgresURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	p := c.Database.Postgres
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Database,
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {p.SSLMode}}.Encode()
	}
	return u.String()
}
