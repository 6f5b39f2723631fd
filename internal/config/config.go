package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Options  OptionsConfig  `yaml:"options" envPrefix:"OPTIONS_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Install  InstallConfig  `yaml:"install"`
	Dice     DiceConfig     `yaml:"dice"`
	Embed    EmbedConfig    `yaml:"embed"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

type ServerConfig struct {
	ListenAddr string    `yaml:"listen_addr" env:"LISTEN_ADDR"`
	TLS        TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool       `yaml:"enabled"`
	CertFile string     `yaml:"cert_file"`
	KeyFile  string     `yaml:"key_file"`
	ACME     ACMEConfig `yaml:"acme"`
}

// ACMEConfig enables automatic certificates from Let's Encrypt
type ACMEConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Email    string   `yaml:"email"`
	Domains  []string `yaml:"domains"`
	CacheDir string   `yaml:"cache_dir"`
}

type DatabaseConfig struct {
	Path        string `yaml:"path" env:"PATH"`
	TablePrefix string `yaml:"table_prefix" env:"TABLE_PREFIX"`
}

// OptionsConfig selects where persisted options (page size, schema version) live
type OptionsConfig struct {
	Backend  string `yaml:"backend" env:"BACKEND"`     // sql or bolt
	BoltPath string `yaml:"bolt_path" env:"BOLT_PATH"` // used when backend is bolt
}

type AuthConfig struct {
	SessionTTL   time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	CookieSecure bool          `yaml:"cookie_secure" env:"COOKIE_SECURE"`

	// Failed login attempts allowed per client address; negative disables
	LoginAttemptsPerMinute int `yaml:"login_attempts_per_minute" env:"LOGIN_ATTEMPTS_PER_MINUTE"`
	LoginAttemptsPerHour   int `yaml:"login_attempts_per_hour" env:"LOGIN_ATTEMPTS_PER_HOUR"`

	// How often expired sessions are purged while serving
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`

	OIDC OIDCConfig `yaml:"oidc" envPrefix:"OIDC_"`
}

// OIDCConfig enables single sign-on through an OpenID Connect provider.
// Users signing in this way are created on first login.
type OIDCConfig struct {
	Enabled       bool     `yaml:"enabled" env:"ENABLED"`
	Provider      string   `yaml:"provider"` // shown on the login page
	ClientID      string   `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret  string   `yaml:"client_secret" env:"CLIENT_SECRET"`
	IssuerURL     string   `yaml:"issuer_url" env:"ISSUER_URL"`
	RedirectURL   string   `yaml:"redirect_url" env:"REDIRECT_URL"`
	Scopes        []string `yaml:"scopes"`
	AllowedGroups []string `yaml:"allowed_groups"`
}

type InstallConfig struct {
	// SeedCampaign inserts the test campaign fixture on install
	SeedCampaign *bool `yaml:"seed_campaign"`
}

// DiceConfig lists the choices offered by the roll form
type DiceConfig struct {
	Faces     []int `yaml:"faces"`
	Modifiers []int `yaml:"modifiers"`
}

type EmbedConfig struct {
	MaxCount int `yaml:"max_count"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled" env:"ENABLED"`
	ListenAddr string   `yaml:"listen_addr" env:"LISTEN_ADDR"` // Default: :9090
	Path       string   `yaml:"path"`                          // Default: /metrics
	AllowedIPs []string `yaml:"allowed_ips"`                   // IP addresses/CIDRs allowed to access metrics
}

// EnvPrefix is prepended to every environment override
const EnvPrefix = "DICEROLLER_"

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes, applies defaults and
// environment overrides, then validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(cfg)

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SeedCampaign reports whether the test campaign fixture should be installed
func (c *Config) SeedCampaign() bool {
	return c.Install.SeedCampaign == nil || *c.Install.SeedCampaign
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8088"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/diceroller/app.db"
	}
	if cfg.Database.TablePrefix == "" {
		cfg.Database.TablePrefix = "wp_"
	}
	if cfg.Server.TLS.ACME.CacheDir == "" {
		cfg.Server.TLS.ACME.CacheDir = "/var/lib/diceroller/acme"
	}
	if cfg.Options.Backend == "" {
		cfg.Options.Backend = "sql"
	}
	if cfg.Options.BoltPath == "" {
		cfg.Options.BoltPath = "/var/lib/diceroller/options.db"
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 24 * time.Hour
	}
	if cfg.Auth.LoginAttemptsPerMinute == 0 {
		cfg.Auth.LoginAttemptsPerMinute = 10
	}
	if cfg.Auth.LoginAttemptsPerHour == 0 {
		cfg.Auth.LoginAttemptsPerHour = 60
	}
	if cfg.Auth.CleanupInterval == 0 {
		cfg.Auth.CleanupInterval = 10 * time.Minute
	}
	if cfg.Auth.OIDC.Provider == "" {
		cfg.Auth.OIDC.Provider = "OIDC"
	}
	if len(cfg.Auth.OIDC.Scopes) == 0 {
		cfg.Auth.OIDC.Scopes = []string{"openid", "profile", "email"}
	}
	if len(cfg.Dice.Faces) == 0 {
		cfg.Dice.Faces = []int{10, 100}
	}
	if len(cfg.Dice.Modifiers) == 0 {
		cfg.Dice.Modifiers = []int{-40, -30, -20, -10, -2, 0, 2, 10, 20, 30, 40}
	}
	if cfg.Embed.MaxCount == 0 {
		cfg.Embed.MaxCount = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	switch cfg.Options.Backend {
	case "sql", "bolt":
	default:
		return fmt.Errorf("options.backend must be sql or bolt, got %q", cfg.Options.Backend)
	}
	for _, f := range cfg.Dice.Faces {
		if f < 1 {
			return fmt.Errorf("dice.faces must be positive, got %d", f)
		}
	}
	if cfg.Embed.MaxCount < 1 {
		return fmt.Errorf("embed.max_count must be positive")
	}
	if tls := cfg.Server.TLS; tls.Enabled {
		switch {
		case tls.ACME.Enabled && len(tls.ACME.Domains) == 0:
			return fmt.Errorf("server.tls.acme.domains is required when ACME is enabled")
		case !tls.ACME.Enabled && (tls.CertFile == "" || tls.KeyFile == ""):
			return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
		}
	}
	if oidc := cfg.Auth.OIDC; oidc.Enabled {
		if oidc.ClientID == "" {
			return fmt.Errorf("auth.oidc.client_id is required when OIDC is enabled")
		}
		if oidc.ClientSecret == "" {
			return fmt.Errorf("auth.oidc.client_secret is required when OIDC is enabled")
		}
		if oidc.IssuerURL == "" {
			return fmt.Errorf("auth.oidc.issuer_url is required when OIDC is enabled")
		}
		if oidc.RedirectURL == "" {
			return fmt.Errorf("auth.oidc.redirect_url is required when OIDC is enabled")
		}
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}
