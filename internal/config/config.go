package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Entry creation policies for dialog line text keys.
const (
	EntryPolicyEager = "eager"
	EntryPolicyLazy  = "lazy"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Dialogs  DialogsConfig  `mapstructure:"dialogs"`
	Layout   LayoutConfig   `mapstructure:"layout"`
	Lint     LintConfig     `mapstructure:"lint"`
	Storage  StorageConfig  `mapstructure:"storage"`
	LogLevel string         `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for the SQLite database file
}

type AuthConfig struct {
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Disabled  bool          `mapstructure:"disabled"`
}

type DialogsConfig struct {
	EntryPolicy string `mapstructure:"entry_policy"`
}

type LayoutConfig struct {
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
	Engine string  `mapstructure:"engine"` // fdp or neato
	Ticks  int     `mapstructure:"ticks"`
}

type LintConfig struct {
	Catalogue string `mapstructure:"catalogue"` // optional TOML file overriding the built-in catalogue
}

type StorageConfig struct {
	LocalPath string `mapstructure:"local_path"`
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		if d.Name == ":memory:" {
			return "file::memory:?cache=shared&_pragma=foreign_keys(1)"
		}
		return fmt.Sprintf("file:%s/%s.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", d.Path, d.Name)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Dialogs.EntryPolicy {
	case EntryPolicyEager, EntryPolicyLazy:
	default:
		return fmt.Errorf("unsupported dialogs.entry_policy %q", c.Dialogs.EntryPolicy)
	}
	switch c.Layout.Engine {
	case "fdp", "neato":
	default:
		return fmt.Errorf("unsupported layout.engine %q", c.Layout.Engine)
	}
	if c.Layout.Width <= 0 || c.Layout.Height <= 0 {
		return errors.New("layout width and height must be positive")
	}
	if !c.Auth.Disabled && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}

// Load reads app.yaml (optional), a .env file (optional) and DIALOGTOOL_*
// environment variables, in increasing order of precedence. A non-empty
// path names the config file explicitly; it must then exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("../..")
	}

	SetDefaults(v)

	v.SetEnvPrefix("DIALOGTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("auth.username", "DIALOGTOOL_AUTH_USERNAME", "BASIC_AUTH_USER")
	_ = v.BindEnv("auth.password", "DIALOGTOOL_AUTH_PASSWORD", "BASIC_AUTH_PASS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "dialogtool")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "password")
	v.SetDefault("auth.jwt_secret", "changeme-secret")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.disabled", false)
	v.SetDefault("dialogs.entry_policy", EntryPolicyEager)
	v.SetDefault("layout.width", 1200.0)
	v.SetDefault("layout.height", 600.0)
	v.SetDefault("layout.engine", "fdp")
	v.SetDefault("layout.ticks", 300)
	v.SetDefault("lint.catalogue", "")
	v.SetDefault("storage.local_path", "./exports")
	v.SetDefault("log_level", "info")
}
