package mediumblog

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/eringen/mediumblog/content"
	"github.com/eringen/mediumblog/sanity"
	"github.com/eringen/mediumblog/views"
)

const (
	BackendSanity = "sanity"
	BackendSQLite = "sqlite"
)

var (
	ErrMissingSessionSecret = errors.New("mediumblog: session secret is required")
	ErrUnknownBackend       = errors.New("mediumblog: unknown content backend")
)

// SanityConfig selects the hosted dataset posts are read from.
type SanityConfig struct {
	ProjectID  string `toml:"projectID"`
	Dataset    string `toml:"dataset"`
	APIVersion string `toml:"apiVersion"`
	Token      string `toml:"token"`
}

// SiteConfig holds all configuration for a blog.
type SiteConfig struct {
	Name        string `toml:"name"`        // Site name (default "Medium")
	URL         string `toml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `toml:"description"` // Site description for RSS and meta tags
	Author      string `toml:"author"`      // Fallback author for JSON-LD

	Addr string `toml:"addr"` // Listen address (default ":3000")
	Env  string `toml:"env"`  // "production" reads through the CDN

	Backend      string       `toml:"backend"`      // "sanity" (default) or "sqlite"
	Sanity       SanityConfig `toml:"sanity"`       // used by the sanity backend
	DatabasePath string       `toml:"databasePath"` // SQLite path (default "data/blog.db")
	StaticDir    string       `toml:"staticDir"`    // user static assets (default "public")

	SessionSecret string `toml:"sessionSecret"` // Required: signs the form-state cookie
	CookieSecure  bool   `toml:"cookieSecure"`  // Set true for HTTPS

	// CommentEndpoint, when set, receives submitted comments over HTTP
	// instead of the in-process comment service.
	CommentEndpoint string `toml:"commentEndpoint"`

	RevalidateSeconds int    `toml:"revalidateSeconds"` // page freshness (default 60)
	LogLevel          string `toml:"logLevel"`          // debug, info, warn, error
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Medium"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Backend == "" {
		c.Backend = BackendSanity
	}
	if c.Sanity.Dataset == "" {
		c.Sanity.Dataset = sanity.DefaultDataset
	}
	if c.Sanity.APIVersion == "" {
		c.Sanity.APIVersion = sanity.DefaultAPIVersion
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.RevalidateSeconds <= 0 {
		c.RevalidateSeconds = int(content.DefaultRevalidate / time.Second)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports configuration the server cannot start with.
func (c SiteConfig) Validate() error {
	switch c.Backend {
	case BackendSanity:
		if strings.TrimSpace(c.Sanity.ProjectID) == "" {
			return sanity.ErrMissingProjectID
		}
	case BackendSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.SessionSecret == "" {
		return ErrMissingSessionSecret
	}
	return nil
}

// UseCDN reports whether reads go through the content CDN.
func (c SiteConfig) UseCDN() bool {
	return strings.EqualFold(c.Env, "production")
}

// Revalidate is how long a generated page stays fresh.
func (c SiteConfig) Revalidate() time.Duration {
	return time.Duration(c.RevalidateSeconds) * time.Second
}

// SanityClientConfig is the client configuration for the sanity backend.
func (c SiteConfig) SanityClientConfig() sanity.Config {
	return sanity.Config{
		ProjectID:  c.Sanity.ProjectID,
		Dataset:    c.Sanity.Dataset,
		APIVersion: c.Sanity.APIVersion,
		UseCDN:     c.UseCDN(),
		Token:      c.Sanity.Token,
	}
}

func (c SiteConfig) site() views.SiteConfig {
	return views.SiteConfig{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Author:      c.Author,
	}
}

func (c SiteConfig) String() string {
	mask := func(s string) string { return strings.Repeat("*", len(s)) }
	return fmt.Sprintf("{name:%q url:%q addr:%q env:%q backend:%q sanity:{project:%q dataset:%q version:%q token:%q} db:%q secret:%q commentEndpoint:%q revalidate:%ds log:%q}",
		c.Name, c.URL, c.Addr, c.Env, c.Backend,
		c.Sanity.ProjectID, c.Sanity.Dataset, c.Sanity.APIVersion, mask(c.Sanity.Token),
		c.DatabasePath, mask(c.SessionSecret), c.CommentEndpoint, c.RevalidateSeconds, c.LogLevel)
}

// LoadConfig reads the optional TOML file at path, applies environment
// overrides and fills in defaults.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("mediumblog: load config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv() error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&c.Name, "SITE_NAME")
	setString(&c.URL, "SITE_URL")
	setString(&c.Description, "SITE_DESCRIPTION")
	setString(&c.Author, "SITE_AUTHOR")
	setString(&c.Addr, "ADDR")
	setString(&c.Env, "APP_ENV")
	setString(&c.Backend, "CONTENT_BACKEND")
	setString(&c.Sanity.ProjectID, "SANITY_PROJECT_ID", "NEXT_PUBLIC_SANITY_PROJECT_ID")
	setString(&c.Sanity.Dataset, "SANITY_DATASET", "NEXT_PUBLIC_SANITY_DATASET")
	setString(&c.Sanity.APIVersion, "SANITY_API_VERSION")
	setString(&c.Sanity.Token, "SANITY_API_TOKEN")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.StaticDir, "STATIC_DIR")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setString(&c.CommentEndpoint, "COMMENT_ENDPOINT")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("mediumblog: COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v := os.Getenv("REVALIDATE_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("mediumblog: REVALIDATE_SECONDS must be a positive integer, got %q", v)
		}
		c.RevalidateSeconds = n
	}
	return nil
}

// ParseLogLevel maps a config level name onto logrus, defaulting to info.
func ParseLogLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
