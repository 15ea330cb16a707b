package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	domainerr "folio/internal/domain/errors"
)

const DefaultPath = "folio.yaml"

type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Content    ContentConfig    `yaml:"content"`
	Cache      CacheConfig      `yaml:"cache"`
	Watch      WatchConfig      `yaml:"watch"`
	Redis      RedisConfig      `yaml:"redis"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Categories []CategoryConfig `yaml:"categories"`
}

type SiteConfig struct {
	Title       string `yaml:"title"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	TimeZone    string `yaml:"time_zone"`
	Language    string `yaml:"language"`
}

type ContentConfig struct {
	Dir            string   `yaml:"dir"`
	Extensions     []string `yaml:"extensions"`
	PageSize       int      `yaml:"page_size"`
	WordsPerMinute int      `yaml:"words_per_minute"`
}

type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	IndexPath string `yaml:"index_path"`
}

type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// RedisConfig enables the pub/sub invalidation subscriber when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// InvalidateToken guards POST /api/invalidate; empty disables the endpoint.
	InvalidateToken string `yaml:"invalidate_token"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type CategoryConfig struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
	Accent      string `yaml:"accent"`
	Quote       string `yaml:"quote"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			Title:    "Folio",
			URL:      "http://localhost:8080",
			TimeZone: "UTC",
			Language: "en",
		},
		Content: ContentConfig{
			Dir:            "content/posts",
			Extensions:     []string{".md", ".mdx"},
			PageSize:       9,
			WordsPerMinute: 200,
		},
		Cache: CacheConfig{
			Enabled:   true,
			IndexPath: ".folio/cache.db",
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 200 * time.Millisecond,
		},
		Redis: RedisConfig{
			Channel: "folio:invalidate",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Site.Title) == "" {
		ve.Add("site.title", "must not be empty")
	}
	if strings.TrimSpace(c.Site.URL) == "" {
		ve.Add("site.url", "must not be empty")
	} else if !isValidAbsURL(c.Site.URL) {
		ve.Add("site.url", "must be a valid absolute URL")
	}
	if _, err := time.LoadLocation(c.Site.TimeZone); err != nil {
		ve.Add("site.time_zone", fmt.Sprintf("unknown time zone %q", c.Site.TimeZone))
	}

	if strings.TrimSpace(c.Content.Dir) == "" {
		ve.Add("content.dir", "must not be empty")
	}
	if len(c.Content.Extensions) == 0 {
		ve.Add("content.extensions", "must list at least one extension")
	}
	for _, ext := range c.Content.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			ve.Add("content.extensions", fmt.Sprintf("%q must start with '.'", ext))
		}
	}
	if c.Content.PageSize <= 0 {
		ve.Add("content.page_size", "must be positive")
	}
	if c.Content.WordsPerMinute <= 0 {
		ve.Add("content.words_per_minute", "must be positive")
	}

	if c.Cache.Enabled && strings.TrimSpace(c.Cache.IndexPath) == "" {
		ve.Add("cache.index_path", "must not be empty when the cache is enabled")
	}
	if c.Watch.Enabled && c.Watch.Debounce <= 0 {
		ve.Add("watch.debounce", "must be positive")
	}
	if c.Redis.Addr != "" && strings.TrimSpace(c.Redis.Channel) == "" {
		ve.Add("redis.channel", "must not be empty when redis.addr is set")
	}
	if c.Redis.DB < 0 {
		ve.Add("redis.db", "must not be negative")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		ve.Add("server.addr", "must not be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("log.level", "must be debug, info, warn or error")
	}

	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Slug) == "" && strings.TrimSpace(cat.Title) == "" {
			ve.Add(fmt.Sprintf("categories[%d]", i), "needs a slug or a title")
		}
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

// Location resolves Site.TimeZone, defaulting to UTC.
func (c Config) Location() *time.Location {
	if c.Site.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Site.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Read decodes path over the defaults without validating: fields present in
// the file win, the rest keep their default values.
func Read(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load is Read followed by Validate.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the validated defaults.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		return cfg, cfg.Validate()
	}
	return cfg, err
}
