package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"folio/internal/categories"
	"folio/internal/collection"
	"folio/internal/domain/config"
	"folio/internal/index"
	"folio/internal/ingest"
	"folio/internal/logger"
	"folio/internal/metrics"
	"folio/internal/source"
)

const envPrefix = "FOLIO"

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"content-dir": "content.dir",
	"addr":        "server.addr",
	"log-level":   "log.level",
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "folio",
		Short:         "Serve and check a directory of Markdown posts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("config", config.DefaultPath, "config file")
	pf.String("content-dir", "", "directory holding the posts (overrides content.dir)")
	pf.String("addr", "", "HTTP listen address (overrides server.addr)")
	pf.String("log-level", "", "debug, info, warn or error (overrides log.level)")

	root.AddCommand(
		newServeCmd(),
		newCheckCmd(),
		newExportCmd(),
		newInvalidateCmd(),
	)
	return root
}

// loadConfig layers the config file, FOLIO_* environment variables and flags,
// in increasing precedence, then validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cmd.Flags().Changed("config") {
			return cfg, err
		}
	}
	applyOverrides(v, &cfg)
	return cfg, cfg.Validate()
}

func applyOverrides(v *viper.Viper, cfg *config.Config) {
	strs := map[string]*string{
		"site.url":                &cfg.Site.URL,
		"site.time_zone":          &cfg.Site.TimeZone,
		"content.dir":             &cfg.Content.Dir,
		"cache.index_path":        &cfg.Cache.IndexPath,
		"redis.addr":              &cfg.Redis.Addr,
		"redis.password":          &cfg.Redis.Password,
		"redis.channel":           &cfg.Redis.Channel,
		"server.addr":             &cfg.Server.Addr,
		"server.invalidate_token": &cfg.Server.InvalidateToken,
		"log.level":               &cfg.Log.Level,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			if s := v.GetString(key); s != "" {
				*dst = s
			}
		}
	}
	bools := map[string]*bool{
		"cache.enabled":   &cfg.Cache.Enabled,
		"watch.enabled":   &cfg.Watch.Enabled,
		"log.development": &cfg.Log.Development,
	}
	for key, dst := range bools {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}
	if v.IsSet("redis.db") {
		cfg.Redis.DB = v.GetInt("redis.db")
	}
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg      config.Config
	log      logger.Logger
	registry *prometheus.Registry
	index    *index.Store
	svc      *collection.Service
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, withExit(2, fmt.Errorf("config: %w", err))
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, withExit(2, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &app{cfg: cfg, log: log, registry: reg}

	var cache ingest.Cache
	if cfg.Cache.Enabled {
		idx, err := index.Open(index.OpenOptions{
			Path: cfg.Cache.IndexPath,
			Salt: fmt.Sprintf("%s|%d", cfg.Site.TimeZone, cfg.Content.WordsPerMinute),
		})
		if err != nil {
			log.Warn("parse cache disabled", logger.String("path", cfg.Cache.IndexPath), logger.Error(err))
		} else {
			a.index = idx
			cache = idx
		}
	}

	a.svc = collection.New(collection.Options{
		Store:          source.NewFS(cfg.Content.Dir, cfg.Content.Extensions...),
		Logger:         log,
		Metrics:        metrics.New(reg),
		Cache:          cache,
		Location:       cfg.Location(),
		WordsPerMinute: cfg.Content.WordsPerMinute,
		PageSize:       cfg.Content.PageSize,
		Categories:     categories.NewRegistry(categoryList(cfg.Categories), siteLanguage(cfg.Site.Language)),
	})
	return a, nil
}

func (a *app) Close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.log.Warn("close parse cache", logger.Error(err))
		}
	}
	_ = a.log.Sync()
}

// redisClient returns nil when no Redis address is configured.
func (a *app) redisClient() *redis.Client {
	if a.cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
}

func categoryList(in []config.CategoryConfig) []categories.Category {
	out := make([]categories.Category, 0, len(in))
	for _, c := range in {
		out = append(out, categories.Category{
			Slug:        c.Slug,
			Title:       c.Title,
			Description: c.Description,
			Color:       c.Color,
			Accent:      c.Accent,
			Quote:       c.Quote,
		})
	}
	return out
}

func siteLanguage(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}
