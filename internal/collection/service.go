// Package collection owns the in-memory post collection. It loads the
// document store once, shares that snapshot between readers and drops it when
// told the documents changed.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"folio/internal/categories"
	"folio/internal/clock"
	"folio/internal/derive"
	"folio/internal/domain/content"
	domainerr "folio/internal/domain/errors"
	"folio/internal/ingest"
	"folio/internal/logger"
	"folio/internal/metrics"
	"folio/internal/source"
)

const loadKey = "snapshot"

type Options struct {
	Store   source.Store
	Clock   clock.Clock
	Logger  logger.Logger
	Metrics *metrics.Metrics
	// Cache is optional; without it every load parses every document.
	Cache          ingest.Cache
	Location       *time.Location
	WordsPerMinute int
	Workers        int
	PageSize       int
	Categories     *categories.Registry
}

// Snapshot is one immutable load of the store. Posts are in canonical order,
// newest first.
type Snapshot struct {
	ID       string
	LoadedAt time.Time
	Posts    []content.PostRecord
	Issues   []ingest.Issue

	bySlug map[string]int
}

func newSnapshot(posts []content.PostRecord, issues []ingest.Issue, at time.Time) *Snapshot {
	s := &Snapshot{
		ID:       uuid.NewString(),
		LoadedAt: at,
		Posts:    posts,
		Issues:   issues,
		bySlug:   make(map[string]int, len(posts)),
	}
	for i, p := range posts {
		s.bySlug[p.Slug] = i
	}
	return s
}

func (s *Snapshot) lookup(slug string) (content.PostRecord, bool) {
	i, ok := s.bySlug[slug]
	if !ok {
		return content.PostRecord{}, false
	}
	return s.Posts[i], true
}

type Service struct {
	opt Options
	log logger.Logger

	group singleflight.Group

	mu         sync.RWMutex
	snap       *Snapshot
	generation uint64
}

func New(opt Options) *Service {
	if opt.Clock == nil {
		opt.Clock = clock.System{}
	}
	if opt.Logger == nil {
		opt.Logger = logger.NewNop()
	}
	if opt.Location == nil {
		opt.Location = time.UTC
	}
	if opt.WordsPerMinute <= 0 {
		opt.WordsPerMinute = derive.DefaultWordsPerMinute
	}
	if opt.Categories == nil {
		opt.Categories = categories.NewRegistry(nil, language.English)
	}
	return &Service{
		opt: opt,
		log: opt.Logger.With(logger.String("component", "collection")),
	}
}

// Now is the service clock reading used for publication checks.
func (s *Service) Now() time.Time { return s.opt.Clock.Now() }

func (s *Service) Location() *time.Location { return s.opt.Location }

// Snapshot returns the memoized collection, loading it if needed. Concurrent
// callers share one load. A caller whose ctx ends stops waiting with ctx.Err();
// the load itself carries on for the others.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	ch := s.group.DoChan(loadKey, func() (any, error) {
		return s.load(context.WithoutCancel(ctx))
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the memoized snapshot. source names the signal for logs
// and metrics. A load already in flight still answers its callers but is not kept.
func (s *Service) Invalidate(source string) {
	s.mu.Lock()
	s.generation++
	s.snap = nil
	s.mu.Unlock()
	s.group.Forget(loadKey)

	s.opt.Metrics.ObserveInvalidation(source)
	s.log.Info("collection invalidated", logger.String("source", source))
}

func (s *Service) load(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	gen, current := s.generation, s.snap
	s.mu.RUnlock()
	if current != nil {
		return current, nil
	}

	start := time.Now()
	res, err := ingest.Load(ctx, s.opt.Store, ingest.Options{
		Location:       s.opt.Location,
		WordsPerMinute: s.opt.WordsPerMinute,
		Workers:        s.opt.Workers,
		Cache:          s.opt.Cache,
	})
	if err != nil {
		var unavailable *domainerr.StoreUnavailableError
		if errors.As(err, &unavailable) {
			// serve an empty collection and retry on the next read
			s.log.Error("document store unavailable", logger.Error(err))
			s.opt.Metrics.ObserveLoad("unavailable", time.Since(start), 0, 0)
			return newSnapshot(nil, nil, s.opt.Clock.Now()), nil
		}
		s.opt.Metrics.ObserveLoad("error", time.Since(start), 0, 0)
		return nil, fmt.Errorf("load collection: %w", err)
	}

	for _, issue := range res.Issues {
		fields := []logger.Field{logger.String("id", issue.ID), logger.Error(issue.Err)}
		var invalid *domainerr.InvalidDocumentError
		if errors.As(issue.Err, &invalid) {
			fields = append(fields, logger.Strings("violations", invalid.Violations.Fields()))
		}
		s.log.Warn("document excluded", fields...)
	}
	if res.CacheErr != nil {
		s.log.Warn("parse cache maintenance failed", logger.Error(res.CacheErr))
	}

	snap := newSnapshot(res.Posts, res.Issues, s.opt.Clock.Now())
	elapsed := time.Since(start)
	s.opt.Metrics.ObserveLoad("ok", elapsed, len(snap.Posts), len(res.Issues))
	s.opt.Metrics.ObserveCache(res.CacheHits, res.CacheMisses)

	s.mu.Lock()
	stored := s.generation == gen
	if stored {
		s.snap = snap
	}
	s.mu.Unlock()

	s.log.Info("collection loaded",
		logger.String("snapshot", snap.ID),
		logger.Int("posts", len(snap.Posts)),
		logger.Int("excluded", len(res.Issues)),
		logger.Int("cache_hits", res.CacheHits),
		logger.Duration("elapsed", elapsed),
		logger.Bool("stale", !stored),
	)
	return snap, nil
}
