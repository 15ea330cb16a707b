package ingest

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"folio/internal/derive"
	"folio/internal/domain/content"
	domainerr "folio/internal/domain/errors"
	"folio/internal/source"
)

// Cache stores decorated records between loads. Implementations key entries by
// id and decide freshness from the raw bytes.
type Cache interface {
	Lookup(id string, raw []byte) (content.PostRecord, bool)
	Store(id string, raw []byte, rec content.PostRecord) error
	Prune(keep []string) error
}

type Options struct {
	Location       *time.Location
	WordsPerMinute int
	Workers        int
	Cache          Cache
}

// Issue is a document excluded from the collection.
type Issue struct {
	ID  string
	Err error
}

type Result struct {
	Posts       []content.PostRecord
	Issues      []Issue
	CacheHits   int
	CacheMisses int
	// CacheErr reports a failure to prune the cache; the load itself succeeded.
	CacheErr error
}

type outcome struct {
	pos    int
	rec    content.PostRecord
	err    error
	cached bool
}

// Load reads every document in store, parses and decorates it. Only a failure
// to enumerate the store or a cancelled ctx fails the load; a document that
// cannot be read or validated becomes an Issue.
func Load(ctx context.Context, store source.Store, opt Options) (Result, error) {
	ids, err := store.List(ctx)
	if err != nil {
		return Result{}, err
	}
	slices.Sort(ids)

	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	jobs := make(chan int)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range jobs {
				results <- loadOne(ctx, store, ids[pos], opt, pos)
			}
		}()
	}

	go func() {
		defer close(results)
		defer wg.Wait()
		defer close(jobs)
		for pos := range ids {
			select {
			case jobs <- pos:
			case <-ctx.Done():
				return
			}
		}
	}()

	outcomes := make([]outcome, len(ids))
	received := 0
	var res Result
	for o := range results {
		outcomes[o.pos] = o
		received++
		if o.err != nil {
			continue
		}
		if o.cached {
			res.CacheHits++
		} else if opt.Cache != nil {
			res.CacheMisses++
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if received != len(ids) {
		return Result{}, fmt.Errorf("load: %d of %d documents processed", received, len(ids))
	}

	seen := make(map[string]string, len(ids))
	res.Posts = make([]content.PostRecord, 0, len(ids))
	for pos, o := range outcomes {
		id := ids[pos]
		if o.err != nil {
			res.Issues = append(res.Issues, Issue{ID: id, Err: o.err})
			continue
		}
		if owner, dup := seen[o.rec.Slug]; dup {
			res.Issues = append(res.Issues, Issue{
				ID:  id,
				Err: domainerr.NewInvalidDocument(id, "slug", fmt.Sprintf("%q is already used by %q", o.rec.Slug, owner)),
			})
			continue
		}
		seen[o.rec.Slug] = id
		res.Posts = append(res.Posts, o.rec)
	}
	slices.SortStableFunc(res.Posts, content.CompareNewest)

	if opt.Cache != nil {
		if err := opt.Cache.Prune(ids); err != nil {
			res.CacheErr = fmt.Errorf("prune parse cache: %w", err)
		}
	}
	return res, nil
}

func loadOne(ctx context.Context, store source.Store, id string, opt Options, pos int) outcome {
	raw, err := store.Read(ctx, id)
	if err != nil {
		return outcome{pos: pos, err: err}
	}
	if opt.Cache != nil {
		if rec, ok := opt.Cache.Lookup(id, raw); ok {
			return outcome{pos: pos, rec: rec, cached: true}
		}
	}
	doc, err := ParseDocument(raw, id, opt.Location)
	if err != nil {
		return outcome{pos: pos, err: err}
	}
	rec := derive.Decorate(id, doc.Meta, doc.Body, derive.Options{WordsPerMinute: opt.WordsPerMinute})
	if opt.Cache != nil {
		// a failed write only costs a re-parse next time
		_ = opt.Cache.Store(id, raw, rec)
	}
	return outcome{pos: pos, rec: rec}
}
