package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/language"

	"folio/internal/categories"
	"folio/internal/clock"
	"folio/internal/domain/content"
	domainerr "folio/internal/domain/errors"
	"folio/internal/logger"
	"folio/internal/metrics"
	"folio/internal/query"
	"folio/internal/source"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func doc(date, status string, tags []string, extra string) string {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return fmt.Sprintf(`---
title: Post from %s
date: %s
status: %s
excerpt: About %s
featuredImage: /img/%s.jpg
category: Legal Feminism
tags: [%s]
author:
  name: Ada
%s---
## Overview

Words words words.
`, date, date, status, date, date, strings.Join(quoted, ", "), extra)
}

func e2eStore() *source.Memory {
	return source.NewMemory(map[string]string{
		"first":  doc("2025-01-01", "published", []string{"a", "b"}, ""),
		"second": doc("2025-02-01", "draft", []string{"a"}, ""),
		"third":  doc("2025-03-01", "scheduled", []string{"b", "c"}, ""),
	})
}

func newService(store source.Store, opts ...func(*Options)) *Service {
	opt := Options{Store: store, Clock: clock.NewFixed(now)}
	for _, fn := range opts {
		fn(&opt)
	}
	return New(opt)
}

func slugsOf(posts []content.PostRecord) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Slug)
	}
	return out
}

func TestEndToEndExample(t *testing.T) {
	svc := newService(e2eStore())
	ctx := context.Background()

	all, err := svc.GetAllPosts(ctx, query.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "first"}, slugsOf(all))
	for _, p := range all {
		assert.True(t, p.IsPublished)
	}

	related, err := svc.GetRelatedPosts(ctx, "first", []string{"a", "b"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"third"}, slugsOf(related))
}

func TestGetAllPosts_DraftsOnlyWhenAsked(t *testing.T) {
	svc := newService(e2eStore())
	ctx := context.Background()

	all, err := svc.GetAllPosts(ctx, query.Filters{IncludeDrafts: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, slugsOf(all))
	assert.False(t, all[1].IsPublished)
}

func TestGetPostBySlug(t *testing.T) {
	svc := newService(e2eStore())
	ctx := context.Background()

	p, err := svc.GetPostBySlug(ctx, "first", PostOptions{})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "/blog/first", p.Path)
	assert.Equal(t, []content.Heading{{ID: "overview", Title: "Overview", Level: 2}}, p.Headings)
	assert.Equal(t, 1, p.ReadingTime.Minutes)

	again, err := svc.GetPostBySlug(ctx, "first.mdx", PostOptions{})
	require.NoError(t, err)
	assert.Equal(t, p, again, "repeated lookups within a snapshot are identical")

	missing, err := svc.GetPostBySlug(ctx, "nope", PostOptions{})
	require.NoError(t, err)
	assert.Nil(t, missing)

	draft, err := svc.GetPostBySlug(ctx, "second", PostOptions{})
	require.NoError(t, err)
	assert.Nil(t, draft)

	draft, err = svc.GetPostBySlug(ctx, "second", PostOptions{IncludeDrafts: true})
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.False(t, draft.IsPublished)
}

func TestScheduledPostFlipsWithClock(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC))
	svc := newService(e2eStore(), func(o *Options) { o.Clock = fixed })
	ctx := context.Background()

	before, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	p, err := svc.GetPostBySlug(ctx, "third", PostOptions{})
	require.NoError(t, err)
	assert.Nil(t, p)

	fixed.Set(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	p, err = svc.GetPostBySlug(ctx, "third", PostOptions{})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsPublished)

	after, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "no reload needed")
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	svc := newService(e2eStore())
	ctx := context.Background()

	p, err := svc.GetPostBySlug(ctx, "first", PostOptions{})
	require.NoError(t, err)
	p.Tags[0] = "mutated"
	p.Headings[0].ID = "mutated"

	again, err := svc.GetPostBySlug(ctx, "first", PostOptions{})
	require.NoError(t, err)
	assert.Equal(t, "a", again.Tags[0])
	assert.Equal(t, "overview", again.Headings[0].ID)
}

func TestInvalidDocumentIsExcludedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := e2eStore()
	store.Put("broken", "---\ntitle: Broken\n---\nbody")

	svc := newService(store, func(o *Options) { o.Logger = logger.FromZap(zap.New(core)) })
	all, err := svc.GetAllPosts(context.Background(), query.Filters{IncludeDrafts: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Issues, 1)
	assert.ErrorIs(t, snap.Issues[0].Err, domainerr.ErrInvalid)

	entries := logs.FilterMessage("document excluded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["id"])
}

func TestListPosts_PaginationBoundary(t *testing.T) {
	docs := make(map[string]string)
	for i := 1; i <= 10; i++ {
		docs[fmt.Sprintf("post-%02d", i)] = doc(fmt.Sprintf("2025-01-%02d", i), "published", nil, "")
	}
	svc := newService(source.NewMemory(docs), func(o *Options) { o.PageSize = query.DefaultPageSize })
	ctx := context.Background()

	page2, err := svc.ListPosts(ctx, ListOptions{Page: 2})
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Equal(t, "post-01", page2.Items[0].Slug)

	page3, err := svc.ListPosts(ctx, ListOptions{Page: 3})
	require.NoError(t, err)
	assert.Empty(t, page3.Items)
	assert.Equal(t, 2, page3.TotalPages)

	oldest, err := svc.ListPosts(ctx, ListOptions{Sort: query.SortOldest, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, "post-01", oldest.Items[0].Slug)
	assert.Equal(t, 5, oldest.TotalPages)
}

func TestViews(t *testing.T) {
	store := e2eStore()
	store.Put("fourth", doc("2025-05-30", "published", []string{"b"}, "featured: true\n"))
	svc := newService(store)
	ctx := context.Background()

	featured, err := svc.GetFeaturedPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fourth"}, slugsOf(featured))

	recent, err := svc.GetRecentPosts(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"fourth", "third"}, slugsOf(recent))

	trending, err := svc.GetTrendingPosts(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "fourth", trending[0].Slug)

	tags, err := svc.GetPostTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, content.TagCount{Name: "b", Count: 3}, tags[0])

	groups, err := svc.GetArchiveGroups(ctx)
	require.NoError(t, err)
	total := 0
	for _, g := range groups {
		total += len(g.Posts)
	}
	assert.Equal(t, 3, total, "archive counts every published post once")
	assert.Equal(t, "2025-05", groups[0].Key)

	search, err := svc.GetSearchIndex(ctx)
	require.NoError(t, err)
	assert.Len(t, search, 3)

	summaries, err := svc.GetPostSummaries(ctx, query.Filters{Tag: "c"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "third", summaries[0].Slug)

	cats, err := svc.GetCategorySummaries(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, 3, cats[0].Count)

	byCat, err := svc.GetPostsByCategory(ctx, "legal-feminism")
	require.NoError(t, err)
	assert.Len(t, byCat, 3)
}

func TestGetRelatedTo(t *testing.T) {
	svc := newService(e2eStore())
	ctx := context.Background()

	post, related, err := svc.GetRelatedTo(ctx, "first.md", 0)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "first", post.Slug)
	assert.True(t, post.IsPublished)
	assert.Equal(t, []string{"third"}, slugsOf(related), "drafts never show up as related")

	for _, slug := range []string{"second", "missing"} {
		post, related, err = svc.GetRelatedTo(ctx, slug, 0)
		require.NoError(t, err)
		assert.Nil(t, post, slug)
		assert.Nil(t, related, slug)
	}
}

func TestResolveCategory(t *testing.T) {
	svc := newService(e2eStore(), func(o *Options) {
		o.Categories = categories.NewRegistry([]categories.Category{
			{Slug: "legal-feminism", Title: "Legal Feminism"},
		}, language.English)
	})
	c, ok := svc.ResolveCategory("LEGAL FEMINISM")
	require.True(t, ok)
	assert.Equal(t, "legal-feminism", c.Slug)
	_, ok = svc.ResolveCategory("Opinion")
	assert.False(t, ok)

	open := newService(e2eStore())
	c, ok = open.ResolveCategory(" Book Reviews ")
	require.True(t, ok)
	assert.Equal(t, categories.Category{Slug: "book-reviews", Title: "Book Reviews"}, c)
	_, ok = open.ResolveCategory("  ")
	assert.False(t, ok)
}

// gatedStore blocks List until release is closed.
type gatedStore struct {
	*source.Memory
	lists   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(m *source.Memory) *gatedStore {
	return &gatedStore{Memory: m, entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gatedStore) List(ctx context.Context) ([]string, error) {
	g.lists.Add(1)
	g.entered <- struct{}{}
	<-g.release
	return g.Memory.List(ctx)
}

func TestSnapshot_CoalescesConcurrentLoads(t *testing.T) {
	store := newGatedStore(e2eStore())
	svc := newService(store)

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := svc.Snapshot(context.Background())
			if assert.NoError(t, err) {
				ids[i] = snap.ID
			}
		}(i)
	}

	<-store.entered
	close(store.release)
	wg.Wait()

	assert.Equal(t, int32(1), store.lists.Load())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestInvalidate_Reloads(t *testing.T) {
	store := e2eStore()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := newService(store, func(o *Options) { o.Metrics = m })
	ctx := context.Background()

	first, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	store.Put("fresh", doc("2025-05-01", "published", nil, ""))
	cached, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, cached.ID)
	assert.Len(t, cached.Posts, 3)

	svc.Invalidate("test")
	second, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, second.Posts, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Loads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invalidations.WithLabelValues("test")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Documents))
}

func TestInvalidate_DuringLoadIsNotMemoized(t *testing.T) {
	store := newGatedStore(e2eStore())
	svc := newService(store)

	done := make(chan *Snapshot, 1)
	go func() {
		snap, err := svc.Snapshot(context.Background())
		assert.NoError(t, err)
		done <- snap
	}()

	<-store.entered
	svc.Invalidate("test")
	close(store.release)

	stale := <-done
	require.NotNil(t, stale)
	assert.Len(t, stale.Posts, 3, "waiters still get the load they joined")

	fresh, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)
	assert.Equal(t, int32(2), store.lists.Load())
}

func TestSnapshot_AbandonedCallerDoesNotCancelLoad(t *testing.T) {
	store := newGatedStore(e2eStore())
	svc := newService(store)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Snapshot(ctx)
		errCh <- err
	}()

	<-store.entered
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(store.release)
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Posts, 3)
	assert.Equal(t, int32(1), store.lists.Load())
}

type unavailableStore struct {
	calls atomic.Int32
}

func (u *unavailableStore) List(context.Context) ([]string, error) {
	u.calls.Add(1)
	return nil, &domainerr.StoreUnavailableError{Op: "provision", Err: errors.New("read-only file system")}
}

func (u *unavailableStore) Read(context.Context, string) ([]byte, error) {
	return nil, domainerr.ErrNotFound
}

func TestStoreUnavailable_ServesEmptyAndRetries(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := &unavailableStore{}
	svc := newService(store, func(o *Options) { o.Logger = logger.FromZap(zap.New(core)) })
	ctx := context.Background()

	all, err := svc.GetAllPosts(ctx, query.Filters{})
	require.NoError(t, err)
	assert.Empty(t, all)

	p, err := svc.GetPostBySlug(ctx, "anything", PostOptions{})
	require.NoError(t, err)
	assert.Nil(t, p)

	assert.Equal(t, int32(2), store.calls.Load(), "empty result is not memoized")
	assert.Equal(t, 2, logs.FilterMessage("document store unavailable").Len())
}

type brokenStore struct{}

func (brokenStore) List(context.Context) ([]string, error) { return nil, errors.New("boom") }
func (brokenStore) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("boom")
}

func TestSnapshot_OtherErrorsPropagate(t *testing.T) {
	svc := newService(brokenStore{})
	_, err := svc.GetAllPosts(context.Background(), query.Filters{})
	assert.ErrorContains(t, err, "boom")
}
