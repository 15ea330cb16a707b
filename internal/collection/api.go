package collection

import (
	"context"
	"strings"
	"time"

	"folio/internal/categories"
	"folio/internal/derive"
	"folio/internal/domain/content"
	"folio/internal/query"
)

const (
	FeaturedLimit      = 3
	DefaultRecentLimit = 6
)

type ListOptions struct {
	query.Filters
	Sort     query.SortOrder
	Page     int
	PageSize int
}

type PostOptions struct {
	IncludeDrafts bool
}

// posts returns the snapshot posts matching f at the service clock, with
// IsPublished stamped and nothing shared with the snapshot.
func (s *Service) posts(ctx context.Context, f query.Filters) ([]content.PostRecord, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	return stamp(query.Filter(snap.Posts, f, now), now), nil
}

func stamp(posts []content.PostRecord, now time.Time) []content.PostRecord {
	out := make([]content.PostRecord, len(posts))
	for i, p := range posts {
		c := p.Clone()
		c.IsPublished = derive.IsPublished(p.Status, p.Date, now)
		out[i] = c
	}
	return out
}

// GetAllPosts lists posts matching f, newest first. Drafts and scheduled posts
// not yet due are left out unless f.IncludeDrafts is set.
func (s *Service) GetAllPosts(ctx context.Context, f query.Filters) ([]content.PostRecord, error) {
	return s.posts(ctx, f)
}

func (s *Service) GetPostsByCategory(ctx context.Context, category string) ([]content.PostRecord, error) {
	return s.posts(ctx, query.Filters{Category: category})
}

// ResolveCategory maps a requested name to its registry entry. With an empty
// registry any non-blank name resolves to itself.
func (s *Service) ResolveCategory(name string) (categories.Category, bool) {
	if s.opt.Categories.Len() == 0 {
		name = strings.TrimSpace(name)
		if name == "" {
			return categories.Category{}, false
		}
		return categories.Category{Slug: query.CategorySlug(name), Title: name}, true
	}
	return s.opt.Categories.Resolve(name)
}

// ListPosts filters, sorts and pages the collection into summaries.
func (s *Service) ListPosts(ctx context.Context, opt ListOptions) (query.Page[content.PostSummary], error) {
	posts, err := s.posts(ctx, opt.Filters)
	if err != nil {
		return query.Page[content.PostSummary]{}, err
	}
	size := opt.PageSize
	if size <= 0 {
		size = s.opt.PageSize
	}
	sorted := query.Sort(posts, opt.Sort, s.Now())
	return query.Paginate(query.Summaries(sorted), opt.Page, size), nil
}

// GetPostBySlug returns nil when no post has slug, or when it is not
// published and opt.IncludeDrafts is false.
func (s *Service) GetPostBySlug(ctx context.Context, slug string, opt PostOptions) (*content.PostRecord, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	p, ok := find(snap, slug, opt.IncludeDrafts, now)
	if !ok {
		return nil, nil
	}
	out := stamp([]content.PostRecord{p}, now)[0]
	return &out, nil
}

func find(snap *Snapshot, slug string, includeDrafts bool, now time.Time) (content.PostRecord, bool) {
	slug = strings.TrimSuffix(strings.TrimSuffix(slug, ".mdx"), ".md")
	p, ok := snap.lookup(slug)
	if !ok || !query.Visible(p, includeDrafts, now) {
		return content.PostRecord{}, false
	}
	return p, true
}

// GetRelatedTo looks slug up and ranks the posts sharing its tags, both from
// one snapshot. post is nil when slug is unknown or not published.
func (s *Service) GetRelatedTo(ctx context.Context, slug string, limit int) (post *content.PostRecord, related []content.PostRecord, err error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	now := s.Now()
	p, ok := find(snap, slug, false, now)
	if !ok {
		return nil, nil, nil
	}
	visible := query.Filter(snap.Posts, query.Filters{}, now)
	out := stamp([]content.PostRecord{p}, now)[0]
	return &out, stamp(query.Related(visible, p.Slug, p.Tags, limit), now), nil
}

func (s *Service) GetFeaturedPosts(ctx context.Context) ([]content.PostRecord, error) {
	posts, err := s.posts(ctx, query.Filters{})
	if err != nil {
		return nil, err
	}
	out := make([]content.PostRecord, 0, FeaturedLimit)
	for _, p := range posts {
		if len(out) == FeaturedLimit {
			break
		}
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) GetRecentPosts(ctx context.Context, limit int) ([]content.PostRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	posts, err := s.posts(ctx, query.Filters{})
	if err != nil {
		return nil, err
	}
	return posts[:min(limit, len(posts))], nil
}

func (s *Service) GetTrendingPosts(ctx context.Context, limit int) ([]content.PostRecord, error) {
	posts, err := s.posts(ctx, query.Filters{})
	if err != nil {
		return nil, err
	}
	return query.Trending(posts, s.Now(), limit), nil
}

// GetRelatedPosts ranks published posts other than slug by shared tags.
func (s *Service) GetRelatedPosts(ctx context.Context, slug string, tags []string, limit int) ([]content.PostRecord, error) {
	posts, err := s.posts(ctx, query.Filters{})
	if err != nil {
		return nil, err
	}
	return query.Related(posts, slug, tags, limit), nil
}

func (s *Service) GetPostTags(ctx context.Context) ([]content.TagCount, error) {
	posts, err := s.posts(ctx, query.Filters{})
	if err != nil {
		return nil, err
	}
	return query.TagIndex(posts), nil
}

func (s *Service) GetArchiveGroups(ctx context.Context) ([]content.ArchiveGroup, error) {
	posts, err := s.posts(ctx, query.Filters{})
	if err != nil {
		return nil, err
	}
	return query.ArchiveGroups(posts, s.opt.Location), nil
}

func (s *Service) GetSearchIndex(ctx context.Context) ([]content.SearchEntry, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return query.SearchIndex(snap.Posts, s.Now()), nil
}

func (s *Service) GetPostSummaries(ctx context.Context, f query.Filters) ([]content.PostSummary, error) {
	posts, err := s.posts(ctx, f)
	if err != nil {
		return nil, err
	}
	return query.Summaries(posts), nil
}

func (s *Service) GetCategorySummaries(ctx context.Context) ([]content.CategorySummary, error) {
	posts, err := s.posts(ctx, query.Filters{})
	if err != nil {
		return nil, err
	}
	return s.opt.Categories.Summaries(posts), nil
}
