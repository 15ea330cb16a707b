package query

import (
	"math"
	"time"

	"folio/internal/derive"
	"folio/internal/domain/content"
)

const (
	DefaultTrendingLimit = 3
	DefaultRelatedLimit  = 3

	recencyWeeks = 12
	week         = 7 * 24 * time.Hour
)

// PopularityScore is a curation heuristic, not a traffic metric:
// priority*2, plus 5 when featured, 3 when pinned, and a recency bonus that
// starts at 12 and drops by one per whole week since the post date.
func PopularityScore(p content.PostRecord, now time.Time) float64 {
	score := p.Priority * 2
	if p.Featured {
		score += 5
	}
	if p.Pinned {
		score += 3
	}
	return score + float64(recencyBonus(p.Date, now))
}

func recencyBonus(date, now time.Time) int {
	weeks := math.Floor(float64(now.Sub(date)) / float64(week))
	bonus := recencyWeeks - weeks
	switch {
	case bonus < 0:
		return 0
	case bonus > recencyWeeks:
		return recencyWeeks
	}
	return int(bonus)
}

// Trending ranks published posts by popularity.
func Trending(posts []content.PostRecord, now time.Time, limit int) []content.PostRecord {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	out := make([]content.PostRecord, 0, len(posts))
	for _, p := range posts {
		if derive.IsPublished(p.Status, p.Date, now) {
			out = append(out, p)
		}
	}
	sortByScore(out, func(p content.PostRecord) float64 { return PopularityScore(p, now) })
	return out[:min(limit, len(out))]
}

// Related ranks posts other than slug by how many of tags they share. Posts
// sharing none are dropped.
func Related(posts []content.PostRecord, slug string, tags []string, limit int) []content.PostRecord {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}

	type scored struct {
		post  content.PostRecord
		score int
	}
	candidates := make([]scored, 0, len(posts))
	for _, p := range posts {
		if p.Slug == slug {
			continue
		}
		n := sharedTags(p.Tags, want)
		if n == 0 {
			continue
		}
		candidates = append(candidates, scored{post: p, score: n})
	}

	out := make([]content.PostRecord, len(candidates))
	scores := make(map[string]float64, len(candidates))
	for i, c := range candidates {
		out[i] = c.post
		scores[c.post.Slug] = float64(c.score)
	}
	sortByScore(out, func(p content.PostRecord) float64 { return scores[p.Slug] })
	return out[:min(limit, len(out))]
}

func sharedTags(tags []string, want map[string]struct{}) int {
	n := 0
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := want[t]; ok {
			n++
		}
	}
	return n
}
