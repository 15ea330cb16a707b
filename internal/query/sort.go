package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"folio/internal/domain/content"
)

type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortOldest  SortOrder = "oldest"
	SortPopular SortOrder = "popular"
)

// ParseSortOrder maps request values to a SortOrder; blank means newest.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortPopular:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Sort returns a sorted copy. Equal keys keep their input order.
func Sort(posts []content.PostRecord, order SortOrder, now time.Time) []content.PostRecord {
	out := slices.Clone(posts)
	switch order {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b content.PostRecord) int {
			return a.Date.Compare(b.Date)
		})
	case SortPopular:
		sortByScore(out, func(p content.PostRecord) float64 { return PopularityScore(p, now) })
	default:
		slices.SortStableFunc(out, func(a, b content.PostRecord) int {
			return b.Date.Compare(a.Date)
		})
	}
	return out
}

// sortByScore orders posts by score descending, stable.
func sortByScore(posts []content.PostRecord, score func(content.PostRecord) float64) {
	scores := make(map[string]float64, len(posts))
	for _, p := range posts {
		scores[p.Slug] = score(p)
	}
	slices.SortStableFunc(posts, func(a, b content.PostRecord) int {
		return cmp.Compare(scores[b.Slug], scores[a.Slug])
	})
}
