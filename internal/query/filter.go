// Package query filters, orders, ranks and aggregates post collections. Every
// function is pure: inputs are never modified and results are fresh slices.
package query

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"folio/internal/derive"
	"folio/internal/domain/content"
)

// Filters narrows a collection. Zero values impose no constraint.
type Filters struct {
	IncludeDrafts bool
	Category      string
	Tag           string
	Query         string
	From          time.Time
	To            time.Time
}

// MatchKind tells which rule matched a category.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchSlug
	MatchSubstring
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchSlug:
		return "slug"
	case MatchSubstring:
		return "substring"
	}
	return "none"
}

var spaceRun = regexp.MustCompile(`\s+`)

// CategorySlug lowercases name and joins whitespace runs with hyphens.
func CategorySlug(name string) string {
	return spaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// MatchCategory compares a post category against a requested one. Rules are
// tried in order exact, slug form of the category, substring, all
// case-insensitive, and the first that holds is returned. The requested value
// is never slugified.
func MatchCategory(category, target string) MatchKind {
	c := strings.ToLower(strings.TrimSpace(category))
	t := strings.ToLower(strings.TrimSpace(target))
	if t == "" {
		return MatchNone
	}
	switch {
	case c == t:
		return MatchExact
	case CategorySlug(c) == t:
		return MatchSlug
	case strings.Contains(c, t):
		return MatchSubstring
	}
	return MatchNone
}

// Visible reports whether p survives the publication gate at now.
func Visible(p content.PostRecord, includeDrafts bool, now time.Time) bool {
	return includeDrafts || derive.IsPublished(p.Status, p.Date, now)
}

// Filter keeps the posts matching every set filter, in their input order.
func Filter(posts []content.PostRecord, f Filters, now time.Time) []content.PostRecord {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]content.PostRecord, 0, len(posts))
	for _, p := range posts {
		if !Visible(p, f.IncludeDrafts, now) {
			continue
		}
		if !f.From.IsZero() && p.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && p.Date.After(f.To) {
			continue
		}
		if f.Tag != "" && !slices.Contains(p.Tags, f.Tag) {
			continue
		}
		if f.Category != "" && MatchCategory(p.Category, f.Category) == MatchNone {
			continue
		}
		if q != "" && !matchText(p, q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchText(p content.PostRecord, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Excerpt), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
