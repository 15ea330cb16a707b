// Package categories holds the fixed category registry posts are filed under.
package categories

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"folio/internal/domain/content"
	"folio/internal/query"
)

const latestPerCategory = 3

type Category struct {
	Slug        string
	Title       string
	Description string
	Color       string
	Accent      string
	Quote       string
}

type Registry struct {
	list  []Category
	byKey map[string]int
}

// NewRegistry fills in whichever of slug or title is missing. Titles are
// derived from slugs with the casing rules of lang.
func NewRegistry(cats []Category, lang language.Tag) *Registry {
	caser := cases.Title(lang)
	r := &Registry{byKey: make(map[string]int, len(cats)*3)}
	for _, c := range cats {
		c.Slug = strings.TrimSpace(c.Slug)
		c.Title = strings.TrimSpace(c.Title)
		switch {
		case c.Slug == "" && c.Title == "":
			continue
		case c.Slug == "":
			c.Slug = query.CategorySlug(c.Title)
		case c.Title == "":
			c.Title = caser.String(strings.ReplaceAll(c.Slug, "-", " "))
		}
		if _, dup := r.byKey[c.Slug]; dup {
			continue
		}
		i := len(r.list)
		r.list = append(r.list, c)
		for _, k := range []string{c.Title, c.Slug, strings.ToLower(c.Title)} {
			if _, taken := r.byKey[k]; !taken {
				r.byKey[k] = i
			}
		}
	}
	return r
}

func (r *Registry) Len() int { return len(r.list) }

// Resolve looks a category up by title, slug or lowercased title, falling back
// to the slug form of name.
func (r *Registry) Resolve(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, k := range []string{name, strings.ToLower(name), query.CategorySlug(name)} {
		if i, ok := r.byKey[k]; ok {
			return r.list[i], true
		}
	}
	return Category{}, false
}

// Summaries counts posts per registry category and keeps the first few of
// each in collection order. A post counts when its category is the title or
// the slug, compared without case. With an empty registry the categories are
// taken from the posts themselves in first-seen order.
func (r *Registry) Summaries(posts []content.PostRecord) []content.CategorySummary {
	cats := r.list
	if len(cats) == 0 {
		cats = discover(posts)
	}
	out := make([]content.CategorySummary, 0, len(cats))
	for _, c := range cats {
		s := content.CategorySummary{
			Slug:        c.Slug,
			Title:       c.Title,
			Description: c.Description,
			Color:       c.Color,
			Accent:      c.Accent,
			Quote:       c.Quote,
			Latest:      []content.PostSummary{},
		}
		for _, p := range posts {
			if !filedUnder(p.Category, c) {
				continue
			}
			s.Count++
			if len(s.Latest) < latestPerCategory {
				s.Latest = append(s.Latest, p.Summary())
			}
		}
		out = append(out, s)
	}
	return out
}

func filedUnder(category string, c Category) bool {
	for _, target := range []string{c.Title, c.Slug} {
		switch query.MatchCategory(category, target) {
		case query.MatchExact, query.MatchSlug:
			return true
		}
	}
	return false
}

func discover(posts []content.PostRecord) []Category {
	seen := make(map[string]struct{})
	var out []Category
	for _, p := range posts {
		slug := query.CategorySlug(p.Category)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, Category{Slug: slug, Title: p.Category})
	}
	return out
}
