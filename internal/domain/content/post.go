package content

import (
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusScheduled Status = "scheduled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusScheduled:
		return true
	}
	return false
}

type Social struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

type Author struct {
	Name         string   `json:"name"`
	Title        string   `json:"title,omitempty"`
	Avatar       string   `json:"avatar,omitempty"`
	Bio          string   `json:"bio,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Socials      []Social `json:"socials"`
}

type Resource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// SEO overrides are passed through to the presentation layer untouched.
type SEO struct {
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Image        string   `json:"image,omitempty"`
	CanonicalURL string   `json:"canonicalUrl,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// Metadata is the validated front matter of a post with every default applied.
type Metadata struct {
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Date          time.Time `json:"date"`
	LastUpdated   time.Time `json:"lastUpdated"`
	Excerpt       string    `json:"excerpt"`
	FeaturedImage string    `json:"featuredImage"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	Status        Status    `json:"status"`

	Featured bool    `json:"featured"`
	Pinned   bool    `json:"pinned"`
	Priority float64 `json:"priority"`

	CanonicalURL string     `json:"canonicalUrl,omitempty"`
	SEO          *SEO       `json:"seo,omitempty"`
	Resources    []Resource `json:"resources"`
	// ReadTime is an explicit reading time in minutes; 0 means none was given.
	ReadTime int    `json:"readTime,omitempty"`
	Author   Author `json:"author"`
}

type ReadingTime struct {
	Minutes int    `json:"minutes"`
	Text    string `json:"text"`
	Words   int    `json:"words"`
	// Time is the estimate in milliseconds.
	Time float64 `json:"time"`
}

type Heading struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Level int    `json:"level"`
}

// PostRecord is a parsed document decorated with derived fields.
type PostRecord struct {
	Metadata
	SourceID    string      `json:"sourceId"`
	Content     string      `json:"content"`
	ReadingTime ReadingTime `json:"readingTime"`
	Headings    []Heading   `json:"headings"`
	Path        string      `json:"path"`
	// IsPublished depends on the clock; it is filled in when the record is read.
	IsPublished bool `json:"isPublished"`
}

type PostSummary struct {
	Slug          string      `json:"slug"`
	Title         string      `json:"title"`
	Date          time.Time   `json:"date"`
	LastUpdated   time.Time   `json:"lastUpdated"`
	Excerpt       string      `json:"excerpt"`
	Category      string      `json:"category"`
	Tags          []string    `json:"tags"`
	FeaturedImage string      `json:"featuredImage"`
	ReadingTime   ReadingTime `json:"readingTime"`
	Author        Author      `json:"author"`
	Featured      bool        `json:"featured"`
	Pinned        bool        `json:"pinned"`
	Path          string      `json:"path"`
	IsPublished   bool        `json:"isPublished"`
}

type ArchiveGroup struct {
	Key   string        `json:"key"`
	Label string        `json:"label"`
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Posts []PostSummary `json:"posts"`
}

type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type SearchEntry struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	ReadingTime string    `json:"readingTime"`
	Tags        []string  `json:"tags"`
}

func PostPath(slug string) string {
	return "/blog/" + slug
}

func (p PostRecord) Summary() PostSummary {
	return PostSummary{
		Slug:          p.Slug,
		Title:         p.Title,
		Date:          p.Date,
		LastUpdated:   p.LastUpdated,
		Excerpt:       p.Excerpt,
		Category:      p.Category,
		Tags:          cloneStrings(p.Tags),
		FeaturedImage: p.FeaturedImage,
		ReadingTime:   p.ReadingTime,
		Author:        p.Author.clone(),
		Featured:      p.Featured,
		Pinned:        p.Pinned,
		Path:          p.Path,
		IsPublished:   p.IsPublished,
	}
}

// Clone returns a deep copy so callers never share slices with the snapshot.
func (p PostRecord) Clone() PostRecord {
	out := p
	out.Tags = cloneStrings(p.Tags)
	out.Resources = append([]Resource(nil), p.Resources...)
	if out.Resources == nil {
		out.Resources = []Resource{}
	}
	out.Author = p.Author.clone()
	if p.SEO != nil {
		seo := *p.SEO
		seo.Keywords = append([]string(nil), p.SEO.Keywords...)
		out.SEO = &seo
	}
	out.Headings = append([]Heading(nil), p.Headings...)
	if out.Headings == nil {
		out.Headings = []Heading{}
	}
	return out
}

func (a Author) clone() Author {
	out := a
	out.Socials = append([]Social(nil), a.Socials...)
	if out.Socials == nil {
		out.Socials = []Social{}
	}
	return out
}

func (m *Metadata) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Slug = strings.TrimSpace(m.Slug)
	m.Category = strings.TrimSpace(m.Category)
	m.Excerpt = strings.TrimSpace(m.Excerpt)

	m.Tags = normalizeStrings(m.Tags)
	if m.Resources == nil {
		m.Resources = []Resource{}
	}
	if m.Author.Socials == nil {
		m.Author.Socials = []Social{}
	}
	if m.Status == "" {
		m.Status = StatusPublished
	}
	if m.LastUpdated.IsZero() {
		m.LastUpdated = m.Date
	}
}

// normalizeStrings trims, drops blanks and de-duplicates while keeping order and case.
func normalizeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// CompareNewest orders records by date descending, ties broken by slug.
func CompareNewest(a, b PostRecord) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	return strings.Compare(a.Slug, b.Slug)
}

// CategorySummary is a registry category with the posts filed under it.
type CategorySummary struct {
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Color       string        `json:"color,omitempty"`
	Accent      string        `json:"accent,omitempty"`
	Quote       string        `json:"quote,omitempty"`
	Count       int           `json:"count"`
	Latest      []PostSummary `json:"latest"`
}
