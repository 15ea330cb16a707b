package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"folio/internal/domain/content"
	domainerr "folio/internal/domain/errors"
)

// scalar keeps the literal text of a YAML scalar, so unquoted dates are not
// coerced before we parse them with our own layouts.
type scalar struct {
	set   bool
	value string
}

func (s *scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	s.set = true
	s.value = strings.TrimSpace(n.Value)
	return nil
}

type rawSocial struct {
	Platform *string `yaml:"platform"`
	URL      *string `yaml:"url"`
}

type rawAuthor struct {
	Name         *string     `yaml:"name"`
	Title        string      `yaml:"title"`
	Avatar       string      `yaml:"avatar"`
	Bio          string      `yaml:"bio"`
	Organization string      `yaml:"organization"`
	Socials      []rawSocial `yaml:"socials"`
}

type rawResource struct {
	Title       *string `yaml:"title"`
	URL         *string `yaml:"url"`
	Description string  `yaml:"description"`
}

type rawSEO struct {
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Image        string   `yaml:"image"`
	CanonicalURL string   `yaml:"canonicalUrl"`
	Keywords     []string `yaml:"keywords"`
}

// rawFrontMatter mirrors the header as written. Pointers tell absent from empty.
type rawFrontMatter struct {
	Title         *string       `yaml:"title"`
	Slug          *string       `yaml:"slug"`
	Date          scalar        `yaml:"date"`
	LastUpdated   scalar        `yaml:"lastUpdated"`
	Excerpt       *string       `yaml:"excerpt"`
	FeaturedImage *string       `yaml:"featuredImage"`
	Category      *string       `yaml:"category"`
	Tags          []string      `yaml:"tags"`
	Status        *string       `yaml:"status"`
	Featured      bool          `yaml:"featured"`
	Pinned        bool          `yaml:"pinned"`
	Priority      *float64      `yaml:"priority"`
	CanonicalURL  string        `yaml:"canonicalUrl"`
	SEO           *rawSEO       `yaml:"seo"`
	Resources     []rawResource `yaml:"resources"`
	ReadTime      *float64      `yaml:"readTime"`
	Author        *rawAuthor    `yaml:"author"`
}

// Document is a parsed source document: validated metadata and the body text.
type Document struct {
	Meta content.Metadata
	Body string
}

// ParseDocument splits raw into front matter and body and validates the
// metadata. fallbackID becomes the slug when none is given. Dates without an
// offset are read in loc. Failures are *domainerr.InvalidDocumentError.
func ParseDocument(raw []byte, fallbackID string, loc *time.Location) (Document, error) {
	if loc == nil {
		loc = time.UTC
	}
	invalid := &domainerr.InvalidDocumentError{ID: fallbackID}

	var fm rawFrontMatter
	body, err := splitFrontMatter(raw, &fm)
	if err != nil {
		invalid.Violations.Add("frontmatter", err.Error())
		return Document{}, invalid
	}

	meta := validate(&fm, fallbackID, loc, &invalid.Violations)
	if invalid.Violations.HasAny() {
		return Document{}, invalid
	}
	meta.Normalize()
	return Document{Meta: meta, Body: string(body)}, nil
}

func yamlFormat() *frontmatter.Format {
	return frontmatter.NewFormat("---", "---", yaml.Unmarshal)
}

func splitFrontMatter(raw []byte, v *rawFrontMatter) ([]byte, error) {
	body, err := frontmatter.MustParse(bytes.NewReader(normalizeNewlines(raw)), v, yamlFormat())
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, errors.New("missing front matter block")
		}
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, errors.New(strings.Join(typeErr.Errors, "; "))
		}
		return nil, err
	}
	return body, nil
}

func validate(fm *rawFrontMatter, fallbackID string, loc *time.Location, v *domainerr.ValidationError) content.Metadata {
	var meta content.Metadata

	meta.Title = requireText(v, "title", fm.Title)
	meta.Excerpt = requireText(v, "excerpt", fm.Excerpt)
	meta.FeaturedImage = requireText(v, "featuredImage", fm.FeaturedImage)
	meta.Category = requireText(v, "category", fm.Category)

	meta.Slug = fallbackID
	if fm.Slug != nil {
		meta.Slug = strings.TrimSpace(*fm.Slug)
	}
	if !isURLSafe(meta.Slug) {
		v.Add("slug", fmt.Sprintf("%q is not URL-safe", meta.Slug))
	}

	switch {
	case !fm.Date.set || fm.Date.value == "":
		v.Add("date", "required")
	default:
		t, err := ParseTime(fm.Date.value, loc)
		if err != nil {
			v.Add("date", err.Error())
		}
		meta.Date = t
	}
	if fm.LastUpdated.set && fm.LastUpdated.value != "" {
		t, err := ParseTime(fm.LastUpdated.value, loc)
		if err != nil {
			v.Add("lastUpdated", err.Error())
		}
		meta.LastUpdated = t
	}

	meta.Status = content.StatusPublished
	if fm.Status != nil {
		meta.Status = content.Status(strings.TrimSpace(*fm.Status))
		if !meta.Status.Valid() {
			v.Add("status", fmt.Sprintf("must be one of draft, published, scheduled; got %q", *fm.Status))
		}
	}

	meta.Tags = fm.Tags
	meta.Featured = fm.Featured
	meta.Pinned = fm.Pinned
	if fm.Priority != nil {
		meta.Priority = *fm.Priority
	}
	meta.CanonicalURL = strings.TrimSpace(fm.CanonicalURL)

	if fm.ReadTime != nil {
		rt := *fm.ReadTime
		if rt <= 0 || rt != math.Trunc(rt) || rt > math.MaxInt32 {
			v.Add("readTime", "must be a positive whole number of minutes")
		} else {
			meta.ReadTime = int(rt)
		}
	}

	if fm.SEO != nil {
		meta.SEO = &content.SEO{
			Title:        fm.SEO.Title,
			Description:  fm.SEO.Description,
			Image:        fm.SEO.Image,
			CanonicalURL: fm.SEO.CanonicalURL,
			Keywords:     fm.SEO.Keywords,
		}
	}

	meta.Resources = make([]content.Resource, 0, len(fm.Resources))
	for i, r := range fm.Resources {
		field := fmt.Sprintf("resources[%d]", i)
		res := content.Resource{
			Title:       requireText(v, field+".title", r.Title),
			URL:         requireURL(v, field+".url", r.URL),
			Description: strings.TrimSpace(r.Description),
		}
		meta.Resources = append(meta.Resources, res)
	}

	if fm.Author == nil {
		v.Add("author", "required")
		return meta
	}
	meta.Author = content.Author{
		Name:         requireText(v, "author.name", fm.Author.Name),
		Title:        fm.Author.Title,
		Avatar:       fm.Author.Avatar,
		Bio:          fm.Author.Bio,
		Organization: fm.Author.Organization,
		Socials:      make([]content.Social, 0, len(fm.Author.Socials)),
	}
	for i, s := range fm.Author.Socials {
		field := fmt.Sprintf("author.socials[%d]", i)
		meta.Author.Socials = append(meta.Author.Socials, content.Social{
			Platform: requireText(v, field+".platform", s.Platform),
			URL:      requireURL(v, field+".url", s.URL),
		})
	}
	return meta
}

func requireText(v *domainerr.ValidationError, field string, s *string) string {
	if s == nil {
		v.Add(field, "required")
		return ""
	}
	out := strings.TrimSpace(*s)
	if out == "" {
		v.Add(field, "must not be empty")
	}
	return out
}

func requireURL(v *domainerr.ValidationError, field string, s *string) string {
	if s == nil {
		v.Add(field, "required")
		return ""
	}
	out := strings.TrimSpace(*s)
	if !isValidAbsURL(out) {
		v.Add(field, fmt.Sprintf("%q is not an absolute http(s) URL", out))
	}
	return out
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isURLSafe(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	return url.PathEscape(slug) == slug
}

var timeLayouts = []string{
	time.RFC3339,
	time.DateOnly,
	"2006-01-02 15:04",
	time.DateTime,
	"2006-01-02T15:04:05",
}

// ParseTime accepts the date forms authors write in front matter.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", s)
}


func normalizeNewlines(raw []byte) []byte {
	if !bytes.ContainsRune(raw, '\r') {
		return raw
	}
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))
}
