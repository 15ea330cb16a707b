package serve

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"folio/internal/domain/content"
	"folio/internal/query"
)

const feedItems = 20

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Self          atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate"`
	Description string   `xml:"description"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (s *Server) absURL(path string) string {
	return strings.TrimRight(s.site.URL, "/") + path
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.GetRecentPosts(r.Context(), feedItems)
	if err != nil {
		s.failed(w, r, err)
		return
	}

	ch := rssChannel{
		Title:       s.site.Title,
		Link:        s.absURL("/"),
		Description: s.site.Description,
		Language:    s.site.Language,
		Self:        atomLink{Href: s.absURL("/rss.xml"), Rel: "self", Type: "application/rss+xml"},
		Items:       make([]rssItem, 0, len(posts)),
	}
	if len(posts) > 0 {
		ch.LastBuildDate = posts[0].LastUpdated.Format(time.RFC1123Z)
	}
	for _, p := range posts {
		link := s.absURL(p.Path)
		ch.Items = append(ch.Items, rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			PubDate:     p.Date.Format(time.RFC1123Z),
			Description: p.Excerpt,
			Author:      p.Author.Name,
			Categories:  append([]string{p.Category}, p.Tags...),
		})
	}
	writeXML(w, rssFeed{Version: "2.0", Atom: "http://www.w3.org/2005/Atom", Channel: ch}, "application/rss+xml")
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.GetAllPosts(r.Context(), query.Filters{})
	if err != nil {
		s.failed(w, r, err)
		return
	}
	set := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: s.absURL("/")},
			{Loc: s.absURL("/blog")},
			{Loc: s.absURL("/archive")},
		},
	}
	if len(posts) > 0 {
		latest := lastModified(posts)
		for i := range set.URLs {
			set.URLs[i].LastMod = latest
		}
	}
	for _, p := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     s.absURL(p.Path),
			LastMod: p.LastUpdated.Format(time.DateOnly),
		})
	}
	writeXML(w, set, "application/xml")
}

func lastModified(posts []content.PostRecord) string {
	var latest time.Time
	for _, p := range posts {
		if p.LastUpdated.After(latest) {
			latest = p.LastUpdated
		}
	}
	return latest.Format(time.DateOnly)
}

func writeXML(w http.ResponseWriter, v any, contentType string) {
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	_ = enc.Encode(v)
}
