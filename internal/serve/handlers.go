package serve

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"folio/internal/collection"
	"folio/internal/domain/content"
	"folio/internal/ingest"
	"folio/internal/logger"
	"folio/internal/query"
)

type postResponse struct {
	content.PostRecord
	HTML string `json:"html"`
}

type categoryResponse struct {
	Slug        string                          `json:"slug"`
	Title       string                          `json:"title"`
	Description string                          `json:"description,omitempty"`
	Color       string                          `json:"color,omitempty"`
	Accent      string                          `json:"accent,omitempty"`
	Quote       string                          `json:"quote,omitempty"`
	Posts       query.Page[content.PostSummary] `json:"posts"`
}

type healthResponse struct {
	Status   string    `json:"status"`
	Snapshot string    `json:"snapshot"`
	Posts    int       `json:"posts"`
	Excluded int       `json:"excluded"`
	LoadedAt time.Time `json:"loadedAt"`
}

func (s *Server) failed(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed", logger.String("path", r.URL.Path), logger.Error(err))
	writeError(w, http.StatusInternalServerError, "collection unavailable")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Snapshot: snap.ID,
		Posts:    len(snap.Posts),
		Excluded: len(snap.Issues),
		LoadedAt: snap.LoadedAt,
	})
}

// authorized reports whether the request carries the configured token.
func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return false
	}
	got := r.Header.Get(TokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}

func (s *Server) parseFilters(r *http.Request) (query.Filters, error) {
	q := r.URL.Query()
	f := query.Filters{
		Category: strings.TrimSpace(q.Get("category")),
		Tag:      strings.TrimSpace(q.Get("tag")),
		Query:    strings.TrimSpace(q.Get("q")),
	}
	loc := s.svc.Location()
	if v := q.Get("from"); v != "" {
		t, err := ingest.ParseTime(v, loc)
		if err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := ingest.ParseTime(v, loc)
		if err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
		f.To = t
	}
	if v, _ := strconv.ParseBool(q.Get("drafts")); v && s.authorized(r) {
		f.IncludeDrafts = true
	}
	return f, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: must be an integer", name)
	}
	return n, nil
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := query.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.ListPosts(r.Context(), collection.ListOptions{
		Filters:  f,
		Sort:     order,
		Page:     page,
		PageSize: s.pageSize,
	})
	if err != nil {
		s.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	drafts, _ := strconv.ParseBool(r.URL.Query().Get("drafts"))

	post, err := s.svc.GetPostBySlug(r.Context(), slug, collection.PostOptions{
		IncludeDrafts: drafts && s.authorized(r),
	})
	if err != nil {
		s.failed(w, r, err)
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("post %q not found", slug))
		return
	}

	out, err := s.md.Render([]byte(post.Content))
	if err != nil {
		s.failed(w, r, fmt.Errorf("render %s: %w", slug, err))
		return
	}
	writeJSON(w, http.StatusOK, postResponse{PostRecord: *post, HTML: string(out.HTML)})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	limit, err := intParam(r, "limit", query.DefaultRelatedLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	post, related, err := s.svc.GetRelatedTo(r.Context(), slug, limit)
	if err != nil {
		s.failed(w, r, err)
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("post %q not found", slug))
		return
	}
	writeJSON(w, http.StatusOK, query.Summaries(related))
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.GetFeaturedPosts(r.Context())
	if err != nil {
		s.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, query.Summaries(posts))
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", collection.DefaultRecentLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	posts, err := s.svc.GetRecentPosts(r.Context(), limit)
	if err != nil {
		s.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, query.Summaries(posts))
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", query.DefaultTrendingLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	posts, err := s.svc.GetTrendingPosts(r.Context(), limit)
	if err != nil {
		s.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, query.Summaries(posts))
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.GetPostTags(r.Context())
	if err != nil {
		s.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.GetArchiveGroups(r.Context())
	if err != nil {
		s.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleSearchIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.GetSearchIndex(r.Context())
	if err != nil {
		s.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.GetCategorySummaries(r.Context())
	if err != nil {
		s.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if s.token == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	s.Invalidate("webhook")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "invalidated"})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "category")
	cat, ok := s.svc.ResolveCategory(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("category %q not found", name))
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	posts, err := s.svc.GetPostsByCategory(r.Context(), cat.Slug)
	if err != nil {
		s.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResponse{
		Slug:        cat.Slug,
		Title:       cat.Title,
		Description: cat.Description,
		Color:       cat.Color,
		Accent:      cat.Accent,
		Quote:       cat.Quote,
		Posts:       query.Paginate(query.Summaries(posts), page, s.pageSize),
	})
}
