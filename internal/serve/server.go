// Package serve exposes the collection over HTTP: a JSON read API, feeds,
// health and metrics, and the invalidation hooks.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"folio/internal/collection"
	"folio/internal/domain/config"
	"folio/internal/logger"
	"folio/internal/render"
)

const TokenHeader = "X-Folio-Token"

type Options struct {
	Service  *collection.Service
	Renderer *render.MarkdownRenderer
	Site     config.SiteConfig
	PageSize int
	// InvalidateToken guards the webhook and draft previews. Empty disables both.
	InvalidateToken string
	Logger          logger.Logger
	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
}

type Server struct {
	svc      *collection.Service
	md       *render.MarkdownRenderer
	site     config.SiteConfig
	pageSize int
	token    string
	log      logger.Logger
	gatherer prometheus.Gatherer

	sseMu    sync.Mutex
	sseConns map[chan string]struct{}
}

func New(opt Options) *Server {
	if opt.Renderer == nil {
		opt.Renderer = render.NewMarkdownRenderer(render.Options{})
	}
	if opt.Logger == nil {
		opt.Logger = logger.NewNop()
	}
	return &Server{
		svc:      opt.Service,
		md:       opt.Renderer,
		site:     opt.Site,
		pageSize: opt.PageSize,
		token:    opt.InvalidateToken,
		log:      opt.Logger.With(logger.String("component", "serve")),
		gatherer: opt.Gatherer,
		sseConns: make(map[chan string]struct{}),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(recoverer(s.log))
	r.Use(requestLogger(s.log))

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/rss.xml", s.handleRSS)
	r.Get("/sitemap.xml", s.handleSitemap)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", s.handleListPosts)
		r.Get("/posts/{slug}", s.handlePost)
		r.Get("/posts/{slug}/related", s.handleRelated)
		r.Get("/featured", s.handleFeatured)
		r.Get("/recent", s.handleRecent)
		r.Get("/trending", s.handleTrending)
		r.Get("/tags", s.handleTags)
		r.Get("/archive", s.handleArchive)
		r.Get("/search-index", s.handleSearchIndex)
		r.Get("/categories", s.handleCategories)
		r.Get("/categories/{category}", s.handleCategory)
		r.Get("/events", s.handleSSE)
		r.Post("/invalidate", s.handleInvalidate)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// Invalidate drops the collection snapshot and tells connected event
// streams to reload.
func (s *Server) Invalidate(source string) {
	s.svc.Invalidate(source)
	s.broadcastSSE("reload")
}

// ListenAndServe warms the collection, then serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if _, err := s.svc.Snapshot(ctx); err != nil {
		return fmt.Errorf("serve: initial load: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeSSE()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", logger.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan string, 8)

	s.sseMu.Lock()
	s.sseConns[ch] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		if _, live := s.sseConns[ch]; live {
			delete(s.sseConns, ch)
			close(ch)
		}
		s.sseMu.Unlock()
	}()
	fmt.Fprint(w, "data: hello\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcastSSE(msg string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (s *Server) closeSSE() {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		delete(s.sseConns, ch)
		close(ch)
	}
}
