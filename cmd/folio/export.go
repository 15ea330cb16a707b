package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"folio/internal/collection"
	"folio/internal/domain/content"
	"folio/internal/logger"
	"folio/internal/query"
	"folio/internal/render"
)

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the collection views as static JSON files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := exportViews(cmd.Context(), a.svc, out)
			if err != nil {
				return err
			}
			a.log.Info("export finished", logger.String("dir", out), logger.Int("files", n))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "dist/api", "output directory")
	return cmd
}

type postFile struct {
	content.PostRecord
	HTML    string                `json:"html"`
	Related []content.PostSummary `json:"related"`
}

// exportViews writes one file per view plus posts/<slug>.json with rendered
// HTML and related posts, and returns the number of files written.
func exportViews(ctx context.Context, svc *collection.Service, dir string) (int, error) {
	posts, err := svc.GetAllPosts(ctx, query.Filters{})
	if err != nil {
		return 0, err
	}
	summaries, err := svc.GetPostSummaries(ctx, query.Filters{})
	if err != nil {
		return 0, err
	}
	tags, err := svc.GetPostTags(ctx)
	if err != nil {
		return 0, err
	}
	archive, err := svc.GetArchiveGroups(ctx)
	if err != nil {
		return 0, err
	}
	search, err := svc.GetSearchIndex(ctx)
	if err != nil {
		return 0, err
	}
	cats, err := svc.GetCategorySummaries(ctx)
	if err != nil {
		return 0, err
	}
	featured, err := svc.GetFeaturedPosts(ctx)
	if err != nil {
		return 0, err
	}

	views := map[string]any{
		"posts.json":        summaries,
		"featured.json":     query.Summaries(featured),
		"tags.json":         tags,
		"archive.json":      archive,
		"search-index.json": search,
		"categories.json":   cats,
	}
	written := 0
	for name, v := range views {
		if err := writeJSONFile(filepath.Join(dir, name), v); err != nil {
			return written, err
		}
		written++
	}

	md := render.NewMarkdownRenderer(render.Options{})
	for _, p := range posts {
		res, err := md.Render([]byte(p.Content))
		if err != nil {
			return written, fmt.Errorf("render %s: %w", p.Slug, err)
		}
		related, err := svc.GetRelatedPosts(ctx, p.Slug, p.Tags, query.DefaultRelatedLimit)
		if err != nil {
			return written, err
		}
		view := postFile{PostRecord: p, HTML: string(res.HTML), Related: query.Summaries(related)}
		if err := writeJSONFile(filepath.Join(dir, "posts", p.Slug+".json"), view); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
