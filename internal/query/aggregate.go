package query

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"folio/internal/derive"
	"folio/internal/domain/content"
)

// ArchiveGroups buckets posts by the year and month of their date in loc.
// Groups run newest first; posts keep their input order inside a group.
func ArchiveGroups(posts []content.PostRecord, loc *time.Location) []content.ArchiveGroup {
	if loc == nil {
		loc = time.UTC
	}
	type ym struct{ year, month int }

	index := make(map[ym]int)
	groups := make([]content.ArchiveGroup, 0)
	for _, p := range posts {
		d := p.Date.In(loc)
		k := ym{d.Year(), int(d.Month())}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, content.ArchiveGroup{
				Key:   fmt.Sprintf("%04d-%02d", k.year, k.month),
				Label: fmt.Sprintf("%s %d", d.Month(), k.year),
				Year:  k.year,
				Month: k.month - 1,
				Posts: []content.PostSummary{},
			})
		}
		groups[i].Posts = append(groups[i].Posts, p.Summary())
	}

	slices.SortFunc(groups, func(a, b content.ArchiveGroup) int {
		if c := cmp.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		return cmp.Compare(b.Month, a.Month)
	})
	return groups
}

// TagIndex counts tag use. Higher counts first; ties keep first-seen order.
func TagIndex(posts []content.PostRecord) []content.TagCount {
	pos := make(map[string]int)
	out := make([]content.TagCount, 0)
	for _, p := range posts {
		for _, tag := range p.Tags {
			i, ok := pos[tag]
			if !ok {
				i = len(out)
				pos[tag] = i
				out = append(out, content.TagCount{Name: tag})
			}
			out[i].Count++
		}
	}
	slices.SortStableFunc(out, func(a, b content.TagCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}

// SearchIndex projects published posts to the client-side search shape.
func SearchIndex(posts []content.PostRecord, now time.Time) []content.SearchEntry {
	out := make([]content.SearchEntry, 0, len(posts))
	for _, p := range posts {
		if !derive.IsPublished(p.Status, p.Date, now) {
			continue
		}
		out = append(out, content.SearchEntry{
			Slug:        p.Slug,
			Title:       p.Title,
			Excerpt:     p.Excerpt,
			Category:    p.Category,
			Date:        p.Date,
			ReadingTime: p.ReadingTime.Text,
			Tags:        append([]string{}, p.Tags...),
		})
	}
	return out
}
