// Package derive computes the fields a post gains beyond its front matter:
// reading time, heading outline, canonical path and publication state.
package derive

import (
	"folio/internal/domain/content"
)

type Options struct {
	WordsPerMinute int
}

// Decorate builds the record for a validated document. IsPublished is left
// false; it is evaluated against a clock whenever the record is read.
func Decorate(sourceID string, meta content.Metadata, body string, opt Options) content.PostRecord {
	return content.PostRecord{
		Metadata:    meta,
		SourceID:    sourceID,
		Content:     body,
		ReadingTime: ReadingTime(body, meta.ReadTime, opt.WordsPerMinute),
		Headings:    Outline([]byte(body)),
		Path:        content.PostPath(meta.Slug),
	}
}
