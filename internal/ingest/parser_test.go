package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/domain/content"
	domainerr "folio/internal/domain/errors"
)

const validDoc = `---
title: Reading the Constitution
date: 2025-01-15
excerpt: A short guide.
featuredImage: /images/constitution.jpg
category: Constitutional Law
tags: [rights, " courts ", rights]
author:
  name: Ada Example
  socials:
    - platform: mastodon
      url: https://example.social/@ada
resources:
  - title: Judgment
    url: https://example.org/judgment.pdf
---

## Background

Body text here.
`

func violationFields(t *testing.T, err error) []string {
	t.Helper()
	var invalid *domainerr.InvalidDocumentError
	require.True(t, errors.As(err, &invalid), "expected InvalidDocumentError, got %v", err)
	return invalid.Violations.Fields()
}

func TestParseDocument_Valid(t *testing.T) {
	doc, err := ParseDocument([]byte(validDoc), "reading-the-constitution", time.UTC)
	require.NoError(t, err)

	m := doc.Meta
	assert.Equal(t, "Reading the Constitution", m.Title)
	assert.Equal(t, "reading-the-constitution", m.Slug)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), m.Date)
	assert.Equal(t, m.Date, m.LastUpdated)
	assert.Equal(t, content.StatusPublished, m.Status)
	assert.Equal(t, []string{"rights", "courts"}, m.Tags)
	assert.Equal(t, "Ada Example", m.Author.Name)
	require.Len(t, m.Author.Socials, 1)
	require.Len(t, m.Resources, 1)
	assert.Equal(t, 0, m.ReadTime)
	assert.Zero(t, m.Priority)
	assert.Nil(t, m.SEO)
	assert.Contains(t, doc.Body, "## Background")
	assert.NotContains(t, doc.Body, "title:")
}

func TestParseDocument_SlugOverrideAndOptionalFields(t *testing.T) {
	raw := strings.Replace(validDoc, "title: Reading the Constitution\n", `title: Reading the Constitution
slug: constitution-101
status: scheduled
lastUpdated: "2025-02-01 10:30"
featured: true
pinned: true
priority: 1.5
readTime: 7
seo:
  title: SEO title
  keywords: [a, b]
`, 1)

	doc, err := ParseDocument([]byte(raw), "file-name", time.UTC)
	require.NoError(t, err)
	m := doc.Meta
	assert.Equal(t, "constitution-101", m.Slug)
	assert.Equal(t, content.StatusScheduled, m.Status)
	assert.Equal(t, time.Date(2025, 2, 1, 10, 30, 0, 0, time.UTC), m.LastUpdated)
	assert.True(t, m.Featured)
	assert.True(t, m.Pinned)
	assert.Equal(t, 1.5, m.Priority)
	assert.Equal(t, 7, m.ReadTime)
	require.NotNil(t, m.SEO)
	assert.Equal(t, []string{"a", "b"}, m.SEO.Keywords)
}

func TestParseDocument_DatesUseLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	doc, err := ParseDocument([]byte(validDoc), "x", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, loc), doc.Meta.Date)
	assert.True(t, doc.Meta.Date.Before(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestParseDocument_CollectsEveryViolation(t *testing.T) {
	raw := `---
title: ""
date: not-a-date
status: archived
readTime: 2.5
author:
  bio: nameless
resources:
  - url: ftp://example.org/x
---
body`
	_, err := ParseDocument([]byte(raw), "broken", time.UTC)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerr.ErrInvalid)

	fields := violationFields(t, err)
	assert.ElementsMatch(t, []string{
		"title", "excerpt", "featuredImage", "category",
		"date", "status", "readTime",
		"resources[0].title", "resources[0].url",
		"author.name",
	}, fields)
	assert.Contains(t, err.Error(), `invalid document "broken"`)
}

func TestParseDocument_MissingAuthorAndDate(t *testing.T) {
	raw := `---
title: T
excerpt: E
featuredImage: i.jpg
category: c
---
`
	_, err := ParseDocument([]byte(raw), "x", time.UTC)
	assert.ElementsMatch(t, []string{"date", "author"}, violationFields(t, err))
}

func TestParseDocument_ReadTimeRules(t *testing.T) {
	for _, tc := range []struct {
		value string
		ok    bool
	}{
		{"5", true},
		{"5.0", true},
		{"0", false},
		{"-3", false},
		{"2.5", false},
	} {
		raw := strings.Replace(validDoc, "category:", "readTime: "+tc.value+"\ncategory:", 1)
		_, err := ParseDocument([]byte(raw), "x", time.UTC)
		if tc.ok {
			assert.NoError(t, err, tc.value)
			continue
		}
		assert.Equal(t, []string{"readTime"}, violationFields(t, err), tc.value)
	}
}

func TestParseDocument_UnsafeSlug(t *testing.T) {
	for _, slug := range []string{"has space", "a/b", "..", "café"} {
		raw := strings.Replace(validDoc, "title:", "slug: \""+slug+"\"\ntitle:", 1)
		_, err := ParseDocument([]byte(raw), "x", time.UTC)
		assert.Equal(t, []string{"slug"}, violationFields(t, err), slug)
	}
}

func TestParseDocument_NoFrontMatter(t *testing.T) {
	_, err := ParseDocument([]byte("# Just a body\n"), "plain", time.UTC)
	assert.Equal(t, []string{"frontmatter"}, violationFields(t, err))
}

func TestParseDocument_TypeMismatch(t *testing.T) {
	raw := strings.Replace(validDoc, "tags: [rights, \" courts \", rights]", "tags: {a: b}", 1)
	_, err := ParseDocument([]byte(raw), "x", time.UTC)
	assert.Equal(t, []string{"frontmatter"}, violationFields(t, err))
}

func TestParseDocument_CRLF(t *testing.T) {
	raw := strings.ReplaceAll(validDoc, "\n", "\r\n")
	doc, err := ParseDocument([]byte(raw), "x", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "Reading the Constitution", doc.Meta.Title)
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{
		"2025-03-01",
		"2025-03-01 09:15",
		"2025-03-01 09:15:30",
		"2025-03-01T09:15:30",
		"2025-03-01T09:15:30+05:30",
	} {
		_, err := ParseTime(s, time.UTC)
		assert.NoError(t, err, s)
	}
	_, err := ParseTime("March 1st", time.UTC)
	assert.Error(t, err)
}
