package derive

import (
	"strconv"
	"strings"
	"unicode"
)

// Slugger issues heading anchors that stay unique within one document.
// It follows the github-slugger rules so anchors match what readers expect
// from rendered Markdown elsewhere.
type Slugger struct {
	occurrences map[string]int
}

func NewSlugger() *Slugger {
	return &Slugger{occurrences: make(map[string]int)}
}

// Slug returns the anchor for text, suffixing -1, -2, ... on collision.
func (s *Slugger) Slug(text string) string {
	base := Anchor(text)
	if base == "" {
		base = "section"
	}
	result := base
	for {
		if _, taken := s.occurrences[result]; !taken {
			break
		}
		s.occurrences[base]++
		result = base + "-" + strconv.Itoa(s.occurrences[base])
	}
	s.occurrences[result] = 0
	return result
}

func (s *Slugger) Reset() {
	clear(s.occurrences)
}

// Anchor lowercases text, drops punctuation and symbols and turns whitespace into hyphens.
func Anchor(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}
	return b.String()
}
