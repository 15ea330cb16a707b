package derive

import (
	"fmt"
	"math"
	"unicode"

	"folio/internal/domain/content"
)

const DefaultWordsPerMinute = 200

// ReadingTime estimates how long body takes to read. A positive override wins
// for Minutes and Text; Words and Time always describe the body itself.
func ReadingTime(body string, override, wordsPerMinute int) content.ReadingTime {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	words := CountWords(body)
	exact := float64(words) / float64(wordsPerMinute)

	minutes := override
	if minutes <= 0 {
		minutes = max(1, int(math.Round(exact)))
	}
	return content.ReadingTime{
		Minutes: minutes,
		Text:    fmt.Sprintf("%d min read", minutes),
		Words:   words,
		Time:    exact * 60 * 1000,
	}
}

// CountWords counts runs of non-space characters holding at least one letter or
// digit. Han ideographs are counted one per character.
func CountWords(s string) int {
	words := 0
	inWord, wordHasContent := false, false
	flush := func() {
		if inWord && wordHasContent {
			words++
		}
		inWord, wordHasContent = false, false
	}
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			words++
		case unicode.IsSpace(r):
			flush()
		default:
			inWord = true
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				wordHasContent = true
			}
		}
	}
	flush()
	return words
}
