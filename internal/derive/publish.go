package derive

import (
	"time"

	"folio/internal/domain/content"
)

// IsPublished reports whether a post is live at now. Scheduled posts flip to
// published once their date is reached, so the answer is never stored.
func IsPublished(status content.Status, date, now time.Time) bool {
	switch status {
	case content.StatusDraft:
		return false
	case content.StatusScheduled:
		return !date.After(now)
	default:
		return true
	}
}
