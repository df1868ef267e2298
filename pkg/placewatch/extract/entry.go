package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
)

// Entry is one parsed feed or search-API item, produced by the feed
// collaborator and consumed read-only by the extraction pipeline.
type Entry struct {
	ContentID string // provider id; optional
	Title     string
	Link      string
	Summary   string // plain text, HTML already stripped
	Date      time.Time
}

// Validate checks the fields extraction depends on. Failures wrap
// ErrInvalidEntry so a batch runner can skip the entry and continue.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("entry title is required: %w", internalerr.ErrInvalidEntry)
	}

	if strings.TrimSpace(e.Link) == "" {
		return fmt.Errorf("entry link is required: %w", internalerr.ErrInvalidEntry)
	}

	if e.Date.IsZero() {
		return fmt.Errorf("entry date is required: %w", internalerr.ErrInvalidEntry)
	}

	return nil
}
