package service

import (
	"strings"
	"time"

	"github.com/pawfam/backend/internal/domain"
)

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDate accepts RFC 3339 timestamps and plain calendar dates (read as UTC)
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.FieldError(field, "must be a date (YYYY-MM-DD or RFC 3339)")
}
