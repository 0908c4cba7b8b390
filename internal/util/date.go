package util

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// EntryDateLayout is the year-month-day order the form collects dates in.
	EntryDateLayout = "2006-01-02"
	// BackendDateLayout is the day-month-year order the backend expects.
	BackendDateLayout = "02-01-2006"
)

// FormatBackendDate renders a calendar date as DD-MM-YYYY.
func FormatBackendDate(t time.Time) string {
	return t.Format(BackendDateLayout)
}

// ParseDate accepts the date orders seen in holdings exports and form input.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{EntryDateLayout, BackendDateLayout, "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	log.Debugf("Could not parse date %q", s)
	return time.Time{}, fmt.Errorf("could not parse date: %s", s)
}
