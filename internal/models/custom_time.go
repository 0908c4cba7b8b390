package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/epeers/mftracker/internal/util"
)

// FlexibleDate is a calendar date that unmarshals from an RFC3339 timestamp
// or any of the form's date orders (YYYY-MM-DD, DD-MM-YYYY, DD/MM/YYYY).
// An empty string clears the field.
type FlexibleDate struct {
	time.Time
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexibleDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		f.Time = time.Time{}
		return nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		f.Time = t
		return nil
	}
	t, err := util.ParseDate(s)
	if err != nil {
		return err
	}
	f.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexibleDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.EntryString())
}

// EntryString renders the date in the form's year-month-day entry order.
func (f FlexibleDate) EntryString() string {
	if f.IsZero() {
		return ""
	}
	return f.Format(util.EntryDateLayout)
}
