package models

import "time"

// AttemptOutcome is how an upload attempt ended.
type AttemptOutcome string

const (
	AttemptSucceeded         AttemptOutcome = "succeeded"
	AttemptSchemeConfirmed   AttemptOutcome = "scheme_confirmed"
	AttemptOverrideCanceled  AttemptOutcome = "override_canceled"
	AttemptSelectionCanceled AttemptOutcome = "selection_canceled"
	AttemptFailed            AttemptOutcome = "failed"
)

// AttemptRecord is one journal entry for a finished upload attempt.
type AttemptRecord struct {
	ID         int64          `json:"id"`
	SessionID  string         `json:"session_id"`
	SchemeCode string         `json:"scheme_code"`
	FileName   string         `json:"file_name"`
	Outcome    AttemptOutcome `json:"outcome"`
	Detail     string         `json:"detail,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
