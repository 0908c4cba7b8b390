package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SchemeSearchResponse is the backend response for GET /schemes/search
type SchemeSearchResponse struct {
	Schemes []SchemeCandidate `json:"schemes"`
}

// RecordID is a backend record identifier that may be sent as a string or a number.
type RecordID string

// UnmarshalJSON implements the json.Unmarshaler interface.
func (id *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = RecordID(n.String())
	return nil
}

// UploadStatus is the scheme-binding part of an upload response
type UploadStatus struct {
	RequiresSelection bool              `json:"requires_selection"`
	ID                RecordID          `json:"id"`
	Candidates        []SchemeCandidate `json:"candidates"`
}

// UploadResponse is the backend response for POST /upload-holdings/.
// Exactly one of the validation, selection or success shapes applies.
type UploadResponse struct {
	ValidationRequired bool          `json:"validation_required"`
	ValidationWarning  string        `json:"validation_warning"`
	ExtractedFundName  *string       `json:"extracted_fund_name"`
	ExpectedSchemeName string        `json:"expected_scheme_name"`
	SimilarityScore    float64       `json:"similarity_score"`
	UploadStatus       *UploadStatus `json:"upload_status"`
	Message            string        `json:"message"`
	Count              *int          `json:"count"`
}

// ConfirmSchemeRequest is the body of PATCH /funds/{id}/scheme
type ConfirmSchemeRequest struct {
	SchemeCode string `json:"scheme_code"`
}

// HoldingsRefreshResponse is the backend response for PATCH /funds/{id}/holdings
type HoldingsRefreshResponse struct {
	Message string `json:"message"`
	Count   *int   `json:"count"`
	Error   string `json:"error"`
}

// SuccessText returns the user-facing text for a successful holdings refresh
func (r HoldingsRefreshResponse) SuccessText() string {
	if r.Message != "" {
		return r.Message
	}
	count := "0"
	if r.Count != nil {
		count = strconv.Itoa(*r.Count)
	}
	return "Holdings updated: " + count + " stocks"
}

// QueryRequest represents the request body for editing the scheme search text
type QueryRequest struct {
	Query string `json:"query"`
}

// DropdownRequest opens or closes the search results dropdown
type DropdownRequest struct {
	Open bool `json:"open"`
}

// SelectionRequest picks one of the current search results
type SelectionRequest struct {
	SchemeCode string `json:"scheme_code" binding:"required"`
}

// FieldsRequest updates the free-form fields of the upload form.
// Nil fields are left untouched.
type FieldsRequest struct {
	FundName       *string       `json:"fund_name"`
	Nickname       *string       `json:"nickname"`
	InvestedAmount *string       `json:"invested_amount"`
	InvestedDate   *FlexibleDate `json:"invested_date"`
}

// HoldingsRefreshResult is the BFF response for a holdings refresh
type HoldingsRefreshResult struct {
	FundID  string `json:"fund_id"`
	Message string `json:"message"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
