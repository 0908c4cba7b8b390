package models

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentTypeLumpsum is the only investment type the upload form produces.
const InvestmentTypeLumpsum = "lumpsum"

var ErrInvalidFileType = errors.New("please upload an Excel file (.xls or .xlsx)")

// Local validation messages shown to the user.
const (
	MsgMissingUploadFields = "Please select a fund, upload a file, and provide amount and date."
	MsgInvalidAmount       = "Invested amount must be a positive number."
	MsgInvalidDate         = "Invested date must be a valid date (YYYY-MM-DD)."
	MsgInvalidFileType     = "Please upload an Excel file (.xls or .xlsx)"
)

// LocalValidationError is raised for input problems caught before any network call.
type LocalValidationError struct {
	Message string
	Err     error
}

func (e *LocalValidationError) Error() string { return e.Message }

func (e *LocalValidationError) Unwrap() error { return e.Err }

// UploadFile is an in-memory holdings spreadsheet.
type UploadFile struct {
	Name    string
	Content []byte
}

// ValidateExcelFileName is a fast-fail extension guard; the backend re-validates content.
func ValidateExcelFileName(name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xls", ".xlsx":
		return nil
	}
	return &LocalValidationError{Message: MsgInvalidFileType, Err: ErrInvalidFileType}
}

// UploadFields is the raw form content an UploadRequest is built from.
type UploadFields struct {
	FundName       string
	File           *UploadFile
	Scheme         *SelectedScheme
	InvestedAmount string
	InvestedDate   string // YYYY-MM-DD as entered
	Nickname       string
}

// UploadRequest is a complete, validated lumpsum holdings upload.
// It can only be obtained from NewUploadRequest.
type UploadRequest struct {
	FundName       string
	File           UploadFile
	InvestmentType string
	InvestedAmount decimal.Decimal
	SchemeCode     string
	SchemeName     string
	SkipValidation bool
	InvestedDate   time.Time
	Nickname       string
}

// NewUploadRequest enforces that file, scheme, amount and date are all present
// before a request can exist.
func NewUploadRequest(f UploadFields) (*UploadRequest, error) {
	if f.File == nil || f.Scheme == nil || f.Scheme.SchemeCode == "" ||
		strings.TrimSpace(f.InvestedAmount) == "" || strings.TrimSpace(f.InvestedDate) == "" {
		return nil, &LocalValidationError{Message: MsgMissingUploadFields}
	}
	if err := ValidateExcelFileName(f.File.Name); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(f.InvestedAmount))
	if err != nil || !amount.IsPositive() {
		return nil, &LocalValidationError{Message: MsgInvalidAmount, Err: err}
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(f.InvestedDate))
	if err != nil {
		return nil, &LocalValidationError{Message: MsgInvalidDate, Err: err}
	}

	fundName := f.FundName
	if fundName == "" {
		fundName = f.Scheme.SchemeName
	}

	return &UploadRequest{
		FundName:       fundName,
		File:           *f.File,
		InvestmentType: InvestmentTypeLumpsum,
		InvestedAmount: amount,
		SchemeCode:     f.Scheme.SchemeCode,
		SchemeName:     f.Scheme.SchemeName,
		InvestedDate:   date,
		Nickname:       f.Nickname,
	}, nil
}

// WithSkipValidation returns a copy identical in every field except SkipValidation.
func (r UploadRequest) WithSkipValidation() *UploadRequest {
	r.SkipValidation = true
	return &r
}

// ValidationWarning describes a name mismatch between the uploaded file and the selected scheme.
type ValidationWarning struct {
	WarningText       string  `json:"warning"`
	ExtractedFundName *string `json:"extracted_fund_name,omitempty"`
	ExpectedFundName  string  `json:"expected_fund_name"`
	SimilarityScore   float64 `json:"similarity_score"`
}

// ExtractedOrUnknown is the extracted name for display.
func (w ValidationWarning) ExtractedOrUnknown() string {
	if w.ExtractedFundName == nil || *w.ExtractedFundName == "" {
		return "Unknown"
	}
	return *w.ExtractedFundName
}

// PendingAmbiguity is an accepted upload awaiting a scheme choice from the user.
type PendingAmbiguity struct {
	PendingRecordID string            `json:"pending_record_id"`
	Candidates      []SchemeCandidate `json:"candidates"`
}

// Candidate looks up a candidate by scheme code.
func (p PendingAmbiguity) Candidate(code string) (SchemeCandidate, bool) {
	for _, c := range p.Candidates {
		if c.SchemeCode == code {
			return c, true
		}
	}
	return SchemeCandidate{}, false
}
