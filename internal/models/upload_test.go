package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func validFields() UploadFields {
	return UploadFields{
		File:           &UploadFile{Name: "holdings.xlsx", Content: []byte("xlsx")},
		Scheme:         &SelectedScheme{SchemeCode: "118955", SchemeName: "HDFC Flexi Cap Fund - Growth"},
		InvestedAmount: "5000",
		InvestedDate:   "2024-03-05",
	}
}

func TestNewUploadRequest_MissingFields(t *testing.T) {
	cases := map[string]func(*UploadFields){
		"file":   func(f *UploadFields) { f.File = nil },
		"scheme": func(f *UploadFields) { f.Scheme = nil },
		"amount": func(f *UploadFields) { f.InvestedAmount = "  " },
		"date":   func(f *UploadFields) { f.InvestedDate = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := validFields()
			mutate(&f)

			req, err := NewUploadRequest(f)
			if req != nil {
				t.Fatalf("expected no request, got %+v", req)
			}
			var lve *LocalValidationError
			if !errors.As(err, &lve) {
				t.Fatalf("expected LocalValidationError, got %v", err)
			}
			if lve.Message != MsgMissingUploadFields {
				t.Errorf("expected %q, got %q", MsgMissingUploadFields, lve.Message)
			}
		})
	}
}

func TestNewUploadRequest_InvalidValues(t *testing.T) {
	f := validFields()
	f.InvestedAmount = "-10"
	if _, err := NewUploadRequest(f); err == nil || err.Error() != MsgInvalidAmount {
		t.Errorf("expected invalid amount error, got %v", err)
	}

	f = validFields()
	f.InvestedAmount = "abc"
	if _, err := NewUploadRequest(f); err == nil || err.Error() != MsgInvalidAmount {
		t.Errorf("expected invalid amount error, got %v", err)
	}

	f = validFields()
	f.InvestedDate = "05/03/2024"
	if _, err := NewUploadRequest(f); err == nil || err.Error() != MsgInvalidDate {
		t.Errorf("expected invalid date error, got %v", err)
	}

	f = validFields()
	f.File.Name = "holdings.csv"
	_, err := NewUploadRequest(f)
	if !errors.Is(err, ErrInvalidFileType) {
		t.Errorf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestNewUploadRequest_Defaults(t *testing.T) {
	req, err := NewUploadRequest(validFields())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.FundName != "HDFC Flexi Cap Fund - Growth" {
		t.Errorf("expected fund name to fall back to scheme name, got %q", req.FundName)
	}
	if req.InvestmentType != InvestmentTypeLumpsum {
		t.Errorf("expected investment type lumpsum, got %q", req.InvestmentType)
	}
	if req.SkipValidation {
		t.Error("expected SkipValidation to default to false")
	}
	if req.InvestedAmount.String() != "5000" {
		t.Errorf("expected amount 5000, got %s", req.InvestedAmount)
	}

	skipped := req.WithSkipValidation()
	if !skipped.SkipValidation || req.SkipValidation {
		t.Error("expected WithSkipValidation to copy, not mutate")
	}
	if skipped.SchemeCode != req.SchemeCode || !skipped.InvestedDate.Equal(req.InvestedDate) {
		t.Error("expected all other fields to be identical")
	}
}

func TestValidateExcelFileName(t *testing.T) {
	for _, name := range []string{"a.xls", "b.XLSX", "dir/c.xlsx"} {
		if err := ValidateExcelFileName(name); err != nil {
			t.Errorf("expected %q to be accepted, got %v", name, err)
		}
	}
	for _, name := range []string{"a.csv", "xlsx", "a.xlsx.pdf", ""} {
		if err := ValidateExcelFileName(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestUploadResponse_RecordIDForms(t *testing.T) {
	var resp UploadResponse
	body := `{"upload_status":{"requires_selection":true,"id":"65f0c1","candidates":[{"schemeCode":"1","schemeName":"A"}]}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.UploadStatus.ID != "65f0c1" {
		t.Errorf("expected string id, got %q", resp.UploadStatus.ID)
	}

	body = `{"upload_status":{"requires_selection":true,"id":42}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.UploadStatus.ID != "42" {
		t.Errorf("expected numeric id rendered as \"42\", got %q", resp.UploadStatus.ID)
	}
}

func TestFlexibleDate_Formats(t *testing.T) {
	for _, in := range []string{`"2024-03-05"`, `"05-03-2024"`, `"05/03/2024"`, `"2024-03-05T00:00:00Z"`} {
		var d FlexibleDate
		if err := json.Unmarshal([]byte(in), &d); err != nil {
			t.Fatalf("failed to unmarshal %s: %v", in, err)
		}
		if d.EntryString() != "2024-03-05" {
			t.Errorf("expected 2024-03-05 from %s, got %q", in, d.EntryString())
		}
	}

	var empty FlexibleDate
	if err := json.Unmarshal([]byte(`""`), &empty); err != nil {
		t.Fatalf("failed to unmarshal empty date: %v", err)
	}
	if !empty.IsZero() || empty.EntryString() != "" {
		t.Errorf("expected empty date to be zero, got %v", empty.Time)
	}
}

func TestHoldingsRefreshResponse_SuccessText(t *testing.T) {
	n := 37
	if got := (HoldingsRefreshResponse{Count: &n}).SuccessText(); got != "Holdings updated: 37 stocks" {
		t.Errorf("unexpected text %q", got)
	}
	if got := (HoldingsRefreshResponse{Message: "done", Count: &n}).SuccessText(); got != "done" {
		t.Errorf("expected server message to win, got %q", got)
	}
}
