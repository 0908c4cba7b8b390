package upload

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/epeers/mftracker/internal/backend"
	"github.com/epeers/mftracker/internal/models"
	"github.com/shopspring/decimal"
)

type fakeBackend struct {
	resp   *models.UploadResponse
	err    error
	fields map[string]string
	file   []byte
	name   string
	calls  int
}

func (f *fakeBackend) UploadHoldings(ctx context.Context, form io.Reader, contentType string) (*models.UploadResponse, error) {
	f.calls++
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}
	r := multipart.NewReader(form, params["boundary"])
	f.fields = make(map[string]string)
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		data, _ := io.ReadAll(part)
		if part.FormName() == "file" {
			f.file = data
			f.name = part.FileName()
			continue
		}
		f.fields[part.FormName()] = string(data)
	}
	return f.resp, f.err
}

func testRequest(t *testing.T) *models.UploadRequest {
	t.Helper()
	req, err := models.NewUploadRequest(models.UploadFields{
		FundName:       "HDFC Flexi Cap Fund",
		File:           &models.UploadFile{Name: "hdfc-march.xlsx", Content: []byte("sheet-bytes")},
		Scheme:         &models.SelectedScheme{SchemeCode: "118955", SchemeName: "HDFC Flexi Cap Fund - Growth"},
		InvestedAmount: "25000.50",
		InvestedDate:   "2024-03-05",
		Nickname:       "Retirement",
	})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return req
}

func TestSubmit_EncodesWireContract(t *testing.T) {
	fb := &fakeBackend{resp: &models.UploadResponse{Message: "ok"}}
	sub := NewSubmitter(fb)

	if _, err := sub.Submit(context.Background(), testRequest(t)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := map[string]string{
		"fund_name":       "HDFC Flexi Cap Fund",
		"investment_type": "lumpsum",
		"invested_amount": "25000.50",
		"scheme_code":     "118955",
		"scheme_name":     "HDFC Flexi Cap Fund - Growth",
		"skip_validation": "false",
		"invested_date":   "05-03-2024",
		"nickname":        "Retirement",
	}
	for k, v := range want {
		if fb.fields[k] != v {
			t.Errorf("expected %s=%q, got %q", k, v, fb.fields[k])
		}
	}
	if string(fb.file) != "sheet-bytes" || fb.name != "hdfc-march.xlsx" {
		t.Errorf("unexpected file part %q (%q)", fb.name, fb.file)
	}
}

func TestEncodeUploadForm_AmountKeepsEnteredScale(t *testing.T) {
	for _, entered := range []string{"25000", "25000.50", "0.125", "1e3"} {
		req := testRequest(t)
		amount, err := decimal.NewFromString(entered)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", entered, err)
		}
		req.InvestedAmount = amount

		fb := &fakeBackend{resp: &models.UploadResponse{}}
		if _, err := NewSubmitter(fb).Submit(context.Background(), req); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := entered
		if entered == "1e3" {
			want = "1000"
		}
		if fb.fields["invested_amount"] != want {
			t.Errorf("expected invested_amount=%q, got %q", want, fb.fields["invested_amount"])
		}
	}
}

func TestSubmit_OmitsEmptyNickname(t *testing.T) {
	fb := &fakeBackend{resp: &models.UploadResponse{}}
	req := testRequest(t)
	req.Nickname = ""

	if _, err := NewSubmitter(fb).Submit(context.Background(), req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := fb.fields["nickname"]; ok {
		t.Error("expected nickname field to be omitted")
	}
}

func TestSubmit_SkipValidationIgnoresMismatch(t *testing.T) {
	fb := &fakeBackend{resp: &models.UploadResponse{ValidationRequired: true, ValidationWarning: "mismatch"}}
	sub := NewSubmitter(fb)

	out, err := sub.Submit(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := out.(*ValidationRequired); !ok {
		t.Fatalf("expected ValidationRequired, got %T", out)
	}

	out, err = sub.Submit(context.Background(), testRequest(t).WithSkipValidation())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := out.(*Success); !ok {
		t.Fatalf("expected Success on override, got %T", out)
	}
	if fb.fields["skip_validation"] != "true" {
		t.Errorf("expected skip_validation=true, got %q", fb.fields["skip_validation"])
	}
}

func TestSubmit_PropagatesBackendError(t *testing.T) {
	fb := &fakeBackend{err: &backend.TransportError{Err: errors.New("dial tcp: refused")}}
	_, err := NewSubmitter(fb).Submit(context.Background(), testRequest(t))
	if ErrorMessage(err) != MsgCannotReachServer {
		t.Errorf("expected connectivity message, got %q", ErrorMessage(err))
	}
}

func TestSubmit_NilRequest(t *testing.T) {
	fb := &fakeBackend{}
	_, err := NewSubmitter(fb).Submit(context.Background(), nil)
	if !errors.Is(err, ErrNilRequest) {
		t.Fatalf("expected ErrNilRequest, got %v", err)
	}
	if fb.calls != 0 {
		t.Error("expected no backend call")
	}
}

func TestInterpret_ExactlyOneOutcome(t *testing.T) {
	extracted := "ICICI Bluechip"
	both := &models.UploadResponse{
		ValidationRequired: true,
		ValidationWarning:  "The file looks like a different fund",
		ExtractedFundName:  &extracted,
		ExpectedSchemeName: "HDFC Flexi Cap Fund - Growth",
		SimilarityScore:    0.31,
		UploadStatus:       &models.UploadStatus{RequiresSelection: true, ID: "rec-1"},
	}

	out := Interpret(both, true)
	v, ok := out.(*ValidationRequired)
	if !ok {
		t.Fatalf("expected ValidationRequired to take precedence, got %T", out)
	}
	if v.Warning.ExtractedOrUnknown() != "ICICI Bluechip" || v.Warning.SimilarityScore != 0.31 {
		t.Errorf("unexpected warning %+v", v.Warning)
	}

	out = Interpret(both, false)
	sel, ok := out.(*SelectionRequired)
	if !ok {
		t.Fatalf("expected SelectionRequired when validation is skipped, got %T", out)
	}
	if sel.Pending.PendingRecordID != "rec-1" {
		t.Errorf("expected pending id rec-1, got %q", sel.Pending.PendingRecordID)
	}

	noSelection := &models.UploadResponse{UploadStatus: &models.UploadStatus{RequiresSelection: false}}
	if _, ok := Interpret(noSelection, true).(*Success); !ok {
		t.Error("expected requires_selection=false to be Success")
	}
}

func TestSuccessText(t *testing.T) {
	n := 42
	if got := (&Success{Count: &n}).Text(); !strings.Contains(got, "42") {
		t.Errorf("expected count in success text, got %q", got)
	}
	if got := (&Success{}).Text(); got != MsgUploadSuccess {
		t.Errorf("expected plain success text, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&models.LocalValidationError{Message: models.MsgMissingUploadFields}, models.MsgMissingUploadFields},
		{&backend.ServerError{StatusCode: 400, Detail: "Could not parse Excel"}, "Error: Could not parse Excel"},
		{&backend.ServerError{StatusCode: 422, Detail: `{"field":"file"}`}, `Error: {"field":"file"}`},
		{&backend.ServerError{StatusCode: 500}, MsgUploadFailed},
		{&backend.TransportError{Err: errors.New("connection refused")}, MsgCannotReachServer},
		{&backend.RequestError{Err: errors.New("file too large")}, "Error: file too large"},
	}
	for _, tc := range cases {
		if got := ErrorMessage(tc.err); got != tc.want {
			t.Errorf("ErrorMessage(%T) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
