package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/epeers/mftracker/internal/models"
	"github.com/epeers/mftracker/internal/util"
	"github.com/shopspring/decimal"
)

var excelContentTypes = map[string]string{
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// EncodeUploadForm assembles the multipart body for POST /upload-holdings/.
// The invested date is sent as DD-MM-YYYY.
func EncodeUploadForm(req *models.UploadRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	skip := "false"
	if req.SkipValidation {
		skip = "true"
	}

	if err := w.WriteField("fund_name", req.FundName); err != nil {
		return nil, "", fmt.Errorf("failed to write fund_name: %w", err)
	}
	if err := writeFile(w, req.File); err != nil {
		return nil, "", err
	}
	fields := [][2]string{
		{"investment_type", req.InvestmentType},
		{"invested_amount", amountText(req.InvestedAmount)},
		{"scheme_code", req.SchemeCode},
		{"scheme_name", req.SchemeName},
		{"skip_validation", skip},
		{"invested_date", util.FormatBackendDate(req.InvestedDate)},
	}
	if req.Nickname != "" {
		fields = append(fields, [2]string{"nickname", req.Nickname})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write %s: %w", f[0], err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// amountText renders the amount with the scale it was entered with, so
// "25000.50" is sent as typed rather than as "25000.5".
func amountText(d decimal.Decimal) string {
	places := -d.Exponent()
	if places < 0 {
		places = 0
	}
	return d.StringFixed(places)
}

// EncodeFileForm assembles a multipart body carrying only the spreadsheet.
func EncodeFileForm(file models.UploadFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeFile(w, file); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, file models.UploadFile) error {
	ct, ok := excelContentTypes[strings.ToLower(filepath.Ext(file.Name))]
	if !ok {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(file.Name))))
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return fmt.Errorf("failed to write file content: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
