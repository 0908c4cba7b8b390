// Package upload submits holdings uploads and interprets the backend's answer.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/epeers/mftracker/internal/backend"
	"github.com/epeers/mftracker/internal/models"
	log "github.com/sirupsen/logrus"
)

// User-facing failure messages.
const (
	MsgCannotReachServer = "Cannot reach server. Please ensure the backend is running."
	MsgUploadFailed      = "Upload failed. Please check the file format."
)

var ErrNilRequest = errors.New("upload request is required")

// Backend is the upload endpoint.
type Backend interface {
	UploadHoldings(ctx context.Context, form io.Reader, contentType string) (*models.UploadResponse, error)
}

// Submitter posts upload requests.
type Submitter struct {
	backend Backend
}

// NewSubmitter creates a new Submitter
func NewSubmitter(b Backend) *Submitter {
	return &Submitter{backend: b}
}

// Submit sends req as a single multipart POST and interprets the response.
// A request with SkipValidation set never yields *ValidationRequired.
func (s *Submitter) Submit(ctx context.Context, req *models.UploadRequest) (Outcome, error) {
	if req == nil {
		return nil, &backend.RequestError{Err: ErrNilRequest}
	}

	form, contentType, err := EncodeUploadForm(req)
	if err != nil {
		return nil, &backend.RequestError{Err: err}
	}

	start := time.Now()
	resp, err := s.backend.UploadHoldings(ctx, form, contentType)
	log.Debugf("upload of %q for scheme %s took %d ms (skip_validation=%t)",
		req.File.Name, req.SchemeCode, time.Since(start).Milliseconds(), req.SkipValidation)
	if err != nil {
		return nil, err
	}
	return Interpret(resp, !req.SkipValidation), nil
}

// ErrorMessage renders a failed upload attempt for the user. Each known cause
// gets its own text; only an unparseable server error falls back to a generic one.
func ErrorMessage(err error) string {
	var (
		local     *models.LocalValidationError
		serverErr *backend.ServerError
		transport *backend.TransportError
		request   *backend.RequestError
	)
	switch {
	case errors.As(err, &local):
		return local.Message
	case errors.As(err, &serverErr):
		if serverErr.Detail == "" {
			return MsgUploadFailed
		}
		return "Error: " + serverErr.Detail
	case errors.As(err, &transport):
		return MsgCannotReachServer
	case errors.As(err, &request):
		return fmt.Sprintf("Error: %v", request.Err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
