package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/epeers/mftracker/internal/models"
	"github.com/gin-gonic/gin"
)

// MaxUploadBytes caps the size of an uploaded holdings spreadsheet.
const MaxUploadBytes = 20 << 20

var ErrFileTooLarge = errors.New("file exceeds the 20 MB upload limit")

// readUploadFile reads the multipart part named field into memory.
func readUploadFile(c *gin.Context, field string) (models.UploadFile, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)

	fh, err := c.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return models.UploadFile{}, ErrFileTooLarge
		}
		return models.UploadFile{}, fmt.Errorf("missing %q file field: %w", field, err)
	}
	if fh.Size > MaxUploadBytes {
		return models.UploadFile{}, ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return models.UploadFile{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return models.UploadFile{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(content) > MaxUploadBytes {
		return models.UploadFile{}, ErrFileTooLarge
	}

	return models.UploadFile{
		Name:    filepath.Base(fh.Filename),
		Content: content,
	}, nil
}
