package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epeers/mftracker/internal/backend"
	"github.com/epeers/mftracker/internal/models"
	"github.com/epeers/mftracker/internal/upload"
	log "github.com/sirupsen/logrus"
)

const MsgHoldingsRefreshFailed = "Failed to update holdings. Please try again."

// HoldingsError is a failed holdings refresh with its user-facing text.
type HoldingsError struct {
	Message string
	Err     error
}

func (e *HoldingsError) Error() string { return e.Message }

func (e *HoldingsError) Unwrap() error { return e.Err }

// HoldingsService replaces the holdings of an existing fund from a new spreadsheet.
type HoldingsService struct {
	client *backend.Client
	funds  *FundService
}

// NewHoldingsService creates a new HoldingsService
func NewHoldingsService(client *backend.Client, funds *FundService) *HoldingsService {
	return &HoldingsService{
		client: client,
		funds:  funds,
	}
}

// RefreshHoldings uploads file as the new holdings of fundID and returns the
// success text. On success the caller's fund list is refreshed.
func (s *HoldingsService) RefreshHoldings(ctx context.Context, token, fundID string, file models.UploadFile) (string, error) {
	defer TrackTime("RefreshHoldings", time.Now())

	if err := models.ValidateExcelFileName(file.Name); err != nil {
		return "", err
	}

	body, contentType, err := upload.EncodeFileForm(file)
	if err != nil {
		return "", fmt.Errorf("failed to encode holdings form: %w", err)
	}

	resp, err := s.client.WithToken(token).RefreshHoldings(ctx, fundID, body, contentType)
	if err != nil {
		return "", &HoldingsError{Message: holdingsErrorMessage(err), Err: err}
	}
	if resp.Error != "" {
		return "", &HoldingsError{Message: resp.Error}
	}

	if s.funds != nil {
		if _, err := s.funds.RefreshFunds(ctx, token); err != nil {
			log.Warnf("fund list refresh after holdings update of %s failed: %v", fundID, err)
		}
	}
	return resp.SuccessText(), nil
}

func holdingsErrorMessage(err error) string {
	var serverErr *backend.ServerError
	if errors.As(err, &serverErr) && serverErr.Detail != "" {
		return serverErr.Detail
	}
	var transportErr *backend.TransportError
	if errors.As(err, &transportErr) {
		return upload.MsgCannotReachServer
	}
	return MsgHoldingsRefreshFailed
}
