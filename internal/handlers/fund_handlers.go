package handlers

import (
	"errors"
	"net/http"

	"github.com/epeers/mftracker/internal/middleware"
	"github.com/epeers/mftracker/internal/models"
	"github.com/epeers/mftracker/internal/services"
	"github.com/gin-gonic/gin"
)

// FundHandler serves the caller's fund list and holdings refreshes
type FundHandler struct {
	fundSvc     *services.FundService
	holdingsSvc *services.HoldingsService
}

// NewFundHandler creates a new FundHandler
func NewFundHandler(fundSvc *services.FundService, holdingsSvc *services.HoldingsService) *FundHandler {
	return &FundHandler{
		fundSvc:     fundSvc,
		holdingsSvc: holdingsSvc,
	}
}

// List handles GET /funds
// @Summary List tracked funds
// @Description Returns the caller's fund list as last refreshed from the backend
// @Tags funds
// @Produce json
// @Param refresh query bool false "Bypass the cached list"
// @Success 200 {array} models.Fund
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /funds [get]
func (h *FundHandler) List(c *gin.Context) {
	token, _ := middleware.GetToken(c)

	var (
		funds []models.Fund
		err   error
	)
	if c.Query("refresh") == "true" {
		funds, err = h.fundSvc.RefreshFunds(c.Request.Context(), token)
	} else {
		funds, err = h.fundSvc.ListFunds(c.Request.Context(), token)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "backend_error",
			Message: err.Error(),
		})
		return
	}
	if funds == nil {
		funds = []models.Fund{}
	}
	c.JSON(http.StatusOK, funds)
}

// RefreshHoldings handles PATCH /funds/:id/holdings
// @Summary Replace a fund's holdings
// @Description Uploads a new holdings spreadsheet for an existing fund
// @Tags funds
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Fund ID"
// @Param file formData file true "Holdings file (.xls or .xlsx)"
// @Success 200 {object} models.HoldingsRefreshResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /funds/{id}/holdings [patch]
func (h *FundHandler) RefreshHoldings(c *gin.Context) {
	token, _ := middleware.GetToken(c)
	fundID := c.Param("id")

	file, err := readUploadFile(c, "file")
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, models.ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return
	}

	msg, err := h.holdingsSvc.RefreshHoldings(c.Request.Context(), token, fundID, file)
	if err != nil {
		var lve *models.LocalValidationError
		var herr *services.HoldingsError
		switch {
		case errors.As(err, &lve):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "bad_request",
				Message: lve.Message,
			})
		case errors.As(err, &herr):
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error:   "backend_error",
				Message: herr.Message,
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "internal_error",
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, models.HoldingsRefreshResult{
		FundID:  fundID,
		Message: msg,
	})
}
