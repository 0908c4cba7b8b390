package handlers

import (
	"errors"
	"net/http"

	"github.com/epeers/mftracker/internal/backend"
	"github.com/epeers/mftracker/internal/middleware"
	"github.com/epeers/mftracker/internal/models"
	"github.com/epeers/mftracker/internal/services"
	"github.com/epeers/mftracker/internal/workflow"
	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the upload workflow as server-side sessions
type SessionHandler struct {
	sessionSvc *services.SessionService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessionSvc *services.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionSvc: sessionSvc,
	}
}

func (h *SessionHandler) session(c *gin.Context) (*workflow.Session, bool) {
	token, _ := middleware.GetToken(c)
	sess, err := h.sessionSvc.Get(c.Param("id"), token)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
		return nil, false
	}
	return sess, true
}

// respond writes the snapshot. Backend failures are part of the workflow
// state (phase and message) and are not HTTP errors.
func respond(c *gin.Context, snap workflow.Snapshot, err error) {
	if err == nil || isBackendError(err) {
		c.JSON(http.StatusOK, snap)
		return
	}

	var lve *models.LocalValidationError
	switch {
	case errors.As(err, &lve):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: lve.Message,
		})
	case errors.Is(err, workflow.ErrUnknownCandidate):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
	case errors.Is(err, workflow.ErrClosed):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, workflow.ErrFormLocked),
		errors.Is(err, workflow.ErrNotIdle),
		errors.Is(err, workflow.ErrNoPendingOverride),
		errors.Is(err, workflow.ErrNoPendingSelection),
		errors.Is(err, workflow.ErrSelectionBusy):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

func isBackendError(err error) bool {
	var serverErr *backend.ServerError
	var transportErr *backend.TransportError
	var requestErr *backend.RequestError
	return errors.As(err, &serverErr) || errors.As(err, &transportErr) || errors.As(err, &requestErr)
}

// Create handles POST /sessions
// @Summary Start an upload session
// @Description Create an empty holdings upload form bound to the caller's token
// @Tags sessions
// @Produce json
// @Success 201 {object} workflow.Snapshot
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	token, _ := middleware.GetToken(c)
	sess := h.sessionSvc.Create(token)
	c.JSON(http.StatusCreated, sess.Snapshot())
}

// Get handles GET /sessions/:id
// @Summary Get an upload session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} workflow.Snapshot
// @Failure 404 {object} models.ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// Delete handles DELETE /sessions/:id
// @Summary Close an upload session
// @Description Release the session's timers; late backend responses are ignored
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	token, _ := middleware.GetToken(c)
	if err := h.sessionSvc.Delete(c.Param("id"), token); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetQuery handles PUT /sessions/:id/query
// @Summary Edit the scheme search text
// @Description Clears any selection, opens the dropdown and schedules a debounced search
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body models.QueryRequest true "Query text"
// @Success 200 {object} workflow.Snapshot
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/query [put]
func (h *SessionHandler) SetQuery(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return
	}
	snap, err := sess.SetQuery(req.Query)
	respond(c, snap, err)
}

// SetDropdown handles POST /sessions/:id/dropdown
// @Summary Open or close the search results dropdown
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body models.DropdownRequest true "Dropdown state"
// @Success 200 {object} workflow.Snapshot
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/dropdown [post]
func (h *SessionHandler) SetDropdown(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req models.DropdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return
	}
	snap, err := sess.SetDropdownOpen(req.Open)
	respond(c, snap, err)
}

// Select handles POST /sessions/:id/selection
// @Summary Select a scheme from the current results
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body models.SelectionRequest true "Scheme code"
// @Success 200 {object} workflow.Snapshot
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/selection [post]
func (h *SessionHandler) Select(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req models.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return
	}
	snap, err := sess.SelectByCode(req.SchemeCode)
	respond(c, snap, err)
}

// ClearSelection handles DELETE /sessions/:id/selection
// @Summary Clear the selected scheme, query text and fund name
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} workflow.Snapshot
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/selection [delete]
func (h *SessionHandler) ClearSelection(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.ClearSelection()
	respond(c, snap, err)
}

// SetFields handles PUT /sessions/:id/fields
// @Summary Update fund name, nickname, invested amount or invested date
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body models.FieldsRequest true "Fields to update"
// @Success 200 {object} workflow.Snapshot
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/fields [put]
func (h *SessionHandler) SetFields(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req models.FieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return
	}

	edits := workflow.FieldEdits{
		FundName:       req.FundName,
		Nickname:       req.Nickname,
		InvestedAmount: req.InvestedAmount,
	}
	if req.InvestedDate != nil {
		date := req.InvestedDate.EntryString()
		edits.InvestedDate = &date
	}
	snap, err := sess.SetFields(edits)
	respond(c, snap, err)
}

// SetFile handles PUT /sessions/:id/file
// @Summary Attach the holdings spreadsheet
// @Tags sessions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Holdings file (.xls or .xlsx)"
// @Success 200 {object} workflow.Snapshot
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Router /sessions/{id}/file [put]
func (h *SessionHandler) SetFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
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
	snap, err := sess.SetFile(file)
	respond(c, snap, err)
}

// RemoveFile handles DELETE /sessions/:id/file
// @Summary Detach the holdings spreadsheet
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} workflow.Snapshot
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/file [delete]
func (h *SessionHandler) RemoveFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.RemoveFile()
	respond(c, snap, err)
}

// Submit handles POST /sessions/:id/submit
// @Summary Submit the lumpsum holdings upload
// @Description Missing fields are rejected without a backend call. A name mismatch or an ambiguous scheme match is reported in the phase.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} workflow.Snapshot
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.Submit(c.Request.Context())
	respond(c, snap, err)
}

// ConfirmOverride handles POST /sessions/:id/override
// @Summary Upload anyway despite the name mismatch
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} workflow.Snapshot
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/override [post]
func (h *SessionHandler) ConfirmOverride(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.ConfirmOverride(c.Request.Context())
	respond(c, snap, err)
}

// CancelOverride handles DELETE /sessions/:id/override
// @Summary Dismiss the name mismatch warning
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} workflow.Snapshot
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/override [delete]
func (h *SessionHandler) CancelOverride(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.CancelOverride(c.Request.Context())
	respond(c, snap, err)
}

// SelectCandidate handles POST /sessions/:id/candidates/:scheme_code
// @Summary Bind the pending upload to one of the candidate schemes
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param scheme_code path string true "Scheme code"
// @Success 200 {object} workflow.Snapshot
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/candidates/{scheme_code} [post]
func (h *SessionHandler) SelectCandidate(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.SelectCandidate(c.Request.Context(), c.Param("scheme_code"))
	respond(c, snap, err)
}

// CancelSelection handles DELETE /sessions/:id/candidates
// @Summary Discard the pending upload and reset the form
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} workflow.Snapshot
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/candidates [delete]
func (h *SessionHandler) CancelSelection(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.CancelSelection(c.Request.Context())
	respond(c, snap, err)
}

// Reset handles POST /sessions/:id/reset
// @Summary Clear the whole form
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} workflow.Snapshot
// @Failure 409 {object} models.ErrorResponse
// @Router /sessions/{id}/reset [post]
func (h *SessionHandler) Reset(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.Reset()
	respond(c, snap, err)
}

// Attempts handles GET /sessions/:id/attempts
// @Summary List the journaled upload attempts of a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} models.AttemptRecord
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /sessions/{id}/attempts [get]
func (h *SessionHandler) Attempts(c *gin.Context) {
	token, _ := middleware.GetToken(c)
	records, err := h.sessionSvc.Attempts(c.Request.Context(), c.Param("id"), token)
	if errors.Is(err, services.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, records)
}
