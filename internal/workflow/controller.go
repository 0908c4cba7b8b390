package workflow

import (
	"context"

	"github.com/epeers/mftracker/internal/models"
	"github.com/epeers/mftracker/internal/upload"
	log "github.com/sirupsen/logrus"
)

// Submit builds an UploadRequest from the form and sends it. Missing or
// invalid input is reported without any network call. Every path leaves the
// session outside the Submitted phase.
func (s *Session) Submit(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrClosed
	}
	if s.phase.Tag() != PhaseIdle {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrNotIdle
	}
	s.touchLocked()

	req, err := models.NewUploadRequest(s.fieldsLocked())
	if err != nil {
		defer s.mu.Unlock()
		s.message = errorMessage(upload.ErrorMessage(err))
		return s.snapshotLocked(), err
	}
	return s.send(ctx, req, false)
}

// ConfirmOverride resubmits the request that produced the mismatch warning,
// identical except for skip_validation=true.
func (s *Session) ConfirmOverride(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrClosed
	}
	p, ok := s.phase.(NeedsOverride)
	if !ok {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrNoPendingOverride
	}
	s.touchLocked()
	return s.send(ctx, p.request.WithSkipValidation(), true)
}

// send must be called with s.mu held; it releases the lock around the upload.
func (s *Session) send(ctx context.Context, req *models.UploadRequest, override bool) (Snapshot, error) {
	s.attempt++
	attempt := s.attempt
	s.phase = Submitted{Override: override}
	s.message = Message{}
	s.serverMessage = ""
	s.mu.Unlock()

	log.Infof("session %s: submitting %s for scheme %s (override=%t)", s.id, req.File.Name, req.SchemeCode, override)
	out, err := s.uploader.Submit(ctx, req)

	s.mu.Lock()
	if s.closed || s.attempt != attempt {
		defer s.mu.Unlock()
		log.Debugf("session %s: ignoring late upload result for attempt %d", s.id, attempt)
		return s.snapshotLocked(), nil
	}

	rec := models.AttemptRecord{SchemeCode: req.SchemeCode, FileName: req.File.Name}
	if err != nil {
		// Fields are kept so the user can correct and retry.
		s.phase = Idle{}
		s.message = errorMessage(upload.ErrorMessage(err))
		snap := s.snapshotLocked()
		s.mu.Unlock()

		rec.Outcome = models.AttemptFailed
		rec.Detail = snap.Message.Text
		s.record(ctx, rec)
		return snap, err
	}

	switch o := out.(type) {
	case *upload.ValidationRequired:
		if !override {
			s.phase = NeedsOverride{Warning: o.Warning, request: req}
			defer s.mu.Unlock()
			return s.snapshotLocked(), nil
		}
		// An override is trusted to finalize.
		out = &upload.Success{}
	case *upload.SelectionRequired:
		s.phase = NeedsSelection{Pending: o.Pending}
		defer s.mu.Unlock()
		return s.snapshotLocked(), nil
	}

	success, _ := out.(*upload.Success)
	if success == nil {
		success = &upload.Success{}
	}
	s.resetFormLocked()
	s.message = successMessage(success.Text())
	s.serverMessage = success.Message
	snap := s.snapshotLocked()
	s.mu.Unlock()

	rec.Outcome = models.AttemptSucceeded
	rec.Detail = snap.Message.Text
	s.record(ctx, rec)
	s.refreshFunds(ctx)
	return snap, nil
}

// CancelOverride discards the mismatch warning and returns to Idle with the
// form fields unchanged. Nothing is uploaded.
func (s *Session) CancelOverride(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrClosed
	}
	p, ok := s.phase.(NeedsOverride)
	if !ok {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrNoPendingOverride
	}
	s.touchLocked()
	s.attempt++
	s.phase = Idle{}
	s.message = Message{}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.record(ctx, models.AttemptRecord{
		SchemeCode: p.request.SchemeCode,
		FileName:   p.request.File.Name,
		Outcome:    models.AttemptOverrideCanceled,
		Detail:     p.Warning.WarningText,
	})
	return snap, nil
}

// SelectCandidate binds the pending upload to the chosen scheme. Only one
// confirmation may be in flight; on failure the pending record is kept and
// the candidate list is re-enabled.
func (s *Session) SelectCandidate(ctx context.Context, schemeCode string) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrClosed
	}
	p, ok := s.phase.(NeedsSelection)
	if !ok {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrNoPendingSelection
	}
	if p.Busy != "" {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrSelectionBusy
	}
	if _, ok := p.Pending.Candidate(schemeCode); !ok {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrUnknownCandidate
	}
	s.touchLocked()
	s.phase = NeedsSelection{Pending: p.Pending, Busy: schemeCode}
	s.message = Message{}
	attempt := s.attempt
	fileName := ""
	if s.file != nil {
		fileName = s.file.Name
	}
	s.mu.Unlock()

	err := s.confirmer.ConfirmScheme(ctx, p.Pending.PendingRecordID, schemeCode)

	s.mu.Lock()
	if s.closed || s.attempt != attempt {
		defer s.mu.Unlock()
		log.Debugf("session %s: ignoring late confirmation for record %s", s.id, p.Pending.PendingRecordID)
		return s.snapshotLocked(), nil
	}
	if err != nil {
		s.phase = NeedsSelection{Pending: p.Pending}
		s.message = errorMessage(MsgSchemeConfirmFailed)
		defer s.mu.Unlock()
		log.Warnf("session %s: scheme confirmation for record %s failed: %v", s.id, p.Pending.PendingRecordID, err)
		return s.snapshotLocked(), err
	}

	s.attempt++
	s.resetFormLocked()
	s.message = successMessage(MsgSchemeConfirmed)
	s.serverMessage = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.record(ctx, models.AttemptRecord{
		SchemeCode: schemeCode,
		FileName:   fileName,
		Outcome:    models.AttemptSchemeConfirmed,
		Detail:     p.Pending.PendingRecordID,
	})
	s.refreshFunds(ctx)
	return snap, nil
}

// CancelSelection discards the pending record and resets the whole form.
// A confirmation still in flight is ignored when it resolves.
func (s *Session) CancelSelection(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrClosed
	}
	p, ok := s.phase.(NeedsSelection)
	if !ok {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrNoPendingSelection
	}
	s.touchLocked()
	schemeCode := ""
	if s.selected != nil {
		schemeCode = s.selected.SchemeCode
	}
	fileName := ""
	if s.file != nil {
		fileName = s.file.Name
	}
	s.attempt++
	s.resetFormLocked()
	s.message = Message{}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.record(ctx, models.AttemptRecord{
		SchemeCode: schemeCode,
		FileName:   fileName,
		Outcome:    models.AttemptSelectionCanceled,
		Detail:     p.Pending.PendingRecordID,
	})
	return snap, nil
}

// Reset clears an idle form. While an upload is in flight the form stays
// locked, and an open dialog must be closed through its own cancel.
func (s *Session) Reset() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshotLocked(), ErrClosed
	}
	switch s.phase.Tag() {
	case PhaseIdle:
	case PhaseSubmitted:
		return s.snapshotLocked(), ErrFormLocked
	default:
		return s.snapshotLocked(), ErrNotIdle
	}
	s.touchLocked()
	s.resetFormLocked()
	s.message = Message{}
	s.serverMessage = ""
	return s.snapshotLocked(), nil
}
