package workflow

import (
	"strings"

	"github.com/epeers/mftracker/internal/models"
	log "github.com/sirupsen/logrus"
)

// editableLocked guards every form mutation.
func (s *Session) editableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.phase.Tag() != PhaseIdle {
		return ErrFormLocked
	}
	s.touchLocked()
	return nil
}

// SetQuery replaces the visible query text. An active selection is cleared
// first, then a debounced search for the new text is scheduled.
func (s *Session) SetQuery(query string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if s.selected != nil {
		s.selected = nil
		s.fundName = ""
	}
	s.query = query
	s.dropdownOpen = true

	// Any response for an earlier query is now stale.
	s.tokens.Invalidate()
	if !s.searcher.Eligible(query) {
		s.debouncer.Cancel()
		s.results = nil
		s.searchLoading = false
		return s.snapshotLocked(), nil
	}
	s.debouncer.Trigger(s.runSearch)
	return s.snapshotLocked(), nil
}

// runSearch is the debounce callback. It reads the current query text and
// writes results only if no newer query has been issued meanwhile.
func (s *Session) runSearch() {
	s.mu.Lock()
	if s.closed || s.selected != nil || !s.searcher.Eligible(s.query) {
		s.mu.Unlock()
		return
	}
	query := s.query
	tok := s.tokens.Next()
	s.searchLoading = true
	s.mu.Unlock()

	results, err := s.searcher.Search(s.ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokens.Current(tok) {
		return
	}
	s.searchLoading = false
	if err != nil {
		log.Warnf("session %s: scheme search for %q failed: %v", s.id, query, err)
		s.results = nil
		return
	}
	s.results = results
}

// SetDropdownOpen opens the results dropdown on focus or closes it on an
// outside click.
func (s *Session) SetDropdownOpen(open bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.dropdownOpen = open
	return s.snapshotLocked(), nil
}

// Select makes candidate the active scheme, mirrors its name into the query
// and fund name, and closes the dropdown.
func (s *Session) Select(candidate models.SchemeCandidate) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.selectLocked(candidate)
	return s.snapshotLocked(), nil
}

// SelectByCode selects one of the currently displayed results.
func (s *Session) SelectByCode(code string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	for _, c := range s.results {
		if c.SchemeCode == code {
			s.selectLocked(c)
			return s.snapshotLocked(), nil
		}
	}
	return s.snapshotLocked(), ErrUnknownCandidate
}

func (s *Session) selectLocked(candidate models.SchemeCandidate) {
	sel := candidate.Selected()
	s.selected = &sel
	s.query = candidate.SchemeName
	s.fundName = candidate.SchemeName
	s.results = nil
	s.dropdownOpen = false
	s.searchLoading = false
	s.tokens.Invalidate()
	s.debouncer.Cancel()
}

// ClearSelection resets the selected scheme, the query text and the fund
// name together.
func (s *Session) ClearSelection() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.selected = nil
	s.query = ""
	s.fundName = ""
	s.results = nil
	s.searchLoading = false
	s.tokens.Invalidate()
	s.debouncer.Cancel()
	return s.snapshotLocked(), nil
}

// SetFundName overrides the fund name mirrored from the selected scheme.
func (s *Session) SetFundName(name string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.fundName = strings.TrimSpace(name)
	return s.snapshotLocked(), nil
}

// SetNickname sets the optional nickname.
func (s *Session) SetNickname(nickname string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.nickname = strings.TrimSpace(nickname)
	return s.snapshotLocked(), nil
}

// SetAmount sets the invested amount as entered.
func (s *Session) SetAmount(amount string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.amount = strings.TrimSpace(amount)
	return s.snapshotLocked(), nil
}

// SetDate sets the invested date in YYYY-MM-DD entry order.
func (s *Session) SetDate(date string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.date = strings.TrimSpace(date)
	return s.snapshotLocked(), nil
}

// FieldEdits is a partial update of the free-text form fields. Nil fields
// are left unchanged.
type FieldEdits struct {
	FundName       *string
	Nickname       *string
	InvestedAmount *string
	InvestedDate   *string
}

// SetFields applies every non-nil edit at once, or none of them when the
// form is not editable.
func (s *Session) SetFields(e FieldEdits) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if e.FundName != nil {
		s.fundName = strings.TrimSpace(*e.FundName)
	}
	if e.Nickname != nil {
		s.nickname = strings.TrimSpace(*e.Nickname)
	}
	if e.InvestedAmount != nil {
		s.amount = strings.TrimSpace(*e.InvestedAmount)
	}
	if e.InvestedDate != nil {
		s.date = strings.TrimSpace(*e.InvestedDate)
	}
	return s.snapshotLocked(), nil
}

// SetFile attaches the holdings spreadsheet. Non-Excel names are rejected
// and leave any previously attached file in place.
func (s *Session) SetFile(file models.UploadFile) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if err := models.ValidateExcelFileName(file.Name); err != nil {
		s.message = errorMessage(models.MsgInvalidFileType)
		return s.snapshotLocked(), err
	}
	s.file = &file
	return s.snapshotLocked(), nil
}

// RemoveFile detaches the spreadsheet.
func (s *Session) RemoveFile() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.file = nil
	return s.snapshotLocked(), nil
}

func (s *Session) fieldsLocked() models.UploadFields {
	f := models.UploadFields{
		FundName:       s.fundName,
		File:           s.file,
		InvestedAmount: s.amount,
		InvestedDate:   s.date,
		Nickname:       s.nickname,
	}
	if s.selected != nil {
		sel := *s.selected
		f.Scheme = &sel
	}
	return f
}
