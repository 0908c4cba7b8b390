// Package workflow drives the holdings upload form: scheme search and
// selection, submission, and the two human-in-the-loop recovery paths for
// content mismatches and ambiguous scheme matches.
//
// A Session serializes every state change under one mutex. Network calls run
// with the mutex released; their results are applied only if the attempt or
// search token they were issued under is still current, so late responses
// never resurrect dismissed state.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/epeers/mftracker/internal/models"
	"github.com/epeers/mftracker/internal/search"
	"github.com/epeers/mftracker/internal/upload"
	log "github.com/sirupsen/logrus"
)

// Searcher runs a scheme search.
type Searcher interface {
	Eligible(query string) bool
	Search(ctx context.Context, query string) ([]models.SchemeCandidate, error)
}

// Uploader submits an upload request.
type Uploader interface {
	Submit(ctx context.Context, req *models.UploadRequest) (upload.Outcome, error)
}

// Confirmer binds a pending upload record to a scheme.
type Confirmer interface {
	ConfirmScheme(ctx context.Context, pendingRecordID, schemeCode string) error
}

// FundRefresher reloads the user's fund list after a finalized upload.
type FundRefresher interface {
	RefreshFunds(ctx context.Context) error
}

// Recorder journals finished attempts. It is optional.
type Recorder interface {
	RecordAttempt(ctx context.Context, rec models.AttemptRecord) error
}

// Options configures a Session.
type Options struct {
	ID        string
	Searcher  Searcher
	Uploader  Uploader
	Confirmer Confirmer
	Funds     FundRefresher
	Recorder  Recorder
	Debounce  time.Duration
}

// Session is one instance of the upload form. It supports exactly one
// in-flight upload at a time.
type Session struct {
	id        string
	searcher  Searcher
	uploader  Uploader
	confirmer Confirmer
	funds     FundRefresher
	recorder  Recorder

	ctx       context.Context
	cancel    context.CancelFunc
	debouncer *search.Debouncer
	tokens    search.Sequencer

	mu           sync.Mutex
	closed       bool
	lastActivity time.Time

	query         string
	fundName      string
	nickname      string
	amount        string
	date          string
	file          *models.UploadFile
	selected      *models.SelectedScheme
	results       []models.SchemeCandidate
	dropdownOpen  bool
	searchLoading bool

	phase         Phase
	attempt       uint64
	message       Message
	serverMessage string
}

// NewSession creates an idle session with an empty form.
func NewSession(opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = search.DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:           opts.ID,
		searcher:     opts.Searcher,
		uploader:     opts.Uploader,
		confirmer:    opts.Confirmer,
		funds:        opts.Funds,
		recorder:     opts.Recorder,
		ctx:          ctx,
		cancel:       cancel,
		debouncer:    search.NewDebouncer(opts.Debounce),
		lastActivity: time.Now(),
		phase:        Idle{},
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// LastActivity returns when the session was last touched.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Close tears the session down: the debounce timer is released, in-flight
// searches are canceled and any late upload or confirmation result is ignored.
// Close blocks until a running search callback has returned.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.attempt++
	s.tokens.Invalidate()
	s.cancel()
	s.mu.Unlock()

	s.debouncer.Stop()
	log.Debugf("session %s closed", s.id)
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	ID              string                    `json:"id"`
	Phase           PhaseTag                  `json:"phase"`
	Query           string                    `json:"query"`
	FundName        string                    `json:"fund_name"`
	Nickname        string                    `json:"nickname"`
	InvestedAmount  string                    `json:"invested_amount"`
	InvestedDate    string                    `json:"invested_date"`
	FileName        string                    `json:"file_name,omitempty"`
	Selected        *models.SelectedScheme    `json:"selected,omitempty"`
	Results         []models.SchemeCandidate  `json:"results"`
	DropdownVisible bool                      `json:"dropdown_visible"`
	SearchLoading   bool                      `json:"search_loading"`
	FormLocked      bool                      `json:"form_locked"`
	CanSubmit       bool                      `json:"can_submit"`
	Warning         *models.ValidationWarning `json:"validation_warning,omitempty"`
	Pending         *models.PendingAmbiguity  `json:"pending,omitempty"`
	BusyCandidate   string                    `json:"busy_candidate,omitempty"`
	Warnings        []models.Warning          `json:"warnings,omitempty"`
	Message         Message                   `json:"message"`
	ServerMessage   string                    `json:"server_message,omitempty"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:              s.id,
		Phase:           s.phase.Tag(),
		Query:           s.query,
		FundName:        s.fundName,
		Nickname:        s.nickname,
		InvestedAmount:  s.amount,
		InvestedDate:    s.date,
		Results:         append([]models.SchemeCandidate{}, s.results...),
		DropdownVisible: s.dropdownVisibleLocked(),
		SearchLoading:   s.searchLoading,
		FormLocked:      s.phase.Tag() != PhaseIdle,
		CanSubmit:       s.phase.Tag() == PhaseIdle && s.selected != nil,
		Message:         s.message,
		ServerMessage:   s.serverMessage,
	}
	if s.file != nil {
		snap.FileName = s.file.Name
	}
	if s.selected != nil {
		sel := *s.selected
		snap.Selected = &sel
	}

	switch p := s.phase.(type) {
	case NeedsOverride:
		w := p.Warning
		snap.Warning = &w
		snap.Warnings = append(snap.Warnings, models.Warning{Code: models.WarnContentMismatch, Message: w.WarningText})
		if w.ExtractedFundName == nil || *w.ExtractedFundName == "" {
			snap.Warnings = append(snap.Warnings, models.Warning{
				Code:    models.WarnUnknownExtractedName,
				Message: "fund name could not be read from the uploaded file",
			})
		}
	case NeedsSelection:
		pending := models.PendingAmbiguity{
			PendingRecordID: p.Pending.PendingRecordID,
			Candidates:      append([]models.SchemeCandidate{}, p.Pending.Candidates...),
		}
		snap.Pending = &pending
		snap.BusyCandidate = p.Busy
		snap.Warnings = append(snap.Warnings, models.Warning{
			Code:    models.WarnAmbiguousMatch,
			Message: "multiple schemes match the uploaded file",
		})
	}
	return snap
}

// dropdownVisibleLocked is true only without a selection and with results to show.
func (s *Session) dropdownVisibleLocked() bool {
	return s.dropdownOpen && s.selected == nil && len(s.results) > 0
}

func (s *Session) touchLocked() {
	s.lastActivity = time.Now()
}

// resetFormLocked clears every field, the selection, results and any
// disambiguation state, and returns the session to Idle.
func (s *Session) resetFormLocked() {
	s.tokens.Invalidate()
	s.debouncer.Cancel()
	s.query = ""
	s.fundName = ""
	s.nickname = ""
	s.amount = ""
	s.date = ""
	s.file = nil
	s.selected = nil
	s.results = nil
	s.dropdownOpen = false
	s.searchLoading = false
	s.phase = Idle{}
}

func (s *Session) record(ctx context.Context, rec models.AttemptRecord) {
	if s.recorder == nil {
		return
	}
	rec.SessionID = s.id
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.recorder.RecordAttempt(context.WithoutCancel(ctx), rec); err != nil {
		log.Warnf("session %s: failed to record %s attempt: %v", s.id, rec.Outcome, err)
	}
}

func (s *Session) refreshFunds(ctx context.Context) {
	if s.funds == nil {
		return
	}
	if err := s.funds.RefreshFunds(context.WithoutCancel(ctx)); err != nil {
		log.Warnf("session %s: fund list refresh failed: %v", s.id, err)
	}
}
