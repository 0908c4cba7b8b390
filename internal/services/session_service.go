package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epeers/mftracker/internal/backend"
	"github.com/epeers/mftracker/internal/cache"
	"github.com/epeers/mftracker/internal/models"
	"github.com/epeers/mftracker/internal/search"
	"github.com/epeers/mftracker/internal/upload"
	"github.com/epeers/mftracker/internal/workflow"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrSessionNotFound = errors.New("upload session not found")

// AttemptLister reads the journal back. The Postgres journal implements it.
type AttemptLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.AttemptRecord, error)
}

// SessionConfig holds the per-session tuning taken from configuration.
type SessionConfig struct {
	TTL             time.Duration
	SearchDebounce  time.Duration
	SearchMinLength int
}

type sessionEntry struct {
	session *workflow.Session
	token   string
}

// SessionService owns the live upload sessions. Each session is bound to the
// token it was created with and talks to the backend on that caller's behalf.
type SessionService struct {
	client   *backend.Client
	funds    *FundService
	recorder workflow.Recorder
	cfg      SessionConfig
	sessions *cache.MemoryCache[string, sessionEntry]
}

// NewSessionService creates a new SessionService. recorder may be nil.
func NewSessionService(client *backend.Client, funds *FundService, recorder workflow.Recorder, cfg SessionConfig) *SessionService {
	return &SessionService{
		client:   client,
		funds:    funds,
		recorder: recorder,
		cfg:      cfg,
		sessions: cache.NewMemoryCache[string, sessionEntry](cfg.TTL),
	}
}

// Create starts a new idle session for the caller identified by token.
func (s *SessionService) Create(token string) *workflow.Session {
	client := s.client.WithToken(token)
	opts := workflow.Options{
		ID:        uuid.NewString(),
		Searcher:  search.NewClient(client, s.cfg.SearchMinLength),
		Uploader:  upload.NewSubmitter(client),
		Confirmer: client,
		Debounce:  s.cfg.SearchDebounce,
	}
	if s.funds != nil {
		opts.Funds = s.funds.ForToken(token)
	}
	if s.recorder != nil {
		opts.Recorder = s.recorder
	}

	sess := workflow.NewSession(opts)
	s.sessions.Set(sess.ID(), sessionEntry{session: sess, token: token})
	log.Infof("upload session %s created", sess.ID())
	return sess
}

// Get returns a live session owned by token and restarts its idle timer.
func (s *SessionService) Get(id, token string) (*workflow.Session, error) {
	e, ok := s.sessions.Get(id)
	if !ok || e.token != token {
		return nil, ErrSessionNotFound
	}
	s.sessions.Touch(id)
	return e.session, nil
}

// Delete tears a session down.
func (s *SessionService) Delete(id, token string) error {
	if _, err := s.Get(id, token); err != nil {
		return err
	}
	e, ok := s.sessions.Delete(id)
	if !ok {
		return ErrSessionNotFound
	}
	e.session.Close()
	log.Infof("upload session %s closed", id)
	return nil
}

// Sweep closes sessions that have been idle for longer than the TTL.
func (s *SessionService) Sweep() int {
	expired := s.sessions.EvictExpired()
	for _, e := range expired {
		e.session.Close()
	}
	if len(expired) > 0 {
		log.Infof("closed %d idle upload sessions, %d still open", len(expired), s.Count())
	}
	return len(expired)
}

// Run sweeps idle sessions and stale fund lists every interval until ctx is
// done, then closes every remaining session.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return nil
		case <-ticker.C:
			s.Sweep()
			if s.funds != nil {
				s.funds.EvictExpired()
			}
		}
	}
}

// CloseAll closes every session.
func (s *SessionService) CloseAll() {
	for _, e := range s.sessions.Clear() {
		e.session.Close()
	}
}

// Attempts returns the journaled attempts of a session owned by token.
// Without a readable journal the list is empty.
func (s *SessionService) Attempts(ctx context.Context, id, token string) ([]models.AttemptRecord, error) {
	if _, err := s.Get(id, token); err != nil {
		return nil, err
	}
	lister, ok := s.recorder.(AttemptLister)
	if !ok {
		return []models.AttemptRecord{}, nil
	}
	records, err := lister.ListBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts for session %s: %w", id, err)
	}
	if records == nil {
		records = []models.AttemptRecord{}
	}
	return records, nil
}

// Count returns the number of tracked sessions.
func (s *SessionService) Count() int {
	return s.sessions.Len()
}
