package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/epeers/mftracker/internal/backend"
	"github.com/epeers/mftracker/internal/models"
	"github.com/epeers/mftracker/internal/upload"
	"github.com/epeers/mftracker/internal/workflow"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, 5*time.Second, 0)
}

func TestFundService_CachesPerToken(t *testing.T) {
	var calls atomic.Int32
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") == "Bearer alice" {
			w.Write([]byte(`[{"id":"f1","fund_name":"HDFC Flexi Cap"}]`))
			return
		}
		w.Write([]byte(`[]`))
	})
	svc := NewFundService(client, time.Minute)

	funds, err := svc.ListFunds(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(funds) != 1 {
		t.Fatalf("expected 1 fund, got %d", len(funds))
	}
	if _, err := svc.ListFunds(context.Background(), "alice"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected cached second call, got %d backend calls", calls.Load())
	}

	funds, err = svc.ListFunds(context.Background(), "bob")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(funds) != 0 {
		t.Errorf("expected bob to get his own list, got %d funds", len(funds))
	}
}

func TestFundService_CoalescesConcurrentRefreshes(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"funds":[]}`))
	})
	svc := NewFundService(client, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RefreshFunds(context.Background(), "alice"); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected 1 coalesced backend call, got %d", calls.Load())
	}
}

func TestHoldingsService_Success(t *testing.T) {
	var listed atomic.Int32
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/funds/f1/holdings":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("expected multipart body: %v", err)
			}
			if _, hdr, err := r.FormFile("file"); err != nil || hdr.Filename != "new.xlsx" {
				t.Errorf("expected file part new.xlsx, got %v", err)
			}
			w.Write([]byte(`{"count":37}`))
		case r.URL.Path == "/funds/":
			listed.Add(1)
			w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	funds := NewFundService(client, time.Minute)
	svc := NewHoldingsService(client, funds)

	msg, err := svc.RefreshHoldings(context.Background(), "alice", "f1", models.UploadFile{Name: "new.xlsx", Content: []byte("x")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if msg != "Holdings updated: 37 stocks" {
		t.Errorf("unexpected message %q", msg)
	}
	if listed.Load() != 1 {
		t.Errorf("expected fund list refreshed once, got %d", listed.Load())
	}
}

func TestHoldingsService_Errors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error in body", http.StatusOK, `{"error":"fund is locked"}`, "fund is locked"},
		{"server detail", http.StatusBadRequest, `{"detail":"Could not read Excel"}`, "Could not read Excel"},
		{"no detail", http.StatusInternalServerError, `oops`, MsgHoldingsRefreshFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/funds/" {
					t.Error("fund list must not refresh after a failure")
				}
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			svc := NewHoldingsService(client, NewFundService(client, time.Minute))

			_, err := svc.RefreshHoldings(context.Background(), "alice", "f1", models.UploadFile{Name: "a.xls"})
			var herr *HoldingsError
			if !errors.As(err, &herr) {
				t.Fatalf("expected HoldingsError, got %T: %v", err, err)
			}
			if herr.Message != tc.message {
				t.Errorf("expected %q, got %q", tc.message, herr.Message)
			}
		})
	}
}

func TestHoldingsService_RejectsNonExcelWithoutNetwork(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	svc := NewHoldingsService(client, nil)

	_, err := svc.RefreshHoldings(context.Background(), "alice", "f1", models.UploadFile{Name: "a.csv"})
	if !errors.Is(err, models.ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestHoldingsService_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	svc := NewHoldingsService(backend.NewClient(url, time.Second, 0), nil)

	_, err := svc.RefreshHoldings(context.Background(), "alice", "f1", models.UploadFile{Name: "a.xlsx"})
	if err == nil || err.Error() != upload.MsgCannotReachServer {
		t.Errorf("expected connectivity message, got %v", err)
	}
}

func TestSessionService_OwnershipAndLifecycle(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	svc := NewSessionService(client, nil, nil, SessionConfig{TTL: time.Minute, SearchDebounce: time.Millisecond, SearchMinLength: 2})

	sess := svc.Create("alice")
	if sess.ID() == "" {
		t.Fatal("expected a session id")
	}
	if got, err := svc.Get(sess.ID(), "alice"); err != nil || got != sess {
		t.Fatalf("expected to get the session back, got %v", err)
	}
	if _, err := svc.Get(sess.ID(), "mallory"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for another token, got %v", err)
	}
	if err := svc.Delete(sess.ID(), "mallory"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected delete by another token to fail, got %v", err)
	}

	if err := svc.Delete(sess.ID(), "alice"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := sess.SetQuery("HDFC"); !errors.Is(err, workflow.ErrClosed) {
		t.Errorf("expected deleted session to be closed, got %v", err)
	}
	if _, err := svc.Get(sess.ID(), "alice"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected deleted session to be gone, got %v", err)
	}
}

func TestSessionService_SweepClosesIdleSessions(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	svc := NewSessionService(client, nil, nil, SessionConfig{TTL: 5 * time.Millisecond, SearchMinLength: 2})

	sess := svc.Create("alice")
	time.Sleep(20 * time.Millisecond)

	if n := svc.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept session, got %d", n)
	}
	if svc.Count() != 0 {
		t.Errorf("expected no sessions left, got %d", svc.Count())
	}
	if _, err := sess.Submit(context.Background()); !errors.Is(err, workflow.ErrClosed) {
		t.Errorf("expected swept session to be closed, got %v", err)
	}
}

func TestSessionService_RunClosesAllOnShutdown(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	svc := NewSessionService(client, nil, nil, SessionConfig{TTL: time.Hour, SearchMinLength: 2})
	sess := svc.Create("alice")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- svc.Run(ctx, time.Hour) }()
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if _, err := sess.Reset(); !errors.Is(err, workflow.ErrClosed) {
		t.Errorf("expected session closed on shutdown, got %v", err)
	}
}

type listJournal struct {
	records []models.AttemptRecord
	err     error
}

func (j *listJournal) RecordAttempt(ctx context.Context, rec models.AttemptRecord) error {
	j.records = append(j.records, rec)
	return nil
}

func (j *listJournal) ListBySession(ctx context.Context, sessionID string) ([]models.AttemptRecord, error) {
	if j.err != nil {
		return nil, j.err
	}
	var out []models.AttemptRecord
	for _, rec := range j.records {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestSessionService_Attempts(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	journal := &listJournal{}
	svc := NewSessionService(client, nil, journal, SessionConfig{TTL: time.Minute, SearchMinLength: 2})
	defer svc.CloseAll()

	sess := svc.Create("alice")
	journal.records = []models.AttemptRecord{
		{SessionID: sess.ID(), Outcome: models.AttemptFailed},
		{SessionID: "other", Outcome: models.AttemptSucceeded},
	}

	got, err := svc.Attempts(context.Background(), sess.ID(), "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0].Outcome != models.AttemptFailed {
		t.Errorf("expected only this session's attempt, got %+v", got)
	}
	if _, err := svc.Attempts(context.Background(), sess.ID(), "mallory"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for another token, got %v", err)
	}

	journal.err = errors.New("connection refused")
	if _, err := svc.Attempts(context.Background(), sess.ID(), "alice"); err == nil || !errors.Is(err, journal.err) {
		t.Errorf("expected wrapped journal error, got %v", err)
	}
}

func TestSessionService_AttemptsWithoutJournal(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	svc := NewSessionService(client, nil, nil, SessionConfig{TTL: time.Minute, SearchMinLength: 2})
	defer svc.CloseAll()

	sess := svc.Create("alice")
	got, err := svc.Attempts(context.Background(), sess.ID(), "alice")
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %v (%v)", got, err)
	}
}
