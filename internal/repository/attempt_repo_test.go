package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/epeers/mftracker/internal/database"
	"github.com/epeers/mftracker/internal/models"
	"github.com/google/uuid"
)

var testDB *database.DB

func TestMain(m *testing.M) {
	pgURL := os.Getenv("PG_URL")
	if pgURL == "" {
		fmt.Println("PG_URL environment variable not set, skipping integration tests")
		os.Exit(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.New(ctx, pgURL)
	if err != nil {
		cancel()
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		db.Close()
		fmt.Printf("Failed to apply schema: %v\n", err)
		os.Exit(1)
	}
	cancel()
	testDB = db

	code := m.Run()
	db.Close()
	os.Exit(code)
}

func TestAttemptRepository_RecordAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewAttemptRepository(testDB.Pool)
	sessionID := "test-" + uuid.NewString()
	defer testDB.Pool.Exec(ctx, `DELETE FROM fact_upload_attempts WHERE session_id = $1`, sessionID)

	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	records := []models.AttemptRecord{
		{SessionID: sessionID, SchemeCode: "118955", FileName: "hdfc.xlsx", Outcome: models.AttemptOverrideCanceled, Detail: "Names differ", CreatedAt: base},
		{SessionID: sessionID, SchemeCode: "118955", FileName: "hdfc.xlsx", Outcome: models.AttemptSucceeded, CreatedAt: base.Add(time.Minute)},
	}
	for _, rec := range records {
		if err := repo.RecordAttempt(ctx, rec); err != nil {
			t.Fatalf("failed to record attempt: %v", err)
		}
	}

	got, err := repo.ListBySession(ctx, sessionID)
	if err != nil {
		t.Fatalf("failed to list attempts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(got))
	}
	if got[0].Outcome != models.AttemptOverrideCanceled || got[0].Detail != "Names differ" {
		t.Errorf("unexpected first attempt %+v", got[0])
	}
	if got[1].Outcome != models.AttemptSucceeded || !got[1].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("unexpected second attempt %+v", got[1])
	}
	if got[0].ID == 0 {
		t.Error("expected database-assigned id")
	}
}
