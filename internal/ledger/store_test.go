package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"clapper/internal/ledger"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpenAppliesMigrations(t *testing.T) {
	store := openStore(t)

	ctx := context.Background()
	session, err := store.StartSession(ctx, "demo", "abc123", "avatar", 3)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected session id to be assigned")
	}
	if session.Status != ledger.SessionRunning {
		t.Fatalf("expected running status, got %s", session.Status)
	}
	if session.ScenesTotal != 3 {
		t.Fatalf("unexpected scenes total: %d", session.ScenesTotal)
	}
	if session.StartedAt.IsZero() {
		t.Fatal("expected started_at to be set")
	}
	if session.FinishedAt != nil {
		t.Fatal("running session must not carry a finish time")
	}

	fetched, err := store.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if fetched == nil || fetched.Project != "demo" || fetched.ScriptDigest != "abc123" {
		t.Fatalf("unexpected fetched session: %#v", fetched)
	}
}

func TestSessionReturnsNilWhenAbsent(t *testing.T) {
	store := openStore(t)
	session, err := store.Session(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil for unknown session, got %#v", session)
	}
}

func TestFinishSession(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session, err := store.StartSession(ctx, "demo", "abc123", "avatar", 4)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	totals := ledger.SessionTotals{ScenesRendered: 2, ScenesCached: 1, ScenesFailed: 1, ParagraphsDropped: 3}
	if err := store.FinishSession(ctx, session.ID, ledger.SessionFailed, totals, "scene 4 failed"); err != nil {
		t.Fatalf("FinishSession failed: %v", err)
	}

	finished, err := store.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if finished.Status != ledger.SessionFailed {
		t.Fatalf("expected failed status, got %s", finished.Status)
	}
	if finished.ScenesRendered != 2 || finished.ScenesCached != 1 || finished.ScenesFailed != 1 {
		t.Fatalf("unexpected totals: %#v", finished)
	}
	if finished.ParagraphsDropped != 3 {
		t.Fatalf("unexpected dropped count: %d", finished.ParagraphsDropped)
	}
	if finished.ErrorMessage != "scene 4 failed" {
		t.Fatalf("unexpected error message: %q", finished.ErrorMessage)
	}
	if finished.FinishedAt == nil || finished.FinishedAt.Before(finished.StartedAt) {
		t.Fatalf("unexpected finish time: %v", finished.FinishedAt)
	}
}

func TestFinishSessionUnknownID(t *testing.T) {
	store := openStore(t)
	err := store.FinishSession(context.Background(), "missing", ledger.SessionCompleted, ledger.SessionTotals{}, "")
	if err == nil {
		t.Fatal("expected error finishing unknown session")
	}
}

func TestRecordAndListJobs(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session, err := store.StartSession(ctx, "demo", "abc123", "avatar", 1)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	jobs := []ledger.Job{
		{
			SessionID:       session.ID,
			Provider:        ledger.ProviderElevenLabs,
			Kind:            ledger.KindSpeech,
			SceneDigest:     "scene-1",
			ParagraphDigest: "para-1",
			Actor:           "narrator",
			Status:          ledger.JobSucceeded,
			Duration:        1500 * time.Millisecond,
		},
		{
			SessionID:       session.ID,
			Provider:        ledger.ProviderHeyGen,
			Kind:            ledger.KindAvatarVideo,
			SceneDigest:     "scene-1",
			ParagraphDigest: "para-1",
			Actor:           "narrator",
			Reference:       "video-42",
			Status:          ledger.JobTimeout,
			Attempts:        100,
			ErrorMessage:    "polling exhausted",
		},
	}
	for _, job := range jobs {
		if err := store.RecordJob(ctx, job); err != nil {
			t.Fatalf("RecordJob failed: %v", err)
		}
	}

	recorded, err := store.SessionJobs(ctx, session.ID)
	if err != nil {
		t.Fatalf("SessionJobs failed: %v", err)
	}
	if len(recorded) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(recorded))
	}
	if recorded[0].Provider != ledger.ProviderElevenLabs || recorded[0].Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected first job: %#v", recorded[0])
	}
	if recorded[1].Reference != "video-42" || recorded[1].Attempts != 100 {
		t.Fatalf("unexpected second job: %#v", recorded[1])
	}
	if recorded[1].ErrorMessage != "polling exhausted" {
		t.Fatalf("unexpected job error message: %q", recorded[1].ErrorMessage)
	}

	recent, err := store.RecentJobs(ctx, 1)
	if err != nil {
		t.Fatalf("RecentJobs failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Kind != ledger.KindAvatarVideo {
		t.Fatalf("expected newest job first, got %#v", recent)
	}
}

func TestRecordJobRequiresSession(t *testing.T) {
	store := openStore(t)
	err := store.RecordJob(context.Background(), ledger.Job{Provider: ledger.ProviderHeyGen})
	if err == nil {
		t.Fatal("expected error for job without session id")
	}
}

func TestRecentSessionsOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.StartSession(ctx, "demo", "d1", "avatar", 1)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	// Session ordering comes from started_at; keep the stamps distinct.
	time.Sleep(2 * time.Millisecond)
	second, err := store.StartSession(ctx, "demo", "d2", "slides", 1)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	sessions, err := store.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != second.ID || sessions[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", sessions[0].ID, sessions[1].ID)
	}
	if sessions[0].Mode != "slides" {
		t.Fatalf("unexpected mode: %s", sessions[0].Mode)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := ledger.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
