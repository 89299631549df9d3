package main

import (
	"encoding/json"
	"testing"
	"time"

	"clapper/internal/testsupport"
)

func TestHistoryCommandDisabled(t *testing.T) {
	env := newCLITestEnv(t)
	env.cfg.Ledger.Enabled = false

	stdout, _, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, stdout, "Render history is disabled")
}

func TestHistoryCommandBeforeFirstRender(t *testing.T) {
	env := newCLITestEnv(t)

	stdout, _, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, stdout, "No render sessions recorded yet")

	stdout, _, err = env.run(t, "history", "jobs")
	if err != nil {
		t.Fatalf("history jobs: %v", err)
	}
	requireContains(t, stdout, "No render sessions recorded yet")
}

func TestHistoryCommandJSON(t *testing.T) {
	backend := newFakeProviders(t)
	env := newCLITestEnv(t, testsupport.WithActors(nativeActor("narrator")))
	env.pointProvidersAt(backend)
	env.writeScript(t, "demo", "<slide title=\"Intro\"/>\n\nHistory needs material.\n")

	if _, _, err := env.run(t, "render", "demo"); err != nil {
		t.Fatalf("render: %v", err)
	}

	stdout, _, err := env.run(t, "history", "--json")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var sessions []struct {
		ID             string `json:"id"`
		Project        string `json:"project"`
		Status         string `json:"status"`
		ScenesRendered int    `json:"scenes_rendered"`
		StartedAt      string `json:"started_at"`
		FinishedAt     string `json:"finished_at"`
	}
	if err := json.Unmarshal([]byte(stdout), &sessions); err != nil {
		t.Fatalf("decode sessions: %v\noutput: %s", err, stdout)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	session := sessions[0]
	if session.Project != "demo" || session.Status != "completed" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.ScenesRendered != 1 {
		t.Fatalf("scenes_rendered = %d", session.ScenesRendered)
	}
	if _, err := time.Parse(time.RFC3339, session.StartedAt); err != nil {
		t.Fatalf("started_at not RFC3339: %v", err)
	}
	if session.FinishedAt == "" {
		t.Fatalf("expected finished_at to be set")
	}

	stdout, _, err = env.run(t, "history", "jobs", session.ID, "--json")
	if err != nil {
		t.Fatalf("history jobs: %v", err)
	}
	var jobs []struct {
		SessionID string `json:"session_id"`
		Provider  string `json:"provider"`
		Kind      string `json:"kind"`
		Actor     string `json:"actor"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal([]byte(stdout), &jobs); err != nil {
		t.Fatalf("decode jobs: %v\noutput: %s", err, stdout)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job for a native scene, got %d", len(jobs))
	}
	job := jobs[0]
	if job.SessionID != session.ID {
		t.Fatalf("job session %q does not match %q", job.SessionID, session.ID)
	}
	if job.Provider != "heygen" || job.Kind != "avatar-video" || job.Status != "succeeded" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Actor != "narrator" {
		t.Fatalf("job actor = %q", job.Actor)
	}
}
