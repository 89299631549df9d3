package main

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNotifyTestCommandPublishes(t *testing.T) {
	var posts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	env := newCLITestEnv(t)
	env.cfg.Notifications.NtfyTopic = srv.URL + "/clapper-test"

	stdout, _, err := env.run(t, "notify", "test")
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, stdout, "Test notification sent")
	if posts.Load() != 1 {
		t.Fatalf("posts = %d, want 1", posts.Load())
	}
}

func TestNotifyTestCommandDisabled(t *testing.T) {
	env := newCLITestEnv(t)

	stdout, _, err := env.run(t, "notify", "test")
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, stdout, "Notifications are disabled")
}

func TestNotifyTestCommandReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	env := newCLITestEnv(t)
	env.cfg.Notifications.NtfyTopic = srv.URL + "/denied"

	_, _, err := env.run(t, "notify", "test")
	if err == nil {
		t.Fatal("expected publish error")
	}
	requireContains(t, err.Error(), "403")
}
