package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"clapper/internal/config"
	"clapper/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckElevenLabs_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.ElevenLabs.APIKey = "good-key"
	cfg.ElevenLabs.BaseURL = srv.URL

	result := CheckElevenLabs(context.Background(), &cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckElevenLabs_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.ElevenLabs.APIKey = "bad-key"
	cfg.ElevenLabs.BaseURL = srv.URL

	result := CheckElevenLabs(context.Background(), &cfg)
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckElevenLabs_MissingKey(t *testing.T) {
	cfg := config.Default()
	result := CheckElevenLabs(context.Background(), &cfg)
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckHeyGen_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/user/remaining_quota" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Api-Key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.HeyGen.APIKey = "good-key"
	cfg.HeyGen.APIBaseURL = srv.URL
	cfg.HeyGen.UploadBaseURL = srv.URL

	result := CheckHeyGen(context.Background(), &cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckHeyGen_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.HeyGen.APIKey = "bad-key"
	cfg.HeyGen.APIBaseURL = srv.URL
	cfg.HeyGen.UploadBaseURL = srv.URL

	result := CheckHeyGen(context.Background(), &cfg)
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_SkipsProvidersWithoutCast(t *testing.T) {
	testsupport.StubBinaries(t)
	cfg := config.Default()
	cfg.Paths.ProjectsDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()

	results := RunAll(context.Background(), &cfg)
	for _, r := range results {
		if r.Name == "ElevenLabs" || r.Name == "HeyGen" {
			t.Fatalf("provider check %q ran without a configured cast", r.Name)
		}
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	// Projects dir, log dir, ffmpeg, ffprobe
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
}

func TestRunAll_IncludesProvidersWhenCastNeedsThem(t *testing.T) {
	testsupport.StubBinaries(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.ProjectsDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Actors = []config.Actor{
		{Name: "alice", AudioProvider: "elevenlabs", VoiceID: "v", AvatarID: "a"},
	}
	cfg.ElevenLabs.APIKey = "key"
	cfg.ElevenLabs.BaseURL = srv.URL
	cfg.HeyGen.APIKey = "key"
	cfg.HeyGen.APIBaseURL = srv.URL
	cfg.HeyGen.UploadBaseURL = srv.URL

	results := RunAll(context.Background(), &cfg)
	found := map[string]bool{}
	for _, r := range results {
		found[r.Name] = true
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if !found["ElevenLabs"] || !found["HeyGen"] {
		t.Fatalf("expected provider checks in results, got %v", found)
	}
}

func TestCheckNtfy_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckNtfy(context.Background(), srv.URL+"/clapper-test")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckNtfyFromConfig_Disabled(t *testing.T) {
	cfg := config.Default()
	result := CheckNtfyFromConfig(&cfg)
	if !result.Passed || result.Detail != "Disabled" {
		t.Fatalf("expected passing Disabled result, got %+v", result)
	}
}

func TestCheckLedgerFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Enabled = false
	if result := CheckLedgerFromConfig(&cfg); !result.Passed || result.Detail != "Disabled" {
		t.Fatalf("disabled ledger: %+v", result)
	}

	cfg.Ledger.Enabled = true
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "history.db")
	if result := CheckLedgerFromConfig(&cfg); !result.Passed {
		t.Fatalf("missing db should still pass: %+v", result)
	}

	if err := os.WriteFile(cfg.Ledger.Path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckLedgerFromConfig(&cfg); !result.Passed || result.Detail != cfg.Ledger.Path {
		t.Fatalf("existing db: %+v", result)
	}
}
