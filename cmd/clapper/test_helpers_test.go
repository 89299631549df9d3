package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clapper/internal/config"
	"clapper/internal/testsupport"
)

// cliTestEnv is a full on-disk environment for command invocations: a config
// file, the directories it references, and stub ffmpeg/ffprobe binaries on
// PATH.
type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

// newCLITestEnv prepares an isolated environment. HOME is redirected so
// default-path resolution never touches the real home, and the provider env
// fallbacks are neutralized. Tests mutate env.cfg freely; env.run serializes
// it before every invocation.
func newCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("HEYGEN_API_KEY", "")
	t.Setenv("NTFY_TOPIC", "")

	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(homeDir, ".config", "clapper", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

// run serializes the current config and executes one CLI invocation.
func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	writeTestConfig(t, env.configPath, env.cfg)
	return runCLI(t, args, env.configPath)
}

// pointProvidersAt routes every provider base URL at the fake backend.
func (env *cliTestEnv) pointProvidersAt(backend *fakeProviders) {
	env.cfg.ElevenLabs.BaseURL = backend.server.URL
	env.cfg.HeyGen.APIBaseURL = backend.server.URL
	env.cfg.HeyGen.UploadBaseURL = backend.server.URL
}

// writeScript creates the project directory holding the given script text and
// returns the project directory.
func (env *cliTestEnv) writeScript(t *testing.T, project, content string) string {
	t.Helper()
	dir := filepath.Join(env.cfg.Paths.ProjectsDir, project)
	testsupport.WriteFile(t, filepath.Join(dir, "script.txt"), content)
	return dir
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	payload, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func nativeActor(name string) config.Actor {
	return config.Actor{
		Name:     name,
		VoiceID:  "voice-" + name,
		AvatarID: "avatar-" + name,
		Speed:    1.0,
	}
}

func externalActor(name string) config.Actor {
	return config.Actor{
		Name:          name,
		AudioProvider: "elevenlabs",
		VoiceID:       "voice-" + name,
		SpeechModel:   "model-" + name,
		AvatarID:      "avatar-" + name,
		Speed:         1.0,
	}
}

// fakeProviders serves both provider APIs and clip downloads from a single
// httptest server; point every base URL at server.URL. Generated jobs report
// completed on the first status poll so tests never wait out a poll interval.
// A generate request whose text contains "FAILME" yields a job that reports
// failed instead.
type fakeProviders struct {
	server *httptest.Server

	speechCalls   atomic.Int64
	uploadCalls   atomic.Int64
	generateCalls atomic.Int64
	downloadCalls atomic.Int64
}

func newFakeProviders(t *testing.T) *fakeProviders {
	t.Helper()

	f := &fakeProviders{}
	var videoSeq atomic.Int64

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case r.Method == http.MethodGet && path == "/v1/user":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && path == "/v2/user/remaining_quota":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && strings.HasPrefix(path, "/v1/text-to-speech/"):
			f.speechCalls.Add(1)
			w.Header().Set("Content-Type", "audio/mpeg")
			fmt.Fprintf(w, "mp3:%s", strings.TrimPrefix(path, "/v1/text-to-speech/"))
		case r.Method == http.MethodPost && path == "/v1/asset":
			f.uploadCalls.Add(1)
			_, _ = io.Copy(io.Discard, r.Body)
			fmt.Fprintf(w, `{"data":{"asset_id":"asset-%d"}}`, f.uploadCalls.Load())
		case r.Method == http.MethodPost && path == "/v2/video/generate":
			f.generateCalls.Add(1)
			body, _ := io.ReadAll(r.Body)
			prefix := "vid"
			if bytes.Contains(body, []byte("FAILME")) {
				prefix = "doomed"
			}
			fmt.Fprintf(w, `{"data":{"video_id":"%s-%d"}}`, prefix, videoSeq.Add(1))
		case r.Method == http.MethodGet && path == "/v1/video_status.get":
			videoID := r.URL.Query().Get("video_id")
			if strings.HasPrefix(videoID, "doomed-") {
				fmt.Fprint(w, `{"data":{"status":"failed","error":"avatar render failed"}}`)
				return
			}
			fmt.Fprintf(w, `{"data":{"status":"completed","video_url":"http://%s/clips/%s.mp4"}}`, r.Host, videoID)
		case r.Method == http.MethodGet && strings.HasPrefix(path, "/clips/"):
			f.downloadCalls.Add(1)
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("clip-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}
