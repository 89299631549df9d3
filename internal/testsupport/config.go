package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clapper/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.ElevenLabs.APIKey = "test"
	cfgVal.HeyGen.APIKey = "test"
	cfgVal.Paths.ProjectsDir = filepath.Join(base, "projects")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Ledger.Path = filepath.Join(base, "history.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithActors replaces the configured cast.
func WithActors(rows ...config.Actor) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Actors = rows
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		StubBinaries(b.t, names...)
	}
}

// probeReport is the canned ffprobe JSON the stub prints for any input: one
// video stream, one audio stream, positive duration.
const probeReport = `{"streams":[{"index":0,"codec_name":"h264","codec_type":"video","width":1280,"height":720},{"index":1,"codec_name":"mp3","codec_type":"audio","sample_rate":"44100","channels":2}],"format":{"filename":"stub","format_name":"mp4","duration":"2.400000"}}`

// StubBinaries writes stub executables into a fresh temp dir and prepends it
// to PATH for the remainder of the test. The ffprobe stub reports a healthy
// clip; the ffmpeg stub creates its output file, which real invocations pass
// as the final argument. Other names exit zero silently. Returns the bin
// directory.
func StubBinaries(t testing.TB, names ...string) string {
	t.Helper()

	if len(names) == 0 {
		names = []string{"ffmpeg", "ffprobe"}
	}
	binDir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	for _, name := range names {
		script := "#!/bin/sh\nexit 0\n"
		switch name {
		case "ffprobe":
			script = "#!/bin/sh\nprintf '%s' '" + probeReport + "'\n"
		case "ffmpeg":
			script = "#!/bin/sh\nfor last; do :; done\nprintf x > \"$last\"\n"
		}
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
	return binDir
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ProjectsDir)
}
