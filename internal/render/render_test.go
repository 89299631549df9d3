package render_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"clapper/internal/actors"
	"clapper/internal/config"
	"clapper/internal/jobpoll"
	"clapper/internal/media/ffmpeg"
	"clapper/internal/render"
	"clapper/internal/rendercache"
	"clapper/internal/script"
	"clapper/internal/services"
	"clapper/internal/services/elevenlabs"
	"clapper/internal/services/heygen"
	"clapper/internal/testsupport"
)

// fakeSpeech counts synthesis calls and returns a fixed payload.
type fakeSpeech struct {
	calls int
	err   error
}

func (f *fakeSpeech) Synthesize(ctx context.Context, req elevenlabs.Request) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("audio-" + req.VoiceID), nil
}

// fakeVideo serves the avatar API surface with canned outcomes. Downloads
// write a small file so validation and composition have bytes to work with.
type fakeVideo struct {
	uploads   int
	generates int
	statuses  int
	downloads int

	generateErr      error
	failGenerateCall int // 0 means every call once generateErr is set
	status           heygen.StatusResponse
	downloadErr      error
}

func (f *fakeVideo) UploadAudioAsset(ctx context.Context, path string) (string, error) {
	f.uploads++
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("uploading missing audio: %w", err)
	}
	return fmt.Sprintf("asset-%d", f.uploads), nil
}

func (f *fakeVideo) GenerateVideo(ctx context.Context, req heygen.GenerateRequest) (string, error) {
	f.generates++
	if f.generateErr != nil && (f.failGenerateCall == 0 || f.failGenerateCall == f.generates) {
		return "", f.generateErr
	}
	return fmt.Sprintf("video-%d", f.generates), nil
}

func (f *fakeVideo) VideoStatus(ctx context.Context, videoID string) (heygen.StatusResponse, error) {
	f.statuses++
	if f.status.Status != "" {
		return f.status, nil
	}
	return heygen.StatusResponse{Status: "completed", VideoURL: "https://cdn.example/" + videoID + ".mp4"}, nil
}

func (f *fakeVideo) Download(ctx context.Context, url, dest string) error {
	f.downloads++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return os.WriteFile(dest, []byte("clip"), 0o644)
}

// harness wires a render dependency set against fakes, stubbed ffmpeg and
// ffprobe binaries, and a real cache store in a temp project dir.
type harness struct {
	projectDir string
	cfg        *config.Config
	cache      *rendercache.Store
	speech     *fakeSpeech
	video      *fakeVideo
	deps       render.Deps
}

// Default cast: a native-voice narrator and an external-speech actor.
func defaultCast() []config.Actor {
	return []config.Actor{
		{Name: "narrator", AudioProvider: "heygen", VoiceID: "voice-n", AvatarID: "avatar-n"},
		{Name: "alice", AudioProvider: "elevenlabs", VoiceID: "voice-a", SpeechModel: "model-a", AvatarID: "avatar-a"},
	}
}

func newHarness(t *testing.T, rows ...config.Actor) *harness {
	t.Helper()

	testsupport.StubBinaries(t)
	if len(rows) == 0 {
		rows = defaultCast()
	}
	cfg := testsupport.NewConfig(t, testsupport.WithActors(rows...))
	set, err := actors.NewSet(cfg)
	if err != nil {
		t.Fatalf("actors.NewSet: %v", err)
	}

	projectDir := t.TempDir()
	cache := rendercache.NewStore(projectDir, nil)
	speech := &fakeSpeech{}
	video := &fakeVideo{}

	return &harness{
		projectDir: projectDir,
		cfg:        cfg,
		cache:      cache,
		speech:     speech,
		video:      video,
		deps: render.Deps{
			Cache:      cache,
			Actors:     set,
			Speech:     speech,
			Video:      video,
			Compositor: ffmpeg.NewCompositor(ffmpeg.Options{}, nil),
			Poller:     jobpoll.New(time.Millisecond, 5, nil),
		},
	}
}

func parseScene(t *testing.T, source string) *script.Scene {
	t.Helper()

	doc := testsupport.ParseScript(t, source)
	if len(doc.Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(doc.Scenes))
	}
	return doc.Scenes[0]
}

func mustExist(t *testing.T, path string) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected artifact at %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected nonempty artifact at %s", path)
	}
}

func providerRequestErr(detail string) error {
	return services.Wrap(services.ErrProviderRequest, "heygen", "generate", detail, nil)
}

// writeLastArg satisfies a compositor invocation by creating its output,
// which is always the trailing argument.
func writeLastArg(args []string) error {
	return os.WriteFile(args[len(args)-1], []byte("x"), 0o644)
}
