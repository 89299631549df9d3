package rendercache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clapper/internal/script"
)

func testScene(t *testing.T) *script.Scene {
	t.Helper()
	return &script.Scene{
		Paragraphs: []script.Paragraph{
			script.NewParagraph("narrator", "Welcome to the show."),
			script.NewParagraph("Alice", "Glad to be here."),
		},
	}
}

func stageArtifact(t *testing.T, store *Store, entry Entry, payload string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(entry.Path), 0o755); err != nil {
		t.Fatalf("prepare dir: %v", err)
	}
	staged := store.StagingPath(entry)
	if err := os.WriteFile(staged, []byte(payload), 0o644); err != nil {
		t.Fatalf("write staged artifact: %v", err)
	}
	return staged
}

func TestEntryAddressing(t *testing.T) {
	projectDir := t.TempDir()
	store := NewStore(projectDir, nil)
	scene := testScene(t)

	if store.Root() != filepath.Join(projectDir, "cache") {
		t.Fatalf("unexpected cache root: %s", store.Root())
	}

	final := store.SceneFinal(scene)
	wantDir := filepath.Join(store.Root(), "scene_"+scene.Digest())
	if final.Path != filepath.Join(wantDir, "scene.mp4") {
		t.Errorf("unexpected scene-final path: %s", final.Path)
	}
	if final.Tier != TierSceneFinal || final.Key != scene.Digest() {
		t.Errorf("unexpected scene-final identity: %+v", final)
	}

	audio := store.SceneAudio(scene)
	if audio.Path != filepath.Join(wantDir, "scene_audio_complete.mp3") {
		t.Errorf("unexpected scene-audio path: %s", audio.Path)
	}

	paragraph := scene.Paragraphs[1]
	pv := store.ParagraphVideo(scene, paragraph)
	if filepath.Dir(pv.Path) != wantDir {
		t.Errorf("paragraph artifacts must live in the scene dir, got %s", pv.Path)
	}
	wantName := "alice_" + paragraph.Digest() + ".mp4"
	if filepath.Base(pv.Path) != wantName {
		t.Errorf("unexpected paragraph video name: %s want %s", filepath.Base(pv.Path), wantName)
	}
	if pv.Key != paragraph.Actor+"/"+paragraph.Digest() {
		t.Errorf("unexpected paragraph key: %s", pv.Key)
	}
	pa := store.ParagraphAudio(scene, paragraph)
	if !strings.HasSuffix(pa.Path, ".mp3") {
		t.Errorf("unexpected paragraph audio extension: %s", pa.Path)
	}
}

func TestStagingPathIsSibling(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	entry := store.SceneFinal(scene)

	staged := store.StagingPath(entry)
	if filepath.Dir(staged) != filepath.Dir(entry.Path) {
		t.Errorf("staging path must share the entry's directory: %s", staged)
	}
	if !strings.Contains(staged, ".staging.") {
		t.Errorf("staging path missing infix: %s", staged)
	}
	if staged == entry.Path {
		t.Error("staging path must differ from the entry path")
	}
}

func TestPublishThenPresent(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	entry := store.SceneFinal(scene)
	producer := Producer{Name: "compositor", Stamp: "pad-1280x720"}

	staged := stageArtifact(t, store, entry, "video bytes")
	if err := store.Publish(entry, staged, producer); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged file should be gone after publish")
	}
	payload, err := os.ReadFile(entry.Path)
	if err != nil || string(payload) != "video bytes" {
		t.Fatalf("artifact not moved into place: %v", err)
	}
	if !store.Present(entry, producer) {
		t.Fatal("expected published entry to be present")
	}

	manifest, found, err := LoadManifest(entry)
	if err != nil || !found {
		t.Fatalf("LoadManifest: found=%v err=%v", found, err)
	}
	if manifest.Tier != TierSceneFinal || manifest.Key != scene.Digest() {
		t.Errorf("manifest identity mismatch: %+v", manifest)
	}
	if manifest.Producer != "compositor" || manifest.Stamp != "pad-1280x720" {
		t.Errorf("manifest producer mismatch: %+v", manifest)
	}
	if manifest.CreatedAt.IsZero() {
		t.Error("manifest missing creation time")
	}
}

func TestPresentRejectsBareArtifact(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	entry := store.SceneFinal(scene)

	// Bytes on disk without a manifest sidecar. A crash between artifact
	// rename and manifest write leaves exactly this state.
	if err := os.MkdirAll(filepath.Dir(entry.Path), 0o755); err != nil {
		t.Fatalf("prepare dir: %v", err)
	}
	if err := os.WriteFile(entry.Path, []byte("orphan"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	if store.Present(entry, Producer{Name: "compositor"}) {
		t.Fatal("artifact without manifest must not be trusted")
	}
}

func TestPresentRejectsProducerChange(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	entry := store.SceneFinal(scene)

	staged := stageArtifact(t, store, entry, "video bytes")
	if err := store.Publish(entry, staged, Producer{Name: "compositor", Stamp: "pad-1280x720"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if store.Present(entry, Producer{Name: "compositor", Stamp: "stretch-1280x720"}) {
		t.Fatal("stamp change must invalidate the cached entry")
	}
	if store.Present(entry, Producer{Name: "slide", Stamp: "pad-1280x720"}) {
		t.Fatal("producer change must invalidate the cached entry")
	}
}

func TestPresentRejectsIdentityMismatch(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	entry := store.ParagraphAudio(scene, scene.Paragraphs[0])
	producer := Producer{Name: "elevenlabs", Stamp: "model-x"}

	staged := stageArtifact(t, store, entry, "audio bytes")
	if err := store.Publish(entry, staged, producer); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Same bytes addressed under a different key must read as absent.
	imposter := Entry{Tier: entry.Tier, Key: "other/deadbeef", Path: entry.Path}
	if store.Present(imposter, producer) {
		t.Fatal("manifest key mismatch must not be trusted")
	}
	crossTier := Entry{Tier: TierParagraphVideo, Key: entry.Key, Path: entry.Path}
	if store.Present(crossTier, producer) {
		t.Fatal("manifest tier mismatch must not be trusted")
	}
}

func TestPresentRejectsCorruptManifest(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	entry := store.SceneFinal(scene)
	producer := Producer{Name: "compositor"}

	staged := stageArtifact(t, store, entry, "video bytes")
	if err := store.Publish(entry, staged, producer); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := os.WriteFile(entry.ManifestPath(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}

	if store.Present(entry, producer) {
		t.Fatal("corrupt manifest must not be trusted")
	}
}

func TestSceneAudioPresentDerivedCheck(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	complete := Producer{Name: "audio-concat"}
	paragraphProducers := map[string]Producer{
		"narrator": {Name: "elevenlabs", Stamp: "voice-a"},
		"alice":    {Name: "elevenlabs", Stamp: "voice-b"},
	}

	publish := func(entry Entry, producer Producer) {
		t.Helper()
		staged := stageArtifact(t, store, entry, "bytes")
		if err := store.Publish(entry, staged, producer); err != nil {
			t.Fatalf("Publish %s: %v", entry.Tier, err)
		}
	}

	publish(store.SceneAudio(scene), complete)
	if store.SceneAudioPresent(scene, complete, paragraphProducers) {
		t.Fatal("derived check must fail while paragraph audio is missing")
	}

	publish(store.ParagraphAudio(scene, scene.Paragraphs[0]), paragraphProducers["narrator"])
	publish(store.ParagraphAudio(scene, scene.Paragraphs[1]), paragraphProducers["alice"])
	if !store.SceneAudioPresent(scene, complete, paragraphProducers) {
		t.Fatal("expected derived check to pass with all constituents published")
	}

	// Dropping one constituent's manifest invalidates the whole.
	if err := os.Remove(store.ParagraphAudio(scene, scene.Paragraphs[1]).ManifestPath()); err != nil {
		t.Fatalf("remove manifest: %v", err)
	}
	if store.SceneAudioPresent(scene, complete, paragraphProducers) {
		t.Fatal("derived check must fail after a constituent manifest disappears")
	}
}

func TestSceneAudioPresentUnknownActor(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	complete := Producer{Name: "audio-concat"}

	publish := func(entry Entry, producer Producer) {
		t.Helper()
		staged := stageArtifact(t, store, entry, "bytes")
		if err := store.Publish(entry, staged, producer); err != nil {
			t.Fatalf("Publish %s: %v", entry.Tier, err)
		}
	}
	publish(store.SceneAudio(scene), complete)
	publish(store.ParagraphAudio(scene, scene.Paragraphs[0]), Producer{Name: "elevenlabs"})
	publish(store.ParagraphAudio(scene, scene.Paragraphs[1]), Producer{Name: "elevenlabs"})

	// Producers map missing the second actor: cannot vouch for its audio.
	producers := map[string]Producer{"narrator": {Name: "elevenlabs"}}
	if store.SceneAudioPresent(scene, complete, producers) {
		t.Fatal("derived check must fail for an actor without a producer entry")
	}
}

func TestEnsureSceneDir(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)

	dir, err := store.EnsureSceneDir(scene)
	if err != nil {
		t.Fatalf("EnsureSceneDir: %v", err)
	}
	if dir != store.SceneDir(scene) {
		t.Errorf("unexpected dir: %s", dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("scene dir not created: %v", err)
	}
	// Idempotent.
	if _, err := store.EnsureSceneDir(scene); err != nil {
		t.Fatalf("EnsureSceneDir second call: %v", err)
	}
}
