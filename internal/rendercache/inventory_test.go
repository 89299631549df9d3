package rendercache

import (
	"os"
	"testing"

	"clapper/internal/script"
)

func TestInventoryEmptyRoot(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	summaries, err := store.Inventory()
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected empty inventory, got %d scenes", len(summaries))
	}
}

func TestInventoryListsPublishedArtifacts(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	paragraph := scene.Paragraphs[0]

	publish := func(entry Entry, producer Producer) {
		t.Helper()
		staged := stageArtifact(t, store, entry, "payload")
		if err := store.Publish(entry, staged, producer); err != nil {
			t.Fatalf("Publish %s: %v", entry.Tier, err)
		}
	}
	publish(store.SceneFinal(scene), Producer{Name: "compositor"})
	publish(store.SceneAudio(scene), Producer{Name: "audio-concat"})
	publish(store.ParagraphAudio(scene, paragraph), Producer{Name: "elevenlabs"})
	publish(store.ParagraphVideo(scene, paragraph), Producer{Name: "heygen"})

	summaries, err := store.Inventory()
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(summaries))
	}
	summary := summaries[0]
	if summary.Digest != scene.Digest() {
		t.Errorf("unexpected digest: %s", summary.Digest)
	}
	if len(summary.Artifacts) != 4 {
		t.Fatalf("expected 4 artifacts, got %d: %+v", len(summary.Artifacts), summary.Artifacts)
	}
	if summary.SizeBytes != int64(4*len("payload")) {
		t.Errorf("unexpected total size: %d", summary.SizeBytes)
	}

	tiers := map[Tier]int{}
	for _, artifact := range summary.Artifacts {
		tiers[artifact.Tier]++
		if !artifact.HasManifest {
			t.Errorf("published artifact %s reported without manifest", artifact.Name)
		}
		if artifact.ModifiedAt.IsZero() {
			t.Errorf("artifact %s missing modification time", artifact.Name)
		}
	}
	for _, tier := range []Tier{TierSceneFinal, TierSceneAudioComplete, TierParagraphAudio, TierParagraphVideo} {
		if tiers[tier] != 1 {
			t.Errorf("expected one %s artifact, got %d", tier, tiers[tier])
		}
	}
}

func TestInventorySkipsSidecarsAndStaging(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	entry := store.SceneFinal(scene)

	staged := stageArtifact(t, store, entry, "payload")
	if err := store.Publish(entry, staged, Producer{Name: "compositor"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// A crashed run's staging leftover must not count as an artifact.
	if err := os.WriteFile(store.StagingPath(entry), []byte("partial"), 0o644); err != nil {
		t.Fatalf("write staging leftover: %v", err)
	}

	summaries, err := store.Inventory()
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if len(summaries) != 1 || len(summaries[0].Artifacts) != 1 {
		t.Fatalf("expected exactly the published artifact, got %+v", summaries)
	}
	if summaries[0].Artifacts[0].Name != sceneFinalName {
		t.Errorf("unexpected artifact: %s", summaries[0].Artifacts[0].Name)
	}
}

func TestInventoryFlagsMissingManifest(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	scene := testScene(t)
	entry := store.SceneFinal(scene)

	staged := stageArtifact(t, store, entry, "payload")
	if err := store.Publish(entry, staged, Producer{Name: "compositor"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := os.Remove(entry.ManifestPath()); err != nil {
		t.Fatalf("remove manifest: %v", err)
	}

	summaries, err := store.Inventory()
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if len(summaries) != 1 || len(summaries[0].Artifacts) != 1 {
		t.Fatalf("unexpected inventory: %+v", summaries)
	}
	if summaries[0].Artifacts[0].HasManifest {
		t.Error("artifact without sidecar must report HasManifest=false")
	}
}

func TestRemoveSceneAndClear(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	first := testScene(t)
	second := &script.Scene{
		Paragraphs: []script.Paragraph{script.NewParagraph("narrator", "Another scene entirely.")},
	}

	for _, scene := range []*script.Scene{first, second} {
		entry := store.SceneFinal(scene)
		staged := stageArtifact(t, store, entry, "payload")
		if err := store.Publish(entry, staged, Producer{Name: "compositor"}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	if err := store.RemoveScene(first.Digest()); err != nil {
		t.Fatalf("RemoveScene: %v", err)
	}
	if _, err := os.Stat(store.SceneDir(first)); !os.IsNotExist(err) {
		t.Fatal("scene dir should be gone")
	}
	// Removing it again is a no-op.
	if err := store.RemoveScene(first.Digest()); err != nil {
		t.Fatalf("RemoveScene repeat: %v", err)
	}
	if err := store.RemoveScene("  "); err == nil {
		t.Fatal("blank digest must be rejected")
	}

	removed, err := store.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 scene cleared, got %d", removed)
	}
	summaries, err := store.Inventory()
	if err != nil {
		t.Fatalf("Inventory after clear: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("cache should be empty, got %+v", summaries)
	}
}
