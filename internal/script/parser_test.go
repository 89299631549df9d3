package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseEndToEndExample(t *testing.T) {
	source := "<chapter title=\"C1\"/>\n\nHello there.\n\n<actor name=\"actor1\"/>\nGoodbye."

	doc := NewParser(nil).ParseString(source)
	if len(doc.Scenes) != 1 {
		t.Fatalf("scenes = %d, want 1", len(doc.Scenes))
	}
	scene := doc.Scenes[0]
	if scene.Overlay == nil || scene.Overlay.Name != "chapter" {
		t.Fatalf("overlay = %+v, want chapter fragment", scene.Overlay)
	}
	if got := scene.Overlay.Title(); got != "C1" {
		t.Errorf("overlay title = %q, want C1", got)
	}
	if len(scene.Paragraphs) != 2 {
		t.Fatalf("paragraphs = %d, want 2", len(scene.Paragraphs))
	}
	first, second := scene.Paragraphs[0], scene.Paragraphs[1]
	if first.Actor != "narrator" || first.Text != "Hello there." {
		t.Errorf("first paragraph = %+v, want narrator / Hello there.", first)
	}
	if second.Actor != "actor1" || second.Text != "Goodbye." {
		t.Errorf("second paragraph = %+v, want actor1 / Goodbye.", second)
	}
}

func TestParseActorAppliesUntilNextDirective(t *testing.T) {
	source := "<actor name=\"alice\"/>\n\nFirst line.\n\nSecond line.\n\n<actor name=\"bob\"/>\n\nThird line."

	doc := NewParser(nil).ParseString(source)
	if len(doc.Scenes) != 1 {
		t.Fatalf("scenes = %d, want 1 auto-created scene", len(doc.Scenes))
	}
	scene := doc.Scenes[0]
	if scene.Overlay != nil {
		t.Errorf("auto-created scene has overlay %+v", scene.Overlay)
	}
	wantActors := []string{"alice", "alice", "bob"}
	if len(scene.Paragraphs) != len(wantActors) {
		t.Fatalf("paragraphs = %d, want %d", len(scene.Paragraphs), len(wantActors))
	}
	for i, want := range wantActors {
		if scene.Paragraphs[i].Actor != want {
			t.Errorf("paragraph %d actor = %q, want %q", i, scene.Paragraphs[i].Actor, want)
		}
	}
}

func TestParseOverlayStartsSceneAndResetsActor(t *testing.T) {
	source := "<actor name=\"alice\"/>\n\nIntro line.\n\n<chapter title=\"Two\"/>\n\nBack to default."

	doc := NewParser(nil).ParseString(source)
	if len(doc.Scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(doc.Scenes))
	}
	if actor := doc.Scenes[0].Paragraphs[0].Actor; actor != "alice" {
		t.Errorf("scene 0 actor = %q, want alice", actor)
	}
	if doc.Scenes[1].Overlay == nil || doc.Scenes[1].Overlay.Title() != "Two" {
		t.Errorf("scene 1 overlay = %+v, want chapter Two", doc.Scenes[1].Overlay)
	}
	if actor := doc.Scenes[1].Paragraphs[0].Actor; actor != "narrator" {
		t.Errorf("scene 1 actor = %q, want narrator after overlay reset", actor)
	}
}

func TestParseStripsCommentsBeforeSplitting(t *testing.T) {
	source := "First half<!-- hidden\n\nnote --> done.\n\nSecond."

	doc := NewParser(nil).ParseString(source)
	if len(doc.Scenes) != 1 || len(doc.Scenes[0].Paragraphs) != 2 {
		t.Fatalf("got %d scenes, want 1 scene with 2 paragraphs", len(doc.Scenes))
	}
	if text := doc.Scenes[0].Paragraphs[0].Text; text != "First half done." {
		t.Errorf("first paragraph = %q, want comment removed", text)
	}
	if text := doc.Scenes[0].Paragraphs[1].Text; text != "Second." {
		t.Errorf("second paragraph = %q, want Second.", text)
	}
}

func TestParseMalformedMarkupFallsBackToText(t *testing.T) {
	source := "<chapter title=\"oops>\n\nNext paragraph."

	doc := NewParser(nil).ParseString(source)
	if len(doc.Scenes) != 1 {
		t.Fatalf("scenes = %d, want 1", len(doc.Scenes))
	}
	scene := doc.Scenes[0]
	if scene.Overlay != nil {
		t.Errorf("malformed markup produced overlay %+v", scene.Overlay)
	}
	if len(scene.Paragraphs) != 2 {
		t.Fatalf("paragraphs = %d, want 2", len(scene.Paragraphs))
	}
	if text := scene.Paragraphs[0].Text; text != "<chapter title=\"oops>" {
		t.Errorf("paragraph text = %q, want the literal block", text)
	}
	if actor := scene.Paragraphs[0].Actor; actor != "narrator" {
		t.Errorf("paragraph actor = %q, want narrator", actor)
	}
}

func TestParseMalformedInlineActorResetsToDefault(t *testing.T) {
	source := "<actor name=\"alice\"/>\n\nAlice speaks.\n\n<actor name=\"bob/>\nOrphan line."

	doc := NewParser(nil).ParseString(source)
	if len(doc.Scenes) != 1 {
		t.Fatalf("scenes = %d, want 1", len(doc.Scenes))
	}
	paragraphs := doc.Scenes[0].Paragraphs
	if len(paragraphs) != 2 {
		t.Fatalf("paragraphs = %d, want 2", len(paragraphs))
	}
	if paragraphs[0].Actor != "alice" {
		t.Errorf("first actor = %q, want alice", paragraphs[0].Actor)
	}
	if paragraphs[1].Actor != "narrator" {
		t.Errorf("second actor = %q, want narrator after malformed directive", paragraphs[1].Actor)
	}
	if paragraphs[1].Text != "Orphan line." {
		t.Errorf("second text = %q, want Orphan line.", paragraphs[1].Text)
	}
}

func TestParseDirectiveTagIsCaseInsensitive(t *testing.T) {
	source := "<ACTOR name=\"zed\"/>\n\nLine one."

	doc := NewParser(nil).ParseString(source)
	if len(doc.Scenes) != 1 || len(doc.Scenes[0].Paragraphs) != 1 {
		t.Fatalf("unexpected shape: %d scenes", len(doc.Scenes))
	}
	if actor := doc.Scenes[0].Paragraphs[0].Actor; actor != "zed" {
		t.Errorf("actor = %q, want zed", actor)
	}
}

func TestParseDirectiveWithoutNameUsesDefault(t *testing.T) {
	source := "<actor id=\"7\"/>\n\nUnnamed speaker."

	doc := NewParser(nil).ParseString(source)
	if actor := doc.Scenes[0].Paragraphs[0].Actor; actor != "narrator" {
		t.Errorf("actor = %q, want narrator for nameless directive", actor)
	}
}

func TestParseDirectiveOnlyScriptYieldsNothing(t *testing.T) {
	for _, source := range []string{"", "   \n\n  ", "<actor name=\"alice\"/>"} {
		doc := NewParser(nil).ParseString(source)
		if len(doc.Scenes) != 0 {
			t.Errorf("ParseString(%q) = %d scenes, want 0", source, len(doc.Scenes))
		}
	}
}

func TestParseMultipleScenes(t *testing.T) {
	source := "<chapter title=\"One\"/>\n\nA.\n\n<chapter title=\"Two\"/>\n\nB.\n\nC."

	doc := NewParser(nil).ParseString(source)
	if len(doc.Scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(doc.Scenes))
	}
	if n := len(doc.Scenes[0].Paragraphs); n != 1 {
		t.Errorf("scene 0 paragraphs = %d, want 1", n)
	}
	if n := len(doc.Scenes[1].Paragraphs); n != 2 {
		t.Errorf("scene 1 paragraphs = %d, want 2", n)
	}
	if doc.ParagraphCount() != 3 {
		t.Errorf("ParagraphCount = %d, want 3", doc.ParagraphCount())
	}
}

func TestParseReaderAndFile(t *testing.T) {
	doc, err := NewParser(nil).Parse(strings.NewReader("Hello."))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.ParagraphCount() != 1 {
		t.Fatalf("ParagraphCount = %d, want 1", doc.ParagraphCount())
	}

	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte("<chapter title=\"X\"/>\n\nHi."), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	doc, err = NewParser(nil).ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(doc.Scenes) != 1 || doc.Scenes[0].Overlay == nil {
		t.Errorf("ParseFile produced unexpected document: %+v", doc)
	}

	if _, err := NewParser(nil).ParseFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("ParseFile succeeded on a missing file")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("read failure")
}

func TestParseReadFailure(t *testing.T) {
	if _, err := NewParser(nil).Parse(failingReader{}); err == nil {
		t.Fatal("Parse succeeded on a failing reader")
	}
}
