package script

import (
	"crypto/md5"
	"encoding/hex"
	"io"

	"golang.org/x/text/unicode/norm"

	"clapper/internal/textutil"
)

// DefaultActor voices every paragraph that precedes an actor directive.
const DefaultActor = "narrator"

// Paragraph is one block of narration attributed to a single actor. Text is
// stored normalized so cosmetic edits never change its identity.
type Paragraph struct {
	Actor string
	Text  string
}

// NewParagraph binds normalized text to the actor active when the block was
// parsed.
func NewParagraph(actor, text string) Paragraph {
	return Paragraph{Actor: actor, Text: NormalizeText(text)}
}

// NormalizeText applies Unicode NFC and collapses whitespace runs to single
// spaces. The normalized form is what gets digested and synthesized.
func NormalizeText(text string) string {
	return textutil.CollapseWhitespace(norm.NFC.String(text))
}

// Digest returns the paragraph's cache identity: MD5 hex over the actor name
// followed by the normalized text. Deterministic across runs and platforms.
func (p Paragraph) Digest() string {
	sum := md5.New()
	io.WriteString(sum, p.Actor)
	io.WriteString(sum, p.Text)
	return hex.EncodeToString(sum.Sum(nil))
}

// Scene groups an optional visual overlay with the paragraphs spoken under
// it. A scene renders and caches as one composed artifact.
type Scene struct {
	Overlay    *Overlay
	Paragraphs []Paragraph
}

// Digest returns the scene's cache identity: MD5 hex over the canonical
// overlay serialization (empty when the scene has none) followed by the
// ordered paragraph digests.
func (s *Scene) Digest() string {
	sum := md5.New()
	if s.Overlay != nil {
		io.WriteString(sum, s.Overlay.Canonical())
	}
	for _, paragraph := range s.Paragraphs {
		io.WriteString(sum, paragraph.Digest())
	}
	return hex.EncodeToString(sum.Sum(nil))
}

// Document is a parsed script: scenes in source order, immutable after
// parsing.
type Document struct {
	Scenes []*Scene
}

// Digest returns the document's identity: MD5 hex over the ordered scene
// digests. Render sessions record it so history survives script edits.
func (d *Document) Digest() string {
	sum := md5.New()
	for _, scene := range d.Scenes {
		io.WriteString(sum, scene.Digest())
	}
	return hex.EncodeToString(sum.Sum(nil))
}

// ParagraphCount returns the total number of paragraphs across all scenes.
func (d *Document) ParagraphCount() int {
	total := 0
	for _, scene := range d.Scenes {
		total += len(scene.Paragraphs)
	}
	return total
}

// Actors returns the distinct actor names in order of first appearance.
func (d *Document) Actors() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, scene := range d.Scenes {
		for _, paragraph := range scene.Paragraphs {
			if _, ok := seen[paragraph.Actor]; ok {
				continue
			}
			seen[paragraph.Actor] = struct{}{}
			names = append(names, paragraph.Actor)
		}
	}
	return names
}
