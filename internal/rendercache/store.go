package rendercache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clapper/internal/fileutil"
	"clapper/internal/logging"
	"clapper/internal/script"
	"clapper/internal/textutil"
)

// Tier names one of the four artifact classes.
type Tier string

const (
	TierParagraphAudio     Tier = "paragraph-audio"
	TierParagraphVideo     Tier = "paragraph-video"
	TierSceneAudioComplete Tier = "scene-audio-complete"
	TierSceneFinal         Tier = "scene-final"
)

const (
	sceneDirPrefix = "scene_"
	sceneFinalName = "scene.mp4"
	sceneAudioName = "scene_audio_complete.mp3"
	stagingInfix   = ".staging."
)

// Entry addresses one artifact: its tier, cache key, and path on disk.
type Entry struct {
	Tier Tier
	Key  string
	Path string
}

// ManifestPath returns the entry's sidecar path.
func (e Entry) ManifestPath() string {
	return e.Path + manifestSuffix
}

// Store resolves content digests to artifact paths under <project>/cache and
// owns the trust checks and atomic publishing for all four tiers.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore returns a store rooted at <projectDir>/cache. Nothing is created
// on disk until an entry is prepared.
func NewStore(projectDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		root:   filepath.Join(projectDir, "cache"),
		logger: logging.NewComponentLogger(logger, "cache"),
	}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// SceneDir returns the scene's cache directory, scene_<digest>.
func (s *Store) SceneDir(scene *script.Scene) string {
	return s.digestDir(scene.Digest())
}

func (s *Store) digestDir(digest string) string {
	return filepath.Join(s.root, sceneDirPrefix+digest)
}

// EnsureSceneDir creates the scene's cache directory when missing and
// returns its path.
func (s *Store) EnsureSceneDir(scene *script.Scene) (string, error) {
	dir := s.SceneDir(scene)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("rendercache: prepare scene dir: %w", err)
	}
	return dir, nil
}

// SceneFinal addresses the scene's composed video artifact.
func (s *Store) SceneFinal(scene *script.Scene) Entry {
	digest := scene.Digest()
	return Entry{
		Tier: TierSceneFinal,
		Key:  digest,
		Path: filepath.Join(s.digestDir(digest), sceneFinalName),
	}
}

// SceneAudio addresses the scene's concatenated narration artifact.
func (s *Store) SceneAudio(scene *script.Scene) Entry {
	digest := scene.Digest()
	return Entry{
		Tier: TierSceneAudioComplete,
		Key:  digest,
		Path: filepath.Join(s.digestDir(digest), sceneAudioName),
	}
}

// ParagraphAudio addresses one paragraph's speech artifact, keyed by
// (actor, paragraph digest).
func (s *Store) ParagraphAudio(scene *script.Scene, paragraph script.Paragraph) Entry {
	return s.paragraphEntry(scene, paragraph, TierParagraphAudio, "mp3")
}

// ParagraphVideo addresses one paragraph's avatar clip, keyed by
// (actor, paragraph digest).
func (s *Store) ParagraphVideo(scene *script.Scene, paragraph script.Paragraph) Entry {
	return s.paragraphEntry(scene, paragraph, TierParagraphVideo, "mp4")
}

func (s *Store) paragraphEntry(scene *script.Scene, paragraph script.Paragraph, tier Tier, ext string) Entry {
	digest := paragraph.Digest()
	name := fmt.Sprintf("%s_%s.%s", textutil.SanitizeToken(paragraph.Actor), digest, ext)
	return Entry{
		Tier: tier,
		Key:  paragraph.Actor + "/" + digest,
		Path: filepath.Join(s.SceneDir(scene), name),
	}
}

// StagingPath returns a temporary sibling of the entry for streaming a
// provider download or compositor output before Publish renames it into
// place. Siblings stay on the same filesystem so the rename is atomic.
func (s *Store) StagingPath(entry Entry) string {
	return fmt.Sprintf("%s%s%d", entry.Path, stagingInfix, time.Now().UnixNano())
}

// Present reports whether the entry can be trusted as a cache hit: the
// artifact exists, its manifest sidecar parses, and the manifest matches the
// entry's identity and the expected producer. Bytes without a matching
// manifest are never trusted.
func (s *Store) Present(entry Entry, producer Producer) bool {
	if _, err := os.Stat(entry.Path); err != nil {
		return false
	}
	manifest, found, err := LoadManifest(entry)
	if err != nil {
		s.logger.Warn("unreadable cache manifest; treating entry as absent",
			logging.String(logging.FieldTier, string(entry.Tier)),
			logging.String("path", entry.Path),
			logging.Error(err))
		return false
	}
	if !found {
		s.logger.Debug("artifact without manifest; treating entry as absent",
			logging.String(logging.FieldTier, string(entry.Tier)),
			logging.String("path", entry.Path))
		return false
	}
	if manifest.Tier != entry.Tier || manifest.Key != entry.Key {
		s.logger.Warn("cache manifest does not match entry identity; treating entry as absent",
			logging.String(logging.FieldTier, string(entry.Tier)),
			logging.String("path", entry.Path))
		return false
	}
	if manifest.Producer != producer.Name || manifest.Stamp != producer.Stamp {
		s.logger.Debug("producer parameters changed; entry will be re-rendered",
			logging.String(logging.FieldTier, string(entry.Tier)),
			logging.String("path", entry.Path),
			logging.String("cached_producer", manifest.Producer),
			logging.String("expected_producer", producer.Name))
		return false
	}
	return true
}

// SceneAudioPresent is the derived scene-audio-complete check: the
// concatenated file must be trusted and every constituent paragraph's audio
// must itself be trusted. paragraphProducers is keyed by lowercased actor
// name; a paragraph whose actor has no entry makes the whole check false.
func (s *Store) SceneAudioPresent(scene *script.Scene, complete Producer, paragraphProducers map[string]Producer) bool {
	if !s.Present(s.SceneAudio(scene), complete) {
		return false
	}
	for _, paragraph := range scene.Paragraphs {
		producer, ok := paragraphProducers[strings.ToLower(paragraph.Actor)]
		if !ok {
			return false
		}
		if !s.Present(s.ParagraphAudio(scene, paragraph), producer) {
			return false
		}
	}
	return true
}

// Publish moves a staged artifact into the entry's addressed path and writes
// its manifest sidecar. The artifact lands before the manifest, so a crash
// between the two reads as untrusted, never as a corrupt hit.
func (s *Store) Publish(entry Entry, stagedPath string, producer Producer) error {
	if err := os.MkdirAll(filepath.Dir(entry.Path), 0o755); err != nil {
		return fmt.Errorf("rendercache: prepare entry dir: %w", err)
	}
	if err := fileutil.MoveFile(stagedPath, entry.Path); err != nil {
		return fmt.Errorf("rendercache: publish %s: %w", entry.Tier, err)
	}
	if err := writeManifest(entry, producer); err != nil {
		return err
	}
	s.logger.Debug("published cache entry",
		logging.String(logging.FieldTier, string(entry.Tier)),
		logging.String("path", entry.Path),
		logging.String("cache_decision", "published"))
	return nil
}
