package rendercache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ArtifactSummary describes one published artifact discovered on disk.
type ArtifactSummary struct {
	Name        string
	Path        string
	Tier        Tier
	SizeBytes   int64
	HasManifest bool
	ModifiedAt  time.Time
}

// SceneSummary aggregates the artifacts cached under one scene directory.
type SceneSummary struct {
	Digest    string
	Artifacts []ArtifactSummary
	SizeBytes int64
}

// Inventory walks the cache root and summarizes every scene directory,
// ordered by digest. A missing root reads as an empty cache. Manifest
// sidecars and staging leftovers are not listed as artifacts.
func (s *Store) Inventory() ([]SceneSummary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("rendercache: read cache root: %w", err)
	}

	summaries := make([]SceneSummary, 0, len(entries))
	for _, dirEntry := range entries {
		if !dirEntry.IsDir() || !strings.HasPrefix(dirEntry.Name(), sceneDirPrefix) {
			continue
		}
		summary, err := s.summarizeScene(dirEntry.Name())
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Digest < summaries[j].Digest })
	return summaries, nil
}

func (s *Store) summarizeScene(dirName string) (SceneSummary, error) {
	summary := SceneSummary{Digest: strings.TrimPrefix(dirName, sceneDirPrefix)}
	dir := filepath.Join(s.root, dirName)
	files, err := os.ReadDir(dir)
	if err != nil {
		return SceneSummary{}, fmt.Errorf("rendercache: read scene dir: %w", err)
	}
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || strings.HasSuffix(name, manifestSuffix) || strings.Contains(name, stagingInfix) {
			continue
		}
		info, err := file.Info()
		if err != nil {
			return SceneSummary{}, fmt.Errorf("rendercache: stat artifact: %w", err)
		}
		path := filepath.Join(dir, name)
		_, hasManifest, manifestErr := LoadManifest(Entry{Path: path})
		summary.Artifacts = append(summary.Artifacts, ArtifactSummary{
			Name:        name,
			Path:        path,
			Tier:        classifyArtifact(name),
			SizeBytes:   info.Size(),
			HasManifest: hasManifest && manifestErr == nil,
			ModifiedAt:  info.ModTime(),
		})
		summary.SizeBytes += info.Size()
	}
	sort.Slice(summary.Artifacts, func(i, j int) bool {
		return summary.Artifacts[i].Name < summary.Artifacts[j].Name
	})
	return summary, nil
}

// classifyArtifact recovers an artifact's tier from the naming scheme alone.
// Files the scheme does not produce classify as the empty tier.
func classifyArtifact(name string) Tier {
	switch {
	case name == sceneFinalName:
		return TierSceneFinal
	case name == sceneAudioName:
		return TierSceneAudioComplete
	case strings.HasSuffix(name, ".mp3"):
		return TierParagraphAudio
	case strings.HasSuffix(name, ".mp4"):
		return TierParagraphVideo
	default:
		return ""
	}
}

// RemoveScene deletes one scene's cache directory by digest. Removing an
// absent scene is not an error.
func (s *Store) RemoveScene(digest string) error {
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return fmt.Errorf("rendercache: scene digest must not be empty")
	}
	if err := os.RemoveAll(s.digestDir(digest)); err != nil {
		return fmt.Errorf("rendercache: remove scene %s: %w", digest, err)
	}
	return nil
}

// Clear deletes every scene directory and reports how many were removed.
func (s *Store) Clear() (int, error) {
	summaries, err := s.Inventory()
	if err != nil {
		return 0, err
	}
	for removed, summary := range summaries {
		if err := s.RemoveScene(summary.Digest); err != nil {
			return removed, err
		}
	}
	return len(summaries), nil
}
