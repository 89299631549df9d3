package rendercache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"clapper/internal/fileutil"
)

const (
	manifestVersion = 1
	manifestSuffix  = ".manifest.json"
)

// Manifest is the sidecar written next to every published artifact. It binds
// the artifact to its tier, cache key, and the producer parameters that
// shaped it.
type Manifest struct {
	Version   int       `json:"version"`
	Tier      Tier      `json:"tier"`
	Key       string    `json:"key"`
	Producer  string    `json:"producer"`
	Stamp     string    `json:"stamp,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Producer identifies the component that created an artifact plus a
// fingerprint of the parameters that shaped its output. Two artifacts with
// the same input digest but different stamps are not interchangeable.
type Producer struct {
	Name  string
	Stamp string
}

func writeManifest(entry Entry, producer Producer) error {
	manifest := Manifest{
		Version:   manifestVersion,
		Tier:      entry.Tier,
		Key:       entry.Key,
		Producer:  producer.Name,
		Stamp:     producer.Stamp,
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("rendercache: encode manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(entry.ManifestPath(), payload, 0o644); err != nil {
		return fmt.Errorf("rendercache: write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads an entry's manifest sidecar. The second return reports
// whether a sidecar file was found at all; a found-but-unreadable sidecar
// returns an error alongside found=true.
func LoadManifest(entry Entry) (Manifest, bool, error) {
	payload, err := os.ReadFile(entry.ManifestPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, fmt.Errorf("rendercache: read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return Manifest{}, true, fmt.Errorf("rendercache: decode manifest: %w", err)
	}
	if manifest.Version != manifestVersion {
		return Manifest{}, true, fmt.Errorf("rendercache: unsupported manifest version %d", manifest.Version)
	}
	return manifest, true, nil
}
