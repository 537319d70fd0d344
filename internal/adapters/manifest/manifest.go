// Package manifest records what a pipeline run produced: the definitive
// artifacts of each image with content checksums, so downstream tooling can
// detect stale or tampered outputs.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/zerr"
)

// Entry describes one recorded artifact.
type Entry struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// ImageRecord is the manifest slice of one image's run.
type ImageRecord struct {
	Image       string  `json:"image"`
	PSFPath     string  `json:"psf_path"`
	Variability int     `json:"variability"`
	FellBack    bool    `json:"fell_back"`
	Entries     []Entry `json:"entries"`
}

// Manifest is the full run record.
type Manifest struct {
	CreatedAt time.Time     `json:"created_at"`
	Images    []ImageRecord `json:"images"`
}

// Store builds and persists run manifests.
type Store struct {
	clock clockwork.Clock
}

// NewStore creates a manifest store.
func NewStore(clock clockwork.Clock) *Store {
	return &Store{clock: clock}
}

// New creates an empty manifest stamped with the current time.
func (s *Store) New() *Manifest {
	return &Manifest{CreatedAt: s.clock.Now().UTC()}
}

// RecordImage checksums the given artifact paths and appends one image
// record to the manifest. Missing paths are skipped; a model that was never
// written must not sink the whole run record.
func (s *Store) RecordImage(m *Manifest, name string, result domain.PSFResult, paths []string) error {
	record := ImageRecord{
		Image:       name,
		PSFPath:     result.PSFPath,
		Variability: result.Variability,
		FellBack:    result.FellBack,
	}

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		entry, err := checksumFile(path)
		if err != nil {
			return err
		}
		record.Entries = append(record.Entries, entry)
	}

	m.Images = append(m.Images, record)
	return nil
}

// Write persists the manifest as JSON, replacing any existing file.
func (s *Store) Write(path string, m *Manifest) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil { //nolint:gosec // manifests are shared artifacts
		return zerr.With(zerr.Wrap(err, domain.ErrManifestWriteFailed.Error()), "path", path)
	}
	return nil
}

// Read loads a manifest from disk.
func (s *Store) Read(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from the run configuration
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestReadFailed.Error()), "path", path)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestReadFailed.Error()), "path", path)
	}
	return &m, nil
}

// Verify re-checksums every entry of the manifest and returns the paths
// whose content no longer matches.
func (s *Store) Verify(m *Manifest) ([]string, error) {
	var stale []string
	for _, img := range m.Images {
		for _, want := range img.Entries {
			if _, err := os.Stat(want.Path); os.IsNotExist(err) {
				stale = append(stale, want.Path)
				continue
			}
			got, err := checksumFile(want.Path)
			if err != nil {
				return nil, err
			}
			if got.Checksum != want.Checksum {
				stale = append(stale, want.Path)
			}
		}
	}
	return stale, nil
}

func checksumFile(path string) (Entry, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from the pipeline's own outputs
	if err != nil {
		return Entry{}, zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
	}
	defer f.Close()

	h := xxhash.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return Entry{}, zerr.With(zerr.Wrap(err, domain.ErrManifestWriteFailed.Error()), "path", path)
	}

	return Entry{
		Path:     path,
		Size:     size,
		Checksum: fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}
