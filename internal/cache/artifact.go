package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Artifact records one cached toolchain file and the release tag it came
// from. A cached file is only reused while its tag matches the latest
// release.
type Artifact struct {
	Tag      string    `yaml:"tag"`
	Filename string    `yaml:"filename"`
	URL      string    `yaml:"url"`
	CachedAt time.Time `yaml:"cached_at"`
}

// ArtifactStore is a tag-keyed store for downloaded jars and patch
// bundles. Metadata lives in a manifest next to the files so a new
// release tag invalidates the old artifact without touching the bytes.
type ArtifactStore struct {
	dir      string
	manifest map[string]*Artifact
}

const manifestName = "artifacts.yaml"

// OpenArtifacts opens (or creates) an artifact store rooted at dir. A
// corrupt manifest is discarded, not fatal.
func OpenArtifacts(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	s := &ArtifactStore{dir: dir, manifest: make(map[string]*Artifact)}

	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err == nil {
		if err := yaml.Unmarshal(data, &s.manifest); err != nil {
			s.manifest = make(map[string]*Artifact)
		}
	}
	return s, nil
}

// Dir returns the store's root directory.
func (s *ArtifactStore) Dir() string { return s.dir }

// Lookup returns the path of a cached artifact when one exists for key at
// exactly the given tag and the file is still present.
func (s *ArtifactStore) Lookup(key, tag string) (string, bool) {
	a, ok := s.manifest[key]
	if !ok || a.Tag != tag {
		return "", false
	}
	path := filepath.Join(s.dir, a.Filename)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// LookupAny returns whatever is cached for key regardless of tag. Used in
// offline mode and as a fallback after a failed download.
func (s *ArtifactStore) LookupAny(key string) (string, bool) {
	a, ok := s.manifest[key]
	if !ok {
		return "", false
	}
	path := filepath.Join(s.dir, a.Filename)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Path returns where an artifact with the given filename is stored.
func (s *ArtifactStore) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Record registers a downloaded artifact under key and persists the
// manifest.
func (s *ArtifactStore) Record(key, tag, filename, url string) error {
	s.manifest[key] = &Artifact{
		Tag:      tag,
		Filename: filename,
		URL:      url,
		CachedAt: time.Now(),
	}
	return s.save()
}

// Purge removes every cached artifact and the manifest.
func (s *ArtifactStore) Purge() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("purging artifact dir: %w", err)
	}
	s.manifest = make(map[string]*Artifact)
	return os.MkdirAll(s.dir, 0o755)
}

func (s *ArtifactStore) save() error {
	data, err := yaml.Marshal(s.manifest)
	if err != nil {
		return fmt.Errorf("marshaling artifact manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, manifestName), data, 0o644)
}
