// Package repostore persists the list of plugin repositories the registry
// reads from. The list lives in a small YAML file and every change is written
// back immediately.
package repostore

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/xdm-project/xdm-updater/internal/registry"
)

// FileName is the default name of the repositories file.
const FileName = "repositories.yaml"

var (
	// ErrExists is returned when adding a URL that is already configured.
	ErrExists = errors.New("repository already configured")
	// ErrNotFound is returned for an unknown repository.
	ErrNotFound = errors.New("repository not configured")
)

// File is the on-disk layout.
type File struct {
	Repositories []Repository `yaml:"repositories"`
}

// Repository is one configured listing.
type Repository struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoadFile reads and parses a repositories file. A missing file is an
// empty list.
func LoadFile(fsys afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading repositories %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing repositories %s: %w", path, err)
	}
	return &f, nil
}

// SaveFile writes f to path, creating the parent directory.
func SaveFile(fsys afero.Fs, path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling repositories: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("writing repositories %s: %w", path, err)
	}
	return nil
}

// Store is a repositories file held in memory. It implements
// registry.RepositoryStore.
type Store struct {
	fs   afero.Fs
	path string

	mu   sync.Mutex
	file *File
}

// Open loads the store at path.
func Open(fsys afero.Fs, path string) (*Store, error) {
	f, err := LoadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return &Store{fs: fsys, path: path, file: f}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// List returns the configured repositories in file order.
func (s *Store) List() []registry.RepositoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]registry.RepositoryRecord, len(s.file.Repositories))
	for i, r := range s.file.Repositories {
		out[i] = registry.RepositoryRecord{Name: r.Name, URL: r.URL}
	}
	return out
}

// Find returns the repository with the given URL or name.
func (s *Store) Find(key string) (Repository, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(key); i >= 0 {
		return s.file.Repositories[i], true
	}
	return Repository{}, false
}

// Add appends a repository and saves. The URL must be absolute http(s).
func (s *Store) Add(name, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	if name == "" {
		name = rawURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(rawURL) >= 0 {
		return fmt.Errorf("%w: %s", ErrExists, rawURL)
	}
	s.file.Repositories = append(s.file.Repositories, Repository{Name: name, URL: rawURL})
	return s.save()
}

// Remove deletes the repository with the given URL or name and saves.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	s.file.Repositories = append(s.file.Repositories[:i], s.file.Repositories[i+1:]...)
	return s.save()
}

// Rename sets the display name of the repository with url and saves.
func (s *Store) Rename(url, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.file.Repositories {
		if s.file.Repositories[i].URL == url {
			if s.file.Repositories[i].Name == name {
				return nil
			}
			s.file.Repositories[i].Name = name
			return s.save()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, url)
}

// index looks key up by URL first, then by name.
func (s *Store) index(key string) int {
	for i, r := range s.file.Repositories {
		if r.URL == key {
			return i
		}
	}
	for i, r := range s.file.Repositories {
		if r.Name == key {
			return i
		}
	}
	return -1
}

func (s *Store) save() error {
	return SaveFile(s.fs, s.path, s.file)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid repository url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid repository url %q: must be an absolute http(s) url", raw)
	}
	return nil
}
