package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/lessonkit/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Store implements ports.ExplorationStore using the local filesystem.
// Snapshots are written as JSON; hand-authored `<id>.yaml` files are read
// as well so explorations can be kept under version control.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".lessonkit/explorations".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".lessonkit", "explorations")
	}
	return &Store{BasePath: basePath}
}

var readExtensions = []string{".json", ".yaml", ".yml"}

// Save persists the exploration to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, exp *domain.Exploration) error {
	if exp == nil || exp.ID == "" {
		return fmt.Errorf("exploration ID cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure exploration directory: %w", err)
	}

	destPath := filepath.Join(s.BasePath, exp.ID+".json")

	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal exploration: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+exp.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing exploration file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to exploration: %w", err)
	}

	// A saved JSON snapshot supersedes any authored YAML source.
	for _, ext := range readExtensions[1:] {
		_ = os.Remove(filepath.Join(s.BasePath, exp.ID+ext))
	}
	return nil
}

// Load reads `<id>.json`, falling back to `<id>.yaml` and `<id>.yml`.
func (s *Store) Load(ctx context.Context, id string) (*domain.Exploration, error) {
	if id == "" {
		return nil, fmt.Errorf("exploration ID cannot be empty")
	}

	for _, ext := range readExtensions {
		path := filepath.Join(s.BasePath, id+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read exploration file: %w", err)
		}

		exp, err := decode(data, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		if exp.ID == "" {
			exp.ID = id
		}
		return exp, nil
	}
	return nil, domain.ErrExplorationNotFound
}

func decode(data []byte, ext string) (*domain.Exploration, error) {
	var exp domain.Exploration
	if ext == ".json" {
		if err := json.Unmarshal(data, &exp); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(data, &exp); err != nil {
			return nil, err
		}
	}
	if exp.States == nil {
		exp.States = map[string]*domain.State{}
	}
	return &exp, nil
}

// Delete removes every file backing the exploration.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("exploration ID cannot be empty")
	}
	for _, ext := range readExtensions {
		err := os.Remove(filepath.Join(s.BasePath, id+ext))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete exploration file: %w", err)
		}
	}
	return nil
}

// List returns all exploration IDs found in the base path.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list explorations: %w", err)
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ext := filepath.Ext(name)
		for _, known := range readExtensions {
			if ext == known {
				id := strings.TrimSuffix(name, ext)
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}
