package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONDir implements Provider with one <kind>.json file per record-set
// under a data directory.
type JSONDir struct {
	root string // absolute path to the data directory
}

// NewJSONDir creates a JSONDir provider rooted at the given directory.
// The directory must already exist.
func NewJSONDir(root string) (*JSONDir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &JSONDir{root: abs}, nil
}

// Root returns the absolute data directory path.
func (j *JSONDir) Root() string { return j.root }

// Path returns the absolute file path backing a record-set kind.
func (j *JSONDir) Path(kind Kind) string {
	return filepath.Join(j.root, string(kind)+".json")
}

// KindForPath maps a file path back to its record-set kind. The second
// return is false for files that are not record-sets (temp files etc).
func (j *JSONDir) KindForPath(path string) (Kind, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext != ".json" {
		return "", false
	}
	kind := Kind(base[:len(base)-len(ext)])
	return kind, kind.Valid()
}

// Get reads a record-set payload. A missing file yields nil, nil.
func (j *JSONDir) Get(kind Kind) ([]byte, error) {
	data, err := os.ReadFile(j.Path(kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", kind, err)
	}
	return data, nil
}

// Save atomically writes a payload: tmp file → fsync → rename.
func (j *JSONDir) Save(kind Kind, payload []byte) error {
	tmp, err := os.CreateTemp(j.root, ".vitrine-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, j.Path(kind)); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
