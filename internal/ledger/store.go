// Package ledger owns the attendance table on disk: a small CSV file
// read whole and rewritten whole, with an atomic rename guarding every
// write.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jkleiven/rollcall/internal/apperr"
)

// Store is the durable record set keyed by (identity, date). It assumes
// a single writer for its whole lifetime; concurrent read-modify-write
// cycles must be serialized by the caller (the reconciliation runner).
type Store struct {
	path string
}

// NewStore creates a store for the ledger file at path. The file itself
// may not exist yet; its directory must.
func NewStore(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("ledger: resolve path: %w", err)
	}
	info, err := os.Stat(filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("ledger: stat dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ledger: parent is not a directory: %s", filepath.Dir(abs))
	}
	return &Store{path: abs}, nil
}

// Path returns the absolute ledger file location.
func (s *Store) Path() string {
	return s.path
}

// Raw returns the current file bytes. A missing file yields the encoded
// empty snapshot so change detection sees a stable baseline.
func (s *Store) Raw() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return encode(NewSnapshot())
		}
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrStoreUnavailable, s.path, err)
	}
	return data, nil
}

// LoadAll reads and parses the full ledger. Absence is not an error: an
// empty snapshot with the canonical header is returned and the file is
// created on the first write.
func (s *Store) LoadAll() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrStoreUnavailable, s.path, err)
	}
	return decode(data)
}

// ReplaceAll atomically overwrites the persisted set: tmp file in the
// same directory → fsync → rename. Readers never observe a partial row.
func (s *Store) ReplaceAll(snap *Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".rollcall-tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", apperr.ErrStoreUnavailable, err)
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

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write temp: %v", apperr.ErrStoreUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %v", apperr.ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %v", apperr.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", apperr.ErrStoreUnavailable, err)
	}
	success = true
	return nil
}
