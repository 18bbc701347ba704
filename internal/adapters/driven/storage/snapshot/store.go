// Package snapshot stores raw upstream bodies on disk, addressed by the
// SHA-256 of their bytes.
//
// Layout: <root>/<source>/<sha256>.<ext> holds the body and
// <root>/<source>/<sha256>.meta.json its sidecar. Bodies are write-once;
// re-writing an address with different bytes is an integrity error.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/atomicfile"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
)

// Ensure Store implements the interface.
var _ driven.SnapshotStore = (*Store)(nil)

// Store is a content-addressed snapshot store rooted at a directory.
type Store struct {
	mu   sync.Mutex
	root string
}

// NewStore creates a store rooted at root. The directory is created lazily.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

func (s *Store) metaPath(source domain.Source, sha string) string {
	return filepath.Join(s.root, string(source), sha+".meta.json")
}

func (s *Store) bodyPath(source domain.Source, sha, contentType string) string {
	return filepath.Join(s.root, string(source), sha+domain.ExtensionForContentType(contentType))
}

// Put stores body and returns its sidecar. If the sidecar already exists
// it is returned unchanged.
func (s *Store) Put(source domain.Source, body []byte, contentType string, httpStatus int) (*domain.StoredSnapshotMeta, error) {
	sha := hashing.ContentHash(body)
	meta := domain.StoredSnapshotMeta{
		Source:        source,
		ContentSHA256: sha,
		Bytes:         int64(len(body)),
		ContentType:   contentType,
		HTTPStatus:    httpStatus,
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bodyPath := s.bodyPath(source, sha, contentType)
	if err := ensureBytes(bodyPath, body); err != nil {
		return nil, err
	}

	metaPath := s.metaPath(source, sha)
	existing, err := readMeta(metaPath)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data, err := hashing.Serialize(meta)
	if err != nil {
		return nil, err
	}
	if err := atomicfile.Write(metaPath, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing snapshot meta: %w", err)
	}
	return &meta, nil
}

// Get reads the body stored under source and sha after checking it against
// its address and sidecar. A missing snapshot returns domain.ErrNotFound.
func (s *Store) Get(source domain.Source, sha string) (*domain.StoredSnapshotMeta, []byte, error) {
	metaPath := s.metaPath(source, sha)
	meta, err := readMeta(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: snapshot %s/%s", domain.ErrNotFound, source, sha)
		}
		return nil, nil, err
	}
	if meta.ContentSHA256 != sha {
		return nil, nil, &domain.SnapshotStoreError{
			Code: domain.SnapshotMetaSHAMismatch,
			Path: metaPath,
			Msg:  fmt.Sprintf("meta sha %s does not match requested %s", meta.ContentSHA256, sha),
		}
	}

	bodyPath := s.bodyPath(source, sha, meta.ContentType)
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: snapshot body %s", domain.ErrNotFound, bodyPath)
		}
		return nil, nil, fmt.Errorf("reading snapshot body: %w", err)
	}
	if got := hashing.ContentHash(body); got != sha {
		return nil, nil, &domain.SnapshotStoreError{
			Code: domain.SnapshotBodySHAMismatch,
			Path: bodyPath,
			Msg:  fmt.Sprintf("body sha %s, expected %s", got, sha),
		}
	}
	if int64(len(body)) != meta.Bytes {
		return nil, nil, &domain.SnapshotStoreError{
			Code: domain.SnapshotBodyBytesMismatch,
			Path: bodyPath,
			Msg:  fmt.Sprintf("body has %d bytes, expected %d", len(body), meta.Bytes),
		}
	}
	return meta, body, nil
}

// ensureBytes writes data to path unless a file is already there, in which
// case its bytes must match.
func ensureBytes(path string, data []byte) error {
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if !bytes.Equal(existing, data) {
			return &domain.SnapshotStoreError{
				Code: domain.SnapshotBytesMismatch,
				Path: path,
				Msg:  "existing snapshot content differs",
			}
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if err := atomicfile.Write(path, data, 0o644); err != nil {
			return fmt.Errorf("writing snapshot body: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("reading snapshot body: %w", err)
	}
}

func readMeta(path string) (*domain.StoredSnapshotMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta domain.StoredSnapshotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, &domain.SnapshotStoreError{Code: domain.SnapshotMetaInvalid, Path: path, Msg: err.Error()}
	}
	if err := meta.Validate(); err != nil {
		return nil, &domain.SnapshotStoreError{Code: domain.SnapshotMetaInvalid, Path: path, Msg: err.Error()}
	}
	return &meta, nil
}
