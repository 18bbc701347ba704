// Package artifacts reads and writes build and ingestion output directories.
//
// Every id owns one directory under the root. Files inside it are written
// atomically; JSONL files hold one canonically serialised row per line.
package artifacts

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/atomicfile"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
)

// Ensure Store implements the interface.
var _ driven.ArtifactStore = (*Store)(nil)

// Store is a filesystem artifact store.
type Store struct {
	root string
}

// NewStore creates a store rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir returns the directory for id. Callers pass ids already checked by
// CheckID; Dir itself does not reject anything.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.root, id)
}

// CheckID rejects ids that are not a single path element, so no id can
// address a directory outside the root.
func CheckID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return fmt.Errorf("%w: artifact id %q", domain.ErrInvalidInput, id)
	}
	return nil
}

// path resolves rel inside id's directory. Neither part may climb out.
func (s *Store) path(id, rel string) (string, error) {
	if err := CheckID(id); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: artifact path %q", domain.ErrInvalidInput, rel)
	}
	return filepath.Join(s.Dir(id), clean), nil
}

// WriteFile writes data atomically and describes the written file.
func (s *Store) WriteFile(id, rel string, data []byte, rows int) (*domain.OutputFile, error) {
	p, err := s.path(id, rel)
	if err != nil {
		return nil, err
	}
	if err := atomicfile.Write(p, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", rel, err)
	}
	return &domain.OutputFile{
		Path:   filepath.ToSlash(rel),
		SHA256: hashing.ContentHash(data),
		Bytes:  int64(len(data)),
		Rows:   rows,
	}, nil
}

// ReadFile reads rel. A missing file returns domain.ErrNotFound.
func (s *Store) ReadFile(id, rel string) ([]byte, error) {
	p, err := s.path(id, rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, id, rel)
		}
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

// Exists reports whether rel exists. Invalid ids and paths never do.
func (s *Store) Exists(id, rel string) bool {
	p, err := s.path(id, rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// ReadRows decodes every line of a JSONL file. Numbers are kept as
// json.Number so that re-serialising a row reproduces its bytes.
func (s *Store) ReadRows(id, rel string) ([]map[string]any, error) {
	data, err := s.ReadFile(id, rel)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return DecodeRows(data)
}

// DecodeRows parses JSONL bytes into rows, skipping blank lines.
func DecodeRows(data []byte) ([]map[string]any, error) {
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteDiff writes rows to file under id's diff directory.
func (s *Store) WriteDiff(id, file string, rows []domain.DiffRow) error {
	data, err := hashing.SerializeLines(rows)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", file, err)
	}
	_, err = s.WriteFile(id, domain.DiffDir+"/"+file, data, len(rows))
	return err
}

// ReadDiff reads one diff file. A missing file yields no rows.
func (s *Store) ReadDiff(id, file string) ([]domain.DiffRow, error) {
	data, err := s.ReadFile(id, domain.DiffDir+"/"+file)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var out []domain.DiffRow
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var row domain.DiffRow
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", file, err)
		}
		out = append(out, row)
	}
	return out, sc.Err()
}
