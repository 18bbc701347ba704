// Package hashing provides canonical JSON serialization and SHA-256 hashing.
//
// Serialize produces the same bytes for any two values that are deeply equal
// once mapping key order is ignored: object keys are sorted recursively while
// array order is preserved. Every build id, row hash and bout id in the
// pipeline is derived from this form.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Serialize returns the canonical JSON encoding of v.
func Serialize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling value: %w", err)
	}

	// Round-trip through a generic value so struct field order does not leak
	// into the output. Maps are encoded with sorted keys.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// SerializeLines encodes each row canonically, one per line, each line
// terminated by a newline.
func SerializeLines[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	for i, row := range rows {
		line, err := Serialize(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// ContentHash returns the lowercase hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StructuralHash returns ContentHash(Serialize(v)).
func StructuralHash(v any) (string, error) {
	data, err := Serialize(v)
	if err != nil {
		return "", err
	}
	return ContentHash(data), nil
}

// MustStructuralHash is StructuralHash for values known to be encodable,
// such as maps of strings and numbers. It panics on encoding failure.
func MustStructuralHash(v any) string {
	h, err := StructuralHash(v)
	if err != nil {
		panic(err)
	}
	return h
}

// IsHexDigest reports whether s is a 64-character lowercase hex SHA-256.
func IsHexDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
