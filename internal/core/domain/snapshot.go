package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SnapshotMeta describes one captured upstream response.
type SnapshotMeta struct {
	Source        Source `json:"source"`
	URL           string `json:"url"`
	FetchedAt     string `json:"fetchedAt,omitempty"`
	ContentSHA256 string `json:"contentSha256"`
	Bytes         int64  `json:"bytes"`
	ContentType   string `json:"contentType"`
	HTTPStatus    int    `json:"httpStatus"`
	ETag          string `json:"etag,omitempty"`
	LastModified  string `json:"lastModified,omitempty"`
}

// Validate checks every field of a capture record.
func (m SnapshotMeta) Validate() error {
	if !m.Source.Valid() {
		return fmt.Errorf("%w: snapshot.source %q", ErrInvalidInput, m.Source)
	}
	if !ValidURL(m.URL) {
		return fmt.Errorf("%w: snapshot.url %q", ErrInvalidInput, m.URL)
	}
	if m.FetchedAt != "" {
		if _, err := time.Parse(time.RFC3339Nano, m.FetchedAt); err != nil {
			return fmt.Errorf("%w: snapshot.fetchedAt %q", ErrInvalidInput, m.FetchedAt)
		}
	}
	return m.Stored().Validate()
}

// Stored projects the capture record onto the fields kept beside the body.
func (m SnapshotMeta) Stored() StoredSnapshotMeta {
	return StoredSnapshotMeta{
		Source:        m.Source,
		ContentSHA256: m.ContentSHA256,
		Bytes:         m.Bytes,
		ContentType:   m.ContentType,
		HTTPStatus:    m.HTTPStatus,
	}
}

// DecodeSnapshotMeta parses a capture record, rejecting unknown fields.
func DecodeSnapshotMeta(data []byte) (SnapshotMeta, error) {
	var m SnapshotMeta
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return SnapshotMeta{}, fmt.Errorf("%w: snapshot meta: %v", ErrInvalidInput, err)
	}
	if err := m.Validate(); err != nil {
		return SnapshotMeta{}, err
	}
	return m, nil
}

// StoredSnapshotMeta is the sidecar written next to a stored body.
type StoredSnapshotMeta struct {
	Source        Source `json:"source"`
	ContentSHA256 string `json:"contentSha256"`
	Bytes         int64  `json:"bytes"`
	ContentType   string `json:"contentType"`
	HTTPStatus    int    `json:"httpStatus"`
}

// Validate checks the sidecar fields.
func (m StoredSnapshotMeta) Validate() error {
	if !m.Source.Valid() {
		return fmt.Errorf("%w: snapshot.source %q", ErrInvalidInput, m.Source)
	}
	if !isHex64(m.ContentSHA256) {
		return fmt.Errorf("%w: snapshot.contentSha256 %q", ErrInvalidInput, m.ContentSHA256)
	}
	if m.Bytes < 0 {
		return fmt.Errorf("%w: snapshot.bytes is negative", ErrInvalidInput)
	}
	if strings.TrimSpace(m.ContentType) == "" {
		return fmt.Errorf("%w: snapshot.contentType is required", ErrInvalidInput)
	}
	if m.HTTPStatus < 100 || m.HTTPStatus > 599 {
		return fmt.Errorf("%w: snapshot.httpStatus %d", ErrInvalidInput, m.HTTPStatus)
	}
	return nil
}

// Snapshot is a body together with its capture record.
type Snapshot struct {
	Meta SnapshotMeta
	Body []byte
}

// ExtensionForContentType picks the body file extension for a content type.
func ExtensionForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return ".json"
	case strings.Contains(ct, "html"):
		return ".html"
	default:
		return ".txt"
	}
}

// RequiredSnapshot is one upstream page a basho ingestion must capture.
type RequiredSnapshot struct {
	Source          Source
	Kind            string
	URL             string
	ContentTypeHint string
}
