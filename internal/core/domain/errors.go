package domain

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidBashoID indicates a basho identifier is not a YYYYMM tournament month.
	ErrInvalidBashoID = errors.New("invalid basho id")

	// ErrInvalidRange indicates the start of a basho range is after its end.
	ErrInvalidRange = errors.New("invalid basho range")

	// ErrUnsupportedType indicates an unknown source or content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDuplicateKey indicates two canonical rows share a primary key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrBuildIDMismatch indicates a manifest describes a different build.
	ErrBuildIDMismatch = errors.New("manifest build id mismatch")

	// ErrInjectedFailure is returned by a configured loader failure step.
	ErrInjectedFailure = errors.New("injected failure")
)

// ParseError reports a body that could not be parsed at all.
type ParseError struct {
	Source         Source
	SnapshotSHA256 string
	URL            string
	Msg            string
	Err            error
}

// NewParseError describes a parse failure of snap's body.
func NewParseError(source Source, snap *Snapshot, msg string, err error) *ParseError {
	e := &ParseError{Source: source, Msg: msg, Err: err}
	if snap != nil {
		e.SnapshotSHA256, e.URL = snap.Meta.ContentSHA256, snap.Meta.URL
	}
	return e
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s parse failed: %s%s", e.Source, e.Msg, snapshotContext(e.SnapshotSHA256, e.URL))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a parsed body that does not have the expected shape,
// or a row that fails validation.
type SchemaError struct {
	Source         Source
	SnapshotSHA256 string
	URL            string
	Msg            string
}

// NewSchemaError describes a shape or row failure in snap.
func NewSchemaError(source Source, snap *Snapshot, msg string) *SchemaError {
	e := &SchemaError{Source: source, Msg: msg}
	if snap != nil {
		e.SnapshotSHA256, e.URL = snap.Meta.ContentSHA256, snap.Meta.URL
	}
	return e
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s schema invalid: %s%s", e.Source, e.Msg, snapshotContext(e.SnapshotSHA256, e.URL))
}

// Unwrap lets callers match schema failures with ErrInvalidInput.
func (e *SchemaError) Unwrap() error { return ErrInvalidInput }

// snapshotContext renders " (snapshot=<sha> url=<url>)", or "" when both
// are unknown.
func snapshotContext(sha, url string) string {
	parts := snapshotDetails(sha, url)
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, " ") + ")"
}

func snapshotDetails(sha, url string) []string {
	var parts []string
	if sha != "" {
		parts = append(parts, "snapshot="+sha)
	}
	if url != "" {
		parts = append(parts, "url="+url)
	}
	return parts
}

// SnapshotErrorCode classifies snapshot store integrity failures.
type SnapshotErrorCode string

const (
	SnapshotBytesMismatch     SnapshotErrorCode = "SNAPSHOT_BYTES_MISMATCH"
	SnapshotMetaSHAMismatch   SnapshotErrorCode = "SNAPSHOT_META_SHA_MISMATCH"
	SnapshotBodySHAMismatch   SnapshotErrorCode = "SNAPSHOT_BODY_SHA_MISMATCH"
	SnapshotBodyBytesMismatch SnapshotErrorCode = "SNAPSHOT_BODY_BYTES_MISMATCH"
	SnapshotMetaInvalid       SnapshotErrorCode = "SNAPSHOT_META_INVALID"
)

// SnapshotStoreError is raised when stored snapshot bytes disagree with
// their address or metadata.
type SnapshotStoreError struct {
	Code SnapshotErrorCode
	Path string
	Msg  string
}

func (e *SnapshotStoreError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Msg, e.Path)
}

// IsSnapshotStoreError reports whether err is a snapshot integrity failure
// with the given code.
func IsSnapshotStoreError(err error, code SnapshotErrorCode) bool {
	var se *SnapshotStoreError
	return errors.As(err, &se) && se.Code == code
}

// IngestErrorCode classifies ingestion failures.
type IngestErrorCode string

const (
	CodeOfflineFixtureMissing IngestErrorCode = "OFFLINE_FIXTURE_MISSING"
	CodeSourceChanged         IngestErrorCode = "SOURCE_CHANGED"
	CodeFetchFailed           IngestErrorCode = "FETCH_FAILED"
	CodeParseFailed           IngestErrorCode = "PARSE_FAILED"
	CodeValidationFailed      IngestErrorCode = "VALIDATION_FAILED"
	CodeSourceBlocked         IngestErrorCode = "SOURCE_BLOCKED"
	CodeSumoDBIDMapMiss       IngestErrorCode = "SUMODB_ID_MAP_MISS"
	CodeShikonaMapAmbiguous   IngestErrorCode = "SHIKONA_MAP_AMBIGUOUS"
	CodeShikonaMapMiss        IngestErrorCode = "SHIKONA_MAP_MISS"
)

// IngestError is the single error type surfaced by period ingestion.
type IngestError struct {
	Code    IngestErrorCode
	Msg     string
	BashoID string
	Source  Source
	URL     string
	Details []string
	Err     error
}

func (e *IngestError) Error() string {
	return string(e.Code) + ": " + e.Msg
}

func (e *IngestError) Unwrap() error { return e.Err }

// maxCompactError bounds the message persisted on a failed ingestion record.
const maxCompactError = 2000

// CompactIngestError renders err as a single bounded line.
func CompactIngestError(err error) string {
	if err == nil {
		return ""
	}
	var msg string
	var ie *IngestError
	if errors.As(err, &ie) {
		parts := []string{"code=" + string(ie.Code)}
		if ie.BashoID != "" {
			parts = append(parts, "bashoId="+ie.BashoID)
		}
		if ie.Source != "" {
			parts = append(parts, "source="+string(ie.Source))
		}
		if ie.URL != "" {
			parts = append(parts, "url="+ie.URL)
		}
		parts = append(parts, "message="+ie.Msg)
		if len(ie.Details) > 0 {
			parts = append(parts, "details="+strings.Join(ie.Details, " | "))
		}
		msg = strings.Join(parts, " ")
	} else {
		msg = err.Error()
	}
	msg = strings.Join(strings.Fields(msg), " ")
	if len(msg) > maxCompactError {
		cut := maxCompactError - 3
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}

// AsIngestError converts err into an IngestError. Parse failures map to
// PARSE_FAILED; everything else that is not already an IngestError maps to
// VALIDATION_FAILED. The snapshot named by a parse or schema failure is
// copied into the details.
func AsIngestError(err error, bashoID string, source Source, url string) *IngestError {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie
	}
	code := CodeValidationFailed
	var details []string
	var pe *ParseError
	var se *SchemaError
	switch {
	case errors.As(err, &pe):
		code = CodeParseFailed
		details = snapshotDetails(pe.SnapshotSHA256, pe.URL)
		url = cmp.Or(url, pe.URL)
	case errors.As(err, &se):
		details = snapshotDetails(se.SnapshotSHA256, se.URL)
		url = cmp.Or(url, se.URL)
	}
	return &IngestError{
		Code:    code,
		Msg:     err.Error(),
		BashoID: bashoID,
		Source:  source,
		URL:     url,
		Details: details,
		Err:     err,
	}
}
