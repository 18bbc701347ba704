// Package fetch captures upstream pages for basho ingestion, either from a
// directory of recorded fixtures or over HTTP, and persists every body to
// the snapshot store.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Options configures a Fetcher.
type Options struct {
	Mode        domain.IngestMode
	FixturesDir string
	UserAgent   string
	Timeout     time.Duration

	// Limiter paces live requests from the completion of the previous one.
	// Nil means no pacing.
	Limiter *RateLimiter

	// Client sends live requests. Nil means http.DefaultClient.
	Client *http.Client

	// Now stamps live captures. Nil means time.Now.
	Now func() time.Time
}

// Fetcher implements driven.Fetcher.
type Fetcher struct {
	opts  Options
	store driven.SnapshotStore
}

// New creates a fetcher that persists bodies to store.
func New(opts Options, store driven.SnapshotStore) *Fetcher {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Fetcher{opts: opts, store: store}
}

// FromConfig builds a fetcher from the ingest configuration.
func FromConfig(cfg domain.IngestConfig, store driven.SnapshotStore) *Fetcher {
	return New(Options{
		Mode:        cfg.Mode,
		FixturesDir: cfg.FixturesDir,
		UserAgent:   cfg.UserAgent,
		Timeout:     cfg.Timeout,
		Limiter:     NewRateLimiter(cfg.RateLimit),
	}, store)
}

// Fetch captures req for bashoID.
func (f *Fetcher) Fetch(ctx context.Context, bashoID string, req domain.RequiredSnapshot) (*domain.Snapshot, error) {
	var (
		snap *domain.Snapshot
		err  error
	)
	if f.opts.Mode == domain.IngestLive {
		snap, err = f.fetchLive(ctx, bashoID, req)
	} else {
		snap, err = f.readFixture(bashoID, req)
	}
	if err != nil {
		return nil, err
	}

	stored, err := f.store.Put(snap.Meta.Source, snap.Body, snap.Meta.ContentType, snap.Meta.HTTPStatus)
	if err != nil {
		return nil, &domain.IngestError{
			Code:    domain.CodeValidationFailed,
			Msg:     "persisting snapshot",
			BashoID: bashoID,
			Source:  req.Source,
			URL:     req.URL,
			Err:     err,
		}
	}
	snap.Meta.ContentSHA256 = stored.ContentSHA256
	snap.Meta.Bytes = stored.Bytes
	return snap, nil
}

// FixtureBase is the file name stem of a recorded fixture.
func FixtureBase(bashoID string, req domain.RequiredSnapshot) string {
	return fmt.Sprintf("%s.%s.%s", bashoID, req.Source, req.Kind)
}

func (f *Fetcher) readFixture(bashoID string, req domain.RequiredSnapshot) (*domain.Snapshot, error) {
	ext := ".json"
	if strings.Contains(strings.ToLower(req.ContentTypeHint), "html") {
		ext = ".html"
	}
	base := FixtureBase(bashoID, req)
	bodyPath := filepath.Join(f.opts.FixturesDir, base+ext)
	metaPath := filepath.Join(f.opts.FixturesDir, base+".meta.json")

	fail := func(code domain.IngestErrorCode, msg string, err error, details ...string) error {
		return &domain.IngestError{
			Code: code, Msg: msg, BashoID: bashoID, Source: req.Source, URL: req.URL,
			Details: details, Err: err,
		}
	}

	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return nil, fail(domain.CodeOfflineFixtureMissing, "offline fixture missing for "+base, err, bodyPath)
	}
	rawMeta, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fail(domain.CodeOfflineFixtureMissing, "offline fixture missing for "+base, err, metaPath)
	}

	meta, err := domain.DecodeSnapshotMeta(rawMeta)
	if err != nil {
		return nil, fail(domain.CodeValidationFailed, "invalid fixture meta for "+base, err, err.Error())
	}
	if got := hashing.ContentHash(body); got != meta.ContentSHA256 {
		return nil, fail(domain.CodeSourceChanged, "fixture sha mismatch for "+base, nil,
			fmt.Sprintf("expected=%s actual=%s", meta.ContentSHA256, got))
	}
	if int64(len(body)) != meta.Bytes {
		return nil, fail(domain.CodeSourceChanged, "fixture byte length mismatch for "+base, nil,
			fmt.Sprintf("expected=%d actual=%d", meta.Bytes, len(body)))
	}
	return &domain.Snapshot{Meta: meta, Body: body}, nil
}

func (f *Fetcher) fetchLive(ctx context.Context, bashoID string, req domain.RequiredSnapshot) (*domain.Snapshot, error) {
	fail := func(msg string, err error, details ...string) error {
		return &domain.IngestError{
			Code: domain.CodeFetchFailed, Msg: msg, BashoID: bashoID, Source: req.Source, URL: req.URL,
			Details: details, Err: err,
		}
	}

	if f.opts.Limiter != nil {
		if err := f.opts.Limiter.Wait(ctx); err != nil {
			return nil, fail("rate limiter wait for "+req.URL, err, err.Error())
		}
		defer f.opts.Limiter.Done()
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fail("building request for "+req.URL, err, err.Error())
	}
	httpReq.Header.Set("User-Agent", f.opts.UserAgent)
	httpReq.Header.Set("Accept", req.ContentTypeHint)

	resp, err := f.opts.Client.Do(httpReq)
	if err != nil {
		return nil, fail("fetch failed for "+req.URL, err, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail("reading response body for "+req.URL, err, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(fmt.Sprintf("HTTP %d for %s", resp.StatusCode, req.URL), nil,
			fmt.Sprintf("status=%d", resp.StatusCode))
	}

	contentType := header(resp, "Content-Type")
	if contentType == "" {
		contentType = req.ContentTypeHint
	}
	meta := domain.SnapshotMeta{
		Source:        req.Source,
		URL:           req.URL,
		FetchedAt:     f.opts.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		ContentSHA256: hashing.ContentHash(body),
		Bytes:         int64(len(body)),
		ContentType:   contentType,
		HTTPStatus:    resp.StatusCode,
		ETag:          header(resp, "ETag"),
		LastModified:  header(resp, "Last-Modified"),
	}
	return &domain.Snapshot{Meta: meta, Body: body}, nil
}

// allowedHeaders are the only response headers kept on a capture.
var allowedHeaders = map[string]bool{
	"Etag":          true,
	"Last-Modified": true,
	"Content-Type":  true,
}

func header(resp *http.Response, key string) string {
	key = http.CanonicalHeaderKey(key)
	if !allowedHeaders[key] {
		return ""
	}
	return strings.TrimSpace(resp.Header.Get(key))
}

// IsFixtureMissing reports whether err is an OFFLINE_FIXTURE_MISSING failure.
func IsFixtureMissing(err error) bool {
	var ie *domain.IngestError
	return errors.As(err, &ie) && ie.Code == domain.CodeOfflineFixtureMissing && errors.Is(ie.Err, fs.ErrNotExist)
}
