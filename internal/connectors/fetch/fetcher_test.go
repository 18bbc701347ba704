package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/storage/snapshot"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
)

func writeFixture(t *testing.T, dir string, req domain.RequiredSnapshot, body string, bytesOverride int) {
	t.Helper()
	base := FixtureBase("202401", req)
	require.NoError(t, os.WriteFile(filepath.Join(dir, base+".html"), []byte(body), 0o644))

	n := len(body)
	if bytesOverride >= 0 {
		n = bytesOverride
	}
	meta := fmt.Sprintf(`{"source":%q,"url":%q,"fetchedAt":"2024-01-01T00:00:00.000Z","contentSha256":%q,"bytes":%d,"contentType":"text/html","httpStatus":200}`,
		req.Source, req.URL, hashing.ContentHash([]byte(body)), n)
	require.NoError(t, os.WriteFile(filepath.Join(dir, base+".meta.json"), []byte(meta), 0o644))
}

func ingestCode(t *testing.T, err error) domain.IngestErrorCode {
	t.Helper()
	var ie *domain.IngestError
	require.ErrorAs(t, err, &ie)
	return ie.Code
}

func TestRequiredSnapshots(t *testing.T) {
	reqs := RequiredSnapshots(" 202401 ")
	require.Len(t, reqs, 8)
	assert.Equal(t, "https://www.sumo.or.jp/EnHonbashoBanzuke/202401", reqs[0].URL)
	assert.Equal(t, KindRikishi, reqs[1].Kind)
	assert.Equal(t, "bouts.makuuchi", reqs[2].Kind)
	assert.Equal(t, "https://sumodb.sumogames.de/Results.aspx?b=202401&d=Jonokuchi", reqs[7].URL)

	d, ok := IsBoutsKind(reqs[3].Kind)
	assert.True(t, ok)
	assert.Equal(t, domain.Juryo, d)
	_, ok = IsBoutsKind(KindBanzuke)
	assert.False(t, ok)
}

func TestFetch_Offline(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewStore(t.TempDir())
	req := RequiredSnapshots("202401")[0]
	writeFixture(t, dir, req, "<html>banzuke</html>", -1)

	f := New(Options{Mode: domain.IngestOffline, FixturesDir: dir}, store)
	snap, err := f.Fetch(context.Background(), "202401", req)
	require.NoError(t, err)
	assert.Equal(t, "<html>banzuke</html>", string(snap.Body))
	assert.Equal(t, domain.SourceJSA, snap.Meta.Source)

	_, body, err := store.Get(domain.SourceJSA, snap.Meta.ContentSHA256)
	require.NoError(t, err)
	assert.Equal(t, snap.Body, body)
}

func TestFetch_OfflineErrors(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewStore(t.TempDir())
	reqs := RequiredSnapshots("202401")
	f := New(Options{Mode: domain.IngestOffline, FixturesDir: dir}, store)

	_, err := f.Fetch(context.Background(), "202401", reqs[0])
	assert.Equal(t, domain.CodeOfflineFixtureMissing, ingestCode(t, err))
	assert.True(t, IsFixtureMissing(err))

	writeFixture(t, dir, reqs[1], "<html>roster</html>", 3)
	_, err = f.Fetch(context.Background(), "202401", reqs[1])
	assert.Equal(t, domain.CodeSourceChanged, ingestCode(t, err))

	writeFixture(t, dir, reqs[2], "<html>day 1</html>", -1)
	base := FixtureBase("202401", reqs[2])
	require.NoError(t, os.WriteFile(filepath.Join(dir, base+".html"), []byte("<html>day 2</html>"), 0o644))
	_, err = f.Fetch(context.Background(), "202401", reqs[2])
	assert.Equal(t, domain.CodeSourceChanged, ingestCode(t, err))
}

func TestFetch_Live(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("X-Secret", "do-not-keep")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	store := snapshot.NewStore(t.TempDir())
	now := time.Date(2024, 1, 14, 9, 30, 0, 0, time.UTC)
	f := New(Options{
		Mode:      domain.IngestLive,
		UserAgent: "test-agent",
		Timeout:   time.Second,
		Client:    srv.Client(),
		Now:       func() time.Time { return now },
	}, store)

	req := domain.RequiredSnapshot{Source: domain.SourceSumoDB, Kind: KindRikishi, URL: srv.URL + "/Banzuke.aspx?b=202401", ContentTypeHint: "text/html"}
	snap, err := f.Fetch(context.Background(), "202401", req)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "text/html", gotAccept)
	assert.Equal(t, `"abc"`, snap.Meta.ETag)
	assert.Equal(t, "text/html; charset=utf-8", snap.Meta.ContentType)
	assert.Equal(t, "2024-01-14T09:30:00.000Z", snap.Meta.FetchedAt)
	assert.Equal(t, hashing.ContentHash([]byte("<html>ok</html>")), snap.Meta.ContentSHA256)
	require.NoError(t, snap.Meta.Validate())

	_, _, err = store.Get(domain.SourceSumoDB, snap.Meta.ContentSHA256)
	require.NoError(t, err)
}

func TestFetch_LiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(200 * time.Millisecond)
		}
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := New(Options{Mode: domain.IngestLive, Timeout: 50 * time.Millisecond, Client: srv.Client()}, snapshot.NewStore(t.TempDir()))

	_, err := f.Fetch(context.Background(), "202401", domain.RequiredSnapshot{Source: domain.SourceJSA, URL: srv.URL + "/x", ContentTypeHint: "text/html"})
	assert.Equal(t, domain.CodeFetchFailed, ingestCode(t, err))
	assert.Contains(t, err.Error(), "HTTP 403")

	_, err = f.Fetch(context.Background(), "202401", domain.RequiredSnapshot{Source: domain.SourceJSA, URL: srv.URL + "/slow", ContentTypeHint: "text/html"})
	assert.Equal(t, domain.CodeFetchFailed, ingestCode(t, err))
}

func TestRateLimiter_SpacesRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html>" + time.Now().String() + "</html>"))
	}))
	defer srv.Close()

	f := New(Options{Mode: domain.IngestLive, Client: srv.Client(), Limiter: NewRateLimiter(100 * time.Millisecond)}, snapshot.NewStore(t.TempDir()))
	req := domain.RequiredSnapshot{Source: domain.SourceSumoDB, URL: srv.URL, ContentTypeHint: "text/html"}

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), "202401", req)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 190*time.Millisecond)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRateLimiter_SpacesFromResponseCompletion(t *testing.T) {
	var mu sync.Mutex
	var arrivals []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		time.Sleep(150 * time.Millisecond)
		_, _ = w.Write([]byte("<html>slow</html>"))
	}))
	defer srv.Close()

	f := New(Options{Mode: domain.IngestLive, Client: srv.Client(), Limiter: NewRateLimiter(100 * time.Millisecond)}, snapshot.NewStore(t.TempDir()))
	req := domain.RequiredSnapshot{Source: domain.SourceSumoDB, URL: srv.URL, ContentTypeHint: "text/html"}
	for range 2 {
		_, err := f.Fetch(context.Background(), "202401", req)
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, arrivals, 2)
	assert.GreaterOrEqual(t, arrivals[1].Sub(arrivals[0]), 240*time.Millisecond,
		"the second request waits a full interval after the first response")
}
