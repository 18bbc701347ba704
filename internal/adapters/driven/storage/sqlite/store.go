package sqlite

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
)

// Store is a SQLite database holding loaded builds, canonical entities and
// ingestion state. It exposes each port through a wrapper type.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens (creating if needed) the database at dbPath and runs
// pending migrations.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: database path is required", domain.ErrInvalidInput)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  func() time.Time { return time.Now().UTC() },
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// PipelineStore returns a PipelineStore backed by this store.
func (s *Store) PipelineStore() driven.PipelineStore {
	return &pipelineStore{store: s}
}

// IngestionStore returns an IngestionStore backed by this store.
func (s *Store) IngestionStore() driven.IngestionStore {
	return &ingestionStore{store: s}
}

// migration is one numbered up script, e.g. 001_initial.up.sql.
type migration struct {
	version int
	name    string
}

// pendingMigrations lists the up scripts in fsys newer than applied, in
// version order. Names must start with a unique version number.
func pendingMigrations(fsys fs.FS, applied int) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	seen := make(map[int]string, len(names))
	var pending []migration
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: name must start with a version number", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, version)
		}
		seen[version] = name
		if version > applied {
			pending = append(pending, migration{version: version, name: name})
		}
	}
	slices.SortFunc(pending, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	return pending, nil
}

// migrate applies every pending migration. Each script commits together
// with its schema_migrations row, so a failed script leaves no trace.
func (s *Store) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var applied int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	pending, err := pendingMigrations(fsys, applied)
	if err != nil {
		return err
	}
	for _, m := range pending {
		body, err := fs.ReadFile(fsys, m.name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", m.name, err)
		}
		if err := s.applyMigration(m, string(body)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(m migration, body string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %s: %w", m.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(body); err != nil {
		return fmt.Errorf("executing migration %s: %w", m.name, err)
	}
	if _, err := tx.Exec("INSERT OR IGNORE INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("recording migration %s: %w", m.name, err)
	}
	return tx.Commit()
}

// Counts reports the number of rows in each table.
func (s *Store) Counts(ctx context.Context) (driven.StoreCounts, error) {
	var c driven.StoreCounts
	targets := []struct {
		table string
		dst   *int
	}{
		{"builds", &c.Builds},
		{"build_snapshots", &c.BuildSnapshots},
		{"rikishi", &c.Rikishi},
		{"basho", &c.Basho},
		{"kimarite", &c.Kimarite},
		{"banzuke_entries", &c.BanzukeEntries},
		{"bouts", &c.Bouts},
		{"tombstones", &c.Tombstones},
		{"source_refs", &c.SourceRefs},
	}
	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return c, fmt.Errorf("counting %s: %w", t.table, err)
		}
	}
	return c, nil
}

// CountBuilds returns the number of builds with status.
func (s *Store) CountBuilds(ctx context.Context, status domain.BuildStatus) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM builds WHERE status = ?", status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting builds: %w", err)
	}
	return n, nil
}

// ==================== Pipeline Store ====================

type pipelineStore struct {
	store *Store
}

var (
	_ driven.PipelineStore = (*pipelineStore)(nil)
	_ driven.Counter       = (*Store)(nil)
)

// GetBuild retrieves a build record.
func (s *pipelineStore) GetBuild(ctx context.Context, buildID string) (*domain.BuildRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT build_id, pipeline_version, schema_version, manifest_sha256, status, created_at, updated_at
		FROM builds WHERE build_id = ?
	`, buildID)
	return scanBuild(row)
}

// LatestSuccessfulBuild returns the most recently updated SUCCESS build.
func (s *pipelineStore) LatestSuccessfulBuild(ctx context.Context, exclude string) (*domain.BuildRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT build_id, pipeline_version, schema_version, manifest_sha256, status, created_at, updated_at
		FROM builds
		WHERE status = ? AND build_id <> ?
		ORDER BY updated_at DESC, build_id DESC
		LIMIT 1
	`, domain.BuildSuccess, exclude)
	return scanBuild(row)
}

// MarkBuildFailed sets a build to FAILED, creating its record if needed.
func (s *pipelineStore) MarkBuildFailed(ctx context.Context, rec domain.BuildRecord) error {
	now := s.store.now()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO builds (build_id, pipeline_version, schema_version, manifest_sha256, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at
	`, rec.BuildID, rec.PipelineVersion, rec.SchemaVersion, rec.ManifestSHA256, domain.BuildFailed, now, now)
	if err != nil {
		return fmt.Errorf("marking build failed: %w", err)
	}
	return nil
}

// WithinTx runs fn in one transaction, rolling back if it fails.
func (s *pipelineStore) WithinTx(ctx context.Context, fn func(tx driven.PipelineTx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&pipelineTx{ctx: ctx, tx: tx, now: s.store.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func scanBuild(row *sql.Row) (*domain.BuildRecord, error) {
	var rec domain.BuildRecord
	if err := row.Scan(&rec.BuildID, &rec.PipelineVersion, &rec.SchemaVersion, &rec.ManifestSHA256,
		&rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning build: %w", err)
	}
	return &rec, nil
}

// pipelineTx implements driven.PipelineTx over a database transaction.
type pipelineTx struct {
	ctx context.Context
	tx  *sql.Tx
	now func() time.Time
}

var _ driven.PipelineTx = (*pipelineTx)(nil)

func (t *pipelineTx) exec(what, query string, args ...any) error {
	if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (t *pipelineTx) UpsertBuild(rec domain.BuildRecord) error {
	now := t.now()
	return t.exec("upserting build", `
		INSERT INTO builds (build_id, pipeline_version, schema_version, manifest_sha256, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id) DO UPDATE SET
			pipeline_version = excluded.pipeline_version,
			schema_version = excluded.schema_version,
			manifest_sha256 = excluded.manifest_sha256,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, rec.BuildID, rec.PipelineVersion, rec.SchemaVersion, rec.ManifestSHA256, rec.Status, now, now)
}

func (t *pipelineTx) ReplaceBuildSnapshots(buildID string, snaps []domain.BuildSnapshot) error {
	if err := t.exec("clearing build snapshots", "DELETE FROM build_snapshots WHERE build_id = ?", buildID); err != nil {
		return err
	}
	for _, snap := range snaps {
		if err := t.exec("inserting build snapshot", `
			INSERT OR IGNORE INTO build_snapshots (build_id, source, sha256, url, bytes)
			VALUES (?, ?, ?, ?, ?)
		`, buildID, snap.Source, snap.SHA256, snap.URL, snap.Bytes); err != nil {
			return err
		}
	}
	return nil
}

func (t *pipelineTx) SetBuildStatus(buildID string, status domain.BuildStatus) error {
	res, err := t.tx.ExecContext(t.ctx, "UPDATE builds SET status = ?, updated_at = ? WHERE build_id = ?",
		status, t.now(), buildID)
	if err != nil {
		return fmt.Errorf("setting build status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("setting build status: %w: %s", domain.ErrNotFound, buildID)
	}
	return nil
}

func (t *pipelineTx) UpsertRikishi(buildID string, r domain.Rikishi) error {
	return t.exec("upserting rikishi", `
		INSERT INTO rikishi (rikishi_id, shikona, heya, birth_date, height_cm, weight_kg, nationality,
			official_image_url, image_url, updated_build_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rikishi_id) DO UPDATE SET
			shikona = excluded.shikona,
			heya = excluded.heya,
			birth_date = excluded.birth_date,
			height_cm = excluded.height_cm,
			weight_kg = excluded.weight_kg,
			nationality = excluded.nationality,
			official_image_url = excluded.official_image_url,
			image_url = excluded.image_url,
			updated_build_id = excluded.updated_build_id
	`, r.RikishiID, r.Shikona, nullString(r.Heya), nullString(r.BirthDate), nullFloat(r.HeightCm),
		nullFloat(r.WeightKg), nullString(r.Nationality), nullString(r.OfficialImageURL),
		nullString(r.ImageURL), buildID)
}

func (t *pipelineTx) UpsertBasho(buildID string, b domain.Basho) error {
	return t.exec("upserting basho", `
		INSERT INTO basho (basho_id, label, updated_build_id) VALUES (?, ?, ?)
		ON CONFLICT(basho_id) DO UPDATE SET
			label = excluded.label,
			updated_build_id = excluded.updated_build_id
	`, b.BashoID, nullString(b.Label), buildID)
}

func (t *pipelineTx) UpsertKimarite(buildID string, k domain.Kimarite) error {
	return t.exec("upserting kimarite", `
		INSERT INTO kimarite (kimarite_id, label, updated_build_id) VALUES (?, ?, ?)
		ON CONFLICT(kimarite_id) DO UPDATE SET
			label = excluded.label,
			updated_build_id = excluded.updated_build_id
	`, k.KimariteID, nullString(k.Label), buildID)
}

func (t *pipelineTx) UpsertBanzukeEntry(buildID, id string, e domain.BanzukeEntry) error {
	return t.exec("upserting banzuke entry", `
		INSERT INTO banzuke_entries (id, basho_id, division, rank_value, side, rikishi_id, rank_label, updated_build_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			basho_id = excluded.basho_id,
			division = excluded.division,
			rank_value = excluded.rank_value,
			side = excluded.side,
			rikishi_id = excluded.rikishi_id,
			rank_label = excluded.rank_label,
			updated_build_id = excluded.updated_build_id
	`, id, e.BashoID, strings.ToLower(string(e.Division)), e.RankValue, strings.ToLower(string(e.Side)),
		e.RikishiID, nullString(e.RankLabel), buildID)
}

func (t *pipelineTx) UpsertBout(buildID string, b domain.Bout) error {
	return t.exec("upserting bout", `
		INSERT INTO bouts (bout_id, basho_id, division, day, bout_no, east_rikishi_id, west_rikishi_id,
			winner_rikishi_id, kimarite_id, updated_build_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bout_id) DO UPDATE SET
			basho_id = excluded.basho_id,
			division = excluded.division,
			day = excluded.day,
			bout_no = excluded.bout_no,
			east_rikishi_id = excluded.east_rikishi_id,
			west_rikishi_id = excluded.west_rikishi_id,
			winner_rikishi_id = excluded.winner_rikishi_id,
			kimarite_id = excluded.kimarite_id,
			updated_build_id = excluded.updated_build_id
	`, b.BoutID, b.BashoID, strings.ToLower(string(b.Division)), b.Day, b.BoutNo, b.EastRikishiID,
		b.WestRikishiID, nullString(b.WinnerRikishiID), nullString(b.KimariteID), buildID)
}

func (t *pipelineTx) Tombstone(ts domain.Tombstone) error {
	return t.exec("writing tombstone", `
		INSERT OR IGNORE INTO tombstones (entity_type, entity_id, build_id, created_at)
		VALUES (?, ?, ?, ?)
	`, ts.EntityType, ts.EntityID, ts.BuildID, t.now())
}

func (t *pipelineTx) ReplaceSourceRefs(buildID string, refs []domain.SourceRefRow) error {
	if err := t.exec("clearing source refs", "DELETE FROM source_refs WHERE build_id = ?", buildID); err != nil {
		return err
	}
	for _, r := range refs {
		if err := t.exec("inserting source ref", `
			INSERT OR IGNORE INTO source_refs
				(entity_type, entity_id, source, snapshot_sha256, url, ref_type, note, build_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.EntityType, r.EntityID, r.Source, r.SnapshotSHA256, r.URL, string(r.RefType),
			nullString(r.Note), buildID); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Ingestion Store ====================

type ingestionStore struct {
	store *Store
}

var _ driven.IngestionStore = (*ingestionStore)(nil)

// EnsurePending creates a PENDING record if none exists.
func (s *ingestionStore) EnsurePending(ctx context.Context, bashoID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO basho_ingestion (basho_id, status, updated_at) VALUES (?, ?, ?)
	`, bashoID, domain.IngestionPending, s.store.now())
	if err != nil {
		return fmt.Errorf("ensuring ingestion record: %w", err)
	}
	return nil
}

// Get retrieves the ingestion record of a basho.
func (s *ingestionStore) Get(ctx context.Context, bashoID string) (*domain.IngestionRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT basho_id, status, run_id, snapshot_count, build_id, error_message, started_at, finished_at, updated_at
		FROM basho_ingestion WHERE basho_id = ?
	`, bashoID)

	var rec domain.IngestionRecord
	var runID, buildID, errMsg sql.NullString
	var startedAt, finishedAt sql.NullTime
	if err := row.Scan(&rec.BashoID, &rec.Status, &runID, &rec.SnapshotCount, &buildID, &errMsg,
		&startedAt, &finishedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning ingestion record: %w", err)
	}
	rec.RunID = runID.String
	rec.BuildID = buildID.String
	rec.ErrorMessage = errMsg.String
	if startedAt.Valid {
		rec.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		rec.FinishedAt = &finishedAt.Time
	}
	return &rec, nil
}

// MarkInProgress starts a new attempt.
func (s *ingestionStore) MarkInProgress(ctx context.Context, bashoID, runID string) error {
	now := s.store.now()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO basho_ingestion (basho_id, status, run_id, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(basho_id) DO UPDATE SET
			status = excluded.status,
			run_id = excluded.run_id,
			started_at = excluded.started_at,
			finished_at = NULL,
			error_message = NULL,
			updated_at = excluded.updated_at
	`, bashoID, domain.IngestionInProgress, runID, now, now)
	if err != nil {
		return fmt.Errorf("marking ingestion in progress: %w", err)
	}
	return nil
}

// MarkComplete records a successful attempt.
func (s *ingestionStore) MarkComplete(ctx context.Context, bashoID string, snapshotCount int, buildID string) error {
	now := s.store.now()
	_, err := s.store.db.ExecContext(ctx, `
		UPDATE basho_ingestion SET
			status = ?, snapshot_count = ?, build_id = ?, error_message = NULL, finished_at = ?, updated_at = ?
		WHERE basho_id = ?
	`, domain.IngestionComplete, snapshotCount, buildID, now, now, bashoID)
	if err != nil {
		return fmt.Errorf("marking ingestion complete: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt.
func (s *ingestionStore) MarkFailed(ctx context.Context, bashoID, message string) error {
	now := s.store.now()
	_, err := s.store.db.ExecContext(ctx, `
		UPDATE basho_ingestion SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
		WHERE basho_id = ?
	`, domain.IngestionFailed, message, now, now, bashoID)
	if err != nil {
		return fmt.Errorf("marking ingestion failed: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// nullString maps empty strings to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullFloat maps zero to SQL NULL.
func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}
