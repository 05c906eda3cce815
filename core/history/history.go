// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package history records sync runs in a SQLite database.

Each run stores, per locale, the merge statistics, every status change and a
zstd-compressed copy of the catalog file as it was before the run. The copy is
what [Store.Snapshot] hands back to undo a bad sync.
*/
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"codeberg.org/lingosync/lingosync/core/merge"
)

var (
	// ErrRunNotFound is returned for an unknown run id.
	ErrRunNotFound = errors.New("run not found")
	// ErrNoSnapshot is returned when a run kept no copy of a locale's catalog,
	// either because the locale was not part of the run or because its catalog
	// did not exist yet.
	ErrNoSnapshot = errors.New("no snapshot for locale")
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  command     TEXT NOT NULL,
  dry_run     INTEGER NOT NULL CHECK (dry_run IN (0,1)),
  started_at  TEXT NOT NULL,
  finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE TABLE IF NOT EXISTS run_locales (
  run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  locale   TEXT NOT NULL,
  path     TEXT NOT NULL,
  format   TEXT NOT NULL,
  written  INTEGER NOT NULL CHECK (written IN (0,1)),
  stats    TEXT NOT NULL,
  snapshot BLOB,
  PRIMARY KEY (run_id, locale)
);
CREATE TABLE IF NOT EXISTS status_changes (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  locale          TEXT NOT NULL,
  kind            TEXT NOT NULL,
  context         TEXT NOT NULL,
  source          TEXT NOT NULL,
  disambiguation  TEXT NOT NULL,
  previous_source TEXT NOT NULL,
  from_status     TEXT NOT NULL,
  to_status       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_run ON status_changes(run_id, locale);
`

// Store is a run history database. It is safe for concurrent use.
type Store struct {
	sql *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log zerolog.Logger
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("create history schema: %w", err)
	}

	// A nil writer/reader is enough for EncodeAll/DecodeAll.
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()

		return nil, err
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		db.Close()

		return nil, err
	}

	return &Store{
		sql: db,
		enc: enc,
		dec: dec,
		log: log.With().Str("sys", "history").Logger(),
	}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}

	s.dec.Close()

	return s.sql.Close()
}

// Run describes one invocation of a catalog-changing command.
type Run struct {
	ID         uuid.UUID `json:"id"          yaml:"id"`
	Command    string    `json:"command"     yaml:"command"`
	DryRun     bool      `json:"dry_run"     yaml:"dry_run"`
	StartedAt  time.Time `json:"started_at"  yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// NewRun starts a run record for command.
func NewRun(command string, dryRun bool) Run {
	return Run{ID: uuid.New(), Command: command, DryRun: dryRun, StartedAt: time.Now().UTC()}
}

// Locale is the part of a run that concerns one target locale.
type Locale struct {
	Locale  string         `json:"locale"  yaml:"locale"`
	Path    string         `json:"path"    yaml:"path"`
	Format  string         `json:"format"  yaml:"format"`
	Written bool           `json:"written" yaml:"written"`
	Stats   merge.Stats    `json:"stats"   yaml:"stats"`
	Changes []merge.Change `json:"-"       yaml:"-"`
	// Previous is the catalog file content before the run; nil when the file did not exist.
	Previous []byte `json:"-" yaml:"-"`
}

// Record stores run and its locales in one transaction.
func (s *Store) Record(ctx context.Context, run Run, locales []Locale) (err error) {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}

	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs(id, command, dry_run, started_at, finished_at) VALUES(?,?,?,?,?)`,
		run.ID.String(), run.Command, boolToInt(run.DryRun), formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	for _, l := range locales {
		if err = s.recordLocale(ctx, tx, run.ID, &l); err != nil {
			return fmt.Errorf("record run %s locale %s: %w", run.ID, l.Locale, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	s.log.Debug().
		Str("run", run.ID.String()).
		Str("command", run.Command).
		Int("locales", len(locales)).
		Msg("Recorded run")

	return nil
}

func (s *Store) recordLocale(ctx context.Context, tx *sql.Tx, id uuid.UUID, l *Locale) error {
	stats, err := json.Marshal(l.Stats)
	if err != nil {
		return err
	}

	var snapshot []byte
	if l.Previous != nil {
		snapshot = s.enc.EncodeAll(l.Previous, nil)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO run_locales(run_id, locale, path, format, written, stats, snapshot) VALUES(?,?,?,?,?,?,?)`,
		id.String(), l.Locale, l.Path, l.Format, boolToInt(l.Written), string(stats), snapshot)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO status_changes(run_id, locale, kind, context, source, disambiguation, previous_source, from_status, to_status) VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range l.Changes {
		_, err = stmt.ExecContext(ctx, id.String(), l.Locale, string(c.Kind), c.Context, c.Source,
			c.Disambiguation, c.PreviousSource, c.From.String(), c.To.String())
		if err != nil {
			return err
		}
	}

	return nil
}

// RunSummary is a run with its locales.
type RunSummary struct {
	Run     `yaml:",inline"`
	Locales []Locale `json:"locales" yaml:"locales"`
	Changes int      `json:"changes" yaml:"changes"`
}

// List returns the most recent runs first, at most limit of them (all when limit <= 0).
func (s *Store) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sql.QueryContext(ctx,
		`SELECT id, command, dry_run, started_at, finished_at FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}

	var out []RunSummary

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()

			return nil, err
		}

		out = append(out, RunSummary{Run: run})
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.fillSummary(ctx, &out[i]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*RunSummary, error) {
	row := s.sql.QueryRowContext(ctx,
		`SELECT id, command, dry_run, started_at, finished_at FROM runs WHERE id = ?`, id.String())

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	sum := &RunSummary{Run: run}
	if err := s.fillSummary(ctx, sum); err != nil {
		return nil, err
	}

	return sum, nil
}

func (s *Store) fillSummary(ctx context.Context, sum *RunSummary) error {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT locale, path, format, written, stats FROM run_locales WHERE run_id = ? ORDER BY locale`, sum.ID.String())
	if err != nil {
		return err
	}

	for rows.Next() {
		var (
			l       Locale
			written int
			stats   string
		)

		if err := rows.Scan(&l.Locale, &l.Path, &l.Format, &written, &stats); err != nil {
			rows.Close()

			return err
		}

		l.Written = written == 1

		if err := json.Unmarshal([]byte(stats), &l.Stats); err != nil {
			rows.Close()

			return fmt.Errorf("decode stats of run %s: %w", sum.ID, err)
		}

		sum.Locales = append(sum.Locales, l)
	}

	if err := rows.Close(); err != nil {
		return err
	}

	return s.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM status_changes WHERE run_id = ?`, sum.ID.String()).Scan(&sum.Changes)
}

// Changes returns the status changes a run recorded for locale, in merge order.
func (s *Store) Changes(ctx context.Context, id uuid.UUID, locale string) ([]merge.Change, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT kind, context, source, disambiguation, previous_source, from_status, to_status
		 FROM status_changes WHERE run_id = ? AND locale = ? ORDER BY id`, id.String(), locale)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []merge.Change

	for rows.Next() {
		var (
			c        merge.Change
			kind     string
			from, to string
		)

		if err := rows.Scan(&kind, &c.Context, &c.Source, &c.Disambiguation, &c.PreviousSource, &from, &to); err != nil {
			return nil, err
		}

		c.Kind = merge.ChangeKind(kind)

		if err := c.From.UnmarshalText([]byte(from)); err != nil {
			return nil, err
		}

		if err := c.To.UnmarshalText([]byte(to)); err != nil {
			return nil, err
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

// Snapshot is a catalog file as it was before a run.
type Snapshot struct {
	Path    string
	Format  string
	Content []byte
}

// Snapshot returns the pre-run copy of locale's catalog.
func (s *Store) Snapshot(ctx context.Context, id uuid.UUID, locale string) (*Snapshot, error) {
	var (
		snap       Snapshot
		compressed []byte
	)

	err := s.sql.QueryRowContext(ctx,
		`SELECT path, format, snapshot FROM run_locales WHERE run_id = ? AND locale = ?`, id.String(), locale).
		Scan(&snap.Path, &snap.Format, &compressed)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, gerr := s.Get(ctx, id); gerr != nil {
			return nil, gerr
		}

		return nil, fmt.Errorf("%w %s in run %s", ErrNoSnapshot, locale, id)
	case err != nil:
		return nil, err
	case compressed == nil:
		return nil, fmt.Errorf("%w %s in run %s", ErrNoSnapshot, locale, id)
	}

	snap.Content, err = s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot of %s in run %s: %w", locale, id, err)
	}

	return &snap, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		id                string
		dryRun            int
		started, finished string
	)

	if err := row.Scan(&id, &run.Command, &dryRun, &started, &finished); err != nil {
		return Run{}, err
	}

	var err error

	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("bad run id %q: %w", id, err)
	}

	run.DryRun = dryRun == 1

	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, err
	}

	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, err
	}

	return run, nil
}

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
