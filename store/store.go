package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sky-flux/ear"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrStore matches every database failure with errors.Is.
var ErrStore = errors.New("store: operation failed")

// Error is a database failure. It matches ErrStore and unwraps to the
// driver or context error that caused it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrStore.
func (e *Error) Is(target error) bool { return target == ErrStore }

func fail(err error, format string, args ...any) error {
	return &Error{Op: fmt.Sprintf(format, args...), Err: err}
}

// Config configures a Store. The zero value is usable.
type Config struct {
	Logger *zap.Logger   // nil → no logging
	NewID  func() string // nil → random UUIDs
}

// Store saves comparison and pitch-matching records.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	path  string
	log   *zap.Logger
	newID func() string
}

// Compile-time interface checks.
var (
	_ ear.ComparisonObserver    = (*Store)(nil)
	_ ear.PitchMatchingObserver = (*Store)(nil)
)

// Open opens or creates the database at path, creating parent directories
// and tables as needed.
func Open(path string, cfg Config) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fail(err, "create directory %s", dir)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fail(err, "open %s", path)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	s := &Store{
		db:    db,
		path:  path,
		log:   cfg.Logger.Named("store"),
		newID: cfg.NewID,
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Debug("opened", zap.String("path", path))
	return s, nil
}

// initialize creates the record tables. Timestamps are Unix nanoseconds.
func (s *Store) initialize() error {
	comparisons := `
	CREATE TABLE IF NOT EXISTS comparison_records (
		id TEXT PRIMARY KEY,
		reference_note INTEGER NOT NULL,
		target_note INTEGER NOT NULL,
		target_offset REAL NOT NULL,
		correct INTEGER NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_comparison_timestamp ON comparison_records(timestamp);
	`
	matchings := `
	CREATE TABLE IF NOT EXISTS pitch_matching_records (
		id TEXT PRIMARY KEY,
		reference_note INTEGER NOT NULL,
		initial_offset REAL NOT NULL,
		user_error REAL NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pitch_matching_timestamp ON pitch_matching_records(timestamp);
	`
	for _, table := range []string{comparisons, matchings} {
		if _, err := s.db.Exec(table); err != nil {
			return fail(err, "create table")
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fail(err, "close")
	}
	return nil
}

// SaveComparison inserts r, assigning an ID when r.ID is empty. It returns
// the stored record.
func (s *Store) SaveComparison(ctx context.Context, r ear.ComparisonRecord) (ear.ComparisonRecord, error) {
	if r.ID == "" {
		r.ID = s.newID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comparison_records (id, reference_note, target_note, target_offset, correct, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, int(r.ReferenceNote), int(r.TargetNote), float64(r.TargetOffset), r.Correct, r.Timestamp.UnixNano())
	if err != nil {
		return r, fail(err, "save comparison %s", r.ID)
	}
	return r, nil
}

// SavePitchMatching inserts r, assigning an ID when r.ID is empty.
func (s *Store) SavePitchMatching(ctx context.Context, r ear.PitchMatchingRecord) (ear.PitchMatchingRecord, error) {
	if r.ID == "" {
		r.ID = s.newID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pitch_matching_records (id, reference_note, initial_offset, user_error, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		r.ID, int(r.ReferenceNote), float64(r.InitialOffset), float64(r.UserError), r.Timestamp.UnixNano())
	if err != nil {
		return r, fail(err, "save pitch matching %s", r.ID)
	}
	return r, nil
}

// Comparisons returns every comparison record, oldest first.
func (s *Store) Comparisons(ctx context.Context) ([]ear.ComparisonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference_note, target_note, target_offset, correct, timestamp
		 FROM comparison_records ORDER BY timestamp, rowid`)
	if err != nil {
		return nil, fail(err, "query comparisons")
	}
	defer rows.Close()

	var out []ear.ComparisonRecord
	for rows.Next() {
		var (
			r           ear.ComparisonRecord
			ref, target int
			offset      float64
			correct     bool
			nanos       int64
		)
		if err := rows.Scan(&r.ID, &ref, &target, &offset, &correct, &nanos); err != nil {
			return nil, fail(err, "scan comparison")
		}
		r.ReferenceNote = ear.MIDINote(ref)
		r.TargetNote = ear.MIDINote(target)
		r.TargetOffset = ear.Cents(offset)
		r.Correct = correct
		r.Timestamp = time.Unix(0, nanos).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(err, "read comparisons")
	}
	return out, nil
}

// PitchMatchings returns every pitch-matching record, oldest first.
func (s *Store) PitchMatchings(ctx context.Context) ([]ear.PitchMatchingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference_note, initial_offset, user_error, timestamp
		 FROM pitch_matching_records ORDER BY timestamp, rowid`)
	if err != nil {
		return nil, fail(err, "query pitch matchings")
	}
	defer rows.Close()

	var out []ear.PitchMatchingRecord
	for rows.Next() {
		var (
			r                ear.PitchMatchingRecord
			ref              int
			initial, userErr float64
			nanos            int64
		)
		if err := rows.Scan(&r.ID, &ref, &initial, &userErr, &nanos); err != nil {
			return nil, fail(err, "scan pitch matching")
		}
		r.ReferenceNote = ear.MIDINote(ref)
		r.InitialOffset = ear.Cents(initial)
		r.UserError = ear.Cents(userErr)
		r.Timestamp = time.Unix(0, nanos).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(err, "read pitch matchings")
	}
	return out, nil
}

// DeleteAll removes every record of both kinds in one transaction.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(err, "begin")
	}
	for _, table := range []string{"comparison_records", "pitch_matching_records"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			tx.Rollback()
			return fail(err, "delete %s", table)
		}
	}
	if err := tx.Commit(); err != nil {
		return fail(err, "commit")
	}
	s.log.Info("all records deleted")
	return nil
}

// ComparisonCompleted implements ear.ComparisonObserver.
func (s *Store) ComparisonCompleted(c ear.CompletedComparison) error {
	r, err := s.SaveComparison(context.Background(), ear.NewComparisonRecord(c))
	if err != nil {
		return err
	}
	s.log.Debug("comparison saved", zap.String("id", r.ID))
	return nil
}

// PitchMatchingCompleted implements ear.PitchMatchingObserver.
func (s *Store) PitchMatchingCompleted(m ear.CompletedPitchMatching) error {
	r, err := s.SavePitchMatching(context.Background(), ear.NewPitchMatchingRecord(m))
	if err != nil {
		return err
	}
	s.log.Debug("pitch matching saved", zap.String("id", r.ID))
	return nil
}
