// Package store persists response matrices and correction runs in SQLite.
//
// Matrices and optics frames are stored as their YAML documents, so a row
// can be exported with the same tools that read the files. Every completed
// iteration of a run is one row in iterations; runs holds the final state.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/katalvlaran/opticorr/correction"
	"github.com/katalvlaran/opticorr/model"
	"github.com/katalvlaran/opticorr/optics"
	"github.com/katalvlaran/opticorr/response"
)

// ErrNotFound is returned when a named response or run does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is a SQLite-backed archive. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// RunRecord is the stored summary of one correction run.
type RunRecord struct {
	RunID      string
	State      string
	Error      string
	Correction model.Correction
	FinalRMS   float64
	StartedAt  time.Time
	FinishedAt *time.Time
}

// IterationRecord is one stored step of a run.
type IterationRecord struct {
	Iteration  int
	RMS        float64
	Rank       int
	Correction model.Correction
	Model      *optics.Frame
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s.db = db
	if err = s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Debug("store opened", zap.String("path", path))

	return s, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		name TEXT PRIMARY KEY,
		rows INTEGER NOT NULL,
		cols INTEGER NOT NULL,
		document BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		error TEXT,
		correction BLOB,
		final_rms REAL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS iterations (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		iteration INTEGER NOT NULL,
		rms REAL NOT NULL,
		svd_rank INTEGER NOT NULL,
		correction BLOB NOT NULL,
		model BLOB NOT NULL,
		PRIMARY KEY (run_id, iteration)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: schema: %w", err)
	}

	return nil
}

// SaveResponse stores m under name, replacing any previous matrix.
func (s *Store) SaveResponse(ctx context.Context, name string, m *response.Matrix) error {
	var buf bytes.Buffer
	if err := response.Encode(&buf, m); err != nil {
		return err
	}
	r, c := m.Shape()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO responses (name, rows, cols, document, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		name, r, c, buf.Bytes(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: save response %q: %w", name, err)
	}

	return nil
}

// LoadResponse returns the matrix stored under name.
func (s *Store) LoadResponse(ctx context.Context, name string) (*response.Matrix, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM responses WHERE name = ?`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("response %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load response %q: %w", name, err)
	}

	return response.Decode(bytes.NewReader(doc))
}

// ListResponses returns the stored matrix names in lexical order.
func (s *Store) ListResponses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM responses ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list responses: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err = rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	return out, rows.Err()
}

// SaveArtifact records one committed iteration. It matches
// correction.Input.OnIteration.
func (s *Store) SaveArtifact(ctx context.Context, a correction.Artifact) error {
	corr, err := encodeCorrection(a.Correction)
	if err != nil {
		return err
	}
	var frame bytes.Buffer
	if err = optics.EncodeFrame(&frame, a.Model); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO runs (run_id, state, started_at) VALUES (?, ?, ?)`,
		a.RunID, correction.StateIterating.String(), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("store: register run %s: %w", a.RunID, err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO iterations (run_id, iteration, rms, svd_rank, correction, model)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Iteration, a.Residual.RMS, a.Rank, corr, frame.Bytes(),
	); err != nil {
		return fmt.Errorf("store: save iteration %d of %s: %w", a.Iteration, a.RunID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.logger.Debug("iteration stored", zap.String("run_id", a.RunID), zap.Int("iteration", a.Iteration))

	return nil
}

// FinishRun records the terminal state of res.
func (s *Store) FinishRun(ctx context.Context, res correction.Result) error {
	corr, err := encodeCorrection(res.Correction)
	if err != nil {
		return err
	}
	var errText sql.NullString
	if res.Err != nil {
		errText = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	var final sql.NullFloat64
	if res.Final != nil {
		final = sql.NullFloat64{Float64: res.Final.RMS, Valid: true}
	}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, state, error, correction, final_rms, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			state = excluded.state,
			error = excluded.error,
			correction = excluded.correction,
			final_rms = excluded.final_rms,
			finished_at = excluded.finished_at`,
		res.RunID, res.State.String(), errText, corr, final, now, now,
	)
	if err != nil {
		return fmt.Errorf("store: finish run %s: %w", res.RunID, err)
	}

	return nil
}

// Run returns the stored summary of runID.
func (s *Store) Run(ctx context.Context, runID string) (RunRecord, error) {
	var (
		rec      = RunRecord{RunID: runID}
		errText  sql.NullString
		corr     []byte
		final    sql.NullFloat64
		finished sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT state, error, correction, final_rms, started_at, finished_at
		FROM runs WHERE run_id = ?`, runID,
	).Scan(&rec.State, &errText, &corr, &final, &rec.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("store: run %s: %w", runID, err)
	}
	rec.Error = errText.String
	rec.FinalRMS = final.Float64
	if finished.Valid {
		t := finished.Time
		rec.FinishedAt = &t
	}
	if len(corr) > 0 {
		if rec.Correction, err = decodeCorrection(corr); err != nil {
			return RunRecord{}, err
		}
	}

	return rec, nil
}

// Iterations returns the stored steps of runID in iteration order.
func (s *Store) Iterations(ctx context.Context, runID string) ([]IterationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, rms, svd_rank, correction, model
		FROM iterations WHERE run_id = ? ORDER BY iteration`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: iterations of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []IterationRecord
	for rows.Next() {
		var (
			rec         IterationRecord
			corr, frame []byte
		)
		if err = rows.Scan(&rec.Iteration, &rec.RMS, &rec.Rank, &corr, &frame); err != nil {
			return nil, err
		}
		if rec.Correction, err = decodeCorrection(corr); err != nil {
			return nil, err
		}
		if rec.Model, err = optics.DecodeFrame(bytes.NewReader(frame)); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

type correctionEntry struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

func encodeCorrection(c model.Correction) ([]byte, error) {
	entries := make([]correctionEntry, 0, c.Len())
	for _, n := range c.Names() {
		v, _ := c.Get(n)
		entries = append(entries, correctionEntry{Name: n, Value: v})
	}
	out, err := yaml.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("store: encode correction: %w", err)
	}

	return out, nil
}

func decodeCorrection(b []byte) (model.Correction, error) {
	var entries []correctionEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return model.Correction{}, fmt.Errorf("store: decode correction: %w", err)
	}
	var c model.Correction
	for _, e := range entries {
		c.Set(e.Name, e.Value)
	}

	return c, nil
}
