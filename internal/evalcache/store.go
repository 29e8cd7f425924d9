// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evalcache persists settled analyses in SQLite so repeated
// positions skip the engine.
package evalcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/chess-coach/pkg/types"
)

// Key identifies one analysis. Results depend on the position, the search
// limit and the number of variations requested.
type Key struct {
	FEN     string
	Limit   types.SearchLimit
	MultiPV int
}

func (k Key) limitColumns() (string, int64) {
	if k.Limit.IsDepth() {
		return "depth", int64(k.Limit.Depth)
	}
	return "movetime", k.Limit.Time.Milliseconds()
}

// Store manages the evaluation cache database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the cache database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS evals (
			fen TEXT NOT NULL,
			limit_kind TEXT NOT NULL,
			limit_value INTEGER NOT NULL,
			multipv INTEGER NOT NULL,
			result TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (fen, limit_kind, limit_value, multipv)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the cached result for k. The bool is false on a miss.
func (s *Store) Get(ctx context.Context, k Key) (types.AnalysisResult, bool, error) {
	kind, value := k.limitColumns()
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM evals WHERE fen = ? AND limit_kind = ? AND limit_value = ? AND multipv = ?`,
		k.FEN, kind, value, k.MultiPV,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AnalysisResult{}, false, nil
	}
	if err != nil {
		return types.AnalysisResult{}, false, fmt.Errorf("querying cache: %w", err)
	}

	var res types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return types.AnalysisResult{}, false, fmt.Errorf("decoding cached result: %w", err)
	}
	if res.Variations == nil {
		res.Variations = []types.PrincipalVariation{}
	}
	return res, true, nil
}

// Put stores res under k. Neutral results and searches cut short by a
// timeout, a newer request or cancellation are not stored; Put reports
// whether it wrote.
func (s *Store) Put(ctx context.Context, k Key, res types.AnalysisResult) (bool, error) {
	if res.IsZero() || res.Partial || res.TimedOut {
		return false, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return false, fmt.Errorf("encoding result: %w", err)
	}

	kind, value := k.limitColumns()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO evals (fen, limit_kind, limit_value, multipv, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		k.FEN, kind, value, k.MultiPV, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("storing result: %w", err)
	}
	return true, nil
}

// Count returns the number of cached analyses.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM evals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}
