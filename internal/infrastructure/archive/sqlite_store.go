package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/pkg/filesystem"
	"github.com/doeshing/retrace/internal/ports"
)

// ErrNotFound is returned when no archived session has the requested ID.
var ErrNotFound = errors.New("archived session not found")

// fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists session artifacts in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultSQLitePath is ~/.retrace/archive/sessions.db.
func DefaultSQLitePath() string {
	return filesystem.AppDir("archive", "sessions.db")
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		problem_id TEXT,
		user_id TEXT,
		created_at TEXT,
		run_count INTEGER,
		ended_green INTEGER,
		thrash_score REAL,
		convergence_rate REAL,
		artifact TEXT
	);
	CREATE INDEX IF NOT EXISTS sessions_problem ON sessions(problem_id, created_at);
	CREATE INDEX IF NOT EXISTS sessions_user ON sessions(user_id, created_at);`)
	return err
}

// Save inserts or replaces an artifact.
func (s *SQLiteStore) Save(ctx context.Context, artifact domain.SessionArtifact) error {
	raw, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO sessions
		(id, problem_id, user_id, created_at, run_count, ended_green, thrash_score, convergence_rate, artifact)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.SessionID,
		artifact.ProblemID,
		artifact.UserID,
		artifact.CreatedAt.UTC().Format(timeLayout),
		artifact.RunCount,
		boolToInt(artifact.EndedGreen()),
		artifact.Summary.ThrashScore,
		artifact.Summary.ConvergenceRate,
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// Get loads one artifact by session ID.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (domain.SessionArtifact, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT artifact FROM sessions WHERE id = ?", sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionArtifact{}, fmt.Errorf("%s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return domain.SessionArtifact{}, err
	}
	return decodeArtifact(raw)
}

// List returns artifacts newest first. limit, problemID and userID are optional.
func (s *SQLiteStore) List(ctx context.Context, limit int, problemID, userID string) ([]domain.SessionArtifact, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT artifact FROM sessions")
	var (
		where []string
		args  []interface{}
	)
	if problemID != "" {
		where = append(where, "problem_id = ?")
		args = append(args, problemID)
	}
	if userID != "" {
		where = append(where, "user_id = ?")
		args = append(args, userID)
	}
	if len(where) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(where, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC, id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []domain.SessionArtifact
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		artifact, err := decodeArtifact(raw)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

// Clear deletes all archived sessions.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions")
	return err
}

// ExportJSON writes every artifact to a jsonl file.
func (s *SQLiteStore) ExportJSON(ctx context.Context, dest string) error {
	artifacts, err := s.List(ctx, 0, "", "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, artifacts)
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeArtifact(raw string) (domain.SessionArtifact, error) {
	var artifact domain.SessionArtifact
	if err := json.Unmarshal([]byte(raw), &artifact); err != nil {
		return domain.SessionArtifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	return artifact, nil
}

func writeJSONL(dest string, artifacts []domain.SessionArtifact) error {
	var buf strings.Builder
	for _, artifact := range artifacts {
		if artifact.CreatedAt.IsZero() {
			artifact.CreatedAt = time.Now()
		}
		b, err := json.Marshal(artifact)
		if err != nil {
			return err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return filesystem.AtomicWrite(dest, []byte(buf.String()), 0o644)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.SessionArchive = (*SQLiteStore)(nil)
