package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/pkg/filesystem"
	"github.com/doeshing/retrace/internal/ports"
)

// FileStore appends session artifacts to a jsonl file.
type FileStore struct {
	path string
}

// DefaultFilePath is ~/.retrace/archive/sessions.jsonl.
func DefaultFilePath() string {
	return filesystem.AppDir("archive", "sessions.jsonl")
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFilePath()
	}
	return &FileStore{path: path}
}

// Save implements ports.SessionArchive.
func (f *FileStore) Save(_ context.Context, artifact domain.SessionArtifact) error {
	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	data = append(data, '\n')

	return filesystem.WithLock(f.path, func() error {
		file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = file.Write(data)
		return err
	})
}

// Get returns the last saved artifact with the given ID.
func (f *FileStore) Get(_ context.Context, sessionID string) (domain.SessionArtifact, error) {
	artifacts, err := f.records()
	if err != nil {
		return domain.SessionArtifact{}, err
	}
	for i := len(artifacts) - 1; i >= 0; i-- {
		if artifacts[i].SessionID == sessionID {
			return artifacts[i], nil
		}
	}
	return domain.SessionArtifact{}, fmt.Errorf("%s: %w", sessionID, ErrNotFound)
}

// List returns artifacts newest first. limit, problemID and userID are optional.
func (f *FileStore) List(_ context.Context, limit int, problemID, userID string) ([]domain.SessionArtifact, error) {
	artifacts, err := f.records()
	if err != nil {
		return nil, err
	}
	var out []domain.SessionArtifact
	for i := len(artifacts) - 1; i >= 0; i-- {
		if problemID != "" && artifacts[i].ProblemID != problemID {
			continue
		}
		if userID != "" && artifacts[i].UserID != userID {
			continue
		}
		out = append(out, artifacts[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Clear removes the archive file.
func (f *FileStore) Clear(context.Context) error {
	return filesystem.WithLock(f.path, func() error {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

// ExportJSON copies the archive, newest first, to dest.
func (f *FileStore) ExportJSON(ctx context.Context, dest string) error {
	artifacts, err := f.List(ctx, 0, "", "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, artifacts)
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// records loads all artifacts (best-effort, malformed lines are skipped).
func (f *FileStore) records() ([]domain.SessionArtifact, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var artifacts []domain.SessionArtifact
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var artifact domain.SessionArtifact
		if err := json.Unmarshal(line, &artifact); err == nil {
			artifacts = append(artifacts, artifact)
		}
	}
	return artifacts, scanner.Err()
}

var _ ports.SessionArchive = (*FileStore)(nil)
