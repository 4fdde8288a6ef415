package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/pkg/logger"
	"github.com/doeshing/retrace/internal/ports"
)

// ErrSessionNotFound is returned for unknown or already closed session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Manager owns the open sessions of a process. Archive is optional.
type Manager struct {
	Coach   ports.Coach
	Archive ports.SessionArchive
	Logger  ports.Logger
	Options Options

	mu       sync.RWMutex
	sessions map[string]*Session
	newID    func() string
}

// NewManager builds a manager with ULID session IDs.
func NewManager(coach ports.Coach, archive ports.SessionArchive, log ports.Logger, opts Options) *Manager {
	if log == nil {
		log = logger.Nop{}
	}
	return &Manager{
		Coach:    coach,
		Archive:  archive,
		Logger:   log,
		Options:  opts,
		sessions: make(map[string]*Session),
		newID:    NewSessionID,
	}
}

// NewSessionID returns a time-ordered unique session identifier.
func NewSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Open starts a new session for a problem.
func (m *Manager) Open(problemID, userID string) *Session {
	sess := New(m.newID(), problemID, userID, m.Coach, m.Logger, m.Options)

	m.mu.Lock()
	m.sessions[sess.ID()] = sess
	m.mu.Unlock()

	m.Logger.Info("session opened", map[string]interface{}{
		"session": sess.ID(),
		"problem": problemID,
	})
	return sess
}

// Get looks up an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

// List returns open sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Close removes a session, waits for its coaching to settle and archives it.
// The artifact is returned even when archiving fails.
func (m *Manager) Close(ctx context.Context, id string) (domain.SessionArtifact, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return domain.SessionArtifact{}, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}

	artifact, err := sess.Close(ctx)
	if err != nil {
		return domain.SessionArtifact{}, fmt.Errorf("close session: %w", err)
	}

	m.Logger.Info("session closed", map[string]interface{}{
		"session": id,
		"runs":    artifact.RunCount,
	})

	if m.Archive == nil {
		return artifact, nil
	}
	if err := m.Archive.Save(ctx, artifact); err != nil {
		return artifact, fmt.Errorf("archive session: %w", err)
	}
	return artifact, nil
}

// CloseAll closes every open session, collecting archive errors.
func (m *Manager) CloseAll(ctx context.Context) error {
	var errs []error
	for _, sess := range m.List() {
		if _, err := m.Close(ctx, sess.ID()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
