package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/retrace/internal/domain"
)

type memoryArchive struct {
	mu        sync.Mutex
	artifacts []domain.SessionArtifact
	err       error
}

func (a *memoryArchive) Save(_ context.Context, artifact domain.SessionArtifact) error {
	if a.err != nil {
		return a.err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.artifacts = append(a.artifacts, artifact)
	return nil
}

func (a *memoryArchive) Get(_ context.Context, id string) (domain.SessionArtifact, error) {
	for _, artifact := range a.artifacts {
		if artifact.SessionID == id {
			return artifact, nil
		}
	}
	return domain.SessionArtifact{}, errors.New("missing")
}

func (a *memoryArchive) List(context.Context, int, string, string) ([]domain.SessionArtifact, error) {
	return a.artifacts, nil
}

func (a *memoryArchive) Clear(context.Context) error {
	a.artifacts = nil
	return nil
}

func (a *memoryArchive) ExportJSON(context.Context, string) error { return nil }
func (a *memoryArchive) Path() string                            { return "memory" }

func TestManager_OpenGetList(t *testing.T) {
	m := NewManager(nil, nil, nil, DefaultOptions())

	first := m.Open("p1", "u1")
	second := m.Open("p2", "u1")
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Len(t, first.ID(), 26)

	got, err := m.Get(first.ID())
	require.NoError(t, err)
	assert.Same(t, first, got)

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Len(t, m.List(), 2)
}

func TestManager_CloseArchives(t *testing.T) {
	archive := &memoryArchive{}
	m := NewManager(nil, archive, nil, DefaultOptions())
	ctx := context.Background()

	sess := m.Open("p1", "u1")
	_, err := sess.Record(ctx, passing("a", start), Extras{})
	require.NoError(t, err)

	artifact, err := m.Close(ctx, sess.ID())
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), artifact.SessionID)
	require.Len(t, archive.artifacts, 1)
	assert.True(t, archive.artifacts[0].EndedGreen())

	_, err = m.Get(sess.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Close(ctx, sess.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_CloseReturnsArtifactOnArchiveError(t *testing.T) {
	archive := &memoryArchive{err: errors.New("disk full")}
	m := NewManager(nil, archive, nil, DefaultOptions())

	sess := m.Open("p1", "")
	artifact, err := m.Close(context.Background(), sess.ID())
	assert.Error(t, err)
	assert.Equal(t, sess.ID(), artifact.SessionID)
}

func TestManager_CloseAll(t *testing.T) {
	archive := &memoryArchive{}
	m := NewManager(nil, archive, nil, DefaultOptions())
	m.Open("p1", "")
	m.Open("p2", "")

	require.NoError(t, m.CloseAll(context.Background()))
	assert.Empty(t, m.List())
	assert.Len(t, archive.artifacts, 2)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := domain.Config{
		Session:  domain.SessionSettings{HistoryCapacity: 10},
		Coaching: domain.CoachingSettings{Enabled: true, Cooldown: "5s"},
		Archive:  domain.ArchiveSettings{IncludeSnapshots: true},
	}
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 10, opts.HistoryCapacity)
	assert.Equal(t, domain.DefaultRunWindowSize, opts.WindowSize)
	assert.True(t, opts.CoachingEnabled)
	assert.True(t, opts.IncludeSnapshots)
	assert.Equal(t, "5s", opts.Cooldown.String())
}
