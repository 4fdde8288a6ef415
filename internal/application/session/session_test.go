package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/retrace/internal/domain"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubCoach struct {
	mu       sync.Mutex
	payloads []domain.CoachingPayload
	release  chan struct{}
	err      error
	result   domain.CoachingResult
}

func (c *stubCoach) SubmitForCoaching(ctx context.Context, payload domain.CoachingPayload) (domain.CoachingResult, error) {
	c.mu.Lock()
	c.payloads = append(c.payloads, payload)
	c.mu.Unlock()

	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return domain.CoachingResult{}, ctx.Err()
		}
	}
	if c.err != nil {
		return domain.CoachingResult{}, c.err
	}
	return c.result, nil
}

func (c *stubCoach) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func newTestSession(coach *stubCoach, clock *fakeClock) *Session {
	opts := DefaultOptions()
	opts.Now = clock.Now
	var ids int
	opts.NewSnapshotID = func() string {
		ids++
		return fmt.Sprintf("snap-%d", ids)
	}
	if coach == nil {
		return New("sess-1", "two-sum", "u1", nil, nil, opts)
	}
	return New("sess-1", "two-sum", "u1", coach, nil, opts)
}

func failing(code string, at time.Time) domain.Attempt {
	return domain.Attempt{
		Code:      code,
		Timestamp: at,
		TestResults: []domain.TestCaseResult{
			{TestName: "t1", Passed: false, Output: domain.Number(0)},
			{TestName: "t2", Passed: true, Output: domain.Number(2)},
		},
	}
}

func passing(code string, at time.Time) domain.Attempt {
	return domain.Attempt{
		Code:      code,
		Timestamp: at,
		TestResults: []domain.TestCaseResult{
			{TestName: "t1", Passed: true, Output: domain.Number(1)},
			{TestName: "t2", Passed: true, Output: domain.Number(2)},
		},
	}
}

func TestSession_RecordDiffsAndRegressions(t *testing.T) {
	clock := &fakeClock{now: start}
	sess := newTestSession(nil, clock)
	ctx := context.Background()

	first, err := sess.Record(ctx, passing("a", start), Extras{})
	require.NoError(t, err)
	assert.True(t, first.Accepted)
	assert.Equal(t, 1, first.Snapshot.RunNumber)
	require.Len(t, first.Diffs, 2)
	assert.Nil(t, first.Diffs[0].PreviousOutput)
	assert.Equal(t, domain.GateDisabled, first.Gate)

	second, err := sess.Record(ctx, failing("b", start.Add(time.Second)), Extras{})
	require.NoError(t, err)
	assert.True(t, second.RegressionDetected)
	assert.True(t, second.Diffs[0].Regression)
	assert.True(t, second.Diffs[0].Changed)
	assert.Equal(t, []domain.Regression{{TestName: "t1", RegressedAtRun: 2}}, second.Regressions)
}

func TestSession_DuplicateStillFeedsWindow(t *testing.T) {
	clock := &fakeClock{now: start}
	sess := newTestSession(nil, clock)
	ctx := context.Background()

	_, err := sess.Record(ctx, failing("same", start), Extras{})
	require.NoError(t, err)
	dup, err := sess.Record(ctx, failing("same", start.Add(time.Second)), Extras{})
	require.NoError(t, err)

	assert.False(t, dup.Accepted)
	assert.Equal(t, 1, dup.Snapshot.RunNumber)
	assert.InDelta(t, 2.0, dup.Summary.ThrashScore, 1e-9)

	view := sess.Snapshot()
	assert.Len(t, view.History, 1)
}

func TestSession_GateFiresAndStoresCoaching(t *testing.T) {
	clock := &fakeClock{now: start}
	coach := &stubCoach{result: domain.CoachingResult{
		ReportCard: domain.ReportCard{Diagnosis: "loop bound"},
	}}
	sess := newTestSession(coach, clock)
	ctx := context.Background()

	var last RecordOutcome
	for i := 0; i < 4; i++ {
		var err error
		last, err = sess.Record(ctx, failing(fmt.Sprintf("v%d", i), start.Add(time.Duration(i)*time.Second)), Extras{ASTDump: "Module()"})
		require.NoError(t, err)
	}
	assert.True(t, last.CoachingTriggered())
	assert.InDelta(t, 4.0, last.Summary.ThrashScore, 1e-9)

	require.NoError(t, sess.WaitCoaching(ctx))
	require.Equal(t, 1, coach.calls())
	payload := coach.payloads[0]
	assert.Equal(t, "v3", payload.Code)
	assert.Equal(t, "Module()", payload.ASTDump)
	assert.Equal(t, []string{"t1"}, payload.FailedTests)

	result, ok := sess.Coaching()
	require.True(t, ok)
	assert.Equal(t, "loop bound", result.ReportCard.Diagnosis)

	history := sess.CoachingHistory()
	require.Len(t, history, 1)
	assert.Equal(t, 4, history[0].RunNumber)
}

func TestSession_GateSuppressedWhileInFlightAndCoolingDown(t *testing.T) {
	clock := &fakeClock{now: start}
	coach := &stubCoach{release: make(chan struct{})}
	sess := newTestSession(coach, clock)
	ctx := context.Background()

	decisions := make([]domain.GateDecision, 0, 6)
	for i := 0; i < 6; i++ {
		outcome, err := sess.Record(ctx, failing(fmt.Sprintf("v%d", i), start.Add(time.Duration(i)*time.Second)), Extras{})
		require.NoError(t, err)
		decisions = append(decisions, outcome.Gate)
	}
	assert.Equal(t, []domain.GateDecision{
		domain.GateBelowThreshold, domain.GateBelowThreshold, domain.GateBelowThreshold,
		domain.GateFired, domain.GateInFlight, domain.GateInFlight,
	}, decisions)
	assert.True(t, sess.Snapshot().CoachingInFlight)

	close(coach.release)
	require.NoError(t, sess.WaitCoaching(ctx))

	outcome, err := sess.Record(ctx, failing("v6", start.Add(6*time.Second)), Extras{})
	require.NoError(t, err)
	assert.Equal(t, domain.GateCoolingDown, outcome.Gate)

	// wall-clock time does not count toward the cooldown
	clock.Advance(time.Minute)
	outcome, err = sess.Record(ctx, failing("v7", start.Add(7*time.Second)), Extras{})
	require.NoError(t, err)
	assert.Equal(t, domain.GateCoolingDown, outcome.Gate)
}

func TestSession_CooldownFollowsAttemptTimestamps(t *testing.T) {
	clock := &fakeClock{now: start}
	coach := &stubCoach{}
	sess := newTestSession(coach, clock)
	ctx := context.Background()

	offsets := []int{0, 1, 2, 3, 16, 17, 18, 19, 20}
	decisions := make([]domain.GateDecision, 0, len(offsets))
	for i, offset := range offsets {
		outcome, err := sess.Record(ctx, failing(fmt.Sprintf("v%d", i), start.Add(time.Duration(offset)*time.Second)), Extras{})
		require.NoError(t, err)
		require.NoError(t, sess.WaitCoaching(ctx))
		decisions = append(decisions, outcome.Gate)
	}

	assert.Equal(t, domain.GateFired, decisions[3])
	for _, d := range decisions[4:8] {
		assert.Equal(t, domain.GateBelowThreshold, d)
	}
	assert.Equal(t, domain.GateFired, decisions[8])
	assert.Equal(t, 2, coach.calls())

	history := sess.CoachingHistory()
	require.Len(t, history, 2)
	assert.Equal(t, start.Add(3*time.Second), history[0].TriggeredAt)
	assert.Equal(t, start.Add(20*time.Second), history[1].TriggeredAt)

	view := sess.Snapshot()
	require.NotNil(t, view.LastCoachingAt)
	assert.Equal(t, start.Add(20*time.Second), *view.LastCoachingAt)
}

func TestSession_PassingRunSuppressesGate(t *testing.T) {
	clock := &fakeClock{now: start}
	coach := &stubCoach{}
	sess := newTestSession(coach, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := sess.Record(ctx, failing(fmt.Sprintf("v%d", i), start.Add(time.Duration(i)*100*time.Millisecond)), Extras{})
		require.NoError(t, err)
		require.NoError(t, sess.WaitCoaching(ctx))
	}
	before := coach.calls()

	clock.Advance(time.Minute)
	outcome, err := sess.Record(ctx, passing("fixed", start.Add(time.Second)), Extras{})
	require.NoError(t, err)
	assert.NotEqual(t, domain.GateFired, outcome.Gate)
	assert.Equal(t, before, coach.calls())
}

func TestSession_CoachingFailureLeavesStateIntact(t *testing.T) {
	clock := &fakeClock{now: start}
	coach := &stubCoach{err: errors.New("provider down")}
	sess := newTestSession(coach, clock)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := sess.Record(ctx, failing(fmt.Sprintf("v%d", i), start.Add(time.Duration(i)*time.Second)), Extras{})
		require.NoError(t, err)
	}
	require.NoError(t, sess.WaitCoaching(ctx))

	_, ok := sess.Coaching()
	assert.False(t, ok)
	history := sess.CoachingHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "provider down", history[0].Error)
	assert.Len(t, sess.Snapshot().History, 4)
	assert.False(t, sess.Snapshot().CoachingInFlight)
}

func TestSession_Diff(t *testing.T) {
	clock := &fakeClock{now: start}
	sess := newTestSession(nil, clock)
	ctx := context.Background()

	_, _ = sess.Record(ctx, failing("a", start), Extras{})
	_, _ = sess.Record(ctx, failing("b", start), Extras{})
	_, _ = sess.Record(ctx, passing("c", start), Extras{})

	diffs, err := sess.Diff(1, 3)
	require.NoError(t, err)
	require.Len(t, diffs, 2)
	assert.True(t, diffs[0].Fixed)

	diffs, err = sess.Diff(0, 2)
	require.NoError(t, err)
	assert.Nil(t, diffs[0].PreviousOutput)

	_, err = sess.Diff(1, 9)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSession_CloseBuildsArtifact(t *testing.T) {
	clock := &fakeClock{now: start}
	sess := newTestSession(nil, clock)
	ctx := context.Background()

	_, _ = sess.Record(ctx, passing("a", start), Extras{})
	_, _ = sess.Record(ctx, failing("b", start.Add(time.Second)), Extras{})
	_, _ = sess.Record(ctx, failing("b", start.Add(2*time.Second)), Extras{})

	artifact, err := sess.Close(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", artifact.SessionID)
	assert.Equal(t, "two-sum", artifact.ProblemID)
	assert.Equal(t, 2, artifact.RunCount)
	require.Len(t, artifact.RunOutcomes, 2)
	assert.False(t, artifact.EndedGreen())
	assert.Len(t, artifact.Regressions, 1)
	assert.Empty(t, artifact.Snapshots)

	_, err = sess.Record(ctx, passing("c", start), Extras{})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = sess.Close(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_CloseCancelsSlowCoaching(t *testing.T) {
	clock := &fakeClock{now: start}
	coach := &stubCoach{release: make(chan struct{})}
	sess := newTestSession(coach, clock)

	for i := 0; i < 4; i++ {
		_, err := sess.Record(context.Background(), failing(fmt.Sprintf("v%d", i), start.Add(time.Duration(i)*time.Second)), Extras{})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	artifact, err := sess.Close(ctx)
	require.NoError(t, err)
	require.Len(t, artifact.Coaching, 1)
	assert.Contains(t, artifact.Coaching[0].Error, "context canceled")
}

func TestSession_WaitCoachingAlongsideRecord(t *testing.T) {
	clock := &fakeClock{now: start}
	coach := &stubCoach{release: make(chan struct{})}
	sess := newTestSession(coach, clock)
	ctx := context.Background()

	require.NoError(t, sess.WaitCoaching(ctx))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 8; i++ {
			_, err := sess.Record(ctx, failing(fmt.Sprintf("v%d", i), start.Add(time.Duration(i)*time.Second)), Extras{})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 8; i++ {
			waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			_ = sess.WaitCoaching(waitCtx)
			cancel()
		}
	}()
	wg.Wait()

	require.True(t, sess.Snapshot().CoachingInFlight)
	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sess.WaitCoaching(blocked), context.DeadlineExceeded)

	close(coach.release)
	require.NoError(t, sess.WaitCoaching(ctx))
	assert.False(t, sess.Snapshot().CoachingInFlight)
	assert.Len(t, sess.CoachingHistory(), 1)
}
