package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/pkg/logger"
	"github.com/doeshing/retrace/internal/ports"
)

var (
	// ErrSessionClosed is returned when recording into a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrRunNotFound is returned when a run number is not in the retained history.
	ErrRunNotFound = errors.New("run not found")
)

// Extras carries optional attempt context forwarded to the coach.
type Extras struct {
	ASTDump     string
	VizSnapshot domain.Value
}

// RecordOutcome is everything a caller renders after one attempt.
type RecordOutcome struct {
	Accepted           bool                     `json:"accepted"`
	Snapshot           domain.ExecutionSnapshot `json:"snapshot"`
	Diffs              []domain.TestDiff        `json:"diffs"`
	Regressions        []domain.Regression      `json:"regressions"`
	RegressionDetected bool                     `json:"regressionDetected"`
	Summary            domain.SessionSummary    `json:"summary"`
	Gate               domain.GateDecision      `json:"gate"`
}

// CoachingTriggered reports whether this attempt dispatched a coaching call.
func (o RecordOutcome) CoachingTriggered() bool {
	return o.Gate == domain.GateFired
}

// View is a read-only rendering of the session state.
type View struct {
	ID                 string                     `json:"id"`
	ProblemID          string                     `json:"problemId,omitempty"`
	UserID             string                     `json:"userId,omitempty"`
	CreatedAt          time.Time                  `json:"createdAt"`
	History            []domain.ExecutionSnapshot `json:"history"`
	Latest             *domain.ExecutionSnapshot  `json:"latest,omitempty"`
	PassRateOverTime   []float64                  `json:"passRateOverTime"`
	RegressionDetected bool                       `json:"regressionDetected"`
	Regressions        []domain.Regression        `json:"regressions"`
	Summary            domain.SessionSummary      `json:"summary"`
	CoachingInFlight   bool                       `json:"coachingInFlight"`
	LastCoachingAt     *time.Time                 `json:"lastCoachingAt,omitempty"`
	Coaching           *domain.CoachingResult     `json:"coaching,omitempty"`
}

// Session is one student's attempt history for one open problem. All methods
// are safe for concurrent use; appends are serialized.
type Session struct {
	id        string
	problemID string
	userID    string
	createdAt time.Time

	coach  ports.Coach
	logger ports.Logger
	opts   Options

	mu          sync.Mutex
	store       *domain.SnapshotStore
	window      *domain.RunWindow
	gate        *domain.CoachingGate
	runOutcomes []domain.RunOutcome
	coaching    []domain.CoachingOutcome
	latest      *domain.CoachingResult
	closed      bool

	// pending counts coaching calls in flight; idle is closed when it drops to zero
	pending     int
	idle        chan struct{}
	coachCtx    context.Context
	cancelCoach context.CancelFunc
}

// New creates a session. A nil coach disables coaching; a nil logger discards logs.
func New(id, problemID, userID string, coach ports.Coach, log ports.Logger, opts Options) *Session {
	opts = opts.withDefaults()
	if log == nil {
		log = logger.Nop{}
	}

	storeOpts := []domain.SnapshotStoreOption{domain.WithCapacity(opts.HistoryCapacity)}
	if opts.NewSnapshotID != nil {
		storeOpts = append(storeOpts, domain.WithIDGenerator(opts.NewSnapshotID))
	}

	coachCtx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:          id,
		problemID:   problemID,
		userID:      userID,
		createdAt:   opts.Now(),
		coach:       coach,
		logger:      log,
		opts:        opts,
		store:       domain.NewSnapshotStore(storeOpts...),
		window:      domain.NewRunWindow(opts.WindowSize),
		gate:        domain.NewCoachingGate(opts.Threshold, opts.Cooldown),
		coachCtx:    coachCtx,
		cancelCoach: cancel,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ProblemID returns the problem this session is attached to.
func (s *Session) ProblemID() string { return s.problemID }

// UserID returns the owning user, if known.
func (s *Session) UserID() string { return s.userID }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Record appends one attempt. Every attempt feeds the thrash window, even when
// its code duplicates the previous snapshot. The gate's cooldown is measured on
// attempt timestamps, the same clock the thrash score uses. When the gate fires
// the coaching call runs in the background and its outcome never affects
// recorded state.
func (s *Session) Record(ctx context.Context, attempt domain.Attempt, extras Extras) (RecordOutcome, error) {
	if err := ctx.Err(); err != nil {
		return RecordOutcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return RecordOutcome{}, ErrSessionClosed
	}
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = s.opts.Now()
	}

	snapshot, accepted := s.store.Add(attempt)
	run := domain.NewSnapshot(attempt)
	event := run.RunEvent()
	s.window.Append(event)

	if accepted {
		s.runOutcomes = append(s.runOutcomes, domain.RunOutcome{
			RunNumber:   snapshot.RunNumber,
			Timestamp:   snapshot.Timestamp,
			TestsPassed: snapshot.PassCount,
			TestsTotal:  len(snapshot.Results),
			Terminated:  snapshot.Terminated,
		})
	}

	history := s.store.History()
	outcome := RecordOutcome{
		Accepted:           accepted,
		Snapshot:           snapshot,
		Diffs:              diffLatest(history),
		Regressions:        domain.DetectRegressions(history),
		RegressionDetected: s.store.RegressionDetected(),
		Summary:            s.window.Summary(),
	}

	outcome.Gate = domain.GateDisabled
	if s.opts.CoachingEnabled && s.coach != nil {
		now := event.Timestamp
		outcome.Gate = s.gate.TryBegin(outcome.Summary, event, now)
		if outcome.Gate == domain.GateFired {
			payload := domain.CoachingPayload{
				Code:        attempt.Code,
				ASTDump:     extras.ASTDump,
				Metrics:     outcome.Summary,
				FailedTests: run.FailedTests(),
				VizSnapshot: extras.VizSnapshot,
			}
			s.beginCoaching()
			go s.runCoaching(payload, snapshot.RunNumber, now)
		}
	}

	s.logger.Debug("attempt recorded", map[string]interface{}{
		"session":  s.id,
		"run":      snapshot.RunNumber,
		"accepted": accepted,
		"thrash":   outcome.Summary.ThrashScore,
		"gate":     string(outcome.Gate),
	})
	return outcome, nil
}

func diffLatest(history []domain.ExecutionSnapshot) []domain.TestDiff {
	n := len(history)
	if n == 0 {
		return []domain.TestDiff{}
	}
	var prev *domain.ExecutionSnapshot
	if n >= 2 {
		prev = &history[n-2]
	}
	return domain.DiffSnapshots(prev, history[n-1])
}

// beginCoaching must be called with s.mu held.
func (s *Session) beginCoaching() {
	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++
}

func (s *Session) endCoaching() {
	s.mu.Lock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
	s.mu.Unlock()
}

func (s *Session) runCoaching(payload domain.CoachingPayload, runNumber int, triggeredAt time.Time) {
	defer s.endCoaching()
	defer s.gate.Finish()

	ctx, cancel := context.WithTimeout(s.coachCtx, s.opts.CoachingTimeout)
	defer cancel()

	result, err := s.coach.SubmitForCoaching(ctx, payload)

	outcome := domain.CoachingOutcome{
		TriggeredAt: triggeredAt,
		SettledAt:   s.opts.Now(),
		RunNumber:   runNumber,
		Metrics:     payload.Metrics,
	}
	if err != nil {
		outcome.Error = err.Error()
		s.logger.Warn("coaching call failed", map[string]interface{}{
			"session": s.id,
			"run":     runNumber,
			"error":   err.Error(),
		})
	} else {
		outcome.Result = &result
		s.logger.Info("coaching received", map[string]interface{}{
			"session": s.id,
			"run":     runNumber,
		})
	}

	s.mu.Lock()
	s.coaching = append(s.coaching, outcome)
	if outcome.Result != nil {
		s.latest = outcome.Result
	}
	s.mu.Unlock()
}

// Coaching returns the most recent successful coaching result.
func (s *Session) Coaching() (domain.CoachingResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return domain.CoachingResult{}, false
	}
	return *s.latest, true
}

// CoachingHistory returns every settled coaching call, oldest first.
func (s *Session) CoachingHistory() []domain.CoachingOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CoachingOutcome, len(s.coaching))
	copy(out, s.coaching)
	return out
}

// WaitCoaching blocks until the coaching calls outstanding when it is called
// settle or ctx ends. It may run concurrently with Record.
func (s *Session) WaitCoaching(ctx context.Context) error {
	s.mu.Lock()
	if s.pending == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Summary scores the current run window.
func (s *Session) Summary() domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Summary()
}

// Snapshot returns a read-only view for rendering.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.store.History()
	view := View{
		ID:                 s.id,
		ProblemID:          s.problemID,
		UserID:             s.userID,
		CreatedAt:          s.createdAt,
		History:            history,
		PassRateOverTime:   s.store.PassRateOverTime(),
		RegressionDetected: s.store.RegressionDetected(),
		Regressions:        domain.DetectRegressions(history),
		Summary:            s.window.Summary(),
		CoachingInFlight:   s.gate.InFlight(),
	}
	if latest, ok := s.store.Latest(); ok {
		view.Latest = &latest
	}
	if last := s.gate.LastTrigger(); !last.IsZero() {
		view.LastCoachingAt = &last
	}
	if s.latest != nil {
		result := *s.latest
		view.Coaching = &result
	}
	return view
}

// Diff compares two retained runs. A fromRun of 0 diffs toRun against nothing.
func (s *Session) Diff(fromRun, toRun int) ([]domain.TestDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	curr, ok := s.store.ByRun(toRun)
	if !ok {
		return nil, fmt.Errorf("run %d: %w", toRun, ErrRunNotFound)
	}
	if fromRun == 0 {
		return domain.DiffSnapshots(nil, curr), nil
	}
	prev, ok := s.store.ByRun(fromRun)
	if !ok {
		return nil, fmt.Errorf("run %d: %w", fromRun, ErrRunNotFound)
	}
	return domain.DiffSnapshots(&prev, curr), nil
}

// Close stops accepting attempts, waits for outstanding coaching (cancelling it
// when ctx ends first) and returns the session artifact.
func (s *Session) Close(ctx context.Context) (domain.SessionArtifact, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.SessionArtifact{}, ErrSessionClosed
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.WaitCoaching(ctx); err != nil {
		s.logger.Warn("cancelling outstanding coaching", map[string]interface{}{"session": s.id})
		s.cancelCoach()
		_ = s.WaitCoaching(context.Background())
	}
	s.cancelCoach()

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.store.History()
	artifact := domain.SessionArtifact{
		SessionID:   s.id,
		UserID:      s.userID,
		ProblemID:   s.problemID,
		RunCount:    len(s.runOutcomes),
		Summary:     s.window.Summary(),
		RunOutcomes: append([]domain.RunOutcome(nil), s.runOutcomes...),
		Regressions: domain.DetectRegressions(history),
		Coaching:    append([]domain.CoachingOutcome(nil), s.coaching...),
		CreatedAt:   s.createdAt,
	}
	if s.opts.IncludeSnapshots {
		artifact.Snapshots = history
	}
	return artifact, nil
}
