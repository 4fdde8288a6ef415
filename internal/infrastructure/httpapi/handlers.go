package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/doeshing/retrace/internal/application/session"
	"github.com/doeshing/retrace/internal/domain"
)

const maxAttemptBytes = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps session errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type openSessionRequest struct {
	ProblemID string `json:"problemId"`
	UserID    string `json:"userId"`
}

type sessionInfo struct {
	ID        string `json:"id"`
	ProblemID string `json:"problemId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type attemptRequest struct {
	domain.Attempt
	ASTDump     string       `json:"astDump,omitempty"`
	VizSnapshot domain.Value `json:"vizSnapshot"`
}

type closeResponse struct {
	Artifact     domain.SessionArtifact `json:"artifact"`
	ArchiveError string                 `json:"archiveError,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.manager.List()),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	open := s.manager.List()
	out := make([]sessionInfo, 0, len(open))
	for _, sess := range open {
		out = append(out, sessionInfo{
			ID:        sess.ID(),
			ProblemID: sess.ProblemID(),
			UserID:    sess.UserID(),
			CreatedAt: sess.CreatedAt().Format(domain.TimestampFormat),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	sess := s.manager.Open(req.ProblemID, req.UserID)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleRecordAttempt(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req attemptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAttemptBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid attempt body")
		return
	}

	outcome, err := sess.Record(r.Context(), req.Attempt, session.Extras{
		ASTDump:     req.ASTDump,
		VizSnapshot: req.VizSnapshot,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// handleDiff compares ?from= and ?to= run numbers. `to` defaults to the latest
// run and `from` to the run retained just before it.
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	view := sess.Snapshot()
	if view.Latest == nil {
		writeJSON(w, http.StatusOK, []domain.TestDiff{})
		return
	}

	to, err := intParam(r, "to", view.Latest.RunNumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to")
		return
	}
	from, err := intParam(r, "from", previousRun(view.History, to))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}

	diffs, err := sess.Diff(from, to)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, diffs)
}

func (s *Server) handleRegressions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	view := sess.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"regressionDetected": view.RegressionDetected,
		"regressions":        view.Regressions,
	})
}

func (s *Server) handleCoaching(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	view := sess.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"inFlight": view.CoachingInFlight,
		"latest":   view.Coaching,
		"history":  sess.CoachingHistory(),
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	artifact, err := s.manager.Close(r.Context(), id)
	s.limiters.forget(id)
	if err != nil && artifact.SessionID == "" {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := closeResponse{Artifact: artifact}
	if err != nil {
		s.log.Error("archive failed", err, map[string]interface{}{"session": id})
		resp.ArchiveError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func previousRun(history []domain.ExecutionSnapshot, to int) int {
	prev := 0
	for _, snap := range history {
		if snap.RunNumber >= to {
			break
		}
		prev = snap.RunNumber
	}
	return prev
}
