package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/retrace/internal/application/session"
	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/infrastructure/cli/helpers"
)

// ReplayAttempt is one line of a replay file.
type ReplayAttempt struct {
	domain.Attempt
	ASTDump     string       `json:"astDump,omitempty"`
	VizSnapshot domain.Value `json:"vizSnapshot"`
}

type replayOptions struct {
	problem     string
	user        string
	archive     bool
	jsonOutput  bool
	waitTimeout time.Duration
}

// NewReplayCommand feeds recorded attempts through a fresh session.
func NewReplayCommand(env *Env) *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay <attempts.jsonl>",
		Short: "Replay recorded attempts and print diffs, regressions and coaching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Container == nil || env.Container.Sessions == nil {
				return errors.New(ErrContainerUnavailable)
			}
			attempts, err := ReadAttempts(args[0])
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), cmd.OutOrStdout(), env.Container.Sessions, attempts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.problem, "problem", "", "Problem ID recorded on the session")
	cmd.Flags().StringVar(&opts.user, "user", "", "User ID recorded on the session")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "Archive the session when the replay ends")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print one JSON outcome per attempt")
	cmd.Flags().DurationVar(&opts.waitTimeout, "wait", domain.DefaultCoachingTimeout, "How long to wait for outstanding coaching at the end")
	return cmd
}

// ReadAttempts loads a JSONL replay file. Blank lines are skipped.
func ReadAttempts(path string) ([]ReplayAttempt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var attempts []ReplayAttempt
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var attempt ReplayAttempt
		if err := json.Unmarshal(raw, &attempt); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, scanner.Err()
}

func runReplay(ctx context.Context, out io.Writer, manager *session.Manager, attempts []ReplayAttempt, opts replayOptions) error {
	sess := manager.Open(opts.problem, opts.user)
	renderer := helpers.NewRenderer(out)
	enc := json.NewEncoder(out)

	for _, attempt := range attempts {
		outcome, err := sess.Record(ctx, attempt.Attempt, session.Extras{
			ASTDump:     attempt.ASTDump,
			VizSnapshot: attempt.VizSnapshot,
		})
		if err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		if opts.jsonOutput {
			if err := enc.Encode(outcome); err != nil {
				return err
			}
			continue
		}
		renderer.Outcome(outcome)
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.waitTimeout)
	defer cancel()

	var (
		artifact domain.SessionArtifact
		err      error
	)
	if opts.archive {
		artifact, err = manager.Close(waitCtx, sess.ID())
	} else {
		artifact, err = sess.Close(waitCtx)
	}
	if err != nil && artifact.SessionID == "" {
		return err
	}

	if opts.jsonOutput {
		if encErr := enc.Encode(artifact); encErr != nil {
			return encErr
		}
		return err
	}

	fmt.Fprintln(out)
	renderer.Regressions(artifact.Regressions)
	for _, coaching := range artifact.Coaching {
		renderer.Coaching(coaching)
	}
	fmt.Fprintf(out, "Session %s: %d runs, final thrash %.2f\n", artifact.SessionID, artifact.RunCount, artifact.Summary.ThrashScore)
	return err
}
