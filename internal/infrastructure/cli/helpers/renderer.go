package helpers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/doeshing/retrace/internal/application/session"
	"github.com/doeshing/retrace/internal/domain"
)

// Renderer prints session state for humans. Color is enabled only when out is
// a terminal.
type Renderer struct {
	out io.Writer

	red    *color.Color
	green  *color.Color
	yellow *color.Color
	bold   *color.Color
	faint  *color.Color
}

// NewRenderer builds a renderer for out.
func NewRenderer(out io.Writer) *Renderer {
	r := &Renderer{
		out:    out,
		red:    color.New(color.FgRed),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		bold:   color.New(color.Bold),
		faint:  color.New(color.Faint),
	}
	if !isTerminal(out) {
		for _, c := range []*color.Color{r.red, r.green, r.yellow, r.bold, r.faint} {
			c.DisableColor()
		}
	}
	return r
}

func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// Outcome prints one recorded attempt.
func (r *Renderer) Outcome(outcome session.RecordOutcome) {
	snap := outcome.Snapshot
	if !outcome.Accepted {
		r.faint.Fprintf(r.out, "run %d: unchanged code, not recorded\n", snap.RunNumber)
	} else {
		r.bold.Fprintf(r.out, "run %d", snap.RunNumber)
		fmt.Fprintf(r.out, "  %d/%d passed  (%s)\n", snap.PassCount, len(snap.Results), snap.ID)
		for _, diff := range outcome.Diffs {
			r.Diff(diff)
		}
	}

	summary := outcome.Summary
	fmt.Fprintf(r.out, "  thrash %.2f  convergence %.2f  to-pass %s\n",
		summary.ThrashScore, summary.ConvergenceRate, FormatSecondsToPass(summary))
	if outcome.RegressionDetected {
		r.red.Fprintln(r.out, "  regression detected")
	}
	if outcome.CoachingTriggered() {
		r.yellow.Fprintln(r.out, "  coaching requested")
	} else if outcome.Gate != domain.GateDisabled {
		r.faint.Fprintf(r.out, "  gate: %s\n", outcome.Gate)
	}
}

// Diff prints one test line.
func (r *Renderer) Diff(diff domain.TestDiff) {
	switch {
	case diff.Regression:
		r.red.Fprintf(r.out, "  ✗ %s regressed: %s -> %s\n", diff.TestName, previous(diff), diff.CurrentOutput)
	case diff.Fixed:
		r.green.Fprintf(r.out, "  ✓ %s fixed: %s\n", diff.TestName, diff.CurrentOutput)
	case diff.Changed:
		fmt.Fprintf(r.out, "  ~ %s changed: %s -> %s\n", diff.TestName, previous(diff), diff.CurrentOutput)
	case diff.PreviousOutput == nil:
		fmt.Fprintf(r.out, "  + %s: %s\n", diff.TestName, diff.CurrentOutput)
	default:
		r.faint.Fprintf(r.out, "  = %s\n", diff.TestName)
	}
}

func previous(diff domain.TestDiff) string {
	if diff.PreviousOutput == nil {
		return "-"
	}
	return diff.PreviousOutput.String()
}

// Regressions prints the regression list.
func (r *Renderer) Regressions(regressions []domain.Regression) {
	if len(regressions) == 0 {
		r.green.Fprintln(r.out, "No regressions.")
		return
	}
	for _, reg := range regressions {
		r.red.Fprintf(r.out, "%s regressed at run %d\n", reg.TestName, reg.RegressedAtRun)
	}
}

// Coaching prints a settled coaching call.
func (r *Renderer) Coaching(outcome domain.CoachingOutcome) {
	r.bold.Fprintf(r.out, "Coaching for run %d", outcome.RunNumber)
	fmt.Fprintf(r.out, " (%s)\n", outcome.SettledAt.Sub(outcome.TriggeredAt).Round(time.Millisecond))
	if outcome.Result == nil {
		r.red.Fprintf(r.out, "  failed: %s\n", outcome.Error)
		return
	}
	card := outcome.Result.ReportCard
	fmt.Fprintf(r.out, "  Diagnosis: %s\n", card.Diagnosis)
	if card.MentalModelGap != "" {
		fmt.Fprintf(r.out, "  Mental model gap: %s\n", card.MentalModelGap)
	}
	if card.VerificationChallenge != "" {
		r.yellow.Fprintf(r.out, "  Challenge: %s\n", card.VerificationChallenge)
	}
}

// ArtifactLine prints a one-line summary of an archived session.
func (r *Renderer) ArtifactLine(artifact domain.SessionArtifact) {
	status := r.red.Sprint("red")
	if artifact.EndedGreen() {
		status = r.green.Sprint("green")
	}
	fmt.Fprintf(r.out, "%s | %s | %d runs | %s | %s\n",
		artifact.SessionID,
		defaultLabel(artifact.ProblemID),
		artifact.RunCount,
		status,
		humanize.Time(artifact.CreatedAt))
}

// Signals prints archive-wide stats.
func (r *Renderer) Signals(signals domain.Signals) {
	fmt.Fprintf(r.out, "Sessions: %s\n", humanize.Comma(int64(signals.SessionCount)))
	fmt.Fprintf(r.out, "Full pass rate: %.1f%%\n", signals.FullPassRate*100)
	fmt.Fprintf(r.out, "Average runs: %.1f\n", signals.AverageRuns)
	if signals.NarrativeFlagCount > 0 {
		r.yellow.Fprintf(r.out, "Narrative flags: %d\n", signals.NarrativeFlagCount)
	} else {
		fmt.Fprintln(r.out, "Narrative flags: 0")
	}
	reliability := string(signals.NarrativeReliability)
	switch signals.NarrativeReliability {
	case domain.NarrativeReliabilityHigh:
		reliability = r.green.Sprint(reliability)
	case domain.NarrativeReliabilityMedium:
		reliability = r.yellow.Sprint(reliability)
	case domain.NarrativeReliabilityLow:
		reliability = r.red.Sprint(reliability)
	}
	fmt.Fprintf(r.out, "Narrative reliability: %s\n", reliability)
}

// HealthReport prints doctor checks.
func (r *Renderer) HealthReport(report domain.HealthReport) {
	for _, check := range report.Checks {
		label := strings.ToUpper(string(check.Status))
		switch check.Status {
		case domain.HealthOK:
			label = r.green.Sprint(label)
		case domain.HealthWarn:
			label = r.yellow.Sprint(label)
		case domain.HealthError:
			label = r.red.Sprint(label)
		}
		fmt.Fprintf(r.out, "[%s] %s - %s\n", label, check.Name, check.Details)
	}
}

// FormatSecondsToPass renders the active-time metric, "never" when no run passed.
func FormatSecondsToPass(summary domain.SessionSummary) string {
	if !summary.HasPassed() {
		return "never"
	}
	return (time.Duration(summary.ActiveSecondsToPass * float64(time.Second))).Round(time.Millisecond).String()
}

func defaultLabel(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
