package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/infrastructure/cli/helpers"
	"github.com/doeshing/retrace/internal/ports"
)

// NewArchiveCommand creates the archive command with all subcommands
func NewArchiveCommand(env *Env) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived sessions",
	}

	archiveCmd.AddCommand(
		newArchiveListCommand(env),
		newArchiveShowCommand(env),
		newArchiveStatsCommand(env),
		newArchiveExportCommand(env),
		newArchiveClearCommand(env),
	)
	return archiveCmd
}

func sessionArchive(env *Env) (ports.SessionArchive, error) {
	if env.Container == nil || env.Container.Archive == nil {
		return nil, errors.New(ErrArchiveUnavailable)
	}
	return env.Container.Archive, nil
}

func newArchiveListCommand(env *Env) *cobra.Command {
	var (
		limit   int
		problem string
		user    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent archived sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sessionArchive(env)
			if err != nil {
				return err
			}
			artifacts, err := store.List(cmd.Context(), limit, problem, user)
			if err != nil {
				return fmt.Errorf("failed to list archive: %w", err)
			}
			if len(artifacts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), MsgNoArchivedSessions)
				return nil
			}
			renderer := helpers.NewRenderer(cmd.OutOrStdout())
			for _, artifact := range artifacts {
				renderer.ArtifactLine(artifact)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultArchiveListLimit, "Max sessions to show")
	cmd.Flags().StringVar(&problem, "problem", "", "Only sessions for this problem")
	cmd.Flags().StringVar(&user, "user", "", "Only sessions owned by this user")
	return cmd
}

func newArchiveShowCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print one archived session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sessionArchive(env)
			if err != nil {
				return err
			}
			artifact, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(artifact)
		},
	}
}

func newArchiveStatsCommand(env *Env) *cobra.Command {
	var problem, user string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pass rate, average runs and narrative reliability",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sessionArchive(env)
			if err != nil {
				return err
			}
			artifacts, err := store.List(cmd.Context(), domain.MaxArchiveAnalysisRecords, problem, user)
			if err != nil {
				return fmt.Errorf("failed to list archive: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(artifacts) == 0 {
				fmt.Fprintln(out, MsgNoArchivedSessions)
				return nil
			}
			helpers.NewRenderer(out).Signals(domain.ComputeSignals(artifacts))

			fmt.Fprintln(out, "Top problems:")
			for _, stat := range helpers.TopCounts(helpers.SessionsPerProblem(artifacts), 5) {
				fmt.Fprintf(out, "  %s: %d\n", stat.Key, stat.Count)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&problem, "problem", "", "Only sessions for this problem")
	cmd.Flags().StringVar(&user, "user", "", "Only sessions owned by this user")
	return cmd
}

func newArchiveExportCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export the archive to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sessionArchive(env)
			if err != nil {
				return err
			}
			if err := store.ExportJSON(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to export archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", args[0])
			return nil
		},
	}
}

func newArchiveClearCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every archived session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sessionArchive(env)
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Path())
			return nil
		},
	}
}
