package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/retrace/internal/app"
	"github.com/doeshing/retrace/internal/infrastructure/cli/commands"
)

// EnvDebug forces debug logging when set to 1 or true.
const EnvDebug = "RETRACE_DEBUG"

// Options holds CLI-level configuration.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCmd wires the cobra root command. The container is built lazily in
// PersistentPreRunE so --config and --debug are honoured.
func NewRootCmd(ctx context.Context, opts Options) *cobra.Command {
	env := &commands.Env{}

	root := &cobra.Command{
		Use:   "retrace",
		Short: "retrace - execution history and thrash coaching for coding practice",
		Long: "retrace records every run of a practice solution, diffs test outputs across runs, " +
			"flags regressions and asks a coach for help when the edit-run loop starts thrashing.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[commands.SkipContainerAnnotation] != "" {
				return nil
			}
			container, err := app.BuildContainer(cmd.Context(), app.Options{
				ConfigPath: opts.ConfigPath,
				Verbose:    opts.Verbose || IsVerboseEnv(),
				LogOutput:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			env.Container = container
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if env.Container == nil {
				return nil
			}
			return env.Container.Close()
		},
	}
	root.SetContext(ctx)

	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Config file (default ~/.retrace/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.Verbose, "debug", opts.Verbose, "Enable debug logging")

	root.AddCommand(
		commands.NewReplayCommand(env),
		commands.NewServeCommand(env),
		commands.NewArchiveCommand(env),
		commands.NewCacheCommand(env),
		commands.NewConfigCommand(env),
		commands.NewModelsCommand(env),
		commands.NewDoctorCommand(env),
		commands.NewVersionCommand(),
	)
	return root
}

// IsVerboseEnv reports whether RETRACE_DEBUG requests debug logging.
func IsVerboseEnv() bool {
	value := os.Getenv(EnvDebug)
	return value == "1" || strings.EqualFold(value, "true")
}
