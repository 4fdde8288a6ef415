package commands

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/doeshing/retrace/internal/infrastructure/httpapi"
)

// NewServeCommand runs the HTTP API the browser sandbox reports attempts to.
func NewServeCommand(env *Env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := env.Container
			if container == nil || container.Sessions == nil {
				return errors.New(ErrContainerUnavailable)
			}

			opts := httpapi.OptionsFromConfig(container.Config)
			if addr != "" {
				opts.Addr = addr
			}
			server, err := httpapi.NewServer(container.Sessions, container.Logger, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}
