package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/infrastructure/cli/helpers"
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose config, archive, cache and provider credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Container == nil || env.Container.DoctorService == nil {
				return errors.New(ErrDoctorServiceUnavailable)
			}
			report, err := env.Container.DoctorService.Run(cmd.Context())

			// report is printed even when a check aborted the run
			helpers.NewRenderer(cmd.OutOrStdout()).HealthReport(report)

			if err != nil {
				return fmt.Errorf("diagnostics completed with errors: %w", err)
			}
			if report.Worst() == domain.HealthError {
				return errors.New("diagnostics found failing checks")
			}
			return nil
		},
	}
}
