package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/infrastructure/ai"
	"github.com/doeshing/retrace/internal/infrastructure/cli/helpers"
	"github.com/doeshing/retrace/internal/ports"
)

// NewModelsCommand manages the coaching models in the config file.
func NewModelsCommand(env *Env) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage coaching model configurations",
	}

	modelsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List configured models",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd.Context(), env)
				if err != nil {
					return err
				}
				listModels(cmd.OutOrStdout(), cfg)
				return nil
			},
		},
		&cobra.Command{
			Use:   "use <name>",
			Short: "Set the default coaching model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return updateModels(cmd, env, func(cfg *domain.Config) error {
					return cfg.SetDefaultModel(args[0])
				}, fmt.Sprintf("Default model set to %s", args[0]))
			},
		},
		&cobra.Command{
			Use:   "fallback [name...]",
			Short: "Replace the ordered fallback list (no names clears it)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return updateModels(cmd, env, func(cfg *domain.Config) error {
					cfg.Preferences.FallbackModels = args
					return cfg.ValidateConsistency()
				}, fmt.Sprintf("Fallbacks: %s", defaultList(args)))
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Remove a model definition",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return updateModels(cmd, env, func(cfg *domain.Config) error {
					return cfg.RemoveModel(args[0])
				}, fmt.Sprintf("Removed model %s", args[0]))
			},
		},
		newModelsAddCommand(env),
		&cobra.Command{
			Use:   "test <name>",
			Short: "Send a one-line request to a model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return testModel(cmd.Context(), cmd.OutOrStdout(), env, args[0])
			},
		},
	)
	return modelsCmd
}

func newModelsAddCommand(env *Env) *cobra.Command {
	var model domain.ModelDefinition
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a model definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateModels(cmd, env, func(cfg *domain.Config) error {
				return cfg.AddModel(model)
			}, fmt.Sprintf("Added model %s", model.Name))
		},
	}
	cmd.Flags().StringVar(&model.Name, "name", "", "Model name (identifier)")
	cmd.Flags().StringVar(&model.Endpoint, "endpoint", "", "Provider endpoint URL")
	cmd.Flags().StringVar(&model.ModelID, "model-id", "", "Model identifier at the provider")
	cmd.Flags().StringVar(&model.AuthEnvVar, "auth-env", "", "Environment variable holding the API key")
	cmd.Flags().StringVar(&model.OrgEnvVar, "org-env", "", "Environment variable holding the org/project ID")
	cmd.Flags().IntVar(&model.MaxTokens, "max-tokens", domain.DefaultMaxTokens, "Max tokens per coaching reply")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("endpoint")
	return cmd
}

func loadConfig(ctx context.Context, env *Env) (domain.Config, error) {
	loader, err := helpers.GetConfigLoader(env.Container)
	if err != nil {
		return domain.Config{}, err
	}
	cfg, err := loader.Load(ctx)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// updateModels loads the config, applies mutate and saves it only when the
// result still validates.
func updateModels(cmd *cobra.Command, env *Env, mutate func(*domain.Config) error, done string) error {
	cfg, err := loadConfig(cmd.Context(), env)
	if err != nil {
		return err
	}
	if err := mutate(&cfg); err != nil {
		return err
	}
	if err := helpers.SaveConfigWithValidation(env.Container, cfg); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), done)
	return nil
}

func listModels(out io.Writer, cfg domain.Config) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPROVIDER\tMODEL ID\tDEFAULT")
	for _, model := range cfg.Models {
		marker := ""
		if model.Name == cfg.Preferences.DefaultModel {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", model.Name, ai.InferProviderKind(model.Endpoint, model.Name), model.ModelID, marker)
	}
	tw.Flush()
	if len(cfg.Preferences.FallbackModels) > 0 {
		fmt.Fprintf(out, "Fallbacks: %s\n", strings.Join(cfg.Preferences.FallbackModels, ", "))
	}
}

func testModel(ctx context.Context, out io.Writer, env *Env, name string) error {
	cfg, err := loadConfig(ctx, env)
	if err != nil {
		return err
	}
	model, ok := cfg.FindModelByName(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, domain.ErrModelNotFound)
	}
	provider, err := ai.NewFactory().ForModel(model)
	if err != nil {
		return err
	}

	testCtx, cancel := context.WithTimeout(ctx, domain.DefaultModelTestTimeout)
	defer cancel()
	if _, err := provider.Generate(testCtx, ports.ProviderRequest{
		System: "Reply with the single word OK.",
		Prompt: "ping",
		Model:  model,
	}); err != nil {
		return fmt.Errorf("model %s test failed: %w", name, err)
	}
	fmt.Fprintf(out, "Model %s responded successfully.\n", name)
	return nil
}

func defaultList(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
