package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/drewmudry/manimgen-api/processing"
	"github.com/drewmudry/manimgen-api/render"
	"github.com/drewmudry/manimgen-api/sanitizer"
)

type generateOptions struct {
	CodeOnly bool
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Ask the model for a scene and render it",
		Long: `Send a prompt to the configured model (LLM_API_ENDPOINT, LLM_MODEL),
sanitize the reply and render it. With --code-only the sanitized script is
printed instead of rendered.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return reportError(rootOpts, cmd, err)
			}
			gen, err := processing.NewGenerator(cfg)
			if err != nil {
				return reportError(rootOpts, cmd, err)
			}
			pipeline := render.NewPipeline(cfg.RenderOptions(), gen)

			if !opts.CodeOnly {
				result, err := pipeline.Generate(cmd.Context(), args[0])
				if err != nil {
					return reportError(rootOpts, cmd, err)
				}
				return printResult(rootOpts, cmd, result)
			}

			raw, err := gen.Generate(cmd.Context(), args[0])
			if err != nil {
				return reportError(rootOpts, cmd, err)
			}
			script, report, err := sanitizer.Sanitize(cmd.Context(), raw)
			if err != nil {
				return reportError(rootOpts, cmd, err)
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: SanitizeResult{
					EntryPoint: script.EntryPoint,
					Code:       script.Source,
					Fixes:      report.Fixes(),
				}})
			}
			for _, fix := range report.Fixes() {
				fmt.Fprintf(cmd.ErrOrStderr(), "fix: %s\n", fix)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), script.Source)
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.CodeOnly, "code-only", false, "print the sanitized script instead of rendering it")
	return cmd
}
