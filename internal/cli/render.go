package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drewmudry/manimgen-api/render"
)

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <file|->",
		Short: "Sanitize and render a local script",
		Long: `Sanitize a script and render it with the configured engine
(RENDER_COMMAND, WORK_DIR, RENDER_TIMEOUT). Prints the path of the video.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return reportError(rootOpts, cmd, err)
			}
			raw, err := readSource(cmd, args[0])
			if err != nil {
				return reportError(rootOpts, cmd, err)
			}

			pipeline := render.NewPipeline(cfg.RenderOptions(), nil)
			result, err := pipeline.Run(cmd.Context(), raw)
			if err != nil {
				return reportError(rootOpts, cmd, err)
			}
			return printResult(rootOpts, cmd, result)
		},
	}
}

func printResult(opts *RootOptions, cmd *cobra.Command, result *render.Result) error {
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	for _, fix := range result.Fixes {
		fmt.Fprintf(cmd.ErrOrStderr(), "fix: %s\n", fix)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "rendered %s in %s\n", result.EntryPoint, result.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(cmd.OutOrStdout(), result.ArtifactPath)
	return nil
}
