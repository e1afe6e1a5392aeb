package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/drewmudry/manimgen-api/sanitizer"
)

// SanitizeResult is the JSON payload of the sanitize command.
type SanitizeResult struct {
	EntryPoint string   `json:"entry_point"`
	Code       string   `json:"code"`
	Fixes      []string `json:"fixes"`
}

// NewSanitizeCommand creates the sanitize command.
func NewSanitizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize <file|->",
		Short: "Repair and validate a generated script without rendering it",
		Long: `Run the repair passes over a script, check it parses and find its scene
class. The repaired script is written to stdout; applied fixes go to stderr.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readSource(cmd, args[0])
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
			fmt.Fprintf(cmd.ErrOrStderr(), "scene: %s\n", script.EntryPoint)
			_, err = io.WriteString(cmd.OutOrStdout(), script.Source)
			return err
		},
	}
}

// readSource reads path, or stdin when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
