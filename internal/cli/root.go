package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/drewmudry/manimgen-api/internal/failure"
	"github.com/drewmudry/manimgen-api/internal/platform"
	"github.com/drewmudry/manimgen-api/render"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Quality string
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for manimctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "manimctl",
		Short: "Sanitize, render and generate Manim scenes locally",
		Long: `manimctl runs the same sanitize and render pipeline as the API server,
against local files or a prompt, without a database or queue.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Subcommands silence cobra's own error output, so report here.
			if !isValidFormat(opts.Format) {
				err := fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				return err
			}
			if opts.Quality != "" {
				if _, err := render.ParseQuality(opts.Quality); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
					return err
				}
			}
			// Logs go to stderr so stdout stays machine-readable.
			log.SetOutput(cmd.ErrOrStderr())
			if opts.Verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&opts.Quality, "quality", "q", "", "render quality (low|medium|high|2k|4k); defaults to RENDER_QUALITY")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSanitizeCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the environment and applies the --quality override.
func loadConfig(opts *RootOptions) (*platform.Config, error) {
	cfg, err := platform.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.Quality != "" {
		if cfg.RenderQuality, err = render.ParseQuality(opts.Quality); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// CLIResponse is the JSON envelope for --format json.
type CLIResponse struct {
	Status string `json:"status"` // "ok" | "error"
	Data   any    `json:"data,omitempty"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func writeJSON(w io.Writer, resp CLIResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// reportError prints err in the selected format and returns it so the
// process exits non-zero.
func reportError(opts *RootOptions, cmd *cobra.Command, err error) error {
	code := failure.CodeOf(err)
	msg := err.Error()
	var fe *failure.Error
	if errors.As(err, &fe) {
		msg = failure.MessageOf(err)
	}
	if opts.Format == "json" {
		resp := CLIResponse{Status: "error"}
		resp.Error = &struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}{Code: string(code), Message: msg}
		if werr := writeJSON(cmd.OutOrStdout(), resp); werr != nil {
			return werr
		}
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "error [%s]: %s\n", code, msg)
	return err
}
