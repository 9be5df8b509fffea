// Package cli implements the medimentor command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/davidbz/medimentor/internal/client"
)

const rootLongDesc string = `MediMentor is a study companion for medical students.

Every command sends one request to the MediMentor API and prints the
answer as rendered markdown. Point the CLI at a server with --api-url
or the MEDIMENTOR_API_URL environment variable.`

const defaultWordWrap = 100

// ErrRequestFailed is returned after the fallback text has been printed.
var ErrRequestFailed = errors.New("request failed")

// options are the persistent flags shared by every command.
type options struct {
	apiURL   string
	timeout  int
	raw      bool
	verbose  bool
	style    string
	wordWrap int
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	_ = godotenv.Load(".env")

	var cfg client.Config
	if err := env.Parse(&cfg); err != nil {
		cfg = client.Config{BaseURL: "http://localhost:5000", Timeout: 90}
	}

	opts := &options{}

	cmd := &cobra.Command{
		Use:           "medimentor",
		Short:         "MediMentor study companion",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", cfg.BaseURL, "MediMentor API base URL")
	flags.IntVar(&opts.timeout, "timeout", cfg.Timeout, "Request timeout in seconds")
	flags.BoolVar(&opts.raw, "raw", false, "Print replies without markdown rendering")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print error details")
	flags.StringVar(&opts.style, "style", "auto", "Markdown style (auto, dark, light, notty, ascii)")
	flags.IntVar(&opts.wordWrap, "word-wrap", defaultWordWrap, "Wrap rendered output at this width")

	cmd.AddCommand(
		newAgentCmd(opts),
		newCaseCmd(opts),
		newMCQCmd(opts),
		newDiscussCmd(opts),
		newImageCmd(opts),
	)

	return cmd
}

func (o *options) client() *client.Client {
	return client.New(client.Config{BaseURL: o.apiURL, Timeout: o.timeout}, nil)
}

// render formats markdown for the terminal. Rendering problems fall back to
// the plain text.
func (o *options) render(text string) string {
	if o.raw {
		return text
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(o.style),
		glamour.WithWordWrap(o.wordWrap),
	)
	if err != nil {
		return text
	}

	out, err := renderer.Render(text)
	if err != nil {
		return text
	}

	return out
}

// printReply writes the reply, or the fallback text when err is set.
func (o *options) printReply(cmd *cobra.Command, reply string, err error) error {
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), client.FallbackText)
		if o.verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(o.render(reply), "\n"))
	return nil
}

// textInput joins args, or reads all of stdin when there are none.
func textInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("could not read stdin: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
