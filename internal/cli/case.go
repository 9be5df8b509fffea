package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const caseLongDesc string = `Get a structured analysis of a clinical case: most likely
diagnosis, differentials, investigations, management and prognosis.

Examples:
  medimentor case "58 year old woman with crushing chest pain radiating to the jaw"
  medimentor case --file case.txt`

type caseCommander struct {
	opts *options
	file string
}

func newCaseCmd(opts *options) *cobra.Command {
	cmder := &caseCommander{opts: opts}

	cmd := &cobra.Command{
		Use:   "case [description]",
		Short: "Analyze a clinical case",
		Long:  caseLongDesc,
		RunE:  cmder.run,
	}

	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Read the case description from a file")

	return cmd
}

func (c *caseCommander) run(cmd *cobra.Command, args []string) error {
	caseText, err := c.input(cmd, args)
	if err != nil {
		return err
	}

	reply, err := c.opts.client().AnalyzeCase(contextOf(cmd), caseText)
	return c.opts.printReply(cmd, reply, err)
}

func (c *caseCommander) input(cmd *cobra.Command, args []string) (string, error) {
	if c.file == "" {
		return textInput(cmd, args)
	}

	data, err := os.ReadFile(c.file)
	if err != nil {
		return "", fmt.Errorf("could not read case file %s: %w", c.file, err)
	}

	return string(data), nil
}
