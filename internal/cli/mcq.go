package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidbz/medimentor/internal/prompt"
)

const mcqLongDesc string = `Have the tutor explain a multiple choice question.

Options are given as LABEL=TEXT, up to four of them. The tutor explains
why each option is right or wrong, and comments on your selection.

Examples:
  medimentor mcq "First-line drug for anaphylaxis?" -o A=Adrenaline -o B=Hydrocortisone --selected B`

type mcqCommander struct {
	opts     *options
	options  []string
	selected string
}

func newMCQCmd(opts *options) *cobra.Command {
	cmder := &mcqCommander{opts: opts}

	cmd := &cobra.Command{
		Use:   "mcq [question]",
		Short: "Explain a multiple choice question",
		Long:  mcqLongDesc,
		RunE:  cmder.run,
	}

	cmd.Flags().StringArrayVarP(&cmder.options, "option", "o", nil, "Answer option as LABEL=TEXT (repeatable)")
	cmd.Flags().StringVarP(&cmder.selected, "selected", "s", "", "Label of the option you picked")

	return cmd
}

func (c *mcqCommander) run(cmd *cobra.Command, args []string) error {
	question, err := textInput(cmd, args)
	if err != nil {
		return err
	}

	options, err := parseOptions(c.options)
	if err != nil {
		return err
	}

	reply, err := c.opts.client().TutorMCQ(contextOf(cmd), prompt.MCQ{
		Question: question,
		Options:  options,
		Selected: c.selected,
	})
	return c.opts.printReply(cmd, reply, err)
}

func parseOptions(raw []string) ([]prompt.Option, error) {
	options := make([]prompt.Option, 0, len(raw))
	for _, entry := range raw {
		label, value, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("invalid option %q: expected LABEL=TEXT", entry)
		}
		options = append(options, prompt.Option{Label: strings.TrimSpace(label), Value: strings.TrimSpace(value)})
	}
	return options, nil
}
