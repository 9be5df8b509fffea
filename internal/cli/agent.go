package cli

import (
	"github.com/spf13/cobra"
)

const agentLongDesc string = `Ask the medical assistant a free-form question.

Examples:
  medimentor agent "What are the causes of secondary hypertension?"
  echo "Explain the Frank-Starling law" | medimentor agent`

func newAgentCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "agent [question]",
		Short: "Ask the medical assistant a question",
		Long:  agentLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := textInput(cmd, args)
			if err != nil {
				return err
			}

			reply, err := opts.client().Ask(contextOf(cmd), query)
			return opts.printReply(cmd, reply, err)
		},
	}
}
