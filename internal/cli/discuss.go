package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidbz/medimentor/internal/client"
)

const discussLongDesc string = `Start a viva-style case discussion.

The first line you type is the case; every following line is your answer
to the consultant. Type "exit" or press Ctrl-D to finish.

Examples:
  medimentor discuss
  medimentor discuss "45M with sudden dyspnea after a long-haul flight"`

const discussPrompt = "> "

func newDiscussCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "discuss [case]",
		Short: "Discuss a case with a senior consultant",
		Long:  discussLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			discussion := client.NewDiscussion(opts.client())
			out := cmd.OutOrStdout()

			send := func(text string) {
				reply, err := discussion.Send(ctx, text)
				// A failed turn is shown and the discussion continues.
				_ = opts.printReply(cmd, reply, err)
			}

			if len(args) > 0 {
				send(strings.Join(args, " "))
			} else {
				fmt.Fprintln(out, "Type a case scenario to start the discussion.")
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, discussPrompt)
				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				send(line)
			}
			fmt.Fprintln(out)

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("could not read input: %w", err)
			}

			return ctx.Err()
		},
	}
}
