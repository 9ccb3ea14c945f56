package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/earley/grammar"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <grammar.egr>",
		Short: "Print the productions of a binary grammar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := grammar.Load(args[0])
			if err != nil {
				return fmt.Errorf("load grammar: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %d nonterminals, %d terminals, root %s\n",
				g.NonterminalCount(), g.TerminalCount(), g.Name(g.Root()))
			fmt.Fprint(out, g.String())

			var nullable []string
			for i := 1; i <= g.NonterminalCount(); i++ {
				if id := grammar.NonterminalID(i); g.Nullable(id) {
					nullable = append(nullable, g.Name(id))
				}
			}
			fmt.Fprintf(out, "# nullable: %s\n", strings.Join(nullable, " "))
			return nil
		},
	}

	return cmd
}
