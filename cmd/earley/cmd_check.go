package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/earley/ebnf/compile"
)

func newCheckCmd() *cobra.Command {
	var startProduction string

	cmd := &cobra.Command{
		Use:          "check <file>",
		Short:        "Parse, verify and lower an EBNF grammar file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]

			f, err := os.Open(filename)
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			res, err := compile.Parse(filename, f, compile.WithStart(startProduction), compile.WithVerify())
			if err != nil {
				return printErrors(cmd.OutOrStdout(), filename, err)
			}

			g := res.Grammar
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, start %s, %d nonterminals, %d terminals\n",
				filename, res.Start, g.NonterminalCount(), g.TerminalCount())
			return nil
		},
	}

	cmd.Flags().StringVar(&startProduction, "start", "", "start production (default: the first nonterminal production)")

	return cmd
}

// printErrors lists the compile errors in err one per line.
func printErrors(w io.Writer, filename string, err error) error {
	for _, e := range compile.Split(filename, err) {
		fmt.Fprintln(w, e)
	}
	return reportedError{err}
}
