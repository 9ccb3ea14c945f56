package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/earley/ebnf/compile"
	"github.com/dhamidi/earley/grammar"
)

func newCompileCmd() *cobra.Command {
	var output string
	var startProduction string
	var names bool

	cmd := &cobra.Command{
		Use:          "compile <file.ebnf>",
		Short:        "Compile an EBNF grammar to the binary grammar format",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]

			f, err := os.Open(filename)
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			res, err := compile.Parse(filename, f, compile.WithStart(startProduction))
			if err != nil {
				return printErrors(cmd.OutOrStdout(), filename, err)
			}

			g := res.Grammar
			if !names {
				g, err = withoutNames(g)
				if err != nil {
					return err
				}
			}

			if output == "" {
				output = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".egr"
			}
			if err := g.WriteBinary(output); err != nil {
				return fmt.Errorf("write grammar: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d nonterminals, %d terminals)\n",
				output, g.NonterminalCount(), g.TerminalCount())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .egr extension)")
	cmd.Flags().StringVar(&startProduction, "start", "", "start production (default: the first nonterminal production)")
	cmd.Flags().BoolVar(&names, "names", true, "store symbol names in the output")

	return cmd
}

// withoutNames copies g without its symbol names. Nonterminals are immutable
// once the grammar is frozen, so they are shared.
func withoutNames(g *grammar.Grammar) (*grammar.Grammar, error) {
	out := grammar.New(g.NonterminalCount(), g.TerminalCount())
	for i := 1; i <= g.NonterminalCount(); i++ {
		id := grammar.NonterminalID(i)
		out.SetNonterminal(id, g.Nonterminal(id))
	}
	out.SetRoot(g.Root())
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
