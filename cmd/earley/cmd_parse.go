package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dhamidi/earley/earley"
	"github.com/dhamidi/earley/forest"
	"github.com/dhamidi/earley/format"
	"github.com/dhamidi/earley/grammar"
)

var errNoParse = errors.New("no parse")

func newParseCmd() *cobra.Command {
	var rootName string
	var outputFormat string
	var countTrees bool
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "parse <grammar.egr> [tokens...]",
		Short: "Parse a token sentence and print its forest",
		Long: `Parse a token sentence against a binary grammar and print the shared
parse forest. Tokens are terminal names or numeric ids. Without token
arguments, whitespace-separated tokens are read from standard input.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := grammar.Load(args[0])
			if err != nil {
				return fmt.Errorf("load grammar: %w", err)
			}
			root, err := rootFor(g, rootName)
			if err != nil {
				return err
			}

			words := args[1:]
			if len(words) == 0 {
				words, err = readWords(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read tokens: %w", err)
				}
			}
			tokens, err := tokensFor(g, words)
			if err != nil {
				return err
			}

			enc, err := format.New(outputFormat, cmd.OutOrStdout(), g)
			if err != nil {
				return err
			}

			p, err := earley.NewParser(g, earley.WithMaxTokens(maxTokens))
			if err != nil {
				return err
			}
			res, err := p.ParseResult(root, tokens)
			if err != nil {
				return err
			}
			if res.Root == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), describeFailure(g, tokens, res.Furthest))
				return reportedError{errNoParse}
			}
			defer res.Root.DelRef()

			if err := enc.Encode(res.Root); err != nil {
				return fmt.Errorf("encode forest: %w", err)
			}
			if countTrees {
				fmt.Fprintf(cmd.OutOrStdout(), "trees: %s\n", forest.CountTrees(res.Root))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rootName, "root", "", "start symbol (default: the grammar's root)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json, line)")
	cmd.Flags().BoolVar(&countTrees, "trees", false, "also print the number of derivation trees")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "reject inputs longer than this (0: no limit)")

	return cmd
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	return words, scanner.Err()
}
