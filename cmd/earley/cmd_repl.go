package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/dhamidi/earley/earley"
	"github.com/dhamidi/earley/forest"
	"github.com/dhamidi/earley/format"
	"github.com/dhamidi/earley/grammar"
)

const historyFile = ".earley_history"

func newReplCmd() *cobra.Command {
	var rootName string
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "repl <grammar.egr>",
		Short: "Parse token sentences interactively",
		Long: `Read token sentences line by line and print the forest of each.
:grammar prints the productions, :quit exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := grammar.Load(args[0])
			if err != nil {
				return fmt.Errorf("load grammar: %w", err)
			}
			root, err := rootFor(g, rootName)
			if err != nil {
				return err
			}
			p, err := earley.NewParser(g)
			if err != nil {
				return err
			}
			enc, err := format.New(outputFormat, os.Stdout, g)
			if err != nil {
				return err
			}
			return repl(p, root, enc)
		},
	}

	cmd.Flags().StringVar(&rootName, "root", "", "start symbol (default: the grammar's root)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json, line)")

	return cmd
}

func repl(p *earley.Parser, root grammar.Symbol, enc format.Encoder) error {
	g := p.Grammar()

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	prompt := g.Name(root) + "> "
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			switch strings.ToLower(line) {
			case ":quit":
				return nil
			case ":grammar":
				fmt.Print(g.String())
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}

		tokens, err := tokensFor(g, strings.Fields(line))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		res, err := p.ParseResult(root, tokens)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if res.Root == nil {
			fmt.Println(describeFailure(g, tokens, res.Furthest))
			continue
		}
		if err := enc.Encode(res.Root); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Printf("(%s trees)\n", forest.CountTrees(res.Root))
		res.Root.DelRef()
	}
}
