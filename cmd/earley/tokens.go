package main

import (
	"fmt"
	"strconv"

	"github.com/dhamidi/earley/grammar"
)

// symbolFor resolves a word to a symbol of g, either by display name or by
// numeric id.
func symbolFor(g *grammar.Grammar, word string) (grammar.Symbol, error) {
	if sym, ok := g.Lookup(word); ok {
		return sym, nil
	}
	if id, err := strconv.Atoi(word); err == nil {
		sym := grammar.Symbol(id)
		if g.Declares(sym) {
			return sym, nil
		}
	}
	return 0, fmt.Errorf("unknown symbol %q", word)
}

func tokensFor(g *grammar.Grammar, words []string) ([]grammar.Symbol, error) {
	tokens := make([]grammar.Symbol, 0, len(words))
	for i, word := range words {
		sym, err := symbolFor(g, word)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		if !sym.IsTerminal() {
			return nil, fmt.Errorf("token %d: %s is not a terminal", i, word)
		}
		tokens = append(tokens, sym)
	}
	return tokens, nil
}

func rootFor(g *grammar.Grammar, name string) (grammar.Symbol, error) {
	if name == "" {
		return g.Root(), nil
	}
	sym, err := symbolFor(g, name)
	if err != nil {
		return 0, fmt.Errorf("root: %w", err)
	}
	if !sym.IsNonterminal() {
		return 0, fmt.Errorf("root: %s is not a nonterminal", name)
	}
	return sym, nil
}

// describeFailure explains why tokens were rejected, given the furthest
// position any derivation reached.
func describeFailure(g *grammar.Grammar, tokens []grammar.Symbol, furthest int) string {
	if furthest >= len(tokens) {
		return fmt.Sprintf("no parse: unexpected end of input after %d tokens", len(tokens))
	}
	return fmt.Sprintf("no parse: unexpected %s at token %d", g.Name(tokens[furthest]), furthest)
}
