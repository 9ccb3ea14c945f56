// Package earley implements Earley parsing over integer-coded grammars. A
// parse produces a shared packed forest (see package forest) holding every
// derivation of the input.
package earley

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/earley/forest"
	"github.com/dhamidi/earley/grammar"
)

var (
	// ErrInvalidRoot is returned when the start symbol is not a declared
	// nonterminal.
	ErrInvalidRoot = errors.New("invalid root symbol")

	// ErrInvalidToken is returned when an input token is not a declared
	// terminal.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInputTooLong is returned when the input exceeds WithMaxTokens.
	ErrInputTooLong = errors.New("input too long")
)

// rule is one production flattened out of the grammar, together with the
// nonterminal it belongs to and its index within that nonterminal.
type rule struct {
	lhs        grammar.Symbol
	production int
	rhs        []grammar.Symbol
}

// Parser recognizes token sequences against one grammar. It holds no per-parse
// state and may be used from several goroutines at once.
type Parser struct {
	grammar   *grammar.Grammar
	rules     []rule
	byLHS     [][]int32 // nonterminal index-1 -> rule ids
	maxTokens int
	log       commonlog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for per-parse statistics.
func WithLogger(log commonlog.Logger) Option {
	return func(p *Parser) {
		p.log = log
	}
}

// WithMaxTokens rejects inputs longer than n tokens with ErrInputTooLong.
// Zero means no limit.
func WithMaxTokens(n int) Option {
	return func(p *Parser) {
		p.maxTokens = n
	}
}

// NewParser prepares a parser for g. The grammar is validated, and frozen,
// first; a grammar that does not validate is rejected here rather than during
// parsing.
func NewParser(g *grammar.Grammar, opts ...Option) (*Parser, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("new parser: %w", err)
	}

	p := &Parser{
		grammar: g,
		byLHS:   make([][]int32, g.NonterminalCount()),
		log:     commonlog.GetLogger("earley"),
	}
	for i := 1; i <= g.NonterminalCount(); i++ {
		lhs := grammar.NonterminalID(i)
		nt := g.Nonterminal(lhs)
		for pi := 0; pi < nt.Len(); pi++ {
			p.byLHS[i-1] = append(p.byLHS[i-1], int32(len(p.rules)))
			p.rules = append(p.rules, rule{
				lhs:        lhs,
				production: pi,
				rhs:        nt.Production(pi).Symbols(),
			})
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Grammar returns the grammar p parses with.
func (p *Parser) Grammar() *grammar.Grammar {
	return p.grammar
}

// Result describes the outcome of one parse.
type Result struct {
	// Root spans the whole input, or is nil when the input is not in the
	// language. The caller owns one reference on it.
	Root *forest.Node

	// Furthest is the rightmost input position that some derivation reached.
	// On failure, tokens[Furthest] is the first token no derivation accepts
	// (Furthest == len(tokens) means the input ended too early).
	Furthest int

	// SetSizes holds the number of items in each item set that was built.
	SetSizes []int

	Items   int
	Nodes   int
	Dropped int // families discarded because they would form a cycle
}

// Parse recognizes tokens as a derivation of root. On success it returns the
// forest node for (root, 0, len(tokens)) with one reference owned by the
// caller. When tokens are not in the language it returns nil and no error.
// Errors only report an invalid root or invalid tokens.
func (p *Parser) Parse(root grammar.Symbol, tokens []grammar.Symbol) (*forest.Node, error) {
	res, err := p.ParseResult(root, tokens)
	if err != nil {
		return nil, err
	}
	return res.Root, nil
}

// Recognize reports whether tokens derive from root without keeping the
// forest.
func (p *Parser) Recognize(root grammar.Symbol, tokens []grammar.Symbol) (bool, error) {
	node, err := p.Parse(root, tokens)
	if err != nil || node == nil {
		return false, err
	}
	node.DelRef()
	return true, nil
}

// ParseResult is Parse with diagnostics.
func (p *Parser) ParseResult(root grammar.Symbol, tokens []grammar.Symbol) (Result, error) {
	if !root.IsNonterminal() || !p.grammar.Declares(root) {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidRoot, root)
	}
	if p.maxTokens > 0 && len(tokens) > p.maxTokens {
		return Result{}, fmt.Errorf("%w: %d tokens, limit %d", ErrInputTooLong, len(tokens), p.maxTokens)
	}
	for i, tok := range tokens {
		if !tok.IsTerminal() || !p.grammar.Declares(tok) {
			return Result{}, fmt.Errorf("%w: %d at position %d", ErrInvalidToken, tok, i)
		}
	}

	c := newChart(p, tokens)
	res := c.run(root)
	p.log.Debugf("parsed %d tokens: %d items, %d nodes, %d cyclic families dropped, accepted=%v",
		len(tokens), res.Items, res.Nodes, res.Dropped, res.Root != nil)
	return res, nil
}
