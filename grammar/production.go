package grammar

import "strings"

// Production is an immutable ordered sequence of symbols. An empty production
// derives the empty string.
type Production struct {
	symbols []Symbol
}

// NewProduction creates a production from a copy of symbols.
func NewProduction(symbols ...Symbol) *Production {
	p := &Production{symbols: make([]Symbol, len(symbols))}
	copy(p.symbols, symbols)
	return p
}

func (p *Production) Len() int {
	return len(p.symbols)
}

func (p *Production) At(i int) Symbol {
	return p.symbols[i]
}

// Symbols returns a copy of the right-hand side.
func (p *Production) Symbols() []Symbol {
	out := make([]Symbol, len(p.symbols))
	copy(out, p.symbols)
	return out
}

func (p *Production) IsEpsilon() bool {
	return len(p.symbols) == 0
}

func (p *Production) String() string {
	if len(p.symbols) == 0 {
		return "ε"
	}
	parts := make([]string, len(p.symbols))
	for i, s := range p.symbols {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// Nonterminal owns the ordered alternatives of one nonterminal symbol.
type Nonterminal struct {
	productions []*Production
}

func NewNonterminal(productions ...*Production) *Nonterminal {
	nt := &Nonterminal{}
	for _, p := range productions {
		nt.AddProduction(p)
	}
	return nt
}

// AddProduction appends an alternative and returns its index. The index is
// stable and is what forest families report.
func (nt *Nonterminal) AddProduction(p *Production) int {
	if p == nil {
		panic("grammar: nil production")
	}
	nt.productions = append(nt.productions, p)
	return len(nt.productions) - 1
}

func (nt *Nonterminal) Len() int {
	return len(nt.productions)
}

func (nt *Nonterminal) Production(i int) *Production {
	return nt.productions[i]
}
