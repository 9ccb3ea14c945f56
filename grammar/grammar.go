package grammar

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
)

// logger is looked up on each use; the backend is registered by the binary.
func logger() commonlog.Logger {
	return commonlog.GetLogger("grammar")
}

// ErrInvalidGrammar is wrapped by every validation failure.
var ErrInvalidGrammar = errors.New("invalid grammar")

// Grammar is a set of nonterminals over a declared symbol space. It is built
// once, validated, and then shared read-only.
type Grammar struct {
	nonterminalCount int
	terminalCount    int
	nonterminals     []*Nonterminal // index id-1
	root             Symbol

	nonterminalNames []string
	terminalNames    []string
	byName           map[string]Symbol

	frozen   bool
	nullable []bool // index id-1, set on freeze
}

// New creates an empty grammar declaring nonterminals -1..-nonterminals and
// terminals 1..terminals.
func New(nonterminals, terminals int) *Grammar {
	if nonterminals < 0 || terminals < 0 {
		panic(fmt.Sprintf("grammar: negative symbol count (%d, %d)", nonterminals, terminals))
	}
	return &Grammar{
		nonterminalCount: nonterminals,
		terminalCount:    terminals,
		nonterminals:     make([]*Nonterminal, nonterminals),
		byName:           make(map[string]Symbol),
	}
}

func (g *Grammar) NonterminalCount() int {
	return g.nonterminalCount
}

func (g *Grammar) TerminalCount() int {
	return g.terminalCount
}

// Declares reports whether s is inside the declared terminal or nonterminal
// range.
func (g *Grammar) Declares(s Symbol) bool {
	switch {
	case s > 0:
		return int(s) <= g.terminalCount
	case s < 0:
		// Negate in int: -s overflows for math.MinInt32.
		return -int(s) <= g.nonterminalCount
	default:
		return false
	}
}

func (g *Grammar) mustBeMutable(op string) {
	if g.frozen {
		panic("grammar: " + op + " on a validated grammar")
	}
}

// SetNonterminal installs nt at id. Assigning an id outside the declared
// range, or one that is already assigned, is a programming error and panics.
func (g *Grammar) SetNonterminal(id Symbol, nt *Nonterminal) {
	g.mustBeMutable("SetNonterminal")
	if !id.IsNonterminal() || !g.Declares(id) {
		panic(fmt.Sprintf("grammar: nonterminal id %d out of range -1..-%d", id, g.nonterminalCount))
	}
	if nt == nil {
		panic("grammar: nil nonterminal")
	}
	if g.nonterminals[id.Index()-1] != nil {
		panic(fmt.Sprintf("grammar: nonterminal %s already assigned", g.Name(id)))
	}
	g.nonterminals[id.Index()-1] = nt
}

// Nonterminal returns the nonterminal at id, or nil when id is unassigned or
// not a declared nonterminal.
func (g *Grammar) Nonterminal(id Symbol) *Nonterminal {
	if !id.IsNonterminal() || !g.Declares(id) {
		return nil
	}
	return g.nonterminals[id.Index()-1]
}

// SetRoot designates the start symbol.
func (g *Grammar) SetRoot(id Symbol) {
	g.mustBeMutable("SetRoot")
	if !id.IsNonterminal() || !g.Declares(id) {
		panic(fmt.Sprintf("grammar: root %d is not a declared nonterminal", id))
	}
	g.root = id
}

func (g *Grammar) HasRoot() bool {
	return g.root != 0
}

// Root returns the start symbol. It panics if no root was set.
func (g *Grammar) Root() Symbol {
	if g.root == 0 {
		panic("grammar: root not set")
	}
	return g.root
}

// SetName attaches a display name to a symbol. Names are unique: giving a
// name already held by another symbol panics.
func (g *Grammar) SetName(s Symbol, name string) {
	g.mustBeMutable("SetName")
	if !g.Declares(s) {
		panic(fmt.Sprintf("grammar: cannot name undeclared symbol %d", s))
	}
	if other, ok := g.byName[name]; ok && name != "" && other != s {
		panic(fmt.Sprintf("grammar: name %q already belongs to %s", name, other))
	}
	if old := g.rawName(s); old != "" && g.byName[old] == s {
		delete(g.byName, old)
	}
	// Name tables are allocated on first use; the terminal space can be far
	// larger than the set of terminals that carry names.
	if s.IsTerminal() {
		if g.terminalNames == nil {
			g.terminalNames = make([]string, g.terminalCount)
		}
		g.terminalNames[s.Index()-1] = name
	} else {
		if g.nonterminalNames == nil {
			g.nonterminalNames = make([]string, g.nonterminalCount)
		}
		g.nonterminalNames[s.Index()-1] = name
	}
	if name != "" {
		g.byName[name] = s
	}
}

func (g *Grammar) rawName(s Symbol) string {
	if !g.Declares(s) {
		return ""
	}
	if s.IsTerminal() {
		if g.terminalNames == nil {
			return ""
		}
		return g.terminalNames[s.Index()-1]
	}
	if g.nonterminalNames == nil {
		return ""
	}
	return g.nonterminalNames[s.Index()-1]
}

// Name returns the display name of s, falling back to s.String().
func (g *Grammar) Name(s Symbol) string {
	if name := g.rawName(s); name != "" {
		return name
	}
	return s.String()
}

// HasNames reports whether any symbol carries a name.
func (g *Grammar) HasNames() bool {
	return len(g.byName) > 0
}

// Lookup finds a symbol by its display name.
func (g *Grammar) Lookup(name string) (Symbol, bool) {
	s, ok := g.byName[name]
	return s, ok
}

// Validate checks that every declared nonterminal is assigned, that every
// production only references declared symbols, and that a root is set. A
// grammar that validates is frozen.
func (g *Grammar) Validate() error {
	if g.frozen {
		return nil
	}
	for i, nt := range g.nonterminals {
		id := NonterminalID(i + 1)
		if nt == nil {
			return errors.Wrapf(ErrInvalidGrammar, "nonterminal %s has no definition", g.Name(id))
		}
		for pi, p := range nt.productions {
			for si, s := range p.symbols {
				if !g.Declares(s) {
					return errors.Wrapf(ErrInvalidGrammar,
						"%s production %d symbol %d: %d is not declared", g.Name(id), pi, si, s)
				}
			}
		}
	}
	if g.root == 0 {
		return errors.Wrap(ErrInvalidGrammar, "root not set")
	}
	g.freeze()
	return nil
}

// IsValid reports whether Validate has succeeded.
func (g *Grammar) IsValid() bool {
	return g.frozen
}

func (g *Grammar) freeze() {
	g.nullable = g.findNullables()
	g.frozen = true
}

// findNullables computes the nullable nonterminals with a worklist, starting
// from epsilon productions and propagating through productions whose symbols
// are all nullable.
func (g *Grammar) findNullables() []bool {
	nullable := make([]bool, g.nonterminalCount)

	type use struct {
		lhs  int
		prod *Production
	}
	occurs := make(map[int][]use)
	var todo []int
	for i, nt := range g.nonterminals {
		for _, p := range nt.productions {
			if p.IsEpsilon() {
				if !nullable[i] {
					nullable[i] = true
					todo = append(todo, i)
				}
				continue
			}
			for _, s := range p.symbols {
				if s.IsNonterminal() {
					occurs[s.Index()-1] = append(occurs[s.Index()-1], use{i, p})
				}
			}
		}
	}

	for len(todo) != 0 {
		var b int
		b, todo = todo[0], todo[1:]
		for _, u := range occurs[b] {
			if nullable[u.lhs] {
				continue
			}
			all := true
			for _, s := range u.prod.symbols {
				if s.IsTerminal() || !nullable[s.Index()-1] {
					all = false
					break
				}
			}
			if all {
				nullable[u.lhs] = true
				todo = append(todo, u.lhs)
			}
		}
	}
	return nullable
}

// Nullable reports whether s can derive the empty string. It is only
// meaningful on a validated grammar.
func (g *Grammar) Nullable(s Symbol) bool {
	if !s.IsNonterminal() || !g.Declares(s) || g.nullable == nil {
		return false
	}
	return g.nullable[s.Index()-1]
}

// FormatProduction renders lhs -> rhs using display names.
func (g *Grammar) FormatProduction(lhs Symbol, p *Production) string {
	var b strings.Builder
	b.WriteString(g.Name(lhs))
	b.WriteString(" ->")
	if p.IsEpsilon() {
		b.WriteString(" ε")
		return b.String()
	}
	for _, s := range p.symbols {
		b.WriteByte(' ')
		b.WriteString(g.Name(s))
	}
	return b.String()
}

// String lists every production, one per line, in nonterminal id order.
func (g *Grammar) String() string {
	var b strings.Builder
	for i, nt := range g.nonterminals {
		if nt == nil {
			continue
		}
		id := NonterminalID(i + 1)
		for _, p := range nt.productions {
			b.WriteString(g.FormatProduction(id, p))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
