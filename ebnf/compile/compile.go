// Package compile lowers grammars written in Go's EBNF notation into the
// integer-coded form used by the parser.
//
// Productions whose name starts with a lowercase letter become nonterminals.
// Names that start with an uppercase letter, and quoted tokens, become
// terminals: their spelling is the tokenizer's business. Groups, options and
// repetitions are lowered into synthesized nonterminals named after the
// production that contains them.
package compile

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"golang.org/x/exp/ebnf"

	"github.com/dhamidi/earley/grammar"
)

func logger() commonlog.Logger {
	return commonlog.GetLogger("compile")
}

// Error is a problem found at a position of the source.
type Error struct {
	Pos scanner.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ErrorList collects every error found in one source.
type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0], len(l)-1)
}

// Result is a compiled grammar.
type Result struct {
	Grammar *grammar.Grammar

	// Start is the name of the root production.
	Start string

	// Syntax is the grammar as parsed, before lowering.
	Syntax ebnf.Grammar
}

type options struct {
	start  string
	verify bool
}

// Option configures Parse.
type Option func(*options)

// WithStart selects the root production. By default it is the first
// nonterminal production in the source.
func WithStart(name string) Option {
	return func(o *options) {
		o.start = name
	}
}

// WithVerify also runs ebnf.Verify from the start production, which reports
// undefined and unreachable productions.
func WithVerify() Option {
	return func(o *options) {
		o.verify = true
	}
}

// Parse reads an EBNF grammar from r and lowers it. Errors are returned as an
// ErrorList.
func Parse(filename string, r io.Reader, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	syntax, err := ebnf.Parse(filename, r)
	if err != nil {
		return nil, Split(filename, err)
	}

	prods := Productions(syntax)
	start := o.start
	if start == "" {
		for _, p := range prods {
			if !IsLexical(p.Name.String) {
				start = p.Name.String
				break
			}
		}
	}
	switch p := syntax[start]; {
	case start == "":
		return nil, ErrorList{{Pos: scanner.Position{Filename: filename}, Msg: "no nonterminal production"}}
	case p == nil:
		return nil, ErrorList{{Pos: scanner.Position{Filename: filename}, Msg: fmt.Sprintf("start production %s is not defined", start)}}
	case IsLexical(start):
		return nil, ErrorList{{Pos: p.Name.StringPos, Msg: fmt.Sprintf("start production %s is lexical", start)}}
	}

	if o.verify {
		if err := ebnf.Verify(syntax, start); err != nil {
			return nil, Split(filename, err)
		}
	}

	l := newLowering(prods)
	for _, p := range prods {
		if !IsLexical(p.Name.String) {
			l.production(p)
		}
	}
	if len(l.errors) > 0 {
		return nil, l.errors
	}

	g := l.build()
	root, _ := g.Lookup(start)
	g.SetRoot(root)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	logger().Debugf("%s: %d nonterminals, %d terminals, start %s",
		filename, g.NonterminalCount(), g.TerminalCount(), start)
	return &Result{Grammar: g, Start: start, Syntax: syntax}, nil
}

// IsLexical reports whether name denotes a lexical production, one whose
// name starts with an uppercase letter.
func IsLexical(name string) bool {
	ch, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(ch)
}

// Productions returns the productions of g in source order.
func Productions(g ebnf.Grammar) []*ebnf.Production {
	prods := make([]*ebnf.Production, 0, len(g))
	for _, p := range g {
		prods = append(prods, p)
	}
	sort.Slice(prods, func(i, j int) bool {
		return prods[i].Name.StringPos.Offset < prods[j].Name.StringPos.Offset
	})
	return prods
}

// Split turns the error returned by ebnf.Parse or ebnf.Verify into an
// ErrorList. Those functions return an unexported slice of errors formatted
// as "position: message".
func Split(filename string, err error) ErrorList {
	if list, ok := err.(ErrorList); ok {
		return list
	}
	var list ErrorList
	v := reflect.ValueOf(err)
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			if e, ok := v.Index(i).Interface().(error); ok {
				list = append(list, positioned(filename, e.Error()))
			}
		}
	}
	if len(list) == 0 {
		list = append(list, positioned(filename, err.Error()))
	}
	return list
}

func positioned(filename, s string) *Error {
	e := &Error{Pos: scanner.Position{Filename: filename}, Msg: s}
	prefix := filename
	if prefix == "" {
		prefix = "<input>"
	}
	rest, ok := strings.CutPrefix(s, prefix+":")
	if !ok {
		return e
	}
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 {
		return e
	}
	line, err1 := strconv.Atoi(parts[0])
	col, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return e
	}
	e.Pos.Line = line
	e.Pos.Column = col
	e.Msg = strings.TrimSpace(parts[2])
	return e
}

type lowering struct {
	names     []string             // nonterminal id-1 -> name
	ids       map[string]int       // nonterminal name -> id
	rules     [][][]grammar.Symbol // nonterminal id-1 -> alternatives
	terminals []string
	termIDs   map[string]int

	owner string
	seq   int

	errors ErrorList
}

func newLowering(prods []*ebnf.Production) *lowering {
	l := &lowering{
		ids:     make(map[string]int),
		termIDs: make(map[string]int),
	}
	// Source productions take the first ids so that forward references
	// resolve before any synthesized nonterminal exists.
	for _, p := range prods {
		if !IsLexical(p.Name.String) {
			l.declare(p.Name.String)
		}
	}
	return l
}

func (l *lowering) declare(name string) int {
	l.names = append(l.names, name)
	l.rules = append(l.rules, nil)
	id := len(l.names)
	l.ids[name] = id
	return id
}

func (l *lowering) terminal(name string) grammar.Symbol {
	id, ok := l.termIDs[name]
	if !ok {
		l.terminals = append(l.terminals, name)
		id = len(l.terminals)
		l.termIDs[name] = id
	}
	return grammar.Terminal(id)
}

func (l *lowering) errorf(pos scanner.Position, format string, args ...any) {
	l.errors = append(l.errors, &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (l *lowering) production(p *ebnf.Production) {
	l.owner = p.Name.String
	l.seq = 0
	id := l.ids[l.owner]
	alts := l.alternatives(p.Expr)
	l.rules[id-1] = alts
}

// synthesize declares a fresh nonterminal for a nested expression.
func (l *lowering) synthesize(kind string) (grammar.Symbol, int) {
	l.seq++
	id := l.declare(fmt.Sprintf("%s.%s%d", l.owner, kind, l.seq))
	return grammar.NonterminalID(id), id
}

func (l *lowering) alternatives(x ebnf.Expression) [][]grammar.Symbol {
	if alt, ok := x.(ebnf.Alternative); ok {
		out := make([][]grammar.Symbol, 0, len(alt))
		for _, a := range alt {
			out = append(out, l.sequence(a))
		}
		return out
	}
	return [][]grammar.Symbol{l.sequence(x)}
}

func (l *lowering) sequence(x ebnf.Expression) []grammar.Symbol {
	if seq, ok := x.(ebnf.Sequence); ok {
		var out []grammar.Symbol
		for _, item := range seq {
			out = append(out, l.factor(item)...)
		}
		return out
	}
	if x == nil {
		return nil
	}
	return l.factor(x)
}

func (l *lowering) factor(x ebnf.Expression) []grammar.Symbol {
	switch x := x.(type) {
	case *ebnf.Name:
		if IsLexical(x.String) {
			return []grammar.Symbol{l.terminal(x.String)}
		}
		id, ok := l.ids[x.String]
		if !ok {
			l.errorf(x.StringPos, "undefined: %s", x.String)
			return nil
		}
		return []grammar.Symbol{grammar.NonterminalID(id)}

	case *ebnf.Token:
		return []grammar.Symbol{l.terminal(strconv.Quote(x.String))}

	case *ebnf.Group:
		sym, id := l.synthesize("grp")
		alts := l.alternatives(x.Body)
		l.rules[id-1] = alts
		return []grammar.Symbol{sym}

	case *ebnf.Option:
		sym, id := l.synthesize("opt")
		alts := append(l.alternatives(x.Body), nil)
		l.rules[id-1] = alts
		return []grammar.Symbol{sym}

	case *ebnf.Repetition:
		sym, id := l.synthesize("rep")
		alts := [][]grammar.Symbol{nil}
		for _, body := range l.alternatives(x.Body) {
			alts = append(alts, append([]grammar.Symbol{sym}, body...))
		}
		l.rules[id-1] = alts
		return []grammar.Symbol{sym}

	case ebnf.Alternative:
		sym, id := l.synthesize("grp")
		alts := l.alternatives(x)
		l.rules[id-1] = alts
		return []grammar.Symbol{sym}

	case ebnf.Sequence:
		return l.sequence(x)

	case *ebnf.Range:
		l.errorf(x.Pos(), "character range %q … %q outside a lexical production", x.Begin.String, x.End.String)
		return nil

	case *ebnf.Bad:
		l.errorf(x.Pos(), "%s", x.Error)
		return nil
	}
	l.errorf(x.Pos(), "unsupported expression %T", x)
	return nil
}

func (l *lowering) build() *grammar.Grammar {
	g := grammar.New(len(l.names), len(l.terminals))
	for i, name := range l.names {
		id := grammar.NonterminalID(i + 1)
		nt := grammar.NewNonterminal()
		for _, alt := range l.rules[i] {
			nt.AddProduction(grammar.NewProduction(alt...))
		}
		g.SetNonterminal(id, nt)
		g.SetName(id, name)
	}
	for i, name := range l.terminals {
		g.SetName(grammar.Terminal(i+1), name)
	}
	return g
}
