package compile

import (
	"errors"
	"strings"
	"testing"

	"github.com/dhamidi/earley/earley"
	"github.com/dhamidi/earley/grammar"
)

const arith = `
expr = term { ( "+" | "-" ) term } .
term = factor { "*" factor } .
factor = NUMBER | "(" expr ")" .
`

func TestLowering(t *testing.T) {
	res, err := Parse("arith.ebnf", strings.NewReader(arith))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Start != "expr" {
		t.Errorf("Start = %q, want expr", res.Start)
	}

	expected := strings.Join([]string{
		`expr -> term expr.rep1`,
		`term -> factor term.rep1`,
		`factor -> NUMBER`,
		`factor -> "(" expr ")"`,
		`expr.rep1 -> ε`,
		`expr.rep1 -> expr.rep1 expr.grp2 term`,
		`expr.grp2 -> "+"`,
		`expr.grp2 -> "-"`,
		`term.rep1 -> ε`,
		`term.rep1 -> term.rep1 "*" factor`,
		``,
	}, "\n")
	if got := res.Grammar.String(); got != expected {
		t.Errorf("String() =\n%s\nwant\n%s", got, expected)
	}

	g := res.Grammar
	if g.TerminalCount() != 6 {
		t.Errorf("TerminalCount() = %d, want 6", g.TerminalCount())
	}
	if sym, ok := g.Lookup(`"+"`); !ok || sym != grammar.Terminal(1) {
		t.Errorf(`Lookup("+") = %v, %v; want t1`, sym, ok)
	}
	if root := g.Root(); g.Name(root) != "expr" {
		t.Errorf("root = %s, want expr", g.Name(root))
	}
	if rep, _ := g.Lookup("expr.rep1"); !g.Nullable(rep) {
		t.Error("expr.rep1 should be nullable")
	}
}

func TestLoweredGrammarParses(t *testing.T) {
	res, err := Parse("arith.ebnf", strings.NewReader(arith))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g := res.Grammar
	p, err := earley.NewParser(g)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}

	tokens := func(names ...string) []grammar.Symbol {
		out := make([]grammar.Symbol, len(names))
		for i, name := range names {
			sym, ok := g.Lookup(name)
			if !ok {
				t.Fatalf("no terminal %s", name)
			}
			out[i] = sym
		}
		return out
	}

	tests := []struct {
		input []string
		ok    bool
	}{
		{[]string{"NUMBER"}, true},
		{[]string{"NUMBER", `"+"`, "NUMBER", `"*"`, "NUMBER"}, true},
		{[]string{`"("`, "NUMBER", `"-"`, "NUMBER", `")"`, `"*"`, "NUMBER"}, true},
		{[]string{"NUMBER", `"+"`}, false},
		{[]string{`"("`, "NUMBER"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		ok, err := p.Recognize(g.Root(), tokens(tt.input...))
		if err != nil {
			t.Fatalf("%v: %v", tt.input, err)
		}
		if ok != tt.ok {
			t.Errorf("%v: Recognize() = %v, want %v", tt.input, ok, tt.ok)
		}
	}
}

func TestOptionAndStart(t *testing.T) {
	src := `
list = "[" [ items ] "]" .
items = ITEM { "," ITEM } .
ITEM = "a" … "z" .
`
	if _, err := Parse("list.ebnf", strings.NewReader(src), WithStart("items"), WithVerify()); err == nil {
		t.Fatal("verifying from items should report list as unreachable")
	}

	res, err := Parse("list.ebnf", strings.NewReader(src), WithStart("list"), WithVerify())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g := res.Grammar
	opt, ok := g.Lookup("list.opt1")
	if !ok {
		t.Fatal("no list.opt1")
	}
	nt := g.Nonterminal(opt)
	if nt.Len() != 2 || !nt.Production(1).IsEpsilon() {
		t.Errorf("list.opt1 = %d productions, want body | ε", nt.Len())
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts []Option
		line int
		col  int
		msg  string
	}{
		{"undefined", "expr = missing .", nil, 1, 8, "undefined: missing"},
		{"range", `expr = "a" … "z" .`, nil, 1, 8, "character range"},
		{"syntax", "expr = term", nil, 1, 0, ""},
		{"unknown start", "expr = A .", []Option{WithStart("stmt")}, 0, 0, "not defined"},
		{"lexical start", "A = \"a\" .", nil, 0, 0, "no nonterminal production"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.ebnf", strings.NewReader(tt.src), tt.opts...)
			var list ErrorList
			if !errors.As(err, &list) || len(list) == 0 {
				t.Fatalf("Parse() error = %v, want an ErrorList", err)
			}
			e := list[0]
			if e.Pos.Filename != "bad.ebnf" {
				t.Errorf("Filename = %q", e.Pos.Filename)
			}
			if tt.line != 0 && e.Pos.Line != tt.line {
				t.Errorf("Line = %d, want %d", e.Pos.Line, tt.line)
			}
			if tt.col != 0 && e.Pos.Column != tt.col {
				t.Errorf("Column = %d, want %d", e.Pos.Column, tt.col)
			}
			if !strings.Contains(e.Msg, tt.msg) {
				t.Errorf("Msg = %q, want it to contain %q", e.Msg, tt.msg)
			}
		})
	}
}

func TestSplitKeepsUnpositionedErrors(t *testing.T) {
	list := Split("x.ebnf", errors.New("something odd"))
	if len(list) != 1 || list[0].Msg != "something odd" || list[0].Pos.Line != 0 {
		t.Errorf("Split() = %v", list)
	}

	list = Split("x.ebnf", errors.New("x.ebnf:3:4: expected production"))
	if len(list) != 1 || list[0].Pos.Line != 3 || list[0].Pos.Column != 4 || list[0].Msg != "expected production" {
		t.Errorf("Split() = %#v", list[0])
	}
}
