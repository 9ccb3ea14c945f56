package grammar

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const (
	tA = Symbol(1)
	tB = Symbol(2)
	nS = Symbol(-1)
)

// anbn builds S -> a S b | ε.
func anbn() *Grammar {
	g := New(1, 2)
	g.SetNonterminal(nS, NewNonterminal(
		NewProduction(tA, nS, tB),
		NewProduction(),
	))
	g.SetRoot(nS)
	g.SetName(nS, "S")
	g.SetName(tA, "a")
	g.SetName(tB, "b")
	return g
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestSymbol(t *testing.T) {
	tests := []struct {
		sym         Symbol
		terminal    bool
		nonterminal bool
		index       int
		str         string
	}{
		{Terminal(3), true, false, 3, "t3"},
		{NonterminalID(2), false, true, 2, "N2"},
		{Symbol(0), false, false, 0, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.sym.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.sym.IsNonterminal(); got != tt.nonterminal {
				t.Errorf("IsNonterminal() = %v, want %v", got, tt.nonterminal)
			}
			if got := tt.sym.Index(); got != tt.index {
				t.Errorf("Index() = %d, want %d", got, tt.index)
			}
			if got := tt.sym.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

func TestProductionIsImmutable(t *testing.T) {
	in := []Symbol{tA, nS, tB}
	p := NewProduction(in...)
	in[0] = tB
	if p.At(0) != tA {
		t.Errorf("production shares caller slice: At(0) = %v", p.At(0))
	}
	out := p.Symbols()
	out[1] = tA
	if p.At(1) != nS {
		t.Errorf("Symbols() exposes internal slice: At(1) = %v", p.At(1))
	}
	if !NewProduction().IsEpsilon() {
		t.Error("empty production should be epsilon")
	}
}

func TestNonterminalAddProductionIndex(t *testing.T) {
	nt := NewNonterminal()
	for want := 0; want < 3; want++ {
		if got := nt.AddProduction(NewProduction(tA)); got != want {
			t.Errorf("AddProduction() = %d, want %d", got, want)
		}
	}
	if nt.Len() != 3 {
		t.Errorf("Len() = %d, want 3", nt.Len())
	}
}

func TestSetNonterminalContract(t *testing.T) {
	g := New(2, 1)
	expectPanic(t, "positive id", func() { g.SetNonterminal(Terminal(1), NewNonterminal()) })
	expectPanic(t, "out of range", func() { g.SetNonterminal(NonterminalID(3), NewNonterminal()) })
	expectPanic(t, "zero", func() { g.SetNonterminal(0, NewNonterminal()) })
	expectPanic(t, "most negative", func() { g.SetNonterminal(math.MinInt32, NewNonterminal()) })
	expectPanic(t, "most negative root", func() { g.SetRoot(math.MinInt32) })

	g.SetNonterminal(NonterminalID(1), NewNonterminal())
	expectPanic(t, "reassign", func() { g.SetNonterminal(NonterminalID(1), NewNonterminal()) })
}

func TestDeclares(t *testing.T) {
	g := New(2, 3)
	tests := []struct {
		sym  Symbol
		want bool
	}{
		{Terminal(1), true},
		{Terminal(3), true},
		{Terminal(4), false},
		{NonterminalID(2), true},
		{NonterminalID(3), false},
		{0, false},
		{math.MinInt32, false},
		{math.MaxInt32, false},
	}
	for _, tt := range tests {
		if got := g.Declares(tt.sym); got != tt.want {
			t.Errorf("Declares(%d) = %v, want %v", int32(tt.sym), got, tt.want)
		}
	}
	if got := Symbol(math.MinInt32).Index(); int64(got) != 1<<31 {
		t.Errorf("Index() = %d, want %d", got, 1<<31)
	}
}

func TestSetNameUnique(t *testing.T) {
	g := New(1, 2)
	g.SetName(tA, "a")
	g.SetName(tA, "a")
	expectPanic(t, "taken", func() { g.SetName(tB, "a") })

	g.SetName(tA, "x")
	g.SetName(tB, "a")
	if sym, ok := g.Lookup("a"); !ok || sym != tB {
		t.Errorf("Lookup(a) = %v, %v; want t2", sym, ok)
	}
	if _, ok := g.Lookup("x"); !ok {
		t.Error("x should name t1")
	}
}

func TestRootContract(t *testing.T) {
	g := New(1, 1)
	expectPanic(t, "unset root", func() { g.Root() })
	expectPanic(t, "terminal root", func() { g.SetRoot(Terminal(1)) })
	g.SetRoot(NonterminalID(1))
	if g.Root() != NonterminalID(1) {
		t.Errorf("Root() = %v", g.Root())
	}
}

func TestValidate(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		g := anbn()
		if err := g.Validate(); err != nil {
			t.Fatalf("Validate() = %v", err)
		}
		if !g.IsValid() {
			t.Error("grammar should be frozen after Validate")
		}
		expectPanic(t, "mutate after freeze", func() { g.SetName(tA, "x") })
	})

	t.Run("unassigned", func(t *testing.T) {
		g := New(2, 1)
		g.SetNonterminal(NonterminalID(1), NewNonterminal(NewProduction(Terminal(1))))
		g.SetRoot(NonterminalID(1))
		err := g.Validate()
		if !errors.Is(err, ErrInvalidGrammar) {
			t.Fatalf("Validate() = %v, want ErrInvalidGrammar", err)
		}
		if g.IsValid() {
			t.Error("invalid grammar must not be frozen")
		}
	})

	t.Run("undeclared symbol", func(t *testing.T) {
		g := New(1, 1)
		g.SetNonterminal(NonterminalID(1), NewNonterminal(NewProduction(Terminal(2))))
		g.SetRoot(NonterminalID(1))
		if err := g.Validate(); !errors.Is(err, ErrInvalidGrammar) {
			t.Fatalf("Validate() = %v, want ErrInvalidGrammar", err)
		}
	})

	t.Run("no root", func(t *testing.T) {
		g := New(1, 1)
		g.SetNonterminal(NonterminalID(1), NewNonterminal(NewProduction(Terminal(1))))
		if err := g.Validate(); !errors.Is(err, ErrInvalidGrammar) {
			t.Fatalf("Validate() = %v, want ErrInvalidGrammar", err)
		}
	})
}

func TestNullable(t *testing.T) {
	// A -> B C ; B -> ε ; C -> B | x ; D -> x
	g := New(4, 1)
	a, b, c, d := NonterminalID(1), NonterminalID(2), NonterminalID(3), NonterminalID(4)
	x := Terminal(1)
	g.SetNonterminal(a, NewNonterminal(NewProduction(b, c)))
	g.SetNonterminal(b, NewNonterminal(NewProduction()))
	g.SetNonterminal(c, NewNonterminal(NewProduction(b), NewProduction(x)))
	g.SetNonterminal(d, NewNonterminal(NewProduction(x)))
	g.SetRoot(a)
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}

	for sym, want := range map[Symbol]bool{a: true, b: true, c: true, d: false, x: false} {
		if got := g.Nullable(sym); got != want {
			t.Errorf("Nullable(%s) = %v, want %v", sym, got, want)
		}
	}
}

func TestNamesAndString(t *testing.T) {
	g := anbn()
	if s, ok := g.Lookup("a"); !ok || s != tA {
		t.Errorf("Lookup(a) = %v, %v", s, ok)
	}
	if _, ok := g.Lookup("zzz"); ok {
		t.Error("Lookup(zzz) should fail")
	}

	expected := "S -> a S b\nS -> ε\n"
	if got := g.String(); got != expected {
		t.Errorf("String() = %q, want %q", got, expected)
	}

	unnamed := New(1, 1)
	unnamed.SetNonterminal(NonterminalID(1), NewNonterminal(NewProduction(Terminal(1))))
	if got := strings.TrimSpace(unnamed.String()); got != "N1 -> t1" {
		t.Errorf("String() = %q, want %q", got, "N1 -> t1")
	}
}
