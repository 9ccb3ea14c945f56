package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dhamidi/earley/earley"
	"github.com/dhamidi/earley/forest"
	"github.com/dhamidi/earley/grammar"
)

var (
	tX = grammar.Terminal(1)
	nS = grammar.NonterminalID(1)
)

// parseXXX parses "x x x" with S -> S S | x.
func parseXXX(t *testing.T) (*grammar.Grammar, *forest.Node) {
	t.Helper()
	g := grammar.New(1, 1)
	g.SetNonterminal(nS, grammar.NewNonterminal(
		grammar.NewProduction(nS, nS),
		grammar.NewProduction(tX),
	))
	g.SetRoot(nS)
	g.SetName(nS, "S")
	g.SetName(tX, "x")

	p, err := earley.NewParser(g)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	root, err := p.Parse(nS, []grammar.Symbol{tX, tX, tX})
	if err != nil || root == nil {
		t.Fatalf("Parse() = %v, %v", root, err)
	}
	t.Cleanup(root.DelRef)
	return g, root
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	for _, name := range []string{"", "text", "json", "line"} {
		if _, err := New(name, &buf, nil); err != nil {
			t.Errorf("New(%q): %v", name, err)
		}
	}
	if _, err := New("xml", &buf, nil); err == nil {
		t.Error("New(xml) should fail")
	}
}

func TestTextEncoder(t *testing.T) {
	g, root := parseXXX(t)

	var buf bytes.Buffer
	if err := NewTextEncoder(&buf, g).Encode(root); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, want := buf.String(), root.Dump(g); got != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}
}

func TestJSONEncoder(t *testing.T) {
	g, root := parseXXX(t)

	var buf bytes.Buffer
	if err := NewJSONEncoder(&buf, g).Encode(root); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var data jsonForest
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, buf.String())
	}
	if data.Root != 0 {
		t.Errorf("root = %d, want 0", data.Root)
	}
	if len(data.Nodes) != 9 {
		t.Fatalf("%d nodes, want 9", len(data.Nodes))
	}
	for i, n := range data.Nodes {
		if n.ID != i {
			t.Errorf("node %d has id %d", i, n.ID)
		}
		for _, f := range n.Families {
			for _, c := range f.Children {
				if c == i || c < 0 || c >= len(data.Nodes) {
					t.Errorf("node %d: bad child id %d", i, c)
				}
			}
		}
	}

	top := data.Nodes[0]
	if top.Name != "S" || top.Start != 0 || top.End != 3 || len(top.Families) != 2 {
		t.Errorf("root node = %+v", top)
	}
	if top.Families[0].Rule != "S -> S S" {
		t.Errorf("rule = %q, want S -> S S", top.Families[0].Rule)
	}
}

func TestLineEncoder(t *testing.T) {
	g, _ := parseXXX(t)

	text, err := NewLineEncoder(nil, g).MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(text), "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("%d lines, want 9:\n%s", len(lines), text)
	}
	if lines[0] != "S\t0\t3\t2" {
		t.Errorf("first line = %q", lines[0])
	}
	// S [1,3) is reached last, through the second family of the root.
	if lines[len(lines)-1] != "S\t1\t3\t1" {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
}

func TestEncodeNilRoot(t *testing.T) {
	var buf bytes.Buffer
	for _, enc := range []Encoder{NewTextEncoder(&buf, nil), NewLineEncoder(&buf, nil)} {
		if err := enc.Encode(nil); err != nil {
			t.Errorf("%T.Encode(nil): %v", enc, err)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %q for an empty forest", buf.String())
	}
}
