package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/earley/forest"
	"github.com/dhamidi/earley/grammar"
)

type JSONEncoder struct {
	w       io.Writer
	grammar *grammar.Grammar
	root    *forest.Node
}

func NewJSONEncoder(w io.Writer, g *grammar.Grammar) *JSONEncoder {
	return &JSONEncoder{w: w, grammar: g}
}

func (e *JSONEncoder) Encode(root *forest.Node) error {
	e.root = root
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	if _, err := e.w.Write(text); err != nil {
		return err
	}
	_, err = io.WriteString(e.w, "\n")
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	data := e.buildForestData()
	return json.MarshalIndent(data, "", "  ")
}

type jsonForest struct {
	Root  int        `json:"root"`
	Nodes []jsonNode `json:"nodes"`
}

type jsonNode struct {
	ID       int          `json:"id"`
	Symbol   int32        `json:"symbol"`
	Name     string       `json:"name"`
	Start    int          `json:"start"`
	End      int          `json:"end"`
	Families []jsonFamily `json:"families,omitempty"`
}

type jsonFamily struct {
	Production int    `json:"production"`
	Rule       string `json:"rule,omitempty"`
	Children   []int  `json:"children"`
}

// buildForestData numbers nodes in pre-order, so the root is always 0 and
// every shared node is listed once.
func (e *JSONEncoder) buildForestData() jsonForest {
	data := jsonForest{Nodes: []jsonNode{}}
	if e.root == nil {
		data.Root = -1
		return data
	}

	ids := make(map[*forest.Node]int)
	var order []*forest.Node
	forest.Walk(e.root, func(n *forest.Node, depth int) bool {
		ids[n] = len(order)
		order = append(order, n)
		return true
	})

	for id, n := range order {
		node := jsonNode{
			ID:     id,
			Symbol: int32(n.Symbol()),
			Name:   forest.Label(n, e.grammar),
			Start:  n.Start(),
			End:    n.End(),
		}
		for i := 0; i < n.FamilyCount(); i++ {
			f := n.Family(i)
			fam := jsonFamily{
				Production: f.Production,
				Rule:       e.rule(n, f.Production),
				Children:   make([]int, len(f.Children)),
			}
			for ci, c := range f.Children {
				fam.Children[ci] = ids[c]
			}
			node.Families = append(node.Families, fam)
		}
		data.Nodes = append(data.Nodes, node)
	}
	return data
}

func (e *JSONEncoder) rule(n *forest.Node, production int) string {
	if e.grammar == nil {
		return ""
	}
	nt := e.grammar.Nonterminal(n.Symbol())
	if nt == nil || production >= nt.Len() {
		return ""
	}
	return e.grammar.FormatProduction(n.Symbol(), nt.Production(production))
}
