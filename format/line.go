package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/earley/forest"
	"github.com/dhamidi/earley/grammar"
)

// LineEncoder writes one tab-separated line per node:
// name, start, end, and the number of families.
type LineEncoder struct {
	w       io.Writer
	grammar *grammar.Grammar
	root    *forest.Node
}

func NewLineEncoder(w io.Writer, g *grammar.Grammar) *LineEncoder {
	return &LineEncoder{w: w, grammar: g}
}

func (e *LineEncoder) Encode(root *forest.Node) error {
	e.root = root
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	if e.root == nil {
		return nil, nil
	}
	var sb strings.Builder
	forest.Walk(e.root, func(n *forest.Node, depth int) bool {
		fmt.Fprintf(&sb, "%s\t%d\t%d\t%d\n",
			forest.Label(n, e.grammar),
			n.Start(),
			n.End(),
			n.FamilyCount(),
		)
		return true
	})
	return []byte(sb.String()), nil
}
