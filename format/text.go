package format

import (
	"io"
	"strings"

	"github.com/dhamidi/earley/forest"
	"github.com/dhamidi/earley/grammar"
)

// TextEncoder writes the indented listing produced by forest.Dump.
type TextEncoder struct {
	w       io.Writer
	grammar *grammar.Grammar
	root    *forest.Node
}

func NewTextEncoder(w io.Writer, g *grammar.Grammar) *TextEncoder {
	return &TextEncoder{w: w, grammar: g}
}

func (e *TextEncoder) Encode(root *forest.Node) error {
	e.root = root
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *TextEncoder) MarshalText() ([]byte, error) {
	if e.root == nil {
		return nil, nil
	}
	var sb strings.Builder
	if err := forest.Dump(&sb, e.root, e.grammar); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}
