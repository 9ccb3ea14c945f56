// Package format renders parse forests.
package format

import (
	"encoding"
	"fmt"
	"io"

	"github.com/dhamidi/earley/forest"
	"github.com/dhamidi/earley/grammar"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(root *forest.Node) error
}

// New returns the encoder registered under name: "text", "json" or "line".
func New(name string, w io.Writer, g *grammar.Grammar) (Encoder, error) {
	switch name {
	case "", "text":
		return NewTextEncoder(w, g), nil
	case "json":
		return NewJSONEncoder(w, g), nil
	case "line":
		return NewLineEncoder(w, g), nil
	}
	return nil, fmt.Errorf("unknown format %q", name)
}
