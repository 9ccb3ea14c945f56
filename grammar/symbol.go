// Package grammar holds integer-coded context-free grammars and their binary
// encoding.
package grammar

import "strconv"

// Symbol identifies a grammar symbol. Positive values are terminals, negative
// values are nonterminals indexed by their absolute value. Zero is never a
// valid symbol.
type Symbol int32

// Terminal returns the terminal with the given id.
func Terminal(id int) Symbol {
	return Symbol(id)
}

// NonterminalID returns the nonterminal with the given id.
func NonterminalID(id int) Symbol {
	return Symbol(-id)
}

func (s Symbol) IsTerminal() bool {
	return s > 0
}

func (s Symbol) IsNonterminal() bool {
	return s < 0
}

// Index returns the absolute id of s, which is the position of s in the
// terminal or nonterminal table counting from 1.
func (s Symbol) Index() int {
	if s < 0 {
		return -int(s)
	}
	return int(s)
}

func (s Symbol) String() string {
	switch {
	case s > 0:
		return "t" + strconv.Itoa(int(s))
	case s < 0:
		return "N" + strconv.Itoa(-int(s))
	default:
		return "<nil>"
	}
}
