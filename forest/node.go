// Package forest implements shared packed parse forests: hash-consed nodes
// over token spans, with one family per distinct derivation and explicit
// reference counting.
package forest

import (
	"fmt"
	"sync/atomic"

	"github.com/dhamidi/earley/grammar"
)

var live atomic.Int64

// Live returns the number of nodes, across all forests of the process, that
// have been created and not yet released.
func Live() int64 {
	return live.Load()
}

// Family is one derivation of a node: the index of the production it realizes
// within the node's nonterminal, and one child per production symbol.
type Family struct {
	Production int
	Children   []*Node
}

// Node is the recognition of one symbol over the half-open token span
// [Start, End). Terminal nodes have no families; a nonterminal node with
// more than one family is ambiguous.
//
// A node is owned through reference counts: every family holding it as a
// child owns one reference, and so does the caller that received a root from
// a parse. Reference counts of one forest must not be changed from several
// goroutines at once.
type Node struct {
	symbol     grammar.Symbol
	start, end int
	families   []Family
	keys       map[string]struct{}
	id         uint32
	refs       int32
	released   bool
}

func (n *Node) Symbol() grammar.Symbol {
	return n.symbol
}

// Span returns the half-open token range covered by n.
func (n *Node) Span() (start, end int) {
	return n.start, n.end
}

func (n *Node) Start() int {
	return n.start
}

func (n *Node) End() int {
	return n.end
}

func (n *Node) IsTerminal() bool {
	return n.symbol.IsTerminal()
}

func (n *Node) IsAmbiguous() bool {
	return len(n.families) > 1
}

func (n *Node) FamilyCount() int {
	return len(n.families)
}

// Family returns the i-th derivation of n. The children slice is shared with
// the forest and must not be modified.
func (n *Node) Family(i int) Family {
	return n.families[i]
}

// Refs returns the current reference count.
func (n *Node) Refs() int {
	return int(n.refs)
}

// Released reports whether the node's reference count has dropped to zero.
func (n *Node) Released() bool {
	return n.released
}

func (n *Node) String() string {
	return fmt.Sprintf("%s [%d,%d)", n.symbol, n.start, n.end)
}

// AddRef takes one more reference on n and returns it.
func (n *Node) AddRef() *Node {
	if n.released {
		panic(fmt.Sprintf("forest: AddRef on released node %s", n))
	}
	n.refs++
	return n
}

// DelRef drops one reference. When the count reaches zero the node drops the
// references it holds on its children and is released.
func (n *Node) DelRef() {
	if n.released || n.refs <= 0 {
		panic(fmt.Sprintf("forest: DelRef on unowned node %s", n))
	}
	n.refs--
	if n.refs == 0 {
		n.release()
	}
}

// release frees n and everything only n kept alive. It walks with an explicit
// stack because right-recursive forests can be as deep as the input is long.
func (n *Node) release() {
	stack := []*Node{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		top.released = true
		live.Add(-1)
		for _, f := range top.families {
			for _, c := range f.Children {
				c.refs--
				if c.refs == 0 {
					stack = append(stack, c)
				}
			}
		}
		top.families = nil
		top.keys = nil
	}
}
