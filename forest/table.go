package forest

import (
	"encoding/binary"

	"github.com/dhamidi/earley/grammar"
)

type key struct {
	symbol     grammar.Symbol
	start, end int
}

// Table hash-conses nodes by (symbol, start, end) for the duration of one
// parse. It is not safe for concurrent use.
type Table struct {
	nodes map[key]*Node
	order []*Node
}

func NewTable() *Table {
	return &Table{nodes: make(map[key]*Node)}
}

// Len returns the number of nodes created through t.
func (t *Table) Len() int {
	return len(t.order)
}

// Lookup returns the node for (sym, start, end), or nil.
func (t *Table) Lookup(sym grammar.Symbol, start, end int) *Node {
	return t.nodes[key{sym, start, end}]
}

// FindOrCreate returns the unique node for (sym, start, end), creating it
// with a reference count of zero if it does not exist yet.
func (t *Table) FindOrCreate(sym grammar.Symbol, start, end int) *Node {
	k := key{sym, start, end}
	if n, ok := t.nodes[k]; ok {
		return n
	}
	n := &Node{symbol: sym, start: start, end: end, id: uint32(len(t.order))}
	t.nodes[k] = n
	t.order = append(t.order, n)
	live.Add(1)
	return n
}

func familyKey(production int, children []*Node) string {
	buf := make([]byte, 0, 4+4*len(children))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(production))
	for _, c := range children {
		buf = binary.LittleEndian.AppendUint32(buf, c.id)
	}
	return string(buf)
}

// AddFamily attaches a derivation to n. It does nothing and returns false if
// the same production with the same children is already attached, or if the
// family would make n its own descendant. Otherwise n takes a reference on
// every child.
func (t *Table) AddFamily(n *Node, production int, children []*Node) bool {
	k := familyKey(production, children)
	if _, dup := n.keys[k]; dup {
		return false
	}
	if t.Cyclic(n, children) {
		return false
	}
	if n.keys == nil {
		n.keys = make(map[string]struct{})
	}
	n.keys[k] = struct{}{}

	owned := make([]*Node, len(children))
	copy(owned, children)
	for _, c := range owned {
		c.AddRef()
	}
	n.families = append(n.families, Family{Production: production, Children: owned})
	return true
}

// Cyclic reports whether attaching children to n would create a cycle. Only
// children covering exactly n's span can lead back to n, since every
// descendant of a narrower child is narrower still.
func (t *Table) Cyclic(n *Node, children []*Node) bool {
	var visited map[*Node]bool
	for _, c := range children {
		if c.start != n.start || c.end != n.end {
			continue
		}
		if c == n {
			return true
		}
		if visited == nil {
			visited = make(map[*Node]bool)
		}
		if reaches(c, n, visited) {
			return true
		}
	}
	return false
}

func reaches(from, target *Node, visited map[*Node]bool) bool {
	stack := []*Node{from}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[top] {
			continue
		}
		visited[top] = true
		for _, f := range top.families {
			for _, c := range f.Children {
				if c.start != target.start || c.end != target.end {
					continue
				}
				if c == target {
					return true
				}
				stack = append(stack, c)
			}
		}
	}
	return false
}

// Release ends the parse t was used for. If keep is non-nil it receives one
// reference, owned by the caller. Every node not reachable from keep is
// released, and t forgets all nodes.
func (t *Table) Release(keep *Node) {
	if keep != nil {
		keep.AddRef()
	}
	// A node whose count is still zero has no parent; releasing it cascades
	// into everything only it kept alive.
	for _, n := range t.order {
		if !n.released && n.refs == 0 {
			n.release()
		}
	}
	for _, n := range t.order {
		n.keys = nil
	}
	t.nodes = make(map[key]*Node)
	t.order = nil
}
