package forest

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/dhamidi/earley/grammar"
)

// Label names n's symbol using g's display names when g is non-nil.
func Label(n *Node, g *grammar.Grammar) string {
	if g == nil {
		return n.symbol.String()
	}
	return g.Name(n.symbol)
}

// FamilyLabel describes family i of n as "#i A -> x y".
func FamilyLabel(n *Node, i int, g *grammar.Grammar) string {
	f := n.families[i]
	if g != nil {
		if nt := g.Nonterminal(n.symbol); nt != nil && f.Production < nt.Len() {
			return fmt.Sprintf("#%d %s", f.Production, g.FormatProduction(n.symbol, nt.Production(f.Production)))
		}
	}
	return fmt.Sprintf("#%d", f.Production)
}

// Dump writes a pre-order listing of the forest under root. Every family of a
// node appears on its own line followed by its children. A node that was
// already expanded earlier is printed again with a trailing "^" and is not
// expanded a second time.
func Dump(w io.Writer, root *Node, g *grammar.Grammar) error {
	bw := bufio.NewWriter(w)
	expanded := make(map[*Node]bool)

	type frame struct {
		node   *Node
		family int // -1: print the node line
		depth  int
	}
	stack := []frame{{root, -1, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		indent := strings.Repeat("  ", f.depth)

		if f.family >= 0 {
			fmt.Fprintf(bw, "%s%s\n", indent, FamilyLabel(f.node, f.family, g))
			children := f.node.families[f.family].Children
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{children[i], -1, f.depth + 1})
			}
			continue
		}

		n := f.node
		fmt.Fprintf(bw, "%s%s [%d,%d)", indent, Label(n, g), n.start, n.end)
		if len(n.families) > 0 && expanded[n] {
			fmt.Fprint(bw, " ^\n")
			continue
		}
		fmt.Fprint(bw, "\n")
		expanded[n] = true
		for i := len(n.families) - 1; i >= 0; i-- {
			stack = append(stack, frame{n, i, f.depth + 1})
		}
	}
	return bw.Flush()
}

// Dump returns the Dump listing of the forest under n.
func (n *Node) Dump(g *grammar.Grammar) string {
	var b strings.Builder
	_ = Dump(&b, n, g)
	return b.String()
}

// Walk visits every node reachable from root once, in pre-order. Returning
// false from fn skips the children of that node.
func Walk(root *Node, fn func(n *Node, depth int) bool) {
	type frame struct {
		node  *Node
		depth int
	}
	seen := make(map[*Node]bool)
	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[f.node] {
			continue
		}
		seen[f.node] = true
		if !fn(f.node, f.depth) {
			continue
		}
		fams := f.node.families
		for i := len(fams) - 1; i >= 0; i-- {
			for j := len(fams[i].Children) - 1; j >= 0; j-- {
				stack = append(stack, frame{fams[i].Children[j], f.depth + 1})
			}
		}
	}
}

// CountTrees returns the number of distinct derivation trees encoded by the
// forest under root.
func CountTrees(root *Node) *big.Int {
	memo := make(map[*Node]*big.Int)
	var count func(n *Node) *big.Int
	count = func(n *Node) *big.Int {
		if c, ok := memo[n]; ok {
			return c
		}
		total := new(big.Int)
		if len(n.families) == 0 {
			// A nonterminal without families has no finite derivation.
			if n.IsTerminal() {
				total.SetInt64(1)
			}
			memo[n] = total
			return total
		}
		for _, f := range n.families {
			product := big.NewInt(1)
			for _, c := range f.Children {
				product.Mul(product, count(c))
			}
			total.Add(total, product)
		}
		memo[n] = total
		return total
	}
	return count(root)
}
