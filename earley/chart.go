package earley

import (
	"github.com/dhamidi/earley/forest"
	"github.com/dhamidi/earley/grammar"
)

// link records one way an item was reached: by advancing pred over child.
type link struct {
	pred  *item
	child *forest.Node
}

// item is an Earley item: a rule, a dot position within its right-hand side,
// and the input position where recognition of the rule began.
type item struct {
	rule   int32
	dot    int32
	origin int32
	links  []link

	paths    [][]*forest.Node
	hasPaths bool
}

type itemKey struct {
	rule, dot, origin int32
}

type completionKey struct {
	lhs    grammar.Symbol
	origin int32
}

// itemSet holds the items ending at one input position.
type itemSet struct {
	items []*item
	index map[itemKey]*item

	// waiting lists, per nonterminal, the items whose next symbol it is.
	waiting map[grammar.Symbol][]*item

	// predicted marks nonterminals already expanded at this position.
	predicted map[grammar.Symbol]bool

	// completed maps a (nonterminal, origin) pair to its forest node once the
	// first item for it completes here. emptied is the subset with
	// origin == this position: nonterminals that derived the empty string.
	completed map[completionKey]*forest.Node
	emptied   map[grammar.Symbol]*forest.Node

	// done lists completed items in the order they were processed.
	done []*item
}

func newItemSet() *itemSet {
	return &itemSet{
		index:     make(map[itemKey]*item),
		waiting:   make(map[grammar.Symbol][]*item),
		predicted: make(map[grammar.Symbol]bool),
		completed: make(map[completionKey]*forest.Node),
		emptied:   make(map[grammar.Symbol]*forest.Node),
	}
}

// add inserts the item (rule, dot, origin) unless it is present, and records
// l on it when l.pred is set.
func (s *itemSet) add(rule, dot, origin int32, l link) {
	k := itemKey{rule, dot, origin}
	it, ok := s.index[k]
	if !ok {
		it = &item{rule: rule, dot: dot, origin: origin}
		s.index[k] = it
		s.items = append(s.items, it)
	}
	if l.pred != nil {
		it.links = append(it.links, l)
	}
}

// chart is the state of one parse. It is never shared.
type chart struct {
	p      *Parser
	tokens []grammar.Symbol
	sets   []*itemSet
	table  *forest.Table

	dropped int
}

func newChart(p *Parser, tokens []grammar.Symbol) *chart {
	c := &chart{
		p:      p,
		tokens: tokens,
		sets:   make([]*itemSet, len(tokens)+1),
		table:  forest.NewTable(),
	}
	for i := range c.sets {
		c.sets[i] = newItemSet()
	}
	return c
}

func (c *chart) isComplete(it *item) bool {
	return int(it.dot) == len(c.p.rules[it.rule].rhs)
}

func (c *chart) next(it *item) grammar.Symbol {
	return c.p.rules[it.rule].rhs[it.dot]
}

func (c *chart) run(root grammar.Symbol) Result {
	n := len(c.tokens)
	c.predict(0, root)

	furthest := 0
	built := 0
	for i := 0; i <= n; i++ {
		c.process(i)
		c.buildFamilies(i)
		built = i + 1
		furthest = i
		if i < n && len(c.sets[i+1].items) == 0 {
			break
		}
	}

	res := Result{
		Furthest: furthest,
		SetSizes: make([]int, built),
		Nodes:    c.table.Len(),
	}
	for i := 0; i < built; i++ {
		res.SetSizes[i] = len(c.sets[i].items)
		res.Items += len(c.sets[i].items)
	}

	var rootNode *forest.Node
	if furthest == n {
		if node := c.table.Lookup(root, 0, n); node != nil && node.FamilyCount() > 0 {
			rootNode = node
		}
	}
	c.table.Release(rootNode)
	res.Root = rootNode
	res.Dropped = c.dropped
	return res
}

// process runs PREDICT, SCAN and COMPLETE over set i until no new items
// appear. Items added while the loop runs are picked up by the same loop.
func (c *chart) process(i int) {
	set := c.sets[i]
	for j := 0; j < len(set.items); j++ {
		it := set.items[j]
		if c.isComplete(it) {
			c.complete(i, it)
			continue
		}

		sym := c.next(it)
		if sym.IsTerminal() {
			c.scan(i, it, sym)
			continue
		}

		set.waiting[sym] = append(set.waiting[sym], it)
		c.predict(i, sym)
		// sym may already have derived the empty string here, before it
		// was waited on; its completion will not come around again.
		if node := set.emptied[sym]; node != nil {
			set.add(it.rule, it.dot+1, it.origin, link{it, node})
		}
	}
}

func (c *chart) predict(i int, sym grammar.Symbol) {
	set := c.sets[i]
	if set.predicted[sym] {
		return
	}
	set.predicted[sym] = true
	for _, r := range c.p.byLHS[sym.Index()-1] {
		set.add(r, 0, int32(i), link{})
	}
}

func (c *chart) scan(i int, it *item, sym grammar.Symbol) {
	if i >= len(c.tokens) || c.tokens[i] != sym {
		return
	}
	leaf := c.table.FindOrCreate(sym, i, i+1)
	c.sets[i+1].add(it.rule, it.dot+1, it.origin, link{it, leaf})
}

// complete handles an item whose dot reached the end at position j. The first
// completion of a nonterminal from a given origin creates the forest node and
// advances the items waiting on it; later completions of other rules for the
// same nonterminal and origin only contribute families.
func (c *chart) complete(j int, it *item) {
	set := c.sets[j]
	set.done = append(set.done, it)

	lhs := c.p.rules[it.rule].lhs
	ck := completionKey{lhs, it.origin}
	if _, ok := set.completed[ck]; ok {
		return
	}

	node := c.table.FindOrCreate(lhs, int(it.origin), j)
	set.completed[ck] = node
	if int(it.origin) == j {
		set.emptied[lhs] = node
	}

	for _, w := range c.sets[it.origin].waiting[lhs] {
		set.add(w.rule, w.dot+1, w.origin, link{w, node})
	}
}

// childPaths returns every sequence of child nodes that leads from the start
// of its rule to its dot. Results are memoized; they are only requested once
// the sets holding it and its predecessors are final.
func (c *chart) childPaths(it *item) [][]*forest.Node {
	if it.hasPaths {
		return it.paths
	}
	if it.dot == 0 {
		it.paths = [][]*forest.Node{nil}
	} else {
		for _, l := range it.links {
			for _, prefix := range c.childPaths(l.pred) {
				seq := make([]*forest.Node, len(prefix)+1)
				copy(seq, prefix)
				seq[len(prefix)] = l.child
				it.paths = append(it.paths, seq)
			}
		}
	}
	it.hasPaths = true
	return it.paths
}

type pendingFamily struct {
	node       *forest.Node
	production int
	children   []*forest.Node
}

// buildFamilies attaches a family to the forest node of every item completed
// at position j, once per distinct child sequence. A family that has a
// same-span nonterminal child without families of its own is held back until
// that child has one; those still held when nothing more can be attached
// derive nothing finite and are dropped, as are families that would close a
// cycle.
func (c *chart) buildFamilies(j int) {
	set := c.sets[j]
	var pending []pendingFamily
	for _, it := range set.done {
		r := c.p.rules[it.rule]
		node := set.completed[completionKey{r.lhs, it.origin}]
		for _, path := range c.childPaths(it) {
			f := pendingFamily{node, r.production, path}
			if !grounded(f) {
				pending = append(pending, f)
				continue
			}
			c.attach(f)
		}
	}

	for progress := true; progress && len(pending) > 0; {
		progress = false
		rest := pending[:0]
		for _, f := range pending {
			if !grounded(f) {
				rest = append(rest, f)
				continue
			}
			c.attach(f)
			progress = true
		}
		pending = rest
	}
	c.dropped += len(pending)
}

func (c *chart) attach(f pendingFamily) {
	if c.table.AddFamily(f.node, f.production, f.children) {
		return
	}
	if c.table.Cyclic(f.node, f.children) {
		c.dropped++
	}
}

func grounded(f pendingFamily) bool {
	start, end := f.node.Span()
	for _, child := range f.children {
		if child.IsTerminal() || child.FamilyCount() > 0 {
			continue
		}
		if child.Start() == start && child.End() == end {
			return false
		}
	}
	return true
}
