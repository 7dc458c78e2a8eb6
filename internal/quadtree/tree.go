package quadtree

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Tree is an arena of nodes built over one step's positions. It keeps
// references to the scenario's position and mass slices, which must not
// change while the tree is in use.
type Tree struct {
	nodes   []Node
	r       []r2.Vec
	m       []float64
	minCell float64
	escaped []int
}

func newTree(r []r2.Vec, m []float64, center r2.Vec, size, minCell float64) *Tree {
	t := &Tree{
		nodes:   make([]Node, 1, 2*len(r)+1),
		r:       r,
		m:       m,
		minCell: minCell,
	}
	t.nodes[0] = newNode(center, size)
	return t
}

// Root returns the node covering the whole region.
func (t *Tree) Root() *Node { return &t.nodes[0] }

// Node returns the node at arena index i.
func (t *Tree) Node(i int) *Node { return &t.nodes[i] }

// Len is the number of allocated nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Escaped lists bodies that fell outside the root region and were left out
// of the tree.
func (t *Tree) Escaped() []int { return t.escaped }

// MinCellSize is the side below which leaves stop splitting.
func (t *Tree) MinCellSize() float64 { return t.minCell }

// Insert adds body i. It returns false, leaving the tree untouched, when
// the body lies outside the root square.
func (t *Tree) Insert(i int) bool {
	if !t.nodes[0].Contains(t.r[i]) {
		return false
	}
	t.place(0, i)
	return true
}

// place pushes body i into the subtree at idx. Quadrant selection guarantees
// the body belongs to the chosen child, so containment is not rechecked
// below the root; derived child bounds can round away from a body sitting on
// an edge.
func (t *Tree) place(idx int32, i int) {
	p := t.r[i]
	n := &t.nodes[idx]

	switch {
	case n.IsLeaf() && len(n.Bodies) == 0:
		n.Bodies = []int{i}
	case n.Size < t.minCell:
		n.Bodies = append(n.Bodies, i)
	default:
		if len(n.Bodies) == 1 {
			existing := n.Bodies[0]
			n.Bodies = nil
			t.place(t.child(idx, QuadrantOf(n.Center, t.r[existing])), existing)
		}
		t.place(t.child(idx, QuadrantOf(t.nodes[idx].Center, p)), i)
	}

	// child may have grown the arena; n is stale past this point.
	t.nodes[idx].fold(p, t.m[i])
}

// child returns the child of idx in quadrant q, allocating it on first use.
func (t *Tree) child(idx int32, q Quadrant) int32 {
	if c := t.nodes[idx].children[q]; c != 0 {
		return c
	}
	parent := &t.nodes[idx]
	t.nodes = append(t.nodes, newNode(parent.quadCenter(q), parent.Size/2))
	c := int32(len(t.nodes) - 1)
	t.nodes[idx].children[q] = c
	return c
}

// Depth is the number of levels, the root alone being depth 1.
func (t *Tree) Depth() int {
	type item struct {
		idx   int32
		depth int
	}
	deepest := 0
	stack := []item{{0, 1}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.depth > deepest {
			deepest = it.depth
		}
		for _, c := range t.nodes[it.idx].children {
			if c != 0 {
				stack = append(stack, item{c, it.depth + 1})
			}
		}
	}
	return deepest
}

// Walk visits every node depth-first, parents before children.
func (t *Tree) Walk(fn func(idx int, n *Node)) {
	stack := []int32{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[idx]
		fn(int(idx), n)
		for q := SE; q >= NW; q-- {
			if c := n.children[q]; c != 0 {
				stack = append(stack, c)
			}
		}
	}
}
