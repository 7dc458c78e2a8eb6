package quadtree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Quadrant indexes a node's children.
type Quadrant int

const (
	NW Quadrant = iota
	NE
	SW
	SE
)

func (q Quadrant) String() string {
	switch q {
	case NW:
		return "nw"
	case NE:
		return "ne"
	case SW:
		return "sw"
	case SE:
		return "se"
	default:
		return "invalid"
	}
}

// QuadrantOf returns the quadrant of p relative to center.
func QuadrantOf(center, p r2.Vec) Quadrant {
	if p.X < center.X {
		if p.Y < center.Y {
			return SW
		}
		return NW
	}
	if p.Y < center.Y {
		return SE
	}
	return NE
}

// Node is one square cell of the tree. Center and Size never change after
// the node is created.
type Node struct {
	Center r2.Vec
	// Size is the full side length of the square.
	Size float64

	Mass         float64
	CenterOfMass r2.Vec

	// Bodies is non-empty only for leaves that hold bodies. A leaf holds a
	// single index unless it is a terminal cell below the minimum size.
	Bodies []int

	// children are arena indices; 0 marks an empty slot since the root is
	// never anyone's child.
	children [4]int32
}

func newNode(center r2.Vec, size float64) Node {
	return Node{Center: center, Size: size, CenterOfMass: center}
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.children == [4]int32{}
}

// Child returns the arena index of the child in quadrant q and whether it
// exists.
func (n *Node) Child(q Quadrant) (int, bool) {
	c := n.children[q]
	return int(c), c != 0
}

// Contains reports whether p lies inside the node's square, edges included.
func (n *Node) Contains(p r2.Vec) bool {
	half := n.Size / 2
	return p.X >= n.Center.X-half && p.X <= n.Center.X+half &&
		p.Y >= n.Center.Y-half && p.Y <= n.Center.Y+half
}

// FarEnough is the opening-angle test: the node may stand in for its whole
// subtree when Size^2 / max(|com-p|^2, eps) < theta^2. theta == 0 never
// passes.
func (n *Node) FarEnough(p r2.Vec, theta, eps float64) bool {
	distSq := math.Max(r2.Norm2(r2.Sub(n.CenterOfMass, p)), eps)
	return n.Size*n.Size/distSq < theta*theta
}

// quadCenter is the centre of the child square in quadrant q.
func (n *Node) quadCenter(q Quadrant) r2.Vec {
	d := n.Size / 4
	switch q {
	case NW:
		return r2.Vec{X: n.Center.X - d, Y: n.Center.Y + d}
	case NE:
		return r2.Vec{X: n.Center.X + d, Y: n.Center.Y + d}
	case SW:
		return r2.Vec{X: n.Center.X - d, Y: n.Center.Y - d}
	default:
		return r2.Vec{X: n.Center.X + d, Y: n.Center.Y - d}
	}
}

// fold adds a body to the running aggregate.
func (n *Node) fold(r r2.Vec, m float64) {
	total := n.Mass + m
	n.CenterOfMass = r2.Scale(1/total, r2.Add(r2.Scale(n.Mass, n.CenterOfMass), r2.Scale(m, r)))
	n.Mass = total
}
