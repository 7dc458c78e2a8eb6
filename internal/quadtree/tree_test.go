package quadtree_test

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/quadtree"
)

func randomScenario(n int, seed int64) *dynamo.Scenario {
	rng := rand.New(rand.NewSource(seed))
	m := make([]float64, n)
	r := make([]r2.Vec, n)
	v := make([]r2.Vec, n)
	for i := range m {
		m[i] = 0.1 + 10*rng.Float64()
		r[i] = r2.Vec{X: 200*rng.Float64() - 100, Y: 200*rng.Float64() - 100}
	}
	s, err := dynamo.NewScenario(m, r, v)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func scenarioAt(masses []float64, pts ...r2.Vec) *dynamo.Scenario {
	s, err := dynamo.NewScenario(masses, pts, make([]r2.Vec, len(pts)))
	Expect(err).NotTo(HaveOccurred())
	return s
}

func weightedMean(s *dynamo.Scenario) r2.Vec {
	var acc r2.Vec
	for i := range s.M {
		acc = r2.Add(acc, r2.Scale(s.M[i], s.R[i]))
	}
	return r2.Scale(1/s.TotalMass(), acc)
}

// subtreeBodies collects every body index stored at or below idx.
func subtreeBodies(t *quadtree.Tree, idx int) []int {
	n := t.Node(idx)
	out := append([]int(nil), n.Bodies...)
	for q := quadtree.NW; q <= quadtree.SE; q++ {
		if c, ok := n.Child(q); ok {
			out = append(out, subtreeBodies(t, c)...)
		}
	}
	return out
}

func closeVec(a, b r2.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

var _ = Describe("QuadrantOf", func() {
	center := r2.Vec{X: 1, Y: 1}

	DescribeTable("assigns quadrants with east/north tie-break",
		func(p r2.Vec, want quadtree.Quadrant) {
			for range 3 {
				Expect(quadtree.QuadrantOf(center, p)).To(Equal(want))
			}
		},
		Entry("north-west", r2.Vec{X: 0, Y: 2}, quadtree.NW),
		Entry("north-east", r2.Vec{X: 2, Y: 2}, quadtree.NE),
		Entry("south-west", r2.Vec{X: 0, Y: 0}, quadtree.SW),
		Entry("south-east", r2.Vec{X: 2, Y: 0}, quadtree.SE),
		Entry("exactly on centre", r2.Vec{X: 1, Y: 1}, quadtree.NE),
		Entry("on vertical line, below", r2.Vec{X: 1, Y: 0}, quadtree.SE),
		Entry("on horizontal line, left", r2.Vec{X: 0, Y: 1}, quadtree.NW),
	)

	It("names quadrants", func() {
		Expect(quadtree.NW.String()).To(Equal("nw"))
		Expect(quadtree.SE.String()).To(Equal("se"))
		Expect(quadtree.Quadrant(9).String()).To(Equal("invalid"))
	})
})

var _ = Describe("Builder", func() {
	var builder *quadtree.Builder

	BeforeEach(func() {
		builder = quadtree.NewBuilder(quadtree.DefaultConfig())
	})

	Context("aggregates", func() {
		It("conserves total mass at the root", func() {
			for _, seed := range []int64{1, 2, 3} {
				s := randomScenario(500, seed)
				root := builder.Build(s).Root()
				Expect(root.Mass).To(BeNumerically("~", s.TotalMass(), 1e-9*s.TotalMass()))
			}
		})

		It("places the root centre of mass at the weighted mean", func() {
			s := randomScenario(300, 7)
			root := builder.Build(s).Root()
			Expect(closeVec(root.CenterOfMass, weightedMean(s), 1e-9)).To(BeTrue())
		})

		It("does not depend on insertion order", func() {
			s := randomScenario(200, 11)
			base := builder.Build(s).Root()

			rng := rand.New(rand.NewSource(5))
			perm := rng.Perm(s.Len())
			shuffled := &dynamo.Scenario{
				M: make([]float64, s.Len()),
				R: make([]r2.Vec, s.Len()),
				V: make([]r2.Vec, s.Len()),
				F: make([]r2.Vec, s.Len()),
			}
			for i, j := range perm {
				shuffled.M[i] = s.M[j]
				shuffled.R[i] = s.R[j]
			}
			other := builder.Build(shuffled).Root()

			Expect(other.Mass).To(BeNumerically("~", base.Mass, 1e-9*base.Mass))
			Expect(closeVec(other.CenterOfMass, base.CenterOfMass, 1e-9)).To(BeTrue())
		})

		It("keeps every node consistent with its subtree", func() {
			s := randomScenario(150, 3)
			tree := builder.Build(s)
			tree.Walk(func(idx int, n *quadtree.Node) {
				bodies := subtreeBodies(tree, idx)
				mass := 0.0
				var acc r2.Vec
				for _, b := range bodies {
					mass += s.M[b]
					acc = r2.Add(acc, r2.Scale(s.M[b], s.R[b]))
				}
				Expect(n.Mass).To(BeNumerically("~", mass, 1e-9*math.Max(mass, 1)))
				if mass > 0 {
					Expect(closeVec(n.CenterOfMass, r2.Scale(1/mass, acc), 1e-8)).To(BeTrue())
				}
				if !n.IsLeaf() {
					Expect(n.Bodies).To(BeEmpty())
				}
			})
		})
	})

	Context("structure", func() {
		It("stores each body in exactly one leaf", func() {
			s := randomScenario(400, 9)
			tree := builder.Build(s)
			seen := make(map[int]int)
			tree.Walk(func(_ int, n *quadtree.Node) {
				for _, b := range n.Bodies {
					seen[b]++
					Expect(n.IsLeaf()).To(BeTrue())
					Expect(n.Contains(s.R[b])).To(BeTrue())
				}
			})
			Expect(seen).To(HaveLen(s.Len()))
			for b, count := range seen {
				Expect(count).To(Equal(1), "body %d", b)
			}
			Expect(tree.Escaped()).To(BeEmpty())
		})

		It("halves children and offsets them by a quarter", func() {
			s := randomScenario(50, 4)
			tree := builder.Build(s)
			tree.Walk(func(_ int, n *quadtree.Node) {
				for q := quadtree.NW; q <= quadtree.SE; q++ {
					c, ok := n.Child(q)
					if !ok {
						continue
					}
					child := tree.Node(c)
					Expect(child.Size).To(Equal(n.Size / 2))
					d := n.Size / 4
					Expect(math.Abs(child.Center.X - n.Center.X)).To(BeNumerically("~", d, 1e-12))
					Expect(math.Abs(child.Center.Y - n.Center.Y)).To(BeNumerically("~", d, 1e-12))
					Expect(quadtree.QuadrantOf(n.Center, child.Center)).To(Equal(q))
				}
			})
		})

		It("keeps a single body in the root leaf", func() {
			s := scenarioAt([]float64{3}, r2.Vec{X: 4, Y: -2})
			tree := builder.Build(s)
			root := tree.Root()
			Expect(root.IsLeaf()).To(BeTrue())
			Expect(root.Bodies).To(Equal([]int{0}))
			Expect(root.Mass).To(Equal(3.0))
			Expect(closeVec(root.CenterOfMass, r2.Vec{X: 4, Y: -2}, 1e-12)).To(BeTrue())
			Expect(tree.Len()).To(Equal(1))
		})

		It("builds an empty root for no bodies", func() {
			s := scenarioAt(nil)
			root := builder.Build(s).Root()
			Expect(root.Mass).To(BeZero())
			Expect(root.CenterOfMass).To(Equal(root.Center))
			Expect(root.Bodies).To(BeEmpty())
		})

		It("sends a body on the centre line east and north", func() {
			cfg := quadtree.DefaultConfig()
			cfg.Bounds = quadtree.BoundsFixed
			cfg.Center = r2.Vec{}
			cfg.Size = 4
			tree := quadtree.NewBuilder(cfg).Build(scenarioAt([]float64{1, 1},
				r2.Vec{X: 0, Y: 0},
				r2.Vec{X: -1, Y: -1},
			))

			root := tree.Root()
			ne, ok := root.Child(quadtree.NE)
			Expect(ok).To(BeTrue())
			Expect(tree.Node(ne).Bodies).To(Equal([]int{0}))
			sw, ok := root.Child(quadtree.SW)
			Expect(ok).To(BeTrue())
			Expect(tree.Node(sw).Bodies).To(Equal([]int{1}))
			_, ok = root.Child(quadtree.NW)
			Expect(ok).To(BeFalse())
		})
	})

	Context("degenerate geometry", func() {
		It("merges coincident bodies into one terminal leaf", func() {
			pts := make([]r2.Vec, 0, 11)
			masses := make([]float64, 0, 11)
			for range 10 {
				pts = append(pts, r2.Vec{X: 1, Y: 1})
				masses = append(masses, 2)
			}
			pts = append(pts, r2.Vec{X: -5, Y: 3})
			masses = append(masses, 1)

			tree := builder.Build(scenarioAt(masses, pts...))
			Expect(tree.Depth()).To(BeNumerically("<=", 45))

			var crowded []int
			tree.Walk(func(_ int, n *quadtree.Node) {
				if len(n.Bodies) > 1 {
					crowded = n.Bodies
					Expect(n.Size).To(BeNumerically("<", tree.MinCellSize()))
				}
			})
			Expect(crowded).To(ConsistOf(0, 1, 2, 3, 4, 5, 6, 7, 8, 9))
			Expect(tree.Root().Mass).To(BeNumerically("~", 21, 1e-12))
		})

		It("uses a unit square when every body coincides", func() {
			tree := builder.Build(scenarioAt([]float64{1, 1}, r2.Vec{X: 7, Y: 7}, r2.Vec{X: 7, Y: 7}))
			Expect(tree.Root().Size).To(Equal(1.0))
			Expect(tree.Root().Mass).To(Equal(2.0))
		})

		It("honours an explicit minimum cell size", func() {
			cfg := quadtree.DefaultConfig()
			cfg.MinCellSize = 50
			tree := quadtree.NewBuilder(cfg).Build(randomScenario(100, 8))
			tree.Walk(func(_ int, n *quadtree.Node) {
				if !n.IsLeaf() {
					Expect(n.Size).To(BeNumerically(">=", 50))
				}
			})
		})
	})

	Context("fixed universe", func() {
		It("reports bodies outside the region as escaped", func() {
			cfg := quadtree.DefaultConfig()
			cfg.Bounds = quadtree.BoundsFixed
			tree := quadtree.NewBuilder(cfg).Build(scenarioAt([]float64{1, 2, 4},
				r2.Vec{X: 100, Y: 100},
				r2.Vec{X: -5, Y: 100},
				r2.Vec{X: 900, Y: 900},
			))
			Expect(tree.Escaped()).To(Equal([]int{1}))
			Expect(tree.Root().Mass).To(Equal(5.0))
			Expect(tree.Root().Center).To(Equal(r2.Vec{X: 500, Y: 500}))
		})
	})
})

var _ = Describe("Node.FarEnough", func() {
	var node *quadtree.Node

	BeforeEach(func() {
		tree := quadtree.NewBuilder(quadtree.DefaultConfig()).Build(
			scenarioAt([]float64{1, 1}, r2.Vec{X: -1, Y: 0}, r2.Vec{X: 1, Y: 0}))
		node = tree.Root()
	})

	It("never approximates at theta zero", func() {
		Expect(node.FarEnough(r2.Vec{X: 1e9, Y: 1e9}, 0, 1e-6)).To(BeFalse())
	})

	It("approximates distant points", func() {
		Expect(node.FarEnough(r2.Vec{X: 100, Y: 0}, 0.5, 1e-6)).To(BeTrue())
	})

	It("opens nearby nodes", func() {
		Expect(node.FarEnough(r2.Vec{X: 2, Y: 0}, 0.5, 1e-6)).To(BeFalse())
	})

	It("floors the distance at the centre of mass", func() {
		Expect(node.FarEnough(node.CenterOfMass, 0.5, 1e-6)).To(BeFalse())
	})
})

var _ = Describe("Config", func() {
	It("parses bounds modes", func() {
		m, err := quadtree.ParseBoundsMode("Fixed")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(quadtree.BoundsFixed))
		Expect(m.String()).To(Equal("fixed"))

		m, err = quadtree.ParseBoundsMode("")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(quadtree.BoundsAdaptive))

		_, err = quadtree.ParseBoundsMode("spherical")
		Expect(errors.Is(err, dynamo.ErrInvalidConfig)).To(BeTrue())
	})

	It("rejects a non-positive fixed universe", func() {
		cfg := quadtree.DefaultConfig()
		cfg.Bounds = quadtree.BoundsFixed
		cfg.Size = 0
		Expect(cfg.Validate()).To(MatchError(dynamo.ErrInvalidConfig))
	})

	It("rejects negative padding", func() {
		cfg := quadtree.DefaultConfig()
		cfg.Padding = -0.1
		Expect(cfg.Validate()).To(MatchError(dynamo.ErrInvalidConfig))
	})

	It("covers every body with the adaptive region", func() {
		s := randomScenario(64, 12)
		center, size := quadtree.AdaptiveRegion(s.R, 0)
		half := size / 2
		for _, p := range s.R {
			Expect(p.X).To(BeNumerically(">=", center.X-half))
			Expect(p.X).To(BeNumerically("<=", center.X+half))
			Expect(p.Y).To(BeNumerically(">=", center.Y-half))
			Expect(p.Y).To(BeNumerically("<=", center.Y+half))
		}
	})
})
