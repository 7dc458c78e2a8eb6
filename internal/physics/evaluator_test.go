package physics_test

import (
	"math"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/physics"
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
		v[i] = r2.Vec{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5}
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

func unitG(theta float64, threads int) physics.Config {
	cfg := physics.DefaultConfig()
	cfg.G = 1
	cfg.Theta = theta
	cfg.Threads = threads
	return cfg
}

// forces runs one force-only evaluation on a copy of s.
func forces(s *dynamo.Scenario, cfg physics.Config) ([]r2.Vec, physics.Stats) {
	c := s.Clone()
	tree := quadtree.NewBuilder(quadtree.DefaultConfig()).Build(c)
	stats := physics.NewEvaluator(cfg).Evaluate(c, tree, 0)
	return c.F, stats
}

func expectClose(got, want []r2.Vec, rel float64) {
	Expect(got).To(HaveLen(len(want)))
	for i := range want {
		tol := rel * math.Max(r2.Norm(want[i]), 1e-300)
		Expect(r2.Norm(r2.Sub(got[i], want[i]))).To(BeNumerically("<=", tol), "body %d", i)
	}
}

type particle struct {
	pos r2.Vec
	m   float64
}

func (p *particle) Coord2() r2.Vec { return p.pos }
func (p *particle) Mass() float64  { return p.m }

var _ = Describe("PairForce", func() {
	It("follows the inverse-square law towards the other body", func() {
		f := physics.PairForce(2, 3, 4, r2.Vec{}, r2.Vec{X: 0, Y: 2}, 1e-6)
		Expect(f.X).To(BeZero())
		Expect(f.Y).To(BeNumerically("~", 2*3*4/4.0, 1e-12))
	})

	It("is antisymmetric", func() {
		a, b := r2.Vec{X: 1, Y: -2}, r2.Vec{X: -3, Y: 5}
		fab := physics.PairForce(1, 2, 7, a, b, 1e-6)
		fba := physics.PairForce(1, 7, 2, b, a, 1e-6)
		Expect(fab.X).To(BeNumerically("~", -fba.X, 1e-15))
		Expect(fab.Y).To(BeNumerically("~", -fba.Y, 1e-15))
	})

	It("stays finite for coincident bodies", func() {
		f := physics.PairForce(1, 1, 1, r2.Vec{X: 3, Y: 3}, r2.Vec{X: 3, Y: 3}, 1e-6)
		Expect(f).To(Equal(r2.Vec{}))
	})

	It("floors the squared distance at epsilon", func() {
		eps := 1e-2
		f := physics.PairForce(1, 1, 1, r2.Vec{}, r2.Vec{X: 1e-3}, eps)
		Expect(f.X).To(BeNumerically("~", 1e-3/(eps*math.Sqrt(eps)), 1e-12))
	})
})

var _ = Describe("Config", func() {
	DescribeTable("validation",
		func(mutate func(*physics.Config), ok bool) {
			cfg := physics.DefaultConfig()
			mutate(&cfg)
			if ok {
				Expect(cfg.Validate()).To(Succeed())
			} else {
				Expect(cfg.Validate()).To(MatchError(dynamo.ErrInvalidConfig))
			}
		},
		Entry("defaults", func(*physics.Config) {}, true),
		Entry("theta zero", func(c *physics.Config) { c.Theta = 0 }, true),
		Entry("negative theta", func(c *physics.Config) { c.Theta = -0.1 }, false),
		Entry("NaN theta", func(c *physics.Config) { c.Theta = math.NaN() }, false),
		Entry("zero epsilon", func(c *physics.Config) { c.Epsilon = 0 }, false),
		Entry("infinite G", func(c *physics.Config) { c.G = math.Inf(1) }, false),
		Entry("zero threads", func(c *physics.Config) { c.Threads = 0 }, true),
	)

	It("clamps threads to one worker", func() {
		Expect(physics.NewEvaluator(unitG(0.5, -3)).Workers()).To(Equal(1))
		Expect(physics.NewEvaluator(unitG(0.5, 8)).Workers()).To(Equal(8))
	})
})

var _ = Describe("Evaluator", func() {
	Context("with theta zero", func() {
		DescribeTable("matches direct summation",
			func(n int) {
				s := randomScenario(n, int64(n))
				got, stats := forces(s, unitG(0, 1))
				expectClose(got, physics.DirectForces(s, 1, 1e-6, 1), 1e-9)
				Expect(stats.NodeApproximations).To(BeZero())
				Expect(stats.PairInteractions).To(Equal(int64(n * (n - 1))))
			},
			Entry("two bodies", 2),
			Entry("three bodies", 3),
			Entry("ten bodies", 10),
			Entry("257 bodies", 257),
		)

		It("agrees with gonum's Barnes-Hut plane", func() {
			s := randomScenario(150, 11)
			ps := make([]barneshut.Particle2, s.Len())
			for i := range ps {
				ps[i] = &particle{pos: s.R[i], m: s.M[i]}
			}
			plane, err := barneshut.NewPlane(ps)
			Expect(err).NotTo(HaveOccurred())

			want := make([]r2.Vec, len(ps))
			for i, p := range ps {
				want[i] = plane.ForceOn(p, 0, barneshut.Gravity2)
			}
			got, _ := forces(s, unitG(0, 2))
			expectClose(got, want, 1e-9)
		})
	})

	It("loses accuracy monotonically as theta grows", func() {
		s := randomScenario(300, 42)
		exact := physics.DirectForces(s, 1, 1e-6, 4)

		prev := -1.0
		for _, theta := range []float64{0, 0.2, 0.5, 0.8, 1.2} {
			got, _ := forces(s, unitG(theta, 4))
			errMax := physics.MaxRelativeError(got, exact)
			Expect(errMax).To(BeNumerically(">=", prev), "theta %g", theta)
			prev = errMax
		}
		Expect(prev).To(BeNumerically(">", 0))
	})

	It("gives bit-identical results for any thread count", func() {
		s := randomScenario(500, 3)
		one, four := s.Clone(), s.Clone()

		tree := quadtree.NewBuilder(quadtree.DefaultConfig()).Build(s)
		physics.NewEvaluator(unitG(0.5, 1)).Evaluate(one, tree, 0.01)
		physics.NewEvaluator(unitG(0.5, 4)).Evaluate(four, tree, 0.01)

		Expect(four.F).To(Equal(one.F))
		Expect(four.V).To(Equal(one.V))
	})

	It("is deterministic across repeated evaluations", func() {
		s := randomScenario(200, 5)
		a, _ := forces(s, unitG(0.7, 3))
		b, _ := forces(s, unitG(0.7, 3))
		Expect(a).To(Equal(b))
	})

	It("overwrites stale forces instead of accumulating", func() {
		s := randomScenario(20, 8)
		for i := range s.F {
			s.F[i] = r2.Vec{X: 1e9, Y: -1e9}
		}
		tree := quadtree.NewBuilder(quadtree.DefaultConfig()).Build(s)
		physics.NewEvaluator(unitG(0, 1)).Evaluate(s, tree, 0)
		expectClose(s.F, physics.DirectForces(s, 1, 1e-6, 1), 1e-9)
	})

	It("kicks velocities by F/m*dt", func() {
		s := scenarioAt([]float64{5, 5}, r2.Vec{}, r2.Vec{X: 2})
		tree := quadtree.NewBuilder(quadtree.DefaultConfig()).Build(s)
		physics.NewEvaluator(physics.DefaultConfig()).Evaluate(s, tree, 1)

		want := physics.GravitationalConstant * 25 / 4
		Expect(s.F[0].X).To(BeNumerically("~", want, want*1e-12))
		Expect(s.F[1].X).To(BeNumerically("~", -want, want*1e-12))
		Expect(s.F[0].Y).To(BeZero())
		Expect(s.V[0].X).To(BeNumerically("~", want/5, want*1e-12))
		Expect(s.V[1].X).To(BeNumerically("~", -want/5, want*1e-12))
	})

	It("handles bodies in three different quadrants", func() {
		s := scenarioAt([]float64{1, 2, 3}, r2.Vec{}, r2.Vec{X: 10}, r2.Vec{Y: 10})
		got, stats := forces(s, unitG(0.5, 1))
		exact := physics.DirectForces(s, 1, 1e-6, 1)
		expectClose(got, exact, 0.05)

		// each body is alone in a root quadrant, so nothing can be merged
		Expect(stats.NodeApproximations).To(BeZero())
		Expect(stats.PairInteractions).To(Equal(int64(6)))

		// body 0 is pulled towards both others
		Expect(got[0].X).To(BeNumerically(">", 0))
		Expect(got[0].Y).To(BeNumerically(">", 0))
	})

	It("merges a distant clump into one pseudo-body", func() {
		m := []float64{1}
		pts := []r2.Vec{{}}
		rng := rand.New(rand.NewSource(9))
		for range 8 {
			m = append(m, 1+rng.Float64())
			pts = append(pts, r2.Vec{X: 1000 + rng.Float64(), Y: 1000 + rng.Float64()})
		}
		s := scenarioAt(m, pts...)

		got, stats := forces(s, unitG(0.5, 1))
		exact := physics.DirectForces(s, 1, 1e-6, 1)
		Expect(stats.NodeApproximations).To(BeNumerically(">", 0))
		Expect(r2.Norm(r2.Sub(got[0], exact[0]))).To(BeNumerically("<", 0.05*r2.Norm(exact[0])))
	})

	It("interacts with every body sharing a terminal leaf", func() {
		s := scenarioAt([]float64{1, 1, 1}, r2.Vec{}, r2.Vec{X: 1}, r2.Vec{X: 1})
		cfg := quadtree.DefaultConfig()
		cfg.MinCellSize = 1e6
		tree := quadtree.NewBuilder(cfg).Build(s)
		Expect(tree.Root().Bodies).To(Equal([]int{0, 1, 2}))

		stats := physics.NewEvaluator(unitG(0.5, 1)).Evaluate(s, tree, 0)
		Expect(stats.PairInteractions).To(Equal(int64(6)))
	})

	It("evaluates a large coincident clump at pairwise cost", func() {
		const n = 2000
		m := make([]float64, n+1)
		pts := make([]r2.Vec, n+1)
		for i := range m {
			m[i] = 1
		}
		pts[n] = r2.Vec{X: 1000, Y: 1000}
		s := scenarioAt(m, pts...)

		start := time.Now()
		physics.DirectForces(s, 1, 1e-6, 1)
		direct := time.Since(start)

		start = time.Now()
		_, stats := forces(s, unitG(0.5, 1))
		elapsed := time.Since(start)

		// every clump body meets the other n-1 in one terminal leaf plus the
		// lone body; the lone body sees the clump as one pseudo-body
		Expect(stats.PairInteractions).To(Equal(int64(n * n)))
		Expect(stats.NodeApproximations).To(Equal(int64(1)))
		Expect(elapsed).To(BeNumerically("<", 10*direct+time.Second))
	})

	It("never includes a body's own mass", func() {
		s := scenarioAt([]float64{1, 1}, r2.Vec{X: -1}, r2.Vec{X: 1})
		for _, theta := range []float64{0, 0.5, 5} {
			got, _ := forces(s, unitG(theta, 1))
			Expect(got[0].X).To(BeNumerically("~", 0.25, 1e-12), "theta %g", theta)
			Expect(got[1].X).To(BeNumerically("~", -0.25, 1e-12), "theta %g", theta)
		}
	})

	It("leaves an empty scenario untouched", func() {
		s := scenarioAt(nil)
		_, stats := forces(s, unitG(0.5, 4))
		Expect(stats).To(Equal(physics.Stats{}))
	})

	It("panics when the tree references a body the scenario lacks", func() {
		big := scenarioAt([]float64{1, 1, 1}, r2.Vec{}, r2.Vec{X: 1}, r2.Vec{Y: 1})
		tree := quadtree.NewBuilder(quadtree.DefaultConfig()).Build(big)
		small := scenarioAt([]float64{1, 1}, r2.Vec{}, r2.Vec{X: 1})

		Expect(func() {
			physics.NewEvaluator(unitG(0, 1)).Evaluate(small, tree, 0)
		}).To(PanicWith(ContainSubstring("body index 2")))
	})
})

var _ = Describe("MaxRelativeError", func() {
	It("is zero for identical inputs", func() {
		f := []r2.Vec{{X: 1}, {Y: 2}}
		Expect(physics.MaxRelativeError(f, f)).To(BeZero())
	})

	It("normalises by the mean exact magnitude", func() {
		exact := []r2.Vec{{X: 1}, {X: 3}}
		approx := []r2.Vec{{X: 1}, {X: 4}}
		Expect(physics.MaxRelativeError(approx, exact)).To(BeNumerically("~", 0.5, 1e-15))
	})
})
