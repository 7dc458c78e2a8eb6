// Package physics evaluates gravitational forces over a Barnes-Hut quadtree.
//
// [Evaluator] walks a [quadtree.Tree] once per body, summing exact pair
// forces against leaf bodies and a single pseudo-body force for every node
// that passes the opening-angle test. Velocities are updated as each
// contribution is computed, so a step needs only the velocity kick here and
// a drift from the integrator afterwards.
//
// [DirectForces] sums every pair exactly and serves as the reference when
// measuring approximation error:
//
//	tree := quadtree.NewBuilder(quadtree.DefaultConfig()).Build(s)
//	ev := physics.NewEvaluator(physics.DefaultConfig())
//	stats := ev.Evaluate(s, tree, dt)
//	exact := physics.DirectForces(s, ev.Config().G, ev.Config().Epsilon, 4)
package physics
