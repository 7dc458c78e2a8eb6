// Package dynamo provides the core simulation primitives shared by the
// tree builder, the force evaluator and the step loop.
//
// The package defines:
//
//   - [Scenario]: structure-of-arrays body state (mass, position, velocity, force)
//   - [Snapshot]: an immutable copy of body state at one simulated instant
//   - [ParallelFor]: fork/join over contiguous index ranges
//   - domain errors for malformed input
//
// Vectors are gonum's [r2.Vec].
//
// # Example
//
//	s, err := dynamo.NewScenario(masses, positions, velocities)
//	if err != nil {
//	    return err // malformed input, nothing has run yet
//	}
//	dynamo.ParallelFor(s.Len(), 4, func(worker, start, end int) {
//	    for i := start; i < end; i++ {
//	        // writes to index i only
//	    }
//	})
//
// # Thread Safety
//
// A Scenario is not safe for concurrent mutation. Workers spawned by
// [ParallelFor] may write disjoint indices of V and F while R and M are
// held read-only.
package dynamo
