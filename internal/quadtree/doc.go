// Package quadtree implements the Barnes-Hut spatial index over a
// [dynamo.Scenario].
//
// A [Tree] is rebuilt from scratch every step by a [Builder], read
// concurrently by force workers, and then dropped. Nodes live in a single
// arena slice and refer to their children by index, so the whole tree is
// released at once.
//
// Each node covers a square region and aggregates the mass and centre of
// mass of every body below it:
//
//	b := quadtree.NewBuilder(quadtree.DefaultConfig())
//	tree := b.Build(scenario)
//	root := tree.Root()
//	_ = root.Mass // == scenario.TotalMass()
//
// Quadrants are picked with x < centre.X as west and y < centre.Y as south;
// a body on a dividing line goes east or north.
package quadtree
