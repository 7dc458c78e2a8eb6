package quadtree

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/gravsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// BoundsMode selects how the root region is chosen each step.
type BoundsMode int

const (
	// BoundsAdaptive derives a padded square from the current positions.
	BoundsAdaptive BoundsMode = iota
	// BoundsFixed uses a configured universe; bodies outside it escape.
	BoundsFixed
)

func (m BoundsMode) String() string {
	if m == BoundsFixed {
		return "fixed"
	}
	return "adaptive"
}

// ParseBoundsMode accepts "adaptive" or "fixed".
func ParseBoundsMode(s string) (BoundsMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "adaptive":
		return BoundsAdaptive, nil
	case "fixed":
		return BoundsFixed, nil
	default:
		return BoundsAdaptive, fmt.Errorf("unknown bounds mode %q: %w", s, dynamo.ErrInvalidConfig)
	}
}

const (
	DefaultPadding = 0.01
	// minPadding keeps bodies on the bounding box edge inside the root after
	// rounding of centre and half-side.
	minPadding = 1e-9
	// minCellShift derives the default minimum cell as root size * 2^-40.
	minCellShift = 40
)

// Config controls tree construction.
type Config struct {
	Bounds BoundsMode
	// Center and Size describe the fixed universe.
	Center r2.Vec
	Size   float64
	// Padding grows the adaptive square by this fraction on every side.
	Padding float64
	// MinCellSize stops subdivision; <= 0 derives it from the root size.
	MinCellSize float64
}

// DefaultConfig uses adaptive bounds. The fixed universe defaults to a
// 1000x1000 canvas centred on (500, 500).
func DefaultConfig() Config {
	return Config{
		Bounds:  BoundsAdaptive,
		Center:  r2.Vec{X: 500, Y: 500},
		Size:    1000,
		Padding: DefaultPadding,
	}
}

func (c Config) Validate() error {
	if c.Bounds == BoundsFixed && !(c.Size > 0 && !math.IsInf(c.Size, 0)) {
		return fmt.Errorf("fixed universe size must be positive and finite, got %g: %w", c.Size, dynamo.ErrInvalidConfig)
	}
	if c.Padding < 0 || math.IsNaN(c.Padding) {
		return fmt.Errorf("padding must be non-negative, got %g: %w", c.Padding, dynamo.ErrInvalidConfig)
	}
	if math.IsNaN(c.MinCellSize) {
		return fmt.Errorf("min cell size is NaN: %w", dynamo.ErrInvalidConfig)
	}
	return nil
}

// Builder constructs a fresh Tree per step. It holds no per-step state and
// may be shared.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

func (b *Builder) Config() Config { return b.cfg }

// Build inserts every body of s in index order into a new tree.
func (b *Builder) Build(s *dynamo.Scenario) *Tree {
	center, size := b.region(s.R)

	minCell := b.cfg.MinCellSize
	if minCell <= 0 {
		minCell = math.Ldexp(size, -minCellShift)
	}

	t := newTree(s.R, s.M, center, size, minCell)
	for i := range s.R {
		if !t.Insert(i) {
			t.escaped = append(t.escaped, i)
		}
	}
	return t
}

func (b *Builder) region(r []r2.Vec) (r2.Vec, float64) {
	if b.cfg.Bounds == BoundsFixed {
		return b.cfg.Center, b.cfg.Size
	}
	return AdaptiveRegion(r, b.cfg.Padding)
}

// AdaptiveRegion returns the centre and side of the smallest square
// covering r, grown by padding on each side. An empty or zero-extent set
// yields a unit square.
func AdaptiveRegion(r []r2.Vec, padding float64) (r2.Vec, float64) {
	if len(r) == 0 {
		return r2.Vec{}, 1
	}

	minX, maxX := r[0].X, r[0].X
	minY, maxY := r[0].Y, r[0].Y
	for _, p := range r[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	center := r2.Vec{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}
	side := math.Max(maxX-minX, maxY-minY)
	if side == 0 {
		return center, 1
	}
	return center, side * (1 + 2*math.Max(padding, minPadding))
}
