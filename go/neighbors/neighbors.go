// Package neighbors precomputes, for every coordinate on the hex disk, its
// up-to-six in-grid neighbors. The index is built once at startup and never
// written again, which turns the per-click ring walk into a map lookup and
// fixes the neighbor order for deterministic traversal.
package neighbors

import (
	"go.hexfield.org/game/go/hexcoord"
)

// MaxNeighbors is the number of neighbor slots per tile.
const MaxNeighbors = 6

// Entry holds the in-grid neighbors of one coordinate. Only the first Count
// slots of Coords are valid.
type Entry struct {
	Coords [MaxNeighbors]hexcoord.AxialCoords
	Count  int
}

// Neighbors returns the valid neighbor coordinates.
func (e Entry) Neighbors() []hexcoord.AxialCoords {
	return e.Coords[:e.Count]
}

// Index maps every in-grid coordinate to its neighbors. Read-only after
// New returns.
type Index struct {
	radius  int32
	entries map[hexcoord.AxialCoords]Entry
}

// New builds the index for the hex disk of the given radius.
func New(radius int32) *Index {
	entries := make(map[hexcoord.AxialCoords]Entry, hexcoord.NumTiles(radius))
	for _, cube := range hexcoord.Spiral(hexcoord.Center(), radius, true) {
		var e Entry
		for _, n := range hexcoord.Ring(cube, 1) {
			axial := n.AsAxial()
			if !hexcoord.InGrid(axial, radius) {
				continue
			}
			e.Coords[e.Count] = axial
			e.Count++
		}
		entries[cube.AsAxial()] = e
	}
	return &Index{
		radius:  radius,
		entries: entries,
	}
}

// Get returns the neighbor entry for coords. The second return value is
// false for coordinates outside the grid.
func (idx *Index) Get(coords hexcoord.AxialCoords) (Entry, bool) {
	e, ok := idx.entries[coords]
	return e, ok
}

// Radius returns the grid radius the index was built for.
func (idx *Index) Radius() int32 {
	return idx.radius
}

// Len returns the number of indexed coordinates.
func (idx *Index) Len() int {
	return len(idx.entries)
}
