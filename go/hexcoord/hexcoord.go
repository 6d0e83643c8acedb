// Package hexcoord provides cube and axial coordinates on a hexagonal grid
// together with the pure geometry the rest of the game is built on: rings,
// spirals, the in-grid predicate and the parallelogram partition of the hex
// disk used to stream tiles in batches.
package hexcoord

import (
	"fmt"
	"strconv"
	"strings"
)

// directions are the six unit vectors of the hex grid, in the canonical
// order used everywhere: direction 0 is (+1, 0), then counter-clockwise.
var directions = [6]CubeCoords{
	{Q: 1, R: 0, S: -1},
	{Q: 1, R: -1, S: 0},
	{Q: 0, R: -1, S: 1},
	{Q: -1, R: 0, S: 1},
	{Q: -1, R: 1, S: 0},
	{Q: 0, R: 1, S: -1},
}

// CubeCoords is a hex coordinate in cube form. Q+R+S is always zero.
type CubeCoords struct {
	Q int32
	R int32
	S int32
}

// NewCube returns the cube coordinate (q, r, s).
func NewCube(q, r, s int32) CubeCoords {
	return CubeCoords{Q: q, R: r, S: s}
}

// Center returns the cube coordinate of the grid center.
func Center() CubeCoords {
	return CubeCoords{}
}

// AsAxial projects the cube coordinate to axial form.
func (c CubeCoords) AsAxial() AxialCoords {
	return AxialCoords{Q: c.Q, R: c.R}
}

// Add returns the component-wise sum of two cube coordinates.
func Add(a, b CubeCoords) CubeCoords {
	return CubeCoords{Q: a.Q + b.Q, R: a.R + b.R, S: a.S + b.S}
}

// Scale multiplies a cube coordinate by a scalar factor.
func Scale(a CubeCoords, factor int32) CubeCoords {
	return CubeCoords{Q: a.Q * factor, R: a.R * factor, S: a.S * factor}
}

// Direction returns the unit vector for direction dir, which must be in
// [0, 6).
func Direction(dir int) CubeCoords {
	return directions[dir]
}

// Neighbor returns the neighbor of coords in direction dir.
func Neighbor(coords CubeCoords, dir int) CubeCoords {
	return Add(coords, Direction(dir))
}

// Ring returns the 6*radius coordinates at hex distance exactly radius from
// center, walked starting at center + radius*Direction(4) and traversing
// directions 0 through 5. Radius 0 yields an empty slice.
func Ring(center CubeCoords, radius int32) []CubeCoords {
	if radius < 1 {
		return nil
	}
	results := make([]CubeCoords, 0, 6*radius)
	coords := Add(center, Scale(Direction(4), radius))
	for i := 0; i < 6; i++ {
		for j := int32(0); j < radius; j++ {
			results = append(results, coords)
			coords = Neighbor(coords, i)
		}
	}
	return results
}

// Spiral returns the concatenation of rings 1..radius around center. When
// withCenter is true the center itself is prepended.
func Spiral(center CubeCoords, radius int32, withCenter bool) []CubeCoords {
	var results []CubeCoords
	if withCenter {
		results = append(results, center)
	}
	for k := int32(1); k <= radius; k++ {
		results = append(results, Ring(center, k)...)
	}
	return results
}

// AxialCoords is a hex coordinate in axial form, with the implied
// s = -q - r. This is the form stored, transported and hashed.
type AxialCoords struct {
	Q int32 `json:"q"`
	R int32 `json:"r"`
}

// NewAxial returns the axial coordinate (q, r).
func NewAxial(q, r int32) AxialCoords {
	return AxialCoords{Q: q, R: r}
}

// AsCube lifts the axial coordinate to cube form.
func (a AxialCoords) AsCube() CubeCoords {
	return CubeCoords{Q: a.Q, R: a.R, S: -a.Q - a.R}
}

// String implements fmt.Stringer.
func (a AxialCoords) String() string {
	return fmt.Sprintf("(%d, %d)", a.Q, a.R)
}

// RedisKey renders the coordinate as the stable string used in store keys,
// e.g. (2, -3) -> "2_m3". Negative components are prefixed with "m" so the
// key never contains a minus sign.
func (a AxialCoords) RedisKey() string {
	var sb strings.Builder
	sb.WriteString(keyPart(a.Q))
	sb.WriteByte('_')
	sb.WriteString(keyPart(a.R))
	return sb.String()
}

func keyPart(v int32) string {
	if v < 0 {
		return "m" + strconv.FormatInt(-int64(v), 10)
	}
	return strconv.FormatInt(int64(v), 10)
}

// InGrid reports whether the coordinate lies on the hex disk of the given
// radius, i.e. max(|q|, |r|, |s|) <= radius.
func InGrid(a AxialCoords, radius int32) bool {
	s := -a.Q - a.R
	return abs(a.Q) <= radius && abs(a.R) <= radius && abs(s) <= radius
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// ParallelogramBatches partitions the hex disk of the given radius into
// rows*cols lists of axial coordinates. The enclosing rhombus
// q, r in [-radius, radius] is cut into a rows x cols lattice of
// parallelograms and each cell is intersected with the disk, so every
// in-grid coordinate lands in exactly one batch. Batches are ordered
// row-major; cells whose intersection with the disk is empty still occupy
// their slot as an empty list.
func ParallelogramBatches(rows, cols int, radius int32) [][]AxialCoords {
	batches := make([][]AxialCoords, rows*cols)
	span := int64(2*radius + 1)
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			c := AxialCoords{Q: q, R: r}
			if !InGrid(c, radius) {
				continue
			}
			row := int(int64(r+radius) * int64(rows) / span)
			col := int(int64(q+radius) * int64(cols) / span)
			i := row*cols + col
			batches[i] = append(batches[i], c)
		}
	}
	return batches
}

// NumTiles returns the number of tiles on the hex disk of the given radius,
// 1 + 3*radius*(radius+1).
func NumTiles(radius int32) int {
	r := int(radius)
	return 1 + 3*r*(r+1)
}
