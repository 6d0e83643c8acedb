package hexcoord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_LengthIsSixTimesRadius(t *testing.T) {
	center := Center()
	for _, radius := range []int32{1, 2, 3, 10} {
		assert.Len(t, Ring(center, radius), int(6*radius))
	}
}

func TestRing_RadiusZeroIsEmpty(t *testing.T) {
	assert.Empty(t, Ring(Center(), 0))
}

func TestRing_WalkStartsOppositeDirectionFour(t *testing.T) {
	// The first coordinate of ring k is center + k*Direction(4).
	ring := Ring(NewCube(2, -1, -1), 3)
	require.NotEmpty(t, ring)
	assert.Equal(t, Add(NewCube(2, -1, -1), Scale(Direction(4), 3)), ring[0])
}

func TestRing_AllAtExactDistance(t *testing.T) {
	for _, c := range Ring(Center(), 4) {
		dist := max32(abs(c.Q), abs(c.R), abs(c.S))
		assert.Equal(t, int32(4), dist, "coordinate %+v is not on ring 4", c)
	}
}

func TestSpiral_Lengths(t *testing.T) {
	center := Center()
	assert.Len(t, Spiral(center, 1, false), 6)
	assert.Len(t, Spiral(center, 2, false), 18)
	assert.Len(t, Spiral(center, 3, false), 36)
	// With center: 1 + 3k(k+1).
	assert.Len(t, Spiral(center, 2, true), 19)
	assert.Len(t, Spiral(center, 80, true), NumTiles(80))
}

func TestSpiral_NoDuplicates(t *testing.T) {
	seen := map[CubeCoords]bool{}
	for _, c := range Spiral(Center(), 5, true) {
		require.False(t, seen[c], "duplicate coordinate %+v in spiral", c)
		seen[c] = true
	}
}

func TestAxialCubeRoundTrip(t *testing.T) {
	for _, a := range []AxialCoords{{0, 0}, {3, -2}, {-80, 80}, {1, 2}} {
		cube := a.AsCube()
		assert.Equal(t, int32(0), cube.Q+cube.R+cube.S)
		assert.Equal(t, a, cube.AsAxial())
	}
}

func TestInGrid(t *testing.T) {
	tests := []struct {
		coords AxialCoords
		radius int32
		want   bool
	}{
		{NewAxial(0, 0), 10, true},
		{NewAxial(10, 0), 10, true},
		{NewAxial(11, 0), 10, false},
		{NewAxial(-10, 10), 10, true},
		// q and r are in range but |s| = 20 is not.
		{NewAxial(10, 10), 10, false},
		{NewAxial(-5, -5), 10, true},
		{NewAxial(0, 0), 0, true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, InGrid(tc.coords, tc.radius), "InGrid(%v, %d)", tc.coords, tc.radius)
	}
}

func TestRedisKey(t *testing.T) {
	tests := []struct {
		coords AxialCoords
		want   string
	}{
		{NewAxial(0, 0), "0_0"},
		{NewAxial(2, -3), "2_m3"},
		{NewAxial(-12, 7), "m12_7"},
		{NewAxial(-1, -1), "m1_m1"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.coords.RedisKey())
	}
}

func TestParallelogramBatches_ExactPartition(t *testing.T) {
	const radius = 10
	batches := ParallelogramBatches(4, 4, radius)
	require.Len(t, batches, 16)

	seen := map[AxialCoords]int{}
	total := 0
	for i, batch := range batches {
		for _, c := range batch {
			require.True(t, InGrid(c, radius), "batch %d contains out-of-grid %v", i, c)
			_, dup := seen[c]
			require.False(t, dup, "%v appears in more than one batch", c)
			seen[c] = i
			total++
		}
	}
	assert.Equal(t, NumTiles(radius), total)
}

func TestParallelogramBatches_DefaultGridTotals(t *testing.T) {
	// Production defaults: radius 80, 8x8 batches, 19441 tiles.
	batches := ParallelogramBatches(8, 8, 80)
	require.Len(t, batches, 64)
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	assert.Equal(t, 19441, total)
}

func max32(vs ...int32) int32 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
