package batches

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go.hexfield.org/game/go/hexcoord"
	"go.hexfield.org/game/go/neighbors"
	"go.hexfield.org/game/go/tilestore"
	"go.hexfield.org/game/go/tilestore/mem"
)

func newTestProjector(t *testing.T, radius int32, div int) (*Projector, *mem.Store) {
	t.Helper()
	store := mem.New()
	index := neighbors.New(radius)
	return NewProjector(store, index, div, zaptest.NewLogger(t)), store
}

func TestList_IsAPermutationOfAllBatchIDs(t *testing.T) {
	p, _ := newTestProjector(t, 10, 4)
	require.Equal(t, 16, p.NumBatches())

	ids := p.List()
	require.Len(t, ids, 16)
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	for i, id := range sorted {
		assert.Equal(t, i, id)
	}
}

func TestCompute_OutOfRange(t *testing.T) {
	p, _ := newTestProjector(t, 10, 4)
	_, err := p.Compute(context.Background(), 16)
	assert.Error(t, err)
	_, err = p.Compute(context.Background(), -1)
	assert.Error(t, err)
}

func TestCompute_EmptyBatch(t *testing.T) {
	p, _ := newTestProjector(t, 10, 4)
	tiles, err := p.Compute(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, tiles)
}

func TestCompute_ProjectsStoredTiles(t *testing.T) {
	p, store := newTestProjector(t, 10, 1)
	ctx := context.Background()
	// Three contiguous tiles of one owner; the middle one damaged.
	require.NoError(t, store.SetTile(ctx, hexcoord.NewAxial(0, 0), tilestore.Tile{UserID: "A", Damage: 1}))
	require.NoError(t, store.SetTile(ctx, hexcoord.NewAxial(0, -1), tilestore.Tile{UserID: "A"}))
	require.NoError(t, store.SetTile(ctx, hexcoord.NewAxial(0, 1), tilestore.Tile{UserID: "A"}))

	tiles, err := p.Compute(ctx, 0)
	require.NoError(t, err)
	require.Len(t, tiles, 3)

	byCoords := map[hexcoord.AxialCoords]Tile{}
	for _, bt := range tiles {
		byCoords[bt.Coords] = bt
	}
	// (0,0) has two contiguous neighbors and damage 1: 1 + 2 - 1 = 2.
	assert.Equal(t, uint8(2), byCoords[hexcoord.NewAxial(0, 0)].Strength)
	// The ends see each other through the center: 1 + 2 - 0 = 3.
	assert.Equal(t, uint8(3), byCoords[hexcoord.NewAxial(0, -1)].Strength)
	assert.Equal(t, uint8(3), byCoords[hexcoord.NewAxial(0, 1)].Strength)
}

func TestCompute_WholePartitionCoversGrid(t *testing.T) {
	p, store := newTestProjector(t, 6, 3)
	ctx := context.Background()
	for _, cube := range hexcoord.Spiral(hexcoord.Center(), 6, true) {
		require.NoError(t, store.SetTile(ctx, cube.AsAxial(), tilestore.Tile{UserID: "A"}))
	}

	total := 0
	for i := 0; i < p.NumBatches(); i++ {
		tiles, err := p.Compute(ctx, i)
		require.NoError(t, err)
		total += len(tiles)
	}
	assert.Equal(t, hexcoord.NumTiles(6), total)
}

func TestTile_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Tile{
		Coords:   hexcoord.NewAxial(-3, 7),
		Strength: 5,
		UserID:   "user1",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[-3, 7, 5, "user1"]`, string(b))
}
