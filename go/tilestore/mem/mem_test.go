package mem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hexfield.org/game/go/hexcoord"
	"go.hexfield.org/game/go/tilestore"
	"go.hexfield.org/game/go/user"
)

func TestGetTile_MissingYieldsNil(t *testing.T) {
	s := New()
	tile, err := s.GetTile(context.Background(), hexcoord.NewAxial(0, 0))
	require.NoError(t, err)
	assert.Nil(t, tile)
}

func TestSetTile_Overwrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := hexcoord.NewAxial(1, -1)

	require.NoError(t, s.SetTile(ctx, c, tilestore.Tile{UserID: "u1", Damage: 0}))
	require.NoError(t, s.SetTile(ctx, c, tilestore.Tile{UserID: "u2", Damage: 3}))

	tile, err := s.GetTile(ctx, c)
	require.NoError(t, err)
	require.NotNil(t, tile)
	assert.Equal(t, "u2", tile.UserID)
	assert.Equal(t, uint8(3), tile.Damage)
}

func TestBatchGetTiles_IsFoldOfGetTile(t *testing.T) {
	ctx := context.Background()
	s := New()
	owned := []hexcoord.AxialCoords{
		hexcoord.NewAxial(0, 0),
		hexcoord.NewAxial(2, -1),
		hexcoord.NewAxial(-3, 3),
	}
	for i, c := range owned {
		require.NoError(t, s.SetTile(ctx, c, tilestore.Tile{UserID: "u1", Damage: uint8(i)}))
	}

	query := append(owned, hexcoord.NewAxial(5, 5), hexcoord.NewAxial(-7, 0))
	got, err := s.BatchGetTiles(ctx, query)
	require.NoError(t, err)

	var want []tilestore.TileAt
	for _, c := range query {
		tile, err := s.GetTile(ctx, c)
		require.NoError(t, err)
		if tile != nil {
			want = append(want, tilestore.TileAt{Coords: c, Tile: *tile})
		}
	}
	assert.ElementsMatch(t, want, got)
}

func TestBatchSetTiles_IsFoldOfSetTile(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.SetTile(ctx, hexcoord.NewAxial(0, 0), tilestore.Tile{UserID: "u1", Damage: 2}))

	tiles := []tilestore.TileAt{
		{Coords: hexcoord.NewAxial(0, 0), Tile: tilestore.Tile{UserID: "u2"}},
		{Coords: hexcoord.NewAxial(1, -1), Tile: tilestore.Tile{UserID: "u2", Damage: 1}},
	}
	require.NoError(t, s.BatchSetTiles(ctx, tiles))

	for _, ta := range tiles {
		tile, err := s.GetTile(ctx, ta.Coords)
		require.NoError(t, err)
		require.NotNil(t, tile)
		assert.Equal(t, ta.Tile, *tile)
	}
}

func TestCountTilesByUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.SetTile(ctx, hexcoord.NewAxial(0, 0), tilestore.Tile{UserID: "u1"}))
	require.NoError(t, s.SetTile(ctx, hexcoord.NewAxial(0, 1), tilestore.Tile{UserID: "u1"}))
	require.NoError(t, s.SetTile(ctx, hexcoord.NewAxial(1, 0), tilestore.Tile{UserID: "u2"}))

	count, err := s.CountTilesByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.CountTilesByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUsersAndTokens(t *testing.T) {
	ctx := context.Background()
	s := New()
	alice := user.New("alice")
	bob := user.New("bob")
	require.NoError(t, s.AddUser(ctx, alice))
	require.NoError(t, s.AddUser(ctx, bob))
	require.NoError(t, s.SetTile(ctx, hexcoord.NewAxial(0, 0), tilestore.Tile{UserID: alice.ID}))

	got, err := s.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *alice, *got)

	missing, err := s.GetUser(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	public, err := s.GetPublicUsers(ctx)
	require.NoError(t, err)
	require.Len(t, public, 2)
	// Insertion order, scores joined.
	assert.Equal(t, alice.ID, public[0].ID)
	assert.Equal(t, 1, public[0].Score)
	assert.Equal(t, bob.ID, public[1].ID)
	assert.Equal(t, 0, public[1].Score)

	ok, err := s.ValidToken(ctx, alice.ID, alice.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ValidToken(ctx, alice.ID, bob.Token)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.ValidToken(ctx, "unknown", alice.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFlushDB(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.SetTile(ctx, hexcoord.NewAxial(0, 0), tilestore.Tile{UserID: "u1"}))
	require.NoError(t, s.AddUser(ctx, user.New("alice")))

	require.NoError(t, s.FlushDB(ctx))

	tile, err := s.GetTile(ctx, hexcoord.NewAxial(0, 0))
	require.NoError(t, err)
	assert.Nil(t, tile)
	public, err := s.GetPublicUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)
}
