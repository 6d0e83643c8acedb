// Package tilestore defines the narrow storage capability the game core
// depends on: the durable mapping from hex coordinate to owned tile, plus
// the user and token records that live in the same store under separate
// key prefixes.
//
// Two backends implement Store: redistilestore for production and mem for
// tests and local runs. The core never touches the store beyond this
// interface.
package tilestore

import (
	"context"

	"go.hexfield.org/game/go/hexcoord"
	"go.hexfield.org/game/go/user"
)

// Tile is the stored record for an owned coordinate. Unowned coordinates
// have no record at all. Damage counts attacks since the tile was last
// captured or fully healed; the public strength is derived from it at read
// time and never stored.
type Tile struct {
	UserID string
	Damage uint8
}

// TileAt pairs a coordinate with its stored tile.
type TileAt struct {
	Coords hexcoord.AxialCoords
	Tile   Tile
}

// Store is the shared persistent state. Any call may fail with a transient
// store error, which callers propagate unchanged; a missing key is never an
// error and yields a nil tile or an empty result instead.
type Store interface {
	// GetTile returns the tile at coords, or nil if the coordinate is
	// unowned.
	GetTile(ctx context.Context, coords hexcoord.AxialCoords) (*Tile, error)

	// SetTile unconditionally overwrites the tile at coords.
	SetTile(ctx context.Context, coords hexcoord.AxialCoords, tile Tile) error

	// BatchGetTiles returns the stored tiles among coords, in no
	// particular order. It is equivalent to folding GetTile over coords.
	BatchGetTiles(ctx context.Context, coords []hexcoord.AxialCoords) ([]TileAt, error)

	// BatchSetTiles writes all tiles in one round trip. It is equivalent
	// to folding SetTile over tiles.
	BatchSetTiles(ctx context.Context, tiles []TileAt) error

	// CountTilesByUser returns the number of tiles owned by the user.
	CountTilesByUser(ctx context.Context, userID string) (int, error)

	// AddUser persists the user, appends its id to the ordered user list
	// and stores its token for validation.
	AddUser(ctx context.Context, u *user.User) error

	// GetUser returns the stored user, or nil if unknown.
	GetUser(ctx context.Context, id string) (*user.User, error)

	// GetPublicUsers enumerates all users in insertion order, each joined
	// with its current score.
	GetPublicUsers(ctx context.Context) ([]user.PublicUser, error)

	// ValidToken reports whether token matches the stored token of userID.
	ValidToken(ctx context.Context, userID, token string) (bool, error)

	// FlushDB clears the store. Only tests call this.
	FlushDB(ctx context.Context) error
}
