// Package benchdata seeds the store for load testing. With every tile
// already owned, each click from a load generator takes the most expensive
// path through the resolver, so benchmarks measure the worst case rather
// than an empty grid.
package benchdata

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"go.hexfield.org/game/go/hexcoord"
	"go.hexfield.org/game/go/tilestore"
	"go.hexfield.org/game/go/user"
)

// Username of the synthetic owner. Load test dashboards filter it out by
// name.
const Username = "benchmark"

// seedChunkSize bounds one BatchSetTiles round trip. The default grid has
// 19441 tiles; writing them one pipeline chunk at a time keeps any single
// redis reply small.
const seedChunkSize = 1000

// Seed creates the synthetic user and assigns every tile of the grid to it
// with zero damage. It is idempotent in effect: rerunning overwrites the
// same tiles, though it does mint a fresh synthetic user each time.
func Seed(ctx context.Context, store tilestore.Store, radius int32, logger *zap.Logger) error {
	u := user.New(Username)
	if err := store.AddUser(ctx, u); err != nil {
		return fmt.Errorf("adding benchmark user: %w", err)
	}

	coords := hexcoord.Spiral(hexcoord.Center(), radius, true)
	tiles := make([]tilestore.TileAt, len(coords))
	for i, c := range coords {
		tiles[i] = tilestore.TileAt{
			Coords: c.AsAxial(),
			Tile:   tilestore.Tile{UserID: u.ID},
		}
	}
	for start := 0; start < len(tiles); start += seedChunkSize {
		end := start + seedChunkSize
		if end > len(tiles) {
			end = len(tiles)
		}
		if err := store.BatchSetTiles(ctx, tiles[start:end]); err != nil {
			return fmt.Errorf("seeding tiles %d..%d: %w", start, end, err)
		}
	}
	logger.Info("benchmark data seeded",
		zap.String("user_id", u.ID),
		zap.Int("tiles", len(tiles)))
	return nil
}
