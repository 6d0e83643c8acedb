// Package batches exposes the grid to spectators as a fixed partition of
// parallelogram-shaped coordinate batches. A batch is loaded with one
// pipelined store round trip and projected tile by tile; the batch id list
// is re-shuffled on every request so pollers spread their load across the
// disk instead of hammering the center first.
package batches

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"go.hexfield.org/game/go/game"
	"go.hexfield.org/game/go/hexcoord"
	"go.hexfield.org/game/go/neighbors"
	"go.hexfield.org/game/go/tilestore"
)

// Tile is one projected tile of a batch, rendered on the wire as the JSON
// array [q, r, strength, owner].
type Tile struct {
	Coords   hexcoord.AxialCoords
	Strength uint8
	UserID   string
}

// MarshalJSON renders the tile as [q, r, strength, owner].
func (t Tile) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{t.Coords.Q, t.Coords.R, t.Strength, t.UserID})
}

// Projector serves spectator reads over an immutable partition of the
// grid.
type Projector struct {
	partition [][]hexcoord.AxialCoords
	store     tilestore.Store
	index     *neighbors.Index
	logger    *zap.Logger
}

// NewProjector partitions the disk of the index's radius into div x div
// parallelogram batches.
func NewProjector(store tilestore.Store, index *neighbors.Index, div int, logger *zap.Logger) *Projector {
	return &Projector{
		partition: hexcoord.ParallelogramBatches(div, div, index.Radius()),
		store:     store,
		index:     index,
		logger:    logger,
	}
}

// NumBatches returns the number of batches in the partition.
func (p *Projector) NumBatches() int {
	return len(p.partition)
}

// List returns all batch ids in a freshly randomized order.
func (p *Projector) List() []int {
	ids := rand.Perm(len(p.partition))
	return ids
}

// Compute loads the stored tiles of batch i and projects each to its
// computed view. Tiles whose projection fails are logged and skipped so
// one bad record cannot blank a whole batch.
func (p *Projector) Compute(ctx context.Context, i int) ([]Tile, error) {
	if i < 0 || i >= len(p.partition) {
		return nil, fmt.Errorf("batch index %d out of range [0, %d)", i, len(p.partition))
	}

	stored, err := p.store.BatchGetTiles(ctx, p.partition[i])
	if err != nil {
		return nil, err
	}

	results := make([]Tile, 0, len(stored))
	for _, ta := range stored {
		computed, err := p.project(ctx, ta)
		if err != nil {
			p.logger.Warn("skipping tile that failed to project",
				zap.String("coords", ta.Coords.String()),
				zap.Error(err))
			continue
		}
		results = append(results, Tile{
			Coords:   ta.Coords,
			Strength: computed.Strength,
			UserID:   computed.UserID,
		})
	}
	return results, nil
}

// project prefetches the radius-2 neighborhood of one stored tile and
// derives its strength.
func (p *Projector) project(ctx context.Context, ta tilestore.TileAt) (game.ComputedTile, error) {
	area := make([]hexcoord.AxialCoords, 0, 1+3*game.ContiguityRadius*(game.ContiguityRadius+1))
	for _, cube := range hexcoord.Spiral(ta.Coords.AsCube(), game.ContiguityRadius, true) {
		axial := cube.AsAxial()
		if hexcoord.InGrid(axial, p.index.Radius()) {
			area = append(area, axial)
		}
	}
	stored, err := p.store.BatchGetTiles(ctx, area)
	if err != nil {
		return game.ComputedTile{}, err
	}
	working := make(map[hexcoord.AxialCoords]tilestore.Tile, len(stored))
	for _, t := range stored {
		working[t.Coords] = t.Tile
	}
	return game.Computed(p.index, working, ta.Coords, ta.Tile), nil
}
