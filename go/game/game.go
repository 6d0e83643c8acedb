// Package game implements the click resolution algorithm, the heart of the
// tile state engine. A click reads a prefetched radius-2 neighborhood,
// mutates at most one tile in the store and reports every tile whose
// computed view changed so the caller can broadcast it.
package game

import (
	"context"

	"go.uber.org/zap"

	"go.hexfield.org/game/go/hexcoord"
	"go.hexfield.org/game/go/neighbors"
	"go.hexfield.org/game/go/tilestore"
)

// ContiguityRadius is the BFS depth of every contiguity query in the game
// rules.
const ContiguityRadius = 2

// ComputedTile is the public projection of a stored tile. Strength is
// derived at read time and never stored.
type ComputedTile struct {
	UserID   string `json:"user_id"`
	Strength uint8  `json:"strength"`
}

// Update pairs a coordinate with its freshly computed view.
type Update struct {
	Coords hexcoord.AxialCoords `json:"coords"`
	Tile   ComputedTile         `json:"tile"`
}

// ClickResult is what one resolved click changed.
type ClickResult struct {
	// Updates lists every tile whose computed view changed, including the
	// clicked tile itself. Order carries no meaning.
	Updates []Update

	// OwnerChanged is true when the click created a tile or transferred
	// ownership, i.e. whenever the actor's score changed.
	OwnerChanged bool

	// PreviousOwner is the user the tile was captured from, or empty.
	PreviousOwner string
}

// Resolver resolves clicks against the tile store. Safe for concurrent
// use; clicks on the same coordinate are serialized, clicks on different
// coordinates run in parallel.
type Resolver struct {
	store  tilestore.Store
	index  *neighbors.Index
	locks  coordLocks
	logger *zap.Logger
}

// NewResolver returns a Resolver over the given store and neighbor index.
func NewResolver(store tilestore.Store, index *neighbors.Index, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		index:  index,
		logger: logger,
	}
}

// Contiguous returns the coordinates of tiles owned by ownerID that are
// reachable from anchor within radius same-owner hops over the neighbor
// index, excluding anchor itself. tiles is the working view the query
// reads; discovery order follows the index, a visited set enforces
// uniqueness.
func Contiguous(index *neighbors.Index, tiles map[hexcoord.AxialCoords]tilestore.Tile, anchor hexcoord.AxialCoords, ownerID string, radius int) []hexcoord.AxialCoords {
	var results []hexcoord.AxialCoords
	visited := map[hexcoord.AxialCoords]bool{anchor: true}
	toCheck := []hexcoord.AxialCoords{anchor}

	for hop := 0; hop < radius; hop++ {
		var next []hexcoord.AxialCoords
		for _, c := range toCheck {
			entry, ok := index.Get(c)
			if !ok {
				continue
			}
			for _, n := range entry.Neighbors() {
				if visited[n] {
					continue
				}
				tile, ok := tiles[n]
				if !ok || tile.UserID != ownerID {
					continue
				}
				visited[n] = true
				next = append(next, n)
				results = append(results, n)
			}
		}
		toCheck = next
	}
	return results
}

// Computed projects the tile at coords against the working view. Strength
// is 1 + |contiguous neighbors| - damage, floored at zero: a capture two
// hops away can cut a tile's contiguous region out from under its stored
// damage.
func Computed(index *neighbors.Index, tiles map[hexcoord.AxialCoords]tilestore.Tile, coords hexcoord.AxialCoords, tile tilestore.Tile) ComputedTile {
	contiguous := Contiguous(index, tiles, coords, tile.UserID, ContiguityRadius)
	strength := 1 + len(contiguous) - int(tile.Damage)
	if strength < 0 {
		strength = 0
	}
	return ComputedTile{
		UserID:   tile.UserID,
		Strength: uint8(strength),
	}
}

// HandleClick resolves one click by actorID at coords. Clicks outside the
// grid are no-ops. Store failures abort the click and propagate unchanged;
// a partially applied click is tolerated because every projection re-reads
// current store state.
func (r *Resolver) HandleClick(ctx context.Context, coords hexcoord.AxialCoords, actorID string) (*ClickResult, error) {
	if _, ok := r.index.Get(coords); !ok {
		return &ClickResult{}, nil
	}

	unlock := r.locks.lock(coords)
	defer unlock()

	working, err := r.prefetch(ctx, coords)
	if err != nil {
		return nil, err
	}

	result := &ClickResult{}
	var updated []hexcoord.AxialCoords

	tile, exists := working[coords]
	switch {
	case !exists:
		// First-ever click on this coordinate.
		newTile := tilestore.Tile{UserID: actorID, Damage: 0}
		if err := r.write(ctx, working, coords, newTile); err != nil {
			return nil, err
		}
		updated = append(updated, coords)
		updated = append(updated, Contiguous(r.index, working, coords, actorID, ContiguityRadius)...)
		result.OwnerChanged = true

	case tile.UserID == actorID:
		if tile.Damage == 0 {
			// Nothing to heal.
			return result, nil
		}
		healed := tilestore.Tile{UserID: actorID, Damage: tile.Damage - 1}
		if err := r.write(ctx, working, coords, healed); err != nil {
			return nil, err
		}
		updated = append(updated, coords)

	default:
		prevOwner := tile.UserID
		n := len(Contiguous(r.index, working, coords, prevOwner, ContiguityRadius))
		newDamage := int(tile.Damage) + 1
		if remaining := 1 + n - newDamage; remaining > 0 {
			// Attacked but not broken.
			attacked := tilestore.Tile{UserID: prevOwner, Damage: uint8(newDamage)}
			if err := r.write(ctx, working, coords, attacked); err != nil {
				return nil, err
			}
			updated = append(updated, coords)
		} else {
			// Captured: ownership transfers and damage resets. The former
			// owner's contiguous region shrinks and the actor's grows, so
			// both sides are re-projected.
			captured := tilestore.Tile{UserID: actorID, Damage: 0}
			if err := r.write(ctx, working, coords, captured); err != nil {
				return nil, err
			}
			updated = append(updated, coords)
			updated = append(updated, Contiguous(r.index, working, coords, prevOwner, ContiguityRadius)...)
			updated = append(updated, Contiguous(r.index, working, coords, actorID, ContiguityRadius)...)
			result.OwnerChanged = true
			result.PreviousOwner = prevOwner
		}
	}

	seen := map[hexcoord.AxialCoords]bool{}
	for _, c := range updated {
		if seen[c] {
			continue
		}
		seen[c] = true
		t, ok := working[c]
		if !ok {
			r.logger.Warn("updated coordinate has no tile in working view", zap.String("coords", c.String()))
			continue
		}
		result.Updates = append(result.Updates, Update{
			Coords: c,
			Tile:   Computed(r.index, working, c, t),
		})
	}
	return result, nil
}

// prefetch loads every stored tile within the in-grid radius-2 spiral of
// coords into a working map. All reads and writes of the click go through
// this map, so later reads observe earlier writes without another round
// trip.
func (r *Resolver) prefetch(ctx context.Context, coords hexcoord.AxialCoords) (map[hexcoord.AxialCoords]tilestore.Tile, error) {
	area := make([]hexcoord.AxialCoords, 0, 1+3*ContiguityRadius*(ContiguityRadius+1))
	for _, cube := range hexcoord.Spiral(coords.AsCube(), ContiguityRadius, true) {
		axial := cube.AsAxial()
		if hexcoord.InGrid(axial, r.index.Radius()) {
			area = append(area, axial)
		}
	}
	stored, err := r.store.BatchGetTiles(ctx, area)
	if err != nil {
		return nil, err
	}
	working := make(map[hexcoord.AxialCoords]tilestore.Tile, len(stored))
	for _, ta := range stored {
		working[ta.Coords] = ta.Tile
	}
	return working, nil
}

// write commits the tile to the store and mirrors it into the working map.
func (r *Resolver) write(ctx context.Context, working map[hexcoord.AxialCoords]tilestore.Tile, coords hexcoord.AxialCoords, tile tilestore.Tile) error {
	if err := r.store.SetTile(ctx, coords, tile); err != nil {
		return err
	}
	working[coords] = tile
	return nil
}
