// Package mem provides an in-memory tilestore.Store with the same
// semantics as the Redis backend. It backs unit tests and local runs that
// have no store to talk to.
package mem

import (
	"context"
	"crypto/subtle"
	"sync"

	"go.hexfield.org/game/go/hexcoord"
	"go.hexfield.org/game/go/tilestore"
	"go.hexfield.org/game/go/user"
)

// Store is a map-backed tilestore.Store. Safe for concurrent use.
type Store struct {
	mutex   sync.RWMutex
	tiles   map[hexcoord.AxialCoords]tilestore.Tile
	users   map[string]user.User
	tokens  map[string]string
	userIDs []string
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		tiles:  map[hexcoord.AxialCoords]tilestore.Tile{},
		users:  map[string]user.User{},
		tokens: map[string]string{},
	}
}

// GetTile implements tilestore.Store.
func (s *Store) GetTile(ctx context.Context, coords hexcoord.AxialCoords) (*tilestore.Tile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	t, ok := s.tiles[coords]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// SetTile implements tilestore.Store.
func (s *Store) SetTile(ctx context.Context, coords hexcoord.AxialCoords, tile tilestore.Tile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tiles[coords] = tile
	return nil
}

// BatchGetTiles implements tilestore.Store.
func (s *Store) BatchGetTiles(ctx context.Context, coords []hexcoord.AxialCoords) ([]tilestore.TileAt, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var results []tilestore.TileAt
	for _, c := range coords {
		if t, ok := s.tiles[c]; ok {
			results = append(results, tilestore.TileAt{Coords: c, Tile: t})
		}
	}
	return results, nil
}

// BatchSetTiles implements tilestore.Store.
func (s *Store) BatchSetTiles(ctx context.Context, tiles []tilestore.TileAt) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, ta := range tiles {
		s.tiles[ta.Coords] = ta.Tile
	}
	return nil
}

// CountTilesByUser implements tilestore.Store.
func (s *Store) CountTilesByUser(ctx context.Context, userID string) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	count := 0
	for _, t := range s.tiles {
		if t.UserID == userID {
			count++
		}
	}
	return count, nil
}

// AddUser implements tilestore.Store.
func (s *Store) AddUser(ctx context.Context, u *user.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.users[u.ID] = *u
	s.tokens[u.ID] = u.Token
	s.userIDs = append(s.userIDs, u.ID)
	return nil
}

// GetUser implements tilestore.Store.
func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetPublicUsers implements tilestore.Store.
func (s *Store) GetPublicUsers(ctx context.Context) ([]user.PublicUser, error) {
	s.mutex.RLock()
	ids := append([]string(nil), s.userIDs...)
	s.mutex.RUnlock()

	results := make([]user.PublicUser, 0, len(ids))
	for _, id := range ids {
		u, err := s.GetUser(ctx, id)
		if err != nil || u == nil {
			continue
		}
		score, err := s.CountTilesByUser(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, u.AsPublic(score))
	}
	return results, nil
}

// ValidToken implements tilestore.Store.
func (s *Store) ValidToken(ctx context.Context, userID, token string) (bool, error) {
	s.mutex.RLock()
	stored, ok := s.tokens[userID]
	s.mutex.RUnlock()
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

// FlushDB implements tilestore.Store.
func (s *Store) FlushDB(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tiles = map[hexcoord.AxialCoords]tilestore.Tile{}
	s.users = map[string]user.User{}
	s.tokens = map[string]string{}
	s.userIDs = nil
	return nil
}

// Assert interface compliance.
var _ tilestore.Store = (*Store)(nil)
