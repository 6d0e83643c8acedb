// Package redistilestore implements tilestore.Store on Redis. Tiles are
// hashes under "tile:{q_r}", users are hashes under "user:{id}" with the
// insertion-ordered "user_ids" list, and tokens are plain strings under
// "token:{user_id}". Per-user tile counting goes through the "idx:tile"
// search index, which is dropped and recreated at startup.
package redistilestore

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go.hexfield.org/game/go/hexcoord"
	"go.hexfield.org/game/go/tilestore"
	"go.hexfield.org/game/go/user"
)

const (
	tileKeyPrefix  = "tile:"
	userKeyPrefix  = "user:"
	tokenKeyPrefix = "token:"
	userIDsKey     = "user_ids"
	tileIndexName  = "idx:tile"
)

// Store is a Redis-backed tilestore.Store.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// New returns a Store on the given client. InitIndex must be called once
// before CountTilesByUser is used.
func New(client *redis.Client, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
	}
}

// NewFromURL connects to the store at redisURL, verifies the connection
// and recreates the tile search index.
func NewFromURL(ctx context.Context, redisURL string, logger *zap.Logger) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url %q: %w", redisURL, err)
	}
	s := New(redis.NewClient(opts), logger)
	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis at %q: %w", redisURL, err)
	}
	if err := s.InitIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// InitIndex drops and recreates the idx:tile search index over tile hashes
// (user_id as TAG, damage as NUMERIC). A stale index from a previous run
// would otherwise keep its old schema.
func (s *Store) InitIndex(ctx context.Context) error {
	if err := s.client.FTDropIndex(ctx, tileIndexName).Err(); err != nil {
		if !isUnknownIndexErr(err) {
			return fmt.Errorf("dropping tile index: %w", err)
		}
		// Fresh database, nothing to drop.
		s.logger.Info("no existing tile index to drop")
	}
	err := s.client.FTCreate(ctx, tileIndexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{tileKeyPrefix},
		},
		&redis.FieldSchema{FieldName: "user_id", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "damage", FieldType: redis.SearchFieldTypeNumeric},
	).Err()
	if err != nil {
		return fmt.Errorf("creating tile index: %w", err)
	}
	return nil
}

// isUnknownIndexErr reports whether err is RediSearch's reply for dropping
// an index that does not exist, as opposed to a transport or server error.
// The wording varies across RediSearch versions.
func isUnknownIndexErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index name") || strings.Contains(msg, "no such index")
}

func tileKey(coords hexcoord.AxialCoords) string {
	return tileKeyPrefix + coords.RedisKey()
}

func parseTileHash(fields map[string]string) (*tilestore.Tile, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	userID, ok := fields["user_id"]
	if !ok {
		return nil, fmt.Errorf("tile hash is missing user_id")
	}
	damage, err := strconv.ParseUint(fields["damage"], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("tile hash has invalid damage %q: %w", fields["damage"], err)
	}
	return &tilestore.Tile{UserID: userID, Damage: uint8(damage)}, nil
}

// GetTile implements tilestore.Store.
func (s *Store) GetTile(ctx context.Context, coords hexcoord.AxialCoords) (*tilestore.Tile, error) {
	fields, err := s.client.HGetAll(ctx, tileKey(coords)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading tile %v: %w", coords, err)
	}
	return parseTileHash(fields)
}

// SetTile implements tilestore.Store.
func (s *Store) SetTile(ctx context.Context, coords hexcoord.AxialCoords, tile tilestore.Tile) error {
	err := s.client.HSet(ctx, tileKey(coords), "user_id", tile.UserID, "damage", int(tile.Damage)).Err()
	if err != nil {
		return fmt.Errorf("writing tile %v: %w", coords, err)
	}
	return nil
}

// BatchGetTiles implements tilestore.Store. All reads go out as one
// pipelined round trip.
func (s *Store) BatchGetTiles(ctx context.Context, coords []hexcoord.AxialCoords) ([]tilestore.TileAt, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(coords))
	for i, c := range coords {
		cmds[i] = pipe.HGetAll(ctx, tileKey(c))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("batch reading %d tiles: %w", len(coords), err)
	}

	var results []tilestore.TileAt
	for i, cmd := range cmds {
		tile, err := parseTileHash(cmd.Val())
		if err != nil {
			s.logger.Warn("skipping malformed tile hash",
				zap.String("coords", coords[i].String()),
				zap.Error(err))
			continue
		}
		if tile != nil {
			results = append(results, tilestore.TileAt{Coords: coords[i], Tile: *tile})
		}
	}
	return results, nil
}

// BatchSetTiles implements tilestore.Store. All writes go out as one
// pipelined round trip.
func (s *Store) BatchSetTiles(ctx context.Context, tiles []tilestore.TileAt) error {
	pipe := s.client.Pipeline()
	for _, ta := range tiles {
		pipe.HSet(ctx, tileKey(ta.Coords), "user_id", ta.Tile.UserID, "damage", int(ta.Tile.Damage))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch writing %d tiles: %w", len(tiles), err)
	}
	return nil
}

// CountTilesByUser implements tilestore.Store using the idx:tile index, so
// scores never require a scan of the whole grid.
func (s *Store) CountTilesByUser(ctx context.Context, userID string) (int, error) {
	query := fmt.Sprintf("@user_id:{%s}", userID)
	res, err := s.client.FTSearchWithArgs(ctx, tileIndexName, query, &redis.FTSearchOptions{
		NoContent:   true,
		LimitOffset: 0,
		Limit:       1,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("counting tiles of user %s: %w", userID, err)
	}
	return int(res.Total), nil
}

// AddUser implements tilestore.Store.
func (s *Store) AddUser(ctx context.Context, u *user.User) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, userKeyPrefix+u.ID,
		"id", u.ID,
		"username", u.Username,
		"color", u.Color,
		"token", u.Token)
	pipe.RPush(ctx, userIDsKey, u.ID)
	pipe.Set(ctx, tokenKeyPrefix+u.ID, u.Token, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing user %s: %w", u.ID, err)
	}
	return nil
}

// GetUser implements tilestore.Store.
func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	fields, err := s.client.HGetAll(ctx, userKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("reading user %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &user.User{
		ID:       fields["id"],
		Username: fields["username"],
		Color:    fields["color"],
		Token:    fields["token"],
	}, nil
}

// GetPublicUsers implements tilestore.Store.
func (s *Store) GetPublicUsers(ctx context.Context) ([]user.PublicUser, error) {
	ids, err := s.client.LRange(ctx, userIDsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing user ids: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, userKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("batch reading %d users: %w", len(ids), err)
	}

	results := make([]user.PublicUser, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			s.logger.Warn("user id listed but hash missing", zap.String("user_id", ids[i]))
			continue
		}
		score, err := s.CountTilesByUser(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		results = append(results, user.PublicUser{
			ID:       fields["id"],
			Username: fields["username"],
			Color:    fields["color"],
			Score:    score,
		})
	}
	return results, nil
}

// ValidToken implements tilestore.Store. The token key holds just the
// token string, so validation never loads the full user record.
func (s *Store) ValidToken(ctx context.Context, userID, token string) (bool, error) {
	stored, err := s.client.Get(ctx, tokenKeyPrefix+userID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading token of user %s: %w", userID, err)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

// FlushDB implements tilestore.Store.
func (s *Store) FlushDB(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("flushing store: %w", err)
	}
	return nil
}

var _ tilestore.Store = (*Store)(nil)
