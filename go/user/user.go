// Package user defines the player records persisted in the tile store and
// how new players are minted at login.
package user

import (
	"crypto/rand"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
)

const (
	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	idLength   = 16
)

// User is a registered player. The token authenticates every click and is
// only ever returned to its owner at login.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Color    string `json:"color"`
	Token    string `json:"token"`
}

// PublicUser is the spectator-visible view of a player. Score is the
// current number of tiles the player owns.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Color    string `json:"color"`
	Score    int    `json:"score"`
}

// New mints a user with a fresh random id and token. The color is derived
// deterministically from the username, so the same name always renders the
// same.
func New(username string) *User {
	return &User{
		ID:       newID(),
		Username: username,
		Color:    ColorFor(username),
		Token:    uuid.NewString(),
	}
}

// AsPublic projects the user to its public view with the given score.
func (u *User) AsPublic(score int) PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Color:    u.Color,
		Score:    score,
	}
}

// ColorFor maps a username to a stable "#rrggbb" color.
func ColorFor(username string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return fmt.Sprintf("#%06x", h.Sum32()&0xffffff)
}

// newID returns a random base-62 identifier. Plain alphanumerics keep the
// id safe to embed in store keys and search-index tag queries without
// escaping.
func newID() string {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	for i, v := range b {
		b[i] = idAlphabet[int(v)%len(idAlphabet)]
	}
	return string(b)
}
