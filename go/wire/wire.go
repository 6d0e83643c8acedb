// Package wire encodes the binary frames pushed to websocket clients. All
// integers are little-endian; the first byte of every frame is its type
// tag. Decoders exist so tests and tooling can assert frames bit-exactly.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"go.hexfield.org/game/go/hexcoord"
)

// Frame type tags.
const (
	TypeTileChange  = 0x01
	TypeNewUser     = 0x02
	TypeScoreChange = 0x03
)

// TileChange announces a new computed view of one tile.
type TileChange struct {
	Coords   hexcoord.AxialCoords
	Strength uint8
	UserID   string
}

// NewUser announces a freshly registered player.
type NewUser struct {
	ID       string
	Username string
	Color    string
}

// ScoreChange announces a player's new tile count.
type ScoreChange struct {
	UserID string
	Score  uint32
}

// Encode renders the frame as
// 0x01 . i32 q . i32 r . u8 strength . u8 len . user id.
func (m TileChange) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 11+len(m.UserID)))
	buf.WriteByte(TypeTileChange)
	_ = binary.Write(buf, binary.LittleEndian, m.Coords.Q)
	_ = binary.Write(buf, binary.LittleEndian, m.Coords.R)
	buf.WriteByte(m.Strength)
	buf.WriteByte(uint8(len(m.UserID)))
	buf.WriteString(m.UserID)
	return buf.Bytes()
}

// DecodeTileChange parses a 0x01 frame.
func DecodeTileChange(data []byte) (TileChange, error) {
	var m TileChange
	if len(data) < 11 || data[0] != TypeTileChange {
		return m, fmt.Errorf("not a tile change frame")
	}
	m.Coords.Q = int32(binary.LittleEndian.Uint32(data[1:5]))
	m.Coords.R = int32(binary.LittleEndian.Uint32(data[5:9]))
	m.Strength = data[9]
	idLen := int(data[10])
	if len(data) < 11+idLen {
		return m, fmt.Errorf("tile change frame truncated")
	}
	m.UserID = string(data[11 : 11+idLen])
	return m, nil
}

// Encode renders the frame as
// 0x02 . u8 len . id . u8 len . username . u8 len . color.
func (m NewUser) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4+len(m.ID)+len(m.Username)+len(m.Color)))
	buf.WriteByte(TypeNewUser)
	writeLenPrefixed(buf, m.ID)
	writeLenPrefixed(buf, m.Username)
	writeLenPrefixed(buf, m.Color)
	return buf.Bytes()
}

// DecodeNewUser parses a 0x02 frame.
func DecodeNewUser(data []byte) (NewUser, error) {
	var m NewUser
	if len(data) < 1 || data[0] != TypeNewUser {
		return m, fmt.Errorf("not a new user frame")
	}
	rest := data[1:]
	var err error
	if m.ID, rest, err = readLenPrefixed(rest); err != nil {
		return m, err
	}
	if m.Username, rest, err = readLenPrefixed(rest); err != nil {
		return m, err
	}
	if m.Color, _, err = readLenPrefixed(rest); err != nil {
		return m, err
	}
	return m, nil
}

// Encode renders the frame as 0x03 . u8 len . user id . u32 score.
func (m ScoreChange) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 6+len(m.UserID)))
	buf.WriteByte(TypeScoreChange)
	writeLenPrefixed(buf, m.UserID)
	_ = binary.Write(buf, binary.LittleEndian, m.Score)
	return buf.Bytes()
}

// DecodeScoreChange parses a 0x03 frame.
func DecodeScoreChange(data []byte) (ScoreChange, error) {
	var m ScoreChange
	if len(data) < 1 || data[0] != TypeScoreChange {
		return m, fmt.Errorf("not a score change frame")
	}
	userID, rest, err := readLenPrefixed(data[1:])
	if err != nil {
		return m, err
	}
	if len(rest) < 4 {
		return m, fmt.Errorf("score change frame truncated")
	}
	m.UserID = userID
	m.Score = binary.LittleEndian.Uint32(rest[:4])
	return m, nil
}

func writeLenPrefixed(buf *bytes.Buffer, s string) {
	buf.WriteByte(uint8(len(s)))
	buf.WriteString(s)
}

func readLenPrefixed(data []byte) (string, []byte, error) {
	if len(data) < 1 {
		return "", nil, fmt.Errorf("frame truncated reading length")
	}
	n := int(data[0])
	if len(data) < 1+n {
		return "", nil, fmt.Errorf("frame truncated reading %d bytes", n)
	}
	return string(data[1 : 1+n]), data[1+n:], nil
}
