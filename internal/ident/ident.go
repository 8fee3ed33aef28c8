// Package ident resolves and compares correspondent identities. Identities
// come from unreliable text: the remote player may be known by name, by
// world, or by a stable numeric id, and none of the three is consistently
// available. This package is the single authority for normalization,
// equality and hashing; other packages must not re-derive comparisons.
package ident

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// PlayerIdentity identifies a remote correspondent. World 0 and StableID 0
// both mean "unknown".
type PlayerIdentity struct {
	Name     string
	World    uint32
	StableID uint64
}

// New builds an identity with a normalized name.
func New(name string, world uint32, stableID uint64) PlayerIdentity {
	return PlayerIdentity{Name: Normalize(name), World: world, StableID: stableID}
}

// crossWorldToken appears embedded in sender spans for correspondents on
// another world.
const crossWorldToken = "(cross-world)"

// Normalize strips tell-formatting markers, decorative game glyphs and a
// trailing @World annotation from a raw sender span, returning a bare
// display name.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		trimmed := s
		for _, marker := range []string{">>", "<<"} {
			trimmed = strings.TrimPrefix(trimmed, marker)
			trimmed = strings.TrimSuffix(trimmed, marker)
		}
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == s {
			break
		}
		s = trimmed
	}
	s = strings.ReplaceAll(s, crossWorldToken, "")
	// Game icons render as private-use-area runes.
	s = strings.Map(func(r rune) rune {
		if r >= 0xE000 && r <= 0xF8FF {
			return -1
		}
		return r
	}, s)
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
	}
	return strings.Join(strings.Fields(s), " ")
}

// WorldSuffix returns the world id from a numeric @world annotation on a raw
// sender span, if one is present. A named world ("@Gilgamesh") cannot be
// resolved to an id here and yields false.
func WorldSuffix(raw string) (uint32, bool) {
	at := strings.LastIndexByte(raw, '@')
	if at < 0 {
		return 0, false
	}
	tail := strings.TrimSpace(raw[at+1:])
	n, err := strconv.ParseUint(tail, 10, 32)
	if err != nil || n == 0 || n > maxWorldID {
		return 0, false
	}
	return uint32(n), true
}

const maxWorldID = 10000

// WorldFromStableID extracts a candidate world id from the upper 16 bits of
// a stable id. Values outside [1, 10000] are treated as not encoding a world.
func WorldFromStableID(id uint64) (uint32, bool) {
	w := uint32(id >> 48)
	if w < 1 || w > maxWorldID {
		return 0, false
	}
	return w, true
}

// Equal reports whether two identities refer to the same correspondent.
// When both sides carry a stable id, the ids decide alone. Otherwise names
// must match case-insensitively and the worlds must not be known-different.
func Equal(a, b PlayerIdentity) bool {
	if a.StableID != 0 && b.StableID != 0 {
		return a.StableID == b.StableID
	}
	if !strings.EqualFold(a.Name, b.Name) {
		return false
	}
	return a.World == 0 || b.World == 0 || a.World == b.World
}

// Hash returns a 64-bit hash of the identity: the stable id when known,
// otherwise the lowercased name. Hash-equality does not imply Equal — two
// identities with the same name on different known worlds collide, and an
// id-less identity never hashes like an id-ful one. Callers must resolve
// collisions with Equal.
func Hash(a PlayerIdentity) uint64 {
	if a.StableID != 0 {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], a.StableID)
		return xxhash.Sum64(buf[:])
	}
	return xxhash.Sum64String(a.NameKey())
}

// NameKey returns the lowercased name, the key histories and registries
// bucket by.
func (p PlayerIdentity) NameKey() string {
	return strings.ToLower(p.Name)
}

// Display renders the identity for logs and badges.
func (p PlayerIdentity) Display() string {
	if p.World != 0 {
		return p.Name + "@" + strconv.FormatUint(uint64(p.World), 10)
	}
	return p.Name
}
