package boltstore

import (
	"encoding/binary"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

// Bucket name constants for bbolt storage.
var (
	bucketMeta      = []byte("meta")
	bucketPlayers   = []byte("players")
	bucketNames     = []byte("playernames")
	bucketGuilds    = []byte("guilds")
	bucketCreatures = []byte("creatures")
)

// Meta key constants.
var (
	keyVersion = []byte("version")
)

// schemaVersion is written on import and checked on load.
const schemaVersion = 1

// refToKey converts a DBRef to an 8-byte big-endian key.
// We offset by a large constant so negative DBRefs (Nothing=-1, etc.) sort correctly.
func refToKey(ref gamedb.DBRef) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(ref)+1<<32))
	return buf
}

// keyToRef converts an 8-byte big-endian key back to a DBRef.
func keyToRef(b []byte) gamedb.DBRef {
	v := binary.BigEndian.Uint64(b)
	return gamedb.DBRef(int64(v) - 1<<32)
}

// guildToKey converts a guild id to a 4-byte big-endian key.
func guildToKey(id gamedb.GuildID) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(id))
	return buf
}

// intToKey converts an int to an 8-byte big-endian key.
func intToKey(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

// keyToInt converts an 8-byte big-endian key back to an int.
func keyToInt(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
