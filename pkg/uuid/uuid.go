// Package uuid generates UUID v7 identifiers.
// v7 embeds a millisecond timestamp, so ids sort by creation time;
// convenient for the call log, where rows are listed newest-first.
package uuid

import (
	"fmt"
	"math/rand"
	"time"
)

// UUID is a 128-bit UUID v7 identifier.
type UUID [16]byte

// NewV7 generates a new UUID v7 per draft-ietf-uuidrev-rfc4122bis:
// 48 bits of UNIX milliseconds, 4 version bits, 2 variant bits,
// and 74 random bits.
func NewV7() UUID {
	now := time.Now().UnixMilli()

	var id UUID

	// timestamp, bytes 0-5
	id[0] = byte(now >> 40)
	id[1] = byte(now >> 32)
	id[2] = byte(now >> 24)
	id[3] = byte(now >> 16)
	id[4] = byte(now >> 8)
	id[5] = byte(now)

	r := rand.Uint64()

	// version nibble 0111 in the high bits of byte 6
	id[6] = 0x70 | byte((r>>56)&0x0f)
	id[7] = byte(r >> 48)
	// RFC 4122 variant 10xxxxxx in the high bits of byte 8
	id[8] = 0x80 | byte((r>>40)&0x3f)
	id[9] = byte(r >> 32)
	id[10] = byte(r >> 24)
	id[11] = byte(r >> 16)
	id[12] = byte(r >> 8)
	id[13] = byte(r)
	id[14] = byte(rand.Intn(256))
	id[15] = byte(rand.Intn(256))

	return id
}

// String formats the UUID as xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func (u UUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		u[0:4],
		u[4:6],
		u[6:8],
		u[8:10],
		u[10:16],
	)
}
