package policy

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// NewRand builds the pseudo-random source used for exploration. A non-zero
// seed gives a deterministic stream for reproducible runs. With seed zero the
// source is seeded from the operating system entropy pool; if reading entropy
// fails the current time seeds it instead and degraded reports true so the
// caller can log the weaker seeding.
func NewRand(seed int64) (rng *rand.Rand, degraded bool) {
	if seed != 0 {
		return rand.New(rand.NewSource(seed)), false
	}
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.New(rand.NewSource(time.Now().UnixNano())), true
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(b[:])))), false
}
