// Package ids generates time-ordered prefixed identifiers.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	ProjectPrefix  = "proj"
	ClothingPrefix = "c-cloth"
	LocationPrefix = "c-loc"
)

// Generator produces ULIDs that sort by creation time. IDs made within the
// same millisecond stay unique and ordered through monotonic entropy.
type Generator struct {
	now       func() time.Time
	entropy   *ulid.MonotonicEntropy
	entropyMu sync.Mutex
}

func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		now:     now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Now returns the generator's current time.
func (g *Generator) Now() time.Time {
	return g.now()
}

func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// WithPrefix returns "<prefix>-<ULID>".
func (g *Generator) WithPrefix(prefix string) string {
	return prefix + "-" + g.Generate().String()
}
