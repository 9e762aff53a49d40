package engine

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// SessionIDGenerator names tracking sessions. A session starts each time the start
// position is recognised and ends at the next desync or re-arm.
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator issues time-sortable UUIDv7 session ids, so sessions in the journal and
// logs sort by when the board was set up.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids in order, for deterministic tests and replays.
// After the list is exhausted it keeps returning the last id, suffixed with a counter.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator returns a generator yielding ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	if len(ids) == 0 {
		ids = []string{"session"}
	}
	return &FixedGenerator{ids: ids}
}

// Generate returns the next id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.idx
	g.idx++
	if i < len(g.ids) {
		return g.ids[i]
	}
	return g.ids[len(g.ids)-1] + "-" + strconv.Itoa(i-len(g.ids)+2)
}
