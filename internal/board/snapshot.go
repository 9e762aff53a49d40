package board

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"
)

// Snapshot is one occupancy read of the grid. Each byte is a rank (index 0 = 1st rank) and
// bit n of a rank is file n, the same layout the port expanders deliver.
type Snapshot [8]uint8

// StartPosition is the occupancy of a freshly set up game: ranks 1, 2, 7 and 8 full.
var StartPosition = Snapshot{0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF}

// Occupied reports whether a piece sits on sq.
func (s Snapshot) Occupied(sq Square) bool {
	if !sq.Valid() {
		return false
	}
	return s[sq.Rank()]&(1<<uint(sq.File())) != 0
}

// With returns a copy of s with sq set to occupied. The receiver is left untouched.
func (s Snapshot) With(sq Square, occupied bool) Snapshot {
	if !sq.Valid() {
		return s
	}
	mask := uint8(1) << uint(sq.File())
	if occupied {
		s[sq.Rank()] |= mask
	} else {
		s[sq.Rank()] &^= mask
	}
	return s
}

// Count returns the number of occupied squares.
func (s Snapshot) Count() int {
	n := 0
	for _, rank := range s {
		n += bits.OnesCount8(rank)
	}
	return n
}

// IsStart reports whether s exactly matches StartPosition.
func (s Snapshot) IsStart() bool { return s == StartPosition }

// Invert flips every square. Active-low switch wiring reads a present piece as 0.
func (s Snapshot) Invert() Snapshot {
	for i := range s {
		s[i] = ^s[i]
	}
	return s
}

// Hex encodes the eight rank bytes as 16 hex digits, 1st rank first.
func (s Snapshot) Hex() string { return hex.EncodeToString(s[:]) }

// ParseHex decodes the Hex form.
func ParseHex(s string) (Snapshot, error) {
	var snap Snapshot
	raw, err := hex.DecodeString(s)
	if err != nil {
		return snap, fmt.Errorf("decode snapshot %q: %w", s, err)
	}
	if len(raw) != len(snap) {
		return snap, fmt.Errorf("decode snapshot %q: want %d bytes, got %d", s, len(snap), len(raw))
	}
	copy(snap[:], raw)
	return snap, nil
}

// MarshalText encodes s in its Hex form.
func (s Snapshot) MarshalText() ([]byte, error) { return []byte(s.Hex()), nil }

// UnmarshalText decodes the Hex form.
func (s *Snapshot) UnmarshalText(text []byte) error {
	snap, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*s = snap
	return nil
}

// ParseDiagram reads eight rows of eight cells, 8th rank first, as drawn by String.
// 'x' or 'X' marks an occupied square, '.' or '-' an empty one. Rank labels, spaces and the
// file legend are ignored.
func ParseDiagram(diagram string) (Snapshot, error) {
	var snap Snapshot
	var rows []string
	for _, line := range strings.Split(diagram, "\n") {
		var cells strings.Builder
		for _, c := range line {
			switch c {
			case 'x', 'X', '.', '-':
				cells.WriteRune(c)
			}
		}
		if cells.Len() == 0 {
			continue
		}
		rows = append(rows, cells.String())
	}
	if len(rows) != 8 {
		return snap, fmt.Errorf("diagram: want 8 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 8 {
			return snap, fmt.Errorf("diagram row %d: want 8 cells, got %d", i+1, len(row))
		}
		rank := 7 - i
		for file := 0; file < 8; file++ {
			switch row[file] {
			case 'x', 'X':
				snap = snap.With(NewSquare(file, rank), true)
			}
		}
	}
	return snap, nil
}

// String draws the grid with the 8th rank on top.
func (s Snapshot) String() string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		b.WriteByte(byte('1' + rank))
		for file := 0; file < 8; file++ {
			b.WriteByte(' ')
			if s.Occupied(NewSquare(file, rank)) {
				b.WriteByte('x')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("  a b c d e f g h\n")
	return b.String()
}
