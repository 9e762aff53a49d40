package sensor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reedboard/internal/board"
)

// Squares is a list of square names. In YAML it may be written as one name or a list.
type Squares []string

// UnmarshalYAML accepts "e2" as well as [e2, d2].
func (s *Squares) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = Squares{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("line %d: expected a square or a list of squares", node.Line)
	}
}

// Step is one frame of a scan script. A step starts from the previous frame, optionally
// replaces it (start, clear, board), then lifts and places the listed squares.
type Step struct {
	Start bool    `yaml:"start,omitempty"`
	Clear bool    `yaml:"clear,omitempty"`
	Board string  `yaml:"board,omitempty"` // diagram or 16 hex digits
	Lift  Squares `yaml:"lift,omitempty"`
	Place Squares `yaml:"place,omitempty"`

	// Fail makes this read fail with the given message instead of producing a frame.
	Fail string `yaml:"fail,omitempty"`
}

// Apply returns the frame this step produces after prev.
func (st Step) Apply(prev board.Snapshot) (board.Snapshot, error) {
	snap := prev
	switch {
	case st.Start:
		snap = board.StartPosition
	case st.Clear:
		snap = board.Snapshot{}
	case st.Board != "":
		var err error
		snap, err = parseBoard(st.Board)
		if err != nil {
			return prev, err
		}
	}

	for _, name := range st.Lift {
		sq, err := board.ParseSquare(name)
		if err != nil {
			return prev, fmt.Errorf("lift: %w", err)
		}
		snap = snap.With(sq, false)
	}
	for _, name := range st.Place {
		sq, err := board.ParseSquare(name)
		if err != nil {
			return prev, fmt.Errorf("place: %w", err)
		}
		snap = snap.With(sq, true)
	}
	return snap, nil
}

func parseBoard(s string) (board.Snapshot, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 16 && !strings.ContainsAny(trimmed, " \n") {
		return board.ParseHex(trimmed)
	}
	return board.ParseDiagram(s)
}

// Script is a YAML scan script.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// ParseScript decodes a script, rejecting unknown fields.
func ParseScript(data []byte) (*Script, error) {
	var sc Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, errors.New("parse script: no steps")
	}
	return &sc, nil
}

// LoadScript reads and decodes a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	sc, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}

// Frame is a precomputed read: a snapshot or a failure.
type Frame struct {
	Snapshot board.Snapshot
	Err      error
}

// Frames expands steps into reads, starting from an empty board.
func Frames(steps []Step) ([]Frame, error) {
	frames := make([]Frame, 0, len(steps))
	var cur board.Snapshot
	for i, st := range steps {
		if st.Fail != "" {
			frames = append(frames, Frame{Snapshot: cur, Err: errors.New(st.Fail)})
			continue
		}
		next, err := st.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		cur = next
		frames = append(frames, Frame{Snapshot: cur})
	}
	return frames, nil
}

// ScriptSource is a GridSource playing back frames. Each Read consumes one frame; once the
// frames run out it keeps returning the last snapshot, like a board nobody touches.
type ScriptSource struct {
	mu     sync.Mutex
	frames []Frame
	next   int
}

// NewScriptSource expands a script into a source.
func NewScriptSource(sc *Script) (*ScriptSource, error) {
	frames, err := Frames(sc.Steps)
	if err != nil {
		return nil, err
	}
	return &ScriptSource{frames: frames}, nil
}

// NewFrameSource plays back snapshots directly.
func NewFrameSource(snaps ...board.Snapshot) *ScriptSource {
	frames := make([]Frame, len(snaps))
	for i, s := range snaps {
		frames[i] = Frame{Snapshot: s}
	}
	return &ScriptSource{frames: frames}
}

// Read returns the next frame.
func (s *ScriptSource) Read(ctx context.Context) (board.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return board.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return board.Snapshot{}, nil
	}
	if s.next >= len(s.frames) {
		return s.frames[len(s.frames)-1].Snapshot, nil
	}
	f := s.frames[s.next]
	s.next++
	return f.Snapshot, f.Err
}

// Remaining returns how many frames have not been read yet.
func (s *ScriptSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) - s.next
}
