package stagefile

import (
	"encoding/json"
	"fmt"

	"github.com/stagefmt/stagefile/binio"
	"github.com/stagefmt/stagefile/errors"
)

// StageVersion is the current stage save data version.
const StageVersion = 3

// DefaultFps is the frame rate of a new stage.
const DefaultFps = 24

// Workspace holds environment settings of the editor that are saved with
// the stage.
type Workspace struct {
	Environment  string  `json:"environment,omitempty"`
	FloorVisible bool    `json:"floorVisible"`
	GridVisible  bool    `json:"gridVisible"`
	GridSize     float32 `json:"gridSize"`
	Ambient      Color   `json:"ambient"`
}

// Stage is the root of a scene graph.
type Stage struct {
	Name    string
	Symbols []*Symbol

	Transform       Transform
	BackgroundColor Color
	Fps             float32

	// TimelineLength is the length of the stage in frames. WindowStart and
	// WindowEnd bound the visible part of the timeline, LoopStart and
	// LoopEnd the looped playback range.
	TimelineLength int
	WindowStart    int
	WindowEnd      int
	LoopStart      int
	LoopEnd        int

	AudioPool *AudioPool

	// Previews holds encoded thumbnail images. They are stored separately
	// from the rest of the stage.
	Previews [][]byte

	// LUTs holds color lookup tables.
	LUTs [][]byte

	Workspace Workspace

	SaveDataVersion int

	// ActivePlayablePath is the name path of ActivePlayable. It is computed
	// when saving and resolved when loading.
	ActivePlayablePath string
	ActivePlayable     Playable

	// Revision is incremented by Changed.
	Revision uint64

	onChanged []func(*Stage)
}

// NewStage returns an empty stage with default settings.
func NewStage(name string) *Stage {
	return &Stage{
		Name:            name,
		Transform:       Identity(),
		BackgroundColor: Color{0, 0, 0, 1},
		Fps:             DefaultFps,
		TimelineLength:  DefaultFps * 4,
		WindowEnd:       DefaultFps * 4,
		LoopEnd:         DefaultFps * 4,
		AudioPool:       NewAudioPool(),
		Workspace: Workspace{
			FloorVisible: true,
			GridSize:     1,
			Ambient:      Color{0.2, 0.2, 0.2, 1},
		},
		SaveDataVersion: StageVersion,
	}
}

// AddSymbol appends a root symbol.
func (s *Stage) AddSymbol(sym *Symbol) *Symbol {
	s.Symbols = append(s.Symbols, sym)
	sym.IndexInParent = len(s.Symbols) - 1
	return sym
}

// OnChanged registers fn to be called by Changed.
func (s *Stage) OnChanged(fn func(*Stage)) {
	s.onChanged = append(s.onChanged, fn)
}

// Changed notifies that a batch of mutations has been made to the graph.
// Mutation primitives do not call it themselves.
func (s *Stage) Changed() {
	s.Revision++
	for _, fn := range s.onChanged {
		fn(s)
	}
}

func (s *Stage) roots() []Playable {
	roots := make([]Playable, len(s.Symbols))
	for i, sym := range s.Symbols {
		roots[i] = sym
	}
	return roots
}

// Walk visits every playable of the stage depth-first, with its name path.
// Returning false from fn stops the walk.
func (s *Stage) Walk(fn func(path string, p Playable) bool) {
	for _, sym := range s.Symbols {
		if !fn(sym.Name, sym) || !sym.walk(sym.Name, fn) {
			return
		}
	}
}

// FindPath resolves a slash-delimited name path, starting with the name of
// a root symbol. It returns nil if nothing matches.
func (s *Stage) FindPath(path string) Playable {
	return findPath(s.roots(), path)
}

// PathOf returns the name path of p, or an empty string if p is nil or not
// part of the stage.
func (s *Stage) PathOf(p Playable) string {
	if p == nil {
		return ""
	}
	var found string
	s.Walk(func(path string, c Playable) bool {
		if c == p {
			found = path
			return false
		}
		return true
	})
	return found
}

// AudioKeys returns the set of audio keys referenced by Audio playables.
func (s *Stage) AudioKeys() map[AudioKey]struct{} {
	keys := map[AudioKey]struct{}{}
	s.Walk(func(_ string, p Playable) bool {
		if a, ok := p.(*Audio); ok && !a.Key.IsZero() {
			keys[a.Key] = struct{}{}
		}
		return true
	})
	return keys
}

// PruneAudio removes pool entries not referenced by the graph.
func (s *Stage) PruneAudio() {
	if s.AudioPool != nil {
		s.AudioPool.Prune(s.AudioKeys())
	}
}

// PointCount returns the total number of line samples in the stage.
func (s *Stage) PointCount() int {
	n := 0
	s.Walk(func(_ string, p Playable) bool {
		switch p := p.(type) {
		case *TimeLine:
			for _, f := range p.Frames {
				n += f.PointCount()
			}
		case *Puppet:
			for _, f := range p.Frames {
				n += f.PointCount()
			}
		}
		return true
	})
	return n
}

// Upgrade brings a stage loaded from save data version 2 to the current
// version. The graph itself is unchanged.
func (s *Stage) Upgrade() {
	if s.SaveDataVersion != 2 {
		return
	}
	s.SaveDataVersion = 3
	Logger().Debug("upgraded stage", "name", s.Name, "version", s.SaveDataVersion)
}

// DeepCopy returns an independent copy of the graph and its audio pool. The
// active playable is resolved again in the copy, and change hooks are not
// copied.
func (s *Stage) DeepCopy() *Stage {
	c := *s
	c.onChanged = nil
	c.Symbols = make([]*Symbol, len(s.Symbols))
	for i, sym := range s.Symbols {
		c.Symbols[i] = sym.DeepCopy().(*Symbol)
	}
	c.Previews = cloneBlobs(s.Previews)
	c.LUTs = cloneBlobs(s.LUTs)
	c.AudioPool = s.AudioPool.DeepCopy()
	c.ActivePlayable = c.FindPath(s.PathOf(s.ActivePlayable))
	return &c
}

func cloneBlobs(a [][]byte) [][]byte {
	if a == nil {
		return nil
	}
	c := make([][]byte, len(a))
	for i, b := range a {
		c[i] = cloneBytes(b)
	}
	return c
}

////////////////////////////////////////////////////////////////

type stageRecord struct {
	Name               string             `json:"name"`
	Symbols            []symbolRecord     `json:"symbols"`
	Transform          *Transform         `json:"transform,omitempty"`
	BackgroundColor    *Color             `json:"backgroundColor,omitempty"`
	Fps                float32            `json:"fps"`
	TimelineLength     int                `json:"timelineLength"`
	WindowStart        int                `json:"windowStart"`
	WindowEnd          int                `json:"windowEnd"`
	LoopStart          int                `json:"loopStart"`
	LoopEnd            int                `json:"loopEnd"`
	AudioPool          []audioEntryRecord `json:"audioPool,omitempty"`
	LUTs               []*binio.Range     `json:"luts,omitempty"`
	Workspace          *Workspace         `json:"workspace,omitempty"`
	SaveDataVersion    int                `json:"saveDataVersion"`
	ActivePlayablePath string             `json:"activePlayablePath,omitempty"`
}

// MarshalStage encodes the structural part of s as JSON. Large arrays are
// written to w and referenced by range. Previews are not included.
func MarshalStage(s *Stage, w *binio.Writer) ([]byte, error) {
	bg := s.BackgroundColor
	ws := s.Workspace
	rec := stageRecord{
		Name:               s.Name,
		Symbols:            make([]symbolRecord, len(s.Symbols)),
		Transform:          transformPtr(s.Transform),
		BackgroundColor:    &bg,
		Fps:                s.Fps,
		TimelineLength:     s.TimelineLength,
		WindowStart:        s.WindowStart,
		WindowEnd:          s.WindowEnd,
		LoopStart:          s.LoopStart,
		LoopEnd:            s.LoopEnd,
		Workspace:          &ws,
		SaveDataVersion:    s.SaveDataVersion,
		ActivePlayablePath: s.ActivePlayablePath,
	}
	var err error
	for i, sym := range s.Symbols {
		sym.IndexInParent = i
		if rec.Symbols[i], err = encodeSymbol(sym, w); err != nil {
			return nil, err
		}
	}
	if rec.AudioPool, err = encodeAudioPool(s.AudioPool, w); err != nil {
		return nil, fmt.Errorf("audio pool: %w", err)
	}
	for i, lut := range s.LUTs {
		rg, err := w.WriteBytes(lut)
		if err != nil {
			return nil, fmt.Errorf("lut %d: %w", i, err)
		}
		rec.LUTs = append(rec.LUTs, rg)
	}
	return json.Marshal(rec)
}

// UnmarshalStage decodes a stage encoded by MarshalStage, reading ranges
// from r. Problems that do not prevent loading are returned as warnings.
// The active playable path is resolved, but no stage version upgrade is
// run.
func UnmarshalStage(data []byte, r *binio.Reader) (s *Stage, warn, err error) {
	var rec stageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, binio.DataError{Offset: -1, Cause: err}
	}
	s = NewStage(rec.Name)
	s.Transform = orIdentity(rec.Transform)
	if rec.BackgroundColor != nil {
		s.BackgroundColor = *rec.BackgroundColor
	}
	if rec.Fps > 0 {
		s.Fps = rec.Fps
	}
	s.TimelineLength = rec.TimelineLength
	s.WindowStart = rec.WindowStart
	s.WindowEnd = rec.WindowEnd
	s.LoopStart = rec.LoopStart
	s.LoopEnd = rec.LoopEnd
	if rec.Workspace != nil {
		s.Workspace = *rec.Workspace
	}
	s.SaveDataVersion = rec.SaveDataVersion
	s.ActivePlayablePath = rec.ActivePlayablePath

	s.Symbols = make([]*Symbol, len(rec.Symbols))
	for i := range rec.Symbols {
		if s.Symbols[i], err = decodeSymbol(&rec.Symbols[i], r); err != nil {
			return nil, nil, err
		}
	}

	var warns errors.Errors
	pool, pw, err := decodeAudioPool(rec.AudioPool, r)
	if err != nil {
		return nil, nil, fmt.Errorf("audio pool: %w", err)
	}
	s.AudioPool = pool
	warns = warns.Append(pw...)

	for i, rg := range rec.LUTs {
		lut, err := r.ReadBytes(rg)
		if err != nil {
			return nil, nil, fmt.Errorf("lut %d: %w", i, err)
		}
		s.LUTs = append(s.LUTs, lut)
	}

	s.ResolveActive()
	if s.ActivePlayablePath != "" && s.ActivePlayable == nil {
		warns = warns.Append(fmt.Errorf("active playable %q not found", s.ActivePlayablePath))
	}
	return s, warns.Return(), nil
}

// ResolveActive sets ActivePlayable from ActivePlayablePath.
func (s *Stage) ResolveActive() {
	s.ActivePlayable = s.FindPath(s.ActivePlayablePath)
}
