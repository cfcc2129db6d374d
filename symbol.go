package stagefile

import (
	"fmt"
	"strings"

	"github.com/stagefmt/stagefile/binio"
)

// Symbol is a playable that contains an ordered list of other playables,
// including nested symbols.
type Symbol struct {
	PlayableBase
	Playables []Playable
}

func NewSymbol(name string) *Symbol {
	return &Symbol{PlayableBase: newPlayableBase(name)}
}

func (s *Symbol) Kind() Kind { return KindSymbol }

// FrameCount returns the frame after the last frame played by any child,
// and at least 1.
func (s *Symbol) FrameCount(fps float32) int {
	n := 1
	for _, p := range s.Playables {
		b := p.Base()
		end := b.AbsoluteTimeOffset + p.LocalTrimEnd(fps) - p.LocalTrimStart(fps)
		n = max(n, end)
	}
	return n
}

func (s *Symbol) LocalTrimStart(fps float32) int { return s.trimStart(s.FrameCount(fps)) }
func (s *Symbol) LocalTrimEnd(fps float32) int   { return s.trimEnd(s.FrameCount(fps)) }

func (s *Symbol) DeepCopy() Playable {
	c := *s
	if s.Playables != nil {
		c.Playables = make([]Playable, len(s.Playables))
		for i, p := range s.Playables {
			c.Playables[i] = p.DeepCopy()
		}
	}
	return &c
}

func (s *Symbol) reindex(from int) {
	for i := from; i < len(s.Playables); i++ {
		s.Playables[i].Base().IndexInParent = i
	}
}

// Add appends p to the symbol.
func (s *Symbol) Add(p Playable) Playable {
	s.Playables = append(s.Playables, p)
	p.Base().IndexInParent = len(s.Playables) - 1
	return p
}

// Insert places p at index i, shifting later children. i is clamped to the
// valid range.
func (s *Symbol) Insert(i int, p Playable) Playable {
	i = min(max(i, 0), len(s.Playables))
	s.Playables = insert(s.Playables, i, p)
	s.reindex(i)
	return p
}

// Remove detaches p from the symbol. It returns false if p is not a direct
// child.
func (s *Symbol) Remove(p Playable) bool {
	for i, c := range s.Playables {
		if c == p {
			s.Playables = remove(s.Playables, i)
			p.Base().IndexInParent = -1
			s.reindex(i)
			return true
		}
	}
	return false
}

// Find returns the first direct child named name, or nil.
func (s *Symbol) Find(name string) Playable {
	for _, p := range s.Playables {
		if p.Base().Name == name {
			return p
		}
	}
	return nil
}

// Walk visits every descendant depth-first, parents before children. path
// is the slash-delimited name path relative to s. Returning false from fn
// stops the walk; Walk returns false if it was stopped.
func (s *Symbol) Walk(fn func(path string, p Playable) bool) bool {
	return s.walk("", fn)
}

func (s *Symbol) walk(prefix string, fn func(path string, p Playable) bool) bool {
	for _, p := range s.Playables {
		path := p.Base().Name
		if prefix != "" {
			path = prefix + "/" + path
		}
		if !fn(path, p) {
			return false
		}
		if sub, ok := p.(*Symbol); ok {
			if !sub.walk(path, fn) {
				return false
			}
		}
	}
	return true
}

// FindPath resolves a slash-delimited name path relative to s. The first
// segment matches a direct child; the rest is resolved within that child.
func (s *Symbol) FindPath(path string) Playable {
	return findPath(s.Playables, path)
}

func findPath(children []Playable, path string) Playable {
	if path == "" {
		return nil
	}
	name, rest, _ := strings.Cut(path, "/")
	for _, p := range children {
		if p.Base().Name != name {
			continue
		}
		if rest == "" {
			return p
		}
		if sub, ok := p.(*Symbol); ok {
			if found := findPath(sub.Playables, rest); found != nil {
				return found
			}
		}
	}
	return nil
}

// TimeLines returns the direct children that are timelines, in order.
func (s *Symbol) TimeLines() []*TimeLine {
	return childrenOf[*TimeLine](s)
}

// Symbols returns the direct children that are symbols, in order.
func (s *Symbol) Symbols() []*Symbol {
	return childrenOf[*Symbol](s)
}

func childrenOf[P Playable](s *Symbol) []P {
	var a []P
	for _, p := range s.Playables {
		if c, ok := p.(P); ok {
			a = append(a, c)
		}
	}
	return a
}

////////////////////////////////////////////////////////////////

// symbolRecord stores children grouped by kind. IndexInParent of each child
// restores the interleaved order.
type symbolRecord struct {
	playableRecord
	TimeLines    []timeLineRecord    `json:"timeLines,omitempty"`
	StaticMeshes []staticMeshRecord  `json:"staticMeshes,omitempty"`
	Cameras      []cameraRecord      `json:"cameras,omitempty"`
	Audios       []audioRecord       `json:"audios,omitempty"`
	UnityImports []unityImportRecord `json:"unityImports,omitempty"`
	Videos       []videoRecord       `json:"videos,omitempty"`
	Skyboxes     []skyboxRecord      `json:"skyboxes,omitempty"`
	References   []referenceRecord   `json:"references,omitempty"`
	Lights       []lightRecord       `json:"lights,omitempty"`
	Puppets      []puppetRecord      `json:"puppets,omitempty"`
	Symbols      []symbolRecord      `json:"symbols,omitempty"`
}

func appendEncoded[P Playable, R any](list *[]R, p P, w *binio.Writer, enc func(P, *binio.Writer) (R, error)) error {
	rec, err := enc(p, w)
	if err != nil {
		return err
	}
	*list = append(*list, rec)
	return nil
}

// encodeSymbol partitions the children into per-kind lists. The
// IndexInParent of every child is updated to its position.
func encodeSymbol(s *Symbol, w *binio.Writer) (rec symbolRecord, err error) {
	s.reindex(0)
	rec.playableRecord = encodePlayableBase(&s.PlayableBase)
	for i, p := range s.Playables {
		switch p := p.(type) {
		case *TimeLine:
			err = appendEncoded(&rec.TimeLines, p, w, encodeTimeLine)
		case *StaticMesh:
			err = appendEncoded(&rec.StaticMeshes, p, w, encodeStaticMesh)
		case *Camera:
			err = appendEncoded(&rec.Cameras, p, w, encodeCamera)
		case *Audio:
			err = appendEncoded(&rec.Audios, p, w, encodeAudio)
		case *UnityImport:
			err = appendEncoded(&rec.UnityImports, p, w, encodeUnityImport)
		case *Video:
			err = appendEncoded(&rec.Videos, p, w, encodeVideo)
		case *Skybox:
			err = appendEncoded(&rec.Skyboxes, p, w, encodeSkybox)
		case *Reference:
			err = appendEncoded(&rec.References, p, w, encodeReference)
		case *Light:
			err = appendEncoded(&rec.Lights, p, w, encodeLight)
		case *Puppet:
			err = appendEncoded(&rec.Puppets, p, w, encodePuppet)
		case *Symbol:
			err = appendEncoded(&rec.Symbols, p, w, encodeSymbol)
		default:
			err = fmt.Errorf("unknown playable type %T", p)
		}
		if err != nil {
			return rec, fmt.Errorf("%s %q (%d): %w", p.Kind(), p.Base().Name, i, err)
		}
	}
	return rec, nil
}

// placed is a decoded child and its position within its kind's list.
type placed struct {
	p   Playable
	pos int
}

// childDecoder collects decoded children, stopping at the first error.
type childDecoder struct {
	r        *binio.Reader
	children []placed
	err      error
}

func decodeList[R any, P Playable](d *childDecoder, recs []R, kind Kind, dec func(*R, *binio.Reader) (P, error)) {
	if d.err != nil {
		return
	}
	for i := range recs {
		p, err := dec(&recs[i], d.r)
		if err != nil {
			d.err = fmt.Errorf("%s %d: %w", kind, i, err)
			return
		}
		d.children = append(d.children, placed{p: p, pos: i})
	}
}

func decodeSymbol(rec *symbolRecord, r *binio.Reader) (*Symbol, error) {
	s := &Symbol{PlayableBase: decodePlayableBase(&rec.playableRecord)}
	d := &childDecoder{r: r}
	decodeList(d, rec.TimeLines, KindTimeLine, decodeTimeLine)
	decodeList(d, rec.StaticMeshes, KindStaticMesh, decodeStaticMesh)
	decodeList(d, rec.Cameras, KindCamera, decodeCamera)
	decodeList(d, rec.Audios, KindAudio, decodeAudio)
	decodeList(d, rec.UnityImports, KindUnityImport, decodeUnityImport)
	decodeList(d, rec.Videos, KindVideo, decodeVideo)
	decodeList(d, rec.Skyboxes, KindSkybox, decodeSkybox)
	decodeList(d, rec.References, KindReference, decodeReference)
	decodeList(d, rec.Lights, KindLight, decodeLight)
	decodeList(d, rec.Puppets, KindPuppet, decodePuppet)
	decodeList(d, rec.Symbols, KindSymbol, decodeSymbol)
	if d.err != nil {
		return nil, fmt.Errorf("symbol %q: %w", rec.Name, d.err)
	}
	s.Playables = reassemble(d.children)
	return s, nil
}

// reassemble restores the order of children grouped by kind. Each child goes
// to its IndexInParent, or to its position within its own kind's list when
// the index is -1. Children whose slot is out of range or already taken
// fill the remaining slots in order.
func reassemble(children []placed) []Playable {
	if len(children) == 0 {
		return nil
	}
	out := make([]Playable, len(children))
	var rest []Playable
	for _, c := range children {
		i := c.p.Base().IndexInParent
		if i < 0 {
			i = c.pos
		}
		if i < len(out) && out[i] == nil {
			out[i] = c.p
			continue
		}
		rest = append(rest, c.p)
	}
	j := 0
	for i := range out {
		if out[i] == nil {
			out[i] = rest[j]
			j++
		}
		out[i].Base().IndexInParent = i
	}
	return out
}
