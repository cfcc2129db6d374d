package stagefile

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"
	"github.com/stagefmt/stagefile/binio"
)

// BrushType selects the cross section of a stroke.
type BrushType uint8

const (
	BrushSphere BrushType = iota
	BrushCube
	BrushSplat
	BrushPoint
	BrushRibbon
)

func (b BrushType) String() string {
	switch b {
	case BrushSphere:
		return "Sphere"
	case BrushCube:
		return "Cube"
	case BrushSplat:
		return "Splat"
	case BrushPoint:
		return "Point"
	case BrushRibbon:
		return "Ribbon"
	default:
		return "Invalid"
	}
}

// BrushMode selects whether a stroke is painted as a surface or drawn as a
// line.
type BrushMode uint8

const (
	BrushModePaint BrushMode = iota
	BrushModeLine
)

func (b BrushMode) String() string {
	switch b {
	case BrushModePaint:
		return "Paint"
	case BrushModeLine:
		return "Line"
	default:
		return "Invalid"
	}
}

// Line format versions. Each version gates the optional arrays present in
// the encoding.
const (
	// LineVersionBase has points, rotations, widths and colors.
	LineVersionBase = 1
	// LineVersionLight adds per-sample light.
	LineVersionLight = 2
	// LineVersionCamera adds per-sample camera orientations.
	LineVersionCamera = 3

	LineVersion = LineVersionCamera
)

// DefaultLight is the light value of a sample that does not specify one.
const DefaultLight = 0.5

var ErrLineArrays = errors.New("line arrays have mismatched lengths")

// Sample is a single point of a stroke.
type Sample struct {
	Position          mgl32.Vec3
	Rotation          mgl32.Quat
	Width             float32
	Color             Color
	Light             float32
	CameraOrientation mgl32.Quat
}

// Line is a stroke: an ordered sequence of samples stored as parallel
// arrays, plus style flags.
//
// Points, Rotations, Widths, Colors and Light always have the same length.
// CameraOrientations may be shorter.
type Line struct {
	Version int

	Points             []mgl32.Vec3
	Rotations          []mgl32.Quat
	Widths             []float32
	Colors             []Color
	Light              []float32
	CameraOrientations []mgl32.Quat

	BrushType          BrushType
	BrushMode          BrushMode
	OneSided           bool
	Flat               bool
	TaperOpacity       bool
	TaperShape         bool
	ConstantWidth      bool
	MultiLine          bool
	Web                bool
	ObjectSpaceTexture bool
	TextureIndex       int

	Transform Transform
}

// NewLine returns an empty line of the current version.
func NewLine(brush BrushType) *Line {
	return &Line{
		Version:   LineVersion,
		BrushType: brush,
		Transform: Identity(),
	}
}

// Len returns the number of samples in the line.
func (l *Line) Len() int {
	return len(l.Points)
}

// Validate returns ErrLineArrays if the parallel arrays do not agree.
func (l *Line) Validate() error {
	n := len(l.Points)
	if len(l.Rotations) != n || len(l.Widths) != n || len(l.Colors) != n || len(l.Light) != n {
		return fmt.Errorf("%w: points=%d rotations=%d widths=%d colors=%d light=%d",
			ErrLineArrays, n, len(l.Rotations), len(l.Widths), len(l.Colors), len(l.Light))
	}
	if len(l.CameraOrientations) > n {
		return fmt.Errorf("%w: %d camera orientations for %d points", ErrLineArrays, len(l.CameraOrientations), n)
	}
	return nil
}

// Sample returns sample i. A missing camera orientation is the identity.
func (l *Line) Sample(i int) Sample {
	s := Sample{
		Position: l.Points[i],
		Rotation: l.Rotations[i],
		Width:    l.Widths[i],
		Color:    l.Colors[i],
		Light:    l.Light[i],
	}
	if i < len(l.CameraOrientations) {
		s.CameraOrientation = l.CameraOrientations[i]
	} else {
		s.CameraOrientation = mgl32.QuatIdent()
	}
	return s
}

// AppendPoint adds a sample to the end of the line.
func (l *Line) AppendPoint(s Sample) {
	l.InsertPoint(l.Len(), s)
}

func insert[T any](a []T, i int, v T) []T {
	var zero T
	a = append(a, zero)
	copy(a[i+1:], a[i:])
	a[i] = v
	return a
}

func remove[T any](a []T, i int) []T {
	return append(a[:i], a[i+1:]...)
}

// InsertPoint inserts a sample at index i, shifting later samples. Camera
// orientations are only inserted when the array covers every sample.
func (l *Line) InsertPoint(i int, s Sample) {
	if i < 0 || i > l.Len() {
		panic("stagefile: point index out of range")
	}
	if len(l.CameraOrientations) == l.Len() {
		l.CameraOrientations = insert(l.CameraOrientations, i, s.CameraOrientation)
	}
	l.Points = insert(l.Points, i, s.Position)
	l.Rotations = insert(l.Rotations, i, s.Rotation)
	l.Widths = insert(l.Widths, i, s.Width)
	l.Colors = insert(l.Colors, i, s.Color)
	l.Light = insert(l.Light, i, s.Light)
}

// SetPoint replaces the attributes of sample i.
func (l *Line) SetPoint(i int, s Sample) {
	l.Points[i] = s.Position
	l.Rotations[i] = s.Rotation
	l.Widths[i] = s.Width
	l.Colors[i] = s.Color
	l.Light[i] = s.Light
	if i < len(l.CameraOrientations) {
		l.CameraOrientations[i] = s.CameraOrientation
	}
}

// RemovePoint removes sample i.
func (l *Line) RemovePoint(i int) {
	if i < len(l.CameraOrientations) {
		l.CameraOrientations = remove(l.CameraOrientations, i)
	}
	l.Points = remove(l.Points, i)
	l.Rotations = remove(l.Rotations, i)
	l.Widths = remove(l.Widths, i)
	l.Colors = remove(l.Colors, i)
	l.Light = remove(l.Light, i)
}

// DeepCopy returns a copy of the line that shares no memory with l.
func (l *Line) DeepCopy() *Line {
	c := new(Line)
	if err := copier.CopyWithOption(c, l, copier.Option{DeepCopy: true}); err != nil {
		panic("stagefile: copy line: " + err.Error())
	}
	return c
}

////////////////////////////////////////////////////////////////

type lineRecord struct {
	Version int `json:"version"`

	Points             *binio.Range `json:"points,omitempty"`
	Rotations          *binio.Range `json:"rotations,omitempty"`
	Widths             *binio.Range `json:"widths,omitempty"`
	Colors             *binio.Range `json:"colors,omitempty"`
	Light              *binio.Range `json:"light,omitempty"`
	CameraOrientations *binio.Range `json:"cameraOrientations,omitempty"`

	BrushType          BrushType `json:"brushType"`
	BrushMode          BrushMode `json:"brushMode"`
	OneSided           bool      `json:"oneSided,omitempty"`
	Flat               bool      `json:"flat,omitempty"`
	TaperOpacity       bool      `json:"taperOpacity,omitempty"`
	TaperShape         bool      `json:"taperShape,omitempty"`
	ConstantWidth      bool      `json:"constantWidth,omitempty"`
	MultiLine          bool      `json:"multiLine,omitempty"`
	Web                bool      `json:"web,omitempty"`
	ObjectSpaceTexture bool      `json:"objectSpaceTexture,omitempty"`
	TextureIndex       int       `json:"textureIndex,omitempty"`

	Transform *Transform `json:"transform,omitempty"`
}

func encodeLine(l *Line, w *binio.Writer) (rec lineRecord, err error) {
	if err = l.Validate(); err != nil {
		return rec, err
	}
	rec = lineRecord{
		Version:            LineVersion,
		BrushType:          l.BrushType,
		BrushMode:          l.BrushMode,
		OneSided:           l.OneSided,
		Flat:               l.Flat,
		TaperOpacity:       l.TaperOpacity,
		TaperShape:         l.TaperShape,
		ConstantWidth:      l.ConstantWidth,
		MultiLine:          l.MultiLine,
		Web:                l.Web,
		ObjectSpaceTexture: l.ObjectSpaceTexture,
		TextureIndex:       l.TextureIndex,
		Transform:          transformPtr(l.Transform),
	}
	if rec.Points, err = binio.WriteArray(w, binio.Vec3, nonNil(l.Points)); err != nil {
		return rec, err
	}
	if rec.Rotations, err = binio.WriteArray(w, binio.Quat, nonNil(l.Rotations)); err != nil {
		return rec, err
	}
	if rec.Widths, err = binio.WriteArray(w, binio.Float32, nonNil(l.Widths)); err != nil {
		return rec, err
	}
	if rec.Colors, err = binio.WriteArray(w, ColorElement, nonNil(l.Colors)); err != nil {
		return rec, err
	}
	if rec.Light, err = binio.WriteArray(w, binio.Float32, nonNil(l.Light)); err != nil {
		return rec, err
	}
	if rec.CameraOrientations, err = binio.WriteArray(w, binio.Quat, l.CameraOrientations); err != nil {
		return rec, err
	}
	return rec, nil
}

func decodeLine(rec *lineRecord, r *binio.Reader) (l *Line, err error) {
	l = NewLine(rec.BrushType)
	l.BrushMode = rec.BrushMode
	l.OneSided = rec.OneSided
	l.Flat = rec.Flat
	l.TaperOpacity = rec.TaperOpacity
	l.TaperShape = rec.TaperShape
	l.ConstantWidth = rec.ConstantWidth
	l.MultiLine = rec.MultiLine
	l.Web = rec.Web
	l.ObjectSpaceTexture = rec.ObjectSpaceTexture
	l.TextureIndex = rec.TextureIndex
	l.Transform = orIdentity(rec.Transform)

	if l.Points, err = binio.ReadArray(r, binio.Vec3, rec.Points); err != nil {
		return nil, fmt.Errorf("points: %w", err)
	}
	if l.Rotations, err = binio.ReadArray(r, binio.Quat, rec.Rotations); err != nil {
		return nil, fmt.Errorf("rotations: %w", err)
	}
	if l.Widths, err = binio.ReadArray(r, binio.Float32, rec.Widths); err != nil {
		return nil, fmt.Errorf("widths: %w", err)
	}
	if l.Colors, err = binio.ReadArray(r, ColorElement, rec.Colors); err != nil {
		return nil, fmt.Errorf("colors: %w", err)
	}
	if rec.Version >= LineVersionLight {
		if l.Light, err = binio.ReadArray(r, binio.Float32, rec.Light); err != nil {
			return nil, fmt.Errorf("light: %w", err)
		}
	}
	if rec.Version >= LineVersionCamera {
		if l.CameraOrientations, err = binio.ReadArray(r, binio.Quat, rec.CameraOrientations); err != nil {
			return nil, fmt.Errorf("camera orientations: %w", err)
		}
	}
	if err = l.Upgrade(); err != nil {
		return nil, err
	}
	return l, nil
}

// Upgrade fills arrays absent from older versions and brings the line to
// the current version. Camera orientations beyond the last point are
// dropped.
func (l *Line) Upgrade() error {
	n := len(l.Points)
	if l.Light == nil {
		l.Light = make([]float32, n)
		for i := range l.Light {
			l.Light[i] = DefaultLight
		}
	}
	if len(l.CameraOrientations) > n {
		l.CameraOrientations = l.CameraOrientations[:n]
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("%w: %w", binio.ErrCorruptContainer, err)
	}
	l.Version = LineVersion
	return nil
}

// nonNil returns an empty slice in place of nil so that required arrays are
// always present in the encoding.
func nonNil[T any](a []T) []T {
	if a == nil {
		return []T{}
	}
	return a
}
