package legacy

import (
	"fmt"
	"sort"

	"github.com/anaminus/parse"
	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/audiocodec"
	"github.com/stagefmt/stagefile/binio"
)

// The graph is written depth-first with every array inline. parse readers
// and writers are sticky: after the first failure every call is a no-op, so
// fields are written in sequence and the error is collected by End.

type graphWriter struct{ fw *parse.BinaryWriter }

func (w graphWriter) int(v int)       { w.fw.Number(int32(v)) }
func (w graphWriter) u8(v uint8)      { w.fw.Number(v) }
func (w graphWriter) f32(v float32)   { w.fw.Number(v) }
func (w graphWriter) bool(v bool)     { binio.PutBool(w.fw, v) }
func (w graphWriter) string(s string) { binio.PutString(w.fw, s) }
func (w graphWriter) bytes(b []byte)  { binio.PutBytes(w.fw, b) }

func (w graphWriter) color(c stagefile.Color) {
	stagefile.ColorElement.Put(w.fw, c)
}

func (w graphWriter) transform(t stagefile.Transform) {
	stagefile.TransformElement.Put(w.fw, t)
}

type graphReader struct{ fr *parse.BinaryReader }

func (r graphReader) failed() bool { return r.fr.Err() != nil }

func (r graphReader) int() int {
	var v int32
	r.fr.Number(&v)
	return int(v)
}

func (r graphReader) u8() uint8 {
	var v uint8
	r.fr.Number(&v)
	return v
}

func (r graphReader) f32() float32 {
	var v float32
	r.fr.Number(&v)
	return v
}

func (r graphReader) bool() (v bool) {
	binio.GetBool(r.fr, &v)
	return v
}

func (r graphReader) string() (s string) {
	binio.GetString(r.fr, &s)
	return s
}

func (r graphReader) bytes() (b []byte) {
	binio.GetBytes(r.fr, &b)
	return b
}

func (r graphReader) color() (c stagefile.Color) {
	stagefile.ColorElement.Get(r.fr, &c)
	return c
}

func (r graphReader) transform() (t stagefile.Transform) {
	stagefile.TransformElement.Get(r.fr, &t)
	return t
}

// count reads a list length, failing on values that cannot be valid.
func (r graphReader) count() int {
	n := r.int()
	if n < 0 || n > maxGraphCount {
		r.fr.Add(0, fmt.Errorf("%w: %d", errCountTooLarge, n))
		return 0
	}
	return n
}

func readArray[T any](r graphReader, e binio.Element[T]) (a []T) {
	binio.GetArray(r.fr, e, &a)
	return a
}

////////////////////////////////////////////////////////////////

func writeStage(fw *parse.BinaryWriter, s *stagefile.Stage) {
	w := graphWriter{fw}
	w.string(s.Name)
	w.transform(s.Transform)
	w.color(s.BackgroundColor)
	w.f32(s.Fps)
	w.int(s.TimelineLength)
	w.int(s.WindowStart)
	w.int(s.WindowEnd)
	w.int(s.LoopStart)
	w.int(s.LoopEnd)
	w.int(s.SaveDataVersion)
	w.string(s.ActivePlayablePath)

	w.string(s.Workspace.Environment)
	w.bool(s.Workspace.FloorVisible)
	w.bool(s.Workspace.GridVisible)
	w.f32(s.Workspace.GridSize)
	w.color(s.Workspace.Ambient)

	w.int(len(s.LUTs))
	for _, lut := range s.LUTs {
		w.bytes(lut)
	}

	writeAudioPool(w, s.AudioPool)

	w.int(len(s.Symbols))
	for _, sym := range s.Symbols {
		writePlayable(w, sym)
	}
}

func readStage(fr *parse.BinaryReader, s *stagefile.Stage) {
	r := graphReader{fr}
	*s = *stagefile.NewStage(r.string())
	s.Transform = r.transform()
	s.BackgroundColor = r.color()
	s.Fps = r.f32()
	s.TimelineLength = r.int()
	s.WindowStart = r.int()
	s.WindowEnd = r.int()
	s.LoopStart = r.int()
	s.LoopEnd = r.int()
	s.SaveDataVersion = r.int()
	s.ActivePlayablePath = r.string()

	s.Workspace.Environment = r.string()
	s.Workspace.FloorVisible = r.bool()
	s.Workspace.GridVisible = r.bool()
	s.Workspace.GridSize = r.f32()
	s.Workspace.Ambient = r.color()

	n := r.count()
	for i := 0; i < n && !r.failed(); i++ {
		s.LUTs = append(s.LUTs, r.bytes())
	}

	readAudioPool(r, s.AudioPool)

	n = r.count()
	for i := 0; i < n && !r.failed(); i++ {
		p := readPlayable(r)
		if p == nil {
			return
		}
		sym, ok := p.(*stagefile.Symbol)
		if !ok {
			r.fr.Add(0, fmt.Errorf("root playable %d is a %s, not a Symbol", i, p.Kind()))
			return
		}
		s.AddSymbol(sym)
	}
}

func writeAudioPool(w graphWriter, p *stagefile.AudioPool) {
	if p == nil {
		w.int(0)
		return
	}
	keys := p.Keys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	w.int(len(keys))
	for _, k := range keys {
		e, _ := p.Entry(k)
		w.int(e.Channels)
		w.int(e.Frequency)
		w.u8(uint8(e.StorageType))
		w.bytes(e.Data)
	}
}

func readAudioPool(r graphReader, p *stagefile.AudioPool) {
	n := r.count()
	for i := 0; i < n && !r.failed(); i++ {
		e := stagefile.AudioEntry{
			Channels:    r.int(),
			Frequency:   r.int(),
			StorageType: audiocodec.StorageType(r.u8()),
			Data:        r.bytes(),
		}
		if !r.failed() {
			p.Insert(e)
		}
	}
}

////////////////////////////////////////////////////////////////

func writeBase(w graphWriter, b *stagefile.PlayableBase) {
	w.string(b.Name)
	w.bool(b.Visible)
	w.f32(b.Opacity)
	w.int(b.IndexInParent)
	w.u8(uint8(b.LoopType))
	w.bool(b.IndependentLoops)
	w.u8(uint8(b.LoopIn))
	w.u8(uint8(b.LoopOut))
	w.u8(uint8(b.TrimLoopType))
	w.f32(b.FadeIn)
	w.f32(b.FadeOut)
	w.int(b.TrimIn)
	w.int(b.TrimOut)
	w.int(b.AbsoluteTimeOffset)
	w.string(b.Attribution.Creator)
	w.string(b.Attribution.Title)
	w.string(b.Attribution.Source)
	w.string(b.Attribution.License)
	w.transform(b.Transform)
	w.int(b.SaveVersion)
}

func readBase(r graphReader, b *stagefile.PlayableBase) {
	b.Name = r.string()
	b.Visible = r.bool()
	b.Opacity = r.f32()
	b.IndexInParent = r.int()
	b.LoopType = stagefile.LoopType(r.u8())
	b.IndependentLoops = r.bool()
	b.LoopIn = stagefile.LoopType(r.u8())
	b.LoopOut = stagefile.LoopType(r.u8())
	b.TrimLoopType = stagefile.TrimLoopType(r.u8())
	b.FadeIn = r.f32()
	b.FadeOut = r.f32()
	b.TrimIn = r.int()
	b.TrimOut = r.int()
	b.AbsoluteTimeOffset = r.int()
	b.Attribution.Creator = r.string()
	b.Attribution.Title = r.string()
	b.Attribution.Source = r.string()
	b.Attribution.License = r.string()
	b.Transform = r.transform()
	b.SaveVersion = r.int()
	if !r.failed() {
		b.Migrate()
	}
}

func writePlayable(w graphWriter, p stagefile.Playable) {
	w.u8(uint8(p.Kind()))
	writeBase(w, p.Base())
	switch p := p.(type) {
	case *stagefile.TimeLine:
		writeFrames(w, p.Frames)
	case *stagefile.StaticMesh:
		w.int(len(p.Meshes))
		for _, m := range p.Meshes {
			writeMesh(w, m)
		}
		w.int(len(p.Materials))
		for _, m := range p.Materials {
			writeMaterial(w, m)
		}
	case *stagefile.Camera:
		w.f32(p.FieldOfView)
		w.f32(p.NearClip)
		w.f32(p.FarClip)
		binio.PutArray(w.fw, stagefile.TransformElement, p.Keyframes)
	case *stagefile.Audio:
		w.fw.Bytes(p.Key.Hash[:])
		w.int(p.Key.Length)
		w.f32(p.Volume)
		w.bool(p.Spatialize)
		w.f32(p.Seconds)
	case *stagefile.UnityImport:
		w.string(p.AssetPath)
		w.bytes(p.Package)
	case *stagefile.Video:
		w.string(p.Path)
		w.f32(p.Seconds)
		w.f32(p.Volume)
	case *stagefile.Skybox:
		w.bytes(p.Texture)
		w.color(p.Tint)
		w.f32(p.Exposure)
	case *stagefile.Reference:
		w.string(p.Target)
	case *stagefile.Light:
		w.u8(uint8(p.LightType))
		w.color(p.Color)
		w.f32(p.Intensity)
		w.f32(p.Range)
		w.f32(p.SpotAngle)
		w.bool(p.Shadows)
	case *stagefile.Puppet:
		writeFrames(w, p.Frames)
		binio.PutArray(w.fw, binio.Vec3, p.Handles)
		binio.PutArray(w.fw, binio.Quat, p.HandleRotations)
	case *stagefile.Symbol:
		w.int(len(p.Playables))
		for _, c := range p.Playables {
			writePlayable(w, c)
		}
	default:
		w.fw.Add(0, fmt.Errorf("%w: %T", errUnknownKind, p))
	}
}

// readPlayable returns nil if reading failed.
func readPlayable(r graphReader) stagefile.Playable {
	kind := stagefile.Kind(r.u8())
	var base stagefile.PlayableBase
	readBase(r, &base)
	if r.failed() {
		return nil
	}

	var p stagefile.Playable
	switch kind {
	case stagefile.KindTimeLine:
		p = &stagefile.TimeLine{PlayableBase: base, Frames: readFrames(r)}
	case stagefile.KindStaticMesh:
		m := &stagefile.StaticMesh{PlayableBase: base}
		n := r.count()
		for i := 0; i < n && !r.failed(); i++ {
			m.Meshes = append(m.Meshes, readMesh(r))
		}
		n = r.count()
		for i := 0; i < n && !r.failed(); i++ {
			m.Materials = append(m.Materials, readMaterial(r))
		}
		p = m
	case stagefile.KindCamera:
		p = &stagefile.Camera{
			PlayableBase: base,
			FieldOfView:  r.f32(),
			NearClip:     r.f32(),
			FarClip:      r.f32(),
			Keyframes:    readArray(r, stagefile.TransformElement),
		}
	case stagefile.KindAudio:
		a := &stagefile.Audio{PlayableBase: base}
		r.fr.Bytes(a.Key.Hash[:])
		a.Key.Length = r.int()
		a.Volume = r.f32()
		a.Spatialize = r.bool()
		a.Seconds = r.f32()
		p = a
	case stagefile.KindUnityImport:
		p = &stagefile.UnityImport{PlayableBase: base, AssetPath: r.string(), Package: r.bytes()}
	case stagefile.KindVideo:
		p = &stagefile.Video{PlayableBase: base, Path: r.string(), Seconds: r.f32(), Volume: r.f32()}
	case stagefile.KindSkybox:
		p = &stagefile.Skybox{PlayableBase: base, Texture: r.bytes(), Tint: r.color(), Exposure: r.f32()}
	case stagefile.KindReference:
		p = &stagefile.Reference{PlayableBase: base, Target: r.string()}
	case stagefile.KindLight:
		p = &stagefile.Light{
			PlayableBase: base,
			LightType:    stagefile.LightType(r.u8()),
			Color:        r.color(),
			Intensity:    r.f32(),
			Range:        r.f32(),
			SpotAngle:    r.f32(),
			Shadows:      r.bool(),
		}
	case stagefile.KindPuppet:
		p = &stagefile.Puppet{
			PlayableBase:    base,
			Frames:          readFrames(r),
			Handles:         readArray(r, binio.Vec3),
			HandleRotations: readArray(r, binio.Quat),
		}
	case stagefile.KindSymbol:
		sym := &stagefile.Symbol{PlayableBase: base}
		n := r.count()
		for i := 0; i < n && !r.failed(); i++ {
			c := readPlayable(r)
			if c == nil {
				return nil
			}
			sym.Add(c)
		}
		p = sym
	default:
		r.fr.Add(0, fmt.Errorf("%w: %d", errUnknownKind, kind))
		return nil
	}
	if r.failed() {
		return nil
	}
	return p
}

////////////////////////////////////////////////////////////////

func writeFrames(w graphWriter, frames []*stagefile.Frame) {
	w.int(len(frames))
	for _, f := range frames {
		w.string(f.Name)
		w.transform(f.Transform)
		w.u8(uint8(f.FadeIn))
		w.u8(uint8(f.FadeOut))
		w.bool(f.IsInstance)
		w.int(f.InstanceOf)
		w.int(len(f.Lines))
		for _, l := range f.Lines {
			writeLine(w, l)
		}
	}
}

func readFrames(r graphReader) []*stagefile.Frame {
	n := r.count()
	frames := make([]*stagefile.Frame, 0, min(n, 1024))
	for i := 0; i < n && !r.failed(); i++ {
		f := stagefile.NewFrame(r.string())
		f.Transform = r.transform()
		f.FadeIn = stagefile.FadeMode(r.u8())
		f.FadeOut = stagefile.FadeMode(r.u8())
		f.IsInstance = r.bool()
		f.InstanceOf = r.int()
		m := r.count()
		for j := 0; j < m && !r.failed(); j++ {
			if l := readLine(r); l != nil {
				f.AddLine(l)
			}
		}
		frames = append(frames, f)
	}
	return frames
}

func writeLine(w graphWriter, l *stagefile.Line) {
	if err := l.Validate(); err != nil {
		w.fw.Add(0, err)
		return
	}
	w.int(stagefile.LineVersion)
	binio.PutArray(w.fw, binio.Vec3, l.Points)
	binio.PutArray(w.fw, binio.Quat, l.Rotations)
	binio.PutArray(w.fw, binio.Float32, l.Widths)
	binio.PutArray(w.fw, stagefile.ColorElement, l.Colors)
	binio.PutArray(w.fw, binio.Float32, l.Light)
	w.bool(l.CameraOrientations != nil)
	if l.CameraOrientations != nil {
		binio.PutArray(w.fw, binio.Quat, l.CameraOrientations)
	}
	w.u8(uint8(l.BrushType))
	w.u8(uint8(l.BrushMode))
	w.bool(l.OneSided)
	w.bool(l.Flat)
	w.bool(l.TaperOpacity)
	w.bool(l.TaperShape)
	w.bool(l.ConstantWidth)
	w.bool(l.MultiLine)
	w.bool(l.Web)
	w.bool(l.ObjectSpaceTexture)
	w.int(l.TextureIndex)
	w.transform(l.Transform)
}

// readLine returns nil if reading failed.
func readLine(r graphReader) *stagefile.Line {
	l := stagefile.NewLine(stagefile.BrushSphere)
	version := r.int()
	l.Points = readArray(r, binio.Vec3)
	l.Rotations = readArray(r, binio.Quat)
	l.Widths = readArray(r, binio.Float32)
	l.Colors = readArray(r, stagefile.ColorElement)
	if version >= stagefile.LineVersionLight {
		l.Light = readArray(r, binio.Float32)
	}
	if version >= stagefile.LineVersionCamera && r.bool() {
		l.CameraOrientations = readArray(r, binio.Quat)
	}
	l.BrushType = stagefile.BrushType(r.u8())
	l.BrushMode = stagefile.BrushMode(r.u8())
	l.OneSided = r.bool()
	l.Flat = r.bool()
	l.TaperOpacity = r.bool()
	l.TaperShape = r.bool()
	l.ConstantWidth = r.bool()
	l.MultiLine = r.bool()
	l.Web = r.bool()
	l.ObjectSpaceTexture = r.bool()
	l.TextureIndex = r.int()
	l.Transform = r.transform()
	if r.failed() {
		return nil
	}
	if err := l.Upgrade(); err != nil {
		r.fr.Add(0, err)
		return nil
	}
	return l
}

func writeMesh(w graphWriter, m *stagefile.MeshData) {
	w.string(m.Name)
	binio.PutArray(w.fw, binio.Vec3, m.Vertices)
	binio.PutArray(w.fw, binio.Vec3, m.Normals)
	binio.PutArray(w.fw, binio.Vec2, m.UVs)
	binio.PutArray(w.fw, stagefile.ColorElement, m.Colors)
	binio.PutArray(w.fw, binio.Int32, m.Triangles)
	w.int(m.MaterialIndex)
}

func readMesh(r graphReader) *stagefile.MeshData {
	return &stagefile.MeshData{
		Name:          r.string(),
		Vertices:      readArray(r, binio.Vec3),
		Normals:       readArray(r, binio.Vec3),
		UVs:           readArray(r, binio.Vec2),
		Colors:        readArray(r, stagefile.ColorElement),
		Triangles:     readArray(r, binio.Int32),
		MaterialIndex: r.int(),
	}
}

func writeMaterial(w graphWriter, m *stagefile.MaterialData) {
	w.string(m.Name)
	w.color(m.Diffuse)
	w.color(m.Specular)
	w.color(m.Emissive)
	w.bytes(m.Texture)
	w.u8(uint8(m.ShaderType))
	w.u8(uint8(m.ColorSpace))
}

func readMaterial(r graphReader) *stagefile.MaterialData {
	return &stagefile.MaterialData{
		Name:       r.string(),
		Diffuse:    r.color(),
		Specular:   r.color(),
		Emissive:   r.color(),
		Texture:    r.bytes(),
		ShaderType: stagefile.ShaderType(r.u8()),
		ColorSpace: stagefile.ColorSpace(r.u8()),
	}
}
