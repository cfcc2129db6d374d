package stagefile

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stagefmt/stagefile/binio"
)

// TimeLine is a frame-by-frame animation.
type TimeLine struct {
	PlayableBase
	Frames []*Frame
}

func NewTimeLine(name string) *TimeLine {
	return &TimeLine{PlayableBase: newPlayableBase(name)}
}

func (p *TimeLine) Kind() Kind                     { return KindTimeLine }
func (p *TimeLine) FrameCount(fps float32) int     { return len(p.Frames) }
func (p *TimeLine) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *TimeLine) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

// AddFrame appends a frame and returns it.
func (p *TimeLine) AddFrame(f *Frame) *Frame {
	p.Frames = append(p.Frames, f)
	return f
}

func (p *TimeLine) DeepCopy() Playable {
	c := *p
	c.Frames = copyFrames(p.Frames)
	return &c
}

func copyFrames(frames []*Frame) []*Frame {
	if frames == nil {
		return nil
	}
	c := make([]*Frame, len(frames))
	for i, f := range frames {
		c[i] = f.DeepCopy()
	}
	return c
}

type timeLineRecord struct {
	playableRecord
	Frames []frameRecord `json:"frames"`
}

func encodeFrames(frames []*Frame, w *binio.Writer) (recs []frameRecord, err error) {
	recs = make([]frameRecord, len(frames))
	for i, f := range frames {
		if recs[i], err = encodeFrame(f, w); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return recs, nil
}

func decodeFrames(recs []frameRecord, r *binio.Reader) (frames []*Frame, err error) {
	frames = make([]*Frame, len(recs))
	for i := range recs {
		if frames[i], err = decodeFrame(&recs[i], r); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return frames, nil
}

func encodeTimeLine(p *TimeLine, w *binio.Writer) (rec timeLineRecord, err error) {
	rec.playableRecord = encodePlayableBase(&p.PlayableBase)
	rec.Frames, err = encodeFrames(p.Frames, w)
	return rec, err
}

func decodeTimeLine(rec *timeLineRecord, r *binio.Reader) (p *TimeLine, err error) {
	p = &TimeLine{PlayableBase: decodePlayableBase(&rec.playableRecord)}
	if p.Frames, err = decodeFrames(rec.Frames, r); err != nil {
		return nil, err
	}
	return p, nil
}

////////////////////////////////////////////////////////////////

// StaticMesh displays imported geometry.
type StaticMesh struct {
	PlayableBase
	Meshes    []*MeshData
	Materials []*MaterialData
}

func NewStaticMesh(name string) *StaticMesh {
	return &StaticMesh{PlayableBase: newPlayableBase(name)}
}

func (p *StaticMesh) Kind() Kind                     { return KindStaticMesh }
func (p *StaticMesh) FrameCount(fps float32) int     { return 1 }
func (p *StaticMesh) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *StaticMesh) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

func (p *StaticMesh) DeepCopy() Playable {
	c := *p
	c.Meshes = make([]*MeshData, len(p.Meshes))
	for i, m := range p.Meshes {
		c.Meshes[i] = m.DeepCopy()
	}
	c.Materials = make([]*MaterialData, len(p.Materials))
	for i, m := range p.Materials {
		c.Materials[i] = m.DeepCopy()
	}
	return &c
}

type staticMeshRecord struct {
	playableRecord
	Meshes    []meshRecord     `json:"meshes"`
	Materials []materialRecord `json:"materials"`
}

func encodeStaticMesh(p *StaticMesh, w *binio.Writer) (rec staticMeshRecord, err error) {
	rec.playableRecord = encodePlayableBase(&p.PlayableBase)
	rec.Meshes = make([]meshRecord, len(p.Meshes))
	for i, m := range p.Meshes {
		if rec.Meshes[i], err = encodeMesh(m, w); err != nil {
			return rec, fmt.Errorf("mesh %d: %w", i, err)
		}
	}
	rec.Materials = make([]materialRecord, len(p.Materials))
	for i, m := range p.Materials {
		if rec.Materials[i], err = encodeMaterial(m, w); err != nil {
			return rec, fmt.Errorf("material %d: %w", i, err)
		}
	}
	return rec, nil
}

func decodeStaticMesh(rec *staticMeshRecord, r *binio.Reader) (p *StaticMesh, err error) {
	p = &StaticMesh{PlayableBase: decodePlayableBase(&rec.playableRecord)}
	p.Meshes = make([]*MeshData, len(rec.Meshes))
	for i := range rec.Meshes {
		if p.Meshes[i], err = decodeMesh(&rec.Meshes[i], r); err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
	}
	p.Materials = make([]*MaterialData, len(rec.Materials))
	for i := range rec.Materials {
		if p.Materials[i], err = decodeMaterial(&rec.Materials[i], r); err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
	}
	return p, nil
}

////////////////////////////////////////////////////////////////

// Camera is an animated viewpoint. Each keyframe is one frame.
type Camera struct {
	PlayableBase
	FieldOfView float32
	NearClip    float32
	FarClip     float32
	Keyframes   []Transform
}

func NewCamera(name string) *Camera {
	return &Camera{
		PlayableBase: newPlayableBase(name),
		FieldOfView:  60,
		NearClip:     0.01,
		FarClip:      1000,
	}
}

func (p *Camera) Kind() Kind                     { return KindCamera }
func (p *Camera) FrameCount(fps float32) int     { return max(len(p.Keyframes), 1) }
func (p *Camera) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *Camera) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

func (p *Camera) DeepCopy() Playable {
	c := *p
	if p.Keyframes != nil {
		c.Keyframes = append([]Transform(nil), p.Keyframes...)
	}
	return &c
}

type cameraRecord struct {
	playableRecord
	FieldOfView float32      `json:"fieldOfView"`
	NearClip    float32      `json:"nearClip"`
	FarClip     float32      `json:"farClip"`
	Keyframes   *binio.Range `json:"keyframes,omitempty"`
}

func encodeCamera(p *Camera, w *binio.Writer) (rec cameraRecord, err error) {
	rec = cameraRecord{
		playableRecord: encodePlayableBase(&p.PlayableBase),
		FieldOfView:    p.FieldOfView,
		NearClip:       p.NearClip,
		FarClip:        p.FarClip,
	}
	rec.Keyframes, err = binio.WriteArray(w, TransformElement, p.Keyframes)
	return rec, err
}

func decodeCamera(rec *cameraRecord, r *binio.Reader) (p *Camera, err error) {
	p = &Camera{
		PlayableBase: decodePlayableBase(&rec.playableRecord),
		FieldOfView:  rec.FieldOfView,
		NearClip:     rec.NearClip,
		FarClip:      rec.FarClip,
	}
	if p.Keyframes, err = binio.ReadArray(r, TransformElement, rec.Keyframes); err != nil {
		return nil, fmt.Errorf("keyframes: %w", err)
	}
	return p, nil
}

////////////////////////////////////////////////////////////////

// Audio plays a clip stored in the stage's AudioPool.
type Audio struct {
	PlayableBase
	Key        AudioKey
	Volume     float32
	Spatialize bool

	// Seconds is the duration of the clip.
	Seconds float32
}

func NewAudio(name string, key AudioKey, seconds float32) *Audio {
	return &Audio{
		PlayableBase: newPlayableBase(name),
		Key:          key,
		Volume:       1,
		Seconds:      seconds,
	}
}

func (p *Audio) Kind() Kind                     { return KindAudio }
func (p *Audio) FrameCount(fps float32) int     { return framesFor(p.Seconds, fps) }
func (p *Audio) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *Audio) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

func (p *Audio) DeepCopy() Playable {
	c := *p
	return &c
}

type audioRecord struct {
	playableRecord
	Hash       string  `json:"audioHash,omitempty"`
	Length     int     `json:"audioLength,omitempty"`
	Volume     float32 `json:"volume"`
	Spatialize bool    `json:"spatialize,omitempty"`
	Seconds    float32 `json:"seconds"`
}

func encodeAudio(p *Audio, w *binio.Writer) (rec audioRecord, err error) {
	rec = audioRecord{
		playableRecord: encodePlayableBase(&p.PlayableBase),
		Volume:         p.Volume,
		Spatialize:     p.Spatialize,
		Seconds:        p.Seconds,
	}
	if !p.Key.IsZero() {
		rec.Hash, rec.Length = encodeAudioKey(p.Key)
	}
	return rec, nil
}

func decodeAudio(rec *audioRecord, r *binio.Reader) (p *Audio, err error) {
	p = &Audio{
		PlayableBase: decodePlayableBase(&rec.playableRecord),
		Volume:       rec.Volume,
		Spatialize:   rec.Spatialize,
		Seconds:      rec.Seconds,
	}
	if p.Key, err = decodeAudioKey(rec.Hash, rec.Length); err != nil {
		return nil, err
	}
	return p, nil
}

////////////////////////////////////////////////////////////////

// UnityImport carries an engine asset package that is passed through
// unchanged.
type UnityImport struct {
	PlayableBase
	AssetPath string
	Package   []byte
}

func NewUnityImport(name string) *UnityImport {
	return &UnityImport{PlayableBase: newPlayableBase(name)}
}

func (p *UnityImport) Kind() Kind                     { return KindUnityImport }
func (p *UnityImport) FrameCount(fps float32) int     { return 1 }
func (p *UnityImport) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *UnityImport) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

func (p *UnityImport) DeepCopy() Playable {
	c := *p
	c.Package = cloneBytes(p.Package)
	return &c
}

type unityImportRecord struct {
	playableRecord
	AssetPath string       `json:"assetPath"`
	Package   *binio.Range `json:"package,omitempty"`
}

func encodeUnityImport(p *UnityImport, w *binio.Writer) (rec unityImportRecord, err error) {
	rec = unityImportRecord{
		playableRecord: encodePlayableBase(&p.PlayableBase),
		AssetPath:      p.AssetPath,
	}
	rec.Package, err = w.WriteBytes(p.Package)
	return rec, err
}

func decodeUnityImport(rec *unityImportRecord, r *binio.Reader) (p *UnityImport, err error) {
	p = &UnityImport{
		PlayableBase: decodePlayableBase(&rec.playableRecord),
		AssetPath:    rec.AssetPath,
	}
	if p.Package, err = r.ReadBytes(rec.Package); err != nil {
		return nil, fmt.Errorf("package: %w", err)
	}
	return p, nil
}

////////////////////////////////////////////////////////////////

// Video plays an external video file.
type Video struct {
	PlayableBase
	Path    string
	Seconds float32
	Volume  float32
}

func NewVideo(name, path string, seconds float32) *Video {
	return &Video{PlayableBase: newPlayableBase(name), Path: path, Seconds: seconds, Volume: 1}
}

func (p *Video) Kind() Kind                     { return KindVideo }
func (p *Video) FrameCount(fps float32) int     { return framesFor(p.Seconds, fps) }
func (p *Video) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *Video) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

func (p *Video) DeepCopy() Playable {
	c := *p
	return &c
}

type videoRecord struct {
	playableRecord
	Path    string  `json:"path"`
	Seconds float32 `json:"seconds"`
	Volume  float32 `json:"volume"`
}

func encodeVideo(p *Video, w *binio.Writer) (videoRecord, error) {
	return videoRecord{
		playableRecord: encodePlayableBase(&p.PlayableBase),
		Path:           p.Path,
		Seconds:        p.Seconds,
		Volume:         p.Volume,
	}, nil
}

func decodeVideo(rec *videoRecord, r *binio.Reader) (*Video, error) {
	return &Video{
		PlayableBase: decodePlayableBase(&rec.playableRecord),
		Path:         rec.Path,
		Seconds:      rec.Seconds,
		Volume:       rec.Volume,
	}, nil
}

////////////////////////////////////////////////////////////////

// Skybox surrounds the scene with a texture.
type Skybox struct {
	PlayableBase
	Texture  []byte
	Tint     Color
	Exposure float32
}

func NewSkybox(name string) *Skybox {
	return &Skybox{PlayableBase: newPlayableBase(name), Tint: White, Exposure: 1}
}

func (p *Skybox) Kind() Kind                     { return KindSkybox }
func (p *Skybox) FrameCount(fps float32) int     { return 1 }
func (p *Skybox) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *Skybox) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

func (p *Skybox) DeepCopy() Playable {
	c := *p
	c.Texture = cloneBytes(p.Texture)
	return &c
}

type skyboxRecord struct {
	playableRecord
	Texture  *binio.Range `json:"texture,omitempty"`
	Tint     Color        `json:"tint"`
	Exposure float32      `json:"exposure"`
}

func encodeSkybox(p *Skybox, w *binio.Writer) (rec skyboxRecord, err error) {
	rec = skyboxRecord{
		playableRecord: encodePlayableBase(&p.PlayableBase),
		Tint:           p.Tint,
		Exposure:       p.Exposure,
	}
	rec.Texture, err = w.WriteBytes(p.Texture)
	return rec, err
}

func decodeSkybox(rec *skyboxRecord, r *binio.Reader) (p *Skybox, err error) {
	p = &Skybox{
		PlayableBase: decodePlayableBase(&rec.playableRecord),
		Tint:         rec.Tint,
		Exposure:     rec.Exposure,
	}
	if p.Texture, err = r.ReadBytes(rec.Texture); err != nil {
		return nil, fmt.Errorf("texture: %w", err)
	}
	return p, nil
}

////////////////////////////////////////////////////////////////

// Reference replays another playable of the stage, located by its
// slash-delimited name path.
type Reference struct {
	PlayableBase
	Target string
}

func NewReference(name, target string) *Reference {
	return &Reference{PlayableBase: newPlayableBase(name), Target: target}
}

func (p *Reference) Kind() Kind                     { return KindReference }
func (p *Reference) FrameCount(fps float32) int     { return 1 }
func (p *Reference) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *Reference) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

func (p *Reference) DeepCopy() Playable {
	c := *p
	return &c
}

type referenceRecord struct {
	playableRecord
	Target string `json:"target"`
}

func encodeReference(p *Reference, w *binio.Writer) (referenceRecord, error) {
	return referenceRecord{
		playableRecord: encodePlayableBase(&p.PlayableBase),
		Target:         p.Target,
	}, nil
}

func decodeReference(rec *referenceRecord, r *binio.Reader) (*Reference, error) {
	return &Reference{
		PlayableBase: decodePlayableBase(&rec.playableRecord),
		Target:       rec.Target,
	}, nil
}

////////////////////////////////////////////////////////////////

// LightType selects the shape of a Light.
type LightType uint8

const (
	LightPoint LightType = iota
	LightSpot
	LightDirectional
)

// Light illuminates lit materials.
type Light struct {
	PlayableBase
	LightType LightType
	Color     Color
	Intensity float32
	Range     float32
	SpotAngle float32
	Shadows   bool
}

func NewLight(name string, t LightType) *Light {
	return &Light{
		PlayableBase: newPlayableBase(name),
		LightType:    t,
		Color:        White,
		Intensity:    1,
		Range:        10,
		SpotAngle:    30,
	}
}

func (p *Light) Kind() Kind                     { return KindLight }
func (p *Light) FrameCount(fps float32) int     { return 1 }
func (p *Light) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *Light) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

func (p *Light) DeepCopy() Playable {
	c := *p
	return &c
}

type lightRecord struct {
	playableRecord
	LightType LightType `json:"lightType"`
	Color     Color     `json:"color"`
	Intensity float32   `json:"intensity"`
	Range     float32   `json:"range"`
	SpotAngle float32   `json:"spotAngle"`
	Shadows   bool      `json:"shadows,omitempty"`
}

func encodeLight(p *Light, w *binio.Writer) (lightRecord, error) {
	return lightRecord{
		playableRecord: encodePlayableBase(&p.PlayableBase),
		LightType:      p.LightType,
		Color:          p.Color,
		Intensity:      p.Intensity,
		Range:          p.Range,
		SpotAngle:      p.SpotAngle,
		Shadows:        p.Shadows,
	}, nil
}

func decodeLight(rec *lightRecord, r *binio.Reader) (*Light, error) {
	return &Light{
		PlayableBase: decodePlayableBase(&rec.playableRecord),
		LightType:    rec.LightType,
		Color:        rec.Color,
		Intensity:    rec.Intensity,
		Range:        rec.Range,
		SpotAngle:    rec.SpotAngle,
		Shadows:      rec.Shadows,
	}, nil
}

////////////////////////////////////////////////////////////////

// Puppet is a drawing deformed by handles. Frames holds the drawing;
// Handles and HandleRotations hold the rest pose of each handle.
type Puppet struct {
	PlayableBase
	Frames          []*Frame
	Handles         []mgl32.Vec3
	HandleRotations []mgl32.Quat
}

func NewPuppet(name string) *Puppet {
	return &Puppet{PlayableBase: newPlayableBase(name)}
}

func (p *Puppet) Kind() Kind                     { return KindPuppet }
func (p *Puppet) FrameCount(fps float32) int     { return max(len(p.Frames), 1) }
func (p *Puppet) LocalTrimStart(fps float32) int { return p.trimStart(p.FrameCount(fps)) }
func (p *Puppet) LocalTrimEnd(fps float32) int   { return p.trimEnd(p.FrameCount(fps)) }

func (p *Puppet) DeepCopy() Playable {
	c := *p
	c.Frames = copyFrames(p.Frames)
	if p.Handles != nil {
		c.Handles = append([]mgl32.Vec3(nil), p.Handles...)
	}
	if p.HandleRotations != nil {
		c.HandleRotations = append([]mgl32.Quat(nil), p.HandleRotations...)
	}
	return &c
}

type puppetRecord struct {
	playableRecord
	Frames          []frameRecord `json:"frames"`
	Handles         *binio.Range  `json:"handles,omitempty"`
	HandleRotations *binio.Range  `json:"handleRotations,omitempty"`
}

func encodePuppet(p *Puppet, w *binio.Writer) (rec puppetRecord, err error) {
	rec.playableRecord = encodePlayableBase(&p.PlayableBase)
	if rec.Frames, err = encodeFrames(p.Frames, w); err != nil {
		return rec, err
	}
	if rec.Handles, err = binio.WriteArray(w, binio.Vec3, p.Handles); err != nil {
		return rec, err
	}
	rec.HandleRotations, err = binio.WriteArray(w, binio.Quat, p.HandleRotations)
	return rec, err
}

func decodePuppet(rec *puppetRecord, r *binio.Reader) (p *Puppet, err error) {
	p = &Puppet{PlayableBase: decodePlayableBase(&rec.playableRecord)}
	if p.Frames, err = decodeFrames(rec.Frames, r); err != nil {
		return nil, err
	}
	if p.Handles, err = binio.ReadArray(r, binio.Vec3, rec.Handles); err != nil {
		return nil, fmt.Errorf("handles: %w", err)
	}
	if p.HandleRotations, err = binio.ReadArray(r, binio.Quat, rec.HandleRotations); err != nil {
		return nil, fmt.Errorf("handle rotations: %w", err)
	}
	return p, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
