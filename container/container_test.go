package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/binio"
	"github.com/stagefmt/stagefile/legacy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStage(t *testing.T) *stagefile.Stage {
	s := stagefile.NewStage("scene")
	s.Fps = 24
	s.Previews = [][]byte{[]byte("preview")}

	root := s.AddSymbol(stagefile.NewSymbol("root"))
	tl := root.Add(stagefile.NewTimeLine("anim")).(*stagefile.TimeLine)
	f := tl.AddFrame(stagefile.NewFrame("f0"))
	l := f.AddLine(stagefile.NewLine(stagefile.BrushSphere))
	for i := 0; i < 5; i++ {
		l.AppendPoint(stagefile.Sample{
			Position: mgl32.Vec3{float32(i), 0, 0},
			Rotation: mgl32.QuatIdent(),
			Width:    0.05,
			Color:    stagefile.White,
			Light:    stagefile.DefaultLight,
		})
	}

	samples := make([]float32, 800)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) * 0.1))
	}
	key, err := s.AudioPool.Add(samples, 1, 8000)
	require.NoError(t, err)
	root.Add(stagefile.NewAudio("music", key, 0.1))

	s.ActivePlayable = tl
	return s
}

func encode(t *testing.T, e Encoder, s *stagefile.Stage) []byte {
	var buf bytes.Buffer
	require.NoError(t, e.Encode(&buf, s))
	return buf.Bytes()
}

func decode(t *testing.T, b []byte) *stagefile.Stage {
	s, warn, err := Decoder{}.Decode(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	require.NoError(t, warn)
	require.NotNil(t, s)
	return s
}

func entryNames(t *testing.T, b []byte) []string {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestRoundTrip(t *testing.T) {
	b := encode(t, NewEncoder(), testStage(t))
	assert.Equal(t, []string{EntryPreview, EntryStage, EntryVersion, EntryBin}, entryNames(t, b))

	s := decode(t, b)
	assert.Equal(t, "scene", s.Name)
	assert.Equal(t, float32(24), s.Fps)
	assert.Equal(t, 5, s.PointCount())
	assert.Equal(t, [][]byte{[]byte("preview")}, s.Previews)
	assert.Equal(t, 1, s.AudioPool.Len())
	require.NotNil(t, s.ActivePlayable)
	assert.Equal(t, "root/anim", s.PathOf(s.ActivePlayable))
}

func TestLegacyRoundTrip(t *testing.T) {
	b := encode(t, Encoder{}, testStage(t))
	assert.Equal(t, []string{EntryPreview, EntryStage}, entryNames(t, b))

	s := decode(t, b)
	assert.Equal(t, float32(24), s.Fps)
	assert.Equal(t, 5, s.PointCount())
	assert.Equal(t, [][]byte{[]byte("preview")}, s.Previews)
	assert.Equal(t, 1, s.AudioPool.Len())
	require.NotNil(t, s.ActivePlayable)
	assert.Equal(t, "root/anim", s.PathOf(s.ActivePlayable))
}

func TestEncodePrunesAudio(t *testing.T) {
	s := testStage(t)
	_, err := s.AudioPool.Add([]float32{0, 0.5, -0.5, 0}, 1, 8000)
	require.NoError(t, err)
	require.Equal(t, 2, s.AudioPool.Len())

	got := decode(t, encode(t, NewEncoder(), s))
	assert.Equal(t, 1, got.AudioPool.Len())
	assert.Equal(t, 1, s.AudioPool.Len())
}

func TestNoPreview(t *testing.T) {
	b := encode(t, NewEncoder(), testStage(t))
	s, _, err := Decoder{NoPreview: true}.Decode(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	assert.Empty(t, s.Previews)
	assert.Equal(t, 5, s.PointCount())
}

func TestFrameFlagsRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		name string
		enc  Encoder
	}{
		{"current", NewEncoder()},
		{"legacy", Encoder{}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := testStage(t)
			tl := s.FindPath("root/anim").(*stagefile.TimeLine)
			f := tl.AddFrame(stagefile.NewFrame("f1"))
			f.FadeIn = stagefile.FadeOpacity
			f.FadeOut = stagefile.FadeScale
			f.IsInstance = true
			f.InstanceOf = 3

			got := decode(t, encode(t, tt.enc, s)).FindPath("root/anim").(*stagefile.TimeLine)
			require.Len(t, got.Frames, 2)
			plain, flagged := got.Frames[0], got.Frames[1]
			assert.Equal(t, "f1", flagged.Name)
			assert.Equal(t, stagefile.FadeOpacity, flagged.FadeIn)
			assert.Equal(t, stagefile.FadeScale, flagged.FadeOut)
			assert.True(t, flagged.IsInstance)
			assert.Equal(t, 3, flagged.InstanceOf)

			assert.Equal(t, stagefile.FadeNone, plain.FadeIn)
			assert.Equal(t, stagefile.FadeNone, plain.FadeOut)
			assert.False(t, plain.IsInstance)
			assert.Equal(t, -1, plain.InstanceOf)
		})
	}
}

func writeZip(t *testing.T, entries map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecodeErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("garbage")},
		{"missing bin", writeZip(t, map[string]string{EntryVersion: "1", EntryStage: "{}"})},
		{"missing stage", writeZip(t, map[string]string{EntryVersion: "1", EntryBin: ""})},
		{"bad version", writeZip(t, map[string]string{EntryVersion: "one", EntryStage: "{}", EntryBin: ""})},
		{"bad json", writeZip(t, map[string]string{EntryVersion: "1", EntryStage: "{", EntryBin: ""})},
		{"bad legacy", writeZip(t, map[string]string{EntryStage: "<stage"})},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s, _, err := Decoder{}.Decode(bytes.NewReader(tt.data), int64(len(tt.data)))
			assert.Nil(t, s)
			assert.ErrorIs(t, err, binio.ErrCorruptContainer)
		})
	}

	data := writeZip(t, map[string]string{EntryVersion: "1", EntryStage: "{}"})
	_, _, err := Decoder{}.Decode(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrMissingEntry)
	var entryErr EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, EntryBin, entryErr.Name)
}

func TestNewerVersionWarns(t *testing.T) {
	data := writeZip(t, map[string]string{EntryVersion: "7", EntryStage: `{"name":"x"}`, EntryBin: ""})
	s, warn, err := Decoder{}.Decode(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Error(t, warn)
	assert.Equal(t, "x", s.Name)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.stage")
	require.NoError(t, Save(path, testStage(t)))

	s := Load(path)
	require.NotNil(t, s)
	assert.Equal(t, 5, s.PointCount())

	images, err := ReadPreview(path)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("preview")}, images)

	_, err = os.Stat(path + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveRestoresBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.stage")
	require.NoError(t, Save(path, testStage(t)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Error(t, Save(path, nil))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, err = os.Stat(path + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveFailureLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.stage")
	assert.Error(t, Save(path, nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveStatError(t *testing.T) {
	dir := t.TempDir()
	parent := filepath.Join(dir, "scene.stage")
	require.NoError(t, os.WriteFile(parent, []byte("original"), 0o644))

	// A path below a regular file fails to stat with something other than
	// not-exist; Save must stop before touching anything.
	err := Save(filepath.Join(parent, "child.stage"), testStage(t))
	var pathErr *fs.PathError
	require.True(t, errors.As(err, &pathErr))
	assert.Equal(t, "stat", pathErr.Op)
	assert.False(t, errors.Is(err, fs.ErrNotExist))

	b, err := os.ReadFile(parent)
	require.NoError(t, err)
	assert.Equal(t, "original", string(b))
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.stage")
	require.NoError(t, os.WriteFile(path, []byte("not a stage"), 0o644))
	assert.Nil(t, Load(path))
	assert.Nil(t, Load(filepath.Join(dir, "missing.stage")))
}

func TestInspect(t *testing.T) {
	b := encode(t, NewEncoder(), testStage(t))
	info, err := Inspect(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, info.Version)
	require.Len(t, info.Entries, 4)
	assert.Equal(t, EntryPreview, info.Entries[0].Name)
	assert.True(t, info.Entries[0].Compressed)

	b = encode(t, Encoder{}, testStage(t))
	info, err = Inspect(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	assert.Equal(t, LegacyVersion, info.Version)
	assert.False(t, info.Entries[1].Compressed)

	data, err := Entry(bytes.NewReader(b), int64(len(b)), EntryStage)
	require.NoError(t, err)
	s, _, err := legacy.Decoder{}.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "scene", s.Name)

	_, err = Entry(bytes.NewReader(b), int64(len(b)), EntryBin)
	assert.ErrorIs(t, err, ErrMissingEntry)
}

func TestUncompressed(t *testing.T) {
	for _, version := range []int{LegacyVersion, FormatVersion} {
		e := NewEncoder()
		e.Version = version
		e.Uncompressed = true
		b := encode(t, e, testStage(t))
		info, err := Inspect(bytes.NewReader(b), int64(len(b)))
		require.NoError(t, err)
		for _, entry := range info.Entries {
			assert.False(t, entry.Compressed, entry.Name)
		}
		assert.Equal(t, 5, decode(t, b).PointCount())
	}
}
