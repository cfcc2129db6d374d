package stagefile

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stagefmt/stagefile/binio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSample(x float32) Sample {
	return Sample{
		Position:          mgl32.Vec3{x, 0, 0},
		Rotation:          mgl32.QuatIdent(),
		Width:             0.1,
		Color:             White,
		Light:             DefaultLight,
		CameraOrientation: mgl32.QuatIdent(),
	}
}

func testLine(n int) *Line {
	l := NewLine(BrushSphere)
	for i := 0; i < n; i++ {
		l.AppendPoint(testSample(float32(i)))
	}
	return l
}

func TestLineMutation(t *testing.T) {
	l := testLine(3)
	require.NoError(t, l.Validate())
	assert.Equal(t, 3, l.Len())

	s := testSample(10)
	s.Width = 0.5
	l.InsertPoint(1, s)
	require.NoError(t, l.Validate())
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, mgl32.Vec3{10, 0, 0}, l.Points[1])
	assert.Equal(t, float32(0.5), l.Widths[1])
	assert.Len(t, l.CameraOrientations, 4)

	s.Color = Color{1, 0, 0, 1}
	l.SetPoint(2, s)
	assert.Equal(t, Color{1, 0, 0, 1}, l.Sample(2).Color)

	l.RemovePoint(0)
	require.NoError(t, l.Validate())
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, mgl32.Vec3{10, 0, 0}, l.Points[0])
}

func TestLineShortCameraOrientations(t *testing.T) {
	l := testLine(2)
	l.CameraOrientations = l.CameraOrientations[:1]
	l.AppendPoint(testSample(2))
	require.NoError(t, l.Validate())
	assert.Len(t, l.CameraOrientations, 1)
	assert.Equal(t, mgl32.QuatIdent(), l.Sample(2).CameraOrientation)
}

func TestLineValidate(t *testing.T) {
	l := testLine(3)
	l.Widths = l.Widths[:2]
	assert.ErrorIs(t, l.Validate(), ErrLineArrays)

	l = testLine(3)
	l.CameraOrientations = append(l.CameraOrientations, mgl32.QuatIdent())
	assert.ErrorIs(t, l.Validate(), ErrLineArrays)
}

func TestLineRoundTrip(t *testing.T) {
	l := testLine(5)
	l.BrushType = BrushRibbon
	l.Flat = true
	l.Web = true
	l.TextureIndex = 2
	l.Transform.Position = mgl32.Vec3{1, 2, 3}

	w := binio.NewWriter()
	rec, err := encodeLine(l, w)
	require.NoError(t, err)

	got, err := decodeLine(&rec, binio.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestLineVersions(t *testing.T) {
	l := testLine(4)
	w := binio.NewWriter()
	rec, err := encodeLine(l, w)
	require.NoError(t, err)
	r := binio.NewReader(w.Bytes())

	t.Run("base", func(t *testing.T) {
		old := rec
		old.Version = LineVersionBase
		got, err := decodeLine(&old, r)
		require.NoError(t, err)
		assert.Equal(t, LineVersion, got.Version)
		assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, got.Light)
		assert.Nil(t, got.CameraOrientations)
	})

	t.Run("light", func(t *testing.T) {
		old := rec
		old.Version = LineVersionLight
		got, err := decodeLine(&old, r)
		require.NoError(t, err)
		assert.Equal(t, l.Light, got.Light)
		assert.Nil(t, got.CameraOrientations)
	})
}

func TestLineTruncatesCameraOrientations(t *testing.T) {
	l := testLine(3)
	extra := append(l.CameraOrientations, mgl32.QuatIdent(), mgl32.QuatIdent())
	w := binio.NewWriter()
	l.CameraOrientations = nil
	rec, err := encodeLine(l, w)
	require.NoError(t, err)
	rec.CameraOrientations, err = binio.WriteArray(w, binio.Quat, extra)
	require.NoError(t, err)

	got, err := decodeLine(&rec, binio.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Len(t, got.CameraOrientations, 3)
}

func TestLineCorruptArrays(t *testing.T) {
	l := testLine(3)
	w := binio.NewWriter()
	rec, err := encodeLine(l, w)
	require.NoError(t, err)
	short, err := binio.WriteArray(w, binio.Float32, []float32{1})
	require.NoError(t, err)
	rec.Widths = short

	_, err = decodeLine(&rec, binio.NewReader(w.Bytes()))
	assert.ErrorIs(t, err, binio.ErrCorruptContainer)
	assert.ErrorIs(t, err, ErrLineArrays)
}

func TestLineDeepCopy(t *testing.T) {
	l := testLine(3)
	c := l.DeepCopy()
	require.Equal(t, l, c)
	c.Points[0] = mgl32.Vec3{9, 9, 9}
	c.Colors[1].R = 0
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, l.Points[0])
	assert.Equal(t, float32(1), l.Colors[1].R)
}
