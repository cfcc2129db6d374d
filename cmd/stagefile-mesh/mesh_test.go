package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStage() *stagefile.Stage {
	s := stagefile.NewStage("scene")
	root := s.AddSymbol(stagefile.NewSymbol("root"))
	inner := root.Add(stagefile.NewSymbol("inner")).(*stagefile.Symbol)
	tl := inner.Add(stagefile.NewTimeLine("anim")).(*stagefile.TimeLine)
	root.Add(stagefile.NewCamera("cam"))
	for i := 0; i < 2; i++ {
		f := tl.AddFrame(stagefile.NewFrame(""))
		l := f.AddLine(stagefile.NewLine(stagefile.BrushCube))
		l.OneSided = true
		for j := 0; j < 50; j++ {
			l.AppendPoint(stagefile.Sample{
				Position: mgl32.Vec3{float32(j) * 0.01, 0, 0},
				Rotation: mgl32.QuatIdent(),
				Width:    0.1,
				Color:    stagefile.White,
				Light:    stagefile.DefaultLight,
			})
		}
	}
	return s
}

func TestProcess(t *testing.T) {
	s := testStage()
	reports := process(s, config.Default(), false)
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "root/inner/anim", r.Path)
	assert.Equal(t, 2, r.Frames)
	assert.Equal(t, 2, r.Lines)
	assert.Equal(t, 100, r.PointsBefore)
	assert.Less(t, r.PointsAfter, r.PointsBefore)
	assert.Equal(t, r.PointsAfter, s.PointCount())
	assert.NotZero(t, r.Vertices)
	assert.NotZero(t, r.Triangles)
}

func TestProcessWithoutSimplify(t *testing.T) {
	s := testStage()
	c := config.Default()
	c.Simplify.Enabled = false
	r := process(s, c, false)[0]
	assert.Equal(t, r.PointsBefore, r.PointsAfter)
	// Each frame is one cube tube of 52 rings.
	assert.Equal(t, 2*52*4, r.Vertices)
}

func TestBake(t *testing.T) {
	s := testStage()
	process(s, config.Default(), true)
	inner := s.FindPath("root/inner").(*stagefile.Symbol)
	require.Len(t, inner.Playables, 2)
	sm, ok := inner.Playables[1].(*stagefile.StaticMesh)
	require.True(t, ok)
	assert.Equal(t, "anim mesh", sm.Name)
	assert.Equal(t, 1, sm.IndexInParent)
	assert.False(t, sm.Visible)
	require.Len(t, sm.Meshes, 2)
	assert.NotEmpty(t, sm.Meshes[0].Triangles)
	assert.Equal(t, "frame 1", sm.Meshes[1].Name)
}

func TestThumbnails(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	s := stagefile.NewStage("scene")
	s.Previews = [][]byte{buf.Bytes(), []byte("junk")}
	assert.Error(t, thumbnails(s, 16))

	got, err := png.Decode(bytes.NewReader(s.Previews[0]))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 8), got.Bounds())
	assert.Equal(t, []byte("junk"), s.Previews[1])
}
