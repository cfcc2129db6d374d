package stagefile

import (
	"testing"

	"github.com/stagefmt/stagefile/binio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(ps []Playable) []string {
	a := make([]string, len(ps))
	for i, p := range ps {
		a[i] = p.Base().Name
	}
	return a
}

func testSymbol() *Symbol {
	s := NewSymbol("root")
	tl := NewTimeLine("tl1")
	f := tl.AddFrame(NewFrame("f"))
	f.AddLine(testLine(3))
	s.Add(tl)
	s.Add(NewCamera("cam"))
	s.Add(NewTimeLine("tl2"))
	inner := NewSymbol("inner")
	inner.Add(NewLight("sun", LightDirectional))
	inner.Add(NewReference("ref", "root/tl1"))
	s.Add(inner)
	s.Add(NewAudio("music", AudioKey{Length: 4}, 2))
	s.Add(NewSkybox("sky"))
	s.Add(NewVideo("clip", "clip.mp4", 1.5))
	s.Add(NewPuppet("puppet"))
	s.Add(NewUnityImport("pkg"))
	s.Add(NewStaticMesh("mesh"))
	return s
}

func TestSymbolRoundTripOrder(t *testing.T) {
	s := testSymbol()
	w := binio.NewWriter()
	rec, err := encodeSymbol(s, w)
	require.NoError(t, err)
	assert.Len(t, rec.TimeLines, 2)
	assert.Len(t, rec.Symbols, 1)

	got, err := decodeSymbol(&rec, binio.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, names(s.Playables), names(got.Playables))
	for i, p := range got.Playables {
		assert.Equal(t, s.Playables[i].Kind(), p.Kind())
		assert.Equal(t, i, p.Base().IndexInParent)
	}
	inner := got.Find("inner").(*Symbol)
	assert.Equal(t, []string{"sun", "ref"}, names(inner.Playables))
	assert.Equal(t, "root/tl1", inner.Playables[1].(*Reference).Target)
	assert.Equal(t, 3, got.TimeLines()[0].Frames[0].Lines[0].Len())
}

func TestReassembleWithoutIndex(t *testing.T) {
	a := NewTimeLine("a")
	b := NewTimeLine("b")
	c := NewCamera("c")
	got := reassemble([]placed{{a, 0}, {b, 1}, {c, 0}})
	// c collides with a and takes the remaining slot.
	assert.Equal(t, []string{"a", "b", "c"}, names(got))
	assert.Equal(t, 2, c.IndexInParent)
}

func TestReassembleOutOfRange(t *testing.T) {
	a := NewTimeLine("a")
	a.IndexInParent = 7
	b := NewCamera("b")
	b.IndexInParent = 0
	got := reassemble([]placed{{a, 0}, {b, 0}})
	assert.Equal(t, []string{"b", "a"}, names(got))
	assert.Nil(t, reassemble(nil))
}

func TestSymbolInsertRemove(t *testing.T) {
	s := NewSymbol("s")
	a := s.Add(NewTimeLine("a"))
	c := s.Add(NewTimeLine("c"))
	b := s.Insert(1, NewCamera("b"))
	assert.Equal(t, []string{"a", "b", "c"}, names(s.Playables))
	assert.Equal(t, 1, b.Base().IndexInParent)
	assert.Equal(t, 2, c.Base().IndexInParent)

	assert.True(t, s.Remove(a))
	assert.False(t, s.Remove(a))
	assert.Equal(t, -1, a.Base().IndexInParent)
	assert.Equal(t, 0, b.Base().IndexInParent)
	assert.Equal(t, []string{"b", "c"}, names(s.Playables))
}

func TestSymbolWalkFindPath(t *testing.T) {
	s := testSymbol()
	var paths []string
	s.Walk(func(path string, p Playable) bool {
		paths = append(paths, path)
		return true
	})
	assert.Contains(t, paths, "inner/sun")
	assert.Equal(t, len(s.Playables)+2, len(paths))

	sun := s.FindPath("inner/sun")
	require.NotNil(t, sun)
	assert.Equal(t, KindLight, sun.Kind())
	assert.Nil(t, s.FindPath("inner/moon"))
	assert.Nil(t, s.FindPath(""))
	assert.Same(t, s.Find("inner"), s.FindPath("inner"))
}

func TestSymbolFrameCount(t *testing.T) {
	s := NewSymbol("s")
	tl := NewTimeLine("tl")
	for i := 0; i < 10; i++ {
		tl.AddFrame(NewFrame(""))
	}
	tl.AbsoluteTimeOffset = 5
	tl.TrimIn = 2
	s.Add(tl)
	s.Add(NewAudio("a", AudioKey{}, 0.25))
	assert.Equal(t, 13, s.FrameCount(24))
	assert.Equal(t, 1, NewSymbol("empty").FrameCount(24))
}

func TestSymbolDeepCopy(t *testing.T) {
	s := testSymbol()
	c := s.DeepCopy().(*Symbol)
	require.Equal(t, names(s.Playables), names(c.Playables))
	c.TimeLines()[0].Frames[0].Lines[0].Points[0][0] = 42
	c.Find("inner").(*Symbol).Playables[0].Base().Name = "moon"
	c.Playables[0].Base().Opacity = 0.5
	assert.Equal(t, float32(0), s.TimeLines()[0].Frames[0].Lines[0].Points[0][0])
	assert.NotNil(t, s.FindPath("inner/sun"))
	assert.Equal(t, float32(1), s.Playables[0].Base().Opacity)
}
