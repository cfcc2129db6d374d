package stagefile

import (
	"testing"

	"github.com/stagefmt/stagefile/binio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStage(t *testing.T) *Stage {
	s := NewStage("stage")
	s.Fps = 30
	s.BackgroundColor = Color{0.1, 0.2, 0.3, 1}
	s.LUTs = [][]byte{{1, 2, 3}}
	root := s.AddSymbol(testSymbol())
	key, err := s.AudioPool.Add(sine(440, 0.1, 8000), 1, 8000)
	require.NoError(t, err)
	root.Find("music").(*Audio).Key = key
	s.ActivePlayable = root.FindPath("inner/sun")
	s.ActivePlayablePath = s.PathOf(s.ActivePlayable)
	return s
}

func roundTripStage(t *testing.T, s *Stage) *Stage {
	w := binio.NewWriter()
	data, err := MarshalStage(s, w)
	require.NoError(t, err)
	got, warn, err := UnmarshalStage(data, binio.NewReader(w.Bytes()))
	require.NoError(t, err)
	require.NoError(t, warn)
	return got
}

func TestStageRoundTrip(t *testing.T) {
	s := testStage(t)
	got := roundTripStage(t, s)

	assert.Equal(t, "stage", got.Name)
	assert.Equal(t, float32(30), got.Fps)
	assert.Equal(t, s.BackgroundColor, got.BackgroundColor)
	assert.Equal(t, s.Transform, got.Transform)
	assert.Equal(t, s.Workspace, got.Workspace)
	assert.Equal(t, s.LUTs, got.LUTs)
	assert.Equal(t, StageVersion, got.SaveDataVersion)
	require.Len(t, got.Symbols, 1)
	assert.Equal(t, names(s.Symbols[0].Playables), names(got.Symbols[0].Playables))
	assert.Equal(t, s.PointCount(), got.PointCount())
	assert.Equal(t, s.AudioKeys(), got.AudioKeys())
	assert.Equal(t, 1, got.AudioPool.Len())

	require.NotNil(t, got.ActivePlayable)
	assert.Equal(t, "root/inner/sun", got.PathOf(got.ActivePlayable))
}

func TestStagePaths(t *testing.T) {
	s := testStage(t)
	assert.Equal(t, "root/inner/sun", s.ActivePlayablePath)
	assert.Equal(t, "root", s.PathOf(s.Symbols[0]))
	assert.Same(t, s.Symbols[0], s.FindPath("root"))
	assert.Nil(t, s.FindPath("other/inner"))
	assert.Empty(t, s.PathOf(nil))
	assert.Empty(t, s.PathOf(NewLight("detached", LightPoint)))
}

func TestStageMissingActive(t *testing.T) {
	s := testStage(t)
	s.ActivePlayablePath = "root/nothing"
	w := binio.NewWriter()
	data, err := MarshalStage(s, w)
	require.NoError(t, err)
	got, warn, err := UnmarshalStage(data, binio.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Error(t, warn)
	assert.Nil(t, got.ActivePlayable)
}

func TestStageUpgrade(t *testing.T) {
	for _, tt := range []struct {
		from, want int
	}{
		{from: 1, want: 1},
		{from: 2, want: StageVersion},
		{from: StageVersion, want: StageVersion},
	} {
		s := testStage(t)
		s.SaveDataVersion = tt.from
		s.Symbols[0].Opacity = 0
		s.Symbols[0].Find("cam").Base().Opacity = 0.5
		s.Upgrade()
		assert.Equal(t, tt.want, s.SaveDataVersion, "from %d", tt.from)
		assert.Equal(t, float32(0), s.Symbols[0].Opacity, "from %d", tt.from)
		assert.Equal(t, float32(0.5), s.Symbols[0].Find("cam").Base().Opacity, "from %d", tt.from)
	}
}

func TestStageChanged(t *testing.T) {
	s := NewStage("s")
	var seen []uint64
	s.OnChanged(func(s *Stage) { seen = append(seen, s.Revision) })
	s.Changed()
	s.Changed()
	assert.Equal(t, []uint64{1, 2}, seen)
}

func TestStagePruneAudio(t *testing.T) {
	s := testStage(t)
	orphan, err := s.AudioPool.Add(sine(220, 0.1, 8000), 1, 8000)
	require.NoError(t, err)
	require.Equal(t, 2, s.AudioPool.Len())
	s.PruneAudio()
	assert.False(t, s.AudioPool.Contains(orphan))
	assert.True(t, s.AudioPool.Contains(s.Symbols[0].Find("music").(*Audio).Key))
}

func TestStageDeepCopy(t *testing.T) {
	s := testStage(t)
	c := s.DeepCopy()
	require.NotNil(t, c.ActivePlayable)
	assert.NotSame(t, s.ActivePlayable, c.ActivePlayable)
	assert.Equal(t, s.ActivePlayablePath, c.PathOf(c.ActivePlayable))
	c.LUTs[0][0] = 9
	assert.Equal(t, byte(1), s.LUTs[0][0])

	key := s.Symbols[0].Find("music").(*Audio).Key
	require.NotSame(t, s.AudioPool, c.AudioPool)
	require.True(t, c.AudioPool.Contains(key))
	require.True(t, c.Symbols[0].Remove(c.Symbols[0].Find("music")))
	c.PruneAudio()
	assert.False(t, c.AudioPool.Contains(key))
	assert.True(t, s.AudioPool.Contains(key))

	added, err := c.AudioPool.Add(sine(220, 0.1, 8000), 1, 8000)
	require.NoError(t, err)
	assert.False(t, s.AudioPool.Contains(added))
}

func TestUnmarshalStageCorrupt(t *testing.T) {
	_, _, err := UnmarshalStage([]byte("{"), binio.NewReader(nil))
	assert.ErrorIs(t, err, binio.ErrCorruptContainer)

	s := testStage(t)
	w := binio.NewWriter()
	data, err := MarshalStage(s, w)
	require.NoError(t, err)
	truncated := w.Bytes()[:w.Len()/2]
	_, _, err = UnmarshalStage(data, binio.NewReader(truncated))
	assert.ErrorIs(t, err, binio.ErrCorruptContainer)
}
