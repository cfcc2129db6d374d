package stagefile

import (
	"testing"

	"github.com/stagefmt/stagefile/binio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayableMigration(t *testing.T) {
	rec := playableRecord{Name: "old", LoopType: Hold, SaveVersion: 0}
	b := decodePlayableBase(&rec)
	assert.Equal(t, PlayableSaveVersion, b.SaveVersion)
	assert.Equal(t, Hold, b.LoopIn)
	assert.Equal(t, Hold, b.LoopOut)
	assert.Equal(t, TrimHold, b.TrimLoopType)
	assert.True(t, b.Visible)
	assert.Equal(t, float32(1), b.Opacity)
	assert.Equal(t, Identity(), b.Transform)
}

func TestPlayableBaseRoundTrip(t *testing.T) {
	b := newPlayableBase("p")
	b.Visible = false
	b.Opacity = 0
	b.IndependentLoops = true
	b.LoopIn = OneShot
	b.LoopOut = Hold
	b.TrimLoopType = TrimInfinity
	b.TrimIn = 3
	b.Attribution.Creator = "someone"
	rec := encodePlayableBase(&b)
	assert.Equal(t, b, decodePlayableBase(&rec))
}

func TestTrim(t *testing.T) {
	tl := NewTimeLine("tl")
	for i := 0; i < 10; i++ {
		tl.AddFrame(NewFrame(""))
	}
	tests := []struct {
		in, out    int
		start, end int
	}{
		{0, 0, 0, 10},
		{2, 3, 2, 7},
		{12, 0, 10, 10},
		{4, 8, 4, 4},
		{-1, -1, 0, 10},
	}
	for _, tt := range tests {
		tl.TrimIn, tl.TrimOut = tt.in, tt.out
		assert.Equal(t, tt.start, tl.LocalTrimStart(24), "trim %d,%d", tt.in, tt.out)
		assert.Equal(t, tt.end, tl.LocalTrimEnd(24), "trim %d,%d", tt.in, tt.out)
	}
}

func TestFrameCountFromSeconds(t *testing.T) {
	assert.Equal(t, 24, NewAudio("a", AudioKey{}, 1).FrameCount(24))
	assert.Equal(t, 25, NewVideo("v", "", 1.01).FrameCount(24))
	assert.Equal(t, 1, NewVideo("v", "", 0).FrameCount(24))
}

func TestEffectiveLoop(t *testing.T) {
	b := newPlayableBase("p")
	b.LoopType = Loop
	b.LoopIn = Hold
	assert.Equal(t, Loop, b.EffectiveLoopIn())
	b.IndependentLoops = true
	assert.Equal(t, Hold, b.EffectiveLoopIn())
	assert.Equal(t, Loop, b.EffectiveLoopOut())
}

func TestPlayableDeepCopy(t *testing.T) {
	sky := NewSkybox("sky")
	sky.Texture = []byte{1, 2, 3}
	c := sky.DeepCopy().(*Skybox)
	c.Texture[0] = 9
	assert.Equal(t, byte(1), sky.Texture[0])

	cam := NewCamera("cam")
	cam.Keyframes = []Transform{Identity()}
	cc := cam.DeepCopy().(*Camera)
	cc.Keyframes[0].Scale[0] = 2
	assert.Equal(t, float32(1), cam.Keyframes[0].Scale[0])
}

func TestVariantRoundTrip(t *testing.T) {
	w := binio.NewWriter()

	cam := NewCamera("cam")
	cam.FieldOfView = 45
	cam.Keyframes = []Transform{Identity(), Identity()}
	camRec, err := encodeCamera(cam, w)
	require.NoError(t, err)

	pkg := NewUnityImport("pkg")
	pkg.AssetPath = "Assets/x.prefab"
	pkg.Package = []byte("package bytes")
	pkgRec, err := encodeUnityImport(pkg, w)
	require.NoError(t, err)

	audio := NewAudio("a", KeyOf([]byte{1, 2, 3}), 2)
	audioRec, err := encodeAudio(audio, w)
	require.NoError(t, err)

	r := binio.NewReader(w.Bytes())
	gotCam, err := decodeCamera(&camRec, r)
	require.NoError(t, err)
	assert.Equal(t, cam, gotCam)

	gotPkg, err := decodeUnityImport(&pkgRec, r)
	require.NoError(t, err)
	assert.Equal(t, pkg, gotPkg)

	gotAudio, err := decodeAudio(&audioRec, r)
	require.NoError(t, err)
	assert.Equal(t, audio, gotAudio)
}
