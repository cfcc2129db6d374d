package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/config"
	"github.com/stagefmt/stagefile/errors"
	"github.com/stagefmt/stagefile/legacy"
	"github.com/stagefmt/stagefile/simplify"
	"github.com/stagefmt/stagefile/tube"
)

// Report describes the processing of one timeline.
type Report struct {
	Path         string
	Frames       int
	Lines        int
	PointsBefore int
	PointsAfter  int
	Vertices     int
	Triangles    int
}

// processFrames simplifies the lines of frames in place, and returns one
// mesh per frame.
func processFrames(r *Report, frames []*stagefile.Frame, c config.Config) []*stagefile.MeshData {
	opts := c.TubeOptions()
	meshes := make([]*stagefile.MeshData, 0, len(frames))
	r.Frames += len(frames)
	for i, f := range frames {
		for j, l := range f.Lines {
			r.Lines++
			r.PointsBefore += l.Len()
			if c.Simplify.Enabled {
				f.Lines[j] = simplify.Line(l, c.Simplify.Factor)
			}
			r.PointsAfter += f.Lines[j].Len()
		}
		m := tube.Frame(f, opts)
		r.Vertices += m.Len()
		r.Triangles += len(m.Triangles) / 3
		meshes = append(meshes, m.MeshData(fmt.Sprintf("frame %d", i)))
	}
	return meshes
}

// bakedMesh returns a static mesh that plays alongside tl.
func bakedMesh(tl *stagefile.TimeLine, meshes []*stagefile.MeshData) *stagefile.StaticMesh {
	sm := stagefile.NewStaticMesh(tl.Name + " mesh")
	sm.Meshes = meshes
	sm.Materials = []*stagefile.MaterialData{{
		Name:       "stroke",
		Diffuse:    stagefile.White,
		ShaderType: stagefile.ShaderUnlit,
	}}
	sm.Transform = tl.Transform
	sm.AbsoluteTimeOffset = tl.AbsoluteTimeOffset
	sm.Visible = false
	return sm
}

// process simplifies and tessellates every timeline of s. When bake is
// set, the geometry of each timeline is added to its symbol as a static
// mesh following the timeline.
func process(s *stagefile.Stage, c config.Config, bake bool) []Report {
	var reports []Report
	var visit func(sym *stagefile.Symbol, prefix string)
	visit = func(sym *stagefile.Symbol, prefix string) {
		for i := 0; i < len(sym.Playables); i++ {
			path := prefix + "/" + sym.Playables[i].Base().Name
			switch p := sym.Playables[i].(type) {
			case *stagefile.Symbol:
				visit(p, path)
			case *stagefile.TimeLine:
				r := Report{Path: path}
				meshes := processFrames(&r, p.Frames, c)
				reports = append(reports, r)
				if bake {
					i++
					sym.Insert(i, bakedMesh(p, meshes))
				}
			}
		}
	}
	for _, sym := range s.Symbols {
		visit(sym, sym.Name)
	}
	stagefile.Logger().Info("processed stage", "timelines", len(reports))
	return reports
}

// thumbnails rescales every preview of s to fit within size, re-encoded as
// PNG. Previews that cannot be decoded are kept, and returned as warnings.
func thumbnails(s *stagefile.Stage, size int) error {
	var warns errors.Errors
	for i, b := range s.Previews {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			warns = warns.Append(fmt.Errorf("preview %d (%s): %w", i, legacy.PreviewKind(b), err))
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, legacy.Thumbnail(img, size)); err != nil {
			warns = warns.Append(fmt.Errorf("preview %d: %w", i, err))
			continue
		}
		s.Previews[i] = buf.Bytes()
	}
	return warns.Return()
}
