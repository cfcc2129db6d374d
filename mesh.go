package stagefile

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"
	"github.com/stagefmt/stagefile/binio"
)

// ShaderType selects how a material is shaded.
type ShaderType uint8

const (
	ShaderUnlit ShaderType = iota
	ShaderLit
	ShaderTransparent
)

// ColorSpace of a material texture.
type ColorSpace uint8

const (
	ColorSpaceGamma ColorSpace = iota
	ColorSpaceLinear
)

// MeshData is precomputed static geometry.
type MeshData struct {
	Name          string
	Vertices      []mgl32.Vec3
	Normals       []mgl32.Vec3
	UVs           []mgl32.Vec2
	Colors        []Color
	Triangles     []int32
	MaterialIndex int
}

// MaterialData describes the appearance of a MeshData.
type MaterialData struct {
	Name       string
	Diffuse    Color
	Specular   Color
	Emissive   Color
	Texture    []byte
	ShaderType ShaderType
	ColorSpace ColorSpace
}

func (m *MeshData) DeepCopy() *MeshData {
	c := new(MeshData)
	if err := copier.CopyWithOption(c, m, copier.Option{DeepCopy: true}); err != nil {
		panic("stagefile: copy mesh: " + err.Error())
	}
	return c
}

func (m *MaterialData) DeepCopy() *MaterialData {
	c := new(MaterialData)
	if err := copier.CopyWithOption(c, m, copier.Option{DeepCopy: true}); err != nil {
		panic("stagefile: copy material: " + err.Error())
	}
	return c
}

type meshRecord struct {
	Name          string       `json:"name"`
	Vertices      *binio.Range `json:"vertices,omitempty"`
	Normals       *binio.Range `json:"normals,omitempty"`
	UVs           *binio.Range `json:"uvs,omitempty"`
	Colors        *binio.Range `json:"colors,omitempty"`
	Triangles     *binio.Range `json:"triangles,omitempty"`
	MaterialIndex int          `json:"materialIndex"`
}

func encodeMesh(m *MeshData, w *binio.Writer) (rec meshRecord, err error) {
	rec = meshRecord{Name: m.Name, MaterialIndex: m.MaterialIndex}
	if rec.Vertices, err = binio.WriteArray(w, binio.Vec3, m.Vertices); err != nil {
		return rec, err
	}
	if rec.Normals, err = binio.WriteArray(w, binio.Vec3, m.Normals); err != nil {
		return rec, err
	}
	if rec.UVs, err = binio.WriteArray(w, binio.Vec2, m.UVs); err != nil {
		return rec, err
	}
	if rec.Colors, err = binio.WriteArray(w, ColorElement, m.Colors); err != nil {
		return rec, err
	}
	if rec.Triangles, err = binio.WriteArray(w, binio.Int32, m.Triangles); err != nil {
		return rec, err
	}
	return rec, nil
}

func decodeMesh(rec *meshRecord, r *binio.Reader) (m *MeshData, err error) {
	m = &MeshData{Name: rec.Name, MaterialIndex: rec.MaterialIndex}
	if m.Vertices, err = binio.ReadArray(r, binio.Vec3, rec.Vertices); err != nil {
		return nil, fmt.Errorf("vertices: %w", err)
	}
	if m.Normals, err = binio.ReadArray(r, binio.Vec3, rec.Normals); err != nil {
		return nil, fmt.Errorf("normals: %w", err)
	}
	if m.UVs, err = binio.ReadArray(r, binio.Vec2, rec.UVs); err != nil {
		return nil, fmt.Errorf("uvs: %w", err)
	}
	if m.Colors, err = binio.ReadArray(r, ColorElement, rec.Colors); err != nil {
		return nil, fmt.Errorf("colors: %w", err)
	}
	if m.Triangles, err = binio.ReadArray(r, binio.Int32, rec.Triangles); err != nil {
		return nil, fmt.Errorf("triangles: %w", err)
	}
	return m, nil
}

type materialRecord struct {
	Name       string       `json:"name"`
	Diffuse    Color        `json:"diffuse"`
	Specular   Color        `json:"specular"`
	Emissive   Color        `json:"emissive"`
	Texture    *binio.Range `json:"texture,omitempty"`
	ShaderType ShaderType   `json:"shaderType"`
	ColorSpace ColorSpace   `json:"colorSpace"`
}

func encodeMaterial(m *MaterialData, w *binio.Writer) (rec materialRecord, err error) {
	rec = materialRecord{
		Name:       m.Name,
		Diffuse:    m.Diffuse,
		Specular:   m.Specular,
		Emissive:   m.Emissive,
		ShaderType: m.ShaderType,
		ColorSpace: m.ColorSpace,
	}
	rec.Texture, err = w.WriteBytes(m.Texture)
	return rec, err
}

func decodeMaterial(rec *materialRecord, r *binio.Reader) (m *MaterialData, err error) {
	m = &MaterialData{
		Name:       rec.Name,
		Diffuse:    rec.Diffuse,
		Specular:   rec.Specular,
		Emissive:   rec.Emissive,
		ShaderType: rec.ShaderType,
		ColorSpace: rec.ColorSpace,
	}
	if m.Texture, err = r.ReadBytes(rec.Texture); err != nil {
		return nil, fmt.Errorf("texture: %w", err)
	}
	return m, nil
}
