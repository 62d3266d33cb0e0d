package model

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	glm "github.com/go-gl/mathgl/mgl32"
)

const (
	semanticVertex   = "VERTEX"
	semanticPosition = "POSITION"
	semanticNormal   = "NORMAL"
	semanticTexCoord = "TEXCOORD"
)

// Collada is the subset of a COLLADA document needed to extract static
// meshes: geometries and the top level nodes of the visual scenes.
type Collada struct {
	XMLName    xml.Name   `xml:"COLLADA"`
	Geometries []Geometry `xml:"library_geometries>geometry"`
	Nodes      []Node     `xml:"library_visual_scenes>visual_scene>node"`
}

type Geometry struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
	Mesh Mesh   `xml:"mesh"`
}

type Mesh struct {
	Sources   []Source  `xml:"source"`
	Vertices  Vertices  `xml:"vertices"`
	Triangles Triangles `xml:"triangles"`
}

type Source struct {
	ID     string  `xml:"id,attr"`
	Floats Floats  `xml:"float_array"`
	Params []Param `xml:"technique_common>accessor>param"`
}

type Param struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   int    `xml:"offset,attr"`
}

type Triangles struct {
	Material string  `xml:"material,attr"`
	Count    int     `xml:"count,attr"`
	Inputs   []Input `xml:"input"`
	Index    Ints    `xml:"p"`
}

type Node struct {
	ID               string    `xml:"id,attr"`
	Name             string    `xml:"name,attr"`
	Type             string    `xml:"type,attr"`
	Matrix           Floats    `xml:"matrix"`
	InstanceGeometry *Instance `xml:"instance_geometry"`
}

type Instance struct {
	URL string `xml:"url,attr"`
}

// Floats is a whitespace separated list of numbers.
type Floats []float32

func (f *Floats) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var text string
	if err := d.DecodeElement(&text, &start); err != nil {
		return err
	}
	fields := strings.Fields(text)
	values := make([]float32, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return fmt.Errorf("invalid float %q in <%s>: %w", field, start.Name.Local, err)
		}
		values[i] = float32(v)
	}
	*f = values
	return nil
}

// Ints is a whitespace separated list of indices.
type Ints []int

func (n *Ints) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var text string
	if err := d.DecodeElement(&text, &start); err != nil {
		return err
	}
	fields := strings.Fields(text)
	values := make([]int, len(fields))
	for i, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			return fmt.Errorf("invalid index %q in <%s>: %w", field, start.Name.Local, err)
		}
		if v < 0 {
			return fmt.Errorf("negative index %d in <%s>", v, start.Name.Local)
		}
		values[i] = v
	}
	*n = values
	return nil
}

func ParseCollada(r io.Reader) (*Collada, error) {
	var c Collada
	if err := xml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode COLLADA document: %w", err)
	}
	return &c, nil
}

func ParseColladaBytes(data []byte) (*Collada, error) {
	return ParseCollada(bytes.NewReader(data))
}

// ExtractModels turns every geometry into a model, transformed by the scene
// node that instances it, then applies the merges in cfg. Merged models come
// first, followed by the geometries no merge consumed.
func (c *Collada) ExtractModels(cfg *MergeConfig) ([]*Model, error) {
	models := make([]*Model, 0, len(c.Geometries))
	for _, g := range c.Geometries {
		vertices, err := g.Mesh.VertexData()
		if err != nil {
			return nil, fmt.Errorf("geometry %q: %w", g.ID, err)
		}
		if m, ok := c.transformFor(g.ID); ok {
			transformVertices(vertices, m)
		}
		models = append(models, New(g.Name, vertices))
	}
	return cfg.Apply(models)
}

func (c *Collada) transformFor(geometryID string) (glm.Mat4, bool) {
	for _, n := range c.Nodes {
		if n.InstanceGeometry == nil || strings.TrimPrefix(n.InstanceGeometry.URL, "#") != geometryID {
			continue
		}
		if len(n.Matrix) != 16 {
			return glm.Mat4{}, false
		}
		// COLLADA matrices are row major, mgl32 is column major.
		return glm.Mat4(n.Matrix).Transpose(), true
	}
	return glm.Mat4{}, false
}

// transformVertices applies m to positions, and m without its translation to
// normals.
func transformVertices(vertices []StaticVertex, m glm.Mat4) {
	rot := m.Mat3()
	for i := range vertices {
		v := &vertices[i]
		p := m.Mul4x1(glm.Vec4{v.Px, v.Py, v.Pz, 1})
		v.Px, v.Py, v.Pz = p[0], p[1], p[2]
		n := rot.Mul3x1(glm.Vec3{v.Nx, v.Ny, v.Nz})
		v.Nx, v.Ny, v.Nz = n[0], n[1], n[2]
	}
}

// VertexData resolves the interleaved triangle indices into vertices.
func (m *Mesh) VertexData() ([]StaticVertex, error) {
	vertexInput, ok := findInput(m.Triangles.Inputs, semanticVertex)
	if !ok {
		return nil, fmt.Errorf("no %s input for triangles", semanticVertex)
	}
	if strings.TrimPrefix(vertexInput.Source, "#") != m.Vertices.ID {
		return nil, fmt.Errorf("triangles vertex input %q does not match vertices %q", vertexInput.Source, m.Vertices.ID)
	}
	positionInput, ok := findInput(m.Vertices.Inputs, semanticPosition)
	if !ok {
		return nil, fmt.Errorf("vertices %q have no %s input", m.Vertices.ID, semanticPosition)
	}
	positions, err := m.sourceData(positionInput.Source, 3)
	if err != nil {
		return nil, err
	}
	normalInput, ok := findInput(m.Triangles.Inputs, semanticNormal)
	if !ok {
		return nil, fmt.Errorf("no %s input for triangles", semanticNormal)
	}
	normals, err := m.sourceData(normalInput.Source, 3)
	if err != nil {
		return nil, err
	}
	texInput, ok := findInput(m.Triangles.Inputs, semanticTexCoord)
	if !ok {
		return nil, fmt.Errorf("no %s input for triangles", semanticTexCoord)
	}
	texCoords, err := m.sourceData(texInput.Source, 2)
	if err != nil {
		return nil, err
	}

	stride := 0
	for _, in := range m.Triangles.Inputs {
		stride = max(stride, in.Offset+1)
	}
	index := m.Triangles.Index
	if len(index)%stride != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of %d inputs", len(index), stride)
	}

	vertices := make([]StaticVertex, 0, len(index)/stride)
	for i := 0; i < len(index); i += stride {
		p, n, t := index[i+vertexInput.Offset], index[i+normalInput.Offset], index[i+texInput.Offset]
		if (p+1)*3 > len(positions) || (n+1)*3 > len(normals) || (t+1)*2 > len(texCoords) {
			return nil, fmt.Errorf("index out of range at element %d", i/stride)
		}
		vertices = append(vertices, StaticVertex{
			Px: positions[p*3], Py: positions[p*3+1], Pz: positions[p*3+2],
			Nx: normals[n*3], Ny: normals[n*3+1], Nz: normals[n*3+2],
			Tu: texCoords[t*2], Tv: texCoords[t*2+1],
		})
	}
	return vertices, nil
}

func (m *Mesh) sourceData(ref string, params int) ([]float32, error) {
	id := strings.TrimPrefix(ref, "#")
	for _, s := range m.Sources {
		if s.ID != id {
			continue
		}
		if len(s.Params) != params {
			return nil, fmt.Errorf("source %q has %d parameters, expected %d", id, len(s.Params), params)
		}
		return s.Floats, nil
	}
	return nil, fmt.Errorf("source %q not found", id)
}

func findInput(inputs []Input, semantic string) (Input, bool) {
	for _, in := range inputs {
		if in.Semantic == semantic {
			return in, true
		}
	}
	return Input{}, false
}
