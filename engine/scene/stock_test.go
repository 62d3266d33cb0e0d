package scene

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/glacier/engine/assets"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/model"
	"github.com/spaghettifunk/glacier/engine/resource"
	"github.com/spaghettifunk/glacier/engine/systems"
)

const quadCollada = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="Quad-mesh" name="Quad">
      <mesh>
        <source id="Quad-mesh-positions">
          <float_array id="Quad-mesh-positions-array" count="12">0 0 0 1 0 0 1 1 0 0 1 0</float_array>
          <technique_common>
            <accessor source="#Quad-mesh-positions-array" count="4" stride="3">
              <param name="X" type="float"/><param name="Y" type="float"/><param name="Z" type="float"/>
            </accessor>
          </technique_common>
        </source>
        <source id="Quad-mesh-normals">
          <float_array id="Quad-mesh-normals-array" count="3">0 0 1</float_array>
          <technique_common>
            <accessor source="#Quad-mesh-normals-array" count="1" stride="3">
              <param name="X" type="float"/><param name="Y" type="float"/><param name="Z" type="float"/>
            </accessor>
          </technique_common>
        </source>
        <source id="Quad-mesh-map-0">
          <float_array id="Quad-mesh-map-0-array" count="8">0 0 1 0 1 1 0 1</float_array>
          <technique_common>
            <accessor source="#Quad-mesh-map-0-array" count="4" stride="2">
              <param name="S" type="float"/><param name="T" type="float"/>
            </accessor>
          </technique_common>
        </source>
        <vertices id="Quad-mesh-vertices">
          <input semantic="POSITION" source="#Quad-mesh-positions"/>
        </vertices>
        <triangles material="Material-material" count="2">
          <input semantic="VERTEX" source="#Quad-mesh-vertices" offset="0"/>
          <input semantic="NORMAL" source="#Quad-mesh-normals" offset="1"/>
          <input semantic="TEXCOORD" source="#Quad-mesh-map-0" offset="2" set="0"/>
          <p>0 0 0 1 0 1 2 0 2 0 0 0 2 0 2 3 0 3</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func testBearer() *StockResourceBearer {
	return NewStockResourceBearer(
		model.New("Cubes", []model.StaticVertex{model.DefaultVertex(), model.DefaultVertex(), model.DefaultVertex()}),
		&resource.TextureCreationData{LayerData: [][]byte{make([]byte, 16)}, Width: 2, Height: 2, Format: resource.PixelFormatRgba},
		&resource.ShaderCreationData{Data: []uint32{0x07230203}, Stage: resource.ShaderStageVertex},
		&resource.ShaderCreationData{Data: []uint32{0x07230203}, Stage: resource.ShaderStageFragment},
	)
}

func TestStockBearerDescribesResources(t *testing.T) {
	b := testBearer()

	vbo, err := b.RawModelData(vboIndexScene)
	if err != nil {
		t.Fatal(err)
	}
	if vbo.VertexCount != 3 || vbo.Usage != resource.InitialiseOnceVertexBuffer {
		t.Errorf("unexpected vbo %+v", vbo)
	}
	vs, _ := b.RawShaderData(shaderIndexVertex)
	fs, _ := b.RawShaderData(shaderIndexFragment)
	if vs.Stage != resource.ShaderStageVertex || fs.Stage != resource.ShaderStageFragment {
		t.Error("shader ids swapped")
	}

	rp, err := b.RawRenderpassData(renderpassIndexMain, 2)
	if err != nil {
		t.Fatal(err)
	}
	if rp.Target.Kind != resource.SwapchainImageWithDepth || rp.SwapchainImageIndex != 2 {
		t.Errorf("unexpected renderpass %+v", rp)
	}

	p, err := b.RawPipelineData(pipelineIndexMain, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.VboStrideBytes != model.VertexSizeBytes || p.UboSizeBytes != 64 || p.SwapchainImageIndex != 1 {
		t.Errorf("unexpected pipeline %+v", p)
	}
	if p.VboIndex != p.VertexShaderIndex {
		t.Error("the vertex shader is resolved through the vbo index, both must match")
	}

	for name, err := range map[string]error{
		"model":     func() error { _, err := b.RawModelData(1); return err }(),
		"texture":   func() error { _, err := b.RawTextureData(1); return err }(),
		"shader":    func() error { _, err := b.RawShaderData(2); return err }(),
		"offscreen": func() error { _, err := b.RawOffscreenFramebufferData(0); return err }(),
		"pipeline":  func() error { _, err := b.RawPipelineData(3, 0); return err }(),
	} {
		if !core.IsKind(err, core.KindMissingResource) {
			t.Errorf("%s: expected missing resource, got %v", name, err)
		}
	}
}

func TestStockSceneUpdate(t *testing.T) {
	s := NewStockScene(testBearer())
	if s.ResourceBearer() == nil {
		t.Fatal("no bearer")
	}
	if len(s.ubo.bytes()) != stockUboSizeBytes {
		t.Fatalf("ubo is %d bytes, want %d", len(s.ubo.bytes()), stockUboSizeBytes)
	}

	s.Update(0, 0, 0)
	want := s.camera.ProjectionMatrix().Mul4(s.camera.ViewMatrix())
	if !s.MVP().ApproxEqual(want) {
		t.Errorf("mvp %v, want %v", s.MVP(), want)
	}

	s.Update(500, 0, 0)
	want = s.camera.ProjectionMatrix().Mul4(s.camera.ViewMatrix()).Mul4(mgl32.HomogRotate3DY(0.5))
	if !s.MVP().ApproxEqual(want) {
		t.Errorf("mvp after 500ms %v, want %v", s.MVP(), want)
	}
}

func TestLoadStockResourceBearer(t *testing.T) {
	dir := t.TempDir()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 4))); err != nil {
		t.Fatal(err)
	}
	files := map[string][]byte{
		"models/Quad.dae":        []byte(quadCollada),
		"textures/terrain.png":   img.Bytes(),
		"shaders/stock.vert.spv": spirvHeader,
		"shaders/stock.frag.spv": spirvHeader,
	}
	for name, data := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	am, err := assets.NewAssetManager(dir, assets.ModelOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer am.Close()
	js, err := systems.NewJobSystem(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	stock := DefaultStockAssets
	stock.Model = "models/Quad.dae"
	b, err := LoadStockResourceBearer(am, js, stock)
	if err != nil {
		t.Fatal(err)
	}
	vbo, _ := b.RawModelData(vboIndexScene)
	if vbo.VertexCount != 6 {
		t.Errorf("expected 6 vertices, got %d", vbo.VertexCount)
	}
	tex, _ := b.RawTextureData(textureIndexTerrain)
	if tex.Width != 8 || tex.Height != 4 {
		t.Errorf("unexpected texture %dx%d", tex.Width, tex.Height)
	}

	swapped := stock
	swapped.VertexShader, swapped.FragmentShader = stock.FragmentShader, stock.VertexShader
	if _, err := LoadStockResourceBearer(am, js, swapped); !core.IsKind(err, core.KindUser) {
		t.Errorf("expected user error for swapped shaders, got %v", err)
	}
}
