package assets

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestManager(t *testing.T) (*AssetManager, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shaders", "stock.vert.spv"), []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0})
	writeFile(t, filepath.Join(dir, "textures", "terrain.png"), pngBytes(t, 4, 4))
	writeFile(t, filepath.Join(dir, "README"), []byte("ignored"))
	am, err := NewAssetManager(dir, ModelOptions{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { am.Close() })
	return am, dir
}

func TestDetermineAssetType(t *testing.T) {
	tests := map[string]AssetType{
		"a.vert.spv":  AssetTypeShader,
		"a/b.JPG":     AssetTypeTexture,
		"c.webp":      AssetTypeTexture,
		"Cubes.dae":   AssetTypeModel,
		"Cubes.mdl":   AssetTypeModel,
		"config.toml": AssetTypeNone,
		"noext":       AssetTypeNone,
	}
	for path, want := range tests {
		if got := determineAssetType(path); got != want {
			t.Errorf("%s: got %s, want %s", path, got, want)
		}
	}
}

func TestIndexAssignsIDs(t *testing.T) {
	am, _ := newTestManager(t)
	if am.Len() != 2 {
		t.Fatalf("expected 2 indexed assets, got %d", am.Len())
	}
	info, ok := am.Lookup("shaders/stock.vert.spv")
	if !ok {
		t.Fatal("shader not indexed")
	}
	if info.Type != AssetTypeShader || info.ID == uuid.Nil {
		t.Errorf("unexpected index entry %+v", info)
	}
	again, _ := am.Lookup("shaders/stock.vert.spv")
	if again.ID != info.ID {
		t.Error("asset id must be stable")
	}
}

func TestTypedLoads(t *testing.T) {
	am, _ := newTestManager(t)

	shader, err := am.LoadShader("shaders/stock.vert.spv")
	if err != nil {
		t.Fatal(err)
	}
	if shader.Stage != resource.ShaderStageVertex || len(shader.Data) != 2 || shader.Data[0] != 0x07230203 {
		t.Errorf("unexpected shader %+v", shader)
	}

	texture, err := am.LoadTexture("textures/terrain.png")
	if err != nil {
		t.Fatal(err)
	}
	if texture.Width != 4 || texture.Height != 4 {
		t.Errorf("unexpected texture size %dx%d", texture.Width, texture.Height)
	}
	info, _ := am.Lookup("textures/terrain.png")
	if info.LastLoaded.IsZero() {
		t.Error("load time not recorded")
	}

	if _, err := am.LoadShader("textures/terrain.png"); !core.IsKind(err, core.KindUser) {
		t.Errorf("wrong type: expected user error, got %v", err)
	}
	if _, err := am.LoadTexture("textures/missing.png"); !core.IsKind(err, core.KindMissingResource) {
		t.Errorf("missing file: expected missing resource, got %v", err)
	}
}

func TestWatchReportsChanges(t *testing.T) {
	am, dir := newTestManager(t)
	changes := make(chan AssetInfo, 8)
	if err := am.Watch(func(info AssetInfo, removed bool) {
		if removed {
			return
		}
		select {
		case changes <- info:
		default:
		}
	}); err != nil {
		t.Fatal(err)
	}
	if err := am.Watch(nil); err == nil {
		t.Error("second watch must fail")
	}

	writeFile(t, filepath.Join(dir, "textures", "grass.png"), pngBytes(t, 2, 2))
	select {
	case info := <-changes:
		if info.Path != "textures/grass.png" || info.Type != AssetTypeTexture {
			t.Errorf("unexpected change %+v", info)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	if _, ok := am.Lookup("textures/grass.png"); !ok {
		t.Error("new file not indexed")
	}
	if err := am.Close(); err != nil {
		t.Fatal(err)
	}
}
