package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
)

func TestClassifyImage(t *testing.T) {
	tests := []struct {
		usage    resource.ImageUsage
		format   resource.TexturePixelFormat
		vkFormat vk.Format
		layers   uint32
		layout   vk.ImageLayout
		initData bool
	}{
		{resource.DepthBuffer, resource.PixelFormatUnorm16, vk.FormatD16Unorm, 1, vk.ImageLayoutDepthStencilAttachmentOptimal, false},
		{resource.OffscreenRenderSampleColorWriteDepth, resource.PixelFormatRgba, vk.FormatR8g8b8a8Unorm, 1, vk.ImageLayoutColorAttachmentOptimal, false},
		{resource.OffscreenRenderSampleColorWriteDepth, resource.PixelFormatUnorm16, vk.FormatD16Unorm, 1, vk.ImageLayoutColorAttachmentOptimal, false},
		{resource.TextureSampleOnly, resource.PixelFormatRgba, vk.FormatR8g8b8a8Unorm, 1, vk.ImageLayoutShaderReadOnlyOptimal, true},
		{resource.Skybox, resource.PixelFormatRgba, vk.FormatR8g8b8a8Unorm, 6, vk.ImageLayoutShaderReadOnlyOptimal, true},
	}
	for _, tt := range tests {
		cfg, err := ClassifyImage(tt.usage, tt.format)
		if err != nil {
			t.Errorf("%s x %s: %v", tt.usage, tt.format, err)
			continue
		}
		if cfg.Format != tt.vkFormat || cfg.LayerCount != tt.layers || cfg.ExpectedLayout != tt.layout || cfg.RequiresInitData != tt.initData {
			t.Errorf("%s x %s: unexpected config %+v", tt.usage, tt.format, cfg)
		}
	}

	skybox, _ := ClassifyImage(resource.Skybox, resource.PixelFormatRgba)
	if skybox.ViewType != vk.ImageViewTypeCube || skybox.Flags&vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit) == 0 {
		t.Error("skybox must be a cube compatible image with a cube view")
	}

	for _, bad := range []struct {
		usage  resource.ImageUsage
		format resource.TexturePixelFormat
	}{
		{resource.DepthBuffer, resource.PixelFormatRgba},
		{resource.TextureSampleOnly, resource.PixelFormatUnorm16},
		{resource.Skybox, resource.PixelFormatNone},
	} {
		if _, err := ClassifyImage(bad.usage, bad.format); !core.IsKind(err, core.KindOpFailed) {
			t.Errorf("%s x %s: expected op failed, got %v", bad.usage, bad.format, err)
		}
	}
}

func TestCheckLayerData(t *testing.T) {
	texture, _ := ClassifyImage(resource.TextureSampleOnly, resource.PixelFormatRgba)
	if err := texture.checkLayerData(2, 2, [][]byte{make([]byte, 16)}); err != nil {
		t.Errorf("valid layer rejected: %v", err)
	}
	if err := texture.checkLayerData(2, 2, nil); !core.IsKind(err, core.KindUser) {
		t.Errorf("missing data: expected user error, got %v", err)
	}
	if err := texture.checkLayerData(2, 2, [][]byte{make([]byte, 15)}); !core.IsKind(err, core.KindUser) {
		t.Errorf("short data: expected user error, got %v", err)
	}

	skybox, _ := ClassifyImage(resource.Skybox, resource.PixelFormatRgba)
	layers := make([][]byte, 6)
	for i := range layers {
		layers[i] = make([]byte, 4)
	}
	if err := skybox.checkLayerData(1, 1, layers); err != nil {
		t.Errorf("valid cube rejected: %v", err)
	}
	if err := skybox.checkLayerData(1, 1, layers[:5]); !core.IsKind(err, core.KindUser) {
		t.Errorf("five faces: expected user error, got %v", err)
	}

	depth, _ := ClassifyImage(resource.DepthBuffer, resource.PixelFormatUnorm16)
	if err := depth.checkLayerData(1, 1, [][]byte{make([]byte, 4)}); !core.IsKind(err, core.KindUser) {
		t.Errorf("initialised attachment: expected user error, got %v", err)
	}
}
