package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

func TestSwapchainImageRequest(t *testing.T) {
	tests := []struct {
		name     string
		min, max uint32
		want     uint32
		kind     core.Kind
		fails    bool
	}{
		{name: "single image surface", min: 1, max: 8, want: 2},
		{name: "double buffering", min: 2, max: 8, want: 2},
		{name: "triple buffering", min: 3, max: 3, want: 3},
		{name: "unbounded", min: 2, max: 0, want: 2},
		{name: "at most one image", min: 1, max: 1, fails: true, kind: core.KindOpFailed},
		{name: "needs four images", min: 4, max: 8, fails: true, kind: core.KindOpFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := swapchainImageRequest(tt.min, tt.max)
			if tt.fails {
				if !core.IsKind(err, tt.kind) {
					t.Fatalf("expected %s error, got %v", tt.kind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("requested %d images, want %d", got, tt.want)
			}
		})
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	got, err := chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred})
	if err != nil {
		t.Fatal(err)
	}
	if got != preferred {
		t.Errorf("got format %d, want B8G8R8A8_UNORM", got.Format)
	}

	got, err = chooseSurfaceFormat([]vk.SurfaceFormat{other})
	if err != nil {
		t.Fatal(err)
	}
	if got != other {
		t.Errorf("expected the first format as fallback, got %d", got.Format)
	}

	if _, err := chooseSurfaceFormat(nil); !core.IsKind(err, core.KindCompatibility) {
		t.Errorf("expected compatibility error, got %v", err)
	}
}

func TestChoosePresentModeRequiresFifo(t *testing.T) {
	got, err := choosePresentMode([]vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeFifo})
	if err != nil {
		t.Fatal(err)
	}
	if got != vk.PresentModeFifo {
		t.Errorf("got present mode %d, want FIFO", got)
	}
	if _, err := choosePresentMode([]vk.PresentMode{vk.PresentModeMailbox}); !core.IsKind(err, core.KindCompatibility) {
		t.Errorf("expected compatibility error, got %v", err)
	}
}

func TestChooseExtent(t *testing.T) {
	minE := vk.Extent2D{Width: 100, Height: 100}
	maxE := vk.Extent2D{Width: 1000, Height: 800}

	current := vk.Extent2D{Width: 640, Height: 480}
	if got := chooseExtent(current, minE, maxE, 10, 10); got != current {
		t.Errorf("current extent must win, got %dx%d", got.Width, got.Height)
	}

	undefined := vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	got := chooseExtent(undefined, minE, maxE, 1920, 50)
	if got.Width != 1000 || got.Height != 100 {
		t.Errorf("expected clamped 1000x100, got %dx%d", got.Width, got.Height)
	}
	got = chooseExtent(undefined, minE, maxE, 300, 200)
	if got.Width != 300 || got.Height != 200 {
		t.Errorf("expected window size 300x200, got %dx%d", got.Width, got.Height)
	}
}

func TestIsOutOfDate(t *testing.T) {
	if !isOutOfDate(vk.Suboptimal) || !isOutOfDate(vk.ErrorOutOfDate) {
		t.Error("suboptimal and out of date must both trigger a rebuild")
	}
	if isOutOfDate(vk.Success) {
		t.Error("success must not trigger a rebuild")
	}
}
