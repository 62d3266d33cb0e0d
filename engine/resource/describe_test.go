package resource

import (
	"testing"

	"github.com/spaghettifunk/glacier/engine/core"
)

func TestHandleFields(t *testing.T) {
	h := WithMinorVariation(0xDEADBEEF, 7).WithTag(3)
	if h.ID() != 0xDEADBEEF || h.Variation() != 7 || h.Tag() != 3 {
		t.Fatalf("fields lost: %s", h)
	}
	if ForResource(9) != WithMinorVariation(9, 0) {
		t.Fatal("ForResource must be variation 0")
	}
	if h.WithTag(0).Tag() != 0 || h.WithTag(0).Variation() != 7 {
		t.Fatal("WithTag must only replace the tag")
	}
	if ForResource(1) == WithMinorVariation(1, 1) {
		t.Fatal("handles must compare all 64 bits")
	}
}

func TestComplexRenderpassID(t *testing.T) {
	d := RenderpassCreationData{Target: SwapchainTarget(), SwapchainImageIndex: 2}
	id, err := d.EncodeComplexRenderpassID(5, 1024, 768)
	if err != nil {
		t.Fatal(err)
	}
	want := uint64(5) | uint64(1024)<<16 | uint64(768)<<32 | 1<<48 | uint64(2)<<49
	if id != want {
		t.Fatalf("got %#x, want %#x", id, want)
	}
	if !IDUsesSwapchain(id) || ExtractID(id) != 5 {
		t.Fatal("swapchain id decoded incorrectly")
	}

	d = RenderpassCreationData{Target: OffscreenTarget(0, 256, 128)}
	id, err = d.EncodeComplexRenderpassID(5, 1024, 768)
	if err != nil {
		t.Fatal(err)
	}
	if IDUsesSwapchain(id) {
		t.Fatal("offscreen renderpass flagged as swapchain bound")
	}
	if w, h := (id>>16)&0xFFFF, (id>>32)&0xFFFF; w != 256 || h != 128 {
		t.Fatalf("offscreen extent %dx%d", w, h)
	}

	if _, err := d.EncodeComplexRenderpassID(0x10000, 1, 1); !core.IsKind(err, core.KindUser) {
		t.Fatalf("expected a user error, got %v", err)
	}
}

func TestComplexPipelineID(t *testing.T) {
	d := PipelineCreationData{RenderpassIndex: 3, SwapchainImageIndex: 1}
	id, err := d.EncodeComplexPipelineID(9)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractID(id) != 9 || ExtractRenderpassID(id) != 3 || (id>>32)&0xF != 1 {
		t.Fatalf("decoded %#x incorrectly", id)
	}
	if IDUsesSwapchain(id) {
		t.Fatal("pipeline ids carry no swapchain bit")
	}
	if _, err := d.EncodeComplexPipelineID(0x10000); err == nil {
		t.Fatal("expected an error for an oversized id")
	}
}
