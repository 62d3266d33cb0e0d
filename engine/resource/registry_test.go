package resource

import (
	"errors"
	"reflect"
	"testing"

	"github.com/spaghettifunk/glacier/engine/core"
)

// destroyLog is a loader that records what got released, in order.
type destroyLog struct {
	events []string
}

type fakeItem struct {
	name      string
	kind      Kind
	swapchain bool
}

func (f *fakeItem) Kind() Kind          { return f.kind }
func (f *fakeItem) UsesSwapchain() bool { return f.swapchain }
func (f *fakeItem) Release(l *destroyLog) {
	l.events = append(l.events, f.name)
}

type fakeBuffer struct{ fakeItem }
type fakeImage struct{ fakeItem }
type fakeShader struct{ fakeItem }
type fakeFramebuffer struct{ fakeItem }
type fakeRenderpass struct{ fakeItem }
type fakeSetLayout struct{ fakeItem }
type fakePipelineLayout struct{ fakeItem }
type fakePipeline struct{ fakeItem }

func buffer(name string) *fakeBuffer { return &fakeBuffer{fakeItem{name: name, kind: KindBuffer}} }

func TestNextIndexGuessIsSmallestFreeSlot(t *testing.T) {
	reg := NewRegistry[*destroyLog]()
	for i := 0; i < 3; i++ {
		if h := AddItem(reg, buffer("b")); h.TableIndex() != i {
			t.Fatalf("add %d landed at %d", i, h.TableIndex())
		}
	}
	if g := NextIndexGuess[*fakeBuffer](reg); g != 3 {
		t.Fatalf("guess after three adds = %d, want 3", g)
	}
	if _, ok := Remove[*fakeBuffer](reg, ForResource(0)); !ok {
		t.Fatal("remove failed")
	}
	if g := NextIndexGuess[*fakeBuffer](reg); g != 0 {
		t.Fatalf("guess after removing 0 = %d, want 0", g)
	}
	if h := AddItem(reg, buffer("b")); h.TableIndex() != 0 {
		t.Fatalf("hole not reused, got %d", h.TableIndex())
	}
	if g := NextIndexGuess[*fakeBuffer](reg); g != 3 {
		t.Fatalf("guess after filling the hole = %d, want 3", g)
	}
	AddItem(reg, buffer("b"))
	if g := NextIndexGuess[*fakeBuffer](reg); g != 4 {
		t.Fatalf("guess = %d, want 4", g)
	}
}

func TestRemoveHighThenLow(t *testing.T) {
	reg := NewRegistry[*destroyLog]()
	for i := 0; i < 5; i++ {
		AddItem(reg, buffer("b"))
	}
	Remove[*fakeBuffer](reg, ForResource(3))
	Remove[*fakeBuffer](reg, ForResource(1))
	if g := NextIndexGuess[*fakeBuffer](reg); g != 1 {
		t.Fatalf("guess = %d, want 1", g)
	}
	AddItem(reg, buffer("b"))
	if g := NextIndexGuess[*fakeBuffer](reg); g != 3 {
		t.Fatalf("guess = %d, want 3", g)
	}
}

func TestLookupIsTypeSafe(t *testing.T) {
	reg := NewRegistry[*destroyLog]()
	h := AddItem(reg, buffer("vbo"))
	if b, ok := Get[*fakeBuffer](reg, h); !ok || b.name != "vbo" {
		t.Fatal("buffer not found")
	}
	if _, ok := Get[*fakeImage](reg, h); ok {
		t.Fatal("buffer handle resolved as an image")
	}
	if _, ok := Get[*fakeBuffer](reg, ForResource(7)); ok {
		t.Fatal("absent id resolved")
	}
	if _, ok := Get[*fakeBuffer](reg, WithMinorVariation(0, 1)); ok {
		t.Fatal("variation 1 resolved to variation 0")
	}
	_, err := MustGet[*fakeImage](reg, h)
	if !core.IsKind(err, core.KindMissingResource) {
		t.Fatalf("expected MissingResource, got %v", err)
	}
}

func TestPushNewWithHandle(t *testing.T) {
	reg := NewRegistry[*destroyLog]()
	h := WithMinorVariation(5, 2)
	if err := PushNewWithHandle(reg, h, buffer("late")); err != nil {
		t.Fatal(err)
	}
	if b, ok := Get[*fakeBuffer](reg, h); !ok || b.name != "late" {
		t.Fatal("explicit handle not found")
	}

	err := PushNewWithHandle(reg, h, buffer("again"))
	if !errors.Is(err, core.ErrDoubleInsert) || !core.IsKind(err, core.KindEngine) {
		t.Fatalf("expected a double insert engine error, got %v", err)
	}

	// Filler slots stay free for AddItem.
	if err := PushNewWithHandle(reg, ForResource(2), buffer("two")); err != nil {
		t.Fatal(err)
	}
	if h := AddItem(reg, buffer("zero")); h.TableIndex() != 0 {
		t.Fatalf("add after explicit insert landed at %d", h.TableIndex())
	}
	if h := AddItem(reg, buffer("one")); h.TableIndex() != 1 {
		t.Fatalf("add landed at %d", h.TableIndex())
	}
	if h := AddItem(reg, buffer("three")); h.TableIndex() != 3 {
		t.Fatalf("add skipped over the explicit slot incorrectly: %d", h.TableIndex())
	}
}

func TestPushNewWithHandleBoundsTheIndex(t *testing.T) {
	reg := NewRegistry[*destroyLog]()
	for _, id := range []uint32{MaxTableIndex + 1, 1<<32 - 1} {
		err := PushNewWithHandle(reg, ForResource(id), buffer("huge"))
		if !core.IsKind(err, core.KindUser) {
			t.Fatalf("id %d: expected user error, got %v", id, err)
		}
	}
	if reg.Len() != 0 {
		t.Fatalf("rejected ids left %d items", reg.Len())
	}
	if err := PushNewWithHandle(reg, ForResource(MaxTableIndex), buffer("last")); err != nil {
		t.Fatalf("highest id rejected: %v", err)
	}
}

func TestReleaseAllOrder(t *testing.T) {
	reg := NewRegistry[*destroyLog]()
	// Insert in dependency order, which is the opposite of release order.
	AddItem(reg, buffer("buffer"))
	AddItem(reg, &fakeImage{fakeItem{name: "image", kind: KindImage}})
	AddItem(reg, &fakeShader{fakeItem{name: "shader", kind: KindShader}})
	AddItem(reg, &fakeSetLayout{fakeItem{name: "set layout", kind: KindDescriptorSetLayout}})
	AddItem(reg, &fakeFramebuffer{fakeItem{name: "framebuffer", kind: KindFramebuffer}})
	PushNewWithHandle(reg, WithMinorVariation(0, 1), &fakeRenderpass{fakeItem{name: "renderpass", kind: KindRenderpass}})
	AddItem(reg, &fakePipelineLayout{fakeItem{name: "pipeline layout", kind: KindPipelineLayout}})
	PushNewWithHandle(reg, WithMinorVariation(0, 1), &fakePipeline{fakeItem{name: "pipeline", kind: KindPipeline}})

	log := &destroyLog{}
	reg.ReleaseAll(log)
	want := []string{"pipeline", "pipeline layout", "renderpass", "framebuffer", "set layout", "shader", "image", "buffer"}
	if !reflect.DeepEqual(log.events, want) {
		t.Fatalf("release order\n got %v\nwant %v", log.events, want)
	}
	if reg.Len() != 0 {
		t.Fatalf("%d items survived ReleaseAll", reg.Len())
	}
	if _, ok := Get[*fakeBuffer](reg, ForResource(0)); ok {
		t.Fatal("lookup after ReleaseAll succeeded")
	}
}

func TestReleaseDynamicKeepsStaticSlots(t *testing.T) {
	reg := NewRegistry[*destroyLog]()
	vbo := buffer("vbo")
	AddItem(reg, buffer("spare"))
	vboHandle := AddItem(reg, vbo)
	for i := uint16(0); i < 3; i++ {
		PushNewWithHandle(reg, WithMinorVariation(0, i), &fakeRenderpass{fakeItem{name: "swapchain pass", kind: KindRenderpass, swapchain: true}})
	}
	PushNewWithHandle(reg, ForResource(1), &fakeRenderpass{fakeItem{name: "offscreen pass", kind: KindRenderpass}})

	log := &destroyLog{}
	if n := reg.ReleaseDynamic(log); n != 3 {
		t.Fatalf("released %d, want 3", n)
	}
	if got, ok := Get[*fakeBuffer](reg, vboHandle); !ok || got != vbo {
		t.Fatal("static buffer moved or was released")
	}
	if _, ok := Get[*fakeRenderpass](reg, ForResource(1)); !ok {
		t.Fatal("offscreen renderpass was released")
	}
	if _, ok := Get[*fakeRenderpass](reg, WithMinorVariation(0, 2)); ok {
		t.Fatal("swapchain renderpass survived")
	}
}
