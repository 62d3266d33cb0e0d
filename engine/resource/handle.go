package resource

import "fmt"

// Handle is a 64-bit key: bits 0-31 hold the resource id, bits 32-47 a minor
// variation used for per-swapchain-image duplicates and bits 48-63 a reserved
// tag. Lookups compare all 64 bits.
type Handle uint64

const (
	variationShift = 32
	tagShift       = 48
)

// ForResource returns the handle of a resource that has a single instance.
func ForResource(id uint32) Handle {
	return Handle(id)
}

// WithMinorVariation returns the handle of one of several instances sharing
// a resource id, typically one per swapchain image.
func WithMinorVariation(id uint32, variation uint16) Handle {
	return Handle(uint64(id) | uint64(variation)<<variationShift)
}

// WithTag returns a copy of h carrying the given reserved tag.
func (h Handle) WithTag(tag uint16) Handle {
	return Handle(uint64(h)&^(uint64(0xFFFF)<<tagShift) | uint64(tag)<<tagShift)
}

func (h Handle) ID() uint32 {
	return uint32(h)
}

func (h Handle) Variation() uint16 {
	return uint16(h >> variationShift)
}

func (h Handle) Tag() uint16 {
	return uint16(h >> tagShift)
}

// MaxTableIndex is the highest resource id a table accepts. Tables are dense
// slices, so ids must stay small.
const MaxTableIndex = 1<<16 - 1

// TableIndex is the slot the handle occupies within its table.
func (h Handle) TableIndex() int {
	return int(h.ID())
}

func (h Handle) String() string {
	if h.Tag() != 0 {
		return fmt.Sprintf("%d.%d#%d", h.ID(), h.Variation(), h.Tag())
	}
	return fmt.Sprintf("%d.%d", h.ID(), h.Variation())
}
