// Package resource is a typed, handle-indexed store for GPU resources. It
// keeps one dense table per concrete resource type and releases tables in
// reverse dependency order.
package resource

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/spaghettifunk/glacier/engine/core"
)

// Kind orders resources for release. Lower kinds are released first: a kind
// may depend on any higher kind, never on a lower one.
type Kind int

const (
	KindPipeline Kind = iota
	KindPipelineLayout
	KindRenderpass
	KindFramebuffer
	KindDescriptorSetLayout
	KindShader
	KindImage
	KindBuffer
)

func (k Kind) String() string {
	switch k {
	case KindPipeline:
		return "pipeline"
	case KindPipelineLayout:
		return "pipeline layout"
	case KindRenderpass:
		return "renderpass"
	case KindFramebuffer:
		return "framebuffer"
	case KindDescriptorSetLayout:
		return "descriptor set layout"
	case KindShader:
		return "shader"
	case KindImage:
		return "image"
	case KindBuffer:
		return "buffer"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Resource is anything the registry can own. L is the loader that created it
// and that is needed to release it.
type Resource[L any] interface {
	Kind() Kind
	Release(loader L)
}

// SwapchainBound is implemented by resources whose validity may be tied to
// the current swapchain.
type SwapchainBound interface {
	UsesSwapchain() bool
}

// Registry owns every registered resource. Insertion and removal take the
// write lock; lookups take the read lock so recording can run alongside
// other readers.
type Registry[L any] struct {
	mutex  sync.RWMutex
	tables map[tableKey]*table[L]
	seq    int
}

func NewRegistry[L any]() *Registry[L] {
	return &Registry[L]{
		tables: make(map[tableKey]*table[L]),
	}
}

func keyFor[T any](h Handle) tableKey {
	return tableKey{
		typ:       reflect.TypeFor[T](),
		variation: h.Variation(),
		tag:       h.Tag(),
	}
}

func (r *Registry[L]) tableFor(key tableKey, kind Kind, create bool) *table[L] {
	t, ok := r.tables[key]
	if !ok && create {
		t = newTable[L](kind, r.seq)
		r.seq++
		r.tables[key] = t
	}
	return t
}

// AddItem stores item in the first free slot of its type's table.
func AddItem[T Resource[L], L any](r *Registry[L], item T) Handle {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	t := r.tableFor(keyFor[T](0), item.Kind(), true)
	return ForResource(uint32(t.push(item)))
}

// PushNewWithHandle stores item at the slot named by h. The table grows as
// needed; an occupied slot or an id above MaxTableIndex is an error.
func PushNewWithHandle[T Resource[L], L any](r *Registry[L], h Handle, item T) error {
	return r.pushAt(keyFor[T](h), h, item)
}

// pushErased inserts an item whose concrete type is only known at runtime.
func (r *Registry[L]) pushErased(h Handle, item Resource[L]) error {
	key := tableKey{typ: reflect.TypeOf(item), variation: h.Variation(), tag: h.Tag()}
	return r.pushAt(key, h, item)
}

func (r *Registry[L]) pushAt(key tableKey, h Handle, item Resource[L]) error {
	if h.TableIndex() > MaxTableIndex {
		err := core.UserError("%s %s: id exceeds %d", item.Kind(), h, MaxTableIndex)
		core.LogError(err.Error())
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	t := r.tableFor(key, item.Kind(), true)
	if !t.pushAt(h.TableIndex(), item) {
		err := core.Wrap(core.KindEngine, core.ErrDoubleInsert, "%s %s", item.Kind(), h)
		core.LogError(err.Error())
		return err
	}
	return nil
}

// Get returns the item of type T at h. It reports false when nothing of
// that type lives there.
func Get[T Resource[L], L any](r *Registry[L], h Handle) (T, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var zero T
	t := r.tableFor(keyFor[T](h), 0, false)
	if t == nil {
		return zero, false
	}
	item, ok := t.get(h.TableIndex()).(T)
	if !ok {
		return zero, false
	}
	return item, true
}

// MustGet is Get with a MissingResource error instead of a boolean.
func MustGet[T Resource[L], L any](r *Registry[L], h Handle) (T, error) {
	item, ok := Get[T](r, h)
	if !ok {
		return item, core.MissingResource("no %s at %s", reflect.TypeFor[T](), h)
	}
	return item, nil
}

// Remove takes the item of type T at h out of the registry without releasing
// it.
func Remove[T Resource[L], L any](r *Registry[L], h Handle) (T, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var zero T
	t := r.tableFor(keyFor[T](h), 0, false)
	if t == nil {
		return zero, false
	}
	if _, ok := t.get(h.TableIndex()).(T); !ok {
		return zero, false
	}
	item, _ := t.remove(h.TableIndex()).(T)
	return item, true
}

// NextIndexGuess is the slot AddItem would use next for T, which is always the
// smallest free slot of the table.
func NextIndexGuess[T Resource[L], L any](r *Registry[L]) int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	t := r.tableFor(keyFor[T](0), 0, false)
	if t == nil {
		return 0
	}
	return t.nextIndexGuess
}

// Len counts the live items across all tables.
func (r *Registry[L]) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	n := 0
	for _, t := range r.tables {
		n += t.live()
	}
	return n
}

// orderedKeys lists tables by kind, then by creation order.
func (r *Registry[L]) orderedKeys() []tableKey {
	keys := make([]tableKey, 0, len(r.tables))
	for k := range r.tables {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := r.tables[keys[i]], r.tables[keys[j]]
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		return a.seq < b.seq
	})
	return keys
}

// ReleaseWhere releases and removes every item for which pred holds, walking
// tables in release order. It returns the number of items released.
func (r *Registry[L]) ReleaseWhere(loader L, pred func(h Handle, item Resource[L]) bool) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	released := 0
	for _, key := range r.orderedKeys() {
		t := r.tables[key]
		for i, item := range t.items {
			if item == nil {
				continue
			}
			h := WithMinorVariation(uint32(i), key.variation).WithTag(key.tag)
			if !pred(h, item) {
				continue
			}
			t.remove(i)
			item.Release(loader)
			released++
		}
	}
	return released
}

// ReleaseDynamic releases every item whose validity ends with the current
// swapchain.
func (r *Registry[L]) ReleaseDynamic(loader L) int {
	n := r.ReleaseWhere(loader, func(_ Handle, item Resource[L]) bool {
		sb, ok := item.(SwapchainBound)
		return ok && sb.UsesSwapchain()
	})
	core.LogDebug("released %d swapchain dependent resources", n)
	return n
}

// ReleaseAll releases everything in release order and empties the registry.
func (r *Registry[L]) ReleaseAll(loader L) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, key := range r.orderedKeys() {
		r.tables[key].freeAll(loader)
	}
	r.tables = make(map[tableKey]*table[L])
}
