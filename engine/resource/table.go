package resource

import (
	"reflect"
)

// tableKey separates tables by concrete type, variation and tag, so that a
// handle only ever resolves inside the table it was inserted into.
type tableKey struct {
	typ       reflect.Type
	variation uint16
	tag       uint16
}

type table[L any] struct {
	kind           Kind
	seq            int
	items          []Resource[L]
	nextIndexGuess int
}

func newTable[L any](kind Kind, seq int) *table[L] {
	return &table[L]{kind: kind, seq: seq}
}

// obtainNextIndex returns the slot pointed at by the guess, growing the table
// when the guess lies past its end.
func (t *table[L]) obtainNextIndex() int {
	index := t.nextIndexGuess
	if index >= len(t.items) {
		t.grow(index + 1)
	}
	return index
}

func (t *table[L]) grow(length int) {
	for len(t.items) < length {
		t.items = append(t.items, nil)
	}
}

// advanceGuess moves the guess to the smallest free slot at or after from.
func (t *table[L]) advanceGuess(from int) {
	for i := from; i < len(t.items); i++ {
		if t.items[i] == nil {
			t.nextIndexGuess = i
			return
		}
	}
	t.nextIndexGuess = len(t.items)
}

func (t *table[L]) push(item Resource[L]) int {
	index := t.obtainNextIndex()
	t.items[index] = item
	t.advanceGuess(index + 1)
	return index
}

func (t *table[L]) pushAt(index int, item Resource[L]) bool {
	if index >= len(t.items) {
		t.grow(index + 1)
	}
	if t.items[index] != nil {
		return false
	}
	t.items[index] = item
	if index == t.nextIndexGuess {
		t.advanceGuess(index + 1)
	}
	return true
}

func (t *table[L]) get(index int) Resource[L] {
	if index < 0 || index >= len(t.items) {
		return nil
	}
	return t.items[index]
}

func (t *table[L]) remove(index int) Resource[L] {
	item := t.get(index)
	if item == nil {
		return nil
	}
	t.items[index] = nil
	if index < t.nextIndexGuess {
		t.nextIndexGuess = index
	}
	return item
}

func (t *table[L]) live() int {
	n := 0
	for _, item := range t.items {
		if item != nil {
			n++
		}
	}
	return n
}

func (t *table[L]) freeAll(loader L) {
	for i, item := range t.items {
		if item != nil {
			item.Release(loader)
			t.items[i] = nil
		}
	}
	t.items = nil
	t.nextIndexGuess = 0
}
