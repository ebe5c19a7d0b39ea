// Package heap implements Apolo's ObjectHeap: the owner of every
// heap-allocated object (currently only interned strings) and the intern
// table that guarantees string identity.
package heap

import (
	"github.com/josharian/intern"

	"github.com/ogoncas/apolo/value"
)

// fnv1a32 hashes bytes with the 32-bit FNV-1a algorithm, matching the hash
// the intern table's open-addressed probing relies on.
func fnv1a32(s string) uint32 {
	const (
		offsetBasis uint32 = 2166136261
		prime       uint32 = 16777619
	)
	hash := offsetBasis
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= prime
	}
	return hash
}

const maxLoadFactor = 0.75

// ObjectHeap owns every live heap object and the intern table that
// deduplicates string allocations. Nothing is ever freed before teardown —
// Apolo has no garbage collector — so the owning slice doubles as the
// allocation list a tracing collector would otherwise walk.
type ObjectHeap struct {
	objects []*value.ObjString
	entries []*value.ObjString
	count   int // live entries, tombstones excluded (the intern table never tombstones)
}

// New returns an empty ObjectHeap with its intern table pre-sized.
func New() *ObjectHeap {
	h := &ObjectHeap{}
	h.entries = make([]*value.ObjString, 8)
	return h
}

// CopyString interns the given text, copying it into a fresh ObjString only
// on a miss. The returned pointer is stable for the lifetime of the heap.
func (h *ObjectHeap) CopyString(chars string) *value.ObjString {
	hash := fnv1a32(chars)
	if existing := h.findString(chars, hash); existing != nil {
		return existing
	}
	// intern.String deduplicates the Go string's backing storage across the
	// whole process, a layer below our own ObjString identity guarantee:
	// two ObjStrings can never alias, but their Chars fields can still share
	// one underlying byte array.
	obj := &value.ObjString{Chars: intern.String(chars), Hash: hash}
	h.insert(obj)
	h.objects = append(h.objects, obj)
	return obj
}

// TakeString interns text the caller already owns exclusively. On an intern
// hit the caller's copy is simply discarded (there is no separate buffer to
// free in a GC-less Go realization) and the existing object is returned.
func (h *ObjectHeap) TakeString(chars string) *value.ObjString {
	return h.CopyString(chars)
}

func (h *ObjectHeap) findString(chars string, hash uint32) *value.ObjString {
	if len(h.entries) == 0 {
		return nil
	}
	capacity := uint32(len(h.entries))
	index := hash % capacity
	for {
		entry := h.entries[index]
		if entry == nil {
			return nil
		}
		if entry.Hash == hash && entry.Chars == chars {
			return entry
		}
		index = (index + 1) % capacity
	}
}

func (h *ObjectHeap) insert(obj *value.ObjString) {
	if float64(h.count+1) > float64(len(h.entries))*maxLoadFactor {
		h.grow()
	}
	capacity := uint32(len(h.entries))
	index := obj.Hash % capacity
	for h.entries[index] != nil {
		index = (index + 1) % capacity
	}
	h.entries[index] = obj
	h.count++
}

func (h *ObjectHeap) grow() {
	oldEntries := h.entries
	h.entries = make([]*value.ObjString, len(oldEntries)*2)
	h.count = 0
	for _, entry := range oldEntries {
		if entry == nil {
			continue
		}
		capacity := uint32(len(h.entries))
		index := entry.Hash % capacity
		for h.entries[index] != nil {
			index = (index + 1) % capacity
		}
		h.entries[index] = entry
		h.count++
	}
}

// Len reports how many distinct objects the heap currently owns.
func (h *ObjectHeap) Len() int { return len(h.objects) }
