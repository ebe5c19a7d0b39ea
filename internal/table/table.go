// Package table implements the open-addressed hash table the VM uses for
// its global-variable namespace: keys are interned *value.ObjString
// pointers (reference equality, safe because of interning), values are
// value.Value. Unlike the intern table in package heap, this table supports
// deletion, so it carries tombstones: a probe sequence must continue past a
// deleted slot exactly as it would past a live one, or entries inserted
// after a now-deleted collision would be stranded.
package table

import "github.com/ogoncas/apolo/value"

const maxLoadFactor = 0.75

type entry struct {
	key            *value.ObjString
	val            value.Value
	tombstonedSlot bool
}

// Table is the globals namespace: interned-string keys to Values.
type Table struct {
	entries []entry
	count   int // live entries + tombstones, for the load-factor check
}

// New returns an empty Table.
func New() *Table {
	return &Table{entries: make([]entry, 8)}
}

func (t *Table) findEntry(entries []entry, key *value.ObjString) int {
	capacity := uint32(len(entries))
	index := key.Hash % capacity
	var tombstoneIndex int = -1
	for {
		e := &entries[index]
		if e.key == nil {
			if !e.tombstonedSlot {
				if tombstoneIndex != -1 {
					return tombstoneIndex
				}
				return int(index)
			}
			if tombstoneIndex == -1 {
				tombstoneIndex = int(index)
			}
		} else if e.key == key {
			return int(index)
		}
		index = (index + 1) % capacity
	}
}

func (t *Table) grow(newCapacity int) {
	newEntries := make([]entry, newCapacity)
	t.count = 0
	for i := range t.entries {
		old := &t.entries[i]
		if old.key == nil {
			continue
		}
		idx := t.findEntry(newEntries, old.key)
		newEntries[idx] = entry{key: old.key, val: old.val}
		t.count++
	}
	t.entries = newEntries
}

// Set inserts or updates key → val. Returns true if this created a new
// entry (key was previously absent).
func (t *Table) Set(key *value.ObjString, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoadFactor {
		t.grow(len(t.entries) * 2)
	}

	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	isNew := e.key == nil
	if isNew && !e.tombstonedSlot {
		t.count++
	}

	e.key = key
	e.val = val
	e.tombstonedSlot = false
	return isNew
}

// Get looks up key, returning the value and whether it was present.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Nil, false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return value.Nil, false
	}
	return e.val, true
}

// Delete removes key, leaving a tombstone behind so later probes still find
// entries that landed past this slot due to collision. Returns whether the
// key was present.
func (t *Table) Delete(key *value.ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return false
	}
	e.key = nil
	e.val = value.Nil
	e.tombstonedSlot = true
	return true
}

// Has reports whether key is present, without returning its value.
func (t *Table) Has(key *value.ObjString) bool {
	_, ok := t.Get(key)
	return ok
}
