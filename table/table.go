// Package table implements the open-addressed, linear-probed, tombstoned
// hash table used for both the VM's globals map and its string-interning
// set. Ported from the reference interpreter's table.py; Go's built-in map
// cannot serve here because interning and tableFindString both need
// probe-order control and pointer-identity comparisons against entries
// mid-probe, which a built-in map does not expose.
package table

import "github.com/nilox-lang/nilox/value"

const maxLoad = 0.75

// Entry is one bucket. A bucket is empty when Key == nil and Value is nil,
// tombstoned when Key == nil and Value is anything but nil (Delete writes
// the boolean true), and live otherwise.
type Entry struct {
	Key   *value.ObjString
	Value value.Value
}

func (e Entry) isEmpty() bool {
	return e.Key == nil && e.Value.IsNil()
}

func (e Entry) isTombstone() bool {
	return e.Key == nil && !e.Value.IsNil()
}

// Table is the hash table itself. The zero value is ready to use.
type Table struct {
	count    int
	entries  []Entry
	capacity int
}

func tombstone() value.Value { return value.BoolVal(true) }

func findEntry(entries []Entry, capacity int, key *value.ObjString) int {
	index := int(key.Hash) & (capacity - 1)
	tombstoneIdx := -1
	for {
		entry := &entries[index]
		switch {
		case entry.isEmpty():
			if tombstoneIdx != -1 {
				return tombstoneIdx
			}
			return index
		case entry.Key == key:
			return index
		case entry.isTombstone():
			if tombstoneIdx == -1 {
				tombstoneIdx = index
			}
		}
		index = (index + 1) & (capacity - 1)
	}
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]Entry, capacity)
	t.count = 0
	for i := range t.entries {
		old := t.entries[i]
		if old.Key == nil {
			continue
		}
		idx := findEntry(entries, capacity, old.Key)
		entries[idx].Key = old.Key
		entries[idx].Value = old.Value
		t.count++
	}
	t.entries = entries
	t.capacity = capacity
}

// Set stores value under key, growing the table first if needed. It
// reports whether key was not already present.
func (t *Table) Set(key *value.ObjString, val value.Value) (wasNew bool) {
	if float64(t.count+1) > float64(t.capacity)*maxLoad {
		capacity := 8
		if t.capacity > 0 {
			capacity = 2 * t.capacity
		}
		t.adjustCapacity(capacity)
	}

	idx := findEntry(t.entries, t.capacity, key)
	entry := &t.entries[idx]
	wasNew = entry.Key == nil
	if wasNew && entry.Value.IsNil() {
		t.count++
	}
	entry.Key = key
	entry.Value = val
	return wasNew
}

// Get looks up key, returning its value and whether it was found.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if t.count == 0 {
		return value.Value{}, false
	}
	idx := findEntry(t.entries, t.capacity, key)
	entry := &t.entries[idx]
	if entry.Key == nil {
		return value.Value{}, false
	}
	return entry.Value, true
}

// Delete places a tombstone at key's bucket, preserving probe chains.
// Tombstones count toward load factor and are never reclaimed except by
// a subsequent grow.
func (t *Table) Delete(key *value.ObjString) bool {
	if t.count == 0 {
		return false
	}
	idx := findEntry(t.entries, t.capacity, key)
	entry := &t.entries[idx]
	if entry.Key == nil {
		return false
	}
	entry.Key = nil
	entry.Value = tombstone()
	return true
}

// FindString is the one place structural byte comparison happens; every
// other equality check in the system is pointer identity. Used only by the
// interning path to decide whether a fresh ObjString is actually needed.
func (t *Table) FindString(chars string, length int, hash uint32) *value.ObjString {
	if t.count == 0 {
		return nil
	}
	index := int(hash) & (t.capacity - 1)
	for {
		entry := &t.entries[index]
		switch {
		case entry.isEmpty():
			return nil
		case entry.Key != nil &&
			entry.Key.Length == length &&
			entry.Key.Hash == hash &&
			entry.Key.Chars == chars:
			return entry.Key
		}
		index = (index + 1) & (t.capacity - 1)
	}
}

// Count returns the number of live entries plus tombstones currently
// occupying a slot (matches the reference interpreter's accounting).
func (t *Table) Count() int { return t.count }
