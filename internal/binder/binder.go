// Package binder assigns stable integer identifiers to arrays and
// intermediate values within one mapping pass, so the same array handle
// reused at multiple positions in an expression receives the same name.
package binder

import (
	"strconv"

	"symcore/internal/expr"
)

// Binder maintains the id counters and the array-identity table the map
// functor consults while building a mapping. One Binder belongs to
// exactly one mapping pass.
type Binder struct {
	next     uint
	assigned map[expr.ArrayHandle]uint
	reused   map[expr.ArrayHandle]uint
}

// New returns a fresh Binder whose single id counter starts at zero;
// plain, read-operand and assigned ids all come from that one counter, so
// no two ids handed out by one Binder collide.
func New() *Binder {
	return &Binder{
		assigned: make(map[expr.ArrayHandle]uint),
		reused:   make(map[expr.ArrayHandle]uint),
	}
}

// Get returns a fresh id with no array identity attached (host scalars,
// placeholders, and mapped objects with no backing array all go through
// this path).
func (b *Binder) Get() uint {
	id := b.next
	b.next++
	return id
}

// GetArray returns the id bound to array a. If a is the assignment
// target of the node being mapped (isAssigned), it receives its own
// bucket distinct from any id already bound to it as a read operand,
// mirroring the original's separate "assigned" array numbering. Repeated
// lookups for the same (array, isAssigned) pair return the same id.
func (b *Binder) GetArray(a expr.ArrayHandle, isAssigned bool) uint {
	table := b.reused
	if isAssigned {
		table = b.assigned
	}
	if id, ok := table[a]; ok {
		return id
	}
	id := b.next
	b.next++
	table[a] = id
	return id
}

// Name formats a stable identifier string for an allocated id, the Go
// shape of "obj" + tools::to_string(id).
func Name(id uint) string {
	return "obj" + strconv.FormatUint(uint64(id), 10)
}

// PlaceholderName formats the stable identifier for a loop-index
// placeholder at the given level: "sforidx" + level.
func PlaceholderName(level int) string {
	return "sforidx" + strconv.Itoa(level)
}
