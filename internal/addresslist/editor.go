package addresslist

import (
	"fmt"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

const (
	// EmptyMessage is shown in place of the table body when the list is empty.
	EmptyMessage = "No Addresses defined"
	// AddLabel labels the trailing "append" action row.
	AddLabel = "Add Address to Addresses List"
)

// ChangeFunc receives the complete list after a mutation. The slice is a
// snapshot owned by the receiver.
type ChangeFunc func(domain.AddressList)

// Option configures an Editor.
type Option func(*Editor)

// WithDefaultEntry sets the factory used by Add.
func WithDefaultEntry(fn func() domain.Address) Option {
	return func(e *Editor) {
		if fn != nil {
			e.newEntry = fn
		}
	}
}

// Editor holds the working address list for one form session.
type Editor struct {
	entries  domain.AddressList
	onChange ChangeFunc
	newEntry func() domain.Address
}

// New creates an editor over a copy of initial. onChange may be nil.
func New(initial domain.AddressList, onChange ChangeFunc, opts ...Option) *Editor {
	e := &Editor{
		entries:  initial.Clone(),
		onChange: onChange,
		newEntry: domain.DefaultAddress,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add appends a default entry.
func (e *Editor) Add() {
	next := make(domain.AddressList, len(e.entries), len(e.entries)+1)
	copy(next, e.entries)
	e.commit(append(next, e.newEntry()))
}

// Update replaces the entry at index. It panics if index is out of range.
func (e *Editor) Update(index int, entry domain.Address) {
	e.mustInRange("Update", index)
	next := e.entries.Clone()
	next[index] = entry
	e.commit(next)
}

// Remove deletes the entry at index; later entries move down by one.
// It panics if index is out of range.
func (e *Editor) Remove(index int) {
	e.mustInRange("Remove", index)
	next := make(domain.AddressList, 0, len(e.entries)-1)
	next = append(next, e.entries[:index]...)
	next = append(next, e.entries[index+1:]...)
	e.commit(next)
}

// Reset replaces the working list with a new initial list from the owner.
// It is not a mutation and does not call the change callback.
func (e *Editor) Reset(list domain.AddressList) {
	e.entries = list.Clone()
}

// Entries returns a copy of the current list.
func (e *Editor) Entries() domain.AddressList {
	return e.entries.Clone()
}

// Len returns the number of entries.
func (e *Editor) Len() int {
	return len(e.entries)
}

// Empty reports whether the list has no entries.
func (e *Editor) Empty() bool {
	return len(e.entries) == 0
}

// InRange reports whether index addresses an existing entry.
func (e *Editor) InRange(index int) bool {
	return index >= 0 && index < len(e.entries)
}

// commit installs next as the working list, then notifies the owner with a
// separate copy so neither side can alias the other's storage.
func (e *Editor) commit(next domain.AddressList) {
	e.entries = next
	if e.onChange != nil {
		e.onChange(next.Clone())
	}
}

func (e *Editor) mustInRange(op string, index int) {
	if !e.InRange(index) {
		panic(fmt.Sprintf("addresslist: %s index %d out of range [0,%d)", op, index, len(e.entries)))
	}
}
