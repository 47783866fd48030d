// Package addresslist edits an ordered list of gateway addresses.
//
// An Editor owns a working copy of the list and exposes three mutations:
// Add, Update and Remove. After each one it hands a fresh copy of the whole
// list to the owner's change callback, exactly once. Entries are identified
// by position only; removing an entry renumbers everything after it.
//
// The editor is not safe for concurrent use. Drive it from the goroutine that
// handles the user interaction.
package addresslist
