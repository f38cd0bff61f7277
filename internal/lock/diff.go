package lock

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// DiffStats counts entry changes between two lockfiles.
type DiffStats struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether no entry changed.
func (d DiffStats) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// Diff compares two lockfiles entry by entry. Entries are equal when they
// serialize identically. Paths are reported in sorted order.
func Diff(before, after *Lockfile) DiffStats {
	var d DiffStats
	for _, p := range slices.Sorted(maps.Keys(after.Entries)) {
		old, ok := before.Entries[p]
		if !ok {
			d.Added = append(d.Added, p)
			continue
		}
		if !sameEntry(old, after.Entries[p]) {
			d.Modified = append(d.Modified, p)
		}
	}
	for _, p := range slices.Sorted(maps.Keys(before.Entries)) {
		if _, ok := after.Entries[p]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}
	return d
}

func sameEntry(a, b *Entry) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
