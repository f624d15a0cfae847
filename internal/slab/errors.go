package slab

import "errors"

var (
	// ErrRegionTooSmall is returned when a byte region cannot hold even a
	// single slot once the header is accounted for.
	ErrRegionTooSmall = errors.New("slab: region too small for one slot")
	// ErrSlabFull is returned by Insert when the leaf or inner arena has no
	// free slot. Insert never evicts; eviction is the caller's decision.
	ErrSlabFull = errors.New("slab: no free leaf slots")
	// ErrKeyNotFound names a key that is not present in the tree. Find and
	// Remove report absence with a boolean and do not return it.
	ErrKeyNotFound = errors.New("slab: key not found")
)
