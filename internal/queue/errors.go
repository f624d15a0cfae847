package queue

import "errors"

var (
	// ErrRegionTooSmall is returned when a byte region cannot hold the
	// header, register, and at least one ring slot.
	ErrRegionTooSmall = errors.New("queue: region too small for one slot")
	// ErrEventQueueFull is returned by a push when the ring has no free
	// slot; the caller must drain with Pop before appending more events.
	ErrEventQueueFull = errors.New("queue: no free slots")
)
