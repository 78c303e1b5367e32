// Package pending implements the per-subscription buffer of matched but not
// yet delivered messages.
//
// A Buffer is a FIFO with message and byte accounting. Admission is decided by
// a caller supplied function evaluated under the buffer lock, so occupancy and
// the dropped counter never disagree. Exactly one goroutine pushes (the
// inbound reader) and one goroutine pops (a sync caller or the dispatcher).
package pending
