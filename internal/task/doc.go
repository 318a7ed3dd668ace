// Package task implements the task-level connection aggregator.
//
// A task groups the concurrent games racing one start/target pair. The
// Manager keeps one connection supervisor per game id, fans all inbound
// events into a single stream for the reducer, and derives one
// aggregate status from the per-game connection states. Partial
// connectivity (some games up, some down) is a reportable steady
// state, not an error; only zero connected games fails ConnectToTask.
package task
