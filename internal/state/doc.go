// Package state reconstructs a task's navigation history from game
// events.
//
// Each game's events fold into an append-only sequence of page states
// with strictly increasing, gapless move indexes. Solver results are
// page-keyed rather than move-keyed, which makes their arrival order
// irrelevant: a late result enriches every matching page already in
// the sequence, an early one is dropped until re-delivered. The Store
// wraps the per-game folds with immutable snapshots, a synchronous
// subscription bus, and the live/stepping viewing cursor.
package state
