// Package archive journals raw task events to Postgres for offline
// analysis. It is write-only from the observer's point of view: state
// reconstruction never reads the journal, so losing it costs nothing
// but history.
package archive
