// Package api implements the race service REST client, used once at
// startup to resolve a task id into its game ids and start/target
// pair. Requests retry with jittered exponential backoff on 5xx/429.
package api
