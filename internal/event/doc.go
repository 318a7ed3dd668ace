// Package event decodes raw socket payloads into typed game events.
//
// Every inbound message is a JSON envelope with a "type" discriminant,
// a "game_id", and a type-specific "msg" payload. Decode validates the
// payload once at the boundary and returns one of the concrete event
// types; downstream components never touch raw JSON. Unrecognized
// types decode to Unknown rather than an error so that the fold over a
// game's events can log-and-ignore them.
package event
