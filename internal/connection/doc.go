// Package connection implements the per-game socket layer.
//
// Client wraps a single websocket with ping/pong liveness tracking and
// buffered message/error channels. Supervisor owns a Client per
// session and adds the connection state machine:
//
//	disconnected → connecting → connected
//	connecting → error → disconnected (eligible for retry)
//	connected → disconnected on socket closure (retries unless
//	Disconnect was explicit)
//
// Retries are bounded with a fixed inter-attempt delay; an exhausted
// budget settles the supervisor in error until the caller reconnects.
package connection
