// Package server implements the session and routing engine of the chat
// relay: the connection and group registries, the room fan-out primitive,
// the message/reaction store, and the event router that binds them together
// over persistent WebSocket connections.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, registries, routing, and HTTP handlers to keep
// the codebase maintainable and testable as the project grows.
package server
