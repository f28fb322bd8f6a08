// Package devserver is an in-memory chat backend for development and
// integration testing. It implements only the boundary behavior the client
// depends on: the auth handshake, close-code signaling and in-order fan-out
// of messages to conversation participants. Nothing is persisted.
package devserver
