// Package connection implements the chat Connection Manager.
//
// The Connection Manager:
//   - Maintains one WebSocket channel per conversation
//   - Performs the in-band auth handshake before any chat traffic
//   - Classifies disconnects and reconnects with bounded exponential backoff
//   - Dispatches inbound frames to the registered observer callbacks
package connection
