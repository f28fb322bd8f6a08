// Package protocol defines the chat channel wire format.
//
// Outbound frames:
//   - auth request: {"kind":"auth","token":"<bearer>"} (first frame on every channel)
//   - chat send:    {"content":"<text>"}
//
// Inbound frames are decoded into a tagged union (ServerEvent): auth_success,
// server error, or a chat message. Anything that does not decode cleanly is a
// protocol error; the decoder fails closed rather than guessing intent from
// partial shape matches.
package protocol
