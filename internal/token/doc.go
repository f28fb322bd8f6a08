// Package token provides bearer token sources for the chat channel handshake.
//
// The connection manager reads the token from its Source at every connect
// attempt, including each reconnect, so a token refreshed by the marketplace
// session layer mid-session is picked up without tearing the manager down.
package token
