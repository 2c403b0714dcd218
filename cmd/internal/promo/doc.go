// Package promo implements the promotional gate: a fixed pool of invite
// links and the per-visitor ad -> follow -> reveal funnel that hands one out.
//
// A Gate is a plain state machine. The WebSocket gateway gives each
// connection its own Gate owned by a single goroutine, so nothing in this
// package is shared between visitors.
package promo
