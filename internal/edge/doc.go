// Package edge owns the handles exchanged between edge peers: Data bundles
// raw buffers with metadata, Event notifies a listener and carries at most one
// payload.
//
// Handles are created by a constructor and ended by Destroy. Every method
// checks the handle's liveness tag first, so any call after Destroy (or on a
// nil handle) fails with protocol.ErrInvalidParameter and has no effect.
//
// Handles are single-owner. Nothing here locks; callers that share a handle
// across goroutines must serialize access themselves.
package edge
