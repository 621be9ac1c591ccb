// Package protocol owns the result-code contract shared by the edge handles
// and the metadata wire codec.
//
// Ownership boundary:
// - result codes (none / invalid parameter / out of memory)
// - typed errors carrying a code, the failing operation, and a reason
//
// The wire codec itself lives in protocol/metadata.
package protocol
