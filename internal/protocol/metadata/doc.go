// Package metadata owns the textual annotations attached to an edge data unit
// and their flat wire encoding.
//
// Keys are unique under ASCII case folding. The most recently added key is
// first in iteration and on the wire; replacing a value keeps its position.
//
// Wire layout (host byte order, no padding):
//
//	[u32 count] ([key bytes] 0x00 [value bytes] 0x00) * count
//
// A Store is a single-owner value. It has no internal locking.
package metadata
