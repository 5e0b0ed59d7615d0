// Package malloc supplies two manual memory allocators built directly
// on a raw backing byte region, with a limited scope:
//
//   - Types and Functions exported by this package are not thread
//     safe, wrap allocators with Locked for concurrent use.
//   - Alignment is not handled, allocated regions are as aligned as
//     the backing region happens to make them.
//   - Freed memory is never coalesced and groups never grow.
//
// Freelist manages a caller supplied buffer as a sequence of blocks,
// each prefixed by a 2 byte little-endian header encoding
// (extent << 1) | used. Alloc does a first-fit scan from the start of
// the buffer and splits the chosen block. Only even sizes can be
// allocated and buffer cannot exceed Maxextent bytes.
//
// Pool hands out chunks of one configured size from a group of
// chunks, obtained lazily from an api.Provider in a single request,
// tracking occupancy with a bitmap.
//
// Both report outstanding allocations from Release instead of
// releasing memory. Double free, and pointers not obtained from the
// allocator, panic when "safety" is enabled and are undefined
// behavior otherwise.
package malloc
