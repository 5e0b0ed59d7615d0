// Package api define the contracts shared by evalloc allocators and
// their callers.
package api

// Mallocer interface for manual memory management over a raw backing
// region. Implementations are not thread safe unless documented.
type Mallocer interface {
	// Alloc return a region of exactly `n` bytes. Alignment is not
	// guaranteed beyond what the backing region provides.
	Alloc(n int64) ([]byte, error)

	// Resize region obtained from Alloc to `n` bytes, in place. Return
	// false, leaving `ptr` untouched, if it cannot be done in place.
	Resize(ptr []byte, n int64) ([]byte, bool)

	// Free region obtained from Alloc. Freeing the same region twice
	// is a caller bug.
	Free(ptr []byte)

	// Release the allocator and its backing region. Return true if
	// there are outstanding allocations, in which case nothing is
	// released.
	Release() (leak bool)

	// Info of memory accounting for this allocator, `capacity` is the
	// usable size of backing memory, `heap` is the memory obtained
	// from the backing region, `alloc` is memory handed out to
	// application and `overhead` is memory spent on book-keeping.
	Info() (capacity, heap, alloc, overhead int64)

	// Utilization return block sizes in use and, for each size, the
	// percentage of backing memory handed out.
	Utilization() ([]int, []float64)
}

// Provider supplies raw byte regions to allocators that grow their
// backing memory lazily.
type Provider interface {
	// Region return a zeroed region of `size` bytes.
	Region(size int64) ([]byte, error)

	// Unmap region obtained from Region, back to the system.
	Unmap(region []byte) error
}
