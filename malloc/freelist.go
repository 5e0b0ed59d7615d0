package malloc

import "fmt"
import "sort"
import "unsafe"

import "github.com/fyrchik/evalloc/lib"
import "github.com/fyrchik/evalloc/log"
import "github.com/pkg/errors"

// Freelist manages a caller supplied buffer as a sequence of header
// prefixed blocks. Allocation does a first-fit linear scan from the
// start of the buffer, splitting the chosen free block when the
// leftover can host a header. Free does not coalesce neighbouring
// free blocks.
//
// Blocks always tile the buffer: sum of block extents is the buffer
// length. Not thread safe, use Locked for concurrent access.
type Freelist struct {
	// stats
	n_allocs  int64
	n_frees   int64
	n_resizes int64
	n_ooms    int64
	allocated int64 // sum of used block extents
	h_scan    *lib.Histogram
	h_size    *lib.Histogram

	buffer    []byte
	name      string
	logprefix string

	// settings
	safety  bool
	verbose bool
	setts   lib.Settings
}

// Block describes one block in Freelist's buffer.
type Block struct {
	Offset int64 // offset of block header in buffer
	Extent int64 // including header
	Used   bool
}

// NewFreelist return an uninitialized allocator, call Init with a
// backing buffer before use.
func NewFreelist(name string, setts lib.Settings) *Freelist {
	setts = make(lib.Settings).Mixin(Flistsettings(), setts)
	f := &Freelist{
		name:      name,
		logprefix: fmt.Sprintf("FLIST [%s]", name),
		safety:    setts.Bool("safety"),
		verbose:   setts.Bool("verbose"),
		setts:     setts,
	}
	f.h_scan = lib.NewHistogram(1, 64, 4)
	f.h_size = lib.NewHistogram(0, Maxextent, 512)
	return f
}

// Init zero fills buffer and makes it the backing region, as a single
// free block. Buffer length should be in [Headersize, Maxextent].
func (f *Freelist) Init(buffer []byte) error {
	if f.buffer != nil {
		return errors.Wrapf(ErrorAlreadyInitialized, "%v init", f.logprefix)
	}
	ln := int64(len(buffer))
	if ln < Headersize || ln > Maxextent {
		fmsg := "%v buffer length %v not in [%v, %v]"
		return errors.Wrapf(ErrorInvalidRequest, fmsg, f.logprefix, ln, Headersize, Maxextent)
	}
	clear(buffer)
	putheader(buffer, 0, ln, false)
	f.buffer, f.allocated = buffer, 0
	infof("%v initialized with %v bytes\n", f.logprefix, ln)
	return nil
}

// Isactive return true between a successful Init and Release.
func (f *Freelist) Isactive() bool {
	return f.buffer != nil
}

//---- api.Mallocer{} interface.

// Alloc implement api.Mallocer{} interface. Size should be even,
// capacity of returned region is limited to its block.
func (f *Freelist) Alloc(size int64) ([]byte, error) {
	if f.buffer == nil {
		return nil, errors.Wrapf(ErrorUninitialized, "%v alloc", f.logprefix)
	} else if size < 0 || (size&0x1) != 0 {
		fmsg := "%v alloc size %v should be even and >= 0"
		return nil, errors.Wrapf(ErrorInvalidRequest, fmsg, f.logprefix, size)
	}
	ln := int64(len(f.buffer))
	if size > ln-Headersize {
		f.n_ooms++
		return nil, errors.Wrapf(ErrorOutofMemory, "%v alloc %v bytes", f.logprefix, size)
	}
	f.h_size.Add(size)
	needed := size + Headersize
	visited := int64(0)
	for off := int64(0); off < ln; {
		extent, used := f.blockat(off)
		visited++
		if used || extent < needed {
			off += extent
			continue
		}
		if leftover := extent - needed; leftover >= Headersize {
			putheader(f.buffer, off+needed, leftover, false)
			extent = needed
		}
		putheader(f.buffer, off, extent, true)

		f.h_scan.Add(visited)
		f.n_allocs++
		f.allocated += extent
		if f.verbose {
			fmsg := "%v alloc %v bytes at offset %v addr %#x\n"
			log.Verbosef(fmsg, f.logprefix, size, off+Headersize, f.addr(off+Headersize))
		}
		return f.payload(off, size, extent), nil
	}
	f.h_scan.Add(visited)
	f.n_ooms++
	return nil, errors.Wrapf(ErrorOutofMemory, "%v alloc %v bytes", f.logprefix, size)
}

// Resize implement api.Mallocer{} interface. Succeeds only when `n`
// is even and fits within the block already backing `ptr`.
func (f *Freelist) Resize(ptr []byte, n int64) ([]byte, bool) {
	if f.buffer == nil || n < 0 || (n&0x1) != 0 {
		return ptr, false
	} else if n > int64(len(f.buffer))-Headersize {
		return ptr, false
	}
	off := f.blockof(ptr)
	extent, used := f.blockat(off)
	if !used {
		if f.safety {
			panicerr(ErrorInvalidPointer, "%v resize free block at %v", f.logprefix, off)
		}
		return ptr, false
	} else if n+Headersize > extent {
		return ptr, false
	}
	f.n_resizes++
	return f.payload(off, n, extent), true
}

// Free implement api.Mallocer{} interface. The block is marked free
// and is not merged with its neighbours. With "safety" disabled,
// freeing an already freed block is undefined behavior.
func (f *Freelist) Free(ptr []byte) {
	if f.buffer == nil {
		panicerr(ErrorUninitialized, "%v free", f.logprefix)
	}
	off := f.blockof(ptr)
	extent, used := f.blockat(off)
	if !used && f.safety {
		log.Errorf("%v double free at offset %v\n", f.logprefix, off+Headersize)
		panicerr(ErrorDoubleFree, "%v offset %v", f.logprefix, off+Headersize)
	}
	putheader(f.buffer, off, extent, false)
	f.n_frees++
	f.allocated -= extent
	if f.verbose {
		fmsg := "%v free %v bytes at offset %v addr %#x\n"
		log.Verbosef(fmsg, f.logprefix, extent-Headersize, off+Headersize, f.addr(off+Headersize))
	}
}

// Release implement api.Mallocer{} interface. If any block is still
// used the leak is logged, nothing is released and allocator remains
// usable. Otherwise the buffer is dropped and Init can be called
// again.
func (f *Freelist) Release() bool {
	if f.buffer == nil {
		return false
	}
	nblocks, nbytes := int64(0), int64(0)
	f.walk(func(_, extent int64, used bool) bool {
		if used {
			nblocks, nbytes = nblocks+1, nbytes+extent-Headersize
		}
		return true
	})
	if nblocks > 0 {
		err := errors.Wrapf(ErrorLeak, "%v blocks %v bytes", nblocks, nbytes)
		log.Errorf("%v release: %v\n", f.logprefix, err)
		return true
	}
	f.buffer = nil
	infof("%v released\n", f.logprefix)
	return false
}

// Reset drop the backing buffer irrespective of outstanding
// allocations. Regions handed out earlier must not be used or freed
// after this.
func (f *Freelist) Reset() {
	if f.buffer != nil {
		warnf("%v reset with %v bytes allocated\n", f.logprefix, f.allocated)
	}
	f.buffer, f.allocated = nil, 0
}

// Info implement api.Mallocer{} interface. Can be a costly operation,
// walks all the blocks.
func (f *Freelist) Info() (capacity, heap, alloc, overhead int64) {
	self := int64(unsafe.Sizeof(*f))
	if f.buffer == nil {
		return 0, 0, 0, self
	}
	nblocks := int64(0)
	f.walk(func(_, _ int64, _ bool) bool {
		nblocks++
		return true
	})
	capacity = int64(len(f.buffer))
	return capacity, capacity, f.allocated, self + (nblocks * Headersize)
}

// Utilization implement api.Mallocer{} interface. Return the extent
// of used blocks and, for each extent, the percentage of buffer held
// by blocks of that extent.
func (f *Freelist) Utilization() ([]int, []float64) {
	sizes, zs := make([]int, 0), make([]float64, 0)
	if f.buffer == nil {
		return sizes, zs
	}
	held := make(map[int]int64)
	f.walk(func(_, extent int64, used bool) bool {
		if used {
			held[int(extent)] += extent
		}
		return true
	})
	for size := range held {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	capacity := float64(len(f.buffer))
	for _, size := range sizes {
		zs = append(zs, (float64(held[size])/capacity)*100)
	}
	return sizes, zs
}

//---- introspection

// Blocks return all blocks in buffer order.
func (f *Freelist) Blocks() []Block {
	blocks := make([]Block, 0)
	f.walk(func(off, extent int64, used bool) bool {
		blocks = append(blocks, Block{Offset: off, Extent: extent, Used: used})
		return true
	})
	return blocks
}

// Maxalloc return the largest size that can be allocated right now,
// -1 if no free block can host even a zero sized allocation.
func (f *Freelist) Maxalloc() int64 {
	largest := int64(-1)
	f.walk(func(_, extent int64, used bool) bool {
		if !used && (extent-Headersize) > largest {
			largest = extent - Headersize
		}
		return true
	})
	if largest < 0 {
		return -1
	}
	return largest &^ 0x1
}

// Stats return allocator statistics.
func (f *Freelist) Stats() map[string]interface{} {
	capacity, heap, alloc, overhead := f.Info()
	nblocks, nfree := int64(0), int64(0)
	f.walk(func(_, _ int64, used bool) bool {
		nblocks++
		if !used {
			nfree++
		}
		return true
	})
	return map[string]interface{}{
		"n_allocs":  f.n_allocs,
		"n_frees":   f.n_frees,
		"n_resizes": f.n_resizes,
		"n_ooms":    f.n_ooms,
		"n_blocks":  nblocks,
		"n_free":    nfree,
		"capacity":  capacity,
		"heap":      heap,
		"allocated": alloc,
		"overhead":  overhead,
		"maxalloc":  f.Maxalloc(),
		"h_scan":    f.h_scan.Fullstats(),
		"h_reqsize": f.h_size.Fullstats(),
	}
}

// loghistograms return scan-length and request-size histograms as
// loggable strings.
func (f *Freelist) loghistograms() map[string]string {
	return map[string]string{
		"h_scan":    f.h_scan.Logstring(),
		"h_reqsize": f.h_size.Logstring(),
	}
}

//---- local functions

// walk blocks in buffer order till callback returns false.
func (f *Freelist) walk(callb func(off, extent int64, used bool) bool) {
	for off, ln := int64(0), int64(len(f.buffer)); off < ln; {
		extent, used := f.blockat(off)
		if !callb(off, extent, used) {
			return
		}
		off += extent
	}
}

// blockat decode header at `off` and check it stays within buffer.
func (f *Freelist) blockat(off int64) (int64, bool) {
	extent, used := getheader(f.buffer, off)
	if extent < Headersize || off+extent > int64(len(f.buffer)) {
		panicerr(ErrorCorrupted, "%v extent %v at offset %v", f.logprefix, extent, off)
	}
	return extent, used
}

// payload for block at `off`, capacity is limited to the block so
// that append cannot spill into the next header.
func (f *Freelist) payload(off, size, extent int64) []byte {
	start := off + Headersize
	if extent > Headersize {
		return f.buffer[start : start+size : off+extent]
	} else if start < int64(len(f.buffer)) {
		// zero capacity slices do not carry their offset, point
		// explicitly at the next header.
		return unsafe.Slice(&f.buffer[start], 0)
	}
	// zero capacity payload ending the buffer, addressed by base.
	return f.buffer[:0:0]
}

// blockof return the header offset for payload `ptr`.
func (f *Freelist) blockof(ptr []byte) int64 {
	ln, base := int64(len(f.buffer)), f.addr(0)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(ptr)))
	payload := int64(addr - base)
	if cap(ptr) == 0 && addr == base {
		payload = ln
	}
	if !f.safety {
		return payload - Headersize
	}

	if addr < base || payload < Headersize || payload > ln {
		panicerr(ErrorInvalidPointer, "%v addr %#x outside buffer", f.logprefix, addr)
	}
	isblock := false
	f.walk(func(off, _ int64, _ bool) bool {
		isblock = off == payload-Headersize
		return off < payload-Headersize
	})
	if !isblock {
		panicerr(ErrorInvalidPointer, "%v offset %v not a block", f.logprefix, payload)
	}
	return payload - Headersize
}

func (f *Freelist) addr(off int64) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(f.buffer))) + uintptr(off)
}
