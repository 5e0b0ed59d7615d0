package malloc

import "fmt"
import "unsafe"

import "github.com/fyrchik/evalloc/api"
import "github.com/fyrchik/evalloc/lib"
import "github.com/fyrchik/evalloc/log"
import "github.com/pkg/errors"

// Pool hands out fixed size chunks from a single group, group is
// requested from provider on first Alloc and sliced up into
// "groupsize" chunks of "chunksize" bytes. Occupancy is tracked with
// a bitmap, allocation picks the lowest numbered free chunk. Group
// never grows, Alloc fails once all chunks are in use.
//
// Not thread safe, use Locked for concurrent access.
type Pool struct {
	// 64-bit aligned stats
	mallocated int64
	n_allocs   int64
	n_frees    int64
	n_ooms     int64
	n_groups   int64 // groups requested from provider so far

	provider  api.Provider
	group     []byte
	base      uintptr // group's base pointer
	fbits     *freebits
	name      string
	logprefix string

	// settings
	chunksize int64
	groupsize int64
	safety    bool
	verbose   bool
	setts     lib.Settings
}

// NewPool return a pool for chunks configured by Poolsettings(), no
// memory is requested from provider until the first Alloc.
func NewPool(name string, setts lib.Settings, provider api.Provider) *Pool {
	if provider == nil {
		panic(fmt.Errorf("pool %q: nil provider", name))
	}
	chunksize, groupsize := setts.Int64("chunksize"), setts.Int64("groupsize")
	setts = make(lib.Settings).Mixin(Poolsettings(chunksize, groupsize), setts)
	pool := &Pool{
		provider:  provider,
		name:      name,
		logprefix: fmt.Sprintf("POOL [%s]", name),
		chunksize: chunksize,
		groupsize: groupsize,
		safety:    setts.Bool("safety"),
		verbose:   setts.Bool("verbose"),
		setts:     setts,
	}
	return pool
}

// Chunksize return the only allocatable size.
func (pool *Pool) Chunksize() int64 {
	return pool.chunksize
}

// Isactive return true once group is obtained from provider, till
// Release.
func (pool *Pool) Isactive() bool {
	return pool.group != nil
}

//---- api.Mallocer{} interface.

// Alloc implement api.Mallocer{} interface. Size should be the same
// as configured "chunksize".
func (pool *Pool) Alloc(size int64) ([]byte, error) {
	if size != pool.chunksize {
		fmsg := "%v alloc size %v, chunksize %v"
		return nil, errors.Wrapf(ErrorInvalidRequest, fmsg, pool.logprefix, size, pool.chunksize)
	} else if pool.group == nil {
		if err := pool.newgroup(); err != nil {
			return nil, err
		}
	}

	nthblock, ok := pool.fbits.alloc()
	if !ok {
		pool.n_ooms++
		fmsg := "%v all %v chunks in use"
		return nil, errors.Wrapf(ErrorOutofMemory, fmsg, pool.logprefix, pool.groupsize)
	}
	off := nthblock * pool.chunksize
	ptr := pool.group[off : off+pool.chunksize : off+pool.chunksize]
	clear(ptr)
	pool.mallocated += pool.chunksize
	pool.n_allocs++
	if pool.verbose {
		fmsg := "%v alloc %v bytes chunk %v addr %#x\n"
		log.Verbosef(fmsg, pool.logprefix, size, nthblock, pool.base+uintptr(off))
	}
	return ptr, nil
}

// Resize implement api.Mallocer{} interface. Succeeds when `n` is
// within chunksize.
func (pool *Pool) Resize(ptr []byte, n int64) ([]byte, bool) {
	if n < 0 || n > pool.chunksize || int64(cap(ptr)) < n {
		return ptr, false
	}
	return ptr[:n], true
}

// Free implement api.Mallocer{} interface. With "safety" enabled,
// freeing a chunk that is already free, or a pointer that does not
// belong to this pool, panics. With "safety" disabled they are
// undefined behavior.
func (pool *Pool) Free(ptr []byte) {
	if pool.group == nil {
		panicerr(ErrorUninitialized, "%v free", pool.logprefix)
	} else if cap(ptr) == 0 {
		panicerr(ErrorInvalidPointer, "%v free nil pointer", pool.logprefix)
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(ptr)))
	diffptr := int64(addr - pool.base)
	if pool.safety {
		if addr < pool.base || diffptr >= int64(len(pool.group)) {
			panicerr(ErrorInvalidPointer, "%v addr %#x outside group", pool.logprefix, addr)
		} else if (diffptr % pool.chunksize) != 0 {
			fmsg := "%v unaligned pointer: %x,%v"
			panicerr(ErrorInvalidPointer, fmsg, pool.logprefix, diffptr, pool.chunksize)
		}
	}
	nthblock := diffptr / pool.chunksize
	if pool.safety && pool.fbits.isfree(nthblock) {
		log.Errorf("%v double free chunk %v addr %#x\n", pool.logprefix, nthblock, addr)
		panicerr(ErrorDoubleFree, "%v chunk %v", pool.logprefix, nthblock)
	}
	pool.fbits.free(nthblock)
	pool.mallocated -= pool.chunksize
	pool.n_frees++
	if pool.verbose {
		fmsg := "%v free %v bytes chunk %v addr %#x\n"
		log.Verbosef(fmsg, pool.logprefix, pool.chunksize, nthblock, addr)
	}
}

// Release implement api.Mallocer{} interface. If any chunk is still
// in use the leak is logged and group is retained, else group is
// handed back to provider.
func (pool *Pool) Release() bool {
	if pool.group == nil {
		return false
	}
	if used := pool.groupsize - pool.fbits.freeblocks(); used > 0 {
		err := errors.Wrapf(ErrorLeak, "%v chunks %v bytes", used, used*pool.chunksize)
		log.Errorf("%v release: %v\n", pool.logprefix, err)
		return true
	}
	if err := pool.provider.Unmap(pool.group); err != nil {
		log.Errorf("%v release: %v\n", pool.logprefix, err)
	}
	pool.group, pool.base, pool.fbits = nil, 0, nil
	pool.mallocated = 0
	infof("%v released\n", pool.logprefix)
	return false
}

// Info implement api.Mallocer{} interface.
func (pool *Pool) Info() (capacity, heap, alloc, overhead int64) {
	overhead = int64(unsafe.Sizeof(*pool))
	if pool.fbits != nil {
		overhead += pool.fbits.sizeof()
	}
	capacity = pool.chunksize * pool.groupsize
	return capacity, int64(len(pool.group)), pool.mallocated, overhead
}

// Utilization implement api.Mallocer{} interface.
func (pool *Pool) Utilization() ([]int, []float64) {
	if pool.group == nil {
		return []int{}, []float64{}
	}
	z := (float64(pool.mallocated) / float64(len(pool.group))) * 100
	return []int{int(pool.chunksize)}, []float64{z}
}

// Stats return allocator statistics.
func (pool *Pool) Stats() map[string]interface{} {
	capacity, heap, alloc, overhead := pool.Info()
	freechunks := pool.groupsize
	if pool.fbits != nil {
		freechunks = pool.fbits.freeblocks()
	}
	return map[string]interface{}{
		"n_allocs":  pool.n_allocs,
		"n_frees":   pool.n_frees,
		"n_ooms":    pool.n_ooms,
		"n_groups":  pool.n_groups,
		"n_free":    freechunks,
		"chunksize": pool.chunksize,
		"groupsize": pool.groupsize,
		"capacity":  capacity,
		"heap":      heap,
		"allocated": alloc,
		"overhead":  overhead,
	}
}

//---- local functions

func (pool *Pool) newgroup() error {
	size := pool.chunksize * pool.groupsize
	group, err := pool.provider.Region(size)
	if err != nil {
		return errors.Wrapf(err, "%v group of %v bytes", pool.logprefix, size)
	} else if int64(len(group)) != size {
		if err := pool.provider.Unmap(group); err != nil {
			log.Errorf("%v newgroup: %v\n", pool.logprefix, err)
		}
		fmsg := "%v provider returned %v bytes, expected %v"
		return errors.Wrapf(ErrorOutofMemory, fmsg, pool.logprefix, len(group), size)
	}
	pool.group = group[:size:size]
	pool.base = uintptr(unsafe.Pointer(unsafe.SliceData(pool.group)))
	pool.fbits = newfreebits(pool.groupsize)
	pool.n_groups++
	infof("%v group of %v chunks x %v bytes\n", pool.logprefix, pool.groupsize, pool.chunksize)
	return nil
}
