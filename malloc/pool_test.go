package malloc

import "fmt"
import "math"
import "strings"
import "testing"
import "unsafe"

import "github.com/fyrchik/evalloc/lib"
import "github.com/fyrchik/evalloc/log"
import "github.com/pkg/errors"
import "github.com/stretchr/testify/require"

// countprovider wraps HeapProvider, counting calls and optionally
// failing them.
type countprovider struct {
	HeapProvider
	n_regions int
	n_unmaps  int
	err       error
	unmaperr  error
	short     bool
}

func (cp *countprovider) Region(size int64) ([]byte, error) {
	cp.n_regions++
	if cp.err != nil {
		return nil, cp.err
	} else if cp.short {
		return cp.HeapProvider.Region(size / 2)
	}
	return cp.HeapProvider.Region(size)
}

func (cp *countprovider) Unmap(region []byte) error {
	cp.n_unmaps++
	if cp.unmaperr != nil {
		return cp.unmaperr
	}
	return cp.HeapProvider.Unmap(region)
}

func newtestpool(chunksize, groupsize int64) (*Pool, *countprovider) {
	provider := &countprovider{}
	setts := Poolsettings(chunksize, groupsize)
	return NewPool("test", setts, provider), provider
}

func TestNewPool(t *testing.T) {
	pool, provider := newtestpool(64, 16)
	if pool.Chunksize() != 64 {
		t.Errorf("expected %v, got %v", 64, pool.Chunksize())
	} else if pool.Isactive() {
		t.Errorf("unexpected active pool")
	} else if provider.n_regions != 0 {
		t.Errorf("expected %v, got %v", 0, provider.n_regions)
	}
	capacity, heap, alloc, _ := pool.Info()
	if capacity != 64*16 || heap != 0 || alloc != 0 {
		t.Errorf("unexpected info %v %v %v", capacity, heap, alloc)
	}

	// panic cases
	require.Panics(t, func() { Poolsettings(0, 16) })
	require.Panics(t, func() { Poolsettings(64, 0) })
	require.Panics(t, func() { Poolsettings(64, Maxchunks+1) })
	require.Panics(t, func() { Poolsettings(1<<62, 4) })
	require.Panics(t, func() { Poolsettings(math.MaxInt64/Maxchunks+1, Maxchunks) })
	require.NotPanics(t, func() { Poolsettings(math.MaxInt64/Maxchunks, Maxchunks) })
	require.Panics(t, func() { NewPool("nil", Poolsettings(64, 16), nil) })
	require.Panics(t, func() { NewPool("nosetts", lib.Settings{}, NewHeapProvider()) })
}

func TestPoolAlloc(t *testing.T) {
	chunksize, groupsize := int64(96), int64(56)
	pool, provider := newtestpool(chunksize, groupsize)

	for _, size := range []int64{0, 95, 97, 192} {
		_, err := pool.Alloc(size)
		require.Equal(t, ErrorInvalidRequest, errors.Cause(err), "size %v", size)
	}
	require.Equal(t, 0, provider.n_regions, "rejected request should not map")

	ptrs := make([][]byte, 0, groupsize)
	for i := int64(0); i < groupsize; i++ {
		ptr, err := pool.Alloc(chunksize)
		require.NoError(t, err)
		require.Len(t, ptr, int(chunksize))
		require.Equal(t, int(chunksize), cap(ptr))
		// chunks are handed out lowest first.
		off := int64(uintptr(unsafe.Pointer(&ptr[0])) - pool.base)
		require.Equal(t, i*chunksize, off)
		for j := range ptr {
			ptr[j] = byte(i)
		}
		ptrs = append(ptrs, ptr)
	}
	require.Equal(t, 1, provider.n_regions)
	_, _, alloc, _ := pool.Info()
	require.Equal(t, chunksize*groupsize, alloc)

	_, err := pool.Alloc(chunksize)
	require.Equal(t, ErrorOutofMemory, errors.Cause(err))

	// free one, exactly one more alloc succeeds and it is the same chunk.
	pool.Free(ptrs[17])
	ptr, err := pool.Alloc(chunksize)
	require.NoError(t, err)
	require.Equal(t, unsafe.Pointer(&ptrs[17][0]), unsafe.Pointer(&ptr[0]))
	for _, byt := range ptr {
		require.Zero(t, byt, "chunk should be zeroed")
	}
	_, err = pool.Alloc(chunksize)
	require.Equal(t, ErrorOutofMemory, errors.Cause(err))
	require.Equal(t, 1, provider.n_regions)

	// other chunks are intact.
	for i, ptr := range ptrs {
		if i == 17 {
			continue
		}
		for _, byt := range ptr {
			if byt != byte(i) {
				t.Fatalf("expected %v, got %v", i, byt)
			}
		}
	}

	for _, ptr := range ptrs {
		pool.Free(ptr)
	}
	stats := pool.Stats()
	require.Equal(t, groupsize, stats["n_free"])
	require.Equal(t, int64(2), stats["n_ooms"])
	require.Equal(t, int64(1), stats["n_groups"])
	require.False(t, pool.Release())
	require.Equal(t, 1, provider.n_unmaps)
}

func TestPoolProviderError(t *testing.T) {
	pool, provider := newtestpool(64, 8)
	provider.err = errors.New("provider down")
	_, err := pool.Alloc(64)
	require.Error(t, err)
	require.Equal(t, provider.err, errors.Cause(err))
	require.False(t, pool.Isactive())

	// short region is given back and reported.
	provider.err, provider.short = nil, true
	_, err = pool.Alloc(64)
	require.Equal(t, ErrorOutofMemory, errors.Cause(err))
	require.Equal(t, 1, provider.n_unmaps)
	require.False(t, pool.Isactive())

	provider.short = false
	ptr, err := pool.Alloc(64)
	require.NoError(t, err)
	pool.Free(ptr)
	require.Equal(t, 3, provider.n_regions)
	require.False(t, pool.Release())
}

func TestPoolShortRegion(t *testing.T) {
	logger := &testlogger{}
	log.SetLogger(logger, nil)
	defer log.SetLogger(nil, log.Defaultsettings())

	pool, provider := newtestpool(64, 8)
	provider.short, provider.unmaperr = true, errors.New("unmap failed")
	_, err := pool.Alloc(64)
	require.Equal(t, ErrorOutofMemory, errors.Cause(err))
	require.Equal(t, 1, provider.n_unmaps)

	lines := logger.levellines("error")
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "POOL [test] newgroup")
	require.Contains(t, lines[0], "unmap failed")
}

func TestPoolFreeSafety(t *testing.T) {
	pool, _ := newtestpool(32, 8)

	causeof := func(fn func()) (cause error) {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			} else {
				cause = errors.Cause(r.(error))
			}
		}()
		fn()
		return nil
	}

	// free before any group is obtained.
	require.Equal(t, ErrorUninitialized, causeof(func() { pool.Free(make([]byte, 32)) }))

	a, err := pool.Alloc(32)
	require.NoError(t, err)
	b, err := pool.Alloc(32)
	require.NoError(t, err)

	require.Equal(t, ErrorInvalidPointer, causeof(func() { pool.Free(nil) }))
	require.Equal(t, ErrorInvalidPointer, causeof(func() { pool.Free(make([]byte, 32)) }))
	require.Equal(t, ErrorInvalidPointer, causeof(func() { pool.Free(b[8:]) }))

	pool.Free(a)
	require.Equal(t, ErrorDoubleFree, causeof(func() { pool.Free(a) }))
	// never allocated chunk.
	unused := pool.group[5*32 : 6*32]
	require.Equal(t, ErrorDoubleFree, causeof(func() { pool.Free(unused) }))

	pool.Free(b)
	require.False(t, pool.Release())
}

func TestPoolRelease(t *testing.T) {
	pool, provider := newtestpool(128, 4)
	require.False(t, pool.Release(), "release on fresh pool")
	require.Equal(t, 0, provider.n_unmaps)

	ptr, err := pool.Alloc(128)
	require.NoError(t, err)
	require.True(t, pool.Release(), "expected leak")
	require.True(t, pool.Isactive())
	require.Equal(t, 0, provider.n_unmaps)

	pool.Free(ptr)
	require.False(t, pool.Release())
	require.False(t, pool.Isactive())
	require.Equal(t, 1, provider.n_unmaps)
	regions, bytes := provider.Outstanding()
	require.Equal(t, []int64{0, 0}, []int64{regions, bytes})

	// a fresh group is obtained on next alloc.
	ptr, err = pool.Alloc(128)
	require.NoError(t, err)
	require.Equal(t, 2, provider.n_regions)
	require.Equal(t, int64(2), pool.Stats()["n_groups"])
	pool.Free(ptr)
	require.False(t, pool.Release())
}

func TestPoolResize(t *testing.T) {
	pool, _ := newtestpool(64, 4)
	ptr, err := pool.Alloc(64)
	require.NoError(t, err)

	small, ok := pool.Resize(ptr, 10)
	require.True(t, ok)
	require.Len(t, small, 10)
	big, ok := pool.Resize(small, 64)
	require.True(t, ok)
	require.Len(t, big, 64)
	_, ok = pool.Resize(big, 65)
	require.False(t, ok)
	_, ok = pool.Resize(big, -1)
	require.False(t, ok)

	// resized pointer frees the same chunk.
	pool.Free(small)
	require.False(t, pool.Release())
}

func TestPoolUtilization(t *testing.T) {
	pool, _ := newtestpool(64, 4)
	sizes, zs := pool.Utilization()
	require.Len(t, sizes, 0)
	require.Len(t, zs, 0)

	ptr, _ := pool.Alloc(64)
	sizes, zs = pool.Utilization()
	require.Equal(t, []int{64}, sizes)
	require.InDeltaSlice(t, []float64{25}, zs, 0.0001)
	pool.Free(ptr)
}

func TestPoolVerbose(t *testing.T) {
	logger := &testlogger{}
	log.SetLogger(logger, nil)
	defer log.SetLogger(nil, log.Defaultsettings())

	setts := Poolsettings(16, 4)
	setts["verbose"] = true
	pool := NewPool("verbose", setts, NewHeapProvider())
	ptr, err := pool.Alloc(16)
	require.NoError(t, err)
	pool.Free(ptr)
	require.False(t, pool.Release())

	lines := logger.levellines("verbose")
	require.Len(t, lines, 2)
	addr := fmt.Sprintf("%#x", uintptr(unsafe.Pointer(&ptr[0])))
	require.True(t, strings.HasPrefix(lines[0], "POOL [verbose] alloc 16 bytes chunk 0"))
	require.Contains(t, lines[0], addr)
	require.True(t, strings.HasPrefix(lines[1], "POOL [verbose] free 16 bytes chunk 0"))
	require.Contains(t, lines[1], addr)
}

func TestPoolUnsafe(t *testing.T) {
	setts := Poolsettings(16, 4)
	setts["safety"] = false
	pool := NewPool("unsafe", setts, NewHeapProvider())
	ptr, err := pool.Alloc(16)
	require.NoError(t, err)
	pool.Free(ptr)
	require.Equal(t, int64(4), pool.Stats()["n_free"])
	require.False(t, pool.Release())
}

func BenchmarkPoolAlloc(b *testing.B) {
	pool := NewPool("bench", Poolsettings(96, Maxchunks), NewHeapProvider())
	ptrs := make([][]byte, 0, Maxchunks)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr, err := pool.Alloc(96)
		if err != nil {
			for _, ptr := range ptrs {
				pool.Free(ptr)
			}
			ptrs = ptrs[:0]
			continue
		}
		ptrs = append(ptrs, ptr)
	}
}

func BenchmarkPoolFree(b *testing.B) {
	pool := NewPool("bench", Poolsettings(96, 1024), NewHeapProvider())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr, _ := pool.Alloc(96)
		pool.Free(ptr)
	}
}
