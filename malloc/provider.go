package malloc

import "fmt"
import "sync/atomic"

import "github.com/cloudfoundry/gosigar"
import "github.com/fyrchik/evalloc/api"
import humanize "github.com/dustin/go-humanize"
import "github.com/pkg/errors"

// NewProvider return a memory provider by name, one of "heap", "mmap"
// or "libc".
func NewProvider(name string) (api.Provider, error) {
	switch name {
	case "heap":
		return NewHeapProvider(), nil
	case "mmap":
		return newmmapprovider()
	case "libc":
		return NewLibcProvider(), nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

// regionstats book-keep regions handed out by a provider.
type regionstats struct {
	n_regions int64
	n_bytes   int64
}

func (rs *regionstats) mapped(region []byte) {
	atomic.AddInt64(&rs.n_regions, 1)
	atomic.AddInt64(&rs.n_bytes, int64(len(region)))
}

func (rs *regionstats) unmapped(region []byte) {
	atomic.AddInt64(&rs.n_regions, -1)
	atomic.AddInt64(&rs.n_bytes, -int64(len(region)))
}

// Outstanding return number of regions and bytes not yet unmapped.
func (rs *regionstats) Outstanding() (regions, bytes int64) {
	return atomic.LoadInt64(&rs.n_regions), atomic.LoadInt64(&rs.n_bytes)
}

// HeapProvider supplies regions from golang heap. Unmap drops the
// reference and leaves the memory to garbage collector.
type HeapProvider struct {
	regionstats
}

// NewHeapProvider return a provider backed by golang heap.
func NewHeapProvider() *HeapProvider {
	return &HeapProvider{}
}

// Region implement api.Provider{} interface.
func (hp *HeapProvider) Region(size int64) ([]byte, error) {
	if err := checksysmem(size); err != nil {
		return nil, err
	}
	region := make([]byte, size)
	hp.mapped(region)
	return region, nil
}

// Unmap implement api.Provider{} interface.
func (hp *HeapProvider) Unmap(region []byte) error {
	hp.unmapped(region)
	return nil
}

// checksysmem refuse requests that cannot fit in free system memory.
// Platforms where gosigar cannot read memory skip the check.
func checksysmem(size int64) error {
	if size <= 0 {
		return errors.Wrapf(ErrorInvalidRequest, "region size %v", size)
	}
	_, _, free := getsysmem()
	if free > 0 && uint64(size) > free {
		fmsg := "region of %v exceeds free system memory %v"
		return errors.Wrapf(ErrorOutofMemory, fmsg,
			humanize.Bytes(uint64(size)), humanize.Bytes(free))
	}
	return nil
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		debugf("gosigar: %v\n", err)
		return 0, 0, 0
	}
	return mem.Total, mem.ActualUsed, mem.ActualFree
}
