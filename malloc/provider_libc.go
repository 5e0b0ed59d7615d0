package malloc

import "modernc.org/memory"
import "github.com/pkg/errors"

// LibcProvider supplies regions from a malloc style allocator that
// manages memory outside golang heap.
type LibcProvider struct {
	regionstats
	allocator memory.Allocator
}

// NewLibcProvider return a provider backed by modernc.org/memory.
func NewLibcProvider() *LibcProvider {
	return &LibcProvider{}
}

// Region implement api.Provider{} interface. Region is zeroed.
func (lp *LibcProvider) Region(size int64) ([]byte, error) {
	if err := checksysmem(size); err != nil {
		return nil, err
	}
	region, err := lp.allocator.Calloc(int(size))
	if err != nil {
		return nil, errors.Wrapf(err, "calloc %v bytes", size)
	}
	lp.mapped(region)
	return region, nil
}

// Unmap implement api.Provider{} interface.
func (lp *LibcProvider) Unmap(region []byte) error {
	if err := lp.allocator.Free(region); err != nil {
		return errors.Wrap(err, "free")
	}
	lp.unmapped(region)
	return nil
}

// Close give back all memory held by provider to OS, regions handed
// out earlier become invalid.
func (lp *LibcProvider) Close() error {
	return errors.Wrap(lp.allocator.Close(), "close")
}
