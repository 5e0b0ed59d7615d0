//go:build unix

package malloc

import "golang.org/x/sys/unix"
import "github.com/pkg/errors"

// MmapProvider supplies regions as anonymous private mappings, memory
// lives outside golang heap and goes back to OS on Unmap.
type MmapProvider struct {
	regionstats
}

// NewMmapProvider return a provider backed by mmap(2).
func NewMmapProvider() *MmapProvider {
	return &MmapProvider{}
}

func newmmapprovider() (*MmapProvider, error) {
	return NewMmapProvider(), nil
}

// Region implement api.Provider{} interface.
func (mp *MmapProvider) Region(size int64) ([]byte, error) {
	if err := checksysmem(size); err != nil {
		return nil, err
	}
	prot, flags := unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE
	region, err := unix.Mmap(-1, 0, int(size), prot, flags)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %v bytes", size)
	}
	mp.mapped(region)
	return region, nil
}

// Unmap implement api.Provider{} interface.
func (mp *MmapProvider) Unmap(region []byte) error {
	if err := unix.Munmap(region); err != nil {
		return errors.Wrap(err, "munmap")
	}
	mp.unmapped(region)
	return nil
}
