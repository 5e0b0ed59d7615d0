package malloc

import "fmt"
import "unsafe"

import "github.com/fyrchik/evalloc/lib"

// freebits is the occupancy bitmap of a group, one bit per chunk,
// set bit means free chunk.
type freebits struct {
	nblocks int64
	freeoff int64 // all bytes before freeoff are zero
	bitmap  []uint8
}

func newfreebits(nblocks int64) *freebits {
	if nblocks <= 0 {
		panic(fmt.Errorf("freebits: nblocks(%v) should be > 0", nblocks))
	}
	fbits := &freebits{nblocks: nblocks}
	fbits.bitmap = fbits.initbits(nblocks)
	return fbits
}

func (fbits *freebits) initbits(bits int64) []uint8 {
	bitmap := make([]uint8, ceil(bits, 8))
	for i := int64(0); i < (bits >> 3); i++ {
		bitmap[i] = 0xff
	}
	if x := bits & 0x7; x > 0 {
		byt := uint8(0)
		for i := int64(0); i < x; i++ {
			byt = lib.Bit8(byt).Setbit(uint8(i))
		}
		bitmap[len(bitmap)-1] = byt
	}
	return bitmap
}

func (fbits *freebits) sizeof() int64 {
	return int64(unsafe.Sizeof(*fbits)) + int64(cap(fbits.bitmap))
}

// can be costly operation.
func (fbits *freebits) freeblocks() (n int64) {
	for _, byt := range fbits.bitmap {
		n += int64(lib.Bit8(byt).Ones())
	}
	return
}

// alloc the lowest numbered free block, return false if all blocks
// are in use.
func (fbits *freebits) alloc() (int64, bool) {
	for i := fbits.freeoff; i < int64(len(fbits.bitmap)); i++ {
		byt := fbits.bitmap[i]
		if byt == 0 {
			continue
		}
		n := lib.Bit8(byt).Findfirstset()
		fbits.bitmap[i] = lib.Bit8(byt).Clearbit(uint8(n))
		fbits.freeoff = i
		return (i << 3) + int64(n), true
	}
	fbits.freeoff = int64(len(fbits.bitmap))
	return -1, false
}

func (fbits *freebits) free(nthblock int64) {
	q, r := nthblock>>3, uint8(nthblock&0x7)
	fbits.bitmap[q] = lib.Bit8(fbits.bitmap[q]).Setbit(r)
	if q < fbits.freeoff {
		fbits.freeoff = q
	}
}

func (fbits *freebits) isfree(nthblock int64) bool {
	q, r := nthblock>>3, uint8(nthblock&0x7)
	return lib.Bit8(fbits.bitmap[q]).Isset(r)
}

func ceil(divident, divisor int64) int64 {
	if divident%divisor == 0 {
		return divident / divisor
	}
	return (divident / divisor) + 1
}
