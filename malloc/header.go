package malloc

import "encoding/binary"

// block header is a little-endian uint16 holding (extent << 1) | used,
// where extent includes the header itself.

func putheader(buffer []byte, off, extent int64, used bool) {
	if extent < Headersize || extent > Maxextent {
		panicerr(ErrorCorrupted, "extent %v at offset %v", extent, off)
	}
	hdr := uint16(extent) << 1
	if used {
		hdr |= 0x1
	}
	binary.LittleEndian.PutUint16(buffer[off:off+Headersize], hdr)
}

func getheader(buffer []byte, off int64) (extent int64, used bool) {
	hdr := binary.LittleEndian.Uint16(buffer[off : off+Headersize])
	return int64(hdr >> 1), (hdr & 0x1) == 0x1
}
