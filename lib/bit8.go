package lib

// Bit8 alias for uint8, provides bit twiddling methods on a byte.
// Bit positions count from the least significant bit.
type Bit8 uint8

// Findfirstset return the position of the lowest set bit, -1 when
// no bit is set.
func (b Bit8) Findfirstset() int8 {
	if b == 0 {
		return -1
	}
	pos := int8(0)
	for (b & 1) == 0 {
		b >>= 1
		pos++
	}
	return pos
}

// Setbit return byte with bit at `n` set.
func (b Bit8) Setbit(n uint8) uint8 {
	return uint8(b | (1 << n))
}

// Clearbit return byte with bit at `n` cleared.
func (b Bit8) Clearbit(n uint8) uint8 {
	return uint8(b &^ (1 << n))
}

// Isset return true if bit at `n` is set.
func (b Bit8) Isset(n uint8) bool {
	return (b & (1 << n)) != 0
}

// Ones return number of set bits.
func (b Bit8) Ones() int8 {
	n := int8(0)
	for ; b != 0; b &= b - 1 {
		n++
	}
	return n
}

// Zeros return number of cleared bits.
func (b Bit8) Zeros() int8 {
	return 8 - b.Ones()
}
