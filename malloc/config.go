package malloc

import "fmt"
import "math"

import "github.com/fyrchik/evalloc/lib"

// Headersize of inline block header in Freelist.
const Headersize = int64(2)

// Maxextent is the largest block extent a header can encode, 15 bits
// with the lowest bit reserved for used flag. Backing buffer for
// Freelist cannot exceed this.
const Maxextent = int64(0x7fff)

// Maxchunks maximum number of chunks allowed in a Pool's group.
const Maxchunks = int64(65536)

// Flistsettings for Freelist.
//
// "safety" (bool, default: true)
//		Validate pointers passed to Free and Resize, panic on double
//		free and on foreign pointers. With safety disabled, double free
//		is undefined behavior.
//
// "verbose" (bool, default: false)
//		Log every allocation and free, with size and address, at
//		verbose level.
func Flistsettings() lib.Settings {
	return lib.Settings{
		"safety":  true,
		"verbose": false,
	}
}

// Poolsettings for Pool, with chunk size `chunksize` and `groupsize`
// number of chunks in the group.
//
// "chunksize" (int64)
//		Size of every chunk handed out by the pool, Alloc shall be
//		called with exactly this size.
//
// "groupsize" (int64)
//		Number of chunks in the group, requested from provider in one
//		go on first Alloc. Cannot exceed Maxchunks.
//
// "safety" (bool, default: true)
//		Panic on double free and on foreign pointers. With safety
//		disabled, double free is undefined behavior.
//
// "verbose" (bool, default: false)
//		Log every allocation and free, with size and address, at
//		verbose level.
func Poolsettings(chunksize, groupsize int64) lib.Settings {
	if chunksize <= 0 {
		panic(fmt.Errorf("chunksize(%v) should be > 0", chunksize))
	} else if groupsize <= 0 || groupsize > Maxchunks {
		panic(fmt.Errorf("groupsize(%v) should be in (0, %v]", groupsize, Maxchunks))
	} else if chunksize > math.MaxInt64/groupsize {
		fmsg := "chunksize(%v) x groupsize(%v) overflows int64"
		panic(fmt.Errorf(fmsg, chunksize, groupsize))
	}
	return lib.Settings{
		"chunksize": chunksize,
		"groupsize": groupsize,
		"safety":    true,
		"verbose":   false,
	}
}
