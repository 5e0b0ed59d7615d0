package malloc

import "github.com/pkg/errors"

// ErrorOutofMemory no free block, or chunk, can satisfy the request.
var ErrorOutofMemory = errors.New("malloc.outofmemory")

// ErrorAlreadyInitialized Init called on a live allocator.
var ErrorAlreadyInitialized = errors.New("malloc.alreadyinitialized")

// ErrorUninitialized allocator used before Init.
var ErrorUninitialized = errors.New("malloc.uninitialized")

// ErrorInvalidRequest size constraint violated, odd size for Freelist
// and size other than chunk size for Pool.
var ErrorInvalidRequest = errors.New("malloc.invalidrequest")

// ErrorDoubleFree region freed twice, raised as panic.
var ErrorDoubleFree = errors.New("malloc.doublefree")

// ErrorInvalidPointer region not obtained from this allocator, raised
// as panic.
var ErrorInvalidPointer = errors.New("malloc.invalidpointer")

// ErrorCorrupted block header invariant broken, raised as panic.
var ErrorCorrupted = errors.New("malloc.corrupted")

// ErrorLeak outstanding allocations at Release.
var ErrorLeak = errors.New("malloc.leak")

func panicerr(cause error, fmsg string, args ...interface{}) {
	panic(errors.Wrapf(cause, fmsg, args...))
}
