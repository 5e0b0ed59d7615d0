// Package lib provide small helpers that are not tied to any
// particular allocator: settings map, bit twiddling on bytes and
// a sample histogram. They shall not depend on anything other than
// the standard library.
package lib
