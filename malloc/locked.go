package malloc

import "sync"

import "github.com/fyrchik/evalloc/api"

// Locked serializes every call to the wrapped allocator with a
// mutex. Freelist and Pool have no internal synchronization, wrap
// them with Locked before sharing across goroutines.
type Locked struct {
	mu       sync.Mutex
	mallocer api.Mallocer
}

// NewLocked wrap `mallocer`.
func NewLocked(mallocer api.Mallocer) *Locked {
	return &Locked{mallocer: mallocer}
}

// Alloc implement api.Mallocer{} interface.
func (l *Locked) Alloc(n int64) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mallocer.Alloc(n)
}

// Resize implement api.Mallocer{} interface.
func (l *Locked) Resize(ptr []byte, n int64) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mallocer.Resize(ptr, n)
}

// Free implement api.Mallocer{} interface.
func (l *Locked) Free(ptr []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mallocer.Free(ptr)
}

// Release implement api.Mallocer{} interface.
func (l *Locked) Release() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mallocer.Release()
}

// Info implement api.Mallocer{} interface.
func (l *Locked) Info() (capacity, heap, alloc, overhead int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mallocer.Info()
}

// Utilization implement api.Mallocer{} interface.
func (l *Locked) Utilization() ([]int, []float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mallocer.Utilization()
}

// Stats of wrapped allocator, nil if it does not expose any.
func (l *Locked) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.mallocer.(statser); ok {
		return m.Stats()
	}
	return nil
}

func (l *Locked) loghistograms() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.mallocer.(histogramer); ok {
		return m.loghistograms()
	}
	return nil
}
