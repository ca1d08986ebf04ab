package resp

import "sync"

// Allocator is the sole owner of any heap produced by the allocating
// decoder for a single send_alloc/pipe_alloc/trans_alloc call. The decoder
// never retains the Allocator past its return (§5); the free-reply walker
// must be given the same Allocator that produced the value it is releasing
// — mixing allocators is a caller error with undefined results.
//
// Go is garbage-collected, so an Allocator cannot return memory to the OS;
// what it tracks is outstanding-allocation accounting, so that "freeing" a
// decoded reply can be verified to restore the accounting to its
// pre-decode state (§8 testable property 3), the way a real arena
// allocator's high-water mark would be restored.
type Allocator interface {
	// AllocBytes returns a fresh n-byte slice and records it as
	// outstanding.
	AllocBytes(n int) ([]byte, error)
	// FreeBytes releases a slice previously returned by AllocBytes.
	FreeBytes(b []byte)
	// AllocCell records one outstanding non-byte allocation (a sequence's
	// backing array, a boxed pointer cell, ...). It does not itself
	// allocate memory — Go slices/pointers are allocated by make/new — it
	// only maintains the accounting the free-reply walker checks.
	AllocCell()
	// FreeCell releases one allocation recorded by AllocCell.
	FreeCell()
}

// Arena is the Allocator bundled with this package: a simple bump-counting
// allocator with no upper bound. Its zero value is ready to use.
type Arena struct {
	mu          sync.Mutex
	outBytes    int64
	outCells    int64
	maxBytes    int64 // 0 means unbounded
}

// NewArena returns an Arena with no allocation ceiling.
func NewArena() *Arena { return &Arena{} }

// NewBoundedArena returns an Arena that fails AllocBytes once outstanding
// byte allocations would exceed maxBytes. Useful for exercising
// AllocFailureError paths in tests.
func NewBoundedArena(maxBytes int64) *Arena { return &Arena{maxBytes: maxBytes} }

func (a *Arena) AllocBytes(n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.maxBytes > 0 && a.outBytes+int64(n) > a.maxBytes {
		return nil, &AllocFailureError{Cause: errOutOfMemory}
	}
	a.outBytes += int64(n)
	return make([]byte, n), nil
}

func (a *Arena) FreeBytes(b []byte) {
	if b == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outBytes -= int64(len(b))
}

func (a *Arena) AllocCell() {
	a.mu.Lock()
	a.outCells++
	a.mu.Unlock()
}

func (a *Arena) FreeCell() {
	a.mu.Lock()
	a.outCells--
	a.mu.Unlock()
}

// Outstanding returns the current outstanding byte and cell counts, for
// tests asserting that a free-reply walk returned the arena to its
// pre-decode state.
func (a *Arena) Outstanding() (bytes, cells int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outBytes, a.outCells
}

var errOutOfMemory = arenaExhausted("resp: arena allocation limit exceeded")

type arenaExhausted string

func (e arenaExhausted) Error() string { return string(e) }
