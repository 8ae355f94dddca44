package hal

import (
	"sync/atomic"
	"unsafe"
)

// BudgetHeap hands out Go-allocated blocks while keeping the total below a
// fixed budget, so callers see allocation failure the way they would on a
// board with a small RAM heap.
type BudgetHeap struct {
	limit uintptr
	used  atomic.Uintptr
	live  atomic.Int64
}

// NewBudgetHeap returns a heap that refuses allocations past limit bytes.
func NewBudgetHeap(limit uintptr) *BudgetHeap {
	return &BudgetHeap{limit: limit}
}

// Alloc returns a zeroed block of size bytes whose first byte is aligned to
// align, which must be a power of two.
func (h *BudgetHeap) Alloc(size, align uintptr) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if align == 0 || align&(align-1) != 0 {
		align = 1
	}
	for {
		used := h.used.Load()
		if used+size > h.limit || used+size < used {
			return nil, ErrOutOfMemory
		}
		if h.used.CompareAndSwap(used, used+size) {
			break
		}
	}

	raw := make([]byte, size+align-1)
	off := uintptr(0)
	if mis := uintptr(unsafe.Pointer(&raw[0])) & (align - 1); mis != 0 {
		off = align - mis
	}
	h.live.Add(1)
	return raw[off : off+size : off+size], nil
}

// Free returns b's bytes to the budget.
func (h *BudgetHeap) Free(b []byte) {
	if len(b) == 0 {
		return
	}
	h.used.Add(^(uintptr(len(b)) - 1))
	h.live.Add(-1)
}

// Used returns the bytes currently allocated.
func (h *BudgetHeap) Used() uintptr { return h.used.Load() }

// Live returns the number of outstanding blocks.
func (h *BudgetHeap) Live() int { return int(h.live.Load()) }
