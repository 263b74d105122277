package heap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/objrt"
	"github.com/wippyai/objrt/errors"
)

const (
	// granule is the smallest block size and the default alignment.
	granule = 8
	// base is the first address handed out; everything below it stays
	// unused so that 0 can act as the null pointer.
	base = 8
	// PageSize is the wasm page size.
	PageSize = 65536
)

var _ objrt.Allocator = (*FreeList)(nil)

type span struct {
	off  uint32
	size uint32
}

// FreeList is a first-fit allocator over a Memory.
type FreeList struct {
	mem      *Memory
	live     map[uint32]uint32
	free     []span
	top      uint32
	maxPages uint32
	inUse    uint32
}

// NewFreeList creates an allocator managing all of mem above the null page
// guard. maxPages of 0 means the memory never grows.
func NewFreeList(mem *Memory, maxPages uint32) *FreeList {
	return &FreeList{
		mem:      mem,
		live:     make(map[uint32]uint32),
		top:      base,
		maxPages: maxPages,
	}
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

func roundSize(size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	return alignUp(size, granule)
}

// Alloc returns a zeroed block of at least size bytes aligned to align.
// align must be a power of two; values below 8 are raised to 8.
func (a *FreeList) Alloc(size, align uint32) (uint32, error) {
	if align < granule {
		align = granule
	}
	size = roundSize(size)

	for i, s := range a.free {
		start := alignUp(s.off, align)
		pad := start - s.off
		if s.size < pad+size {
			continue
		}
		a.take(i, start, size)
		return a.commit(start, size)
	}

	start := alignUp(a.top, align)
	end := uint64(start) + uint64(size)
	if end > uint64(a.mem.Size()) {
		if !a.growTo(end) {
			return 0, errors.OutOfMemory(errors.PhaseHeap, size)
		}
	}
	if start > a.top {
		a.release(a.top, start-a.top)
	}
	a.top = uint32(end)
	return a.commit(start, size)
}

// take carves [start, start+size) out of free span i, returning any
// leftover on either side to the list.
func (a *FreeList) take(i int, start, size uint32) {
	s := a.free[i]
	a.free = append(a.free[:i], a.free[i+1:]...)
	if start > s.off {
		a.insert(span{off: s.off, size: start - s.off})
	}
	end := start + size
	if tail := s.off + s.size; tail > end {
		a.insert(span{off: end, size: tail - end})
	}
}

func (a *FreeList) commit(ptr, size uint32) (uint32, error) {
	if err := a.mem.zero(ptr, size); err != nil {
		return 0, err
	}
	a.live[ptr] = size
	a.inUse += size
	return ptr, nil
}

func (a *FreeList) growTo(end uint64) bool {
	cur := uint64(a.mem.Size()) / PageSize
	need := (end + PageSize - 1) / PageSize
	if a.maxPages != 0 && need > uint64(a.maxPages) {
		return false
	}
	if !a.mem.Grow(uint32(need - cur)) {
		return false
	}
	Logger().Debug("heap grown",
		zap.Uint64("from_pages", cur),
		zap.Uint64("to_pages", need))
	return true
}

// Free returns a block to the allocator. Freeing a pointer that is not live
// is logged and ignored.
func (a *FreeList) Free(ptr, size, align uint32) {
	got, ok := a.live[ptr]
	if !ok {
		Logger().Error("free of unknown block",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size))
		return
	}
	delete(a.live, ptr)
	a.inUse -= got
	a.release(ptr, got)
}

func (a *FreeList) release(ptr, size uint32) {
	if ptr+size == a.top {
		a.top = ptr
		// the span now at the top of the free list can shrink the bump pointer too
		for n := len(a.free); n > 0; n = len(a.free) {
			last := a.free[n-1]
			if last.off+last.size != a.top {
				break
			}
			a.top = last.off
			a.free = a.free[:n-1]
		}
		return
	}
	a.insert(span{off: ptr, size: size})
}

// insert adds s to the sorted free list and merges it with its neighbours.
func (a *FreeList) insert(s span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].off >= s.off })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s

	if i+1 < len(a.free) && a.free[i].off+a.free[i].size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == a.free[i].off {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

// Live returns the number of allocated blocks.
func (a *FreeList) Live() int {
	return len(a.live)
}

// InUse returns the number of allocated bytes.
func (a *FreeList) InUse() uint32 {
	return a.inUse
}

// SizeOf returns the size of a live block.
func (a *FreeList) SizeOf(ptr uint32) (uint32, bool) {
	size, ok := a.live[ptr]
	return size, ok
}
