package heap

import (
	"context"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/objrt/errors"
)

// Options configures a Heap.
type Options struct {
	// InitialPages is the number of 64KiB pages the memory starts with.
	InitialPages uint32
	// MaxPages caps growth. 0 means 65536 pages (4GiB).
	MaxPages uint32
}

// Heap owns a wazero runtime holding a single exported memory.
type Heap struct {
	rt    wazero.Runtime
	mem   *Memory
	alloc *FreeList
}

// Open instantiates the memory module and prepares the allocator.
func Open(ctx context.Context, opts Options) (*Heap, error) {
	if opts.InitialPages == 0 {
		opts.InitialPages = 1
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = 65536
	}
	if opts.InitialPages > opts.MaxPages {
		return nil, errors.InvalidInput(errors.PhaseHeap, "initial pages exceed max pages")
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithMemoryLimitPages(opts.MaxPages))

	compiled, err := rt.CompileModule(ctx, memoryModule(opts.InitialPages, opts.MaxPages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseHeap, errors.KindInvalidInput, err, "compile memory module")
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("objrt-heap"))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseHeap, errors.KindOutOfMemory, err, "instantiate memory module")
	}

	mem := WrapMemory(mod.ExportedMemory("memory"))
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.NotFound(errors.PhaseHeap, "export", "memory")
	}

	Logger().Debug("heap opened",
		zap.Uint32("initial_pages", opts.InitialPages),
		zap.Uint32("max_pages", opts.MaxPages))

	return &Heap{
		rt:    rt,
		mem:   mem,
		alloc: NewFreeList(mem, opts.MaxPages),
	}, nil
}

// Memory returns the heap's linear memory.
func (h *Heap) Memory() *Memory {
	return h.mem
}

// Allocator returns the heap's allocator.
func (h *Heap) Allocator() *FreeList {
	return h.alloc
}

// Alloc allocates a zeroed block.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	return h.alloc.Alloc(size, align)
}

// Free releases a block.
func (h *Heap) Free(ptr, size, align uint32) {
	h.alloc.Free(ptr, size, align)
}

// Close releases the wazero runtime and the memory with it.
func (h *Heap) Close(ctx context.Context) error {
	return h.rt.Close(ctx)
}

// memoryModule encodes a module with one memory exported as "memory".
func memoryModule(minPages, maxPages uint32) []byte {
	limits := []byte{0x01}
	limits = appendULEB128(limits, minPages)
	limits = appendULEB128(limits, maxPages)

	memSection := append([]byte{0x01}, limits...) // one memory

	exportSection := []byte{
		0x01,                               // one export
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', // name
		0x02, 0x00, // kind memory, index 0
	}

	out := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}
	out = append(out, 0x05)
	out = appendULEB128(out, uint32(len(memSection)))
	out = append(out, memSection...)
	out = append(out, 0x07)
	out = appendULEB128(out, uint32(len(exportSection)))
	out = append(out, exportSection...)
	return out
}

func appendULEB128(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}
