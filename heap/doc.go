// Package heap provides the linear memory the foreign object runtime lives in.
//
// A Heap is a wazero module instance that exports nothing but one memory.
// Offsets into that memory are the raw pointers of the object runtime, and
// offset 0 is reserved as the null pointer.
//
//	h, err := heap.Open(ctx, heap.Options{InitialPages: 1, MaxPages: 256})
//	if err != nil {
//	    return err
//	}
//	defer h.Close(ctx)
//
//	p, err := h.Alloc(16, 8)
//	_ = h.Memory().WriteU32(p, 1)
//	h.Free(p, 16, 8)
//
// # Allocation
//
// The allocator is a first-fit free list over the memory with a bump pointer
// at the top. Blocks are 8-byte granular and zeroed on allocation. When no
// free span fits, the memory grows by whole pages up to MaxPages.
//
// Heap is not safe for concurrent use; the object runtime serializes access
// with its execution lock.
package heap
