package heap

import (
	"context"
	"testing"
)

func openHeap(t *testing.T, opts Options) *Heap {
	t.Helper()
	ctx := context.Background()
	h, err := Open(ctx, opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = h.Close(ctx) })
	return h
}

func TestWrapMemory_Nil(t *testing.T) {
	if WrapMemory(nil) != nil {
		t.Error("expected nil for nil memory")
	}
}

func TestOpen_InvalidOptions(t *testing.T) {
	_, err := Open(context.Background(), Options{InitialPages: 4, MaxPages: 2})
	if err == nil {
		t.Fatal("expected error when initial pages exceed max pages")
	}
}

func TestMemory_ReadWrite(t *testing.T) {
	h := openHeap(t, Options{InitialPages: 1, MaxPages: 4})
	mem := h.Memory()

	if mem.Size() != PageSize {
		t.Fatalf("Size = %d, want %d", mem.Size(), PageSize)
	}

	data := []byte{1, 2, 3, 4}
	if err := mem.Write(16, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	read, err := mem.Read(16, 4)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	for i, b := range read {
		if b != data[i] {
			t.Errorf("byte %d: expected %d, got %d", i, data[i], b)
		}
	}

	if err := mem.WriteU32(32, 0xdeadbeef); err != nil {
		t.Fatalf("WriteU32 failed: %v", err)
	}
	v32, err := mem.ReadU32(32)
	if err != nil || v32 != 0xdeadbeef {
		t.Fatalf("ReadU32 = %x, %v", v32, err)
	}

	if err := mem.WriteU64(40, 1<<40); err != nil {
		t.Fatalf("WriteU64 failed: %v", err)
	}
	v64, err := mem.ReadU64(40)
	if err != nil || v64 != 1<<40 {
		t.Fatalf("ReadU64 = %d, %v", v64, err)
	}

	if err := mem.WriteU8(48, 7); err != nil {
		t.Fatalf("WriteU8 failed: %v", err)
	}
	v8, err := mem.ReadU8(48)
	if err != nil || v8 != 7 {
		t.Fatalf("ReadU8 = %d, %v", v8, err)
	}
}

func TestMemory_OutOfBounds(t *testing.T) {
	h := openHeap(t, Options{InitialPages: 1, MaxPages: 1})
	mem := h.Memory()

	if _, err := mem.Read(PageSize, 1); err == nil {
		t.Error("expected error for out of bounds read")
	}
	if err := mem.Write(PageSize-2, []byte{1, 2, 3}); err == nil {
		t.Error("expected error for out of bounds write")
	}
	if _, err := mem.ReadU32(PageSize - 2); err == nil {
		t.Error("expected error for out of bounds u32 read")
	}
}

func TestMemory_ReadCString(t *testing.T) {
	h := openHeap(t, Options{InitialPages: 1, MaxPages: 1})
	mem := h.Memory()

	if err := mem.Write(100, []byte("int\x00junk")); err != nil {
		t.Fatal(err)
	}
	s, err := mem.ReadCString(100)
	if err != nil {
		t.Fatalf("ReadCString failed: %v", err)
	}
	if string(s) != "int" {
		t.Errorf("ReadCString = %q, want %q", s, "int")
	}

	// no terminator before the end of memory
	tail := make([]byte, 8)
	for i := range tail {
		tail[i] = 'x'
	}
	if err := mem.Write(PageSize-8, tail); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.ReadCString(PageSize - 8); err == nil {
		t.Error("expected error for unterminated string")
	}
}

func TestFreeList_AllocFree(t *testing.T) {
	h := openHeap(t, Options{InitialPages: 1, MaxPages: 4})

	a, err := h.Alloc(12, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if a == 0 {
		t.Fatal("Alloc returned the null pointer")
	}
	if a%8 != 0 {
		t.Errorf("pointer %d not 8-byte aligned", a)
	}
	if size, ok := h.Allocator().SizeOf(a); !ok || size != 16 {
		t.Errorf("SizeOf = %d, %v; want 16, true", size, ok)
	}

	b, err := h.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if b == a {
		t.Fatal("distinct allocations share a pointer")
	}

	if h.Allocator().Live() != 2 {
		t.Errorf("Live = %d, want 2", h.Allocator().Live())
	}

	h.Free(a, 12, 8)
	c, err := h.Alloc(16, 8)
	if err != nil {
		t.Fatal(err)
	}
	if c != a {
		t.Errorf("expected freed block %d to be reused, got %d", a, c)
	}

	h.Free(b, 8, 8)
	h.Free(c, 16, 8)
	if h.Allocator().Live() != 0 || h.Allocator().InUse() != 0 {
		t.Errorf("Live=%d InUse=%d after freeing everything", h.Allocator().Live(), h.Allocator().InUse())
	}
}

func TestFreeList_Zeroed(t *testing.T) {
	h := openHeap(t, Options{InitialPages: 1, MaxPages: 1})

	p, err := h.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Memory().WriteU64(p, ^uint64(0)); err != nil {
		t.Fatal(err)
	}
	h.Free(p, 8, 8)

	q, err := h.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := h.Memory().ReadU64(q)
	if v != 0 {
		t.Errorf("reused block not zeroed: %x", v)
	}
}

func TestFreeList_Coalesce(t *testing.T) {
	h := openHeap(t, Options{InitialPages: 1, MaxPages: 1})

	var ptrs []uint32
	for i := 0; i < 4; i++ {
		p, err := h.Alloc(32, 8)
		if err != nil {
			t.Fatal(err)
		}
		ptrs = append(ptrs, p)
	}
	// keep the last block so the first three cannot fold into the bump pointer
	h.Free(ptrs[0], 32, 8)
	h.Free(ptrs[2], 32, 8)
	h.Free(ptrs[1], 32, 8)

	big, err := h.Alloc(96, 8)
	if err != nil {
		t.Fatal(err)
	}
	if big != ptrs[0] {
		t.Errorf("expected coalesced span at %d, got %d", ptrs[0], big)
	}
}

func TestFreeList_Grow(t *testing.T) {
	h := openHeap(t, Options{InitialPages: 1, MaxPages: 3})

	p, err := h.Alloc(PageSize+100, 8)
	if err != nil {
		t.Fatalf("Alloc across page boundary failed: %v", err)
	}
	if h.Memory().Size() < p+PageSize+100 {
		t.Errorf("memory did not grow: size=%d", h.Memory().Size())
	}

	if _, err := h.Alloc(3*PageSize, 8); err == nil {
		t.Error("expected out of memory beyond MaxPages")
	}
}

func TestFreeList_UnknownFree(t *testing.T) {
	h := openHeap(t, Options{InitialPages: 1, MaxPages: 1})
	h.Free(1234, 8, 8)
	if h.Allocator().Live() != 0 {
		t.Error("unknown free changed allocator state")
	}
}

func TestMemoryModule_Encoding(t *testing.T) {
	bin := memoryModule(1, 2)
	want := []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,
		0x05, 0x04, 0x01, 0x01, 0x01, 0x02,
		0x07, 0x0a, 0x01,
		0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79,
		0x02, 0x00,
	}
	if len(bin) != len(want) {
		t.Fatalf("len = %d, want %d: %x", len(bin), len(want), bin)
	}
	for i := range want {
		if bin[i] != want[i] {
			t.Fatalf("byte %d = %x, want %x", i, bin[i], want[i])
		}
	}

	if got := appendULEB128(nil, 65536); len(got) != 3 || got[0] != 0x80 || got[1] != 0x80 || got[2] != 0x04 {
		t.Errorf("appendULEB128(65536) = %x", got)
	}
}
