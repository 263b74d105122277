package objrt

// Memory is the linear memory the foreign heap lives in.
// Offsets are the raw foreign pointers handed out by the vm package.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
	// ReadCString reads bytes up to, not including, the first NUL.
	ReadCString(offset uint32) ([]byte, error)
}

// MemorySizer provides the current size of linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator hands out blocks of linear memory. Offset 0 is never returned
// and stands for the null pointer.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
