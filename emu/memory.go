package emu

import "fmt"

// Default physical memory window.
const (
	DefaultMemoryBase uint64 = 0x8000_0000
	DefaultMemorySize uint64 = 0x4000
)

// Width is the size of a memory access in bits.
type Width uint8

// Access widths.
const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Valid reports whether w is one of the supported widths.
func (w Width) Valid() bool {
	return w == Width8 || w == Width16 || w == Width32 || w == Width64
}

// Bytes returns the access size in bytes.
func (w Width) Bytes() uint64 {
	return uint64(w) / 8
}

// Mask returns a mask covering the low w bits.
func (w Width) Mask() uint64 {
	if w >= Width64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}

// Device is a memory-mapped region reachable through the Bus. The bus only
// forwards accesses that lie entirely inside [Base, Base+Size).
type Device interface {
	Base() uint64
	Size() uint64
	Load(addr uint64, width Width) (uint64, error)
	Store(addr uint64, width Width, value uint64) error
}

// Memory is a flat, byte-addressable backing store covering the physical
// range [base, base+size). Multi-byte values are little-endian.
type Memory struct {
	base uint64
	data []byte
}

// NewMemory creates a zero-filled memory of the given size at base.
func NewMemory(base, size uint64) *Memory {
	return &Memory{
		base: base,
		data: make([]byte, size),
	}
}

// NewMemoryFromImage creates a memory and copies image to its start.
func NewMemoryFromImage(base, size uint64, image []byte) (*Memory, error) {
	if uint64(len(image)) > size {
		return nil, fmt.Errorf("image of %d bytes does not fit in %d bytes of memory", len(image), size)
	}
	m := NewMemory(base, size)
	copy(m.data, image)
	return m, nil
}

// Base returns the first physical address of the memory.
func (m *Memory) Base() uint64 {
	return m.base
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Contains reports whether [addr, addr+n) lies entirely inside the memory.
func (m *Memory) Contains(addr, n uint64) bool {
	return contains(m.base, m.Size(), addr, n)
}

func contains(base, size, addr, n uint64) bool {
	if addr < base || n > size {
		return false
	}
	return addr-base <= size-n
}

// Load reads width bits at addr.
func (m *Memory) Load(addr uint64, width Width) (uint64, error) {
	if !width.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedWidth, width)
	}
	n := width.Bytes()
	if !m.Contains(addr, n) {
		return 0, &Fault{Kind: FaultOutOfBounds, Addr: addr, Width: width}
	}

	off := addr - m.base
	var value uint64
	for i := uint64(0); i < n; i++ {
		value |= uint64(m.data[off+i]) << (i * 8)
	}
	return value, nil
}

// Store writes the low width bits of value at addr. The store is rejected
// as a whole when any byte would fall outside the memory.
func (m *Memory) Store(addr uint64, width Width, value uint64) error {
	if !width.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedWidth, width)
	}
	n := width.Bytes()
	if !m.Contains(addr, n) {
		return &Fault{Kind: FaultOutOfBounds, Addr: addr, Width: width}
	}

	off := addr - m.base
	for i := uint64(0); i < n; i++ {
		m.data[off+i] = byte(value >> (i * 8))
	}
	return nil
}

// WriteBytes copies data into memory starting at addr.
func (m *Memory) WriteBytes(addr uint64, data []byte) error {
	if !m.Contains(addr, uint64(len(data))) {
		return fmt.Errorf("write of %d bytes at 0x%X: %w", len(data), addr, ErrOutOfBounds)
	}
	copy(m.data[addr-m.base:], data)
	return nil
}

// ReadBytes returns a copy of n bytes starting at addr.
func (m *Memory) ReadBytes(addr, n uint64) ([]byte, error) {
	if !m.Contains(addr, n) {
		return nil, fmt.Errorf("read of %d bytes at 0x%X: %w", n, addr, ErrOutOfBounds)
	}
	out := make([]byte, n)
	copy(out, m.data[addr-m.base:])
	return out, nil
}

// Clear zero-fills the memory.
func (m *Memory) Clear() {
	clear(m.data)
}
