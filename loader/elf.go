// Package loader provides ELF and flat binary loading for RISC-V programs.
package loader

import (
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/rvsim/insts"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address of the segment.
	VirtAddr uint64
	// PhysAddr is the physical address the segment is placed at.
	PhysAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint64
	// XLEN is the machine width the program was built for.
	XLEN insts.XLEN
	// Segments contains all loadable segments.
	Segments []Segment
}

// Load parses a RISC-V ELF binary. The ELF class selects RV32 or RV64.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	prog := &Program{EntryPoint: f.Entry}
	switch f.Class {
	case elf.ELFCLASS32:
		prog.XLEN = insts.XLEN32
	case elf.ELFCLASS64:
		prog.XLEN = insts.XLEN64
	default:
		return nil, fmt.Errorf("unsupported ELF class %v", f.Class)
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Paddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Paddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: phdr.Vaddr,
			PhysAddr: phdr.Paddr,
			Data:     data,
			MemSize:  max(phdr.Memsz, phdr.Filesz),
			Flags:    flags,
		})
	}

	return prog, nil
}

// LoadFlat reads a raw binary that is loaded at base and entered at its
// first byte.
func LoadFlat(path string, base uint64, xlen insts.XLEN) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary: %w", err)
	}

	return &Program{
		EntryPoint: base,
		XLEN:       xlen,
		Segments: []Segment{{
			VirtAddr: base,
			PhysAddr: base,
			Data:     data,
			MemSize:  uint64(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}, nil
}

// Image builds the initial contents of a memory covering [base, base+size).
// Each segment is copied to PhysAddr-base and its BSS tail is left zero.
func (p *Program) Image(base, size uint64) ([]byte, error) {
	image := make([]byte, size)

	for _, seg := range p.Segments {
		if seg.MemSize == 0 {
			continue
		}
		if seg.PhysAddr < base || seg.MemSize > size || seg.PhysAddr-base > size-seg.MemSize {
			return nil, fmt.Errorf("segment at 0x%x (%d bytes) outside memory 0x%x-0x%x",
				seg.PhysAddr, seg.MemSize, base, base+size)
		}
		copy(image[seg.PhysAddr-base:], seg.Data)
	}

	return image, nil
}

// Contains reports whether addr lies inside a loaded segment, by either its
// virtual or its physical address.
func (p *Program) Contains(addr uint64) bool {
	for _, seg := range p.Segments {
		if within(seg.VirtAddr, seg.MemSize, addr) || within(seg.PhysAddr, seg.MemSize, addr) {
			return true
		}
	}
	return false
}

func within(start, size, addr uint64) bool {
	return addr >= start && addr-start < size
}
