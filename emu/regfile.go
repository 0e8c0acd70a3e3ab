package emu

import "github.com/sarchlab/rvsim/insts"

// RegFile represents the RISC-V integer register file.
// It contains 32 general-purpose registers (x0-x31) and the program
// counter (PC). Values are kept reduced to XLEN bits.
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is hardwired to zero: it always reads as 0 and writes are dropped.
	X [32]uint64

	// PC is the program counter.
	PC uint64

	xlen insts.XLEN
}

// NewRegFile creates a zeroed register file for the given width.
func NewRegFile(xlen insts.XLEN) *RegFile {
	return &RegFile{xlen: xlen}
}

// XLEN returns the register width. A zero-value RegFile is 64 bits wide.
func (r *RegFile) XLEN() insts.XLEN {
	if !r.xlen.Valid() {
		return insts.XLEN64
	}
	return r.xlen
}

// ReadReg reads a register value. Register 0 returns 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// ReadSigned reads a register as a signed XLEN value.
func (r *RegFile) ReadSigned(reg uint8) int64 {
	xlen := r.XLEN().Bits()
	return int64(insts.SignExtend(r.ReadReg(reg), xlen, 64))
}

// WriteReg writes a value to a register, truncated to XLEN. Writes to
// register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value & r.XLEN().Mask()
}

// SetPC sets the program counter, truncated to XLEN.
func (r *RegFile) SetPC(pc uint64) {
	r.PC = pc & r.XLEN().Mask()
}

// Reset clears all registers and the PC.
func (r *RegFile) Reset() {
	r.X = [32]uint64{}
	r.PC = 0
}
