package emu

import "github.com/sarchlab/rvsim/insts"

// MemAccess describes the data memory access made by one instruction.
type MemAccess struct {
	// Valid is false for instructions that do not touch data memory.
	Valid bool
	Addr  uint64
	Width Width
	Write bool
}

// LoadStoreUnit implements RISC-V load and store operations.
type LoadStoreUnit struct {
	regFile *RegFile
	bus     *Bus
	xlen    insts.XLEN
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and bus.
func NewLoadStoreUnit(regFile *RegFile, bus *Bus) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		bus:     bus,
		xlen:    regFile.XLEN(),
	}
}

type loadShape struct {
	width  Width
	signed bool
}

var loadShapes = map[insts.Op]loadShape{
	insts.OpLB:  {Width8, true},
	insts.OpLH:  {Width16, true},
	insts.OpLW:  {Width32, true},
	insts.OpLD:  {Width64, true},
	insts.OpLBU: {Width8, false},
	insts.OpLHU: {Width16, false},
	insts.OpLWU: {Width32, false},
}

var storeWidths = map[insts.Op]Width{
	insts.OpSB: Width8,
	insts.OpSH: Width16,
	insts.OpSW: Width32,
	insts.OpSD: Width64,
}

// EffectiveAddress computes rs1 + imm modulo 2^XLEN.
func (lsu *LoadStoreUnit) EffectiveAddress(rs1 uint8, imm uint64) uint64 {
	return (lsu.regFile.ReadReg(rs1) + imm) & lsu.xlen.Mask()
}

// Load performs rd = extend(mem[rs1 + imm]). The destination register is
// written only after the bus access succeeds.
func (lsu *LoadStoreUnit) Load(op insts.Op, rd, rs1 uint8, imm uint64) (MemAccess, error) {
	shape, ok := loadShapes[op]
	if !ok {
		return MemAccess{}, ErrIllegalInstruction
	}

	addr := lsu.EffectiveAddress(rs1, imm)
	access := MemAccess{Valid: true, Addr: addr, Width: shape.width}

	value, err := lsu.bus.Load(addr, shape.width)
	if err != nil {
		return access, err
	}

	if shape.signed {
		value = insts.SignExtend(value, uint(shape.width), lsu.xlen.Bits())
	}
	lsu.regFile.WriteReg(rd, value)

	return access, nil
}

// Store performs mem[rs1 + imm] = rs2[width-1:0].
func (lsu *LoadStoreUnit) Store(op insts.Op, rs1, rs2 uint8, imm uint64) (MemAccess, error) {
	width, ok := storeWidths[op]
	if !ok {
		return MemAccess{}, ErrIllegalInstruction
	}

	addr := lsu.EffectiveAddress(rs1, imm)
	access := MemAccess{Valid: true, Addr: addr, Width: width, Write: true}

	value := lsu.regFile.ReadReg(rs2) & width.Mask()
	return access, lsu.bus.Store(addr, width, value)
}
