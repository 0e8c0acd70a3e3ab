package emu

import "github.com/sarchlab/rvsim/insts"

// BranchUnit implements RISC-V branch and jump operations. Every target is
// computed from pc, the address of the branch instruction itself.
type BranchUnit struct {
	regFile *RegFile
	xlen    insts.XLEN
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile, xlen: regFile.XLEN()}
}

// Branch evaluates a conditional branch and, if taken, sets PC to
// pc + offset. It reports whether the branch was taken.
func (b *BranchUnit) Branch(op insts.Op, rs1, rs2 uint8, pc, offset uint64) bool {
	if !b.CheckCondition(op, rs1, rs2) {
		return false
	}
	b.regFile.SetPC(pc + offset)
	return true
}

// JAL links pc + 4 into rd and jumps to pc + offset.
func (b *BranchUnit) JAL(rd uint8, pc, offset uint64) {
	b.regFile.WriteReg(rd, pc+4)
	b.regFile.SetPC(pc + offset)
}

// JALR links pc + 4 into rd and jumps to (rs1 + offset) with bit 0 cleared.
func (b *BranchUnit) JALR(rd, rs1 uint8, pc, offset uint64) {
	// Read the base first in case rd == rs1.
	target := (b.regFile.ReadReg(rs1) + offset) &^ 1

	b.regFile.WriteReg(rd, pc+4)
	b.regFile.SetPC(target)
}

// CheckCondition compares rs1 and rs2 as the branch op requires.
func (b *BranchUnit) CheckCondition(op insts.Op, rs1, rs2 uint8) bool {
	lhs := b.regFile.ReadReg(rs1)
	rhs := b.regFile.ReadReg(rs2)

	switch op {
	case insts.OpBEQ:
		return lhs == rhs
	case insts.OpBNE:
		return lhs != rhs
	case insts.OpBLT:
		return b.regFile.ReadSigned(rs1) < b.regFile.ReadSigned(rs2)
	case insts.OpBGE:
		return b.regFile.ReadSigned(rs1) >= b.regFile.ReadSigned(rs2)
	case insts.OpBLTU:
		return lhs < rhs
	case insts.OpBGEU:
		return lhs >= rhs
	default:
		return false
	}
}
