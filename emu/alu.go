package emu

import "github.com/sarchlab/rvsim/insts"

// ALU implements RISC-V integer arithmetic and logic operations.
type ALU struct {
	regFile *RegFile
	xlen    insts.XLEN
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile, xlen: regFile.XLEN()}
}

// ExecuteReg performs rd = rs1 op rs2. It reports false if op is not a
// register-register operation.
func (a *ALU) ExecuteReg(op insts.Op, rd, rs1, rs2 uint8) bool {
	result, ok := a.Compute(op, a.regFile.ReadReg(rs1), a.regFile.ReadReg(rs2))
	if !ok {
		return false
	}
	a.regFile.WriteReg(rd, result)
	return true
}

// ExecuteImm performs rd = rs1 op imm. It reports false if op is not a
// register-immediate operation.
func (a *ALU) ExecuteImm(op insts.Op, rd, rs1 uint8, imm uint64) bool {
	result, ok := a.Compute(op, a.regFile.ReadReg(rs1), imm)
	if !ok {
		return false
	}
	a.regFile.WriteReg(rd, result)
	return true
}

// LUI loads the positioned upper immediate: rd = imm.
func (a *ALU) LUI(rd uint8, imm uint64) {
	a.regFile.WriteReg(rd, imm)
}

// AUIPC adds the upper immediate to the instruction's own address:
// rd = pc + imm.
func (a *ALU) AUIPC(rd uint8, pc, imm uint64) {
	a.regFile.WriteReg(rd, pc+imm)
}

// Compute evaluates op on two XLEN operands. Register and immediate forms
// share an implementation. Results wrap modulo 2^XLEN; the W variants work
// on the low 32 bits and sign-extend the result.
func (a *ALU) Compute(op insts.Op, lhs, rhs uint64) (uint64, bool) {
	mask := a.xlen.Mask()
	lhs &= mask
	rhs &= mask
	shamt := rhs & a.xlen.ShamtMask()

	switch op {
	case insts.OpADD, insts.OpADDI:
		return (lhs + rhs) & mask, true
	case insts.OpSUB:
		return (lhs - rhs) & mask, true
	case insts.OpSLL, insts.OpSLLI:
		return (lhs << shamt) & mask, true
	case insts.OpSLT, insts.OpSLTI:
		return boolWord(a.signed(lhs) < a.signed(rhs)), true
	case insts.OpSLTU, insts.OpSLTIU:
		return boolWord(lhs < rhs), true
	case insts.OpXOR, insts.OpXORI:
		return lhs ^ rhs, true
	case insts.OpSRL, insts.OpSRLI:
		return lhs >> shamt, true
	case insts.OpSRA, insts.OpSRAI:
		return uint64(a.signed(lhs)>>shamt) & mask, true
	case insts.OpOR, insts.OpORI:
		return lhs | rhs, true
	case insts.OpAND, insts.OpANDI:
		return lhs & rhs, true

	case insts.OpADDW, insts.OpADDIW:
		return signExtend32(uint32(lhs) + uint32(rhs)), true
	case insts.OpSUBW:
		return signExtend32(uint32(lhs) - uint32(rhs)), true
	case insts.OpSLLW, insts.OpSLLIW:
		return signExtend32(uint32(lhs) << (rhs & 0x1F)), true
	case insts.OpSRLW, insts.OpSRLIW:
		return signExtend32(uint32(lhs) >> (rhs & 0x1F)), true
	case insts.OpSRAW, insts.OpSRAIW:
		return signExtend32(uint32(int32(uint32(lhs)) >> (rhs & 0x1F))), true
	}

	return 0, false
}

// signed reinterprets an XLEN value as a signed integer.
func (a *ALU) signed(v uint64) int64 {
	return int64(insts.SignExtend(v, a.xlen.Bits(), 64))
}

func signExtend32(v uint32) uint64 {
	return insts.SignExtend(uint64(v), 32, 64)
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
