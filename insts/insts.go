// Package insts provides RISC-V instruction definitions and decoding.
//
// This package implements decoding of RV32I and RV64I machine code into
// structured instruction representations. It supports:
//   - Register-register and register-immediate arithmetic (OP, OP-IMM)
//   - The RV64 word variants (OP-32, OP-IMM-32)
//   - Loads and stores of bytes, halfwords, words and doublewords
//   - Conditional branches, JAL and JALR
//   - LUI, AUIPC, FENCE, ECALL and EBREAK
//
// Usage:
//
//	decoder := insts.NewDecoder(insts.XLEN64)
//	inst := decoder.Decode(0x00500093) // ADDI x1, x0, 5
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
package insts
