package emu

import "github.com/sarchlab/rvsim/insts"

// RISC-V calling convention registers.
const (
	RegRA uint8 = 1  // return address
	RegSP uint8 = 2  // stack pointer
	RegA0 uint8 = 10 // first argument / return value
	RegA7 uint8 = 17 // syscall number
)

// SystemResult represents the outcome of a SYSTEM or MISC-MEM instruction.
type SystemResult struct {
	// Halt is true if the handler asks the emulator to stop.
	Halt bool

	// ExitCode is the exit status if Halt is true.
	ExitCode int64
}

// SystemHandler is the extension point for ECALL, EBREAK, FENCE and
// FENCE.I. pc is the address of the instruction. The emulator has already
// advanced regFile.PC past it, so a handler may redirect control by calling
// regFile.SetPC. Guest memory is reachable through bus.
type SystemHandler interface {
	Handle(inst *insts.Instruction, pc uint64, regFile *RegFile, bus *Bus) SystemResult
}

// NopSystemHandler treats every SYSTEM and MISC-MEM instruction as a no-op.
// With a single hart there is nothing for FENCE to order, and traps are
// not delivered.
type NopSystemHandler struct{}

// Handle implements SystemHandler.
func (NopSystemHandler) Handle(*insts.Instruction, uint64, *RegFile, *Bus) SystemResult {
	return SystemResult{}
}

// HaltOnECallHandler stops execution at ECALL or EBREAK. ECALL reports a0
// as the exit code, EBREAK reports -1. Fences remain no-ops.
type HaltOnECallHandler struct{}

// Handle implements SystemHandler.
func (HaltOnECallHandler) Handle(inst *insts.Instruction, _ uint64, regFile *RegFile, _ *Bus) SystemResult {
	switch inst.Op {
	case insts.OpECALL:
		return SystemResult{Halt: true, ExitCode: regFile.ReadSigned(RegA0)}
	case insts.OpEBREAK:
		return SystemResult{Halt: true, ExitCode: -1}
	default:
		return SystemResult{}
	}
}
