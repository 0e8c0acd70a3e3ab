// Package emu provides functional RISC-V emulation.
package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/insts"
)

// HaltReason tells why the emulator stopped.
type HaltReason uint8

// Halt reasons.
const (
	HaltNone HaltReason = iota
	HaltFault
	HaltZeroPC
	HaltStepLimit
	HaltSystem
)

// String implements fmt.Stringer.
func (r HaltReason) String() string {
	switch r {
	case HaltNone:
		return "running"
	case HaltFault:
		return "fault"
	case HaltZeroPC:
		return "pc reached zero"
	case HaltStepLimit:
		return "step limit reached"
	case HaltSystem:
		return "halted by system handler"
	default:
		return fmt.Sprintf("HaltReason(%d)", uint8(r))
	}
}

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Inst is the decoded instruction, nil if the fetch failed.
	Inst *insts.Instruction

	// PC is the address of the instruction.
	PC uint64

	// NextPC is the PC after the instruction retired.
	NextPC uint64

	// Access is the data memory access performed, if any.
	Access MemAccess

	// Halted is true once the emulator has stopped.
	Halted bool

	// Reason is set when Halted is true.
	Reason HaltReason

	// ExitCode is reported by the system handler for HaltSystem.
	ExitCode int64

	// Err is set if the instruction faulted. It is usually a *Fault.
	Err error
}

// RegisterSnapshot is a read-only copy of the architectural registers.
type RegisterSnapshot struct {
	X    [32]uint64
	PC   uint64
	XLEN insts.XLEN
}

// Emulator executes RISC-V instructions functionally.
type Emulator struct {
	xlen          insts.XLEN
	regFile       *RegFile
	memory        *Memory
	bus           *Bus
	decoder       *insts.Decoder
	systemHandler SystemHandler

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	// Construction parameters
	memBase    uint64
	memSize    uint64
	image      []byte
	entry      uint64
	devices    []Device
	uartBase   uint64
	withUART   bool
	initialSP  uint64
	spOverride bool

	// I/O
	stdout io.Writer
	logger *logrus.Entry

	retireHooks []func(StepResult)

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	haltOnZeroPC     bool
	halted           bool
	last             StepResult
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithXLEN selects RV32I or RV64I. The default is RV64I.
func WithXLEN(xlen insts.XLEN) EmulatorOption {
	return func(e *Emulator) {
		e.xlen = xlen
	}
}

// WithMemory sets the physical memory window.
func WithMemory(base, size uint64) EmulatorOption {
	return func(e *Emulator) {
		e.memBase = base
		e.memSize = size
	}
}

// WithImage sets the initial memory contents, copied to the memory base.
func WithImage(image []byte) EmulatorOption {
	return func(e *Emulator) {
		e.image = image
	}
}

// WithDevice attaches an additional memory-mapped device.
func WithDevice(dev Device) EmulatorOption {
	return func(e *Emulator) {
		e.devices = append(e.devices, dev)
	}
}

// WithUART attaches a UART at base that transmits to the emulator's stdout.
func WithUART(base uint64) EmulatorOption {
	return func(e *Emulator) {
		e.withUART = true
		e.uartBase = base
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithSystemHandler sets a custom handler for ECALL, EBREAK and fences.
func WithSystemHandler(handler SystemHandler) EmulatorOption {
	return func(e *Emulator) {
		e.systemHandler = handler
	}
}

// WithStackPointer sets the initial stack pointer value. By default sp
// points at the end of memory.
func WithStackPointer(sp uint64) EmulatorOption {
	return func(e *Emulator) {
		e.initialSP = sp
		e.spOverride = true
	}
}

// WithMaxInstructions sets the maximum number of instructions Run executes.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithHaltOnZeroPC controls whether Run stops when PC becomes zero.
// Enabled by default.
func WithHaltOnZeroPC(enabled bool) EmulatorOption {
	return func(e *Emulator) {
		e.haltOnZeroPC = enabled
	}
}

// WithLogger sets the logger used for instruction tracing and halt
// reports. Tracing happens at debug level.
func WithLogger(logger *logrus.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger.WithField("component", "emu")
	}
}

// NewEmulator creates a new RISC-V emulator. The PC starts at the memory
// base and sp at the end of memory.
func NewEmulator(opts ...EmulatorOption) (*Emulator, error) {
	e := &Emulator{
		xlen:          insts.XLEN64,
		memBase:       DefaultMemoryBase,
		memSize:       DefaultMemorySize,
		stdout:        os.Stdout,
		systemHandler: NopSystemHandler{},
		haltOnZeroPC:  true,
	}

	for _, opt := range opts {
		opt(e)
	}

	if !e.xlen.Valid() {
		return nil, fmt.Errorf("unsupported XLEN %d", e.xlen)
	}
	if e.memSize == 0 {
		return nil, fmt.Errorf("memory size must be > 0")
	}
	if e.memBase&e.xlen.Mask() != e.memBase || (e.memBase+e.memSize-1)&e.xlen.Mask() != e.memBase+e.memSize-1 {
		return nil, fmt.Errorf("memory window 0x%X+0x%X does not fit in %v addresses", e.memBase, e.memSize, e.xlen)
	}
	if e.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		e.logger = discard.WithField("component", "emu")
	}

	memory, err := NewMemoryFromImage(e.memBase, e.memSize, e.image)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}
	e.memory = memory
	e.entry = e.memBase

	e.bus = NewBus(e.xlen)
	if err := e.bus.Attach(memory); err != nil {
		return nil, fmt.Errorf("failed to attach memory: %w", err)
	}
	if e.withUART {
		if err := e.bus.Attach(NewUART(e.uartBase, e.stdout)); err != nil {
			return nil, fmt.Errorf("failed to attach UART: %w", err)
		}
	}
	for _, dev := range e.devices {
		if err := e.bus.Attach(dev); err != nil {
			return nil, fmt.Errorf("failed to attach device: %w", err)
		}
	}

	e.decoder = insts.NewDecoder(e.xlen)
	e.regFile = NewRegFile(e.xlen)

	// Create execution units
	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.bus)
	e.branchUnit = NewBranchUnit(e.regFile)

	e.resetRegisters()

	return e, nil
}

// XLEN returns the machine width.
func (e *Emulator) XLEN() insts.XLEN {
	return e.xlen
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's main memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Bus returns the emulator's memory bus.
func (e *Emulator) Bus() *Bus {
	return e.bus
}

// Decoder returns the emulator's instruction decoder.
func (e *Emulator) Decoder() *insts.Decoder {
	return e.decoder
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Halted reports whether the emulator has stopped.
func (e *Emulator) Halted() bool {
	return e.halted
}

// LastResult returns the result of the most recent step.
func (e *Emulator) LastResult() StepResult {
	return e.last
}

// Snapshot returns a copy of the registers and PC.
func (e *Emulator) Snapshot() RegisterSnapshot {
	return RegisterSnapshot{
		X:    e.regFile.X,
		PC:   e.regFile.PC,
		XLEN: e.xlen,
	}
}

// OnRetire registers fn to be called after every instruction that retires,
// including one that halts through the system handler. Faulting
// instructions do not retire.
func (e *Emulator) OnRetire(fn func(StepResult)) {
	e.retireHooks = append(e.retireHooks, fn)
}

// LoadProgram copies image to the memory base and sets the entry point.
// Reset returns to the same image and entry point.
func (e *Emulator) LoadProgram(entry uint64, image []byte) error {
	if err := e.memory.WriteBytes(e.memory.Base(), image); err != nil {
		return fmt.Errorf("failed to load program: %w", err)
	}
	e.image = image
	e.entry = entry
	e.regFile.SetPC(entry)
	return nil
}

// Reset restores the initial memory image and registers and clears the
// halted state. Devices other than main memory are left untouched.
func (e *Emulator) Reset() {
	e.memory.Clear()
	_ = e.memory.WriteBytes(e.memory.Base(), e.image)

	e.resetRegisters()
	e.instructionCount = 0
	e.halted = false
	e.last = StepResult{}
}

func (e *Emulator) resetRegisters() {
	e.regFile.Reset()
	e.regFile.SetPC(e.entry)

	sp := e.memBase + e.memSize
	if e.spOverride {
		sp = e.initialSP
	}
	e.regFile.WriteReg(RegSP, sp)
}

// Step fetches, decodes and executes one instruction. PC is advanced by 4
// before execution; control-flow instructions then override it using the
// instruction's own address. On a fault nothing is committed and the
// emulator halts.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return e.last
	}

	pc := e.regFile.PC
	result := StepResult{PC: pc}

	if pc%4 != 0 {
		return e.halt(result, HaltFault, &Fault{Kind: FaultMisaligned, PC: pc, Addr: pc, Width: Width32})
	}

	// 1. Fetch
	word, err := e.bus.Fetch(pc)
	if err != nil {
		return e.halt(result, HaltFault, e.faultAt(err, pc, 0))
	}

	// 2. Decode
	inst := e.decoder.Decode(word)
	result.Inst = inst

	e.regFile.SetPC(pc + 4)
	e.regFile.X[0] = 0

	// 3. Execute
	access, sys, err := e.execute(inst, pc)
	result.Access = access
	if err != nil {
		e.regFile.PC = pc
		return e.halt(result, HaltFault, e.faultAt(err, pc, word))
	}

	e.instructionCount++
	result.NextPC = e.regFile.PC
	for _, hook := range e.retireHooks {
		hook(result)
	}

	if e.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		e.logger.WithFields(logrus.Fields{
			"pc":   fmt.Sprintf("0x%X", pc),
			"word": fmt.Sprintf("0x%08X", word),
			"op":   inst.Op.String(),
		}).Debug("step")
	}

	if sys.Halt {
		result.ExitCode = sys.ExitCode
		return e.halt(result, HaltSystem, nil)
	}

	e.last = result
	return result
}

// Run executes instructions until a fault, a system halt, PC reaching zero
// or the instruction limit.
func (e *Emulator) Run() StepResult {
	for {
		if e.halted {
			return e.last
		}
		if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
			return e.halt(StepResult{PC: e.regFile.PC}, HaltStepLimit, nil)
		}

		result := e.Step()
		if result.Halted {
			return result
		}
		if e.haltOnZeroPC && e.regFile.PC == 0 {
			return e.halt(result, HaltZeroPC, nil)
		}
	}
}

func (e *Emulator) halt(result StepResult, reason HaltReason, err error) StepResult {
	result.Halted = true
	result.Reason = reason
	result.Err = err

	e.halted = true
	e.last = result

	fields := logrus.Fields{
		"reason":       reason.String(),
		"pc":           fmt.Sprintf("0x%X", e.regFile.PC),
		"instructions": e.instructionCount,
	}
	if err != nil {
		e.logger.WithFields(fields).WithError(err).Info("halted")
	} else {
		e.logger.WithFields(fields).Info("halted")
	}

	return result
}

// faultAt attaches the instruction address and word to a fault raised
// below the engine.
func (e *Emulator) faultAt(err error, pc uint64, word uint32) error {
	if f, ok := AsFault(err); ok {
		fault := *f
		fault.PC = pc
		fault.Word = word
		return &fault
	}
	if errors.Is(err, ErrIllegalInstruction) {
		return &Fault{Kind: FaultIllegalInstruction, PC: pc, Word: word}
	}
	return err
}

// execute dispatches and executes a decoded instruction located at pc.
func (e *Emulator) execute(inst *insts.Instruction, pc uint64) (MemAccess, SystemResult, error) {
	var (
		access MemAccess
		sys    SystemResult
		err    error
	)

	if inst.Op == insts.OpUnknown {
		return access, sys, ErrIllegalInstruction
	}

	switch inst.Format {
	case insts.FormatR:
		if !e.alu.ExecuteReg(inst.Op, inst.Rd, inst.Rs1, inst.Rs2) {
			err = ErrIllegalInstruction
		}
	case insts.FormatI:
		switch {
		case inst.Op.IsLoad():
			access, err = e.lsu.Load(inst.Op, inst.Rd, inst.Rs1, inst.Imm)
		case inst.Op == insts.OpJALR:
			e.branchUnit.JALR(inst.Rd, inst.Rs1, pc, inst.Imm)
		default:
			if !e.alu.ExecuteImm(inst.Op, inst.Rd, inst.Rs1, inst.Imm) {
				err = ErrIllegalInstruction
			}
		}
	case insts.FormatS:
		access, err = e.lsu.Store(inst.Op, inst.Rs1, inst.Rs2, inst.Imm)
	case insts.FormatB:
		e.branchUnit.Branch(inst.Op, inst.Rs1, inst.Rs2, pc, inst.Imm)
	case insts.FormatU:
		if inst.Op == insts.OpLUI {
			e.alu.LUI(inst.Rd, inst.Imm)
		} else {
			e.alu.AUIPC(inst.Rd, pc, inst.Imm)
		}
	case insts.FormatJ:
		e.branchUnit.JAL(inst.Rd, pc, inst.Imm)
	case insts.FormatSystem, insts.FormatFence:
		sys = e.systemHandler.Handle(inst, pc, e.regFile, e.bus)
	default:
		err = ErrIllegalInstruction
	}

	return access, sys, err
}
