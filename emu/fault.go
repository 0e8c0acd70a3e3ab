package emu

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is against a *Fault.
var (
	ErrIllegalInstruction = errors.New("illegal instruction")
	ErrOutOfBounds        = errors.New("address out of bounds")
	ErrMisaligned         = errors.New("misaligned instruction fetch")
	ErrUnsupportedWidth   = errors.New("unsupported access width")
)

// FaultKind classifies why a step could not complete.
type FaultKind uint8

// Fault kinds.
const (
	FaultIllegalInstruction FaultKind = iota + 1
	FaultOutOfBounds
	FaultMisaligned
)

// String implements fmt.Stringer.
func (k FaultKind) String() string {
	switch k {
	case FaultIllegalInstruction:
		return "IllegalInstruction"
	case FaultOutOfBounds:
		return "OutOfBounds"
	case FaultMisaligned:
		return "Misaligned"
	default:
		return fmt.Sprintf("FaultKind(%d)", uint8(k))
	}
}

// Fault is the error returned when an instruction cannot be executed. A
// fault halts the emulator; none of the faulting instruction's register or
// PC effects are committed.
type Fault struct {
	Kind FaultKind

	// PC is the address of the faulting instruction.
	PC uint64

	// Word is the fetched instruction word (zero for fetch faults).
	Word uint32

	// Addr and Width describe the rejected memory access.
	Addr  uint64
	Width Width
}

// Error implements error.
func (f *Fault) Error() string {
	switch f.Kind {
	case FaultIllegalInstruction:
		return fmt.Sprintf("illegal instruction 0x%08X at PC=0x%X", f.Word, f.PC)
	case FaultOutOfBounds:
		return fmt.Sprintf("%d-bit access at 0x%X out of bounds (PC=0x%X)", f.Width, f.Addr, f.PC)
	case FaultMisaligned:
		return fmt.Sprintf("misaligned instruction fetch at PC=0x%X", f.PC)
	default:
		return fmt.Sprintf("fault %v at PC=0x%X", f.Kind, f.PC)
	}
}

// Unwrap returns the sentinel error for the fault kind.
func (f *Fault) Unwrap() error {
	switch f.Kind {
	case FaultIllegalInstruction:
		return ErrIllegalInstruction
	case FaultOutOfBounds:
		return ErrOutOfBounds
	case FaultMisaligned:
		return ErrMisaligned
	default:
		return nil
	}
}

// AsFault extracts a *Fault from err.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
