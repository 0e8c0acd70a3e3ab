package insts

import "fmt"

// XLEN is the native integer width of the emulated machine in bits.
type XLEN uint8

// Supported machine widths.
const (
	XLEN32 XLEN = 32
	XLEN64 XLEN = 64
)

// ParseXLEN converts a bit count into an XLEN.
func ParseXLEN(bits int) (XLEN, error) {
	switch bits {
	case 32:
		return XLEN32, nil
	case 64:
		return XLEN64, nil
	default:
		return 0, fmt.Errorf("unsupported XLEN %d (want 32 or 64)", bits)
	}
}

// Bits returns the width in bits.
func (x XLEN) Bits() uint {
	return uint(x)
}

// Mask returns the all-ones machine word.
func (x XLEN) Mask() uint64 {
	return lowMask(uint(x))
}

// ShamtMask returns the mask applied to shift amounts: 5 bits on RV32 and
// 6 bits on RV64.
func (x XLEN) ShamtMask() uint64 {
	return uint64(x) - 1
}

// Valid reports whether x is a supported width.
func (x XLEN) Valid() bool {
	return x == XLEN32 || x == XLEN64
}

// String implements fmt.Stringer.
func (x XLEN) String() string {
	return fmt.Sprintf("RV%dI", uint8(x))
}

// SignExtend interprets the low fromBits of value as a two's-complement
// number and extends it to toBits. Bits above toBits are cleared, so the
// result is always a valid machine word of width toBits.
func SignExtend(value uint64, fromBits, toBits uint) uint64 {
	if fromBits == 0 {
		return 0
	}
	field := value & lowMask(fromBits)
	if fromBits < 64 && (field>>(fromBits-1))&1 == 1 {
		field |= ^lowMask(fromBits)
	}
	return field & lowMask(toBits)
}

func lowMask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}
