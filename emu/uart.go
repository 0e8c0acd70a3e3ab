package emu

import (
	"fmt"
	"io"
)

// UART register map, relative to the device base.
// TX at +0x00 transmits the low byte of a store, STATUS at +0x04 always
// reads 1 (ready).
const (
	DefaultUARTBase uint64 = 0x1000_0000
	UARTSize        uint64 = 0x100
	UARTTx          uint64 = 0x00
	UARTStatus      uint64 = 0x04
)

// UART is a transmit-only serial console mapped onto the bus.
type UART struct {
	base uint64
	out  io.Writer
}

// NewUART creates a UART at base that writes transmitted bytes to out.
func NewUART(base uint64, out io.Writer) *UART {
	return &UART{base: base, out: out}
}

// Base implements Device.
func (u *UART) Base() uint64 {
	return u.base
}

// Size implements Device.
func (u *UART) Size() uint64 {
	return UARTSize
}

// Load implements Device.
func (u *UART) Load(addr uint64, _ Width) (uint64, error) {
	if addr-u.base == UARTStatus {
		return 1, nil
	}
	return 0, nil
}

// Store implements Device. Stores to registers other than TX are ignored.
func (u *UART) Store(addr uint64, _ Width, value uint64) error {
	if addr-u.base != UARTTx || u.out == nil {
		return nil
	}
	if _, err := u.out.Write([]byte{byte(value)}); err != nil {
		return fmt.Errorf("uart transmit failed: %w", err)
	}
	return nil
}
