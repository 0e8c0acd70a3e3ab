package emu

import (
	"fmt"

	"github.com/sarchlab/rvsim/insts"
)

// Bus routes physical addresses to the attached devices and performs
// width-aware loads and stores.
type Bus struct {
	xlen    insts.XLEN
	devices []Device
}

// NewBus creates a bus with no devices attached.
func NewBus(xlen insts.XLEN) *Bus {
	return &Bus{xlen: xlen}
}

// Attach adds a device. Windows of attached devices must not overlap.
func (b *Bus) Attach(dev Device) error {
	if dev.Size() == 0 {
		return fmt.Errorf("device at 0x%X has zero size", dev.Base())
	}
	if dev.Base()+dev.Size() < dev.Base() {
		return fmt.Errorf("device at 0x%X wraps the address space", dev.Base())
	}
	for _, other := range b.devices {
		if dev.Base() < other.Base()+other.Size() && other.Base() < dev.Base()+dev.Size() {
			return fmt.Errorf("device at 0x%X overlaps device at 0x%X", dev.Base(), other.Base())
		}
	}
	b.devices = append(b.devices, dev)
	return nil
}

// Devices returns the attached devices in attachment order.
func (b *Bus) Devices() []Device {
	return b.devices
}

// Load reads width bits at addr.
func (b *Bus) Load(addr uint64, width Width) (uint64, error) {
	if err := b.checkWidth(width); err != nil {
		return 0, err
	}
	dev := b.route(addr, width)
	if dev == nil {
		return 0, &Fault{Kind: FaultOutOfBounds, Addr: addr, Width: width}
	}
	return dev.Load(addr, width)
}

// Store writes the low width bits of value at addr.
func (b *Bus) Store(addr uint64, width Width, value uint64) error {
	if err := b.checkWidth(width); err != nil {
		return err
	}
	dev := b.route(addr, width)
	if dev == nil {
		return &Fault{Kind: FaultOutOfBounds, Addr: addr, Width: width}
	}
	return dev.Store(addr, width, value&width.Mask())
}

// Fetch reads a 32-bit instruction word at addr.
func (b *Bus) Fetch(addr uint64) (uint32, error) {
	word, err := b.Load(addr, Width32)
	return uint32(word), err
}

func (b *Bus) checkWidth(width Width) error {
	if !width.Valid() || (width == Width64 && b.xlen != insts.XLEN64) {
		return fmt.Errorf("%w: %d-bit on %v", ErrUnsupportedWidth, width, b.xlen)
	}
	return nil
}

// route returns the device whose window holds the whole access.
func (b *Bus) route(addr uint64, width Width) Device {
	for _, dev := range b.devices {
		if contains(dev.Base(), dev.Size(), addr, width.Bytes()) {
			return dev
		}
	}
	return nil
}
