package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("RegFile", func() {
	It("should hardwire x0 to zero", func() {
		r := emu.NewRegFile(insts.XLEN64)
		r.WriteReg(0, 42)
		Expect(r.ReadReg(0)).To(BeZero())

		r.X[0] = 7
		Expect(r.ReadReg(0)).To(BeZero())
	})

	It("should truncate values to XLEN", func() {
		r := emu.NewRegFile(insts.XLEN32)
		r.WriteReg(5, 0x1_0000_0001)
		Expect(r.ReadReg(5)).To(Equal(uint64(1)))

		r.SetPC(0x1_8000_0000)
		Expect(r.PC).To(Equal(uint64(0x8000_0000)))
	})

	It("should read registers as signed XLEN values", func() {
		r := emu.NewRegFile(insts.XLEN32)
		r.WriteReg(1, 0xFFFFFFFF)
		Expect(r.ReadSigned(1)).To(Equal(int64(-1)))

		r64 := emu.NewRegFile(insts.XLEN64)
		r64.WriteReg(1, 0xFFFFFFFF)
		Expect(r64.ReadSigned(1)).To(Equal(int64(0xFFFFFFFF)))
	})

	It("should default a zero value to RV64", func() {
		var r emu.RegFile
		Expect(r.XLEN()).To(Equal(insts.XLEN64))
		r.WriteReg(3, ^uint64(0))
		Expect(r.ReadReg(3)).To(Equal(^uint64(0)))
	})

	It("should ignore out-of-range register numbers", func() {
		r := emu.NewRegFile(insts.XLEN64)
		r.WriteReg(32, 1)
		Expect(r.ReadReg(32)).To(BeZero())
	})

	It("should reset registers and PC", func() {
		r := emu.NewRegFile(insts.XLEN64)
		r.WriteReg(31, 1)
		r.SetPC(0x100)
		r.Reset()
		Expect(r.ReadReg(31)).To(BeZero())
		Expect(r.PC).To(BeZero())
	})
})
