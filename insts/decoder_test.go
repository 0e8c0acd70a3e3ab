package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Decoder", func() {
	var (
		rv32 *insts.Decoder
		rv64 *insts.Decoder
	)

	BeforeEach(func() {
		rv32 = insts.NewDecoder(insts.XLEN32)
		rv64 = insts.NewDecoder(insts.XLEN64)
	})

	Describe("field extraction", func() {
		It("should decode ADDI x1, x0, 5", func() {
			inst := rv64.Decode(0x00500093)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Word).To(Equal(uint32(0x00500093)))
			Expect(inst.Opcode).To(Equal(insts.OpcodeOpImm))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(0)))
			Expect(inst.Funct3).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(uint64(5)))
		})

		It("should decode ADD x3, x1, x2", func() {
			inst := rv32.Decode(0x002081B3)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Funct7).To(Equal(uint8(0)))
		})

		It("should use funct7 to tell SUB from ADD", func() {
			inst := rv32.Decode(encodeR(0x33, 3, 0, 1, 2, 0x20))
			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.Funct7).To(Equal(uint8(0x20)))
		})

		It("should keep the raw fields of unknown words", func() {
			word := encodeR(0x7F, 5, 3, 6, 7, 0x11)
			inst := rv64.Decode(word)

			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Format).To(Equal(insts.FormatUnknown))
			Expect(inst.Word).To(Equal(word))
			Expect(inst.Opcode).To(Equal(uint8(0x7F)))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Funct3).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(6)))
			Expect(inst.Rs2).To(Equal(uint8(7)))
			Expect(inst.Funct7).To(Equal(uint8(0x11)))
		})

		It("should decode the all-zero word as unknown", func() {
			Expect(rv32.Decode(0).Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("immediates", func() {
		It("should sign-extend I-type immediates to XLEN", func() {
			word := encodeI(0x13, 1, 0, 0, -1)
			Expect(word).To(Equal(uint32(0xFFF00093)))

			Expect(rv64.Decode(word).Imm).To(Equal(^uint64(0)))
			Expect(rv32.Decode(word).Imm).To(Equal(uint64(0xFFFFFFFF)))
			Expect(rv64.Decode(encodeI(0x13, 1, 0, 0, 2047)).Imm).To(Equal(uint64(2047)))
			Expect(rv32.Decode(encodeI(0x13, 1, 0, 0, -2048)).Imm).To(Equal(uint64(0xFFFFF800)))
		})

		It("should reassemble S-type immediates", func() {
			inst := rv64.Decode(encodeS(2, 1, 2, -4))
			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Format).To(Equal(insts.FormatS))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(uint64(0xFFFFFFFFFFFFFFFC)))

			Expect(rv32.Decode(encodeS(0, 1, 2, 0x7E5)).Imm).To(Equal(uint64(0x7E5)))
		})

		It("should reassemble B-type immediates", func() {
			Expect(rv32.Decode(0x00108463).Imm).To(Equal(uint64(8)))
			Expect(rv32.Decode(0xFE000EE3).Imm).To(Equal(uint64(0xFFFFFFFC)))
			Expect(rv64.Decode(encodeB(1, 1, 2, 0x800)).Imm).To(Equal(uint64(0x800)))
			Expect(rv64.Decode(encodeB(1, 1, 2, -4096)).Imm).To(Equal(uint64(0xFFFFFFFFFFFFF000)))
		})

		It("should reassemble J-type immediates", func() {
			Expect(rv32.Decode(0x008000EF).Imm).To(Equal(uint64(8)))
			Expect(rv32.Decode(0xFFDFF06F).Imm).To(Equal(uint64(0xFFFFFFFC)))
			Expect(rv64.Decode(encodeJ(0, 0xFFFFE)).Imm).To(Equal(uint64(0xFFFFE)))
			Expect(rv64.Decode(encodeJ(0, -0x100000)).Imm).To(Equal(uint64(0xFFFFFFFFFFF00000)))
			Expect(rv64.Decode(encodeJ(0, 0x800)).Imm).To(Equal(uint64(0x800)))
		})

		It("should position U-type immediates", func() {
			Expect(rv32.Decode(0x000010B7).Imm).To(Equal(uint64(0x1000)))

			word := encodeU(0x37, 1, 0x80000)
			Expect(rv32.Decode(word).Imm).To(Equal(uint64(0x80000000)))
			Expect(rv64.Decode(word).Imm).To(Equal(uint64(0xFFFFFFFF80000000)))

			auipc := rv64.Decode(encodeU(0x17, 2, 0x12345))
			Expect(auipc.Op).To(Equal(insts.OpAUIPC))
			Expect(auipc.Format).To(Equal(insts.FormatU))
			Expect(auipc.Imm).To(Equal(uint64(0x12345000)))
		})
	})

	DescribeTable("RV32I and RV64I common instructions",
		func(word uint32, expected insts.Op) {
			Expect(rv32.Decode(word).Op).To(Equal(expected))
			Expect(rv64.Decode(word).Op).To(Equal(expected))
		},
		Entry("LB", encodeI(0x03, 1, 0, 2, 0), insts.OpLB),
		Entry("LH", encodeI(0x03, 1, 1, 2, 0), insts.OpLH),
		Entry("LW", encodeI(0x03, 1, 2, 2, 0), insts.OpLW),
		Entry("LBU", encodeI(0x03, 1, 4, 2, 0), insts.OpLBU),
		Entry("LHU", encodeI(0x03, 1, 5, 2, 0), insts.OpLHU),
		Entry("SB", encodeS(0, 1, 2, 0), insts.OpSB),
		Entry("SH", encodeS(1, 1, 2, 0), insts.OpSH),
		Entry("SW", encodeS(2, 1, 2, 0), insts.OpSW),
		Entry("SLTI", encodeI(0x13, 1, 2, 2, 1), insts.OpSLTI),
		Entry("SLTIU", encodeI(0x13, 1, 3, 2, 1), insts.OpSLTIU),
		Entry("XORI", encodeI(0x13, 1, 4, 2, 1), insts.OpXORI),
		Entry("ORI", encodeI(0x13, 1, 6, 2, 1), insts.OpORI),
		Entry("ANDI", encodeI(0x13, 1, 7, 2, 1), insts.OpANDI),
		Entry("SLLI", encodeR(0x13, 1, 1, 2, 3, 0x00), insts.OpSLLI),
		Entry("SRLI", encodeR(0x13, 1, 5, 2, 3, 0x00), insts.OpSRLI),
		Entry("SRAI", encodeR(0x13, 1, 5, 2, 3, 0x20), insts.OpSRAI),
		Entry("SLL", encodeR(0x33, 1, 1, 2, 3, 0x00), insts.OpSLL),
		Entry("SLT", encodeR(0x33, 1, 2, 2, 3, 0x00), insts.OpSLT),
		Entry("SLTU", encodeR(0x33, 1, 3, 2, 3, 0x00), insts.OpSLTU),
		Entry("XOR", encodeR(0x33, 1, 4, 2, 3, 0x00), insts.OpXOR),
		Entry("SRL", encodeR(0x33, 1, 5, 2, 3, 0x00), insts.OpSRL),
		Entry("SRA", encodeR(0x33, 1, 5, 2, 3, 0x20), insts.OpSRA),
		Entry("OR", encodeR(0x33, 1, 6, 2, 3, 0x00), insts.OpOR),
		Entry("AND", encodeR(0x33, 1, 7, 2, 3, 0x00), insts.OpAND),
		Entry("BEQ", encodeB(0, 1, 2, 8), insts.OpBEQ),
		Entry("BNE", encodeB(1, 1, 2, 8), insts.OpBNE),
		Entry("BLT", encodeB(4, 1, 2, 8), insts.OpBLT),
		Entry("BGE", encodeB(5, 1, 2, 8), insts.OpBGE),
		Entry("BLTU", encodeB(6, 1, 2, 8), insts.OpBLTU),
		Entry("BGEU", encodeB(7, 1, 2, 8), insts.OpBGEU),
		Entry("LUI", encodeU(0x37, 1, 1), insts.OpLUI),
		Entry("JAL", encodeJ(1, 8), insts.OpJAL),
		Entry("JALR", encodeI(0x67, 1, 0, 2, 4), insts.OpJALR),
		Entry("FENCE", uint32(0x0FF0000F), insts.OpFENCE),
		Entry("FENCE.I", uint32(0x0000100F), insts.OpFENCEI),
		Entry("ECALL", uint32(0x00000073), insts.OpECALL),
		Entry("EBREAK", uint32(0x00100073), insts.OpEBREAK),
	)

	DescribeTable("RV64I-only instructions",
		func(word uint32, expected insts.Op) {
			Expect(rv64.Decode(word).Op).To(Equal(expected))
			Expect(rv32.Decode(word).Op).To(Equal(insts.OpUnknown))
		},
		Entry("LD", encodeI(0x03, 1, 3, 2, 0), insts.OpLD),
		Entry("LWU", encodeI(0x03, 1, 6, 2, 0), insts.OpLWU),
		Entry("SD", encodeS(3, 1, 2, 0), insts.OpSD),
		Entry("ADDIW", encodeI(0x1B, 1, 0, 2, -1), insts.OpADDIW),
		Entry("SLLIW", encodeR(0x1B, 1, 1, 2, 31, 0x00), insts.OpSLLIW),
		Entry("SRLIW", encodeR(0x1B, 1, 5, 2, 31, 0x00), insts.OpSRLIW),
		Entry("SRAIW", encodeR(0x1B, 1, 5, 2, 31, 0x20), insts.OpSRAIW),
		Entry("ADDW", encodeR(0x3B, 1, 0, 2, 3, 0x00), insts.OpADDW),
		Entry("SUBW", encodeR(0x3B, 1, 0, 2, 3, 0x20), insts.OpSUBW),
		Entry("SLLW", encodeR(0x3B, 1, 1, 2, 3, 0x00), insts.OpSLLW),
		Entry("SRLW", encodeR(0x3B, 1, 5, 2, 3, 0x00), insts.OpSRLW),
		Entry("SRAW", encodeR(0x3B, 1, 5, 2, 3, 0x20), insts.OpSRAW),
		Entry("SRAI with a 6-bit shift amount", encodeR(0x13, 1, 5, 2, 1, 0x21), insts.OpSRAI),
		Entry("SLLI with a 6-bit shift amount", encodeR(0x13, 1, 1, 2, 0, 0x01), insts.OpSLLI),
	)

	DescribeTable("reserved encodings",
		func(word uint32) {
			Expect(rv32.Decode(word).Op).To(Equal(insts.OpUnknown))
			Expect(rv64.Decode(word).Op).To(Equal(insts.OpUnknown))
		},
		Entry("unassigned major opcode", uint32(0x0000007F)),
		Entry("M-extension MUL", encodeR(0x33, 1, 0, 2, 3, 0x01)),
		Entry("SUB funct7 on XOR", encodeR(0x33, 1, 4, 2, 3, 0x20)),
		Entry("load funct3 7", encodeI(0x03, 1, 7, 2, 0)),
		Entry("store funct3 4", encodeS(4, 1, 2, 0)),
		Entry("branch funct3 2", encodeB(2, 1, 2, 8)),
		Entry("JALR funct3 1", encodeI(0x67, 1, 1, 2, 0)),
		Entry("SRLI with a bad selector", encodeR(0x13, 1, 5, 2, 3, 0x10)),
		Entry("CSRRW", uint32(0x30001073)),
		Entry("MRET", uint32(0x30200073)),
		Entry("ECALL with a nonzero rd", uint32(0x000000F3)),
		Entry("FENCE funct3 2", uint32(0x0000200F)),
	)

	It("should extract the shift amount for immediate shifts", func() {
		Expect(rv32.Decode(encodeR(0x13, 1, 5, 2, 31, 0x20)).Imm).To(Equal(uint64(31)))

		inst := rv64.Decode(encodeR(0x13, 1, 5, 2, 1, 0x21))
		Expect(inst.Op).To(Equal(insts.OpSRAI))
		Expect(inst.Imm).To(Equal(uint64(33)))

		word := encodeR(0x1B, 1, 5, 2, 7, 0x20)
		Expect(rv64.Decode(word).Imm).To(Equal(uint64(7)))
	})

	It("should report formats for system and fence instructions", func() {
		Expect(rv64.Decode(0x00000073).Format).To(Equal(insts.FormatSystem))
		Expect(rv64.Decode(0x0FF0000F).Format).To(Equal(insts.FormatFence))
		Expect(insts.FormatB.String()).To(Equal("B"))
		Expect(insts.Format(200).String()).To(Equal("unknown"))
	})
})
