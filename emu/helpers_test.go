package emu_test

import "encoding/binary"

const (
	opLoad    = 0x03
	opImm     = 0x13
	opAUIPC   = 0x17
	opImm32   = 0x1B
	opOp      = 0x33
	opLUI     = 0x37
	opOp32    = 0x3B
	opJALR    = 0x67

	wordECALL  = 0x00000073
	wordEBREAK = 0x00100073
	wordFENCE  = 0x0FF0000F
)

func encodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeS(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return ((u>>5)&0x7F)<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (u&0x1F)<<7 | 0x23
}

func encodeB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return ((u>>12)&0x1)<<31 | ((u>>5)&0x3F)<<25 | rs2<<20 | rs1<<15 |
		funct3<<12 | ((u>>1)&0xF)<<8 | ((u>>11)&0x1)<<7 | 0x63
}

func encodeU(opcode, rd, imm20 uint32) uint32 {
	return (imm20&0xFFFFF)<<12 | rd<<7 | opcode
}

func encodeJ(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return ((u>>20)&0x1)<<31 | ((u>>1)&0x3FF)<<21 | ((u>>11)&0x1)<<20 |
		((u>>12)&0xFF)<<12 | rd<<7 | 0x6F
}

func addi(rd, rs1 uint32, imm int32) uint32 {
	return encodeI(opImm, rd, 0, rs1, imm)
}

func add(rd, rs1, rs2 uint32) uint32 {
	return encodeR(opOp, rd, 0, rs1, rs2, 0x00)
}

func lui(rd, imm20 uint32) uint32 {
	return encodeU(opLUI, rd, imm20)
}

func lw(rd, rs1 uint32, imm int32) uint32 {
	return encodeI(opLoad, rd, 2, rs1, imm)
}

func sw(rs2, rs1 uint32, imm int32) uint32 {
	return encodeS(2, rs1, rs2, imm)
}

func beq(rs1, rs2 uint32, imm int32) uint32 {
	return encodeB(0, rs1, rs2, imm)
}

func jal(rd uint32, imm int32) uint32 {
	return encodeJ(rd, imm)
}

// program assembles words into a little-endian memory image.
func program(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}
