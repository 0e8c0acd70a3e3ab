package insts

// Major opcodes, bits [6:0] of the instruction word.
const (
	OpcodeLoad    uint8 = 0x03
	OpcodeMiscMem uint8 = 0x0F
	OpcodeOpImm   uint8 = 0x13
	OpcodeAUIPC   uint8 = 0x17
	OpcodeOpImm32 uint8 = 0x1B
	OpcodeStore   uint8 = 0x23
	OpcodeOp      uint8 = 0x33
	OpcodeLUI     uint8 = 0x37
	OpcodeOp32    uint8 = 0x3B
	OpcodeBranch  uint8 = 0x63
	OpcodeJALR    uint8 = 0x67
	OpcodeJAL     uint8 = 0x6F
	OpcodeSystem  uint8 = 0x73
)

const (
	wordECALL  uint32 = 0x00000073
	wordEBREAK uint32 = 0x00100073

	funct7Standard uint8 = 0x00
	funct7Alt      uint8 = 0x20 // SUB, SRA and friends
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // register-register
	FormatI              // register-immediate, loads, JALR
	FormatS              // stores
	FormatB              // conditional branches
	FormatU              // LUI, AUIPC
	FormatJ              // JAL
	FormatSystem         // ECALL, EBREAK
	FormatFence          // FENCE, FENCE.I
)

var formatNames = [...]string{
	FormatUnknown: "unknown",
	FormatR:       "R",
	FormatI:       "I",
	FormatS:       "S",
	FormatB:       "B",
	FormatU:       "U",
	FormatJ:       "J",
	FormatSystem:  "system",
	FormatFence:   "fence",
}

// String implements fmt.Stringer.
func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "unknown"
}

// Instruction represents a decoded RISC-V instruction.
type Instruction struct {
	Op     Op     // Operation, OpUnknown when the encoding has no semantics
	Format Format // Encoding format, derived from the major opcode

	// Raw fields
	Word   uint32 // Instruction word as fetched
	Opcode uint8  // bits [6:0]
	Funct3 uint8  // bits [14:12]
	Funct7 uint8  // bits [31:25]
	Rd     uint8  // bits [11:7]
	Rs1    uint8  // bits [19:15]
	Rs2    uint8  // bits [24:20]

	// Imm is the format-specific immediate, sign-extended to XLEN. For
	// U-type it is already positioned in bits [31:12]. For immediate shifts
	// it is the shift amount.
	Imm uint64
}

// Decoder decodes RISC-V machine code into instructions.
type Decoder struct {
	xlen XLEN
}

// NewDecoder creates a decoder for the given machine width.
func NewDecoder(xlen XLEN) *Decoder {
	if !xlen.Valid() {
		xlen = XLEN64
	}
	return &Decoder{xlen: xlen}
}

// XLEN returns the machine width the decoder targets.
func (d *Decoder) XLEN() XLEN {
	return d.xlen
}

// Decode decodes a 32-bit instruction word. It never fails: words without
// defined semantics come back with Op == OpUnknown and every field that the
// major opcode implies still extracted.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Op:     OpUnknown,
		Format: FormatUnknown,
		Word:   word,
		Opcode: uint8(word & 0x7F),
		Rd:     uint8((word >> 7) & 0x1F),
		Funct3: uint8((word >> 12) & 0x7),
		Rs1:    uint8((word >> 15) & 0x1F),
		Rs2:    uint8((word >> 20) & 0x1F),
		Funct7: uint8((word >> 25) & 0x7F),
	}

	switch inst.Opcode {
	case OpcodeLoad:
		d.decodeLoad(word, inst)
	case OpcodeStore:
		d.decodeStore(word, inst)
	case OpcodeOpImm:
		d.decodeOpImm(word, inst)
	case OpcodeOpImm32:
		d.decodeOpImm32(word, inst)
	case OpcodeOp:
		d.decodeOp(inst)
	case OpcodeOp32:
		d.decodeOp32(inst)
	case OpcodeLUI:
		inst.Format = FormatU
		inst.Imm = d.ImmU(word)
		inst.Op = OpLUI
	case OpcodeAUIPC:
		inst.Format = FormatU
		inst.Imm = d.ImmU(word)
		inst.Op = OpAUIPC
	case OpcodeBranch:
		d.decodeBranch(word, inst)
	case OpcodeJAL:
		inst.Format = FormatJ
		inst.Imm = d.ImmJ(word)
		inst.Op = OpJAL
	case OpcodeJALR:
		inst.Format = FormatI
		inst.Imm = d.ImmI(word)
		if inst.Funct3 == 0 {
			inst.Op = OpJALR
		}
	case OpcodeMiscMem:
		d.decodeMiscMem(inst)
	case OpcodeSystem:
		d.decodeSystem(word, inst)
	}

	return inst
}

// ImmI extracts the I-type immediate: bits [31:20].
func (d *Decoder) ImmI(word uint32) uint64 {
	return SignExtend(uint64(word>>20), 12, d.xlen.Bits())
}

// ImmS extracts the S-type immediate: bits [31:25] ++ bits [11:7].
func (d *Decoder) ImmS(word uint32) uint64 {
	hi := (word >> 25) & 0x7F
	lo := (word >> 7) & 0x1F
	return SignExtend(uint64(hi<<5|lo), 12, d.xlen.Bits())
}

// ImmB extracts the B-type immediate:
// imm[12|10:5] = bits [31|30:25], imm[4:1|11] = bits [11:8|7].
func (d *Decoder) ImmB(word uint32) uint64 {
	imm := ((word>>31)&0x1)<<12 |
		((word>>25)&0x3F)<<5 |
		((word>>8)&0xF)<<1 |
		((word>>7)&0x1)<<11
	return SignExtend(uint64(imm), 13, d.xlen.Bits())
}

// ImmU extracts the U-type immediate already positioned in bits [31:12].
// On RV64 the 32-bit value is sign-extended, as LUI and AUIPC require.
func (d *Decoder) ImmU(word uint32) uint64 {
	return SignExtend(uint64(word&0xFFFFF000), 32, d.xlen.Bits())
}

// ImmJ extracts the J-type immediate:
// imm[20|10:1|11|19:12] = bits [31|30:21|20|19:12].
func (d *Decoder) ImmJ(word uint32) uint64 {
	imm := ((word>>31)&0x1)<<20 |
		((word>>21)&0x3FF)<<1 |
		((word>>20)&0x1)<<11 |
		((word>>12)&0xFF)<<12
	return SignExtend(uint64(imm), 21, d.xlen.Bits())
}

func (d *Decoder) is64() bool {
	return d.xlen == XLEN64
}

// decodeLoad decodes LB/LH/LW/LBU/LHU and, on RV64, LD/LWU.
func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	inst.Format = FormatI
	inst.Imm = d.ImmI(word)

	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpLB
	case 0x1:
		inst.Op = OpLH
	case 0x2:
		inst.Op = OpLW
	case 0x3:
		if d.is64() {
			inst.Op = OpLD
		}
	case 0x4:
		inst.Op = OpLBU
	case 0x5:
		inst.Op = OpLHU
	case 0x6:
		if d.is64() {
			inst.Op = OpLWU
		}
	}
}

// decodeStore decodes SB/SH/SW and, on RV64, SD.
func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	inst.Format = FormatS
	inst.Imm = d.ImmS(word)

	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpSB
	case 0x1:
		inst.Op = OpSH
	case 0x2:
		inst.Op = OpSW
	case 0x3:
		if d.is64() {
			inst.Op = OpSD
		}
	}
}

// decodeOpImm decodes the OP-IMM group. Shifts carry the shift amount in
// Imm; RV64 takes a 6-bit amount and uses bits [31:26] as the selector.
func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) {
	inst.Format = FormatI
	inst.Imm = d.ImmI(word)

	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpADDI
	case 0x2:
		inst.Op = OpSLTI
	case 0x3:
		inst.Op = OpSLTIU
	case 0x4:
		inst.Op = OpXORI
	case 0x6:
		inst.Op = OpORI
	case 0x7:
		inst.Op = OpANDI
	case 0x1, 0x5:
		d.decodeShiftImm(word, inst)
	}
}

func (d *Decoder) decodeShiftImm(word uint32, inst *Instruction) {
	var shamt, selector uint32
	if d.is64() {
		shamt = (word >> 20) & 0x3F
		selector = (word >> 26) << 1 // funct6 aligned to funct7 values
	} else {
		shamt = (word >> 20) & 0x1F
		selector = word >> 25
	}
	inst.Imm = uint64(shamt)

	switch {
	case inst.Funct3 == 0x1 && uint8(selector) == funct7Standard:
		inst.Op = OpSLLI
	case inst.Funct3 == 0x5 && uint8(selector) == funct7Standard:
		inst.Op = OpSRLI
	case inst.Funct3 == 0x5 && uint8(selector) == funct7Alt:
		inst.Op = OpSRAI
	}
}

// decodeOpImm32 decodes ADDIW/SLLIW/SRLIW/SRAIW (RV64 only).
func (d *Decoder) decodeOpImm32(word uint32, inst *Instruction) {
	inst.Format = FormatI
	inst.Imm = d.ImmI(word)
	if !d.is64() {
		return
	}

	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpADDIW
	case 0x1:
		inst.Imm = uint64(inst.Rs2)
		if inst.Funct7 == funct7Standard {
			inst.Op = OpSLLIW
		}
	case 0x5:
		inst.Imm = uint64(inst.Rs2)
		switch inst.Funct7 {
		case funct7Standard:
			inst.Op = OpSRLIW
		case funct7Alt:
			inst.Op = OpSRAIW
		}
	}
}

type opKey struct {
	funct3 uint8
	funct7 uint8
}

var opTable = map[opKey]Op{
	{0x0, funct7Standard}: OpADD,
	{0x0, funct7Alt}:      OpSUB,
	{0x1, funct7Standard}: OpSLL,
	{0x2, funct7Standard}: OpSLT,
	{0x3, funct7Standard}: OpSLTU,
	{0x4, funct7Standard}: OpXOR,
	{0x5, funct7Standard}: OpSRL,
	{0x5, funct7Alt}:      OpSRA,
	{0x6, funct7Standard}: OpOR,
	{0x7, funct7Standard}: OpAND,
}

var op32Table = map[opKey]Op{
	{0x0, funct7Standard}: OpADDW,
	{0x0, funct7Alt}:      OpSUBW,
	{0x1, funct7Standard}: OpSLLW,
	{0x5, funct7Standard}: OpSRLW,
	{0x5, funct7Alt}:      OpSRAW,
}

// decodeOp decodes the register-register OP group.
func (d *Decoder) decodeOp(inst *Instruction) {
	inst.Format = FormatR
	if op, ok := opTable[opKey{inst.Funct3, inst.Funct7}]; ok {
		inst.Op = op
	}
}

// decodeOp32 decodes ADDW/SUBW/SLLW/SRLW/SRAW (RV64 only).
func (d *Decoder) decodeOp32(inst *Instruction) {
	inst.Format = FormatR
	if !d.is64() {
		return
	}
	if op, ok := op32Table[opKey{inst.Funct3, inst.Funct7}]; ok {
		inst.Op = op
	}
}

// decodeBranch decodes BEQ/BNE/BLT/BGE/BLTU/BGEU.
func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	inst.Format = FormatB
	inst.Imm = d.ImmB(word)

	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpBEQ
	case 0x1:
		inst.Op = OpBNE
	case 0x4:
		inst.Op = OpBLT
	case 0x5:
		inst.Op = OpBGE
	case 0x6:
		inst.Op = OpBLTU
	case 0x7:
		inst.Op = OpBGEU
	}
}

// decodeMiscMem decodes FENCE and FENCE.I.
func (d *Decoder) decodeMiscMem(inst *Instruction) {
	inst.Format = FormatFence

	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpFENCE
	case 0x1:
		inst.Op = OpFENCEI
	}
}

// decodeSystem decodes ECALL and EBREAK. CSR access and privileged
// returns are outside the supported subset.
func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	inst.Format = FormatSystem
	inst.Imm = d.ImmI(word)

	switch word {
	case wordECALL:
		inst.Op = OpECALL
	case wordEBREAK:
		inst.Op = OpEBREAK
	}
}
