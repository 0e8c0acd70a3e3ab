package insts

// Op represents a RISC-V operation.
type Op uint16

// RV32I / RV64I operations.
const (
	OpUnknown Op = iota

	// Upper immediates and jumps
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	// Conditional branches
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Loads
	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU

	// Stores
	OpSB
	OpSH
	OpSW
	OpSD

	// Register-immediate
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	// Register-immediate, 32-bit word (RV64)
	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW

	// Register-register
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	// Register-register, 32-bit word (RV64)
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW

	// Memory ordering and environment
	OpFENCE
	OpFENCEI
	OpECALL
	OpEBREAK

	numOps
)

var opNames = [numOps]string{
	OpUnknown: "unknown",
	OpLUI:     "lui",
	OpAUIPC:   "auipc",
	OpJAL:     "jal",
	OpJALR:    "jalr",
	OpBEQ:     "beq",
	OpBNE:     "bne",
	OpBLT:     "blt",
	OpBGE:     "bge",
	OpBLTU:    "bltu",
	OpBGEU:    "bgeu",
	OpLB:      "lb",
	OpLH:      "lh",
	OpLW:      "lw",
	OpLD:      "ld",
	OpLBU:     "lbu",
	OpLHU:     "lhu",
	OpLWU:     "lwu",
	OpSB:      "sb",
	OpSH:      "sh",
	OpSW:      "sw",
	OpSD:      "sd",
	OpADDI:    "addi",
	OpSLTI:    "slti",
	OpSLTIU:   "sltiu",
	OpXORI:    "xori",
	OpORI:     "ori",
	OpANDI:    "andi",
	OpSLLI:    "slli",
	OpSRLI:    "srli",
	OpSRAI:    "srai",
	OpADDIW:   "addiw",
	OpSLLIW:   "slliw",
	OpSRLIW:   "srliw",
	OpSRAIW:   "sraiw",
	OpADD:     "add",
	OpSUB:     "sub",
	OpSLL:     "sll",
	OpSLT:     "slt",
	OpSLTU:    "sltu",
	OpXOR:     "xor",
	OpSRL:     "srl",
	OpSRA:     "sra",
	OpOR:      "or",
	OpAND:     "and",
	OpADDW:    "addw",
	OpSUBW:    "subw",
	OpSLLW:    "sllw",
	OpSRLW:    "srlw",
	OpSRAW:    "sraw",
	OpFENCE:   "fence",
	OpFENCEI:  "fence.i",
	OpECALL:   "ecall",
	OpEBREAK:  "ebreak",
}

// String returns the assembler mnemonic.
func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}
	return "unknown"
}

// IsLoad reports whether op reads memory.
func (op Op) IsLoad() bool {
	return op >= OpLB && op <= OpLWU
}

// IsStore reports whether op writes memory.
func (op Op) IsStore() bool {
	return op >= OpSB && op <= OpSD
}

// IsBranch reports whether op is a conditional branch.
func (op Op) IsBranch() bool {
	return op >= OpBEQ && op <= OpBGEU
}

// IsJump reports whether op is an unconditional jump.
func (op Op) IsJump() bool {
	return op == OpJAL || op == OpJALR
}

// IsWord reports whether op is an RV64 32-bit word variant.
func (op Op) IsWord() bool {
	return (op >= OpADDIW && op <= OpSRAIW) || (op >= OpADDW && op <= OpSRAW)
}
