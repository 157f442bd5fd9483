// Package insts provides CGRA-32 instruction definitions and decoding.
//
// CGRA-32 is the fixed-width 32-bit instruction encoding executed by the
// cgrasim core models. Every instruction is one little-endian word. The top
// six bits select the opcode; the remaining bits are interpreted according
// to the instruction format:
//
//	R-format: rd [25:21], rn [20:16], rm [15:11]
//	I-format: rd [25:21], rn [20:16], imm16 [15:0] (signed)
//	B-format: rn [25:21], rm [20:16], off16 [15:0] (signed, in words)
//	J-format: rd [25:21], off21 [20:0] (signed, in words)
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(word)
package insts

// Op represents a CGRA-32 opcode.
type Op uint8

// CGRA-32 opcodes.
const (
	OpUnknown Op = iota
	OpNOP
	OpHALT

	// Register ALU operations
	OpADD
	OpSUB
	OpAND
	OpOR
	OpXOR
	OpSLT

	// Immediate ALU operations
	OpADDI
	OpANDI
	OpORI
	OpXORI
	OpLUI

	// Loads and stores
	OpLDB
	OpLDH
	OpLDW
	OpLDD
	OpSTB
	OpSTH
	OpSTW
	OpSTD

	// Control flow
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpJAL
	OpJALR
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatALUReg         // Register ALU (R-format)
	FormatALUImm         // Immediate ALU (I-format)
	FormatLoadStore      // Load/store with base + displacement (I-format)
	FormatBranch         // Conditional branch (B-format)
	FormatJump           // JAL (J-format)
	FormatJumpReg        // JALR (I-format)
	FormatSystem         // NOP, HALT
)

// Instruction represents a decoded CGRA-32 instruction.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding format

	Rd uint8 // Destination register (link register for JAL/JALR)
	Rn uint8 // First source register (base register for loads/stores)
	Rm uint8 // Second source register

	// Imm is the sign-extended 16-bit immediate for I-format instructions.
	// For loads and stores it is the byte displacement from the base register.
	Imm int64

	// Off is the signed control-flow offset in bytes, relative to the PC of
	// this instruction. The encoding stores it in words; the decoder scales
	// it so execution never has to.
	Off int64

	// IsLoad and IsStore classify memory instructions.
	IsLoad  bool
	IsStore bool

	// MemSize is the access size in bytes for loads and stores (1, 2, 4, 8).
	MemSize int
}

// IsControlFlow returns true if the instruction can redirect the PC.
func (i *Instruction) IsControlFlow() bool {
	switch i.Op {
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpJAL, OpJALR:
		return true
	default:
		return false
	}
}

// String returns the opcode mnemonic.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "???"
}

var opNames = [...]string{
	OpUnknown: "UNKNOWN",
	OpNOP:     "NOP",
	OpHALT:    "HALT",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpAND:     "AND",
	OpOR:      "OR",
	OpXOR:     "XOR",
	OpSLT:     "SLT",
	OpADDI:    "ADDI",
	OpANDI:    "ANDI",
	OpORI:     "ORI",
	OpXORI:    "XORI",
	OpLUI:     "LUI",
	OpLDB:     "LDB",
	OpLDH:     "LDH",
	OpLDW:     "LDW",
	OpLDD:     "LDD",
	OpSTB:     "STB",
	OpSTH:     "STH",
	OpSTW:     "STW",
	OpSTD:     "STD",
	OpBEQ:     "BEQ",
	OpBNE:     "BNE",
	OpBLT:     "BLT",
	OpBGE:     "BGE",
	OpJAL:     "JAL",
	OpJALR:    "JALR",
}
