package insts

// Raw 6-bit opcode field values (bits [31:26] of the instruction word).
const (
	rawNOP  = 0x00
	rawHALT = 0x01

	rawADD = 0x04
	rawSUB = 0x05
	rawAND = 0x06
	rawOR  = 0x07
	rawXOR = 0x08
	rawSLT = 0x09

	rawADDI = 0x0A
	rawANDI = 0x0B
	rawORI  = 0x0C
	rawXORI = 0x0D
	rawLUI  = 0x0E

	rawLDB = 0x10
	rawLDH = 0x11
	rawLDW = 0x12
	rawLDD = 0x13
	rawSTB = 0x14
	rawSTH = 0x15
	rawSTW = 0x16
	rawSTD = 0x17

	rawBEQ  = 0x18
	rawBNE  = 0x19
	rawBLT  = 0x1A
	rawBGE  = 0x1B
	rawJAL  = 0x1C
	rawJALR = 0x1D
)

// Decoder decodes CGRA-32 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new CGRA-32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit CGRA-32 instruction word. Unrecognized opcode
// fields decode to OpUnknown; the executing core raises an illegal
// instruction fault for them.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpUnknown, Format: FormatUnknown}

	opcode := (word >> 26) & 0x3F

	switch opcode {
	case rawNOP:
		inst.Op = OpNOP
		inst.Format = FormatSystem
	case rawHALT:
		inst.Op = OpHALT
		inst.Format = FormatSystem

	case rawADD, rawSUB, rawAND, rawOR, rawXOR, rawSLT:
		d.decodeALUReg(word, opcode, inst)

	case rawADDI, rawANDI, rawORI, rawXORI, rawLUI:
		d.decodeALUImm(word, opcode, inst)

	case rawLDB, rawLDH, rawLDW, rawLDD, rawSTB, rawSTH, rawSTW, rawSTD:
		d.decodeLoadStore(word, opcode, inst)

	case rawBEQ, rawBNE, rawBLT, rawBGE:
		d.decodeBranch(word, opcode, inst)

	case rawJAL:
		d.decodeJump(word, inst)

	case rawJALR:
		inst.Op = OpJALR
		inst.Format = FormatJumpReg
		inst.Rd = rdField(word)
		inst.Rn = rnField(word)
		inst.Imm = imm16Field(word)
	}

	return inst
}

// decodeALUReg decodes R-format ALU instructions.
func (d *Decoder) decodeALUReg(word, opcode uint32, inst *Instruction) {
	inst.Format = FormatALUReg
	inst.Rd = rdField(word)
	inst.Rn = rnField(word)
	inst.Rm = uint8((word >> 11) & 0x1F)

	switch opcode {
	case rawADD:
		inst.Op = OpADD
	case rawSUB:
		inst.Op = OpSUB
	case rawAND:
		inst.Op = OpAND
	case rawOR:
		inst.Op = OpOR
	case rawXOR:
		inst.Op = OpXOR
	case rawSLT:
		inst.Op = OpSLT
	}
}

// decodeALUImm decodes I-format ALU instructions.
func (d *Decoder) decodeALUImm(word, opcode uint32, inst *Instruction) {
	inst.Format = FormatALUImm
	inst.Rd = rdField(word)
	inst.Rn = rnField(word)
	inst.Imm = imm16Field(word)

	switch opcode {
	case rawADDI:
		inst.Op = OpADDI
	case rawANDI:
		inst.Op = OpANDI
	case rawORI:
		inst.Op = OpORI
	case rawXORI:
		inst.Op = OpXORI
	case rawLUI:
		inst.Op = OpLUI
	}
}

// decodeLoadStore decodes I-format memory instructions.
func (d *Decoder) decodeLoadStore(word, opcode uint32, inst *Instruction) {
	inst.Format = FormatLoadStore
	inst.Rd = rdField(word)
	inst.Rn = rnField(word)
	inst.Imm = imm16Field(word)

	switch opcode {
	case rawLDB:
		inst.Op, inst.IsLoad, inst.MemSize = OpLDB, true, 1
	case rawLDH:
		inst.Op, inst.IsLoad, inst.MemSize = OpLDH, true, 2
	case rawLDW:
		inst.Op, inst.IsLoad, inst.MemSize = OpLDW, true, 4
	case rawLDD:
		inst.Op, inst.IsLoad, inst.MemSize = OpLDD, true, 8
	case rawSTB:
		inst.Op, inst.IsStore, inst.MemSize = OpSTB, true, 1
	case rawSTH:
		inst.Op, inst.IsStore, inst.MemSize = OpSTH, true, 2
	case rawSTW:
		inst.Op, inst.IsStore, inst.MemSize = OpSTW, true, 4
	case rawSTD:
		inst.Op, inst.IsStore, inst.MemSize = OpSTD, true, 8
	}
}

// decodeBranch decodes B-format conditional branches. The encoded offset is
// in words; Off is scaled to bytes.
func (d *Decoder) decodeBranch(word, opcode uint32, inst *Instruction) {
	inst.Format = FormatBranch
	inst.Rn = rdField(word) // B-format reuses the rd slot for rn
	inst.Rm = rnField(word)
	inst.Off = imm16Field(word) * 4

	switch opcode {
	case rawBEQ:
		inst.Op = OpBEQ
	case rawBNE:
		inst.Op = OpBNE
	case rawBLT:
		inst.Op = OpBLT
	case rawBGE:
		inst.Op = OpBGE
	}
}

// decodeJump decodes the J-format JAL instruction.
func (d *Decoder) decodeJump(word uint32, inst *Instruction) {
	inst.Op = OpJAL
	inst.Format = FormatJump
	inst.Rd = rdField(word)

	off := int64(word & 0x1FFFFF)
	if off&0x100000 != 0 {
		off -= 1 << 21 // sign-extend 21 bits
	}
	inst.Off = off * 4
}

func rdField(word uint32) uint8 {
	return uint8((word >> 21) & 0x1F)
}

func rnField(word uint32) uint8 {
	return uint8((word >> 16) & 0x1F)
}

func imm16Field(word uint32) int64 {
	return int64(int16(word & 0xFFFF))
}
