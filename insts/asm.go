package insts

// Encoding helpers, the inverse of the decoder. Tests and tooling use these
// to assemble CGRA-32 programs word by word.

// EncodeALUReg encodes an R-format ALU instruction.
func EncodeALUReg(op Op, rd, rn, rm uint8) uint32 {
	return rawOpcode(op)<<26 |
		uint32(rd&0x1F)<<21 |
		uint32(rn&0x1F)<<16 |
		uint32(rm&0x1F)<<11
}

// EncodeALUImm encodes an I-format ALU instruction.
func EncodeALUImm(op Op, rd, rn uint8, imm int16) uint32 {
	return rawOpcode(op)<<26 |
		uint32(rd&0x1F)<<21 |
		uint32(rn&0x1F)<<16 |
		uint32(uint16(imm))
}

// EncodeLoadStore encodes an I-format load or store. disp is the byte
// displacement from the base register rn.
func EncodeLoadStore(op Op, rd, rn uint8, disp int16) uint32 {
	return rawOpcode(op)<<26 |
		uint32(rd&0x1F)<<21 |
		uint32(rn&0x1F)<<16 |
		uint32(uint16(disp))
}

// EncodeBranch encodes a B-format conditional branch. offWords is the signed
// branch distance in words, relative to the branch instruction itself.
func EncodeBranch(op Op, rn, rm uint8, offWords int16) uint32 {
	return rawOpcode(op)<<26 |
		uint32(rn&0x1F)<<21 |
		uint32(rm&0x1F)<<16 |
		uint32(uint16(offWords))
}

// EncodeJAL encodes a J-format jump-and-link. offWords is the signed jump
// distance in words.
func EncodeJAL(rd uint8, offWords int32) uint32 {
	return rawJAL<<26 |
		uint32(rd&0x1F)<<21 |
		uint32(offWords)&0x1FFFFF
}

// EncodeJALR encodes a register-indirect jump-and-link.
func EncodeJALR(rd, rn uint8, imm int16) uint32 {
	return rawJALR<<26 |
		uint32(rd&0x1F)<<21 |
		uint32(rn&0x1F)<<16 |
		uint32(uint16(imm))
}

// EncodeNOP encodes a NOP instruction.
func EncodeNOP() uint32 {
	return rawNOP << 26
}

// EncodeHALT encodes a HALT instruction.
func EncodeHALT() uint32 {
	return rawHALT << 26
}

// rawOpcode maps an Op back to its 6-bit opcode field.
func rawOpcode(op Op) uint32 {
	switch op {
	case OpNOP:
		return rawNOP
	case OpHALT:
		return rawHALT
	case OpADD:
		return rawADD
	case OpSUB:
		return rawSUB
	case OpAND:
		return rawAND
	case OpOR:
		return rawOR
	case OpXOR:
		return rawXOR
	case OpSLT:
		return rawSLT
	case OpADDI:
		return rawADDI
	case OpANDI:
		return rawANDI
	case OpORI:
		return rawORI
	case OpXORI:
		return rawXORI
	case OpLUI:
		return rawLUI
	case OpLDB:
		return rawLDB
	case OpLDH:
		return rawLDH
	case OpLDW:
		return rawLDW
	case OpLDD:
		return rawLDD
	case OpSTB:
		return rawSTB
	case OpSTH:
		return rawSTH
	case OpSTW:
		return rawSTW
	case OpSTD:
		return rawSTD
	case OpBEQ:
		return rawBEQ
	case OpBNE:
		return rawBNE
	case OpBLT:
		return rawBLT
	case OpBGE:
		return rawBGE
	case OpJAL:
		return rawJAL
	case OpJALR:
		return rawJALR
	default:
		panic("insts: cannot encode unknown opcode")
	}
}
