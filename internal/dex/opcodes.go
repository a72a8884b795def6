package dex

// Family is the coarse opcode family used by the analyses. Only const, invoke,
// move, branch and return matter to flow search; everything else is Other.
type Family int

const (
	FamilyOther Family = iota
	FamilyConst
	FamilyMove
	FamilyBranch
	FamilyReturn
	FamilyInvoke
)

func (f Family) String() string {
	switch f {
	case FamilyConst:
		return "const"
	case FamilyMove:
		return "move"
	case FamilyBranch:
		return "branch"
	case FamilyReturn:
		return "return"
	case FamilyInvoke:
		return "invoke"
	}
	return "other"
}

// Instruction formats, named as in the Dalvik bytecode reference. The format
// decides both the operand layout and the width in 16-bit code units.
type format int

const (
	fmt10x format = iota // op
	fmt12x               // B|A|op
	fmt11n               // B|A|op (B is a signed 4-bit literal)
	fmt11x               // AA|op
	fmt10t               // AA|op (AA is a signed branch offset)
	fmt20t               // op, AAAA
	fmt22x               // AA|op, BBBB
	fmt21t               // AA|op, BBBB (signed branch offset)
	fmt21s               // AA|op, BBBB (signed 16-bit literal)
	fmt21h               // AA|op, BBBB (literal shifted into high bits)
	fmt21c               // AA|op, BBBB (constant-pool index)
	fmt23x               // AA|op, CC|BB
	fmt22b               // AA|op, CC|BB (CC is a signed 8-bit literal)
	fmt22t               // B|A|op, CCCC (signed branch offset)
	fmt22s               // B|A|op, CCCC (signed 16-bit literal)
	fmt22c               // B|A|op, CCCC (constant-pool index)
	fmt32x               // op, AAAA, BBBB
	fmt30t               // op, AAAAlo, AAAAhi (signed 32-bit branch offset)
	fmt31i               // AA|op, BBBBlo, BBBBhi
	fmt31t               // AA|op, BBBBlo, BBBBhi (signed branch offset)
	fmt31c               // AA|op, BBBBlo, BBBBhi (constant-pool index)
	fmt35c               // A|G|op, BBBB, F|E|D|C
	fmt3rc               // AA|op, BBBB, CCCC
	fmt51l               // AA|op, four literal words
)

func (f format) width() int {
	switch f {
	case fmt10x, fmt12x, fmt11n, fmt11x, fmt10t:
		return 1
	case fmt20t, fmt22x, fmt21t, fmt21s, fmt21h, fmt21c, fmt23x, fmt22b, fmt22t, fmt22s, fmt22c:
		return 2
	case fmt32x, fmt30t, fmt31i, fmt31t, fmt31c, fmt35c, fmt3rc:
		return 3
	case fmt51l:
		return 5
	}
	return 1
}

// What the constant-pool index of an instruction refers to.
type indexKind int

const (
	idxNone indexKind = iota
	idxString
	idxType
	idxField
	idxMethod
)

type opInfo struct {
	name   string
	format format
	family Family
	index  indexKind
}

// opTable covers the defined Dalvik opcode range. A zero entry (empty name)
// marks an unused or unknown opcode.
var opTable = [256]opInfo{
	0x00: {"nop", fmt10x, FamilyOther, idxNone},

	0x01: {"move", fmt12x, FamilyMove, idxNone},
	0x02: {"move/from16", fmt22x, FamilyMove, idxNone},
	0x03: {"move/16", fmt32x, FamilyMove, idxNone},
	0x04: {"move-wide", fmt12x, FamilyMove, idxNone},
	0x05: {"move-wide/from16", fmt22x, FamilyMove, idxNone},
	0x06: {"move-wide/16", fmt32x, FamilyMove, idxNone},
	0x07: {"move-object", fmt12x, FamilyMove, idxNone},
	0x08: {"move-object/from16", fmt22x, FamilyMove, idxNone},
	0x09: {"move-object/16", fmt32x, FamilyMove, idxNone},
	0x0a: {"move-result", fmt11x, FamilyMove, idxNone},
	0x0b: {"move-result-wide", fmt11x, FamilyMove, idxNone},
	0x0c: {"move-result-object", fmt11x, FamilyMove, idxNone},
	0x0d: {"move-exception", fmt11x, FamilyMove, idxNone},

	0x0e: {"return-void", fmt10x, FamilyReturn, idxNone},
	0x0f: {"return", fmt11x, FamilyReturn, idxNone},
	0x10: {"return-wide", fmt11x, FamilyReturn, idxNone},
	0x11: {"return-object", fmt11x, FamilyReturn, idxNone},

	0x12: {"const/4", fmt11n, FamilyConst, idxNone},
	0x13: {"const/16", fmt21s, FamilyConst, idxNone},
	0x14: {"const", fmt31i, FamilyConst, idxNone},
	0x15: {"const/high16", fmt21h, FamilyConst, idxNone},
	0x16: {"const-wide/16", fmt21s, FamilyConst, idxNone},
	0x17: {"const-wide/32", fmt31i, FamilyConst, idxNone},
	0x18: {"const-wide", fmt51l, FamilyConst, idxNone},
	0x19: {"const-wide/high16", fmt21h, FamilyConst, idxNone},
	0x1a: {"const-string", fmt21c, FamilyConst, idxString},
	0x1b: {"const-string/jumbo", fmt31c, FamilyConst, idxString},
	0x1c: {"const-class", fmt21c, FamilyConst, idxType},

	0x1d: {"monitor-enter", fmt11x, FamilyOther, idxNone},
	0x1e: {"monitor-exit", fmt11x, FamilyOther, idxNone},

	0x1f: {"check-cast", fmt21c, FamilyOther, idxType},
	0x20: {"instance-of", fmt22c, FamilyOther, idxType},
	0x21: {"array-length", fmt12x, FamilyOther, idxNone},
	0x22: {"new-instance", fmt21c, FamilyOther, idxType},
	0x23: {"new-array", fmt22c, FamilyOther, idxType},
	0x24: {"filled-new-array", fmt35c, FamilyOther, idxType},
	0x25: {"filled-new-array/range", fmt3rc, FamilyOther, idxType},
	0x26: {"fill-array-data", fmt31t, FamilyOther, idxNone},

	0x27: {"throw", fmt11x, FamilyOther, idxNone},
	0x28: {"goto", fmt10t, FamilyBranch, idxNone},
	0x29: {"goto/16", fmt20t, FamilyBranch, idxNone},
	0x2a: {"goto/32", fmt30t, FamilyBranch, idxNone},
	0x2b: {"packed-switch", fmt31t, FamilyBranch, idxNone},
	0x2c: {"sparse-switch", fmt31t, FamilyBranch, idxNone},

	0x2d: {"cmpl-float", fmt23x, FamilyOther, idxNone},
	0x2e: {"cmpg-float", fmt23x, FamilyOther, idxNone},
	0x2f: {"cmpl-double", fmt23x, FamilyOther, idxNone},
	0x30: {"cmpg-double", fmt23x, FamilyOther, idxNone},
	0x31: {"cmp-long", fmt23x, FamilyOther, idxNone},

	0x32: {"if-eq", fmt22t, FamilyBranch, idxNone},
	0x33: {"if-ne", fmt22t, FamilyBranch, idxNone},
	0x34: {"if-lt", fmt22t, FamilyBranch, idxNone},
	0x35: {"if-ge", fmt22t, FamilyBranch, idxNone},
	0x36: {"if-gt", fmt22t, FamilyBranch, idxNone},
	0x37: {"if-le", fmt22t, FamilyBranch, idxNone},
	0x38: {"if-eqz", fmt21t, FamilyBranch, idxNone},
	0x39: {"if-nez", fmt21t, FamilyBranch, idxNone},
	0x3a: {"if-ltz", fmt21t, FamilyBranch, idxNone},
	0x3b: {"if-gez", fmt21t, FamilyBranch, idxNone},
	0x3c: {"if-gtz", fmt21t, FamilyBranch, idxNone},
	0x3d: {"if-lez", fmt21t, FamilyBranch, idxNone},

	0x44: {"aget", fmt23x, FamilyOther, idxNone},
	0x45: {"aget-wide", fmt23x, FamilyOther, idxNone},
	0x46: {"aget-object", fmt23x, FamilyOther, idxNone},
	0x47: {"aget-boolean", fmt23x, FamilyOther, idxNone},
	0x48: {"aget-byte", fmt23x, FamilyOther, idxNone},
	0x49: {"aget-char", fmt23x, FamilyOther, idxNone},
	0x4a: {"aget-short", fmt23x, FamilyOther, idxNone},
	0x4b: {"aput", fmt23x, FamilyOther, idxNone},
	0x4c: {"aput-wide", fmt23x, FamilyOther, idxNone},
	0x4d: {"aput-object", fmt23x, FamilyOther, idxNone},
	0x4e: {"aput-boolean", fmt23x, FamilyOther, idxNone},
	0x4f: {"aput-byte", fmt23x, FamilyOther, idxNone},
	0x50: {"aput-char", fmt23x, FamilyOther, idxNone},
	0x51: {"aput-short", fmt23x, FamilyOther, idxNone},

	0x52: {"iget", fmt22c, FamilyOther, idxField},
	0x53: {"iget-wide", fmt22c, FamilyOther, idxField},
	0x54: {"iget-object", fmt22c, FamilyOther, idxField},
	0x55: {"iget-boolean", fmt22c, FamilyOther, idxField},
	0x56: {"iget-byte", fmt22c, FamilyOther, idxField},
	0x57: {"iget-char", fmt22c, FamilyOther, idxField},
	0x58: {"iget-short", fmt22c, FamilyOther, idxField},
	0x59: {"iput", fmt22c, FamilyOther, idxField},
	0x5a: {"iput-wide", fmt22c, FamilyOther, idxField},
	0x5b: {"iput-object", fmt22c, FamilyOther, idxField},
	0x5c: {"iput-boolean", fmt22c, FamilyOther, idxField},
	0x5d: {"iput-byte", fmt22c, FamilyOther, idxField},
	0x5e: {"iput-char", fmt22c, FamilyOther, idxField},
	0x5f: {"iput-short", fmt22c, FamilyOther, idxField},

	0x60: {"sget", fmt21c, FamilyOther, idxField},
	0x61: {"sget-wide", fmt21c, FamilyOther, idxField},
	0x62: {"sget-object", fmt21c, FamilyOther, idxField},
	0x63: {"sget-boolean", fmt21c, FamilyOther, idxField},
	0x64: {"sget-byte", fmt21c, FamilyOther, idxField},
	0x65: {"sget-char", fmt21c, FamilyOther, idxField},
	0x66: {"sget-short", fmt21c, FamilyOther, idxField},
	0x67: {"sput", fmt21c, FamilyOther, idxField},
	0x68: {"sput-wide", fmt21c, FamilyOther, idxField},
	0x69: {"sput-object", fmt21c, FamilyOther, idxField},
	0x6a: {"sput-boolean", fmt21c, FamilyOther, idxField},
	0x6b: {"sput-byte", fmt21c, FamilyOther, idxField},
	0x6c: {"sput-char", fmt21c, FamilyOther, idxField},
	0x6d: {"sput-short", fmt21c, FamilyOther, idxField},

	0x6e: {"invoke-virtual", fmt35c, FamilyInvoke, idxMethod},
	0x6f: {"invoke-super", fmt35c, FamilyInvoke, idxMethod},
	0x70: {"invoke-direct", fmt35c, FamilyInvoke, idxMethod},
	0x71: {"invoke-static", fmt35c, FamilyInvoke, idxMethod},
	0x72: {"invoke-interface", fmt35c, FamilyInvoke, idxMethod},

	0x74: {"invoke-virtual/range", fmt3rc, FamilyInvoke, idxMethod},
	0x75: {"invoke-super/range", fmt3rc, FamilyInvoke, idxMethod},
	0x76: {"invoke-direct/range", fmt3rc, FamilyInvoke, idxMethod},
	0x77: {"invoke-static/range", fmt3rc, FamilyInvoke, idxMethod},
	0x78: {"invoke-interface/range", fmt3rc, FamilyInvoke, idxMethod},

	0x7b: {"neg-int", fmt12x, FamilyOther, idxNone},
	0x7c: {"not-int", fmt12x, FamilyOther, idxNone},
	0x7d: {"neg-long", fmt12x, FamilyOther, idxNone},
	0x7e: {"not-long", fmt12x, FamilyOther, idxNone},
	0x7f: {"neg-float", fmt12x, FamilyOther, idxNone},
	0x80: {"neg-double", fmt12x, FamilyOther, idxNone},
	0x81: {"int-to-long", fmt12x, FamilyOther, idxNone},
	0x82: {"int-to-float", fmt12x, FamilyOther, idxNone},
	0x83: {"int-to-double", fmt12x, FamilyOther, idxNone},
	0x84: {"long-to-int", fmt12x, FamilyOther, idxNone},
	0x85: {"long-to-float", fmt12x, FamilyOther, idxNone},
	0x86: {"long-to-double", fmt12x, FamilyOther, idxNone},
	0x87: {"float-to-int", fmt12x, FamilyOther, idxNone},
	0x88: {"float-to-long", fmt12x, FamilyOther, idxNone},
	0x89: {"float-to-double", fmt12x, FamilyOther, idxNone},
	0x8a: {"double-to-int", fmt12x, FamilyOther, idxNone},
	0x8b: {"double-to-long", fmt12x, FamilyOther, idxNone},
	0x8c: {"double-to-float", fmt12x, FamilyOther, idxNone},
	0x8d: {"int-to-byte", fmt12x, FamilyOther, idxNone},
	0x8e: {"int-to-char", fmt12x, FamilyOther, idxNone},
	0x8f: {"int-to-short", fmt12x, FamilyOther, idxNone},

	0x90: {"add-int", fmt23x, FamilyOther, idxNone},
	0x91: {"sub-int", fmt23x, FamilyOther, idxNone},
	0x92: {"mul-int", fmt23x, FamilyOther, idxNone},
	0x93: {"div-int", fmt23x, FamilyOther, idxNone},
	0x94: {"rem-int", fmt23x, FamilyOther, idxNone},
	0x95: {"and-int", fmt23x, FamilyOther, idxNone},
	0x96: {"or-int", fmt23x, FamilyOther, idxNone},
	0x97: {"xor-int", fmt23x, FamilyOther, idxNone},
	0x98: {"shl-int", fmt23x, FamilyOther, idxNone},
	0x99: {"shr-int", fmt23x, FamilyOther, idxNone},
	0x9a: {"ushr-int", fmt23x, FamilyOther, idxNone},
	0x9b: {"add-long", fmt23x, FamilyOther, idxNone},
	0x9c: {"sub-long", fmt23x, FamilyOther, idxNone},
	0x9d: {"mul-long", fmt23x, FamilyOther, idxNone},
	0x9e: {"div-long", fmt23x, FamilyOther, idxNone},
	0x9f: {"rem-long", fmt23x, FamilyOther, idxNone},
	0xa0: {"and-long", fmt23x, FamilyOther, idxNone},
	0xa1: {"or-long", fmt23x, FamilyOther, idxNone},
	0xa2: {"xor-long", fmt23x, FamilyOther, idxNone},
	0xa3: {"shl-long", fmt23x, FamilyOther, idxNone},
	0xa4: {"shr-long", fmt23x, FamilyOther, idxNone},
	0xa5: {"ushr-long", fmt23x, FamilyOther, idxNone},
	0xa6: {"add-float", fmt23x, FamilyOther, idxNone},
	0xa7: {"sub-float", fmt23x, FamilyOther, idxNone},
	0xa8: {"mul-float", fmt23x, FamilyOther, idxNone},
	0xa9: {"div-float", fmt23x, FamilyOther, idxNone},
	0xaa: {"rem-float", fmt23x, FamilyOther, idxNone},
	0xab: {"add-double", fmt23x, FamilyOther, idxNone},
	0xac: {"sub-double", fmt23x, FamilyOther, idxNone},
	0xad: {"mul-double", fmt23x, FamilyOther, idxNone},
	0xae: {"div-double", fmt23x, FamilyOther, idxNone},
	0xaf: {"rem-double", fmt23x, FamilyOther, idxNone},

	0xb0: {"add-int/2addr", fmt12x, FamilyOther, idxNone},
	0xb1: {"sub-int/2addr", fmt12x, FamilyOther, idxNone},
	0xb2: {"mul-int/2addr", fmt12x, FamilyOther, idxNone},
	0xb3: {"div-int/2addr", fmt12x, FamilyOther, idxNone},
	0xb4: {"rem-int/2addr", fmt12x, FamilyOther, idxNone},
	0xb5: {"and-int/2addr", fmt12x, FamilyOther, idxNone},
	0xb6: {"or-int/2addr", fmt12x, FamilyOther, idxNone},
	0xb7: {"xor-int/2addr", fmt12x, FamilyOther, idxNone},
	0xb8: {"shl-int/2addr", fmt12x, FamilyOther, idxNone},
	0xb9: {"shr-int/2addr", fmt12x, FamilyOther, idxNone},
	0xba: {"ushr-int/2addr", fmt12x, FamilyOther, idxNone},
	0xbb: {"add-long/2addr", fmt12x, FamilyOther, idxNone},
	0xbc: {"sub-long/2addr", fmt12x, FamilyOther, idxNone},
	0xbd: {"mul-long/2addr", fmt12x, FamilyOther, idxNone},
	0xbe: {"div-long/2addr", fmt12x, FamilyOther, idxNone},
	0xbf: {"rem-long/2addr", fmt12x, FamilyOther, idxNone},
	0xc0: {"and-long/2addr", fmt12x, FamilyOther, idxNone},
	0xc1: {"or-long/2addr", fmt12x, FamilyOther, idxNone},
	0xc2: {"xor-long/2addr", fmt12x, FamilyOther, idxNone},
	0xc3: {"shl-long/2addr", fmt12x, FamilyOther, idxNone},
	0xc4: {"shr-long/2addr", fmt12x, FamilyOther, idxNone},
	0xc5: {"ushr-long/2addr", fmt12x, FamilyOther, idxNone},
	0xc6: {"add-float/2addr", fmt12x, FamilyOther, idxNone},
	0xc7: {"sub-float/2addr", fmt12x, FamilyOther, idxNone},
	0xc8: {"mul-float/2addr", fmt12x, FamilyOther, idxNone},
	0xc9: {"div-float/2addr", fmt12x, FamilyOther, idxNone},
	0xca: {"rem-float/2addr", fmt12x, FamilyOther, idxNone},
	0xcb: {"add-double/2addr", fmt12x, FamilyOther, idxNone},
	0xcc: {"sub-double/2addr", fmt12x, FamilyOther, idxNone},
	0xcd: {"mul-double/2addr", fmt12x, FamilyOther, idxNone},
	0xce: {"div-double/2addr", fmt12x, FamilyOther, idxNone},
	0xcf: {"rem-double/2addr", fmt12x, FamilyOther, idxNone},

	0xd0: {"add-int/lit16", fmt22s, FamilyOther, idxNone},
	0xd1: {"rsub-int", fmt22s, FamilyOther, idxNone},
	0xd2: {"mul-int/lit16", fmt22s, FamilyOther, idxNone},
	0xd3: {"div-int/lit16", fmt22s, FamilyOther, idxNone},
	0xd4: {"rem-int/lit16", fmt22s, FamilyOther, idxNone},
	0xd5: {"and-int/lit16", fmt22s, FamilyOther, idxNone},
	0xd6: {"or-int/lit16", fmt22s, FamilyOther, idxNone},
	0xd7: {"xor-int/lit16", fmt22s, FamilyOther, idxNone},

	0xd8: {"add-int/lit8", fmt22b, FamilyOther, idxNone},
	0xd9: {"rsub-int/lit8", fmt22b, FamilyOther, idxNone},
	0xda: {"mul-int/lit8", fmt22b, FamilyOther, idxNone},
	0xdb: {"div-int/lit8", fmt22b, FamilyOther, idxNone},
	0xdc: {"rem-int/lit8", fmt22b, FamilyOther, idxNone},
	0xdd: {"and-int/lit8", fmt22b, FamilyOther, idxNone},
	0xde: {"or-int/lit8", fmt22b, FamilyOther, idxNone},
	0xdf: {"xor-int/lit8", fmt22b, FamilyOther, idxNone},
	0xe0: {"shl-int/lit8", fmt22b, FamilyOther, idxNone},
	0xe1: {"shr-int/lit8", fmt22b, FamilyOther, idxNone},
	0xe2: {"ushr-int/lit8", fmt22b, FamilyOther, idxNone},
}

// OpcodeName returns the mnemonic for an opcode byte, or "" if unknown.
func OpcodeName(op byte) string { return opTable[op].name }
