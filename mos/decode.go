package mos

// AddrMode identifies how an instruction locates its operand.
//
//go:generate go tool stringer -type=AddrMode
type AddrMode uint8

const (
	Implied AddrMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Relative
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

const nAddrModes = int(IndirectIndexed) + 1

// OperandLen returns the number of operand bytes following the opcode.
func (m AddrMode) OperandLen() int {
	switch m {
	case Immediate, ZeroPage, ZeroPageX, ZeroPageY, Relative, IndexedIndirect, IndirectIndexed:
		return 1
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 2
	}
	return 0
}

type opFunc func(c *CPU) error

// instruction is a fully decoded opcode: what to run, how it addresses its
// operand, and how many cycles it takes from fetch to completion.
type instruction struct {
	name   string
	mode   AddrMode
	cycles int
	fn     opFunc
}

// An opEntry is one operation of a generic instruction class. Its cycle
// table doubles as the accepted-modes set: a zero count means the
// combination does not exist.
type opEntry struct {
	name   string
	cycles *cycleTable
	fn     opFunc
}

type cycleTable [nAddrModes]int

var (
	aluCycles = cycleTable{
		Immediate: 2, ZeroPage: 3, ZeroPageX: 4,
		Absolute: 4, AbsoluteX: 4, AbsoluteY: 4,
		IndexedIndirect: 6, IndirectIndexed: 5,
	}
	staCycles = cycleTable{
		ZeroPage: 3, ZeroPageX: 4,
		Absolute: 4, AbsoluteX: 5, AbsoluteY: 5,
		IndexedIndirect: 6, IndirectIndexed: 6,
	}
	shiftCycles = cycleTable{
		Accumulator: 2,
		ZeroPage:    5, ZeroPageX: 6,
		Absolute: 6, AbsoluteX: 7,
	}
	incdecCycles = cycleTable{
		ZeroPage: 5, ZeroPageX: 6,
		Absolute: 6, AbsoluteX: 7,
	}
	stxCycles = cycleTable{ZeroPage: 3, ZeroPageY: 4, Absolute: 4}
	ldxCycles = cycleTable{Immediate: 2, ZeroPage: 3, ZeroPageY: 4, Absolute: 4, AbsoluteY: 4}
	styCycles = cycleTable{ZeroPage: 3, ZeroPageX: 4, Absolute: 4}
	ldyCycles = cycleTable{Immediate: 2, ZeroPage: 3, ZeroPageX: 4, Absolute: 4, AbsoluteX: 4}
	bitCycles = cycleTable{ZeroPage: 3, Absolute: 4}
	cpCycles  = cycleTable{Immediate: 2, ZeroPage: 3, Absolute: 4}
	jmpCycles = cycleTable{Absolute: 3}
)

// Generic decode: an opcode byte splits into aaa (bits 7-5, operation),
// bbb (bits 4-2, addressing mode) and cc (bits 1-0, instruction class).
// One mode table and one operation table per class. Opcodes the scheme
// does not generalize to live in the exceptions table, which wins.

var mode00 = [8]AddrMode{Immediate, ZeroPage, Implied, Absolute, Implied, ZeroPageX, Implied, AbsoluteX}
var mode01 = [8]AddrMode{IndexedIndirect, ZeroPage, Immediate, Absolute, IndirectIndexed, ZeroPageX, AbsoluteY, AbsoluteX}
var mode10 = [8]AddrMode{Immediate, ZeroPage, Accumulator, Absolute, Implied, ZeroPageX, Implied, AbsoluteX}

// The Implied slots in mode00 and mode10 are encoding gaps: every opcode
// landing there is either claimed by the exceptions table first or carries
// a zero cycle count, so generic decode can never produce Implied.

var ops00 = [8]opEntry{
	{},
	{"BIT", &bitCycles, BIT},
	{"JMP", &jmpCycles, JMP},
	{},
	{"STY", &styCycles, STY},
	{"LDY", &ldyCycles, LDY},
	{"CPY", &cpCycles, CPY},
	{"CPX", &cpCycles, CPX},
}

var ops01 = [8]opEntry{
	{"ORA", &aluCycles, ORA},
	{"AND", &aluCycles, AND},
	{"EOR", &aluCycles, EOR},
	{"ADC", &aluCycles, ADC},
	{"STA", &staCycles, STA},
	{"LDA", &aluCycles, LDA},
	{"CMP", &aluCycles, CMP},
	{"SBC", &aluCycles, SBC},
}

var ops10 = [8]opEntry{
	{"ASL", &shiftCycles, ASL},
	{"ROL", &shiftCycles, ROL},
	{"LSR", &shiftCycles, LSR},
	{"ROR", &shiftCycles, ROR},
	{"STX", &stxCycles, STX},
	{"LDX", &ldxCycles, LDX},
	{"DEC", &incdecCycles, DEC},
	{"INC", &incdecCycles, INC},
}

// exceptions covers the opcodes the bit-field scheme cannot express:
// single-byte register and flag instructions, stack pushes and pulls, the
// conditional branches, JMP indirect and the four flow-control opcodes.
var exceptions = map[uint8]instruction{
	0x00: {"BRK", Implied, 7, BRK},
	0x08: {"PHP", Implied, 3, PHP},
	0x10: {"BPL", Relative, 2, BPL},
	0x18: {"CLC", Implied, 2, CLC},
	0x20: {"JSR", Absolute, 6, JSR},
	0x28: {"PLP", Implied, 4, PLP},
	0x30: {"BMI", Relative, 2, BMI},
	0x38: {"SEC", Implied, 2, SEC},
	0x40: {"RTI", Implied, 6, RTI},
	0x48: {"PHA", Implied, 3, PHA},
	0x50: {"BVC", Relative, 2, BVC},
	0x58: {"CLI", Implied, 2, CLI},
	0x60: {"RTS", Implied, 6, RTS},
	0x68: {"PLA", Implied, 4, PLA},
	0x6C: {"JMP", Indirect, 5, JMP},
	0x70: {"BVS", Relative, 2, BVS},
	0x78: {"SEI", Implied, 2, SEI},
	0x88: {"DEY", Implied, 2, DEY},
	0x8A: {"TXA", Implied, 2, TXA},
	0x90: {"BCC", Relative, 2, BCC},
	0x98: {"TYA", Implied, 2, TYA},
	0x9A: {"TXS", Implied, 2, TXS},
	0xA8: {"TAY", Implied, 2, TAY},
	0xAA: {"TAX", Implied, 2, TAX},
	0xB0: {"BCS", Relative, 2, BCS},
	0xB8: {"CLV", Implied, 2, CLV},
	0xBA: {"TSX", Implied, 2, TSX},
	0xC8: {"INY", Implied, 2, INY},
	0xCA: {"DEX", Implied, 2, DEX},
	0xD0: {"BNE", Relative, 2, BNE},
	0xD8: {"CLD", Implied, 2, CLD},
	0xE8: {"INX", Implied, 2, INX},
	0xEA: {"NOP", Implied, 2, NOP},
	0xF0: {"BEQ", Relative, 2, BEQ},
	0xF8: {"SED", Implied, 2, SED},
}

// decode maps an opcode byte to its instruction. ok is false when the byte
// has no defined operation.
func decode(opcode uint8) (in instruction, ok bool) {
	if in, ok := exceptions[opcode]; ok {
		return in, true
	}

	aaa := opcode >> 5
	bbb := (opcode >> 2) & 0x07
	cc := opcode & 0x03

	var ent opEntry
	var mode AddrMode
	switch cc {
	case 0:
		ent, mode = ops00[aaa], mode00[bbb]
	case 1:
		ent, mode = ops01[aaa], mode01[bbb]
	case 2:
		ent, mode = ops10[aaa], mode10[bbb]
		// STX and LDX index with Y where the rest of the class uses X.
		if aaa == 4 || aaa == 5 {
			if mode == ZeroPageX {
				mode = ZeroPageY
			} else if aaa == 5 && mode == AbsoluteX {
				mode = AbsoluteY
			}
		}
	default:
		return instruction{}, false
	}

	if ent.fn == nil {
		return instruction{}, false
	}
	n := ent.cycles[mode]
	if n == 0 {
		return instruction{}, false
	}
	return instruction{name: ent.name, mode: mode, cycles: n, fn: ent.fn}, true
}
