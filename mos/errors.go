package mos

import "fmt"

// An InvalidOpcodeError reports an opcode byte with no defined operation for
// its instruction class: a corrupt or illegal instruction stream.
type InvalidOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode %02X at $%04X", e.Opcode, e.PC)
}

// An UnimplementedOpcodeError reports a legitimate 6502 opcode or addressing
// mode this implementation does not cover. Distinct from InvalidOpcodeError:
// the instruction stream is fine, the emulator has a gap.
type UnimplementedOpcodeError struct {
	Opcode uint8
	Mode   AddrMode
	PC     uint16
}

func (e *UnimplementedOpcodeError) Error() string {
	return fmt.Sprintf("unimplemented opcode %02X (%s) at $%04X", e.Opcode, e.Mode, e.PC)
}

// An AddrModeMismatchError reports an operation reached with an addressing
// mode its table does not list. It always indicates an inconsistency in the
// decode tables.
type AddrModeMismatchError struct {
	Opcode uint8
	Name   string
	Mode   AddrMode
	PC     uint16
}

func (e *AddrModeMismatchError) Error() string {
	return fmt.Sprintf("%s (opcode %02X) does not accept addressing mode %s at $%04X",
		e.Name, e.Opcode, e.Mode, e.PC)
}
