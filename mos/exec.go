package mos

// Tick advances the CPU by exactly one clock cycle and never blocks. On a
// fatal decode or execution error the CPU halts: state stays exactly as of
// the failing cycle and every further Tick returns the same error until
// Reset.
//
// An instruction's life across ticks: the boundary tick fetches the opcode
// (or services a pending interrupt instead), the next tick decodes it,
// reads the remaining instruction bytes and resolves the effective
// address, intermediate ticks only elapse, and the terminal tick performs
// the operation's side effects. Two-cycle instructions decode and execute
// on the same tick.
func (c *CPU) Tick() error {
	if c.err != nil {
		return c.err
	}
	c.Clock++

	if c.OpCycle == 0 {
		if c.dispatchInterrupt() {
			return nil
		}
		c.fetch()
		return nil
	}

	if c.OpCycle == 1 {
		if err := c.decodeOp(); err != nil {
			c.fail(err)
			return c.err
		}
	}

	if c.OpCycle == c.in.cycles-1 {
		if err := c.in.fn(c); err != nil {
			c.fail(err)
			return c.err
		}
		c.OpCycle = 0
		return nil
	}

	c.OpCycle++
	return nil
}

// fetch reads the opcode byte at PC and opens a new instruction. The
// addressing mode is a placeholder until decode runs on the next cycle.
// The debugger hook runs before anything is read, so a Reset issued
// while the hook blocks redirects the fetch instead of corrupting it.
func (c *CPU) fetch() {
	c.dbg.Trace(c.PC)

	c.OpAddr = c.PC
	c.opClock = c.Clock - 1
	c.Opcode = c.bus.Read8(c.PC)
	c.PC++

	c.OpName = ""
	c.Mode = Implied
	c.Operand = 0
	c.ea = 0
	c.OpCycle = 1
}

func (c *CPU) decodeOp() error {
	in, ok := decode(c.Opcode)
	if !ok {
		return &InvalidOpcodeError{Opcode: c.Opcode, PC: c.OpAddr}
	}
	c.in = in
	c.OpName = in.name
	c.Mode = in.mode

	if err := c.resolve(); err != nil {
		return err
	}
	c.traceOp()
	return nil
}

// resolve consumes the operand bytes following the opcode and computes the
// effective address for the decoded mode. Operand keeps the bytes as
// encoded; indexing goes into ea only.
func (c *CPU) resolve() error {
	switch c.Mode {
	case Implied, Accumulator:
		// single-byte instruction

	case Immediate:
		c.Operand = uint16(c.bus.Read8(c.PC))
		c.PC++

	case ZeroPage:
		c.Operand = uint16(c.bus.Read8(c.PC))
		c.PC++
		c.ea = c.Operand

	case ZeroPageX:
		c.Operand = uint16(c.bus.Read8(c.PC))
		c.PC++
		c.ea = uint16(uint8(c.Operand) + c.X) // wraps within page 0

	case ZeroPageY:
		c.Operand = uint16(c.bus.Read8(c.PC))
		c.PC++
		c.ea = uint16(uint8(c.Operand) + c.Y)

	case Absolute:
		c.Operand = c.read16(c.PC)
		c.PC += 2
		c.ea = c.Operand

	case AbsoluteX:
		c.Operand = c.read16(c.PC)
		c.PC += 2
		c.ea = c.Operand + uint16(c.X)

	case AbsoluteY:
		c.Operand = c.read16(c.PC)
		c.PC += 2
		c.ea = c.Operand + uint16(c.Y)

	case Relative:
		// branch target: PC past the displacement byte, plus the
		// displacement taken as two's complement.
		c.Operand = uint16(c.bus.Read8(c.PC))
		c.PC++
		c.ea = uint16(int16(c.PC) + int16(int8(c.Operand)))

	case Indirect, IndexedIndirect, IndirectIndexed:
		return &UnimplementedOpcodeError{Opcode: c.Opcode, Mode: c.Mode, PC: c.OpAddr}
	}
	return nil
}

// loadOperand reads the value an instruction operates on.
func (c *CPU) loadOperand() (uint8, error) {
	switch c.Mode {
	case Immediate:
		return uint8(c.Operand), nil
	case ZeroPage, ZeroPageX, ZeroPageY, Absolute, AbsoluteX, AbsoluteY:
		return c.bus.Read8(c.ea), nil
	}
	return 0, c.modeMismatch()
}

// storeOperand writes v to the operand's location.
func (c *CPU) storeOperand(v uint8) error {
	switch c.Mode {
	case ZeroPage, ZeroPageX, ZeroPageY, Absolute, AbsoluteX, AbsoluteY:
		c.bus.Write8(c.ea, v)
		return nil
	}
	return c.modeMismatch()
}

// rmw applies f to the memory operand in place.
func (c *CPU) rmw(f func(c *CPU, v uint8) uint8) error {
	switch c.Mode {
	case ZeroPage, ZeroPageX, Absolute, AbsoluteX:
		c.bus.Write8(c.ea, f(c, c.bus.Read8(c.ea)))
		return nil
	}
	return c.modeMismatch()
}

func (c *CPU) modeMismatch() error {
	return &AddrModeMismatchError{
		Opcode: c.Opcode,
		Name:   c.OpName,
		Mode:   c.Mode,
		PC:     c.OpAddr,
	}
}
