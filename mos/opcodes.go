package mos

// The operation functions below run on the terminal cycle of their
// instruction, with the addressing mode already resolved. Reads, writes
// and register effects all happen here.

/* load / store */

// LDA loads the accumulator with memory.
func LDA(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	c.A = v
	c.P.checkNZ(c.A)
	return nil
}

// LDX loads index X with memory.
func LDX(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	c.X = v
	c.P.checkNZ(c.X)
	return nil
}

// LDY loads index Y with memory.
func LDY(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	c.Y = v
	c.P.checkNZ(c.Y)
	return nil
}

// STA stores the accumulator in memory.
func STA(c *CPU) error {
	return c.storeOperand(c.A)
}

// STX stores index X in memory.
func STX(c *CPU) error {
	return c.storeOperand(c.X)
}

// STY stores index Y in memory.
func STY(c *CPU) error {
	return c.storeOperand(c.Y)
}

/* register transfers */

// TAX transfers the accumulator to index X.
func TAX(c *CPU) error {
	c.X = c.A
	c.P.checkNZ(c.X)
	return nil
}

// TAY transfers the accumulator to index Y.
func TAY(c *CPU) error {
	c.Y = c.A
	c.P.checkNZ(c.Y)
	return nil
}

// TXA transfers index X to the accumulator.
func TXA(c *CPU) error {
	c.A = c.X
	c.P.checkNZ(c.A)
	return nil
}

// TYA transfers index Y to the accumulator.
func TYA(c *CPU) error {
	c.A = c.Y
	c.P.checkNZ(c.A)
	return nil
}

// TSX transfers the stack pointer to index X.
func TSX(c *CPU) error {
	c.X = c.SP
	c.P.checkNZ(c.X)
	return nil
}

// TXS transfers index X to the stack pointer. No flags are affected.
func TXS(c *CPU) error {
	c.SP = c.X
	return nil
}

/* stack operations */

// PHA pushes the accumulator on the stack.
func PHA(c *CPU) error {
	c.push8(c.A)
	return nil
}

// PHP pushes the processor status on the stack. The pushed copy has the
// break and unused bits set.
func PHP(c *CPU) error {
	p := c.P
	p.setBit(pbitB)
	p.setBit(pbitU)
	c.push8(uint8(p))
	return nil
}

// PLA pulls the accumulator from the stack.
func PLA(c *CPU) error {
	c.A = c.pull8()
	c.P.checkNZ(c.A)
	return nil
}

// PLP pulls the processor status from the stack. The break bit is
// discarded and the unused bit reads back as set.
func PLP(c *CPU) error {
	c.P = P(c.pull8())
	c.P.setBit(pbitU)
	c.P.clearBit(pbitB)
	return nil
}

/* logical */

// AND ands memory with the accumulator.
func AND(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	c.A &= v
	c.P.checkNZ(c.A)
	return nil
}

// ORA ors memory with the accumulator.
func ORA(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	c.A |= v
	c.P.checkNZ(c.A)
	return nil
}

// EOR exclusive-ors memory with the accumulator.
func EOR(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	c.A ^= v
	c.P.checkNZ(c.A)
	return nil
}

// BIT tests bits in memory with the accumulator. N and V are copied from
// the operand, Z reflects the and of operand and accumulator.
func BIT(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	c.P &= 0b00111111
	c.P |= P(v & 0b11000000)
	c.P.checkZ(c.A & v)
	return nil
}

/* arithmetic */

// ADC adds memory to the accumulator with carry.
func ADC(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	adc(c, v)
	return nil
}

// SBC subtracts memory from the accumulator with borrow. Same adder as
// ADC, fed the operand's complement.
func SBC(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	adc(c, v^0xff)
	return nil
}

// CMP compares memory with the accumulator.
func CMP(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	compare(c, c.A, v)
	return nil
}

// CPX compares memory with index X.
func CPX(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	compare(c, c.X, v)
	return nil
}

// CPY compares memory with index Y.
func CPY(c *CPU) error {
	v, err := c.loadOperand()
	if err != nil {
		return err
	}
	compare(c, c.Y, v)
	return nil
}

/* increments / decrements */

// INC increments memory by one.
func INC(c *CPU) error {
	return c.rmw(inc)
}

// INX increments index X by one.
func INX(c *CPU) error {
	c.X++
	c.P.checkNZ(c.X)
	return nil
}

// INY increments index Y by one.
func INY(c *CPU) error {
	c.Y++
	c.P.checkNZ(c.Y)
	return nil
}

// DEC decrements memory by one.
func DEC(c *CPU) error {
	return c.rmw(dec)
}

// DEX decrements index X by one.
func DEX(c *CPU) error {
	c.X--
	c.P.checkNZ(c.X)
	return nil
}

// DEY decrements index Y by one.
func DEY(c *CPU) error {
	c.Y--
	c.P.checkNZ(c.Y)
	return nil
}

/* shifts */

// ASL shifts the operand one bit left.
func ASL(c *CPU) error {
	if c.Mode == Accumulator {
		c.A = asl(c, c.A)
		return nil
	}
	return c.rmw(asl)
}

// LSR shifts the operand one bit right.
func LSR(c *CPU) error {
	if c.Mode == Accumulator {
		c.A = lsr(c, c.A)
		return nil
	}
	return c.rmw(lsr)
}

// ROL rotates the operand one bit left through carry.
func ROL(c *CPU) error {
	if c.Mode == Accumulator {
		c.A = rol(c, c.A)
		return nil
	}
	return c.rmw(rol)
}

// ROR rotates the operand one bit right through carry.
func ROR(c *CPU) error {
	if c.Mode == Accumulator {
		c.A = ror(c, c.A)
		return nil
	}
	return c.rmw(ror)
}

/* jumps / calls */

// JMP transfers control to the operand address.
func JMP(c *CPU) error {
	if c.Mode != Absolute {
		return c.modeMismatch()
	}
	c.PC = c.ea
	return nil
}

// JSR jumps to a subroutine, pushing the address of its own last byte as
// the return link.
func JSR(c *CPU) error {
	if c.Mode != Absolute {
		return c.modeMismatch()
	}
	ret := c.PC
	c.push16(c.PC - 1)
	c.PC = c.ea
	c.dbg.Call(c.OpAddr, c.PC, ret)
	return nil
}

// RTS returns from a subroutine: the pulled address plus one.
func RTS(c *CPU) error {
	c.PC = c.pull16() + 1
	c.dbg.Ret(c.PC)
	return nil
}

/* branches */

// BCC branches on carry clear.
func BCC(c *CPU) error {
	return branch(c, !c.P.C())
}

// BCS branches on carry set.
func BCS(c *CPU) error {
	return branch(c, c.P.C())
}

// BEQ branches on result zero.
func BEQ(c *CPU) error {
	return branch(c, c.P.Z())
}

// BMI branches on result minus.
func BMI(c *CPU) error {
	return branch(c, c.P.N())
}

// BNE branches on result not zero.
func BNE(c *CPU) error {
	return branch(c, !c.P.Z())
}

// BPL branches on result plus.
func BPL(c *CPU) error {
	return branch(c, !c.P.N())
}

// BVC branches on overflow clear.
func BVC(c *CPU) error {
	return branch(c, !c.P.V())
}

// BVS branches on overflow set.
func BVS(c *CPU) error {
	return branch(c, c.P.V())
}

/* status flag changes */

// CLC clears the carry flag.
func CLC(c *CPU) error {
	c.P.clearBit(pbitC)
	return nil
}

// CLD clears the decimal mode flag.
func CLD(c *CPU) error {
	c.P.clearBit(pbitD)
	return nil
}

// CLI clears the interrupt disable flag.
func CLI(c *CPU) error {
	c.P.clearBit(pbitI)
	return nil
}

// CLV clears the overflow flag.
func CLV(c *CPU) error {
	c.P.clearBit(pbitV)
	return nil
}

// SEC sets the carry flag.
func SEC(c *CPU) error {
	c.P.setBit(pbitC)
	return nil
}

// SED sets the decimal mode flag. The flag is bookkeeping only: the adder
// always works in binary.
func SED(c *CPU) error {
	c.P.setBit(pbitD)
	return nil
}

// SEI sets the interrupt disable flag.
func SEI(c *CPU) error {
	c.P.setBit(pbitI)
	return nil
}

/* system */

// BRK forces an interrupt through the IRQ vector. The pushed return
// address skips the byte after the opcode, and the pushed status has the
// break bit set.
func BRK(c *CPU) error {
	c.push16(c.PC + 1)

	p := c.P
	p.setBit(pbitB)
	p.setBit(pbitU)
	c.push8(uint8(p))

	c.P.setBit(pbitI)
	c.PC = c.read16(IRQVector)
	c.dbg.Interrupt(c.OpAddr, c.PC, false)
	return nil
}

// RTI returns from an interrupt: status first, then the program counter.
// The break bit is discarded and the unused bit reads back as set.
func RTI(c *CPU) error {
	c.P = P(c.pull8())
	c.P.setBit(pbitU)
	c.P.clearBit(pbitB)
	c.PC = c.pull16()
	c.dbg.Ret(c.PC)
	return nil
}

// NOP does nothing.
func NOP(c *CPU) error {
	return nil
}

/* helpers */

// add memory to accumulator with carry.
func adc(c *CPU, val uint8) {
	carry := c.P.ibit(pbitC)
	sum := uint16(c.A) + uint16(val) + uint16(carry)

	c.P.checkCV(c.A, val, sum)
	c.A = uint8(sum)
	c.P.checkNZ(c.A)
}

// compare a register with memory. Carry means reg >= val, as unsigned.
func compare(c *CPU, reg, val uint8) {
	c.P.checkNZ(reg - val)
	c.P.writeBit(pbitC, val <= reg)
}

// shift one bit left.
func asl(c *CPU, val uint8) uint8 {
	carry := val & 0x80 // carry is bit 7
	val <<= 1
	c.P.checkNZ(val)
	c.P.writeBit(pbitC, carry != 0)
	return val
}

// shift one bit right.
func lsr(c *CPU, val uint8) uint8 {
	carry := val & 0x01 // carry is bit 0
	val >>= 1
	c.P.checkNZ(val)
	c.P.writeBit(pbitC, carry != 0)
	return val
}

// rotate one bit left.
func rol(c *CPU, val uint8) uint8 {
	carry := val & 0x80 // next carry is bit 7
	val <<= 1
	if c.P.C() {
		val |= 1 << 0 // bit 0 is set to prev carry
	}
	c.P.checkNZ(val)
	c.P.writeBit(pbitC, carry != 0)
	return val
}

// rotate one bit right.
func ror(c *CPU, val uint8) uint8 {
	carry := val & 0x01 // next carry is bit 0
	val >>= 1
	if c.P.C() {
		val |= 1 << 7 // bit 7 is set to prev carry
	}
	c.P.checkNZ(val)
	c.P.writeBit(pbitC, carry != 0)
	return val
}

// increment by one.
func inc(c *CPU, val uint8) uint8 {
	val++
	c.P.checkNZ(val)
	return val
}

// decrement by one.
func dec(c *CPU, val uint8) uint8 {
	val--
	c.P.checkNZ(val)
	return val
}

// branch redirects PC to the resolved target when cond holds. Taken or
// not, the cycle count is the same.
func branch(c *CPU, cond bool) error {
	if c.Mode != Relative {
		return c.modeMismatch()
	}
	if cond {
		c.PC = c.ea
	}
	return nil
}
