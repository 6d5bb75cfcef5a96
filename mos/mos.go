// Package mos emulates the MOS 6502 microprocessor one clock cycle at a
// time. The CPU owns nothing but its registers and decode state: memory is
// reached through the Bus it is constructed with, and a cycle elapses only
// when the caller says so.
package mos

import (
	"phi2/emu/log"
)

// Locations reserved for vector pointers.
const (
	NMIVector   = uint16(0xFFFA) // Non-Maskable Interrupt
	ResetVector = uint16(0xFFFC) // Reset
	IRQVector   = uint16(0xFFFE) // Interrupt Request
)

// Bus is the CPU's window on the address space. Both calls are synchronous;
// whatever latency an implementation adds is inherited by Tick.
type Bus interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, val uint8)
}

// A SymbolReader resolves addresses to human-readable names. A Bus may
// additionally implement it to get symbolized trace output.
type SymbolReader interface {
	SymbolAt(addr uint16) (string, bool)
}

// SymbolFunc adapts a plain function to the SymbolReader interface.
type SymbolFunc func(addr uint16) (string, bool)

func (f SymbolFunc) SymbolAt(addr uint16) (string, bool) {
	return f(addr)
}

type CPU struct {
	bus Bus
	sym SymbolReader // nil unless bus resolves symbols

	// cpu registers
	A, X, Y, SP uint8
	PC          uint16
	P           P

	// Decode progress for the in-flight instruction. OpCycle is zero
	// exactly when no instruction is in flight.
	Opcode  uint8
	OpName  string
	Mode    AddrMode
	Operand uint16
	OpAddr  uint16
	OpCycle int

	Clock int64 // cycles since power-up

	in      instruction
	ea      uint16 // effective address of the current operand
	opClock int64  // Clock value when the current instruction was fetched
	err     error

	// interrupt latches
	doIRQ bool
	doNMI bool

	tracer Tracer
	dbg    Debugger
}

// New creates a CPU at power-up state, wired to bus. If bus also implements
// SymbolReader, trace output resolves addresses through it.
func New(bus Bus) *CPU {
	cpu := &CPU{
		bus: bus,
		SP:  0xFD,
		P:   1 << pbitU,
		dbg: nopDebugger{},
	}
	if sym, ok := bus.(SymbolReader); ok {
		cpu.sym = sym
	}
	return cpu
}

// Reset loads PC from the reset vector and clears everything else: register
// file, interrupt latches, any latched error, and in particular OpCycle, so
// no partially decoded instruction survives.
func (c *CPU) Reset() {
	c.A, c.X, c.Y = 0x00, 0x00, 0x00
	c.SP = 0xFD
	c.P = 1 << pbitU
	c.PC = c.read16(ResetVector)

	c.Opcode = 0x00
	c.OpName = ""
	c.Mode = Implied
	c.Operand = 0
	c.OpAddr = 0
	c.OpCycle = 0
	c.in = instruction{}
	c.err = nil

	c.doIRQ = false
	c.doNMI = false

	c.dbg.Reset()
}

// IRQ requests a maskable interrupt. The request is dropped if the
// interrupt-disable flag is set now, at request time; the flag is not
// re-checked at dispatch.
func (c *CPU) IRQ() {
	if c.P.I() {
		return
	}
	c.doIRQ = true
}

// NMI requests a non-maskable interrupt. Always latches.
func (c *CPU) NMI() {
	c.doNMI = true
}

// IsHalted reports whether a fatal decode or execution error stopped the
// CPU. Only Reset clears the condition.
func (c *CPU) IsHalted() bool {
	return c.err != nil
}

// Step ticks until the in-flight instruction completes, or for exactly one
// interrupt dispatch when one is pending at the boundary.
func (c *CPU) Step() error {
	for {
		if err := c.Tick(); err != nil {
			return err
		}
		if c.OpCycle == 0 {
			return nil
		}
	}
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := c.bus.Read8(addr)
	hi := c.bus.Read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

/* stack operations */

func (c *CPU) push8(val uint8) {
	top := uint16(c.SP) + 0x0100
	c.bus.Write8(top, val)
	c.SP -= 1
}

func (c *CPU) push16(val uint16) {
	c.push8(uint8(val >> 8))
	c.push8(uint8(val & 0xff))
}

func (c *CPU) pull8() uint8 {
	c.SP++
	top := uint16(c.SP) + 0x0100
	return c.bus.Read8(top)
}

func (c *CPU) pull16() uint16 {
	lo := c.pull8()
	hi := c.pull8()
	return uint16(hi)<<8 | uint16(lo)
}

/* interrupt handling */

// dispatchInterrupt services one pending interrupt at an instruction
// boundary, consuming the current tick. NMI wins over IRQ; the IRQ latch
// then stays pending for the next boundary. The pushed status has the break
// bit clear, and dispatch sets the interrupt-disable flag.
func (c *CPU) dispatchInterrupt() bool {
	var vector uint16
	var nmi bool
	switch {
	case c.doNMI:
		c.doNMI = false
		vector, nmi = NMIVector, true
	case c.doIRQ:
		c.doIRQ = false
		vector = IRQVector
	default:
		return false
	}

	prevpc := c.PC
	c.push16(c.PC)

	p := c.P
	p.setBit(pbitU)
	p.clearBit(pbitB)
	c.push8(uint8(p))

	c.P.setBit(pbitI)
	c.PC = c.read16(vector)
	c.dbg.Interrupt(prevpc, c.PC, nmi)
	return true
}

/* tracing / debugging */

// SetTracer installs the sink receiving one TraceOp per completed fetch.
// A nil tracer disables tracing.
func (c *CPU) SetTracer(t Tracer) {
	c.tracer = t
}

func (c *CPU) SetDebugger(dbg Debugger) {
	c.dbg = dbg
}

func (c *CPU) fail(err error) {
	c.err = err
	log.ModCPU.WarnZ("CPU halted").
		Hex16("PC", c.OpAddr).
		Hex8("opcode", c.Opcode).
		Error("err", err).
		End()
}

// A Debugger controls and monitors a CPU.
type Debugger interface {
	// Reset is called whenever the CPU resets.
	Reset()

	// Trace is called once per instruction, before the opcode byte is
	// read. This is the main entry point for debugging activity: the
	// debugger can stop the CPU by blocking in it until user interaction
	// finishes, and may Reset a CPU stopped this way.
	Trace(pc uint16)

	// Interrupt is called when an interrupt dispatch redirected execution.
	// prevpc is the address of the instruction that was about to run,
	// curpc the handler's address, isNMI whether the interrupt is
	// non-maskable.
	Interrupt(prevpc, curpc uint16, isNMI bool)

	// Call and Ret are called when a subroutine is entered (JSR) or left
	// (RTS, RTI), after PC has been redirected.
	Call(src, dst, ret uint16)
	Ret(pc uint16)
}

type nopDebugger struct{}

func (nopDebugger) Reset()                                     {}
func (nopDebugger) Trace(pc uint16)                            {}
func (nopDebugger) Interrupt(prevpc, curpc uint16, isNMI bool) {}
func (nopDebugger) Call(src, dst, ret uint16)                  {}
func (nopDebugger) Ret(pc uint16)                              {}
