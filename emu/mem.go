package emu

import (
	"fmt"
	"io"
	"sync"

	"phi2/emu/log"
	"phi2/prg"
)

// A Bank is a 256-byte window of the address space. Implementations
// receive full addresses and mask off what they need.
type Bank interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, val uint8)
}

// MemMap assembles the 64 KiB address space out of page-granular banks.
// Unmapped reads return 0 and unmapped writes are dropped; both are
// counted, and reported once per page.
type MemMap struct {
	pages [0x100]Bank
	syms  prg.Symbols

	Unmapped int64 // accesses that hit no bank
	warned   [0x100]bool
}

func NewMemMap() *MemMap {
	return &MemMap{}
}

func (m *MemMap) Read8(addr uint16) uint8 {
	if b := m.pages[addr>>8]; b != nil {
		return b.Read8(addr)
	}
	m.unmapped("read", addr)
	return 0
}

func (m *MemMap) Write8(addr uint16, val uint8) {
	if b := m.pages[addr>>8]; b != nil {
		b.Write8(addr, val)
		return
	}
	m.unmapped("write", addr)
}

func (m *MemMap) unmapped(op string, addr uint16) {
	m.Unmapped++
	page := addr >> 8
	if m.warned[page] {
		return
	}
	m.warned[page] = true
	log.ModMem.DebugZ("unmapped access").
		String("op", op).
		Hex16("addr", addr).
		End()
}

// SetSymbols attaches the labels the trace layer resolves addresses
// against.
func (m *MemMap) SetSymbols(syms prg.Symbols) {
	m.syms = syms
}

// SymbolAt implements the symbol resolver the CPU upgrades its bus to.
func (m *MemMap) SymbolAt(addr uint16) (string, bool) {
	if m.syms == nil {
		return "", false
	}
	return m.syms.At(addr)
}

// MapRAM backs the pages covering [addr, end] with zeroed RAM and returns
// the backing slice, one byte per mapped address. Both bounds must fall on
// page edges.
func (m *MemMap) MapRAM(addr, end uint16) []byte {
	if addr&0xFF != 0 || end&0xFF != 0xFF || end < addr {
		panic(fmt.Sprintf("unaligned RAM range %04X-%04X", addr, end))
	}

	buf := make([]byte, int(end)-int(addr)+1)
	for page, off := int(addr)>>8, 0; off < len(buf); page, off = page+1, off+0x100 {
		m.mapPage(page, ramBank(buf[off:off+0x100]))
	}
	return buf
}

// MapDevice installs b as the handler for every access within a page.
func (m *MemMap) MapDevice(page uint8, b Bank) {
	m.mapPage(int(page), b)
}

func (m *MemMap) mapPage(page int, b Bank) {
	if m.pages[page] != nil {
		panic(fmt.Sprintf("page %02X mapped twice", page))
	}
	m.pages[page] = b

	log.ModMem.DebugZ("mapped page").
		Hex8("page", uint8(page)).
		String("bank", fmt.Sprintf("%T", b)).
		End()
}

// MapImage lays img over the address space, backing any page it touches
// that is still unmapped with fresh RAM. The image bytes go through the
// mapped banks, so an image may deliberately overlap a device.
func (m *MemMap) MapImage(img *prg.Image) {
	for page := int(img.Load) >> 8; page <= (img.End()-1)>>8; page++ {
		if m.pages[page] == nil {
			m.mapPage(page, make(ramBank, 0x100))
		}
	}
	for i, b := range img.Data {
		m.Write8(img.Load+uint16(i), b)
	}

	log.ModMem.InfoZ("image mapped").
		Hex16("load", img.Load).
		Int("bytes", len(img.Data)).
		End()
}

// ramBank is one page of plain memory.
type ramBank []byte

func (b ramBank) Read8(addr uint16) uint8 {
	return b[addr&0xFF]
}

func (b ramBank) Write8(addr uint16, val uint8) {
	b[addr&0xFF] = val
}

// Console device addresses, following the py65 monitor conventions so
// images assembled for that harness print here.
const (
	ConsolePage = 0xF0   // page the device occupies
	putcAddr    = 0xF001 // write: emit the byte
	getcAddr    = 0xF004 // read: next input byte, 0 when there is none
)

// Console is the character I/O device. Writes to the output register go
// to w; reads from the input register pop from an internal queue that
// Feed fills, possibly from another goroutine. Every other byte of the
// page behaves as RAM.
type Console struct {
	w io.Writer

	mu sync.Mutex
	in []byte

	ram [0x100]byte
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Feed queues input bytes for the program to read, one per read of the
// input register.
func (c *Console) Feed(p []byte) {
	c.mu.Lock()
	c.in = append(c.in, p...)
	c.mu.Unlock()
}

func (c *Console) Read8(addr uint16) uint8 {
	if addr == getcAddr {
		c.mu.Lock()
		defer c.mu.Unlock()
		if len(c.in) == 0 {
			return 0
		}
		b := c.in[0]
		c.in = c.in[1:]
		return b
	}
	return c.ram[addr&0xFF]
}

func (c *Console) Write8(addr uint16, val uint8) {
	if addr == putcAddr {
		if _, err := c.w.Write([]byte{val}); err != nil {
			log.ModMem.WarnZ("console write failed").Error("err", err).End()
		}
		return
	}
	c.ram[addr&0xFF] = val
}
