package debugger

import "fmt"

type frameKind uint8

const (
	frameCall frameKind = iota
	frameNMI
	frameIRQ
)

// A stackFrame records one level of the call hierarchy: a JSR or an
// interrupt dispatch that has not returned yet.
type stackFrame struct {
	src  uint16 // address the control transfer came from
	dst  uint16 // entry point of the routine or handler
	ret  uint16 // address execution resumes at on return
	kind frameKind
}

type callStack []stackFrame

func (cs *callStack) push(src, dst, ret uint16, kind frameKind) {
	*cs = append(*cs, stackFrame{src: src, dst: dst, ret: ret, kind: kind})
}

func (cs *callStack) pop() {
	if n := len(*cs); n > 0 {
		*cs = (*cs)[:n-1]
	}
}

// ret unwinds for a return to pc. A return matching a deeper frame pops
// everything above it, so a program that drops return addresses off the
// stack by hand does not desync the walk; a return matching nothing
// still pops one frame.
func (cs *callStack) ret(pc uint16) {
	for i := len(*cs) - 1; i >= 0; i-- {
		if (*cs)[i].ret == pc {
			*cs = (*cs)[:i]
			return
		}
	}
	cs.pop()
}

func (cs *callStack) reset() {
	*cs = (*cs)[:0]
}

// frameInfo is one row of the rendered walk: where the frame was
// entered, and where execution sits inside it.
type frameInfo [2]string

// build renders the walk newest-first, ending at the bottom of the
// stack.
func (cs *callStack) build(pc uint16) []frameInfo {
	rows := make([]frameInfo, 0, len(*cs)+1)

	at := fmt.Sprintf("$%04X", pc)
	for i := len(*cs) - 1; i >= 0; i-- {
		f := (*cs)[i]
		rows = append(rows, frameInfo{entered(&f), at})
		at = fmt.Sprintf("$%04X", f.src)
	}
	return append(rows, frameInfo{entered(nil), at})
}

func entered(f *stackFrame) string {
	if f == nil {
		return "[bottom of stack]"
	}

	s := fmt.Sprintf("%04X", f.dst)
	switch f.kind {
	case frameNMI:
		return "[nmi] $" + s
	case frameIRQ:
		return "[irq] $" + s
	default:
		return s
	}
}
