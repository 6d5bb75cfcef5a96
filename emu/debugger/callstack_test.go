package debugger

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCallStackBuild(t *testing.T) {
	t.Run("nested calls", func(t *testing.T) {
		var cs callStack
		cs.push(0xC7C2, 0xC7E7, 0xC7C5, frameCall)
		cs.push(0xC801, 0xCBAE, 0xC804, frameCall)

		got := cs.build(0xF099)
		want := []frameInfo{
			{"CBAE", "$F099"},
			{"C7E7", "$C801"},
			{"[bottom of stack]", "$C7C2"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("callstack differs (-want +got):\n%s", diff)
		}
	})

	t.Run("empty", func(t *testing.T) {
		var cs callStack
		got := cs.build(0xF099)
		want := []frameInfo{
			{"[bottom of stack]", "$F099"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("callstack differs (-want +got):\n%s", diff)
		}
	})

	t.Run("interrupt frames", func(t *testing.T) {
		var cs callStack
		cs.push(0x0600, 0x0700, 0x0603, frameCall)
		cs.push(0x0702, 0x0800, 0x0702, frameIRQ)
		cs.push(0x0802, 0x0900, 0x0802, frameNMI)

		got := cs.build(0x0904)
		want := []frameInfo{
			{"[nmi] $0900", "$0904"},
			{"[irq] $0800", "$0802"},
			{"0700", "$0702"},
			{"[bottom of stack]", "$0600"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("callstack differs (-want +got):\n%s", diff)
		}
	})
}

func TestCallStackRet(t *testing.T) {
	t.Run("normal return", func(t *testing.T) {
		var cs callStack
		cs.push(0x0600, 0x0700, 0x0603, frameCall)
		cs.push(0x0700, 0x0800, 0x0703, frameCall)

		cs.ret(0x0703)
		want := []frameInfo{
			{"0700", "$0703"},
			{"[bottom of stack]", "$0600"},
		}
		if diff := cmp.Diff(want, cs.build(0x0703)); diff != "" {
			t.Fatalf("callstack differs (-want +got):\n%s", diff)
		}
	})

	t.Run("skips popped frames", func(t *testing.T) {
		// The program dropped a return address off the stack by hand
		// and returned across two levels at once.
		var cs callStack
		cs.push(0x0600, 0x0700, 0x0603, frameCall)
		cs.push(0x0700, 0x0800, 0x0703, frameCall)

		cs.ret(0x0603)
		want := []frameInfo{
			{"[bottom of stack]", "$0603"},
		}
		if diff := cmp.Diff(want, cs.build(0x0603)); diff != "" {
			t.Fatalf("callstack differs (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown target pops one", func(t *testing.T) {
		var cs callStack
		cs.push(0x0600, 0x0700, 0x0603, frameCall)
		cs.push(0x0700, 0x0800, 0x0703, frameCall)

		cs.ret(0x1234)
		if got := len(cs); got != 1 {
			t.Fatalf("stack depth = %d, want 1", got)
		}
	})

	t.Run("empty stack", func(t *testing.T) {
		var cs callStack
		cs.ret(0x0603)
		if got := len(cs); got != 0 {
			t.Fatalf("stack depth = %d, want 0", got)
		}
	})
}
