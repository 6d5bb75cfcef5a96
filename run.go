package main

import (
	"fmt"
	"os"

	"phi2/emu"
	"phi2/emu/debugger"
	"phi2/emu/rpc"
	"phi2/mos"
	"phi2/prg"
)

// runMain assembles a machine around the image and runs it until it
// quits, reaches its cycle limit or halts.
func runMain(args RunCmd) {
	cfg, err := emu.LoadConfig()
	checkf(err, "failed to load configuration")

	if args.Hz != 0 {
		cfg.Machine.Hz = args.Hz
	}
	if args.Console {
		cfg.Machine.Console = true
	}
	if cfg.Log.Modules != "" {
		checkf(enableLogModules(cfg.Log.Modules), "bad log.modules in configuration")
	}

	img, err := prg.Open(args.ImagePath)
	checkf(err, "failed to open program image")

	mem := emu.NewMemMap()
	if cfg.Machine.Console {
		console := emu.NewConsole(os.Stdout)
		mem.MapRAM(0x0000, 0xEFFF)
		mem.MapDevice(emu.ConsolePage, console)
		mem.MapRAM(0xF100, 0xFFFF)
		go feedConsole(console)
	} else {
		mem.MapRAM(0x0000, 0xFFFF)
	}
	mem.MapImage(img)

	// An image that does not provide a reset vector boots at its load
	// address.
	if img.Load > mos.ResetVector || img.End() < int(mos.ResetVector)+2 {
		mem.Write8(mos.ResetVector, uint8(img.Load))
		mem.Write8(mos.ResetVector+1, uint8(img.Load>>8))
	}

	if args.Labels != "" {
		syms, err := prg.OpenLabels(args.Labels)
		checkf(err, "failed to load labels")
		mem.SetSymbols(syms)
	}

	mach := emu.NewMachine(mem, cfg.Machine)
	if args.Cycles > 0 {
		mach.SetCycleLimit(args.Cycles)
	}

	trace := args.Trace
	if trace == nil && cfg.Machine.Trace != "" {
		trace, err = openOutfile(cfg.Machine.Trace)
		checkf(err, "failed to open trace destination")
	}
	if trace != nil {
		defer trace.Close()
		mach.CPU.SetTracer(mos.NewLineTracer(trace))
	}

	if args.RPC {
		addr := cfg.RPC.Addr
		if addr == "" {
			addr = "localhost:0"
		}
		srv, err := rpc.NewServer(addr, mach)
		checkf(err, "failed to start rpc server")
		defer srv.Close()
		fmt.Println("rpc control on", srv.Addr())
	}

	if args.Dbg {
		dbg := debugger.New(mach)
		addr := cfg.Debugger.Addr
		if addr == "" {
			addr = "localhost:0"
		}
		srv, err := debugger.NewServer(addr, dbg)
		checkf(err, "failed to start debugger")
		defer srv.Close()
		fmt.Printf("debugger on ws://%s/ws\n", srv.Addr())

		// Park the CPU on its first instruction, so the first client
		// finds the program still at the reset vector.
		dbg.Pause()
	}

	if err := mach.Run(); err != nil {
		fatalf("%s", err)
	}
}

// feedConsole pumps stdin into the console device's input register.
func feedConsole(c *emu.Console) {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			c.Feed(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func dbgMain(args DbgCmd) {
	runMain(RunCmd{
		ImagePath: args.ImagePath,
		Labels:    args.Labels,
		Trace:     args.Trace,
		Console:   args.Console,
		Hz:        args.Hz,
		Dbg:       true,
	})
}

// disasmMain prints a static listing of the image to stdout.
func disasmMain(args DisasmCmd) {
	img, err := prg.Open(args.ImagePath)
	checkf(err, "failed to open program image")

	mem := emu.NewMemMap()
	mem.MapImage(img)
	if args.Labels != "" {
		syms, err := prg.OpenLabels(args.Labels)
		checkf(err, "failed to load labels")
		mem.SetSymbols(syms)
	}

	end := min(img.End(), 0xFFFF)
	mos.DisasmRange(mem, img.Load, uint16(end), os.Stdout)
}
