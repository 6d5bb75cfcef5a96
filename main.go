package main

import "os"

// Overridden at build time with -ldflags="-X main.version=...".
var version = "devel"

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case disasmMode:
		disasmMain(cli.Disasm)
	case dbgMode:
		dbgMain(cli.Dbg)
	default:
		runMain(cli.Run)
	}
}
