package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"phi2/emu/log"
)

type mode byte

const (
	runMode    mode = iota // Run a program image
	disasmMode             // Print a listing of an image
	dbgMode                // Run with the debugger attached
)

type (
	CLI struct {
		Run    RunCmd    `cmd:"" help:"Run a program image. (default command)" default:"1"`
		Disasm DisasmCmd `cmd:"" help:"Print a listing of a program image."`
		Dbg    DbgCmd    `cmd:"" help:"Run a program image with the debugger attached."`

		Log      logModMask       `help:"${log_help}" placeholder:"mod0,mod1,..."`
		LogLevel loglevel         `help:"Cap logging at the given severity." placeholder:"LEVEL"`
		Version  kong.VersionFlag `help:"Show version and exit."`

		mode mode
	}

	RunCmd struct {
		ImagePath string `arg:"" name:"/path/to/image.prg" help:"${image_help}" required:"true" type:"existingfile"`

		Labels  string   `name:"labels" help:"Load VICE labels from this file." type:"existingfile"`
		Trace   *outfile `name:"trace" help:"Write CPU execution trace." placeholder:"FILE|stdout|stderr"`
		Console bool     `name:"console" help:"${console_help}"`
		Hz      int64    `name:"hz" help:"Clock rate, in cycles per second." placeholder:"N"`
		Cycles  int64    `name:"cycles" help:"Stop after N cycles." placeholder:"N"`
		RPC     bool     `name:"rpc" help:"Serve machine control over RPC."`
		Dbg     bool     `name:"dbg" help:"${dbg_help}"`
	}

	DisasmCmd struct {
		ImagePath string `arg:"" name:"/path/to/image.prg" required:"true" type:"existingfile"`

		Labels string `name:"labels" help:"Load VICE labels from this file." type:"existingfile"`
	}

	DbgCmd struct {
		ImagePath string `arg:"" name:"/path/to/image.prg" required:"true" type:"existingfile"`

		Labels  string   `name:"labels" help:"Load VICE labels from this file." type:"existingfile"`
		Trace   *outfile `name:"trace" help:"Write CPU execution trace." placeholder:"FILE|stdout|stderr"`
		Console bool     `name:"console" help:"${console_help}"`
		Hz      int64    `name:"hz" help:"Clock rate, in cycles per second." placeholder:"N"`
	}
)

var vars = kong.Vars{
	"image_help":   "Program image to run: 2-byte load address followed by the payload.",
	"console_help": "Map the character console device at page $F0.",
	"dbg_help":     "Serve the WebSocket debugger and start paused.",
	"log_help":     "Enable debug logging for the specified modules.",
	"version":      "phi2 " + version,
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("phi2"),
		kong.Description("A 6502 machine emulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch ctx.Command() {
	case "disasm </path/to/image.prg>":
		cfg.mode = disasmMode
	case "dbg </path/to/image.prg>":
		cfg.mode = dbgMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	cmd := ctx.Command()
	if strings.HasPrefix(cmd, "run") || strings.HasPrefix(cmd, "dbg") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

// enableLogModules enables debug logging for a comma-separated list of
// module names, "all" meaning every module. Serves the configuration
// file counterpart of the --log flag.
func enableLogModules(names string) error {
	var mask log.ModuleMask
	for _, v := range strings.Split(names, ",") {
		if v == "all" {
			mask = log.ModuleMaskAll
			continue
		}
		mod, ok := log.ModuleByName(v)
		if !ok {
			return fmt.Errorf("unknown log module %s", v)
		}
		mask |= mod.Mask()
	}
	log.EnableDebugModules(mask)
	return nil
}

type loglevel log.Level

// Decode decodes a severity name into the global logging level cap.
//
// Implements kong.MapperValue interface.
func (ll *loglevel) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	name := tok.Value.(string)
	lvl, ok := log.LevelByName(name)
	if !ok {
		return fmt.Errorf("unknown log level %s (valid: %s)",
			name, strings.Join(log.LevelNames(), ", "))
	}
	*ll = loglevel(lvl)
	log.SetMaxLevel(lvl)
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// openOutfile resolves stdout, stderr and - to the process streams,
// anything else to a created file.
func openOutfile(name string) (*outfile, error) {
	f := &outfile{name: name, close: func() error { return nil }}
	switch name {
	case "stdout":
		f.w = os.Stdout
	case "stderr", "-":
		f.w = os.Stderr
	default:
		fd, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		f.w = fd
		f.close = fd.Close
	}
	return f, nil
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	of, err := openOutfile(tok.Value.(string))
	if err != nil {
		return err
	}
	*f = *of
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
