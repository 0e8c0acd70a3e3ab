// Package main provides the rvsim command, a RISC-V RV32I/RV64I emulator.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/latency"
)

// Process exit statuses.
const (
	exitOK        = 0
	exitFault     = 1
	exitStepLimit = 2
)

var errUsage = errors.New("usage")

type options struct {
	configPath  string
	latencyPath string
	xlen        int
	bin         bool
	max         uint64
	trace       bool
	timing      bool
	uart        bool
	haltOnECall bool
	syscalls    bool
	hostFiles   bool
	verbose     bool

	set map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{set: map[string]bool{}}

	fs := flag.NewFlagSet("rvsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to a machine configuration (YAML or JSON)")
	fs.StringVar(&opts.latencyPath, "latency", "", "Path to a timing latency JSON file")
	fs.IntVar(&opts.xlen, "xlen", 0, "Machine width, 32 or 64 (default: from the ELF class)")
	fs.BoolVar(&opts.bin, "bin", false, "Treat the program as a flat binary loaded at the memory base")
	fs.Uint64Var(&opts.max, "max", 0, "Stop after this many instructions (0: no limit)")
	fs.BoolVar(&opts.trace, "trace", false, "Log every executed instruction")
	fs.BoolVar(&opts.timing, "timing", false, "Enable the timing model and print a cycle report")
	fs.BoolVar(&opts.uart, "uart", false, "Attach a UART at the configured base")
	fs.BoolVar(&opts.haltOnECall, "halt-on-ecall", false, "Halt at the first ECALL with a0 as the exit code")
	fs.BoolVar(&opts.syscalls, "syscalls", false, "Proxy ECALL to the host using the Linux RISC-V ABI")
	fs.BoolVar(&opts.hostFiles, "host-files", false, "Allow guest openat on host files (with -syscalls)")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: rvsim [options] <program>\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return nil, nil, errUsage
	}

	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	return opts, fs.Args(), nil
}

func newLogger(opts *options, stderr io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(stderr)
	switch {
	case opts.trace:
		logger.SetLevel(logrus.DebugLevel)
	case opts.verbose:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

// machineConfig merges the configuration file with the flags that were
// given explicitly.
func machineConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.latencyPath != "" {
		timingConfig, err := latency.LoadConfig(opts.latencyPath)
		if err != nil {
			return nil, err
		}
		cfg.Timing.Latency = timingConfig
	}

	if opts.set["xlen"] {
		cfg.XLEN = opts.xlen
	}
	if opts.set["max"] {
		cfg.MaxInstructions = opts.max
	}
	if opts.set["timing"] {
		cfg.Timing.Enabled = opts.timing
	}
	if opts.set["uart"] {
		cfg.UART.Enabled = opts.uart
	}
	if opts.set["halt-on-ecall"] {
		cfg.HaltOnECall = opts.haltOnECall
	}
	if opts.set["syscalls"] {
		cfg.Syscalls = opts.syscalls
	}
	if opts.set["host-files"] {
		cfg.HostFiles = opts.hostFiles
	}

	return cfg, nil
}

func loadProgram(path string, opts *options, cfg *config.Config) (*loader.Program, error) {
	if opts.bin {
		xlen, err := insts.ParseXLEN(cfg.XLEN)
		if err != nil {
			return nil, err
		}
		return loader.LoadFlat(path, cfg.MemoryBase, xlen)
	}

	prog, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	elfBits := int(prog.XLEN.Bits())
	if opts.set["xlen"] && opts.xlen != elfBits {
		return nil, fmt.Errorf("-xlen %d does not match the %d-bit ELF", opts.xlen, elfBits)
	}
	cfg.XLEN = elfBits

	return prog, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		return exitFault
	}
	programPath := rest[0]

	logger := newLogger(opts, stderr)

	cfg, err := machineConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return exitFault
	}

	prog, err := loadProgram(programPath, opts, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return exitFault
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error in config: %v\n", err)
		return exitFault
	}

	image, err := prog.Image(cfg.MemoryBase, cfg.MemorySize)
	if err != nil {
		fmt.Fprintf(stderr, "Error placing program: %v\n", err)
		return exitFault
	}

	if !prog.Contains(prog.EntryPoint) {
		logger.WithField("entry", fmt.Sprintf("0x%X", prog.EntryPoint)).
			Warn("entry point is not inside a loaded segment")
	}

	logger.WithFields(logrus.Fields{
		"program":  programPath,
		"xlen":     cfg.XLEN,
		"entry":    fmt.Sprintf("0x%X", prog.EntryPoint),
		"segments": len(prog.Segments),
	}).Info("loaded")

	emuOpts := append(cfg.EmulatorOptions(),
		emu.WithStdout(stdout),
		emu.WithLogger(logger),
	)

	if cfg.Syscalls {
		fds := emu.NewFDTable(stdin, stdout, stderr)
		defer func() {
			if err := fds.CloseAll(); err != nil {
				logger.WithError(err).Warn("failed to close guest files")
			}
		}()

		handler := emu.NewSyscallHandler(fds)
		handler.AllowHostFiles(cfg.HostFiles)
		emuOpts = append(emuOpts, emu.WithSystemHandler(handler))
	}

	emulator, err := emu.NewEmulator(emuOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating emulator: %v\n", err)
		return exitFault
	}
	if err := emulator.LoadProgram(prog.EntryPoint, image); err != nil {
		fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return exitFault
	}

	var timingCore *core.Core
	if cfg.Timing.Enabled {
		timingCore, err = core.NewCore(emulator, timingOptions(cfg)...)
		if err != nil {
			fmt.Fprintf(stderr, "Error creating timing model: %v\n", err)
			return exitFault
		}
	}

	result := emulator.Run()

	if opts.verbose {
		fmt.Fprintf(stdout, "\nProgram: %s\n", programPath)
		fmt.Fprintf(stdout, "Halted: %s\n", result.Reason)
		fmt.Fprintf(stdout, "Exit code: %d\n", result.ExitCode)
		fmt.Fprintf(stdout, "Instructions executed: %d\n", emulator.InstructionCount())
	}
	if timingCore != nil {
		printTimingReport(stdout, timingCore.Stats())
	}

	switch result.Reason {
	case emu.HaltFault:
		fmt.Fprintf(stderr, "Fault: %v\n", result.Err)
		dumpRegisters(stderr, emulator.Snapshot())
		return exitFault
	case emu.HaltStepLimit:
		fmt.Fprintf(stderr, "Stopped after %d instructions\n", emulator.InstructionCount())
		return exitStepLimit
	}

	if opts.verbose {
		dumpRegisters(stdout, emulator.Snapshot())
	}

	return exitOK
}

func timingOptions(cfg *config.Config) []core.Option {
	var opts []core.Option
	if cfg.Timing.Latency != nil {
		opts = append(opts, core.WithLatencyTable(latency.NewTableWithConfig(cfg.Timing.Latency)))
	}
	if cfg.Timing.L1I != nil {
		opts = append(opts, core.WithICache(*cfg.Timing.L1I))
	}
	if cfg.Timing.L1D != nil {
		opts = append(opts, core.WithDCache(*cfg.Timing.L1D))
	}
	return opts
}

func printTimingReport(w io.Writer, stats core.Stats) {
	totalCycles := stats.Cycles
	if totalCycles == 0 {
		totalCycles = 1
	}
	execCycles := stats.Cycles - stats.Stalls

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Breakdown:\n")
	fmt.Fprintf(w, "  Execute:       %6d cycles (%5.1f%%)\n",
		execCycles, 100.0*float64(execCycles)/float64(totalCycles))
	fmt.Fprintf(w, "  Memory stalls: %6d cycles (%5.1f%%)\n",
		stats.Stalls, 100.0*float64(stats.Stalls)/float64(totalCycles))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Events:\n")
	fmt.Fprintf(w, "  Redirects:     %d\n", stats.Flushes)
	fmt.Fprintf(w, "  L1I hits/miss: %d/%d\n", stats.ICacheHits, stats.ICacheMisses)
	fmt.Fprintf(w, "  L1D hits/miss: %d/%d\n", stats.DCacheHits, stats.DCacheMisses)
}
