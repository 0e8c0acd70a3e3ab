// Package main provides a profiling wrapper for rvsim to find hot spots in
// the emulator and the timing model.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/core"
)

var (
	timing      = flag.Bool("timing", false, "Run with the timing model and default L1 caches")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to execute (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)

	emulator, err := newEmulator(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var timingCore *core.Core
	if *timing {
		timingCore, err = core.NewCore(emulator,
			core.WithICache(cache.DefaultL1IConfig()),
			core.WithDCache(cache.DefaultL1DConfig()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	start := time.Now()

	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	result := emulator.Run()
	elapsed := time.Since(start)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	instrCount := emulator.InstructionCount()

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Halted: %s\n", result.Reason)
	fmt.Printf("Exit code: %d\n", result.ExitCode)
	fmt.Printf("Instructions executed: %d\n", instrCount)
	if timingCore != nil {
		fmt.Printf("Simulated cycles: %d (CPI %.2f)\n", timingCore.Stats().Cycles, timingCore.Stats().CPI())
	}
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
}

// newEmulator places prog in a default machine with the system call proxy
// bound to the host's standard streams.
func newEmulator(prog *loader.Program) (*emu.Emulator, error) {
	cfg := config.Default()
	cfg.XLEN = int(prog.XLEN.Bits())
	cfg.MaxInstructions = *instruction

	image, err := prog.Image(cfg.MemoryBase, cfg.MemorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to place program: %w", err)
	}

	handler := emu.NewSyscallHandler(emu.NewFDTable(os.Stdin, os.Stdout, os.Stderr))
	opts := append(cfg.EmulatorOptions(), emu.WithSystemHandler(handler))

	emulator, err := emu.NewEmulator(opts...)
	if err != nil {
		return nil, err
	}
	if err := emulator.LoadProgram(prog.EntryPoint, image); err != nil {
		return nil, err
	}
	return emulator, nil
}
