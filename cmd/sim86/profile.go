package main

import (
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/sim86/emu"
	"github.com/sarchlab/sim86/loader"
	"github.com/sarchlab/sim86/timing/latency"
)

// profileOptions holds the profile subcommand flags.
type profileOptions struct {
	cpuProfile      string
	memProfile      string
	repeat          int
	clocks          bool
	maxInstructions uint64
}

func newProfileCmd() *cobra.Command {
	opts := &profileOptions{}

	cmd := &cobra.Command{
		Use:   "profile <program.bin>",
		Short: "Run a program repeatedly without tracing and report throughput",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loader.Load(args[0])
			if err != nil {
				return err
			}
			return runProfile(cmd.OutOrStdout(), prog, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	flags.StringVar(&opts.memProfile, "memprofile", "", "Write memory profile to file")
	flags.IntVar(&opts.repeat, "repeat", 1000, "Number of runs")
	flags.BoolVar(&opts.clocks, "clocks", false, "Include clock estimation in the measured work")
	flags.Uint64Var(&opts.maxInstructions, "max-instructions", 1_000_000, "Instruction limit per run (0 = no limit)")

	return cmd
}

func runProfile(out io.Writer, prog *loader.Program, opts *profileOptions) error {
	if opts.cpuProfile != "" {
		f, err := os.Create(opts.cpuProfile)
		if err != nil {
			return fmt.Errorf("error creating CPU profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("error starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	var table *latency.Table
	if opts.clocks {
		table = latency.NewTable()
	}

	var instrCount uint64
	start := time.Now()

	for i := 0; i < opts.repeat; i++ {
		emuOpts := []emu.EmulatorOption{
			emu.WithStdout(io.Discard),
			emu.WithStderr(io.Discard),
			emu.WithMaxInstructions(opts.maxInstructions),
		}
		if table != nil {
			emuOpts = append(emuOpts, emu.WithClockTable(table))
		}

		emulator := emu.NewEmulator(emuOpts...)
		emulator.LoadProgram(prog.Code)
		if err := emulator.Run(); err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		instrCount += emulator.InstructionCount()
	}

	elapsed := time.Since(start)

	if opts.memProfile != "" {
		f, err := os.Create(opts.memProfile)
		if err != nil {
			return fmt.Errorf("error creating memory profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("error writing memory profile: %w", err)
		}
	}

	fmt.Fprintf(out, "Profiling Results:\n")
	fmt.Fprintf(out, "Runs: %d\n", opts.repeat)
	fmt.Fprintf(out, "Instructions executed: %d\n", instrCount)
	fmt.Fprintf(out, "Elapsed time: %v\n", elapsed)
	if instrCount > 0 && elapsed > 0 {
		fmt.Fprintf(out, "Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
	return nil
}
