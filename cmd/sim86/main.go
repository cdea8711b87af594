// Package main provides the entry point for sim86.
// sim86 disassembles and simulates 16-bit 8086 programs.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/sim86/benchmarks"
	"github.com/sarchlab/sim86/emu"
	"github.com/sarchlab/sim86/insts"
	"github.com/sarchlab/sim86/loader"
	"github.com/sarchlab/sim86/timing/cache"
	"github.com/sarchlab/sim86/timing/latency"
	"github.com/sarchlab/sim86/xcheck"
)

// options holds the root command flags.
type options struct {
	exec            bool
	clocks          bool
	cpu             string
	timingConfig    string
	cache           bool
	dump            string
	memoryImage     string
	maxInstructions uint64
	verbose         bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "sim86 [flags] <program.bin>",
		Short: "8086 disassembler and simulator",
		Long: "sim86 decodes a flat 16-bit 8086 binary. By default it prints a NASM\n" +
			"listing; with --exec it simulates the program and traces every instruction.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loader.Load(args[0])
			if err != nil {
				return err
			}

			if !opts.exec && !opts.clocks {
				return disassemble(cmd.OutOrStdout(), prog)
			}
			return runEmulation(cmd.OutOrStdout(), cmd.ErrOrStderr(), prog, opts)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.BoolVar(&opts.exec, "exec", false, "Simulate the program and print an execution trace")
	flags.BoolVar(&opts.clocks, "clocks", false, "Estimate 8086 clocks per instruction (implies --exec)")
	flags.StringVar(&opts.cpu, "cpu", "", "Bus model for clock estimation: 8086 or 8088")
	flags.StringVar(&opts.timingConfig, "timing-config", "", "Path to timing configuration JSON file")
	flags.BoolVar(&opts.cache, "cache", false, "Model data accesses through a small cache and report statistics")
	flags.StringVar(&opts.dump, "dump", "", "Write the final 64 KiB memory image to this file")
	flags.StringVar(&opts.memoryImage, "memory-image", "", "Preload memory from this file, starting at address 0")
	flags.Uint64Var(&opts.maxInstructions, "max-instructions", 0, "Stop after this many instructions (0 = no limit)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newBenchCmd())
	rootCmd.AddCommand(newProfileCmd())

	return rootCmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <program.bin>",
		Short: "Cross-check the decoder against golang.org/x/arch/x86/x86asm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loader.Load(args[0])
			if err != nil {
				return err
			}

			report, err := xcheck.Compare(prog.Code)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range report.Mismatches {
				fmt.Fprintln(out, m)
			}
			fmt.Fprintf(out, "Compared: %d, skipped: %d, mismatches: %d\n",
				report.Compared, report.Skipped, len(report.Mismatches))

			if !report.OK() {
				return fmt.Errorf("%d decoder mismatches", len(report.Mismatches))
			}
			return nil
		},
	}
}

func newBenchCmd() *cobra.Command {
	var (
		format  string
		cpu     string
		core    bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in clock estimate microbenchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := benchmarks.DefaultConfig()
			config.Output = cmd.OutOrStdout()
			config.EnableDCache = !noCache
			if cpu != "" {
				probe := latency.DefaultTimingConfig()
				probe.CPU = cpu
				if err := probe.Validate(); err != nil {
					return err
				}
				config.CPU = cpu
			}

			harness := benchmarks.NewHarness(config)
			if core {
				harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
			} else {
				harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
			}
			results := harness.RunAll()

			switch format {
			case "text":
				harness.PrintResults(results)
			case "csv":
				harness.PrintCSV(results)
			case "json":
				return harness.PrintJSON(results)
			default:
				return fmt.Errorf("unknown format %q (want text, csv or json)", format)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", "text", "Output format: text, csv or json")
	flags.StringVar(&cpu, "cpu", "", "Bus model: 8086 or 8088")
	flags.BoolVar(&core, "core", false, "Run only the core benchmarks")
	flags.BoolVar(&noCache, "no-cache", false, "Disable data cache statistics")

	return cmd
}

// disassemble prints the NASM listing of the program.
func disassemble(out io.Writer, prog *loader.Program) error {
	listing, err := insts.NewDecoder().Disassemble(prog.Code)
	fmt.Fprint(out, listing)
	return err
}

// runEmulation simulates the program and prints the trace and summary.
func runEmulation(out, errOut io.Writer, prog *loader.Program, opts *options) error {
	memory := emu.NewMemory()
	if opts.memoryImage != "" {
		image, err := loader.Load(opts.memoryImage)
		if err != nil {
			return err
		}
		memory.Load(0, image.Code)
	}

	emuOpts := []emu.EmulatorOption{
		emu.WithStdout(out),
		emu.WithStderr(errOut),
		emu.WithMemory(memory),
		emu.WithMaxInstructions(opts.maxInstructions),
	}

	if opts.verbose {
		logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
		emuOpts = append(emuOpts, emu.WithLogger(logger))
		logger.Debug("loaded program", "name", prog.Name, "bytes", len(prog.Code))
	}

	if opts.clocks {
		table, err := clockTable(opts)
		if err != nil {
			return err
		}
		emuOpts = append(emuOpts, emu.WithClockTable(table))
	}

	var dataCache *cache.Cache
	if opts.cache {
		dataCache = cache.New(cache.DefaultConfig(), cache.NewMemoryBacking(memory))
		emuOpts = append(emuOpts, emu.WithAccessObserver(dataCache))
	}

	emulator := emu.NewEmulator(emuOpts...)
	emulator.LoadProgram(prog.Code)

	fmt.Fprintf(out, "--- %s execution ---\n", prog.Name)
	if err := emulator.Run(); err != nil {
		return err
	}

	if opts.clocks {
		fmt.Fprintf(out, "   clocks: %d\n", emulator.TotalClocks())
	}

	if dataCache != nil {
		dataCache.Flush()
		stats := dataCache.Stats()
		fmt.Fprintf(out, "\nData cache:\n")
		fmt.Fprintf(out, "  Reads:  %d\n", stats.Reads)
		fmt.Fprintf(out, "  Writes: %d\n", stats.Writes)
		fmt.Fprintf(out, "  Hits:   %d (%.1f%%)\n", stats.Hits, 100.0*stats.HitRate())
		fmt.Fprintf(out, "  Misses: %d\n", stats.Misses)
		fmt.Fprintf(out, "  Cycles: %d\n", stats.Cycles)
	}

	if opts.verbose {
		fmt.Fprintf(errOut, "Instructions executed: %d\n", emulator.InstructionCount())
	}

	if opts.dump != "" {
		if err := dumpMemory(opts.dump, memory); err != nil {
			return err
		}
	}

	return nil
}

// clockTable builds the latency table from the default or a file config,
// applying the --cpu override.
func clockTable(opts *options) (*latency.Table, error) {
	config := latency.DefaultTimingConfig()
	if opts.timingConfig != "" {
		var err error
		config, err = latency.LoadConfig(opts.timingConfig)
		if err != nil {
			return nil, err
		}
	}

	if opts.cpu != "" {
		config.CPU = opts.cpu
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	return latency.NewTableWithConfig(config), nil
}

func dumpMemory(path string, memory *emu.Memory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	if err := memory.Dump(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
