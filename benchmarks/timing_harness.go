// Package benchmarks provides clock-estimate benchmark programs for sim86.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/sim86/emu"
	"github.com/sarchlab/sim86/insts"
	"github.com/sarchlab/sim86/timing/cache"
	"github.com/sarchlab/sim86/timing/latency"
)

// BenchmarkResult holds the results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Clocks is the total estimated clock count
	Clocks uint64 `json:"clocks"`

	// Instructions is the number of executed instructions
	Instructions uint64 `json:"instructions"`

	// CPI is clocks per instruction
	CPI float64 `json:"cpi"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// Result is AX when the program ends
	Result uint16 `json:"result"`

	// Error is set if the run ended with a fatal error
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the emulator state (e.g., initialize registers, memory)
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// Program is the 8086 machine code to execute
	Program []byte

	// ExpectedResult is the expected value of AX (for validation)
	ExpectedResult uint16
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// CPU overrides the bus model of Timing when set
	CPU string

	// Timing holds the clock table values; nil uses the defaults
	Timing *latency.TimingConfig

	// EnableDCache enables data cache simulation
	EnableDCache bool

	// MaxInstructions bounds each run (0 = no limit)
	MaxInstructions uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose writes the execution trace of every benchmark to Output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		CPU:             latency.CPU8086,
		EnableDCache:    true,
		MaxInstructions: 1_000_000,
		Output:          os.Stdout,
		Verbose:         false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

func (h *Harness) timingConfig() *latency.TimingConfig {
	config := latency.DefaultTimingConfig()
	if h.config.Timing != nil {
		config = h.config.Timing.Clone()
	}
	if h.config.CPU != "" {
		config.CPU = h.config.CPU
	}
	return config
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	memory := emu.NewMemory()

	trace := io.Discard
	if h.config.Verbose {
		trace = h.config.Output
	}

	opts := []emu.EmulatorOption{
		emu.WithStdout(trace),
		emu.WithStderr(trace),
		emu.WithMemory(memory),
		emu.WithMaxInstructions(h.config.MaxInstructions),
		emu.WithClockTable(latency.NewTableWithConfig(h.timingConfig())),
	}

	var dcache *cache.Cache
	if h.config.EnableDCache {
		dcache = cache.New(cache.DefaultConfig(), cache.NewMemoryBacking(memory))
		opts = append(opts, emu.WithAccessObserver(dcache))
	}

	e := emu.NewEmulator(opts...)
	if bench.Setup != nil {
		bench.Setup(e.RegFile(), memory)
	}
	e.LoadProgram(bench.Program)

	// Run simulation and measure time
	start := time.Now()
	err := e.Run()
	wallTime := time.Since(start)

	result := BenchmarkResult{
		Name:         bench.Name,
		Description:  bench.Description,
		Clocks:       e.TotalClocks(),
		Instructions: e.InstructionCount(),
		Result:       e.RegFile().ReadReg(insts.RegAX),
		WallTime:     wallTime,
	}
	if result.Instructions > 0 {
		result.CPI = float64(result.Clocks) / float64(result.Instructions)
	}
	if err != nil {
		result.Error = err.Error()
	}

	if dcache != nil {
		stats := dcache.Stats()
		result.DCacheHits = stats.Hits
		result.DCacheMisses = stats.Misses
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== sim86 Clock Benchmark Results ===")
	_, _ = fmt.Fprintf(h.config.Output, "CPU: %s\n", h.timingConfig().CPU)
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Result (ax): %d\n", r.Result)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Clocks:       %d\n", r.Clocks)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions: %d\n", r.Instructions)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:          %.3f\n", r.CPI)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "name,clocks,instructions,cpi,dcache_hits,dcache_misses,result")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d\n",
			r.Name,
			r.Clocks,
			r.Instructions,
			r.CPI,
			r.DCacheHits,
			r.DCacheMisses,
			r.Result,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// CPU is the bus model used for the estimates
	CPU string `json:"cpu"`

	// DCacheEnabled reports whether cache statistics were collected
	DCacheEnabled bool `json:"dcache_enabled"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	TotalClocks       uint64        `json:"total_clocks"`
	TotalInstructions uint64        `json:"total_instructions"`
	AverageCPI        float64       `json:"average_cpi"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalClocks, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalClocks += r.Clocks
		totalInstructions += r.Instructions
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalClocks) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			CPU:           h.timingConfig().CPU,
			DCacheEnabled: h.config.EnableDCache,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalClocks:       totalClocks,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// Helper functions for building 8086 programs

// BuildProgram concatenates encoded instructions.
func BuildProgram(parts ...[]byte) []byte {
	var program []byte
	for _, p := range parts {
		program = append(program, p...)
	}
	return program
}

func wBit(reg insts.Reg) byte {
	if reg.Wide() {
		return 1
	}
	return 0
}

func modRM(mod, reg, rm byte) byte {
	return mod<<6 | (reg&0b111)<<3 | rm&0b111
}

// arithEncoding returns the opcode base of the r/m,reg form and the REG
// selector of the immediate form.
func arithEncoding(op insts.Op) (base, selector byte) {
	switch op {
	case insts.OpSUB:
		return 0x28, 0b101
	case insts.OpCMP:
		return 0x38, 0b111
	default:
		return 0x00, 0b000
	}
}

// EncodeMovRegImm encodes mov reg, imm (1011wreg).
func EncodeMovRegImm(reg insts.Reg, imm uint16) []byte {
	op := 0xB0 | wBit(reg)<<3 | byte(reg)&0b111
	if reg.Wide() {
		return []byte{op, byte(imm), byte(imm >> 8)}
	}
	return []byte{op, byte(imm)}
}

// EncodeMovRegReg encodes mov dst, src.
func EncodeMovRegReg(dst, src insts.Reg) []byte {
	return []byte{0x8A | wBit(dst), modRM(0b11, byte(dst), byte(src))}
}

// EncodeLoadDirect encodes mov reg, [addr].
func EncodeLoadDirect(dst insts.Reg, addr uint16) []byte {
	return []byte{0x8A | wBit(dst), modRM(0b00, byte(dst), 0b110), byte(addr), byte(addr >> 8)}
}

// EncodeStoreDirect encodes mov [addr], reg.
func EncodeStoreDirect(addr uint16, src insts.Reg) []byte {
	return []byte{0x88 | wBit(src), modRM(0b00, byte(src), 0b110), byte(addr), byte(addr >> 8)}
}

// EncodeLoadIndexed encodes mov reg, [bx+si+disp].
func EncodeLoadIndexed(dst insts.Reg, disp int8) []byte {
	return []byte{0x8A | wBit(dst), modRM(0b01, byte(dst), 0b000), byte(disp)}
}

// EncodeStoreIndexed encodes mov [bx+si+disp], reg.
func EncodeStoreIndexed(disp int8, src insts.Reg) []byte {
	return []byte{0x88 | wBit(src), modRM(0b01, byte(src), 0b000), byte(disp)}
}

// EncodeArithRegReg encodes add/sub/cmp dst, src.
func EncodeArithRegReg(op insts.Op, dst, src insts.Reg) []byte {
	base, _ := arithEncoding(op)
	return []byte{base | 0b10 | wBit(dst), modRM(0b11, byte(dst), byte(src))}
}

// EncodeArithLoadIndexed encodes add/sub/cmp reg, [bx+si+disp].
func EncodeArithLoadIndexed(op insts.Op, dst insts.Reg, disp int8) []byte {
	base, _ := arithEncoding(op)
	return []byte{base | 0b10 | wBit(dst), modRM(0b01, byte(dst), 0b000), byte(disp)}
}

// EncodeArithRegImm encodes add/sub/cmp reg, imm. Word immediates that fit
// in a signed byte use the sign-extended form.
func EncodeArithRegImm(op insts.Op, reg insts.Reg, imm uint16) []byte {
	_, sel := arithEncoding(op)
	rm := modRM(0b11, sel, byte(reg))

	if !reg.Wide() {
		return []byte{0x80, rm, byte(imm)}
	}
	if v := int16(imm); v >= -128 && v <= 127 {
		return []byte{0x83, rm, byte(imm)}
	}
	return []byte{0x81, rm, byte(imm), byte(imm >> 8)}
}

// EncodeJcc encodes a conditional jump (0111cccc disp8).
func EncodeJcc(op insts.Op, disp int8) []byte {
	return []byte{0x70 + byte(op-insts.OpJO), byte(disp)}
}

// EncodeLoop encodes LOOPNZ, LOOPZ, LOOP or JCXZ (111000cc disp8).
func EncodeLoop(op insts.Op, disp int8) []byte {
	return []byte{0xE0 + byte(op-insts.OpLOOPNZ), byte(disp)}
}
