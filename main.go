// Package main provides the entry point for sim86.
// sim86 is an 8086 instruction decoder and simulator.
//
// For the full CLI, use: go run ./cmd/sim86
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("sim86 - 8086 Decoder and Simulator")
	fmt.Println("")
	fmt.Println("Usage: sim86 [options] <program.bin>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  --exec     Simulate the program and print an execution trace")
	fmt.Println("  --clocks   Estimate 8086 clocks per instruction")
	fmt.Println("  --cache    Report data cache statistics")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/sim86' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/sim86' instead.")
	}
}
