// Package main provides the entry point for segsim.
// segsim simulates a four-descriptor segmented address translation and
// protection unit, built on Akita.
//
// For the full CLI, use: go run ./cmd/segsim
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/segsim/harness"
)

func main() {
	fmt.Println("segsim - Segmented Address Translation Unit Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: segsim [options] [suite.yaml ...]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -builtin   Run the builtin suites")
	fmt.Println("  -script    Path to a Lua stimulus script")
	fmt.Println("  -elf       Path to an ELF image")
	fmt.Println("  -config    Path to unit configuration file")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Builtin suites:")
	for _, s := range harness.BuiltinSuites() {
		fmt.Printf("  %-24s %s\n", s.Name, s.Description)
	}
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/segsim' for the full CLI, 'go run ./cmd/segmon' for the monitor.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/segsim' instead.")
	}
}
