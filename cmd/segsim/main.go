// Package main provides the segsim command line tool.
// segsim replays stimulus suites, Lua stimulus scripts and ELF boot images
// against the segment translation unit and reports every mismatch.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/sarchlab/segsim/harness"
	"github.com/sarchlab/segsim/logging"
	"github.com/sarchlab/segsim/mapview"
	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
	"github.com/sarchlab/segsim/stimulus"
)

var (
	configPath = flag.String("config", "", "Path to unit configuration JSON or YAML file")
	builtin    = flag.Bool("builtin", false, "Run the builtin suites")
	scriptPath = flag.String("script", "", "Path to a Lua stimulus script")
	elfPath    = flag.String("elf", "", "Path to an ELF image whose segments are installed and checked")
	physBase   = flag.Uint64("phys-base", uint64(segment.DefaultPhysicalBase), "Physical base for ELF segments")
	reportPath = flag.String("report", "", "Write a JSON report to this path")
	jsonOut    = flag.Bool("json", false, "Print the report as JSON instead of text")
	mapDir     = flag.String("map-dir", "", "Write a PNG map of each suite's final table into this directory")
	parallel   = flag.Int("j", 4, "Number of suites run concurrently")
	trace      = flag.Bool("trace", false, "Record every step's outputs in the report")
	logPath    = flag.String("log", "", "Log file (default stderr)")
	logLevel   = flag.Int("log-level", 0, "Log verbosity: 1 faults and resets, 2 register traffic")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	suites, err := collectSuites()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(suites) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: segsim [options] [suite.yaml ...]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	unitConfig := mmu.DefaultConfig()
	if *configPath != "" {
		unitConfig, err = mmu.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading unit config: %v\n", err)
			os.Exit(1)
		}
	}

	log, closer, err := logging.Open(*logPath, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	config := harness.DefaultConfig()
	config.Unit = unitConfig
	config.Parallelism = *parallel
	config.Trace = *trace
	config.Verbose = *verbose
	config.Logger = log

	h := harness.NewHarness(config)
	h.AddSuites(suites)

	results, err := h.RunAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		if err := h.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		h.PrintResults(results)
	}

	if *verbose && !*jsonOut {
		for _, r := range results {
			fmt.Printf("\nFinal table of %s:\n", r.Name)
			printTable(r.Final)
		}
	}

	if *reportPath != "" {
		if err := h.WriteReport(*reportPath, results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *mapDir != "" {
		if err := writeMaps(*mapDir, results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	for _, r := range results {
		if !r.Passed {
			os.Exit(1)
		}
	}
}

// collectSuites gathers suites from every source named on the command line.
func collectSuites() ([]*stimulus.Suite, error) {
	var suites []*stimulus.Suite

	if *builtin {
		suites = append(suites, harness.BuiltinSuites()...)
	}

	if *scriptPath != "" {
		s, err := stimulus.RunScriptFile(*scriptPath)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}

	if *elfPath != "" {
		if *physBase > 0xFFFFFFFF {
			return nil, fmt.Errorf("phys-base 0x%X exceeds 32 bits", *physBase)
		}
		s, err := stimulus.FromELF(*elfPath, uint32(*physBase))
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}

	for _, path := range flag.Args() {
		s, err := stimulus.Load(path)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}

	return suites, nil
}

// printTable dumps a table, one descriptor per line when the terminal is
// wide enough and as a bare word grid otherwise.
func printTable(t segment.Table) {
	if width, ok := terminalWidth(); ok && width < 100 {
		words := t.Words()
		for i := 0; i < len(words); i += segment.NumFields {
			fmt.Printf("%d:", i/segment.NumFields)
			for _, w := range words[i : i+segment.NumFields] {
				fmt.Printf(" %08X", w)
			}
			fmt.Println()
		}
		return
	}
	fmt.Print(t.String())
}

func terminalWidth() (int, bool) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0, false
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0, false
	}
	return width, true
}

func writeMaps(dir string, results []harness.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create map directory: %w", err)
	}

	for _, r := range results {
		name := strings.Map(func(r rune) rune {
			if r == '/' || r == '\\' || r == ' ' {
				return '_'
			}
			return r
		}, r.Name)

		path := filepath.Join(dir, name+".png")
		if err := mapview.SavePNG(path, r.Final, mapview.DefaultOptions()); err != nil {
			return err
		}
		if *verbose {
			fmt.Printf("Map: %s\n", path)
		}
	}
	return nil
}
