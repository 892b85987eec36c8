package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"bcc/ast"
	"bcc/codegen"
	"bcc/config"
	"bcc/conformance"
	"bcc/exprgen"
	"bcc/fixture"
	"bcc/pcode"
	"bcc/trace"
	"bcc/vm"
)

func main() {
	configPath := flag.String("config", "", "Options file (YAML)")
	lang := flag.String("lang", "", "Source dialect: bcs, acs or acs95")
	asserts := flag.String("asserts", "", "Write assertions: true or false")

	// Trace flags
	traceEnabled := flag.Bool("trace", false, "Enable lowering and execution tracing")
	traceFilter := flag.String("trace-filter", "", "Trace filter pattern (glob, e.g., 'main' or 'test_*')")

	// Output flags
	dump := flag.Bool("dump", false, "Disassemble each lowered function")
	run := flag.Bool("run", false, "Run each lowered script and print its messages")
	digest := flag.Bool("digest", false, "Print the digest of each lowered function")
	suite := flag.Bool("suite", false, "Treat arguments as conformance suites and report results")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: bcc [flags] file.yaml...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	opts := config.Default()
	if *configPath != "" {
		var err error
		opts, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *lang != "" {
		l, err := config.ParseLang(*lang)
		if err != nil {
			log.Fatalf("Bad -lang: %v", err)
		}
		opts.Lang = l
	}
	if *asserts != "" {
		on, err := strconv.ParseBool(*asserts)
		if err != nil {
			log.Fatalf("Bad -asserts: %v", err)
		}
		opts.WriteAsserts = on
	}

	// Initialize tracer
	if *traceEnabled {
		var filters []string
		if *traceFilter != "" {
			filters = strings.Split(*traceFilter, ",")
			for i := range filters {
				filters[i] = strings.TrimSpace(filters[i])
			}
		}
		trace.Init(true, filters, os.Stderr)
		log.Printf("Tracing enabled (filters: %v)", filters)
	} else {
		trace.Init(false, nil, nil)
	}

	if *suite {
		os.Exit(runSuites(opts, flag.Args()))
	}

	failed := false
	for _, path := range flag.Args() {
		progs, err := fixture.DecodeFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
			continue
		}
		for _, prog := range progs {
			if err := compile(opts, prog, *dump, *run, *digest); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", prog.Name, err)
				failed = true
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

// compile lowers one fixture program and reports on it
func compile(opts config.Options, prog *fixture.Program, dump, run, digest bool) error {
	lowerer := codegen.New(opts, exprgen.New(), nil)
	fn := lowerer.NewFunc(prog.Name, prog.Kind, prog.Return, prog.Params)
	code, err := lowerer.LowerFunc(fn, prog.Body)
	if err != nil {
		return err
	}

	if dump {
		if err := code.Disassemble(os.Stdout); err != nil {
			return err
		}
	} else {
		fmt.Printf("=== %s (locals=%d, instrs=%d) ===\n", prog.Name, code.NumLocals, len(code.Code))
	}
	if digest {
		fmt.Printf("digest: %s\n", code.Digest())
	}
	if run {
		return execute(opts, prog, code)
	}
	return nil
}

// execute runs a lowered script with its arrays loaded and prints what it
// produced
func execute(opts config.Options, prog *fixture.Program, code *pcode.Program) error {
	machine := vm.NewVM(code)
	machine.TickLimit = opts.TickLimit
	for _, arr := range prog.Arrays {
		values := append([]int32(nil), arr.Values...)
		switch arr.Storage {
		case ast.StorageLocal:
			machine.ScriptArrays[arr.Index] = values
		case ast.StorageMap:
			machine.MapArrays[arr.Index] = values
		case ast.StorageWorld:
			machine.WorldArrays[arr.Index] = values
		case ast.StorageGlobal:
			machine.GlobalArrays[arr.Index] = values
		}
	}

	if err := machine.Run(context.Background()); err != nil {
		return err
	}
	for _, msg := range machine.Messages {
		fmt.Printf("> %s\n", msg)
	}
	for _, t := range machine.Translations {
		fmt.Printf("translation %d: %d ranges\n", t.Number, len(t.Ranges))
	}
	fmt.Printf("state: %s", machine.State)
	if machine.HasReturn {
		fmt.Printf(" (returned %d)", machine.ReturnValue)
	}
	fmt.Println()
	return nil
}

// runSuites runs conformance suite files and returns the exit status
func runSuites(opts config.Options, paths []string) int {
	var tests []conformance.LoadedTest
	for _, path := range paths {
		loaded, err := conformance.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		tests = append(tests, loaded...)
	}

	runner := conformance.NewRunnerWithOptions(opts)
	results := runner.RunAll(tests)
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Printf("SKIP %s/%s: %s\n", r.Test.File, r.Test.Test.Name, r.SkipReason)
		case !r.Passed:
			fmt.Printf("FAIL %s/%s: %v\n", r.Test.File, r.Test.Test.Name, r.Error)
		}
	}

	stats := conformance.ComputeStats(results)
	fmt.Println(conformance.FormatStats(stats))
	if stats.Failed > 0 {
		return 1
	}
	return 0
}
