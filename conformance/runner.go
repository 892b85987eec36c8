package conformance

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"bcc/ast"
	"bcc/codegen"
	"bcc/config"
	"bcc/exprgen"
	"bcc/fixture"
	"bcc/pcode"
	"bcc/vm"
)

// TestResult represents the outcome of running a single test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// Runner executes conformance tests
type Runner struct {
	opts config.Options
}

// NewRunner creates a runner using the default options
func NewRunner() *Runner {
	return NewRunnerWithOptions(config.Default())
}

// NewRunnerWithOptions creates a runner whose tests start from opts
func NewRunnerWithOptions(opts config.Options) *Runner {
	return &Runner{opts: opts}
}

// Compiled is a lowered test program
type Compiled struct {
	Program *fixture.Program
	Func    *codegen.Func
	Code    *pcode.Program
}

// Compile decodes and lowers the program of a test
func (r *Runner) Compile(test LoadedTest) (*Compiled, error) {
	opts := test.Suite.Options.Apply(r.opts)
	opts = test.Test.Options.Apply(opts)

	src := &fixture.Source{
		Name:   test.Test.Name,
		File:   test.File,
		Kind:   test.Test.Kind,
		Return: test.Test.Return,
		Params: test.Test.Params,
		Body:   test.Test.Body,
	}
	prog, err := fixture.Decode(src)
	if err != nil {
		return nil, err
	}

	lowerer := codegen.New(opts, exprgen.New(), nil)
	fn := lowerer.NewFunc(prog.Name, prog.Kind, prog.Return, prog.Params)
	code, err := lowerer.LowerFunc(fn, prog.Body)
	if err != nil {
		return nil, err
	}
	return &Compiled{Program: prog, Func: fn, Code: code}, nil
}

// Run executes a single test case
func (r *Runner) Run(test LoadedTest) TestResult {
	if skipped, reason := test.Test.IsSkipped(); skipped {
		return TestResult{
			Test:       test,
			Skipped:    true,
			SkipReason: reason,
		}
	}

	err := r.run(test)
	return TestResult{
		Test:   test,
		Passed: err == nil,
		Error:  err,
	}
}

func (r *Runner) run(test LoadedTest) error {
	expect := &test.Test.Expect

	c, err := r.Compile(test)
	if err != nil {
		return expectError(expect, err)
	}
	if err := checkProgram(expect, c); err != nil {
		return err
	}
	if expect.compileOnly() && expect.Error == "" {
		return nil
	}

	machine, err := r.newMachine(test, c)
	if err != nil {
		return err
	}
	if err := runMachine(machine, test.Test.Runs); err != nil {
		return expectError(expect, err)
	}
	if expect.Error != "" {
		return fmt.Errorf("expected error containing %q, but the program ran", expect.Error)
	}
	return checkMachine(expect, c, machine)
}

// RunAll executes all loaded tests
func (r *Runner) RunAll(tests []LoadedTest) []TestResult {
	results := make([]TestResult, len(tests))
	for i, test := range tests {
		results[i] = r.Run(test)
	}
	return results
}

// SummaryStats computes statistics from test results
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// ComputeStats generates statistics from test results
func ComputeStats(results []TestResult) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		if r.Skipped {
			stats.Skipped++
		} else if r.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// FormatStats returns a human-readable summary
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}

func expectError(expect *Expectation, err error) error {
	if expect.Error == "" {
		return fmt.Errorf("unexpected error: %w", err)
	}
	if !strings.Contains(err.Error(), expect.Error) {
		return fmt.Errorf("expected error containing %q, got %v", expect.Error, err)
	}
	return nil
}

// newMachine prepares a VM with the test's arrays, arguments and
// variables
func (r *Runner) newMachine(test LoadedTest, c *Compiled) (*vm.VM, error) {
	opts := test.Test.Options.Apply(test.Suite.Options.Apply(r.opts))
	machine := vm.NewVM(c.Code)
	machine.TickLimit = opts.TickLimit

	for _, arr := range c.Program.Arrays {
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

	setup := test.Test.Setup
	if setup == nil {
		return machine, nil
	}
	if len(setup.Args) > len(c.Program.Params) {
		return nil, fmt.Errorf("%d arguments for %d parameters", len(setup.Args), len(c.Program.Params))
	}
	for i, arg := range setup.Args {
		slot, _ := c.Func.LocalSlot(c.Program.Params[i])
		machine.Locals[slot] = arg
	}
	for idx, v := range setup.MapVars {
		machine.MapVars[idx] = v
	}
	for idx, v := range setup.WorldVars {
		machine.WorldVars[idx] = v
	}
	for idx, v := range setup.GlobalVars {
		machine.GlobalVars[idx] = v
	}
	return machine, nil
}

// runMachine runs once, then resumes a suspended or restarted script up
// to runs times in total
func runMachine(machine *vm.VM, runs int) error {
	if runs < 1 {
		runs = 1
	}
	for i := 0; i < runs; i++ {
		if err := machine.Run(context.Background()); err != nil {
			return err
		}
		if machine.State != vm.StateSuspended && machine.State != vm.StateRestarted {
			break
		}
	}
	return nil
}

// checkProgram verifies the expectations on the lowered code
func checkProgram(expect *Expectation, c *Compiled) error {
	if expect.FrameSize != nil && c.Code.NumLocals != *expect.FrameSize {
		return fmt.Errorf("frame size: expected %d, got %d", *expect.FrameSize, c.Code.NumLocals)
	}
	if expect.Length != nil && len(c.Code.Code) != *expect.Length {
		return fmt.Errorf("length: expected %d instructions, got %d", *expect.Length, len(c.Code.Code))
	}
	for _, name := range expect.Contains {
		op, err := parseOpcode(name)
		if err != nil {
			return err
		}
		if c.Code.Count(op) == 0 {
			return fmt.Errorf("expected %s in the program", op)
		}
	}
	for _, name := range expect.Excludes {
		op, err := parseOpcode(name)
		if err != nil {
			return err
		}
		if n := c.Code.Count(op); n > 0 {
			return fmt.Errorf("expected no %s in the program, found %d", op, n)
		}
	}
	for name, want := range expect.Counts {
		op, err := parseOpcode(name)
		if err != nil {
			return err
		}
		if got := c.Code.Count(op); got != want {
			return fmt.Errorf("count of %s: expected %d, got %d", op, want, got)
		}
	}
	return nil
}

func parseOpcode(name string) (pcode.Opcode, error) {
	op, ok := pcode.ParseOpcode(name)
	if !ok {
		return 0, fmt.Errorf("unknown opcode %q", name)
	}
	return op, nil
}

// checkMachine verifies the expectations on a finished run
func checkMachine(expect *Expectation, c *Compiled, machine *vm.VM) error {
	if expect.State != "" {
		want, ok := vm.ParseState(expect.State)
		if !ok {
			return fmt.Errorf("unknown state %q", expect.State)
		}
		if machine.State != want {
			return fmt.Errorf("state: expected %s, got %s", want, machine.State)
		}
	}
	if expect.Stack != nil && machine.Depth() != *expect.Stack {
		return fmt.Errorf("stack depth: expected %d, got %d", *expect.Stack, machine.Depth())
	}
	if expect.Return != nil {
		if !machine.HasReturn {
			return fmt.Errorf("expected return value %d, got none", *expect.Return)
		}
		if machine.ReturnValue != *expect.Return {
			return fmt.Errorf("return value: expected %d, got %d", *expect.Return, machine.ReturnValue)
		}
	}

	for name, want := range expect.Vars {
		got, err := varValue(c, machine, name)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("%s: expected %d, got %d", name, want, got)
		}
	}
	for name, want := range expect.Writes {
		slot, err := localSlot(c, name)
		if err != nil {
			return err
		}
		got := machine.Writes(slot)
		if len(got) == 0 && len(want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, want) {
			return fmt.Errorf("writes to %s: expected %v, got %v", name, want, got)
		}
	}

	if expect.Output != nil {
		got := machine.Messages
		if len(got) == 0 && len(expect.Output) == 0 {
			got = nil
		}
		want := expect.Output
		if len(want) == 0 {
			want = nil
		}
		if !reflect.DeepEqual(got, want) {
			return fmt.Errorf("output: expected %q, got %q", want, got)
		}
	}

	if expect.Translations != nil {
		if len(machine.Translations) != len(expect.Translations) {
			return fmt.Errorf("expected %d translations, got %d", len(expect.Translations), len(machine.Translations))
		}
		for i, want := range expect.Translations {
			if err := checkTranslation(want, machine.Translations[i]); err != nil {
				return fmt.Errorf("translation %d: %w", i, err)
			}
		}
	}
	return nil
}

func checkTranslation(want TranslationSpec, got vm.Translation) error {
	if got.Number != want.Number {
		return fmt.Errorf("number: expected %d, got %d", want.Number, got.Number)
	}
	if len(got.Ranges) != len(want.Ranges) {
		return fmt.Errorf("expected %d ranges, got %d", len(want.Ranges), len(got.Ranges))
	}
	for i, r := range got.Ranges {
		values := append([]int32{r.Begin, r.End}, r.Values...)
		if !reflect.DeepEqual(values, want.Ranges[i]) {
			return fmt.Errorf("range %d: expected %v, got %v", i, want.Ranges[i], values)
		}
	}
	return nil
}

func lookupVar(c *Compiled, name string) (*ast.Var, error) {
	v, ok := c.Program.Vars[name]
	if !ok {
		return nil, fmt.Errorf("no variable named %q", name)
	}
	return v, nil
}

func localSlot(c *Compiled, name string) (int, error) {
	v, err := lookupVar(c, name)
	if err != nil {
		return 0, err
	}
	if v.Storage != ast.StorageLocal {
		return 0, fmt.Errorf("%s is a %s variable, not a local", name, v.Storage)
	}
	slot, ok := c.Func.LocalSlot(v)
	if !ok {
		return 0, fmt.Errorf("%s was never given a slot", name)
	}
	return slot, nil
}

func varValue(c *Compiled, machine *vm.VM, name string) (int32, error) {
	v, err := lookupVar(c, name)
	if err != nil {
		return 0, err
	}
	switch v.Storage {
	case ast.StorageMap:
		return machine.MapVars[v.Index], nil
	case ast.StorageWorld:
		return machine.WorldVars[v.Index], nil
	case ast.StorageGlobal:
		return machine.GlobalVars[v.Index], nil
	}
	slot, err := localSlot(c, name)
	if err != nil {
		return 0, err
	}
	return machine.Locals[slot], nil
}
