package conformance

import (
	"testing"
)

func TestConformance(t *testing.T) {
	tests, err := LoadAllTests()
	if err != nil {
		t.Fatalf("Failed to load tests: %v", err)
	}
	if len(tests) == 0 {
		t.Fatal("No tests loaded")
	}

	runner := NewRunner()
	results := runner.RunAll(tests)
	stats := ComputeStats(results)

	// Group results by file for organized output
	fileGroups := make(map[string][]TestResult)
	var files []string
	for _, result := range results {
		if _, ok := fileGroups[result.Test.File]; !ok {
			files = append(files, result.Test.File)
		}
		fileGroups[result.Test.File] = append(fileGroups[result.Test.File], result)
	}

	for _, file := range files {
		fileResults := fileGroups[file]
		t.Run(file, func(t *testing.T) {
			for _, result := range fileResults {
				result := result
				t.Run(result.Test.Test.Name, func(t *testing.T) {
					if result.Skipped {
						t.Skipf("Skipped: %s", result.SkipReason)
					} else if !result.Passed {
						t.Errorf("Test failed: %v", result.Error)
					}
				})
			}
		})
	}

	t.Logf("\n=== Summary ===\n%s", FormatStats(stats))
}

func TestYAMLParsing(t *testing.T) {
	tests, err := LoadAllTests()
	if err != nil {
		t.Fatalf("YAML parsing failed: %v", err)
	}

	names := make(map[string]string)
	for i, test := range tests {
		if test.Test.Name == "" {
			t.Errorf("Test %d in %s has no name", i, test.File)
			continue
		}
		if prev, ok := names[test.Test.Name]; ok {
			t.Errorf("Test name %q used in %s and %s", test.Test.Name, prev, test.File)
		}
		names[test.Test.Name] = test.File

		if test.Test.Body.Kind == 0 {
			t.Errorf("Test %s in %s has no body", test.Test.Name, test.File)
		}
		if isEmpty(&test.Test.Expect) {
			t.Errorf("Test %s in %s has no expectation", test.Test.Name, test.File)
		}
	}
	t.Logf("All %d tests parsed successfully", len(tests))
}

func isEmpty(e *Expectation) bool {
	return e.compileOnly() && e.Error == "" && e.FrameSize == nil &&
		e.Contains == nil && e.Excludes == nil && e.Counts == nil && e.Length == nil
}

// Lowering the same program twice must give the same code
func TestDeterministicLowering(t *testing.T) {
	tests, err := LoadAllTests()
	if err != nil {
		t.Fatalf("Failed to load tests: %v", err)
	}

	runner := NewRunner()
	for _, test := range tests {
		if skipped, _ := test.Test.IsSkipped(); skipped || test.Test.Expect.Error != "" {
			continue
		}
		first, err := runner.Compile(test)
		if err != nil {
			t.Errorf("%s: %v", test.Test.Name, err)
			continue
		}
		second, err := runner.Compile(test)
		if err != nil {
			t.Errorf("%s: %v", test.Test.Name, err)
			continue
		}
		if first.Code.Digest() != second.Code.Digest() {
			t.Errorf("%s: digests differ between two lowerings", test.Test.Name)
		}
	}
}

func TestOverridesApply(t *testing.T) {
	asserts := false
	prefix := "check failed"
	shared := 7
	o := &Overrides{WriteAsserts: &asserts, AssertPrefix: &prefix, SharedArray: &shared}

	runner := NewRunner()
	opts := o.Apply(runner.opts)
	if opts.WriteAsserts || opts.AssertPrefix != prefix || opts.SharedArrayIndex != 7 {
		t.Errorf("overrides not applied: %+v", opts)
	}
	if opts.Lang != runner.opts.Lang || opts.TickLimit != runner.opts.TickLimit {
		t.Errorf("unset overrides changed options: %+v", opts)
	}

	var none *Overrides
	if none.Apply(runner.opts) != runner.opts {
		t.Error("nil overrides changed options")
	}
}

func BenchmarkConformance(b *testing.B) {
	tests, err := LoadAllTests()
	if err != nil {
		b.Fatal(err)
	}
	runner := NewRunner()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runner.RunAll(tests)
	}
}
