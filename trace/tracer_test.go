package trace

import (
	"bytes"
	"strings"
	"testing"
)

func TestDisabledTracerWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	Init(false, nil, &buf)
	Lower("main", "if", "x")
	Func("main", 1, 2)
	Step("main", 0, "NOP", 0)
	if IsEnabled() {
		t.Error("IsEnabled() = true")
	}
	if buf.Len() != 0 {
		t.Errorf("disabled tracer wrote %q", buf.String())
	}
}

func TestTracerOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(true, nil, &buf)
	defer Init(false, nil, nil)

	Lower("main", "switch", "strategy=%s", "sorted")
	Func("main", 3, 12)
	Step("main", 4, "GOTO", 1)

	want := []string{
		"[TRACE] LOWER main switch strategy=sorted",
		"[TRACE] FUNC main size=3 instrs=12",
		"[TRACE]   STEP main 0004 GOTO sp=1",
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTracerFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(true, []string{"test_*", "main"}, &buf)
	defer Init(false, nil, nil)

	Func("main", 0, 1)
	Func("test_loop", 0, 1)
	Func("helper", 0, 1)

	out := buf.String()
	if !strings.Contains(out, "FUNC main") || !strings.Contains(out, "FUNC test_loop") {
		t.Errorf("filtered functions missing from %q", out)
	}
	if strings.Contains(out, "helper") {
		t.Errorf("unmatched function traced: %q", out)
	}
}
