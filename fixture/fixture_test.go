package fixture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"bcc/ast"
	"bcc/codegen"
)

func decodeSource(t *testing.T, src string) (*Program, error) {
	t.Helper()
	var s Source
	if err := yaml.Unmarshal([]byte(src), &s); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	if s.Name == "" {
		s.Name = "test"
	}
	return Decode(&s)
}

func mustDecode(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := decodeSource(t, src)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	return prog
}

func TestDecodeKindAndParams(t *testing.T) {
	prog := mustDecode(t, `
kind: nested
return: int
params: [a, b]
body: []
`)
	if prog.Kind != codegen.FuncNested || prog.Return != ast.SpecInt {
		t.Errorf("kind %d return %s", prog.Kind, prog.Return)
	}
	if len(prog.Params) != 2 || prog.Params[1].Name != "b" {
		t.Errorf("params = %v", prog.Params)
	}
	if len(prog.Body.Stmts) != 0 {
		t.Errorf("body has %d statements", len(prog.Body.Stmts))
	}
}

func TestBreakAndContinueLinkToTheirLoop(t *testing.T) {
	prog := mustDecode(t, `
body:
  - var: s
  - while:
      cond: true
      body:
        - break
        - switch:
            cond: {ref: s}
            body: [{case: 1}, break, continue]
        - continue
        - break
`)
	loop := prog.Body.Stmts[1].(*ast.WhileStmt)
	sw := loop.Body.(*ast.Block).Stmts[1].(*ast.SwitchStmt)

	count := func(head *ast.JumpStmt) int {
		n := 0
		for j := head; j != nil; j = j.Next {
			n++
		}
		return n
	}
	if got := count(loop.Break); got != 2 {
		t.Errorf("loop breaks = %d, want 2", got)
	}
	// The continue inside the switch belongs to the loop
	if got := count(loop.Continue); got != 2 {
		t.Errorf("loop continues = %d, want 2", got)
	}
	if got := count(sw.Break); got != 1 {
		t.Errorf("switch breaks = %d, want 1", got)
	}
}

func TestCaseLabelsBindToInnermostSwitch(t *testing.T) {
	prog := mustDecode(t, `
body:
  - var: s
  - switch:
      cond: {ref: s}
      body:
        - case: 1
        - switch:
            cond: {ref: s}
            body: [{case: 1}, default]
        - case: {"+": [1, 1]}
`)
	outer := prog.Body.Stmts[1].(*ast.SwitchStmt)
	inner := outer.Body.(*ast.Block).Stmts[1].(*ast.SwitchStmt)
	if len(outer.Cases) != 2 || outer.Default != nil {
		t.Errorf("outer: %d cases, default %v", len(outer.Cases), outer.Default)
	}
	if len(inner.Cases) != 1 || inner.Default == nil {
		t.Errorf("inner: %d cases, default %v", len(inner.Cases), inner.Default)
	}
	if v, ok := ast.Constant(outer.Cases[1].Value); !ok || v != 2 {
		t.Errorf("folded case value = %d, %v", v, ok)
	}
}

func TestGotoResolvesForwardLabels(t *testing.T) {
	prog := mustDecode(t, `
body:
  - goto: later
  - label: later
`)
	g := prog.Body.Stmts[0].(*ast.GotoStmt)
	l := prog.Body.Stmts[1].(*ast.LabelStmt)
	if g.Label != l {
		t.Error("goto does not point at its label")
	}
}

func TestScopesShadowAndEnd(t *testing.T) {
	prog := mustDecode(t, `
body:
  - var: x
  - block:
      - var: x
      - expr: {"=": [x, 1]}
  - expr: {"=": [x, 2]}
`)
	outer := prog.Body.Stmts[0].(*ast.VarDecl).Var
	block := prog.Body.Stmts[1].(*ast.Block)
	inner := block.Stmts[0].(*ast.VarDecl).Var
	innerAssign := block.Stmts[1].(*ast.ExprStmt).Exprs[0].(*ast.Assign)
	outerAssign := prog.Body.Stmts[2].(*ast.ExprStmt).Exprs[0].(*ast.Assign)

	if innerAssign.Target != inner {
		t.Error("inner assignment does not use the shadowing variable")
	}
	if outerAssign.Target != outer {
		t.Error("outer assignment does not use the outer variable")
	}
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		src  string
		want int32
		typ  ast.Spec
	}{
		{`{"+": [2, {"*": [3, 4]}]}`, 14, ast.SpecInt},
		{`{"-": 5}`, -5, ast.SpecInt},
		{`{"<": [1, 2]}`, 1, ast.SpecBool},
		{`{"!": 0}`, 1, ast.SpecBool},
		{`{"<<": [1, 33]}`, 2, ast.SpecInt},
		{`{"&&": [1, 0]}`, 0, ast.SpecBool},
		{`true`, 1, ast.SpecBool},
	}
	for _, tt := range tests {
		prog := mustDecode(t, "body:\n  - var: {name: x, init: "+tt.src+"}\n")
		init := prog.Vars["x"].Initial
		v, ok := ast.Constant(init)
		if !ok || v != tt.want {
			t.Errorf("%s folded to %d, %v; want %d", tt.src, v, ok, tt.want)
		}
		if init.Info().Type != tt.typ {
			t.Errorf("%s has type %s, want %s", tt.src, init.Info().Type, tt.typ)
		}
	}
}

func TestDivisionByZeroIsNotFolded(t *testing.T) {
	prog := mustDecode(t, `body: [{var: {name: x, init: {"/": [1, 0]}}}]`)
	if _, ok := ast.Constant(prog.Vars["x"].Initial); ok {
		t.Error("1 / 0 was folded")
	}
}

func TestArrayDeclarations(t *testing.T) {
	prog := mustDecode(t, `
body:
  - array: {name: a, values: [1, 2, 3]}
  - array: {name: p, item: ref_pair, storage: world, index: 2, values: [1, 2, 3, 4]}
  - array: {name: s, item: struct, struct_size: 3, values: [0, 0, 0, 0, 0, 0]}
`)
	if len(prog.Arrays) != 3 {
		t.Fatalf("%d arrays, want 3", len(prog.Arrays))
	}
	tests := []struct {
		arr         *Array
		length      int
		elementSize int
		storage     ast.Storage
	}{
		{prog.Arrays[0], 3, 1, ast.StorageMap},
		{prog.Arrays[1], 2, 2, ast.StorageWorld},
		{prog.Arrays[2], 2, 3, ast.StorageMap},
	}
	for _, tt := range tests {
		if tt.arr.Length != tt.length || tt.arr.ElementSize != tt.elementSize || tt.arr.Storage != tt.storage {
			t.Errorf("array %s: length %d, element size %d, storage %d", tt.arr.Name, tt.arr.Length, tt.arr.ElementSize, tt.arr.Storage)
		}
	}
	// Array declarations produce no statements
	if len(prog.Body.Stmts) != 0 {
		t.Errorf("body has %d statements, want 0", len(prog.Body.Stmts))
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown kind", "kind: macro\nbody: []", "unknown kind"},
		{"unknown return type", "return: float\nbody: []", "unknown return type"},
		{"missing body", "name: x", "missing body"},
		{"body not a list", "body: {var: x}", "expected a list of statements"},
		{"unknown statement", "body: [fly]", "unknown statement"},
		{"unknown field", "body: [{var: {name: x, colour: red}}]", "unknown field"},
		{"two keys", "body: [{var: x, expr: 1}]", "single-key mapping"},
		{"break outside loop", "body: [break]", "break outside a loop or switch"},
		{"continue in switch only", "body: [{var: s}, {switch: {cond: {ref: s}, body: [continue]}}]", "continue outside a loop"},
		{"case outside switch", "body: [{case: 1}]", "case label outside a switch"},
		{"duplicate case", "body: [{var: s}, {switch: {cond: {ref: s}, body: [{case: 1}, {case: 1}]}}]", "duplicate case value"},
		{"non-constant case", "body: [{var: s}, {switch: {cond: {ref: s}, body: [{case: {ref: s}}]}}]", "case value must be constant"},
		{"unknown label", "body: [{goto: away}]", "goto to unknown label"},
		{"duplicate label", "body: [{label: a}, {label: a}]", "duplicate label"},
		{"undeclared", `body: [{expr: {ref: y}}]`, "undeclared variable"},
		{"out of scope", `body: [{block: [{var: y}]}, {expr: {ref: y}}]`, "undeclared variable"},
		{"unknown array", "body: [{foreach: {value: v, in: {array: nope}, body: []}}]", "unknown array"},
		{"duplicate array", "body: [{array: {name: a}}, {array: {name: a}}]", "duplicate array"},
		{"unknown function", `body: [{expr: {call: {func: sqrt, args: [4]}}}]`, "unknown function"},
		{"binary needs two operands", `body: [{expr: {"*": 3}}]`, "needs two operands"},
		{"bad for init", "body: [{for: {init: [break], body: []}}]", "break outside a loop or switch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeSource(t, tt.src)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Decode() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progs.yaml")
	src := `
- name: first
  body: [{var: x}]
- name: second
  kind: function
  body: [return]
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	progs, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile() error: %v", err)
	}
	if len(progs) != 2 || progs[0].Name != "first" || progs[1].Kind != codegen.FuncFunction {
		t.Errorf("DecodeFile() = %+v", progs)
	}
}

func TestAssertPositions(t *testing.T) {
	prog := mustDecode(t, `
file: checks.bcs
body:
  - assert: {cond: false, message: m}
`)
	a := prog.Body.Stmts[0].(*ast.AssertStmt)
	if a.File != "checks.bcs" || a.Pos.Line != 4 || a.Pos.Column != 5 {
		t.Errorf("assert at %s:%d:%d", a.File, a.Pos.Line, a.Pos.Column)
	}
}
