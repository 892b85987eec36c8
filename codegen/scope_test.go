package codegen

import (
	"errors"
	"testing"

	"bcc/ast"
	"bcc/config"
	"bcc/pcode"
)

func newTestFunc(params ...*ast.Var) *Func {
	l := New(config.Default(), nil, nil)
	return l.NewFunc("test", FuncScript, ast.SpecVoid, params)
}

func TestAllocLocalSequential(t *testing.T) {
	fn := newTestFunc()
	if got := fn.AllocLocal(1); got != 0 {
		t.Errorf("first slot = %d, want 0", got)
	}
	if got := fn.AllocLocal(3); got != 1 {
		t.Errorf("second slot = %d, want 1", got)
	}
	if got := fn.AllocLocal(0); got != 4 {
		t.Errorf("zero-size allocation = %d, want 4", got)
	}
	if fn.Size() != 5 {
		t.Errorf("Size() = %d, want 5", fn.Size())
	}
}

func TestSiblingScopesReuseSlots(t *testing.T) {
	fn := newTestFunc()
	fn.pushScope()
	a := fn.AllocLocal(2)
	fn.popScope()
	fn.pushScope()
	b := fn.AllocLocal(1)
	fn.popScope()

	if a != b {
		t.Errorf("sibling slots = %d, %d, want equal", a, b)
	}
	if fn.Size() != 2 {
		t.Errorf("Size() = %d, want 2", fn.Size())
	}
}

func TestNestedScopesContinueFromParent(t *testing.T) {
	fn := newTestFunc()
	fn.pushScope()
	outer := fn.AllocLocal(1)
	fn.pushScope()
	inner := fn.AllocLocal(1)
	if fn.ScopeDepth() != 2 {
		t.Errorf("ScopeDepth() = %d, want 2", fn.ScopeDepth())
	}
	fn.popScope()
	after := fn.AllocLocal(1)
	fn.popScope()

	if outer != 0 || inner != 1 {
		t.Errorf("slots = %d, %d, want 0, 1", outer, inner)
	}
	// The inner frame is closed so its slot is free again
	if after != 1 {
		t.Errorf("slot after inner scope = %d, want 1", after)
	}
	if fn.ScopeDepth() != 0 {
		t.Errorf("ScopeDepth() = %d, want 0", fn.ScopeDepth())
	}
}

func TestHighWaterMarkSurvivesPop(t *testing.T) {
	fn := newTestFunc()
	fn.pushScope()
	fn.pushScope()
	fn.AllocLocal(4)
	fn.popScope()
	fn.AllocLocal(1)
	fn.popScope()
	if fn.Size() != 4 {
		t.Errorf("Size() = %d, want 4", fn.Size())
	}
}

func TestParametersTakeFirstSlots(t *testing.T) {
	p := &ast.Var{Name: "p", Storage: ast.StorageLocal}
	q := &ast.Var{Name: "q", Storage: ast.StorageLocal, Size: 2}
	fn := newTestFunc(p, q)

	if fn.Slot(p) != 0 || fn.Slot(q) != 1 {
		t.Errorf("parameter slots = %d, %d, want 0, 1", fn.Slot(p), fn.Slot(q))
	}
	if fn.StartIndex != 3 {
		t.Errorf("StartIndex = %d, want 3", fn.StartIndex)
	}
	fn.pushScope()
	if got := fn.AllocLocal(1); got != 3 {
		t.Errorf("first local = %d, want 3", got)
	}
	fn.popScope()
	if fn.Size() != 4 {
		t.Errorf("Size() = %d, want 4", fn.Size())
	}
}

func TestNonLocalSlotIsDeclaredIndex(t *testing.T) {
	fn := newTestFunc()
	v := &ast.Var{Name: "g", Storage: ast.StorageMap, Index: 9}
	if fn.Slot(v) != 9 {
		t.Errorf("Slot() = %d, want 9", fn.Slot(v))
	}
	if _, ok := fn.LocalSlot(v); ok {
		t.Error("map variable has a frame slot")
	}
}

func TestScopeUnderflowIsInternalError(t *testing.T) {
	fn := newTestFunc()
	defer func() {
		r := recover()
		if _, ok := r.(*InternalError); !ok {
			t.Fatalf("recovered %v, want *InternalError", r)
		}
	}()
	fn.popScope()
}

func TestLowerFuncReturnsInternalErrors(t *testing.T) {
	tests := []struct {
		name string
		body *ast.Block
	}{
		{"unresolved goto", &ast.Block{Stmts: []ast.Stmt{&ast.GotoStmt{}}}},
		{"unknown instruction", &ast.Block{Stmts: []ast.Stmt{&ast.InlineAsmStmt{Opcode: "fly"}}}},
		{"case label outside switch", &ast.Block{Stmts: []ast.Stmt{&ast.CaseLabel{IsDefault: true}}}},
		{"break never closed", &ast.Block{Stmts: []ast.Stmt{&ast.JumpStmt{Kind: ast.JumpBreak}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(config.Default(), nil, nil)
			fn := l.NewFunc("test", FuncScript, ast.SpecVoid, nil)
			_, err := l.LowerFunc(fn, tt.body)
			if err == nil {
				t.Fatal("LowerFunc() succeeded")
			}
			var cerr *InternalError
			var perr *pcode.InternalError
			if !errors.As(err, &cerr) && !errors.As(err, &perr) {
				t.Errorf("LowerFunc() error = %T %v, want an internal error", err, err)
			}
		})
	}
}

func TestSelectSwitchStrategy(t *testing.T) {
	num := &ast.SwitchStmt{Cond: ast.Cond{Expr: ast.NewInt(1)}}
	str := &ast.SwitchStmt{Cond: ast.Cond{Expr: &ast.StrLit{ExprInfo: ast.ExprInfo{Type: ast.SpecStr}, Text: "a"}}}

	tests := []struct {
		lang config.Lang
		n    *ast.SwitchStmt
		want SwitchStrategy
	}{
		{config.LangACS95, num, SwitchCaseGoto},
		{config.LangACS, num, SwitchSorted},
		{config.LangBCS, num, SwitchSorted},
		{config.LangBCS, str, SwitchString},
		{config.LangACS, str, SwitchSorted},
	}
	for _, tt := range tests {
		if got := SelectSwitchStrategy(tt.lang, tt.n); got != tt.want {
			t.Errorf("SelectSwitchStrategy(%s) = %s, want %s", tt.lang, got, tt.want)
		}
	}
}
