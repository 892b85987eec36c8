package exprgen

import (
	"context"
	"reflect"
	"testing"

	"bcc/ast"
	"bcc/codegen"
	"bcc/config"
	"bcc/pcode"
	"bcc/vm"
)

// lowerExprs emits body into a fresh script and returns the lowered program
func lowerExprs(t *testing.T, body func(g *Generator, fn *codegen.Func)) *pcode.Program {
	t.Helper()
	g := New()
	l := codegen.New(config.Default(), g, nil)
	fn := l.NewFunc("test", codegen.FuncScript, ast.SpecVoid, nil)
	body(g, fn)
	prog, err := l.LowerFunc(fn, &ast.Block{})
	if err != nil {
		t.Fatalf("LowerFunc() error: %v", err)
	}
	return prog
}

func ops(prog *pcode.Program) []pcode.Opcode {
	out := make([]pcode.Opcode, len(prog.Code))
	for i, in := range prog.Code {
		out[i] = in.Op
	}
	return out
}

func evalStack(t *testing.T, prog *pcode.Program) []int32 {
	t.Helper()
	m := vm.NewVM(prog)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return append([]int32(nil), m.Stack[:m.SP]...)
}

func local(name string, slot int) *ast.Var {
	return &ast.Var{Name: name, Storage: ast.StorageLocal, Index: slot}
}

func ref(v *ast.Var) *ast.VarRef {
	return &ast.VarRef{ExprInfo: ast.ExprInfo{Type: v.Type}, Var: v}
}

func bin(op ast.Operator, a, b ast.Expr) *ast.Binary {
	return &ast.Binary{Op: op, Left: a, Right: b}
}

func TestFoldedExpressionPushesOnce(t *testing.T) {
	e := bin(ast.OpAdd, ast.NewInt(1), ast.NewInt(2))
	e.Folded, e.Value = true, 3
	prog := lowerExprs(t, func(g *Generator, fn *codegen.Func) {
		g.PushExpr(fn, e)
	})
	if got := ops(prog); !reflect.DeepEqual(got, []pcode.Opcode{pcode.OP_PUSH_NUMBER, pcode.OP_TERMINATE}) {
		t.Errorf("folded expression lowered to %v", got)
	}
	if got := evalStack(t, prog); !reflect.DeepEqual(got, []int32{3}) {
		t.Errorf("stack %v, want [3]", got)
	}
}

func TestShortCircuit(t *testing.T) {
	x := local("x", 0)
	tests := []struct {
		name string
		op   ast.Operator
		seed int32
		want int32
	}{
		{"and false", ast.OpLogAnd, 0, 0},
		{"and true", ast.OpLogAnd, 3, 1},
		{"or false", ast.OpLogOr, 0, 0},
		{"or true", ast.OpLogOr, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := lowerExprs(t, func(g *Generator, fn *codegen.Func) {
				fn.BindLocal(x, fn.AllocLocal(1))
				fn.PushNumber(tt.seed)
				fn.AssignVar(x, 0)
				g.PushExpr(fn, bin(tt.op, ref(x), ref(x)))
			})
			if got := evalStack(t, prog); !reflect.DeepEqual(got, []int32{tt.want}) {
				t.Errorf("stack %v, want [%d]", got, tt.want)
			}
		})
	}
}

func TestVisitExprLeavesStackBalanced(t *testing.T) {
	x := local("x", 0)
	exprs := []ast.Expr{
		ast.NewInt(4),
		&ast.StrLit{ExprInfo: ast.ExprInfo{Type: ast.SpecStr}, Text: "s"},
		&ast.Assign{Target: x, Value: ast.NewInt(2)},
		bin(ast.OpMul, ast.NewInt(3), &ast.Assign{Target: x, Value: ast.NewInt(5)}),
		&ast.Call{Func: pcode.EXT_STRLEN, Args: []ast.Expr{&ast.StrLit{ExprInfo: ast.ExprInfo{Type: ast.SpecStr}, Text: "abc"}}},
	}
	prog := lowerExprs(t, func(g *Generator, fn *codegen.Func) {
		fn.BindLocal(x, fn.AllocLocal(1))
		for _, e := range exprs {
			g.VisitExpr(fn, e)
		}
	})
	m := vm.NewVM(prog)
	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.Depth() != 0 {
		t.Errorf("stack depth %d, want 0", m.Depth())
	}
	if m.Locals[0] != 5 {
		t.Errorf("x = %d, want 5", m.Locals[0])
	}
	// The nested assignment keeps its value for the product
	if prog.Count(pcode.OP_DUP) != 1 {
		t.Errorf("DUP count = %d, want 1", prog.Count(pcode.OP_DUP))
	}
}

func TestBoolConditionOfString(t *testing.T) {
	for _, text := range []string{"", "x"} {
		prog := lowerExprs(t, func(g *Generator, fn *codegen.Func) {
			g.PushBoolExpr(fn, &ast.StrLit{ExprInfo: ast.ExprInfo{Type: ast.SpecStr}, Text: text})
		})
		want := int32(len(text))
		if got := evalStack(t, prog); !reflect.DeepEqual(got, []int32{want}) {
			t.Errorf("%q: stack %v, want [%d]", text, got, want)
		}
	}
}

func TestInitialValueNormalizesBool(t *testing.T) {
	x := local("x", 0)
	prog := lowerExprs(t, func(g *Generator, fn *codegen.Func) {
		fn.BindLocal(x, fn.AllocLocal(1))
		fn.PushNumber(7)
		fn.AssignVar(x, 0)
		g.PushInitialValue(fn, ast.SpecBool, ref(x))
		g.PushInitialValue(fn, ast.SpecBool, ast.NewInt(-3))
		g.PushInitialValue(fn, ast.SpecInt, ref(x))
	})
	if got := evalStack(t, prog); !reflect.DeepEqual(got, []int32{1, 1, 7}) {
		t.Errorf("stack %v, want [1 1 7]", got)
	}
}

func TestForeachCollections(t *testing.T) {
	tests := []struct {
		name string
		c    *ast.Collection
		want []int32
	}{
		{"fixed array", &ast.Collection{Kind: ast.CollectionArray}, nil},
		{"fixed array with base", &ast.Collection{Kind: ast.CollectionArray, PushedBase: true, Base: ast.NewInt(2)}, []int32{2}},
		{"reference", &ast.Collection{Kind: ast.CollectionArrayRef, Base: ast.NewInt(1), LengthExpr: ast.NewInt(4)}, []int32{1, 4}},
		{"sub-array reference", &ast.Collection{
			Kind: ast.CollectionArrayRef, Item: ast.ItemSubArray, DimInfo: 6,
			Base: ast.NewInt(0), LengthExpr: ast.NewInt(3),
		}, []int32{0, 3, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := lowerExprs(t, func(g *Generator, fn *codegen.Func) {
				g.PushForeachCollection(fn, tt.c)
			})
			got := evalStack(t, prog)
			if len(got) != len(tt.want) || (len(got) > 0 && !reflect.DeepEqual(got, tt.want)) {
				t.Errorf("stack %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnknownExpressionIsInternalError(t *testing.T) {
	g := New()
	l := codegen.New(config.Default(), g, nil)
	fn := l.NewFunc("test", codegen.FuncScript, ast.SpecVoid, nil)
	defer func() {
		if _, ok := recover().(*codegen.InternalError); !ok {
			t.Error("expected *codegen.InternalError")
		}
	}()
	g.PushExpr(fn, &ast.Unary{Op: ast.OpAdd, Operand: ast.NewInt(1)})
}
