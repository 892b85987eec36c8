// Package exprgen is the expression code generator used with the statement
// lowering engine. It covers the expression forms statement lowering needs:
// literals, variables, operators, assignment and extension calls.
package exprgen

import (
	"fmt"

	"bcc/ast"
	"bcc/codegen"
	"bcc/pcode"
)

// Generator implements codegen.ExprLowerer
type Generator struct{}

// New creates an expression generator
func New() *Generator {
	return &Generator{}
}

var binaryOps = map[ast.Operator]pcode.Opcode{
	ast.OpAdd:    pcode.OP_ADD,
	ast.OpSub:    pcode.OP_SUBTRACT,
	ast.OpMul:    pcode.OP_MULTIPLY,
	ast.OpDiv:    pcode.OP_DIVIDE,
	ast.OpMod:    pcode.OP_MODULUS,
	ast.OpEq:     pcode.OP_EQ,
	ast.OpNe:     pcode.OP_NE,
	ast.OpLt:     pcode.OP_LT,
	ast.OpLe:     pcode.OP_LE,
	ast.OpGt:     pcode.OP_GT,
	ast.OpGe:     pcode.OP_GE,
	ast.OpBitAnd: pcode.OP_AND_BITWISE,
	ast.OpBitOr:  pcode.OP_OR_BITWISE,
	ast.OpBitXor: pcode.OP_EOR_BITWISE,
	ast.OpShl:    pcode.OP_LSHIFT,
	ast.OpShr:    pcode.OP_RSHIFT,
}

var unaryOps = map[ast.Operator]pcode.Opcode{
	ast.OpNeg:    pcode.OP_UNARY_MINUS,
	ast.OpNot:    pcode.OP_NEGATE_LOGICAL,
	ast.OpBitNot: pcode.OP_NEGATE_BINARY,
}

func fail(pos ast.Position, format string, args ...interface{}) {
	panic(&codegen.InternalError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// PushExpr leaves the value of e on the stack
func (g *Generator) PushExpr(fn *codegen.Func, e ast.Expr) {
	if e == nil {
		fail(ast.Position{}, "missing expression")
	}

	// Strings are pushed through the string table even when folded
	if s, ok := e.(*ast.StrLit); ok {
		fn.PushString(s.Text)
		return
	}
	if value, ok := ast.Constant(e); ok {
		fn.PushNumber(value)
		return
	}

	switch n := e.(type) {
	case *ast.IntLit:
		fn.PushNumber(n.Value)
	case *ast.VarRef:
		fn.PushVar(n.Var, 0)
	case *ast.Unary:
		g.PushExpr(fn, n.Operand)
		op, ok := unaryOps[n.Op]
		if !ok {
			fail(n.Pos, "operator %s is not unary", n.Op)
		}
		fn.Emit(op)
	case *ast.Binary:
		g.pushBinary(fn, n)
	case *ast.Assign:
		g.PushExpr(fn, n.Value)
		fn.Emit(pcode.OP_DUP)
		fn.AssignVar(n.Target, 0)
	case *ast.Call:
		for _, arg := range n.Args {
			g.PushExpr(fn, arg)
		}
		fn.Emit(pcode.OP_CALL_FUNC, int32(len(n.Args)), n.Func)
	default:
		fail(e.Position(), "unknown expression type %T", e)
	}
}

func (g *Generator) pushBinary(fn *codegen.Func, n *ast.Binary) {
	switch n.Op {
	case ast.OpLogAnd:
		g.pushShortCircuit(fn, n, pcode.OP_IF_NOT_GOTO, 0)
		return
	case ast.OpLogOr:
		g.pushShortCircuit(fn, n, pcode.OP_IF_GOTO, 1)
		return
	}
	op, ok := binaryOps[n.Op]
	if !ok {
		fail(n.Pos, "operator %s is not binary", n.Op)
	}
	g.PushExpr(fn, n.Left)
	g.PushExpr(fn, n.Right)
	fn.Emit(op)
}

// pushShortCircuit evaluates the right operand only when the left one does
// not already decide the result. decided is the result when either operand
// takes the branch.
func (g *Generator) pushShortCircuit(fn *codegen.Func, n *ast.Binary, branch pcode.Opcode, decided int32) {
	s := fn.Stream()

	g.PushExpr(fn, n.Left)
	leftJump := s.EmitJump(branch)
	g.PushExpr(fn, n.Right)
	rightJump := s.EmitJump(branch)
	fn.PushNumber(1 - decided)
	endJump := s.EmitJump(pcode.OP_GOTO)

	decidedPoint := s.CreatePoint()
	s.AppendPoint(decidedPoint)
	s.Patch(leftJump, decidedPoint)
	s.Patch(rightJump, decidedPoint)
	fn.PushNumber(decided)

	end := s.CreatePoint()
	s.AppendPoint(end)
	s.Patch(endJump, end)
}

// PushBoolExpr leaves a value whose truth a conditional branch can test.
// A string is true when it is not empty.
func (g *Generator) PushBoolExpr(fn *codegen.Func, e ast.Expr) {
	g.PushExpr(fn, e)
	if e.Info().Type == ast.SpecStr {
		fn.Emit(pcode.OP_CALL_FUNC, 1, pcode.EXT_STRLEN)
	}
}

// PushInitialValue pushes e converted to t
func (g *Generator) PushInitialValue(fn *codegen.Func, t ast.Spec, e ast.Expr) {
	if t == ast.SpecBool && e.Info().Type != ast.SpecBool {
		if value, ok := ast.Constant(e); ok {
			if value != 0 {
				value = 1
			}
			fn.PushNumber(value)
			return
		}
		g.PushBoolExpr(fn, e)
		fn.Emit(pcode.OP_NEGATE_LOGICAL)
		fn.Emit(pcode.OP_NEGATE_LOGICAL)
		return
	}
	g.PushExpr(fn, e)
}

// VisitExpr evaluates e for its side effects only
func (g *Generator) VisitExpr(fn *codegen.Func, e ast.Expr) {
	if _, ok := ast.Constant(e); ok {
		return
	}
	switch n := e.(type) {
	case *ast.StrLit, *ast.VarRef:
	case *ast.Assign:
		g.PushExpr(fn, n.Value)
		fn.AssignVar(n.Target, 0)
	default:
		g.PushExpr(fn, e)
		fn.Emit(pcode.OP_DROP)
	}
}

// PushForeachCollection pushes what each foreach strategy expects to find
// on the stack
func (g *Generator) PushForeachCollection(fn *codegen.Func, c *ast.Collection) {
	switch c.Kind {
	case ast.CollectionArray:
		if c.PushedBase {
			if c.Base == nil {
				fail(ast.Position{}, "array collection without a base offset")
			}
			g.PushExpr(fn, c.Base)
		}
	case ast.CollectionArrayRef:
		if c.Base == nil || c.LengthExpr == nil {
			fail(ast.Position{}, "array reference without base and length")
		}
		g.PushExpr(fn, c.Base)
		g.PushExpr(fn, c.LengthExpr)
		if c.Item == ast.ItemSubArray {
			fn.PushNumber(int32(c.DimInfo))
		}
	case ast.CollectionStr:
		g.PushExpr(fn, c.Expr)
	default:
		fail(ast.Position{}, "unknown collection kind %d", c.Kind)
	}
}

var _ codegen.ExprLowerer = (*Generator)(nil)
