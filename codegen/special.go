package codegen

import (
	"math"

	"bcc/ast"
	"bcc/pcode"
)

// HUD message properties of a failed assertion: log it, no id, red text,
// centered, shown for 1.5 seconds without fading
var assertHUD = []int32{math.MinInt32, 0, 6, 98304, 16384, 0}

// lowerAssert writes a runtime assertion. A failure prints
// "file:line:column: prefix: message" and terminates the script.
func (l *Lowerer) lowerAssert(fn *Func, n *ast.AssertStmt) {
	if n.Static || !l.opts.WriteAsserts {
		return
	}

	l.expr.PushBoolExpr(fn, n.Cond)
	exitJump := fn.stream.EmitJump(pcode.OP_IF_GOTO)
	fn.Emit(pcode.OP_BEGIN_PRINT)

	// File
	fn.PushString(n.File)
	fn.Emit(pcode.OP_PRINT_STRING)

	// Line and column, printed from the top of the stack down
	fn.PushNumber(' ')
	fn.PushNumber(':')
	fn.PushNumber(int32(n.Pos.Column))
	fn.PushNumber(':')
	fn.PushNumber(int32(n.Pos.Line))
	fn.PushNumber(':')
	fn.Emit(pcode.OP_PRINT_CHARACTER)
	fn.Emit(pcode.OP_PRINT_NUMBER)
	fn.Emit(pcode.OP_PRINT_CHARACTER)
	fn.Emit(pcode.OP_PRINT_NUMBER)
	fn.Emit(pcode.OP_PRINT_CHARACTER)
	fn.Emit(pcode.OP_PRINT_CHARACTER)

	fn.PushString(l.opts.AssertPrefix)
	fn.Emit(pcode.OP_PRINT_STRING)

	if n.Message != "" {
		fn.PushNumber(' ')
		fn.PushNumber(':')
		fn.Emit(pcode.OP_PRINT_CHARACTER)
		fn.Emit(pcode.OP_PRINT_CHARACTER)
		fn.PushString(n.Message)
		fn.Emit(pcode.OP_PRINT_STRING)
	}

	fn.Emit(pcode.OP_MORE_HUD_MESSAGE)
	for _, v := range assertHUD {
		fn.PushNumber(v)
	}
	fn.Emit(pcode.OP_END_HUD_MESSAGE_BOLD)
	fn.Emit(pcode.OP_TERMINATE)

	exit := fn.stream.CreatePoint()
	fn.stream.AppendPoint(exit)
	fn.stream.Patch(exitJump, exit)
}

func (l *Lowerer) lowerPalTrans(fn *Func, n *ast.PalTransStmt) {
	l.expr.PushExpr(fn, n.Number)
	fn.Emit(pcode.OP_START_TRANSLATION)
	for _, r := range n.Ranges {
		l.expr.PushExpr(fn, r.Begin)
		l.expr.PushExpr(fn, r.End)
		if r.RGB {
			for _, e := range []ast.Expr{r.Red1, r.Green1, r.Blue1, r.Red2, r.Green2, r.Blue2} {
				l.expr.PushExpr(fn, e)
			}
			fn.Emit(pcode.OP_TRANSLATION_RANGE2)
		} else {
			l.expr.PushExpr(fn, r.EntBegin)
			l.expr.PushExpr(fn, r.EntEnd)
			fn.Emit(pcode.OP_TRANSLATION_RANGE1)
		}
	}
	fn.Emit(pcode.OP_END_TRANSLATION)
}

func (l *Lowerer) lowerScriptJump(fn *Func, n *ast.ScriptJumpStmt) {
	switch n.Kind {
	case ast.ScriptSuspend:
		fn.Emit(pcode.OP_SUSPEND)
	case ast.ScriptRestart:
		fn.Emit(pcode.OP_RESTART)
	default:
		fn.Emit(pcode.OP_TERMINATE)
	}
}

// lowerInlineAsm emits one instruction named in the source. Branches and
// case dispatch cannot be written this way since they need points.
func (l *Lowerer) lowerInlineAsm(fn *Func, n *ast.InlineAsmStmt) {
	op, ok := pcode.ParseOpcode(n.Opcode)
	if !ok {
		unreachable(n.Pos, "unknown instruction %q", n.Opcode)
	}
	if pcode.IsJump(op) || op == pcode.OP_CASE_GOTO || op == pcode.OP_CASE_GOTO_SORTED {
		unreachable(n.Pos, "instruction %s cannot be written inline", op)
	}
	if len(n.Args) != pcode.ArgCount(op) {
		unreachable(n.Pos, "%s takes %d arguments, got %d", op, pcode.ArgCount(op), len(n.Args))
	}
	fn.Emit(op, n.Args...)
}
