package codegen

import (
	"bcc/ast"
	"bcc/pcode"
)

// lowerJump emits the branch of a break or continue. Its target is set
// when the enclosing construct knows its exit or continue point.
func (l *Lowerer) lowerJump(fn *Func, n *ast.JumpStmt) {
	fn.jumps[n] = fn.stream.EmitJump(pcode.OP_GOTO)
}

// setJumpsPoint patches every jump in a pending list to p
func (fn *Func) setJumpsPoint(head *ast.JumpStmt, p pcode.PointID) {
	for stmt := head; stmt != nil; stmt = stmt.Next {
		j, ok := fn.jumps[stmt]
		if !ok {
			unreachable(stmt.Pos, "jump statement was never lowered")
		}
		fn.stream.Patch(j, p)
	}
}

func (l *Lowerer) lowerLabel(fn *Func, n *ast.LabelStmt) {
	fn.stream.AppendPoint(fn.labelPoint(n))
}

// lowerGoto branches to a label that may appear later in the function
func (l *Lowerer) lowerGoto(fn *Func, n *ast.GotoStmt) {
	if n.Label == nil {
		unreachable(n.Pos, "goto without a resolved label")
	}
	j := fn.stream.EmitJump(pcode.OP_GOTO)
	fn.stream.Patch(j, fn.labelPoint(n.Label))
}

func (l *Lowerer) lowerReturn(fn *Func, n *ast.ReturnStmt) {
	if fn.Kind == FuncNested {
		if n.Value != nil {
			l.expr.PushInitialValue(fn, fn.ReturnType, n.Value)
		}
		fn.epilogue = append(fn.epilogue, fn.stream.EmitJump(pcode.OP_GOTO))
		return
	}
	if n.Value != nil {
		l.expr.PushInitialValue(fn, fn.ReturnType, n.Value)
		fn.Emit(pcode.OP_RETURN_VAL)
	} else {
		fn.Emit(pcode.OP_RETURN_VOID)
	}
}
