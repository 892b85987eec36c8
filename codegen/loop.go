package codegen

import (
	"bcc/ast"
	"bcc/pcode"
	"bcc/trace"
)

func (l *Lowerer) lowerWhile(fn *Func, n *ast.WhileStmt) {
	if n.Cond.Var == nil {
		if value, ok := n.Cond.Constant(); ok {
			l.lowerFoldedWhile(fn, n, value)
			return
		}
	}

	fn.pushScope()
	fn.declareCond(&n.Cond)

	// Pre-test loops enter at the condition
	condJump := pcode.JumpID(-1)
	if n.Kind.TestsFirst() {
		condJump = fn.stream.EmitJump(pcode.OP_GOTO)
	}

	// Body
	bodyPoint := fn.stream.CreatePoint()
	fn.stream.AppendPoint(bodyPoint)
	l.LowerStmt(fn, n.Body)

	// Condition
	condPoint := fn.stream.CreatePoint()
	fn.stream.AppendPoint(condPoint)
	l.pushCond(fn, &n.Cond)
	if n.Kind.TestsFirst() {
		fn.stream.Patch(condJump, condPoint)
	}
	back := pcode.OP_IF_NOT_GOTO
	if n.Kind.LoopsWhileTrue() {
		back = pcode.OP_IF_GOTO
	}
	fn.stream.Patch(fn.stream.EmitJump(back), bodyPoint)

	exitPoint := fn.stream.CreatePoint()
	fn.stream.AppendPoint(exitPoint)
	fn.setJumpsPoint(n.Break, exitPoint)
	fn.setJumpsPoint(n.Continue, condPoint)

	fn.popScope()
}

// lowerFoldedWhile lowers a loop whose condition is a compile-time
// constant: it either never tests and loops forever, or it runs its body
// at most once. A pre-test body is then jumped over entirely, a post-test
// body runs once and falls out.
func (l *Lowerer) lowerFoldedWhile(fn *Func, n *ast.WhileStmt, value int32) {
	alwaysTrue := (n.Kind.LoopsWhileTrue() && value != 0) ||
		(!n.Kind.LoopsWhileTrue() && value == 0)
	trace.Lower(fn.Name, n.Kind.String(), "folded value=%d loops=%t", value, alwaysTrue)

	fn.pushScope()

	exitPoint := fn.stream.CreatePoint()
	exitJump := pcode.JumpID(-1)
	if !alwaysTrue && n.Kind.TestsFirst() {
		exitJump = fn.stream.EmitJump(pcode.OP_GOTO)
	}

	bodyPoint := fn.stream.CreatePoint()
	fn.stream.AppendPoint(bodyPoint)
	l.LowerStmt(fn, n.Body)
	if alwaysTrue {
		fn.stream.Patch(fn.stream.EmitJump(pcode.OP_GOTO), bodyPoint)
	}

	fn.stream.AppendPoint(exitPoint)
	if exitJump != -1 {
		fn.stream.Patch(exitJump, exitPoint)
	}
	fn.setJumpsPoint(n.Break, exitPoint)
	if alwaysTrue {
		fn.setJumpsPoint(n.Continue, bodyPoint)
	} else {
		fn.setJumpsPoint(n.Continue, exitPoint)
	}

	fn.popScope()
}

func (l *Lowerer) lowerFor(fn *Func, n *ast.ForStmt) {
	fn.pushScope()

	// Initialization
	for _, item := range n.Init {
		switch init := item.(type) {
		case *ast.VarDecl:
			l.visitVar(fn, init.Var)
		case *ast.ExprStmt:
			l.lowerExprStmt(fn, init)
		default:
			unreachable(item.Position(), "unexpected for-loop initializer %T", item)
		}
	}

	fn.declareCond(n.Cond)

	// A condition folded to true is never tested
	testCond := false
	if n.Cond != nil {
		value, folded := n.Cond.Constant()
		testCond = !(folded && value != 0)
	}
	condJump := pcode.JumpID(-1)
	if testCond {
		condJump = fn.stream.EmitJump(pcode.OP_GOTO)
	}

	// Body
	bodyPoint := fn.stream.CreatePoint()
	fn.stream.AppendPoint(bodyPoint)
	l.LowerStmt(fn, n.Body)

	// Post expressions
	postPoint := pcode.NoPoint
	if len(n.Post) > 0 {
		postPoint = fn.stream.CreatePoint()
		fn.stream.AppendPoint(postPoint)
		for _, e := range n.Post {
			l.expr.VisitExpr(fn, e)
		}
	}

	// Condition
	condPoint := pcode.NoPoint
	if testCond {
		condPoint = fn.stream.CreatePoint()
		fn.stream.AppendPoint(condPoint)
		l.pushCond(fn, n.Cond)
		fn.stream.Patch(condJump, condPoint)
		fn.stream.Patch(fn.stream.EmitJump(pcode.OP_IF_GOTO), bodyPoint)
	} else {
		fn.stream.Patch(fn.stream.EmitJump(pcode.OP_GOTO), bodyPoint)
	}

	exitPoint := fn.stream.CreatePoint()
	fn.stream.AppendPoint(exitPoint)
	fn.setJumpsPoint(n.Break, exitPoint)
	switch {
	case postPoint != pcode.NoPoint:
		fn.setJumpsPoint(n.Continue, postPoint)
	case condPoint != pcode.NoPoint:
		fn.setJumpsPoint(n.Continue, condPoint)
	default:
		fn.setJumpsPoint(n.Continue, bodyPoint)
	}

	fn.popScope()
}
