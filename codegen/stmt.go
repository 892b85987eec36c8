package codegen

import (
	"bcc/ast"
	"bcc/pcode"
)

var zeroPos ast.Position

// LowerBlock lowers a compound statement in its own scope
func (l *Lowerer) LowerBlock(fn *Func, block *ast.Block) {
	fn.pushScope()
	for _, item := range block.Stmts {
		l.lowerBlockItem(fn, item)
	}
	fn.popScope()
}

// lowerBlockItem handles what may appear only directly inside a block and
// hands everything else to the statement dispatcher
func (l *Lowerer) lowerBlockItem(fn *Func, item ast.Stmt) {
	switch n := item.(type) {
	case *ast.VarDecl:
		fn.stream.MarkLine(n.Pos.Line)
		l.visitVar(fn, n.Var)
	case *ast.CaseLabel:
		l.lowerCaseLabel(fn, n)
	case *ast.LabelStmt:
		l.lowerLabel(fn, n)
	case *ast.AssertStmt:
		fn.stream.MarkLine(n.Pos.Line)
		l.lowerAssert(fn, n)
	case *ast.DeclStmt:
		switch n.Kind {
		case ast.DeclEnumeration, ast.DeclTypeAlias, ast.DeclFunc:
			// no code
		default:
			l.LowerStmt(fn, n)
		}
	default:
		l.LowerStmt(fn, item)
	}
}

// LowerStmt lowers one statement
func (l *Lowerer) LowerStmt(fn *Func, stmt ast.Stmt) {
	// Track source line for the line table
	fn.stream.MarkLine(stmt.Position().Line)

	switch n := stmt.(type) {
	case *ast.Block:
		l.LowerBlock(fn, n)
	case *ast.IfStmt:
		l.lowerIf(fn, n)
	case *ast.SwitchStmt:
		l.lowerSwitch(fn, n)
	case *ast.CaseLabel:
		l.lowerCaseLabel(fn, n)
	case *ast.WhileStmt:
		l.lowerWhile(fn, n)
	case *ast.ForStmt:
		l.lowerFor(fn, n)
	case *ast.ForeachStmt:
		l.lowerForeach(fn, n)
	case *ast.JumpStmt:
		l.lowerJump(fn, n)
	case *ast.ScriptJumpStmt:
		l.lowerScriptJump(fn, n)
	case *ast.ReturnStmt:
		l.lowerReturn(fn, n)
	case *ast.GotoStmt:
		l.lowerGoto(fn, n)
	case *ast.LabelStmt:
		l.lowerLabel(fn, n)
	case *ast.PalTransStmt:
		l.lowerPalTrans(fn, n)
	case *ast.ExprStmt:
		l.lowerExprStmt(fn, n)
	case *ast.InlineAsmStmt:
		l.lowerInlineAsm(fn, n)
	case *ast.DeclStmt:
		switch n.Kind {
		case ast.DeclStructure, ast.DeclUsing:
			// no code
		default:
			unreachable(n.Pos, "declaration kind %d outside a block", n.Kind)
		}
	default:
		unreachable(stmt.Position(), "unknown statement type %T", stmt)
	}
}

// visitVar allocates storage for a local declaration and writes its
// initializer. Declarations with other storage are initialized at load
// time and produce no code here.
func (l *Lowerer) visitVar(fn *Func, v *ast.Var) {
	if v.Storage != ast.StorageLocal {
		return
	}
	fn.BindLocal(v, fn.AllocLocal(v.Slots()))
	l.initVar(fn, v)
}

// initVar writes the initializer of a bound local
func (l *Lowerer) initVar(fn *Func, v *ast.Var) {
	if v.Storage != ast.StorageLocal || v.Initial == nil {
		return
	}
	// The initializer leaves one value per slot, first slot deepest
	l.expr.PushInitialValue(fn, v.Type, v.Initial)
	for i := v.Slots() - 1; i >= 0; i-- {
		fn.AssignVar(v, i)
	}
}

// declareCond binds the slot of a declaration condition whose variable is
// visible before the condition itself is lowered, as in loop bodies.
func (fn *Func) declareCond(cond *ast.Cond) {
	if cond == nil || cond.Var == nil || cond.Var.Storage != ast.StorageLocal {
		return
	}
	fn.BindLocal(cond.Var, fn.AllocLocal(cond.Var.Slots()))
}

// pushCond pushes a condition value. A declaration condition declares its
// variable first, unless declareCond already did, and tests the variable's
// value.
func (l *Lowerer) pushCond(fn *Func, cond *ast.Cond) {
	if cond.Var != nil {
		if _, bound := fn.LocalSlot(cond.Var); bound {
			l.initVar(fn, cond.Var)
		} else {
			l.visitVar(fn, cond.Var)
		}
		fn.PushVar(cond.Var, 0)
		return
	}
	l.expr.PushBoolExpr(fn, cond.Expr)
}

func (l *Lowerer) lowerIf(fn *Func, n *ast.IfStmt) {
	fn.pushScope()

	// Condition
	l.pushCond(fn, &n.Cond)
	elseJump := fn.stream.EmitJump(pcode.OP_IF_NOT_GOTO)

	// Then branch
	l.LowerStmt(fn, n.Body)

	exitJump := pcode.JumpID(-1)
	if n.Else != nil {
		// Jump over the else branch
		exitJump = fn.stream.EmitJump(pcode.OP_GOTO)
		elsePoint := fn.stream.CreatePoint()
		fn.stream.AppendPoint(elsePoint)
		fn.stream.Patch(elseJump, elsePoint)
		l.LowerStmt(fn, n.Else)
	}

	exitPoint := fn.stream.CreatePoint()
	fn.stream.AppendPoint(exitPoint)
	if n.Else != nil {
		fn.stream.Patch(exitJump, exitPoint)
	} else {
		fn.stream.Patch(elseJump, exitPoint)
	}

	fn.popScope()
}

func (l *Lowerer) lowerExprStmt(fn *Func, n *ast.ExprStmt) {
	for _, e := range n.Exprs {
		l.expr.VisitExpr(fn, e)
	}
}
