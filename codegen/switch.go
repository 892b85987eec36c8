package codegen

import (
	"bcc/ast"
	"bcc/config"
	"bcc/pcode"
	"bcc/trace"
)

// SwitchStrategy is the dispatch code a switch is lowered to
type SwitchStrategy int

const (
	SwitchCaseGoto SwitchStrategy = iota // one CASE_GOTO per case
	SwitchSorted                         // one CASE_GOTO_SORTED table
	SwitchString                         // linear string comparisons
)

func (s SwitchStrategy) String() string {
	switch s {
	case SwitchCaseGoto:
		return "case-goto"
	case SwitchSorted:
		return "sorted"
	case SwitchString:
		return "string"
	default:
		return "unknown"
	}
}

// SelectSwitchStrategy picks the dispatch strategy for a switch. The
// legacy dialect only knows single case jumps; the classic dialect always
// uses a sorted table; the extended dialect also switches on strings.
func SelectSwitchStrategy(lang config.Lang, n *ast.SwitchStmt) SwitchStrategy {
	switch lang {
	case config.LangACS95:
		return SwitchCaseGoto
	case config.LangACS:
		return SwitchSorted
	case config.LangBCS:
		if n.Cond.Type() == ast.SpecStr {
			return SwitchString
		}
		return SwitchSorted
	default:
		unreachable(n.Pos, "unknown language %d", lang)
	}
	return SwitchSorted
}

func (l *Lowerer) lowerSwitch(fn *Func, n *ast.SwitchStmt) {
	strategy := SelectSwitchStrategy(l.opts.Lang, n)
	trace.Lower(fn.Name, "switch", "strategy=%s cases=%d default=%t", strategy, len(n.Cases), n.Default != nil)

	switch strategy {
	case SwitchCaseGoto:
		l.lowerCaseGotoSwitch(fn, n)
	case SwitchSorted:
		l.lowerSortedSwitch(fn, n)
	case SwitchString:
		l.lowerStringSwitch(fn, n)
	}
}

// pushSwitchCond pushes the switch subject
func (l *Lowerer) pushSwitchCond(fn *Func, n *ast.SwitchStmt) {
	if n.Cond.Var != nil {
		l.visitVar(fn, n.Cond.Var)
		fn.PushVar(n.Cond.Var, 0)
		return
	}
	l.expr.PushExpr(fn, n.Cond.Expr)
}

// casePoint creates the point a case label marks
func (fn *Func) casePoint(label *ast.CaseLabel) pcode.PointID {
	if _, ok := fn.cases[label]; ok {
		unreachable(label.Pos, "case label bound twice")
	}
	p := fn.stream.CreatePoint()
	fn.cases[label] = p
	return p
}

func caseValue(label *ast.CaseLabel) int32 {
	value, ok := ast.Constant(label.Value)
	if !ok {
		unreachable(label.Pos, "case value is not constant")
	}
	return value
}

// jumpToDefault branches to the default label, or to exit without one
func (fn *Func) jumpToDefault(n *ast.SwitchStmt, exit pcode.PointID) {
	j := fn.stream.EmitJump(pcode.OP_GOTO)
	if n.Default != nil {
		fn.stream.Patch(j, fn.casePoint(n.Default))
	} else {
		fn.stream.Patch(j, exit)
	}
}

// finishSwitch lowers the body and closes the switch at exit
func (l *Lowerer) finishSwitch(fn *Func, n *ast.SwitchStmt, exit pcode.PointID) {
	l.LowerStmt(fn, n.Body)
	fn.stream.AppendPoint(exit)
	fn.setJumpsPoint(n.Break, exit)
}

func (l *Lowerer) lowerCaseGotoSwitch(fn *Func, n *ast.SwitchStmt) {
	fn.pushScope()
	exit := fn.stream.CreatePoint()
	l.pushSwitchCond(fn, n)

	// A case jump pops the subject only when it matches
	zeroCase := false
	for _, label := range n.Cases {
		value := caseValue(label)
		if value == 0 {
			zeroCase = true
		}
		fn.stream.EmitCaseJump(value, fn.casePoint(label))
	}

	// Leftover subject: when a zero case exists, anything still here is
	// non-zero, so a conditional branch both pops and jumps
	if zeroCase {
		j := fn.stream.EmitJump(pcode.OP_IF_GOTO)
		if n.Default != nil {
			fn.stream.Patch(j, fn.casePoint(n.Default))
		} else {
			fn.stream.Patch(j, exit)
		}
	} else {
		fn.Emit(pcode.OP_DROP)
		fn.jumpToDefault(n, exit)
	}

	l.finishSwitch(fn, n, exit)
	fn.popScope()
}

func (l *Lowerer) lowerSortedSwitch(fn *Func, n *ast.SwitchStmt) {
	fn.pushScope()
	exit := fn.stream.CreatePoint()
	l.pushSwitchCond(fn, n)

	table := fn.stream.EmitSortedCaseJump()
	for _, label := range n.Cases {
		fn.stream.AddCase(table, caseValue(label), fn.casePoint(label))
	}
	fn.Emit(pcode.OP_DROP)
	fn.jumpToDefault(n, exit)

	l.finishSwitch(fn, n, exit)
	fn.popScope()
}

// lowerStringSwitch compares the subject against each case string in
// declaration order
func (l *Lowerer) lowerStringSwitch(fn *Func, n *ast.SwitchStmt) {
	fn.pushScope()
	exit := fn.stream.CreatePoint()
	l.pushSwitchCond(fn, n)

	for i, label := range n.Cases {
		if label.Value == nil {
			unreachable(label.Pos, "string case without a value")
		}
		if i < len(n.Cases)-1 {
			// Keep a copy of the subject for the next comparison
			fn.Emit(pcode.OP_DUP)
			l.expr.PushExpr(fn, label.Value)
			fn.Emit(pcode.OP_CALL_FUNC, 2, pcode.EXT_STRCMP)
			nextJump := fn.stream.EmitJump(pcode.OP_IF_GOTO)
			fn.Emit(pcode.OP_DROP)
			fn.stream.Patch(fn.stream.EmitJump(pcode.OP_GOTO), fn.casePoint(label))
			next := fn.stream.CreatePoint()
			fn.stream.AppendPoint(next)
			fn.stream.Patch(nextJump, next)
		} else {
			// The last comparison consumes the subject
			l.expr.PushExpr(fn, label.Value)
			fn.Emit(pcode.OP_CALL_FUNC, 2, pcode.EXT_STRCMP)
			fn.stream.Patch(fn.stream.EmitJump(pcode.OP_IF_NOT_GOTO), fn.casePoint(label))
		}
	}
	if len(n.Cases) == 0 {
		fn.Emit(pcode.OP_DROP)
	}
	fn.jumpToDefault(n, exit)

	l.finishSwitch(fn, n, exit)
	fn.popScope()
}

// lowerCaseLabel places the point its switch created for it
func (l *Lowerer) lowerCaseLabel(fn *Func, label *ast.CaseLabel) {
	p, ok := fn.cases[label]
	if !ok {
		unreachable(label.Pos, "case label outside its switch")
	}
	fn.stream.AppendPoint(p)
}
