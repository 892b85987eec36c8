package codegen

import (
	"fmt"

	"bcc/ast"
	"bcc/config"
	"bcc/pcode"
	"bcc/trace"
)

// ExprLowerer pushes expression values onto the evaluation stack. It is the
// contract between statement lowering and the expression code generator.
type ExprLowerer interface {
	// PushExpr leaves exactly one value on the stack
	PushExpr(fn *Func, e ast.Expr)
	// PushBoolExpr leaves one value ready for a conditional branch
	PushBoolExpr(fn *Func, e ast.Expr)
	// PushInitialValue leaves the value of e converted for a variable or
	// return value of type t
	PushInitialValue(fn *Func, t ast.Spec, e ast.Expr)
	// VisitExpr evaluates e for its side effects and leaves the stack as
	// it found it
	VisitExpr(fn *Func, e ast.Expr)
	// PushForeachCollection pushes what a foreach strategy consumes: the
	// base offset of a fixed array (only when PushedBase is set); the base
	// offset, length and, for sub-array items, dimension information of an
	// array reference; the handle of a string.
	PushForeachCollection(fn *Func, c *ast.Collection)
}

// InternalError reports a tree the lowering engine has no rule for. A
// front end that only builds dialect-appropriate trees never causes one.
type InternalError struct {
	Pos ast.Position
	Msg string
}

func (e *InternalError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("internal error: %s:%d:%d: %s", e.Pos.File, e.Pos.Line, e.Pos.Column, e.Msg)
	}
	return "internal error: " + e.Msg
}

func unreachable(pos ast.Position, format string, args ...interface{}) {
	panic(&InternalError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// Lowerer turns statements into instruction streams. One Lowerer serves
// every function of an output program; per-function state lives in Func.
type Lowerer struct {
	opts    config.Options
	expr    ExprLowerer
	strings *pcode.StringTable
}

// New creates a Lowerer. strs is the string table of the output program.
func New(opts config.Options, expr ExprLowerer, strs *pcode.StringTable) *Lowerer {
	if strs == nil {
		strs = pcode.NewStringTable()
	}
	return &Lowerer{
		opts:    opts,
		expr:    expr,
		strings: strs,
	}
}

// Options returns the code generation options
func (l *Lowerer) Options() config.Options {
	return l.opts
}

// Strings returns the string table shared by all functions
func (l *Lowerer) Strings() *pcode.StringTable {
	return l.strings
}

// LowerFunc lowers a whole function body, writes the function tail and
// assembles the result. An internal-consistency failure aborts the
// function and is returned as an error.
func (l *Lowerer) LowerFunc(fn *Func, body *ast.Block) (prog *pcode.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *InternalError:
				err = e
			case *pcode.InternalError:
				err = e
			default:
				panic(r)
			}
		}
	}()

	l.LowerBlock(fn, body)

	switch fn.Kind {
	case FuncScript:
		fn.Emit(pcode.OP_TERMINATE)
	case FuncFunction:
		fn.Emit(pcode.OP_RETURN_VOID)
	case FuncNested:
		epilogue := fn.stream.CreatePoint()
		fn.stream.AppendPoint(epilogue)
		fn.PatchEpilogue(epilogue)
		if fn.ReturnType != ast.SpecVoid {
			fn.Emit(pcode.OP_RETURN_VAL)
		} else {
			fn.Emit(pcode.OP_RETURN_VOID)
		}
	}

	prog, err = pcode.Assemble(fn.Name, fn.stream, l.strings, fn.Size())
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", fn.Name, err)
	}
	trace.Func(fn.Name, fn.Size(), len(prog.Code))
	return prog, nil
}
