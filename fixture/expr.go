package fixture

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"bcc/ast"
	"bcc/pcode"
)

var extensions = map[string]int32{
	"strcmp":  pcode.EXT_STRCMP,
	"getchar": pcode.EXT_GETCHAR,
	"strlen":  pcode.EXT_STRLEN,
}

// expr decodes an expression.
//
//	42, true          folded literals
//	"text"            string literal
//	{ref: x}          variable
//	{"=": [x, e]}     assignment
//	{call: {func: strlen, args: [e]}}
//	{"+": [a, b]}     binary operator; {"!": e} unary operator
func (d *decoder) expr(node *yaml.Node) (ast.Expr, error) {
	pos := d.pos(node)
	if node.Kind == yaml.ScalarNode {
		switch node.ShortTag() {
		case "!!int":
			var v int32
			if err := node.Decode(&v); err != nil {
				return nil, d.errorf(node, "integer out of range: %s", node.Value)
			}
			lit := ast.NewInt(v)
			lit.Pos = pos
			return lit, nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return nil, d.errorf(node, "bad boolean %q", node.Value)
			}
			lit := ast.NewInt(boolValue(b))
			lit.Pos = pos
			lit.Type = ast.SpecBool
			return lit, nil
		case "!!str":
			return &ast.StrLit{ExprInfo: ast.ExprInfo{Type: ast.SpecStr}, Pos: pos, Text: node.Value}, nil
		}
		return nil, d.errorf(node, "unexpected value %q", node.Value)
	}

	key, val, err := d.single(node)
	if err != nil {
		return nil, err
	}
	switch key {
	case "ref":
		name, err := d.scalar(val, "variable name")
		if err != nil {
			return nil, err
		}
		v, ok := d.lookup(name)
		if !ok {
			return nil, d.errorf(node, "undeclared variable %q", name)
		}
		return &ast.VarRef{ExprInfo: ast.ExprInfo{Type: v.Type}, Pos: pos, Var: v}, nil
	case "=":
		return d.assign(val, node)
	case "call":
		return d.call(val, node)
	}

	op, ok := ast.ParseOperator(key)
	if !ok {
		return nil, d.errorf(node, "unknown expression %q", key)
	}
	if val == nil {
		return nil, d.errorf(node, "operator %s without operands", op)
	}
	if val.Kind != yaml.SequenceNode {
		if op == ast.OpSub {
			op = ast.OpNeg
		}
		if !op.IsUnary() {
			return nil, d.errorf(node, "operator %s needs two operands", op)
		}
		operand, err := d.expr(val)
		if err != nil {
			return nil, err
		}
		return foldUnary(&ast.Unary{Pos: pos, Op: op, Operand: operand}), nil
	}

	if op.IsUnary() || len(val.Content) != 2 {
		return nil, d.errorf(node, "operator %s needs two operands", op)
	}
	left, err := d.expr(val.Content[0])
	if err != nil {
		return nil, err
	}
	right, err := d.expr(val.Content[1])
	if err != nil {
		return nil, err
	}
	return foldBinary(&ast.Binary{Pos: pos, Op: op, Left: left, Right: right}), nil
}

func (d *decoder) assign(val, node *yaml.Node) (ast.Expr, error) {
	if val == nil || val.Kind != yaml.SequenceNode || len(val.Content) != 2 {
		return nil, d.errorf(node, "assignment needs a variable and a value")
	}
	name, err := d.scalar(val.Content[0], "assignment target")
	if err != nil {
		return nil, err
	}
	v, ok := d.lookup(name)
	if !ok {
		return nil, d.errorf(node, "undeclared variable %q", name)
	}
	value, err := d.expr(val.Content[1])
	if err != nil {
		return nil, err
	}
	return &ast.Assign{ExprInfo: ast.ExprInfo{Type: v.Type}, Pos: d.pos(node), Target: v, Value: value}, nil
}

func (d *decoder) call(val, node *yaml.Node) (ast.Expr, error) {
	f, err := d.fields(val, "func", "args")
	if err != nil {
		return nil, err
	}
	name, err := d.scalar(f["func"], "function")
	if err != nil {
		return nil, err
	}
	id, ok := extensions[name]
	if !ok {
		n, err := strconv.ParseInt(name, 10, 32)
		if err != nil {
			return nil, d.errorf(f["func"], "unknown function %q", name)
		}
		id = int32(n)
	}
	c := &ast.Call{ExprInfo: ast.ExprInfo{Type: ast.SpecInt}, Pos: d.pos(node), Func: id}
	if n := f["args"]; !isNull(n) {
		if c.Args, err = d.exprList(n); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func resultType(op ast.Operator, operand ast.Spec) ast.Spec {
	switch op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe,
		ast.OpLogAnd, ast.OpLogOr, ast.OpNot:
		return ast.SpecBool
	}
	return operand
}

func foldUnary(e *ast.Unary) ast.Expr {
	e.Type = resultType(e.Op, e.Operand.Info().Type)
	v, ok := ast.Constant(e.Operand)
	if !ok {
		return e
	}
	switch e.Op {
	case ast.OpNeg:
		e.Value = -v
	case ast.OpNot:
		e.Value = boolValue(v == 0)
	case ast.OpBitNot:
		e.Value = ^v
	}
	e.Folded = true
	return e
}

func foldBinary(e *ast.Binary) ast.Expr {
	e.Type = resultType(e.Op, e.Left.Info().Type)
	a, aok := ast.Constant(e.Left)
	b, bok := ast.Constant(e.Right)
	if !aok || !bok {
		return e
	}
	var v int32
	switch e.Op {
	case ast.OpAdd:
		v = a + b
	case ast.OpSub:
		v = a - b
	case ast.OpMul:
		v = a * b
	case ast.OpDiv:
		if b == 0 {
			return e
		}
		v = a / b
	case ast.OpMod:
		if b == 0 {
			return e
		}
		v = a % b
	case ast.OpEq:
		v = boolValue(a == b)
	case ast.OpNe:
		v = boolValue(a != b)
	case ast.OpLt:
		v = boolValue(a < b)
	case ast.OpLe:
		v = boolValue(a <= b)
	case ast.OpGt:
		v = boolValue(a > b)
	case ast.OpGe:
		v = boolValue(a >= b)
	case ast.OpLogAnd:
		v = boolValue(a != 0 && b != 0)
	case ast.OpLogOr:
		v = boolValue(a != 0 || b != 0)
	case ast.OpBitAnd:
		v = a & b
	case ast.OpBitOr:
		v = a | b
	case ast.OpBitXor:
		v = a ^ b
	case ast.OpShl:
		v = a << uint32(b&31)
	case ast.OpShr:
		v = a >> uint32(b&31)
	default:
		return e
	}
	e.Value = v
	e.Folded = true
	return e
}
