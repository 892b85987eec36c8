package fixture

import (
	"gopkg.in/yaml.v3"

	"bcc/ast"
)

// block decodes a statement list in its own scope
func (d *decoder) block(node *yaml.Node) (*ast.Block, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, d.errorf(node, "expected a list of statements")
	}
	d.pushScope()
	defer d.popScope()

	block := &ast.Block{Pos: d.pos(node)}
	for _, item := range node.Content {
		stmt, err := d.stmt(item)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	return block, nil
}

// optionalBlock decodes a statement list that may be absent
func (d *decoder) optionalBlock(node *yaml.Node) (ast.Stmt, error) {
	if isNull(node) {
		return nil, nil
	}
	return d.block(node)
}

// body decodes a required statement list; an empty body is an empty block
func (d *decoder) body(node *yaml.Node, parent *yaml.Node) (*ast.Block, error) {
	if isNull(node) {
		return &ast.Block{Pos: d.pos(parent)}, nil
	}
	return d.block(node)
}

// stmt decodes one statement. Declarations that produce no tree node
// return nil.
func (d *decoder) stmt(node *yaml.Node) (ast.Stmt, error) {
	key, val, err := d.single(node)
	if err != nil {
		return nil, err
	}
	pos := d.pos(node)

	switch key {
	case "block":
		return d.block(orNode(val))
	case "var":
		v, err := d.varDecl(val, node)
		if err != nil {
			return nil, err
		}
		return &ast.VarDecl{Pos: pos, Var: v}, nil
	case "array":
		return nil, d.arrayDecl(val, node)
	case "decl":
		return d.declStmt(val, node)
	case "if":
		return d.ifStmt(val, node)
	case "while":
		return d.whileStmt(val, node, ast.WhileWhile)
	case "until":
		return d.whileStmt(val, node, ast.WhileUntil)
	case "do_while":
		return d.whileStmt(val, node, ast.WhileDoWhile)
	case "do_until":
		return d.whileStmt(val, node, ast.WhileDoUntil)
	case "for":
		return d.forStmt(val, node)
	case "foreach":
		return d.foreachStmt(val, node)
	case "switch":
		return d.switchStmt(val, node)
	case "case":
		return d.caseLabel(val, node, false)
	case "default":
		return d.caseLabel(val, node, true)
	case "break":
		return d.jump(node, ast.JumpBreak)
	case "continue":
		return d.jump(node, ast.JumpContinue)
	case "return":
		stmt := &ast.ReturnStmt{Pos: pos}
		if !isNull(val) {
			if stmt.Value, err = d.expr(val); err != nil {
				return nil, err
			}
		}
		return stmt, nil
	case "goto":
		name, err := d.scalar(val, "goto label")
		if err != nil {
			return nil, err
		}
		stmt := &ast.GotoStmt{Pos: pos}
		d.gotos = append(d.gotos, pendingGoto{stmt: stmt, name: name, node: node})
		return stmt, nil
	case "label":
		name, err := d.scalar(val, "label name")
		if err != nil {
			return nil, err
		}
		return d.label(node, name)
	case "expr":
		return d.exprStmt(val, node)
	case "assert":
		return d.assertStmt(val, node)
	case "paltrans":
		return d.palTrans(val, node)
	case "terminate":
		return &ast.ScriptJumpStmt{Pos: pos, Kind: ast.ScriptTerminate}, nil
	case "suspend":
		return &ast.ScriptJumpStmt{Pos: pos, Kind: ast.ScriptSuspend}, nil
	case "restart":
		return &ast.ScriptJumpStmt{Pos: pos, Kind: ast.ScriptRestart}, nil
	case "asm":
		return d.inlineAsm(val, node)
	default:
		return nil, d.errorf(node, "unknown statement %q", key)
	}
}

// varDecl decodes a declaration: either a bare name or a mapping. The
// variable comes into scope after its initializer.
func (d *decoder) varDecl(val, node *yaml.Node) (*ast.Var, error) {
	v := &ast.Var{Pos: d.pos(node), Type: ast.SpecInt, Storage: ast.StorageLocal}
	if val != nil && val.Kind == yaml.ScalarNode {
		v.Name = val.Value
		d.declare(v)
		return v, nil
	}

	f, err := d.fields(val, "name", "type", "storage", "index", "size", "init")
	if err != nil {
		return nil, err
	}
	if v.Name, err = d.scalar(f["name"], "variable name"); err != nil {
		return nil, err
	}
	if n := f["type"]; n != nil {
		spec, ok := ast.ParseSpec(n.Value)
		if !ok {
			return nil, d.errorf(n, "unknown type %q", n.Value)
		}
		v.Type = spec
	}
	if n := f["storage"]; n != nil {
		storage, ok := ast.ParseStorage(n.Value)
		if !ok {
			return nil, d.errorf(n, "unknown storage %q", n.Value)
		}
		v.Storage = storage
	}
	if n := f["index"]; n != nil {
		if v.Index, err = d.integer(n, "index"); err != nil {
			return nil, err
		}
	}
	if n := f["size"]; n != nil {
		if v.Size, err = d.integer(n, "size"); err != nil {
			return nil, err
		}
	}
	if n := f["init"]; n != nil {
		if v.Initial, err = d.expr(n); err != nil {
			return nil, err
		}
	}
	d.declare(v)
	return v, nil
}

func (d *decoder) arrayDecl(val, node *yaml.Node) error {
	f, err := d.fields(val, "name", "storage", "index", "values", "item",
		"element_size", "struct_size", "length", "dim_info")
	if err != nil {
		return err
	}
	arr := &Array{Storage: ast.StorageMap, ElementSize: 1, Item: ast.ItemPrimitive}
	if arr.Name, err = d.scalar(f["name"], "array name"); err != nil {
		return err
	}
	if n := f["storage"]; n != nil {
		storage, ok := ast.ParseStorage(n.Value)
		if !ok {
			return d.errorf(n, "unknown storage %q", n.Value)
		}
		arr.Storage = storage
	}
	if n := f["item"]; n != nil {
		item, ok := ast.ParseItemKind(n.Value)
		if !ok {
			return d.errorf(n, "unknown item kind %q", n.Value)
		}
		arr.Item = item
		if item == ast.ItemRefPair {
			arr.ElementSize = 2
		}
	}
	ints := map[string]*int{
		"index":        &arr.Index,
		"element_size": &arr.ElementSize,
		"struct_size":  &arr.StructSize,
		"length":       &arr.Length,
		"dim_info":     &arr.DimInfo,
	}
	for key, dst := range ints {
		if n := f[key]; n != nil {
			if *dst, err = d.integer(n, key); err != nil {
				return err
			}
		}
	}
	if n := f["values"]; n != nil {
		if err := n.Decode(&arr.Values); err != nil {
			return d.errorf(n, "array values: %v", err)
		}
	}
	if arr.Item == ast.ItemStruct && f["element_size"] == nil && arr.StructSize > 0 {
		arr.ElementSize = arr.StructSize
	}
	if f["length"] == nil && arr.ElementSize > 0 {
		arr.Length = len(arr.Values) / arr.ElementSize
	}
	if _, ok := d.arrays[arr.Name]; ok {
		return d.errorf(node, "duplicate array %q", arr.Name)
	}
	d.arrays[arr.Name] = arr
	d.arrayList = append(d.arrayList, arr)
	return nil
}

var declKinds = map[string]ast.DeclKind{
	"enum":      ast.DeclEnumeration,
	"typealias": ast.DeclTypeAlias,
	"func":      ast.DeclFunc,
	"struct":    ast.DeclStructure,
	"using":     ast.DeclUsing,
}

func (d *decoder) declStmt(val, node *yaml.Node) (ast.Stmt, error) {
	f, err := d.fields(val, "kind", "name")
	if err != nil {
		return nil, err
	}
	kindName, err := d.scalar(f["kind"], "declaration kind")
	if err != nil {
		return nil, err
	}
	kind, ok := declKinds[kindName]
	if !ok {
		return nil, d.errorf(f["kind"], "unknown declaration kind %q", kindName)
	}
	stmt := &ast.DeclStmt{Pos: d.pos(node), Kind: kind}
	if n := f["name"]; n != nil {
		stmt.Name = n.Value
	}
	return stmt, nil
}

// cond decodes a condition: an expression, or {let: declaration}
func (d *decoder) cond(node, parent *yaml.Node) (ast.Cond, error) {
	if isNull(node) {
		return ast.Cond{}, d.errorf(parent, "missing condition")
	}
	if node.Kind == yaml.MappingNode && len(node.Content) == 2 && node.Content[0].Value == "let" {
		v, err := d.varDecl(node.Content[1], node)
		if err != nil {
			return ast.Cond{}, err
		}
		return ast.Cond{Var: v}, nil
	}
	e, err := d.expr(node)
	if err != nil {
		return ast.Cond{}, err
	}
	return ast.Cond{Expr: e}, nil
}

func (d *decoder) ifStmt(val, node *yaml.Node) (ast.Stmt, error) {
	f, err := d.fields(val, "cond", "then", "else")
	if err != nil {
		return nil, err
	}
	d.pushScope()
	defer d.popScope()

	stmt := &ast.IfStmt{Pos: d.pos(node)}
	if stmt.Cond, err = d.cond(f["cond"], node); err != nil {
		return nil, err
	}
	if stmt.Body, err = d.body(f["then"], node); err != nil {
		return nil, err
	}
	if stmt.Else, err = d.optionalBlock(f["else"]); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (d *decoder) whileStmt(val, node *yaml.Node, kind ast.WhileKind) (ast.Stmt, error) {
	f, err := d.fields(val, "cond", "body")
	if err != nil {
		return nil, err
	}
	d.pushScope()
	defer d.popScope()

	stmt := &ast.WhileStmt{Pos: d.pos(node), Kind: kind}
	target := d.pushTarget(true)
	if kind.TestsFirst() {
		if stmt.Cond, err = d.cond(f["cond"], node); err != nil {
			return nil, err
		}
		if stmt.Body, err = d.body(f["body"], node); err != nil {
			return nil, err
		}
	} else {
		if stmt.Body, err = d.body(f["body"], node); err != nil {
			return nil, err
		}
		if stmt.Cond, err = d.cond(f["cond"], node); err != nil {
			return nil, err
		}
	}
	d.popTarget()
	stmt.Break = link(target.breaks)
	stmt.Continue = link(target.continues)
	return stmt, nil
}

func (d *decoder) forStmt(val, node *yaml.Node) (ast.Stmt, error) {
	f, err := d.fields(val, "init", "cond", "post", "body")
	if err != nil {
		return nil, err
	}
	d.pushScope()
	defer d.popScope()

	stmt := &ast.ForStmt{Pos: d.pos(node)}
	if n := f["init"]; !isNull(n) {
		if n.Kind != yaml.SequenceNode {
			return nil, d.errorf(n, "for init must be a list")
		}
		for _, item := range n.Content {
			init, err := d.stmt(item)
			if err != nil {
				return nil, err
			}
			switch init.(type) {
			case *ast.VarDecl, *ast.ExprStmt:
				stmt.Init = append(stmt.Init, init)
			default:
				return nil, d.errorf(item, "for init must be a declaration or an expression")
			}
		}
	}
	if n := f["cond"]; !isNull(n) {
		cond, err := d.cond(n, node)
		if err != nil {
			return nil, err
		}
		stmt.Cond = &cond
	}
	if n := f["post"]; !isNull(n) {
		if stmt.Post, err = d.exprList(n); err != nil {
			return nil, err
		}
	}

	target := d.pushTarget(true)
	if stmt.Body, err = d.body(f["body"], node); err != nil {
		return nil, err
	}
	d.popTarget()
	stmt.Break = link(target.breaks)
	stmt.Continue = link(target.continues)
	return stmt, nil
}

func (d *decoder) foreachStmt(val, node *yaml.Node) (ast.Stmt, error) {
	f, err := d.fields(val, "key", "value", "in", "body")
	if err != nil {
		return nil, err
	}
	d.pushScope()
	defer d.popScope()

	stmt := &ast.ForeachStmt{Pos: d.pos(node)}
	if stmt.Collection, err = d.collection(f["in"], node); err != nil {
		return nil, err
	}
	if n := f["key"]; !isNull(n) {
		if stmt.Key, err = d.varDecl(n, node); err != nil {
			return nil, err
		}
	}
	if stmt.Value, err = d.varDecl(f["value"], node); err != nil {
		return nil, err
	}
	switch stmt.Collection.Item {
	case ast.ItemRefPair, ast.ItemSubArray:
		stmt.Value.Size = 2
	}

	target := d.pushTarget(true)
	if stmt.Body, err = d.body(f["body"], node); err != nil {
		return nil, err
	}
	d.popTarget()
	stmt.Break = link(target.breaks)
	stmt.Continue = link(target.continues)
	return stmt, nil
}

// collection decodes what a foreach iterates over: {array: name},
// {array_ref: name, base: expr, length: expr} or {str: expr}
func (d *decoder) collection(node, parent *yaml.Node) (*ast.Collection, error) {
	f, err := d.fields(node, "array", "array_ref", "str", "base", "length")
	if err != nil {
		return nil, err
	}
	if n := f["str"]; n != nil {
		e, err := d.expr(n)
		if err != nil {
			return nil, err
		}
		return &ast.Collection{Kind: ast.CollectionStr, Expr: e}, nil
	}

	kind := ast.CollectionArray
	nameNode := f["array"]
	if nameNode == nil {
		kind = ast.CollectionArrayRef
		nameNode = f["array_ref"]
	}
	if nameNode == nil {
		return nil, d.errorf(node, "foreach needs array, array_ref or str")
	}
	arr, ok := d.arrays[nameNode.Value]
	if !ok {
		return nil, d.errorf(nameNode, "unknown array %q", nameNode.Value)
	}
	c := &ast.Collection{
		Kind:        kind,
		Item:        arr.Item,
		ElementSize: arr.ElementSize,
		StructSize:  arr.StructSize,
		Length:      arr.Length,
		DimInfo:     arr.DimInfo,
		Storage:     arr.Storage,
		Index:       arr.Index,
	}
	if n := f["base"]; n != nil {
		if c.Base, err = d.expr(n); err != nil {
			return nil, err
		}
		c.PushedBase = kind == ast.CollectionArray
	}
	if kind == ast.CollectionArrayRef {
		if c.Base == nil {
			c.Base = ast.NewInt(0)
		}
		if n := f["length"]; n != nil {
			if c.LengthExpr, err = d.expr(n); err != nil {
				return nil, err
			}
		} else {
			c.LengthExpr = ast.NewInt(int32(arr.Length))
		}
	}
	return c, nil
}

func (d *decoder) switchStmt(val, node *yaml.Node) (ast.Stmt, error) {
	f, err := d.fields(val, "cond", "body")
	if err != nil {
		return nil, err
	}
	d.pushScope()
	defer d.popScope()

	stmt := &ast.SwitchStmt{Pos: d.pos(node)}
	if stmt.Cond, err = d.cond(f["cond"], node); err != nil {
		return nil, err
	}

	d.switches = append(d.switches, stmt)
	target := d.pushTarget(false)
	if stmt.Body, err = d.body(f["body"], node); err != nil {
		return nil, err
	}
	d.popTarget()
	d.switches = d.switches[:len(d.switches)-1]
	stmt.Break = link(target.breaks)
	return stmt, nil
}

// caseLabel binds a case to the innermost switch
func (d *decoder) caseLabel(val, node *yaml.Node, isDefault bool) (ast.Stmt, error) {
	if len(d.switches) == 0 {
		return nil, d.errorf(node, "case label outside a switch")
	}
	sw := d.switches[len(d.switches)-1]
	label := &ast.CaseLabel{Pos: d.pos(node), IsDefault: isDefault}

	if isDefault {
		if sw.Default != nil {
			return nil, d.errorf(node, "duplicate default label")
		}
		sw.Default = label
		return label, nil
	}

	value, err := d.expr(orNode(val))
	if err != nil {
		return nil, err
	}
	label.Value = value
	for _, other := range sw.Cases {
		if sameCase(other.Value, value) {
			return nil, d.errorf(node, "duplicate case value")
		}
	}
	if _, ok := value.(*ast.StrLit); !ok {
		if _, folded := ast.Constant(value); !folded {
			return nil, d.errorf(node, "case value must be constant")
		}
	}
	sw.Cases = append(sw.Cases, label)
	return label, nil
}

func sameCase(a, b ast.Expr) bool {
	as, aStr := a.(*ast.StrLit)
	bs, bStr := b.(*ast.StrLit)
	if aStr || bStr {
		return aStr && bStr && as.Text == bs.Text
	}
	av, _ := ast.Constant(a)
	bv, _ := ast.Constant(b)
	return av == bv
}

func (d *decoder) exprStmt(val, node *yaml.Node) (ast.Stmt, error) {
	exprs, err := d.exprList(orNode(val))
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Pos: d.pos(node), Exprs: exprs}, nil
}

// exprList decodes a list of expressions, or a single one
func (d *decoder) exprList(node *yaml.Node) ([]ast.Expr, error) {
	if node.Kind != yaml.SequenceNode {
		e, err := d.expr(node)
		if err != nil {
			return nil, err
		}
		return []ast.Expr{e}, nil
	}
	exprs := make([]ast.Expr, 0, len(node.Content))
	for _, item := range node.Content {
		e, err := d.expr(item)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func (d *decoder) assertStmt(val, node *yaml.Node) (ast.Stmt, error) {
	f, err := d.fields(val, "cond", "message", "static")
	if err != nil {
		return nil, err
	}
	stmt := &ast.AssertStmt{Pos: d.pos(node), File: d.file}
	if f["cond"] == nil {
		return nil, d.errorf(node, "assert without a condition")
	}
	if stmt.Cond, err = d.expr(f["cond"]); err != nil {
		return nil, err
	}
	if n := f["message"]; n != nil {
		stmt.Message = n.Value
	}
	if n := f["static"]; n != nil {
		if err := n.Decode(&stmt.Static); err != nil {
			return nil, d.errorf(n, "static must be a boolean")
		}
	}
	return stmt, nil
}

func (d *decoder) palTrans(val, node *yaml.Node) (ast.Stmt, error) {
	f, err := d.fields(val, "number", "ranges")
	if err != nil {
		return nil, err
	}
	stmt := &ast.PalTransStmt{Pos: d.pos(node)}
	if stmt.Number, err = d.expr(orNode(f["number"])); err != nil {
		return nil, err
	}
	ranges := f["ranges"]
	if ranges == nil || ranges.Kind != yaml.SequenceNode {
		return nil, d.errorf(node, "paltrans needs a list of ranges")
	}
	for _, rn := range ranges.Content {
		rf, err := d.fields(rn, "begin", "end", "rgb", "to")
		if err != nil {
			return nil, err
		}
		var r ast.PalRange
		if r.Begin, err = d.expr(orNode(rf["begin"])); err != nil {
			return nil, err
		}
		if r.End, err = d.expr(orNode(rf["end"])); err != nil {
			return nil, err
		}
		if n := rf["rgb"]; n != nil {
			values, err := d.exprList(n)
			if err != nil {
				return nil, err
			}
			if len(values) != 6 {
				return nil, d.errorf(n, "rgb range needs 6 values, got %d", len(values))
			}
			r.RGB = true
			r.Red1, r.Green1, r.Blue1 = values[0], values[1], values[2]
			r.Red2, r.Green2, r.Blue2 = values[3], values[4], values[5]
		} else {
			values, err := d.exprList(orNode(rf["to"]))
			if err != nil {
				return nil, err
			}
			if len(values) != 2 {
				return nil, d.errorf(rn, "palette range needs 2 target values, got %d", len(values))
			}
			r.EntBegin, r.EntEnd = values[0], values[1]
		}
		stmt.Ranges = append(stmt.Ranges, r)
	}
	return stmt, nil
}

func (d *decoder) inlineAsm(val, node *yaml.Node) (ast.Stmt, error) {
	f, err := d.fields(val, "op", "args")
	if err != nil {
		return nil, err
	}
	stmt := &ast.InlineAsmStmt{Pos: d.pos(node)}
	if stmt.Opcode, err = d.scalar(f["op"], "instruction name"); err != nil {
		return nil, err
	}
	if n := f["args"]; n != nil {
		if err := n.Decode(&stmt.Args); err != nil {
			return nil, d.errorf(n, "instruction arguments: %v", err)
		}
	}
	return stmt, nil
}
