package fixture

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"bcc/ast"
)

// jumpTarget collects the break and continue statements that belong to one
// loop or switch
type jumpTarget struct {
	loop      bool // only loops take continue
	breaks    []*ast.JumpStmt
	continues []*ast.JumpStmt
}

type pendingGoto struct {
	stmt *ast.GotoStmt
	name string
	node *yaml.Node
}

type decoder struct {
	file      string
	scopes    []map[string]*ast.Var
	vars      map[string]*ast.Var
	arrays    map[string]*Array
	arrayList []*Array
	labels    map[string]*ast.LabelStmt
	gotos     []pendingGoto
	targets   []*jumpTarget
	switches  []*ast.SwitchStmt
}

func newDecoder(file string) *decoder {
	return &decoder{
		file:   file,
		vars:   make(map[string]*ast.Var),
		arrays: make(map[string]*Array),
		labels: make(map[string]*ast.LabelStmt),
	}
}

func (d *decoder) errorf(node *yaml.Node, format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", node.Line, fmt.Sprintf(format, args...))
}

func (d *decoder) pos(node *yaml.Node) ast.Position {
	return ast.Position{File: d.file, Line: node.Line, Column: node.Column}
}

// Scopes

func (d *decoder) pushScope() {
	d.scopes = append(d.scopes, make(map[string]*ast.Var))
}

func (d *decoder) popScope() {
	d.scopes = d.scopes[:len(d.scopes)-1]
}

func (d *decoder) declare(v *ast.Var) {
	d.scopes[len(d.scopes)-1][v.Name] = v
	d.vars[v.Name] = v
}

func (d *decoder) lookup(name string) (*ast.Var, bool) {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if v, ok := d.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Jump targets

func (d *decoder) pushTarget(loop bool) *jumpTarget {
	t := &jumpTarget{loop: loop}
	d.targets = append(d.targets, t)
	return t
}

func (d *decoder) popTarget() {
	d.targets = d.targets[:len(d.targets)-1]
}

// link chains the statements of a pending list and returns its head
func link(list []*ast.JumpStmt) *ast.JumpStmt {
	for i := 0; i+1 < len(list); i++ {
		list[i].Next = list[i+1]
	}
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

func (d *decoder) jump(node *yaml.Node, kind ast.JumpKind) (*ast.JumpStmt, error) {
	stmt := &ast.JumpStmt{Pos: d.pos(node), Kind: kind}
	for i := len(d.targets) - 1; i >= 0; i-- {
		t := d.targets[i]
		if kind == ast.JumpBreak {
			t.breaks = append(t.breaks, stmt)
			return stmt, nil
		}
		if t.loop {
			t.continues = append(t.continues, stmt)
			return stmt, nil
		}
	}
	if kind == ast.JumpBreak {
		return nil, d.errorf(node, "break outside a loop or switch")
	}
	return nil, d.errorf(node, "continue outside a loop")
}

// Labels

func (d *decoder) label(node *yaml.Node, name string) (*ast.LabelStmt, error) {
	if _, ok := d.labels[name]; ok {
		return nil, d.errorf(node, "duplicate label %q", name)
	}
	label := &ast.LabelStmt{Pos: d.pos(node), Name: name}
	d.labels[name] = label
	return label, nil
}

func (d *decoder) resolveGotos() error {
	for _, g := range d.gotos {
		label, ok := d.labels[g.name]
		if !ok {
			return d.errorf(g.node, "goto to unknown label %q", g.name)
		}
		g.stmt.Label = label
	}
	return nil
}

// Node helpers

// single splits a one-key mapping. A bare scalar is a key with no value.
func (d *decoder) single(node *yaml.Node) (string, *yaml.Node, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value, nil, nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return "", nil, d.errorf(node, "expected a single-key mapping, got %d keys", len(node.Content)/2)
		}
		return node.Content[0].Value, node.Content[1], nil
	default:
		return "", nil, d.errorf(node, "expected a mapping or a scalar")
	}
}

// fields returns the values of a mapping by key, rejecting keys that are
// not allowed
func (d *decoder) fields(node *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, d.errorf(orNode(node), "expected a mapping with fields %s", strings.Join(allowed, ", "))
	}
	out := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !contains(allowed, key) {
			return nil, d.errorf(node.Content[i], "unknown field %q", key)
		}
		out[key] = node.Content[i+1]
	}
	return out, nil
}

func (d *decoder) scalar(node *yaml.Node, what string) (string, error) {
	if node == nil || node.Kind != yaml.ScalarNode {
		return "", d.errorf(orNode(node), "%s must be a scalar", what)
	}
	return node.Value, nil
}

func (d *decoder) integer(node *yaml.Node, what string) (int, error) {
	var v int
	if node == nil || node.Kind != yaml.ScalarNode || node.Decode(&v) != nil {
		return 0, d.errorf(orNode(node), "%s must be an integer", what)
	}
	return v, nil
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

func orNode(node *yaml.Node) *yaml.Node {
	if node == nil {
		return &yaml.Node{}
	}
	return node
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
