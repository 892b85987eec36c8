// Package fixture builds statement trees from YAML program fixtures. It
// stands in for a language front end: it resolves names, links break and
// continue statements to their construct, binds case labels and goto
// labels, and folds constant expressions.
package fixture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bcc/ast"
	"bcc/codegen"
)

// Source is a program fixture as written in YAML
type Source struct {
	Name   string    `yaml:"name"`
	File   string    `yaml:"file,omitempty"`   // reported by assertions
	Kind   string    `yaml:"kind,omitempty"`   // script, function or nested
	Return string    `yaml:"return,omitempty"` // return type, void by default
	Params []string  `yaml:"params,omitempty"`
	Body   yaml.Node `yaml:"body"`
}

// Program is a decoded fixture, ready for lowering
type Program struct {
	Name   string
	Kind   codegen.FuncKind
	Return ast.Spec
	Params []*ast.Var
	Body   *ast.Block
	Vars   map[string]*ast.Var // last declaration of each name
	Arrays []*Array
}

// Array is an array declared by a fixture, with its initial contents
type Array struct {
	Name        string
	Storage     ast.Storage
	Index       int
	Length      int // elements of the iterated dimension
	ElementSize int
	Item        ast.ItemKind
	StructSize  int
	DimInfo     int
	Values      []int32
}

var funcKinds = map[string]codegen.FuncKind{
	"":         codegen.FuncScript,
	"script":   codegen.FuncScript,
	"function": codegen.FuncFunction,
	"nested":   codegen.FuncNested,
}

// Decode builds the statement tree of a fixture
func Decode(src *Source) (*Program, error) {
	kind, ok := funcKinds[src.Kind]
	if !ok {
		return nil, fmt.Errorf("fixture %s: unknown kind %q", src.Name, src.Kind)
	}
	ret := ast.SpecVoid
	if src.Return != "" {
		if ret, ok = ast.ParseSpec(src.Return); !ok {
			return nil, fmt.Errorf("fixture %s: unknown return type %q", src.Name, src.Return)
		}
	}

	file := src.File
	if file == "" {
		file = src.Name
	}
	d := newDecoder(file)
	prog := &Program{
		Name:   src.Name,
		Kind:   kind,
		Return: ret,
		Vars:   d.vars,
	}

	d.pushScope()
	for _, name := range src.Params {
		v := &ast.Var{Name: name, Type: ast.SpecInt, Storage: ast.StorageLocal}
		d.declare(v)
		prog.Params = append(prog.Params, v)
	}

	if src.Body.Kind == 0 {
		return nil, fmt.Errorf("fixture %s: missing body", src.Name)
	}
	body, err := d.block(&src.Body)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", src.Name, err)
	}
	if err := d.resolveGotos(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", src.Name, err)
	}
	prog.Body = body
	prog.Arrays = d.arrayList
	return prog, nil
}

// DecodeFile reads a YAML document holding a list of fixtures
func DecodeFile(path string) ([]*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var sources []Source
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	progs := make([]*Program, 0, len(sources))
	for i := range sources {
		if sources[i].File == "" {
			sources[i].File = path
		}
		prog, err := Decode(&sources[i])
		if err != nil {
			return nil, err
		}
		progs = append(progs, prog)
	}
	return progs, nil
}
