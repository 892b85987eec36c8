package ast

// Position locates a node in its source file
type Position struct {
	File   string
	Line   int
	Column int
}

// Node is the base interface for all tree nodes
type Node interface {
	Position() Position
}

// Expr represents an expression node
type Expr interface {
	Node
	Info() *ExprInfo
	exprNode()
}

// Stmt represents a statement or block item
type Stmt interface {
	Node
	stmtNode()
}

// Spec is the value type of an expression or variable
type Spec int

const (
	SpecInt Spec = iota
	SpecFixed
	SpecBool
	SpecStr
	SpecRaw
	SpecVoid
)

var specNames = map[Spec]string{
	SpecInt:   "int",
	SpecFixed: "fixed",
	SpecBool:  "bool",
	SpecStr:   "str",
	SpecRaw:   "raw",
	SpecVoid:  "void",
}

func (s Spec) String() string {
	if name, ok := specNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSpec maps a type name to its Spec
func ParseSpec(name string) (Spec, bool) {
	for spec, n := range specNames {
		if n == name {
			return spec, true
		}
	}
	return 0, false
}

// Storage is where a variable or array lives
type Storage int

const (
	StorageLocal Storage = iota
	StorageMap
	StorageWorld
	StorageGlobal
)

var storageNames = map[Storage]string{
	StorageLocal:  "local",
	StorageMap:    "map",
	StorageWorld:  "world",
	StorageGlobal: "global",
}

func (s Storage) String() string {
	if name, ok := storageNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStorage maps a storage name to its Storage
func ParseStorage(name string) (Storage, bool) {
	for storage, n := range storageNames {
		if n == name {
			return storage, true
		}
	}
	return 0, false
}

// ExprInfo carries the type and the front end's constant-fold result.
// Value is meaningful only when Folded is set.
type ExprInfo struct {
	Type   Spec
	Folded bool
	Value  int32
}

func (i *ExprInfo) Info() *ExprInfo { return i }

// Constant reports the folded value of e, if any
func Constant(e Expr) (int32, bool) {
	if e == nil {
		return 0, false
	}
	info := e.Info()
	return info.Value, info.Folded
}

// Var is a declared variable. Index is fixed by the front end for non-local
// storage; local slots are assigned during lowering.
type Var struct {
	Pos     Position
	Name    string
	Type    Spec
	Storage Storage
	Index   int
	Size    int // number of slots, 0 means 1
	Initial Expr
}

// Slots returns the number of storage slots the variable occupies
func (v *Var) Slots() int {
	if v.Size < 1 {
		return 1
	}
	return v.Size
}

// Cond is a condition that is either a variable declaration or an expression
type Cond struct {
	Var  *Var
	Expr Expr
}

// Type returns the value type of the condition
func (c *Cond) Type() Spec {
	if c.Var != nil {
		return c.Var.Type
	}
	return c.Expr.Info().Type
}

// Constant reports the folded value of an expression condition.
// A declaration is never constant.
func (c *Cond) Constant() (int32, bool) {
	if c == nil || c.Var != nil {
		return 0, false
	}
	return Constant(c.Expr)
}
