package ast

// IntLit is a numeric literal
type IntLit struct {
	ExprInfo
	Pos Position
}

func (e *IntLit) Position() Position { return e.Pos }
func (e *IntLit) exprNode()          {}

// NewInt builds a folded integer literal
func NewInt(v int32) *IntLit {
	return &IntLit{ExprInfo: ExprInfo{Type: SpecInt, Folded: true, Value: v}}
}

// StrLit is a string literal; Value holds its string-table index
type StrLit struct {
	ExprInfo
	Pos  Position
	Text string
}

func (e *StrLit) Position() Position { return e.Pos }
func (e *StrLit) exprNode()          {}

// VarRef reads a variable
type VarRef struct {
	ExprInfo
	Pos Position
	Var *Var
}

func (e *VarRef) Position() Position { return e.Pos }
func (e *VarRef) exprNode()          {}

// Operator identifies a unary or binary operation
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogAnd
	OpLogOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpNeg
	OpNot
	OpBitNot
)

var operatorNames = map[Operator]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpEq:     "==",
	OpNe:     "!=",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpLogAnd: "&&",
	OpLogOr:  "||",
	OpBitAnd: "&",
	OpBitOr:  "|",
	OpBitXor: "^",
	OpShl:    "<<",
	OpShr:    ">>",
	OpNeg:    "neg",
	OpNot:    "!",
	OpBitNot: "~",
}

func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return "?"
}

// IsUnary reports whether op takes a single operand
func (op Operator) IsUnary() bool {
	return op == OpNeg || op == OpNot || op == OpBitNot
}

// ParseOperator maps an operator symbol to its Operator
func ParseOperator(sym string) (Operator, bool) {
	for op, name := range operatorNames {
		if name == sym {
			return op, true
		}
	}
	return 0, false
}

// Unary represents a unary operation
type Unary struct {
	ExprInfo
	Pos     Position
	Op      Operator
	Operand Expr
}

func (e *Unary) Position() Position { return e.Pos }
func (e *Unary) exprNode()          {}

// Binary represents a binary operation
type Binary struct {
	ExprInfo
	Pos   Position
	Op    Operator
	Left  Expr
	Right Expr
}

func (e *Binary) Position() Position { return e.Pos }
func (e *Binary) exprNode()          {}

// Assign stores Value into Target
type Assign struct {
	ExprInfo
	Pos    Position
	Target *Var
	Value  Expr
}

func (e *Assign) Position() Position { return e.Pos }
func (e *Assign) exprNode()          {}

// Call invokes a runtime extension function
type Call struct {
	ExprInfo
	Pos  Position
	Func int32
	Args []Expr
}

func (e *Call) Position() Position { return e.Pos }
func (e *Call) exprNode()          {}
