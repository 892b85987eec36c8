package ast

// Block is a compound statement
type Block struct {
	Pos   Position
	Stmts []Stmt
}

func (s *Block) Position() Position { return s.Pos }
func (s *Block) stmtNode()          {}

// VarDecl declares a variable inside a block
type VarDecl struct {
	Pos Position
	Var *Var
}

func (s *VarDecl) Position() Position { return s.Pos }
func (s *VarDecl) stmtNode()          {}

// DeclKind identifies declarations that produce no code in a block
type DeclKind int

const (
	DeclEnumeration DeclKind = iota
	DeclTypeAlias
	DeclFunc
	DeclStructure
	DeclUsing
)

// DeclStmt is a declaration-only block item
type DeclStmt struct {
	Pos  Position
	Kind DeclKind
	Name string
}

func (s *DeclStmt) Position() Position { return s.Pos }
func (s *DeclStmt) stmtNode()          {}

// IfStmt represents if/else
type IfStmt struct {
	Pos  Position
	Cond Cond
	Body Stmt
	Else Stmt // nil when absent
}

func (s *IfStmt) Position() Position { return s.Pos }
func (s *IfStmt) stmtNode()          {}

// SwitchStmt represents a switch. Cases lists the case labels of the body
// in declaration order, excluding the default label.
type SwitchStmt struct {
	Pos     Position
	Cond    Cond
	Body    Stmt
	Cases   []*CaseLabel
	Default *CaseLabel
	Break   *JumpStmt // head of the break pending list
}

func (s *SwitchStmt) Position() Position { return s.Pos }
func (s *SwitchStmt) stmtNode()          {}

// CaseLabel marks a case (or the default case) inside a switch body
type CaseLabel struct {
	Pos       Position
	Value     Expr // folded; nil for default
	IsDefault bool
}

func (s *CaseLabel) Position() Position { return s.Pos }
func (s *CaseLabel) stmtNode()          {}

// WhileKind distinguishes the while-family loops
type WhileKind int

const (
	WhileWhile WhileKind = iota
	WhileUntil
	WhileDoWhile
	WhileDoUntil
)

var whileKindNames = map[WhileKind]string{
	WhileWhile:   "while",
	WhileUntil:   "until",
	WhileDoWhile: "do-while",
	WhileDoUntil: "do-until",
}

func (k WhileKind) String() string {
	if name, ok := whileKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// TestsFirst reports whether the condition is tested before the body runs
func (k WhileKind) TestsFirst() bool {
	return k == WhileWhile || k == WhileUntil
}

// LoopsWhileTrue reports whether the loop repeats on a true condition
func (k WhileKind) LoopsWhileTrue() bool {
	return k == WhileWhile || k == WhileDoWhile
}

// WhileStmt represents while, until, do-while and do-until loops
type WhileStmt struct {
	Pos      Position
	Kind     WhileKind
	Cond     Cond
	Body     Stmt
	Break    *JumpStmt
	Continue *JumpStmt
}

func (s *WhileStmt) Position() Position { return s.Pos }
func (s *WhileStmt) stmtNode()          {}

// ForStmt represents a for loop. Init items are *VarDecl or *ExprStmt.
type ForStmt struct {
	Pos      Position
	Init     []Stmt
	Cond     *Cond // nil when absent
	Post     []Expr
	Body     Stmt
	Break    *JumpStmt
	Continue *JumpStmt
}

func (s *ForStmt) Position() Position { return s.Pos }
func (s *ForStmt) stmtNode()          {}

// ForeachStmt iterates a collection
type ForeachStmt struct {
	Pos        Position
	Key        *Var // nil when not requested
	Value      *Var
	Collection *Collection
	Body       Stmt
	Break      *JumpStmt
	Continue   *JumpStmt
}

func (s *ForeachStmt) Position() Position { return s.Pos }
func (s *ForeachStmt) stmtNode()          {}

// JumpKind distinguishes break and continue
type JumpKind int

const (
	JumpBreak JumpKind = iota
	JumpContinue
)

// JumpStmt is a break or continue. Next links the statements that share
// the same enclosing target.
type JumpStmt struct {
	Pos  Position
	Kind JumpKind
	Next *JumpStmt
}

func (s *JumpStmt) Position() Position { return s.Pos }
func (s *JumpStmt) stmtNode()          {}

// ReturnStmt returns from a function
type ReturnStmt struct {
	Pos   Position
	Value Expr // nil for a void return
}

func (s *ReturnStmt) Position() Position { return s.Pos }
func (s *ReturnStmt) stmtNode()          {}

// LabelStmt is a goto target
type LabelStmt struct {
	Pos  Position
	Name string
}

func (s *LabelStmt) Position() Position { return s.Pos }
func (s *LabelStmt) stmtNode()          {}

// GotoStmt jumps to a label in the same function
type GotoStmt struct {
	Pos   Position
	Label *LabelStmt
}

func (s *GotoStmt) Position() Position { return s.Pos }
func (s *GotoStmt) stmtNode()          {}

// ExprStmt evaluates expressions for their side effects
type ExprStmt struct {
	Pos   Position
	Exprs []Expr
}

func (s *ExprStmt) Position() Position { return s.Pos }
func (s *ExprStmt) stmtNode()          {}

// AssertStmt is a static or runtime assertion
type AssertStmt struct {
	Pos     Position
	Cond    Expr
	Static  bool
	Message string // empty when absent
	File    string
}

func (s *AssertStmt) Position() Position { return s.Pos }
func (s *AssertStmt) stmtNode()          {}

// PalRange is one range of a palette translation. RGB ranges use Red1..Blue2,
// palette ranges use EntBegin/EntEnd.
type PalRange struct {
	Begin, End          Expr
	RGB                 bool
	Red1, Green1, Blue1 Expr
	Red2, Green2, Blue2 Expr
	EntBegin, EntEnd    Expr
}

// PalTransStmt creates a palette translation
type PalTransStmt struct {
	Pos    Position
	Number Expr
	Ranges []PalRange
}

func (s *PalTransStmt) Position() Position { return s.Pos }
func (s *PalTransStmt) stmtNode()          {}

// ScriptJumpKind distinguishes script control statements
type ScriptJumpKind int

const (
	ScriptTerminate ScriptJumpKind = iota
	ScriptSuspend
	ScriptRestart
)

// ScriptJumpStmt suspends, restarts or terminates the running script
type ScriptJumpStmt struct {
	Pos  Position
	Kind ScriptJumpKind
}

func (s *ScriptJumpStmt) Position() Position { return s.Pos }
func (s *ScriptJumpStmt) stmtNode()          {}

// InlineAsmStmt emits one instruction verbatim
type InlineAsmStmt struct {
	Pos    Position
	Opcode string
	Args   []int32
}

func (s *InlineAsmStmt) Position() Position { return s.Pos }
func (s *InlineAsmStmt) stmtNode()          {}
