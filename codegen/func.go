package codegen

import (
	"bcc/ast"
	"bcc/pcode"
)

// FuncKind selects how a function body ends
type FuncKind int

const (
	FuncScript   FuncKind = iota // terminates
	FuncFunction                 // returns directly
	FuncNested                   // returns through a single epilogue
)

// Func is the lowering context of one function or script body. Nothing in
// it outlives the lowering of that body.
type Func struct {
	Name       string
	Kind       FuncKind
	ReturnType ast.Spec
	StartIndex int // first slot after the parameters

	size     int // frame high-water mark
	stream   *pcode.Stream
	scope    *scopeFrame
	slots    map[*ast.Var]int
	labels   map[*ast.LabelStmt]pcode.PointID
	cases    map[*ast.CaseLabel]pcode.PointID
	jumps    map[*ast.JumpStmt]pcode.JumpID
	epilogue []pcode.JumpID
	lowerer  *Lowerer
}

// NewFunc creates the context for one function. Parameters take the first
// slots of the frame.
func (l *Lowerer) NewFunc(name string, kind FuncKind, ret ast.Spec, params []*ast.Var) *Func {
	fn := &Func{
		Name:       name,
		Kind:       kind,
		ReturnType: ret,
		stream:     pcode.NewStream(),
		slots:      make(map[*ast.Var]int),
		labels:     make(map[*ast.LabelStmt]pcode.PointID),
		cases:      make(map[*ast.CaseLabel]pcode.PointID),
		jumps:      make(map[*ast.JumpStmt]pcode.JumpID),
		lowerer:    l,
	}
	for _, p := range params {
		fn.slots[p] = fn.StartIndex
		fn.StartIndex += p.Slots()
	}
	fn.size = fn.StartIndex
	fn.scope = &scopeFrame{index: fn.StartIndex, size: fn.size}
	return fn
}

// Stream returns the instruction stream of the function
func (fn *Func) Stream() *pcode.Stream {
	return fn.stream
}

// Size returns the frame size: the most slots ever live at once
func (fn *Func) Size() int {
	return fn.size
}

// Emit appends a plain instruction
func (fn *Func) Emit(op pcode.Opcode, args ...int32) {
	fn.stream.Emit(op, args...)
}

// PushNumber pushes an immediate value
func (fn *Func) PushNumber(v int32) {
	fn.stream.Emit(pcode.OP_PUSH_NUMBER, v)
}

// PushString pushes the string-table index of s
func (fn *Func) PushString(s string) {
	fn.PushNumber(fn.lowerer.strings.Intern(s))
}

// Slot returns the storage index of v: its frame slot for locals, its
// declared index otherwise
func (fn *Func) Slot(v *ast.Var) int {
	if v.Storage != ast.StorageLocal {
		return v.Index
	}
	slot, ok := fn.slots[v]
	if !ok {
		unreachable(v.Pos, "local %q used before its declaration was lowered", v.Name)
	}
	return slot
}

// LocalSlot reports the frame slot lowering gave v, if any
func (fn *Func) LocalSlot(v *ast.Var) (int, bool) {
	slot, ok := fn.slots[v]
	return slot, ok
}

// BindLocal gives v the given frame slot
func (fn *Func) BindLocal(v *ast.Var, slot int) {
	fn.slots[v] = slot
}

// PushVar pushes the value held in slot offset of v
func (fn *Func) PushVar(v *ast.Var, offset int) {
	idx := int32(fn.Slot(v) + offset)
	switch v.Storage {
	case ast.StorageLocal:
		fn.Emit(pcode.OP_PUSH_SCRIPT_VAR, idx)
	case ast.StorageMap:
		fn.Emit(pcode.OP_PUSH_MAP_VAR, idx)
	case ast.StorageWorld:
		fn.Emit(pcode.OP_PUSH_WORLD_VAR, idx)
	case ast.StorageGlobal:
		fn.Emit(pcode.OP_PUSH_GLOBAL_VAR, idx)
	default:
		unreachable(v.Pos, "variable %q has unknown storage %d", v.Name, v.Storage)
	}
}

// AssignVar pops the top of the stack into slot offset of v
func (fn *Func) AssignVar(v *ast.Var, offset int) {
	idx := int32(fn.Slot(v) + offset)
	switch v.Storage {
	case ast.StorageLocal:
		fn.Emit(pcode.OP_ASSIGN_SCRIPT_VAR, idx)
	case ast.StorageMap:
		fn.Emit(pcode.OP_ASSIGN_MAP_VAR, idx)
	case ast.StorageWorld:
		fn.Emit(pcode.OP_ASSIGN_WORLD_VAR, idx)
	case ast.StorageGlobal:
		fn.Emit(pcode.OP_ASSIGN_GLOBAL_VAR, idx)
	default:
		unreachable(v.Pos, "variable %q has unknown storage %d", v.Name, v.Storage)
	}
}

// PatchEpilogue points every return of a nested function at the epilogue
func (fn *Func) PatchEpilogue(p pcode.PointID) {
	for _, j := range fn.epilogue {
		fn.stream.Patch(j, p)
	}
	fn.epilogue = nil
}

// EpilogueJumps returns the return jumps still waiting for the epilogue
func (fn *Func) EpilogueJumps() []pcode.JumpID {
	return fn.epilogue
}

func (fn *Func) labelPoint(label *ast.LabelStmt) pcode.PointID {
	p, ok := fn.labels[label]
	if !ok {
		p = fn.stream.CreatePoint()
		fn.labels[label] = p
	}
	return p
}
