package pcode

import "fmt"

// PointID indexes a Point record in a Stream
type PointID int32

// JumpID indexes a Jump record in a Stream
type JumpID int32

// TableID indexes a sorted case table in a Stream
type TableID int32

// NoPoint marks a Jump whose target has not been patched yet
const NoPoint PointID = -1

// NodeKind identifies what a stream node holds
type NodeKind uint8

const (
	NodeInstr NodeKind = iota
	NodePoint
	NodeJump
	NodeCaseJump
	NodeSortedCaseJump
)

// Node is one entry of the instruction stream, in emission order
type Node struct {
	Kind  NodeKind
	Op    Opcode
	Args  []int32
	Point PointID // NodePoint: the point itself; NodeCaseJump: its target
	Jump  JumpID  // NodeJump
	Table TableID // NodeSortedCaseJump
}

// Case is one entry of a case table
type Case struct {
	Value int32
	Point PointID
}

// InternalError reports a broken lowering invariant. It is never caused by
// user source and is not recoverable.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Msg
}

func internalf(format string, args ...interface{}) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

type jumpRecord struct {
	node   int
	target PointID
}

type lineMark struct {
	node int
	line int
}

// Stream is the per-function instruction arena. Points, jumps and case
// tables are records referenced by index; nodes are kept in the order the
// emission calls were made.
type Stream struct {
	nodes  []Node
	points []int // node index of each point, -1 until appended
	jumps  []jumpRecord
	tables [][]Case
	lines  []lineMark
}

// NewStream creates an empty stream
func NewStream() *Stream {
	return &Stream{
		nodes:  make([]Node, 0, 64),
		points: make([]int, 0, 16),
		jumps:  make([]jumpRecord, 0, 16),
	}
}

// CreatePoint creates a point that is not yet part of the stream
func (s *Stream) CreatePoint() PointID {
	s.points = append(s.points, -1)
	return PointID(len(s.points) - 1)
}

// AppendPoint inserts p at the current end of the stream. A point can be
// appended only once.
func (s *Stream) AppendPoint(p PointID) {
	s.checkPoint(p)
	if s.points[p] >= 0 {
		panic(internalf("point %d appended twice", p))
	}
	s.points[p] = len(s.nodes)
	s.nodes = append(s.nodes, Node{Kind: NodePoint, Point: p})
}

// Appended reports whether p is already part of the stream
func (s *Stream) Appended(p PointID) bool {
	s.checkPoint(p)
	return s.points[p] >= 0
}

// EmitJump inserts a branch at the end of the stream; its target is
// assigned later with Patch
func (s *Stream) EmitJump(op Opcode) JumpID {
	if !IsJump(op) {
		panic(internalf("%s is not a jump opcode", op))
	}
	id := JumpID(len(s.jumps))
	s.jumps = append(s.jumps, jumpRecord{node: len(s.nodes), target: NoPoint})
	s.nodes = append(s.nodes, Node{Kind: NodeJump, Op: op, Jump: id})
	return id
}

// Patch assigns the target of j
func (s *Stream) Patch(j JumpID, p PointID) {
	s.checkJump(j)
	s.checkPoint(p)
	if s.jumps[j].target != NoPoint {
		panic(internalf("jump %d patched twice", j))
	}
	s.jumps[j].target = p
}

// Target returns the point j branches to, or NoPoint
func (s *Stream) Target(j JumpID) PointID {
	s.checkJump(j)
	return s.jumps[j].target
}

// JumpOpcode returns the branch opcode of j
func (s *Stream) JumpOpcode(j JumpID) Opcode {
	s.checkJump(j)
	return s.nodes[s.jumps[j].node].Op
}

// Emit appends a plain instruction
func (s *Stream) Emit(op Opcode, args ...int32) {
	if IsJump(op) || op == OP_CASE_GOTO || op == OP_CASE_GOTO_SORTED {
		panic(internalf("%s must be emitted through its jump helper", op))
	}
	if len(args) != ArgCount(op) {
		panic(internalf("%s takes %d arguments, got %d", op, ArgCount(op), len(args)))
	}
	var copied []int32
	if len(args) > 0 {
		copied = append(copied, args...)
	}
	s.nodes = append(s.nodes, Node{Kind: NodeInstr, Op: op, Args: copied})
}

// EmitCaseJump appends a case-dispatch branch to p taken when the top of
// the stack equals value
func (s *Stream) EmitCaseJump(value int32, p PointID) {
	s.checkPoint(p)
	s.nodes = append(s.nodes, Node{
		Kind:  NodeCaseJump,
		Op:    OP_CASE_GOTO,
		Args:  []int32{value},
		Point: p,
	})
}

// EmitSortedCaseJump appends a multiway dispatch whose table is filled
// with AddCase
func (s *Stream) EmitSortedCaseJump() TableID {
	id := TableID(len(s.tables))
	s.tables = append(s.tables, nil)
	s.nodes = append(s.nodes, Node{Kind: NodeSortedCaseJump, Op: OP_CASE_GOTO_SORTED, Table: id})
	return id
}

// AddCase appends an entry to a case table, in the order given
func (s *Stream) AddCase(t TableID, value int32, p PointID) {
	if t < 0 || int(t) >= len(s.tables) {
		panic(internalf("unknown case table %d", t))
	}
	s.checkPoint(p)
	s.tables[t] = append(s.tables[t], Case{Value: value, Point: p})
}

// Cases returns the entries of a case table
func (s *Stream) Cases(t TableID) []Case {
	return s.tables[t]
}

// MarkLine records that the instructions emitted from now on belong to
// the given source line
func (s *Stream) MarkLine(line int) {
	if line <= 0 {
		return
	}
	if n := len(s.lines); n > 0 && s.lines[n-1].line == line {
		return
	}
	s.lines = append(s.lines, lineMark{node: len(s.nodes), line: line})
}

// Len returns the number of nodes in the stream
func (s *Stream) Len() int {
	return len(s.nodes)
}

// Nodes returns the stream nodes in emission order. The slice must not be
// modified.
func (s *Stream) Nodes() []Node {
	return s.nodes
}

// NumPoints returns the number of points created
func (s *Stream) NumPoints() int {
	return len(s.points)
}

// NumJumps returns the number of jumps created
func (s *Stream) NumJumps() int {
	return len(s.jumps)
}

// Unpatched returns the jumps that have no target yet
func (s *Stream) Unpatched() []JumpID {
	var out []JumpID
	for i, j := range s.jumps {
		if j.target == NoPoint {
			out = append(out, JumpID(i))
		}
	}
	return out
}

// Validate checks that every branch targets a point that is part of the
// stream
func (s *Stream) Validate() error {
	if open := s.Unpatched(); len(open) > 0 {
		return internalf("%d unpatched jump(s), first at node %d", len(open), s.jumps[open[0]].node)
	}
	for i, j := range s.jumps {
		if s.points[j.target] < 0 {
			return internalf("jump %d targets point %d which was never appended", i, j.target)
		}
	}
	for _, n := range s.nodes {
		if n.Kind == NodeCaseJump && s.points[n.Point] < 0 {
			return internalf("case jump targets point %d which was never appended", n.Point)
		}
	}
	for t, table := range s.tables {
		for _, c := range table {
			if s.points[c.Point] < 0 {
				return internalf("case table %d targets point %d which was never appended", t, c.Point)
			}
		}
	}
	return nil
}

func (s *Stream) checkPoint(p PointID) {
	if p < 0 || int(p) >= len(s.points) {
		panic(internalf("unknown point %d", p))
	}
}

func (s *Stream) checkJump(j JumpID) {
	if j < 0 || int(j) >= len(s.jumps) {
		panic(internalf("unknown jump %d", j))
	}
}
