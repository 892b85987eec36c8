package pcode

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Instruction is one resolved instruction. Target is the instruction index
// a branch lands on (-1 for non-branches).
type Instruction struct {
	Op     Opcode
	Args   []int32
	Target int
	Cases  []ResolvedCase
}

// ResolvedCase is a case-table entry with its target resolved
type ResolvedCase struct {
	Value  int32
	Target int
}

// Program represents one assembled function or script
type Program struct {
	Name      string
	Code      []Instruction
	Strings   []string    // String table
	LineInfo  []LineEntry // Source line mapping
	NumLocals int         // Frame size in slots
}

// LineEntry maps an instruction index to a source line
type LineEntry struct {
	StartIP int // First instruction for this line
	Line    int // Source line number
}

// LineForIP returns the source line number for a given instruction
func (p *Program) LineForIP(ip int) int {
	for i := len(p.LineInfo) - 1; i >= 0; i-- {
		if p.LineInfo[i].StartIP <= ip {
			return p.LineInfo[i].Line
		}
	}
	return 0
}

// Assemble resolves the points of a stream into instruction indexes. Each
// point resolves to the instruction that follows it; case tables are sorted
// by value for the target machine's binary search.
func Assemble(name string, s *Stream, strs *StringTable, numLocals int) (*Program, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	// Pass 1: instruction index of every point.
	pointIP := make([]int, len(s.points))
	ip := 0
	for _, n := range s.nodes {
		if n.Kind == NodePoint {
			pointIP[n.Point] = ip
			continue
		}
		ip++
	}

	// Pass 2: build instructions and the line table.
	prog := &Program{
		Name:      name,
		Code:      make([]Instruction, 0, ip),
		NumLocals: numLocals,
	}
	if strs != nil {
		prog.Strings = strs.Strings()
	}
	lines := s.lines
	for i, n := range s.nodes {
		for len(lines) > 0 && lines[0].node <= i {
			prog.LineInfo = append(prog.LineInfo, LineEntry{StartIP: len(prog.Code), Line: lines[0].line})
			lines = lines[1:]
		}
		switch n.Kind {
		case NodePoint:
			continue
		case NodeInstr:
			prog.Code = append(prog.Code, Instruction{Op: n.Op, Args: n.Args, Target: -1})
		case NodeJump:
			prog.Code = append(prog.Code, Instruction{
				Op:     n.Op,
				Target: pointIP[s.jumps[n.Jump].target],
			})
		case NodeCaseJump:
			prog.Code = append(prog.Code, Instruction{
				Op:     n.Op,
				Args:   n.Args,
				Target: pointIP[n.Point],
			})
		case NodeSortedCaseJump:
			table := s.tables[n.Table]
			cases := make([]ResolvedCase, len(table))
			for k, c := range table {
				cases[k] = ResolvedCase{Value: c.Value, Target: pointIP[c.Point]}
			}
			sort.SliceStable(cases, func(a, b int) bool { return cases[a].Value < cases[b].Value })
			prog.Code = append(prog.Code, Instruction{Op: n.Op, Target: -1, Cases: cases})
		default:
			return nil, internalf("unknown node kind %d", n.Kind)
		}
	}
	return prog, nil
}

// Encode serializes the program: every instruction is its opcode byte
// followed by big-endian 32-bit operands, branch targets and case tables.
func (p *Program) Encode() []byte {
	out := make([]byte, 0, len(p.Code)*5)
	put := func(v int32) {
		out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	for _, in := range p.Code {
		out = append(out, byte(in.Op))
		for _, a := range in.Args {
			put(a)
		}
		switch {
		case in.Op == OP_CASE_GOTO_SORTED:
			put(int32(len(in.Cases)))
			for _, c := range in.Cases {
				put(c.Value)
				put(int32(c.Target))
			}
		case in.Target >= 0:
			put(int32(in.Target))
		}
	}
	return out
}

// Digest returns a hex BLAKE2b-256 fingerprint of the encoded program and
// its string table
func (p *Program) Digest() string {
	h, _ := blake2b.New256(nil)
	h.Write(p.Encode())
	for _, s := range p.Strings {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Count returns how many instructions use op
func (p *Program) Count(op Opcode) int {
	n := 0
	for _, in := range p.Code {
		if in.Op == op {
			n++
		}
	}
	return n
}

// Disassemble writes a readable listing of the program
func (p *Program) Disassemble(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "=== %s (locals=%d, instrs=%d) ===\n", p.Name, p.NumLocals, len(p.Code)); err != nil {
		return err
	}
	for ip, in := range p.Code {
		var b strings.Builder
		fmt.Fprintf(&b, "%04d  %-22s", ip, in.Op)
		for _, a := range in.Args {
			fmt.Fprintf(&b, " %d", a)
		}
		switch {
		case in.Op == OP_CASE_GOTO_SORTED:
			for _, c := range in.Cases {
				fmt.Fprintf(&b, " [%d -> %04d]", c.Value, c.Target)
			}
		case in.Target >= 0:
			fmt.Fprintf(&b, " -> %04d", in.Target)
		}
		if line := p.LineForIP(ip); line > 0 && (ip == 0 || p.LineForIP(ip-1) != line) {
			fmt.Fprintf(&b, "    ; line %d", line)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
