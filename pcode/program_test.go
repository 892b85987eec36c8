package pcode

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func assembleLoop(t *testing.T, limit int32) *Program {
	t.Helper()
	s := NewStream()
	strs := NewStringTable()
	s.Emit(OP_PUSH_NUMBER, strs.Intern("loop"))
	s.Emit(OP_DROP)
	top := s.CreatePoint()
	s.AppendPoint(top)
	s.Emit(OP_PUSH_SCRIPT_VAR, 0)
	s.Emit(OP_PUSH_NUMBER, limit)
	s.Emit(OP_LT)
	exit := s.EmitJump(OP_IF_NOT_GOTO)
	s.Emit(OP_INC_SCRIPT_VAR, 0)
	s.Patch(s.EmitJump(OP_GOTO), top)
	end := s.CreatePoint()
	s.AppendPoint(end)
	s.Patch(exit, end)
	s.Emit(OP_TERMINATE)

	prog, err := Assemble("loop", s, strs, 1)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	return prog
}

func TestEncode(t *testing.T) {
	s := NewStream()
	s.Emit(OP_PUSH_NUMBER, 258)
	p := s.CreatePoint()
	s.Patch(s.EmitJump(OP_GOTO), p)
	s.AppendPoint(p)

	prog, err := Assemble("t", s, nil, 0)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	want := []byte{
		byte(OP_PUSH_NUMBER), 0, 0, 1, 2,
		byte(OP_GOTO), 0, 0, 0, 2,
	}
	if got := prog.Encode(); !bytes.Equal(got, want) {
		t.Errorf("Encode() = %v, want %v", got, want)
	}
}

func TestDigestIsStable(t *testing.T) {
	a := assembleLoop(t, 3)
	b := assembleLoop(t, 3)
	c := assembleLoop(t, 4)
	if a.Digest() != b.Digest() {
		t.Error("identical programs have different digests")
	}
	if a.Digest() == c.Digest() {
		t.Error("different programs have the same digest")
	}
	if len(a.Digest()) != 64 {
		t.Errorf("digest length = %d, want 64 hex digits", len(a.Digest()))
	}
}

func TestDigestCoversStrings(t *testing.T) {
	build := func(text string) *Program {
		s := NewStream()
		strs := NewStringTable()
		s.Emit(OP_PUSH_NUMBER, strs.Intern(text))
		prog, err := Assemble("t", s, strs, 0)
		if err != nil {
			t.Fatalf("Assemble() error: %v", err)
		}
		return prog
	}
	if build("a").Digest() == build("b").Digest() {
		t.Error("digest ignores the string table")
	}
}

func TestCount(t *testing.T) {
	prog := assembleLoop(t, 3)
	tests := []struct {
		op   Opcode
		want int
	}{
		{OP_PUSH_NUMBER, 2},
		{OP_GOTO, 1},
		{OP_IF_NOT_GOTO, 1},
		{OP_CASE_GOTO, 0},
	}
	for _, tt := range tests {
		if got := prog.Count(tt.op); got != tt.want {
			t.Errorf("Count(%s) = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestDisassemble(t *testing.T) {
	prog := assembleLoop(t, 3)
	var buf bytes.Buffer
	if err := prog.Disassemble(&buf); err != nil {
		t.Fatalf("Disassemble() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"=== loop (locals=1, instrs=9) ===",
		fmt.Sprintf("0005  %-22s -> 0008", "IF_NOT_GOTO"),
		fmt.Sprintf("0007  %-22s -> 0002", "GOTO"),
		"0008  TERMINATE",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Disassemble() missing %q in:\n%s", want, out)
		}
	}
}

func TestStringTable(t *testing.T) {
	strs := NewStringTable()
	if got := strs.Intern(""); got != 0 {
		t.Errorf("Intern(\"\") = %d, want 0", got)
	}
	a := strs.Intern("a")
	if again := strs.Intern("a"); again != a {
		t.Errorf("Intern(\"a\") twice = %d, %d", a, again)
	}
	if s, ok := strs.Lookup(a); !ok || s != "a" {
		t.Errorf("Lookup(%d) = %q, %v", a, s, ok)
	}
	if _, ok := strs.Lookup(42); ok {
		t.Error("Lookup(42) succeeded on a two-entry table")
	}
	if strs.Len() != 2 {
		t.Errorf("Len() = %d, want 2", strs.Len())
	}
}

func TestParseOpcode(t *testing.T) {
	tests := []struct {
		name string
		want Opcode
		ok   bool
	}{
		{"goto", OP_GOTO, true},
		{"PUSH_NUMBER", OP_PUSH_NUMBER, true},
		{"Case_Goto_Sorted", OP_CASE_GOTO_SORTED, true},
		{"end_hud_message_bold", OP_END_HUD_MESSAGE_BOLD, true},
		{"OP_GOTO", 0, false},
		{"fly", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseOpcode(tt.name)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseOpcode(%q) = %s, %v, want %s, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestArgCount(t *testing.T) {
	if ArgCount(OP_CALL_FUNC) != 2 {
		t.Errorf("ArgCount(CALL_FUNC) = %d, want 2", ArgCount(OP_CALL_FUNC))
	}
	if ArgCount(OP_GOTO) != 0 {
		t.Error("branch targets are not immediate arguments")
	}
	if !IsJump(OP_IF_GOTO) || IsJump(OP_CASE_GOTO) {
		t.Error("IsJump covers GOTO, IF_GOTO and IF_NOT_GOTO only")
	}
}
