package vm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"bcc/pcode"
	"bcc/trace"
)

// ErrTickLimit is returned when a program runs longer than its tick limit
var ErrTickLimit = errors.New("tick limit exceeded")

// RuntimeError reports a failure while executing an instruction
type RuntimeError struct {
	IP  int
	Op  pcode.Opcode
	Msg string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %04d (%s): %s", e.IP, e.Op, e.Msg)
}

// State is the execution state of a script
type State int

const (
	StateRunning State = iota
	StateTerminated
	StateSuspended
	StateRestarted
	StateReturned
)

var stateNames = map[State]string{
	StateRunning:    "running",
	StateTerminated: "terminated",
	StateSuspended:  "suspended",
	StateRestarted:  "restarted",
	StateReturned:   "returned",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseState maps a state name to its State
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Write records one store into a frame slot
type Write struct {
	Slot  int
	Value int32
}

// ExtFunc is a runtime extension function reached through CALL_FUNC
type ExtFunc func(vm *VM, args []int32) (int32, error)

// VM executes one assembled program
type VM struct {
	Program *pcode.Program
	Stack   []int32 // Operand stack
	SP      int     // Stack pointer
	IP      int     // Instruction pointer
	Locals  []int32 // Frame slots

	MapVars      map[int]int32
	WorldVars    map[int]int32
	GlobalVars   map[int]int32
	ScriptArrays map[int][]int32
	MapArrays    map[int][]int32
	WorldArrays  map[int][]int32
	GlobalArrays map[int][]int32

	Extensions   map[int32]ExtFunc
	Messages     []string      // Completed print and HUD messages
	Translations []Translation // Completed palette translations

	TickLimit   int64 // Maximum instructions per Run
	Ticks       int64 // Instructions executed
	State       State
	ReturnValue int32
	HasReturn   bool

	printing    bool
	buf         strings.Builder
	translation *Translation
	writes      []Write
}

// NewVM creates a machine for prog with zeroed frame slots
func NewVM(prog *pcode.Program) *VM {
	vm := &VM{
		Program:      prog,
		Stack:        make([]int32, 0, 64),
		Locals:       make([]int32, prog.NumLocals),
		MapVars:      make(map[int]int32),
		WorldVars:    make(map[int]int32),
		GlobalVars:   make(map[int]int32),
		ScriptArrays: make(map[int][]int32),
		MapArrays:    make(map[int][]int32),
		WorldArrays:  make(map[int][]int32),
		GlobalArrays: make(map[int][]int32),
		Extensions:   make(map[int32]ExtFunc),
		TickLimit:    100000,
	}
	vm.Extensions[pcode.EXT_STRCMP] = extStrcmp
	vm.Extensions[pcode.EXT_GETCHAR] = extGetChar
	vm.Extensions[pcode.EXT_STRLEN] = extStrlen
	return vm
}

// Run executes until the script terminates, suspends, restarts or
// returns. A suspended script continues where it stopped on the next Run.
func (vm *VM) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(*RuntimeError)
			if !ok {
				panic(r)
			}
			err = rerr
		}
	}()

	switch vm.State {
	case StateTerminated, StateReturned:
		return nil
	case StateRestarted:
		vm.Restart()
	}
	vm.State = StateRunning
	vm.Ticks = 0
	for vm.State == StateRunning {
		if vm.Ticks&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if vm.Ticks >= vm.TickLimit {
			return ErrTickLimit
		}
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Restart moves execution back to the first instruction with an empty
// stack. Frame slots and variables keep their values.
func (vm *VM) Restart() {
	vm.IP = 0
	vm.SP = 0
	vm.State = StateRunning
	vm.printing = false
	vm.buf.Reset()
	vm.translation = nil
}

// Step executes a single instruction
func (vm *VM) Step() error {
	if vm.IP >= len(vm.Program.Code) {
		// Falling off the end terminates the script
		vm.State = StateTerminated
		return nil
	}

	ip := vm.IP
	in := &vm.Program.Code[ip]
	vm.IP++
	vm.Ticks++
	if trace.IsEnabled() {
		trace.Step(vm.Program.Name, ip, in.Op.String(), vm.SP)
	}

	if err := vm.Execute(in); err != nil {
		var rerr *RuntimeError
		if errors.As(err, &rerr) {
			return rerr
		}
		return &RuntimeError{IP: ip, Op: in.Op, Msg: err.Error()}
	}
	return nil
}

// Execute dispatches one instruction
func (vm *VM) Execute(in *pcode.Instruction) error {
	switch in.Op {
	// Script control
	case pcode.OP_NOP:
	case pcode.OP_TERMINATE:
		vm.State = StateTerminated
	case pcode.OP_SUSPEND:
		vm.State = StateSuspended
	case pcode.OP_RESTART:
		vm.State = StateRestarted

	// Stack operations
	case pcode.OP_PUSH_NUMBER:
		vm.Push(in.Args[0])
	case pcode.OP_DROP:
		vm.Pop()
	case pcode.OP_DUP:
		vm.Push(vm.Peek(0))
	case pcode.OP_SWAP:
		b := vm.Pop()
		a := vm.Pop()
		vm.Push(b)
		vm.Push(a)

	// Variables
	case pcode.OP_PUSH_SCRIPT_VAR:
		vm.Push(vm.Locals[vm.localSlot(in.Args[0])])
	case pcode.OP_ASSIGN_SCRIPT_VAR:
		vm.store(vm.localSlot(in.Args[0]), vm.Pop())
	case pcode.OP_INC_SCRIPT_VAR:
		slot := vm.localSlot(in.Args[0])
		vm.store(slot, vm.Locals[slot]+1)
	case pcode.OP_DEC_SCRIPT_VAR:
		slot := vm.localSlot(in.Args[0])
		vm.store(slot, vm.Locals[slot]-1)
	case pcode.OP_ADD_SCRIPT_VAR:
		slot := vm.localSlot(in.Args[0])
		vm.store(slot, vm.Locals[slot]+vm.Pop())
	case pcode.OP_PUSH_MAP_VAR:
		vm.Push(vm.MapVars[int(in.Args[0])])
	case pcode.OP_ASSIGN_MAP_VAR:
		vm.MapVars[int(in.Args[0])] = vm.Pop()
	case pcode.OP_PUSH_WORLD_VAR:
		vm.Push(vm.WorldVars[int(in.Args[0])])
	case pcode.OP_ASSIGN_WORLD_VAR:
		vm.WorldVars[int(in.Args[0])] = vm.Pop()
	case pcode.OP_PUSH_GLOBAL_VAR:
		vm.Push(vm.GlobalVars[int(in.Args[0])])
	case pcode.OP_ASSIGN_GLOBAL_VAR:
		vm.GlobalVars[int(in.Args[0])] = vm.Pop()

	// Arrays
	case pcode.OP_PUSH_SCRIPT_ARRAY:
		vm.pushElement(vm.ScriptArrays, in.Args[0])
	case pcode.OP_PUSH_MAP_ARRAY:
		vm.pushElement(vm.MapArrays, in.Args[0])
	case pcode.OP_PUSH_WORLD_ARRAY:
		vm.pushElement(vm.WorldArrays, in.Args[0])
	case pcode.OP_PUSH_GLOBAL_ARRAY:
		vm.pushElement(vm.GlobalArrays, in.Args[0])

	// Control flow
	case pcode.OP_GOTO:
		vm.IP = in.Target
	case pcode.OP_IF_GOTO:
		if vm.Pop() != 0 {
			vm.IP = in.Target
		}
	case pcode.OP_IF_NOT_GOTO:
		if vm.Pop() == 0 {
			vm.IP = in.Target
		}
	case pcode.OP_CASE_GOTO:
		// The subject is consumed only on a match
		if vm.Peek(0) == in.Args[0] {
			vm.Pop()
			vm.IP = in.Target
		}
	case pcode.OP_CASE_GOTO_SORTED:
		subject := vm.Peek(0)
		i := sort.Search(len(in.Cases), func(i int) bool { return in.Cases[i].Value >= subject })
		if i < len(in.Cases) && in.Cases[i].Value == subject {
			vm.Pop()
			vm.IP = in.Cases[i].Target
		}
	case pcode.OP_CALL_FUNC:
		return vm.executeCallFunc(in.Args[0], in.Args[1])
	case pcode.OP_RETURN_VOID:
		vm.State = StateReturned
	case pcode.OP_RETURN_VAL:
		vm.ReturnValue = vm.Pop()
		vm.HasReturn = true
		vm.State = StateReturned

	// Printing
	case pcode.OP_BEGIN_PRINT:
		vm.printing = true
		vm.buf.Reset()
	case pcode.OP_PRINT_STRING:
		vm.buf.WriteString(vm.str(vm.Pop()))
	case pcode.OP_PRINT_NUMBER:
		fmt.Fprintf(&vm.buf, "%d", vm.Pop())
	case pcode.OP_PRINT_CHARACTER:
		vm.buf.WriteRune(rune(vm.Pop()))
	case pcode.OP_END_PRINT:
		vm.endPrint()
	case pcode.OP_MORE_HUD_MESSAGE:
		if !vm.printing {
			return fmt.Errorf("HUD message outside a print")
		}
	case pcode.OP_END_HUD_MESSAGE, pcode.OP_END_HUD_MESSAGE_BOLD:
		// type, id, color, x, y, hold time
		vm.PopN(6)
		vm.endPrint()

	// Translations
	case pcode.OP_START_TRANSLATION:
		vm.translation = &Translation{Number: vm.Pop()}
	case pcode.OP_TRANSLATION_RANGE1:
		return vm.addRange(false, 4)
	case pcode.OP_TRANSLATION_RANGE2:
		return vm.addRange(true, 8)
	case pcode.OP_END_TRANSLATION:
		if vm.translation == nil {
			return fmt.Errorf("translation was never started")
		}
		vm.Translations = append(vm.Translations, *vm.translation)
		vm.translation = nil

	default:
		if err := vm.executeOperator(in.Op); err != nil {
			return err
		}
	}
	return nil
}

// Push pushes a value onto the stack
func (vm *VM) Push(v int32) {
	if vm.SP >= len(vm.Stack) {
		vm.Stack = append(vm.Stack, v)
	} else {
		vm.Stack[vm.SP] = v
	}
	vm.SP++
}

// Pop pops a value from the stack
func (vm *VM) Pop() int32 {
	if vm.SP == 0 {
		vm.fault("stack underflow")
	}
	vm.SP--
	return vm.Stack[vm.SP]
}

// Peek peeks at a value on the stack (0 = top)
func (vm *VM) Peek(offset int) int32 {
	if vm.SP-1-offset < 0 {
		vm.fault("stack underflow")
	}
	return vm.Stack[vm.SP-1-offset]
}

// PopN pops N values from the stack, deepest first
func (vm *VM) PopN(n int) []int32 {
	if vm.SP < n {
		vm.fault("stack underflow")
	}
	values := make([]int32, n)
	for i := n - 1; i >= 0; i-- {
		values[i] = vm.Pop()
	}
	return values
}

// Depth returns the number of values on the stack
func (vm *VM) Depth() int {
	return vm.SP
}

// Writes returns every value stored into slot, in order
func (vm *VM) Writes(slot int) []int32 {
	var out []int32
	for _, w := range vm.writes {
		if w.Slot == slot {
			out = append(out, w.Value)
		}
	}
	return out
}

// WriteLog returns all slot stores in execution order
func (vm *VM) WriteLog() []Write {
	return vm.writes
}

// fault aborts the current instruction
func (vm *VM) fault(msg string) {
	ip := vm.IP - 1
	var op pcode.Opcode
	if ip >= 0 && ip < len(vm.Program.Code) {
		op = vm.Program.Code[ip].Op
	}
	panic(&RuntimeError{IP: ip, Op: op, Msg: msg})
}

func (vm *VM) localSlot(arg int32) int {
	slot := int(arg)
	if slot < 0 || slot >= len(vm.Locals) {
		vm.fault(fmt.Sprintf("slot %d outside frame of %d", slot, len(vm.Locals)))
	}
	return slot
}

func (vm *VM) store(slot int, v int32) {
	vm.Locals[slot] = v
	vm.writes = append(vm.writes, Write{Slot: slot, Value: v})
}

// pushElement replaces the offset on top of the stack with the element it
// addresses; elements past the end read as zero
func (vm *VM) pushElement(arrays map[int][]int32, index int32) {
	offset := vm.Pop()
	arr := arrays[int(index)]
	if offset < 0 || int(offset) >= len(arr) {
		vm.Push(0)
		return
	}
	vm.Push(arr[offset])
}

func (vm *VM) str(handle int32) string {
	if handle < 0 || int(handle) >= len(vm.Program.Strings) {
		return ""
	}
	return vm.Program.Strings[handle]
}

func (vm *VM) endPrint() {
	vm.Messages = append(vm.Messages, vm.buf.String())
	vm.buf.Reset()
	vm.printing = false
}
