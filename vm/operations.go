package vm

import (
	"fmt"
	"strings"

	"bcc/pcode"
)

// Arithmetic and logic

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// executeOperator handles the operators that pop their operands and push
// one result
func (vm *VM) executeOperator(op pcode.Opcode) error {
	switch op {
	case pcode.OP_NEGATE_LOGICAL:
		vm.Push(boolValue(vm.Pop() == 0))
		return nil
	case pcode.OP_NEGATE_BINARY:
		vm.Push(^vm.Pop())
		return nil
	case pcode.OP_UNARY_MINUS:
		vm.Push(-vm.Pop())
		return nil
	}

	b := vm.Pop()
	a := vm.Pop()
	switch op {
	case pcode.OP_ADD:
		vm.Push(a + b)
	case pcode.OP_SUBTRACT:
		vm.Push(a - b)
	case pcode.OP_MULTIPLY:
		vm.Push(a * b)
	case pcode.OP_DIVIDE:
		if b == 0 {
			return fmt.Errorf("division by zero")
		}
		vm.Push(a / b)
	case pcode.OP_MODULUS:
		if b == 0 {
			return fmt.Errorf("modulus by zero")
		}
		vm.Push(a % b)
	case pcode.OP_EQ:
		vm.Push(boolValue(a == b))
	case pcode.OP_NE:
		vm.Push(boolValue(a != b))
	case pcode.OP_LT:
		vm.Push(boolValue(a < b))
	case pcode.OP_GT:
		vm.Push(boolValue(a > b))
	case pcode.OP_LE:
		vm.Push(boolValue(a <= b))
	case pcode.OP_GE:
		vm.Push(boolValue(a >= b))
	case pcode.OP_AND_LOGICAL:
		vm.Push(boolValue(a != 0 && b != 0))
	case pcode.OP_OR_LOGICAL:
		vm.Push(boolValue(a != 0 || b != 0))
	case pcode.OP_AND_BITWISE:
		vm.Push(a & b)
	case pcode.OP_OR_BITWISE:
		vm.Push(a | b)
	case pcode.OP_EOR_BITWISE:
		vm.Push(a ^ b)
	case pcode.OP_LSHIFT:
		vm.Push(a << uint32(b&31))
	case pcode.OP_RSHIFT:
		vm.Push(a >> uint32(b&31))
	default:
		return fmt.Errorf("unknown opcode: %s (%d)", op, op)
	}
	return nil
}

// Extension calls

func (vm *VM) executeCallFunc(argc, id int32) error {
	fn, ok := vm.Extensions[id]
	if !ok {
		return fmt.Errorf("unknown extension function %d", id)
	}
	args := vm.PopN(int(argc))
	result, err := fn(vm, args)
	if err != nil {
		return fmt.Errorf("extension %d: %w", id, err)
	}
	vm.Push(result)
	return nil
}

func checkArgs(args []int32, n int) error {
	if len(args) != n {
		return fmt.Errorf("want %d arguments, got %d", n, len(args))
	}
	return nil
}

// extStrcmp orders two strings: negative, zero or positive
func extStrcmp(vm *VM, args []int32) (int32, error) {
	if err := checkArgs(args, 2); err != nil {
		return 0, err
	}
	return int32(strings.Compare(vm.str(args[0]), vm.str(args[1]))), nil
}

// extGetChar returns the character at an index, or zero past the end
func extGetChar(vm *VM, args []int32) (int32, error) {
	if err := checkArgs(args, 2); err != nil {
		return 0, err
	}
	s := vm.str(args[0])
	if args[1] < 0 || int(args[1]) >= len(s) {
		return 0, nil
	}
	return int32(s[args[1]]), nil
}

func extStrlen(vm *VM, args []int32) (int32, error) {
	if err := checkArgs(args, 1); err != nil {
		return 0, err
	}
	return int32(len(vm.str(args[0]))), nil
}

// Translations

// Translation is a palette translation created by a script
type Translation struct {
	Number int32
	Ranges []TranslationRange
}

// TranslationRange maps palette indexes Begin..End either onto another
// palette range or onto an RGB gradient
type TranslationRange struct {
	Begin, End int32
	RGB        bool
	Values     []int32
}

func (vm *VM) addRange(rgb bool, n int) error {
	if vm.translation == nil {
		return fmt.Errorf("translation range outside a translation")
	}
	values := vm.PopN(n)
	vm.translation.Ranges = append(vm.translation.Ranges, TranslationRange{
		Begin:  values[0],
		End:    values[1],
		RGB:    rgb,
		Values: values[2:],
	})
	return nil
}
