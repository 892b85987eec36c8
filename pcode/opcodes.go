package pcode

import "strings"

// Opcode represents a virtual machine instruction
type Opcode byte

// Script control
const (
	OP_NOP       Opcode = iota // No operation
	OP_TERMINATE               // Stop the script
	OP_SUSPEND                 // Suspend the script until resumed
	OP_RESTART                 // Restart the script from the beginning
)

// Stack operations
const (
	OP_PUSH_NUMBER Opcode = OP_RESTART + 1 + iota // Push immediate [value]
	OP_DROP                                       // Discard top of stack
	OP_DUP                                        // Duplicate top of stack
	OP_SWAP                                       // Swap the two top values
)

// Arithmetic and logic
const (
	OP_ADD Opcode = OP_SWAP + 1 + iota // Pop b, a; push a + b
	OP_SUBTRACT                        // Pop b, a; push a - b
	OP_MULTIPLY                        // Pop b, a; push a * b
	OP_DIVIDE                          // Pop b, a; push a / b
	OP_MODULUS                         // Pop b, a; push a % b
	OP_EQ                              // Pop b, a; push a == b
	OP_NE                              // Pop b, a; push a != b
	OP_LT                              // Pop b, a; push a < b
	OP_GT                              // Pop b, a; push a > b
	OP_LE                              // Pop b, a; push a <= b
	OP_GE                              // Pop b, a; push a >= b
	OP_AND_LOGICAL                     // Pop b, a; push a && b
	OP_OR_LOGICAL                      // Pop b, a; push a || b
	OP_AND_BITWISE                     // Pop b, a; push a & b
	OP_OR_BITWISE                      // Pop b, a; push a | b
	OP_EOR_BITWISE                     // Pop b, a; push a ^ b
	OP_LSHIFT                          // Pop b, a; push a << b
	OP_RSHIFT                          // Pop b, a; push a >> b
	OP_NEGATE_LOGICAL                  // Pop a; push !a
	OP_NEGATE_BINARY                   // Pop a; push ^a
	OP_UNARY_MINUS                     // Pop a; push -a
)

// Variables
const (
	OP_PUSH_SCRIPT_VAR Opcode = OP_UNARY_MINUS + 1 + iota // Push local [index]
	OP_ASSIGN_SCRIPT_VAR                                  // Pop into local [index]
	OP_INC_SCRIPT_VAR                                     // Increment local [index]
	OP_DEC_SCRIPT_VAR                                     // Decrement local [index]
	OP_ADD_SCRIPT_VAR                                     // Pop; add to local [index]
	OP_PUSH_MAP_VAR                                       // Push map variable [index]
	OP_ASSIGN_MAP_VAR                                     // Pop into map variable [index]
	OP_PUSH_WORLD_VAR                                     // Push world variable [index]
	OP_ASSIGN_WORLD_VAR                                   // Pop into world variable [index]
	OP_PUSH_GLOBAL_VAR                                    // Push global variable [index]
	OP_ASSIGN_GLOBAL_VAR                                  // Pop into global variable [index]
)

// Arrays
const (
	OP_PUSH_SCRIPT_ARRAY Opcode = OP_ASSIGN_GLOBAL_VAR + 1 + iota // Pop offset; push script array element [index]
	OP_PUSH_MAP_ARRAY                                             // Pop offset; push map array element [index]
	OP_PUSH_WORLD_ARRAY                                           // Pop offset; push world array element [index]
	OP_PUSH_GLOBAL_ARRAY                                          // Pop offset; push global array element [index]
)

// Control flow
const (
	OP_GOTO Opcode = OP_PUSH_GLOBAL_ARRAY + 1 + iota // Unconditional jump [target]
	OP_IF_GOTO                                      // Pop; jump if nonzero [target]
	OP_IF_NOT_GOTO                                  // Pop; jump if zero [target]
	OP_CASE_GOTO                                    // If top == value: pop and jump [value, target]
	OP_CASE_GOTO_SORTED                             // Search case table for top; on match pop and jump [table]
	OP_CALL_FUNC                                    // Call extension function [argc, func]
	OP_RETURN_VOID                                  // Return from function
	OP_RETURN_VAL                                   // Pop and return value
)

// Printing
const (
	OP_BEGIN_PRINT Opcode = OP_RETURN_VAL + 1 + iota // Start a print buffer
	OP_END_PRINT                                     // Flush the print buffer
	OP_PRINT_STRING                                  // Pop string; append
	OP_PRINT_NUMBER                                  // Pop number; append decimal
	OP_PRINT_CHARACTER                               // Pop number; append character
	OP_MORE_HUD_MESSAGE                              // Begin HUD message arguments
	OP_END_HUD_MESSAGE                               // Pop HUD arguments; show message
	OP_END_HUD_MESSAGE_BOLD                          // Pop HUD arguments; show message to all players
)

// Palette translations
const (
	OP_START_TRANSLATION Opcode = OP_END_HUD_MESSAGE_BOLD + 1 + iota // Pop translation number
	OP_TRANSLATION_RANGE1                                            // Pop 4; palette-index range
	OP_TRANSLATION_RANGE2                                            // Pop 8; RGB range
	OP_END_TRANSLATION                                               // Finish translation
)

// Extension functions callable through OP_CALL_FUNC
const (
	EXT_STRCMP  int32 = 1 // (a, b) -> <0, 0, >0
	EXT_GETCHAR int32 = 2 // (str, index) -> character, 0 past the end
	EXT_STRLEN  int32 = 3 // (str) -> length
)

// OpCodeNames maps opcodes to their names for disassembly
var OpCodeNames = map[Opcode]string{
	OP_NOP:                  "NOP",
	OP_TERMINATE:            "TERMINATE",
	OP_SUSPEND:              "SUSPEND",
	OP_RESTART:              "RESTART",
	OP_PUSH_NUMBER:          "PUSH_NUMBER",
	OP_DROP:                 "DROP",
	OP_DUP:                  "DUP",
	OP_SWAP:                 "SWAP",
	OP_ADD:                  "ADD",
	OP_SUBTRACT:             "SUBTRACT",
	OP_MULTIPLY:             "MULTIPLY",
	OP_DIVIDE:               "DIVIDE",
	OP_MODULUS:              "MODULUS",
	OP_EQ:                   "EQ",
	OP_NE:                   "NE",
	OP_LT:                   "LT",
	OP_GT:                   "GT",
	OP_LE:                   "LE",
	OP_GE:                   "GE",
	OP_AND_LOGICAL:          "AND_LOGICAL",
	OP_OR_LOGICAL:           "OR_LOGICAL",
	OP_AND_BITWISE:          "AND_BITWISE",
	OP_OR_BITWISE:           "OR_BITWISE",
	OP_EOR_BITWISE:          "EOR_BITWISE",
	OP_LSHIFT:               "LSHIFT",
	OP_RSHIFT:               "RSHIFT",
	OP_NEGATE_LOGICAL:       "NEGATE_LOGICAL",
	OP_NEGATE_BINARY:        "NEGATE_BINARY",
	OP_UNARY_MINUS:          "UNARY_MINUS",
	OP_PUSH_SCRIPT_VAR:      "PUSH_SCRIPT_VAR",
	OP_ASSIGN_SCRIPT_VAR:    "ASSIGN_SCRIPT_VAR",
	OP_INC_SCRIPT_VAR:       "INC_SCRIPT_VAR",
	OP_DEC_SCRIPT_VAR:       "DEC_SCRIPT_VAR",
	OP_ADD_SCRIPT_VAR:       "ADD_SCRIPT_VAR",
	OP_PUSH_MAP_VAR:         "PUSH_MAP_VAR",
	OP_ASSIGN_MAP_VAR:       "ASSIGN_MAP_VAR",
	OP_PUSH_WORLD_VAR:       "PUSH_WORLD_VAR",
	OP_ASSIGN_WORLD_VAR:     "ASSIGN_WORLD_VAR",
	OP_PUSH_GLOBAL_VAR:      "PUSH_GLOBAL_VAR",
	OP_ASSIGN_GLOBAL_VAR:    "ASSIGN_GLOBAL_VAR",
	OP_PUSH_SCRIPT_ARRAY:    "PUSH_SCRIPT_ARRAY",
	OP_PUSH_MAP_ARRAY:       "PUSH_MAP_ARRAY",
	OP_PUSH_WORLD_ARRAY:     "PUSH_WORLD_ARRAY",
	OP_PUSH_GLOBAL_ARRAY:    "PUSH_GLOBAL_ARRAY",
	OP_GOTO:                 "GOTO",
	OP_IF_GOTO:              "IF_GOTO",
	OP_IF_NOT_GOTO:          "IF_NOT_GOTO",
	OP_CASE_GOTO:            "CASE_GOTO",
	OP_CASE_GOTO_SORTED:     "CASE_GOTO_SORTED",
	OP_CALL_FUNC:            "CALL_FUNC",
	OP_RETURN_VOID:          "RETURN_VOID",
	OP_RETURN_VAL:           "RETURN_VAL",
	OP_BEGIN_PRINT:          "BEGIN_PRINT",
	OP_END_PRINT:            "END_PRINT",
	OP_PRINT_STRING:         "PRINT_STRING",
	OP_PRINT_NUMBER:         "PRINT_NUMBER",
	OP_PRINT_CHARACTER:      "PRINT_CHARACTER",
	OP_MORE_HUD_MESSAGE:     "MORE_HUD_MESSAGE",
	OP_END_HUD_MESSAGE:      "END_HUD_MESSAGE",
	OP_END_HUD_MESSAGE_BOLD: "END_HUD_MESSAGE_BOLD",
	OP_START_TRANSLATION:    "START_TRANSLATION",
	OP_TRANSLATION_RANGE1:   "TRANSLATION_RANGE1",
	OP_TRANSLATION_RANGE2:   "TRANSLATION_RANGE2",
	OP_END_TRANSLATION:      "END_TRANSLATION",
}

// String returns the name of an opcode
func (op Opcode) String() string {
	if name, ok := OpCodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseOpcode looks an opcode up by name, ignoring case
func ParseOpcode(name string) (Opcode, bool) {
	name = strings.ToUpper(name)
	for op, n := range OpCodeNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// IsJump reports whether op transfers control to a Point
func IsJump(op Opcode) bool {
	switch op {
	case OP_GOTO, OP_IF_GOTO, OP_IF_NOT_GOTO:
		return true
	default:
		return false
	}
}

// ArgCount returns the number of immediate operands op carries, excluding
// jump targets and case tables
func ArgCount(op Opcode) int {
	switch op {
	case OP_PUSH_NUMBER,
		OP_PUSH_SCRIPT_VAR, OP_ASSIGN_SCRIPT_VAR, OP_INC_SCRIPT_VAR,
		OP_DEC_SCRIPT_VAR, OP_ADD_SCRIPT_VAR,
		OP_PUSH_MAP_VAR, OP_ASSIGN_MAP_VAR,
		OP_PUSH_WORLD_VAR, OP_ASSIGN_WORLD_VAR,
		OP_PUSH_GLOBAL_VAR, OP_ASSIGN_GLOBAL_VAR,
		OP_PUSH_SCRIPT_ARRAY, OP_PUSH_MAP_ARRAY,
		OP_PUSH_WORLD_ARRAY, OP_PUSH_GLOBAL_ARRAY,
		OP_CASE_GOTO:
		return 1
	case OP_CALL_FUNC:
		return 2
	default:
		return 0
	}
}
