package ast

// CollectionKind selects the foreach lowering strategy
type CollectionKind int

const (
	CollectionArray    CollectionKind = iota // fixed size, length known statically
	CollectionArrayRef                       // length known only at run time
	CollectionStr                            // character by character
)

var collectionNames = map[CollectionKind]string{
	CollectionArray:    "array",
	CollectionArrayRef: "array_ref",
	CollectionStr:      "str",
}

func (k CollectionKind) String() string {
	if name, ok := collectionNames[k]; ok {
		return name
	}
	return "unknown"
}

// ItemKind is the shape of one foreach element
type ItemKind int

const (
	ItemPrimitive ItemKind = iota
	ItemRefPair            // two consecutive elements
	ItemSubArray
	ItemStruct
)

var itemNames = map[ItemKind]string{
	ItemPrimitive: "primitive",
	ItemRefPair:   "ref_pair",
	ItemSubArray:  "sub_array",
	ItemStruct:    "struct",
}

func (k ItemKind) String() string {
	if name, ok := itemNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseCollectionKind maps a name to its CollectionKind
func ParseCollectionKind(name string) (CollectionKind, bool) {
	for k, n := range collectionNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// ParseItemKind maps a name to its ItemKind
func ParseItemKind(name string) (ItemKind, bool) {
	for k, n := range itemNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Collection describes what a foreach iterates over.
//
// For arrays, Storage and Index name the array the elements are read from.
// ElementSize is the size of one element of the iterated dimension,
// StructSize the size of a structure item, DimInfo the offset of the
// dimension information of sub-array items in the shared array. PushedBase
// is set when the collection pusher leaves a base offset on the stack.
// Expr is the collection expression itself (the string for CollectionStr).
// Base and LengthExpr, when set, give the run-time base offset and length
// of a CollectionArrayRef.
type Collection struct {
	Kind        CollectionKind
	Item        ItemKind
	ElementSize int
	StructSize  int
	Length      int
	DimInfo     int
	PushedBase  bool
	Storage     Storage
	Index       int
	Expr        Expr
	Base        Expr
	LengthExpr  Expr
}
