package ast

// Type is the syntactic type annotation attached to declarations;
// internal/types holds the separate semantic Type lattice the checker
// and IR actually reason over.
type Type interface {
	Node
	isType()
}

// ElementaryKind enumerates BUG's scalar type families.
type ElementaryKind int

const (
	ElemUint ElementaryKind = iota
	ElemInt
	ElemAddress
	ElemBool
	ElemBytes
	ElemString
	ElemFixed
	ElemUfixed
)

// ElementaryType is a scalar type, optionally parameterized by bit
// width (e.g. "uint256", "int8", "bytes32").
//
// Example: "uint256", "address", "bool"
type ElementaryType struct {
	base
	Kind ElementaryKind
	Bits int // 0 if not applicable (bool, address, dynamic bytes/string)
}

func (*ElementaryType) NodeType() NodeType { return NodeElementaryType }
func (*ElementaryType) isType()            {}

// ComplexKind enumerates BUG's structured type families.
type ComplexKind int

const (
	ComplexArray ComplexKind = iota
	ComplexMapping
	ComplexStruct
	ComplexTuple
	ComplexFunction
	ComplexAlias
	ComplexContract
	ComplexEnum
)

// ComplexType covers arrays, mappings, structs, tuples, function
// types, aliases, contracts and enums.
//
// Example: "mapping<address, uint256>", "uint256[4]", "(uint256, bool)"
type ComplexType struct {
	base
	Kind ComplexKind

	Element Type // array element type
	Size    int  // array fixed size, -1 if dynamic

	Key   Type // mapping key type
	Value Type // mapping value type

	Name    string // struct/alias/contract/enum name
	Fields  []*FieldDecl
	Tuple   []Type // tuple element types
	Params  []Type // function parameter types
	Returns Type   // function return type, nil if void
}

func (*ComplexType) NodeType() NodeType { return NodeComplexType }
func (*ComplexType) isType()            {}

// ReferenceType is an unresolved type name awaiting lookup against a
// struct/alias/contract/enum declared elsewhere in the program.
type ReferenceType struct {
	base
	Name string
}

func (*ReferenceType) NodeType() NodeType { return NodeReferenceType }
func (*ReferenceType) isType()            {}
