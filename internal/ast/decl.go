package ast

// Declaration is implemented by every top-level or struct-body item:
// struct, field, storage, variable and function.
type Declaration interface {
	Node
	isDeclaration()
}

// StructDecl declares a struct type with an ordered list of fields.
//
// Example: "struct Account { owner: address; balance: uint256; }"
type StructDecl struct {
	base
	Name   string
	Fields []*FieldDecl
}

func (*StructDecl) NodeType() NodeType { return NodeStructDecl }
func (*StructDecl) isDeclaration()     {}

// FieldDecl declares a single struct field.
type FieldDecl struct {
	base
	Name         string
	DeclaredType Type
}

func (*FieldDecl) NodeType() NodeType { return NodeFieldDecl }
func (*FieldDecl) isDeclaration()     {}

// StorageDecl declares a persistent contract-storage variable bound to
// a fixed integer slot.
//
// Example: "[0] owner: address;"
type StorageDecl struct {
	base
	Name         string
	DeclaredType Type
	Slot         int
}

func (*StorageDecl) NodeType() NodeType { return NodeStorageDecl }
func (*StorageDecl) isDeclaration()     {}

// VariableDecl declares a top-level immutable constant (e.g. an event
// signature or named literal) distinct from a local `let` binding.
type VariableDecl struct {
	base
	Name         string
	DeclaredType Type
	Init         Expression
}

func (*VariableDecl) NodeType() NodeType { return NodeVariableDecl }
func (*VariableDecl) isDeclaration()     {}

// EventDecl declares an emittable event shape (a BUG surface addition
// beyond spec.md's strict Declaration variants, see SPEC_FULL.md §4).
type EventDecl struct {
	base
	Name   string
	Fields []*FieldDecl
}

func (*EventDecl) NodeType() NodeType { return NodeEventDecl }
func (*EventDecl) isDeclaration()     {}

// FunctionParam is one parameter of a FunctionDecl.
type FunctionParam struct {
	Name string
	Type Type
}

// FunctionDecl declares a function: its parameters, optional return
// type and body block.
type FunctionDecl struct {
	base
	Name       string
	Parameters []*FunctionParam
	ReturnType Type // nil if void
	Body       *Block
}

func (*FunctionDecl) NodeType() NodeType { return NodeFunctionDecl }
func (*FunctionDecl) isDeclaration()     {}
