package ast

// Expression is implemented by every expression-level node.
type Expression interface {
	Node
	isExpression()
}

// IdentifierExpr references a bound name: a local, a parameter, or a
// storage/struct/function name resolved during type checking.
type IdentifierExpr struct {
	base
	Name string
}

func (*IdentifierExpr) NodeType() NodeType { return NodeIdentifierExpr }
func (*IdentifierExpr) isExpression()      {}

// LiteralKind distinguishes literal value families.
type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitString
	LitBoolean
	LitAddress
	LitHex
)

// LiteralExpr is a literal value. Value is always the exact source
// representation as a string (invariant (b) from spec.md §3): no
// precision is lost converting a numeric literal to a machine type
// before the type checker has assigned it a destination width.
type LiteralExpr struct {
	base
	Kind  LiteralKind
	Value string
	Unit  string // optional, e.g. "wei"/"ether" suffix; "" if absent
}

func (*LiteralExpr) NodeType() NodeType { return NodeLiteralExpr }
func (*LiteralExpr) isExpression()      {}

// OperatorExpr is an n-ary operator application; arity is implicit
// from len(Operands) (1 = unary, 2 = binary).
//
// Example: "a + b", "!ok", "x == y"
type OperatorExpr struct {
	base
	Operator string
	Operands []Expression
}

func (*OperatorExpr) NodeType() NodeType { return NodeOperatorExpr }
func (*OperatorExpr) isExpression()      {}

// AccessKind distinguishes member/index/slice access.
type AccessKind int

const (
	AccessMember AccessKind = iota
	AccessIndex
	AccessSlice
)

// AccessExpr covers member access, indexing and slicing off a base
// expression.
//
//	member: "obj.field"   — Member set, Index/SliceStart/SliceEnd nil
//	index:  "arr[i]"      — Index set
//	slice:  "b[from:to]"  — SliceStart/SliceEnd set (either may be nil
//	                        to mean "from the start"/"to the end")
type AccessExpr struct {
	base
	Kind       AccessKind
	Base       Expression
	Member     string
	Index      Expression
	SliceStart Expression
	SliceEnd   Expression
}

func (*AccessExpr) NodeType() NodeType { return NodeAccessExpr }
func (*AccessExpr) isExpression()      {}

// CallExpr is a function call, either to a built-in (e.g. keccak256)
// or a user-defined function.
type CallExpr struct {
	base
	Callee string
	Args   []Expression
}

func (*CallExpr) NodeType() NodeType { return NodeCallExpr }
func (*CallExpr) isExpression()      {}

// CastExpr explicitly converts an expression to another type.
//
// Example: "x as uint8"
type CastExpr struct {
	base
	Value  Expression
	Target Type
}

func (*CastExpr) NodeType() NodeType { return NodeCastExpr }
func (*CastExpr) isExpression()      {}

// SpecialKind enumerates the built-in environment accessors.
type SpecialKind int

const (
	SpecialMsgSender SpecialKind = iota
	SpecialMsgValue
	SpecialMsgData
	SpecialBlockTimestamp
	SpecialBlockNumber
)

// SpecialExpr is a reference to one of the built-in environment
// values (msg.sender, msg.value, msg.data, block.timestamp,
// block.number).
type SpecialExpr struct {
	base
	Kind SpecialKind
}

func (*SpecialExpr) NodeType() NodeType { return NodeSpecialExpr }
func (*SpecialExpr) isExpression()      {}
