// Package ast defines the typed syntax tree for BUG contracts.
//
// Every node carries a stable ID assigned once by the parser (or by
// the IDGen helper, for hand-built trees in tests). The type checker
// and IR generator key derived tables off this ID rather than by
// pointer identity, so ownership of a node may move freely without
// invalidating anything built on top of it.
package ast

// ID is an opaque stable node identity, assigned once and never reused
// within a single compilation.
type ID int

// Position is a byte offset/length span into the original source,
// carried so diagnostics and later derived records (IR instructions,
// emitted EVM instructions) can point back at source text.
type Position struct {
	Offset int
	Length int
}

// IDGen hands out increasing, unique node IDs for one parse.
type IDGen struct {
	next ID
}

func NewIDGen() *IDGen { return &IDGen{next: 1} }

func (g *IDGen) Next() ID {
	id := g.next
	g.next++
	return id
}

// NodeType distinguishes the concrete AST node families, mirroring the
// tagged-variant layout from the data model.
type NodeType int

const (
	NodeProgram NodeType = iota
	NodeStructDecl
	NodeFieldDecl
	NodeStorageDecl
	NodeVariableDecl
	NodeFunctionDecl
	NodeEventDecl
	NodeBlock
	NodeElementaryType
	NodeComplexType
	NodeReferenceType
	NodeDeclareStmt
	NodeAssignStmt
	NodeControlFlowStmt
	NodeExpressStmt
	NodeIdentifierExpr
	NodeLiteralExpr
	NodeOperatorExpr
	NodeAccessExpr
	NodeCallExpr
	NodeCastExpr
	NodeSpecialExpr
)

// Node is implemented by every AST node.
type Node interface {
	NodeID() ID
	NodeType() NodeType
	Pos() *Position
}

// base is embedded by every concrete node to supply ID/Position storage.
type base struct {
	ID  ID
	Loc *Position
}

func (b *base) NodeID() ID     { return b.ID }
func (b *base) Pos() *Position { return b.Loc }
