package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDGenHandsOutIncreasingUniqueIDs(t *testing.T) {
	g := NewIDGen()
	first := g.Next()
	second := g.Next()
	third := g.Next()

	assert.Equal(t, ID(1), first)
	assert.Less(t, int(first), int(second))
	assert.Less(t, int(second), int(third))
}

func TestHandBuiltNodeCarriesIDAndPosition(t *testing.T) {
	g := NewIDGen()

	lit := &LiteralExpr{Kind: LitNumber, Value: "42"}
	lit.ID = g.Next()
	lit.Loc = &Position{Offset: 10, Length: 2}

	var n Node = lit
	assert.Equal(t, ID(1), n.NodeID())
	assert.Equal(t, NodeLiteralExpr, n.NodeType())
	assert.Equal(t, 10, n.Pos().Offset)
}

func TestOperatorExprArityIsImplicit(t *testing.T) {
	unary := &OperatorExpr{Operator: "neg", Operands: []Expression{&LiteralExpr{Kind: LitNumber, Value: "1"}}}
	binary := &OperatorExpr{Operator: "add", Operands: []Expression{
		&LiteralExpr{Kind: LitNumber, Value: "1"},
		&LiteralExpr{Kind: LitNumber, Value: "2"},
	}}

	assert.Len(t, unary.Operands, 1)
	assert.Len(t, binary.Operands, 2)
}

func TestBlockItemsAcceptBothStatementsAndDeclarations(t *testing.T) {
	blk := &Block{Kind: BlockStatements, Items: []Node{
		&DeclareStmt{Name: "x", Initializer: &LiteralExpr{Kind: LitNumber, Value: "1"}},
		&VariableDecl{Name: "Y", DeclaredType: &ElementaryType{Kind: ElemUint, Bits: 256}},
	}}

	assert.Len(t, blk.Items, 2)
	_, isStmt := blk.Items[0].(Statement)
	_, isDecl := blk.Items[1].(Declaration)
	assert.True(t, isStmt)
	assert.True(t, isDecl)
}
