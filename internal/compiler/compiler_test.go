package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugc/internal/ast"
)

func uintType(bits int) *ast.ElementaryType { return &ast.ElementaryType{Kind: ast.ElemUint, Bits: bits} }

// counterContract builds the spec's canonical seed example by hand:
//
//	name Counter;
//	storage { [0] count: uint256; }
//	code { count = count + 1; }
func counterContract(g *ast.IDGen) *ast.Program {
	storage := &ast.StorageDecl{Name: "count", DeclaredType: uintType(256), Slot: 0}
	storage.ID = g.Next()

	// An unused local whose initializer is entirely constant: this
	// gives the optimizer something to fold and then delete as dead
	// code, so the end-to-end test below can observe both passes
	// firing without hand-building IR directly.
	two := &ast.LiteralExpr{Kind: ast.LitNumber, Value: "2"}
	two.ID = g.Next()
	three := &ast.LiteralExpr{Kind: ast.LitNumber, Value: "3"}
	three.ID = g.Next()
	bonusInit := &ast.OperatorExpr{Operator: "+", Operands: []ast.Expression{two, three}}
	bonusInit.ID = g.Next()
	bonus := &ast.DeclareStmt{Name: "bonus", Initializer: bonusInit}
	bonus.ID = g.Next()

	target := &ast.IdentifierExpr{Name: "count"}
	target.ID = g.Next()
	read := &ast.IdentifierExpr{Name: "count"}
	read.ID = g.Next()
	one := &ast.LiteralExpr{Kind: ast.LitNumber, Value: "1"}
	one.ID = g.Next()
	sum := &ast.OperatorExpr{Operator: "+", Operands: []ast.Expression{read, one}}
	sum.ID = g.Next()
	assign := &ast.AssignStmt{Target: target, Value: sum}
	assign.ID = g.Next()

	body := &ast.Block{Kind: ast.BlockStatements, Items: []ast.Node{bonus, assign}}
	body.ID = g.Next()

	prog := &ast.Program{Name: "Counter", Declarations: []ast.Declaration{storage}, Body: body}
	prog.ID = g.Next()
	return prog
}

func TestCompileCounterProducesRuntimeBytecode(t *testing.T) {
	prog := counterContract(ast.NewIDGen())

	result := Compile(prog, Options{OptimizerLevel: 2})

	require.True(t, result.Success, "expected a clean compile, got messages: %+v", result.Messages.Error)
	assert.Empty(t, result.Messages.Error)
	assert.NotEmpty(t, result.Bytecode.Runtime)
	assert.NotEmpty(t, result.OptimizationStats.Counts)
}

func TestCompileStopsAfterTypeErrors(t *testing.T) {
	g := ast.NewIDGen()
	lit := &ast.LiteralExpr{Kind: ast.LitBoolean, Value: "true"}
	lit.ID = g.Next()
	ret := &ast.ControlFlowStmt{Kind: ast.CFReturn, Value: lit}
	ret.ID = g.Next()
	body := &ast.Block{Kind: ast.BlockStatements, Items: []ast.Node{ret}}
	body.ID = g.Next()
	fn := &ast.FunctionDecl{Name: "bad", ReturnType: uintType(256), Body: body}
	fn.ID = g.Next()
	prog := &ast.Program{Name: "Bad", Declarations: []ast.Declaration{fn}}
	prog.ID = g.Next()

	result := Compile(prog, Options{OptimizerLevel: 1})

	require.False(t, result.Success)
	require.NotEmpty(t, result.Messages.Error)
	assert.Equal(t, "TYPE_MISMATCH", result.Messages.Error[0].Code)
	assert.Nil(t, result.IR, "the IR pass must never run once type checking fails")
}

func TestCompileWithOptimizerLevelZeroStillProducesBytecode(t *testing.T) {
	prog := counterContract(ast.NewIDGen())

	result := Compile(prog, Options{OptimizerLevel: 0})

	require.True(t, result.Success)
	assert.Empty(t, result.OptimizationStats.Counts)
	assert.NotEmpty(t, result.Bytecode.Runtime)
}
