package optimize

import (
	"math/big"
	"testing"

	"golang.org/x/crypto/sha3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugc/internal/ir"
	"bugc/internal/types"
)

// addOneFunction builds a single-block function computing 2 + 3 into
// temp 1, then returning it — the minimal fixture every pass below
// folds/propagates/eliminates against.
func addOneFunction() *ir.Function {
	blk := &ir.Block{ID: 0, Label: "entry"}
	two := ir.ConstValue(ir.IntConst(2, types.Uint256))
	three := ir.ConstValue(ir.IntConst(3, types.Uint256))
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpBinary, Dest: 1, Type: types.Uint256, BinOp: "add", Left: two, Right: three},
	}
	blk.Terminator = &ir.Terminator{Kind: ir.TermReturn, HasReturnValue: true, ReturnValue: ir.TempValue(1, types.Uint256)}
	return &ir.Function{
		Name:       "f",
		Entry:      0,
		Blocks:     map[ir.BlockID]*ir.Block{0: blk},
		BlockOrder: []ir.BlockID{0},
	}
}

func moduleOf(fn *ir.Function) *ir.Module {
	return &ir.Module{
		Name:          "M",
		Functions:     map[string]*ir.Function{fn.Name: fn},
		FunctionOrder: []string{fn.Name},
	}
}

func TestRunLevelZeroLeavesModuleUntouched(t *testing.T) {
	m := moduleOf(addOneFunction())
	result := Run(m, 0)

	assert.Empty(t, result.Transformations)
	fn := m.Functions["f"]
	inst := fn.Block(0).Instructions[0]
	assert.Equal(t, ir.OpBinary, inst.Op, "level 0 must not fold anything")
}

func TestRunLevelOneFoldsAndPropagatesButNotCSE(t *testing.T) {
	m := moduleOf(addOneFunction())
	result := Run(m, 1)

	fn := m.Functions["f"]
	// Level 1 also runs DCE: once the folded 5 is propagated into the
	// return, the const instruction has no use left and is dropped.
	require.Len(t, fn.Block(0).Instructions, 0)
	ret := fn.Block(0).Terminator.ReturnValue
	assert.True(t, ret.IsConst)
	assert.Equal(t, big.NewInt(5), ret.Const.Word)

	kinds := map[TransformationKind]bool{}
	for _, rec := range result.Transformations {
		kinds[rec.Pass] = true
	}
	assert.True(t, kinds[FoldConstant])
	assert.False(t, kinds[EliminateCSE], "level 1 must not run CSE")
}

func TestRunLevelTwoStillFoldsConstants(t *testing.T) {
	m := moduleOf(addOneFunction())
	result := Run(m, 2)

	assert.Equal(t, 1, result.Stats.Counts[FoldConstant])
}

func TestFoldConstantsDoesNotFoldDivisionByLiteralZero(t *testing.T) {
	blk := &ir.Block{ID: 0, Label: "entry"}
	x := ir.ConstValue(ir.IntConst(10, types.Uint256))
	zero := ir.ConstValue(ir.IntConst(0, types.Uint256))
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpBinary, Dest: 1, Type: types.Uint256, BinOp: "div", Left: x, Right: zero},
	}
	fn := &ir.Function{Name: "f", Entry: 0, Blocks: map[ir.BlockID]*ir.Block{0: blk}, BlockOrder: []ir.BlockID{0}}

	recs := foldConstants(fn, "f")

	assert.Empty(t, recs, "division by a literal zero must survive to run at the EVM level")
	assert.Equal(t, ir.OpBinary, fn.Block(0).Instructions[0].Op)
}

func TestFoldConstantsDoesNotFoldModuloByLiteralZero(t *testing.T) {
	blk := &ir.Block{ID: 0, Label: "entry"}
	x := ir.ConstValue(ir.IntConst(10, types.Uint256))
	zero := ir.ConstValue(ir.IntConst(0, types.Uint256))
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpBinary, Dest: 1, Type: types.Uint256, BinOp: "mod", Left: x, Right: zero},
	}
	fn := &ir.Function{Name: "f", Entry: 0, Blocks: map[ir.BlockID]*ir.Block{0: blk}, BlockOrder: []ir.BlockID{0}}

	recs := foldConstants(fn, "f")
	assert.Empty(t, recs)
}

func TestEliminateCSECanonicalizesCommutativeOperandOrder(t *testing.T) {
	blk := &ir.Block{ID: 0, Label: "entry"}
	a := ir.TempValue(10, types.Uint256)
	b := ir.TempValue(11, types.Uint256)
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpBinary, Dest: 1, Type: types.Uint256, BinOp: "add", Left: a, Right: b},
		// Same computation, operands swapped: must still be recognized
		// as redundant since add is commutative.
		{ID: 2, Op: ir.OpBinary, Dest: 2, Type: types.Uint256, BinOp: "add", Left: b, Right: a},
		{Op: ir.OpWrite, Loc: ir.LocStorage, Slot: ir.ConstValue(ir.IntConst(0, types.Uint256)), HasSlot: true, WriteVal: ir.TempValue(2, types.Uint256)},
	}
	fn := &ir.Function{Name: "f", Entry: 0, Blocks: map[ir.BlockID]*ir.Block{0: blk}, BlockOrder: []ir.BlockID{0}}

	recs := eliminateCSE(fn, "f")

	require.Len(t, recs, 1)
	require.Len(t, fn.Block(0).Instructions, 2, "the redundant add should be removed")
	write := fn.Block(0).Instructions[1]
	assert.Equal(t, ir.TempID(1), write.WriteVal.Temp, "the write should now reference the first add's temp")
}

func TestEliminateCSEDoesNotMergeNonCommutativeOperandSwap(t *testing.T) {
	blk := &ir.Block{ID: 0, Label: "entry"}
	a := ir.TempValue(10, types.Uint256)
	b := ir.TempValue(11, types.Uint256)
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpBinary, Dest: 1, Type: types.Uint256, BinOp: "sub", Left: a, Right: b},
		{ID: 2, Op: ir.OpBinary, Dest: 2, Type: types.Uint256, BinOp: "sub", Left: b, Right: a},
	}
	fn := &ir.Function{Name: "f", Entry: 0, Blocks: map[ir.BlockID]*ir.Block{0: blk}, BlockOrder: []ir.BlockID{0}}

	recs := eliminateCSE(fn, "f")
	assert.Empty(t, recs, "a - b and b - a are not the same value")
}

func TestFoldConstantsFoldsHashOfConstantString(t *testing.T) {
	blk := &ir.Block{ID: 0, Label: "entry"}
	lit := ir.ConstValue(ir.Const{Type: types.StringT, Bytes: []byte("bugc")})
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpHash, Dest: 1, Type: types.Bytes32, Object: lit},
	}
	fn := &ir.Function{Name: "f", Entry: 0, Blocks: map[ir.BlockID]*ir.Block{0: blk}, BlockOrder: []ir.BlockID{0}}

	recs := foldConstants(fn, "f")
	require.Len(t, recs, 1)

	want := sha3.NewLegacyKeccak256()
	want.Write([]byte("bugc"))
	inst := fn.Block(0).Instructions[0]
	assert.Equal(t, ir.OpConst, inst.Op)
	assert.Equal(t, new(big.Int).SetBytes(want.Sum(nil)), inst.ConstVal.Word)
}

func TestFoldConstantsFoldsLengthOfFixedSizeArray(t *testing.T) {
	blk := &ir.Block{ID: 0, Label: "entry"}
	arrTemp := ir.TempValue(5, types.Array(types.Uint256, 4))
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpLength, Dest: 1, Type: types.Uint256, Object: arrTemp},
	}
	fn := &ir.Function{Name: "f", Entry: 0, Blocks: map[ir.BlockID]*ir.Block{0: blk}, BlockOrder: []ir.BlockID{0}}

	recs := foldConstants(fn, "f")
	require.Len(t, recs, 1)
	assert.Equal(t, big.NewInt(4), fn.Block(0).Instructions[0].ConstVal.Word)
}

func TestFoldConstantsDoesNotFoldLengthOfDynamicArray(t *testing.T) {
	blk := &ir.Block{ID: 0, Label: "entry"}
	arrTemp := ir.TempValue(5, types.Array(types.Uint256, -1))
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpLength, Dest: 1, Type: types.Uint256, Object: arrTemp},
	}
	fn := &ir.Function{Name: "f", Entry: 0, Blocks: map[ir.BlockID]*ir.Block{0: blk}, BlockOrder: []ir.BlockID{0}}

	recs := foldConstants(fn, "f")
	assert.Empty(t, recs)
	assert.Equal(t, ir.OpLength, fn.Block(0).Instructions[0].Op)
}

func TestFoldConstantsFoldsSliceOfConstantBytes(t *testing.T) {
	blk := &ir.Block{ID: 0, Label: "entry"}
	base := ir.ConstValue(ir.Const{Type: types.BytesDyn, Bytes: []byte{0x12, 0x34, 0x56}})
	start := ir.ConstValue(ir.IntConst(1, types.Uint256))
	end := ir.ConstValue(ir.IntConst(2, types.Uint256))
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpSlice, Dest: 1, Type: types.BytesDyn, Object: base, SliceStart: start, SliceEnd: end, HasSlice: true},
	}
	fn := &ir.Function{Name: "f", Entry: 0, Blocks: map[ir.BlockID]*ir.Block{0: blk}, BlockOrder: []ir.BlockID{0}}

	recs := foldConstants(fn, "f")
	require.Len(t, recs, 1)
	inst := fn.Block(0).Instructions[0]
	assert.Equal(t, ir.OpConst, inst.Op)
	assert.Equal(t, []byte{0x34}, inst.ConstVal.Bytes)
}

func TestFoldConstantsDoesNotFoldSliceWithOutOfRangeBounds(t *testing.T) {
	blk := &ir.Block{ID: 0, Label: "entry"}
	base := ir.ConstValue(ir.Const{Type: types.BytesDyn, Bytes: []byte{0x12}})
	start := ir.ConstValue(ir.IntConst(0, types.Uint256))
	end := ir.ConstValue(ir.IntConst(5, types.Uint256))
	blk.Instructions = []*ir.Instruction{
		{ID: 1, Op: ir.OpSlice, Dest: 1, Type: types.BytesDyn, Object: base, SliceStart: start, SliceEnd: end, HasSlice: true},
	}
	fn := &ir.Function{Name: "f", Entry: 0, Blocks: map[ir.BlockID]*ir.Block{0: blk}, BlockOrder: []ir.BlockID{0}}

	recs := foldConstants(fn, "f")
	assert.Empty(t, recs)
}

// ifElseFunction builds entry -branch-> {then, els} -jump-> merge, the
// shape builder_stmt.go produces for an if/else. then and els are
// siblings: neither dominates the other.
func ifElseFunction(thenInst, elsInst *ir.Instruction) *ir.Function {
	entry := &ir.Block{ID: 0, Label: "entry"}
	entry.Terminator = &ir.Terminator{Kind: ir.TermBranch, Condition: ir.ConstValue(ir.BoolConst(true)), TrueTarget: 1, FalseTarget: 2}

	then := &ir.Block{ID: 1, Label: "then", Instructions: []*ir.Instruction{thenInst}}
	then.Terminator = &ir.Terminator{Kind: ir.TermJump, Target: 3}

	els := &ir.Block{ID: 2, Label: "else", Instructions: []*ir.Instruction{elsInst}}
	els.Terminator = &ir.Terminator{Kind: ir.TermJump, Target: 3}

	merge := &ir.Block{ID: 3, Label: "merge"}
	merge.Terminator = &ir.Terminator{Kind: ir.TermReturn}

	return &ir.Function{
		Name:  "f",
		Entry: 0,
		Blocks: map[ir.BlockID]*ir.Block{
			0: entry, 1: then, 2: els, 3: merge,
		},
		BlockOrder: []ir.BlockID{0, 1, 3, 2},
	}
}

func TestEliminateCSEDoesNotReuseAGeneralPureOpAcrossIfElseSiblings(t *testing.T) {
	a := ir.TempValue(5, types.StringT)
	thenHash := &ir.Instruction{ID: 1, Op: ir.OpHash, Dest: 10, Type: types.Bytes32, Object: a}
	elsHash := &ir.Instruction{ID: 2, Op: ir.OpHash, Dest: 11, Type: types.Bytes32, Object: a}
	fn := ifElseFunction(thenHash, elsHash)

	recs := eliminateCSE(fn, "f")

	assert.Empty(t, recs, "then does not dominate else, so its hash must not be reused there")
	require.Len(t, fn.Block(1).Instructions, 1)
	require.Len(t, fn.Block(2).Instructions, 1)
	assert.Equal(t, ir.OpHash, fn.Block(2).Instructions[0].Op)
}

func TestEliminateCSEReusesEnvAcrossDominatedBlocks(t *testing.T) {
	entryEnv := &ir.Instruction{ID: 1, Op: ir.OpEnv, Dest: 10, Type: types.AddressT, EnvOp: "msg_sender"}
	entry := &ir.Block{ID: 0, Label: "entry", Instructions: []*ir.Instruction{entryEnv}}
	entry.Terminator = &ir.Terminator{Kind: ir.TermJump, Target: 1}

	thenEnv := &ir.Instruction{ID: 2, Op: ir.OpEnv, Dest: 11, Type: types.AddressT, EnvOp: "msg_sender"}
	then := &ir.Block{ID: 1, Label: "then", Instructions: []*ir.Instruction{thenEnv}}
	then.Terminator = &ir.Terminator{Kind: ir.TermReturn}

	fn := &ir.Function{
		Name:       "f",
		Entry:      0,
		Blocks:     map[ir.BlockID]*ir.Block{0: entry, 1: then},
		BlockOrder: []ir.BlockID{0, 1},
	}

	recs := eliminateCSE(fn, "f")

	require.Len(t, recs, 1, "entry dominates then, so its msg_sender fetch is reused")
	assert.Empty(t, fn.Block(1).Instructions)
}
