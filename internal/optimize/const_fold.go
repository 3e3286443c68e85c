package optimize

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"

	"bugc/internal/ir"
	"bugc/internal/types"
)

// foldConstants is pass 1: evaluate every instruction whose operands
// are all compile-time constants and replace it with an ir.OpConst.
func foldConstants(fn *ir.Function, fnName string) []TransformationRecord {
	var recs []TransformationRecord
	for _, id := range fn.BlockOrder {
		blk := fn.Block(id)
		for idx, inst := range blk.Instructions {
			folded, ok := foldInstruction(inst)
			if !ok {
				continue
			}
			recs = append(recs, TransformationRecord{
				Pass:     FoldConstant,
				Function: fnName,
				Original: fmt.Sprintf("inst#%d (%s)", inst.ID, inst.Op),
				Result:   fmt.Sprintf("const %s", folded.ConstVal.Word),
				Reason:   "all operands are compile-time constants",
			})
			blk.Instructions[idx] = folded
		}
	}
	return recs
}

func foldInstruction(inst *ir.Instruction) (*ir.Instruction, bool) {
	switch inst.Op {
	case ir.OpBinary:
		if !inst.Left.IsConst || !inst.Right.IsConst || inst.Left.Const.Word == nil || inst.Right.Const.Word == nil {
			return nil, false
		}
		v, ok := evalBinary(inst.BinOp, inst.Left.Const.Word, inst.Right.Const.Word)
		if !ok {
			return nil, false
		}
		return asConst(inst, v), true

	case ir.OpUnary:
		if !inst.Operand.IsConst || inst.Operand.Const.Word == nil {
			return nil, false
		}
		v, ok := evalUnary(inst.UnOp, inst.Operand.Const.Word)
		if !ok {
			return nil, false
		}
		return asConst(inst, v), true

	case ir.OpHash:
		if !inst.Object.IsConst || inst.Object.Const.Bytes == nil {
			return nil, false
		}
		sum := sha3.NewLegacyKeccak256()
		sum.Write(inst.Object.Const.Bytes)
		return asConst(inst, new(big.Int).SetBytes(sum.Sum(nil))), true

	case ir.OpLength:
		if inst.Object.Type == nil || inst.Object.Type.Kind != types.KindArray || inst.Object.Type.Size < 0 {
			return nil, false
		}
		return asConst(inst, big.NewInt(int64(inst.Object.Type.Size))), true

	case ir.OpSlice:
		if !inst.Object.IsConst || inst.Object.Const.Bytes == nil {
			return nil, false
		}
		if !inst.SliceStart.IsConst || !inst.SliceEnd.IsConst ||
			inst.SliceStart.Const.Word == nil || inst.SliceEnd.Const.Word == nil {
			return nil, false
		}
		start := int(inst.SliceStart.Const.Word.Int64())
		end := int(inst.SliceEnd.Const.Word.Int64())
		payload := inst.Object.Const.Bytes
		if start < 0 || end < start || end > len(payload) {
			return nil, false
		}
		c := ir.Const{Type: inst.Type, Bytes: append([]byte(nil), payload[start:end]...)}
		return &ir.Instruction{ID: inst.ID, Op: ir.OpConst, Dest: inst.Dest, Type: inst.Type, Span: inst.Span, ConstVal: c}, true
	}
	return nil, false
}

func asConst(inst *ir.Instruction, v *big.Int) *ir.Instruction {
	c := ir.Const{Type: inst.Type, Word: ir.WrapWord(v)}
	return &ir.Instruction{ID: inst.ID, Op: ir.OpConst, Dest: inst.Dest, Type: inst.Type, Span: inst.Span, ConstVal: c}
}

func evalBinary(op string, l, r *big.Int) (*big.Int, bool) {
	switch op {
	case "add":
		return new(big.Int).Add(l, r), true
	case "sub":
		return new(big.Int).Sub(l, r), true
	case "mul":
		return new(big.Int).Mul(l, r), true
	case "div":
		if r.Sign() == 0 {
			// spec: division by a literal zero is never folded, so the
			// instruction survives to run (and halt) at the EVM level.
			return nil, false
		}
		return new(big.Int).Div(l, r), true
	case "mod":
		if r.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Mod(l, r), true
	case "lt":
		return boolInt(l.Cmp(r) < 0), true
	case "gt":
		return boolInt(l.Cmp(r) > 0), true
	case "le":
		return boolInt(l.Cmp(r) <= 0), true
	case "ge":
		return boolInt(l.Cmp(r) >= 0), true
	case "eq":
		return boolInt(l.Cmp(r) == 0), true
	case "ne":
		return boolInt(l.Cmp(r) != 0), true
	case "and":
		return boolInt(l.Sign() != 0 && r.Sign() != 0), true
	case "or":
		return boolInt(l.Sign() != 0 || r.Sign() != 0), true
	}
	return nil, false
}

func evalUnary(op string, v *big.Int) (*big.Int, bool) {
	switch op {
	case "not":
		return boolInt(v.Sign() == 0), true
	case "neg":
		return new(big.Int).Neg(v), true
	}
	return nil, false
}

func boolInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
