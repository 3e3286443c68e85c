package optimize

import (
	"fmt"

	"bugc/internal/ir"
)

// propagateConstants is pass 2: once pass 1 has turned every
// computable expression into an ir.OpConst, substitute each use of
// that temp with the constant value directly, so later passes (CSE,
// DCE) see through the indirection.
func propagateConstants(fn *ir.Function, fnName string) []TransformationRecord {
	known := make(map[ir.TempID]ir.Value)
	for _, id := range fn.BlockOrder {
		blk := fn.Block(id)
		for _, inst := range blk.Instructions {
			if inst.Op == ir.OpConst && inst.Dest != ir.NoTemp {
				known[inst.Dest] = ir.ConstValue(inst.ConstVal)
			}
		}
	}
	if len(known) == 0 {
		return nil
	}

	var recs []TransformationRecord
	replace := func(v *ir.Value) {
		if v.IsConst || v.Temp == ir.NoTemp {
			return
		}
		if c, ok := known[v.Temp]; ok {
			recs = append(recs, TransformationRecord{
				Pass:     PropagateConstant,
				Function: fnName,
				Original: fmt.Sprintf("%%%d", v.Temp),
				Result:   fmt.Sprintf("const %s", c.Const.Word),
				Reason:   "temp is bound to a single known constant",
			})
			*v = c
		}
	}

	for _, id := range fn.BlockOrder {
		blk := fn.Block(id)
		for _, phi := range blk.Phis {
			for pred, v := range phi.Sources {
				cp := v
				replace(&cp)
				phi.Sources[pred] = cp
			}
		}
		for _, inst := range blk.Instructions {
			replaceOperands(inst, replace)
		}
		if blk.Terminator != nil && blk.Terminator.Kind == ir.TermBranch {
			replace(&blk.Terminator.Condition)
		}
		if blk.Terminator != nil && blk.Terminator.Kind == ir.TermReturn && blk.Terminator.HasReturnValue {
			replace(&blk.Terminator.ReturnValue)
		}
	}
	return recs
}

// replaceOperands applies fn to every Value-typed operand field an
// instruction's Op actually uses.
func replaceOperands(inst *ir.Instruction, fn func(*ir.Value)) {
	switch inst.Op {
	case ir.OpBinary:
		fn(&inst.Left)
		fn(&inst.Right)
	case ir.OpUnary:
		fn(&inst.Operand)
	case ir.OpCast:
		fn(&inst.Operand)
	case ir.OpHash, ir.OpLength:
		fn(&inst.Object)
	case ir.OpSlice:
		fn(&inst.Object)
		fn(&inst.SliceStart)
		fn(&inst.SliceEnd)
	case ir.OpRead:
		fn(&inst.Slot)
		fn(&inst.MemOffset)
		fn(&inst.MemLength)
	case ir.OpWrite:
		fn(&inst.Slot)
		fn(&inst.MemOffset)
		fn(&inst.MemLength)
		fn(&inst.WriteVal)
	case ir.OpComputeSlot:
		fn(&inst.Base)
		fn(&inst.Key)
		fn(&inst.Index)
	case ir.OpComputeOffset:
		fn(&inst.Base)
	case ir.OpAllocate:
		fn(&inst.AllocSize)
	case ir.OpLog:
		fn(&inst.Signature)
		for i := range inst.Topics {
			fn(&inst.Topics[i])
		}
		fn(&inst.DataPtr)
		fn(&inst.DataLen)
	}
}
