package optimize

import (
	"fmt"

	"bugc/internal/ir"
)

// mergeBlocks is pass 6: fold a block into its sole predecessor when
// that predecessor's only successor is this block, collapsing
// straight-line jump chains into a single block (fewer JUMPDESTs in
// the final bytecode).
func mergeBlocks(fn *ir.Function, fnName string) []TransformationRecord {
	var recs []TransformationRecord

	for {
		recomputePredecessors(fn)
		merged := false
		for _, id := range fn.BlockOrder {
			pred := fn.Block(id)
			if pred == nil || pred.Terminator == nil || pred.Terminator.Kind != ir.TermJump {
				continue
			}
			target := pred.Terminator.Target
			if target == id {
				continue
			}
			succ := fn.Block(target)
			if succ == nil || len(succ.Predecessors) != 1 || succ.Predecessors[0] != id {
				continue
			}
			if len(succ.Phis) > 0 {
				// A single-predecessor block's phis are trivial
				// (exactly one source); substitute them away first so
				// the merge doesn't have to carry phi semantics into
				// straight-line code.
				substituteTrivialPhis(fn, succ)
			}

			pred.Instructions = append(pred.Instructions, succ.Instructions...)
			pred.Terminator = succ.Terminator
			delete(fn.Blocks, target)
			fn.BlockOrder = removeBlockID(fn.BlockOrder, target)

			recs = append(recs, TransformationRecord{
				Pass: MergeBlocks, Function: fnName,
				Original: fmt.Sprintf("b%d -> b%d", id, target),
				Result:   fmt.Sprintf("b%d", id),
				Reason:   "sole predecessor/successor pair collapsed",
			})
			merged = true
			break // block identities shifted; restart the scan
		}
		if !merged {
			break
		}
	}
	return recs
}

func substituteTrivialPhis(fn *ir.Function, blk *ir.Block) {
	for _, phi := range blk.Phis {
		if len(phi.Order) != 1 {
			continue
		}
		v := phi.Sources[phi.Order[0]]
		replaceTempEverywhere(fn, phi.Dest, v)
	}
	blk.Phis = nil
}

func replaceTempEverywhere(fn *ir.Function, old ir.TempID, v ir.Value) {
	apply := func(target *ir.Value) {
		if !target.IsConst && target.Temp == old {
			*target = v
		}
	}
	for _, id := range fn.BlockOrder {
		blk := fn.Block(id)
		for _, inst := range blk.Instructions {
			replaceOperands(inst, apply)
		}
		for _, phi := range blk.Phis {
			for pred, s := range phi.Sources {
				apply(&s)
				phi.Sources[pred] = s
			}
		}
		if blk.Terminator != nil {
			if blk.Terminator.Kind == ir.TermBranch {
				apply(&blk.Terminator.Condition)
			}
			if blk.Terminator.Kind == ir.TermReturn && blk.Terminator.HasReturnValue {
				apply(&blk.Terminator.ReturnValue)
			}
		}
	}
}

func recomputePredecessors(fn *ir.Function) {
	for _, id := range fn.BlockOrder {
		fn.Block(id).Predecessors = nil
	}
	for _, id := range fn.BlockOrder {
		blk := fn.Block(id)
		if blk.Terminator == nil {
			continue
		}
		switch blk.Terminator.Kind {
		case ir.TermJump:
			addPredTo(fn, blk.Terminator.Target, id)
		case ir.TermBranch:
			addPredTo(fn, blk.Terminator.TrueTarget, id)
			addPredTo(fn, blk.Terminator.FalseTarget, id)
		}
	}
}

func addPredTo(fn *ir.Function, id, pred ir.BlockID) {
	blk := fn.Block(id)
	if blk == nil {
		return
	}
	for _, p := range blk.Predecessors {
		if p == pred {
			return
		}
	}
	blk.Predecessors = append(blk.Predecessors, pred)
}

func removeBlockID(order []ir.BlockID, target ir.BlockID) []ir.BlockID {
	out := order[:0]
	for _, id := range order {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
