package optimize

import (
	"fmt"

	"bugc/internal/ir"
)

// optimizeJumps is pass 5: collapse a branch whose condition folded to
// a known constant into an unconditional jump, redirect a jump whose
// target is itself an empty jump-only block directly to the final
// target, and drop a branch whose two targets coincide.
func optimizeJumps(fn *ir.Function, fnName string) []TransformationRecord {
	var recs []TransformationRecord

	jumpOnly := make(map[ir.BlockID]ir.BlockID)
	for _, id := range fn.BlockOrder {
		blk := fn.Block(id)
		if len(blk.Instructions) == 0 && len(blk.Phis) == 0 && blk.Terminator != nil && blk.Terminator.Kind == ir.TermJump {
			jumpOnly[id] = blk.Terminator.Target
		}
	}
	resolve := func(target ir.BlockID) ir.BlockID {
		seen := map[ir.BlockID]bool{}
		for {
			next, ok := jumpOnly[target]
			if !ok || next == target || seen[target] {
				return target
			}
			seen[target] = true
			target = next
		}
	}

	for _, id := range fn.BlockOrder {
		blk := fn.Block(id)
		if blk.Terminator == nil {
			continue
		}
		switch blk.Terminator.Kind {
		case ir.TermJump:
			if final := resolve(blk.Terminator.Target); final != blk.Terminator.Target {
				recs = append(recs, TransformationRecord{
					Pass: OptimizeJump, Function: fnName,
					Original: fmt.Sprintf("jump b%d -> b%d", id, blk.Terminator.Target),
					Result:   fmt.Sprintf("jump b%d -> b%d", id, final),
					Reason:   "target is an empty jump-only block",
				})
				blk.Terminator.Target = final
			}

		case ir.TermBranch:
			t := resolve(blk.Terminator.TrueTarget)
			f := resolve(blk.Terminator.FalseTarget)
			if blk.Terminator.Condition.IsConst && blk.Terminator.Condition.Const.Word != nil {
				target := f
				if blk.Terminator.Condition.Const.Word.Sign() != 0 {
					target = t
				}
				recs = append(recs, TransformationRecord{
					Pass: OptimizeJump, Function: fnName,
					Original: fmt.Sprintf("branch b%d", id),
					Result:   fmt.Sprintf("jump b%d -> b%d", id, target),
					Reason:   "condition folded to a compile-time constant",
				})
				blk.Terminator = &ir.Terminator{Kind: ir.TermJump, Target: target}
				continue
			}
			if t == f {
				recs = append(recs, TransformationRecord{
					Pass: OptimizeJump, Function: fnName,
					Original: fmt.Sprintf("branch b%d", id),
					Result:   fmt.Sprintf("jump b%d -> b%d", id, t),
					Reason:   "both branch targets coincide",
				})
				blk.Terminator = &ir.Terminator{Kind: ir.TermJump, Target: t}
				continue
			}
			blk.Terminator.TrueTarget = t
			blk.Terminator.FalseTarget = f
		}
	}
	return recs
}
