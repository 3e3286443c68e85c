package optimize

import (
	"fmt"

	"bugc/internal/ir"
)

// eliminateDeadCode is pass 4: drop unreachable blocks and pure
// instructions/phis whose results are never read, grounded on kanso's
// DeadCodeElimination (markReachable + used-value sweep).
func eliminateDeadCode(fn *ir.Function, fnName string) []TransformationRecord {
	var recs []TransformationRecord

	reachable := map[ir.BlockID]bool{fn.Entry: true}
	frontier := []ir.BlockID{fn.Entry}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		blk := fn.Block(id)
		if blk == nil || blk.Terminator == nil {
			continue
		}
		var succs []ir.BlockID
		switch blk.Terminator.Kind {
		case ir.TermJump:
			succs = []ir.BlockID{blk.Terminator.Target}
		case ir.TermBranch:
			succs = []ir.BlockID{blk.Terminator.TrueTarget, blk.Terminator.FalseTarget}
		}
		for _, s := range succs {
			if !reachable[s] {
				reachable[s] = true
				frontier = append(frontier, s)
			}
		}
	}

	var newOrder []ir.BlockID
	for _, id := range fn.BlockOrder {
		if reachable[id] {
			newOrder = append(newOrder, id)
			continue
		}
		recs = append(recs, TransformationRecord{
			Pass:     EliminateDead,
			Function: fnName,
			Original: fmt.Sprintf("block b%d", id),
			Result:   "removed",
			Reason:   "unreachable from entry",
		})
		delete(fn.Blocks, id)
	}
	fn.BlockOrder = newOrder

	// Fixed-point over used-value removal: removing a dead instruction
	// can make its own operands' defining instructions dead in turn.
	for {
		used := make(map[ir.TempID]bool)
		for _, id := range fn.BlockOrder {
			blk := fn.Block(id)
			for _, inst := range blk.Instructions {
				markUsed(inst, used)
			}
			for _, phi := range blk.Phis {
				for _, v := range phi.Sources {
					if !v.IsConst {
						used[v.Temp] = true
					}
				}
			}
			if blk.Terminator != nil {
				if blk.Terminator.Kind == ir.TermBranch && !blk.Terminator.Condition.IsConst {
					used[blk.Terminator.Condition.Temp] = true
				}
				if blk.Terminator.Kind == ir.TermReturn && blk.Terminator.HasReturnValue && !blk.Terminator.ReturnValue.IsConst {
					used[blk.Terminator.ReturnValue.Temp] = true
				}
			}
		}

		changed := false
		for _, id := range fn.BlockOrder {
			blk := fn.Block(id)
			kept := blk.Instructions[:0]
			for _, inst := range blk.Instructions {
				if hasSideEffect(inst) || inst.Dest == ir.NoTemp || used[inst.Dest] {
					kept = append(kept, inst)
					continue
				}
				recs = append(recs, TransformationRecord{
					Pass:     EliminateDead,
					Function: fnName,
					Original: fmt.Sprintf("inst#%d (%s)", inst.ID, inst.Op),
					Result:   "removed",
					Reason:   "result is never used",
				})
				changed = true
			}
			blk.Instructions = kept

			var keptPhis []*ir.Phi
			for _, phi := range blk.Phis {
				if used[phi.Dest] {
					keptPhis = append(keptPhis, phi)
					continue
				}
				changed = true
			}
			blk.Phis = keptPhis
		}
		if !changed {
			break
		}
	}

	return recs
}

func hasSideEffect(inst *ir.Instruction) bool {
	switch inst.Op {
	case ir.OpWrite, ir.OpLog, ir.OpAllocate:
		return true
	default:
		return false
	}
}

func markUsed(inst *ir.Instruction, used map[ir.TempID]bool) {
	mark := func(v ir.Value) {
		if !v.IsConst && v.Temp != ir.NoTemp {
			used[v.Temp] = true
		}
	}
	switch inst.Op {
	case ir.OpBinary:
		mark(inst.Left)
		mark(inst.Right)
	case ir.OpUnary, ir.OpCast:
		mark(inst.Operand)
	case ir.OpHash, ir.OpLength:
		mark(inst.Object)
	case ir.OpSlice:
		mark(inst.Object)
		mark(inst.SliceStart)
		mark(inst.SliceEnd)
	case ir.OpRead:
		mark(inst.Slot)
		mark(inst.MemOffset)
		mark(inst.MemLength)
	case ir.OpWrite:
		mark(inst.Slot)
		mark(inst.MemOffset)
		mark(inst.MemLength)
		mark(inst.WriteVal)
	case ir.OpComputeSlot:
		mark(inst.Base)
		mark(inst.Key)
		mark(inst.Index)
	case ir.OpComputeOffset:
		mark(inst.Base)
	case ir.OpAllocate:
		mark(inst.AllocSize)
	case ir.OpLog:
		mark(inst.Signature)
		for _, t := range inst.Topics {
			mark(t)
		}
		mark(inst.DataPtr)
		mark(inst.DataLen)
	}
}
