// Package evm implements C6: the EVM code generator. Liveness
// analysis, memory planning and block layout each get their own file;
// stackgen.go drives the actual per-instruction lowering pipeline.
package evm

import "bugc/internal/ir"

// uses returns the temps an instruction reads.
func uses(inst *ir.Instruction) []ir.TempID {
	var out []ir.TempID
	add := func(v ir.Value) {
		if !v.IsConst && v.Temp != ir.NoTemp {
			out = append(out, v.Temp)
		}
	}
	switch inst.Op {
	case ir.OpBinary:
		add(inst.Left)
		add(inst.Right)
	case ir.OpUnary, ir.OpCast:
		add(inst.Operand)
	case ir.OpHash, ir.OpLength:
		add(inst.Object)
	case ir.OpSlice:
		add(inst.Object)
		add(inst.SliceStart)
		add(inst.SliceEnd)
	case ir.OpRead:
		add(inst.Slot)
		add(inst.MemOffset)
		add(inst.MemLength)
	case ir.OpWrite:
		add(inst.Slot)
		add(inst.MemOffset)
		add(inst.MemLength)
		add(inst.WriteVal)
	case ir.OpComputeSlot:
		add(inst.Base)
		add(inst.Key)
		add(inst.Index)
	case ir.OpComputeOffset:
		add(inst.Base)
	case ir.OpAllocate:
		add(inst.AllocSize)
	case ir.OpLog:
		add(inst.Signature)
		for _, t := range inst.Topics {
			add(t)
		}
		add(inst.DataPtr)
		add(inst.DataLen)
	}
	return out
}

// Liveness holds per-temp lifetime bounds expressed as indices into a
// function's linear instruction schedule (the running index Analyze
// gives each phi, instruction and terminator in layout order), used by
// the memory planner to coalesce non-overlapping temps onto the same
// slot.
type Liveness struct {
	DefIndex map[ir.TempID]int
	LastUse  map[ir.TempID]int
}

// Analyze computes def/last-use indices for every temp in fn, given
// the block visitation order codegen will actually emit in.
func Analyze(fn *ir.Function, order []ir.BlockID) *Liveness {
	l := &Liveness{DefIndex: make(map[ir.TempID]int), LastUse: make(map[ir.TempID]int)}

	idx := 0
	touch := func(t ir.TempID, isDef bool) {
		if isDef {
			if _, ok := l.DefIndex[t]; !ok {
				l.DefIndex[t] = idx
			}
		}
		if cur, ok := l.LastUse[t]; !ok || idx > cur {
			l.LastUse[t] = idx
		}
	}

	for _, id := range order {
		blk := fn.Block(id)
		for _, phi := range blk.Phis {
			touch(phi.Dest, true)
			for _, v := range phi.Sources {
				if !v.IsConst {
					touch(v.Temp, false)
				}
			}
			idx++
		}
		for _, inst := range blk.Instructions {
			for _, t := range uses(inst) {
				touch(t, false)
			}
			if inst.Dest != ir.NoTemp {
				touch(inst.Dest, true)
			}
			idx++
		}
		if blk.Terminator != nil {
			if blk.Terminator.Kind == ir.TermBranch && !blk.Terminator.Condition.IsConst {
				touch(blk.Terminator.Condition.Temp, false)
			}
			if blk.Terminator.Kind == ir.TermReturn && blk.Terminator.HasReturnValue && !blk.Terminator.ReturnValue.IsConst {
				touch(blk.Terminator.ReturnValue.Temp, false)
			}
			idx++
		}
	}
	return l
}
