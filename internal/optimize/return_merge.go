package optimize

import (
	"fmt"

	"bugc/internal/ir"
)

// mergeReturns is pass 7: when a function has more than one `return`
// site, introduce a single synthetic exit block and redirect every
// return to jump there with its value threaded through a phi, so the
// code generator only ever lowers one RETURN sequence per function.
func mergeReturns(fn *ir.Function, fnName string) []TransformationRecord {
	var returning []ir.BlockID
	for _, id := range fn.BlockOrder {
		blk := fn.Block(id)
		if blk.Terminator != nil && blk.Terminator.Kind == ir.TermReturn {
			returning = append(returning, id)
		}
	}
	if len(returning) <= 1 {
		return nil
	}

	var maxID ir.BlockID
	var maxTemp ir.TempID
	for _, id := range fn.BlockOrder {
		if id > maxID {
			maxID = id
		}
		for _, inst := range fn.Block(id).Instructions {
			if inst.Dest > maxTemp {
				maxTemp = inst.Dest
			}
		}
		for _, phi := range fn.Block(id).Phis {
			if phi.Dest > maxTemp {
				maxTemp = phi.Dest
			}
		}
	}
	exitID := maxID + 1

	hasValue := fn.Block(returning[0]).Terminator.HasReturnValue
	exit := &ir.Block{ID: exitID, Label: "exit"}

	var phi *ir.Phi
	if hasValue {
		maxTemp++
		phi = &ir.Phi{Dest: maxTemp, Type: fn.ReturnType, Sources: make(map[ir.BlockID]ir.Value)}
		exit.Phis = append(exit.Phis, phi)
	}

	for _, id := range returning {
		blk := fn.Block(id)
		if hasValue {
			phi.Sources[id] = blk.Terminator.ReturnValue
			phi.Order = append(phi.Order, id)
		}
		blk.Terminator = &ir.Terminator{Kind: ir.TermJump, Target: exitID}
	}

	if hasValue {
		exit.Terminator = &ir.Terminator{Kind: ir.TermReturn, HasReturnValue: true, ReturnValue: ir.TempValue(phi.Dest, fn.ReturnType)}
	} else {
		exit.Terminator = &ir.Terminator{Kind: ir.TermReturn}
	}

	fn.Blocks[exitID] = exit
	fn.BlockOrder = append(fn.BlockOrder, exitID)
	recomputePredecessors(fn)

	return []TransformationRecord{{
		Pass:     MergeReturns,
		Function: fnName,
		Original: fmt.Sprintf("%d separate return sites", len(returning)),
		Result:   fmt.Sprintf("single return via b%d", exitID),
		Reason:   "canonicalizes the function to one RETURN lowering site",
	}}
}
