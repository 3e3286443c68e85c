package evm

import "bugc/internal/ir"

// Layout picks the block visitation order codegen emits in: a
// depth-first walk from entry that always continues into a block's
// first successor before backtracking, so the common case (the next
// block in program order is also the fallthrough target) needs no
// extra JUMP. Loop headers are naturally visited before their bodies
// since the IR builder allocates their block IDs in that order.
func Layout(fn *ir.Function) []ir.BlockID {
	visited := make(map[ir.BlockID]bool)
	var order []ir.BlockID

	var walk func(id ir.BlockID)
	walk = func(id ir.BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		order = append(order, id)
		blk := fn.Block(id)
		if blk == nil || blk.Terminator == nil {
			return
		}
		switch blk.Terminator.Kind {
		case ir.TermJump:
			walk(blk.Terminator.Target)
		case ir.TermBranch:
			walk(blk.Terminator.TrueTarget)
			walk(blk.Terminator.FalseTarget)
		}
	}
	walk(fn.Entry)

	// Any block the DFS didn't reach (shouldn't happen post-DCE, but
	// codegen must still emit something for it) is appended in
	// declaration order.
	for _, id := range fn.BlockOrder {
		if !visited[id] {
			order = append(order, id)
			visited[id] = true
		}
	}
	return order
}
