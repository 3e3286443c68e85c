package optimize

import (
	"fmt"
	"sort"
	"strings"

	"bugc/internal/ir"
)

// eliminateCSE is pass 3: redundant pure computations (repeated
// keccak256(key,slot) for the same mapping access, repeated identical
// arithmetic) collapse to the first occurrence.
//
// Spec.md §4.3 pass 3 scopes the general table "within each block";
// only compute_slot/env get a table that "survives side effects"
// across the rest of a function. A flat BlockOrder sweep (creation
// order — entry, then, merge, else for an if/else, per
// builder_stmt.go) is not a dominance-respecting visitation order: a
// pure computation from "then" does not dominate "else", so reusing
// it there would read a value the "else" path never computed,
// violating T3. This pass instead walks the function's dominator tree
// (computed below) so a block only sees facts from blocks that
// actually dominate it: general pure ops (binary/unary/cast/hash/
// length/const) get a fresh table per block exactly as spec.md says,
// while compute_slot/env get one table that persists down a block's
// dominator subtree and is unwound when the walk backtracks past the
// block that added each entry — the scoped-hash-table shape classic
// dominator-tree CSE (e.g. LLVM's EarlyCSE) uses for the same
// soundness requirement.
func eliminateCSE(fn *ir.Function, fnName string) []TransformationRecord {
	var recs []TransformationRecord
	redirect := make(map[ir.TempID]ir.Value)
	toRemove := make(map[int]bool) // instruction ID
	persistent := make(map[string]ir.Value)

	apply := func(v *ir.Value) {
		if v.IsConst || v.Temp == ir.NoTemp {
			return
		}
		if rv, ok := redirect[v.Temp]; ok {
			*v = rv
		}
	}

	record := func(inst *ir.Instruction, existing ir.Value) {
		redirect[inst.Dest] = existing
		toRemove[inst.ID] = true
		recs = append(recs, TransformationRecord{
			Pass:     EliminateCSE,
			Function: fnName,
			Original: fmt.Sprintf("inst#%d (%s)", inst.ID, inst.Op),
			Result:   fmt.Sprintf("reuse %s", valueSig(existing)),
			Reason:   "identical pure computation already available",
		})
	}

	visitBlock := func(id ir.BlockID, local map[string]ir.Value) (addedPersistent []string) {
		blk := fn.Block(id)
		for _, inst := range blk.Instructions {
			replaceOperands(inst, apply)
			if !inst.Pure() || inst.Dest == ir.NoTemp {
				continue
			}
			sig := signature(inst)
			table := local
			crossBlock := inst.Op == ir.OpComputeSlot || inst.Op == ir.OpEnv
			if crossBlock {
				table = persistent
			}
			if existing, ok := table[sig]; ok {
				record(inst, existing)
				continue
			}
			table[sig] = ir.TempValue(inst.Dest, inst.Type)
			if crossBlock {
				addedPersistent = append(addedPersistent, sig)
			}
		}
		return addedPersistent
	}

	children, order, reachable := dominatorTree(fn)
	var walk func(id ir.BlockID)
	walk = func(id ir.BlockID) {
		added := visitBlock(id, make(map[string]ir.Value))
		for _, child := range children[id] {
			walk(child)
		}
		for _, sig := range added {
			delete(persistent, sig)
		}
	}
	walk(fn.Entry)

	// Any block the dominator walk didn't reach (unreachable from
	// entry; shouldn't normally survive to this pass, but codegen
	// still needs well-formed output for it) gets its own fresh,
	// unshared tables — conservatively correct since nothing is known
	// to dominate it.
	for _, id := range order {
		if reachable[id] {
			continue
		}
		visitBlock(id, make(map[string]ir.Value))
	}

	if len(redirect) == 0 {
		return recs
	}

	for _, id := range fn.BlockOrder {
		blk := fn.Block(id)
		kept := blk.Instructions[:0]
		for _, inst := range blk.Instructions {
			if toRemove[inst.ID] {
				continue
			}
			replaceOperands(inst, apply)
			kept = append(kept, inst)
		}
		blk.Instructions = kept
		for _, phi := range blk.Phis {
			for pred, v := range phi.Sources {
				apply(&v)
				phi.Sources[pred] = v
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
	return recs
}

var commutativeBinOp = map[string]bool{
	"add": true, "mul": true, "eq": true, "ne": true, "and": true, "or": true,
}

func valueSig(v ir.Value) string {
	if v.IsConst {
		if v.Const.Word != nil {
			return "const:" + v.Const.Word.String()
		}
		return fmt.Sprintf("const:%x", v.Const.Bytes)
	}
	return fmt.Sprintf("t%d", v.Temp)
}

// signature produces a structural key for a pure instruction so two
// instructions computing the same value hash identically, regardless
// of their instruction IDs.
func signature(inst *ir.Instruction) string {
	var b strings.Builder
	b.WriteString(inst.Op.String())
	switch inst.Op {
	case ir.OpBinary:
		l, r := valueSig(inst.Left), valueSig(inst.Right)
		if commutativeBinOp[inst.BinOp] && l > r {
			l, r = r, l
		}
		fmt.Fprintf(&b, ":%s:%s:%s", inst.BinOp, l, r)
	case ir.OpUnary:
		fmt.Fprintf(&b, ":%s:%s", inst.UnOp, valueSig(inst.Operand))
	case ir.OpCast:
		fmt.Fprintf(&b, ":%s:%s", inst.CastTo, valueSig(inst.Operand))
	case ir.OpEnv:
		fmt.Fprintf(&b, ":%s", inst.EnvOp)
	case ir.OpHash:
		fmt.Fprintf(&b, ":%s", valueSig(inst.Object))
	case ir.OpLength:
		fmt.Fprintf(&b, ":%s", valueSig(inst.Object))
	case ir.OpComputeSlot:
		fmt.Fprintf(&b, ":%s:%s:%s:%s:%d", inst.SlotKind, valueSig(inst.Base), valueSig(inst.Key), valueSig(inst.Index), inst.FieldOffset)
	case ir.OpConst:
		fmt.Fprintf(&b, ":%s", valueSig(ir.ConstValue(inst.ConstVal)))
	}
	return b.String()
}

// successorsOf returns the blocks id's terminator can transfer
// control to.
func successorsOf(blk *ir.Block) []ir.BlockID {
	if blk == nil || blk.Terminator == nil {
		return nil
	}
	switch blk.Terminator.Kind {
	case ir.TermJump:
		return []ir.BlockID{blk.Terminator.Target}
	case ir.TermBranch:
		return []ir.BlockID{blk.Terminator.TrueTarget, blk.Terminator.FalseTarget}
	}
	return nil
}

// dominatorTree computes fn's immediate-dominator tree using the
// Cooper/Harvey/Kennedy iterative algorithm ("A Simple, Fast
// Dominance Algorithm"), keyed off the reverse-postorder numbering a
// DFS from entry produces. children maps a block to the blocks it
// immediately dominates; reachable marks every block the DFS actually
// found (a block absent from the CFG's reachable graph gets no
// dominance facts).
func dominatorTree(fn *ir.Function) (children map[ir.BlockID][]ir.BlockID, order []ir.BlockID, reachable map[ir.BlockID]bool) {
	order = fn.BlockOrder
	reachable = make(map[ir.BlockID]bool)

	var rpo []ir.BlockID
	visited := make(map[ir.BlockID]bool)
	var dfs func(id ir.BlockID)
	dfs = func(id ir.BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, s := range successorsOf(fn.Block(id)) {
			dfs(s)
		}
		rpo = append(rpo, id) // postorder; reversed below
	}
	dfs(fn.Entry)
	for i, j := 0, len(rpo)-1; i < j; i, j = i+1, j-1 {
		rpo[i], rpo[j] = rpo[j], rpo[i]
	}
	rpoNumber := make(map[ir.BlockID]int, len(rpo))
	for i, id := range rpo {
		rpoNumber[id] = i
		reachable[id] = true
	}

	preds := make(map[ir.BlockID][]ir.BlockID)
	for _, id := range rpo {
		for _, s := range successorsOf(fn.Block(id)) {
			if reachable[s] {
				preds[s] = append(preds[s], id)
			}
		}
	}

	idom := make(map[ir.BlockID]ir.BlockID)
	idom[fn.Entry] = fn.Entry
	intersect := func(a, b ir.BlockID) ir.BlockID {
		for a != b {
			for rpoNumber[a] > rpoNumber[b] {
				a = idom[a]
			}
			for rpoNumber[b] > rpoNumber[a] {
				b = idom[b]
			}
		}
		return a
	}
	for changed := true; changed; {
		changed = false
		for _, id := range rpo {
			if id == fn.Entry {
				continue
			}
			var newIdom ir.BlockID
			found := false
			for _, p := range preds[id] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !found {
					newIdom = p
					found = true
					continue
				}
				newIdom = intersect(newIdom, p)
			}
			if found && idom[id] != newIdom {
				idom[id] = newIdom
				changed = true
			}
		}
	}

	children = make(map[ir.BlockID][]ir.BlockID)
	for _, id := range rpo {
		if id == fn.Entry {
			continue
		}
		children[idom[id]] = append(children[idom[id]], id)
	}
	// Deterministic child order, independent of map iteration: sort by
	// rpoNumber (spec.md T5's byte-identical-output requirement).
	for parent, kids := range children {
		sort.Slice(kids, func(i, j int) bool { return rpoNumber[kids[i]] < rpoNumber[kids[j]] })
		children[parent] = kids
	}
	return children, order, reachable
}
