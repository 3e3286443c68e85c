package evm

import (
	"sort"

	"bugc/internal/ir"
)

// scratchBase is where bugc's per-function temp spill area starts,
// leaving the conventional low scratch words (0x00-0x3f) and the free
// memory pointer slot (0x40-0x5f) untouched, following the
// free-memory-pointer convention most EVM compilers use. This fixed
// spill region occupies [scratchBase, plan.NextFree) once PlanMemory
// finishes; codegen.go's lowerFunction seeds the runtime free-memory
// pointer at 0x40 with that final plan.NextFree, not the literal
// 0x80, so the bump allocator used for dynamic bytes/array allocation
// (emitAllocate et al.) starts handing out memory above this region
// instead of aliasing it.
const scratchBase = 0x80

const wordSize = 32

// MemoryPlan assigns every live temp in a function a fixed 32-byte
// memory slot, reusing slots across temps whose liveness intervals
// (from Liveness) don't overlap — a linear-scan allocator, the
// simplest variant of the family register allocators in this corpus
// (cmd/compile's SSA backend, among others) use for exactly this
// problem, just targeting memory instead of machine registers.
type MemoryPlan struct {
	Slots     map[ir.TempID]int // TempID -> byte offset
	NextFree  int                // first byte offset past the plan's spill area
}

func PlanMemory(fn *ir.Function, order []ir.BlockID, live *Liveness) *MemoryPlan {
	type interval struct {
		temp     ir.TempID
		def, end int
	}
	var intervals []interval
	for t, def := range live.DefIndex {
		intervals = append(intervals, interval{temp: t, def: def, end: live.LastUse[t]})
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].def < intervals[j].def })

	plan := &MemoryPlan{Slots: make(map[ir.TempID]int), NextFree: scratchBase}

	type freeSlot struct {
		offset int
		freeAt int // the index at which this slot's previous occupant died
	}
	var free []freeSlot

	for _, iv := range intervals {
		assigned := -1
		var remaining []freeSlot
		for _, f := range free {
			if assigned == -1 && f.freeAt <= iv.def {
				assigned = f.offset
				continue
			}
			remaining = append(remaining, f)
		}
		free = remaining

		if assigned == -1 {
			assigned = plan.NextFree
			plan.NextFree += wordSize
		}
		plan.Slots[iv.temp] = assigned
		free = append(free, freeSlot{offset: assigned, freeAt: iv.end})
	}

	// Parameters are live from function entry, but Analyze records no
	// definition for them (a parameter's temp is only ever used), so
	// they are not among the intervals above; each gets its own
	// dedicated slot here.
	for _, p := range fn.Params {
		if _, ok := plan.Slots[p.TempID]; !ok {
			plan.Slots[p.TempID] = plan.NextFree
			plan.NextFree += wordSize
		}
	}

	return plan
}

func (p *MemoryPlan) Offset(t ir.TempID) int {
	if off, ok := p.Slots[t]; ok {
		return off
	}
	off := p.NextFree
	p.Slots[t] = off
	p.NextFree += wordSize
	return off
}
