// Package evm implements C6: the EVM code generator. Liveness
// analysis, memory planning and block layout each get their own file;
// stackgen.go drives the actual per-instruction lowering pipeline and
// this file drives it per-function and assembles the two top-level
// artifacts spec.md §6 asks for: runtime bytecode and create
// (constructor) bytecode.
package evm

import (
	"math/big"

	"bugc/internal/assembler"
	"bugc/internal/errors"
	"bugc/internal/ir"
)

// pushIntItem builds the literal PUSHn item for a non-negative int,
// the same narrowest-width encoding gen.pushInt uses, for patching an
// already-emitted placeholder slot once its real value is known.
func pushIntItem(v int) assembler.Item {
	return assembler.PushBytes(big.NewInt(int64(v)).Bytes())
}

// Result is C6's output: the assembled runtime and create bytecode
// plus, for each, the symbolic instruction stream codegen built it
// from (spec.md §6's runtimeInstructions/createInstructions).
type Result struct {
	Runtime             []byte
	Create              []byte
	RuntimeItems        []assembler.Item
	CreateItems         []assembler.Item
	RuntimeOffsets      map[int]int
	CreateOffsets       map[int]int
}

// CodeGen lowers a module's runtime body ("main") and constructor
// ("create") functions to EVM bytecode. User-defined functions never
// reach this package: internal/ir inlines every call at IR-build time,
// so only these two entry points need real stack-machine codegen.
func CodeGen(m *ir.Module) (*Result, *errors.List) {
	diags := &errors.List{}

	var runtimeItems []assembler.Item
	if m.Main != "" {
		fn, ok := m.Functions[m.Main]
		if !ok {
			diags.Errorf(errors.UnsupportedInstruction, nil, "module declares main %q but has no such function", m.Main)
		} else {
			runtimeItems = lowerFunction(fn, m.Main, diags)
		}
	}
	runtime, err := assembler.Assemble(runtimeItems)
	if err != nil {
		diags.Errorf(errors.StackTooDeepUnrecoverable, nil, "runtime assembly: %v", err)
		runtime = &assembler.Assembled{}
	}

	var createItems []assembler.Item
	if m.Create != "" {
		fn, ok := m.Functions[m.Create]
		if !ok {
			diags.Errorf(errors.UnsupportedInstruction, nil, "module declares create %q but has no such function", m.Create)
		} else {
			createItems = lowerFunction(fn, m.Create, diags)
		}
	}
	createItems = append(createItems, constructorTrailer(len(runtime.Bytes))...)
	create, err := assembler.Assemble(createItems)
	if err != nil {
		diags.Errorf(errors.StackTooDeepUnrecoverable, nil, "create assembly: %v", err)
		create = &assembler.Assembled{}
	}

	return &Result{
		Runtime:        runtime.Bytes,
		Create:         create.Bytes,
		RuntimeItems:   runtimeItems,
		CreateItems:    createItems,
		RuntimeOffsets: runtime.Offsets,
		CreateOffsets:  create.Offsets,
	}, diags
}

// constructorTrailer appends the standard "copy my own runtime code out
// of my own code section and return it" sequence every EVM constructor
// ends with: CODECOPY(0, runtimeCodeOffset, runtimeSize); RETURN(0,
// runtimeSize). The exact byte offset of the runtime code within the
// create bytecode isn't known until after the create body is
// assembled once, so callers pass the already-measured runtime size
// and this trailer's own length is fixed, letting the caller append
// the runtime bytes immediately after at a now-known offset.
//
// The assembler only resolves JUMPDEST labels, not this kind of
// "offset of the tail of my own stream" value, so this trailer
// computes its target with a second, deterministic Assemble pass: it
// measures its own encoded length up front (it contains no symbolic
// jumps) and the caller is responsible for laying the runtime bytes
// immediately after the create items in the final module.
func constructorTrailer(runtimeSize int) []assembler.Item {
	var items []assembler.Item
	push := func(n int) {
		items = append(items, assembler.PushBytes(bigEndianTrim(n)))
	}
	push(runtimeSize)
	// runtimeOffset is filled in below once this trailer's own length
	// is known, since it depends on the trailer's encoded size.
	placeholderIdx := len(items)
	push(0)
	push(0)
	items = append(items, assembler.Item{Op: assembler.OpCODECOPY})
	push(runtimeSize)
	push(0)
	items = append(items, assembler.Item{Op: assembler.OpRETURN})

	size := func(it assembler.Item) int {
		if it.IsJumpDest {
			return 1
		}
		return 1 + len(it.Data)
	}
	runtimeOffset := 0
	for _, it := range items {
		runtimeOffset += size(it)
	}
	items[placeholderIdx] = assembler.PushBytes(bigEndianTrim(runtimeOffset))
	return items
}

func bigEndianTrim(n int) []byte {
	if n == 0 {
		return nil
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte(n)}, b...)
		n >>= 8
	}
	return b
}

// lowerFunction runs the three C6 analyses and then walks every block
// in layout order, emitting phi-resolving edge writes before each
// block's terminator.
func lowerFunction(fn *ir.Function, name string, diags *errors.List) []assembler.Item {
	order := Layout(fn)
	live := Analyze(fn, order)
	plan := PlanMemory(fn, order, live)

	// Standard out-of-SSA lowering: since every value already lives in
	// a fixed memory slot, a phi is resolved by having each predecessor
	// write its corresponding source into the phi's slot before
	// transferring control, rather than by anything the successor block
	// itself does.
	edgeWrites := make(map[ir.BlockID][]phiWrite)
	for _, id := range order {
		blk := fn.Block(id)
		for _, phi := range blk.Phis {
			for _, pred := range phi.Order {
				edgeWrites[pred] = append(edgeWrites[pred], phiWrite{dest: phi.Dest, src: phi.Sources[pred]})
			}
		}
	}

	g := &gen{plan: plan, diags: diags, fn: name}

	// Free-memory-pointer prologue (spec.md §4.4 "the first runtime
	// action of a function is MSTORE 0x40 <- 0x80"): every dynamic
	// allocation (emitAllocate, emitSlice) reads 0x40 as
	// the next free byte and bumps it, so it must be seeded before any
	// of those run. bugc's MemoryPlan additionally hands every spilled
	// SSA temp a fixed slot starting at the same scratchBase the
	// convention says to seed the pointer with (0x80), so seeding it to
	// the literal constant 0x80 would let the bump allocator immediately
	// hand out addresses the fixed spill slots already own. Seed it
	// instead with plan.NextFree's final value (0x80 plus the size of
	// the fixed spill region, determined once codegen-internal scratch
	// slots stop growing it below) so the two regions never alias; for
	// a function with no spilled temps this is exactly 0x80, matching
	// the literal spec value.
	freePtrValueIdx := len(g.items)
	g.pushInt(0)
	g.pushInt(0x40)
	g.push(assembler.Item{Op: assembler.OpMSTORE})

	for _, id := range order {
		blk := fn.Block(id)
		g.push(assembler.Item{IsJumpDest: true, Target: int(id)})
		for _, inst := range blk.Instructions {
			g.emitInstruction(inst)
		}
		for _, w := range edgeWrites[id] {
			g.loadValue(w.src)
			g.storeDest(w.dest)
		}
		g.emitTerminator(blk.Terminator)
	}

	g.items[freePtrValueIdx] = pushIntItem(plan.NextFree)
	return g.items
}

type phiWrite struct {
	dest ir.TempID
	src  ir.Value
}

func (g *gen) emitTerminator(t *ir.Terminator) {
	if t == nil {
		g.push(assembler.Item{Op: assembler.OpSTOP})
		return
	}
	switch t.Kind {
	case ir.TermJump:
		g.push(assembler.Item{IsLabelPush: true, Target: int(t.Target)})
		g.push(assembler.Item{Op: assembler.OpJUMP})

	case ir.TermBranch:
		g.loadValue(t.Condition)
		g.push(assembler.Item{IsLabelPush: true, Target: int(t.TrueTarget)})
		g.push(assembler.Item{Op: assembler.OpJUMPI})
		g.push(assembler.Item{IsLabelPush: true, Target: int(t.FalseTarget)})
		g.push(assembler.Item{Op: assembler.OpJUMP})

	case ir.TermReturn:
		if !t.HasReturnValue {
			g.push(assembler.Item{Op: assembler.OpSTOP})
			return
		}
		g.loadValue(t.ReturnValue)
		g.pushInt(0)
		g.push(assembler.Item{Op: assembler.OpMSTORE})
		g.pushInt(32)
		g.pushInt(0)
		g.push(assembler.Item{Op: assembler.OpRETURN})
	}
}
