package evm

import (
	"math/big"

	"bugc/internal/assembler"
	"bugc/internal/errors"
	"bugc/internal/ir"
)

// gen lowers one ir.Function to a flat assembler.Item stream. It owns
// the "stack-typed operation pipeline": every helper below either
// pushes exactly the operands an opcode needs (loadValue) or consumes
// the opcode's result (storeDest), so the only thing that
// ever grows the live EVM stack across a call to emitInstruction is
// the opcode's own declared outputs — the pipeline's shape is the
// invariant spec.md §4.4.1 asks codegen to hold.
type gen struct {
	plan  *MemoryPlan
	diags *errors.List
	fn    string

	items []assembler.Item
}

func (g *gen) push(it assembler.Item) { g.items = append(g.items, it) }

func (g *gen) pushInt(v int) {
	g.push(assembler.PushBytes(big.NewInt(int64(v)).Bytes()))
}

func (g *gen) pushWord(w *big.Int) {
	g.push(assembler.PushBytes(w.Bytes()))
}

// loadValue pushes v's runtime value onto the stack: a literal
// constant is pushed directly; a temp is pushed by reading its
// memory-planned spill slot.
func (g *gen) loadValue(v ir.Value) {
	if v.IsConst {
		if v.Const.Word != nil {
			g.pushWord(v.Const.Word)
			return
		}
		// A dynamic bytes/string constant's "value" for stack purposes
		// is its length; its payload bytes are not written to memory.
		g.pushInt(len(v.Const.Bytes))
		return
	}
	g.pushInt(g.plan.Offset(v.Temp))
	g.push(assembler.Item{Op: assembler.OpMLOAD})
}

// storeDest writes the value currently on top of the stack into
// dest's memory slot.
func (g *gen) storeDest(dest ir.TempID) {
	g.pushInt(g.plan.Offset(dest))
	g.push(assembler.Item{Op: assembler.OpMSTORE})
}

// loadOperandsInEVMOrder pushes vals so that vals[0] ends up as the
// top of stack (the EVM yellow paper's μs[0]), vals[1] as μs[1], and
// so on — the order every multi-operand opcode expects.
func (g *gen) loadOperandsInEVMOrder(vals ...ir.Value) {
	for i := len(vals) - 1; i >= 0; i-- {
		g.loadValue(vals[i])
	}
}

var binOpcode = map[string]assembler.Opcode{
	"add": assembler.OpADD, "sub": assembler.OpSUB, "mul": assembler.OpMUL,
	"div": assembler.OpDIV, "mod": assembler.OpMOD,
	"lt": assembler.OpLT, "gt": assembler.OpGT,
	"eq": assembler.OpEQ, "and": assembler.OpAND, "or": assembler.OpOR,
}

func (g *gen) emitInstruction(inst *ir.Instruction) {
	switch inst.Op {
	case ir.OpConst:
		if inst.ConstVal.Word != nil {
			g.pushWord(inst.ConstVal.Word)
		} else {
			g.pushInt(len(inst.ConstVal.Bytes))
		}
		g.storeDest(inst.Dest)

	case ir.OpBinary:
		// le/ge/ne lower to GT/LT/EQ + ISZERO rather than NOT, since EVM
		// has no boolean complement opcode for multi-bit comparison
		// results; ISZERO is the correct zero-test either way.
		switch inst.BinOp {
		case "le":
			g.loadOperandsInEVMOrder(inst.Left, inst.Right)
			g.push(assembler.Item{Op: assembler.OpGT})
			g.push(assembler.Item{Op: assembler.OpISZERO})
		case "ge":
			g.loadOperandsInEVMOrder(inst.Left, inst.Right)
			g.push(assembler.Item{Op: assembler.OpLT})
			g.push(assembler.Item{Op: assembler.OpISZERO})
		case "ne":
			g.loadOperandsInEVMOrder(inst.Left, inst.Right)
			g.push(assembler.Item{Op: assembler.OpEQ})
			g.push(assembler.Item{Op: assembler.OpISZERO})
		default:
			op, ok := binOpcode[inst.BinOp]
			if !ok {
				g.diags.Errorf(errors.UnsupportedInstruction, nil, "unsupported binary op %q", inst.BinOp)
				return
			}
			g.loadOperandsInEVMOrder(inst.Left, inst.Right)
			g.push(assembler.Item{Op: op})
		}
		g.storeDest(inst.Dest)

	case ir.OpUnary:
		switch inst.UnOp {
		case "not":
			g.loadValue(inst.Operand)
			g.push(assembler.Item{Op: assembler.OpISZERO})
		case "neg":
			g.loadValue(inst.Operand)
			g.pushInt(0)
			g.push(assembler.Item{Op: assembler.OpSUB})
		default:
			g.diags.Errorf(errors.UnsupportedInstruction, nil, "unsupported unary op %q", inst.UnOp)
			return
		}
		g.storeDest(inst.Dest)

	case ir.OpCast:
		// All BUG scalars share the 256-bit EVM word; a cast only
		// changes how the type checker interprets the bits, not their
		// runtime representation, so codegen just forwards the value.
		g.loadValue(inst.Operand)
		g.storeDest(inst.Dest)

	case ir.OpEnv:
		g.emitEnv(inst)

	case ir.OpHash:
		g.loadValue(inst.Object)
		g.pushInt(0)
		g.push(assembler.Item{Op: assembler.OpMSTORE})
		g.pushInt(32)
		g.pushInt(0)
		g.push(assembler.Item{Op: assembler.OpSHA3})
		g.storeDest(inst.Dest)

	case ir.OpRead:
		g.emitRead(inst)

	case ir.OpWrite:
		g.emitWrite(inst)

	case ir.OpComputeSlot:
		g.emitComputeSlot(inst)

	case ir.OpComputeOffset:
		g.loadValue(inst.Base)
		g.storeDest(inst.Dest)

	case ir.OpLength:
		g.loadValue(inst.Object)
		g.push(assembler.Item{Op: assembler.OpMLOAD})
		g.storeDest(inst.Dest)

	case ir.OpSlice:
		g.emitSlice(inst)

	case ir.OpAllocate:
		g.emitAllocate(inst)

	case ir.OpLog:
		g.emitLog(inst)

	default:
		g.diags.Errorf(errors.UnsupportedInstruction, nil, "unsupported IR op %s", inst.Op)
	}
}

func (g *gen) emitEnv(inst *ir.Instruction) {
	switch inst.EnvOp {
	case "msg_sender":
		g.push(assembler.Item{Op: assembler.OpCALLER})
	case "msg_value":
		g.push(assembler.Item{Op: assembler.OpCALLVALUE})
	case "msg_data":
		// msg.data's "value" on the word stack is its pointer/offset,
		// which for calldata is simply 0 (the region starts at
		// calldata offset 0 and its size is CALLDATASIZE).
		g.pushInt(0)
	case "block_number":
		g.push(assembler.Item{Op: assembler.OpNUMBER})
	case "block_timestamp":
		g.push(assembler.Item{Op: assembler.OpTIMESTAMP})
	default:
		g.diags.Errorf(errors.UnsupportedInstruction, nil, "unsupported env op %q", inst.EnvOp)
		return
	}
	g.storeDest(inst.Dest)
}

func (g *gen) emitRead(inst *ir.Instruction) {
	switch inst.Loc {
	case ir.LocStorage:
		g.loadValue(inst.Slot)
		g.push(assembler.Item{Op: assembler.OpSLOAD})
	case ir.LocMemory:
		g.loadValue(inst.MemOffset)
		g.push(assembler.Item{Op: assembler.OpMLOAD})
	case ir.LocCalldata:
		g.loadValue(inst.MemOffset)
		g.push(assembler.Item{Op: assembler.OpCALLDATALOAD})
	default:
		g.diags.Errorf(errors.UnsupportedInstruction, nil, "unsupported read location %q", inst.Loc)
		return
	}
	g.storeDest(inst.Dest)
}

func (g *gen) emitWrite(inst *ir.Instruction) {
	switch inst.Loc {
	case ir.LocStorage:
		g.loadOperandsInEVMOrder(inst.Slot, inst.WriteVal)
		g.push(assembler.Item{Op: assembler.OpSSTORE})
	case ir.LocMemory:
		g.loadOperandsInEVMOrder(inst.MemOffset, inst.WriteVal)
		g.push(assembler.Item{Op: assembler.OpMSTORE})
	default:
		g.diags.Errorf(errors.UnsupportedInstruction, nil, "unsupported write location %q", inst.Loc)
	}
}

// emitComputeSlot implements spec.md §4.2.3's three storage-chain
// collapses: keccak256(key . base) for a mapping level, keccak256(base)
// for an array level, and base+fieldOffset for a struct-field level.
func (g *gen) emitComputeSlot(inst *ir.Instruction) {
	switch inst.SlotKind {
	case ir.SlotMapping:
		g.loadValue(inst.Key)
		g.pushInt(0)
		g.push(assembler.Item{Op: assembler.OpMSTORE})
		g.loadValue(inst.Base)
		g.pushInt(32)
		g.push(assembler.Item{Op: assembler.OpMSTORE})
		g.pushInt(64)
		g.pushInt(0)
		g.push(assembler.Item{Op: assembler.OpSHA3})
	case ir.SlotArray:
		g.loadValue(inst.Base)
		g.pushInt(0)
		g.push(assembler.Item{Op: assembler.OpMSTORE})
		g.pushInt(32)
		g.pushInt(0)
		g.push(assembler.Item{Op: assembler.OpSHA3})
		g.loadValue(inst.Index)
		g.push(assembler.Item{Op: assembler.OpADD})
	case ir.SlotField:
		g.loadValue(inst.Base)
		g.pushInt(inst.FieldOffset)
		g.push(assembler.Item{Op: assembler.OpADD})
	default:
		g.diags.Errorf(errors.UnsupportedInstruction, nil, "unsupported slot kind %q", inst.SlotKind)
		return
	}
	g.storeDest(inst.Dest)
}

// emitSlice lowers a bytes/string slice (or single-byte index, which
// arrives here as a slice with no declared end) to a fresh bump
// allocation carrying a [length][data] header, using MCOPY (EIP-5656)
// for the mem-to-mem data copy instead of an emitted byte-at-a-time
// loop.
func (g *gen) emitSlice(inst *ir.Instruction) {
	objPtr := g.storeScratch(inst.Object)

	startVal := inst.SliceStart
	if !startVal.IsConst && startVal.Temp == ir.NoTemp {
		startVal = ir.ConstValue(ir.IntConst(0, nil))
	}
	startSlot := g.storeScratch(startVal)

	if inst.SliceEnd.IsConst || inst.SliceEnd.Temp != ir.NoTemp {
		g.loadValue(ir.TempValue(startSlot, nil))
		g.loadValue(inst.SliceEnd)
		g.push(assembler.Item{Op: assembler.OpSUB})
	} else {
		// No declared end: a single-element extraction, matching
		// AccessIndex's one-byte-slice lowering.
		g.pushInt(1)
	}
	lenSlot := g.bumpScratch()
	g.storeDest(lenSlot)

	// newPtr = free memory pointer; bugc's result for this op.
	g.pushInt(0x40)
	g.push(assembler.Item{Op: assembler.OpMLOAD})
	g.storeDest(inst.Dest)

	// header word: write the slice's length at newPtr.
	g.loadValue(ir.TempValue(lenSlot, nil))
	g.loadValue(ir.TempValue(inst.Dest, nil))
	g.push(assembler.Item{Op: assembler.OpMSTORE})

	// MCOPY dst src length (same operand order as CODECOPY/CALLDATACOPY)
	g.loadValue(ir.TempValue(lenSlot, nil))
	g.loadValue(ir.TempValue(objPtr, nil))
	g.pushInt(32)
	g.push(assembler.Item{Op: assembler.OpADD})
	g.loadValue(ir.TempValue(startSlot, nil))
	g.push(assembler.Item{Op: assembler.OpADD})
	g.loadValue(ir.TempValue(inst.Dest, nil))
	g.pushInt(32)
	g.push(assembler.Item{Op: assembler.OpADD})
	g.push(assembler.Item{Op: assembler.OpMCOPY})

	// advance the free memory pointer past the new [length][data] block.
	g.loadValue(ir.TempValue(lenSlot, nil))
	g.pushInt(32)
	g.push(assembler.Item{Op: assembler.OpADD})
	g.loadValue(ir.TempValue(inst.Dest, nil))
	g.push(assembler.Item{Op: assembler.OpADD})
	g.pushInt(0x40)
	g.push(assembler.Item{Op: assembler.OpMSTORE})
}

// storeScratch evaluates v and spills it into a fresh scratch slot not
// tied to any builder-issued temp, returning that slot's synthetic ID.
func (g *gen) storeScratch(v ir.Value) ir.TempID {
	t := g.bumpScratch()
	g.loadValue(v)
	g.storeDest(t)
	return t
}

// bumpScratch reserves a fresh spill slot for codegen-internal
// bookkeeping (never a value the IR itself produced). Negative IDs
// can't collide with the positive TempIDs the builder issues.
func (g *gen) bumpScratch() ir.TempID {
	offset := g.plan.NextFree
	g.plan.NextFree += wordSize
	t := ir.TempID(-g.plan.NextFree)
	g.plan.Slots[t] = offset
	return t
}

func (g *gen) emitAllocate(inst *ir.Instruction) {
	// Bump-allocate: read the free-memory pointer (conventionally held
	// at 0x40), return it as this allocation's base, then advance it
	// by the requested size.
	g.pushInt(0x40)
	g.push(assembler.Item{Op: assembler.OpMLOAD})
	g.storeDest(inst.Dest)

	g.pushInt(0x40)
	g.push(assembler.Item{Op: assembler.OpMLOAD})
	g.loadValue(inst.AllocSize)
	g.push(assembler.Item{Op: assembler.OpADD})
	g.pushInt(0x40)
	g.push(assembler.Item{Op: assembler.OpMSTORE})
}

func (g *gen) emitLog(inst *ir.Instruction) {
	ops := []ir.Value{inst.DataPtr, inst.DataLen}
	ops = append(ops, inst.Signature)
	ops = append(ops, inst.Topics...)
	g.loadOperandsInEVMOrder(ops...)
	g.push(assembler.Item{Op: assembler.LOG(len(inst.Topics) + 1)})
}
