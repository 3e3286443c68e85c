package ir

import (
	"bugc/internal/ast"
	"bugc/internal/errors"
	"bugc/internal/semantic"
	"bugc/internal/types"
)

// loopCtx tracks the jump targets `break`/`continue` resolve to,
// mirroring kanso's builder.go loop-context stack.
type loopCtx struct {
	continueTarget BlockID
	breakTarget    BlockID
}

// Builder lowers a type-checked ast.Program to SSA ir.Module. SSA
// construction uses the on-demand, sealed-block technique (Braun et
// al., "Simple and Efficient Construction of SSA Form"): reading a
// variable in a block with an unresolved predecessor set creates an
// incomplete phi immediately; sealing a block (once every predecessor
// edge into it is known) fills in that phi's sources. This realizes
// spec.md §4.2.4's phi-insertion rules as part of lowering rather than
// as a separate pass over the finished CFG — see DESIGN.md for why
// that equivalent strategy was chosen.
type Builder struct {
	checked semantic.Types
	diags   *errors.List

	module *Module
	fn     *Function
	cur    BlockID

	tempCounter  TempID
	blockCounter BlockID
	instCounter  int

	currentDef     map[string]map[BlockID]Value
	sealedBlocks   map[BlockID]bool
	incompletePhis map[BlockID]map[string]*Phi
	localNames     map[string]bool

	storageSlots map[string]int
	storageTypes map[string]*types.Type
	declsByName  map[string]*ast.FunctionDecl

	loopStack []loopCtx
}

// BuildProgram is C4's entry point: it lowers a type-checked Program
// into an SSA Module.
func BuildProgram(program *ast.Program, checked semantic.Types) (*Module, *errors.List) {
	b := &Builder{
		checked:      checked,
		diags:        &errors.List{},
		storageSlots: make(map[string]int),
		storageTypes: make(map[string]*types.Type),
		declsByName:  make(map[string]*ast.FunctionDecl),
	}
	b.module = &Module{
		Name:      program.Name,
		Functions: make(map[string]*Function),
	}

	for _, d := range program.Declarations {
		if s, ok := d.(*ast.StorageDecl); ok {
			t := b.checked[s.NodeID()]
			b.storageSlots[s.Name] = s.Slot
			b.storageTypes[s.Name] = t
			b.module.Storage = append(b.module.Storage, StorageSlotInfo{Name: s.Name, Slot: s.Slot, Type: t})
		}
		if fn, ok := d.(*ast.FunctionDecl); ok {
			b.declsByName[fn.Name] = fn
		}
	}

	for _, d := range program.Declarations {
		if fn, ok := d.(*ast.FunctionDecl); ok {
			irFn := b.buildFunction(fn.Name, fn.Parameters, fn.ReturnType, fn.Body)
			b.module.Functions[fn.Name] = irFn
			b.module.FunctionOrder = append(b.module.FunctionOrder, fn.Name)
		}
	}

	if program.Create != nil {
		irFn := b.buildFunction("create", nil, nil, program.Create)
		b.module.Functions["create"] = irFn
		b.module.FunctionOrder = append(b.module.FunctionOrder, "create")
		b.module.Create = "create"
	}
	if program.Body != nil {
		irFn := b.buildFunction("main", nil, nil, program.Body)
		b.module.Functions["main"] = irFn
		b.module.FunctionOrder = append(b.module.FunctionOrder, "main")
		b.module.Main = "main"
	}

	return b.module, b.diags
}

func (b *Builder) resultType(n ast.Node) *types.Type {
	if t, ok := b.checked[n.NodeID()]; ok && t != nil {
		return t
	}
	return types.Failure
}

// --- block/temp/instruction plumbing ---

func (b *Builder) newBlock(label string) *Block {
	id := b.blockCounter
	b.blockCounter++
	blk := &Block{ID: id, Label: label}
	b.fn.Blocks[id] = blk
	b.fn.BlockOrder = append(b.fn.BlockOrder, id)
	return blk
}

func (b *Builder) newTemp() TempID {
	b.tempCounter++
	return b.tempCounter
}

func (b *Builder) addPred(blockID, pred BlockID) {
	blk := b.fn.Blocks[blockID]
	for _, p := range blk.Predecessors {
		if p == pred {
			return
		}
	}
	blk.Predecessors = append(blk.Predecessors, pred)
}

func (b *Builder) emit(inst *Instruction) Value {
	b.instCounter++
	inst.ID = b.instCounter
	blk := b.fn.Blocks[b.cur]
	blk.Instructions = append(blk.Instructions, inst)
	if inst.Dest != NoTemp {
		return TempValue(inst.Dest, inst.Type)
	}
	return Value{}
}

func (b *Builder) terminated() bool {
	return b.fn.Blocks[b.cur].Terminator != nil
}

func (b *Builder) setJump(from, to BlockID) {
	b.fn.Blocks[from].Terminator = &Terminator{Kind: TermJump, Target: to}
	b.addPred(to, from)
}

func (b *Builder) setBranch(from BlockID, cond Value, t, f BlockID) {
	b.fn.Blocks[from].Terminator = &Terminator{Kind: TermBranch, Condition: cond, TrueTarget: t, FalseTarget: f}
	b.addPred(t, from)
	b.addPred(f, from)
}

func (b *Builder) setReturn(from BlockID, v Value, has bool) {
	b.fn.Blocks[from].Terminator = &Terminator{Kind: TermReturn, ReturnValue: v, HasReturnValue: has}
}

// --- Braun-style SSA variable resolution ---

func (b *Builder) writeVariable(name string, block BlockID, v Value) {
	if b.currentDef[name] == nil {
		b.currentDef[name] = make(map[BlockID]Value)
	}
	b.currentDef[name][block] = v
}

func (b *Builder) readVariable(name string, block BlockID) Value {
	if v, ok := b.currentDef[name][block]; ok {
		return v
	}
	return b.readVariableRecursive(name, block)
}

func (b *Builder) readVariableRecursive(name string, block BlockID) Value {
	var val Value
	blk := b.fn.Blocks[block]
	if !b.sealedBlocks[block] {
		phi := b.newIncompletePhi(name, block)
		val = TempValue(phi.Dest, phi.Type)
	} else if len(blk.Predecessors) == 1 {
		val = b.readVariable(name, blk.Predecessors[0])
	} else if len(blk.Predecessors) == 0 {
		// Unreachable/entry-with-no-predecessor read of an unbound
		// name; the type checker would already have rejected this
		// program, so surface a placeholder rather than panic.
		val = ConstValue(Const{Type: types.Failure})
	} else {
		phi := b.addEmptyPhi(name, block)
		val = TempValue(phi.Dest, phi.Type)
		b.writeVariable(name, block, val)
		b.fillPhiOperands(name, phi, blk)
	}
	b.writeVariable(name, block, val)
	return val
}

func (b *Builder) newIncompletePhi(name string, block BlockID) *Phi {
	if b.incompletePhis[block] == nil {
		b.incompletePhis[block] = make(map[string]*Phi)
	}
	if phi, ok := b.incompletePhis[block][name]; ok {
		return phi
	}
	phi := &Phi{Dest: b.newTemp(), Type: b.varType(name), Sources: make(map[BlockID]Value)}
	b.incompletePhis[block][name] = phi
	b.fn.Blocks[block].Phis = append(b.fn.Blocks[block].Phis, phi)
	return phi
}

func (b *Builder) addEmptyPhi(name string, block BlockID) *Phi {
	phi := &Phi{Dest: b.newTemp(), Type: b.varType(name), Sources: make(map[BlockID]Value)}
	b.fn.Blocks[block].Phis = append(b.fn.Blocks[block].Phis, phi)
	return phi
}

func (b *Builder) fillPhiOperands(name string, phi *Phi, blk *Block) {
	for _, pred := range blk.Predecessors {
		v := b.readVariable(name, pred)
		phi.Sources[pred] = v
		phi.Order = append(phi.Order, pred)
		if phi.Type == nil || phi.Type.IsFailure() {
			phi.Type = v.Type
		}
	}
}

// varType tracks the most recently known type for a variable name,
// used to type freshly created phis before their operands are filled.
func (b *Builder) varType(name string) *types.Type {
	for _, defs := range b.currentDef[name] {
		if defs.Type != nil {
			return defs.Type
		}
	}
	return types.Failure
}

func (b *Builder) sealBlock(block BlockID) {
	for name, phi := range b.incompletePhis[block] {
		b.fillPhiOperands(name, phi, b.fn.Blocks[block])
	}
	delete(b.incompletePhis, block)
	b.sealedBlocks[block] = true
}

// --- function / block lowering ---

func (b *Builder) buildFunction(name string, params []*ast.FunctionParam, retType ast.Type, body *ast.Block) *Function {
	fn := &Function{Name: name, Blocks: make(map[BlockID]*Block)}
	if retType != nil {
		fn.ReturnType = b.resultType(retType)
	}
	b.fn = fn
	b.cur = 0
	b.tempCounter = 0
	b.blockCounter = 0
	b.currentDef = make(map[string]map[BlockID]Value)
	b.sealedBlocks = make(map[BlockID]bool)
	b.incompletePhis = make(map[BlockID]map[string]*Phi)
	b.localNames = make(map[string]bool)
	b.loopStack = nil

	entry := b.newBlock("entry")
	fn.Entry = entry.ID
	b.cur = entry.ID
	b.sealBlock(entry.ID)

	for _, p := range params {
		pt := b.resultType(p.Type)
		tmp := b.newTemp()
		fn.Params = append(fn.Params, Parameter{Name: p.Name, Type: pt, TempID: tmp})
		b.localNames[p.Name] = true
		b.writeVariable(p.Name, entry.ID, TempValue(tmp, pt))
	}

	if body != nil {
		b.lowerBlock(body)
	}
	if !b.terminated() {
		b.setReturn(b.cur, Value{}, false)
	}
	return fn
}

func (b *Builder) lowerBlock(blk *ast.Block) {
	for _, item := range blk.Items {
		if b.terminated() {
			// Dead code after a terminator (e.g. statements following
			// an early return) is never lowered.
			return
		}
		switch n := item.(type) {
		case ast.Statement:
			b.lowerStatement(n)
		case ast.Declaration:
			b.lowerNestedDeclaration(n)
		}
	}
}

func (b *Builder) lowerNestedDeclaration(d ast.Declaration) {
	switch decl := d.(type) {
	case *ast.VariableDecl:
		var v Value
		if decl.Init != nil {
			v = b.lowerExpr(decl.Init)
		}
		b.localNames[decl.Name] = true
		b.writeVariable(decl.Name, b.cur, v)
	default:
		b.diags.Errorf(errors.UnsupportedDeclarationKind, d.Pos(), "declaration kind not supported by the IR generator")
	}
}
