package ir

import (
	"bugc/internal/ast"
	"bugc/internal/errors"
	"bugc/internal/types"
)

func (b *Builder) lowerStatement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.DeclareStmt:
		var v Value
		if n.Initializer != nil {
			v = b.lowerExpr(n.Initializer)
		}
		b.localNames[n.Name] = true
		b.writeVariable(n.Name, b.cur, v)

	case *ast.AssignStmt:
		v := b.lowerExpr(n.Value)
		b.lowerAssign(n.Target, v)

	case *ast.ControlFlowStmt:
		b.lowerControlFlow(n)

	case *ast.ExpressStmt:
		b.lowerExpr(n.Expr)
	}
}

func (b *Builder) lowerAssign(target ast.Expression, v Value) {
	switch t := target.(type) {
	case *ast.IdentifierExpr:
		if b.isStorageName(t.Name) {
			slot := ConstValue(IntConst(int64(b.storageSlots[t.Name]), types.Uint256))
			b.emit(&Instruction{Op: OpWrite, Loc: LocStorage, Slot: slot, HasSlot: true, WriteVal: v})
			return
		}
		b.writeVariable(t.Name, b.cur, v)

	case *ast.AccessExpr:
		if b.isStorageChain(t) {
			slot := b.lowerStorageSlot(t)
			b.emit(&Instruction{Op: OpWrite, Loc: LocStorage, Slot: slot, HasSlot: true, WriteVal: v})
			return
		}
		// Non-storage lvalue (e.g. a local struct/array field): treat
		// the base as a local reassignment since BUG's only mutable
		// aggregate storage is the persistent kind; anything else
		// collapses to reassigning the whole local name.
		if id, ok := t.Base.(*ast.IdentifierExpr); ok {
			b.writeVariable(id.Name, b.cur, v)
			return
		}
		b.diags.Errorf(errors.InvalidLvalue, t.Pos(), "unsupported assignment target")

	default:
		b.diags.Errorf(errors.InvalidLvalue, target.Pos(), "unsupported assignment target")
	}
}

func (b *Builder) lowerControlFlow(n *ast.ControlFlowStmt) {
	switch n.Kind {
	case ast.CFIf:
		b.lowerIf(n)
	case ast.CFFor:
		b.lowerFor(n)
	case ast.CFWhile:
		b.lowerWhile(n)
	case ast.CFReturn:
		var v Value
		has := n.Value != nil
		if has {
			v = b.lowerExpr(n.Value)
		}
		b.setReturn(b.cur, v, has)
	case ast.CFBreak:
		if len(b.loopStack) == 0 {
			b.diags.Errorf(errors.BreakOutsideLoop, n.Pos(), "break outside loop")
			return
		}
		top := b.loopStack[len(b.loopStack)-1]
		b.setJump(b.cur, top.breakTarget)
	case ast.CFContinue:
		if len(b.loopStack) == 0 {
			b.diags.Errorf(errors.ContinueOutsideLoop, n.Pos(), "continue outside loop")
			return
		}
		top := b.loopStack[len(b.loopStack)-1]
		b.setJump(b.cur, top.continueTarget)
	}
}

func (b *Builder) lowerIf(n *ast.ControlFlowStmt) {
	cond := b.lowerExpr(n.Condition)

	thenBlk := b.newBlock("then")
	mergeBlk := b.newBlock("merge")
	var elseBlk *Block
	elseTarget := mergeBlk.ID
	if n.Else != nil {
		elseBlk = b.newBlock("else")
		elseTarget = elseBlk.ID
	}
	b.setBranch(b.cur, cond, thenBlk.ID, elseTarget)

	// then/else each have a single known predecessor (the branch
	// block) so they can be sealed immediately; merge's predecessor
	// set depends on whether either arm falls through, so it is
	// sealed only once both arms are fully lowered.
	b.sealBlock(thenBlk.ID)
	b.cur = thenBlk.ID
	b.lowerBlock(n.Then)
	if !b.terminated() {
		b.setJump(b.cur, mergeBlk.ID)
	}

	if n.Else != nil {
		b.sealBlock(elseBlk.ID)
		b.cur = elseBlk.ID
		b.lowerBlock(n.Else)
		if !b.terminated() {
			b.setJump(b.cur, mergeBlk.ID)
		}
	}

	b.sealBlock(mergeBlk.ID)
	b.cur = mergeBlk.ID
}

func (b *Builder) lowerFor(n *ast.ControlFlowStmt) {
	if n.Init != nil {
		b.lowerStatement(n.Init)
	}

	header := b.newBlock("for.header")
	body := b.newBlock("for.body")
	update := b.newBlock("for.update")
	exit := b.newBlock("for.exit")

	b.setJump(b.cur, header.ID)
	// header's predecessors are the preheader and the back edge from
	// update; the back edge isn't known until update is lowered, so
	// header must not be sealed yet.
	b.cur = header.ID
	var cond Value
	if n.Condition != nil {
		cond = b.lowerExpr(n.Condition)
	} else {
		cond = ConstValue(BoolConst(true))
	}
	b.setBranch(header.ID, cond, body.ID, exit.ID)

	b.sealBlock(body.ID)
	b.loopStack = append(b.loopStack, loopCtx{continueTarget: update.ID, breakTarget: exit.ID})
	b.cur = body.ID
	b.lowerBlock(n.Then)
	if !b.terminated() {
		b.setJump(b.cur, update.ID)
	}
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	b.sealBlock(update.ID)
	b.cur = update.ID
	if n.Update != nil {
		b.lowerStatement(n.Update)
	}
	if !b.terminated() {
		b.setJump(b.cur, header.ID)
	}

	// Every predecessor of header is now known: seal it, which
	// resolves the incomplete phis created by reads inside the loop
	// body against the freshly-added back edge.
	b.sealBlock(header.ID)
	b.sealBlock(exit.ID)
	b.cur = exit.ID
}

func (b *Builder) lowerWhile(n *ast.ControlFlowStmt) {
	header := b.newBlock("while.header")
	body := b.newBlock("while.body")
	exit := b.newBlock("while.exit")

	b.setJump(b.cur, header.ID)
	b.cur = header.ID
	cond := b.lowerExpr(n.Condition)
	b.setBranch(header.ID, cond, body.ID, exit.ID)

	b.sealBlock(body.ID)
	b.loopStack = append(b.loopStack, loopCtx{continueTarget: header.ID, breakTarget: exit.ID})
	b.cur = body.ID
	b.lowerBlock(n.Then)
	if !b.terminated() {
		b.setJump(b.cur, header.ID)
	}
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	b.sealBlock(header.ID)
	b.sealBlock(exit.ID)
	b.cur = exit.ID
}
