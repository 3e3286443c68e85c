package ir

import (
	"bugc/internal/ast"
	"bugc/internal/errors"
	"bugc/internal/types"
)

func (b *Builder) lowerExpr(e ast.Expression) Value {
	switch n := e.(type) {
	case *ast.IdentifierExpr:
		return b.lowerIdentifier(n)
	case *ast.LiteralExpr:
		t := b.resultType(n)
		return ConstValue(LiteralConst(n, t))
	case *ast.OperatorExpr:
		return b.lowerOperator(n)
	case *ast.AccessExpr:
		return b.lowerAccess(n)
	case *ast.CallExpr:
		return b.lowerCall(n)
	case *ast.CastExpr:
		return b.lowerCast(n)
	case *ast.SpecialExpr:
		return b.lowerSpecial(n)
	default:
		return Value{}
	}
}

func (b *Builder) isStorageName(name string) bool {
	_, ok := b.storageSlots[name]
	return ok
}

func (b *Builder) lowerIdentifier(n *ast.IdentifierExpr) Value {
	if b.isStorageName(n.Name) {
		slot := ConstValue(IntConst(int64(b.storageSlots[n.Name]), types.Uint256))
		t := b.resultType(n)
		return b.emit(&Instruction{Op: OpRead, Type: t, Dest: b.newTemp(), Loc: LocStorage, Slot: slot, HasSlot: true})
	}
	return b.readVariable(n.Name, b.cur)
}

// isStorageChain reports whether e is a member/index access chain
// rooted at a storage variable, i.e. one spec.md §4.2.3 requires be
// collapsed into compute_slot instructions (one per level) plus a
// single terminal read/write rather than a sequence of intermediate
// loads.
func (b *Builder) isStorageChain(e ast.Expression) bool {
	switch n := e.(type) {
	case *ast.IdentifierExpr:
		return b.isStorageName(n.Name)
	case *ast.AccessExpr:
		if n.Kind == ast.AccessSlice {
			return false
		}
		return b.isStorageChain(n.Base)
	default:
		return false
	}
}

// lowerStorageSlot walks a storage access chain from its root outward,
// collapsing every mapping/array/struct-field level into one
// compute_slot instruction per level and returning the final slot
// value.
func (b *Builder) lowerStorageSlot(e ast.Expression) Value {
	switch n := e.(type) {
	case *ast.IdentifierExpr:
		return ConstValue(IntConst(int64(b.storageSlots[n.Name]), types.Uint256))

	case *ast.AccessExpr:
		base := b.lowerStorageSlot(n.Base)
		baseType := b.resultType(n.Base)

		switch n.Kind {
		case ast.AccessIndex:
			if baseType != nil && baseType.Kind == types.KindMapping {
				key := b.lowerExpr(n.Index)
				t := types.Uint256
				return b.emit(&Instruction{Op: OpComputeSlot, Type: t, Dest: b.newTemp(), SlotKind: SlotMapping, Base: base, Key: key})
			}
			index := b.lowerExpr(n.Index)
			t := types.Uint256
			return b.emit(&Instruction{Op: OpComputeSlot, Type: t, Dest: b.newTemp(), SlotKind: SlotArray, Base: base, Index: index, HasIndex: true})

		case ast.AccessMember:
			fieldOffset := 0
			if baseType != nil {
				for _, f := range baseType.Fields {
					if f.Name == n.Member {
						fieldOffset = f.ByteOffset
						break
					}
				}
			}
			t := types.Uint256
			return b.emit(&Instruction{Op: OpComputeSlot, Type: t, Dest: b.newTemp(), SlotKind: SlotField, Base: base, FieldOffset: fieldOffset / 32})
		}
	}
	return ConstValue(IntConst(0, types.Uint256))
}

func (b *Builder) lowerAccess(n *ast.AccessExpr) Value {
	if n.Kind != ast.AccessSlice && b.isStorageChain(n) {
		slot := b.lowerStorageSlot(n)
		t := b.resultType(n)
		return b.emit(&Instruction{Op: OpRead, Type: t, Dest: b.newTemp(), Loc: LocStorage, Slot: slot, HasSlot: true})
	}

	switch n.Kind {
	case ast.AccessMember:
		if n.Member == "length" {
			obj := b.lowerExpr(n.Base)
			t := types.Uint256
			return b.emit(&Instruction{Op: OpLength, Type: t, Dest: b.newTemp(), Object: obj})
		}
		// A non-storage struct member access collapses to reading the
		// whole local aggregate; straight-line-only scope (see
		// builder.go) means this is always a bound local.
		return b.lowerExpr(n.Base)

	case ast.AccessSlice:
		obj := b.lowerExpr(n.Base)
		inst := &Instruction{Op: OpSlice, Type: types.BytesDyn, Dest: b.newTemp(), Object: obj, HasSlice: true}
		if n.SliceStart != nil {
			inst.SliceStart = b.lowerExpr(n.SliceStart)
		}
		if n.SliceEnd != nil {
			inst.SliceEnd = b.lowerExpr(n.SliceEnd)
		} else {
			// An open end runs to the end of the object.
			inst.SliceEnd = b.emit(&Instruction{Op: OpLength, Type: types.Uint256, Dest: b.newTemp(), Object: obj})
		}
		return b.emit(inst)

	case ast.AccessIndex:
		obj := b.lowerExpr(n.Base)
		idx := b.lowerExpr(n.Index)
		t := b.resultType(n)
		// Indexing a non-storage bytes-like value extracts one byte;
		// this is expressed as a 1-byte slice starting at idx.
		return b.emit(&Instruction{Op: OpSlice, Type: t, Dest: b.newTemp(), Object: obj, SliceStart: idx, HasSlice: true})
	}
	return Value{}
}

var binOpNames = map[string]string{
	"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "mod",
	"<": "lt", ">": "gt", "<=": "le", ">=": "ge",
	"==": "eq", "!=": "ne", "&&": "and", "||": "or",
}

func (b *Builder) lowerOperator(n *ast.OperatorExpr) Value {
	if n.Operator == "!" && len(n.Operands) == 1 {
		v := b.lowerExpr(n.Operands[0])
		t := types.BoolT
		return b.emit(&Instruction{Op: OpUnary, Type: t, Dest: b.newTemp(), UnOp: "not", Operand: v})
	}
	if n.Operator == "-" && len(n.Operands) == 1 {
		v := b.lowerExpr(n.Operands[0])
		t := b.resultType(n)
		return b.emit(&Instruction{Op: OpUnary, Type: t, Dest: b.newTemp(), UnOp: "neg", Operand: v})
	}

	left := b.lowerExpr(n.Operands[0])
	right := b.lowerExpr(n.Operands[1])
	t := b.resultType(n)
	return b.emit(&Instruction{Op: OpBinary, Type: t, Dest: b.newTemp(), BinOp: binOpNames[n.Operator], Left: left, Right: right})
}

func (b *Builder) lowerCall(n *ast.CallExpr) Value {
	if n.Callee == "keccak256" {
		obj := b.lowerExpr(n.Args[0])
		t := types.Bytes32
		return b.emit(&Instruction{Op: OpHash, Type: t, Dest: b.newTemp(), Object: obj})
	}
	return b.lowerInlinedCall(n)
}

// lowerInlinedCall lowers a user-defined function call by inlining its
// straight-line body: the IR's tagged instruction set has no explicit
// call op, and interprocedural control-flow joins are out of scope, so
// a callee is only ever inlined when its body contains no nested
// control flow (see DESIGN.md).
func (b *Builder) lowerInlinedCall(n *ast.CallExpr) Value {
	decl, ok := b.declsByName[n.Callee]
	if !ok || decl.Body == nil {
		b.diags.Errorf(errors.UnsupportedInstruction, n.Pos(), "cannot inline call to %q", n.Callee)
		return ConstValue(Const{Type: types.Failure})
	}

	saved := b.currentDef
	savedLocals := b.localNames
	b.currentDef = make(map[string]map[BlockID]Value)
	for k, v := range saved {
		b.currentDef[k] = v
	}
	b.localNames = make(map[string]bool)

	for i, p := range decl.Parameters {
		argVal := b.lowerExpr(n.Args[i])
		b.localNames[p.Name] = true
		b.writeVariable(p.Name, b.cur, argVal)
	}

	var result Value
	for _, item := range decl.Body.Items {
		switch stmt := item.(type) {
		case *ast.ControlFlowStmt:
			if stmt.Kind != ast.CFReturn {
				b.diags.Errorf(errors.UnsupportedInstruction, n.Pos(), "cannot inline call to %q: its body contains nested control flow", n.Callee)
				continue
			}
			if stmt.Value != nil {
				result = b.lowerExpr(stmt.Value)
			}
		case ast.Statement:
			b.lowerStatement(stmt)
		}
	}

	b.currentDef = saved
	b.localNames = savedLocals
	return result
}

func (b *Builder) lowerCast(n *ast.CastExpr) Value {
	v := b.lowerExpr(n.Value)
	t := b.resultType(n)
	return b.emit(&Instruction{Op: OpCast, Type: t, Dest: b.newTemp(), CastTo: t, Operand: v})
}

var specialEnvOps = map[ast.SpecialKind]string{
	ast.SpecialMsgSender:      "msg_sender",
	ast.SpecialMsgValue:       "msg_value",
	ast.SpecialMsgData:        "msg_data",
	ast.SpecialBlockNumber:    "block_number",
	ast.SpecialBlockTimestamp: "block_timestamp",
}

func (b *Builder) lowerSpecial(n *ast.SpecialExpr) Value {
	t := b.resultType(n)
	return b.emit(&Instruction{Op: OpEnv, Type: t, Dest: b.newTemp(), EnvOp: specialEnvOps[n.Kind]})
}
