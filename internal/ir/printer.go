package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Print renders a Module as readable text, grounded on kanso's
// internal/ir/printer.go textual IR dump.
func Print(m *Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n", m.Name)
	for _, s := range m.Storage {
		fmt.Fprintf(&sb, "  storage [%d] %s: %s\n", s.Slot, s.Name, s.Type)
	}
	for _, name := range m.FunctionOrder {
		printFunction(&sb, m.Functions[name])
	}
	return sb.String()
}

func printFunction(sb *strings.Builder, f *Function) {
	fmt.Fprintf(sb, "func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s: %s", p.Name, p.Type)
	}
	sb.WriteString(")")
	if f.ReturnType != nil {
		fmt.Fprintf(sb, " -> %s", f.ReturnType)
	}
	sb.WriteString(" {\n")
	for _, id := range f.BlockOrder {
		printBlock(sb, f.Blocks[id])
	}
	sb.WriteString("}\n")
}

func printBlock(sb *strings.Builder, b *Block) {
	fmt.Fprintf(sb, "  b%d:\n", b.ID)
	for _, p := range b.Phis {
		fmt.Fprintf(sb, "    %%%d = phi", p.Dest)
		for _, pred := range p.Order {
			fmt.Fprintf(sb, " [b%d: %s]", pred, valueString(p.Sources[pred]))
		}
		sb.WriteString("\n")
	}
	for _, inst := range b.Instructions {
		sb.WriteString("    ")
		sb.WriteString(instructionString(inst))
		sb.WriteString("\n")
	}
	if b.Terminator != nil {
		sb.WriteString("    ")
		sb.WriteString(terminatorString(b.Terminator))
		sb.WriteString("\n")
	}
}

func valueString(v Value) string {
	if v.IsConst {
		if v.Const.Word != nil {
			return v.Const.Word.String()
		}
		return fmt.Sprintf("0x%x", v.Const.Bytes)
	}
	return fmt.Sprintf("%%%d", v.Temp)
}

func instructionString(i *Instruction) string {
	prefix := ""
	if i.Dest != NoTemp {
		prefix = fmt.Sprintf("%%%d = ", i.Dest)
	}
	switch i.Op {
	case OpConst:
		return fmt.Sprintf("%s%s %s", prefix, i.Op, valueString(ConstValue(i.ConstVal)))
	case OpBinary:
		return fmt.Sprintf("%s%s %s %s, %s", prefix, i.Op, i.BinOp, valueString(i.Left), valueString(i.Right))
	case OpUnary:
		return fmt.Sprintf("%s%s %s %s", prefix, i.Op, i.UnOp, valueString(i.Operand))
	case OpCast:
		return fmt.Sprintf("%s%s %s to %s", prefix, i.Op, valueString(i.Operand), i.CastTo)
	case OpEnv:
		return fmt.Sprintf("%s%s %s", prefix, i.Op, i.EnvOp)
	case OpHash:
		return fmt.Sprintf("%s%s %s", prefix, i.Op, valueString(i.Object))
	case OpLength:
		return fmt.Sprintf("%s%s %s", prefix, i.Op, valueString(i.Object))
	case OpSlice:
		return fmt.Sprintf("%s%s %s[%s:%s]", prefix, i.Op, valueString(i.Object), valueString(i.SliceStart), valueString(i.SliceEnd))
	case OpRead:
		return fmt.Sprintf("%s%s %s[%s]", prefix, i.Op, i.Loc, valueString(i.Slot))
	case OpWrite:
		return fmt.Sprintf("%s[%s] = %s", i.Loc, valueString(i.Slot), valueString(i.WriteVal))
	case OpComputeSlot:
		return fmt.Sprintf("%s%s %s base=%s", prefix, i.Op, i.SlotKind, valueString(i.Base))
	case OpComputeOffset:
		return fmt.Sprintf("%s%s %s", prefix, i.Op, valueString(i.Base))
	case OpAllocate:
		return fmt.Sprintf("%s%s size=%s", prefix, i.Op, valueString(i.AllocSize))
	case OpLog:
		return fmt.Sprintf("%slog %s", prefix, i.EventName)
	}
	return fmt.Sprintf("%s%s", prefix, i.Op)
}

func terminatorString(t *Terminator) string {
	switch t.Kind {
	case TermJump:
		return fmt.Sprintf("jump b%d", t.Target)
	case TermBranch:
		return fmt.Sprintf("branch %s, b%d, b%d", valueString(t.Condition), t.TrueTarget, t.FalseTarget)
	case TermReturn:
		if t.HasReturnValue {
			return fmt.Sprintf("return %s", valueString(t.ReturnValue))
		}
		return "return"
	}
	return "?"
}

// SortedFunctionNames returns a Module's function names in a stable,
// alphabetic order, independent of FunctionOrder (which instead
// reflects declaration order) — useful when a test wants deterministic
// iteration without depending on source order.
func SortedFunctionNames(m *Module) []string {
	names := make([]string, 0, len(m.Functions))
	for name := range m.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
