// Package ir implements C3 (the SSA IR model) and, in builder.go, C4
// (the IR generator). The instruction shape follows a single tagged
// struct with an Op discriminant — the same style Go's own SSA
// compiler backend (cmd/compile/internal/ssa) uses for its Value —
// rather than one interface type per instruction kind, because it
// keeps the optimizer and codegen passes in internal/optimize and
// internal/evm working over one concrete type instead of a large type
// switch hierarchy duplicated at every pass.
package ir

import (
	"math/big"

	"bugc/internal/types"
)

type TempID int

// NoTemp is the sentinel Dest for instructions that don't produce a
// value (write, a void call).
const NoTemp TempID = 0

type BlockID int

// Value is anything usable as an instruction operand: a compile-time
// constant or a reference to an SSA temp.
type Value struct {
	IsConst bool
	Const   Const
	Temp    TempID
	Type    *types.Type
}

func ConstValue(c Const) Value { return Value{IsConst: true, Const: c, Type: c.Type} }
func TempValue(id TempID, t *types.Type) Value {
	return Value{IsConst: false, Temp: id, Type: t}
}

// Const is a compile-time constant. Word holds the canonical 256-bit
// EVM word for scalar types (bool/int/uint/address/bytesN≤32); Bytes
// holds the raw payload for dynamic bytes/string, which do not fit in
// one word.
type Const struct {
	Type  *types.Type
	Word  *big.Int
	Bytes []byte
}

// Op enumerates the tagged instruction kinds from spec.md §3's IR
// model.
type Op int

const (
	OpConst Op = iota
	OpBinary
	OpUnary
	OpCast
	OpEnv
	OpHash
	OpLength
	OpSlice
	OpRead
	OpWrite
	OpComputeSlot
	OpComputeOffset
	OpAllocate
	OpLog // SPEC_FULL.md §4 events addition
)

func (o Op) String() string {
	switch o {
	case OpConst:
		return "const"
	case OpBinary:
		return "binary"
	case OpUnary:
		return "unary"
	case OpCast:
		return "cast"
	case OpEnv:
		return "env"
	case OpHash:
		return "hash"
	case OpLength:
		return "length"
	case OpSlice:
		return "slice"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpComputeSlot:
		return "compute_slot"
	case OpComputeOffset:
		return "compute_offset"
	case OpAllocate:
		return "allocate"
	case OpLog:
		return "log"
	}
	return "?"
}

// Location enumerates the address spaces read/write/compute_offset
// operate over.
type Location string

const (
	LocStorage    Location = "storage"
	LocMemory     Location = "memory"
	LocCalldata   Location = "calldata"
	LocReturndata Location = "returndata"
)

// SlotKind enumerates compute_slot's three chain levels.
type SlotKind string

const (
	SlotMapping SlotKind = "mapping"
	SlotArray   SlotKind = "array"
	SlotField   SlotKind = "field"
)

// Span is the minimal source-location carry-through every derived
// record keeps, per spec.md §3 "All derived records ... preserve at
// least one originating span".
type Span struct {
	Offset int
	Length int
}

// Instruction is the tagged-sum IR instruction. Which fields are
// meaningful depends on Op; see the per-op doc comments below.
type Instruction struct {
	ID   int
	Op   Op
	Dest TempID      // valid (non-zero) iff this op produces a value
	Type *types.Type // result type of Dest, when Dest is valid
	Span Span

	// const
	ConstVal Const

	// binary: BinOp ∈ {add,sub,mul,div,mod,lt,gt,le,ge,eq,ne,and,or}
	BinOp       string
	Left, Right Value

	// unary: UnOp ∈ {not,neg}
	UnOp    string
	Operand Value

	// cast
	CastTo *types.Type

	// env: EnvOp ∈ {msg_sender,msg_value,msg_data,block_number,block_timestamp}
	EnvOp string

	// hash / length / slice share Object as their input value
	Object     Value
	SliceStart Value
	SliceEnd   Value
	HasSlice   bool // whether SliceStart/SliceEnd are populated

	// read / write / compute_offset
	Loc       Location
	Slot      Value
	HasSlot   bool
	MemOffset Value
	HasOffset bool
	MemLength Value
	HasLength bool
	WriteVal  Value

	// compute_slot
	SlotKind    SlotKind
	Base        Value
	Key         Value
	Index       Value
	HasIndex    bool
	FieldOffset int

	// allocate
	AllocSize Value

	// log (events, SPEC_FULL.md §4)
	EventName string
	Signature Value
	Topics    []Value
	DataPtr   Value
	DataLen   Value
}

// Pure reports whether an instruction has no side effect beyond
// producing its Dest value, which makes it eligible for CSE: binary,
// unary, cast, hash, compute_slot and env, plus const and length.
func (i *Instruction) Pure() bool {
	switch i.Op {
	case OpBinary, OpUnary, OpCast, OpHash, OpComputeSlot, OpEnv, OpConst, OpLength:
		return true
	default:
		return false
	}
}

// Terminator ends a basic block.
type TermKind int

const (
	TermJump TermKind = iota
	TermBranch
	TermReturn
)

type Terminator struct {
	Kind TermKind
	Span Span

	// jump
	Target BlockID

	// branch
	Condition         Value
	TrueTarget        BlockID
	FalseTarget       BlockID

	// return
	ReturnValue    Value
	HasReturnValue bool
}

// Phi selects a value based on which predecessor control arrived from.
type Phi struct {
	Dest    TempID
	Type    *types.Type
	Sources map[BlockID]Value
	// Order lists predecessor block IDs in the order Sources should be
	// printed/walked, so two runs of the same compile produce
	// byte-identical output (spec.md T5).
	Order []BlockID
}

// Block is a basic block: phis, straight-line instructions, and
// exactly one terminator once lowering finishes.
type Block struct {
	ID           BlockID
	Label        string
	Phis         []*Phi
	Instructions []*Instruction
	Terminator   *Terminator
	Predecessors []BlockID
}

// Parameter is one function parameter, bound to its initial SSA temp.
type Parameter struct {
	Name   string
	Type   *types.Type
	TempID TempID
}

// Function is one BUG function (or the create/body block) lowered to
// SSA IR.
type Function struct {
	Name       string
	Params     []Parameter
	ReturnType *types.Type // nil if void
	Entry      BlockID
	Blocks     map[BlockID]*Block
	BlockOrder []BlockID // deterministic visitation order
}

func (f *Function) Block(id BlockID) *Block { return f.Blocks[id] }

// StorageSlotInfo describes one top-level storage declaration's fixed
// slot assignment.
type StorageSlotInfo struct {
	Name string
	Slot int
	Type *types.Type
}

// Module is the whole compiled contract's IR: storage layout plus
// every function, including the synthetic "create" and "main" (the
// runtime body) functions when present.
type Module struct {
	Name    string
	Storage []StorageSlotInfo
	Functions     map[string]*Function
	FunctionOrder []string
	Main    string // name of the runtime body function, "" if absent
	Create  string // name of the constructor function, "" if absent
}
