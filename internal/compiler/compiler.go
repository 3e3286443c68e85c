// Package compiler implements C7: the uniform pass/fail driver that
// wires the type checker (C2), IR generator (C4), optimizer (C5) and
// EVM code generator (C6) into spec.md §6's single `compile(program,
// options) -> Result` entry point. No teacher file plays this role
// directly (kanso stops at its IR optimizer and never reaches real
// bytecode), so the driver shape here is new, grounded on the uniform
// Result-carrier discipline spec.md §7 names explicitly: every pass
// returns a value plus diagnostics, and the driver aborts the
// pipeline the moment a pass's diagnostics contain an error.
package compiler

import (
	"bugc/internal/assembler"
	"bugc/internal/ast"
	"bugc/internal/errors"
	"bugc/internal/evm"
	"bugc/internal/ir"
	"bugc/internal/optimize"
	"bugc/internal/semantic"
	"bugc/internal/types"
)

// Options is the fixed, enumerated configuration spec.md §6 describes.
type Options struct {
	// OptimizerLevel selects how much of internal/optimize's pipeline
	// runs: 0 = none, 1 = fold+propagate+DCE, 2 = every pass.
	OptimizerLevel int
}

// Bytecode carries the two compiled artifacts plus their debug
// instruction streams, per spec.md §6.
type Bytecode struct {
	Runtime             []byte
	Create              []byte
	RuntimeInstructions []assembler.Item
	CreateInstructions  []assembler.Item
}

// Messages buckets diagnostics by severity, matching spec.md §6's
// `messages: { error?, warning?, info? }` wire shape.
type Messages struct {
	Error   []errors.Diagnostic
	Warning []errors.Diagnostic
	Info    []errors.Diagnostic
}

// Result is compile's uniform return value. Success is exactly
// len(Messages.Error) == 0 (spec.md §4.1's failure rule, generalized
// to every pass): a caller never needs to inspect anything but that
// one field to decide whether Bytecode is usable.
type Result struct {
	Success bool

	Bytecode Bytecode

	Types             semantic.Types
	IR                *ir.Module
	OptimizedIR       *ir.Module
	Transformations   []optimize.TransformationRecord
	OptimizationStats *optimize.Stats

	Messages Messages
}

// Compile runs C2 -> C4 -> C5 -> C6 over program, in that fixed order,
// accumulating diagnostics from every stage. Per spec.md §7's
// propagation policy, type-checker and IR-generator errors are
// non-fatal within their own pass (both synthesize placeholder
// types/values and keep going so one file yields as many diagnostics
// as it can in a single compile), but the driver itself aborts the
// pipeline as soon as a pass's accumulated error list is non-empty —
// optimizer passes never produce errors, and codegen errors are
// always fatal.
func Compile(program *ast.Program, opts Options) *Result {
	result := &Result{}

	checked, typeDiags := semantic.Check(program)
	result.Types = checked
	addAll(result, typeDiags)
	if typeDiags.HasErrors() {
		return result
	}

	module, irDiags := ir.BuildProgram(program, checked)
	result.IR = module
	addAll(result, irDiags)
	if irDiags.HasErrors() {
		return result
	}

	optResult := optimize.Run(module, opts.OptimizerLevel)
	result.OptimizedIR = optResult.Module
	result.Transformations = optResult.Transformations
	result.OptimizationStats = optResult.Stats

	codeResult, evmDiags := evm.CodeGen(optResult.Module)
	addAll(result, evmDiags)
	if evmDiags.HasErrors() {
		return result
	}

	result.Bytecode = Bytecode{
		Runtime:             codeResult.Runtime,
		Create:              codeResult.Create,
		RuntimeInstructions: codeResult.RuntimeItems,
		CreateInstructions:  codeResult.CreateItems,
	}
	result.Success = true
	return result
}

func addAll(r *Result, list *errors.List) {
	for _, d := range list.Items {
		switch d.Severity {
		case errors.SeverityError:
			r.Messages.Error = append(r.Messages.Error, d)
		case errors.SeverityWarning:
			r.Messages.Warning = append(r.Messages.Warning, d)
		default:
			r.Messages.Info = append(r.Messages.Info, d)
		}
	}
}

// TypeOf is a convenience lookup used by callers (and tests) that want
// a single node's checked type without reaching into result.Types
// directly.
func (r *Result) TypeOf(id ast.ID) *types.Type {
	return r.Types[id]
}
