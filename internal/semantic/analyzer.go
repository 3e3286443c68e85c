// Package semantic implements C2, the BUG type checker: a visitor over
// the AST that assigns a semantic Type to every node and reports
// typed diagnostics, grounded on kanso's internal/semantic analyzer
// (scoped symbol table, visitor-per-node-kind structure) generalized
// to spec.md §4.1's rules.
package semantic

import (
	"strconv"

	"bugc/internal/ast"
	"bugc/internal/errors"
	"bugc/internal/types"
)

// Types maps every checked AST node's stable ID to its semantic Type.
type Types map[ast.ID]*types.Type

// Checker walks a Program in lexical order, maintaining a module frame
// (storage slots, struct and function names) plus one scope frame per
// block/function.
type Checker struct {
	types Types
	diags *errors.List

	module *Scope // storage vars + function names (flat, program-wide)
	structs map[string]*types.Type
	funcs   map[string]*ast.FunctionDecl
	events  map[string]*ast.EventDecl

	loopDepth  int
	returnType *types.Type // expected type for `return` in the current function
}

// Check type-checks a Program, returning the per-node Type map and the
// accumulated diagnostics. Per spec.md §4.1, failure is exactly "any
// Error-severity diagnostic produced" — callers inspect diags.HasErrors().
func Check(program *ast.Program) (Types, *errors.List) {
	c := &Checker{
		types:   make(Types),
		diags:   &errors.List{},
		module:  NewScope(nil),
		structs: make(map[string]*types.Type),
		funcs:   make(map[string]*ast.FunctionDecl),
		events:  make(map[string]*ast.EventDecl),
	}
	c.checkProgram(program)
	return c.types, c.diags
}

func (c *Checker) set(n ast.Node, t *types.Type) *types.Type {
	c.types[n.NodeID()] = t
	return t
}

func (c *Checker) checkProgram(p *ast.Program) {
	// Pass 1: register struct and function signatures so forward
	// references (a function calling one declared later) resolve.
	for _, d := range p.Declarations {
		switch decl := d.(type) {
		case *ast.StructDecl:
			c.registerStruct(decl)
		case *ast.EventDecl:
			c.events[decl.Name] = decl
		}
	}
	for _, d := range p.Declarations {
		switch decl := d.(type) {
		case *ast.StorageDecl:
			t := c.resolveASTType(decl.DeclaredType)
			c.module.Define(decl.Name, t)
			c.set(decl, t)
		case *ast.FunctionDecl:
			c.registerFunction(decl)
		}
	}

	// Pass 2: check bodies.
	for _, d := range p.Declarations {
		switch decl := d.(type) {
		case *ast.FunctionDecl:
			c.checkFunction(decl)
		case *ast.StructDecl:
			c.checkStructFields(decl)
		case *ast.EventDecl:
			c.checkEventFields(decl)
		}
	}

	if p.Create != nil {
		c.returnType = nil
		c.checkBlock(p.Create, NewScope(c.module))
	}
	if p.Body != nil {
		c.returnType = nil
		c.checkBlock(p.Body, NewScope(c.module))
	}
}

func (c *Checker) registerStruct(decl *ast.StructDecl) {
	var fields []types.StructField
	offset := 0
	for _, f := range decl.Fields {
		ft := c.resolveASTType(f.DeclaredType)
		fields = append(fields, types.StructField{Name: f.Name, Type: ft, ByteOffset: offset})
		offset += 32 // BUG packs every field into its own 32-byte word
	}
	st := types.Struct(decl.Name, fields)
	c.structs[decl.Name] = st
	c.set(decl, st)
}

func (c *Checker) checkStructFields(decl *ast.StructDecl) {
	for _, f := range decl.Fields {
		c.set(f, c.resolveASTType(f.DeclaredType))
	}
}

// checkEventFields resolves an event's declared field types, the same
// way checkStructFields does for a struct (SPEC_FULL.md §4 events
// addition).
func (c *Checker) checkEventFields(decl *ast.EventDecl) {
	for _, f := range decl.Fields {
		c.set(f, c.resolveASTType(f.DeclaredType))
	}
}

func (c *Checker) registerFunction(decl *ast.FunctionDecl) {
	var params []*types.Type
	for _, p := range decl.Parameters {
		params = append(params, c.resolveASTType(p.Type))
	}
	var ret *types.Type
	if decl.ReturnType != nil {
		ret = c.resolveASTType(decl.ReturnType)
	}
	c.funcs[decl.Name] = decl
	c.module.Define(decl.Name, types.Function(params, ret))
}

func (c *Checker) checkFunction(decl *ast.FunctionDecl) {
	scope := NewScope(c.module)
	for _, p := range decl.Parameters {
		pt := c.resolveASTType(p.Type)
		c.set(p.Type, pt)
		scope.Define(p.Name, pt)
	}
	if decl.ReturnType != nil {
		c.returnType = c.resolveASTType(decl.ReturnType)
	} else {
		c.returnType = nil
	}
	if decl.Body != nil {
		c.checkBlock(decl.Body, scope)
	}
}

// resolveASTType converts a syntactic ast.Type into the semantic
// lattice, resolving ReferenceType against known struct names.
func (c *Checker) resolveASTType(t ast.Type) *types.Type {
	switch n := t.(type) {
	case nil:
		return types.Failure
	case *ast.ElementaryType:
		return types.Elementary(types.ElementaryKind(n.Kind), n.Bits)
	case *ast.ComplexType:
		switch n.Kind {
		case ast.ComplexArray:
			return types.Array(c.resolveASTType(n.Element), n.Size)
		case ast.ComplexMapping:
			return types.Mapping(c.resolveASTType(n.Key), c.resolveASTType(n.Value))
		case ast.ComplexStruct:
			if st, ok := c.structs[n.Name]; ok {
				return st
			}
			return types.Failure
		case ast.ComplexTuple:
			// Tuples are represented structurally; reuse struct shape
			// with positional field names.
			var fields []types.StructField
			for i, el := range n.Tuple {
				fields = append(fields, types.StructField{Name: strconv.Itoa(i), Type: c.resolveASTType(el), ByteOffset: i * 32})
			}
			return types.Struct("", fields)
		case ast.ComplexFunction:
			var params []*types.Type
			for _, p := range n.Params {
				params = append(params, c.resolveASTType(p))
			}
			var ret *types.Type
			if n.Returns != nil {
				ret = c.resolveASTType(n.Returns)
			}
			return types.Function(params, ret)
		}
		return types.Failure
	case *ast.ReferenceType:
		if st, ok := c.structs[n.Name]; ok {
			return st
		}
		return types.Failure
	default:
		return types.Failure
	}
}
