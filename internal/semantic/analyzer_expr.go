package semantic

import (
	"bugc/internal/ast"
	"bugc/internal/errors"
	"bugc/internal/types"
)

func (c *Checker) checkExpr(e ast.Expression, scope *Scope) *types.Type {
	switch n := e.(type) {
	case *ast.IdentifierExpr:
		if t, ok := scope.Lookup(n.Name); ok {
			return c.set(n, t)
		}
		c.diags.Errorf(errors.UndefinedVariable, n.Pos(), "undefined variable %q", n.Name)
		return c.set(n, types.Failure)

	case *ast.LiteralExpr:
		return c.set(n, c.literalType(n))

	case *ast.OperatorExpr:
		return c.checkOperator(n, scope)

	case *ast.AccessExpr:
		return c.checkAccess(n, scope)

	case *ast.CallExpr:
		return c.checkCall(n, scope)

	case *ast.CastExpr:
		return c.checkCastExpr(n, scope)

	case *ast.SpecialExpr:
		return c.set(n, c.specialType(n.Kind))

	default:
		return types.Failure
	}
}

func (c *Checker) literalType(n *ast.LiteralExpr) *types.Type {
	switch n.Kind {
	case ast.LitNumber:
		return types.Uint256
	case ast.LitBoolean:
		return types.BoolT
	case ast.LitString:
		return types.StringT
	case ast.LitAddress:
		return types.AddressT
	case ast.LitHex:
		hexDigits := len(n.Value)
		if len(n.Value) >= 2 && n.Value[0:2] == "0x" {
			hexDigits -= 2
		}
		nBytes := (hexDigits + 1) / 2
		if nBytes <= 32 {
			return types.Elementary(types.Bytes, nBytes)
		}
		return types.BytesDyn
	default:
		return types.Failure
	}
}

func (c *Checker) specialType(kind ast.SpecialKind) *types.Type {
	switch kind {
	case ast.SpecialMsgSender:
		return types.AddressT
	case ast.SpecialMsgValue, ast.SpecialBlockTimestamp, ast.SpecialBlockNumber:
		return types.Uint256
	case ast.SpecialMsgData:
		return types.BytesDyn
	default:
		return types.Failure
	}
}

var comparisonOps = map[string]bool{"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true}
var logicalOps = map[string]bool{"&&": true, "||": true}
var arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}
var equalityOps = map[string]bool{"==": true, "!=": true}
var orderingOps = map[string]bool{"<": true, ">": true, "<=": true, ">=": true}

func (c *Checker) checkOperator(n *ast.OperatorExpr, scope *Scope) *types.Type {
	operandTypes := make([]*types.Type, len(n.Operands))
	for i, op := range n.Operands {
		operandTypes[i] = c.checkExpr(op, scope)
	}

	if n.Operator == "!" && len(operandTypes) == 1 {
		if !operandTypes[0].IsBool() && !operandTypes[0].IsFailure() {
			c.diags.Errorf(errors.InvalidOperand, n.Pos(), "! requires a bool operand, found %s", operandTypes[0])
		}
		return c.set(n, types.BoolT)
	}
	if n.Operator == "-" && len(operandTypes) == 1 {
		if !operandTypes[0].IsNumeric() && !operandTypes[0].IsFailure() {
			c.diags.Errorf(errors.InvalidOperand, n.Pos(), "unary - requires a numeric operand, found %s", operandTypes[0])
		}
		return c.set(n, operandTypes[0])
	}

	if len(operandTypes) != 2 {
		c.diags.Errorf(errors.InvalidOperation, n.Pos(), "operator %q requires two operands", n.Operator)
		return c.set(n, types.Failure)
	}
	left, right := operandTypes[0], operandTypes[1]

	switch {
	case logicalOps[n.Operator]:
		if (!left.IsBool() && !left.IsFailure()) || (!right.IsBool() && !right.IsFailure()) {
			c.diags.Errorf(errors.InvalidOperand, n.Pos(), "%s requires bool operands", n.Operator)
		}
		return c.set(n, types.BoolT)

	case equalityOps[n.Operator]:
		if !types.Assignable(left, right, false) && !types.Assignable(right, left, false) {
			c.diags.Errorf(errors.InvalidOperand, n.Pos(), "%s requires assignable operands, found %s and %s", n.Operator, left, right)
		}
		return c.set(n, types.BoolT)

	case orderingOps[n.Operator]:
		if (!left.IsNumeric() && !left.IsFailure()) || (!right.IsNumeric() && !right.IsFailure()) {
			c.diags.Errorf(errors.InvalidOperand, n.Pos(), "%s requires numeric operands, found %s and %s", n.Operator, left, right)
		}
		return c.set(n, types.BoolT)

	case arithmeticOps[n.Operator]:
		if (!left.IsNumeric() && !left.IsFailure()) || (!right.IsNumeric() && !right.IsFailure()) {
			c.diags.Errorf(errors.InvalidOperand, n.Pos(), "%s requires numeric operands, found %s and %s", n.Operator, left, right)
			return c.set(n, types.Failure)
		}
		return c.set(n, types.CommonNumeric(left, right))

	default:
		c.diags.Errorf(errors.InvalidOperation, n.Pos(), "unknown operator %q", n.Operator)
		return c.set(n, types.Failure)
	}
}

func (c *Checker) checkAccess(n *ast.AccessExpr, scope *Scope) *types.Type {
	baseType := c.checkExpr(n.Base, scope)

	switch n.Kind {
	case ast.AccessMember:
		if n.Member == "length" {
			if baseType.Kind == types.KindArray || baseType.IsBytesLike() {
				return c.set(n, types.Uint256)
			}
			c.diags.Errorf(errors.NotIndexable, n.Pos(), "length is only valid on arrays/bytes/string, found %s", baseType)
			return c.set(n, types.Failure)
		}
		if baseType.Kind == types.KindStruct {
			for _, f := range baseType.Fields {
				if f.Name == n.Member {
					return c.set(n, f.Type)
				}
			}
			c.diags.Errorf(errors.NoSuchField, n.Pos(), "struct %s has no field %q", baseType.Name, n.Member)
			return c.set(n, types.Failure)
		}
		if baseType.IsFailure() {
			return c.set(n, types.Failure)
		}
		c.diags.Errorf(errors.NotIndexable, n.Pos(), "%s is not a struct", baseType)
		return c.set(n, types.Failure)

	case ast.AccessSlice:
		if !baseType.IsBytesLike() && !baseType.IsFailure() {
			c.diags.Errorf(errors.NotIndexable, n.Pos(), "slice requires bytes/string, found %s", baseType)
		}
		if n.SliceStart != nil {
			c.checkNumericIndex(n.SliceStart, scope)
		}
		if n.SliceEnd != nil {
			c.checkNumericIndex(n.SliceEnd, scope)
		}
		return c.set(n, types.BytesDyn)

	case ast.AccessIndex:
		indexType := c.checkExpr(n.Index, scope)
		switch baseType.Kind {
		case types.KindArray:
			if !indexType.IsNumeric() && !indexType.IsFailure() {
				c.diags.Errorf(errors.InvalidIndexType, n.Pos(), "array index must be numeric, found %s", indexType)
			}
			return c.set(n, baseType.Element)
		case types.KindMapping:
			if !types.Assignable(baseType.Key, indexType, isUnconstrainedLiteral(n.Index)) {
				c.diags.Errorf(errors.InvalidIndexType, n.Pos(), "mapping key must be %s, found %s", baseType.Key, indexType)
			}
			return c.set(n, baseType.Value)
		default:
			if baseType.IsBytesLike() {
				return c.set(n, types.Elementary(types.Uint, 8))
			}
			if baseType.IsFailure() {
				return c.set(n, types.Failure)
			}
			c.diags.Errorf(errors.NotIndexable, n.Pos(), "%s is not indexable", baseType)
			return c.set(n, types.Failure)
		}
	}
	return c.set(n, types.Failure)
}

func (c *Checker) checkNumericIndex(e ast.Expression, scope *Scope) *types.Type {
	t := c.checkExpr(e, scope)
	if !t.IsNumeric() && !t.IsFailure() {
		c.diags.Errorf(errors.InvalidIndexType, e.Pos(), "index must be numeric, found %s", t)
	}
	return t
}

func (c *Checker) checkCall(n *ast.CallExpr, scope *Scope) *types.Type {
	argTypes := make([]*types.Type, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = c.checkExpr(a, scope)
	}

	if n.Callee == "keccak256" {
		if len(n.Args) != 1 {
			c.diags.Errorf(errors.InvalidArgumentCount, n.Pos(), "keccak256 takes exactly one argument")
			return c.set(n, types.Failure)
		}
		if !argTypes[0].IsBytesLike() && !argTypes[0].IsFailure() {
			c.diags.Errorf(errors.InvalidOperand, n.Pos(), "keccak256 requires bytes/string, found %s", argTypes[0])
		}
		return c.set(n, types.Bytes32)
	}

	fn, ok := scope.Lookup(n.Callee)
	if !ok {
		c.diags.Errorf(errors.UndefinedVariable, n.Pos(), "undefined function %q", n.Callee)
		return c.set(n, types.Failure)
	}
	if fn.Kind != types.KindFunction {
		c.diags.Errorf(errors.InvalidOperation, n.Pos(), "%q is not callable", n.Callee)
		return c.set(n, types.Failure)
	}
	if len(fn.Params) != len(argTypes) {
		c.diags.Errorf(errors.InvalidArgumentCount, n.Pos(), "%q expects %d arguments, found %d", n.Callee, len(fn.Params), len(argTypes))
		return c.set(n, types.Failure)
	}
	for i, p := range fn.Params {
		if !types.Assignable(p, argTypes[i], isUnconstrainedLiteral(n.Args[i])) {
			c.diags.Errorf(errors.TypeMismatch, n.Args[i].Pos(), "argument %d: cannot assign %s to %s", i, argTypes[i], p)
		}
	}
	if fn.Returns != nil {
		return c.set(n, fn.Returns)
	}
	return c.set(n, types.Failure)
}

func (c *Checker) checkCastExpr(n *ast.CastExpr, scope *Scope) *types.Type {
	srcType := c.checkExpr(n.Value, scope)
	targetType := c.resolveASTType(n.Target)

	if !srcType.IsFailure() && !castAllowed(srcType, targetType) {
		c.diags.Errorf(errors.InvalidTypeCast, n.Pos(), "cannot cast %s to %s", srcType, targetType)
	}
	return c.set(n, targetType)
}

func castAllowed(src, dst *types.Type) bool {
	if src.IsNumeric() && dst.IsNumeric() {
		return true
	}
	if src.IsNumeric() && dst.Kind == types.KindElementary && dst.Elem == types.Address {
		return true
	}
	if src.Kind == types.KindElementary && src.Elem == types.Address && dst.IsNumeric() {
		return true
	}
	if src.IsBytesLike() && dst.IsBytesLike() {
		return true
	}
	if src.IsBytesLike() && dst.Kind == types.KindElementary && dst.Elem == types.Address {
		return true
	}
	if src.Kind == types.KindElementary && src.Elem == types.Address && dst.IsBytesLike() {
		return true
	}
	if src.IsBytesLike() && dst.IsNumeric() {
		return true
	}
	if src.IsNumeric() && dst.IsBytesLike() {
		return true
	}
	return false
}
