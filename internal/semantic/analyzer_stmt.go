package semantic

import (
	"bugc/internal/ast"
	"bugc/internal/errors"
	"bugc/internal/types"
)

func (c *Checker) checkBlock(b *ast.Block, scope *Scope) {
	for _, item := range b.Items {
		switch n := item.(type) {
		case ast.Statement:
			c.checkStatement(n, scope)
		case ast.Declaration:
			// Nested declarations: only a VariableDecl is typed here;
			// any other kind (e.g. a local struct) is reported as
			// unsupported.
			c.checkNestedDeclaration(n, scope)
		}
	}
}

func (c *Checker) checkNestedDeclaration(d ast.Declaration, scope *Scope) {
	switch decl := d.(type) {
	case *ast.VariableDecl:
		var t *types.Type
		if decl.Init != nil {
			t = c.checkExpr(decl.Init, scope)
		} else if decl.DeclaredType != nil {
			t = c.resolveASTType(decl.DeclaredType)
		} else {
			t = types.Failure
		}
		scope.Define(decl.Name, t)
		c.set(decl, t)
	default:
		c.diags.Errorf(errors.UnsupportedDeclarationKind, d.Pos(), "declaration not supported in this context")
	}
}

func (c *Checker) checkStatement(s ast.Statement, scope *Scope) {
	switch n := s.(type) {
	case *ast.DeclareStmt:
		var t *types.Type
		if n.Initializer != nil {
			t = c.checkExpr(n.Initializer, scope)
		} else {
			t = types.Failure
		}
		scope.Define(n.Name, t)
		c.set(n, t)

	case *ast.AssignStmt:
		targetType := c.checkLvalue(n.Target, scope)
		valueType := c.checkExpr(n.Value, scope)
		if !types.Assignable(targetType, valueType, isUnconstrainedLiteral(n.Value)) {
			c.diags.Errorf(errors.TypeMismatch, n.Pos(), "cannot assign %s to %s", valueType, targetType)
		}
		c.set(n, targetType)

	case *ast.ControlFlowStmt:
		c.checkControlFlow(n, scope)

	case *ast.ExpressStmt:
		c.checkExpr(n.Expr, scope)
	}
}

func (c *Checker) checkLvalue(e ast.Expression, scope *Scope) *types.Type {
	switch e.(type) {
	case *ast.IdentifierExpr, *ast.AccessExpr:
		return c.checkExpr(e, scope)
	default:
		c.diags.Errorf(errors.InvalidOperation, e.Pos(), "invalid assignment target")
		return c.set(e, types.Failure)
	}
}

func (c *Checker) checkControlFlow(n *ast.ControlFlowStmt, scope *Scope) {
	switch n.Kind {
	case ast.CFIf:
		c.checkBoolCondition(n.Condition, scope)
		c.checkBlock(n.Then, NewScope(scope))
		if n.Else != nil {
			c.checkBlock(n.Else, NewScope(scope))
		}

	case ast.CFFor:
		loopScope := NewScope(scope)
		if n.Init != nil {
			c.checkStatement(n.Init, loopScope)
		}
		if n.Condition != nil {
			c.checkBoolCondition(n.Condition, loopScope)
		}
		c.loopDepth++
		c.checkBlock(n.Then, NewScope(loopScope))
		c.loopDepth--
		if n.Update != nil {
			c.checkStatement(n.Update, loopScope)
		}

	case ast.CFWhile:
		c.checkBoolCondition(n.Condition, scope)
		c.loopDepth++
		c.checkBlock(n.Then, NewScope(scope))
		c.loopDepth--

	case ast.CFReturn:
		if n.Value != nil {
			vt := c.checkExpr(n.Value, scope)
			if c.returnType != nil && !types.Assignable(c.returnType, vt, isUnconstrainedLiteral(n.Value)) {
				c.diags.Errorf(errors.TypeMismatch, n.Pos(), "return type mismatch: expected %s, found %s", c.returnType, vt)
			}
		} else if c.returnType != nil {
			c.diags.Errorf(errors.TypeMismatch, n.Pos(), "missing return value: expected %s", c.returnType)
		}

	case ast.CFBreak:
		if c.loopDepth == 0 {
			c.diags.Errorf(errors.BreakOutsideLoop, n.Pos(), "break outside loop")
		}

	case ast.CFContinue:
		if c.loopDepth == 0 {
			c.diags.Errorf(errors.ContinueOutsideLoop, n.Pos(), "continue outside loop")
		}
	}
}

func (c *Checker) checkBoolCondition(e ast.Expression, scope *Scope) {
	t := c.checkExpr(e, scope)
	if !t.IsBool() && !t.IsFailure() {
		c.diags.Errorf(errors.TypeMismatch, e.Pos(), "condition must be bool, found %s", t)
	}
}

func isUnconstrainedLiteral(e ast.Expression) bool {
	lit, ok := e.(*ast.LiteralExpr)
	return ok && lit.Kind == ast.LitNumber
}
