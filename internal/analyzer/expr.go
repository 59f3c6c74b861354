package analyzer

import (
	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/diag"
	"github.com/ah-yu/stc/internal/narrow"
	"github.com/ah-yu/stc/internal/position"
	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/types"
)

// flow is the state threaded through statement and expression checking on
// one control-flow path.
type flow struct {
	sc    *scope.Scope
	facts narrow.Facts
	tp    *tpScope
	fn    *funcCtx
}

// funcCtx tracks return checking for the enclosing function.
type funcCtx struct {
	// declared is the annotated return type; nil means infer.
	declared *types.Type
	inferred []*types.Type
}

func (a *analyzer) moduleFlow() *flow {
	return &flow{sc: a.modScope, facts: narrow.NewFacts()}
}

// fork copies the flow for a branch.
func (fl *flow) fork() *flow {
	c := *fl
	return &c
}

// checkExpr computes the type of e, records it, and returns it. expected
// provides contextual typing and may be nil.
func (a *analyzer) checkExpr(e ast.Expr, expected *types.Type, fl *flow) *types.Type {
	t := a.checkExpr0(e, expected, fl)
	if t == nil {
		t = a.in.Error
	}
	a.types[e.ID()] = t
	return t
}

func (a *analyzer) checkExpr0(e ast.Expr, expected *types.Type, fl *flow) *types.Type {
	switch e := e.(type) {
	case *ast.Ident:
		return a.checkIdent(e, fl)

	case *ast.Lit:
		return a.literalType(e.Kind, e.Value)

	case *ast.ObjectLit:
		return a.checkObjectLit(e, expected, fl)

	case *ast.ArrayLit:
		return a.checkArrayLit(e, expected, fl)

	case *ast.FuncLit:
		return a.checkFuncLit(e, expected, fl)

	case *ast.CallExpr:
		return a.checkCall(e, fl, false)

	case *ast.NewExpr:
		call := &ast.CallExpr{Base: e.Base, Callee: e.Callee, TypeArgs: e.TypeArgs, Args: e.Args}
		return a.checkCall(call, fl, true)

	case *ast.SpreadExpr:
		// A bare spread only appears in argument lists; its type is the
		// element type of the spread operand.
		inner := a.checkExpr(e.X, nil, fl)
		return a.elemTypeOf(inner, spanOf(e))

	case *ast.MemberExpr:
		return a.checkMember(e, fl)

	case *ast.IndexExpr:
		return a.checkIndex(e, fl)

	case *ast.BinaryExpr:
		return a.checkBinary(e, fl)

	case *ast.UnaryExpr:
		return a.checkUnary(e, fl)

	case *ast.CondExpr:
		trueFl, falseFl := a.applyGuard(e.Cond, fl)
		thenT := a.checkExpr(e.Then, expected, trueFl)
		elseT := a.checkExpr(e.Else, expected, falseFl)
		fl.facts = trueFl.facts.Join(falseFl.facts, a.in)
		return a.in.Union(thenT, elseT)

	case *ast.AssignExpr:
		return a.checkAssign(e, fl)

	default:
		a.bag.Addf(diag.CodeInternalInconsistency, spanOf(e), "unsupported expression")
		return a.in.Error
	}
}

func (a *analyzer) literalType(kind ast.LitKind, value interface{}) *types.Type {
	switch kind {
	case ast.LitString:
		return a.in.StringLiteral(value.(string))
	case ast.LitNumber:
		return a.in.NumberLiteral(value.(float64))
	case ast.LitBoolean:
		return a.in.BooleanLiteral(value.(bool))
	case ast.LitNull:
		return a.in.Null
	case ast.LitUndefined:
		return a.in.Undefined
	}
	return a.in.Error
}

func (a *analyzer) checkIdent(e *ast.Ident, fl *flow) *types.Type {
	sym, ok := fl.sc.Lookup(e.Name)
	if !ok {
		a.bag.Addf(diag.CodeUndefinedIdentifier, e.Span, "cannot find name %q", e.Name)
		return a.in.Error
	}
	if sym.Kind == scope.SymbolClass && sym.Ctor != nil {
		return sym.Ctor
	}
	if sym.IsType() {
		a.bag.Addf(diag.CodeUndefinedIdentifier, e.Span, "%q only refers to a type but is used as a value", e.Name)
		return a.in.Error
	}
	if narrowed, has := fl.facts.Get(sym.ID); has {
		return narrowed
	}
	if sym.Type == nil {
		return a.in.Error
	}
	return sym.Type
}

func (a *analyzer) checkObjectLit(e *ast.ObjectLit, expected *types.Type, fl *flow) *types.Type {
	members := make([]types.Member, 0, len(e.Fields))
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if seen[f.Name] {
			a.bag.Addf(diag.CodeDuplicateDeclaration, f.Span, "duplicate property %q", f.Name)
			continue
		}
		seen[f.Name] = true
		var fieldExpected *types.Type
		if expected != nil {
			if m, ok := a.r.PropertyType(expected, f.Name); ok {
				fieldExpected = m.Type
			}
		}
		members = append(members, types.Member{
			Name: f.Name,
			Type: a.checkExpr(f.Value, fieldExpected, fl),
		})
	}
	return a.in.Object(members)
}

func (a *analyzer) checkArrayLit(e *ast.ArrayLit, expected *types.Type, fl *flow) *types.Type {
	var elemExpected *types.Type
	if expected != nil {
		norm := a.r.Normalize(expected.Deref())
		if at, ok := norm.Data.(*types.ArrayType); ok && norm.Kind == types.KindArray {
			elemExpected = at.Elem
		}
	}
	if len(e.Elems) == 0 {
		if elemExpected != nil {
			return a.in.Array(elemExpected, false)
		}
		return a.in.Array(a.in.Any, false)
	}
	elems := make([]*types.Type, 0, len(e.Elems))
	for _, el := range e.Elems {
		elems = append(elems, a.checkExpr(el, elemExpected, fl))
	}
	elem := a.in.Widen(a.in.Union(elems...))
	if elemExpected != nil && a.r.Assignable(elem, elemExpected) {
		elem = elemExpected
	}
	return a.in.Array(elem, false)
}

func (a *analyzer) checkFuncLit(e *ast.FuncLit, expected *types.Type, fl *flow) *types.Type {
	// Contextual parameter types come from the expected type's only call
	// signature.
	var ctx *types.Signature
	if expected != nil {
		if sigs := a.r.CallSignatures(expected); len(sigs) == 1 {
			ctx = sigs[0]
		}
	}

	tparams, tp := a.declareTypeParams(e.TypeParams, fl.tp)
	params := a.lowerParams(e.Params, tp)
	for i := range params {
		if e.Params[i].TypeAnn == nil && ctx != nil && i < len(ctx.Params) {
			params[i].Type = ctx.Params[i].Type
		}
	}

	var declared *types.Type
	if e.Return != nil {
		declared = a.lowerType(e.Return, tp)
	}

	ret := a.checkFunctionBody(e.Params, params, e.Body, declared, tp, fl.sc)
	return a.in.Function(&types.Signature{TypeParams: tparams, Params: params, Return: ret})
}

func (a *analyzer) checkMember(e *ast.MemberExpr, fl *flow) *types.Type {
	obj := a.checkExpr(e.X, nil, fl)
	if obj.Kind == types.KindError || obj.Kind == types.KindAny {
		return obj
	}

	lookup := obj
	addUndefined := false
	if e.Optional {
		lookup = a.nar.NonNullish(obj)
		addUndefined = lookup != obj
		if lookup.Kind == types.KindNever {
			return a.in.Undefined
		}
	} else if a.isNullable(obj) {
		a.bag.Addf(diag.CodeMissingProperty, e.Span, "object of type %s is possibly null or undefined", obj)
		lookup = a.nar.NonNullish(obj)
	}

	m, found := a.r.PropertyType(lookup, e.Name)
	if !found {
		a.bag.Addf(diag.CodeMissingProperty, e.Span, "property %q does not exist on type %s", e.Name, lookup)
		return a.in.Error
	}
	t := m.Type
	if m.Optional {
		t = a.in.Union(t, a.in.Undefined)
	}
	if addUndefined {
		t = a.in.Union(t, a.in.Undefined)
	}
	return t
}

func (a *analyzer) isNullable(t *types.Type) bool {
	t = a.r.Normalize(t.Deref())
	if t.Kind == types.KindNull || t.Kind == types.KindUndefined {
		return true
	}
	if u := t.AsUnion(); u != nil {
		for _, m := range u.Members {
			if m.Kind == types.KindNull || m.Kind == types.KindUndefined {
				return true
			}
		}
	}
	return false
}

func (a *analyzer) checkIndex(e *ast.IndexExpr, fl *flow) *types.Type {
	obj := a.checkExpr(e.X, nil, fl)
	idx := a.checkExpr(e.Index, nil, fl)
	if obj.Kind == types.KindError || obj.Kind == types.KindAny {
		return obj
	}
	t := a.r.Normalize(a.in.Indexed(obj, idx))
	if t.Kind == types.KindError && idx.Kind != types.KindError {
		a.bag.Addf(diag.CodeInvalidIndexedAccess, e.Span, "type %s cannot be indexed with %s", obj, idx)
	}
	return t
}

func (a *analyzer) checkBinary(e *ast.BinaryExpr, fl *flow) *types.Type {
	switch e.Op {
	case ast.OpAnd:
		trueFl, falseFl := a.applyGuard(e.X, fl)
		left := a.types[e.X.ID()]
		if left == nil {
			left = a.checkExpr(e.X, nil, fl)
		}
		right := a.checkExpr(e.Y, nil, trueFl)
		fl.facts = trueFl.facts.Join(falseFl.facts, a.in)
		_, whenFalse := a.nar.Truthy(left)
		return a.in.Union(whenFalse, right)

	case ast.OpOr:
		trueFl, falseFl := a.applyGuard(e.X, fl)
		left := a.types[e.X.ID()]
		if left == nil {
			left = a.checkExpr(e.X, nil, fl)
		}
		right := a.checkExpr(e.Y, nil, falseFl)
		fl.facts = trueFl.facts.Join(falseFl.facts, a.in)
		whenTrue, _ := a.nar.Truthy(left)
		return a.in.Union(whenTrue, right)

	case ast.OpNullish:
		left := a.checkExpr(e.X, nil, fl)
		right := a.checkExpr(e.Y, nil, fl)
		return a.in.Union(a.nar.NonNullish(left), right)
	}

	left := a.checkExpr(e.X, nil, fl)
	right := a.checkExpr(e.Y, nil, fl)

	switch e.Op {
	case ast.OpAdd:
		return a.checkAdd(left, right, e.Span)

	case ast.OpSub, ast.OpMul, ast.OpDiv:
		a.requireNumeric(left, spanOf(e.X), e.Op)
		a.requireNumeric(right, spanOf(e.Y), e.Op)
		if a.isKindish(left, types.KindBigInt) && a.isKindish(right, types.KindBigInt) {
			return a.in.Primitive(types.KindBigInt)
		}
		return a.in.Number

	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		if !a.comparable(left, right) {
			a.bag.Addf(diag.CodeNotAssignable, e.Span, "operator %s cannot compare %s and %s", e.Op, left, right)
		}
		return a.in.Boolean

	case ast.OpEq, ast.OpNeq, ast.OpStrictEq, ast.OpStrictNeq:
		return a.in.Boolean

	case ast.OpIn:
		if !a.isKindish(left, types.KindString) && !a.isKindish(left, types.KindNumber) && !a.isKindish(left, types.KindSymbol) {
			a.bag.Addf(diag.CodeNotAssignable, spanOf(e.X), "the left operand of in must be a string, number, or symbol")
		}
		return a.in.Boolean

	case ast.OpInstanceof:
		if len(a.r.ConstructSignatures(right)) == 0 && right.Kind != types.KindAny && right.Kind != types.KindError {
			a.bag.Addf(diag.CodeNotConstructable, spanOf(e.Y), "the right operand of instanceof must be constructable")
		}
		return a.in.Boolean
	}

	a.bag.Addf(diag.CodeInternalInconsistency, e.Span, "unsupported binary operator %s", e.Op)
	return a.in.Error
}

func (a *analyzer) checkAdd(left, right *types.Type, span position.Span) *types.Type {
	if left.Kind == types.KindError || right.Kind == types.KindError {
		return a.in.Error
	}
	if left.Kind == types.KindAny || right.Kind == types.KindAny {
		return a.in.Any
	}
	if a.isKindish(left, types.KindString) || a.isKindish(right, types.KindString) {
		return a.in.String
	}
	if a.isKindish(left, types.KindNumber) && a.isKindish(right, types.KindNumber) {
		return a.in.Number
	}
	if a.isKindish(left, types.KindBigInt) && a.isKindish(right, types.KindBigInt) {
		return a.in.Primitive(types.KindBigInt)
	}
	a.bag.Addf(diag.CodeNotAssignable, span, "operator + cannot be applied to %s and %s", left, right)
	return a.in.Error
}

// isKindish reports whether t is the given primitive kind or a literal of
// it.
func (a *analyzer) isKindish(t *types.Type, k types.Kind) bool {
	if t.Kind == k {
		return true
	}
	if base := t.LiteralBase(); base != nil {
		return base.Kind == k
	}
	return false
}

func (a *analyzer) requireNumeric(t *types.Type, span position.Span, op ast.BinOp) {
	if t.Kind == types.KindAny || t.Kind == types.KindError {
		return
	}
	if a.isKindish(t, types.KindNumber) || a.isKindish(t, types.KindBigInt) {
		return
	}
	a.bag.Addf(diag.CodeNotAssignable, span, "operator %s requires a numeric operand, got %s", op, t)
}

func (a *analyzer) comparable(left, right *types.Type) bool {
	if left.Kind == types.KindAny || right.Kind == types.KindAny ||
		left.Kind == types.KindError || right.Kind == types.KindError {
		return true
	}
	for _, k := range []types.Kind{types.KindNumber, types.KindString, types.KindBigInt} {
		if a.isKindish(left, k) && a.isKindish(right, k) {
			return true
		}
	}
	return false
}

func (a *analyzer) checkUnary(e *ast.UnaryExpr, fl *flow) *types.Type {
	operand := a.checkExpr(e.X, nil, fl)
	switch e.Op {
	case ast.OpNot:
		return a.in.Boolean
	case ast.OpTypeof:
		return a.in.String
	case ast.OpAwait:
		return a.r.Awaited(operand)
	case ast.OpNeg:
		a.requireNumeric(operand, spanOf(e.X), ast.OpSub)
		if a.isKindish(operand, types.KindBigInt) {
			return a.in.Primitive(types.KindBigInt)
		}
		return a.in.Number
	}
	return a.in.Error
}

func (a *analyzer) checkAssign(e *ast.AssignExpr, fl *flow) *types.Type {
	value := a.checkExpr(e.Value, a.assignTargetType(e.Target, fl), fl)

	switch target := e.Target.(type) {
	case *ast.Ident:
		sym, ok := fl.sc.Lookup(target.Name)
		if !ok {
			a.bag.Addf(diag.CodeUndefinedIdentifier, target.Span, "cannot find name %q", target.Name)
			return value
		}
		a.types[target.ID()] = sym.Type
		if sym.IsConst() {
			a.bag.Addf(diag.CodeConstAssignment, e.Span, "cannot assign to %q because it is a constant", target.Name)
			return value
		}
		if sym.Type != nil && !a.r.Assignable(value, sym.Type) {
			a.bag.Addf(diag.CodeNotAssignable, spanOf(e.Value), "type %s is not assignable to type %s", value, sym.Type)
			fl.facts = fl.facts.Without(sym.ID)
			return value
		}
		// The binding is now known to hold the assigned value's type.
		fl.facts = fl.facts.With(sym.ID, value)
		return value

	case *ast.MemberExpr:
		obj := a.checkExpr(target.X, nil, fl)
		a.types[target.ID()] = value
		if obj.Kind == types.KindError || obj.Kind == types.KindAny {
			return value
		}
		m, found := a.r.PropertyType(obj, target.Name)
		if !found {
			a.bag.Addf(diag.CodeMissingProperty, target.Span, "property %q does not exist on type %s", target.Name, obj)
			return value
		}
		if m.Readonly {
			a.bag.Addf(diag.CodeReadonlyAssignment, e.Span, "cannot assign to %q because it is a read-only property", target.Name)
			return value
		}
		if !a.r.Assignable(value, m.Type) {
			a.bag.Addf(diag.CodeNotAssignable, spanOf(e.Value), "type %s is not assignable to type %s", value, m.Type)
		}
		return value

	case *ast.IndexExpr:
		obj := a.checkExpr(target.X, nil, fl)
		a.checkExpr(target.Index, nil, fl)
		a.types[target.ID()] = value
		norm := a.r.Normalize(obj.Deref())
		switch norm.Kind {
		case types.KindArray:
			at := norm.Data.(*types.ArrayType)
			if at.Readonly {
				a.bag.Addf(diag.CodeReadonlyAssignment, e.Span, "index signature of type %s is read-only", obj)
				return value
			}
			if !a.r.Assignable(value, at.Elem) {
				a.bag.Addf(diag.CodeNotAssignable, spanOf(e.Value), "type %s is not assignable to type %s", value, at.Elem)
			}
		case types.KindTuple:
			if norm.Data.(*types.TupleType).Readonly {
				a.bag.Addf(diag.CodeReadonlyAssignment, e.Span, "cannot assign to an element of a readonly tuple")
			}
		case types.KindError, types.KindAny:
		default:
			a.bag.Addf(diag.CodeInvalidIndexedAccess, target.Span, "type %s has no index signature", obj)
		}
		return value
	}

	a.bag.Addf(diag.CodeNotAssignable, spanOf(e.Target), "invalid assignment target")
	return value
}

// assignTargetType computes the contextual type for an assignment's value
// without reporting diagnostics.
func (a *analyzer) assignTargetType(target ast.Expr, fl *flow) *types.Type {
	switch target := target.(type) {
	case *ast.Ident:
		if sym, ok := fl.sc.Lookup(target.Name); ok {
			return sym.Type
		}
	case *ast.MemberExpr:
		if objT, ok := a.types[target.X.ID()]; ok {
			if m, found := a.r.PropertyType(objT, target.Name); found {
				return m.Type
			}
		}
	}
	return nil
}

func (a *analyzer) elemTypeOf(t *types.Type, span position.Span) *types.Type {
	norm := a.r.Normalize(t.Deref())
	switch norm.Kind {
	case types.KindArray:
		return norm.Data.(*types.ArrayType).Elem
	case types.KindTuple:
		tt := norm.Data.(*types.TupleType)
		elems := make([]*types.Type, 0, len(tt.Elems)+1)
		for _, e := range tt.Elems {
			elems = append(elems, e.Type)
		}
		if tt.Rest != nil {
			elems = append(elems, tt.Rest)
		}
		return a.in.Union(elems...)
	case types.KindAny, types.KindError:
		return norm
	}
	a.bag.Addf(diag.CodeNotAssignable, span, "spread operand must be an array or tuple, got %s", t)
	return a.in.Error
}
