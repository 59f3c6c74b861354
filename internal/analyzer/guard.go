package analyzer

import (
	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/diag"
	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/types"
)

// applyGuard checks a condition expression and returns the flows for its
// true and false branches, with recognized type guards applied as
// narrowing facts. Subexpressions are checked exactly once.
func (a *analyzer) applyGuard(e ast.Expr, fl *flow) (*flow, *flow) {
	switch e := e.(type) {
	case *ast.Ident:
		t := a.checkExpr(e, nil, fl)
		trueFl, falseFl := fl.fork(), fl.fork()
		if sym, prop := a.guardTarget(e, fl); sym != nil && prop == "" {
			whenTrue, whenFalse := a.nar.Truthy(t)
			trueFl.facts = trueFl.facts.With(sym.ID, whenTrue)
			falseFl.facts = falseFl.facts.With(sym.ID, whenFalse)
		}
		return trueFl, falseFl

	case *ast.UnaryExpr:
		if e.Op == ast.OpNot {
			trueFl, falseFl := a.applyGuard(e.X, fl)
			a.types[e.ID()] = a.in.Boolean
			return falseFl, trueFl
		}

	case *ast.BinaryExpr:
		switch e.Op {
		case ast.OpAnd:
			t1, f1 := a.applyGuard(e.X, fl)
			t2, f2 := a.applyGuard(e.Y, t1)
			falseFl := fl.fork()
			falseFl.facts = f1.facts.Join(f2.facts, a.in)
			a.recordLogical(e, true)
			return t2, falseFl

		case ast.OpOr:
			t1, f1 := a.applyGuard(e.X, fl)
			t2, f2 := a.applyGuard(e.Y, f1)
			trueFl := fl.fork()
			trueFl.facts = t1.facts.Join(t2.facts, a.in)
			a.recordLogical(e, false)
			return trueFl, f2

		case ast.OpEq, ast.OpNeq, ast.OpStrictEq, ast.OpStrictNeq:
			return a.guardEquality(e, fl)

		case ast.OpIn:
			return a.guardIn(e, fl)

		case ast.OpInstanceof:
			return a.guardInstanceof(e, fl)
		}
	}

	a.checkExpr(e, nil, fl)
	return fl.fork(), fl.fork()
}

// recordLogical records the value type of a logical operator whose
// operands were already checked through applyGuard.
func (a *analyzer) recordLogical(e *ast.BinaryExpr, and bool) {
	left := a.types[e.X.ID()]
	right := a.types[e.Y.ID()]
	if left == nil || right == nil {
		a.types[e.ID()] = a.in.Boolean
		return
	}
	whenTrue, whenFalse := a.nar.Truthy(left)
	if and {
		a.types[e.ID()] = a.in.Union(whenFalse, right)
	} else {
		a.types[e.ID()] = a.in.Union(whenTrue, right)
	}
}

func (a *analyzer) guardEquality(e *ast.BinaryExpr, fl *flow) (*flow, *flow) {
	a.checkExpr(e.X, nil, fl)
	a.checkExpr(e.Y, nil, fl)
	a.types[e.ID()] = a.in.Boolean

	affirm := e.Op == ast.OpEq || e.Op == ast.OpStrictEq
	strict := e.Op == ast.OpStrictEq || e.Op == ast.OpStrictNeq

	expr, other := e.X, e.Y
	if _, ok := other.(*ast.Lit); !ok {
		expr, other = e.Y, e.X
	}
	lit, ok := other.(*ast.Lit)
	if !ok {
		return fl.fork(), fl.fork()
	}

	// typeof x === "tag"
	if u, isTypeof := expr.(*ast.UnaryExpr); isTypeof && u.Op == ast.OpTypeof && lit.Kind == ast.LitString {
		sym, prop := a.guardTarget(u.X, fl)
		if sym == nil || prop != "" {
			return fl.fork(), fl.fork()
		}
		cur := a.currentType(sym, fl)
		tag := lit.Value.(string)
		return a.splitFacts(fl, sym,
			a.nar.ByTypeof(cur, tag, affirm),
			a.nar.ByTypeof(cur, tag, !affirm))
	}

	sym, prop := a.guardTarget(expr, fl)
	if sym == nil {
		return fl.fork(), fl.fork()
	}
	cur := a.currentType(sym, fl)

	switch lit.Kind {
	case ast.LitNull, ast.LitUndefined:
		if prop != "" {
			return fl.fork(), fl.fork()
		}
		var matched, rest *types.Type
		if strict {
			k := types.KindNull
			if lit.Kind == ast.LitUndefined {
				k = types.KindUndefined
			}
			matched = a.filterKind(cur, k, true)
			rest = a.filterKind(cur, k, false)
		} else {
			// Loose equality with null matches both null and undefined.
			matched = a.nar.Nullish(cur)
			rest = a.nar.NonNullish(cur)
		}
		if affirm {
			return a.splitFacts(fl, sym, matched, rest)
		}
		return a.splitFacts(fl, sym, rest, matched)

	case ast.LitString, ast.LitNumber, ast.LitBoolean:
		litT := a.literalType(lit.Kind, lit.Value)
		if prop != "" {
			return a.splitFacts(fl, sym,
				a.nar.ByDiscriminant(cur, prop, litT, affirm),
				a.nar.ByDiscriminant(cur, prop, litT, !affirm))
		}
		return a.splitFacts(fl, sym,
			a.nar.ByLiteral(cur, litT, affirm),
			a.nar.ByLiteral(cur, litT, !affirm))
	}
	return fl.fork(), fl.fork()
}

func (a *analyzer) guardIn(e *ast.BinaryExpr, fl *flow) (*flow, *flow) {
	left := a.checkExpr(e.X, nil, fl)
	a.checkExpr(e.Y, nil, fl)
	a.types[e.ID()] = a.in.Boolean
	if !a.isKindish(left, types.KindString) && !a.isKindish(left, types.KindNumber) && !a.isKindish(left, types.KindSymbol) {
		a.bag.Addf(diag.CodeNotAssignable, spanOf(e.X), "the left operand of in must be a string, number, or symbol")
	}

	lit, ok := e.X.(*ast.Lit)
	if !ok || lit.Kind != ast.LitString {
		return fl.fork(), fl.fork()
	}
	sym, prop := a.guardTarget(e.Y, fl)
	if sym == nil || prop != "" {
		return fl.fork(), fl.fork()
	}
	cur := a.currentType(sym, fl)
	name := lit.Value.(string)
	return a.splitFacts(fl, sym,
		a.nar.ByIn(cur, name, true),
		a.nar.ByIn(cur, name, false))
}

func (a *analyzer) guardInstanceof(e *ast.BinaryExpr, fl *flow) (*flow, *flow) {
	a.checkExpr(e.X, nil, fl)
	right := a.checkExpr(e.Y, nil, fl)
	a.types[e.ID()] = a.in.Boolean
	if len(a.r.ConstructSignatures(right)) == 0 && right.Kind != types.KindAny && right.Kind != types.KindError {
		a.bag.Addf(diag.CodeNotConstructable, spanOf(e.Y), "the right operand of instanceof must be constructable")
	}

	sym, prop := a.guardTarget(e.X, fl)
	if sym == nil || prop != "" {
		return fl.fork(), fl.fork()
	}
	id, ok := e.Y.(*ast.Ident)
	if !ok {
		return fl.fork(), fl.fork()
	}
	cls, found := fl.sc.Lookup(id.Name)
	if !found || cls.Kind != scope.SymbolClass || cls.Type == nil {
		return fl.fork(), fl.fork()
	}
	cur := a.currentType(sym, fl)
	return a.splitFacts(fl, sym,
		a.nar.ByInstance(cur, cls.Type, true),
		a.nar.ByInstance(cur, cls.Type, false))
}

// splitFacts forks fl into two branches with sym narrowed per branch.
func (a *analyzer) splitFacts(fl *flow, sym *scope.Symbol, whenTrue, whenFalse *types.Type) (*flow, *flow) {
	trueFl, falseFl := fl.fork(), fl.fork()
	trueFl.facts = trueFl.facts.With(sym.ID, whenTrue)
	falseFl.facts = falseFl.facts.With(sym.ID, whenFalse)
	return trueFl, falseFl
}

func (a *analyzer) currentType(sym *scope.Symbol, fl *flow) *types.Type {
	if narrowed, ok := fl.facts.Get(sym.ID); ok {
		return narrowed
	}
	if sym.Type == nil {
		return a.in.Error
	}
	return sym.Type
}

// filterKind keeps or drops the members of a union with the given kind.
// Dynamic members (any, unknown, error) survive either way.
func (a *analyzer) filterKind(t *types.Type, k types.Kind, keep bool) *types.Type {
	norm := a.r.Normalize(t.Deref())
	members := []*types.Type{norm}
	if u := norm.AsUnion(); u != nil {
		members = u.Members
	}
	out := make([]*types.Type, 0, len(members))
	for _, m := range members {
		switch {
		case m.Kind == k:
			if keep {
				out = append(out, m)
			}
		case m.Kind == types.KindAny || m.Kind == types.KindUnknown || m.Kind == types.KindError:
			out = append(out, m)
		default:
			if !keep {
				out = append(out, m)
			}
		}
	}
	if len(out) == 0 {
		return a.in.Never
	}
	return a.in.Union(out...)
}
