package analyzer

import (
	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/diag"
	"github.com/ah-yu/stc/internal/narrow"
	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/types"
)

// loweredFunc keeps a resolved declaration signature so body checking
// does not lower (and re-diagnose) the annotations a second time.
type loweredFunc struct {
	sig *types.Signature
	tp  *tpScope
}

// checkBodies is the second pass: function bodies that were not already
// checked for return inference.
func (a *analyzer) checkBodies(module *ast.Module) {
	for _, d := range module.Decls {
		fn, ok := d.(*ast.FuncDecl)
		if !ok || fn.Body == nil || a.checked[fn.ID()] {
			continue
		}
		lf := a.fns[fn.ID()]
		if lf == nil {
			// Overload implementations stay out of the group's callable
			// set but their bodies are still checked against their own
			// signature.
			a.funcSignature(fn, false)
			lf = a.fns[fn.ID()]
		}
		a.checkFunctionBody(fn.Params, lf.sig.Params, fn.Body, lf.sig.Return, lf.tp, a.modScope)
		a.checked[fn.ID()] = true
	}
}

// inferReturn checks the body immediately to infer the declaration's
// return type.
func (a *analyzer) inferReturn(d *ast.FuncDecl, params []types.Param, tp *tpScope) *types.Type {
	ret := a.checkFunctionBody(d.Params, params, d.Body, nil, tp, a.modScope)
	a.checked[d.ID()] = true
	return ret
}

// checkFunctionBody checks a function body in a fresh function scope and
// returns the function's return type: the declared one when present, the
// union of observed return types otherwise.
func (a *analyzer) checkFunctionBody(paramDecls []*ast.ParamDecl, params []types.Param, body *ast.Block, declared *types.Type, tp *tpScope, parent *scope.Scope) *types.Type {
	fnScope := scope.New(parent, scope.Function)
	for i, p := range params {
		sym := scope.NewSymbol(p.Name, scope.SymbolParam, 0)
		t := p.Type
		if p.Optional && paramDecls[i].Default == nil {
			t = a.in.Union(t, a.in.Undefined)
		}
		sym.Type = t
		sym.Span = paramDecls[i].Span
		if _, ok := fnScope.Declare(sym); !ok {
			a.bag.Addf(diag.CodeDuplicateDeclaration, paramDecls[i].Span, "duplicate parameter %q", p.Name)
		}
	}

	fl := &flow{
		sc:    fnScope,
		facts: narrow.NewFacts(),
		tp:    tp,
		fn:    &funcCtx{declared: declared},
	}
	a.checkStmt(body, fl)

	if declared != nil {
		return declared
	}
	if len(fl.fn.inferred) == 0 {
		return a.in.Void
	}
	return a.in.Union(fl.fn.inferred...)
}

func (a *analyzer) checkStmt(s ast.Stmt, fl *flow) {
	switch s := s.(type) {
	case *ast.Block:
		inner := fl.fork()
		inner.sc = scope.New(fl.sc, scope.Block)
		for _, st := range s.Stmts {
			a.checkStmt(st, inner)
		}
		fl.facts = inner.facts

	case *ast.ExprStmt:
		a.checkExpr(s.X, nil, fl)

	case *ast.DeclStmt:
		a.checkLocalDecl(s.Decl, fl)

	case *ast.IfStmt:
		trueFl, falseFl := a.applyGuard(s.Cond, fl)
		a.checkStmt(s.Then, trueFl)
		if s.Else != nil {
			a.checkStmt(s.Else, falseFl)
		}
		thenDone := terminates(s.Then)
		elseDone := s.Else != nil && terminates(s.Else)
		switch {
		case thenDone && elseDone:
			// Both branches leave; keep the pre-branch facts.
		case thenDone:
			fl.facts = falseFl.facts
		case elseDone:
			fl.facts = trueFl.facts
		default:
			fl.facts = trueFl.facts.Join(falseFl.facts, a.in)
		}

	case *ast.WhileStmt:
		trueFl, falseFl := a.applyGuard(s.Cond, fl)
		// Facts about bindings the body reassigns do not survive the back
		// edge; drop them before checking the body once.
		bodyFl := trueFl.fork()
		bodyFl.facts = a.dropAssigned(bodyFl.facts, s.Body, bodyFl.sc)
		a.checkStmt(s.Body, bodyFl)
		fl.facts = a.dropAssigned(falseFl.facts, s.Body, fl.sc)

	case *ast.SwitchStmt:
		a.checkSwitch(s, fl)

	case *ast.ReturnStmt:
		var got *types.Type
		if s.X != nil {
			var expected *types.Type
			if fl.fn != nil {
				expected = fl.fn.declared
			}
			got = a.checkExpr(s.X, expected, fl)
		} else {
			got = a.in.Void
		}
		if fl.fn == nil {
			a.bag.Addf(diag.CodeInternalInconsistency, spanOf(s), "return outside of a function")
			return
		}
		if fl.fn.declared != nil {
			want := fl.fn.declared
			if want.Kind == types.KindVoid && s.X == nil {
				return
			}
			if !a.r.Assignable(got, want) {
				a.bag.Addf(diag.CodeNotAssignable, spanOf(s), "type %s is not assignable to return type %s", got, want)
			}
			return
		}
		fl.fn.inferred = append(fl.fn.inferred, got)

	default:
		a.bag.Addf(diag.CodeInternalInconsistency, spanOf(s), "unsupported statement")
	}
}

func (a *analyzer) checkLocalDecl(d ast.Decl, fl *flow) {
	switch d := d.(type) {
	case *ast.VarDecl:
		var declared *types.Type
		if d.TypeAnn != nil {
			declared = a.lowerType(d.TypeAnn, fl.tp)
		}
		var got *types.Type
		if d.Init != nil {
			got = a.checkExpr(d.Init, declared, fl)
		}

		t := declared
		switch {
		case declared != nil && got != nil:
			if !a.r.Assignable(got, declared) {
				a.bag.Addf(diag.CodeNotAssignable, spanOf(d.Init), "type %s is not assignable to type %s", got, declared)
			}
		case declared == nil && got != nil:
			t = got
			if !d.Const {
				t = a.in.Widen(t)
			}
		case declared == nil:
			a.bag.Addf(diag.CodeMalformedType, d.Span, "declaration of %q needs a type annotation or an initializer", d.Name)
			t = a.in.Any
		}

		var flags scope.Flags
		if d.Const {
			flags |= scope.FlagConst
		}
		sym := scope.NewSymbol(d.Name, scope.SymbolVar, flags)
		sym.Type = t
		sym.Decl = d
		sym.Span = d.Span
		a.types[d.ID()] = t
		if _, ok := fl.sc.Declare(sym); !ok {
			a.bag.Addf(diag.CodeDuplicateDeclaration, d.Span, "duplicate declaration of %q", d.Name)
			return
		}
		// An annotated binding starts narrowed to its initializer.
		if declared != nil && got != nil && got != declared && a.r.Assignable(got, declared) {
			fl.facts = fl.facts.With(sym.ID, got)
		}

	case *ast.FuncDecl:
		tparams, tp := a.declareTypeParams(d.TypeParams, fl.tp)
		params := a.lowerParams(d.Params, tp)
		var declared *types.Type
		if d.Return != nil {
			declared = a.lowerType(d.Return, tp)
		}

		// Declare before checking the body so the function can recurse.
		// Without an annotation recursion sees the provisional void
		// return.
		provisional := declared
		if provisional == nil {
			provisional = a.in.Void
		}
		sig := &types.Signature{TypeParams: tparams, Params: params, Return: provisional}
		fn := a.in.Function(sig)
		sym := scope.NewSymbol(d.Name, scope.SymbolFunc, scope.FlagConst)
		sym.Type = fn
		sym.Decl = d
		sym.Span = d.Span
		if _, ok := fl.sc.Declare(sym); !ok {
			a.bag.Addf(diag.CodeDuplicateDeclaration, d.Span, "duplicate declaration of %q", d.Name)
		}

		if d.Body != nil {
			ret := a.checkFunctionBody(d.Params, params, d.Body, declared, tp, fl.sc)
			if declared == nil && ret != provisional {
				fn = a.in.Function(&types.Signature{TypeParams: tparams, Params: params, Return: ret})
				sym.Type = fn
			}
		}
		a.types[d.ID()] = fn

	default:
		a.bag.Addf(diag.CodeInternalInconsistency, spanOf(d), "unsupported local declaration")
	}
}

func (a *analyzer) checkSwitch(s *ast.SwitchStmt, fl *flow) {
	tag := a.checkExpr(s.Tag, nil, fl)
	tagSym, tagProp := a.guardTarget(s.Tag, fl)

	var remaining *types.Type
	if tagSym != nil {
		remaining = a.currentType(tagSym, fl)
	}
	exit := fl.facts
	first := true

	for _, c := range s.Cases {
		caseFl := fl.fork()
		if c.Value == nil {
			// Default case sees whatever the labeled cases left over.
			if tagSym != nil {
				caseFl.facts = caseFl.facts.With(tagSym.ID, remaining)
			}
		} else {
			lit := a.checkExpr(c.Value, tag, caseFl)
			if !a.comparable(lit, tag) && !a.r.Assignable(lit, tag) && !a.r.Assignable(tag, lit) {
				a.bag.Addf(diag.CodeNotAssignable, spanOf(c.Value), "case value of type %s is not comparable to the switch value of type %s", lit, tag)
			}
			if tagSym != nil && lit.Kind == types.KindLiteral {
				var narrowed *types.Type
				if tagProp == "" {
					narrowed = a.nar.ByLiteral(remaining, lit, true)
					remaining = a.nar.ByLiteral(remaining, lit, false)
				} else {
					narrowed = a.nar.ByDiscriminant(remaining, tagProp, lit, true)
					remaining = a.nar.ByDiscriminant(remaining, tagProp, lit, false)
				}
				caseFl.facts = caseFl.facts.With(tagSym.ID, narrowed)
			}
		}
		for _, st := range c.Body {
			a.checkStmt(st, caseFl)
		}
		if !terminatesAll(c.Body) {
			if first {
				exit = caseFl.facts
				first = false
			} else {
				exit = exit.Join(caseFl.facts, a.in)
			}
		}
	}
	fl.facts = exit
}

// guardTarget resolves the symbol (and optional discriminant property) a
// guard expression constrains: a bare identifier or a property access on
// one.
func (a *analyzer) guardTarget(e ast.Expr, fl *flow) (*scope.Symbol, string) {
	switch e := e.(type) {
	case *ast.Ident:
		if sym, ok := fl.sc.Lookup(e.Name); ok && narrowable(sym) {
			return sym, ""
		}
	case *ast.MemberExpr:
		if id, ok := e.X.(*ast.Ident); ok && !e.Optional {
			if sym, ok := fl.sc.Lookup(id.Name); ok && narrowable(sym) {
				return sym, e.Name
			}
		}
	}
	return nil, ""
}

func narrowable(sym *scope.Symbol) bool {
	return sym.Kind == scope.SymbolVar || sym.Kind == scope.SymbolParam
}

// dropAssigned removes facts about every binding the statement assigns.
func (a *analyzer) dropAssigned(facts narrow.Facts, s ast.Stmt, sc *scope.Scope) narrow.Facts {
	names := make(map[string]bool)
	collectAssigned(s, names)
	for name := range names {
		if sym, ok := sc.Lookup(name); ok {
			facts = facts.Without(sym.ID)
		}
	}
	return facts
}

func collectAssigned(s ast.Stmt, out map[string]bool) {
	switch s := s.(type) {
	case *ast.Block:
		for _, st := range s.Stmts {
			collectAssigned(st, out)
		}
	case *ast.ExprStmt:
		collectAssignedExpr(s.X, out)
	case *ast.DeclStmt:
		if v, ok := s.Decl.(*ast.VarDecl); ok && v.Init != nil {
			collectAssignedExpr(v.Init, out)
		}
	case *ast.IfStmt:
		collectAssignedExpr(s.Cond, out)
		collectAssigned(s.Then, out)
		if s.Else != nil {
			collectAssigned(s.Else, out)
		}
	case *ast.WhileStmt:
		collectAssignedExpr(s.Cond, out)
		collectAssigned(s.Body, out)
	case *ast.SwitchStmt:
		collectAssignedExpr(s.Tag, out)
		for _, c := range s.Cases {
			for _, st := range c.Body {
				collectAssigned(st, out)
			}
		}
	case *ast.ReturnStmt:
		if s.X != nil {
			collectAssignedExpr(s.X, out)
		}
	}
}

func collectAssignedExpr(e ast.Expr, out map[string]bool) {
	switch e := e.(type) {
	case *ast.AssignExpr:
		if id, ok := e.Target.(*ast.Ident); ok {
			out[id.Name] = true
		}
		collectAssignedExpr(e.Value, out)
	case *ast.ObjectLit:
		for _, f := range e.Fields {
			collectAssignedExpr(f.Value, out)
		}
	case *ast.ArrayLit:
		for _, el := range e.Elems {
			collectAssignedExpr(el, out)
		}
	case *ast.CallExpr:
		collectAssignedExpr(e.Callee, out)
		for _, arg := range e.Args {
			collectAssignedExpr(arg, out)
		}
	case *ast.NewExpr:
		collectAssignedExpr(e.Callee, out)
		for _, arg := range e.Args {
			collectAssignedExpr(arg, out)
		}
	case *ast.SpreadExpr:
		collectAssignedExpr(e.X, out)
	case *ast.MemberExpr:
		collectAssignedExpr(e.X, out)
	case *ast.IndexExpr:
		collectAssignedExpr(e.X, out)
		collectAssignedExpr(e.Index, out)
	case *ast.BinaryExpr:
		collectAssignedExpr(e.X, out)
		collectAssignedExpr(e.Y, out)
	case *ast.UnaryExpr:
		collectAssignedExpr(e.X, out)
	case *ast.CondExpr:
		collectAssignedExpr(e.Cond, out)
		collectAssignedExpr(e.Then, out)
		collectAssignedExpr(e.Else, out)
	}
}

// terminates reports whether a statement always leaves the enclosing
// function.
func terminates(s ast.Stmt) bool {
	switch s := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.Block:
		return terminatesAll(s.Stmts)
	case *ast.IfStmt:
		return s.Else != nil && terminates(s.Then) && terminates(s.Else)
	}
	return false
}

func terminatesAll(stmts []ast.Stmt) bool {
	for _, st := range stmts {
		if terminates(st) {
			return true
		}
	}
	return false
}
