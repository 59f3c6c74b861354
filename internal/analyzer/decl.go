package analyzer

import (
	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/diag"
	"github.com/ah-yu/stc/internal/types"
)

// groupDeps collects the module-level names a declaration group's types
// depend on: annotation references plus, for inferred declarations, the
// names their initializers and bodies mention.
func (a *analyzer) groupDeps(g *declGroup) map[string]bool {
	deps := make(map[string]bool)
	for _, d := range g.decls {
		switch d := d.(type) {
		case *ast.TypeAliasDecl:
			a.typeExprDeps(d.Target, tparamNames(d.TypeParams), deps)
		case *ast.InterfaceDecl:
			skip := tparamNames(d.TypeParams)
			for _, e := range d.Extends {
				a.typeExprDeps(e, skip, deps)
			}
			for _, m := range d.Members {
				a.typeExprDeps(m.Type, skip, deps)
			}
		case *ast.ClassDecl:
			skip := tparamNames(d.TypeParams)
			if d.Extends != nil {
				a.typeExprDeps(d.Extends, skip, deps)
			}
			for _, e := range d.Implements {
				a.typeExprDeps(e, skip, deps)
			}
			for _, m := range d.Members {
				a.typeExprDeps(m.Type, skip, deps)
			}
			for _, c := range d.Ctors {
				a.typeExprDeps(c, skip, deps)
			}
		case *ast.FuncDecl:
			skip := tparamNames(d.TypeParams)
			for _, p := range d.Params {
				if p.TypeAnn != nil {
					a.typeExprDeps(p.TypeAnn, skip, deps)
				}
			}
			if d.Return != nil {
				a.typeExprDeps(d.Return, skip, deps)
			} else if d.Body != nil {
				// Inferred returns make the body part of the signature.
				a.stmtDeps(d.Body, deps)
			}
		case *ast.VarDecl:
			if d.TypeAnn != nil {
				a.typeExprDeps(d.TypeAnn, nil, deps)
			} else if d.Init != nil {
				a.exprDeps(d.Init, deps)
			}
		}
	}
	return deps
}

func tparamNames(decls []*ast.TypeParamDecl) map[string]bool {
	if len(decls) == 0 {
		return nil
	}
	m := make(map[string]bool, len(decls))
	for _, d := range decls {
		m[d.Name] = true
	}
	return m
}

func (a *analyzer) typeExprDeps(te ast.TypeExpr, skip map[string]bool, out map[string]bool) {
	switch te := te.(type) {
	case *ast.TypeName:
		if _, builtin := builtinTypes[te.Name]; !builtin && !skip[te.Name] && te.Name != "object" {
			out[te.Name] = true
		}
		for _, arg := range te.Args {
			a.typeExprDeps(arg, skip, out)
		}
	case *ast.UnionTypeExpr:
		for _, m := range te.Members {
			a.typeExprDeps(m, skip, out)
		}
	case *ast.IntersectionTypeExpr:
		for _, m := range te.Members {
			a.typeExprDeps(m, skip, out)
		}
	case *ast.ObjectTypeExpr:
		for _, m := range te.Members {
			a.typeExprDeps(m.Type, skip, out)
		}
	case *ast.FuncTypeExpr:
		inner := skip
		if len(te.TypeParams) > 0 {
			inner = make(map[string]bool, len(skip)+len(te.TypeParams))
			for k := range skip {
				inner[k] = true
			}
			for _, d := range te.TypeParams {
				inner[d.Name] = true
			}
		}
		for _, p := range te.Params {
			if p.TypeAnn != nil {
				a.typeExprDeps(p.TypeAnn, inner, out)
			}
		}
		if te.Return != nil {
			a.typeExprDeps(te.Return, inner, out)
		}
	case *ast.ArrayTypeExpr:
		a.typeExprDeps(te.Elem, skip, out)
	case *ast.TupleTypeExpr:
		for _, e := range te.Elems {
			a.typeExprDeps(e, skip, out)
		}
		if te.Rest != nil {
			a.typeExprDeps(te.Rest, skip, out)
		}
	case *ast.KeyofTypeExpr:
		a.typeExprDeps(te.Operand, skip, out)
	case *ast.IndexedTypeExpr:
		a.typeExprDeps(te.Object, skip, out)
		a.typeExprDeps(te.Index, skip, out)
	case *ast.CondTypeExpr:
		a.typeExprDeps(te.Check, skip, out)
		a.typeExprDeps(te.Extends, skip, out)
		a.typeExprDeps(te.Then, skip, out)
		a.typeExprDeps(te.Else, skip, out)
	case *ast.MappedTypeExpr:
		inner := map[string]bool{te.Param: true}
		for k := range skip {
			inner[k] = true
		}
		a.typeExprDeps(te.Source, inner, out)
		a.typeExprDeps(te.Value, inner, out)
	}
}

func (a *analyzer) exprDeps(e ast.Expr, out map[string]bool) {
	switch e := e.(type) {
	case *ast.Ident:
		out[e.Name] = true
	case *ast.ObjectLit:
		for _, f := range e.Fields {
			a.exprDeps(f.Value, out)
		}
	case *ast.ArrayLit:
		for _, el := range e.Elems {
			a.exprDeps(el, out)
		}
	case *ast.FuncLit:
		a.stmtDeps(e.Body, out)
	case *ast.CallExpr:
		a.exprDeps(e.Callee, out)
		for _, arg := range e.Args {
			a.exprDeps(arg, out)
		}
	case *ast.NewExpr:
		a.exprDeps(e.Callee, out)
		for _, arg := range e.Args {
			a.exprDeps(arg, out)
		}
	case *ast.SpreadExpr:
		a.exprDeps(e.X, out)
	case *ast.MemberExpr:
		a.exprDeps(e.X, out)
	case *ast.IndexExpr:
		a.exprDeps(e.X, out)
		a.exprDeps(e.Index, out)
	case *ast.BinaryExpr:
		a.exprDeps(e.X, out)
		a.exprDeps(e.Y, out)
	case *ast.UnaryExpr:
		a.exprDeps(e.X, out)
	case *ast.CondExpr:
		a.exprDeps(e.Cond, out)
		a.exprDeps(e.Then, out)
		a.exprDeps(e.Else, out)
	case *ast.AssignExpr:
		a.exprDeps(e.Target, out)
		a.exprDeps(e.Value, out)
	}
}

func (a *analyzer) stmtDeps(s ast.Stmt, out map[string]bool) {
	switch s := s.(type) {
	case *ast.Block:
		for _, st := range s.Stmts {
			a.stmtDeps(st, out)
		}
	case *ast.ExprStmt:
		a.exprDeps(s.X, out)
	case *ast.DeclStmt:
		if v, ok := s.Decl.(*ast.VarDecl); ok && v.Init != nil {
			a.exprDeps(v.Init, out)
		}
	case *ast.IfStmt:
		a.exprDeps(s.Cond, out)
		a.stmtDeps(s.Then, out)
		if s.Else != nil {
			a.stmtDeps(s.Else, out)
		}
	case *ast.WhileStmt:
		a.exprDeps(s.Cond, out)
		a.stmtDeps(s.Body, out)
	case *ast.SwitchStmt:
		a.exprDeps(s.Tag, out)
		for _, c := range s.Cases {
			if c.Value != nil {
				a.exprDeps(c.Value, out)
			}
			for _, st := range c.Body {
				a.stmtDeps(st, out)
			}
		}
	case *ast.ReturnStmt:
		if s.X != nil {
			a.exprDeps(s.X, out)
		}
	}
}

// resolveGroup computes the declared type of one group and stores it on
// the group's symbol.
func (a *analyzer) resolveGroup(g *declGroup) {
	switch d := g.decls[0].(type) {
	case *ast.TypeAliasDecl:
		a.resolveAlias(g, d)
	case *ast.InterfaceDecl:
		a.resolveInterface(g)
	case *ast.ClassDecl:
		a.resolveClass(g, d)
	case *ast.FuncDecl:
		a.resolveFunc(g)
	case *ast.VarDecl:
		a.resolveVar(g, d)
	}
	for _, d := range g.decls {
		a.types[d.ID()] = g.sym.Type
	}
}

func (a *analyzer) resolveAlias(g *declGroup, d *ast.TypeAliasDecl) {
	params, tp := a.declareTypeParams(d.TypeParams, nil)
	body := a.lowerType(d.Target, tp)

	if body == g.sym.Ref {
		a.bag.Addf(diag.CodeMalformedType, d.Span, "type alias %q refers to itself", d.Name)
		body = a.in.Error
	}
	g.sym.AliasParams = params
	g.sym.AliasBody = body
	g.sym.Type = body
}

func (a *analyzer) resolveInterface(g *declGroup) {
	first := g.decls[0].(*ast.InterfaceDecl)
	params, tp := a.declareTypeParams(first.TypeParams, nil)

	it := &types.InterfaceType{
		Name:       g.name,
		TypeParams: params,
	}
	seen := make(map[string]types.Member)

	for _, d := range g.decls {
		decl := d.(*ast.InterfaceDecl)
		if len(decl.TypeParams) != len(first.TypeParams) {
			a.bag.Addf(diag.CodeMergeConflict, decl.Span, "merged declarations of %q disagree on type parameters", g.name)
			continue
		}
		// Subsequent declarations reuse the first declaration's type
		// parameter identities, matched positionally by name.
		declTP := tp
		if d != g.decls[0] && len(decl.TypeParams) > 0 {
			byName := make(map[string]*types.Type, len(params))
			for i, p := range decl.TypeParams {
				byName[p.Name] = params[i]
			}
			declTP = &tpScope{byName: byName}
		}

		for _, e := range decl.Extends {
			it.Supers = append(it.Supers, a.lowerType(e, declTP))
		}
		for _, p := range decl.Members {
			if fe, ok := p.Type.(*ast.FuncTypeExpr); ok && fe.IsMethod && p.Name == "" {
				// Unnamed call member.
				it.Call = append(it.Call, a.lowerSignature(fe, declTP))
				continue
			}
			mt := a.lowerType(p.Type, declTP)
			if prev, dup := seen[p.Name]; dup {
				if prev.Type != mt || prev.Optional != p.Optional {
					a.bag.Add(diag.Diagnostic{
						Severity: diag.SeverityError,
						Code:     diag.CodeMergeConflict,
						Message:  "conflicting declarations of member " + p.Name + " in merged interface " + g.name,
						Span:     p.Span,
						Related: []diag.Related{{
							Message: "previously declared here",
							Span:    spanOf(g.decls[0]),
						}},
					})
				}
				continue
			}
			m := types.Member{Name: p.Name, Optional: p.Optional, Readonly: p.Readonly, Type: mt}
			it.Members = append(it.Members, m)
			seen[p.Name] = m
		}
	}

	g.sym.Type = a.in.Interface(it)
}

func (a *analyzer) resolveClass(g *declGroup, d *ast.ClassDecl) {
	params, tp := a.declareTypeParams(d.TypeParams, nil)

	inst := &types.InterfaceType{
		Name:       d.Name,
		IsClass:    true,
		TypeParams: params,
	}
	var statics []types.Member

	for _, p := range d.Members {
		m := types.Member{
			Name:     p.Name,
			Optional: p.Optional,
			Readonly: p.Readonly,
			Type:     a.lowerType(p.Type, tp),
		}
		if p.Static {
			statics = append(statics, m)
		} else {
			inst.Members = append(inst.Members, m)
		}
	}
	if d.Extends != nil {
		inst.Supers = append(inst.Supers, a.lowerType(d.Extends, tp))
	}

	instance := a.in.Interface(inst)

	// The constructed type: the raw instance for plain classes, an
	// application of the generic over its own parameters otherwise, so
	// construct signatures instantiate per call site.
	self := instance
	if len(params) > 0 {
		self = a.in.Apply(instance, params)
	}

	var ctors []*types.Signature
	for _, c := range d.Ctors {
		sig := a.lowerSignature(c, tp)
		ctors = append(ctors, &types.Signature{
			TypeParams: params,
			Params:     sig.Params,
			Return:     self,
		})
	}
	if len(ctors) == 0 {
		ctors = []*types.Signature{{TypeParams: params, Return: self}}
	}

	g.sym.Type = instance
	g.sym.Ctor = a.in.Interface(&types.InterfaceType{
		Name:      d.Name,
		Members:   statics,
		Construct: ctors,
	})

	for _, impl := range d.Implements {
		target := a.lowerType(impl, tp)
		if !a.r.Assignable(instance, target) {
			a.bag.Addf(diag.CodeNotAssignable, d.Span, "class %s does not implement %s", d.Name, target)
		}
	}
}

func (a *analyzer) resolveFunc(g *declGroup) {
	var overloads []*types.Signature
	var impl *ast.FuncDecl
	for _, d := range g.decls {
		decl := d.(*ast.FuncDecl)
		if decl.Body == nil {
			overloads = append(overloads, a.funcSignature(decl, false))
		} else if impl != nil {
			a.bag.Addf(diag.CodeDuplicateDeclaration, decl.Span, "duplicate implementation of %q", g.name)
		} else {
			impl = decl
		}
	}

	switch {
	case len(overloads) > 0:
		// The implementation signature stays out of the callable set.
		if impl == nil {
			a.bag.Addf(diag.CodeMalformedType, spanOf(g.decls[0]), "overloaded function %q has no implementation", g.name)
		}
		g.sym.Type = a.in.Function(overloads...)
	case impl != nil:
		g.sym.Type = a.in.Function(a.funcSignature(impl, true))
	default:
		g.sym.Type = a.in.Error
	}
}

// funcSignature lowers a function declaration's signature. When
// inferReturn is set and the declaration has no return annotation, the
// body is checked to infer one.
func (a *analyzer) funcSignature(d *ast.FuncDecl, inferReturn bool) *types.Signature {
	tparams, tp := a.declareTypeParams(d.TypeParams, nil)
	params := a.lowerParams(d.Params, tp)

	var ret *types.Type
	switch {
	case d.Return != nil:
		ret = a.lowerType(d.Return, tp)
	case inferReturn && d.Body != nil:
		ret = a.inferReturn(d, params, tp)
	default:
		ret = a.in.Void
	}
	sig := &types.Signature{TypeParams: tparams, Params: params, Return: ret}
	a.fns[d.ID()] = &loweredFunc{sig: sig, tp: tp}
	return sig
}

func (a *analyzer) resolveVar(g *declGroup, d *ast.VarDecl) {
	var declared *types.Type
	if d.TypeAnn != nil {
		declared = a.lowerType(d.TypeAnn, nil)
	}

	if d.Init == nil {
		if declared == nil {
			if !d.Ambient {
				a.bag.Addf(diag.CodeMalformedType, d.Span, "declaration of %q needs a type annotation or an initializer", d.Name)
			}
			declared = a.in.Any
		}
		g.sym.Type = declared
		return
	}

	fl := a.moduleFlow()
	got := a.checkExpr(d.Init, declared, fl)
	if declared != nil {
		if !a.r.Assignable(got, declared) {
			a.bag.Addf(diag.CodeNotAssignable, spanOf(d.Init), "type %s is not assignable to type %s", got, declared)
		}
		g.sym.Type = declared
		return
	}
	if got == g.sym.Ref {
		a.bag.Addf(diag.CodeMalformedType, d.Span, "initializer of %q refers to itself without a type annotation", d.Name)
		got = a.in.Error
	}
	if !d.Const {
		got = a.in.Widen(got)
	}
	g.sym.Type = got
}
