package analyzer

import (
	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/diag"
	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/types"
)

// tpScope resolves type parameter names during lowering. Scopes chain so
// a signature's own parameters shadow the enclosing declaration's.
type tpScope struct {
	parent *tpScope
	byName map[string]*types.Type
}

func (tp *tpScope) lookup(name string) (*types.Type, bool) {
	for s := tp; s != nil; s = s.parent {
		if t, ok := s.byName[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// declareTypeParams lowers type parameter declarations into fresh
// parameter types and a child lookup scope. Constraints and defaults may
// reference parameters declared earlier in the same list.
func (a *analyzer) declareTypeParams(decls []*ast.TypeParamDecl, outer *tpScope) ([]*types.Type, *tpScope) {
	if len(decls) == 0 {
		return nil, outer
	}
	sc := &tpScope{parent: outer, byName: make(map[string]*types.Type, len(decls))}
	params := make([]*types.Type, 0, len(decls))
	for _, d := range decls {
		var constraint, def *types.Type
		if d.Constraint != nil {
			constraint = a.lowerType(d.Constraint, sc)
		}
		if d.Default != nil {
			def = a.lowerType(d.Default, sc)
		}
		p := a.in.NewTypeParam(d.Name, constraint, def)
		sc.byName[d.Name] = p
		params = append(params, p)
	}
	return params, sc
}

var builtinTypes = map[string]types.Kind{
	"any":       types.KindAny,
	"unknown":   types.KindUnknown,
	"never":     types.KindNever,
	"void":      types.KindVoid,
	"null":      types.KindNull,
	"undefined": types.KindUndefined,
	"string":    types.KindString,
	"number":    types.KindNumber,
	"boolean":   types.KindBoolean,
	"bigint":    types.KindBigInt,
	"symbol":    types.KindSymbol,
}

// lowerType converts a type annotation into a semantic type. Failures are
// reported and produce the error placeholder; lowering never aborts.
func (a *analyzer) lowerType(te ast.TypeExpr, tp *tpScope) *types.Type {
	t := a.lowerType0(te, tp)
	a.types[te.ID()] = t
	return t
}

func (a *analyzer) lowerType0(te ast.TypeExpr, tp *tpScope) *types.Type {
	switch te := te.(type) {
	case *ast.TypeName:
		return a.lowerTypeName(te, tp)

	case *ast.LitTypeExpr:
		switch te.Kind {
		case ast.LitString:
			return a.in.StringLiteral(te.Value.(string))
		case ast.LitNumber:
			return a.in.NumberLiteral(te.Value.(float64))
		case ast.LitBoolean:
			return a.in.BooleanLiteral(te.Value.(bool))
		case ast.LitNull:
			return a.in.Null
		case ast.LitUndefined:
			return a.in.Undefined
		}
		a.bag.Addf(diag.CodeMalformedType, te.Span, "unsupported literal type")
		return a.in.Error

	case *ast.UnionTypeExpr:
		members := make([]*types.Type, 0, len(te.Members))
		for _, m := range te.Members {
			members = append(members, a.lowerType(m, tp))
		}
		return a.in.Union(members...)

	case *ast.IntersectionTypeExpr:
		members := make([]*types.Type, 0, len(te.Members))
		for _, m := range te.Members {
			members = append(members, a.lowerType(m, tp))
		}
		return a.in.Intersection(members...)

	case *ast.ObjectTypeExpr:
		return a.in.Object(a.lowerMembers(te.Members, tp))

	case *ast.FuncTypeExpr:
		return a.in.Function(a.lowerSignature(te, tp))

	case *ast.ArrayTypeExpr:
		return a.in.Array(a.lowerType(te.Elem, tp), te.Readonly)

	case *ast.TupleTypeExpr:
		elems := make([]types.TupleElem, 0, len(te.Elems))
		for i, e := range te.Elems {
			opt := te.Optional != nil && i < len(te.Optional) && te.Optional[i]
			elems = append(elems, types.TupleElem{Type: a.lowerType(e, tp), Optional: opt})
		}
		var rest *types.Type
		if te.Rest != nil {
			rest = a.lowerType(te.Rest, tp)
		}
		return a.in.Tuple(elems, rest, te.Readonly)

	case *ast.KeyofTypeExpr:
		return a.r.Normalize(a.in.Keyof(a.lowerType(te.Operand, tp)))

	case *ast.IndexedTypeExpr:
		obj := a.lowerType(te.Object, tp)
		idx := a.lowerType(te.Index, tp)
		t := a.r.Normalize(a.in.Indexed(obj, idx))
		if t.Kind == types.KindError && obj.Kind != types.KindError && idx.Kind != types.KindError {
			a.bag.Addf(diag.CodeInvalidIndexedAccess, te.Span, "type %s cannot be indexed with %s", obj, idx)
		}
		return t

	case *ast.CondTypeExpr:
		check := a.lowerType(te.Check, tp)
		ext := a.lowerType(te.Extends, tp)
		then := a.lowerType(te.Then, tp)
		els := a.lowerType(te.Else, tp)
		return a.r.Normalize(a.in.Conditional(check, ext, then, els))

	case *ast.MappedTypeExpr:
		param := a.in.NewTypeParam(te.Param, nil, nil)
		inner := &tpScope{parent: tp, byName: map[string]*types.Type{te.Param: param}}
		source := a.lowerType(te.Source, inner)
		value := a.lowerType(te.Value, inner)
		return a.r.Normalize(a.in.Mapped(param, source, value, te.Optional, te.Readonly))

	default:
		a.bag.Addf(diag.CodeMalformedType, spanOf(te), "unsupported type annotation")
		return a.in.Error
	}
}

func (a *analyzer) lowerTypeName(te *ast.TypeName, tp *tpScope) *types.Type {
	if t, ok := tp.lookup(te.Name); ok {
		if len(te.Args) > 0 {
			a.bag.Addf(diag.CodeMalformedType, te.Span, "type parameter %s takes no type arguments", te.Name)
			return a.in.Error
		}
		return t
	}
	if k, ok := builtinTypes[te.Name]; ok {
		if len(te.Args) > 0 {
			a.bag.Addf(diag.CodeMalformedType, te.Span, "type %s takes no type arguments", te.Name)
			return a.in.Error
		}
		return a.in.Primitive(k)
	}
	if te.Name == "object" {
		return a.in.Object(nil)
	}

	sym, ok := a.modScope.Lookup(te.Name)
	if !ok || sym.Type == nil {
		a.bag.Addf(diag.CodeUnknownTypeName, te.Span, "unknown type name %q", te.Name)
		return a.in.Error
	}
	if !sym.IsType() && sym.Kind != scope.SymbolImport {
		a.bag.Addf(diag.CodeUnknownTypeName, te.Span, "%q is a %s, not a type", te.Name, sym.Kind)
		return a.in.Error
	}

	args := make([]*types.Type, 0, len(te.Args))
	for _, arg := range te.Args {
		args = append(args, a.lowerType(arg, tp))
	}

	// Generic aliases expand by substitution at the reference site.
	if sym.AliasBody != nil && len(sym.AliasParams) > 0 {
		if len(args) > len(sym.AliasParams) {
			a.bag.Addf(diag.CodeMalformedType, te.Span, "wrong number of type arguments for %s: got %d, want at most %d", te.Name, len(args), len(sym.AliasParams))
			return a.in.Error
		}
		sub := make(map[*types.Type]*types.Type, len(sym.AliasParams))
		for i, p := range sym.AliasParams {
			if i < len(args) {
				sub[p] = args[i]
			} else if def := p.Data.(*types.TypeParamType).Default; def != nil {
				sub[p] = def
			} else {
				a.bag.Addf(diag.CodeMalformedType, te.Span, "missing type argument for %s", te.Name)
				return a.in.Error
			}
		}
		out, err := a.r.Substitute(sym.AliasBody, sub)
		if err != nil {
			a.bag.Addf(diag.CodeInstantiationDepthExceeded, te.Span, "instantiation of %s is too deep", te.Name)
			return a.in.Error
		}
		return a.r.Normalize(out)
	}

	if len(args) > 0 {
		return a.r.Normalize(a.in.Apply(sym.Type, args))
	}
	return sym.Type
}

// lowerMembers lowers property signatures into a member list, reporting
// duplicates.
func (a *analyzer) lowerMembers(sigs []*ast.PropertySig, tp *tpScope) []types.Member {
	members := make([]types.Member, 0, len(sigs))
	seen := make(map[string]bool, len(sigs))
	for _, p := range sigs {
		if seen[p.Name] {
			a.bag.Addf(diag.CodeDuplicateDeclaration, p.Span, "duplicate member %q", p.Name)
			continue
		}
		seen[p.Name] = true
		members = append(members, types.Member{
			Name:     p.Name,
			Optional: p.Optional,
			Readonly: p.Readonly,
			Type:     a.lowerType(p.Type, tp),
		})
	}
	return members
}

// lowerSignature lowers a function type annotation into a signature.
func (a *analyzer) lowerSignature(fe *ast.FuncTypeExpr, tp *tpScope) *types.Signature {
	tparams, inner := a.declareTypeParams(fe.TypeParams, tp)
	params := a.lowerParams(fe.Params, inner)
	ret := a.in.Void
	if fe.Return != nil {
		ret = a.lowerType(fe.Return, inner)
	}
	return &types.Signature{
		TypeParams: tparams,
		Params:     params,
		Return:     ret,
		IsMethod:   fe.IsMethod,
	}
}

func (a *analyzer) lowerParams(decls []*ast.ParamDecl, tp *tpScope) []types.Param {
	params := make([]types.Param, 0, len(decls))
	for _, p := range decls {
		t := a.in.Any
		if p.TypeAnn != nil {
			t = a.lowerType(p.TypeAnn, tp)
		}
		if p.Rest {
			if t.Kind != types.KindArray && t.Kind != types.KindError && t.Kind != types.KindAny {
				a.bag.Addf(diag.CodeMalformedType, p.Span, "rest parameter must have an array type")
				t = a.in.Error
			}
		}
		params = append(params, types.Param{
			Name:     p.Name,
			Type:     t,
			Optional: p.Optional || p.Default != nil,
			Rest:     p.Rest,
		})
	}
	return params
}
