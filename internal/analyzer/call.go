package analyzer

import (
	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/diag"
	"github.com/ah-yu/stc/internal/types"
)

// checkCall resolves a call or new expression against the callee's
// signatures: overloads are tried in declaration order, generic
// signatures infer their type arguments from the call site, and the first
// applicable signature wins.
func (a *analyzer) checkCall(e *ast.CallExpr, fl *flow, isNew bool) *types.Type {
	callee := a.checkExpr(e.Callee, nil, fl)
	if callee.Kind == types.KindError || callee.Kind == types.KindAny {
		for _, arg := range e.Args {
			a.checkExpr(arg, nil, fl)
		}
		return callee
	}

	var sigs []*types.Signature
	if isNew {
		sigs = a.r.ConstructSignatures(callee)
		if len(sigs) == 0 {
			a.bag.Addf(diag.CodeNotConstructable, e.Span, "type %s is not constructable", callee)
			for _, arg := range e.Args {
				a.checkExpr(arg, nil, fl)
			}
			return a.in.Error
		}
	} else {
		sigs = a.r.CallSignatures(callee)
		if len(sigs) == 0 {
			a.bag.Addf(diag.CodeNotCallable, e.Span, "type %s is not callable", callee)
			for _, arg := range e.Args {
				a.checkExpr(arg, nil, fl)
			}
			return a.in.Error
		}
	}

	explicit := make([]*types.Type, 0, len(e.TypeArgs))
	for _, ta := range e.TypeArgs {
		explicit = append(explicit, a.lowerType(ta, nil))
	}

	// Argument types are computed once. Contextual typing uses the only
	// signature when the callee is not overloaded.
	var ctx *types.Signature
	if len(sigs) == 1 {
		ctx = sigs[0]
	}
	hasSpread := false
	argTypes := make([]*types.Type, len(e.Args))
	for i, arg := range e.Args {
		var expected *types.Type
		if ctx != nil {
			if p, ok := paramAt(ctx, i); ok {
				expected = p.Type
			}
		}
		if _, ok := arg.(*ast.SpreadExpr); ok {
			hasSpread = true
		}
		argTypes[i] = a.checkExpr(arg, expected, fl)
	}

	type failure struct {
		sig    *types.Signature
		reason diag.Code
		detail string
	}
	var failures []failure

	for _, sig := range sigs {
		inst := sig
		if len(sig.TypeParams) > 0 {
			res := a.r.InferTypeArgs(sig, argTypes, explicit)
			if !res.Ok() {
				failures = append(failures, failure{sig, diag.CodeTypeArgumentInferenceFailed, "cannot infer " + res.Failed[0]})
				continue
			}
			sub := make(map[*types.Type]*types.Type, len(sig.TypeParams))
			for i, p := range sig.TypeParams {
				sub[p] = res.Args[i]
			}
			params := make([]types.Param, len(sig.Params))
			ok := true
			for i, p := range sig.Params {
				pt, err := a.r.Substitute(p.Type, sub)
				if err != nil {
					a.bag.Addf(diag.CodeInstantiationDepthExceeded, e.Span, "instantiation is too deep")
					ok = false
					break
				}
				params[i] = types.Param{Name: p.Name, Type: pt, Optional: p.Optional, Rest: p.Rest}
			}
			if !ok {
				continue
			}
			ret, err := a.r.Substitute(sig.Return, sub)
			if err != nil {
				a.bag.Addf(diag.CodeInstantiationDepthExceeded, e.Span, "instantiation is too deep")
				continue
			}
			inst = &types.Signature{Params: params, Return: ret, IsMethod: sig.IsMethod}
		}

		if !hasSpread {
			if len(argTypes) < inst.MinArity() || (len(argTypes) > len(inst.Params) && !inst.HasRest()) {
				failures = append(failures, failure{inst, diag.CodeArityMismatch, ""})
				continue
			}
		}

		applicable := true
		for i, at := range argTypes {
			p, ok := paramAt(inst, i)
			if !ok {
				break
			}
			if !a.r.Assignable(at, p.Type) {
				applicable = false
				if len(sigs) == 1 {
					a.bag.Addf(diag.CodeNotAssignable, spanOf(e.Args[i]), "argument of type %s is not assignable to parameter of type %s", at, p.Type)
				}
				break
			}
		}
		if !applicable {
			failures = append(failures, failure{inst, diag.CodeNotAssignable, ""})
			continue
		}

		ret := a.r.Normalize(inst.Return)
		return ret
	}

	// Nothing applied; pick the most telling diagnostic.
	if len(sigs) == 1 && len(failures) > 0 {
		f := failures[0]
		switch f.reason {
		case diag.CodeArityMismatch:
			a.bag.Addf(diag.CodeArityMismatch, e.Span, "expected %d argument(s), got %d", len(sigs[0].Params), len(e.Args))
		case diag.CodeTypeArgumentInferenceFailed:
			a.bag.Addf(diag.CodeTypeArgumentInferenceFailed, e.Span, "type argument inference failed: %s", f.detail)
		}
		// The not-assignable case already produced an argument-level
		// diagnostic.
	} else {
		a.bag.Addf(diag.CodeNoApplicableOverload, e.Span, "no overload matches this call (%d overloads tried)", len(sigs))
	}
	return a.in.Error
}

// paramAt returns the parameter occupying argument position i, looking
// through a trailing rest parameter.
func paramAt(sig *types.Signature, i int) (types.Param, bool) {
	if i < len(sig.Params) {
		p := sig.Params[i]
		if p.Rest {
			return restParam(p), true
		}
		return p, true
	}
	if sig.HasRest() {
		return restParam(sig.Params[len(sig.Params)-1]), true
	}
	return types.Param{}, false
}

func restParam(p types.Param) types.Param {
	if at, ok := p.Type.Data.(*types.ArrayType); ok && p.Type.Kind == types.KindArray {
		return types.Param{Name: p.Name, Type: at.Elem, Optional: true, Rest: false}
	}
	return types.Param{Name: p.Name, Type: p.Type, Optional: true}
}
