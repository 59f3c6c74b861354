package typeops

import "github.com/ah-yu/stc/internal/types"

// InferenceResult reports the outcome of type argument inference for one
// signature. Args is parallel to the signature's type parameter list;
// positions that could not be inferred hold the error placeholder and
// their parameter names appear in Failed.
type InferenceResult struct {
	Args   []*types.Type
	Failed []string
}

// Ok reports whether every type argument was resolved.
func (ir InferenceResult) Ok() bool { return len(ir.Failed) == 0 }

// InferTypeArgs infers type arguments for sig from the argument types at a
// call site. Explicit arguments, when present, override inference for
// their positions. Candidates collected from several argument positions
// are joined by union; inferred literals widen to their base primitive
// when the engine is configured to do so. Each resolved argument is
// checked against its parameter's constraint.
func (r *Relater) InferTypeArgs(sig *types.Signature, argTypes []*types.Type, explicit []*types.Type) InferenceResult {
	params := sig.TypeParams
	res := InferenceResult{Args: make([]*types.Type, len(params))}
	if len(params) == 0 {
		return res
	}

	cands := make(map[*types.Type][]*types.Type, len(params))
	inferable := make(map[*types.Type]bool, len(params))
	for i, p := range params {
		if i < len(explicit) && explicit[i] != nil {
			res.Args[i] = explicit[i]
			continue
		}
		inferable[p] = true
	}

	for i, at := range argTypes {
		p, ok := targetParamAt(sig, i)
		if !ok {
			break
		}
		r.collect(p.Type, at, inferable, cands, 0)
	}

	for i, p := range params {
		if res.Args[i] != nil {
			continue
		}
		got := cands[p]
		if len(got) == 0 {
			tp := p.Data.(*types.TypeParamType)
			if tp.Default != nil {
				res.Args[i] = tp.Default
				continue
			}
			res.Args[i] = r.in.Error
			res.Failed = append(res.Failed, tp.Name)
			continue
		}
		joined := r.in.Union(got...)
		if r.cfg.WidenInferredLiterals {
			joined = r.in.Widen(joined)
		}
		res.Args[i] = joined
	}

	// Constraint check runs over the fully resolved argument vector so
	// constraints may mention sibling parameters.
	sub := make(map[*types.Type]*types.Type, len(params))
	for i, p := range params {
		sub[p] = res.Args[i]
	}
	for i, p := range params {
		tp := p.Data.(*types.TypeParamType)
		if tp.Constraint == nil || res.Args[i].Kind == types.KindError {
			continue
		}
		bound, err := r.Substitute(tp.Constraint, sub)
		if err != nil {
			continue
		}
		if !r.Assignable(res.Args[i], bound) {
			res.Args[i] = r.in.Error
			res.Failed = append(res.Failed, tp.Name)
		}
	}
	return res
}

// collect walks pattern and actual in parallel, recording actual types at
// every position a free type parameter occupies in the pattern.
func (r *Relater) collect(pattern, actual *types.Type, inferable map[*types.Type]bool, cands map[*types.Type][]*types.Type, depth int) {
	if pattern == nil || actual == nil || depth > r.cfg.MaxInstantiationDepth {
		return
	}
	pattern = pattern.Deref()
	actual = actual.Deref()

	if inferable[pattern] {
		cands[pattern] = append(cands[pattern], actual)
		return
	}

	switch pattern.Kind {
	case types.KindArray:
		pe := pattern.Data.(*types.ArrayType).Elem
		switch actual.Kind {
		case types.KindArray:
			r.collect(pe, actual.Data.(*types.ArrayType).Elem, inferable, cands, depth+1)
		case types.KindTuple:
			tt := actual.Data.(*types.TupleType)
			for _, e := range tt.Elems {
				r.collect(pe, e.Type, inferable, cands, depth+1)
			}
			if tt.Rest != nil {
				r.collect(pe, tt.Rest, inferable, cands, depth+1)
			}
		}

	case types.KindTuple:
		if actual.Kind != types.KindTuple {
			return
		}
		pt := pattern.Data.(*types.TupleType)
		at := actual.Data.(*types.TupleType)
		for i, pe := range pt.Elems {
			if i < len(at.Elems) {
				r.collect(pe.Type, at.Elems[i].Type, inferable, cands, depth+1)
			}
		}
		if pt.Rest != nil && at.Rest != nil {
			r.collect(pt.Rest, at.Rest, inferable, cands, depth+1)
		}

	case types.KindObject, types.KindInterface:
		pm, ok := r.membersOf(newRelCtx(), pattern)
		if !ok {
			return
		}
		am, ok := r.membersOf(newRelCtx(), actual)
		if !ok {
			return
		}
		for name, p := range pm {
			if a, found := am[name]; found {
				r.collect(p.Type, a.Type, inferable, cands, depth+1)
			}
		}

	case types.KindFunction:
		psigs := pattern.Data.(*types.FunctionType).Signatures
		asigs := callSignatures(actual)
		if len(psigs) != 1 || len(asigs) == 0 {
			return
		}
		ps := psigs[0]
		as := asigs[len(asigs)-1]
		for i, pp := range ps.Params {
			if i < len(as.Params) {
				r.collect(pp.Type, as.Params[i].Type, inferable, cands, depth+1)
			}
		}
		r.collect(ps.Return, as.Return, inferable, cands, depth+1)

	case types.KindUnion:
		// Match non-parameter alternatives structurally; anything of the
		// actual left over would land on a parameter alternative, which
		// the direct hit above already covers per call position.
		for _, pm := range pattern.Data.(*types.UnionType).Members {
			r.collect(pm, actual, inferable, cands, depth+1)
		}

	case types.KindApplied:
		if actual.Kind != types.KindApplied {
			return
		}
		pa := pattern.Data.(*types.AppliedType)
		aa := actual.Data.(*types.AppliedType)
		if pa.Base.Deref() != aa.Base.Deref() || len(pa.Args) != len(aa.Args) {
			return
		}
		for i := range pa.Args {
			r.collect(pa.Args[i], aa.Args[i], inferable, cands, depth+1)
		}
	}
}
