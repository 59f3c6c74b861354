package typeops

import "github.com/ah-yu/stc/internal/types"

// relMode selects between pure structural subtyping and assignability,
// which additionally admits the method-position bivariant exception.
type relMode uint8

const (
	modeSubtype relMode = iota
	modeAssign
)

type pairKey struct {
	a, b uint64
}

// relCtx is the explicit comparison state threaded through a single
// top-level relation check. It never leaks into the session cache.
type relCtx struct {
	inProgress map[pairKey]bool
	// assumed records that somewhere in this call tree a pair was answered
	// by the coinductive assumption, making the result cache-ineligible.
	assumed bool
}

func newRelCtx() *relCtx {
	return &relCtx{inProgress: make(map[pairKey]bool)}
}

// relate is the recursive relation check. src relates to target when a
// value of src may appear where target is expected.
func (r *Relater) relate(ctx *relCtx, src, target *types.Type, mode relMode) bool {
	if src == nil || target == nil {
		return false
	}
	src = src.Deref()
	target = target.Deref()

	if src == target {
		return true
	}
	// The error placeholder absorbs in both directions so that one
	// malformed construct never cascades.
	if src.Kind == types.KindError || target.Kind == types.KindError {
		return true
	}
	if src.Kind == types.KindAny || target.Kind == types.KindAny {
		return true
	}
	if target.Kind == types.KindUnknown {
		return true
	}
	if src.Kind == types.KindNever {
		return true
	}
	if src.Kind == types.KindUnknown || target.Kind == types.KindNever {
		return false
	}

	// An unbound forward reference belongs to a declaration group still
	// being processed; assume the relation holds until the group resolves.
	if src.Kind == types.KindRef || target.Kind == types.KindRef {
		ctx.assumed = true
		return true
	}

	src = r.normalize(ctx, src, 0)
	target = r.normalize(ctx, target, 0)
	if src == target {
		return true
	}
	if src.Kind == types.KindError || target.Kind == types.KindError {
		return true
	}

	pk := pairKey{src.Hash(), target.Hash()}
	if ctx.inProgress[pk] {
		ctx.assumed = true
		return true
	}
	ctx.inProgress[pk] = true
	defer delete(ctx.inProgress, pk)

	// A union source requires every member to relate (universal); check
	// before the disjunctive union-target rule so `A|B -> A|B` decomposes
	// member by member.
	if src.Kind == types.KindUnion {
		for _, m := range src.Data.(*types.UnionType).Members {
			if !r.relate(ctx, m, target, mode) {
				return false
			}
		}
		return true
	}
	if target.Kind == types.KindUnion {
		for _, m := range target.Data.(*types.UnionType).Members {
			if r.relate(ctx, src, m, mode) {
				return true
			}
		}
		return false
	}
	if target.Kind == types.KindIntersection {
		for _, m := range target.Data.(*types.IntersectionType).Members {
			if !r.relate(ctx, src, m, mode) {
				return false
			}
		}
		return true
	}
	if src.Kind == types.KindIntersection {
		for _, m := range src.Data.(*types.IntersectionType).Members {
			if r.relate(ctx, m, target, mode) {
				return true
			}
		}
		return false
	}

	// A type parameter source relates only through its constraint.
	if src.Kind == types.KindTypeParam && target.Kind != types.KindTypeParam {
		return r.relateFromTypeParam(ctx, src, target, mode)
	}

	switch target.Kind {
	case types.KindVoid:
		return src.Kind == types.KindUndefined

	case types.KindString, types.KindNumber, types.KindBoolean, types.KindBigInt,
		types.KindSymbol, types.KindNull, types.KindUndefined:
		if base := src.LiteralBase(); base != nil {
			return base.Kind == target.Kind
		}
		return src.Kind == target.Kind

	case types.KindLiteral:
		// Distinct literals were already separated by pointer identity.
		return false

	case types.KindTypeParam:
		// Only the parameter itself (or never/any/error, handled above)
		// relates to a type parameter.
		return false

	case types.KindFunction:
		return r.relateCallable(ctx, src, target.Data.(*types.FunctionType).Signatures, mode)

	case types.KindArray:
		return r.relateToArray(ctx, src, target.Data.(*types.ArrayType), mode)

	case types.KindTuple:
		return r.relateToTuple(ctx, src, target.Data.(*types.TupleType), mode)

	case types.KindObject, types.KindInterface, types.KindApplied:
		return r.relateToObjectLike(ctx, src, target, mode)

	default:
		// Unresolved operator types (keyof/indexed/conditional/mapped over
		// free type parameters) relate only when identical, which pointer
		// equality covered above.
		return false
	}
}

// relateFromTypeParam handles a type parameter source: it relates through
// its constraint.
func (r *Relater) relateFromTypeParam(ctx *relCtx, src *types.Type, target *types.Type, mode relMode) bool {
	tp := src.Data.(*types.TypeParamType)
	if tp.Constraint == nil {
		return false
	}
	return r.relate(ctx, tp.Constraint, target, mode)
}

// relateToObjectLike checks src against an object, interface, or applied
// target through their member views.
func (r *Relater) relateToObjectLike(ctx *relCtx, src, target *types.Type, mode relMode) bool {
	// An application that survived normalization has a free base (a type
	// parameter, or a reference still being bound). Same base with
	// pairwise-identical arguments relates; anything else does not yet.
	if target.Kind == types.KindApplied || src.Kind == types.KindApplied {
		if appliedUnresolved(src) || appliedUnresolved(target) {
			ctx.assumed = true
			return true
		}
		if src.Kind == types.KindApplied && target.Kind == types.KindApplied {
			sa := src.Data.(*types.AppliedType)
			ta := target.Data.(*types.AppliedType)
			if sa.Base != ta.Base || len(sa.Args) != len(ta.Args) {
				return false
			}
			for i := range sa.Args {
				if !r.relate(ctx, sa.Args[i], ta.Args[i], mode) || !r.relate(ctx, ta.Args[i], sa.Args[i], mode) {
					return false
				}
			}
			return true
		}
		return false
	}

	targetMembers, ok := r.membersOf(ctx, target)
	if !ok {
		ctx.assumed = true
		return true
	}
	srcMembers, ok := r.membersOf(ctx, src)
	if !ok {
		ctx.assumed = true
		return true
	}
	if srcMembers == nil {
		// Source has no member view (a bare primitive against an
		// interface, say); only an empty target matches.
		srcMembers = map[string]types.Member{}
	}

	for _, tm := range targetMembers {
		sm, found := srcMembers[tm.Name]
		if !found {
			if tm.Optional {
				continue
			}
			return false
		}
		if sm.Optional && !tm.Optional {
			return false
		}
		if !r.relate(ctx, sm.Type, tm.Type, mode) {
			return false
		}
	}

	// Call and construct signatures of the target must be satisfied.
	if tcalls := callSignatures(target); len(tcalls) > 0 {
		if !r.relateCallable(ctx, src, tcalls, mode) {
			return false
		}
	}
	if tctors := constructSignatures(target); len(tctors) > 0 {
		sctors := constructSignatures(src)
		if len(sctors) == 0 {
			return false
		}
		for _, tc := range tctors {
			if !r.anySignatureRelates(ctx, sctors, tc, mode) {
				return false
			}
		}
	}
	return true
}

// relateCallable checks that src provides call behavior satisfying every
// target signature.
func (r *Relater) relateCallable(ctx *relCtx, src *types.Type, targetSigs []*types.Signature, mode relMode) bool {
	srcSigs := callSignatures(src)
	if len(srcSigs) == 0 {
		return false
	}
	for _, ts := range targetSigs {
		if !r.anySignatureRelates(ctx, srcSigs, ts, mode) {
			return false
		}
	}
	return true
}

func (r *Relater) anySignatureRelates(ctx *relCtx, srcSigs []*types.Signature, target *types.Signature, mode relMode) bool {
	for _, ss := range srcSigs {
		if r.relateSignature(ctx, ss, target, mode) {
			return true
		}
	}
	return false
}

// relateSignature checks one source signature against one target
// signature: parameters contravariant (bivariant for method positions in
// assignability mode), returns covariant.
func (r *Relater) relateSignature(ctx *relCtx, src, target *types.Signature, mode relMode) bool {
	if src.MinArity() > len(target.Params) && !target.HasRest() {
		return false
	}

	bivariant := mode == modeAssign && (src.IsMethod || target.IsMethod)
	for i, sp := range src.Params {
		if sp.Rest {
			break
		}
		tp, ok := targetParamAt(target, i)
		if !ok {
			break
		}
		if bivariant {
			if !r.relate(ctx, tp.Type, sp.Type, mode) && !r.relate(ctx, sp.Type, tp.Type, mode) {
				return false
			}
		} else if !r.relate(ctx, tp.Type, sp.Type, mode) {
			return false
		}
	}
	if src.HasRest() {
		rest := src.Params[len(src.Params)-1]
		restElem := elementOf(rest.Type)
		for i := len(src.Params) - 1; i < len(target.Params); i++ {
			tp, ok := targetParamAt(target, i)
			if !ok {
				break
			}
			if bivariant {
				if !r.relate(ctx, tp.Type, restElem, mode) && !r.relate(ctx, restElem, tp.Type, mode) {
					return false
				}
			} else if !r.relate(ctx, tp.Type, restElem, mode) {
				return false
			}
		}
	}

	// Any source return satisfies a void-returning target.
	if target.Return != nil && target.Return.Kind == types.KindVoid {
		return true
	}
	return r.relate(ctx, src.Return, target.Return, mode)
}

// targetParamAt returns the target parameter occupying position i, looking
// through a trailing rest parameter.
func targetParamAt(sig *types.Signature, i int) (types.Param, bool) {
	if i < len(sig.Params) {
		p := sig.Params[i]
		if p.Rest {
			return types.Param{Name: p.Name, Type: elementOf(p.Type)}, true
		}
		return p, true
	}
	if sig.HasRest() {
		p := sig.Params[len(sig.Params)-1]
		return types.Param{Name: p.Name, Type: elementOf(p.Type)}, true
	}
	return types.Param{}, false
}

// elementOf returns the element type of an array-typed rest parameter.
func elementOf(t *types.Type) *types.Type {
	if t == nil {
		return nil
	}
	if arr, ok := t.Data.(*types.ArrayType); ok {
		return arr.Elem
	}
	return t
}

// relateToArray checks src against an array target. Mutable element slots
// are invariant; a readonly target is covariant.
func (r *Relater) relateToArray(ctx *relCtx, src *types.Type, target *types.ArrayType, mode relMode) bool {
	switch src.Kind {
	case types.KindArray:
		sa := src.Data.(*types.ArrayType)
		if sa.Readonly && !target.Readonly {
			return false
		}
		if target.Readonly {
			return r.relate(ctx, sa.Elem, target.Elem, mode)
		}
		return r.relate(ctx, sa.Elem, target.Elem, mode) && r.relate(ctx, target.Elem, sa.Elem, mode)

	case types.KindTuple:
		st := src.Data.(*types.TupleType)
		if st.Readonly && !target.Readonly {
			return false
		}
		check := func(elem *types.Type) bool {
			if target.Readonly {
				return r.relate(ctx, elem, target.Elem, mode)
			}
			return r.relate(ctx, elem, target.Elem, mode) && r.relate(ctx, target.Elem, elem, mode)
		}
		for _, e := range st.Elems {
			if !check(e.Type) {
				return false
			}
		}
		if st.Rest != nil && !check(st.Rest) {
			return false
		}
		return true

	default:
		return false
	}
}

// relateToTuple checks src against a tuple target.
func (r *Relater) relateToTuple(ctx *relCtx, src *types.Type, target *types.TupleType, mode relMode) bool {
	if src.Kind != types.KindTuple {
		return false
	}
	st := src.Data.(*types.TupleType)
	if st.Readonly && !target.Readonly {
		return false
	}

	relateSlot := func(s, t *types.Type) bool {
		if target.Readonly {
			return r.relate(ctx, s, t, mode)
		}
		return r.relate(ctx, s, t, mode) && r.relate(ctx, t, s, mode)
	}

	for i, te := range target.Elems {
		if i < len(st.Elems) {
			if !relateSlot(st.Elems[i].Type, te.Type) {
				return false
			}
			continue
		}
		if st.Rest != nil {
			if !relateSlot(st.Rest, te.Type) {
				return false
			}
			continue
		}
		if !te.Optional {
			return false
		}
	}

	// Source elements beyond the target's fixed slots must fit its rest.
	if len(st.Elems) > len(target.Elems) || st.Rest != nil {
		if target.Rest == nil {
			return false
		}
		for i := len(target.Elems); i < len(st.Elems); i++ {
			if !relateSlot(st.Elems[i].Type, target.Rest) {
				return false
			}
		}
		if st.Rest != nil && !relateSlot(st.Rest, target.Rest) {
			return false
		}
	}
	return true
}
