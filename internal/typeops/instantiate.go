package typeops

import (
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/ah-yu/stc/internal/opcache"
	"github.com/ah-yu/stc/internal/types"
)

// ErrDepthExceeded is reported when expanding a generic type recurses past
// the configured limit. The returned type is the error placeholder.
var ErrDepthExceeded = errors.New("typeops: instantiation depth exceeded")

// Instantiate expands a generic interface or function with the given type
// arguments. Missing trailing arguments fall back to parameter defaults,
// then to any. Results are cached by the structural identity of the
// generic and the argument list.
func (r *Relater) Instantiate(generic *types.Type, args []*types.Type) (*types.Type, error) {
	if generic == nil {
		return r.in.Error, errors.New("typeops: instantiate on nil type")
	}
	generic = generic.Deref()
	if generic.Kind == types.KindRef {
		// Still unbound; keep the application for later expansion.
		return r.in.Apply(generic, args), nil
	}

	params := typeParamsOf(generic)
	if len(params) == 0 {
		if len(args) == 0 {
			return generic, nil
		}
		return r.in.Error, errors.Errorf("typeops: type %s takes no type arguments", generic)
	}

	var instErr error
	compute := func() (opcache.Result, bool) {
		sub := make(map[*types.Type]*types.Type, len(params))
		for i, p := range params {
			switch {
			case i < len(args):
				sub[p] = args[i]
			case p.Data.(*types.TypeParamType).Default != nil:
				sub[p] = p.Data.(*types.TypeParamType).Default
			default:
				sub[p] = r.in.Any
			}
		}
		out, err := r.Substitute(generic, sub)
		if err != nil {
			instErr = err
			return opcache.Result{Type: r.in.Error}, false
		}
		return opcache.Result{Type: out}, true
	}

	var res opcache.Result
	if r.cache == nil {
		res, _ = compute()
	} else {
		key := opcache.Key{Op: opcache.OpInstantiate, A: generic.Hash(), B: hashArgs(args)}
		res = r.cache.GetOrCompute(key, compute)
	}
	if instErr != nil {
		return r.in.Error, instErr
	}
	return res.Type, nil
}

// Substitute rewrites t replacing every type parameter found in sub with
// its binding. Unlisted parameters and opaque references pass through.
func (r *Relater) Substitute(t *types.Type, sub map[*types.Type]*types.Type) (*types.Type, error) {
	s := &substituter{r: r, sub: sub}
	out := s.apply(t, 0)
	if s.err != nil {
		return r.in.Error, s.err
	}
	return out, nil
}

func typeParamsOf(t *types.Type) []*types.Type {
	switch t.Kind {
	case types.KindInterface:
		return t.Data.(*types.InterfaceType).TypeParams
	case types.KindFunction:
		sigs := t.Data.(*types.FunctionType).Signatures
		if len(sigs) == 1 {
			return sigs[0].TypeParams
		}
	}
	return nil
}

func hashArgs(args []*types.Type) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, a := range args {
		h := a.Hash()
		for i := 0; i < 8; i++ {
			buf[i] = byte(h >> (8 * i))
		}
		d.Write(buf[:])
	}
	return d.Sum64()
}

type substituter struct {
	r   *Relater
	sub map[*types.Type]*types.Type
	err error
}

func (s *substituter) apply(t *types.Type, depth int) *types.Type {
	if t == nil {
		return nil
	}
	if depth > s.r.cfg.MaxInstantiationDepth {
		if s.err == nil {
			s.err = ErrDepthExceeded
		}
		return s.r.in.Error
	}
	if rep, ok := s.sub[t]; ok {
		return rep
	}

	in := s.r.in
	switch t.Kind {
	case types.KindTypeParam:
		tp := t.Data.(*types.TypeParamType)
		if tp.Constraint == nil && tp.Default == nil {
			return t
		}
		c := s.apply(tp.Constraint, depth+1)
		d := s.apply(tp.Default, depth+1)
		if c == tp.Constraint && d == tp.Default {
			return t
		}
		return in.NewTypeParam(tp.Name, c, d)

	case types.KindObject:
		ot := t.Data.(*types.ObjectType)
		members, changed := s.applyMembers(ot.Members, depth)
		if !changed {
			return t
		}
		return in.Object(members)

	case types.KindUnion:
		parts, changed := s.applyList(t.Data.(*types.UnionType).Members, depth)
		if !changed {
			return t
		}
		return in.Union(parts...)

	case types.KindIntersection:
		parts, changed := s.applyList(t.Data.(*types.IntersectionType).Members, depth)
		if !changed {
			return t
		}
		return in.Intersection(parts...)

	case types.KindFunction:
		ft := t.Data.(*types.FunctionType)
		sigs := make([]*types.Signature, len(ft.Signatures))
		changed := false
		for i, sig := range ft.Signatures {
			ns := s.applySignature(sig, depth)
			if ns != sig {
				changed = true
			}
			sigs[i] = ns
		}
		if !changed {
			return t
		}
		return in.Function(sigs...)

	case types.KindArray:
		at := t.Data.(*types.ArrayType)
		elem := s.apply(at.Elem, depth+1)
		if elem == at.Elem {
			return t
		}
		return in.Array(elem, at.Readonly)

	case types.KindTuple:
		tt := t.Data.(*types.TupleType)
		elems := make([]types.TupleElem, len(tt.Elems))
		changed := false
		for i, e := range tt.Elems {
			ne := s.apply(e.Type, depth+1)
			if ne != e.Type {
				changed = true
			}
			elems[i] = types.TupleElem{Type: ne, Optional: e.Optional}
		}
		rest := s.apply(tt.Rest, depth+1)
		if rest != tt.Rest {
			changed = true
		}
		if !changed {
			return t
		}
		return in.Tuple(elems, rest, tt.Readonly)

	case types.KindInterface:
		it := t.Data.(*types.InterfaceType)
		members, mChanged := s.applyMembers(it.Members, depth)
		call, cChanged := s.applySignatures(it.Call, depth)
		ctor, kChanged := s.applySignatures(it.Construct, depth)
		supers, sChanged := s.applyList(it.Supers, depth)
		if !mChanged && !cChanged && !kChanged && !sChanged {
			return t
		}
		return in.Interface(&types.InterfaceType{
			Name:      it.Name,
			IsClass:   it.IsClass,
			Members:   members,
			Call:      call,
			Construct: ctor,
			Supers:    supers,
		})

	case types.KindApplied:
		// The base binds its own parameters; only the arguments are open
		// to the surrounding substitution.
		at := t.Data.(*types.AppliedType)
		args, aChanged := s.applyList(at.Args, depth)
		if !aChanged {
			return t
		}
		return in.Apply(at.Base, args)

	case types.KindKeyof:
		kt := t.Data.(*types.KeyofType)
		op := s.apply(kt.Operand, depth+1)
		if op == kt.Operand {
			return t
		}
		return in.Keyof(op)

	case types.KindIndexed:
		it := t.Data.(*types.IndexedType)
		obj := s.apply(it.Object, depth+1)
		idx := s.apply(it.Index, depth+1)
		if obj == it.Object && idx == it.Index {
			return t
		}
		return in.Indexed(obj, idx)

	case types.KindMapped:
		mt := t.Data.(*types.MappedType)
		src := s.apply(mt.Source, depth+1)
		val := s.apply(mt.Value, depth+1)
		if src == mt.Source && val == mt.Value {
			return t
		}
		return in.Mapped(mt.Param, src, val, mt.Optional, mt.Readonly)

	case types.KindConditional:
		ct := t.Data.(*types.ConditionalType)
		check := s.apply(ct.Check, depth+1)
		ext := s.apply(ct.Extends, depth+1)
		then := s.apply(ct.Then, depth+1)
		els := s.apply(ct.Else, depth+1)
		if check == ct.Check && ext == ct.Extends && then == ct.Then && els == ct.Else {
			return t
		}
		return in.Conditional(check, ext, then, els)

	default:
		// Primitives, literals, refs and the error placeholder carry no
		// substitutable structure.
		return t
	}
}

func (s *substituter) applyList(list []*types.Type, depth int) ([]*types.Type, bool) {
	out := make([]*types.Type, len(list))
	changed := false
	for i, t := range list {
		nt := s.apply(t, depth+1)
		if nt != t {
			changed = true
		}
		out[i] = nt
	}
	return out, changed
}

func (s *substituter) applyMembers(members []types.Member, depth int) ([]types.Member, bool) {
	out := make([]types.Member, len(members))
	changed := false
	for i, m := range members {
		nt := s.apply(m.Type, depth+1)
		if nt != m.Type {
			changed = true
		}
		out[i] = types.Member{Name: m.Name, Optional: m.Optional, Readonly: m.Readonly, Type: nt}
	}
	return out, changed
}

func (s *substituter) applySignatures(sigs []*types.Signature, depth int) ([]*types.Signature, bool) {
	out := make([]*types.Signature, len(sigs))
	changed := false
	for i, sig := range sigs {
		ns := s.applySignature(sig, depth)
		if ns != sig {
			changed = true
		}
		out[i] = ns
	}
	return out, changed
}

func (s *substituter) applySignature(sig *types.Signature, depth int) *types.Signature {
	// Parameters introduced by the signature itself shadow outer bindings.
	local := s.sub
	if len(sig.TypeParams) > 0 {
		local = make(map[*types.Type]*types.Type, len(s.sub))
		for k, v := range s.sub {
			local[k] = v
		}
		for _, tp := range sig.TypeParams {
			delete(local, tp)
		}
	}
	inner := &substituter{r: s.r, sub: local}

	params := make([]types.Param, len(sig.Params))
	changed := false
	for i, p := range sig.Params {
		nt := inner.apply(p.Type, depth+1)
		if nt != p.Type {
			changed = true
		}
		params[i] = types.Param{Name: p.Name, Type: nt, Optional: p.Optional, Rest: p.Rest}
	}
	ret := inner.apply(sig.Return, depth+1)
	if ret != sig.Return {
		changed = true
	}
	if inner.err != nil && s.err == nil {
		s.err = inner.err
	}
	if !changed {
		return sig
	}
	return &types.Signature{
		TypeParams: sig.TypeParams,
		Params:     params,
		Return:     ret,
		IsMethod:   sig.IsMethod,
	}
}
