package typeops

import (
	"sort"

	"github.com/ah-yu/stc/internal/types"
)

// Normalize evaluates type operators as far as the available information
// allows. Forms over free type parameters or unbound references are kept
// as written.
func (r *Relater) Normalize(t *types.Type) *types.Type {
	return r.normalize(newRelCtx(), t, 0)
}

func (r *Relater) normalize(ctx *relCtx, t *types.Type, depth int) *types.Type {
	if t == nil {
		return nil
	}
	if depth > r.cfg.MaxInstantiationDepth {
		return r.in.Error
	}
	t = t.Deref()

	switch t.Kind {
	case types.KindApplied:
		at := t.Data.(*types.AppliedType)
		base := at.Base.Deref()
		if base.Kind == types.KindRef || base.Kind == types.KindTypeParam {
			return t
		}
		// Applications made through a generic alias handle substitute the
		// parameters published with the binding; the alias body itself
		// carries none.
		if rt, ok := at.Base.Data.(*types.RefType); ok {
			if params := rt.TypeParams(); len(params) > 0 {
				sub := make(map[*types.Type]*types.Type, len(params))
				for i, p := range params {
					switch {
					case i < len(at.Args):
						sub[p] = at.Args[i]
					case p.Data.(*types.TypeParamType).Default != nil:
						sub[p] = p.Data.(*types.TypeParamType).Default
					default:
						sub[p] = r.in.Any
					}
				}
				out, err := r.Substitute(base, sub)
				if err != nil {
					return r.in.Error
				}
				return r.normalize(ctx, out, depth+1)
			}
		}
		out, err := r.Instantiate(base, at.Args)
		if err != nil {
			return r.in.Error
		}
		if out == t {
			return t
		}
		return r.normalize(ctx, out, depth+1)

	case types.KindKeyof:
		return r.evalKeyof(ctx, t, depth)

	case types.KindIndexed:
		return r.evalIndexed(ctx, t, depth)

	case types.KindConditional:
		return r.evalConditional(ctx, t, depth)

	case types.KindMapped:
		return r.evalMapped(ctx, t, depth)

	default:
		return t
	}
}

func (r *Relater) evalKeyof(ctx *relCtx, t *types.Type, depth int) *types.Type {
	operand := r.normalize(ctx, t.Data.(*types.KeyofType).Operand, depth+1)
	switch operand.Kind {
	case types.KindObject, types.KindInterface, types.KindIntersection:
		members, ok := r.membersOf(ctx, operand)
		if !ok {
			return t
		}
		names := make([]string, 0, len(members))
		for name := range members {
			names = append(names, name)
		}
		sort.Strings(names)
		keys := make([]*types.Type, 0, len(names))
		for _, name := range names {
			keys = append(keys, r.in.StringLiteral(name))
		}
		return r.in.Union(keys...)

	case types.KindArray, types.KindTuple:
		return r.in.Number

	case types.KindAny:
		return r.in.Union(r.in.String, r.in.Number, r.in.Primitive(types.KindSymbol))

	case types.KindError:
		return r.in.Error

	default:
		if operand == t.Data.(*types.KeyofType).Operand {
			return t
		}
		return r.in.Keyof(operand)
	}
}

func (r *Relater) evalIndexed(ctx *relCtx, t *types.Type, depth int) *types.Type {
	it := t.Data.(*types.IndexedType)
	obj := r.normalize(ctx, it.Object, depth+1)
	idx := r.normalize(ctx, it.Index, depth+1)

	if obj.Kind == types.KindError || idx.Kind == types.KindError {
		return r.in.Error
	}

	// An index union selects each alternative and unions the results.
	if idx.Kind == types.KindUnion {
		parts := idx.Data.(*types.UnionType).Members
		out := make([]*types.Type, 0, len(parts))
		for _, p := range parts {
			out = append(out, r.normalize(ctx, r.in.Indexed(obj, p), depth+1))
		}
		return r.in.Union(out...)
	}

	switch obj.Kind {
	case types.KindObject, types.KindInterface, types.KindIntersection:
		name, ok := stringLiteralValue(idx)
		if !ok {
			if obj == it.Object && idx == it.Index {
				return t
			}
			return r.in.Indexed(obj, idx)
		}
		members, complete := r.membersOf(ctx, obj)
		if !complete {
			return t
		}
		m, found := members[name]
		if !found {
			return r.in.Error
		}
		if m.Optional {
			return r.in.Union(m.Type, r.in.Undefined)
		}
		return m.Type

	case types.KindArray:
		if idx.Kind == types.KindNumber || isNumberLiteral(idx) {
			return obj.Data.(*types.ArrayType).Elem
		}
		return r.in.Error

	case types.KindTuple:
		tt := obj.Data.(*types.TupleType)
		if v, ok := numberLiteralValue(idx); ok {
			i := int(v)
			if i >= 0 && i < len(tt.Elems) {
				e := tt.Elems[i]
				if e.Optional {
					return r.in.Union(e.Type, r.in.Undefined)
				}
				return e.Type
			}
			if tt.Rest != nil {
				return r.in.Union(tt.Rest, r.in.Undefined)
			}
			return r.in.Error
		}
		if idx.Kind == types.KindNumber {
			elems := make([]*types.Type, 0, len(tt.Elems)+1)
			for _, e := range tt.Elems {
				elems = append(elems, e.Type)
			}
			if tt.Rest != nil {
				elems = append(elems, tt.Rest)
			}
			return r.in.Union(elems...)
		}
		return r.in.Error

	case types.KindAny:
		return r.in.Any

	default:
		if obj == it.Object && idx == it.Index {
			return t
		}
		return r.in.Indexed(obj, idx)
	}
}

func (r *Relater) evalConditional(ctx *relCtx, t *types.Type, depth int) *types.Type {
	ct := t.Data.(*types.ConditionalType)
	check := r.normalize(ctx, ct.Check, depth+1)

	// A free check type defers the decision until it is instantiated.
	if check.Kind == types.KindTypeParam || check.Kind == types.KindRef || appliedUnresolved(check) {
		return t
	}

	// Union checks distribute over their members.
	if check.Kind == types.KindUnion {
		parts := check.Data.(*types.UnionType).Members
		out := make([]*types.Type, 0, len(parts))
		for _, p := range parts {
			out = append(out, r.normalize(ctx, r.in.Conditional(p, ct.Extends, ct.Then, ct.Else), depth+1))
		}
		return r.in.Union(out...)
	}

	if r.relate(ctx, check, ct.Extends, modeSubtype) {
		return r.normalize(ctx, ct.Then, depth+1)
	}
	return r.normalize(ctx, ct.Else, depth+1)
}

func (r *Relater) evalMapped(ctx *relCtx, t *types.Type, depth int) *types.Type {
	mt := t.Data.(*types.MappedType)
	source := r.normalize(ctx, mt.Source, depth+1)

	keys, ok := keyLiterals(source)
	if !ok {
		return t
	}
	members := make([]types.Member, 0, len(keys))
	for _, key := range keys {
		value, err := r.Substitute(mt.Value, map[*types.Type]*types.Type{mt.Param: r.in.StringLiteral(key)})
		if err != nil {
			return r.in.Error
		}
		members = append(members, types.Member{
			Name:     key,
			Optional: mt.Optional,
			Readonly: mt.Readonly,
			Type:     r.normalize(ctx, value, depth+1),
		})
	}
	return r.in.Object(members)
}

// keyLiterals extracts the concrete string-key set from a normalized
// mapped-type source.
func keyLiterals(t *types.Type) ([]string, bool) {
	if name, ok := stringLiteralValue(t); ok {
		return []string{name}, true
	}
	if t.Kind == types.KindNever {
		return nil, true
	}
	if t.Kind != types.KindUnion {
		return nil, false
	}
	parts := t.Data.(*types.UnionType).Members
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		name, ok := stringLiteralValue(p)
		if !ok {
			return nil, false
		}
		keys = append(keys, name)
	}
	return keys, true
}

func stringLiteralValue(t *types.Type) (string, bool) {
	if t.Kind != types.KindLiteral {
		return "", false
	}
	lt := t.Data.(*types.LiteralType)
	s, ok := lt.Value.(string)
	return s, ok
}

func numberLiteralValue(t *types.Type) (float64, bool) {
	if t.Kind != types.KindLiteral {
		return 0, false
	}
	lt := t.Data.(*types.LiteralType)
	n, ok := lt.Value.(float64)
	return n, ok
}

func isNumberLiteral(t *types.Type) bool {
	_, ok := numberLiteralValue(t)
	return ok
}
