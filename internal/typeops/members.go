package typeops

import (
	"sort"

	"github.com/ah-yu/stc/internal/types"
)

// PropertyType looks up the declared property name on t after
// normalization. The second result is false when t has no such property
// or its member view cannot be resolved.
func (r *Relater) PropertyType(t *types.Type, name string) (types.Member, bool) {
	ctx := newRelCtx()
	t = r.normalize(ctx, t.Deref(), 0)
	members, ok := r.membersOf(ctx, t)
	if !ok || members == nil {
		return types.Member{}, false
	}
	m, found := members[name]
	return m, found
}

// Properties returns t's flattened member list sorted by name. ok is
// false when the view cannot be resolved yet.
func (r *Relater) Properties(t *types.Type) ([]types.Member, bool) {
	ctx := newRelCtx()
	t = r.normalize(ctx, t.Deref(), 0)
	members, ok := r.membersOf(ctx, t)
	if !ok {
		return nil, false
	}
	out := make([]types.Member, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, true
}

// CallSignatures returns the call signatures a value of t exposes, after
// normalization.
func (r *Relater) CallSignatures(t *types.Type) []*types.Signature {
	return callSignatures(r.Normalize(t.Deref()))
}

// ConstructSignatures returns the construct signatures a value of t
// exposes, after normalization.
func (r *Relater) ConstructSignatures(t *types.Type) []*types.Signature {
	return constructSignatures(r.Normalize(t.Deref()))
}

// membersOf builds the flattened property view of an object-like type.
// Interface supers are expanded; own members shadow inherited ones. The
// second result is false when a super is a still-unbound reference, so
// the view cannot be completed yet.
func (r *Relater) membersOf(ctx *relCtx, t *types.Type) (map[string]types.Member, bool) {
	switch t.Kind {
	case types.KindObject:
		out := make(map[string]types.Member, len(t.Data.(*types.ObjectType).Members))
		for _, m := range t.Data.(*types.ObjectType).Members {
			out[m.Name] = m
		}
		return out, true

	case types.KindInterface:
		it := t.Data.(*types.InterfaceType)
		out := make(map[string]types.Member, len(it.Members))
		for _, sup := range it.Supers {
			sup = r.normalize(ctx, sup.Deref(), 0)
			if sup.Kind == types.KindRef || appliedUnresolved(sup) {
				return nil, false
			}
			inherited, ok := r.membersOf(ctx, sup)
			if !ok {
				return nil, false
			}
			for name, m := range inherited {
				out[name] = m
			}
		}
		for _, m := range it.Members {
			out[m.Name] = m
		}
		return out, true

	case types.KindUnion:
		var out map[string]types.Member
		for i, arm := range t.Data.(*types.UnionType).Members {
			am, ok := r.membersOf(ctx, r.normalize(ctx, arm.Deref(), 0))
			if !ok {
				return nil, false
			}
			if i == 0 {
				out = make(map[string]types.Member, len(am))
				for name, m := range am {
					out[name] = m
				}
				continue
			}
			// A property exists on the union only when every arm has it.
			for name, prev := range out {
				m, shared := am[name]
				if !shared {
					delete(out, name)
					continue
				}
				out[name] = types.Member{
					Name:     name,
					Optional: prev.Optional || m.Optional,
					Readonly: prev.Readonly || m.Readonly,
					Type:     r.in.Union(prev.Type, m.Type),
				}
			}
		}
		return out, true

	case types.KindIntersection:
		out := make(map[string]types.Member)
		for _, part := range t.Data.(*types.IntersectionType).Members {
			pm, ok := r.membersOf(ctx, part.Deref())
			if !ok {
				return nil, false
			}
			for name, m := range pm {
				if prev, dup := out[name]; dup {
					m = types.Member{
						Name:     name,
						Optional: prev.Optional && m.Optional,
						Readonly: prev.Readonly || m.Readonly,
						Type:     r.in.Intersection(prev.Type, m.Type),
					}
				}
				out[name] = m
			}
		}
		return out, true

	default:
		return nil, true
	}
}

// appliedUnresolved reports whether t is an application whose base is a
// reference that has not been bound yet.
func appliedUnresolved(t *types.Type) bool {
	if t.Kind != types.KindApplied {
		return false
	}
	base := t.Data.(*types.AppliedType).Base.Deref()
	return base.Kind == types.KindRef
}

// callSignatures returns the call signatures a value of t exposes.
func callSignatures(t *types.Type) []*types.Signature {
	t = t.Deref()
	switch t.Kind {
	case types.KindFunction:
		return t.Data.(*types.FunctionType).Signatures

	case types.KindInterface:
		it := t.Data.(*types.InterfaceType)
		sigs := append([]*types.Signature(nil), it.Call...)
		for _, sup := range it.Supers {
			sigs = append(sigs, callSignatures(sup)...)
		}
		return sigs

	case types.KindIntersection:
		var sigs []*types.Signature
		for _, m := range t.Data.(*types.IntersectionType).Members {
			sigs = append(sigs, callSignatures(m)...)
		}
		return sigs

	default:
		return nil
	}
}

// constructSignatures returns the construct signatures a value of t
// exposes.
func constructSignatures(t *types.Type) []*types.Signature {
	t = t.Deref()
	switch t.Kind {
	case types.KindInterface:
		it := t.Data.(*types.InterfaceType)
		sigs := append([]*types.Signature(nil), it.Construct...)
		for _, sup := range it.Supers {
			sigs = append(sigs, constructSignatures(sup)...)
		}
		return sigs

	case types.KindIntersection:
		var sigs []*types.Signature
		for _, m := range t.Data.(*types.IntersectionType).Members {
			sigs = append(sigs, constructSignatures(m)...)
		}
		return sigs

	default:
		return nil
	}
}
