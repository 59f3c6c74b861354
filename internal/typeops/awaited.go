package typeops

import "github.com/ah-yu/stc/internal/types"

// Awaited computes the type an await expression yields: promise layers
// unwrap recursively, unions distribute member by member, and anything
// non-thenable passes through unchanged.
func (r *Relater) Awaited(t *types.Type) *types.Type {
	return r.awaited(t, 0)
}

func (r *Relater) awaited(t *types.Type, depth int) *types.Type {
	if t == nil || depth > r.cfg.MaxInstantiationDepth {
		return r.in.Error
	}
	t = r.Normalize(t.Deref())

	switch t.Kind {
	case types.KindUnion:
		parts := t.Data.(*types.UnionType).Members
		out := make([]*types.Type, 0, len(parts))
		for _, m := range parts {
			out = append(out, r.awaited(m, depth+1))
		}
		return r.in.Union(out...)

	case types.KindApplied:
		at := t.Data.(*types.AppliedType)
		if inner, ok := promiseArg(at); ok {
			return r.awaited(inner, depth+1)
		}
		return t

	case types.KindInterface:
		// An already-instantiated promise carries its payload in the
		// resolution callback of its then member.
		if inner, ok := thenPayload(t.Data.(*types.InterfaceType)); ok {
			return r.awaited(inner, depth+1)
		}
		return t

	default:
		return t
	}
}

// promiseArg recognizes an application of a promise-shaped generic and
// returns its payload argument.
func promiseArg(at *types.AppliedType) (*types.Type, bool) {
	base := at.Base.Deref()
	var name string
	switch base.Kind {
	case types.KindInterface:
		name = base.Data.(*types.InterfaceType).Name
	case types.KindRef:
		name = base.Data.(*types.RefType).Name
	default:
		return nil, false
	}
	if name != "Promise" || len(at.Args) != 1 {
		return nil, false
	}
	return at.Args[0], true
}

// thenPayload extracts T from an interface exposing
// then(onfulfilled: (value: T) => ...).
func thenPayload(it *types.InterfaceType) (*types.Type, bool) {
	if it.Name != "Promise" {
		return nil, false
	}
	for _, m := range it.Members {
		if m.Name != "then" {
			continue
		}
		for _, sig := range callSignatures(m.Type) {
			if len(sig.Params) == 0 {
				continue
			}
			onfulfilled := sig.Params[0].Type.Deref()
			cbs := callSignatures(onfulfilled)
			if u, ok := onfulfilled.Data.(*types.UnionType); ok {
				for _, alt := range u.Members {
					cbs = append(cbs, callSignatures(alt)...)
				}
			}
			for _, cb := range cbs {
				if len(cb.Params) == 1 {
					return cb.Params[0].Type, true
				}
			}
		}
	}
	return nil, false
}
