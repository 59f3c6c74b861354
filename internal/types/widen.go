package types

// Widen generalizes literal types to their base primitive. A literal
// inferred for a mutable binding widens unless the binding is const or
// carries a literal annotation; that decision belongs to the caller, this
// is only the type transformation.
func (in *Interner) Widen(t *Type) *Type {
	switch t.Kind {
	case KindLiteral:
		return t.Data.(*LiteralType).Base
	case KindUnion:
		members := t.Data.(*UnionType).Members
		widened := make([]*Type, len(members))
		changed := false
		for i, m := range members {
			widened[i] = in.Widen(m)
			if widened[i] != m {
				changed = true
			}
		}
		if !changed {
			return t
		}
		return in.Union(widened...)
	default:
		return t
	}
}
