package types

import (
	"encoding/binary"
	"math"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Interner owns the session type arena. Structurally identical types are
// deduplicated by structural fingerprint, so interned types compare by
// pointer. The interner is safe for concurrent use by multiple
// file-checking workers.
type Interner struct {
	mu     sync.Mutex
	byHash map[uint64]*Type
	arena  []*Type
	seq    uint64

	// Shared singletons.
	Any       *Type
	Unknown   *Type
	Never     *Type
	Void      *Type
	Null      *Type
	Undefined *Type
	String    *Type
	Number    *Type
	Boolean   *Type
	BigInt    *Type
	Symbol    *Type
	Error     *Type
}

// NewInterner creates an interner pre-populated with the primitive and
// special singletons.
func NewInterner() *Interner {
	in := &Interner{
		byHash: make(map[uint64]*Type),
	}
	in.Any = in.newSingleton(KindAny)
	in.Unknown = in.newSingleton(KindUnknown)
	in.Never = in.newSingleton(KindNever)
	in.Void = in.newSingleton(KindVoid)
	in.Null = in.newSingleton(KindNull)
	in.Undefined = in.newSingleton(KindUndefined)
	in.String = in.newSingleton(KindString)
	in.Number = in.newSingleton(KindNumber)
	in.Boolean = in.newSingleton(KindBoolean)
	in.BigInt = in.newSingleton(KindBigInt)
	in.Symbol = in.newSingleton(KindSymbol)
	in.Error = in.newSingleton(KindError)
	return in
}

func (in *Interner) newSingleton(k Kind) *Type {
	h := newHasher(k)
	return in.intern(&Type{Kind: k}, h.sum())
}

// Len returns the number of interned types.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.arena)
}

// Lookup returns the arena entry for an id.
func (in *Interner) Lookup(id TypeID) *Type {
	in.mu.Lock()
	defer in.mu.Unlock()
	if int(id) >= len(in.arena) {
		return nil
	}
	return in.arena[id]
}

// intern stores t under hash, returning the canonical representative.
func (in *Interner) intern(t *Type, hash uint64) *Type {
	in.mu.Lock()
	defer in.mu.Unlock()
	if existing, ok := in.byHash[hash]; ok {
		return existing
	}
	t.hash = hash
	t.id = TypeID(len(in.arena))
	in.arena = append(in.arena, t)
	in.byHash[hash] = t
	return t
}

func (in *Interner) nextSeq() uint64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.seq++
	return in.seq
}

// ====== Structural hashing ======

// hasher accumulates a structural fingerprint. Children are already
// interned, so their fingerprints fold in as scalars; forward references
// hash by declaration identity, which cuts cycles.
type hasher struct {
	d *xxhash.Digest
}

func newHasher(k Kind) hasher {
	h := hasher{d: xxhash.New()}
	h.u64(uint64(k))
	return h
}

func (h hasher) u64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.d.Write(buf[:])
}

func (h hasher) str(s string) {
	h.u64(uint64(len(s)))
	h.d.WriteString(s)
}

func (h hasher) boolean(b bool) {
	if b {
		h.u64(1)
	} else {
		h.u64(0)
	}
}

func (h hasher) typ(t *Type) {
	if t == nil {
		h.u64(0)
		return
	}
	h.u64(t.hash)
}

func (h hasher) value(v interface{}) {
	switch x := v.(type) {
	case string:
		h.u64(1)
		h.str(x)
	case float64:
		h.u64(2)
		h.u64(math.Float64bits(x))
	case bool:
		h.u64(3)
		h.boolean(x)
	default:
		h.u64(0)
	}
}

// unorderedTypes folds member fingerprints independent of order.
func (h hasher) unorderedTypes(ts []*Type) {
	hs := make([]uint64, len(ts))
	for i, t := range ts {
		hs[i] = t.hash
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	for _, v := range hs {
		h.u64(v)
	}
}

// members folds object members independent of declaration order.
func (h hasher) members(ms []Member) {
	idx := make([]int, len(ms))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return ms[idx[i]].Name < ms[idx[j]].Name })
	for _, i := range idx {
		m := ms[i]
		h.str(m.Name)
		h.boolean(m.Optional)
		h.boolean(m.Readonly)
		h.typ(m.Type)
	}
}

func (h hasher) signature(s *Signature) {
	h.boolean(s.IsMethod)
	h.u64(uint64(len(s.TypeParams)))
	for _, tp := range s.TypeParams {
		h.typ(tp)
	}
	h.u64(uint64(len(s.Params)))
	for _, p := range s.Params {
		h.boolean(p.Optional)
		h.boolean(p.Rest)
		h.typ(p.Type)
	}
	h.typ(s.Return)
}

func (h hasher) sum() uint64 {
	return h.d.Sum64()
}

// ====== Constructors ======

// Primitive returns the singleton for a primitive or special kind.
func (in *Interner) Primitive(k Kind) *Type {
	switch k {
	case KindAny:
		return in.Any
	case KindUnknown:
		return in.Unknown
	case KindNever:
		return in.Never
	case KindVoid:
		return in.Void
	case KindNull:
		return in.Null
	case KindUndefined:
		return in.Undefined
	case KindString:
		return in.String
	case KindNumber:
		return in.Number
	case KindBoolean:
		return in.Boolean
	case KindBigInt:
		return in.BigInt
	case KindSymbol:
		return in.Symbol
	default:
		return in.Error
	}
}

// Literal creates a literal type over a base primitive.
func (in *Interner) Literal(base *Type, value interface{}) *Type {
	h := newHasher(KindLiteral)
	h.typ(base)
	h.value(value)
	return in.intern(&Type{
		Kind: KindLiteral,
		Data: &LiteralType{Base: base, Value: value},
	}, h.sum())
}

// StringLiteral creates a string literal type.
func (in *Interner) StringLiteral(v string) *Type {
	return in.Literal(in.String, v)
}

// NumberLiteral creates a number literal type.
func (in *Interner) NumberLiteral(v float64) *Type {
	return in.Literal(in.Number, v)
}

// BooleanLiteral creates a boolean literal type.
func (in *Interner) BooleanLiteral(v bool) *Type {
	return in.Literal(in.Boolean, v)
}

// Object creates an anonymous object type. Declaration order of members is
// preserved for diagnostics; the fingerprint ignores it.
func (in *Interner) Object(members []Member) *Type {
	h := newHasher(KindObject)
	h.members(members)
	return in.intern(&Type{
		Kind: KindObject,
		Data: &ObjectType{Members: members},
	}, h.sum())
}

// Union creates a flattened, deduplicated union. Nested unions flatten,
// never vanishes, any/unknown/error absorb, and literals subsumed by a
// present base primitive are dropped.
func (in *Interner) Union(members ...*Type) *Type {
	var flat []*Type
	seen := make(map[uint64]bool)

	var add func(t *Type)
	add = func(t *Type) {
		if t == nil || t.Kind == KindNever {
			return
		}
		if t.Kind == KindUnion {
			for _, m := range t.Data.(*UnionType).Members {
				add(m)
			}
			return
		}
		if !seen[t.hash] {
			seen[t.hash] = true
			flat = append(flat, t)
		}
	}
	for _, m := range members {
		add(m)
	}

	bases := make(map[Kind]bool)
	for _, m := range flat {
		switch m.Kind {
		case KindAny:
			return in.Any
		case KindUnknown:
			return in.Unknown
		case KindError:
			return in.Error
		case KindString, KindNumber, KindBoolean, KindBigInt:
			bases[m.Kind] = true
		}
	}
	if len(bases) > 0 {
		kept := flat[:0]
		for _, m := range flat {
			if base := m.LiteralBase(); base != nil && bases[base.Kind] {
				continue
			}
			kept = append(kept, m)
		}
		flat = kept
	}

	switch len(flat) {
	case 0:
		return in.Never
	case 1:
		return flat[0]
	}

	h := newHasher(KindUnion)
	h.unorderedTypes(flat)
	return in.intern(&Type{
		Kind: KindUnion,
		Data: &UnionType{Members: flat},
	}, h.sum())
}

// Intersection creates a flattened, deduplicated intersection with the
// usual absorption rules: unknown is identity, never and error absorb, a
// literal absorbs its own base primitive, and disjoint primitives collapse
// to never.
func (in *Interner) Intersection(members ...*Type) *Type {
	var flat []*Type
	seen := make(map[uint64]bool)

	var add func(t *Type)
	add = func(t *Type) {
		if t == nil || t.Kind == KindUnknown {
			return
		}
		if t.Kind == KindIntersection {
			for _, m := range t.Data.(*IntersectionType).Members {
				add(m)
			}
			return
		}
		if !seen[t.hash] {
			seen[t.hash] = true
			flat = append(flat, t)
		}
	}
	for _, m := range members {
		add(m)
	}

	primKind := Kind(0)
	havePrim := false
	for _, m := range flat {
		switch {
		case m.Kind == KindNever:
			return in.Never
		case m.Kind == KindError:
			return in.Error
		case m.Kind == KindAny:
			return in.Any
		case m.IsPrimitive():
			if havePrim && primKind != m.Kind {
				return in.Never
			}
			havePrim = true
			primKind = m.Kind
		}
	}

	// A literal of the present primitive subsumes the primitive itself;
	// a literal of a different primitive is uninhabited.
	if havePrim {
		var literal *Type
		for _, m := range flat {
			if base := m.LiteralBase(); base != nil {
				if base.Kind != primKind {
					return in.Never
				}
				literal = m
			}
		}
		if literal != nil {
			kept := flat[:0]
			for _, m := range flat {
				if m.Kind == primKind {
					continue
				}
				kept = append(kept, m)
			}
			flat = kept
		}
	}

	switch len(flat) {
	case 0:
		return in.Unknown
	case 1:
		return flat[0]
	}

	h := newHasher(KindIntersection)
	h.unorderedTypes(flat)
	return in.intern(&Type{
		Kind: KindIntersection,
		Data: &IntersectionType{Members: flat},
	}, h.sum())
}

// Function creates a callable type from overload signatures, kept in
// declaration order.
func (in *Interner) Function(sigs ...*Signature) *Type {
	h := newHasher(KindFunction)
	h.u64(uint64(len(sigs)))
	for _, s := range sigs {
		h.signature(s)
	}
	return in.intern(&Type{
		Kind: KindFunction,
		Data: &FunctionType{Signatures: sigs},
	}, h.sum())
}

// NewTypeParam creates a fresh type parameter. Every call yields a
// distinct identity, even for a repeated name.
func (in *Interner) NewTypeParam(name string, constraint, def *Type) *Type {
	seq := in.nextSeq()
	h := newHasher(KindTypeParam)
	h.str(name)
	h.u64(seq)
	return in.intern(&Type{
		Kind: KindTypeParam,
		Data: &TypeParamType{Name: name, Constraint: constraint, Default: def, seq: seq},
	}, h.sum())
}

// Array creates an array type.
func (in *Interner) Array(elem *Type, readonly bool) *Type {
	h := newHasher(KindArray)
	h.typ(elem)
	h.boolean(readonly)
	return in.intern(&Type{
		Kind: KindArray,
		Data: &ArrayType{Elem: elem, Readonly: readonly},
	}, h.sum())
}

// Tuple creates a tuple type.
func (in *Interner) Tuple(elems []TupleElem, rest *Type, readonly bool) *Type {
	h := newHasher(KindTuple)
	h.u64(uint64(len(elems)))
	for _, e := range elems {
		h.typ(e.Type)
		h.boolean(e.Optional)
	}
	h.typ(rest)
	h.boolean(readonly)
	return in.intern(&Type{
		Kind: KindTuple,
		Data: &TupleType{Elems: elems, Rest: rest, Readonly: readonly},
	}, h.sum())
}

// Interface creates a named class or interface type.
func (in *Interner) Interface(it *InterfaceType) *Type {
	h := newHasher(KindInterface)
	h.str(it.Name)
	h.boolean(it.IsClass)
	h.u64(uint64(len(it.TypeParams)))
	for _, tp := range it.TypeParams {
		h.typ(tp)
	}
	h.members(it.Members)
	h.u64(uint64(len(it.Call)))
	for _, s := range it.Call {
		h.signature(s)
	}
	h.u64(uint64(len(it.Construct)))
	for _, s := range it.Construct {
		h.signature(s)
	}
	h.unorderedTypes(it.Supers)
	return in.intern(&Type{Kind: KindInterface, Data: it}, h.sum())
}

// Apply creates a lazy generic application.
func (in *Interner) Apply(base *Type, args []*Type) *Type {
	h := newHasher(KindApplied)
	h.typ(base)
	h.u64(uint64(len(args)))
	for _, a := range args {
		h.typ(a)
	}
	return in.intern(&Type{
		Kind: KindApplied,
		Data: &AppliedType{Base: base, Args: args},
	}, h.sum())
}

// Keyof creates a keyof operator type. Evaluation is lazy.
func (in *Interner) Keyof(operand *Type) *Type {
	h := newHasher(KindKeyof)
	h.typ(operand)
	return in.intern(&Type{
		Kind: KindKeyof,
		Data: &KeyofType{Operand: operand},
	}, h.sum())
}

// Indexed creates an indexed access type. Evaluation is lazy.
func (in *Interner) Indexed(object, index *Type) *Type {
	h := newHasher(KindIndexed)
	h.typ(object)
	h.typ(index)
	return in.intern(&Type{
		Kind: KindIndexed,
		Data: &IndexedType{Object: object, Index: index},
	}, h.sum())
}

// Mapped creates a mapped type. Evaluation is lazy.
func (in *Interner) Mapped(param, source, value *Type, optional, readonly bool) *Type {
	h := newHasher(KindMapped)
	h.typ(param)
	h.typ(source)
	h.typ(value)
	h.boolean(optional)
	h.boolean(readonly)
	return in.intern(&Type{
		Kind: KindMapped,
		Data: &MappedType{Param: param, Source: source, Value: value, Optional: optional, Readonly: readonly},
	}, h.sum())
}

// Conditional creates a conditional type. Evaluation is lazy.
func (in *Interner) Conditional(check, extends, then, els *Type) *Type {
	h := newHasher(KindConditional)
	h.typ(check)
	h.typ(extends)
	h.typ(then)
	h.typ(els)
	return in.intern(&Type{
		Kind: KindConditional,
		Data: &ConditionalType{Check: check, Extends: extends, Then: then, Else: els},
	}, h.sum())
}

// NewRef creates (or returns the existing) forward reference handle for a
// declaration. Handles hash by declaration identity, so requesting the same
// declaration twice yields one shared handle.
func (in *Interner) NewRef(name string, decl uint64) *Type {
	h := newHasher(KindRef)
	h.str(name)
	h.u64(decl)
	return in.intern(&Type{
		Kind: KindRef,
		Data: &RefType{Name: name, Decl: decl},
	}, h.sum())
}

// Bind publishes a forward reference's target. The first binding wins;
// later bindings report false.
func (in *Interner) Bind(ref *Type, target *Type) bool {
	r, ok := ref.Data.(*RefType)
	if !ok {
		return false
	}
	return r.bind(target, nil)
}

// BindGeneric publishes a generic alias handle's target together with the
// alias's parameter list, so applications made through the handle before
// resolution completed can still instantiate.
func (in *Interner) BindGeneric(ref *Type, target *Type, params []*Type) bool {
	r, ok := ref.Data.(*RefType)
	if !ok {
		return false
	}
	return r.bind(target, params)
}
