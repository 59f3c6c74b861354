// Package types provides the structural type representation used by the
// checker. Types are interned: structurally identical types share one
// canonical *Type, addressed by a stable TypeID inside the session arena.
// A Type is immutable once built; the single exception is the forward
// reference (KindRef), whose target is bound exactly once when a cyclic
// declaration group finishes.
package types

import "sync/atomic"

// TypeID addresses a type inside the session arena.
type TypeID uint32

// Kind represents the kind of a type.
type Kind uint8

const (
	KindAny Kind = iota
	KindUnknown
	KindNever
	KindVoid
	KindNull
	KindUndefined
	KindString
	KindNumber
	KindBoolean
	KindBigInt
	KindSymbol

	KindLiteral
	KindObject
	KindUnion
	KindIntersection
	KindFunction
	KindTypeParam
	KindArray
	KindTuple
	KindInterface
	KindApplied

	KindKeyof
	KindIndexed
	KindMapped
	KindConditional

	KindRef
	KindError
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindUnknown:
		return "unknown"
	case KindNever:
		return "never"
	case KindVoid:
		return "void"
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindBigInt:
		return "bigint"
	case KindSymbol:
		return "symbol"
	case KindLiteral:
		return "literal"
	case KindObject:
		return "object"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindFunction:
		return "function"
	case KindTypeParam:
		return "type-parameter"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindInterface:
		return "interface"
	case KindApplied:
		return "applied"
	case KindKeyof:
		return "keyof"
	case KindIndexed:
		return "indexed-access"
	case KindMapped:
		return "mapped"
	case KindConditional:
		return "conditional"
	case KindRef:
		return "reference"
	case KindError:
		return "error"
	default:
		return "invalid"
	}
}

// Type represents a type. Equality of interned types is pointer equality;
// Hash is the structural fingerprint used for interning and cache keys.
type Type struct {
	Kind Kind
	Data interface{} // kind-specific payload, nil for primitives

	id   TypeID
	hash uint64
}

// ID returns the arena index of the type.
func (t *Type) ID() TypeID { return t.id }

// Hash returns the structural fingerprint of the type.
func (t *Type) Hash() uint64 { return t.hash }

// ====== Payloads ======

// LiteralType is a literal type: a single value of a base primitive.
type LiteralType struct {
	Base  *Type       // KindString, KindNumber, KindBoolean, or KindBigInt
	Value interface{} // string, float64, or bool
}

// Member is one named member of an object, interface, or class type.
// Member order is preserved for diagnostics and ignored for comparison.
type Member struct {
	Name     string
	Optional bool
	Readonly bool
	Type     *Type
}

// ObjectType is an anonymous structural object type.
type ObjectType struct {
	Members []Member
}

// UnionType holds a flattened, deduplicated member set.
type UnionType struct {
	Members []*Type
}

// IntersectionType holds a flattened, deduplicated member set.
type IntersectionType struct {
	Members []*Type
}

// Param is one parameter of a signature.
type Param struct {
	Name     string
	Type     *Type
	Optional bool
	Rest     bool
}

// Signature is one callable signature. IsMethod selects the bivariant
// parameter exception during relation checks.
type Signature struct {
	TypeParams []*Type // KindTypeParam entries
	Params     []Param
	Return     *Type
	IsMethod   bool
}

// MinArity returns the number of required parameters.
func (s *Signature) MinArity() int {
	n := 0
	for _, p := range s.Params {
		if p.Optional || p.Rest {
			break
		}
		n++
	}
	return n
}

// HasRest reports whether the final parameter is a rest parameter.
func (s *Signature) HasRest() bool {
	return len(s.Params) > 0 && s.Params[len(s.Params)-1].Rest
}

// FunctionType is a callable with one or more overload signatures, tried in
// declaration order.
type FunctionType struct {
	Signatures []*Signature
}

// TypeParamType is a generic type parameter reference. Each declaration
// site gets a distinct identity even when names collide.
type TypeParamType struct {
	Name       string
	Constraint *Type // nil means unconstrained
	Default    *Type

	seq uint64
}

// ArrayType is an array. Mutable element slots are invariant; readonly
// arrays are covariant.
type ArrayType struct {
	Elem     *Type
	Readonly bool
}

// TupleElem is one positional element of a tuple.
type TupleElem struct {
	Type     *Type
	Optional bool
}

// TupleType is a tuple with optional trailing rest.
type TupleType struct {
	Elems    []TupleElem
	Rest     *Type // element type of the rest slot, or nil
	Readonly bool
}

// InterfaceType is a named class or interface: members plus supertypes.
type InterfaceType struct {
	Name       string
	IsClass    bool
	TypeParams []*Type // KindTypeParam entries
	Members    []Member
	Call       []*Signature
	Construct  []*Signature
	Supers     []*Type
}

// AppliedType is a generic type applied to arguments (`Promise<string>`).
// Expansion is performed lazily by the operations engine.
type AppliedType struct {
	Base *Type // KindInterface (generic) or KindRef to one
	Args []*Type
}

// KeyofType is `keyof Operand`.
type KeyofType struct {
	Operand *Type
}

// IndexedType is `Object[Index]`.
type IndexedType struct {
	Object *Type
	Index  *Type
}

// MappedType is `{ [Param in Source]: Value }`.
type MappedType struct {
	Param    *Type // KindTypeParam bound inside Value
	Source   *Type // key source, usually a keyof or union of literals
	Value    *Type
	Optional bool
	Readonly bool
}

// ConditionalType is `Check extends Extends ? Then : Else`. Evaluation
// distributes over naked union check operands.
type ConditionalType struct {
	Check   *Type
	Extends *Type
	Then    *Type
	Else    *Type
}

// RefType is a forward reference handle for not-yet-resolved declarations.
// It hashes by declaration identity so that cycles terminate structural
// hashing and comparison.
type RefType struct {
	Name string
	Decl uint64 // declaration identity (AST node id)

	target atomic.Pointer[Type]
	params atomic.Pointer[[]*Type]
}

// Resolve returns the bound target, if any.
func (r *RefType) Resolve() (*Type, bool) {
	t := r.target.Load()
	return t, t != nil
}

// TypeParams returns the parameter list published with a generic alias
// binding, nil for plain handles.
func (r *RefType) TypeParams() []*Type {
	p := r.params.Load()
	if p == nil {
		return nil
	}
	return *p
}

// bind publishes the target. Binding twice keeps the first value: a forward
// handle becomes valid exactly once. Parameters are published before the
// target so a resolved handle always carries its full binding.
func (r *RefType) bind(t *Type, params []*Type) bool {
	if len(params) > 0 {
		r.params.CompareAndSwap(nil, &params)
	}
	return r.target.CompareAndSwap(nil, t)
}

// ====== Predicates ======

// IsPrimitive reports whether the type is a primitive (including void,
// null, and undefined).
func (t *Type) IsPrimitive() bool {
	switch t.Kind {
	case KindVoid, KindNull, KindUndefined, KindString, KindNumber,
		KindBoolean, KindBigInt, KindSymbol:
		return true
	default:
		return false
	}
}

// IsError reports whether the type is the error placeholder.
func (t *Type) IsError() bool { return t.Kind == KindError }

// IsNullish reports whether the type is null or undefined.
func (t *Type) IsNullish() bool {
	return t.Kind == KindNull || t.Kind == KindUndefined
}

// IsCallable reports whether the type carries call signatures.
func (t *Type) IsCallable() bool {
	switch t.Kind {
	case KindFunction, KindError, KindAny:
		return true
	case KindInterface:
		return len(t.Data.(*InterfaceType).Call) > 0
	default:
		return false
	}
}

// Deref follows a bound forward reference; unbound references and all other
// types are returned unchanged.
func (t *Type) Deref() *Type {
	for t.Kind == KindRef {
		target, ok := t.Data.(*RefType).Resolve()
		if !ok {
			return t
		}
		t = target
	}
	return t
}

// AsUnion returns the union payload, or nil.
func (t *Type) AsUnion() *UnionType {
	u, _ := t.Data.(*UnionType)
	return u
}

// AsFunction returns the function payload, or nil.
func (t *Type) AsFunction() *FunctionType {
	f, _ := t.Data.(*FunctionType)
	return f
}

// AsInterface returns the interface payload, or nil.
func (t *Type) AsInterface() *InterfaceType {
	i, _ := t.Data.(*InterfaceType)
	return i
}

// LiteralBase returns the base primitive of a literal type, or nil.
func (t *Type) LiteralBase() *Type {
	if t.Kind != KindLiteral {
		return nil
	}
	return t.Data.(*LiteralType).Base
}
