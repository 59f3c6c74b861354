package ast

// TypeName references a declared type by name, optionally applying type
// arguments (`Promise<string>`).
type TypeName struct {
	Base
	Name string
	Args []TypeExpr
}

func (t *TypeName) typeExprNode() {}

// LitTypeExpr is a literal type annotation (`"a"`, `1`, `true`).
type LitTypeExpr struct {
	Base
	Kind  LitKind
	Value interface{}
}

func (t *LitTypeExpr) typeExprNode() {}

// UnionTypeExpr is `A | B | ...`.
type UnionTypeExpr struct {
	Base
	Members []TypeExpr
}

func (t *UnionTypeExpr) typeExprNode() {}

// IntersectionTypeExpr is `A & B & ...`.
type IntersectionTypeExpr struct {
	Base
	Members []TypeExpr
}

func (t *IntersectionTypeExpr) typeExprNode() {}

// ObjectTypeExpr is an inline object type (`{ a: string }`).
type ObjectTypeExpr struct {
	Base
	Members []*PropertySig
}

func (t *ObjectTypeExpr) typeExprNode() {}

// FuncTypeExpr is a function or method signature annotation. IsMethod
// selects bivariant parameter checking for the signature.
type FuncTypeExpr struct {
	Base
	TypeParams []*TypeParamDecl
	Params     []*ParamDecl
	Return     TypeExpr
	IsMethod   bool
}

func (t *FuncTypeExpr) typeExprNode() {}

// ArrayTypeExpr is `T[]` or `readonly T[]`.
type ArrayTypeExpr struct {
	Base
	Elem     TypeExpr
	Readonly bool
}

func (t *ArrayTypeExpr) typeExprNode() {}

// TupleTypeExpr is `[A, B, ...C[]]`.
type TupleTypeExpr struct {
	Base
	Elems    []TypeExpr
	Optional []bool   // parallel to Elems; nil means all required
	Rest     TypeExpr // element type of the trailing rest, or nil
	Readonly bool
}

func (t *TupleTypeExpr) typeExprNode() {}

// KeyofTypeExpr is `keyof T`.
type KeyofTypeExpr struct {
	Base
	Operand TypeExpr
}

func (t *KeyofTypeExpr) typeExprNode() {}

// IndexedTypeExpr is `T[K]`.
type IndexedTypeExpr struct {
	Base
	Object TypeExpr
	Index  TypeExpr
}

func (t *IndexedTypeExpr) typeExprNode() {}

// CondTypeExpr is `Check extends Extends ? Then : Else`.
type CondTypeExpr struct {
	Base
	Check   TypeExpr
	Extends TypeExpr
	Then    TypeExpr
	Else    TypeExpr
}

func (t *CondTypeExpr) typeExprNode() {}

// MappedTypeExpr is `{ [P in Source]: Value }` with optional modifiers.
type MappedTypeExpr struct {
	Base
	Param    string
	Source   TypeExpr
	Value    TypeExpr
	Optional bool
	Readonly bool
}

func (t *MappedTypeExpr) typeExprNode() {}
