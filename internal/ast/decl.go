package ast

// VarDecl declares a variable binding, optionally constant, annotated,
// exported, or ambient (declared without an initializer by a library).
type VarDecl struct {
	Base
	Name     string
	Const    bool
	Exported bool
	Ambient  bool
	TypeAnn  TypeExpr // nil when the type is inferred from Init
	Init     Expr     // nil for ambient declarations
}

func (d *VarDecl) declNode()        {}
func (d *VarDecl) DeclName() string { return d.Name }

// FuncDecl declares a function. A nil Body marks an overload signature; the
// implementation carries the body and closes the overload group.
type FuncDecl struct {
	Base
	Name       string
	Exported   bool
	TypeParams []*TypeParamDecl
	Params     []*ParamDecl
	Return     TypeExpr // nil means inferred (void when the body never returns)
	Body       *Block
}

func (d *FuncDecl) declNode()        {}
func (d *FuncDecl) DeclName() string { return d.Name }

// InterfaceDecl declares a structural interface. Two interface declarations
// with one name in one scope merge their member lists.
type InterfaceDecl struct {
	Base
	Name       string
	Exported   bool
	TypeParams []*TypeParamDecl
	Extends    []TypeExpr
	Members    []*PropertySig
}

func (d *InterfaceDecl) declNode()        {}
func (d *InterfaceDecl) DeclName() string { return d.Name }

// ClassDecl declares a class. Checking is structural: the class contributes
// an instance type (members plus supertypes) and construct signatures.
type ClassDecl struct {
	Base
	Name       string
	Exported   bool
	TypeParams []*TypeParamDecl
	Extends    TypeExpr // nil when the class has no base
	Implements []TypeExpr
	Members    []*PropertySig
	Ctors      []*FuncTypeExpr
}

func (d *ClassDecl) declNode()        {}
func (d *ClassDecl) DeclName() string { return d.Name }

// TypeAliasDecl declares a (possibly generic) type alias.
type TypeAliasDecl struct {
	Base
	Name       string
	Exported   bool
	TypeParams []*TypeParamDecl
	Target     TypeExpr
}

func (d *TypeAliasDecl) declNode()        {}
func (d *TypeAliasDecl) DeclName() string { return d.Name }

// PropertySig is one named member of an object type, interface, or class.
// Method members carry a FuncTypeExpr with IsMethod set.
type PropertySig struct {
	Base
	Name     string
	Optional bool
	Readonly bool
	Static   bool
	Type     TypeExpr
}

// ParamDecl is one parameter of a function or signature.
type ParamDecl struct {
	Base
	Name     string
	TypeAnn  TypeExpr // nil means implicit any
	Optional bool
	Rest     bool
	Default  Expr
}

// TypeParamDecl is one generic type parameter declaration.
type TypeParamDecl struct {
	Base
	Name       string
	Constraint TypeExpr
	Default    TypeExpr
}
