package ast

// LitKind discriminates literal values. The same kinds are reused by
// literal type annotations.
type LitKind int

const (
	LitString LitKind = iota
	LitNumber
	LitBoolean
	LitNull
	LitUndefined
)

func (k LitKind) String() string {
	switch k {
	case LitString:
		return "string"
	case LitNumber:
		return "number"
	case LitBoolean:
		return "boolean"
	case LitNull:
		return "null"
	case LitUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Ident references a binding by name.
type Ident struct {
	Base
	Name string
}

func (e *Ident) exprNode() {}

// Lit is a literal value. Value holds string, float64, or bool according to
// Kind; nil for null/undefined.
type Lit struct {
	Base
	Kind  LitKind
	Value interface{}
}

func (e *Lit) exprNode() {}

// ObjectLit is an object literal.
type ObjectLit struct {
	Base
	Fields []*ObjectField
}

func (e *ObjectLit) exprNode() {}

// ObjectField is one property of an object literal.
type ObjectField struct {
	Base
	Name  string
	Value Expr
}

// ArrayLit is an array literal.
type ArrayLit struct {
	Base
	Elems []Expr
}

func (e *ArrayLit) exprNode() {}

// FuncLit is a function expression.
type FuncLit struct {
	Base
	TypeParams []*TypeParamDecl
	Params     []*ParamDecl
	Return     TypeExpr
	Body       *Block
}

func (e *FuncLit) exprNode() {}

// CallExpr invokes a callee. Arguments may include SpreadExpr nodes.
type CallExpr struct {
	Base
	Callee   Expr
	TypeArgs []TypeExpr
	Args     []Expr
}

func (e *CallExpr) exprNode() {}

// NewExpr constructs an instance through a construct signature.
type NewExpr struct {
	Base
	Callee   Expr
	TypeArgs []TypeExpr
	Args     []Expr
}

func (e *NewExpr) exprNode() {}

// SpreadExpr spreads an iterable argument into a call.
type SpreadExpr struct {
	Base
	X Expr
}

func (e *SpreadExpr) exprNode() {}

// MemberExpr accesses a named property. Optional marks `?.` access.
type MemberExpr struct {
	Base
	X        Expr
	Name     string
	Optional bool
}

func (e *MemberExpr) exprNode() {}

// IndexExpr accesses an element by computed key.
type IndexExpr struct {
	Base
	X     Expr
	Index Expr
}

func (e *IndexExpr) exprNode() {}

// BinOp enumerates binary operators.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNeq
	OpStrictEq
	OpStrictNeq
	OpLt
	OpGt
	OpLe
	OpGe
	OpAnd
	OpOr
	OpNullish
	OpIn
	OpInstanceof
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpStrictEq:
		return "==="
	case OpStrictNeq:
		return "!=="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpNullish:
		return "??"
	case OpIn:
		return "in"
	case OpInstanceof:
		return "instanceof"
	default:
		return "?"
	}
}

// BinaryExpr combines two operands.
type BinaryExpr struct {
	Base
	Op BinOp
	X  Expr
	Y  Expr
}

func (e *BinaryExpr) exprNode() {}

// UnOp enumerates unary operators.
type UnOp int

const (
	OpNot UnOp = iota
	OpTypeof
	OpAwait
	OpNeg
)

func (op UnOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpTypeof:
		return "typeof"
	case OpAwait:
		return "await"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	Base
	Op UnOp
	X  Expr
}

func (e *UnaryExpr) exprNode() {}

// CondExpr is the ternary conditional.
type CondExpr struct {
	Base
	Cond Expr
	Then Expr
	Else Expr
}

func (e *CondExpr) exprNode() {}

// AssignExpr assigns Value to Target.
type AssignExpr struct {
	Base
	Target Expr
	Value  Expr
}

func (e *AssignExpr) exprNode() {}
