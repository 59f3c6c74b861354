package ast

// Block is a braced statement list introducing a block scope.
type Block struct {
	Base
	Stmts []Stmt
}

func (s *Block) stmtNode() {}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	Base
	X Expr
}

func (s *ExprStmt) stmtNode() {}

// DeclStmt embeds a declaration in statement position.
type DeclStmt struct {
	Base
	Decl Decl
}

func (s *DeclStmt) stmtNode() {}

// IfStmt branches on a condition. Either branch may be nil.
type IfStmt struct {
	Base
	Cond Expr
	Then Stmt
	Else Stmt
}

func (s *IfStmt) stmtNode() {}

// WhileStmt is the loop form. Narrowing follows its back-edge a bounded
// number of times.
type WhileStmt struct {
	Base
	Cond Expr
	Body Stmt
}

func (s *WhileStmt) stmtNode() {}

// SwitchStmt dispatches on a tag expression.
type SwitchStmt struct {
	Base
	Tag   Expr
	Cases []*SwitchCase
}

func (s *SwitchStmt) stmtNode() {}

// SwitchCase is one arm of a switch. A nil Value marks the default arm.
type SwitchCase struct {
	Base
	Value Expr
	Body  []Stmt
}

// ReturnStmt returns from the enclosing function. X may be nil.
type ReturnStmt struct {
	Base
	X Expr
}

func (s *ReturnStmt) stmtNode() {}
