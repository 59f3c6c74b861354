// Package ast defines the abstract syntax tree consumed by the checker.
// The tree is produced by an external parser; this package only fixes the
// shape of the contract: strongly-typed nodes, stable node identities, and
// source span metadata on every node.
//
// Node identities are assigned lazily from a process-wide counter. A module
// is analyzed by exactly one goroutine, so lazy assignment is safe.
package ast

import (
	"sync/atomic"

	"github.com/ah-yu/stc/internal/position"
)

// NodeID uniquely identifies an AST node within a session. Resolved types
// are reported keyed by NodeID.
type NodeID uint64

var nextNodeID uint64

// NextNodeID returns a fresh node identity.
func NextNodeID() NodeID {
	return NodeID(atomic.AddUint64(&nextNodeID, 1))
}

// Base carries the position metadata and identity shared by all nodes.
// It is embedded in every concrete node type.
type Base struct {
	Span position.Span

	id NodeID
}

// GetSpan returns the source span covered by this node.
func (b *Base) GetSpan() position.Span { return b.Span }

// ID returns the node's stable identity, assigning one on first use.
func (b *Base) ID() NodeID {
	if b.id == 0 {
		b.id = NextNodeID()
	}
	return b.id
}

// Node is the base interface for all AST nodes.
type Node interface {
	GetSpan() position.Span
	ID() NodeID
}

// Decl represents all top-level declaration nodes.
type Decl interface {
	Node
	declNode()
	// DeclName returns the declared name, or "" for unnamed declarations.
	DeclName() string
}

// Stmt represents all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// TypeExpr represents all type annotation nodes.
type TypeExpr interface {
	Node
	typeExprNode()
}

// Module is the root node for one file/module.
type Module struct {
	Base
	Name    string // canonical module identifier
	Imports []*ImportDecl
	Decls   []Decl
}

// ImportDecl imports names from another module.
type ImportDecl struct {
	Base
	Module string // module identifier of the source
	Names  []ImportName
}

// ImportName maps an exported name onto a local binding.
type ImportName struct {
	Local  string
	Remote string
}

func (d *ImportDecl) declNode()        {}
func (d *ImportDecl) DeclName() string { return "" }
