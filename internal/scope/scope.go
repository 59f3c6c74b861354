// Symbol and scope management for the analyzer. Scopes form a lexical
// chain from block scopes up through function scopes to the module scope.
package scope

import (
	"sync/atomic"

	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/position"
	"github.com/ah-yu/stc/internal/types"
)

// SymbolID uniquely identifies a symbol across an analysis session.
type SymbolID uint64

var symbolSeq uint64

func nextSymbolID() SymbolID {
	return SymbolID(atomic.AddUint64(&symbolSeq, 1))
}

// SymbolKind represents the kind of symbol.
type SymbolKind int

const (
	SymbolVar SymbolKind = iota
	SymbolFunc
	SymbolParam
	SymbolTypeAlias
	SymbolInterface
	SymbolClass
	SymbolImport
)

// String returns the string representation of SymbolKind.
func (k SymbolKind) String() string {
	switch k {
	case SymbolVar:
		return "variable"
	case SymbolFunc:
		return "function"
	case SymbolParam:
		return "parameter"
	case SymbolTypeAlias:
		return "type alias"
	case SymbolInterface:
		return "interface"
	case SymbolClass:
		return "class"
	case SymbolImport:
		return "import"
	default:
		return "unknown"
	}
}

// Flags carries symbol modifiers.
type Flags uint8

const (
	FlagConst Flags = 1 << iota
	FlagReadonly
	FlagExported
	FlagAmbient
)

// Symbol represents a named entity in a module.
type Symbol struct {
	ID    SymbolID
	Name  string
	Kind  SymbolKind
	Flags Flags
	// Type is the declared or inferred type of the symbol. For type-level
	// symbols it is the type the name denotes.
	Type *types.Type
	// Ref is the forward handle bound when the symbol's declaration group
	// completes; nil for symbols that never needed one.
	Ref  *types.Type
	Decl ast.Decl
	// AliasParams and AliasBody carry a generic type alias's definition so
	// importing modules can instantiate it.
	AliasParams []*types.Type
	AliasBody   *types.Type
	// Ctor is the constructor-side type of a class symbol: the type the
	// class name has in value position.
	Ctor *types.Type
	// Order is the source position rank used for stable declaration
	// ordering.
	Order int
	Span  position.Span
}

// NewSymbol creates a symbol with a fresh ID.
func NewSymbol(name string, kind SymbolKind, flags Flags) *Symbol {
	return &Symbol{ID: nextSymbolID(), Name: name, Kind: kind, Flags: flags}
}

// IsConst reports whether the symbol was declared with const semantics.
func (s *Symbol) IsConst() bool { return s.Flags&FlagConst != 0 }

// IsExported reports whether the symbol is visible to importing modules.
func (s *Symbol) IsExported() bool { return s.Flags&FlagExported != 0 }

// IsAmbient reports whether the symbol came from an ambient declaration.
func (s *Symbol) IsAmbient() bool { return s.Flags&FlagAmbient != 0 }

// IsType reports whether the symbol names a type rather than a value.
// Classes occupy both namespaces.
func (s *Symbol) IsType() bool {
	switch s.Kind {
	case SymbolTypeAlias, SymbolInterface, SymbolClass:
		return true
	}
	return false
}

// Kind of lexical scope.
type Kind int

const (
	Module Kind = iota
	Function
	Block
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case Module:
		return "module"
	case Function:
		return "function"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// Scope is one level of the lexical chain.
type Scope struct {
	parent  *Scope
	kind    Kind
	symbols map[string]*Symbol
	ordered []*Symbol
}

// New creates a scope. parent may be nil for a module scope.
func New(parent *Scope, kind Kind) *Scope {
	return &Scope{parent: parent, kind: kind, symbols: make(map[string]*Symbol)}
}

// Parent returns the enclosing scope, nil at module level.
func (sc *Scope) Parent() *Scope { return sc.parent }

// Kind returns the scope's kind.
func (sc *Scope) Kind() Kind { return sc.kind }

// Declare binds sym in this scope. When the name is already bound here the
// existing symbol is returned with ok=false; the caller decides whether
// that is a merge, an overload, or a duplicate diagnostic.
func (sc *Scope) Declare(sym *Symbol) (*Symbol, bool) {
	if prev, exists := sc.symbols[sym.Name]; exists {
		return prev, false
	}
	sym.Order = len(sc.ordered)
	sc.symbols[sym.Name] = sym
	sc.ordered = append(sc.ordered, sym)
	return sym, true
}

// Lookup resolves name through the scope chain.
func (sc *Scope) Lookup(name string) (*Symbol, bool) {
	for s := sc; s != nil; s = s.parent {
		if sym, ok := s.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal resolves name in this scope only.
func (sc *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := sc.symbols[name]
	return sym, ok
}

// FuncScope returns the nearest enclosing function scope, or nil when the
// chain reaches module level first.
func (sc *Scope) FuncScope() *Scope {
	for s := sc; s != nil; s = s.parent {
		if s.kind == Function {
			return s
		}
	}
	return nil
}

// Symbols returns the scope's own symbols in declaration order.
func (sc *Scope) Symbols() []*Symbol { return sc.ordered }

// Exports collects a module's exported symbols by name.
type Exports struct {
	byName map[string]*Symbol
	names  []string
}

// NewExports creates an empty export table.
func NewExports() *Exports {
	return &Exports{byName: make(map[string]*Symbol)}
}

// Add records an exported symbol. Later additions for the same name win,
// which is how merged declarations publish their final shape.
func (e *Exports) Add(sym *Symbol) {
	if _, exists := e.byName[sym.Name]; !exists {
		e.names = append(e.names, sym.Name)
	}
	e.byName[sym.Name] = sym
}

// Get resolves an exported name.
func (e *Exports) Get(name string) (*Symbol, bool) {
	sym, ok := e.byName[name]
	return sym, ok
}

// Names returns exported names in first-export order.
func (e *Exports) Names() []string { return e.names }

// Len returns the number of exported names.
func (e *Exports) Len() int { return len(e.names) }
