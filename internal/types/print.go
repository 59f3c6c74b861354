package types

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders the type for diagnostics. Cycles terminate because named
// interfaces and forward references print by name.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindAny, KindUnknown, KindNever, KindVoid, KindNull, KindUndefined,
		KindString, KindNumber, KindBoolean, KindBigInt, KindSymbol:
		return t.Kind.String()

	case KindError:
		return "<error>"

	case KindLiteral:
		lit := t.Data.(*LiteralType)
		switch v := lit.Value.(type) {
		case string:
			return strconv.Quote(v)
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		default:
			return fmt.Sprint(lit.Value)
		}

	case KindObject:
		obj := t.Data.(*ObjectType)
		if len(obj.Members) == 0 {
			return "{}"
		}
		parts := make([]string, 0, len(obj.Members))
		for _, m := range obj.Members {
			parts = append(parts, memberString(m))
		}
		return "{ " + strings.Join(parts, "; ") + " }"

	case KindUnion:
		return joinTypes(t.Data.(*UnionType).Members, " | ")

	case KindIntersection:
		return joinTypes(t.Data.(*IntersectionType).Members, " & ")

	case KindFunction:
		fn := t.Data.(*FunctionType)
		if len(fn.Signatures) == 1 {
			return fn.Signatures[0].String()
		}
		parts := make([]string, 0, len(fn.Signatures))
		for _, s := range fn.Signatures {
			parts = append(parts, s.String())
		}
		return "{ " + strings.Join(parts, "; ") + " }"

	case KindTypeParam:
		return t.Data.(*TypeParamType).Name

	case KindArray:
		arr := t.Data.(*ArrayType)
		elem := arr.Elem.String()
		if arr.Elem.Kind == KindUnion || arr.Elem.Kind == KindFunction {
			elem = "(" + elem + ")"
		}
		if arr.Readonly {
			return "readonly " + elem + "[]"
		}
		return elem + "[]"

	case KindTuple:
		tup := t.Data.(*TupleType)
		parts := make([]string, 0, len(tup.Elems)+1)
		for _, e := range tup.Elems {
			s := e.Type.String()
			if e.Optional {
				s += "?"
			}
			parts = append(parts, s)
		}
		if tup.Rest != nil {
			parts = append(parts, "..."+tup.Rest.String()+"[]")
		}
		s := "[" + strings.Join(parts, ", ") + "]"
		if tup.Readonly {
			return "readonly " + s
		}
		return s

	case KindInterface:
		it := t.Data.(*InterfaceType)
		if len(it.TypeParams) == 0 {
			return it.Name
		}
		return it.Name + "<" + joinTypes(it.TypeParams, ", ") + ">"

	case KindApplied:
		app := t.Data.(*AppliedType)
		base := app.Base.String()
		if it := app.Base.Deref().AsInterface(); it != nil {
			base = it.Name
		}
		return base + "<" + joinTypes(app.Args, ", ") + ">"

	case KindKeyof:
		return "keyof " + t.Data.(*KeyofType).Operand.String()

	case KindIndexed:
		idx := t.Data.(*IndexedType)
		return idx.Object.String() + "[" + idx.Index.String() + "]"

	case KindMapped:
		m := t.Data.(*MappedType)
		mod := ""
		if m.Readonly {
			mod = "readonly "
		}
		opt := ""
		if m.Optional {
			opt = "?"
		}
		param := m.Param.Data.(*TypeParamType).Name
		return fmt.Sprintf("{ %s[%s in %s]%s: %s }", mod, param, m.Source, opt, m.Value)

	case KindConditional:
		c := t.Data.(*ConditionalType)
		return fmt.Sprintf("%s extends %s ? %s : %s", c.Check, c.Extends, c.Then, c.Else)

	case KindRef:
		return t.Data.(*RefType).Name

	default:
		return "<" + t.Kind.String() + ">"
	}
}

// String renders a signature like `(x: string, y?: number) => void`.
func (s *Signature) String() string {
	var sb strings.Builder
	if len(s.TypeParams) > 0 {
		sb.WriteString("<" + joinTypes(s.TypeParams, ", ") + ">")
	}
	sb.WriteString("(")
	for i, p := range s.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Rest {
			sb.WriteString("...")
		}
		name := p.Name
		if name == "" {
			name = "arg" + strconv.Itoa(i)
		}
		sb.WriteString(name)
		if p.Optional {
			sb.WriteString("?")
		}
		sb.WriteString(": ")
		sb.WriteString(p.Type.String())
	}
	sb.WriteString(") => ")
	sb.WriteString(s.Return.String())
	return sb.String()
}

func memberString(m Member) string {
	var sb strings.Builder
	if m.Readonly {
		sb.WriteString("readonly ")
	}
	sb.WriteString(m.Name)
	if m.Optional {
		sb.WriteString("?")
	}
	sb.WriteString(": ")
	sb.WriteString(m.Type.String())
	return sb.String()
}

func joinTypes(ts []*Type, sep string) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, sep)
}
