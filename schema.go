package goshape

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Schema is an immutable descriptor of a shape. Build schemas with the
// constructors in this file; the zero value is not a valid schema.
type Schema struct {
	kind     Kind
	literals []scalar // KindLiteral (one entry) and KindLiteralUnion
	elem     *Schema  // KindArray, KindNonEmptyArray
	items    []*Schema
	required []field
	optional []field
	key      *Schema // KindRecord
	value    *Schema // KindRecord
	class    reflect.Type
	body     *Schema // KindRecursive
}

// Fields maps object field names to schemas.
type Fields map[string]*Schema

type field struct {
	name   string
	schema *Schema
}

var (
	stringSchema    = &Schema{kind: KindString}
	numberSchema    = &Schema{kind: KindNumber}
	booleanSchema   = &Schema{kind: KindBoolean}
	bigIntSchema    = &Schema{kind: KindBigInt}
	symbolSchema    = &Schema{kind: KindSymbol}
	undefinedSchema = &Schema{kind: KindUndefined}
	nullSchema      = &Schema{kind: KindNull}
	nullishSchema   = &Schema{kind: KindNullish}
	unknownSchema   = &Schema{kind: KindUnknown}
	anySchema       = &Schema{kind: KindAny}
	neverSchema     = &Schema{kind: KindNever}
	voidSchema      = &Schema{kind: KindVoid}
	recursionMarker = &Schema{kind: KindRecursion}
)

// String matches textual values.
func String() *Schema { return stringSchema }

// Number matches numeric values (all Go integer and float kinds, json.Number).
func Number() *Schema { return numberSchema }

// Boolean matches bool values.
func Boolean() *Schema { return booleanSchema }

// BigInt matches *big.Int values.
func BigInt() *Schema { return bigIntSchema }

// SymbolType matches *Symbol values.
func SymbolType() *Schema { return symbolSchema }

// UndefinedType matches Undefined only.
func UndefinedType() *Schema { return undefinedSchema }

// Null matches nil.
func Null() *Schema { return nullSchema }

// Nullish matches nil or Undefined.
func Nullish() *Schema { return nullishSchema }

// Unknown matches everything.
func Unknown() *Schema { return unknownSchema }

// Any matches everything.
func Any() *Schema { return anySchema }

// Never matches nothing.
func Never() *Schema { return neverSchema }

// Void matches Undefined only (not nil).
func Void() *Schema { return voidSchema }

// Recursion returns the placeholder that stands for the innermost enclosing
// Recursive schema during validation.
func Recursion() *Schema { return recursionMarker }

// Literal matches values equal to v. v must be a string, bool, number,
// *big.Int, nil, or Undefined; anything else panics.
func Literal(v any) *Schema {
	lit, ok := scalarOf(v)
	if !ok {
		panic(fmt.Sprintf("goshape: literal: unsupported value of type %T", v))
	}
	return &Schema{kind: KindLiteral, literals: []scalar{lit}}
}

// LiteralUnion matches values equal to any of vs.
func LiteralUnion(vs ...any) *Schema {
	lits := make([]scalar, 0, len(vs))
	for i, v := range vs {
		lit, ok := scalarOf(v)
		if !ok {
			panic(fmt.Sprintf("goshape: literalUnion: unsupported value of type %T at position %d", v, i))
		}
		lits = append(lits, lit)
	}
	return &Schema{kind: KindLiteralUnion, literals: lits}
}

// Array matches sequences whose every element matches elem.
func Array(elem *Schema) *Schema {
	mustSchema("array", elem, 0)
	return &Schema{kind: KindArray, elem: elem}
}

// NonEmptyArray is Array with at least one element.
func NonEmptyArray(elem *Schema) *Schema {
	mustSchema("nonEmptyArray", elem, 0)
	return &Schema{kind: KindNonEmptyArray, elem: elem}
}

// Tuple matches sequences of exactly len(items) elements, element i matching
// items[i].
func Tuple(items ...*Schema) *Schema {
	return &Schema{kind: KindTuple, items: schemaList("tuple", items)}
}

// Object matches keyed structures carrying every required field. The optional
// mapping, when given, constrains fields only when they are present. Fields
// not named in either mapping are ignored.
func Object(required Fields, optional ...Fields) *Schema {
	if len(optional) > 1 {
		panic("goshape: object: at most one optional field mapping")
	}
	s := &Schema{kind: KindObject, required: fieldList("object", required)}
	if len(optional) == 1 {
		s.optional = fieldList("object", optional[0])
		for _, f := range s.optional {
			if _, dup := required[f.name]; dup {
				panic(fmt.Sprintf("goshape: object: field %q is both required and optional", f.name))
			}
		}
	}
	return s
}

// Record matches keyed structures whose every own key matches key and every
// value matches value.
func Record(key, value *Schema) *Schema {
	mustSchema("record", key, 0)
	mustSchema("record", value, 1)
	return &Schema{kind: KindRecord, key: key, value: value}
}

// Union matches when at least one member matches. An empty union matches
// nothing.
func Union(members ...*Schema) *Schema {
	return &Schema{kind: KindUnion, items: schemaList("union", members)}
}

// Intersection matches when every member matches. An empty intersection
// matches everything.
func Intersection(members ...*Schema) *Schema {
	return &Schema{kind: KindIntersection, items: schemaList("intersection", members)}
}

// Class matches non-primitive, non-nil values of type t. See IsValid for the
// exact compatibility rule.
func Class(t reflect.Type) *Schema {
	if t == nil {
		panic("goshape: class: nil type")
	}
	return &Schema{kind: KindClass, class: t}
}

// ClassOf is Class(reflect.TypeFor[T]()).
func ClassOf[T any]() *Schema { return Class(reflect.TypeOf((*T)(nil)).Elem()) }

// Recursive introduces a self-referential schema: every Recursion() inside body
// that is not shadowed by a nested Recursive refers back to body.
func Recursive(body *Schema) *Schema {
	mustSchema("recursive", body, 0)
	return &Schema{kind: KindRecursive, body: body}
}

// RecursiveFunc calls build once with the recursion marker and wraps the
// result with Recursive.
func RecursiveFunc(build func(self *Schema) *Schema) *Schema {
	if build == nil {
		panic("goshape: recursive: nil body builder")
	}
	return Recursive(build(recursionMarker))
}

func mustSchema(op string, s *Schema, pos int) {
	if s == nil {
		panic(fmt.Sprintf("goshape: %s: nil schema at position %d", op, pos))
	}
}

func schemaList(op string, in []*Schema) []*Schema {
	out := make([]*Schema, len(in))
	for i, s := range in {
		mustSchema(op, s, i)
		out[i] = s
	}
	return out
}

func fieldList(op string, fs Fields) []field {
	out := make([]field, 0, len(fs))
	for name, s := range fs {
		if s == nil {
			panic(fmt.Sprintf("goshape: %s: nil schema for field %q", op, name))
		}
		out = append(out, field{name: name, schema: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// ---- inspection ----

// Kind returns the node kind. A nil schema reports KindInvalid.
func (s *Schema) Kind() Kind {
	if s == nil {
		return KindInvalid
	}
	return s.kind
}

// Elem returns the element schema of an array or non-empty array.
func (s *Schema) Elem() *Schema { return s.elem }

// Items returns the members of a tuple, union, or intersection.
func (s *Schema) Items() []*Schema { return append([]*Schema(nil), s.items...) }

// Key returns the key schema of a record.
func (s *Schema) Key() *Schema { return s.key }

// Value returns the value schema of a record.
func (s *Schema) Value() *Schema { return s.value }

// Body returns the body of a recursive schema.
func (s *Schema) Body() *Schema { return s.body }

// ClassType returns the type of a class schema.
func (s *Schema) ClassType() reflect.Type { return s.class }

// Required returns a copy of an object's required fields.
func (s *Schema) Required() Fields { return fieldMap(s.required) }

// Optional returns a copy of an object's optional fields.
func (s *Schema) Optional() Fields { return fieldMap(s.optional) }

// Literals returns the values of a literal or literal union.
func (s *Schema) Literals() []any {
	out := make([]any, len(s.literals))
	for i, l := range s.literals {
		out[i] = l.value()
	}
	return out
}

func fieldMap(fs []field) Fields {
	out := make(Fields, len(fs))
	for _, f := range fs {
		out[f.name] = f.schema
	}
	return out
}

// String renders the schema compactly, e.g. object{age?: number, name: string}.
func (s *Schema) String() string {
	var b strings.Builder
	s.render(&b)
	return b.String()
}

func (s *Schema) render(b *strings.Builder) {
	if s == nil {
		b.WriteString("<nil>")
		return
	}
	switch s.kind {
	case KindLiteral:
		b.WriteString(s.literals[0].render())
	case KindLiteralUnion:
		for i, l := range s.literals {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(l.render())
		}
		if len(s.literals) == 0 {
			b.WriteString("never")
		}
	case KindArray, KindNonEmptyArray:
		b.WriteString(s.kind.String())
		b.WriteByte('<')
		s.elem.render(b)
		b.WriteByte('>')
	case KindTuple, KindUnion, KindIntersection:
		b.WriteString(s.kind.String())
		b.WriteByte('(')
		for i, it := range s.items {
			if i > 0 {
				b.WriteString(", ")
			}
			it.render(b)
		}
		b.WriteByte(')')
	case KindObject:
		all := make([]field, 0, len(s.required)+len(s.optional))
		all = append(all, s.required...)
		all = append(all, s.optional...)
		sort.Slice(all, func(i, j int) bool { return all[i].name < all[j].name })
		b.WriteString("object{")
		for i, f := range all {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.name)
			if s.isOptional(f.name) {
				b.WriteByte('?')
			}
			b.WriteString(": ")
			f.schema.render(b)
		}
		b.WriteByte('}')
	case KindRecord:
		b.WriteString("record<")
		s.key.render(b)
		b.WriteString(", ")
		s.value.render(b)
		b.WriteByte('>')
	case KindClass:
		b.WriteString("class<")
		b.WriteString(s.class.String())
		b.WriteByte('>')
	case KindRecursive:
		b.WriteString("recursive(")
		s.body.render(b)
		b.WriteByte(')')
	default:
		b.WriteString(s.kind.String())
	}
}

func (s *Schema) isOptional(name string) bool {
	for _, f := range s.optional {
		if f.name == name {
			return true
		}
	}
	return false
}
