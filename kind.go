package goshape

// Kind identifies a schema node type.
type Kind int

const (
	KindInvalid Kind = iota // Zero value; never produced by a constructor.
	KindString
	KindNumber
	KindBoolean
	KindBigInt
	KindSymbol
	KindUndefined
	KindNull
	KindNullish
	KindUnknown
	KindAny
	KindNever
	KindVoid
	KindLiteral
	KindLiteralUnion
	KindArray
	KindNonEmptyArray
	KindTuple
	KindObject
	KindRecord
	KindUnion
	KindIntersection
	KindClass
	KindRecursive
	KindRecursion
)

var kindNames = [...]string{
	KindInvalid:       "invalid",
	KindString:        "string",
	KindNumber:        "number",
	KindBoolean:       "boolean",
	KindBigInt:        "bigint",
	KindSymbol:        "symbol",
	KindUndefined:     "undefined",
	KindNull:          "null",
	KindNullish:       "nullish",
	KindUnknown:       "unknown",
	KindAny:           "any",
	KindNever:         "never",
	KindVoid:          "void",
	KindLiteral:       "literal",
	KindLiteralUnion:  "literalUnion",
	KindArray:         "array",
	KindNonEmptyArray: "nonEmptyArray",
	KindTuple:         "tuple",
	KindObject:        "object",
	KindRecord:        "record",
	KindUnion:         "union",
	KindIntersection:  "intersection",
	KindClass:         "class",
	KindRecursive:     "recursive",
	KindRecursion:     "recursion",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// KindByName returns the kind registered under name (as produced by Kind.String).
func KindByName(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name && Kind(i) != KindInvalid {
			return Kind(i), true
		}
	}
	return KindInvalid, false
}

// IsPrimitive reports whether k carries no payload.
func (k Kind) IsPrimitive() bool {
	return k >= KindString && k <= KindVoid
}
