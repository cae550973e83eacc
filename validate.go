package goshape

import (
	"errors"
	"reflect"
	"strconv"
)

// IsValid reports whether v conforms to s. It never fails for data: any
// mismatch is simply false.
//
// Recursion() resolves to the body of the innermost Recursive schema currently
// being validated. Reaching a marker with no enclosing Recursive, or a nil or
// zero-value schema node, is a programming defect and panics with
// ErrUnboundRecursion or ErrInvalidSchema; Compile rejects such schemas up
// front.
//
// Validation depth follows the nesting depth of v. Values of untrusted depth
// should come through a depth-limited Source (see DecodeOpt.MaxDepth).
func IsValid(v any, s *Schema) bool {
	w := walker{}
	w.bindings = w.inline[:0]
	return w.valid(v, s)
}

// walker carries the traversal-local stack of active Recursive bodies.
type walker struct {
	bindings []*Schema
	inline   [4]*Schema
}

func (w *walker) valid(v any, s *Schema) bool {
	if s == nil {
		panic(ErrInvalidSchema)
	}
	switch s.kind {
	case KindString:
		return classify(v) == vkString
	case KindNumber:
		return classify(v) == vkNumber
	case KindBoolean:
		return classify(v) == vkBoolean
	case KindBigInt:
		return classify(v) == vkBigInt
	case KindSymbol:
		return classify(v) == vkSymbol
	case KindUndefined, KindVoid:
		return classify(v) == vkUndefined
	case KindNull:
		return classify(v) == vkNull
	case KindNullish:
		k := classify(v)
		return k == vkNull || k == vkUndefined
	case KindUnknown, KindAny:
		return true
	case KindNever:
		return false
	case KindLiteral, KindLiteralUnion:
		for _, lit := range s.literals {
			if matchesScalar(v, lit) {
				return true
			}
		}
		return false
	case KindArray, KindNonEmptyArray:
		seq, ok := viewSequence(v)
		if !ok {
			return false
		}
		if s.kind == KindNonEmptyArray && seq.n == 0 {
			return false
		}
		for i := 0; i < seq.n; i++ {
			if !w.valid(seq.at(i), s.elem) {
				return false
			}
		}
		return true
	case KindTuple:
		seq, ok := viewSequence(v)
		if !ok || seq.n != len(s.items) {
			return false
		}
		for i, it := range s.items {
			if !w.valid(seq.at(i), it) {
				return false
			}
		}
		return true
	case KindObject:
		return w.object(v, s)
	case KindRecord:
		kv, ok := viewKeyed(v)
		if !ok {
			return false
		}
		return kv.each(func(key string, val any) bool {
			return w.keyMatches(key, s.key) && w.valid(val, s.value)
		})
	case KindUnion:
		for _, it := range s.items {
			if w.valid(v, it) {
				return true
			}
		}
		return false
	case KindIntersection:
		for _, it := range s.items {
			if !w.valid(v, it) {
				return false
			}
		}
		return true
	case KindClass:
		return classMatches(v, s.class)
	case KindRecursive:
		w.bindings = append(w.bindings, s.body)
		defer w.pop()
		return w.valid(v, s.body)
	case KindRecursion:
		n := len(w.bindings)
		if n == 0 {
			panic(ErrUnboundRecursion)
		}
		return w.valid(v, w.bindings[n-1])
	default:
		panic(ErrInvalidSchema)
	}
}

func (w *walker) pop() {
	w.bindings = w.bindings[:len(w.bindings)-1]
}

func (w *walker) object(v any, s *Schema) bool {
	kv, ok := viewKeyed(v)
	if !ok {
		return false
	}
	for _, f := range s.required {
		val, present := kv.lookup(f.name)
		if !present || !w.valid(val, f.schema) {
			return false
		}
	}
	for _, f := range s.optional {
		val, present := kv.lookup(f.name)
		if present && !w.valid(val, f.schema) {
			return false
		}
	}
	return true
}

// keyMatches tests an own key first as text and then, when the text is a
// canonical non-negative integer, as that number.
func (w *walker) keyMatches(key string, ks *Schema) bool {
	if w.valid(key, ks) {
		return true
	}
	if n, ok := canonicalIndex(key); ok {
		return w.valid(n, ks)
	}
	return false
}

// canonicalIndex parses "0" or a digit string without a leading zero, sign,
// decimal point, or exponent.
func canonicalIndex(key string) (float64, bool) {
	if key == "" {
		return 0, false
	}
	if key == "0" {
		return 0, true
	}
	if key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	for i := 1; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(key, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// classMatches reports whether v is an instance of t: same type, a pointer to
// t, the element of pointer type t, an implementation of interface t, or a
// struct that embeds t (directly or transitively).
func classMatches(v any, t reflect.Type) bool {
	k := classify(v)
	if k.isPrimitive() {
		return false
	}
	vt := reflect.TypeOf(v)
	if t.Kind() == reflect.Interface {
		return vt.Implements(t)
	}
	if vt == t {
		return true
	}
	if vt.Kind() == reflect.Pointer && vt.Elem() == t {
		return true
	}
	if t.Kind() == reflect.Pointer && t.Elem() == vt {
		return true
	}
	return embeds(derefType(vt), derefType(t), map[reflect.Type]struct{}{})
}

func embeds(st, target reflect.Type, visiting map[reflect.Type]struct{}) bool {
	if st.Kind() != reflect.Struct {
		return false
	}
	if _, ok := visiting[st]; ok {
		return false
	}
	visiting[st] = struct{}{}
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.Anonymous {
			continue
		}
		ft := derefType(sf.Type)
		if ft == target || embeds(ft, target, visiting) {
			return true
		}
	}
	return false
}

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
