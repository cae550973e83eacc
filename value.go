package goshape

import (
	"encoding/json"
	"errors"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"sync"
)

// UndefinedValue is the type of Undefined.
type UndefinedValue struct{}

// Undefined stands for an absent value. It is distinct from nil, which is null.
var Undefined = UndefinedValue{}

func (UndefinedValue) String() string { return "undefined" }

// Symbol is a unique opaque token. Two symbols are equal only when they are the
// same pointer, regardless of description.
type Symbol struct {
	desc string
}

// NewSymbol allocates a fresh symbol.
func NewSymbol(desc string) *Symbol { return &Symbol{desc: desc} }

// Description returns the description given to NewSymbol.
func (s *Symbol) Description() string { return s.desc }

func (s *Symbol) String() string { return "Symbol(" + s.desc + ")" }

// valueKind is the runtime kind of a candidate value.
type valueKind int

const (
	vkOther valueKind = iota
	vkNull
	vkUndefined
	vkString
	vkNumber
	vkBoolean
	vkBigInt
	vkSymbol
	vkSequence
	vkKeyed
)

// isPrimitive reports whether values of this kind are scalars that Class never
// matches.
func (k valueKind) isPrimitive() bool {
	return k >= vkNull && k <= vkSymbol
}

func classify(v any) valueKind {
	switch t := v.(type) {
	case nil:
		return vkNull
	case UndefinedValue:
		return vkUndefined
	case string:
		return vkString
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr:
		return vkNumber
	case json.Number:
		if _, ok := jsonNumberFloat(t); ok {
			return vkNumber
		}
		return vkOther
	case bool:
		return vkBoolean
	case *big.Int:
		if t == nil {
			return vkNull
		}
		return vkBigInt
	case big.Int:
		return vkBigInt
	case *Symbol:
		if t == nil {
			return vkNull
		}
		return vkSymbol
	case []any:
		return vkSequence
	case map[string]any:
		return vkKeyed
	}
	return classifyReflect(reflect.ValueOf(v))
}

func classifyReflect(rv reflect.Value) valueKind {
	switch rv.Kind() {
	case reflect.String:
		return vkString
	case reflect.Bool:
		return vkBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return vkNumber
	case reflect.Slice, reflect.Array:
		return vkSequence
	case reflect.Map:
		if keyedMapKey(rv.Type().Key()) {
			return vkKeyed
		}
		return vkOther
	case reflect.Struct:
		return vkKeyed
	case reflect.Pointer:
		if rv.IsNil() {
			return vkNull
		}
		if rv.Elem().Kind() == reflect.Struct {
			return vkKeyed
		}
		return vkOther
	case reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		if rv.IsNil() {
			return vkNull
		}
		return vkOther
	default:
		return vkOther
	}
}

func keyedMapKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// numberOf extracts the float64 value of a number-kind value.
func numberOf(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		return jsonNumberFloat(t)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// jsonNumberFloat converts number text in JSON syntax. Magnitudes beyond
// float64 saturate to ±Inf; text that is not a JSON number is rejected.
func jsonNumberFloat(n json.Number) (float64, bool) {
	if !validNumberText(string(n)) {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// validNumberText reports whether s matches the JSON number grammar:
// -?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?
func validNumberText(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	digits := func() int {
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		return i - start
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case digits() == 0:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		if digits() == 0 {
			return false
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if digits() == 0 {
			return false
		}
	}
	return i == len(s)
}

// ---- sequences ----

type seqView struct {
	items []any
	rv    reflect.Value
	n     int
}

func viewSequence(v any) (seqView, bool) {
	if items, ok := v.([]any); ok {
		return seqView{items: items, n: len(items)}, true
	}
	if classify(v) != vkSequence {
		return seqView{}, false
	}
	rv := reflect.ValueOf(v)
	return seqView{rv: rv, n: rv.Len()}, true
}

func (s seqView) at(i int) any {
	if s.items != nil {
		return s.items[i]
	}
	return s.rv.Index(i).Interface()
}

// ---- keyed structures ----

type keyedView struct {
	m      map[string]any
	rv     reflect.Value
	fields []structField
}

type structField struct {
	name  string
	index []int
}

func viewKeyed(v any) (keyedView, bool) {
	if m, ok := v.(map[string]any); ok {
		return keyedView{m: m}, true
	}
	if classify(v) != vkKeyed {
		return keyedView{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		return keyedView{rv: rv, fields: structFields(rv.Type())}, true
	}
	return keyedView{rv: rv}, true
}

// lookup returns the value stored under name and whether the key is present.
func (k keyedView) lookup(name string) (any, bool) {
	if k.m != nil {
		v, ok := k.m[name]
		return v, ok
	}
	if !k.rv.IsValid() {
		return nil, false
	}
	if k.rv.Kind() == reflect.Struct {
		for _, f := range k.fields {
			if f.name != name {
				continue
			}
			fv, err := k.rv.FieldByIndexErr(f.index)
			if err != nil {
				return nil, false
			}
			return fv.Interface(), true
		}
		return nil, false
	}
	kv, ok := mapKeyFor(k.rv.Type().Key(), name)
	if !ok {
		return nil, false
	}
	mv := k.rv.MapIndex(kv)
	if !mv.IsValid() {
		return nil, false
	}
	return mv.Interface(), true
}

// each calls fn for every own key until fn returns false. It reports whether
// the iteration ran to completion.
func (k keyedView) each(fn func(key string, val any) bool) bool {
	if k.m != nil {
		for key, val := range k.m {
			if !fn(key, val) {
				return false
			}
		}
		return true
	}
	if !k.rv.IsValid() {
		return true
	}
	if k.rv.Kind() == reflect.Struct {
		for _, f := range k.fields {
			fv, err := k.rv.FieldByIndexErr(f.index)
			if err != nil {
				continue
			}
			if !fn(f.name, fv.Interface()) {
				return false
			}
		}
		return true
	}
	iter := k.rv.MapRange()
	for iter.Next() {
		if !fn(mapKeyText(iter.Key()), iter.Value().Interface()) {
			return false
		}
	}
	return true
}

func mapKeyText(kv reflect.Value) string {
	switch kv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(kv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(kv.Uint(), 10)
	default:
		return kv.String()
	}
}

// mapKeyFor converts a textual key into a map key of type t. Integer keys only
// resolve from their canonical decimal text.
func mapKeyFor(t reflect.Type, name string) (reflect.Value, bool) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(name).Convert(t), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(name, 10, t.Bits())
		if err != nil || strconv.FormatInt(n, 10) != name {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n).Convert(t), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(name, 10, t.Bits())
		if err != nil || strconv.FormatUint(n, 10) != name {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n).Convert(t), true
	default:
		return reflect.Value{}, false
	}
}

var structFieldCache sync.Map // reflect.Type -> []structField

func structFields(t reflect.Type) []structField {
	if cached, ok := structFieldCache.Load(t); ok {
		return cached.([]structField)
	}
	actual, _ := structFieldCache.LoadOrStore(t, collectStructFields(t))
	return actual.([]structField)
}

type fieldCandidate struct {
	structField
	tagged bool
}

// collectStructFields walks embedded structs breadth first and resolves
// promoted names the way encoding/json does: the shallowest field wins, a
// single tagged field wins a tie at that depth, and names left ambiguous are
// dropped. Fields are returned in index order.
func collectStructFields(t reflect.Type) []structField {
	type level struct {
		typ   reflect.Type
		index []int
	}
	var current []level
	next := []level{{typ: t}}
	count, nextCount := map[reflect.Type]int{}, map[reflect.Type]int{}
	visited := map[reflect.Type]bool{}
	var cands []fieldCandidate

	for len(next) > 0 {
		current, next = next, current[:0]
		count, nextCount = nextCount, map[reflect.Type]int{}
		for _, lv := range current {
			if visited[lv.typ] {
				continue
			}
			visited[lv.typ] = true
			for i := 0; i < lv.typ.NumField(); i++ {
				sf := lv.typ.Field(i)
				ft := derefType(sf.Type)
				if !sf.IsExported() && !(sf.Anonymous && ft.Kind() == reflect.Struct) {
					continue
				}
				name, tagged := structKey(sf)
				if name == "-" {
					continue
				}
				index := appendIndex(lv.index, i)
				if sf.Anonymous && ft.Kind() == reflect.Struct && (!tagged || !sf.IsExported()) {
					nextCount[ft]++
					if nextCount[ft] == 1 {
						next = append(next, level{typ: ft, index: index})
					}
					continue
				}
				cands = append(cands, fieldCandidate{structField{name: name, index: index}, tagged})
				if count[lv.typ] > 1 {
					// Embedded twice at this depth: the copies cancel out.
					cands = append(cands, cands[len(cands)-1])
				}
			}
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.name != b.name {
			return a.name < b.name
		}
		if len(a.index) != len(b.index) {
			return len(a.index) < len(b.index)
		}
		if a.tagged != b.tagged {
			return a.tagged
		}
		return lessIndex(a.index, b.index)
	})
	out := make([]structField, 0, len(cands))
	for i := 0; i < len(cands); {
		j := i + 1
		for j < len(cands) && cands[j].name == cands[i].name {
			j++
		}
		group := cands[i:j]
		if len(group) == 1 || len(group[0].index) < len(group[1].index) || group[0].tagged != group[1].tagged {
			out = append(out, group[0].structField)
		}
		i = j
	}
	sort.Slice(out, func(i, j int) bool { return lessIndex(out[i].index, out[j].index) })
	return out
}

func lessIndex(a, b []int) bool {
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) < len(b)
}

func appendIndex(prefix []int, idx ...int) []int {
	out := make([]int, 0, len(prefix)+len(idx))
	out = append(out, prefix...)
	return append(out, idx...)
}
