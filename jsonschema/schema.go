// Package jsonschema exports goshape schemas as JSON Schema (draft 2020-12).
//
// The export covers the JSON-representable subset: bigint, symbol, undefined,
// void and class nodes have no JSON counterpart and are reported as
// ErrUnsupported. Recursive nodes become entries in $defs and recursion
// markers become $refs to the innermost enclosing entry.
package jsonschema

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	goshape "github.com/reoring/goshape"
)

// Draft is the dialect URI written to $schema.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// ErrUnsupported reports a node with no JSON Schema counterpart.
var ErrUnsupported = errors.New("jsonschema: not representable")

// Schema is a minimal JSON Schema representation used for export.
type Schema struct {
	Dialect string             `json:"$schema,omitempty"`
	Ref     string             `json:"$ref,omitempty"`
	Defs    map[string]*Schema `json:"$defs,omitempty"`

	// Core
	Type  string `json:"type,omitempty"`
	Const any    `json:"const,omitempty"`
	Enum  []any  `json:"enum,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	PropertyNames        *Schema            `json:"propertyNames,omitempty"`
	Pattern              string             `json:"pattern,omitempty"`

	// Array
	PrefixItems []*Schema `json:"prefixItems,omitempty"`
	Items       any       `json:"items,omitempty"` // *Schema, or false after prefixItems
	MinItems    *int      `json:"minItems,omitempty"`
	MaxItems    *int      `json:"maxItems,omitempty"`

	// Composition
	AnyOf []*Schema `json:"anyOf,omitempty"`
	AllOf []*Schema `json:"allOf,omitempty"`
	Not   *Schema   `json:"not,omitempty"`
}

// canonicalIndexPattern matches the keys a numeric record key accepts.
const canonicalIndexPattern = "^(0|[1-9][0-9]*)$"

// FromSchema converts s. The error wraps ErrUnsupported and names the path of
// the offending node.
func FromSchema(s *goshape.Schema) (*Schema, error) {
	c := &converter{defs: map[string]*Schema{}, memo: map[memoKey]string{}}
	out, err := c.convert(s, "")
	if err != nil {
		return nil, err
	}
	out.Dialect = Draft
	if len(c.defs) > 0 {
		out.Defs = c.defs
	}
	return out, nil
}

type memoKey struct {
	node  *goshape.Schema
	scope string
}

type converter struct {
	defs     map[string]*Schema
	memo     map[memoKey]string
	bindings []string
}

func unsupported(path string, k goshape.Kind) error {
	if path == "" {
		path = "/"
	}
	return fmt.Errorf("%w: %s at %s", ErrUnsupported, k, path)
}

func nothing() *Schema { return &Schema{Not: &Schema{}} }

func intPtr(n int) *int { return &n }

func (c *converter) convert(s *goshape.Schema, path string) (*Schema, error) {
	switch k := s.Kind(); k {
	case goshape.KindString:
		return &Schema{Type: "string"}, nil
	case goshape.KindNumber:
		return &Schema{Type: "number"}, nil
	case goshape.KindBoolean:
		return &Schema{Type: "boolean"}, nil
	case goshape.KindNull, goshape.KindNullish:
		return &Schema{Type: "null"}, nil
	case goshape.KindUnknown, goshape.KindAny:
		return &Schema{}, nil
	case goshape.KindNever:
		return nothing(), nil
	case goshape.KindLiteral, goshape.KindLiteralUnion:
		return literals(s.Literals(), k, path)
	case goshape.KindArray, goshape.KindNonEmptyArray:
		elem, err := c.convert(s.Elem(), path+"/element")
		if err != nil {
			return nil, err
		}
		out := &Schema{Type: "array", Items: elem}
		if k == goshape.KindNonEmptyArray {
			out.MinItems = intPtr(1)
		}
		return out, nil
	case goshape.KindTuple:
		items := s.Items()
		out := &Schema{Type: "array", Items: false, MinItems: intPtr(len(items)), MaxItems: intPtr(len(items))}
		for i, it := range items {
			js, err := c.convert(it, path+"/items/"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			out.PrefixItems = append(out.PrefixItems, js)
		}
		return out, nil
	case goshape.KindObject:
		return c.object(s, path)
	case goshape.KindRecord:
		val, err := c.convert(s.Value(), path+"/value")
		if err != nil {
			return nil, err
		}
		names, err := c.propertyNames(s.Key(), path+"/key")
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: val, PropertyNames: names}, nil
	case goshape.KindUnion, goshape.KindIntersection:
		items := s.Items()
		if len(items) == 0 {
			if k == goshape.KindUnion {
				return nothing(), nil
			}
			return &Schema{}, nil
		}
		members := make([]*Schema, len(items))
		for i, it := range items {
			js, err := c.convert(it, path+"/items/"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			members[i] = js
		}
		if k == goshape.KindUnion {
			return &Schema{AnyOf: members}, nil
		}
		return &Schema{AllOf: members}, nil
	case goshape.KindRecursive:
		return c.recursive(s, path)
	case goshape.KindRecursion:
		n := len(c.bindings)
		if n == 0 {
			return nil, fmt.Errorf("jsonschema: %w at %s", goshape.ErrUnboundRecursion, path)
		}
		return &Schema{Ref: "#/$defs/" + c.bindings[n-1]}, nil
	default:
		return nil, unsupported(path, k)
	}
}

func (c *converter) object(s *goshape.Schema, path string) (*Schema, error) {
	out := &Schema{Type: "object", Properties: map[string]*Schema{}}
	req := s.Required()
	for _, name := range sortedNames(req) {
		js, err := c.convert(req[name], goshape.JoinPointer(path+"/required", name))
		if err != nil {
			return nil, err
		}
		out.Properties[name] = js
		out.Required = append(out.Required, name)
	}
	opt := s.Optional()
	for _, name := range sortedNames(opt) {
		js, err := c.convert(opt[name], goshape.JoinPointer(path+"/optional", name))
		if err != nil {
			return nil, err
		}
		out.Properties[name] = js
	}
	if len(out.Properties) == 0 {
		out.Properties = nil
	}
	return out, nil
}

func (c *converter) recursive(s *goshape.Schema, path string) (*Schema, error) {
	scope := ""
	if n := len(c.bindings); n > 0 {
		scope = c.bindings[n-1]
	}
	key := memoKey{node: s, scope: scope}
	if name, ok := c.memo[key]; ok {
		return &Schema{Ref: "#/$defs/" + name}, nil
	}
	name := "node" + strconv.Itoa(len(c.memo))
	c.memo[key] = name

	c.bindings = append(c.bindings, name)
	body, err := c.convert(s.Body(), path+"/body")
	c.bindings = c.bindings[:len(c.bindings)-1]
	if err != nil {
		return nil, err
	}
	c.defs[name] = body
	return &Schema{Ref: "#/$defs/" + name}, nil
}

// propertyNames projects a record key schema onto the key text. String keys
// need no constraint.
func (c *converter) propertyNames(key *goshape.Schema, path string) (*Schema, error) {
	switch k := key.Kind(); k {
	case goshape.KindString, goshape.KindAny, goshape.KindUnknown:
		return nil, nil
	case goshape.KindNumber:
		return &Schema{Pattern: canonicalIndexPattern}, nil
	case goshape.KindNever:
		return nothing(), nil
	case goshape.KindLiteral, goshape.KindLiteralUnion:
		var names []any
		for _, v := range key.Literals() {
			if text, ok := keyText(v); ok {
				names = append(names, text)
			}
		}
		if len(names) == 0 {
			return nothing(), nil
		}
		return &Schema{Enum: names}, nil
	case goshape.KindUnion:
		items := key.Items()
		if len(items) == 0 {
			return nothing(), nil
		}
		out := &Schema{}
		for i, it := range items {
			js, err := c.propertyNames(it, path+"/items/"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			if js == nil {
				return nil, nil
			}
			out.AnyOf = append(out.AnyOf, js)
		}
		return out, nil
	default:
		return nil, unsupported(path, k)
	}
}

// keyText returns the key spelling a literal record key matches.
func keyText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		if t >= 0 && t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'f', -1, 64), true
		}
	}
	return "", false
}

func literals(vals []any, k goshape.Kind, path string) (*Schema, error) {
	out := make([]any, 0, len(vals))
	for _, v := range vals {
		switch t := v.(type) {
		case nil, string, bool:
			out = append(out, t)
		case float64:
			if math.IsNaN(t) || math.IsInf(t, 0) {
				return nil, unsupported(path, k)
			}
			out = append(out, t)
		default:
			return nil, unsupported(path, k)
		}
	}
	if len(out) == 0 {
		return nothing(), nil
	}
	if len(out) == 1 && out[0] != nil {
		return &Schema{Const: out[0]}, nil
	}
	return &Schema{Enum: out}, nil
}

func sortedNames(fs goshape.Fields) []string {
	names := make([]string, 0, len(fs))
	for n := range fs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
