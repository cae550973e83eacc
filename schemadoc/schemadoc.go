// Package schemadoc loads schemas from declarative YAML or JSON documents.
//
// A document is either a single schema node or a mapping with an optional
// "definitions" table and a root "schema":
//
//	definitions:
//	  entry:
//	    kind: union
//	    of:
//	      - kind: object
//	        required: {type: {kind: literal, value: File}, size: number}
//	      - kind: object
//	        required: {type: {kind: literal, value: Folder}, items: {kind: array, element: {kind: recursion}}}
//	schema:
//	  kind: recursive
//	  body: {ref: entry}
//
// A bare kind name ("string", "number", ...) stands for {kind: <name>}.
// {ref: name} inlines a definition; definitions are built once and shared.
// Self-reference must go through a recursive node, so a definition that
// reaches itself through refs alone is reported as ref_cycle.
package schemadoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	goshape "github.com/reoring/goshape"
)

// Options configures document loading.
type Options struct {
	// Classes resolves class nodes by name.
	Classes map[string]reflect.Type
	// Decode configures reading the document itself. The zero value means
	// goshape.DefaultDecodeOpt().
	Decode *goshape.DecodeOpt
}

func (o Options) decodeOpt() goshape.DecodeOpt {
	if o.Decode != nil {
		return *o.Decode
	}
	return goshape.DefaultDecodeOpt()
}

// node is the decoded form of one schema mapping. Which fields apply depends
// on Kind; see fieldsByKind.
type node struct {
	Kind     string         `mapstructure:"kind"`
	Ref      string         `mapstructure:"ref"`
	Value    any            `mapstructure:"value"`
	Values   []any          `mapstructure:"values"`
	Element  any            `mapstructure:"element"`
	Items    []any          `mapstructure:"items"`
	Required map[string]any `mapstructure:"required"`
	Optional map[string]any `mapstructure:"optional"`
	Key      any            `mapstructure:"key"`
	Of       []any          `mapstructure:"of"`
	Name     string         `mapstructure:"name"`
	Body     any            `mapstructure:"body"`
}

var fieldsByKind = map[string][]string{
	"literal":       {"value"},
	"literalUnion":  {"values"},
	"array":         {"element"},
	"nonEmptyArray": {"element"},
	"tuple":         {"items"},
	"object":        {"required", "optional"},
	"record":        {"key", "value"},
	"union":         {"of"},
	"intersection":  {"of"},
	"class":         {"name"},
	"recursive":     {"body"},
}

var primitives = map[goshape.Kind]func() *goshape.Schema{
	goshape.KindString:    goshape.String,
	goshape.KindNumber:    goshape.Number,
	goshape.KindBoolean:   goshape.Boolean,
	goshape.KindBigInt:    goshape.BigInt,
	goshape.KindSymbol:    goshape.SymbolType,
	goshape.KindUndefined: goshape.UndefinedType,
	goshape.KindNull:      goshape.Null,
	goshape.KindNullish:   goshape.Nullish,
	goshape.KindUnknown:   goshape.Unknown,
	goshape.KindAny:       goshape.Any,
	goshape.KindNever:     goshape.Never,
	goshape.KindVoid:      goshape.Void,
}

// LoadFile reads a schema document from path. Files ending in .json are read
// as JSON, everything else as YAML.
func LoadFile(ctx context.Context, path string, opt Options) (*goshape.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	src := goshape.YAMLBytes(data)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		src = goshape.JSONBytes(data)
	}
	return Load(ctx, src, opt)
}

// Load decodes a schema document from src and builds it.
func Load(ctx context.Context, src goshape.Source, opt Options) (*goshape.Schema, error) {
	v, err := goshape.Decode(ctx, src, opt.decodeOpt())
	if err != nil {
		return nil, err
	}
	return FromValue(v, opt)
}

// FromValue builds a schema from an already decoded document. The result has
// passed goshape.Check. Errors are goshape.Issues with document paths.
func FromValue(doc any, opt Options) (*goshape.Schema, error) {
	l := &loader{
		opt:       opt,
		built:     map[string]*goshape.Schema{},
		resolving: map[string]bool{},
	}
	root, rootPath := doc, ""
	if m, ok := doc.(map[string]any); ok && isDocument(m) {
		for k := range m {
			if k != "definitions" && k != "schema" {
				l.fail(goshape.JoinPointer("", k), goshape.CodeInvalidSchema, "unknown document field")
			}
		}
		if defs, present := m["definitions"]; present {
			dm, ok := defs.(map[string]any)
			if !ok {
				l.fail("/definitions", goshape.CodeInvalidSchema, "definitions must be a mapping")
			}
			l.defs = dm
		}
		var present bool
		root, present = m["schema"]
		if !present {
			l.fail("/", goshape.CodeInvalidSchema, "document has no schema")
			return nil, l.issues
		}
		rootPath = "/schema"
		// Build every definition so errors surface even in unused entries.
		for _, name := range sortedKeys(l.defs) {
			l.ref(name, goshape.JoinPointer("/definitions", name))
		}
	}
	s := l.build(root, rootPath)
	if len(l.issues) > 0 {
		return nil, l.issues
	}
	if err := goshape.Check(s); err != nil {
		return nil, err
	}
	return s, nil
}

func isDocument(m map[string]any) bool {
	_, hasSchema := m["schema"]
	_, hasDefs := m["definitions"]
	_, hasKind := m["kind"]
	return (hasSchema || hasDefs) && !hasKind
}

type loader struct {
	opt       Options
	defs      map[string]any
	built     map[string]*goshape.Schema
	resolving map[string]bool
	issues    goshape.Issues
}

func (l *loader) fail(path, code, msg string) *goshape.Schema {
	if path == "" {
		path = "/"
	}
	l.issues = goshape.AppendIssues(l.issues, goshape.Issue{Path: path, Code: code, Message: msg, Offset: -1})
	return goshape.Never()
}

// build never returns nil; failures record an issue and yield a placeholder.
func (l *loader) build(raw any, path string) *goshape.Schema {
	switch t := raw.(type) {
	case string:
		return l.kindOnly(t, path)
	case map[string]any:
		return l.buildNode(t, path)
	default:
		return l.fail(path, goshape.CodeInvalidSchema, fmt.Sprintf("expected a kind name or a mapping, got %T", raw))
	}
}

func (l *loader) kindOnly(name, path string) *goshape.Schema {
	if name == "recursion" {
		return goshape.Recursion()
	}
	k, ok := goshape.KindByName(name)
	if !ok {
		return l.fail(path, goshape.CodeUnknownKind, "unknown kind "+strconv.Quote(name))
	}
	if ctor, ok := primitives[k]; ok {
		return ctor()
	}
	return l.fail(path, goshape.CodeInvalidSchema, "kind "+strconv.Quote(name)+" needs a mapping")
}

func (l *loader) buildNode(m map[string]any, path string) *goshape.Schema {
	var n node
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:    &md,
		ErrorUnused: true,
		Result:      &n,
	})
	if err != nil {
		return l.fail(path, goshape.CodeInvalidSchema, err.Error())
	}
	if err := dec.Decode(m); err != nil {
		return l.fail(path, goshape.CodeInvalidSchema, err.Error())
	}
	present := make(map[string]bool, len(md.Keys))
	for _, k := range md.Keys {
		present[k] = true
	}

	if present["ref"] {
		if len(m) != 1 {
			return l.fail(path, goshape.CodeInvalidSchema, "ref must be the only field")
		}
		return l.ref(n.Ref, path)
	}
	if n.Kind == "" {
		return l.fail(path, goshape.CodeInvalidSchema, "missing kind")
	}
	allowed := fieldsByKind[n.Kind]
	for k := range m {
		if k != "kind" && !contains(allowed, k) {
			l.fail(goshape.JoinPointer(path, k), goshape.CodeInvalidSchema, fmt.Sprintf("field does not apply to kind %q", n.Kind))
		}
	}

	switch n.Kind {
	case "literal":
		if !present["value"] {
			return l.fail(path, goshape.CodeInvalidSchema, "literal needs a value")
		}
		if !isScalar(n.Value) {
			return l.fail(path+"/value", goshape.CodeInvalidSchema, "literal value must be a scalar")
		}
		return goshape.Literal(n.Value)
	case "literalUnion":
		for i, v := range n.Values {
			if !isScalar(v) {
				return l.fail(path+"/values/"+strconv.Itoa(i), goshape.CodeInvalidSchema, "literal value must be a scalar")
			}
		}
		return goshape.LiteralUnion(n.Values...)
	case "array", "nonEmptyArray":
		if !present["element"] {
			return l.fail(path, goshape.CodeInvalidSchema, n.Kind+" needs an element")
		}
		elem := l.build(n.Element, path+"/element")
		if n.Kind == "array" {
			return goshape.Array(elem)
		}
		return goshape.NonEmptyArray(elem)
	case "tuple":
		return goshape.Tuple(l.list(n.Items, path+"/items")...)
	case "object":
		req := l.fields(n.Required, path+"/required")
		opt := l.fields(n.Optional, path+"/optional")
		for name := range opt {
			if _, dup := req[name]; dup {
				return l.fail(goshape.JoinPointer(path+"/optional", name), goshape.CodeInvalidSchema, "field is both required and optional")
			}
		}
		return goshape.Object(req, opt)
	case "record":
		if !present["key"] || !present["value"] {
			return l.fail(path, goshape.CodeInvalidSchema, "record needs key and value")
		}
		return goshape.Record(l.build(n.Key, path+"/key"), l.build(n.Value, path+"/value"))
	case "union":
		return goshape.Union(l.list(n.Of, path+"/of")...)
	case "intersection":
		return goshape.Intersection(l.list(n.Of, path+"/of")...)
	case "class":
		t, ok := l.opt.Classes[n.Name]
		if !ok || t == nil {
			return l.fail(path+"/name", goshape.CodeUnknownClass, "unknown class "+strconv.Quote(n.Name))
		}
		return goshape.Class(t)
	case "recursive":
		if !present["body"] {
			return l.fail(path, goshape.CodeInvalidSchema, "recursive needs a body")
		}
		return goshape.Recursive(l.build(n.Body, path+"/body"))
	default:
		return l.kindOnly(n.Kind, path+"/kind")
	}
}

func (l *loader) ref(name, path string) *goshape.Schema {
	if s, ok := l.built[name]; ok {
		return s
	}
	if l.resolving[name] {
		return l.fail(path, goshape.CodeRefCycle, "definition "+strconv.Quote(name)+" refers to itself without a recursive node")
	}
	raw, ok := l.defs[name]
	if !ok {
		return l.fail(path, goshape.CodeUnknownRef, "unknown definition "+strconv.Quote(name))
	}
	l.resolving[name] = true
	s := l.build(raw, goshape.JoinPointer("/definitions", name))
	delete(l.resolving, name)
	l.built[name] = s
	return s
}

func (l *loader) list(raws []any, path string) []*goshape.Schema {
	out := make([]*goshape.Schema, len(raws))
	for i, r := range raws {
		out[i] = l.build(r, path+"/"+strconv.Itoa(i))
	}
	return out
}

func (l *loader) fields(raws map[string]any, path string) goshape.Fields {
	out := make(goshape.Fields, len(raws))
	for _, name := range sortedKeys(raws) {
		out[name] = l.build(raws[name], goshape.JoinPointer(path, name))
	}
	return out
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
