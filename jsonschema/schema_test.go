package jsonschema_test

import (
	"errors"
	"reflect"
	"testing"

	json "github.com/goccy/go-json"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/jsonschema"
)

func export(t *testing.T, s *goshape.Schema) map[string]any {
	t.Helper()
	js, err := jsonschema.FromSchema(s)
	if err != nil {
		t.Fatalf("FromSchema: %v", err)
	}
	b, err := json.Marshal(js)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	delete(out, "$schema")
	return out
}

func parse(t *testing.T, s string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("bad expectation %s: %v", s, err)
	}
	return out
}

func TestFromSchema(t *testing.T) {
	tests := []struct {
		name   string
		schema *goshape.Schema
		want   string
	}{
		{"string", goshape.String(), `{"type":"string"}`},
		{"any", goshape.Any(), `{}`},
		{"never", goshape.Never(), `{"not":{}}`},
		{"nullish", goshape.Nullish(), `{"type":"null"}`},
		{"literal", goshape.Literal("File"), `{"const":"File"}`},
		{"literal false", goshape.Literal(false), `{"const":false}`},
		{"literal null", goshape.Literal(nil), `{"enum":[null]}`},
		{"literal union", goshape.LiteralUnion("a", 1.0), `{"enum":["a",1]}`},
		{"non-empty array", goshape.NonEmptyArray(goshape.Number()), `{"type":"array","items":{"type":"number"},"minItems":1}`},
		{"tuple", goshape.Tuple(goshape.Boolean(), goshape.Number()),
			`{"type":"array","prefixItems":[{"type":"boolean"},{"type":"number"}],"items":false,"minItems":2,"maxItems":2}`},
		{"object", goshape.Object(goshape.Fields{"name": goshape.String()}, goshape.Fields{"age": goshape.Number()}),
			`{"type":"object","properties":{"name":{"type":"string"},"age":{"type":"number"}},"required":["name"]}`},
		{"record numeric keys", goshape.Record(goshape.Number(), goshape.Any()),
			`{"type":"object","additionalProperties":{},"propertyNames":{"pattern":"^(0|[1-9][0-9]*)$"}}`},
		{"record literal keys", goshape.Record(goshape.LiteralUnion("a", 0), goshape.Any()),
			`{"type":"object","additionalProperties":{},"propertyNames":{"enum":["a","0"]}}`},
		{"empty union", goshape.Union(), `{"not":{}}`},
		{"empty intersection", goshape.Intersection(), `{}`},
		{"union", goshape.Union(goshape.String(), goshape.Null()), `{"anyOf":[{"type":"string"},{"type":"null"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := export(t, tt.schema)
			if want := parse(t, tt.want); !reflect.DeepEqual(got, want) {
				t.Fatalf("got %v, want %v", got, want)
			}
		})
	}
}

func TestFromSchema_Recursive(t *testing.T) {
	tree := goshape.Recursive(goshape.Object(goshape.Fields{
		"children": goshape.Array(goshape.Recursion()),
	}))
	got := export(t, tree)
	want := parse(t, `{
		"$ref": "#/$defs/node0",
		"$defs": {
			"node0": {
				"type": "object",
				"properties": {"children": {"type": "array", "items": {"$ref": "#/$defs/node0"}}},
				"required": ["children"]
			}
		}
	}`)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFromSchema_NestedRecursiveBindsInnermost(t *testing.T) {
	inner := goshape.Recursive(goshape.Union(goshape.Null(), goshape.Array(goshape.Recursion())))
	outer := goshape.Recursive(goshape.Object(goshape.Fields{
		"inner": inner,
		"next":  goshape.Union(goshape.Null(), goshape.Recursion()),
	}))
	got := export(t, outer)
	defs, _ := got["$defs"].(map[string]any)
	if len(defs) != 2 {
		t.Fatalf("want 2 defs, got %v", defs)
	}
	innerDef := defs["node1"].(map[string]any)
	ref := innerDef["anyOf"].([]any)[1].(map[string]any)["items"].(map[string]any)["$ref"]
	if ref != "#/$defs/node1" {
		t.Fatalf("inner marker should bind to node1, got %v", ref)
	}
	outerDef := defs["node0"].(map[string]any)
	next := outerDef["properties"].(map[string]any)["next"].(map[string]any)["anyOf"].([]any)[1].(map[string]any)["$ref"]
	if next != "#/$defs/node0" {
		t.Fatalf("outer marker should bind to node0, got %v", next)
	}
}

func TestFromSchema_Unsupported(t *testing.T) {
	for _, s := range []*goshape.Schema{
		goshape.BigInt(),
		goshape.SymbolType(),
		goshape.Void(),
		goshape.ClassOf[struct{}](),
		goshape.Object(goshape.Fields{"n": goshape.UndefinedType()}),
		goshape.Record(goshape.Boolean(), goshape.Any()),
	} {
		_, err := jsonschema.FromSchema(s)
		if !errors.Is(err, jsonschema.ErrUnsupported) {
			t.Fatalf("%s: want ErrUnsupported, got %v", s, err)
		}
	}
	if _, err := jsonschema.FromSchema(goshape.Array(goshape.Recursion())); !errors.Is(err, goshape.ErrUnboundRecursion) {
		t.Fatalf("want ErrUnboundRecursion, got %v", err)
	}
}

func TestFromSchema_Dialect(t *testing.T) {
	js, err := jsonschema.FromSchema(goshape.String())
	if err != nil {
		t.Fatal(err)
	}
	if js.Dialect != jsonschema.Draft {
		t.Fatalf("dialect = %q", js.Dialect)
	}
}
