package schemadoc_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/schemadoc"
)

type blob struct{}

func load(t *testing.T, doc string, opt schemadoc.Options) (*goshape.Schema, error) {
	t.Helper()
	return schemadoc.Load(context.Background(), goshape.YAMLBytes([]byte(doc)), opt)
}

func mustLoad(t *testing.T, doc string, opt schemadoc.Options) *goshape.Schema {
	t.Helper()
	s, err := load(t, doc, opt)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func expectIssue(t *testing.T, err error, code, path string) {
	t.Helper()
	iss, ok := goshape.AsIssues(err)
	if !ok {
		t.Fatalf("expected Issues, got %v", err)
	}
	for _, it := range iss {
		if it.Code == code && it.Path == path {
			return
		}
	}
	t.Fatalf("expected %s at %s, got %v", code, path, iss)
}

const fileSystem = `
definitions:
  entry:
    kind: union
    of:
      - kind: object
        required:
          type: {kind: literal, value: File}
          content: {kind: class, name: Blob}
      - kind: object
        required:
          type: {kind: literal, value: Folder}
          items: {kind: array, element: recursion}
schema:
  kind: recursive
  body: {ref: entry}
`

// TestLoad_Document builds a recursive schema through definitions.
func TestLoad_Document(t *testing.T) {
	opt := schemadoc.Options{Classes: map[string]reflect.Type{"Blob": reflect.TypeOf((*blob)(nil)).Elem()}}
	s := mustLoad(t, fileSystem, opt)
	file := map[string]any{"type": "File", "content": &blob{}}
	if !goshape.IsValid(map[string]any{"type": "Folder", "items": []any{file}}, s) {
		t.Fatalf("expected folder to be valid against %s", s)
	}
	if goshape.IsValid(map[string]any{"type": "Folder", "items": []any{map[string]any{"type": "File"}}}, s) {
		t.Fatalf("file without content must be invalid")
	}
}

// TestLoad_SingleNode accepts a schema node without the document wrapper.
func TestLoad_SingleNode(t *testing.T) {
	s := mustLoad(t, "kind: record\nkey: {kind: literalUnion, values: [a, 0]}\nvalue: any\n", schemadoc.Options{})
	if !goshape.IsValid(map[string]any{"a": true, "0": "first"}, s) {
		t.Fatalf("expected mixed keys to match %s", s)
	}
	if goshape.IsValid(map[string]any{"b": 1}, s) {
		t.Fatalf("key b must not match")
	}

	s = mustLoad(t, "string", schemadoc.Options{})
	if s.Kind() != goshape.KindString {
		t.Fatalf("bare kind name: got %s", s)
	}
}

// TestLoad_Kinds exercises every composite node.
func TestLoad_Kinds(t *testing.T) {
	doc := `
kind: object
required:
  tags: {kind: nonEmptyArray, element: string}
  pair: {kind: tuple, items: [boolean, number]}
  both:
    kind: intersection
    of:
      - {kind: object, required: {a: number}}
      - {kind: object, required: {b: number}}
optional:
  note: {kind: union, of: [string, "null"]}
`
	s := mustLoad(t, doc, schemadoc.Options{})
	want := "object{both: intersection(object{a: number}, object{b: number}), note?: union(string, null), pair: tuple(boolean, number), tags: nonEmptyArray<string>}"
	if s.String() != want {
		t.Fatalf("got %s\nwant %s", s, want)
	}
	ok := map[string]any{"tags": []any{"x"}, "pair": []any{true, 1.0}, "both": map[string]any{"a": 1.0, "b": 2.0}, "note": nil}
	if !goshape.IsValid(ok, s) {
		t.Fatalf("expected valid")
	}
}

// TestLoad_SharedDefinitions builds each definition once.
func TestLoad_SharedDefinitions(t *testing.T) {
	doc := `
definitions:
  id: {kind: literalUnion, values: [1, 2]}
schema: {kind: tuple, items: [{ref: id}, {ref: id}]}
`
	s := mustLoad(t, doc, schemadoc.Options{})
	items := s.Items()
	if len(items) != 2 || items[0] != items[1] {
		t.Fatalf("expected the same node for both refs")
	}
}

// TestLoad_Errors reports each problem with its document path.
func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		code string
		path string
	}{
		{"unknown kind", "kind: bogus\n", goshape.CodeUnknownKind, "/kind"},
		{"unknown bare kind", "bogus\n", goshape.CodeUnknownKind, "/"},
		{"composite needs mapping", "array\n", goshape.CodeInvalidSchema, "/"},
		{"missing kind", "element: string\n", goshape.CodeInvalidSchema, "/"},
		{"unknown field", "kind: string\nfoo: 1\n", goshape.CodeInvalidSchema, "/"},
		{"field does not apply", "kind: string\nelement: number\n", goshape.CodeInvalidSchema, "/element"},
		{"literal needs value", "kind: literal\n", goshape.CodeInvalidSchema, "/"},
		{"literal not scalar", "kind: literal\nvalue: [1]\n", goshape.CodeInvalidSchema, "/value"},
		{"literal union not scalar", "kind: literalUnion\nvalues: [a, {b: 1}]\n", goshape.CodeInvalidSchema, "/values/1"},
		{"array needs element", "kind: array\n", goshape.CodeInvalidSchema, "/"},
		{"record needs key", "kind: record\nvalue: any\n", goshape.CodeInvalidSchema, "/"},
		{"recursive needs body", "kind: recursive\n", goshape.CodeInvalidSchema, "/"},
		{"both required and optional", "kind: object\nrequired: {a: string}\noptional: {a: number}\n", goshape.CodeInvalidSchema, "/optional/a"},
		{"unknown class", "kind: class\nname: Missing\n", goshape.CodeUnknownClass, "/name"},
		{"unbound recursion", "kind: array\nelement: recursion\n", goshape.CodeUnboundRecursion, "/element"},
		{"bad node type", "kind: tuple\nitems: [1]\n", goshape.CodeInvalidSchema, "/items/0"},
		{"unknown ref", "schema: {ref: missing}\n", goshape.CodeUnknownRef, "/schema"},
		{"ref with siblings", "definitions: {a: string}\nschema: {ref: a, kind: string}\n", goshape.CodeInvalidSchema, "/schema"},
		{"ref cycle", "definitions:\n  a: {ref: b}\n  b: {ref: a}\nschema: {ref: a}\n", goshape.CodeRefCycle, "/definitions/b"},
		{"no schema", "definitions: {a: string}\n", goshape.CodeInvalidSchema, "/"},
		{"unknown document field", "schema: string\nextra: 1\n", goshape.CodeInvalidSchema, "/extra"},
		{"unused definition is still built", "definitions: {a: bogus}\nschema: string\n", goshape.CodeUnknownKind, "/definitions/a"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := load(t, c.doc, schemadoc.Options{})
			expectIssue(t, err, c.code, c.path)
		})
	}
}

// TestLoad_DecodeErrors surfaces input problems of the document itself.
func TestLoad_DecodeErrors(t *testing.T) {
	_, err := load(t, "kind: string\nkind: number\n", schemadoc.Options{})
	expectIssue(t, err, goshape.CodeDuplicateKey, "/kind")
}

// TestLoadFile picks the format from the file extension.
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "user.json")
	if err := os.WriteFile(jsonPath, []byte(`{"kind":"object","required":{"name":"string"},"optional":{"age":"number"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := schemadoc.LoadFile(context.Background(), jsonPath, schemadoc.Options{})
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if !goshape.IsValid(map[string]any{"name": "a", "age": 1.0}, s) {
		t.Fatalf("expected valid against %s", s)
	}

	yamlPath := filepath.Join(dir, "list.yaml")
	if err := os.WriteFile(yamlPath, []byte("kind: array\nelement: number\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if s, err = schemadoc.LoadFile(context.Background(), yamlPath, schemadoc.Options{}); err != nil || s.Kind() != goshape.KindArray {
		t.Fatalf("load yaml: %v %v", s, err)
	}

	if _, err := schemadoc.LoadFile(context.Background(), filepath.Join(dir, "missing.yaml"), schemadoc.Options{}); err == nil {
		t.Fatalf("expected read error")
	}
}

// TestFromValue builds from an already decoded tree.
func TestFromValue(t *testing.T) {
	s, err := schemadoc.FromValue(map[string]any{"kind": "literal", "value": 0.0}, schemadoc.Options{})
	if err != nil {
		t.Fatalf("from value: %v", err)
	}
	if !goshape.IsValid(0, s) {
		t.Fatalf("expected literal 0")
	}
}
