package goshape_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	goshape "github.com/reoring/goshape"
)

func firstIssue(t *testing.T, err error) goshape.Issue {
	t.Helper()
	iss, ok := goshape.AsIssues(err)
	if !ok || len(iss) == 0 {
		t.Fatalf("expected Issues, got %v", err)
	}
	return iss[0]
}

// TestDecode_JSON produces the value model IsValid understands.
func TestDecode_JSON(t *testing.T) {
	ctx := context.Background()
	v, err := goshape.Decode(ctx, goshape.JSONBytes([]byte(`{"name":"x","tags":["a",1,true,null]}`)), goshape.DefaultDecodeOpt())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := goshape.Object(goshape.Fields{
		"name": goshape.String(),
		"tags": goshape.Tuple(goshape.String(), goshape.Number(), goshape.Boolean(), goshape.Null()),
	})
	if !goshape.IsValid(v, s) {
		t.Fatalf("decoded value %#v does not match %s", v, s)
	}
	if _, ok := v.(map[string]any)["tags"].([]any)[1].(float64); !ok {
		t.Fatalf("numbers default to float64")
	}
}

// TestDecode_DuplicateKey reports the pointer of the duplicated member.
func TestDecode_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	for input, path := range map[string]string{
		`{"a":1,"a":2}`:           "/a",
		`[{"a":1,"a":2}]`:         "/0/a",
		`{"x":{"k/y":1,"k/y":2}}`: "/x/k~1y",
	} {
		_, err := goshape.Decode(ctx, goshape.JSONBytes([]byte(input)), goshape.DefaultDecodeOpt())
		it := firstIssue(t, err)
		if it.Code != goshape.CodeDuplicateKey || it.Path != path {
			t.Fatalf("%s: got %s at %s, want duplicate_key at %s", input, it.Code, it.Path, path)
		}
	}
}

// TestDecode_DuplicateKeyWarn reports to the sink and keeps the last value.
func TestDecode_DuplicateKeyWarn(t *testing.T) {
	var got []goshape.Issue
	opt := goshape.DecodeOpt{
		Strictness: goshape.Strictness{OnDuplicateKey: goshape.Warn},
		IssueSink:  func(is goshape.Issue) { got = append(got, is) },
	}
	v, err := goshape.Decode(context.Background(), goshape.JSONBytes([]byte(`{"a":1,"a":2}`)), opt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Code != goshape.CodeDuplicateKey {
		t.Fatalf("expected one duplicate_key warning, got %v", got)
	}
	if v.(map[string]any)["a"] != 2.0 {
		t.Fatalf("expected last value to win, got %v", v)
	}
}

// TestDecode_DuplicateKeyIgnore accepts duplicates silently.
func TestDecode_DuplicateKeyIgnore(t *testing.T) {
	if _, err := goshape.Decode(context.Background(), goshape.JSONBytes([]byte(`{"a":1,"a":2}`)), goshape.DecodeOpt{}); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// TestDecode_MaxDepth reports the container that exceeds the limit.
func TestDecode_MaxDepth(t *testing.T) {
	opt := goshape.DecodeOpt{MaxDepth: 2}
	_, err := goshape.Decode(context.Background(), goshape.JSONBytes([]byte(`{"a":{"b":{"c":1}}}`)), opt)
	it := firstIssue(t, err)
	if it.Code != goshape.CodeMaxDepth || it.Path != "/a/b" {
		t.Fatalf("got %s at %s, want max_depth at /a/b", it.Code, it.Path)
	}
	if _, err := goshape.Decode(context.Background(), goshape.JSONBytes([]byte(`{"a":{"b":1}}`)), opt); err != nil {
		t.Fatalf("depth 2 should pass: %v", err)
	}

	deep := strings.Repeat("[", goshape.DefaultMaxDepth+1) + strings.Repeat("]", goshape.DefaultMaxDepth+1)
	_, err = goshape.Decode(context.Background(), goshape.JSONBytes([]byte(deep)), goshape.DefaultDecodeOpt())
	if !goshape.HasCode(err, goshape.CodeMaxDepth) {
		t.Fatalf("expected default depth limit, got %v", err)
	}
}

// TestDecode_MaxBytes stops reading past the budget.
func TestDecode_MaxBytes(t *testing.T) {
	big := `{"data":"` + strings.Repeat("x", 8192) + `"}`
	_, err := goshape.Decode(context.Background(), goshape.JSONBytes([]byte(big)), goshape.DecodeOpt{MaxBytes: 64})
	if !goshape.HasCode(err, goshape.CodeTruncated) {
		t.Fatalf("expected truncated, got %v", err)
	}
	if _, err := goshape.Decode(context.Background(), goshape.JSONBytes([]byte(`{"a":1}`)), goshape.DecodeOpt{MaxBytes: 1024}); err != nil {
		t.Fatalf("small input should pass: %v", err)
	}
}

// TestDecode_InputErrors covers empty, trailing, and malformed input.
func TestDecode_InputErrors(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		``:           goshape.CodeParseError,
		`   `:        goshape.CodeParseError,
		`{"a":1} {}`: goshape.CodeTrailingData,
		`{"a":`:      goshape.CodeParseError,
		`[1,2`:       goshape.CodeParseError,
	}
	for input, code := range cases {
		_, err := goshape.Decode(ctx, goshape.JSONBytes([]byte(input)), goshape.DefaultDecodeOpt())
		if !goshape.HasCode(err, code) {
			t.Fatalf("%q: expected %s, got %v", input, code, err)
		}
	}
}

// TestDecode_Canceled returns context errors unchanged.
func TestDecode_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := goshape.Decode(ctx, goshape.JSONBytes([]byte(`{"a":1}`)), goshape.DefaultDecodeOpt())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := goshape.AsIssues(err); ok {
		t.Fatalf("context errors are not issues")
	}
}

// TestDecode_JSONNumber keeps the number text.
func TestDecode_JSONNumber(t *testing.T) {
	opt := goshape.DefaultDecodeOpt()
	opt.NumberMode = goshape.NumberJSONNumber
	v, err := goshape.Decode(context.Background(), goshape.JSONBytes([]byte(`{"n":12345678901234567890}`)), opt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	n, ok := v.(map[string]any)["n"].(json.Number)
	if !ok || n.String() != "12345678901234567890" {
		t.Fatalf("expected json.Number, got %#v", v)
	}
	if !goshape.IsValid(v, goshape.Record(goshape.String(), goshape.Number())) {
		t.Fatalf("json.Number is a number")
	}
}

// TestDecode_YAML shares the value model with JSON.
func TestDecode_YAML(t *testing.T) {
	doc := "type: Folder\nitems:\n  - type: File\n    size: 3\n  - type: Folder\n    items: []\n"
	v, err := goshape.Decode(context.Background(), goshape.YAMLBytes([]byte(doc)), goshape.DefaultDecodeOpt())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	entry := goshape.Recursive(goshape.Union(
		goshape.Object(goshape.Fields{"type": goshape.Literal("File"), "size": goshape.Number()}),
		goshape.Object(goshape.Fields{"type": goshape.Literal("Folder"), "items": goshape.Array(goshape.Recursion())}),
	))
	if !goshape.IsValid(v, entry) {
		t.Fatalf("yaml tree does not match: %#v", v)
	}

	_, err = goshape.Decode(context.Background(), goshape.YAMLBytes([]byte("a: 1\na: 2\n")), goshape.DefaultDecodeOpt())
	if it := firstIssue(t, err); it.Code != goshape.CodeDuplicateKey || it.Path != "/a" {
		t.Fatalf("got %s at %s, want duplicate_key at /a", it.Code, it.Path)
	}

	_, err = goshape.Decode(context.Background(), goshape.YAMLBytes([]byte("a: 1\n---\nb: 2\n")), goshape.DefaultDecodeOpt())
	if !goshape.HasCode(err, goshape.CodeTrailingData) {
		t.Fatalf("expected trailing_data for a second document, got %v", err)
	}
}

// TestDecodeAll reads every top-level value.
func TestDecodeAll(t *testing.T) {
	ctx := context.Background()
	vs, err := goshape.DecodeAll(ctx, goshape.JSONReader(strings.NewReader(`{"a":1} [2] "three"`)), goshape.DefaultDecodeOpt())
	if err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(vs) != 3 || vs[2] != "three" {
		t.Fatalf("got %#v", vs)
	}

	vs, err = goshape.DecodeAll(ctx, goshape.YAMLReader(strings.NewReader("a: 1\n---\n- 2\n---\nthree\n")), goshape.DefaultDecodeOpt())
	if err != nil {
		t.Fatalf("decode all yaml: %v", err)
	}
	if len(vs) != 3 || vs[2] != "three" {
		t.Fatalf("got %#v", vs)
	}

	vs, err = goshape.DecodeAll(ctx, goshape.JSONBytes(nil), goshape.DefaultDecodeOpt())
	if err != nil || len(vs) != 0 {
		t.Fatalf("empty input: %v %v", vs, err)
	}

	_, err = goshape.DecodeAll(ctx, goshape.JSONBytes([]byte(`{} {"a":1,"a":2}`)), goshape.DefaultDecodeOpt())
	if it := firstIssue(t, err); it.Path != "/a" {
		t.Fatalf("duplicate in second value: got path %s", it.Path)
	}
}
