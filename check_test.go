package goshape_test

import (
	"errors"
	"testing"

	goshape "github.com/reoring/goshape"
)

// TestCheck_UnboundRecursion reports the schema path of every free marker.
func TestCheck_UnboundRecursion(t *testing.T) {
	s := goshape.Object(goshape.Fields{
		"items": goshape.Array(goshape.Recursion()),
		"next":  goshape.Recursion(),
	})
	err := goshape.Check(s)
	iss, ok := goshape.AsIssues(err)
	if !ok {
		t.Fatalf("expected Issues, got %v", err)
	}
	if len(iss) != 2 {
		t.Fatalf("expected 2 issues, got %d: %v", len(iss), iss)
	}
	want := map[string]bool{"/required/items/element": true, "/required/next": true}
	for _, it := range iss {
		if it.Code != goshape.CodeUnboundRecursion || !want[it.Path] {
			t.Fatalf("unexpected issue %+v", it)
		}
	}
	if !errors.Is(err, goshape.ErrUnboundRecursion) {
		t.Fatalf("expected errors.Is ErrUnboundRecursion")
	}
}

// TestCheck_RootMarker uses "/" for the schema root.
func TestCheck_RootMarker(t *testing.T) {
	err := goshape.Check(goshape.Recursion())
	iss, _ := goshape.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "/" {
		t.Fatalf("expected one issue at /, got %v", err)
	}
}

// TestCheck_Bound accepts markers under a Recursive, including nested ones.
func TestCheck_Bound(t *testing.T) {
	inner := goshape.Recursive(goshape.Array(goshape.Recursion()))
	s := goshape.Recursive(goshape.Union(goshape.Null(), goshape.Tuple(inner, goshape.Recursion())))
	if err := goshape.Check(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestCheck_SharedSubtree: a node shared by a bound and an unbound position is
// reported once, at the unbound position.
func TestCheck_SharedSubtree(t *testing.T) {
	shared := goshape.Array(goshape.Recursion())
	s := goshape.Tuple(goshape.Recursive(shared), shared)
	iss, ok := goshape.AsIssues(goshape.Check(s))
	if !ok || len(iss) != 1 || iss[0].Path != "/items/1/element" {
		t.Fatalf("expected one issue at /items/1/element, got %v", iss)
	}
}

// TestCheck_InvalidNodes rejects nil and zero-value nodes.
func TestCheck_InvalidNodes(t *testing.T) {
	for name, s := range map[string]*goshape.Schema{
		"nil":        nil,
		"zero value": {},
		"nested":     goshape.Union(goshape.String(), &goshape.Schema{}),
	} {
		err := goshape.Check(s)
		if !goshape.HasCode(err, goshape.CodeInvalidSchema) || !errors.Is(err, goshape.ErrInvalidSchema) {
			t.Fatalf("%s: expected invalid_schema, got %v", name, err)
		}
	}
}

// TestCompile wraps a checked schema.
func TestCompile(t *testing.T) {
	v, err := goshape.Compile(fileOrFolder())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !v.IsValid(map[string]any{"type": "Folder", "items": []any{}}) {
		t.Fatalf("expected valid folder")
	}
	if v.String() != v.Schema().String() {
		t.Fatalf("String should render the schema")
	}

	if _, err := goshape.Compile(goshape.Array(goshape.Recursion())); !goshape.HasCode(err, goshape.CodeUnboundRecursion) {
		t.Fatalf("expected unbound_recursion, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("MustCompile should panic")
		}
	}()
	goshape.MustCompile(goshape.Recursion())
}

// TestIssues_Error summarizes at most three issues.
func TestIssues_Error(t *testing.T) {
	iss := goshape.Issues{
		{Path: "/a", Code: "c1"},
		{Path: "/b", Code: "c2", Message: "m"},
		{Path: "/c", Code: "c3"},
		{Path: "/d", Code: "c4"},
	}
	want := "c1 at /a; c2 at /b (m); c3 at /c; ... (total 4)"
	if got := iss.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := goshape.JoinPointer("/x", "a/b~c"); got != "/x/a~1b~0c" {
		t.Fatalf("JoinPointer: got %q", got)
	}
}
