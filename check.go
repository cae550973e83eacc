package goshape

import "strconv"

// Check walks s and reports construction misuse the constructors cannot see:
// Recursion() outside any Recursive, and nil or zero-value nodes. The result is
// nil or Issues.
func Check(s *Schema) error {
	c := &checker{seen: map[checkKey]struct{}{}}
	c.walk(s, "", false)
	if len(c.issues) > 0 {
		return c.issues
	}
	return nil
}

type checkKey struct {
	s     *Schema
	bound bool
}

// checker memoizes composite nodes per binding state, so a subtree shared
// across the DAG is walked at most twice.
type checker struct {
	seen   map[checkKey]struct{}
	issues Issues
}

func (c *checker) add(path, code, msg string, cause error) {
	c.issues = AppendIssues(c.issues, Issue{Path: rootPath(path), Code: code, Message: msg, Cause: cause, Offset: -1})
}

func (c *checker) walk(s *Schema, path string, bound bool) {
	if s == nil {
		c.add(path, CodeInvalidSchema, "nil schema", ErrInvalidSchema)
		return
	}
	if s.kind.IsPrimitive() {
		return
	}
	if s.kind == KindRecursion {
		if !bound {
			c.add(path, CodeUnboundRecursion, "recursion marker outside any recursive schema", ErrUnboundRecursion)
		}
		return
	}
	key := checkKey{s: s, bound: bound}
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}

	switch s.kind {
	case KindLiteral:
		if len(s.literals) != 1 {
			c.add(path, CodeInvalidSchema, "literal without a value", ErrInvalidSchema)
		}
	case KindLiteralUnion:
	case KindArray, KindNonEmptyArray:
		c.walk(s.elem, path+"/element", bound)
	case KindTuple, KindUnion, KindIntersection:
		for i, it := range s.items {
			c.walk(it, path+"/items/"+strconv.Itoa(i), bound)
		}
	case KindObject:
		for _, f := range s.required {
			c.walk(f.schema, JoinPointer(path+"/required", f.name), bound)
		}
		for _, f := range s.optional {
			c.walk(f.schema, JoinPointer(path+"/optional", f.name), bound)
		}
	case KindRecord:
		c.walk(s.key, path+"/key", bound)
		c.walk(s.value, path+"/value", bound)
	case KindClass:
		if s.class == nil {
			c.add(path, CodeInvalidSchema, "class without a type", ErrInvalidSchema)
		}
	case KindRecursive:
		c.walk(s.body, path+"/body", true)
	default:
		c.add(path, CodeInvalidSchema, "unknown schema kind "+strconv.Itoa(int(s.kind)), ErrInvalidSchema)
	}
}
