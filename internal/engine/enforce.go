package engine

import (
	"strconv"
	"strings"
)

// Enforcement wrapper for TokenSource to apply duplicate key handling,
// max depth checks, and max bytes truncation in a streaming fashion.

// DuplicatePolicy controls duplicate object key handling.
type DuplicatePolicy int

const (
	DupIgnore DuplicatePolicy = iota
	DupWarn
	DupError
)

// Issue codes produced by the enforcer. They match the root package codes.
const (
	CodeDuplicateKey = "duplicate_key"
	CodeMaxDepth     = "max_depth"
	CodeTruncated    = "truncated"
)

// Issue is a lightweight issue raised while enforcing limits.
type Issue struct {
	Code    string
	Path    string
	Message string
	Offset  int64
}

// IssueError is a fatal enforcement issue.
type IssueError struct{ Issue }

func (e *IssueError) Error() string { return e.Issue.Message + " at " + e.Issue.Path }

// EnforceOptions controls runtime enforcement behavior.
type EnforceOptions struct {
	OnDuplicate DuplicatePolicy
	MaxDepth    int   // 0 disables the depth limit.
	MaxBytes    int64 // 0 disables the size limit.
	// Sink receives non-fatal issues (duplicate keys under DupWarn). Fatal
	// issues are only returned, as *IssueError.
	Sink func(Issue)
}

// Disabled reports whether enforcement would be a no-op.
func (o EnforceOptions) Disabled() bool {
	return o.OnDuplicate == DupIgnore && o.MaxDepth == 0 && o.MaxBytes == 0
}

type frameKind int

const (
	frameObject frameKind = iota
	frameArray
)

type frame struct {
	kind       frameKind
	path       string
	keys       map[string]struct{}
	pendingKey string
	next       int
}

// Enforce returns a TokenSource that enforces the duplicate key policy,
// maximum nesting depth, and maximum consumed bytes of inner.
func Enforce(inner TokenSource, opt EnforceOptions) TokenSource {
	if opt.Disabled() {
		return inner
	}
	return &enforcer{inner: inner, opt: opt}
}

type enforcer struct {
	inner TokenSource
	opt   EnforceOptions
	stack []frame
}

func (e *enforcer) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}

	switch tok.Kind {
	case KindKey:
		top := e.top()
		if top == nil || top.kind != frameObject {
			break
		}
		if top.keys != nil {
			if _, dup := top.keys[tok.String]; dup {
				is := Issue{Code: CodeDuplicateKey, Path: joinPointer(top.path, tok.String), Message: "key '" + tok.String + "' duplicated", Offset: tok.Offset}
				if err := e.report(is, e.opt.OnDuplicate == DupError); err != nil {
					return Token{}, err
				}
			}
			top.keys[tok.String] = struct{}{}
		}
		top.pendingKey = tok.String
	case KindBeginObject, KindBeginArray:
		f := frame{path: e.valuePath(), kind: frameArray}
		if tok.Kind == KindBeginObject {
			f.kind = frameObject
			if e.opt.OnDuplicate != DupIgnore {
				f.keys = make(map[string]struct{})
			}
		}
		e.stack = append(e.stack, f)
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			is := Issue{Code: CodeMaxDepth, Path: rootPath(f.path), Message: "max depth " + strconv.Itoa(e.opt.MaxDepth) + " exceeded", Offset: tok.Offset}
			return Token{}, e.report(is, true)
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	default:
		e.valuePath()
	}

	if e.opt.MaxBytes > 0 {
		if off := e.Location(); off >= 0 && off > e.opt.MaxBytes {
			is := Issue{Code: CodeTruncated, Path: rootPath(e.currentPath()), Message: "max bytes " + strconv.FormatInt(e.opt.MaxBytes, 10) + " exceeded", Offset: off}
			return Token{}, e.report(is, true)
		}
	}
	return tok, nil
}

func (e *enforcer) Location() int64 { return e.inner.Location() }

func (e *enforcer) top() *frame {
	if n := len(e.stack); n > 0 {
		return &e.stack[n-1]
	}
	return nil
}

// valuePath returns the pointer of the value that starts now, advancing the
// enclosing array index.
func (e *enforcer) valuePath() string {
	top := e.top()
	if top == nil {
		return ""
	}
	if top.kind == frameArray {
		p := joinPointer(top.path, strconv.Itoa(top.next))
		top.next++
		return p
	}
	return joinPointer(top.path, top.pendingKey)
}

func (e *enforcer) currentPath() string {
	if top := e.top(); top != nil {
		return top.path
	}
	return ""
}

func (e *enforcer) report(is Issue, fatal bool) error {
	if fatal {
		return &IssueError{is}
	}
	if e.opt.Sink != nil {
		e.opt.Sink(is)
	}
	return nil
}

func rootPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

var jsonPointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func joinPointer(base, token string) string {
	return base + "/" + jsonPointerEscaper.Replace(token)
}
