package goshape

import (
	"context"
	"errors"
	"io"

	eng "github.com/reoring/goshape/internal/engine"
	"github.com/reoring/goshape/source/gojson"
	yamlsrc "github.com/reoring/goshape/source/yaml"
)

// Source is a stream of JSON-like tokens. NextToken returns io.EOF once no
// further top-level value follows.
type Source = eng.TokenSource

// Token describes a token in the input stream. Offset records the byte position
// when known (-1 otherwise).
type Token = eng.Token

// TokenKind enumerates token kinds.
type TokenKind = eng.Kind

const (
	TokenBeginObject TokenKind = eng.KindBeginObject
	TokenEndObject   TokenKind = eng.KindEndObject
	TokenBeginArray  TokenKind = eng.KindBeginArray
	TokenEndArray    TokenKind = eng.KindEndArray
	TokenKey         TokenKind = eng.KindKey
	TokenString      TokenKind = eng.KindString
	TokenNumber      TokenKind = eng.KindNumber
	TokenBool        TokenKind = eng.KindBool
	TokenNull        TokenKind = eng.KindNull
)

// JSONReader wraps an io.Reader as a JSON Source.
func JSONReader(r io.Reader) Source { return gojson.NewReader(r) }

// JSONBytes wraps a byte slice as a JSON Source.
func JSONBytes(b []byte) Source { return gojson.NewBytes(b) }

// YAMLReader wraps an io.Reader as a YAML Source; each document is one value.
func YAMLReader(r io.Reader) Source { return yamlsrc.NewReader(r) }

// YAMLBytes wraps a byte slice as a YAML Source.
func YAMLBytes(b []byte) Source { return yamlsrc.NewBytes(b) }

// Decode reads exactly one value from src into the value model IsValid
// understands: map[string]any, []any, string, float64 or json.Number, bool and
// nil. An empty input, trailing data, and enforcement failures are Issues.
func Decode(ctx context.Context, src Source, opt DecodeOpt) (any, error) {
	es := enforce(src, opt)
	v, err := eng.DecodeValue(ctx, es, numberConv(opt.NumberMode))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Issues{{Path: "/", Code: CodeParseError, Message: "empty input", Cause: err, Offset: src.Location()}}
		}
		return nil, decodeError(err, src)
	}
	switch _, err := es.NextToken(); {
	case err == nil:
		return nil, Issues{{Path: "/", Code: CodeTrailingData, Message: "unexpected data after the first value", Offset: src.Location()}}
	case !errors.Is(err, io.EOF):
		return nil, decodeError(err, src)
	}
	return v, nil
}

// DecodeAll reads every top-level value from src (concatenated JSON values or
// YAML documents).
func DecodeAll(ctx context.Context, src Source, opt DecodeOpt) ([]any, error) {
	es := enforce(src, opt)
	conv := numberConv(opt.NumberMode)
	var out []any
	for {
		v, err := eng.DecodeValue(ctx, es, conv)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, decodeError(err, src)
		}
		out = append(out, v)
	}
}

func enforce(src Source, opt DecodeOpt) Source {
	var sink func(eng.Issue)
	if opt.IssueSink != nil {
		sink = func(is eng.Issue) { opt.IssueSink(fromEngineIssue(is)) }
	}
	return eng.Enforce(src, eng.EnforceOptions{
		OnDuplicate: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
		Sink:        sink,
	})
}

func numberConv(m NumberMode) eng.NumberConv {
	if m == NumberJSONNumber {
		return eng.JSONNumber
	}
	return eng.Float64
}

func toEngineDup(s Severity) eng.DuplicatePolicy {
	switch s {
	case Error:
		return eng.DupError
	case Warn:
		return eng.DupWarn
	default:
		return eng.DupIgnore
	}
}

func fromEngineIssue(is eng.Issue) Issue {
	return Issue{Path: is.Path, Code: is.Code, Message: is.Message, Offset: is.Offset}
}

// decodeError maps engine and driver failures to Issues. Context errors are
// returned unchanged.
func decodeError(err error, src Source) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ie *eng.IssueError
	if errors.As(err, &ie) {
		it := fromEngineIssue(ie.Issue)
		it.Cause = err
		return Issues{it}
	}
	return Issues{{Path: "/", Code: CodeParseError, Message: err.Error(), Cause: err, Offset: src.Location()}}
}
