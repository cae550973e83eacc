package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
)

// Kind classifies the tokens a TokenSource yields.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token is one lexical element of the input; Offset is approximate.
type Token struct {
	Kind   Kind
	String string // Key or string payload.
	Number string // Number text; NumberConv decides the Go representation.
	Bool   bool
	Offset int64
}

// TokenSource is a minimal interface required by the engine. NextToken returns
// io.EOF once the input holds no further top-level values.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// ErrUnexpectedToken reports a token that cannot start or continue a value.
var ErrUnexpectedToken = errors.New("engine: unexpected token")

// NumberConv converts number token text into a Go value.
type NumberConv func(string) (any, error)

// Float64 decodes numbers as float64.
func Float64(s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, err
	}
	return f, nil
}

// JSONNumber keeps number text as json.Number.
func JSONNumber(s string) (any, error) { return json.Number(s), nil }

// DecodeValue reads the next top-level value from src. It returns io.EOF when
// src is exhausted before a value starts.
func DecodeValue(ctx context.Context, src TokenSource, conv NumberConv) (any, error) {
	if conv == nil {
		conv = Float64
	}
	tok, err := src.NextToken()
	if err != nil {
		return nil, err
	}
	return decodeValue(ctx, src, tok, conv)
}

func decodeValue(ctx context.Context, src TokenSource, tok Token, conv NumberConv) (any, error) {
	switch tok.Kind {
	case KindBeginObject:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return decodeObject(ctx, src, conv)
	case KindBeginArray:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return decodeArray(ctx, src, conv)
	case KindString:
		return tok.String, nil
	case KindNumber:
		return conv(tok.Number)
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	default:
		return nil, ErrUnexpectedToken
	}
}

func decodeObject(ctx context.Context, src TokenSource, conv NumberConv) (any, error) {
	m := make(map[string]any)
	for {
		tok, err := src.NextToken()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		if tok.Kind == KindEndObject {
			return m, nil
		}
		if tok.Kind != KindKey {
			return nil, ErrUnexpectedToken
		}
		vt, err := src.NextToken()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		v, err := decodeValue(ctx, src, vt, conv)
		if err != nil {
			return nil, err
		}
		m[tok.String] = v
	}
}

func decodeArray(ctx context.Context, src TokenSource, conv NumberConv) (any, error) {
	arr := []any{}
	for {
		tok, err := src.NextToken()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		if tok.Kind == KindEndArray {
			return arr, nil
		}
		v, err := decodeValue(ctx, src, tok, conv)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

// unexpectedEOF turns an end of input inside a container into
// io.ErrUnexpectedEOF so callers can tell it from a clean end of stream.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
