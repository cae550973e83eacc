// Package yaml provides a YAML token source backed by gopkg.in/yaml.v3 node
// trees. Each document of a multi-document stream is one top-level value.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	y "gopkg.in/yaml.v3"

	eng "github.com/reoring/goshape/internal/engine"
)

// DefaultAliasBudget bounds how many tokens alias expansion may produce per
// document.
const DefaultAliasBudget = 1 << 20

// ErrAliasBudget reports a document whose aliases expand beyond the budget.
var ErrAliasBudget = errors.New("yaml: alias expansion exceeds budget")

type source struct {
	dec     *y.Decoder
	cr      *countingReader
	queue   []eng.Token
	pos     int
	budget  int
	inAlias int
	err     error
}

// NewReader wraps an io.Reader into an engine.TokenSource for YAML.
func NewReader(r io.Reader) eng.TokenSource {
	cr := &countingReader{r: r}
	return &source{dec: y.NewDecoder(cr), cr: cr}
}

// NewBytes wraps a byte slice into an engine.TokenSource for YAML.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

func (s *source) NextToken() (eng.Token, error) {
	for s.pos >= len(s.queue) {
		if s.err != nil {
			return eng.Token{}, s.err
		}
		var doc y.Node
		if err := s.dec.Decode(&doc); err != nil {
			s.err = err
			return eng.Token{}, err
		}
		s.queue = s.queue[:0]
		s.pos = 0
		s.budget = DefaultAliasBudget
		if err := s.emit(&doc); err != nil {
			s.err = err
			return eng.Token{}, err
		}
	}
	t := s.queue[s.pos]
	s.pos++
	return t, nil
}

// Location reports the bytes consumed from the underlying reader.
func (s *source) Location() int64 { return s.cr.n }

func (s *source) push(t eng.Token) error {
	if s.inAlias > 0 {
		s.budget--
		if s.budget < 0 {
			return ErrAliasBudget
		}
	}
	t.Offset = -1
	s.queue = append(s.queue, t)
	return nil
}

func (s *source) emit(n *y.Node) error {
	switch n.Kind {
	case y.DocumentNode:
		if len(n.Content) == 0 {
			return s.push(eng.Token{Kind: eng.KindNull})
		}
		return s.emit(n.Content[0])
	case y.MappingNode:
		if err := s.push(eng.Token{Kind: eng.KindBeginObject}); err != nil {
			return err
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind == y.AliasNode && k.Alias != nil {
				k = k.Alias
			}
			if k.Kind != y.ScalarNode {
				return fmt.Errorf("yaml: line %d: mapping key must be a scalar", k.Line)
			}
			if err := s.push(eng.Token{Kind: eng.KindKey, String: k.Value}); err != nil {
				return err
			}
			if err := s.emit(n.Content[i+1]); err != nil {
				return err
			}
		}
		return s.push(eng.Token{Kind: eng.KindEndObject})
	case y.SequenceNode:
		if err := s.push(eng.Token{Kind: eng.KindBeginArray}); err != nil {
			return err
		}
		for _, c := range n.Content {
			if err := s.emit(c); err != nil {
				return err
			}
		}
		return s.push(eng.Token{Kind: eng.KindEndArray})
	case y.AliasNode:
		if n.Alias == nil {
			return fmt.Errorf("yaml: line %d: unresolved alias", n.Line)
		}
		s.inAlias++
		defer func() { s.inAlias-- }()
		return s.emit(n.Alias)
	case y.ScalarNode:
		t, err := scalarToken(n)
		if err != nil {
			return err
		}
		return s.push(t)
	default:
		return s.push(eng.Token{Kind: eng.KindNull})
	}
}

func scalarToken(n *y.Node) (eng.Token, error) {
	switch n.ShortTag() {
	case "!!null":
		return eng.Token{Kind: eng.KindNull}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return eng.Token{}, err
		}
		return eng.Token{Kind: eng.KindBool, Bool: b}, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return eng.Token{Kind: eng.KindNumber, Number: strconv.FormatInt(i, 10)}, nil
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return eng.Token{Kind: eng.KindNumber, Number: strconv.FormatUint(u, 10)}, nil
		}
		return floatToken(n)
	case "!!float":
		return floatToken(n)
	default:
		return eng.Token{Kind: eng.KindString, String: n.Value}, nil
	}
}

func floatToken(n *y.Node) (eng.Token, error) {
	var f float64
	if err := n.Decode(&f); err != nil {
		return eng.Token{}, err
	}
	return eng.Token{Kind: eng.KindNumber, Number: strconv.FormatFloat(f, 'g', -1, 64)}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
