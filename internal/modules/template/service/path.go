package service

import (
	"fmt"
	"strconv"
	"strings"

	"cardadapter/internal/modules/template/domain"
)

type segment struct {
	key   string
	index int
}

func (s segment) isIndex() bool { return s.key == "" }

// scope is the lookup context of one rendering position.
type scope struct {
	root  any
	data  any
	index int
}

func (s scope) rebind(data any, index int) scope {
	return scope{root: s.root, data: data, index: index}
}

// parsePath splits "a.b[1].c" into segments.
func parsePath(expr string) ([]segment, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, domain.ErrInvalidExpression
	}
	var (
		segs []segment
		buf  strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			segs = append(segs, segment{key: buf.String()})
			buf.Reset()
		}
	}
	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; c {
		case '.':
			if buf.Len() == 0 && (i == 0 || expr[i-1] != ']') {
				return nil, fmt.Errorf("%w: empty segment in %q", domain.ErrInvalidExpression, expr)
			}
			flush()
		case '[':
			flush()
			end := strings.IndexByte(expr[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed index in %q", domain.ErrInvalidExpression, expr)
			}
			n, err := strconv.Atoi(strings.TrimSpace(expr[i+1 : i+end]))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad index in %q", domain.ErrInvalidExpression, expr)
			}
			segs = append(segs, segment{index: n})
			i += end
		case ' ', '\t':
			return nil, fmt.Errorf("%w: whitespace in %q", domain.ErrInvalidExpression, expr)
		default:
			buf.WriteByte(c)
		}
	}
	if strings.HasSuffix(expr, ".") {
		return nil, fmt.Errorf("%w: trailing dot in %q", domain.ErrInvalidExpression, expr)
	}
	flush()
	return segs, nil
}

// lookup resolves a path in sc. found is false when any segment is missing.
func lookup(expr string, sc scope) (value any, found bool, err error) {
	segs, err := parsePath(expr)
	if err != nil {
		return nil, false, err
	}
	cur := sc.data
	switch first := segs[0]; first.key {
	case domain.ScopeRoot:
		cur, segs = sc.root, segs[1:]
	case domain.ScopeData:
		segs = segs[1:]
	case domain.ScopeIndex:
		if sc.index < 0 || len(segs) > 1 {
			return nil, false, nil
		}
		return sc.index, true, nil
	}
	for _, seg := range segs {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false, nil
		}
		cur = next
	}
	return cur, true, nil
}

func step(cur any, seg segment) (any, bool) {
	if seg.isIndex() {
		items, ok := cur.([]any)
		if !ok || seg.index >= len(items) {
			return nil, false
		}
		return items[seg.index], true
	}
	obj, ok := cur.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[seg.key]
	return v, ok
}

// truthy follows the usual template conventions: nil, false, zero numbers,
// empty strings and empty collections are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case int32:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
