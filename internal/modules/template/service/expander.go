package service

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasttemplate"

	"cardadapter/internal/modules/template/domain"
)

const (
	startTag = "${"
	endTag   = "}"
)

// Expander merges a data object into an Adaptive Card template. Inputs are
// JSON-shaped (map[string]any, []any and scalars) and are never modified.
type Expander struct {
	opts domain.Options
}

func NewExpander(opts domain.Options) *Expander {
	return &Expander{opts: opts}
}

func (e *Expander) Options() domain.Options {
	return e.opts
}

// Expand returns a new document with every binding in template resolved
// against data. A top-level object repeated by $data yields a []any.
func (e *Expander) Expand(data, template any) (any, error) {
	sc := scope{root: data, data: data, index: -1}
	values, spread, err := e.render(template, sc, "")
	if err != nil {
		return nil, err
	}
	if spread {
		return values, nil
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// render expands one node. Objects repeated over an array come back as
// several values with spread set; a dropped object comes back empty.
func (e *Expander) render(node any, sc scope, loc string) ([]any, bool, error) {
	switch t := node.(type) {
	case map[string]any:
		return e.renderObject(t, sc, loc)
	case []any:
		out := make([]any, 0, len(t))
		for i, item := range t {
			values, _, err := e.render(item, sc, indexLoc(loc, i))
			if err != nil {
				return nil, false, err
			}
			out = append(out, values...)
		}
		return []any{out}, false, nil
	case string:
		s, err := e.renderString(t, sc, loc)
		if err != nil {
			return nil, false, err
		}
		return []any{s}, false, nil
	default:
		return []any{t}, false, nil
	}
}

func (e *Expander) renderObject(obj map[string]any, sc scope, loc string) ([]any, bool, error) {
	raw, ok := obj[domain.KeyData]
	if !ok {
		return e.renderBody(obj, sc, loc)
	}
	bound, found, err := e.bindData(raw, sc, keyLoc(loc, domain.KeyData))
	if err != nil || !found {
		return nil, false, err
	}
	switch b := bound.(type) {
	case []any:
		out := make([]any, 0, len(b))
		for i, item := range b {
			values, _, err := e.renderBody(obj, sc.rebind(item, i), indexLoc(loc, i))
			if err != nil {
				return nil, false, err
			}
			out = append(out, values...)
		}
		return out, true, nil
	case map[string]any:
		return e.renderBody(obj, sc.rebind(b, sc.index), loc)
	default:
		if e.opts.Lenient {
			return nil, false, nil
		}
		return nil, false, &domain.ExpansionError{Path: keyLoc(loc, domain.KeyData), Expression: fmt.Sprint(raw), Err: domain.ErrInvalidDataBinding}
	}
}

func (e *Expander) renderBody(obj map[string]any, sc scope, loc string) ([]any, bool, error) {
	if cond, ok := obj[domain.KeyWhen]; ok {
		keep, err := e.evalWhen(cond, sc, keyLoc(loc, domain.KeyWhen))
		if err != nil || !keep {
			return nil, false, err
		}
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if k == domain.KeyData || k == domain.KeyWhen {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		values, spread, err := e.render(obj[k], sc, keyLoc(loc, k))
		if err != nil {
			return nil, false, err
		}
		switch {
		case spread:
			out[k] = values
		case len(values) == 1:
			out[k] = values[0]
		}
	}
	return []any{out}, false, nil
}

// bindData evaluates a $data value. found is false when a lenient expansion
// should drop the object.
func (e *Expander) bindData(raw any, sc scope, loc string) (any, bool, error) {
	s, ok := raw.(string)
	if !ok {
		values, _, err := e.render(raw, sc, loc)
		if err != nil || len(values) == 0 {
			return nil, false, err
		}
		return values[0], true, nil
	}
	expr, single := singleBinding(s)
	if !single {
		if e.opts.Lenient {
			return nil, false, nil
		}
		return nil, false, &domain.ExpansionError{Path: loc, Expression: s, Err: domain.ErrInvalidDataBinding}
	}
	v, found, err := lookup(expr, sc)
	if err == nil && !found {
		err = domain.ErrPathNotFound
	}
	if err != nil {
		if e.opts.Lenient {
			return nil, false, nil
		}
		return nil, false, &domain.ExpansionError{Path: loc, Expression: s, Err: err}
	}
	return v, true, nil
}

// evalWhen evaluates "${path}" or "${!path}". A missing path is false in
// both policies.
func (e *Expander) evalWhen(raw any, sc scope, loc string) (bool, error) {
	s, ok := raw.(string)
	if !ok {
		return truthy(raw), nil
	}
	expr, single := singleBinding(s)
	if !single {
		if e.opts.Lenient {
			return true, nil
		}
		return false, &domain.ExpansionError{Path: loc, Expression: s, Err: domain.ErrInvalidExpression}
	}
	expr = strings.TrimSpace(expr)
	negate := strings.HasPrefix(expr, "!")
	if negate {
		expr = expr[1:]
	}
	v, _, err := lookup(expr, sc)
	if err != nil {
		if e.opts.Lenient {
			return true, nil
		}
		return false, &domain.ExpansionError{Path: loc, Expression: s, Err: err}
	}
	return truthy(v) != negate, nil
}

func (e *Expander) renderString(s string, sc scope, loc string) (any, error) {
	if !strings.Contains(s, startTag) {
		return s, nil
	}
	if expr, single := singleBinding(s); single {
		v, found, err := lookup(expr, sc)
		if err == nil && !found {
			err = domain.ErrPathNotFound
		}
		if err != nil {
			if e.opts.Lenient {
				return s, nil
			}
			return nil, &domain.ExpansionError{Path: loc, Expression: s, Err: err}
		}
		return clone(v), nil
	}
	out, err := fasttemplate.ExecuteFuncStringWithErr(s, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		v, found, err := lookup(tag, sc)
		if err == nil && !found {
			err = domain.ErrPathNotFound
		}
		if err != nil {
			if e.opts.Lenient {
				return io.WriteString(w, startTag+tag+endTag)
			}
			return 0, &domain.ExpansionError{Path: loc, Expression: startTag + tag + endTag, Err: err}
		}
		return io.WriteString(w, stringify(v))
	})
	if err != nil {
		var expErr *domain.ExpansionError
		if errors.As(err, &expErr) {
			return nil, err
		}
		if e.opts.Lenient {
			return s, nil
		}
		return nil, &domain.ExpansionError{Path: loc, Expression: s, Err: fmt.Errorf("%w: %v", domain.ErrInvalidExpression, err)}
	}
	return out, nil
}

// singleBinding reports whether s is exactly one "${...}" binding.
func singleBinding(s string) (string, bool) {
	if !strings.HasPrefix(s, startTag) || !strings.HasSuffix(s, endTag) {
		return "", false
	}
	inner := s[len(startTag) : len(s)-len(endTag)]
	if strings.Contains(inner, startTag) || strings.Contains(inner, endTag) {
		return "", false
	}
	return inner, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = clone(item)
		}
		return out
	default:
		return t
	}
}

func keyLoc(loc, key string) string {
	if loc == "" {
		return key
	}
	return loc + "." + key
}

func indexLoc(loc string, i int) string {
	return loc + "[" + strconv.Itoa(i) + "]"
}
