package service_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cardadapter/internal/modules/template/domain"
	"cardadapter/internal/modules/template/service"
)

func doctorPayload() map[string]any {
	return map[string]any{
		"cardTemplateType": "optionButtons",
		"text":             "Great! Please choose your doctor.",
		"choices": []any{
			map[string]any{"title": "Frankenstein", "value": 0},
			map[string]any{"title": "Strange", "value": 1},
			map[string]any{"title": "Strangelove", "value": 2},
		},
	}
}

func optionButtonsTemplate() map[string]any {
	return map[string]any{
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"version": "1.3",
		"type":    "AdaptiveCard",
		"body": []any{
			map[string]any{"type": "TextBlock", "size": "Medium", "text": "${text}", "wrap": true},
		},
		"actions": []any{
			map[string]any{
				"$data": "${choices}",
				"type":  "Action.Submit",
				"title": "${title}",
				"data":  map[string]any{"response": "${value}"},
			},
		},
	}
}

func TestExpandOptionButtons(t *testing.T) {
	t.Parallel()
	got, err := service.NewExpander(domain.Options{}).Expand(doctorPayload(), optionButtonsTemplate())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := map[string]any{
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"version": "1.3",
		"type":    "AdaptiveCard",
		"body": []any{
			map[string]any{"type": "TextBlock", "size": "Medium", "text": "Great! Please choose your doctor.", "wrap": true},
		},
		"actions": []any{
			map[string]any{"type": "Action.Submit", "title": "Frankenstein", "data": map[string]any{"response": 0}},
			map[string]any{"type": "Action.Submit", "title": "Strange", "data": map[string]any{"response": 1}},
			map[string]any{"type": "Action.Submit", "title": "Strangelove", "data": map[string]any{"response": 2}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("card mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandDoesNotMutateInputs(t *testing.T) {
	t.Parallel()
	data, template := doctorPayload(), optionButtonsTemplate()
	got, err := service.NewExpander(domain.Options{}).Expand(data, template)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if diff := cmp.Diff(doctorPayload(), data); diff != "" {
		t.Fatalf("data mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(optionButtonsTemplate(), template); diff != "" {
		t.Fatalf("template mutated (-want +got):\n%s", diff)
	}

	card := got.(map[string]any)
	card["actions"].([]any)[0].(map[string]any)["data"].(map[string]any)["response"] = 99
	if diff := cmp.Diff(doctorPayload(), data); diff != "" {
		t.Fatalf("output shares state with data (-want +got):\n%s", diff)
	}
}

func TestExpandBindings(t *testing.T) {
	t.Parallel()
	data := map[string]any{
		"name":  "Ada",
		"count": 3,
		"ratio": 2.5,
		"user":  map[string]any{"address": map[string]any{"city": "London"}},
		"items": []any{
			map[string]any{"title": "first", "visible": true},
			map[string]any{"title": "second", "visible": false},
			map[string]any{"title": "third", "visible": true},
		},
		"author": map[string]any{"name": "Grace"},
	}
	tests := []struct {
		name     string
		template any
		want     any
	}{
		{
			name:     "mixed interpolation",
			template: map[string]any{"text": "Hello ${name}, you have ${count} items at ${ratio}"},
			want:     map[string]any{"text": "Hello Ada, you have 3 items at 2.5"},
		},
		{
			name:     "dotted and indexed paths",
			template: map[string]any{"city": "${user.address.city}", "second": "${items[1].title}"},
			want:     map[string]any{"city": "London", "second": "second"},
		},
		{
			name:     "single binding keeps object value",
			template: map[string]any{"where": "${user.address}"},
			want:     map[string]any{"where": map[string]any{"city": "London"}},
		},
		{
			name: "root and index inside repetition",
			template: []any{
				map[string]any{"$data": "${items}", "id": "${$index}", "label": "${$root.name}: ${title}"},
			},
			want: []any{
				map[string]any{"id": 0, "label": "Ada: first"},
				map[string]any{"id": 1, "label": "Ada: second"},
				map[string]any{"id": 2, "label": "Ada: third"},
			},
		},
		{
			name: "when drops falsy repetitions",
			template: []any{
				map[string]any{"$data": "${items}", "$when": "${visible}", "title": "${title}"},
			},
			want: []any{
				map[string]any{"title": "first"},
				map[string]any{"title": "third"},
			},
		},
		{
			name: "negated when",
			template: []any{
				map[string]any{"$data": "${items}", "$when": "${!visible}", "title": "${title}"},
			},
			want: []any{map[string]any{"title": "second"}},
		},
		{
			name:     "missing when path is false",
			template: map[string]any{"banner": map[string]any{"$when": "${flags.beta}", "text": "beta"}, "kept": true},
			want:     map[string]any{"kept": true},
		},
		{
			name:     "data object rebinds scope",
			template: map[string]any{"byline": map[string]any{"$data": "${author}", "text": "by ${name}", "data": "${$data}"}},
			want:     map[string]any{"byline": map[string]any{"text": "by Grace", "data": map[string]any{"name": "Grace"}}},
		},
		{
			name:     "top level repetition yields a list",
			template: map[string]any{"$data": "${items}", "t": "${title}"},
			want: []any{
				map[string]any{"t": "first"},
				map[string]any{"t": "second"},
				map[string]any{"t": "third"},
			},
		},
		{
			name:     "literal values pass through",
			template: map[string]any{"n": 1, "b": false, "nil": nil, "s": "plain"},
			want:     map[string]any{"n": 1, "b": false, "nil": nil, "s": "plain"},
		},
	}
	expander := service.NewExpander(domain.Options{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := expander.Expand(data, tc.template)
			if err != nil {
				t.Fatalf("expand: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStrictExpansionErrors(t *testing.T) {
	t.Parallel()
	data := map[string]any{"text": "hello", "items": []any{}}
	tests := []struct {
		name     string
		template any
		path     string
		sentinel error
	}{
		{
			name:     "missing single binding",
			template: map[string]any{"body": []any{map[string]any{"text": "${missing}"}}},
			path:     "body[0].text",
			sentinel: domain.ErrPathNotFound,
		},
		{
			name:     "missing interpolated binding",
			template: map[string]any{"text": "Hi ${who}"},
			path:     "text",
			sentinel: domain.ErrPathNotFound,
		},
		{
			name:     "data binds a scalar",
			template: map[string]any{"actions": []any{map[string]any{"$data": "${text}", "title": "x"}}},
			path:     "actions[0].$data",
			sentinel: domain.ErrInvalidDataBinding,
		},
		{
			name:     "data binds a missing path",
			template: map[string]any{"actions": []any{map[string]any{"$data": "${nope}"}}},
			path:     "actions[0].$data",
			sentinel: domain.ErrPathNotFound,
		},
		{
			name:     "malformed path",
			template: map[string]any{"x": "${items[}"},
			path:     "x",
			sentinel: domain.ErrInvalidExpression,
		},
	}
	expander := service.NewExpander(domain.Options{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := expander.Expand(data, tc.template)
			var expErr *domain.ExpansionError
			if !errors.As(err, &expErr) {
				t.Fatalf("expected ExpansionError, got %T %v", err, err)
			}
			if expErr.Path != tc.path {
				t.Fatalf("expected path %q, got %q", tc.path, expErr.Path)
			}
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected %v, got %v", tc.sentinel, err)
			}
		})
	}
}

func TestEmptyRepetitionYieldsEmptyList(t *testing.T) {
	t.Parallel()
	got, err := service.NewExpander(domain.Options{}).Expand(
		map[string]any{"items": []any{}},
		map[string]any{"actions": []any{map[string]any{"$data": "${items}", "title": "${title}"}}},
	)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"actions": []any{}}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLenientExpansionLeavesUnresolvedBindings(t *testing.T) {
	t.Parallel()
	template := map[string]any{
		"text":    "${missing}",
		"greet":   "Hi ${who}, from ${name}",
		"actions": []any{map[string]any{"$data": "${nope}", "title": "gone"}, map[string]any{"title": "stays"}},
	}
	got, err := service.NewExpander(domain.Options{Lenient: true}).Expand(map[string]any{"name": "Ada"}, template)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := map[string]any{
		"text":    "${missing}",
		"greet":   "Hi ${who}, from Ada",
		"actions": []any{map[string]any{"title": "stays"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
