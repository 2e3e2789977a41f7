package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	templateout "cardadapter/internal/modules/template/adapter/out"
	"cardadapter/internal/modules/template/domain"
	"cardadapter/internal/modules/template/dto"
	"cardadapter/internal/modules/template/service"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestExpandFilesUsesJSONNumbers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	templatePath := writeFile(t, dir, "template.json", `{"type":"AdaptiveCard","actions":[{"$data":"${choices}","title":"${title}","data":{"response":"${value}"}}]}`)
	dataPath := writeFile(t, dir, "data.json", `{"choices":[{"title":"Strange","value":1}]}`)

	svc := service.NewTemplateService(templateout.NewJSONDocumentReader())
	out, err := svc.ExpandFiles(context.Background(), dto.ExpandFileInput{TemplatePath: templatePath, DataPath: dataPath})
	if err != nil {
		t.Fatalf("expand files: %v", err)
	}
	want := map[string]any{
		"type": "AdaptiveCard",
		"actions": []any{
			map[string]any{"title": "Strange", "data": map[string]any{"response": float64(1)}},
		},
	}
	if diff := cmp.Diff(want, out.Document); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandFilesPolicy(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	templatePath := writeFile(t, dir, "template.json", `{"text":"${missing}"}`)
	dataPath := writeFile(t, dir, "data.json", `{}`)
	svc := service.NewTemplateService(templateout.NewJSONDocumentReader())

	_, err := svc.ExpandFiles(context.Background(), dto.ExpandFileInput{TemplatePath: templatePath, DataPath: dataPath})
	if !errors.Is(err, domain.ErrPathNotFound) {
		t.Fatalf("strict expansion should fail, got %v", err)
	}

	out, err := svc.ExpandFiles(context.Background(), dto.ExpandFileInput{TemplatePath: templatePath, DataPath: dataPath, Lenient: true})
	if err != nil {
		t.Fatalf("lenient expansion: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"text": "${missing}"}, out.Document); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandFilesReportsUnreadableDocuments(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `{"text":`)
	svc := service.NewTemplateService(templateout.NewJSONDocumentReader())

	if _, err := svc.ExpandFiles(context.Background(), dto.ExpandFileInput{TemplatePath: bad, DataPath: bad}); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := svc.ExpandFiles(context.Background(), dto.ExpandFileInput{TemplatePath: filepath.Join(dir, "none.json")}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
