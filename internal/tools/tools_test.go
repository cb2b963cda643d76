package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

func TestRegisterBuiltins(t *testing.T) {
	t.Parallel()

	registry := tool.NewRegistry(tool.RegistryConfig{Handler: tool.AllowAll{}})
	if err := RegisterBuiltins(registry, Config{WorkspaceRoot: t.TempDir()}); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}

	want := []string{
		"calculator", "system_info", "think", "read_file", "list_directory",
		"patch_file", "bash", "http_fetch", "weather", "wikipedia",
		"todo", "enhanced_memory",
	}
	got := registry.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuiltinSchemasAreValidJSON(t *testing.T) {
	t.Parallel()

	registry := tool.NewRegistry(tool.RegistryConfig{Handler: tool.AllowAll{}})
	if err := RegisterBuiltins(registry, Config{WorkspaceRoot: t.TempDir()}); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}

	for _, def := range registry.Definitions() {
		var schema map[string]any
		if err := json.Unmarshal(def.InputSchema, &schema); err != nil {
			t.Fatalf("schema for %s is not valid JSON: %v", def.Name, err)
		}
		if schema["type"] != "object" {
			t.Fatalf("schema for %s is not an object schema", def.Name)
		}
		if def.Description == "" {
			t.Fatalf("tool %s has no description", def.Name)
		}
	}
}

func TestThink(t *testing.T) {
	t.Parallel()

	th := &Think{}
	out, err := th.Execute(context.Background(), json.RawMessage(`{"thought": "check the edge cases"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "check the edge cases") {
		t.Fatalf("Execute = %q", out)
	}

	if _, err := th.Execute(context.Background(), json.RawMessage(`{"thought": " "}`)); err == nil {
		t.Fatal("Execute accepted an empty thought")
	}
}
