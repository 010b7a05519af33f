package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runSort(t *testing.T, args []string, stdin string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	err := Run(append([]string{"sort"}, args...), Options{
		Stdin:       strings.NewReader(stdin),
		Stdout:      out,
		Stderr:      &bytes.Buffer{},
		ServeRunner: func(opts ServeRuntimeOptions) error { return nil },
	})
	return out.String(), err
}

func TestSortStdinToStdout(t *testing.T) {
	t.Parallel()

	got, err := runSort(t, nil, `{"b": 1, "a": 2}`)
	if err != nil {
		t.Fatalf("sort stdin: %v", err)
	}
	want := "{\n  \"a\": 2,\n  \"b\": 1\n}\n"
	if got != want {
		t.Fatalf("unexpected sort output\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestSortWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coc-settings.json")
	if err := os.WriteFile(path, []byte(`{"z": {}, "a": [1, 2]}`), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	if _, err := runSort(t, []string{"--write", path}, ""); err != nil {
		t.Fatalf("sort --write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sorted file: %v", err)
	}
	want := "{\n  \"a\": [\n    1,\n    2\n  ],\n  \"z\": {}\n}\n"
	if string(got) != want {
		t.Fatalf("unexpected file content\n--- got ---\n%s\n--- want ---\n%s", string(got), want)
	}
}

func TestSortWriteRequiresFilePath(t *testing.T) {
	t.Parallel()

	_, err := runSort(t, []string{"--write"}, `{"a": 1}`)
	if err == nil || !strings.Contains(err.Error(), "--write requires a file path") {
		t.Fatalf("expected write path error, got: %v", err)
	}
}

func TestSortRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := runSort(t, nil, `{"a": `)
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSortRejectsExtraArgs(t *testing.T) {
	t.Parallel()

	_, err := runSort(t, []string{"one.json", "two.json"}, "")
	if err == nil || !strings.Contains(err.Error(), "at most one file path") {
		t.Fatalf("expected arg error, got: %v", err)
	}
}
