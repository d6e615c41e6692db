// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Doc: {
	name:   string
	count:  *1 | int
	tags?: [...string]
	...
}
`

type testDoc struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	doc, err := Decode[testDoc]([]byte(testSchema), []byte(`name: "x"
tags: ["a", "b"]
unknown: true
`), "#Doc", WithFilename("doc.cue"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if doc.Name != "x" {
		t.Errorf("Name = %q, want x", doc.Name)
	}
	if doc.Count != 1 {
		t.Errorf("Count = %d, want default 1", doc.Count)
	}
	if len(doc.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", doc.Tags)
	}
}

func TestDecode_TypeMismatch(t *testing.T) {
	t.Parallel()

	_, err := Decode[testDoc]([]byte(testSchema), []byte(`name: 3`), "#Doc", WithFilename("doc.cue"))
	if err == nil {
		t.Fatal("expected error for mismatched type")
	}
	if !strings.Contains(err.Error(), "doc.cue") || !strings.Contains(err.Error(), "name") {
		t.Errorf("error should name file and field, got: %v", err)
	}
}

func TestDecode_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := Decode[testDoc]([]byte(testSchema), []byte(`name: "x`), "#Doc")
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !strings.HasPrefix(err.Error(), "<input>") {
		t.Errorf("error should default to <input> file name, got: %v", err)
	}
}

func TestDecode_FileTooLarge(t *testing.T) {
	t.Parallel()

	_, err := Decode[testDoc]([]byte(testSchema), []byte(`name: "xxxxxxxx"`), "#Doc", WithMaxFileSize(4))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	if err := FormatError(nil, "x.cue"); err != nil {
		t.Errorf("FormatError(nil) = %v, want nil", err)
	}

	orig := errors.New("boom")
	err := FormatError(orig, "x.cue")
	if !errors.Is(err, orig) {
		t.Errorf("non-CUE errors should be wrapped, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "x.cue: ") {
		t.Errorf("error should be prefixed with file name, got %q", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"name"}, "name"},
		{[]string{"install", "0", "run"}, "install[0].run"},
		{[]string{"depends_on", "1", "kind"}, "depends_on[1].kind"},
		{[]string{"0"}, "0"},
	}

	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
