package mediawiki

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultTitleValidator(t *testing.T) {
	v := DefaultTitleValidator()
	tests := []struct {
		title string
		want  error
	}{
		{"Main Page", nil},
		{"User:Eizen/sandbox", nil},
		{"Category:Stubs", nil},
		{"Münster (city)", nil},
		{"Тест", nil},
		{"C++", nil},
		{"Foo_bar", nil},
		{"", ErrEmptyTitle},
		{"   ", ErrEmptyTitle},
		{"Foo[bar]", ErrIllegalTitle},
		{"A|B", ErrIllegalTitle},
		{"{{Template}}", ErrIllegalTitle},
		{"Page#Section", ErrIllegalTitle},
		{"<script>", ErrIllegalTitle},
		{strings.Repeat("a", 256), ErrTitleTooLong},
	}
	for _, tt := range tests {
		err := v.Check(tt.title)
		if tt.want == nil {
			if err != nil {
				t.Errorf("Check(%q) = %v, want nil", tt.title, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("Check(%q) = %v, want %v", tt.title, err, tt.want)
		}
	}
}

func TestCustomLegalChars(t *testing.T) {
	v, err := NewTitleValidator("A-Za-z ")
	if err != nil {
		t.Fatalf("NewTitleValidator: %v", err)
	}
	if !v.Legal("Main Page") {
		t.Error("expected letters and spaces to be legal")
	}
	if v.Legal("Page 2") {
		t.Error("expected digits to be illegal")
	}
}

func TestJavaScriptStyleRange(t *testing.T) {
	v, err := NewTitleValidator(` %!"$&'()*,\-.\/0-9:;=?@A-Z\\^_` + "`" + `a-z~\u0080-\uFFFF+`)
	if err != nil {
		t.Fatalf("NewTitleValidator: %v", err)
	}
	if !v.Legal("日本語") {
		t.Error("expected non-ASCII titles to be legal")
	}
}

func TestBadLegalChars(t *testing.T) {
	if _, err := NewTitleValidator(`z-a`); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Stubs", "Category:Stubs"},
		{"  Category:Stubs ", "Category:Stubs"},
		{"category:Stubs", "Category:Stubs"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeUser(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Eizen", "Eizen"},
		{"User:Eizen", "Eizen"},
		{" user:Some_Body ", "Some Body"},
	}
	for _, tt := range tests {
		if got := NormalizeUser(tt.in); got != tt.want {
			t.Errorf("NormalizeUser(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
