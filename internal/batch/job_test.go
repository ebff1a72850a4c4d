package batch

import (
	"errors"
	"reflect"
	"testing"
)

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"append", Job{Action: ActionAppend, Pages: []string{"A"}, Content: "x"}, false},
		{"delete category", Job{Action: ActionDelete, Categories: []string{"Spam"}}, false},
		{"replace regex", Job{Action: ActionReplace, Pages: []string{"A"}, Find: `a+`, Regex: true}, false},
		{"remove literal brackets", Job{Action: ActionRemove, Pages: []string{"A"}, Find: "[[x"}, false},
		{"missing action", Job{Pages: []string{"A"}}, true},
		{"unknown action", Job{Action: "move", Pages: []string{"A"}}, true},
		{"no targets", Job{Action: ActionDelete}, true},
		{"prepend without content", Job{Action: ActionPrepend, Pages: []string{"A"}}, true},
		{"replace without find", Job{Action: ActionReplace, Pages: []string{"A"}, Content: "x"}, true},
		{"bad regex", Job{Action: ActionReplace, Pages: []string{"A"}, Find: "(", Regex: true}, true},
		{"empty skip pattern", Job{Action: ActionDelete, Pages: []string{"A"}, Skip: []string{""}}, true},
		{"bad skip pattern", Job{Action: ActionDelete, Pages: []string{"A"}, Skip: []string{"[abc"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidJob) {
					t.Errorf("Validate() = %v, want ErrInvalidJob", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestJobRewrite(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		in   string
		want string
	}{
		{"literal replace", Job{Action: ActionReplace, Find: "a.b", Content: "$1"}, "a.b axb", "$1 axb"},
		{"regex replace", Job{Action: ActionReplace, Find: `(\w+)@`, Content: "${1} at ", Regex: true}, "me@home", "me at home"},
		{"remove", Job{Action: ActionRemove, Find: "[[Category:Old]]", Content: "ignored"}, "Text[[Category:Old]]", "Text"},
		{"no match", Job{Action: ActionReplace, Find: "zzz", Content: "y"}, "abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := tt.job.pattern()
			if err != nil {
				t.Fatalf("pattern: %v", err)
			}
			if got := tt.job.rewrite(re, tt.in); got != tt.want {
				t.Errorf("rewrite(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("  Alpha \r\n\n Beta\n\t\nGamma  ")
	want := []string{"Alpha", "Beta", "Gamma"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitLines = %q, want %q", got, want)
	}
	if got := SplitLines("   \n  "); got != nil {
		t.Errorf("SplitLines(blank) = %q, want nil", got)
	}
}

func TestMatchesSkip(t *testing.T) {
	patterns := []string{"User:*/**", "Template:Infobox_*"}
	tests := []struct {
		title string
		want  bool
	}{
		{"User:Alice/Drafts/One", true},
		{"User talk:Alice", false},
		{"Template:Infobox person", true},
		{"Template:Navbox", false},
		{"Main Page", false},
	}
	for _, tt := range tests {
		if got := MatchesSkip(tt.title, patterns); got != tt.want {
			t.Errorf("MatchesSkip(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
	if MatchesSkip("Anything", nil) {
		t.Error("no patterns should never match")
	}
}
