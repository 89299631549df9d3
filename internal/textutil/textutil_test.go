package textutil

import "testing"

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already collapsed", "hello there", "hello there"},
		{"internal run", "hello   there", "hello there"},
		{"tabs and newlines", "hello\t\n  there\nagain", "hello there again"},
		{"leading and trailing", "  hello there \n", "hello there"},
		{"only whitespace", " \t\n ", ""},
		{"empty", "", ""},
		{"non-breaking space", "hello there", "hello there"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseWhitespace(tt.input); got != tt.want {
				t.Errorf("CollapseWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"under limit", "short", 10, "short"},
		{"at limit", "exact", 5, "exact"},
		{"over limit", "this is a long value", 7, "this is…"},
		{"multibyte runes", "héllo wörld", 5, "héllo…"},
		{"zero limit", "anything", 0, ""},
		{"negative limit", "anything", -3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain actor", "narrator", "narrator"},
		{"mixed case", "Actor1", "actor1"},
		{"spaces become underscores", "lead actor", "lead_actor"},
		{"keeps hyphens and underscores", "actor-one_b", "actor-one_b"},
		{"unicode collapses", "héros", "h_ros"},
		{"trims separator edges", "--actor--", "actor"},
		{"empty input", "", "unknown"},
		{"only unsafe characters", "!!!", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.input); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Chapter One", "Chapter One"},
		{"slashes to dashes", "intro/outro", "intro-outro"},
		{"drops question marks", "what now?", "what now"},
		{"strips angle brackets", "<title>", "title"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTernary(t *testing.T) {
	if got := Ternary(true, "yes", "no"); got != "yes" {
		t.Errorf("Ternary(true) = %q, want yes", got)
	}
	if got := Ternary(false, 1, 2); got != 2 {
		t.Errorf("Ternary(false) = %d, want 2", got)
	}
}
