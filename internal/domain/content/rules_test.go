package content

import "testing"

// TestIsPlaceholderText covers the closed placeholder set and real text.
func TestIsPlaceholderText(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"N/A", true},
		{" na ", true},
		{"None", true},
		{"n.a.", true},
		{"NOT APPLICABLE", true},
		{"no progress", true},
		{"nothing", true},
		{"nada", true},
		{"zip", true},
		{"zero", true},
		{"Worked on logistic regression", false},
		{"nonessential review", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsPlaceholderText(tc.in); got != tc.want {
			t.Errorf("IsPlaceholderText(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// TestIsAcceptableDocURL verifies the host and path shape rules.
func TestIsAcceptableDocURL(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://docs.google.com/document/d/abc123/edit", true},
		{"https://docs.google.com/spreadsheets/d/abc123/edit#gid=0", true},
		{"http://docs.google.com/document/d/abc123", true},
		{" https://docs.google.com/document/d/abc123 ", true},
		{"https://DOCS.GOOGLE.COM/document/d/abc123", true},
		{"https://docs.google.com/forms/d/abc123", false},
		{"https://drive.google.com/document/d/abc123", false},
		{"https://example.com/document/d/abc123", false},
		{"ftp://docs.google.com/document/d/abc", false},
		{"not a url", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsAcceptableDocURL(tc.in); got != tc.want {
			t.Errorf("IsAcceptableDocURL(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// TestNonWhitespaceLen verifies whitespace is excluded from the count.
func TestNonWhitespaceLen(t *testing.T) {
	if got := NonWhitespaceLen("a b\tc\nd"); got != 4 {
		t.Errorf("NonWhitespaceLen = %d, want 4", got)
	}
	if got := NonWhitespaceLen("   "); got != 0 {
		t.Errorf("NonWhitespaceLen of blanks = %d, want 0", got)
	}
}
