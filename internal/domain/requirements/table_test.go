package requirements

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefault_Table spot-checks the compiled-in requirement table.
func TestDefault_Table(t *testing.T) {
	tbl := Default()

	cases := []struct {
		length, session int
		wantKeys        []string
	}{
		{10, 2, []string{KeyProjectTopic}},
		{10, 5, []string{KeyConfirmedTopic, KeyMidFeedback}},
		{10, 10, []string{KeyFinalFeedback}},
		{25, 2, []string{KeyProjectTopic}},
		{25, 5, []string{KeyConfirmedTopic}},
		{25, 12, []string{KeyMidFeedback}},
		{25, 25, []string{KeyFinalFeedback}},
		{10, 3, nil},
		{25, 10, nil},
	}
	for _, tc := range cases {
		fields := tbl.RequiredFor(tc.length, tc.session)
		if len(fields) != len(tc.wantKeys) {
			t.Errorf("RequiredFor(%d,%d) = %+v, want keys %v", tc.length, tc.session, fields, tc.wantKeys)
			continue
		}
		for i, f := range fields {
			if f.Key != tc.wantKeys[i] {
				t.Errorf("RequiredFor(%d,%d)[%d] = %q, want %q", tc.length, tc.session, i, f.Key, tc.wantKeys[i])
			}
		}
	}
}

// TestDefault_MinLengths verifies the feedback minimums.
func TestDefault_MinLengths(t *testing.T) {
	tbl := Default()
	mid := tbl.RequiredFor(10, 5)[1]
	if mid.Key != KeyMidFeedback || mid.MinChars != 300 {
		t.Errorf("mid feedback rule = %+v, want 300 chars", mid)
	}
	final := tbl.RequiredFor(25, 25)[0]
	if final.Key != KeyFinalFeedback || final.MinChars != 500 {
		t.Errorf("final feedback rule = %+v, want 500 chars", final)
	}
}

// TestLoad_ValidFile parses an override file.
func TestLoad_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.yaml")
	content := `programs:
  - length: 10
    sessions:
      - session: 3
        fields:
          - key: projectTopic
            label: Project topic
      - session: 10
        fields:
          - key: finalFeedback
            label: Final feedback
            min_chars: 250
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fields := tbl.RequiredFor(10, 3); len(fields) != 1 || fields[0].Key != KeyProjectTopic {
		t.Errorf("session 3 fields = %+v", fields)
	}
	if fields := tbl.RequiredFor(10, 10); len(fields) != 1 || fields[0].MinChars != 250 {
		t.Errorf("session 10 fields = %+v", fields)
	}
	// Override replaces, not merges: program 25 is gone.
	if fields := tbl.RequiredFor(25, 2); fields != nil {
		t.Errorf("program 25 should be absent, got %+v", fields)
	}
}

// TestLoad_RejectsBadFiles covers validation failures.
func TestLoad_RejectsBadFiles(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"session out of range", "programs:\n  - length: 10\n    sessions:\n      - session: 11\n        fields:\n          - key: x\n"},
		{"field missing key", "programs:\n  - length: 10\n    sessions:\n      - session: 2\n        fields:\n          - label: no key\n"},
		{"invalid program length", "programs:\n  - length: 0\n    sessions: []\n"},
		{"not yaml", "{{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected parse error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
