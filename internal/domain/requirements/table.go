// Package requirements defines which special questions a submission must
// answer for a given program length and session number, including minimum
// answer lengths for feedback questions.
package requirements

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Well-known special-answer keys.
const (
	KeyProjectTopic   = "projectTopic"
	KeyConfirmedTopic = "confirmedTopic"
	KeyMidFeedback    = "midFeedback"
	KeyFinalFeedback  = "finalFeedback"
)

// Field is one required special answer.
type Field struct {
	Key      string `yaml:"key"`
	Label    string `yaml:"label"`
	MinChars int    `yaml:"min_chars"` // non-whitespace characters; 0 = presence only
}

// Table maps program length, then session number, to the required fields.
type Table map[int]map[int][]Field

// RequiredFor returns the fields a submission for the given program length
// and session number must answer. Nil when nothing special is required.
func (t Table) RequiredFor(programLength, sessionNumber int) []Field {
	return t[programLength][sessionNumber]
}

// Default returns the compiled-in requirement table.
func Default() Table {
	return Table{
		10: {
			2: {{Key: KeyProjectTopic, Label: "Project topic"}},
			5: {
				{Key: KeyConfirmedTopic, Label: "Confirmed topic"},
				{Key: KeyMidFeedback, Label: "Mid-program feedback", MinChars: 300},
			},
			10: {{Key: KeyFinalFeedback, Label: "Final feedback", MinChars: 500}},
		},
		25: {
			2:  {{Key: KeyProjectTopic, Label: "Project topic"}},
			5:  {{Key: KeyConfirmedTopic, Label: "Confirmed topic"}},
			12: {{Key: KeyMidFeedback, Label: "Mid-program feedback", MinChars: 300}},
			25: {{Key: KeyFinalFeedback, Label: "Final feedback", MinChars: 500}},
		},
	}
}

// fileFormat is the on-disk YAML shape for requirement overrides.
type fileFormat struct {
	Programs []struct {
		Length   int `yaml:"length"`
		Sessions []struct {
			Session int     `yaml:"session"`
			Fields  []Field `yaml:"fields"`
		} `yaml:"sessions"`
	} `yaml:"programs"`
}

// Load reads a requirement table from a YAML file, replacing the compiled-in
// default entirely. Deployments use this to tune question rules without a
// rebuild.
// PRE: path points to a readable YAML file
// POST: Returns the parsed table or an error; never a partial table
func Load(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requirements file: %w", err)
	}

	var ff fileFormat
	if err := yaml.Unmarshal(raw, &ff); err != nil {
		return nil, fmt.Errorf("parse requirements file: %w", err)
	}

	t := Table{}
	for _, p := range ff.Programs {
		if p.Length <= 0 {
			return nil, fmt.Errorf("requirements file: invalid program length %d", p.Length)
		}
		sessions := map[int][]Field{}
		for _, s := range p.Sessions {
			if s.Session < 1 || s.Session > p.Length {
				return nil, fmt.Errorf("requirements file: session %d out of range for program %d", s.Session, p.Length)
			}
			for _, f := range s.Fields {
				if f.Key == "" {
					return nil, fmt.Errorf("requirements file: field without key in program %d session %d", p.Length, s.Session)
				}
			}
			sessions[s.Session] = s.Fields
		}
		t[p.Length] = sessions
	}
	return t, nil
}
