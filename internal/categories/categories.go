// Package categories maps Open States subjects onto the display categories
// used by the bill tracker.
package categories

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaults = map[string]string{
	"Agriculture and Food":                 "Agriculture and Food",
	"Animal Rights and Wildlife Issues":    "Environment and Recreation",
	"Arts and Humanities":                  "Arts and Humanities",
	"Budget, Spending, and Taxes":          "Budget, Spending and Taxes",
	"Business and Consumers":               "Business and Economy",
	"Campaign Finance and Election Issues": "Campaign Finance and Election Issues",
	"Civil Liberties and Civil Rights":     "Social Issues",
	"Commerce":                             "Business and Economy",
	"Crime":                                "Crime and Drugs",
	"Drugs":                                "Crime and Drugs",
	"Education":                            "Education",
	"Energy":                               "Energy and Technology",
	"Environmental":                        "Environment and Recreation",
	"Executive Branch":                     "Government",
	"Family and Children Issues":           "Social Issues",
	"Federal, State, and Local Relations":  "Government",
	"Gambling and Gaming":                  "Gambling and Gaming",
	"Government Reform":                    "Government",
	"Guns":                                 "Guns",
	"Health":                               "Health and Science",
	"Housing and Property":                 "Housing and Property",
	"Immigration":                          "Immigration",
	"Indigenous Peoples":                   "Social Issues",
	"Insurance":                            "Insurance",
	"Judiciary":                            "Legal",
	"Labor and Employment":                 "Business and Economy",
	"Legal Issues":                         "Legal",
	"Legislative Affairs":                  "Government",
	"Military":                             "Military",
	"Municipal and County Issues":          "Government",
	"Nominations":                          "",
	"Other":                                "",
	"Public Services":                      "Government",
	"Recreation":                           "Environment and Recreation",
	"Reproductive Issues":                  "Reproductive Issues",
	"Resolutions":                          "",
	"Science and Medical Research":         "Health and Science",
	"Senior Issues":                        "Social Issues",
	"Sexual Orientation and Gender Issues": "Social Issues",
	"Social Issues":                        "Social Issues",
	"State Agencies":                       "",
	"Technology and Communication":         "Energy and Technology",
	"Trade":                                "Business and Economy",
	"Transportation":                       "Transportation",
	"Welfare and Poverty":                  "Welfare and Poverty",
}

// Map is an immutable subject -> category table.
type Map struct {
	entries map[string]string
}

// Default returns the built-in table.
func Default() *Map {
	return &Map{entries: maps.Clone(defaults)}
}

// New builds a table from explicit entries.
func New(entries map[string]string) *Map {
	return &Map{entries: maps.Clone(entries)}
}

// Lookup returns the display category for a subject, or "" when unmapped.
func (m *Map) Lookup(subject string) string {
	if m == nil {
		return ""
	}
	return m.entries[subject]
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Load reads a YAML or JSON file of the form
//
//	categories:
//	  "Subject": "Category"
//
// and overlays it onto the built-in table. An empty path returns Default().
func Load(path string) (*Map, error) {
	m := Default()
	if strings.TrimSpace(path) == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category map: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty category map file")
	}

	var parsed struct {
		Categories map[string]string `json:"categories" yaml:"categories"`
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &parsed)
	default:
		err = yaml.Unmarshal(data, &parsed)
	}
	if err != nil {
		return nil, fmt.Errorf("parse category map %s: %w", path, err)
	}

	maps.Copy(m.entries, parsed.Categories)
	return m, nil
}
