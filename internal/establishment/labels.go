package establishment

import (
	_ "embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Fallback labels.
const (
	NotSpecified      = "Non renseigné"
	CategoryUndefined = "Non défini"
)

//go:embed labels.yaml
var labelsYAML []byte

// Labels maps SIRENE codes to French labels.
type Labels struct {
	Workforce     map[string]string `yaml:"tranches_effectifs"`
	LegalCategory map[string]string `yaml:"categories_juridiques"`
}

// ParseLabels decodes a label file.
func ParseLabels(data []byte) (*Labels, error) {
	var l Labels
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, eris.Wrap(err, "establishment: parse labels")
	}
	return &l, nil
}

var (
	defaultLabels     *Labels
	defaultLabelsOnce sync.Once
)

// DefaultLabels returns the built-in tables. The embedded file is part of
// the binary, so a parse failure is a programming error.
func DefaultLabels() *Labels {
	defaultLabelsOnce.Do(func() {
		l, err := ParseLabels(labelsYAML)
		if err != nil {
			panic(err)
		}
		defaultLabels = l
	})
	return defaultLabels
}

// WorkforceLabel returns the label of a workforce-size bracket.
func (l *Labels) WorkforceLabel(code string) string {
	return lookup(l.Workforce, code)
}

// LegalCategoryLabel returns the label of a legal category.
func (l *Labels) LegalCategoryLabel(code string) string {
	return lookup(l.LegalCategory, code)
}

func lookup(table map[string]string, code string) string {
	if code == "" {
		return NotSpecified
	}
	if label, ok := table[code]; ok {
		return label
	}
	return NotSpecified
}
