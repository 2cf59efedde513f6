// Package cube models the multidimensional statistical tables returned by the
// INSEE "données locales" API and merges them across geographic units.
package cube

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// StatCube is one statistical table for one geographic unit.
type StatCube struct {
	Variables List[Variable] `json:"Variable"`
	Cells     List[Cell]     `json:"Cellule"`
}

// Variable is a dimension of the cube and its ordered modalities.
type Variable struct {
	Code       string         `json:"@code"`
	Label      string         `json:"Libelle"`
	Modalities List[Modality] `json:"Modalite"`
}

// Modality is one category of a Variable.
type Modality struct {
	Code     string `json:"@code"`
	Variable string `json:"@variable,omitempty"`
	Label    string `json:"Libelle"`
}

// Tag places a cell on one dimension.
type Tag struct {
	Variable string `json:"@variable"`
	Code     string `json:"@code"`
}

// Zone identifies the geographic unit a cell belongs to.
type Zone struct {
	Code  string `json:"@codgeo"`
	Level string `json:"@nivgeo"`
}

// Measure names what a cell value counts.
type Measure struct {
	Code  string `json:"@code"`
	Label string `json:"Libelle,omitempty"`
}

// Cell is one value of the cube. Value keeps the raw decimal text.
type Cell struct {
	Zone    Zone      `json:"Zone"`
	Measure Measure   `json:"Mesure"`
	Tags    List[Tag] `json:"Modalite"`
	Value   RawValue  `json:"Valeur"`
}

// Number parses the cell value. Missing or unparsable values read as 0.
func (c Cell) Number() float64 {
	return ParseValue(string(c.Value))
}

// Reported parses the cell value and reports whether it held a number.
// Withheld figures come back as an empty or non-numeric Valeur.
func (c Cell) Reported() (float64, bool) {
	return parseValue(string(c.Value))
}

// List decodes either a JSON array or a single JSON object into a slice.
// The API collapses one-element arrays into bare objects.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*l = List[T]{item}
	return nil
}

// RawValue accepts a JSON string, number or null.
type RawValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
	default:
		*v = RawValue(data)
	}
	return nil
}

// ParseValue converts a decimal string to a float. Anything that is not a
// finite number yields 0.
func ParseValue(s string) float64 {
	f, _ := parseValue(s)
	return f
}

func parseValue(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Decode parses one API response body.
func Decode(body []byte) (*StatCube, error) {
	var c StatCube
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, eris.Wrap(err, "cube: decode")
	}
	return &c, nil
}

// Variable returns the variable with the given code.
func (c *StatCube) Variable(code string) (Variable, bool) {
	if c == nil {
		return Variable{}, false
	}
	return findVariable(c.Variables, code)
}

// Lookup returns the parsed value of the cell with the given measure and
// tag set, in any tag order.
func (c *StatCube) Lookup(measure string, tags ...Tag) (float64, bool) {
	if c == nil {
		return 0, false
	}
	want := Key(measure, tags)
	for _, cell := range c.Cells {
		if CellKey(cell) == want {
			return cell.Number(), true
		}
	}
	return 0, false
}

// Validate reports a cube holding two cells with the same tag set and measure.
func (c *StatCube) Validate() error {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(c.Cells))
	for _, cell := range c.Cells {
		k := CellKey(cell)
		if _, dup := seen[k]; dup {
			return eris.Wrapf(ErrDuplicateCell, "cube: key %q", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// ErrDuplicateCell is returned by Validate.
var ErrDuplicateCell = eris.New("duplicate cell")

func findVariable(vars []Variable, code string) (Variable, bool) {
	for _, v := range vars {
		if v.Code == code {
			return v, true
		}
	}
	return Variable{}, false
}
