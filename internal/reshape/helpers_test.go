package reshape

import (
	"github.com/medlin-app/medlin/internal/cube"
)

func c(measure string, value string, tags ...cube.Tag) cube.Cell {
	return cube.Cell{Measure: cube.Measure{Code: measure}, Tags: cube.List[cube.Tag](tags), Value: cube.RawValue(value)}
}

func variable(code string, mods ...string) cube.Variable {
	v := cube.Variable{Code: code}
	for i := 0; i+1 < len(mods); i += 2 {
		v.Modalities = append(v.Modalities, cube.Modality{Code: mods[i], Label: mods[i+1]})
	}
	return v
}

func merged(vars []cube.Variable, cells ...cube.Cell) *cube.Merged {
	return cube.Merge([]*cube.StatCube{{Variables: vars, Cells: cells}})
}
