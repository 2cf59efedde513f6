package cube

// Merged is the cell-wise sum of several cubes sharing a schema.
type Merged struct {
	Variables []Variable
	Cells     []MergedCell
	// Sources counts the non-nil cubes that contributed.
	Sources int

	index map[string]int
}

// MergedCell is one summed cell.
type MergedCell struct {
	Measure string
	Tags    []Tag
	Value   float64
	// Count is how many source cells held a number. Withheld values add 0
	// to Value and are not counted.
	Count int
}

// Mean is the average over the sources that reported a value.
func (c MergedCell) Mean() float64 {
	if c.Count == 0 {
		return 0
	}
	return c.Value / float64(c.Count)
}

// Merge sums cubes cell by cell. Nil cubes (failed fetches) are skipped. The
// variable list comes from the first cube that has one. Cells keep the order
// in which their key was first seen. Merge never mutates its inputs.
func Merge(cubes []*StatCube) *Merged {
	m := newMerged()
	for _, c := range cubes {
		if c == nil {
			continue
		}
		m.Sources++
		if len(m.Variables) == 0 && len(c.Variables) > 0 {
			m.Variables = cloneVariables(c.Variables)
		}
		for _, cell := range c.Cells {
			v, ok := cell.Reported()
			n := 0
			if ok {
				n = 1
			}
			m.add(cell.Measure.Code, cell.Tags, v, n)
		}
	}
	return m
}

// Combine merges previously merged results, so merging can be done in
// stages: Combine(Merge(a), Merge(b)) equals Merge(a ++ b).
func Combine(parts ...*Merged) *Merged {
	m := newMerged()
	for _, p := range parts {
		if p == nil {
			continue
		}
		m.Sources += p.Sources
		if len(m.Variables) == 0 && len(p.Variables) > 0 {
			m.Variables = cloneVariables(p.Variables)
		}
		for _, cell := range p.Cells {
			m.add(cell.Measure, cell.Tags, cell.Value, cell.Count)
		}
	}
	return m
}

func newMerged() *Merged {
	return &Merged{index: make(map[string]int)}
}

func (m *Merged) add(measure string, tags []Tag, v float64, n int) {
	k := Key(measure, tags)
	if i, ok := m.index[k]; ok {
		m.Cells[i].Value += v
		m.Cells[i].Count += n
		return
	}
	m.index[k] = len(m.Cells)
	m.Cells = append(m.Cells, MergedCell{
		Measure: measure,
		Tags:    append([]Tag(nil), tags...),
		Value:   v,
		Count:   n,
	})
}

// Empty reports whether there is nothing to reshape.
func (m *Merged) Empty() bool {
	return m == nil || len(m.Cells) == 0
}

// Lookup returns the summed value for a measure and tag set.
func (m *Merged) Lookup(measure string, tags ...Tag) (float64, bool) {
	if m == nil {
		return 0, false
	}
	i, ok := m.index[Key(measure, tags)]
	if !ok {
		return 0, false
	}
	return m.Cells[i].Value, true
}

// Cell returns the merged cell for a measure and tag set.
func (m *Merged) Cell(measure string, tags ...Tag) (MergedCell, bool) {
	if m == nil {
		return MergedCell{}, false
	}
	i, ok := m.index[Key(measure, tags)]
	if !ok {
		return MergedCell{}, false
	}
	return m.Cells[i], true
}

// Value is Lookup with a missing cell reading as 0.
func (m *Merged) Value(measure string, tags ...Tag) float64 {
	v, _ := m.Lookup(measure, tags...)
	return v
}

// Variable returns the variable with the given code.
func (m *Merged) Variable(code string) (Variable, bool) {
	if m == nil {
		return Variable{}, false
	}
	return findVariable(m.Variables, code)
}

// Totals returns the sum per key, handy for comparing merges.
func (m *Merged) Totals() map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(m.Cells))
	for _, c := range m.Cells {
		out[Key(c.Measure, c.Tags)] = c.Value
	}
	return out
}

func cloneVariables(vars []Variable) []Variable {
	out := make([]Variable, len(vars))
	for i, v := range vars {
		out[i] = v
		out[i].Modalities = append(List[Modality](nil), v.Modalities...)
	}
	return out
}
