package cube

import (
	"sort"
	"strconv"
	"strings"
)

// Key builds the canonical identity of a cell: its tags sorted by variable
// then code, followed by the measure code. Two cells with the same key are
// the same cell, whatever order their tags were listed in.
//
// Every field is written as <length>:<text>, so codes containing the
// separators cannot make two different tag sets collide.
func Key(measure string, tags []Tag) string {
	sorted := make([]Tag, len(tags))
	copy(sorted, tags)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Variable != sorted[j].Variable {
			return sorted[i].Variable < sorted[j].Variable
		}
		return sorted[i].Code < sorted[j].Code
	})

	var b strings.Builder
	for i, t := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		writeField(&b, t.Variable)
		b.WriteByte('=')
		writeField(&b, t.Code)
	}
	if measure != "" {
		b.WriteByte('#')
		writeField(&b, measure)
	}
	return b.String()
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// CellKey is Key applied to a cell.
func CellKey(c Cell) string {
	return Key(c.Measure.Code, c.Tags)
}

// T is shorthand for building a Tag.
func T(variable, code string) Tag {
	return Tag{Variable: variable, Code: code}
}
