// Package export writes tables to XLSX workbooks.
package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/medlin-app/medlin/internal/establishment"
	"github.com/medlin-app/medlin/internal/reshape"
)

// Sheet is one worksheet: a header row followed by data rows. Cells may be
// string, int, int64 or float64; anything else is written empty.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Write encodes the sheets as one workbook.
func Write(w io.Writer, sheets ...Sheet) error {
	f, err := build(sheets)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "xlsx: write")
}

// WriteFile saves the sheets to path.
func WriteFile(path string, sheets ...Sheet) error {
	f, err := build(sheets)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "xlsx: save %s", path)
}

func build(sheets []Sheet) (*xlsx.File, error) {
	if len(sheets) == 0 {
		return nil, eris.New("xlsx: no sheet to write")
	}
	f := xlsx.NewFile()
	for _, s := range sheets {
		sheet, err := f.AddSheet(s.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: add sheet %q", s.Name)
		}
		header := sheet.AddRow()
		for _, h := range s.Header {
			header.AddCell().SetString(h)
		}
		for _, values := range s.Rows {
			row := sheet.AddRow()
			for _, v := range values {
				setCell(row.AddCell(), v)
			}
		}
	}
	return f, nil
}

func setCell(cell *xlsx.Cell, v any) {
	switch v := v.(type) {
	case string:
		cell.SetString(v)
	case int:
		cell.SetInt(v)
	case int64:
		cell.SetInt64(v)
	case float64:
		cell.SetFloat(v)
	}
}

// Records builds the establishment listing sheet. Coordinates are not
// exported.
func Records(records []establishment.Record) Sheet {
	s := Sheet{Name: "Etablissements", Header: establishment.Columns}
	for _, r := range records {
		row := make([]any, len(establishment.Columns))
		for i, c := range establishment.Columns {
			row[i], _ = r.Column(c)
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// SexRows builds a category x sex sheet.
func SexRows(name, category string, rows []reshape.SexRow) Sheet {
	s := Sheet{Name: name, Header: []string{category, "Ensemble", "Hommes", "Femmes"}}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.Category, r.Ensemble, r.Hommes, r.Femmes})
	}
	return s
}

// Population builds the sheets of the population view.
func Population(v *reshape.PopulationView) []Sheet {
	bySex := Sheet{Name: "Sexe", Header: []string{"Sexe", "Population"}}
	for _, t := range v.BySex {
		bySex.Rows = append(bySex.Rows, []any{t.Label, t.Population})
	}
	return []Sheet{bySex, SexRows("Ages", "Tranche d'âge", v.ByAge)}
}

// Households builds the socio-professional category sheet.
func Households(v *reshape.HouseholdView) Sheet {
	s := Sheet{Name: "Menages", Header: []string{"Catégorie", "Nombre de logements", "Population"}}
	for _, r := range v.Rows {
		s.Rows = append(s.Rows, []any{r.Category, r.NombreDeLogements, r.Population})
	}
	return s
}

// Matrix builds a sheet with one column per Column.
func Matrix(name, corner string, columns []reshape.Column, rows []reshape.MatrixRow) Sheet {
	s := Sheet{Name: name, Header: []string{corner}}
	for _, c := range columns {
		s.Header = append(s.Header, c.Label)
	}
	for _, r := range rows {
		row := []any{r.Category}
		for _, v := range r.Values {
			row = append(row, v)
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// Housing builds the rooms and dwellings sheets.
func Housing(v *reshape.HousingView) []Sheet {
	return []Sheet{
		Matrix("Pieces", "Type de logement", v.Columns, v.Rooms),
		Matrix("Logements", "Type de logement", v.Columns, v.Dwellings),
	}
}

// Families builds the family structure sheet with a total column.
func Families(v *reshape.FamilyView) Sheet {
	s := Sheet{Name: "Familles", Header: []string{"Type de famille"}}
	for _, c := range v.Columns {
		s.Header = append(s.Header, c.Label)
	}
	s.Header = append(s.Header, "Total")
	for _, r := range v.Rows {
		row := []any{r.Category}
		for _, n := range r.Values {
			row = append(row, n)
		}
		s.Rows = append(s.Rows, append(row, r.Total))
	}
	return s
}

// Income builds the income indicators sheet. Values are exported unrounded.
func Income(v *reshape.IncomeView) Sheet {
	s := Sheet{Name: "Revenus", Header: []string{"Code", "Indicateur", "Unité", "Valeur"}}
	for _, ind := range v.Indicators {
		var value any
		if ind.Available {
			value = ind.Value
		}
		s.Rows = append(s.Rows, []any{ind.Code, ind.Label, string(ind.Unit), value})
	}
	return s
}

// Diploma builds the diploma sheet.
func Diploma(v *reshape.DiplomaView) Sheet {
	return SexRows("Diplomes", "Diplôme", v.Rows)
}

// Sheets returns the sheets of any reshape view.
func Sheets(view any) ([]Sheet, error) {
	switch v := view.(type) {
	case *reshape.PopulationView:
		return Population(v), nil
	case *reshape.HouseholdView:
		return []Sheet{Households(v)}, nil
	case *reshape.FamilyView:
		return []Sheet{Families(v)}, nil
	case *reshape.HousingView:
		return Housing(v), nil
	case *reshape.IncomeView:
		return []Sheet{Income(v)}, nil
	case *reshape.IncomeSummary:
		return []Sheet{{
			Name:   "Revenu median",
			Header: []string{"Ménages", "Personnes", "Médiane", "Unités"},
			Rows:   [][]any{{v.Households, v.Persons, v.Median, v.Units}},
		}}, nil
	case *reshape.DiplomaView:
		return []Sheet{Diploma(v)}, nil
	}
	return nil, eris.Errorf("xlsx: cannot export %T", view)
}
