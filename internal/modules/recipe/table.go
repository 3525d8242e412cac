package recipe

import (
	"strconv"
	"strings"
)

type column int

const (
	colComponent column = iota
	colFraction
	colDensity
	colRefractiveIndex
	colAdditive
	colAdditiveCompo1
	colAdditiveCompo2
	colAdditiveCompo3
)

// headerAliases maps normalized header labels to columns. The French labels are the
// ones used in the historical EcoWash workbooks.
var headerAliases = map[string]column{
	"composantssolvant": colComponent,
	"composant":         colComponent,
	"composants":        colComponent,
	"component":         colComponent,
	"concl":             colFraction,
	"concg":             colFraction,
	"fraction":          colFraction,
	"concentration":     colFraction,
	"density":           colDensity,
	"densite":           colDensity,
	"densité":           colDensity,
	"ir":                colRefractiveIndex,
	"refractiveindex":   colRefractiveIndex,
	"refraction":        colRefractiveIndex,
	"composantsecoadd":  colAdditive,
	"additive":          colAdditive,
	"additif":           colAdditive,
	"ecoaddh":           colAdditiveCompo1,
	"ecoadda":           colAdditiveCompo2,
	"ecoadds":           colAdditiveCompo3,
}

var additiveColumns = []struct {
	col    column
	target Role
}{
	{colAdditiveCompo1, RoleCompo1},
	{colAdditiveCompo2, RoleCompo2},
	{colAdditiveCompo3, RoleCompo3},
}

// parseTable turns a header row plus data rows into component and additive rows.
// Component and additive sections may share rows, as in the EcoWash workbooks where
// the additive block sits to the right of the solvent block.
func parseTable(rows [][]string) ([]ComponentRow, []AdditiveRow, error) {
	if len(rows) == 0 {
		return nil, nil, recipeErrorf("recipe table is empty")
	}

	index := make(map[column]int)
	for i, label := range rows[0] {
		if col, ok := headerAliases[normalizeKey(label)]; ok {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	for _, required := range []column{colComponent, colFraction, colDensity, colRefractiveIndex} {
		if _, ok := index[required]; !ok {
			return nil, nil, recipeErrorf("recipe table is missing a %s column", columnName(required))
		}
	}

	var components []ComponentRow
	var additives []AdditiveRow
	for i, row := range rows[1:] {
		line := i + 2
		cell := func(col column) string {
			idx, ok := index[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if name := cell(colComponent); name != "" || anyPresent(cell, colFraction, colDensity, colRefractiveIndex) {
			components = append(components, ComponentRow{
				Line:            line,
				Name:            name,
				Fraction:        parseNumber(cell(colFraction)),
				Density:         parseNumber(cell(colDensity)),
				RefractiveIndex: parseNumber(cell(colRefractiveIndex)),
			})
		}

		if name := cell(colAdditive); name != "" {
			for _, ac := range additiveColumns {
				value := parseNumber(cell(ac.col))
				if value == nil {
					continue
				}
				additives = append(additives, AdditiveRow{
					Line:          line,
					Name:          name,
					Target:        ac.target.String(),
					Concentration: value,
				})
			}
		}
	}

	return components, additives, nil
}

func anyPresent(cell func(column) string, cols ...column) bool {
	for _, c := range cols {
		if cell(c) != "" {
			return true
		}
	}
	return false
}

// parseNumber accepts both decimal separators; empty or non-numeric cells yield nil.
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	return &v
}

func columnName(c column) string {
	switch c {
	case colComponent:
		return "component"
	case colFraction:
		return "fraction"
	case colDensity:
		return "density"
	case colRefractiveIndex:
		return "refractive index"
	default:
		return "additive"
	}
}
