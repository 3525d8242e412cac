package recipe

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlRecipe struct {
	Components []struct {
		Name            string   `yaml:"name"`
		Fraction        *float64 `yaml:"fraction"`
		Density         *float64 `yaml:"density"`
		RefractiveIndex *float64 `yaml:"refractive_index"`
	} `yaml:"components"`
	Additives []struct {
		Name          string   `yaml:"name"`
		Component     string   `yaml:"component"`
		Concentration *float64 `yaml:"concentration"`
	} `yaml:"additives"`
}

// ParseYAML reads a recipe written as a components list plus an additives list:
//
//	components:
//	  - {name: ISOL, fraction: 0.3836, density: 0.7674, refractive_index: 1.4274}
//	additives:
//	  - {name: EcoAdd 1, component: ISOL, concentration: 0.852}
func ParseYAML(r io.Reader) ([]ComponentRow, []AdditiveRow, error) {
	var doc yamlRecipe
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil, recipeErrorf("recipe document is empty")
		}
		return nil, nil, fmt.Errorf("%w: failed to decode YAML: %v", ErrRecipe, err)
	}

	components := make([]ComponentRow, 0, len(doc.Components))
	for i, c := range doc.Components {
		components = append(components, ComponentRow{
			Line:            i + 1,
			Name:            c.Name,
			Fraction:        c.Fraction,
			Density:         c.Density,
			RefractiveIndex: c.RefractiveIndex,
		})
	}

	additives := make([]AdditiveRow, 0, len(doc.Additives))
	for i, a := range doc.Additives {
		additives = append(additives, AdditiveRow{
			Line:          i + 1,
			Name:          a.Name,
			Target:        a.Component,
			Concentration: a.Concentration,
			Explicit:      true,
		})
	}

	return components, additives, nil
}
