package recipe

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ecoWashYAML = `
components:
  - {name: ISOL, fraction: 0.3836, density: 0.7674, refractive_index: 1.4274}
  - {name: BZOH, fraction: 0.1885, density: 1.0450, refractive_index: 1.5384}
  - {name: DIPB, fraction: 0.4186, density: 0.8570, refractive_index: 1.4890}
  - {name: ETOH, fraction: 0.0092, density: 0.8330, refractive_index: 1.4310}
additives:
  - {name: EcoAdd 1, component: ISOL, concentration: 0.852}
  - {name: EcoAdd 3, component: DIPB, concentration: 0.83}
`

func TestParseYAML(t *testing.T) {
	components, additives, err := ParseYAML(strings.NewReader(ecoWashYAML))
	require.NoError(t, err)
	require.Len(t, components, 4)
	require.Len(t, additives, 2)
	assert.True(t, additives[0].Explicit)

	r, err := Build("yaml", components, additives, zerolog.Nop())
	require.NoError(t, err)
	_, ok := r.Additive(RoleCompo2)
	assert.False(t, ok)
	a3, ok := r.Additive(RoleCompo3)
	require.True(t, ok)
	assert.Equal(t, "EcoAdd 3", a3.Name)
}

func TestParseYAML_Invalid(t *testing.T) {
	_, _, err := ParseYAML(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrRecipe)

	_, _, err = ParseYAML(strings.NewReader("components: [unterminated"))
	assert.ErrorIs(t, err, ErrRecipe)
}
