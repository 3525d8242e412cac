package recipe

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func ecoWashRows() []ComponentRow {
	return []ComponentRow{
		{Line: 2, Name: "ISOL", Fraction: f(0.3836), Density: f(0.7674), RefractiveIndex: f(1.4274)},
		{Line: 3, Name: "BZOH", Fraction: f(0.1885), Density: f(1.0450), RefractiveIndex: f(1.5384)},
		{Line: 4, Name: "DIPB", Fraction: f(0.4186), Density: f(0.8570), RefractiveIndex: f(1.4890)},
		{Line: 5, Name: "ETOH", Fraction: f(0.0092), Density: f(0.8330), RefractiveIndex: f(1.4310)},
	}
}

func TestBuild_EcoWashRecipe(t *testing.T) {
	additives := []AdditiveRow{
		{Line: 2, Name: "EcoAdd 1", Target: "compo1", Concentration: f(0.852)},
		{Line: 3, Name: "EcoAdd 2", Target: "compo2", Concentration: f(0.81)},
		{Line: 4, Name: "EcoAdd 3", Target: "compo3", Concentration: f(0.83)},
	}

	r, err := Build("EcoWash - 1B", ecoWashRows(), additives, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "EcoWash - 1B", r.Name())
	assert.Equal(t, "ISOL", r.Free(RoleCompo1).Name)
	assert.Equal(t, "BZOH", r.Free(RoleCompo2).Name)
	assert.Equal(t, "DIPB", r.Free(RoleCompo3).Name)

	fixed, ok := r.Fixed()
	require.True(t, ok)
	assert.Equal(t, "ETOH", fixed.Name)
	assert.InDelta(t, 0.0092, fixed.Fraction, 1e-12)

	assert.Len(t, r.Components(), 4)
	assert.Contains(t, r.ByName(), "DIPB")

	add, ok := r.Additive(RoleCompo2)
	require.True(t, ok)
	assert.Equal(t, "EcoAdd 2", add.Name)
	assert.InDelta(t, 0.81, add.Concentration, 1e-12)

	all := r.Additives()
	require.Len(t, all, 3)
	assert.Equal(t, RoleCompo1, all[0].Target)
	assert.Equal(t, RoleCompo3, all[2].Target)
}

func TestBuild_WithoutFixedComponent(t *testing.T) {
	rows := []ComponentRow{
		{Name: "compo1", Fraction: f(0.4), Density: f(0.8), RefractiveIndex: f(1.40)},
		{Name: "compo2", Fraction: f(0.2), Density: f(1.0), RefractiveIndex: f(1.50)},
		{Name: "compo3", Fraction: f(0.4), Density: f(0.9), RefractiveIndex: f(1.45)},
	}
	r, err := Build("simple", rows, nil, zerolog.Nop())
	require.NoError(t, err)

	_, ok := r.Fixed()
	assert.False(t, ok)
	assert.Empty(t, r.Additives())
}

func TestBuild_SkipsIncompleteRowsButRequiresAllFreeComponents(t *testing.T) {
	rows := ecoWashRows()
	rows[1].Density = nil

	_, err := Build("broken", rows, nil, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecipe)
	assert.Contains(t, err.Error(), "compo2")
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]ComponentRow) []ComponentRow
		want   string
	}{
		{
			name: "unknown component",
			mutate: func(rows []ComponentRow) []ComponentRow {
				rows[3].Name = "WATER"
				return rows
			},
			want: "unsupported component",
		},
		{
			name: "duplicate role",
			mutate: func(rows []ComponentRow) []ComponentRow {
				rows[3].Name = "compo1"
				return rows
			},
			want: "more than once",
		},
		{
			name: "zero free fraction",
			mutate: func(rows []ComponentRow) []ComponentRow {
				rows[0].Fraction = f(0)
				rows[3].Fraction = f(0.3928)
				return rows
			},
			want: "must be positive",
		},
		{
			name: "fractions do not sum to one",
			mutate: func(rows []ComponentRow) []ComponentRow {
				rows[0].Fraction = f(0.5)
				return rows
			},
			want: "sum to",
		},
		{
			name: "fixed fraction out of range",
			mutate: func(rows []ComponentRow) []ComponentRow {
				rows[3].Fraction = f(-0.1)
				return rows
			},
			want: "fixed fraction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("x", tt.mutate(ecoWashRows()), nil, zerolog.Nop())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRecipe)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuild_AdditiveColumnMustMatchName(t *testing.T) {
	// Spreadsheet layout: every additive row carries a value in every column.
	additives := []AdditiveRow{
		{Name: "EcoAdd 1", Target: "compo1", Concentration: f(0.852)},
		{Name: "EcoAdd 1", Target: "compo2", Concentration: f(0.5)},
		{Name: "EcoAdd 2", Target: "compo1", Concentration: f(0.5)},
		{Name: "EcoAdd 2", Target: "compo2", Concentration: f(0.81)},
	}
	r, err := Build("x", ecoWashRows(), additives, zerolog.Nop())
	require.NoError(t, err)

	a1, ok := r.Additive(RoleCompo1)
	require.True(t, ok)
	assert.InDelta(t, 0.852, a1.Concentration, 1e-12)

	a2, ok := r.Additive(RoleCompo2)
	require.True(t, ok)
	assert.InDelta(t, 0.81, a2.Concentration, 1e-12)

	_, ok = r.Additive(RoleCompo3)
	assert.False(t, ok)
}

func TestBuild_ExplicitAdditivesAndDuplicates(t *testing.T) {
	additives := []AdditiveRow{
		{Name: "Booster", Target: "DIPB", Concentration: f(0.9), Explicit: true},
		{Name: "Other", Target: "compo3", Concentration: f(0.7), Explicit: true},
		{Name: "Bad", Target: "ETOH", Concentration: f(0.7), Explicit: true},
		{Name: "Empty", Target: "compo1", Explicit: true},
	}
	r, err := Build("x", ecoWashRows(), additives, zerolog.Nop())
	require.NoError(t, err)

	a3, ok := r.Additive(RoleCompo3)
	require.True(t, ok)
	assert.Equal(t, "Booster", a3.Name)
	assert.Len(t, r.Additives(), 1)
}

func TestResolveRole(t *testing.T) {
	for name, want := range map[string]Role{
		"ISOL":    RoleCompo1,
		" bzoh ":  RoleCompo2,
		"Compo_3": RoleCompo3,
		"ETOH":    RoleFixed,
	} {
		got, ok := ResolveRole(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ResolveRole("acetone")
	assert.False(t, ok)
}

func TestResolveAdditiveRole(t *testing.T) {
	got, ok := ResolveAdditiveRole("EcoAdd 3")
	assert.True(t, ok)
	assert.Equal(t, RoleCompo3, got)

	got, ok = ResolveAdditiveRole("ecoadd-1")
	assert.True(t, ok)
	assert.Equal(t, RoleCompo1, got)

	_, ok = ResolveAdditiveRole("EcoAdd 4")
	assert.False(t, ok)
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "compo1", RoleCompo1.String())
	assert.Equal(t, "compo4", RoleFixed.String())
	assert.Equal(t, "unknown", Role(9).String())
	assert.True(t, RoleCompo3.IsFree())
	assert.False(t, RoleFixed.IsFree())
	assert.Panics(t, func() {
		r, _ := Build("x", ecoWashRows(), nil, zerolog.Nop())
		r.Free(RoleFixed)
	})
}
