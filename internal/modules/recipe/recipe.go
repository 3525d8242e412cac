// Package recipe models the reference solvent composition of a blend and the pure
// additives available to correct it.
//
// A recipe always carries exactly three free components (compo1, compo2, compo3),
// whose fractions are solved from measurements, and at most one fixed-fraction
// component (compo4) whose contribution is only subtracted out. Recipes are built
// once from tabular rows (see Build) and are immutable afterwards, so a single
// *Recipe can be shared by concurrent calculations.
package recipe

import (
	"sort"
	"strings"
)

// Role identifies the slot a component occupies in the blend model.
type Role int

const (
	RoleCompo1 Role = iota
	RoleCompo2
	RoleCompo3
	RoleFixed
)

// FreeRoles lists the solved roles in matrix column order.
var FreeRoles = [3]Role{RoleCompo1, RoleCompo2, RoleCompo3}

// String returns the canonical role key.
func (r Role) String() string {
	switch r {
	case RoleCompo1:
		return "compo1"
	case RoleCompo2:
		return "compo2"
	case RoleCompo3:
		return "compo3"
	case RoleFixed:
		return "compo4"
	default:
		return "unknown"
	}
}

// IsFree reports whether the role is one of the three solved components.
func (r Role) IsFree() bool {
	return r >= RoleCompo1 && r <= RoleCompo3
}

// roleAliases maps normalized component names to roles.
// ISOL/BZOH/DIPB/ETOH are the names used by the historical EcoWash recipes.
var roleAliases = map[string]Role{
	"compo1": RoleCompo1,
	"isol":   RoleCompo1,
	"compo2": RoleCompo2,
	"bzoh":   RoleCompo2,
	"compo3": RoleCompo3,
	"dipb":   RoleCompo3,
	"compo4": RoleFixed,
	"etoh":   RoleFixed,
}

// ResolveRole maps a component name (canonical or legacy) to its role.
func ResolveRole(name string) (Role, bool) {
	role, ok := roleAliases[normalizeKey(name)]
	return role, ok
}

// ResolveAdditiveRole maps an additive name such as "EcoAdd 2" to the free role it replenishes.
func ResolveAdditiveRole(name string) (Role, bool) {
	key := normalizeKey(name)
	for _, prefix := range []string{"ecoadd", "additive", "additif"} {
		if strings.HasPrefix(key, prefix) {
			key = strings.TrimPrefix(key, prefix)
			break
		}
	}
	switch key {
	case "1":
		return RoleCompo1, true
	case "2":
		return RoleCompo2, true
	case "3":
		return RoleCompo3, true
	}
	return 0, false
}

// normalizeKey lowercases and drops separators so "EcoAdd 1", "ecoadd_1" and "ECOADD-1" compare equal.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "", ".", "").Replace(s)
}

// Component is one solvent species of the reference blend.
type Component struct {
	Name            string  `json:"name" yaml:"name"`
	Role            Role    `json:"-" yaml:"-"`
	Fraction        float64 `json:"fraction" yaml:"fraction"`
	Density         float64 `json:"density" yaml:"density"`
	RefractiveIndex float64 `json:"refractive_index" yaml:"refractive_index"`
}

// PureAdditive is a corrective substance supplying one free component.
type PureAdditive struct {
	Name          string  `json:"name"`
	Target        Role    `json:"-"`
	Concentration float64 `json:"concentration"`
}

// Recipe is the validated reference composition of a blend.
type Recipe struct {
	name      string
	free      [3]Component
	fixed     *Component
	additives map[Role]PureAdditive
}

// Name returns the selector the recipe was loaded under.
func (r *Recipe) Name() string {
	return r.name
}

// Free returns the free component occupying role.
// It panics if role is not a free role.
func (r *Recipe) Free(role Role) Component {
	if !role.IsFree() {
		panic("recipe: Free called with non-free role " + role.String())
	}
	return r.free[role]
}

// FreeComponents returns the three free components in role order.
func (r *Recipe) FreeComponents() [3]Component {
	return r.free
}

// Fixed returns the fixed-fraction component, if the recipe has one.
func (r *Recipe) Fixed() (Component, bool) {
	if r.fixed == nil {
		return Component{}, false
	}
	return *r.fixed, true
}

// Components returns every component, free components first.
func (r *Recipe) Components() []Component {
	out := make([]Component, 0, 4)
	out = append(out, r.free[:]...)
	if r.fixed != nil {
		out = append(out, *r.fixed)
	}
	return out
}

// ByName returns the components keyed by their recipe name.
func (r *Recipe) ByName() map[string]Component {
	out := make(map[string]Component, 4)
	for _, c := range r.Components() {
		out[c.Name] = c
	}
	return out
}

// Additive returns the pure additive replenishing role, if the recipe lists one.
func (r *Recipe) Additive(role Role) (PureAdditive, bool) {
	a, ok := r.additives[role]
	return a, ok
}

// Additives returns the listed additives ordered by target role.
func (r *Recipe) Additives() []PureAdditive {
	out := make([]PureAdditive, 0, len(r.additives))
	for _, a := range r.additives {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}
