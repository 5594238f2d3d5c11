package commander

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanDeck_Atraxa(t *testing.T) {
	ci := Canonicalize("WUBG")
	lands := PlanLands(ptr(37), ci, DefaultLandConfig())

	plan, err := PlanDeck([]string{"Atraxa, Praetors' Voice"}, ci, lands, DefaultCategoryConfig())
	require.NoError(t, err)

	assert.Equal(t, 62, plan.NonLandSlots)
	assert.Equal(t, 62-44, plan.Flexible)
	assert.False(t, plan.Scaled)

	ramp, ok := plan.Target(CategoryRamp)
	require.True(t, ok)
	assert.Equal(t, 8, ramp.Min)
	assert.Equal(t, 12, ramp.Max)
}

func TestPlanDeck_Partners(t *testing.T) {
	lands := PlanLands(ptr(36), "UR", DefaultLandConfig())

	plan, err := PlanDeck([]string{"Kraum, Ludevic's Opus", " Tymna the Weaver "}, "WUBR", lands, DefaultCategoryConfig())
	require.NoError(t, err)
	assert.Equal(t, 100-2-36, plan.NonLandSlots)
	assert.Equal(t, "Tymna the Weaver", plan.Commanders[1])
}

func TestPlanDeck_CommanderCount(t *testing.T) {
	lands := PlanLands(nil, "G", DefaultLandConfig())

	_, err := PlanDeck(nil, "G", lands, DefaultCategoryConfig())
	assert.Error(t, err)

	_, err = PlanDeck([]string{" ", ""}, "G", lands, DefaultCategoryConfig())
	assert.Error(t, err)

	_, err = PlanDeck([]string{"a", "b", "c"}, "G", lands, DefaultCategoryConfig())
	assert.Error(t, err)
}

func TestPlanDeck_ScalesOversizedMinimums(t *testing.T) {
	cfg := CategoryConfig{Targets: []CategoryTarget{
		{Name: CategoryCreatures, Min: 40, Max: 50},
		{Name: CategoryRamp, Min: 20, Max: 25},
		{Name: CategoryDraw, Min: 10, Max: 12},
	}}
	lands := PlanLands(ptr(42), "G", DefaultLandConfig())

	plan, err := PlanDeck([]string{"Omnath, Locus of Mana"}, "G", lands, cfg)
	require.NoError(t, err)

	assert.True(t, plan.Scaled)
	assert.GreaterOrEqual(t, plan.Flexible, 0)
	sumMin := 0
	for _, tgt := range plan.Targets {
		assert.LessOrEqual(t, tgt.Min, tgt.Max)
		sumMin += tgt.Min
	}
	assert.LessOrEqual(t, sumMin, plan.NonLandSlots)
	assert.True(t, plan.MidpointOverflow)
}

func TestCategoryConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultCategoryConfig().Validate())

	assert.Error(t, CategoryConfig{Targets: []CategoryTarget{{Name: "ramp", Min: 5, Max: 2}}}.Validate())
	assert.Error(t, CategoryConfig{Targets: []CategoryTarget{{Name: "ramp"}, {Name: "ramp"}}}.Validate())
	assert.Error(t, CategoryConfig{Targets: []CategoryTarget{{Name: CategoryFlexible}}}.Validate())
}
