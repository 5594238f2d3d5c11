package commander

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestPlanLands_BandAndSplit(t *testing.T) {
	cfg := DefaultLandConfig()
	identities := []ColorIdentity{"", "W", "UB", "BRG", "WUBG", "WUBRG"}
	desired := []*float64{
		nil, ptr(-5), ptr(0), ptr(33), ptr(34), ptr(36.6), ptr(37), ptr(42), ptr(43), ptr(1000),
		ptr(1e20), ptr(-1e20), ptr(math.MaxFloat64), ptr(math.NaN()), ptr(math.Inf(1)), ptr(math.Inf(-1)),
	}

	for _, ci := range identities {
		for _, d := range desired {
			plan := PlanLands(d, ci, cfg)
			assert.Equal(t, plan.Total, plan.NonBasic+plan.Basic, "ci=%s", ci)
			assert.GreaterOrEqual(t, plan.Total, cfg.Min)
			assert.LessOrEqual(t, plan.Total, cfg.Max)
			assert.GreaterOrEqual(t, plan.Basic, max(cfg.MinBasics, ci.Count()))

			sum := 0
			for _, b := range plan.Basics {
				sum += b.Count
			}
			assert.Equal(t, plan.Basic, sum, "basics must sum to basic count for %s", ci)
		}
	}
}

func TestPlanLands_Defaults(t *testing.T) {
	cfg := DefaultLandConfig()

	tests := []struct {
		name    string
		desired *float64
		want    int
	}{
		{"nil uses default", nil, 37},
		{"NaN uses default", ptr(math.NaN()), 37},
		{"below band", ptr(10), 34},
		{"above band", ptr(99), 42},
		{"rounded", ptr(38.5), 39},
		{"huge clamps to max", ptr(1e20), 42},
		{"huge negative clamps to min", ptr(-1e20), 34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanLands(tt.desired, "G", cfg).Total)
		})
	}
}

func TestPlanLands_FourColorFloor(t *testing.T) {
	plan := PlanLands(ptr(37), Canonicalize("WUBG"), DefaultLandConfig())

	assert.Equal(t, 37, plan.Total)
	assert.GreaterOrEqual(t, plan.NonBasic, 22)
	assert.Equal(t, 24, plan.NonBasic)
	assert.Equal(t, 13, plan.Basic)
}

func TestPlanLands_RatioMonotonic(t *testing.T) {
	cfg := DefaultLandConfig()
	prev := -1
	for _, ci := range []ColorIdentity{"G", "UG", "UBG", "WUBG", "WUBRG"} {
		plan := PlanLands(nil, ci, cfg)
		assert.GreaterOrEqual(t, plan.NonBasic, prev, "non-basic count should not drop for %s", ci)
		prev = plan.NonBasic
	}
}

func TestApportionBasics(t *testing.T) {
	for _, ci := range []ColorIdentity{"W", "UB", "BRG", "WUBG", "WUBRG"} {
		for count := 0; count <= 30; count++ {
			alloc := ApportionBasics(count, ci)
			require.Len(t, alloc, ci.Count())

			lo := count / ci.Count()
			hi := int(math.Ceil(float64(count) / float64(ci.Count())))
			sum := 0
			for _, a := range alloc {
				assert.GreaterOrEqual(t, a.Count, lo)
				assert.LessOrEqual(t, a.Count, hi)
				sum += a.Count
			}
			assert.Equal(t, count, sum)
		}
	}
}

func TestApportionBasics_RemainderOrder(t *testing.T) {
	alloc := ApportionBasics(14, Canonicalize("gwu"))

	require.Len(t, alloc, 3)
	assert.Equal(t, BasicAllocation{Symbol: "W", Name: "Plains", Count: 5}, alloc[0])
	assert.Equal(t, BasicAllocation{Symbol: "U", Name: "Island", Count: 5}, alloc[1])
	assert.Equal(t, BasicAllocation{Symbol: "G", Name: "Forest", Count: 4}, alloc[2])
}

func TestPlanLands_Colorless(t *testing.T) {
	plan := PlanLands(nil, "", DefaultLandConfig())

	require.Len(t, plan.Basics, 1)
	assert.Equal(t, "Wastes", plan.Basics[0].Name)
	assert.Equal(t, plan.Basic, plan.Basics[0].Count)
	assert.Empty(t, ColorIdentity("").SearchFilter())
}

func TestLandPlan_WithNonBasic(t *testing.T) {
	plan := PlanLands(ptr(37), "UG", DefaultLandConfig())

	short := plan.WithNonBasic(plan.NonBasic - 4)
	assert.Equal(t, plan.Total, short.Total)
	assert.Equal(t, plan.Basic+4, short.Basic)
	assert.Equal(t, short.Basic, short.Basics[0].Count+short.Basics[1].Count)

	assert.Equal(t, 0, plan.WithNonBasic(-3).NonBasic)
	assert.Equal(t, plan.Total, plan.WithNonBasic(500).NonBasic)
}

func TestLandConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultLandConfig().Validate())

	bad := DefaultLandConfig()
	bad.Tiers[2].Ratio = 0.1
	assert.Error(t, bad.Validate())

	bad = DefaultLandConfig()
	bad.Default = 50
	assert.Error(t, bad.Validate())

	bad = DefaultLandConfig()
	bad.Tiers = bad.Tiers[:2]
	assert.Error(t, bad.Validate())

	bad = DefaultLandConfig()
	bad.Tiers[0].Floor = 0.9
	assert.Error(t, bad.Validate())

	widest := DefaultLandConfig()
	widest.Max = DeckSize - 3
	require.NoError(t, widest.Validate())

	bad = DefaultLandConfig()
	bad.Max = 98
	assert.Error(t, bad.Validate(), "no room left for spells")
}

func TestIsBasicLandName(t *testing.T) {
	assert.True(t, IsBasicLandName("forest"))
	assert.True(t, IsBasicLandName(" Wastes "))
	assert.False(t, IsBasicLandName("Snow-Covered Forest"))
	assert.False(t, IsBasicLandName("Command Tower"))
}
