package hybrid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rushteam/artrec/core"
)

func TestComputeWeights_SumToOne(t *testing.T) {
	experiences := []ExperienceLevel{ExperienceNew, ExperienceIntermediate, ExperienceExperienced}
	availabilities := []DataAvailability{AvailabilityLow, AvailabilityMedium, AvailabilityHigh}
	stabilities := []float64{0, 0.39, 0.4, 0.5, 0.8, 0.81, 1}

	for _, e := range experiences {
		for _, a := range availabilities {
			for _, s := range stabilities {
				w := ComputeWeights(UserContext{Experience: e, Availability: a, Stability: s})
				assert.InDelta(t, 1.0, w.Collaborative+w.Content, 1e-9, "%s/%s/%v", e, a, s)
				assert.GreaterOrEqual(t, w.Collaborative, 0.0)
				assert.GreaterOrEqual(t, w.Content, 0.0)
			}
		}
	}
}

func TestComputeWeights(t *testing.T) {
	tests := []struct {
		name string
		uc   UserContext
		want Weights
	}{
		{
			name: "new user with little data",
			uc:   UserContext{Experience: ExperienceNew, Availability: AvailabilityLow, Stability: 0.5},
			want: Weights{Collaborative: 0.1, Content: 0.9},
		},
		{
			name: "intermediate medium neutral",
			uc:   UserContext{Experience: ExperienceIntermediate, Availability: AvailabilityMedium, Stability: 0.5},
			want: Weights{Collaborative: 0.5, Content: 0.5},
		},
		{
			name: "experienced high stable",
			uc:   UserContext{Experience: ExperienceExperienced, Availability: AvailabilityHigh, Stability: 0.9},
			// 0.7×1.3 = 0.91, content 0.09, collab ×1.2 = 1.092 → normalize
			want: Weights{Collaborative: 1.092 / 1.182, Content: 0.09 / 1.182},
		},
		{
			name: "unstable boosts content",
			uc:   UserContext{Experience: ExperienceIntermediate, Availability: AvailabilityMedium, Stability: 0.2},
			want: Weights{Collaborative: 0.5 / 1.1, Content: 0.6 / 1.1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeWeights(tt.uc)
			assert.InDelta(t, tt.want.Collaborative, got.Collaborative, 1e-9)
			assert.InDelta(t, tt.want.Content, got.Content, 1e-9)
		})
	}
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name     string
		override core.Strategy
		uc       UserContext
		want     core.Strategy
	}{
		{"override wins", core.StrategyCollaborative, UserContext{Experience: ExperienceNew}, core.StrategyCollaborative},
		{"new user", "", UserContext{Experience: ExperienceNew, Availability: AvailabilityLow}, core.StrategyContent},
		{"high and stable", "", UserContext{Experience: ExperienceExperienced, Availability: AvailabilityHigh, Stability: 0.71}, core.StrategyCollaborative},
		{"high but exactly 0.7", "", UserContext{Experience: ExperienceExperienced, Availability: AvailabilityHigh, Stability: 0.7}, core.StrategyHybrid},
		{"medium", "", UserContext{Experience: ExperienceIntermediate, Availability: AvailabilityMedium, Stability: 0.9}, core.StrategyHybrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectStrategy(tt.override, tt.uc))
		})
	}
}

func TestWeights_NormalizeZero(t *testing.T) {
	assert.Equal(t, ContentOnly, Weights{}.Normalize())
}
