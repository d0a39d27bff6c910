package progression

import (
	"testing"

	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   int
	}{
		{"empty", nil, 0},
		{"single sample", []int{90}, 90},
		{"newest weighs more", []int{90, 10}, 45},
		{"flat", []int{70, 70, 70, 70}, 70},
		{"recovering", []int{0, 0, 0, 100}, 34},
		{"out of range inputs clamp", []int{150, -20}, 44},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Readiness(tt.scores, 3))
		})
	}
}

func TestReadiness_Deterministic(t *testing.T) {
	scores := []int{12, 88, 47, 63, 91, 5, 77}
	first := Readiness(scores, 3)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Readiness(scores, 3))
	}
}

func TestPushScore_TrimsOldest(t *testing.T) {
	w := []int{1, 2, 3}
	w = pushScore(w, 4, 3)
	assert.Equal(t, []int{2, 3, 4}, w)
}

func TestEligibility(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")
	p.ReadinessScore = 55
	p.CurrentPhase = PhaseMoneySkills

	tests := []struct {
		name     string
		req      Requirement
		eligible bool
		reason   string
	}{
		{"both met", Requirement{MinReadiness: 50, MinPhase: PhaseMoneySkills}, true, ""},
		{"no phase gate", Requirement{MinReadiness: 55}, true, ""},
		{"readiness short", Requirement{MinReadiness: 60, MinPhase: PhaseLifeSkills}, false, "Requires readiness 60% (current 55%)"},
		{"phase short", Requirement{MinReadiness: 10, MinPhase: PhasePractice}, false, "Unlocks in the practice phase (current money_skills)"},
		{"both short reports readiness", Requirement{MinReadiness: 80, MinPhase: PhaseEarn}, false, "Requires readiness 80% (current 55%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EvaluateEligibility(p, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.eligible, got.Eligible)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestEligibility_FlipsAtThreshold(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")
	req := Requirement{MinReadiness: 60, MinPhase: PhaseMoneySkills}

	p.CurrentPhase = PhaseMoneySkills
	p.ReadinessScore = 59
	got, err := e.EvaluateEligibility(p, req)
	require.NoError(t, err)
	assert.False(t, got.Eligible)

	p.ReadinessScore = 60
	got, err = e.EvaluateEligibility(p, req)
	require.NoError(t, err)
	assert.True(t, got.Eligible)

	p.CurrentPhase = PhaseLifeSkills
	got, err = e.EvaluateEligibility(p, req)
	require.NoError(t, err)
	assert.False(t, got.Eligible)
}

func TestEligibility_UnknownPhase(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.EvaluateEligibility(NewProgress("u1"), Requirement{MinPhase: "wizard"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase(" Money_Skills ")
	require.NoError(t, err)
	assert.Equal(t, PhaseMoneySkills, p)

	_, err = ParsePhase("retired")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	next, ok := PhasePractice.Next()
	assert.True(t, ok)
	assert.Equal(t, PhaseEarn, next)
	_, ok = PhaseEarn.Next()
	assert.False(t, ok)
}
