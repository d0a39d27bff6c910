package progression

import (
	"math/rand"
	"testing"
	"time"

	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultRules())
	require.NoError(t, err)
	return e
}

func TestScenario_LessonThenSimulations(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")

	p, out, err := e.ApplyLessonCompletion(p, "L1", 10, day0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.TotalXP)
	assert.Equal(t, []string{"L1"}, p.CompletedLessons)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.False(t, out.Advanced)
	assert.Equal(t, PhaseLifeSkills, p.CurrentPhase)

	p, out, err = e.ApplySimulationResult(p, SimulationResult{Score: 90, GradedBy: SourceLocal})
	require.NoError(t, err)
	assert.Equal(t, 90, p.ReadinessScore)
	assert.Equal(t, int64(9), p.Credits)
	assert.True(t, out.Advanced)
	assert.Equal(t, PhaseMoneySkills, p.CurrentPhase)
	assert.Equal(t, 0, p.PhaseLessons)
	assert.Equal(t, 0, p.PhaseSimulations)

	p, out, err = e.ApplySimulationResult(p, SimulationResult{Score: 10, GradedBy: SourceRemote})
	require.NoError(t, err)
	assert.Equal(t, 45, p.ReadinessScore)
	assert.Equal(t, int64(10), p.Credits)
	assert.False(t, out.Advanced)
	assert.Equal(t, PhaseMoneySkills, p.CurrentPhase)
	assert.Equal(t, SourceRemote, out.GradedBy)
}

func TestLessonCompletion_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")

	once, _, err := e.ApplyLessonCompletion(p, "L1", 25, day0)
	require.NoError(t, err)
	twice, out, err := e.ApplyLessonCompletion(once, "L1", 25, day0)
	require.NoError(t, err)

	assert.Equal(t, once.TotalXP, twice.TotalXP)
	assert.Equal(t, once.CompletedLessons, twice.CompletedLessons)
	assert.Equal(t, 1, twice.PhaseLessons)
	assert.True(t, out.AlreadyCompleted)
	assert.Zero(t, out.XPAwarded)
}

func TestLessonCompletion_RepeatStillCountsForStreak(t *testing.T) {
	e := newTestEngine(t)
	p, _, err := e.ApplyLessonCompletion(NewProgress("u1"), "L1", 10, day0)
	require.NoError(t, err)

	p, out, err := e.ApplyLessonCompletion(p, "L1", 10, day0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, out.AlreadyCompleted)
	assert.Equal(t, 2, p.CurrentStreak)
	assert.Equal(t, int64(10), p.TotalXP)
}

func TestLessonCompletion_SetStaysSorted(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")
	for _, id := range []string{"m2", "a1", "z9", "a1", "k5"} {
		var err error
		p, _, err = e.ApplyLessonCompletion(p, id, 5, day0)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a1", "k5", "m2", "z9"}, p.CompletedLessons)
	assert.Equal(t, int64(20), p.TotalXP)
}

func TestLessonCompletion_InvalidInput(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")

	_, _, err := e.ApplyLessonCompletion(p, "L1", -1, day0)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, _, err = e.ApplyLessonCompletion(p, "", 10, day0)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	bad := p
	bad.CurrentPhase = "graduate"
	_, _, err = e.ApplyLessonCompletion(bad, "L1", 10, day0)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestOperations_DoNotMutateInput(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")
	p.CompletedLessons = []string{"a", "c"}
	p.RecentScores = []int{50, 60}
	before := p.Clone()

	_, _, err := e.ApplyLessonCompletion(p, "b", 10, day0)
	require.NoError(t, err)
	_, _, err = e.ApplySimulationResult(p, SimulationResult{Score: 70, GradedBy: SourceLocal})
	require.NoError(t, err)

	assert.Equal(t, before, p)
}

func TestSimulation_InvalidInputLeavesNothingApplied(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")

	for _, score := range []int{-1, 101} {
		got, out, err := e.ApplySimulationResult(p, SimulationResult{Score: score, GradedBy: SourceLocal})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		assert.Equal(t, p, got)
		assert.Equal(t, Outcome{}, out)
	}

	_, _, err := e.ApplySimulationResult(p, SimulationResult{Score: 50, GradedBy: "oracle"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, _, err = e.ApplySimulationResult(p, SimulationResult{Score: 50, GradedBy: SourceLocal, Phase: "nope"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSimulation_CreditsFloor(t *testing.T) {
	e := newTestEngine(t)
	cases := map[int]int64{0: 0, 9: 0, 10: 1, 59: 5, 100: 10}
	for score, want := range cases {
		p, out, err := e.ApplySimulationResult(NewProgress("u"), SimulationResult{Score: score, GradedBy: SourceLocal})
		require.NoError(t, err)
		assert.Equal(t, want, p.Credits, "score %d", score)
		assert.Equal(t, want, out.CreditsAwarded, "score %d", score)
	}
}

func TestSimulation_WindowBounded(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")
	for i := 0; i < 25; i++ {
		var err error
		p, _, err = e.ApplySimulationResult(p, SimulationResult{Score: i * 4, GradedBy: SourceLocal})
		require.NoError(t, err)
	}
	assert.Len(t, p.RecentScores, DefaultRules().ReadinessWindow)
	assert.Equal(t, 96, p.RecentScores[len(p.RecentScores)-1])
}

func TestPhaseAdvance_OneStepPerEvaluation(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")
	p.PhaseLessons = 5

	// A perfect score clears every threshold but only one step is taken.
	p, out, err := e.ApplySimulationResult(p, SimulationResult{Score: 100, GradedBy: SourceLocal})
	require.NoError(t, err)
	assert.True(t, out.Advanced)
	assert.Equal(t, PhaseMoneySkills, p.CurrentPhase)

	// money_skills needs 2 activities in-phase.
	p, out, err = e.ApplySimulationResult(p, SimulationResult{Score: 100, GradedBy: SourceLocal})
	require.NoError(t, err)
	assert.False(t, out.Advanced)
	p, out, err = e.ApplySimulationResult(p, SimulationResult{Score: 100, GradedBy: SourceLocal})
	require.NoError(t, err)
	assert.True(t, out.Advanced)
	assert.Equal(t, PhasePractice, p.CurrentPhase)
}

func TestPhaseAdvance_RequiresActivity(t *testing.T) {
	e := newTestEngine(t)
	p, out, err := e.ApplyAssessment(NewProgress("u1"), 95)
	require.NoError(t, err)
	assert.Equal(t, 95, p.ReadinessScore)
	assert.False(t, out.Advanced)
	assert.Equal(t, PhaseLifeSkills, p.CurrentPhase)
	assert.Zero(t, p.Credits)

	p, out, err = e.ApplyLessonCompletion(p, "L1", 10, day0)
	require.NoError(t, err)
	assert.True(t, out.Advanced)
	assert.Equal(t, PhaseMoneySkills, p.CurrentPhase)
}

func TestSimulation_OtherPhaseIsNotActivity(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")
	p.CurrentPhase = PhaseMoneySkills

	p, out, err := e.ApplySimulationResult(p, SimulationResult{Score: 95, Phase: PhaseLifeSkills, GradedBy: SourceLocal})
	require.NoError(t, err)
	assert.Equal(t, 95, p.ReadinessScore)
	assert.Equal(t, int64(9), p.Credits)
	assert.Zero(t, p.PhaseSimulations)
	assert.False(t, out.Advanced)

	p, _, err = e.ApplySimulationResult(p, SimulationResult{Score: 95, Phase: PhaseMoneySkills, GradedBy: SourceLocal})
	require.NoError(t, err)
	assert.Equal(t, 1, p.PhaseSimulations)
}

func TestPhaseAdvance_TerminalPhase(t *testing.T) {
	e := newTestEngine(t)
	p := NewProgress("u1")
	p.CurrentPhase = PhaseEarn
	p.ReadinessScore = 100
	p.PhaseSimulations = 50
	got, advanced := e.CheckPhaseAdvance(p)
	assert.False(t, advanced)
	assert.Equal(t, PhaseEarn, got.CurrentPhase)
}

// Random operation sequences never lower XP or phase and keep readiness in
// range.
func TestProperties_RandomSequences(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		p := NewProgress("u")
		now := day0
		for step := 0; step < 60; step++ {
			prevXP, prevRank := p.TotalXP, p.CurrentPhase.Rank()
			var err error
			switch rng.Intn(4) {
			case 0:
				p, _, err = e.ApplyLessonCompletion(p, string(rune('a'+rng.Intn(12))), int64(rng.Intn(30)), now)
			case 1:
				p, _, err = e.ApplySimulationResult(p, SimulationResult{Score: rng.Intn(101), GradedBy: SourceLocal})
			case 2:
				p, _, err = e.ApplyAssessment(p, rng.Intn(101))
			default:
				p, _, err = e.ApplySkillSwap(p)
			}
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p.TotalXP, prevXP)
			assert.GreaterOrEqual(t, p.CurrentPhase.Rank(), prevRank)
			assert.GreaterOrEqual(t, p.ReadinessScore, 0)
			assert.LessOrEqual(t, p.ReadinessScore, 100)
			now = now.Add(time.Duration(rng.Intn(40)) * time.Hour)
		}
	}
}

func TestSkillSwap_AwardsSkillCredits(t *testing.T) {
	e := newTestEngine(t)
	p, out, err := e.ApplySkillSwap(NewProgress("u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.SkillCredits)
	assert.Equal(t, int64(5), out.SkillCreditsAwarded)
	assert.Zero(t, p.Credits)
}

func TestNewEngine_RejectsBadRules(t *testing.T) {
	r := DefaultRules()
	r.AdvanceThresholds = map[Phase]int{PhaseLifeSkills: 60, PhaseMoneySkills: 40, PhasePractice: 80}
	_, err := NewEngine(r)
	assert.Error(t, err)

	r = DefaultRules()
	r.AdvanceThresholds = map[Phase]int{PhaseLifeSkills: 40, PhaseMoneySkills: 60}
	_, err = NewEngine(r)
	assert.Error(t, err)

	r = DefaultRules()
	r.CreditDivisor = 0
	_, err = NewEngine(r)
	assert.Error(t, err)

	r = DefaultRules()
	r.ReadinessWindow = 0
	_, err = NewEngine(r)
	assert.Error(t, err)
}
