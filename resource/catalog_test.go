package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, c.Tasks)
	assert.NotEmpty(t, c.Opportunities)

	task, ok := c.Task("budget-basics")
	require.True(t, ok)
	assert.Equal(t, TaskLesson, task.Kind)
	assert.Equal(t, int64(10), task.XP)

	_, ok = c.Task("nope")
	assert.False(t, ok)

	opp, ok := c.Opportunity("opp-data-entry")
	require.True(t, ok)
	assert.Equal(t, progression.Requirement{MinReadiness: 50, MinPhase: progression.PhaseMoneySkills}, opp.Requirement())

	// Every phase has at least one scenario.
	for _, ph := range progression.Phases {
		_, ok := c.Scenario("", ph)
		assert.True(t, ok, "phase %s", ph)
	}
}

func TestQuizScore(t *testing.T) {
	q := &Quiz{Questions: []Question{
		{ID: "q1", Options: []string{"a", "b"}, AnswerIndex: 1},
		{ID: "q2", Options: []string{"a", "b"}, AnswerIndex: 0, XP: 15},
		{ID: "q3", Options: []string{"a", "b"}, AnswerIndex: 0},
	}}

	earned, total := q.Score([]Answer{
		{QuestionID: "q1", SelectedIndex: 1},
		{QuestionID: "q2", SelectedIndex: 0},
		{QuestionID: "q3", SelectedIndex: 1},
		{QuestionID: "q1", SelectedIndex: 1}, // repeated answer counts once
		{QuestionID: "ghost", SelectedIndex: 0},
	})
	assert.Equal(t, int64(25), earned)
	assert.Equal(t, int64(35), total)

	earned, _ = q.Score(nil)
	assert.Zero(t, earned)
}

func TestScenarioLookup(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	s, ok := c.Scenario("PRICING", progression.PhaseMoneySkills)
	require.True(t, ok)
	assert.Equal(t, "sc-pricing", s.ID)

	s, ok = c.Scenario("saving", progression.PhaseMoneySkills)
	require.True(t, ok)
	assert.Equal(t, "Saving", s.TopicName)

	_, ok = c.Scenario("pricing", progression.PhaseEarn)
	assert.False(t, ok, "topic exists only in another phase")
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":    "tasks:\n  - id: a\n    kind: lesson\n    colour: red\n",
		"duplicate task":   "tasks:\n  - {id: a, kind: lesson}\n  - {id: a, kind: lesson}\n",
		"unknown kind":     "tasks:\n  - {id: a, kind: video}\n",
		"unknown phase":    "opportunities:\n  - {id: o, min_phase: retired}\n",
		"readiness range":  "opportunities:\n  - {id: o, min_readiness: 120}\n",
		"bad answer index": "tasks:\n  - id: a\n    kind: lesson\n    quiz:\n      questions:\n        - {id: q, options: [x], answer_index: 3}\n",
		"empty prompt":     "scenarios:\n  - {id: s, phase: earn, prompt: ''}\n",
		"negative xp":      "tasks:\n  - {id: a, kind: lesson, xp: -5}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoader_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tasks:\n  - {id: a, title: A, kind: lesson, xp: 5}\n"), 0o600))

	l, err := NewLoader(path, nil)
	require.NoError(t, err)
	first := l.Current()
	_, ok := first.Task("a")
	require.True(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("tasks:\n  - {id: b, title: B, kind: lesson, xp: 5}\n"), 0o600))
	require.NoError(t, l.Reload())
	_, ok = l.Current().Task("b")
	assert.True(t, ok)
	_, ok = first.Task("a")
	assert.True(t, ok, "old snapshot is untouched")

	require.NoError(t, os.WriteFile(path, []byte("tasks: [oops"), 0o600))
	assert.Error(t, l.Reload())
	_, ok = l.Current().Task("b")
	assert.True(t, ok, "failed reload keeps previous catalog")
}

func TestNewLoader_EmptyPathUsesDefault(t *testing.T) {
	l, err := NewLoader("", nil)
	require.NoError(t, err)
	_, ok := l.Current().Task("budget-basics")
	assert.True(t, ok)
	assert.NoError(t, l.Reload())
}
