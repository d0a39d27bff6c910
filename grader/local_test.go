package grader

import (
	"context"
	"strings"
	"testing"

	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalScore(t *testing.T) {
	prompt := "Plan a monthly budget"
	got := Score(prompt, "I would plan my monthly budget. First list income. Then cut costs.")
	// 12 words (4) + all keywords (35) + three sentences (15)
	assert.Equal(t, 54, got)
}

func TestLocalScore_Bounds(t *testing.T) {
	assert.Equal(t, 0, Score("anything", ""))
	assert.Equal(t, 0, Score("anything", "   \n "))

	long := strings.Repeat("budget savings plan. ", 200)
	s := Score("Write a budget and savings plan", long)
	assert.LessOrEqual(t, s, 100)
	assert.GreaterOrEqual(t, s, 90)
}

func TestLocalScore_RelevanceMatters(t *testing.T) {
	prompt := "Explain how you would negotiate a freelance design contract"
	relevant := "I would negotiate the freelance contract by agreeing the design scope first. Then I set milestones and payment terms."
	offTopic := "Yesterday the weather was nice and I went to the park with friends. We ate lunch there."
	assert.Greater(t, Score(prompt, relevant), Score(prompt, offTopic))
}

func TestLocalGrade_Deterministic(t *testing.T) {
	g := NewLocal()
	sub := Submission{Prompt: "Describe a savings goal", Response: "Save ten percent of income every month for an emergency fund."}
	first, err := g.Grade(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, progression.SourceLocal, first.GradedBy)
	assert.NotEmpty(t, first.Feedback)
	for i := 0; i < 20; i++ {
		again, err := g.Grade(context.Background(), sub)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLocalGrade_EmptyResponseFeedback(t *testing.T) {
	res, err := NewLocal().Grade(context.Background(), Submission{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, "No response submitted.", res.Feedback)
}

func TestLocalGrade_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal().Grade(ctx, Submission{Prompt: "p", Response: "r"})
	assert.ErrorIs(t, err, apperr.ErrTimeout)
}
