package grader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/config"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRemote(t *testing.T, h http.HandlerFunc, timeout time.Duration) *Remote {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewRemote(config.GraderConfig{
		Mode:      config.GraderRemote,
		RemoteURL: srv.URL,
		APIKey:    "secret",
		Timeout:   timeout,
	}, zap.NewNop())
}

func TestRemoteGrade_Success(t *testing.T) {
	var got Submission
	g := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score": 82, "feedback": "clear and specific"}`))
	}, time.Second)

	res, err := g.Grade(context.Background(), Submission{
		UserID: "u1", Phase: progression.PhasePractice, Prompt: "p", Response: "r",
	})
	require.NoError(t, err)
	assert.Equal(t, 82, res.Score)
	assert.Equal(t, "clear and specific", res.Feedback)
	assert.Equal(t, progression.SourceRemote, res.GradedBy)
	assert.Equal(t, progression.PhasePractice, got.Phase)
}

func TestRemoteGrade_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"server error", http.StatusInternalServerError, `oops`, apperr.ErrExternal},
		{"unavailable", http.StatusServiceUnavailable, ``, apperr.ErrUnavailable},
		{"malformed body", http.StatusOK, `not json`, apperr.ErrExternal},
		{"missing score", http.StatusOK, `{"feedback":"hm"}`, apperr.ErrExternal},
		{"score above range", http.StatusOK, `{"score":140}`, apperr.ErrExternal},
		{"score below range", http.StatusOK, `{"score":-3}`, apperr.ErrExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newRemote(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, time.Second)
			_, err := g.Grade(context.Background(), Submission{Prompt: "p", Response: "r"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.True(t, apperr.IsExternal(err))
		})
	}
}

func TestRemoteGrade_Timeout(t *testing.T) {
	g := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)

	_, err := g.Grade(context.Background(), Submission{Prompt: "p", Response: "r"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTimeout)
}

func TestNew_SelectsMode(t *testing.T) {
	g, err := New(config.GraderConfig{Mode: config.GraderLocal}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Local{}, g)

	g, err = New(config.GraderConfig{Mode: config.GraderRemote, RemoteURL: "http://x"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Remote{}, g)

	_, err = New(config.GraderConfig{Mode: "magic"}, zap.NewNop())
	assert.Error(t, err)
}
