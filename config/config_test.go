package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
grader:
  mode: remote
  remote_url: http://grader.local/grade
  timeout: 3s
progression:
  advance_thresholds: [30, 50, 70]
  timezone: Europe/Berlin
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, GraderRemote, cfg.Grader.Mode)
	assert.Equal(t, 3*time.Second, cfg.Grader.Timeout)
	assert.Equal(t, []int{30, 50, 70}, cfg.Progression.AdvanceThresholds)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 20, cfg.Leaderboard.Size)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, GraderLocal, cfg.Grader.Mode)
	assert.Equal(t, 72*time.Hour, cfg.Security.JWTTTLH)
	assert.True(t, cfg.Security.RequireSession)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SKILLBRIDGE_SERVER_PORT", "7070")
	t.Setenv("SKILLBRIDGE_GRADER_MODE", "local")
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"remote without url":    "grader:\n  mode: remote\n",
		"unknown grader":        "grader:\n  mode: psychic\n",
		"unknown db":            "database:\n  mode: oracle\n",
		"thresholds not rising": "progression:\n  advance_thresholds: [60, 40, 80]\n",
		"wrong threshold count": "progression:\n  advance_thresholds: [40, 60]\n",
		"bad timezone":          "progression:\n  timezone: Mars/Olympus\n",
		"zero leaderboard size": "leaderboard:\n  size: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestProgressionRules(t *testing.T) {
	r, err := Default().Progression.Rules()
	require.NoError(t, err)
	assert.Equal(t, 40, r.AdvanceThresholds[progression.PhaseLifeSkills])
	assert.Equal(t, 80, r.AdvanceThresholds[progression.PhasePractice])
	assert.Equal(t, 3, r.MinPhaseActivity[progression.PhasePractice])
	assert.Equal(t, time.UTC, r.Location)
	_, hasEarn := r.AdvanceThresholds[progression.PhaseEarn]
	assert.False(t, hasEarn)
}
