package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	out, err := execute(t, "resolve", "정형외과")
	require.NoError(t, err)
	assert.Equal(t, "05\t정형외과\n", out)
}

func TestAnalyzeCommandWithMock(t *testing.T) {
	out, err := execute(t, "analyze", "--mock", "허리가", "아파요")
	require.NoError(t, err)

	var payload struct {
		Provider string `json:"provider"`
		Analysis struct {
			Department string `json:"department"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "mock", payload.Provider)
	assert.Equal(t, "정형외과", payload.Analysis.Department)
}

func TestFacilitiesCommandFallsBackWithoutKey(t *testing.T) {
	t.Setenv("FACILITY_API_KEY", "")

	out, err := execute(t, "facilities", "내과")
	require.NoError(t, err)

	var facilities []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &facilities))
	assert.NotEmpty(t, facilities)
}

func TestFacilitiesCommandRejectsPartialLocation(t *testing.T) {
	t.Setenv("FACILITY_API_KEY", "")

	_, err := execute(t, "facilities", "내과", "--lat", "37.5")
	assert.Error(t, err)
}
