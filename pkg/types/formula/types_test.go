package formula

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":                ModeAuto,
		"auto":            ModeAuto,
		"unknown":         ModeUnknown,
		"unknown_element": ModeUnknown,
		"general":         ModeGeneral,
		"brute-force":     ModeGeneral,
	}
	for in, want := range cases {
		got, ok := ParseMode(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseMode("fast")
	assert.False(t, ok)
}

func TestInferenceRequest_JSONFieldNames(t *testing.T) {
	var req InferenceRequest
	body := `{"components":[{"symbol":"?"},{"symbol":"O","formula":"O"}],
		"fractions":{"O":88.81},"max_count":3,"mass_tolerance":0.5,"filter":"nonmetal"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Len(t, req.Components, 2)
	assert.Equal(t, "?", req.Components[0].Symbol)
	assert.Equal(t, 88.81, req.Fractions["O"])
	assert.Equal(t, 3, req.MaxCount)
	assert.Equal(t, 0.5, req.MassTolerance)
	assert.Equal(t, "nonmetal", req.Filter)
	assert.Equal(t, Mode(""), req.Mode)
}

func TestSolution_OmitsUnknownFieldsInGeneralMode(t *testing.T) {
	data, err := json.Marshal(Solution{Formula: map[string]int{"C": 1, "O": 2}, Display: "C O2", DistinctCount: 2, AtomCount: 3})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "element")
	assert.NotContains(t, string(data), "final")
}
