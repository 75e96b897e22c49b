package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/habit-coach/internal/model"
)

const sample = `
factors:
  - id: 1
    name: Time
  - id: 2
    name: Energy
habits:
  - id: 10
    title: Walk
    hour: 18
    weights: {2: 1, 1: 3}
`

func TestParse(t *testing.T) {
	factors, habits, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Len(t, factors, 2)
	require.Len(t, habits, 1)
	assert.Equal(t, []model.FactorHabitRating{
		{HabitID: 10, FactorID: 1, Weight: 3},
		{HabitID: 10, FactorID: 2, Weight: 1},
	}, habits[0].Ratings)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown factor": "factors: [{id: 1, name: T}]\nhabits: [{id: 1, title: W, weights: {9: 1}}]",
		"bad hour":       "factors: [{id: 1, name: T}]\nhabits: [{id: 1, title: W, hour: 24}]",
		"dup habit":      "habits: [{id: 1, title: W}, {id: 1, title: X}]",
		"dup factor":     "factors: [{id: 1, name: T}, {id: 1, name: U}]",
		"bad weight":     "factors: [{id: 1, name: T}]\nhabits: [{id: 1, title: W, weights: {1: 11}}]",
		"unknown key":    "factors: [{id: 1, name: T, colour: red}]",
		"missing title":  "habits: [{id: 1}]",
	}
	for name, doc := range cases {
		_, _, err := Parse(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadShippedCatalog(t *testing.T) {
	factors, habits, err := Load("../../seed/catalog.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, factors)
	assert.GreaterOrEqual(t, len(habits), 8)
}
