// Package catalog reads the factor and habit reference data from a YAML
// file.  habitctl seeds the database from it.
package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/habit-coach/internal/model"
)

// File is the on-disk layout.
//
//	factors:
//	  - id: 1
//	    name: Time
//	    description: How much free time you have each day
//	habits:
//	  - id: 1
//	    title: Take a 10 minute walk
//	    description: ...
//	    hour: 18
//	    weights: {1: 3, 2: 1}
type File struct {
	Factors []FactorEntry `yaml:"factors"`
	Habits  []HabitEntry  `yaml:"habits"`
}

type FactorEntry struct {
	ID          uint64 `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type HabitEntry struct {
	ID          uint64         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Hour        int            `yaml:"hour"`
	Weights     map[uint64]int `yaml:"weights"`
}

// MaxWeight bounds a factor weight in the catalog.
const MaxWeight = 10

// Load reads and validates the catalog at path.
func Load(path string) ([]model.Factor, []model.Habit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a catalog.  Unknown keys are rejected so a
// typo cannot silently drop a weight.
func Parse(r io.Reader) ([]model.Factor, []model.Habit, error) {
	var cf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, nil, fmt.Errorf("decode catalog: %w", err)
	}

	factors := make([]model.Factor, 0, len(cf.Factors))
	known := map[uint64]bool{}
	for _, fe := range cf.Factors {
		if fe.ID == 0 || fe.Name == "" {
			return nil, nil, fmt.Errorf("factor %d: id and name are required", fe.ID)
		}
		if known[fe.ID] {
			return nil, nil, fmt.Errorf("factor %d: duplicate id", fe.ID)
		}
		known[fe.ID] = true
		factors = append(factors, model.Factor{ID: fe.ID, Name: fe.Name, Description: fe.Description})
	}

	habits := make([]model.Habit, 0, len(cf.Habits))
	seen := map[uint64]bool{}
	for _, he := range cf.Habits {
		if he.ID == 0 || he.Title == "" {
			return nil, nil, fmt.Errorf("habit %d: id and title are required", he.ID)
		}
		if seen[he.ID] {
			return nil, nil, fmt.Errorf("habit %d: duplicate id", he.ID)
		}
		seen[he.ID] = true
		if he.Hour < 0 || he.Hour > 23 {
			return nil, nil, fmt.Errorf("habit %d: hour %d out of range", he.ID, he.Hour)
		}
		h := model.Habit{ID: he.ID, Title: he.Title, Description: he.Description, Hour: he.Hour}
		for fid, w := range he.Weights {
			if !known[fid] {
				return nil, nil, fmt.Errorf("habit %d: unknown factor %d", he.ID, fid)
			}
			if w < 0 || w > MaxWeight {
				return nil, nil, fmt.Errorf("habit %d: weight %d out of range", he.ID, w)
			}
			h.Ratings = append(h.Ratings, model.FactorHabitRating{HabitID: he.ID, FactorID: fid, Weight: w})
		}
		sortRatings(h.Ratings)
		habits = append(habits, h)
	}
	return factors, habits, nil
}

func sortRatings(rs []model.FactorHabitRating) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j].FactorID < rs[j-1].FactorID; j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}
