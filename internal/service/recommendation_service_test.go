package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/repository"
)

func catalogOf(n int) []model.Habit {
	out := make([]model.Habit, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Habit{ID: uint64(i), Title: "h", Ratings: []model.FactorHabitRating{
			{HabitID: uint64(i), FactorID: 1, Weight: i},
		}})
	}
	return out
}

func TestRecommend_RanksByLatestProfile(t *testing.T) {
	svc := &RecommendationService{
		Users:  newFakeUsers(model.User{ID: 1}),
		Habits: &fakeCatalog{habits: []model.Habit{
			{ID: 1, Title: "A", Ratings: []model.FactorHabitRating{{HabitID: 1, FactorID: 1, Weight: 3}, {HabitID: 1, FactorID: 2, Weight: 1}}},
			{ID: 2, Title: "B", Ratings: []model.FactorHabitRating{{HabitID: 2, FactorID: 1, Weight: 1}, {HabitID: 2, FactorID: 2, Weight: 2}}},
		}},
		Factors: &fakeFactors{latest: map[uint64][]model.FactorScore{
			1: {{FactorID: 1, Score: 4}, {FactorID: 2, Score: 0}},
		}},
	}
	page, err := svc.Recommend(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Habits, 2)
	assert.Equal(t, uint64(1), page.Habits[0].ID)
	assert.Equal(t, 12, page.Habits[0].Score)
	assert.Equal(t, 4, page.Habits[1].Score)
	assert.Equal(t, 4, page.NextCursor)
}

func TestRecommend_NoProfileKeepsCatalogOrder(t *testing.T) {
	svc := &RecommendationService{
		Users:   newFakeUsers(model.User{ID: 1}),
		Habits:  &fakeCatalog{habits: catalogOf(6)},
		Factors: &fakeFactors{latest: map[uint64][]model.FactorScore{}},
	}
	page, err := svc.Recommend(context.Background(), 1, 4)
	require.NoError(t, err)
	ids := []uint64{}
	for _, h := range page.Habits {
		ids = append(ids, h.ID)
		assert.Zero(t, h.Score)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, ids)
	assert.Equal(t, 4, page.NextCursor)
}

func TestRecommend_Pages(t *testing.T) {
	svc := &RecommendationService{
		Users:   newFakeUsers(model.User{ID: 1}),
		Habits:  &fakeCatalog{habits: catalogOf(9)},
		Factors: &fakeFactors{latest: map[uint64][]model.FactorScore{1: {{FactorID: 1, Score: 1}}}},
	}
	ctx := context.Background()
	p1, err := svc.Recommend(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), p1.Habits[0].ID)
	assert.Equal(t, 8, p1.NextCursor)

	p2, err := svc.Recommend(ctx, 1, p1.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), p2.Habits[0].ID)
	assert.Equal(t, 4, p2.NextCursor)
}

func TestRecommend_UnknownUser(t *testing.T) {
	svc := &RecommendationService{
		Users:   newFakeUsers(model.User{ID: 1}),
		Habits:  &fakeCatalog{habits: catalogOf(3)},
		Factors: &fakeFactors{latest: map[uint64][]model.FactorScore{}},
	}
	_, err := svc.Recommend(context.Background(), 2, 0)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecommend_ShortCatalogWraps(t *testing.T) {
	svc := &RecommendationService{
		Users:   newFakeUsers(model.User{ID: 1}),
		Habits:  &fakeCatalog{habits: catalogOf(2)},
		Factors: &fakeFactors{latest: map[uint64][]model.FactorScore{}},
	}
	ctx := context.Background()
	cursor := 0
	for i := 0; i < 3; i++ {
		page, err := svc.Recommend(ctx, 1, cursor)
		require.NoError(t, err)
		assert.Len(t, page.Habits, 2)
		assert.Equal(t, 4, page.NextCursor)
		cursor = page.NextCursor
	}
}

func TestValidateScores(t *testing.T) {
	factors := []model.Factor{{ID: 1, Name: "time"}, {ID: 2, Name: "motivation"}}

	assert.NoError(t, validateScores(factors, map[uint64]int{1: 0, 2: 5}))
	assert.ErrorIs(t, validateScores(factors, map[uint64]int{1: 3}), repository.ErrIncompleteProfile)
	assert.ErrorIs(t, validateScores(factors, map[uint64]int{1: 3, 2: 3, 9: 1}), ErrUnknownFactor)
	assert.ErrorIs(t, validateScores(factors, map[uint64]int{1: 3, 2: 6}), ErrInvalidScore)
	assert.ErrorIs(t, validateScores(factors, map[uint64]int{1: -1, 2: 1}), ErrInvalidScore)
}

func TestProfileService_Submit(t *testing.T) {
	ff := &fakeFactors{factors: []model.Factor{{ID: 1}, {ID: 2}}}
	svc := &ProfileService{Factors: ff}
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, map[uint64]int{1: 2})
	assert.ErrorIs(t, err, repository.ErrIncompleteProfile)
	assert.Empty(t, ff.created)

	_, err = svc.Submit(ctx, 1, map[uint64]int{1: 2, 2: 4})
	require.NoError(t, err)
	assert.Len(t, ff.created, 1)
}
